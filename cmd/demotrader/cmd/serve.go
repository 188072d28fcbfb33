package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/demotrader/metrics"
	"github.com/rustyeddy/demotrader/server"
	"github.com/rustyeddy/demotrader/session"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a live session over HTTP and websockets",
	Long: `Start a real-time session and expose it over a JSON API, a websocket
stream at /ws and Prometheus metrics at /metrics.

Examples:
  demotrader serve
  demotrader serve --addr :9090 --start
  demotrader serve --config demotrader.yaml`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr  string
	serveStart bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveStart, "start", false, "start the price feed immediately")
}

func runServe(cmd *cobra.Command, args []string) error {
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	sess, err := newSession(cfg, session.RealClock{})
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	sess.Subscribe(session.NewJournalObserver(j, log.Logger))

	reg := metrics.NewRegistry()
	reg.Track(sess)

	srv := server.New(sess, server.Options{
		Addr:          cfg.Server.Addr,
		RatePerSecond: cfg.Server.RatePerSecond,
		Burst:         cfg.Server.Burst,
		Metrics:       reg,
		Logger:        &log.Logger,
	})

	if serveStart {
		sess.Start()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = srv.ListenAndServe(ctx)
	sess.Stop()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	log.Info().Float64("balance", sess.Balance()).Msg("session ended")
	return nil
}
