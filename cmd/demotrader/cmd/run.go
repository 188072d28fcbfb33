package cmd

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/rustyeddy/demotrader/market"
	"github.com/rustyeddy/demotrader/session"
	"github.com/rustyeddy/demotrader/sim"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a headless session on virtual time",
	Long: `Run a session without a server. Ticks are driven by a virtual clock,
so a fixed --seed always produces the same prices and fills.

An optional order is placed before the first tick.

Examples:
  demotrader run --ticks 500 --seed 42
  demotrader run --seed 7 --side long --qty 2 --tp 1% --sl '$300'
  demotrader run --instrument XAU_USD --export-json session.json --export-log activity.txt`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var (
	runTicks      int
	runSeed       uint32
	runInstrument string
	runStrategy   string
	runSide       string
	runQty        float64
	runTP         string
	runSL         string
	runExportJSON string
	runExportLog  string
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().IntVarP(&runTicks, "ticks", "n", 100, "number of ticks to simulate")
	runCmd.Flags().Uint32Var(&runSeed, "seed", 0, "price seed (0 uses the config seed, or the clock)")
	runCmd.Flags().StringVarP(&runInstrument, "instrument", "i", "", "instrument ID (overrides config)")
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "", "conservative|balanced|aggressive (overrides config)")
	runCmd.Flags().StringVar(&runSide, "side", "", "place an order: long|short")
	runCmd.Flags().Float64Var(&runQty, "qty", 1, "order quantity")
	runCmd.Flags().StringVar(&runTP, "tp", "", "take profit: '2%' of entry or '$50' distance")
	runCmd.Flags().StringVar(&runSL, "sl", "", "stop loss: '1%' of entry or '$25' distance")
	runCmd.Flags().StringVar(&runExportJSON, "export-json", "", "write the session snapshot to this file")
	runCmd.Flags().StringVar(&runExportLog, "export-log", "", "write the activity log to this file")
}

func runRun(cmd *cobra.Command, args []string) error {
	if runTicks <= 0 {
		return fmt.Errorf("--ticks must be positive")
	}
	if runSeed != 0 {
		cfg.Session.Seed = runSeed
	}
	if runInstrument != "" {
		cfg.Session.Instrument = runInstrument
	}
	if runStrategy != "" {
		cfg.Session.Strategy = runStrategy
	}

	clock := session.NewManualClock(time.Now().UTC().Truncate(time.Second))
	sess, err := newSession(cfg, clock)
	if err != nil {
		return err
	}

	j, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	sess.Subscribe(session.NewJournalObserver(j, log.Logger))

	inst := sess.Instrument()
	fmt.Printf("Demo session: %s (%s) from %.2f, %s, seed %d\n",
		inst.ID, inst.Name, inst.BasePrice, sess.Strategy(), cfg.Session.Seed)

	sess.Start()
	if runSide != "" {
		if err := placeRunOrder(sess); err != nil {
			return err
		}
	}

	clock.Advance(runTicks)
	sess.Stop()

	printRunSummary(sess)

	if runExportJSON != "" {
		data, err := sess.ExportJSON()
		if err != nil {
			return fmt.Errorf("export json: %w", err)
		}
		if err := os.WriteFile(runExportJSON, data, 0644); err != nil {
			return fmt.Errorf("write %s: %w", runExportJSON, err)
		}
		fmt.Printf("✓ Session exported: %s\n", runExportJSON)
	}
	if runExportLog != "" {
		if err := os.WriteFile(runExportLog, []byte(sess.ExportText()), 0644); err != nil {
			return fmt.Errorf("write %s: %w", runExportLog, err)
		}
		fmt.Printf("✓ Activity log exported: %s\n", runExportLog)
	}
	return nil
}

func placeRunOrder(sess *session.Session) error {
	side, err := market.ParseSide(runSide)
	if err != nil {
		return err
	}
	tp, err := parseLevel(runTP)
	if err != nil {
		return fmt.Errorf("--tp: %w", err)
	}
	sl, err := parseLevel(runSL)
	if err != nil {
		return fmt.Errorf("--sl: %w", err)
	}

	pos, err := sess.PlaceOrder(sim.OrderRequest{
		Side:       side,
		Quantity:   runQty,
		TakeProfit: tp,
		StopLoss:   sl,
	})
	if err != nil {
		return fmt.Errorf("place order: %w", err)
	}
	fmt.Printf("Opened %s %g @ %.2f\n", pos.Side, pos.Quantity, pos.EntryPrice)
	return nil
}

func printRunSummary(sess *session.Session) {
	snap := sess.Snapshot()

	var open, closed int
	var realized float64
	for _, p := range snap.Positions {
		if p.Closed {
			closed++
			realized += p.PnL
		} else {
			open++
		}
	}

	fmt.Println()
	fmt.Printf("Ticks:         %d\n", snap.Ticks)
	fmt.Printf("Final price:   %.2f\n", snap.Price)
	fmt.Printf("Balance:       %.2f (started %.2f)\n", snap.Balance, cfg.Session.Endowment)
	fmt.Printf("Positions:     %d open, %d closed\n", open, closed)
	fmt.Printf("Realized P&L:  %+.2f\n", realized)
	fmt.Printf("Open P&L:      %+.2f\n", sess.OpenPnL())
	fmt.Printf("Log entries:   %d\n", len(snap.Logs))

	names := make([]string, 0, len(snap.Indicators))
	for name := range snap.Indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%-14s %.2f\n", name+":", snap.Indicators[name])
	}
}
