package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var instrumentsCmd = &cobra.Command{
	Use:   "instruments",
	Short: "List the tradable instruments",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := cfg.Catalog()
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-24s %12s %10s\n", "ID", "NAME", "BASE", "VOL")
		for _, inst := range cat.List() {
			fmt.Printf("%-10s %-24s %12.2f %9.3f%%\n", inst.ID, inst.Name, inst.BasePrice, inst.Volatility*100)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(instrumentsCmd)
}
