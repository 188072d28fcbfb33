package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the demotrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("demotrader version %s\n", version)
		fmt.Println("A demo trading simulator with a synthetic price feed")
		fmt.Println("https://github.com/rustyeddy/demotrader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
