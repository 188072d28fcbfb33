package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/demotrader/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage demotrader configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  demotrader config init --output demotrader.yaml
  demotrader config validate --file demotrader.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the file extension: .yaml/.yml writes YAML, anything else JSON.

Example:
  demotrader config init --output demotrader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  demotrader config validate --file demotrader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "demotrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if err := c.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  demotrader serve --config %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	c, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	cat, err := c.Catalog()
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Session: %s, %s, %s ($%.2f)\n",
		c.Session.Instrument, c.Session.Strategy, c.Session.Speed, c.Session.Endowment)
	fmt.Printf("  Instruments: %d\n", len(cat.List()))
	if len(c.Session.Indicators) > 0 {
		fmt.Printf("  Indicators: %s\n", strings.Join(c.Session.Indicators, ", "))
	}
	fmt.Printf("  Journal: %s\n", c.Journal.Type)
	fmt.Printf("  Server: %s (%.0f req/s, burst %d)\n", c.Server.Addr, c.Server.RatePerSecond, c.Server.Burst)
	return nil
}
