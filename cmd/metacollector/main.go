// Command metacollector walks the Riot ranked ladder, stores per-tier match
// tables and analyzes whether the team with the stronger champions wins.
package main

import (
	"context"
	"fmt"
	"os"

	"meta-analyzer/internal/config"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "metacollector",
	Short: "Ranked match meta-strength collector and analyzer",
	Long: `Collects ranked solo queue matches tier by tier from the Riot API into
lol_match_data_<TIER>.csv tables, then computes champion win rates and
whether the team with the higher summed win rate won each match.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for tier tables and the final table")

	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateKeyCmd)
}

// loadConfig layers flags over config.Load
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = dataDir
	}
	applyWalkFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
