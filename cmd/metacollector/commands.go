package main

import (
	"errors"
	"fmt"
	"strings"

	"meta-analyzer/internal/config"
	"meta-analyzer/internal/pipeline"
	"meta-analyzer/internal/riot"

	"github.com/spf13/cobra"
)

// walk flags, shared by collect and run
var (
	flagTiers        []string
	flagDivisions    []string
	flagPlayers      int
	flagMatches      int
	flagRateLimiter  string
	flagDedupe       bool
	flagSkipKeyCheck bool
	flagPlatform     string
	flagRouting      string
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Walk the ladder and write one match table per tier",
	Long: `Walks tier -> division -> player -> match list -> match detail, one
request at a time, and writes lol_match_data_<TIER>.csv after each tier.

Ctrl-C stops after the current request; finished tier files are kept and
the tier in progress is discarded. A second Ctrl-C exits immediately.`,
	RunE: runCollect,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Build final_analysis_for_tableau.csv from the tier tables",
	RunE:  runAnalyze,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Collect, then analyze",
	Long: `Runs collect followed by analyze. An interrupted collection still
analyzes the tier tables written so far.`,
	RunE: runAll,
}

var validateKeyCmd = &cobra.Command{
	Use:   "validate-key",
	Short: "Check the configured Riot API key",
	RunE:  runValidateKey,
}

func init() {
	for _, cmd := range []*cobra.Command{collectCmd, runCmd} {
		f := cmd.Flags()
		f.StringSliceVar(&flagTiers, "tiers", nil, "tiers to walk (e.g. GOLD,PLATINUM)")
		f.StringSliceVar(&flagDivisions, "divisions", nil, "divisions to walk (e.g. I,II)")
		f.IntVar(&flagPlayers, "players", 0, "players per bracket")
		f.IntVar(&flagMatches, "matches", 0, "matches per player (1-100)")
		f.StringVar(&flagRateLimiter, "rate-limiter", "", "bucket, window or none")
		f.BoolVar(&flagDedupe, "dedupe", false, "skip matches already fetched this run (bloom filter, may rarely skip an unseen match)")
		f.BoolVar(&flagSkipKeyCheck, "skip-key-check", false, "do not probe the API key before collecting")
		f.StringVar(&flagPlatform, "platform", "", "platform region (e.g. na1, euw1)")
		f.StringVar(&flagRouting, "routing", "", "routing region (e.g. americas, europe)")
	}
}

// applyWalkFlags copies explicitly set walk flags onto cfg
func applyWalkFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Lookup("tiers") == nil {
		return
	}
	if f.Changed("tiers") {
		cfg.Tiers = upperAll(flagTiers)
	}
	if f.Changed("divisions") {
		cfg.Divisions = upperAll(flagDivisions)
	}
	if f.Changed("players") {
		cfg.PlayersPerBracket = flagPlayers
	}
	if f.Changed("matches") {
		cfg.MatchesPerPlayer = flagMatches
	}
	if f.Changed("rate-limiter") {
		cfg.RateLimiter = flagRateLimiter
	}
	if f.Changed("dedupe") {
		cfg.DedupeMatches = flagDedupe
	}
	if f.Changed("skip-key-check") {
		cfg.ValidateKey = !flagSkipKeyCheck
	}
	if f.Changed("platform") {
		cfg.PlatformRegion = flagPlatform
	}
	if f.Changed("routing") {
		cfg.RoutingRegion = flagRouting
	}
}

// upperAll trims and upper-cases list flags the same way META_TIERS is read
func upperAll(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, strings.ToUpper(v))
		}
	}
	return out
}

func runCollect(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	ctx := pipeline.SetupSignalHandler(cmd.Context(), nil)
	_, err = p.Collect(ctx)
	return err
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	_, err = p.Analyze(cmd.Context())
	return err
}

func runAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		return err
	}

	ctx := pipeline.SetupSignalHandler(cmd.Context(), nil)
	return p.Run(ctx)
}

func runValidateKey(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		return config.ErrMissingAPIKey
	}

	validator := riot.NewKeyValidator(cfg.PlatformRegion, riot.WithTimeout(cfg.HTTPTimeout))
	masked := riot.MaskAPIKey(cfg.APIKey)
	if err := validator.CheckKey(cmd.Context(), cfg.APIKey); err != nil {
		if errors.Is(err, riot.ErrInvalidAPIKey) {
			return fmt.Errorf("key %s: %w", masked, riot.ErrInvalidAPIKey)
		}
		return fmt.Errorf("could not validate key %s: %w", masked, err)
	}

	fmt.Printf("Key %s is valid for %s\n", masked, cfg.PlatformRegion)
	return nil
}
