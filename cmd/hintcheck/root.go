package main

import (
	"os"

	"github.com/spf13/cobra"

	"hintcheck/internal/conf"
	"hintcheck/internal/config"
	"hintcheck/internal/version"
)

var (
	// rootFlag is the CLI --root flag value
	rootFlag string
	// strategyFlag is the CLI --strategy flag value
	strategyFlag string
)

var rootCmd = &cobra.Command{
	Use:   "hintcheck",
	Short: "hintcheck - runtime type-hint checker",
	Long: `hintcheck compiles type hints into fast runtime checkers. Hints are
sanitized through a reduction pipeline, lowered to a single boolean
expression per hint, and memoized so every equivalent hint and
configuration pair shares one compiled checker.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("hintcheck version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", ".",
		"Project root holding the .hintcheck directory")
	rootCmd.PersistentFlags().StringVar(&strategyFlag, "strategy", "",
		"Checking strategy: O0 (shallow) or O1 (sampled, default)")
}

// resolveStrategy determines the effective strategy from CLI flag, env var,
// and config. Precedence: CLI flag > HINTCHECK_STRATEGY env var > config.json
func resolveStrategy(cfg *config.Config) conf.Strategy {
	if strategyFlag != "" {
		return conf.Strategy(strategyFlag)
	}
	if env := os.Getenv("HINTCHECK_STRATEGY"); env != "" {
		return conf.Strategy(env)
	}
	if cfg != nil && cfg.Checking.Strategy != "" {
		return conf.Strategy(cfg.Checking.Strategy)
	}
	return conf.StrategySampled
}
