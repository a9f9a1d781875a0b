package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hintcheck/internal/storage"
)

var cacheFormat string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the persistent code cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show code cache statistics",
	Long: `Show how many generated checkers are persisted and how much space
their compressed code occupies.

Examples:
  hintcheck cache stats
  hintcheck cache stats --format=human`,
	Args: cobra.NoArgs,
	RunE: runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every persisted checker",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheStatsCmd.Flags().StringVar(&cacheFormat, "format", "json", "Output format (json, human)")
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func openCodeCache() (*storage.DB, *storage.CodeCache, error) {
	logger := newCommandLogger()
	db, err := storage.Open(rootFlag, logger)
	if err != nil {
		return nil, nil, err
	}
	cc, err := storage.NewCodeCache(db)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, cc, nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	db, cc, err := openCodeCache()
	if err != nil {
		return err
	}
	defer db.Close()
	defer cc.Close()

	stats, err := cc.Stats()
	if err != nil {
		return err
	}

	if cacheFormat == "human" {
		fmt.Printf("entries:        %d\n", stats.Entries)
		fmt.Printf("compressed:     %d bytes\n", stats.TotalBytes)
		fmt.Printf("configurations: %d\n", stats.ConfDigests)
		fmt.Printf("database:       %s\n", db.Path())
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"entries":        stats.Entries,
		"compressedSize": stats.TotalBytes,
		"configurations": stats.ConfDigests,
		"database":       db.Path(),
	})
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	db, cc, err := openCodeCache()
	if err != nil {
		return err
	}
	defer db.Close()
	defer cc.Close()

	n, err := cc.Clear()
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d cached checker(s)\n", n)
	return nil
}
