package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hintcheck/internal/hint"
)

var registryFormat string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the class registry",
}

var registryShowCmd = &cobra.Command{
	Use:   "show",
	Short: "List every registered name",
	Long: `List the classes and aliases the hint parser can resolve, including
builtins and any names loaded from declaration files.

Examples:
  hintcheck registry show
  hintcheck registry show --format=human`,
	Args: cobra.NoArgs,
	RunE: runRegistryShow,
}

var registryLoadCmd = &cobra.Command{
	Use:   "load <file>",
	Short: "Validate a declaration file",
	Long: `Parse a TOML or YAML declaration file and report whether every class
and alias in it registers cleanly against the builtin registry.

Examples:
  hintcheck registry load types.toml
  hintcheck registry load types.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runRegistryLoad,
}

func init() {
	registryShowCmd.Flags().StringVar(&registryFormat, "format", "json", "Output format (json, human)")
	registryCmd.AddCommand(registryShowCmd)
	registryCmd.AddCommand(registryLoadCmd)
	rootCmd.AddCommand(registryCmd)
}

func runRegistryShow(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()
	e := mustGetEngine(logger)

	names := e.registry.Names()
	if registryFormat == "human" {
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"names": names})
}

func runRegistryLoad(cmd *cobra.Command, args []string) error {
	reg := hint.NewRegistry()
	if err := reg.LoadDecls(args[0]); err != nil {
		return err
	}
	fmt.Printf("%s: ok, %d name(s) registered\n", args[0], len(reg.Names()))
	return nil
}
