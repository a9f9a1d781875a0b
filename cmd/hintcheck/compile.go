package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"hintcheck/internal/codegen"
	"hintcheck/internal/hint"
	"hintcheck/internal/reduce"
	"hintcheck/internal/sane"
	"hintcheck/internal/storage"
)

var (
	compileFormat  string
	compilePersist bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <hint>",
	Short: "Show the code generated for a type hint",
	Long: `Sanitize a hint and print the boolean expression the code generator
produces for it, together with the wrapper scope names the expression
closes over.

Examples:
  hintcheck compile 'list[int]'
  hintcheck compile 'dict[str, int | None]' --format=human
  hintcheck compile 'tuple[int, str]' --persist`,
	Args: cobra.ExactArgs(1),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVar(&compileFormat, "format", "json", "Output format (json, human)")
	compileCmd.Flags().BoolVar(&compilePersist, "persist", false, "Store the generated code in the persistent cache")
	rootCmd.AddCommand(compileCmd)
}

type compileOutput struct {
	Hint      string   `json:"hint"`
	Ignorable bool     `json:"ignorable"`
	Code      string   `json:"code,omitempty"`
	ScopeKeys []string `json:"scopeKeys,omitempty"`
	RelRefs   []string `json:"relRefs,omitempty"`
}

func runCompile(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()
	e := mustGetEngine(logger)

	h, err := hint.Parse(args[0], e.registry)
	if err != nil {
		return err
	}

	reducer := reduce.New(e.registry, nil, logger)
	root, err := reducer.Root(h, &reduce.Context{
		Conf:         e.conf,
		DurableScope: true,
	})
	if err != nil {
		return err
	}

	out := compileOutput{Hint: args[0]}
	if root == sane.Ignorable {
		out.Ignorable = true
		return printCompileOutput(out)
	}

	gen := codegen.NewGenerator(codegen.Options{
		Registry: e.registry,
		Reducer:  reducer,
		Logger:   logger,
	})
	res, err := gen.Expr(root, e.conf)
	if err != nil {
		return err
	}

	out.Code = res.Code
	out.RelRefs = res.RelRefNames
	for name := range res.Scope {
		out.ScopeKeys = append(out.ScopeKeys, name)
	}
	sort.Strings(out.ScopeKeys)

	if compilePersist {
		if err := persistCompile(args[0], e, out); err != nil {
			return err
		}
	}
	return printCompileOutput(out)
}

func persistCompile(hintText string, e *engine, out compileOutput) error {
	h, err := hint.Parse(hintText, e.registry)
	if err != nil {
		return err
	}
	key, err := hint.Key(h)
	if err != nil {
		return fmt.Errorf("hint is unkeyable, refusing to persist: %w", err)
	}

	db, err := storage.Open(rootFlag, e.logger)
	if err != nil {
		return err
	}
	defer db.Close()

	cc, err := storage.NewCodeCache(db)
	if err != nil {
		return err
	}
	defer cc.Close()

	return cc.Set(storage.CacheKey(key, e.conf.Digest()), &storage.CodeEntry{
		HintText:   hintText,
		ConfDigest: e.conf.Digest(),
		Code:       out.Code,
		ScopeKeys:  out.ScopeKeys,
		RelRefs:    out.RelRefs,
	})
}

func printCompileOutput(out compileOutput) error {
	if compileFormat == "human" {
		if out.Ignorable {
			fmt.Printf("%s is ignorable: every value satisfies it\n", out.Hint)
			return nil
		}
		fmt.Printf("hint:  %s\n", out.Hint)
		fmt.Printf("code:  %s\n", out.Code)
		if len(out.ScopeKeys) > 0 {
			fmt.Printf("scope: %v\n", out.ScopeKeys)
		}
		if len(out.RelRefs) > 0 {
			fmt.Printf("unresolved relative refs: %v\n", out.RelRefs)
		}
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
