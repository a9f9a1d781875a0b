package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hintcheck/internal/check"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/pith"
)

var checkFormat string

var checkCmd = &cobra.Command{
	Use:   "check <hint> [value...]",
	Short: "Check JSON values against a type hint",
	Long: `Compile a type hint into a checker and run it over JSON values.

Values are given as JSON literals on the command line, or piped one per
line on stdin when no value arguments are present.

Examples:
  hintcheck check 'list[int]' '[1, 2, 3]' '[1, "a"]'
  hintcheck check 'int | None' 'null'
  hintcheck check 'dict[str, list[int]]' --format=human < values.jsonl`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkFormat, "format", "json", "Output format (json, human)")
	rootCmd.AddCommand(checkCmd)
}

type checkResult struct {
	Value     string `json:"value"`
	Satisfied bool   `json:"satisfied"`
	Violation string `json:"violation,omitempty"`
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := newCommandLogger()
	e := mustGetEngine(logger)

	h, err := hint.Parse(args[0], e.registry)
	if err != nil {
		return err
	}
	checker, err := e.factory.Checker(h, &check.Request{Conf: e.conf})
	if err != nil {
		return err
	}

	values := args[1:]
	if len(values) == 0 {
		values, err = readStdinValues()
		if err != nil {
			return err
		}
	}

	var results []checkResult
	failed := false
	for _, raw := range values {
		v, err := decodePith(raw)
		if err != nil {
			return fmt.Errorf("invalid JSON value %q: %w", raw, err)
		}
		ok, err := checker.Check(v)
		if err != nil {
			return err
		}
		res := checkResult{Value: pith.Repr(v), Satisfied: ok}
		if !ok {
			failed = true
			if vErr := checker.Die(v); vErr != nil {
				res.Violation = vErr.Error()
			}
		}
		results = append(results, res)
	}

	if err := printCheckResults(args[0], results); err != nil {
		return err
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func printCheckResults(hintText string, results []checkResult) error {
	if checkFormat == "human" {
		for _, r := range results {
			mark := "ok"
			if !r.Satisfied {
				mark = "VIOLATION"
			}
			fmt.Printf("%-9s  %s\n", mark, r.Value)
			if r.Violation != "" {
				fmt.Printf("           %s\n", r.Violation)
			}
		}
		return nil
	}
	out := map[string]any{
		"hint":    hintText,
		"results": results,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func readStdinValues() ([]string, error) {
	data, err := readAllStdin()
	if err != nil {
		return nil, err
	}
	var values []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			values = append(values, line)
		}
	}
	return values, nil
}

func readAllStdin() ([]byte, error) {
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return nil, errors.New(errors.ParseFailed, "no values given and stdin is a terminal")
	}
	return io.ReadAll(os.Stdin)
}

// decodePith converts one JSON literal into the checked value model:
// integers as int64, floats as float64, arrays as []any, objects as
// map[string]any, null as nil.
func decodePith(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizePith(v), nil
}

func normalizePith(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		f, _ := x.Float64()
		return f
	case []any:
		for i := range x {
			x[i] = normalizePith(x[i])
		}
		return x
	case map[string]any:
		for k := range x {
			x[k] = normalizePith(x[k])
		}
		return x
	}
	return v
}
