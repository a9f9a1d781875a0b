// Package conf defines the immutable semantic configuration threaded
// through sanitization and code generation. A Conf is part of every memo
// key, so it carries a precomputed digest and is never mutated after New.
package conf

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"hintcheck/internal/hint"
)

// Strategy selects how deeply containers are checked.
type Strategy string

const (
	// StrategyShallow checks containers by isinstance only.
	StrategyShallow Strategy = "O0"
	// StrategySampled additionally deep-checks one exemplar item per
	// container. The default.
	StrategySampled Strategy = "O1"
)

// Conf bundles the feature flags and the user hint-override table.
type Conf struct {
	Strategy       Strategy
	WarnDeprecated bool
	overrides      map[string]Override
	digest         string
}

// Override replaces one hint with another during sanitization.
type Override struct {
	From hint.Hint
	To   hint.Hint
}

// Options configures New.
type Options struct {
	Strategy       Strategy
	WarnDeprecated bool
	Overrides      []Override
}

// Default is the zero-override sampled-strategy configuration.
var Default = New(Options{})

// New builds a configuration. Overrides whose From hint is unkeyable are
// dropped: an unkeyable hint can never match the override-table probe, so
// keeping it would only bloat the digest.
func New(opts Options) *Conf {
	c := &Conf{
		Strategy:       opts.Strategy,
		WarnDeprecated: opts.WarnDeprecated,
		overrides:      make(map[string]Override, len(opts.Overrides)),
	}
	if c.Strategy == "" {
		c.Strategy = StrategySampled
	}
	for _, ov := range opts.Overrides {
		key, err := hint.Key(ov.From)
		if err != nil {
			continue
		}
		c.overrides[key] = ov
	}
	c.digest = c.computeDigest()
	return c
}

// Override looks up the replacement for a hint key, if any.
func (c *Conf) Override(key string) (hint.Hint, bool) {
	ov, ok := c.overrides[key]
	if !ok {
		return nil, false
	}
	return ov.To, true
}

// NumOverrides returns the size of the override table.
func (c *Conf) NumOverrides() int { return len(c.overrides) }

// Digest returns a stable content digest of the configuration, used in
// memoization and persistent-cache keys.
func (c *Conf) Digest() string { return c.digest }

func (c *Conf) computeDigest() string {
	keys := make([]string, 0, len(c.overrides))
	for k := range c.overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "strategy=%s;warn=%t", c.Strategy, c.WarnDeprecated)
	for _, k := range keys {
		fmt.Fprintf(&b, ";%s=>%s", k, c.overrides[k].To)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
