// Package sane defines the sanified-hint value: the canonical, immutable,
// digestable record exchanged between the reducer and the code generator.
package sane

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"hintcheck/internal/hint"
)

// Sane pairs a canonical hint with the context accumulated while reducing
// it: the recursion-guard set of ancestor hint keys and the active
// type-variable table. Never mutated after construction; derive variations
// with Permute.
type Sane struct {
	Hint hint.Hint

	recursable map[string]bool
	typeVars   *TypeVars
	digest     string
}

// Ignorable is the distinguished sanified value for hints that impose no
// constraint. Always compared by identity, never by equality: value
// equality against an Any-like hint would be ambiguous.
var Ignorable = &Sane{digest: "ignorable"}

// New wraps a canonical hint with empty context.
func New(h hint.Hint) *Sane {
	s := &Sane{Hint: h}
	s.digest = s.computeDigest()
	return s
}

// Overrides names the fields Permute may replace; zero-valued fields are
// copied from the receiver.
type Overrides struct {
	Hint       hint.Hint
	TypeVars   *TypeVars
	Recursable map[string]bool
}

// Permute builds a new value copying unspecified fields from s.
func (s *Sane) Permute(over Overrides) *Sane {
	out := &Sane{
		Hint:       s.Hint,
		recursable: s.recursable,
		typeVars:   s.typeVars,
	}
	if over.Hint != nil {
		out.Hint = over.Hint
	}
	if over.TypeVars != nil {
		out.typeVars = over.TypeVars
	}
	if over.Recursable != nil {
		out.recursable = over.Recursable
	}
	out.digest = out.computeDigest()
	return out
}

// TypeVarMap returns the active type-variable table (possibly nil).
func (s *Sane) TypeVarMap() *TypeVars { return s.typeVars }

// Recursable returns the recursion-guard set of ancestor hint keys. Callers
// must treat the returned map as read-only.
func (s *Sane) Recursable() map[string]bool { return s.recursable }

// Digest returns the structural digest over (hint, recursion guard,
// typevar table). Two values with equal digests are equal.
func (s *Sane) Digest() string { return s.digest }

// Equal reports structural equality. The Ignorable singleton is only ever
// equal to itself.
func Equal(a, b *Sane) bool {
	if a == Ignorable || b == Ignorable {
		return a == b
	}
	if a == nil || b == nil {
		return a == b
	}
	return a.digest == b.digest
}

func (s *Sane) computeDigest() string {
	var b strings.Builder
	key, err := hint.Key(s.Hint)
	if err != nil {
		// Unkeyable hints digest by identity. They are exempt from
		// memoization anyway; the digest only needs to be stable for the
		// lifetime of the hint object.
		key = fmt.Sprintf("anon:%p", s.Hint)
	}
	b.WriteString(key)
	if len(s.recursable) > 0 {
		guards := make([]string, 0, len(s.recursable))
		for g := range s.recursable {
			guards = append(guards, g)
		}
		sort.Strings(guards)
		b.WriteString("|guard:")
		b.WriteString(strings.Join(guards, ","))
	}
	if s.typeVars.Len() > 0 {
		b.WriteString("|tv:")
		b.WriteString(s.typeVars.canonical())
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// MakeRecursable returns a sanified hint whose recursion guard is the
// parent's unioned with h (keyed by its pre-reduction form), and whose hint
// field is nonrecursableForm (defaulting to h itself). Unkeyable hints are
// not recursable: they are wrapped without extending the guard.
func MakeRecursable(h hint.Hint, parent *Sane, nonrecursableForm hint.Hint) *Sane {
	if nonrecursableForm == nil {
		nonrecursableForm = h
	}
	base := parent
	if base == nil || base == Ignorable {
		base = New(nonrecursableForm)
	} else {
		base = base.Permute(Overrides{Hint: nonrecursableForm})
	}
	key, err := hint.Key(h)
	if err != nil {
		return base
	}
	guard := make(map[string]bool, len(base.recursable)+1)
	for g := range base.recursable {
		guard[g] = true
	}
	guard[key] = true
	return base.Permute(Overrides{Recursable: guard})
}

// IsRecursive reports whether h is already on the parent's recursion guard.
// A nil parent is the root case and never recursive; a hint that fails to
// key is treated as not recursive rather than propagating the failure.
func IsRecursive(h hint.Hint, parent *Sane) bool {
	if parent == nil || parent == Ignorable {
		return false
	}
	key, err := hint.Key(h)
	if err != nil {
		return false
	}
	return parent.recursable[key]
}
