// Package eval compiles a generated check expression and its wrapper scope
// into a callable predicate. The expression language is the internal
// contract between the code generator and this assembly stage: boolean
// conjunction and disjunction, equality, indexing, calls, integer
// remainder, and parenthesized assignment expressions, over identifiers
// resolved first against per-invocation locals and then the wrapper scope.
package eval

import (
	"strconv"

	"hintcheck/internal/codegen"
	"hintcheck/internal/errors"
	"hintcheck/internal/hint"
	"hintcheck/internal/pith"
)

// Program is a compiled check expression bound to its scope.
type Program struct {
	root    thunk
	scope   map[string]any
	randGen func() int64
}

// Compile parses and closure-compiles a generated expression against its
// wrapper scope.
func Compile(code string, scope map[string]any) (*Program, error) {
	p := &parser{lex: lexer{src: code}}
	p.next()
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tEOF {
		return nil, errors.New(errors.InternalError,
			"generated code has trailing %q", p.tok.text)
	}
	prog := &Program{root: root, scope: scope}
	if gen, ok := scope[codegen.RandKey].(func() int64); ok {
		prog.randGen = gen
	}
	return prog, nil
}

// Check evaluates the program against one pith. The shared random integer,
// if the code samples sequences, is drawn once per invocation.
func (p *Program) Check(v any) (bool, error) {
	env := &env{
		scope:  p.scope,
		locals: map[string]any{codegen.RootPith: v},
	}
	if p.randGen != nil {
		env.locals[codegen.RandLocal] = p.randGen()
	}
	out, err := p.root(env)
	if err != nil {
		return false, err
	}
	b, ok := out.(bool)
	if !ok {
		return false, errors.New(errors.InternalError,
			"generated code evaluated to %T, want bool", out)
	}
	return b, nil
}

type env struct {
	scope  map[string]any
	locals map[string]any
}

func (e *env) lookup(name string) (any, bool) {
	if v, ok := e.locals[name]; ok {
		return v, true
	}
	v, ok := e.scope[name]
	return v, ok
}

type thunk func(*env) (any, error)

// Lexing.

type tokenKind int

const (
	tEOF tokenKind = iota
	tIdent
	tInt
	tLParen
	tRParen
	tLBrack
	tRBrack
	tComma
	tWalrus // :=
	tEq     // ==
	tNe     // !=
	tAnd    // &&
	tOr     // ||
	tMod    // %
)

type tok struct {
	kind tokenKind
	text string
}

type lexer struct {
	src string
	pos int
}

func (l *lexer) lex() (tok, error) {
	for l.pos < len(l.src) {
		switch l.src[l.pos] {
		case ' ', '\t', '\n', '\r':
			l.pos++
			continue
		}
		break
	}
	if l.pos >= len(l.src) {
		return tok{kind: tEOF}, nil
	}
	two := ""
	if l.pos+2 <= len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case ":=":
		l.pos += 2
		return tok{kind: tWalrus, text: two}, nil
	case "==":
		l.pos += 2
		return tok{kind: tEq, text: two}, nil
	case "!=":
		l.pos += 2
		return tok{kind: tNe, text: two}, nil
	case "&&":
		l.pos += 2
		return tok{kind: tAnd, text: two}, nil
	case "||":
		l.pos += 2
		return tok{kind: tOr, text: two}, nil
	}
	c := l.src[l.pos]
	switch c {
	case '(':
		l.pos++
		return tok{kind: tLParen, text: "("}, nil
	case ')':
		l.pos++
		return tok{kind: tRParen, text: ")"}, nil
	case '[':
		l.pos++
		return tok{kind: tLBrack, text: "["}, nil
	case ']':
		l.pos++
		return tok{kind: tRBrack, text: "]"}, nil
	case ',':
		l.pos++
		return tok{kind: tComma, text: ","}, nil
	case '%':
		l.pos++
		return tok{kind: tMod, text: "%"}, nil
	}
	if c >= '0' && c <= '9' {
		end := l.pos
		for end < len(l.src) && l.src[end] >= '0' && l.src[end] <= '9' {
			end++
		}
		t := tok{kind: tInt, text: l.src[l.pos:end]}
		l.pos = end
		return t, nil
	}
	if isIdentByte(c) {
		end := l.pos
		for end < len(l.src) && (isIdentByte(l.src[end]) || l.src[end] >= '0' && l.src[end] <= '9') {
			end++
		}
		t := tok{kind: tIdent, text: l.src[l.pos:end]}
		l.pos = end
		return t, nil
	}
	return tok{}, errors.New(errors.InternalError,
		"generated code has unexpected byte %q at offset %d", string(c), l.pos)
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// Parsing and closure compilation.

type parser struct {
	lex lexer
	tok tok
	err error
}

func (p *parser) next() {
	if p.err == nil {
		p.tok, p.err = p.lex.lex()
	}
}

func (p *parser) expect(kind tokenKind, what string) error {
	if p.err != nil {
		return p.err
	}
	if p.tok.kind != kind {
		return errors.New(errors.InternalError,
			"generated code: expected %s, found %q", what, p.tok.text)
	}
	p.next()
	return p.err
}

func (p *parser) parseOr() (thunk, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(e *env) (any, error) {
			v, err := boolOf(l, e)
			if err != nil || v {
				return v, err
			}
			return boolOf(r, e)
		}
	}
	return left, nil
}

func (p *parser) parseAnd() (thunk, error) {
	left, err := p.parseCmp()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tAnd {
		p.next()
		right, err := p.parseCmp()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(e *env) (any, error) {
			v, err := boolOf(l, e)
			if err != nil || !v {
				return v, err
			}
			return boolOf(r, e)
		}
	}
	return left, nil
}

func (p *parser) parseCmp() (thunk, error) {
	left, err := p.parseMod()
	if err != nil {
		return nil, err
	}
	if p.tok.kind == tEq || p.tok.kind == tNe {
		negate := p.tok.kind == tNe
		p.next()
		right, err := p.parseMod()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		return func(e *env) (any, error) {
			lv, err := l(e)
			if err != nil {
				return nil, err
			}
			rv, err := r(e)
			if err != nil {
				return nil, err
			}
			return pith.Equal(lv, rv) != negate, nil
		}, nil
	}
	return left, nil
}

func (p *parser) parseMod() (thunk, error) {
	left, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tMod {
		p.next()
		right, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(e *env) (any, error) {
			lv, err := intOf(l, e)
			if err != nil {
				return nil, err
			}
			rv, err := intOf(r, e)
			if err != nil {
				return nil, err
			}
			if rv == 0 {
				return nil, errors.New(errors.InternalError, "generated code divided by zero")
			}
			return lv % rv, nil
		}
	}
	return left, nil
}

func (p *parser) parsePostfix() (thunk, error) {
	prim, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tLBrack {
		p.next()
		idx, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tRBrack, "']'"); err != nil {
			return nil, err
		}
		base, i := prim, idx
		prim = func(e *env) (any, error) {
			bv, err := base(e)
			if err != nil {
				return nil, err
			}
			iv, err := i(e)
			if err != nil {
				return nil, err
			}
			// Dicts index by key; everything else by integer position.
			switch bv.(type) {
			case map[string]any, map[any]any:
				item, ok := pith.Lookup(bv, iv)
				if !ok {
					return nil, errors.New(errors.InternalError,
						"generated code looked up missing key %s in %s",
						pith.Repr(iv), pith.Repr(bv))
				}
				return item, nil
			}
			n64, ok := iv.(int64)
			if !ok {
				return nil, errors.New(errors.InternalError,
					"generated code: integer operand evaluated to %T", iv)
			}
			n := pith.Len(bv)
			if n < 0 || n64 < 0 || n64 >= int64(n) {
				return nil, errors.New(errors.InternalError,
					"generated code indexed %s out of range", pith.Repr(bv))
			}
			return pith.Index(bv, int(n64)), nil
		}
	}
	return prim, nil
}

func (p *parser) parsePrimary() (thunk, error) {
	switch p.tok.kind {
	case tInt:
		n, err := strconv.ParseInt(p.tok.text, 10, 64)
		if err != nil {
			return nil, errors.Wrap(errors.InternalError, err, "generated code integer %q", p.tok.text)
		}
		p.next()
		return func(*env) (any, error) { return n, nil }, nil

	case tIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind == tLParen {
			return p.parseCall(name)
		}
		return func(e *env) (any, error) {
			v, ok := e.lookup(name)
			if !ok {
				return nil, errors.New(errors.InternalError,
					"generated code references unknown name %q", name)
			}
			return v, nil
		}, nil

	case tLParen:
		p.next()
		// A parenthesized expression or an assignment expression; the
		// walrus form is IDENT ':=' expr.
		if p.tok.kind == tIdent {
			name := p.tok.text
			save := *p
			p.next()
			if p.tok.kind == tWalrus {
				p.next()
				val, err := p.parseOr()
				if err != nil {
					return nil, err
				}
				if err := p.expect(tRParen, "')'"); err != nil {
					return nil, err
				}
				return func(e *env) (any, error) {
					v, err := val(e)
					if err != nil {
						return nil, err
					}
					e.locals[name] = v
					return v, nil
				}, nil
			}
			*p = save
		}
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, errors.New(errors.InternalError,
		"generated code: expected expression, found %q", p.tok.text)
}

func (p *parser) parseCall(name string) (thunk, error) {
	if err := p.expect(tLParen, "'('"); err != nil {
		return nil, err
	}
	var args []thunk
	if p.tok.kind != tRParen {
		for {
			a, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.tok.kind != tComma {
				break
			}
			p.next()
		}
	}
	if err := p.expect(tRParen, "')'"); err != nil {
		return nil, err
	}
	return compileCall(name, args)
}

func compileCall(name string, args []thunk) (thunk, error) {
	arity := func(n int) error {
		if len(args) != n {
			return errors.New(errors.InternalError,
				"generated code calls %s with %d arguments, want %d", name, len(args), n)
		}
		return nil
	}
	switch name {
	case "isinstance":
		if err := arity(2); err != nil {
			return nil, err
		}
		return func(e *env) (any, error) {
			v, err := args[0](e)
			if err != nil {
				return nil, err
			}
			cls, err := args[1](e)
			if err != nil {
				return nil, err
			}
			return instanceOf(v, cls)
		}, nil
	case "issubclass":
		if err := arity(2); err != nil {
			return nil, err
		}
		return func(e *env) (any, error) {
			v, err := args[0](e)
			if err != nil {
				return nil, err
			}
			target, err := args[1](e)
			if err != nil {
				return nil, err
			}
			return subclassOf(v, target)
		}, nil
	case "len":
		if err := arity(1); err != nil {
			return nil, err
		}
		return func(e *env) (any, error) {
			v, err := args[0](e)
			if err != nil {
				return nil, err
			}
			n := pith.Len(v)
			if n < 0 {
				return nil, errors.New(errors.InternalError,
					"generated code took len of %s", pith.Repr(v))
			}
			return int64(n), nil
		}, nil
	case "first":
		if err := arity(1); err != nil {
			return nil, err
		}
		return accessor(args[0], pith.First, "first"), nil
	case "firstkey":
		if err := arity(1); err != nil {
			return nil, err
		}
		return accessor(args[0], pith.FirstKey, "firstkey"), nil
	case "firstval":
		if err := arity(1); err != nil {
			return nil, err
		}
		return accessor(args[0], pith.FirstValue, "firstval"), nil
	}
	// Anything else is a scope-supplied predicate (validator locals).
	if err := arity(1); err != nil {
		return nil, err
	}
	return func(e *env) (any, error) {
		fn, ok := e.lookup(name)
		if !ok {
			return nil, errors.New(errors.InternalError,
				"generated code calls unknown function %q", name)
		}
		v, err := args[0](e)
		if err != nil {
			return nil, err
		}
		switch f := fn.(type) {
		case func(any) bool:
			return f(v), nil
		case func(any) (bool, error):
			return f(v)
		case func(any) any:
			return f(v), nil
		}
		return nil, errors.New(errors.InternalError,
			"generated code calls %q of uncallable type %T", name, fn)
	}, nil
}

func accessor(arg thunk, get func(any) (any, bool), name string) thunk {
	return func(e *env) (any, error) {
		v, err := arg(e)
		if err != nil {
			return nil, err
		}
		item, ok := get(v)
		if !ok {
			return nil, errors.New(errors.InternalError,
				"generated code called %s on %s", name, pith.Repr(v))
		}
		return item, nil
	}
}

func instanceOf(v, cls any) (bool, error) {
	switch c := cls.(type) {
	case *hint.Class:
		return c.InstanceOf(v), nil
	case hint.ClassTuple:
		return c.InstanceOf(v), nil
	case *hint.RefProxy:
		return c.InstanceOf(v), nil
	}
	return false, errors.New(errors.InternalError,
		"isinstance against non-class %T", cls)
}

func subclassOf(v, target any) (bool, error) {
	var cls *hint.Class
	switch x := v.(type) {
	case *hint.Class:
		cls = x
	case *hint.RefProxy:
		resolved, err := x.Resolve()
		if err != nil {
			return false, nil
		}
		cls = resolved
	default:
		return false, errors.New(errors.InternalError,
			"issubclass of non-class %T", v)
	}
	switch t := target.(type) {
	case *hint.Class:
		return cls.IsSubclassOf(t), nil
	case hint.ClassTuple:
		for _, member := range t {
			if cls.IsSubclassOf(member) {
				return true, nil
			}
		}
		return false, nil
	case *hint.RefProxy:
		resolved, err := t.Resolve()
		if err != nil {
			return false, err
		}
		return cls.IsSubclassOf(resolved), nil
	}
	return false, errors.New(errors.InternalError,
		"issubclass against non-class %T", target)
}

func boolOf(t thunk, e *env) (bool, error) {
	v, err := t(e)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.New(errors.InternalError,
			"generated code: boolean operand evaluated to %T", v)
	}
	return b, nil
}

func intOf(t thunk, e *env) (int64, error) {
	v, err := t(e)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, errors.New(errors.InternalError,
			"generated code: integer operand evaluated to %T", v)
	}
	return n, nil
}
