package hint

import (
	"strconv"
	"strings"
	"unicode"

	"hintcheck/internal/errors"
)

// Parse converts a textual hint expression into a hint value. Names resolve
// against the supplied registry; unknown names become forward references.
//
// Supported syntax:
//
//	int | str                  list[str]       tuple[int, str]
//	tuple[()]                  tuple[int, ...] dict[str, int]
//	Optional[int]              Union[int, str] Literal[1, "a", True, None]
//	type[int]                  Annotated[int, positive]
//	"SomeClass"                pkg.SomeClass
func Parse(src string, reg *Registry) (Hint, error) {
	p := &parser{lex: newLexer(src), reg: reg}
	p.next()
	h, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, p.errorf("unexpected %q after hint", p.tok.text)
	}
	return h, nil
}

type tokKind int

const (
	tokEOF tokKind = iota
	tokIdent
	tokString
	tokInt
	tokLBrack
	tokRBrack
	tokLParen
	tokRParen
	tokComma
	tokPipe
	tokEllipsis
)

type token struct {
	kind tokKind
	text string
}

type lexer struct {
	src string
	pos int
}

func newLexer(src string) *lexer { return &lexer{src: src} }

func (l *lexer) lex() (token, error) {
	for l.pos < len(l.src) && l.src[l.pos] == ' ' {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}, nil
	}
	c := l.src[l.pos]
	switch {
	case c == '[':
		l.pos++
		return token{kind: tokLBrack, text: "["}, nil
	case c == ']':
		l.pos++
		return token{kind: tokRBrack, text: "]"}, nil
	case c == '(':
		l.pos++
		return token{kind: tokLParen, text: "("}, nil
	case c == ')':
		l.pos++
		return token{kind: tokRParen, text: ")"}, nil
	case c == ',':
		l.pos++
		return token{kind: tokComma, text: ","}, nil
	case c == '|':
		l.pos++
		return token{kind: tokPipe, text: "|"}, nil
	case strings.HasPrefix(l.src[l.pos:], "..."):
		l.pos += 3
		return token{kind: tokEllipsis, text: "..."}, nil
	case c == '"' || c == '\'':
		quote := c
		end := l.pos + 1
		for end < len(l.src) && l.src[end] != quote {
			end++
		}
		if end >= len(l.src) {
			return token{}, errors.New(errors.ParseFailed, "unterminated string at offset %d", l.pos)
		}
		text := l.src[l.pos+1 : end]
		l.pos = end + 1
		return token{kind: tokString, text: text}, nil
	case c == '-' || unicode.IsDigit(rune(c)):
		end := l.pos + 1
		for end < len(l.src) && unicode.IsDigit(rune(l.src[end])) {
			end++
		}
		text := l.src[l.pos:end]
		l.pos = end
		return token{kind: tokInt, text: text}, nil
	case isIdentStart(rune(c)):
		end := l.pos + 1
		for end < len(l.src) && isIdentRune(rune(l.src[end])) {
			end++
		}
		text := l.src[l.pos:end]
		l.pos = end
		return token{kind: tokIdent, text: text}, nil
	}
	return token{}, errors.New(errors.ParseFailed, "unexpected character %q at offset %d", string(c), l.pos)
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '.'
}

type parser struct {
	lex *lexer
	reg *Registry
	tok token
	err error
}

func (p *parser) next() {
	if p.err != nil {
		return
	}
	p.tok, p.err = p.lex.lex()
}

func (p *parser) errorf(format string, args ...any) error {
	if p.err != nil {
		return p.err
	}
	return errors.New(errors.ParseFailed, format, args...)
}

func (p *parser) expect(kind tokKind, what string) error {
	if p.err != nil {
		return p.err
	}
	if p.tok.kind != kind {
		return p.errorf("expected %s, found %q", what, p.tok.text)
	}
	p.next()
	return p.err
}

func (p *parser) parseUnion() (Hint, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	members := []Hint{first}
	for p.tok.kind == tokPipe {
		p.next()
		m, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	if len(members) == 1 {
		return first, nil
	}
	return UnionOf(members...), nil
}

func (p *parser) parseAtom() (Hint, error) {
	switch p.tok.kind {
	case tokString:
		name := p.tok.text
		p.next()
		return &Ref{Name: name}, p.err
	case tokIdent:
		name := p.tok.text
		p.next()
		if p.tok.kind == tokLBrack {
			return p.parseSubscript(name)
		}
		return p.resolveBare(name)
	}
	return nil, p.errorf("expected hint, found %q", p.tok.text)
}

func (p *parser) resolveBare(name string) (Hint, error) {
	switch name {
	case "None":
		return NoneHint, nil
	case "Self":
		return SelfHint, nil
	}
	if h, ok := p.reg.Lookup(name); ok {
		return h, nil
	}
	return &Ref{Name: name}, nil
}

func (p *parser) parseSubscript(head string) (Hint, error) {
	if err := p.expect(tokLBrack, "'['"); err != nil {
		return nil, err
	}
	switch head {
	case "list", "set", "frozenset", "Sequence", "Iterable":
		elem, err := p.parseOneArg(head)
		if err != nil {
			return nil, err
		}
		origin, _ := p.reg.LookupClass(head)
		return &Container{Origin: origin, Elem: elem}, nil
	case "tuple":
		return p.parseTupleArgs()
	case "dict", "Mapping", "MutableMapping":
		key, val, err := p.parseTwoArgs(head)
		if err != nil {
			return nil, err
		}
		origin := DictClass
		if head != "dict" {
			origin = Mapping
		}
		return &MapOf{Origin: origin, Key: key, Val: val}, nil
	case "type":
		arg, err := p.parseOneArg(head)
		if err != nil {
			return nil, err
		}
		return TypeOf(arg), nil
	case "Optional":
		elem, err := p.parseOneArg(head)
		if err != nil {
			return nil, err
		}
		return OptionalOf(elem), nil
	case "Union":
		members, err := p.parseHintArgs()
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, p.errorf("Union requires at least one argument")
		}
		return UnionOf(members...), nil
	case "Literal":
		return p.parseLiteralArgs()
	case "Annotated":
		return p.parseAnnotatedArgs()
	}
	// Anything else must be a registered generic.
	h, ok := p.reg.Lookup(head)
	if !ok {
		return nil, p.errorf("cannot subscript unregistered name %q", head)
	}
	g, ok := h.(*Generic)
	if !ok {
		return nil, errors.New(errors.HintUnsupported, "%q is not subscriptable", head)
	}
	args, err := p.parseHintArgs()
	if err != nil {
		return nil, err
	}
	if len(args) != len(g.Params) {
		return nil, errors.New(errors.ArityWrong,
			"%q takes %d type arguments, got %d", head, len(g.Params), len(args))
	}
	return &Subscripted{Generic: g, Args: args}, nil
}

func (p *parser) parseOneArg(head string) (Hint, error) {
	args, err := p.parseHintArgs()
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, errors.New(errors.ArityWrong, "%q takes 1 type argument, got %d", head, len(args))
	}
	return args[0], nil
}

func (p *parser) parseTwoArgs(head string) (Hint, Hint, error) {
	args, err := p.parseHintArgs()
	if err != nil {
		return nil, nil, err
	}
	if len(args) != 2 {
		return nil, nil, errors.New(errors.ArityWrong, "%q takes 2 type arguments, got %d", head, len(args))
	}
	return args[0], args[1], nil
}

// parseHintArgs parses "h (',' h)* ']'" with the opening bracket consumed.
func (p *parser) parseHintArgs() ([]Hint, error) {
	var args []Hint
	for {
		h, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		args = append(args, h)
		if p.tok.kind != tokComma {
			break
		}
		p.next()
	}
	return args, p.expect(tokRBrack, "']'")
}

// parseTupleArgs handles the three tuple forms: tuple[()], tuple[T, ...],
// and tuple[T1, ..., Tn] fixed.
func (p *parser) parseTupleArgs() (Hint, error) {
	if p.tok.kind == tokLParen {
		p.next()
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		if err := p.expect(tokRBrack, "']'"); err != nil {
			return nil, err
		}
		return TupleOf(), nil
	}
	var elems []Hint
	variadic := false
	for {
		if p.tok.kind == tokEllipsis {
			p.next()
			variadic = true
			break
		}
		h, err := p.parseUnion()
		if err != nil {
			return nil, err
		}
		elems = append(elems, h)
		if p.tok.kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.expect(tokRBrack, "']'"); err != nil {
		return nil, err
	}
	if variadic {
		if len(elems) != 1 {
			return nil, errors.New(errors.ArityWrong,
				"variadic tuple takes exactly one element hint before '...', got %d", len(elems))
		}
		return VariadicTuple(elems[0]), nil
	}
	return TupleOf(elems...), nil
}

func (p *parser) parseLiteralArgs() (Hint, error) {
	var values []any
	for {
		switch p.tok.kind {
		case tokInt:
			n, err := strconv.ParseInt(p.tok.text, 10, 64)
			if err != nil {
				return nil, p.errorf("bad integer literal %q", p.tok.text)
			}
			values = append(values, n)
		case tokString:
			values = append(values, p.tok.text)
		case tokIdent:
			switch p.tok.text {
			case "True":
				values = append(values, true)
			case "False":
				values = append(values, false)
			case "None":
				values = append(values, nil)
			default:
				return nil, p.errorf("bad literal %q", p.tok.text)
			}
		default:
			return nil, p.errorf("bad literal %q", p.tok.text)
		}
		p.next()
		if p.tok.kind != tokComma {
			break
		}
		p.next()
	}
	if err := p.expect(tokRBrack, "']'"); err != nil {
		return nil, err
	}
	return Literal(values...), nil
}

// parseAnnotatedArgs parses Annotated[T, v1, v2] where each v names a
// registered validator.
func (p *parser) parseAnnotatedArgs() (Hint, error) {
	base, err := p.parseUnion()
	if err != nil {
		return nil, err
	}
	var meta []any
	for p.tok.kind == tokComma {
		p.next()
		if p.tok.kind != tokIdent {
			return nil, p.errorf("expected validator name, found %q", p.tok.text)
		}
		v, ok := p.reg.LookupValidator(p.tok.text)
		if !ok {
			return nil, p.errorf("validator %q is not registered", p.tok.text)
		}
		meta = append(meta, v)
		p.next()
	}
	if err := p.expect(tokRBrack, "']'"); err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, errors.New(errors.ArityWrong, "Annotated requires at least one metadata argument")
	}
	return Annotate(base, meta...), nil
}
