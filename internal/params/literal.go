package params

import (
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// ParseLiteral parses a Python-style literal: None, True, False, numbers,
// quoted strings, and bracketed lists, tuples and dicts of literals. JSON
// spellings (null, true, false) are accepted as well. Lists and tuples become
// cty tuples, dicts become cty objects, None becomes a dynamic null.
func ParseLiteral(src string) (cty.Value, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return cty.NilVal, err
	}
	p.skipSpace()
	if !p.eof() {
		return cty.NilVal, p.errorf("unexpected trailing input %q", p.src[p.pos:])
	}
	return v, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) eof() bool {
	return p.pos >= len(p.src)
}

func (p *literalParser) peek() byte {
	return p.src[p.pos]
}

func (p *literalParser) skipSpace() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) parseValue() (cty.Value, error) {
	if p.eof() {
		return cty.NilVal, p.errorf("unexpected end of input")
	}
	c := p.peek()
	switch {
	case c == '[':
		p.pos++
		items, _, err := p.parseItems(']', nil)
		if err != nil {
			return cty.NilVal, err
		}
		return tupleOf(items), nil
	case c == '(':
		return p.parseParen()
	case c == '{':
		return p.parseDict()
	case c == '\'' || c == '"':
		s, err := p.parseString()
		if err != nil {
			return cty.NilVal, err
		}
		return cty.StringVal(s), nil
	case c == '-' || c == '+' || c == '.' || isDigit(c):
		return p.parseNumber()
	case isIdentStart(c):
		return p.parseName()
	}
	return cty.NilVal, p.errorf("unexpected character %q", c)
}

// parseItems reads comma-separated values up to and including the closing
// byte. It reports whether at least one separating comma was seen.
func (p *literalParser) parseItems(closing byte, items []cty.Value) ([]cty.Value, bool, error) {
	sawComma := false
	for {
		p.skipSpace()
		if p.eof() {
			return nil, false, p.errorf("missing %q", closing)
		}
		if p.peek() == closing {
			p.pos++
			return items, sawComma, nil
		}
		v, err := p.parseValue()
		if err != nil {
			return nil, false, err
		}
		items = append(items, v)

		p.skipSpace()
		if p.eof() {
			return nil, false, p.errorf("missing %q", closing)
		}
		switch p.peek() {
		case ',':
			p.pos++
			sawComma = true
		case closing:
			p.pos++
			return items, sawComma, nil
		default:
			return nil, false, p.errorf("expected ',' or %q, found %q", closing, p.peek())
		}
	}
}

// parseParen handles both grouping `(x)` and tuples `(x,)`, `(x, y)`, `()`.
func (p *literalParser) parseParen() (cty.Value, error) {
	p.pos++
	p.skipSpace()
	if !p.eof() && p.peek() == ')' {
		p.pos++
		return cty.EmptyTupleVal, nil
	}

	first, err := p.parseValue()
	if err != nil {
		return cty.NilVal, err
	}
	p.skipSpace()
	if p.eof() {
		return cty.NilVal, p.errorf("missing ')'")
	}
	switch p.peek() {
	case ')':
		p.pos++
		return first, nil
	case ',':
		p.pos++
		items, _, err := p.parseItems(')', []cty.Value{first})
		if err != nil {
			return cty.NilVal, err
		}
		return tupleOf(items), nil
	}
	return cty.NilVal, p.errorf("expected ',' or ')', found %q", p.peek())
}

func (p *literalParser) parseDict() (cty.Value, error) {
	p.pos++
	attrs := make(map[string]cty.Value)
	for {
		p.skipSpace()
		if p.eof() {
			return cty.NilVal, p.errorf("missing '}'")
		}
		if p.peek() == '}' {
			p.pos++
			break
		}

		keyVal, err := p.parseValue()
		if err != nil {
			return cty.NilVal, err
		}
		key, err := dictKey(keyVal)
		if err != nil {
			return cty.NilVal, p.errorf("%v", err)
		}

		p.skipSpace()
		if p.eof() || p.peek() != ':' {
			return cty.NilVal, p.errorf("expected ':' after dict key %q (set literals are not supported)", key)
		}
		p.pos++
		p.skipSpace()

		v, err := p.parseValue()
		if err != nil {
			return cty.NilVal, err
		}
		attrs[key] = v

		p.skipSpace()
		if p.eof() {
			return cty.NilVal, p.errorf("missing '}'")
		}
		switch p.peek() {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return objectOf(attrs), nil
		default:
			return cty.NilVal, p.errorf("expected ',' or '}', found %q", p.peek())
		}
	}
	return objectOf(attrs), nil
}

func (p *literalParser) parseString() (string, error) {
	quote := p.peek()
	p.pos++
	var sb strings.Builder
	for !p.eof() {
		c := p.peek()
		p.pos++
		switch c {
		case quote:
			return sb.String(), nil
		case '\\':
			if p.eof() {
				return "", p.errorf("unterminated string")
			}
			esc := p.peek()
			p.pos++
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\', '\'', '"':
				sb.WriteByte(esc)
			default:
				// Unknown escapes are kept as written.
				sb.WriteByte('\\')
				sb.WriteByte(esc)
			}
		default:
			sb.WriteByte(c)
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) parseNumber() (cty.Value, error) {
	start := p.pos
	if c := p.peek(); c == '-' || c == '+' {
		p.pos++
	}
	for !p.eof() {
		c := p.peek()
		if isDigit(c) || c == '.' {
			p.pos++
			continue
		}
		if c == 'e' || c == 'E' {
			p.pos++
			if !p.eof() && (p.peek() == '-' || p.peek() == '+') {
				p.pos++
			}
			continue
		}
		break
	}
	text := strings.TrimPrefix(p.src[start:p.pos], "+")
	v, err := cty.ParseNumberVal(text)
	if err != nil {
		return cty.NilVal, p.errorf("invalid number %q", p.src[start:p.pos])
	}
	return v, nil
}

func (p *literalParser) parseName() (cty.Value, error) {
	start := p.pos
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	switch name := p.src[start:p.pos]; name {
	case "None", "null":
		return cty.NullVal(cty.DynamicPseudoType), nil
	case "True", "true":
		return cty.True, nil
	case "False", "false":
		return cty.False, nil
	default:
		p.pos = start
		return cty.NilVal, p.errorf("name %q is not a literal", name)
	}
}

func dictKey(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", fmt.Errorf("dict keys must be strings or numbers, got None")
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Number:
		return v.AsBigFloat().Text('g', -1), nil
	}
	return "", fmt.Errorf("dict keys must be strings or numbers, got %s", v.Type().FriendlyName())
}

func tupleOf(items []cty.Value) cty.Value {
	if len(items) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(items)
}

func objectOf(attrs map[string]cty.Value) cty.Value {
	if len(attrs) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(attrs)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
