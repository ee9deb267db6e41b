// Package pylit parses the literal dialect used by the legacy archival
// export's message-mapping field. The dialect is not JSON: keys and strings
// may be single-quoted, tuples appear alongside lists, and None/True/False
// stand in for null/true/false. Values decode into map[string]any, []any,
// string, float64, int64, bool, and nil.
package pylit

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

// Parse decodes a single literal value. Trailing non-whitespace input is an
// error so truncated payloads fail loudly instead of decoding partially.
func Parse(input string) (any, error) {
	p := &parser{src: input}
	p.skipSpace()
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("trailing input")
	}
	return v, nil
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return eris.Errorf("pylit: offset %d: "+format, append([]any{p.pos}, args...)...)
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			p.pos++
			continue
		}
		return
	}
}

func (p *parser) peek() (byte, bool) {
	if p.pos >= len(p.src) {
		return 0, false
	}
	return p.src[p.pos], true
}

func (p *parser) value() (any, error) {
	c, ok := p.peek()
	if !ok {
		return nil, p.errorf("unexpected end of input")
	}
	switch {
	case c == '{':
		return p.dict()
	case c == '[':
		return p.seq('[', ']')
	case c == '(':
		return p.seq('(', ')')
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c >= '0' && c <= '9':
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *parser) dict() (map[string]any, error) {
	p.pos++ // consume '{'
	out := make(map[string]any)
	p.skipSpace()
	if c, ok := p.peek(); ok && c == '}' {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		key, err := p.dictKey()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if c, ok := p.peek(); !ok || c != ':' {
			return nil, p.errorf("expected ':' after dict key %q", key)
		}
		p.pos++
		p.skipSpace()
		val, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = val

		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated dict")
		}
		switch c {
		case ',':
			p.pos++
			p.skipSpace()
			// Tolerate a trailing comma before '}'.
			if c2, ok2 := p.peek(); ok2 && c2 == '}' {
				p.pos++
				return out, nil
			}
		case '}':
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or '}' in dict, got %q", c)
		}
	}
}

// dictKey accepts string keys and, for robustness against hand-edited
// exports, bare numeric keys (stringified).
func (p *parser) dictKey() (string, error) {
	c, ok := p.peek()
	if !ok {
		return "", p.errorf("unexpected end of input in dict key")
	}
	if c == '\'' || c == '"' {
		return p.str()
	}
	if c == '-' || c >= '0' && c <= '9' {
		n, err := p.number()
		if err != nil {
			return "", err
		}
		switch v := n.(type) {
		case int64:
			return strconv.FormatInt(v, 10), nil
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), nil
		}
	}
	return "", p.errorf("unsupported dict key")
}

// seq parses a list or tuple. Both decode to []any; downstream treatment is
// identical.
func (p *parser) seq(open, close byte) ([]any, error) {
	p.pos++ // consume open
	out := []any{}
	p.skipSpace()
	if c, ok := p.peek(); ok && c == close {
		p.pos++
		return out, nil
	}
	for {
		p.skipSpace()
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)

		p.skipSpace()
		c, ok := p.peek()
		if !ok {
			return nil, p.errorf("unterminated sequence")
		}
		switch c {
		case ',':
			p.pos++
			p.skipSpace()
			if c2, ok2 := p.peek(); ok2 && c2 == close {
				p.pos++
				return out, nil
			}
		case close:
			p.pos++
			return out, nil
		default:
			return nil, p.errorf("expected ',' or %q in sequence, got %q", close, c)
		}
	}
}

func (p *parser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch c {
		case quote:
			p.pos++
			return b.String(), nil
		case '\\':
			p.pos++
			if p.pos >= len(p.src) {
				return "", p.errorf("unterminated escape")
			}
			e := p.src[p.pos]
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '\'', '"':
				b.WriteByte(e)
			case 'u':
				if p.pos+4 >= len(p.src) {
					return "", p.errorf("truncated \\u escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+5], 16, 32)
				if err != nil {
					return "", p.errorf("invalid \\u escape")
				}
				b.WriteRune(rune(n))
				p.pos += 4
			case 'x':
				if p.pos+2 >= len(p.src) {
					return "", p.errorf("truncated \\x escape")
				}
				n, err := strconv.ParseUint(p.src[p.pos+1:p.pos+3], 16, 8)
				if err != nil {
					return "", p.errorf("invalid \\x escape")
				}
				b.WriteByte(byte(n))
				p.pos += 2
			default:
				// Unknown escape: keep it verbatim, the exporter emits
				// these for content the study never inspects.
				b.WriteByte('\\')
				b.WriteByte(e)
			}
			p.pos++
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *parser) number() (any, error) {
	start := p.pos
	if c, ok := p.peek(); ok && (c == '-' || c == '+') {
		p.pos++
	}
	isFloat := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c >= '0' && c <= '9' {
			p.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' {
			isFloat = true
			p.pos++
			continue
		}
		if (c == '-' || c == '+') && isFloat {
			// exponent sign
			p.pos++
			continue
		}
		break
	}
	tok := p.src[start:p.pos]
	if tok == "" || tok == "-" || tok == "+" {
		return nil, p.errorf("invalid number")
	}
	if !isFloat {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return n, nil
		}
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return nil, p.errorf("invalid number %q", tok)
	}
	return f, nil
}

func (p *parser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsLetter(r) {
			break
		}
		p.pos += size
	}
	switch p.src[start:p.pos] {
	case "None":
		return nil, nil
	case "True":
		return true, nil
	case "False":
		return false, nil
	}
	p.pos = start
	return nil, p.errorf("unexpected token")
}
