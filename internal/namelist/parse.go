package namelist

import (
	"fmt"
	"io"
	"strings"

	"qestudio/internal/logging"
	"qestudio/internal/param"
)

type parser struct {
	src  string
	pos  int
	line int
	file *File
}

// Parse reads a whole input file. Errors wrap ErrSyntax and carry the line in
// a *ParseError.
func Parse(r io.Reader) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	p := &parser{src: string(data), line: 1, file: &File{}}
	if err := p.parse(); err != nil {
		return nil, err
	}
	logging.NamelistDebug("parsed %d namelists, %d cards", len(p.file.Namelists), len(p.file.Cards))
	return p.file, nil
}

// ParseString is Parse on a string.
func ParseString(s string) (*File, error) {
	return Parse(strings.NewReader(s))
}

func (p *parser) errorf(line int, format string, args ...interface{}) error {
	return &ParseError{Line: line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func (p *parser) advance() byte {
	c := p.src[p.pos]
	p.pos++
	if c == '\n' {
		p.line++
	}
	return c
}

// currentLine returns the rest of the current line without consuming it.
func (p *parser) currentLine() string {
	rest := p.src[p.pos:]
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSuffix(rest, "\r")
}

func (p *parser) skipLine() {
	for !p.eof() {
		if p.advance() == '\n' {
			return
		}
	}
}

func (p *parser) parse() error {
	var card *Card
	for !p.eof() {
		raw := p.currentLine()
		text := strings.TrimSpace(raw)

		if strings.HasPrefix(text, "&") {
			card = nil
			p.pos += strings.Index(raw, "&") + 1
			if err := p.parseNamelist(); err != nil {
				return err
			}
			continue
		}

		text = strings.TrimSpace(stripComment(text))
		switch {
		case text == "":
		case isCardHeader(text):
			card = parseCardHeader(text)
			if p.file.Card(card.Name) != nil {
				return p.errorf(p.line, "duplicate card %s", card.Name)
			}
			p.file.Cards = append(p.file.Cards, card)
		case card != nil:
			card.Lines = append(card.Lines, text)
		default:
			return p.errorf(p.line, "unexpected %q outside namelist or card", text)
		}
		p.skipLine()
	}
	return nil
}

func (p *parser) parseNamelist() error {
	start := p.line
	name := p.readWhile(func(c byte) bool { return isIdent(c) })
	if name == "" {
		return p.errorf(start, "missing namelist name after '&'")
	}
	set := param.NewSet(name)
	if p.file.Namelist(set.Name()) != nil {
		return p.errorf(start, "duplicate namelist &%s", set.Name())
	}
	p.file.Namelists = append(p.file.Namelists, set)

	for {
		p.skipSeparators()
		if p.eof() {
			return p.errorf(start, "namelist &%s not terminated", set.Name())
		}
		switch p.peek() {
		case '/':
			p.advance()
			p.skipLine()
			return nil
		case '&':
			// Old-style "&end" terminator.
			p.advance()
			if end := p.readWhile(isIdent); strings.EqualFold(end, "end") {
				p.skipLine()
				return nil
			}
			return p.errorf(p.line, "namelist &%s not terminated", set.Name())
		}

		line := p.line
		key := strings.ToLower(strings.Join(strings.Fields(p.readWhile(func(c byte) bool {
			return c != '=' && c != '\n' && c != '!'
		})), ""))
		if p.eof() || p.peek() != '=' {
			return p.errorf(line, "expected '=' after %q", key)
		}
		if !validKey(key) {
			return p.errorf(line, "invalid key %q", key)
		}
		p.advance()
		p.readWhile(func(c byte) bool { return c == ' ' || c == '\t' || c == '\r' })

		v, err := p.readValue(key)
		if err != nil {
			return err
		}
		set.Set(key, v)
	}
}

func (p *parser) readValue(key string) (param.Value, error) {
	line := p.line
	if p.eof() || p.peek() == '\n' {
		return param.Value{}, p.errorf(line, "missing value for %s", key)
	}
	if q := p.peek(); q == '\'' || q == '"' {
		str, rest, ok := unquote(p.src[p.pos:])
		if !ok || strings.Contains(p.src[p.pos:len(p.src)-len(rest)], "\n") {
			return param.Value{}, p.errorf(line, "unterminated string for %s", key)
		}
		p.pos = len(p.src) - len(rest)
		return param.String(str), nil
	}
	tok := p.readWhile(func(c byte) bool {
		return !strings.ContainsRune(" \t\r\n,/!", rune(c))
	})
	v, err := ParseValue(tok)
	if err != nil {
		return param.Value{}, p.errorf(line, "invalid value %q for %s", tok, key)
	}
	return v, nil
}

func (p *parser) readWhile(ok func(byte) bool) string {
	start := p.pos
	for !p.eof() && ok(p.peek()) {
		p.advance()
	}
	return p.src[start:p.pos]
}

// skipSeparators skips blanks, newlines, commas and comments.
func (p *parser) skipSeparators() {
	for !p.eof() {
		switch p.peek() {
		case ' ', '\t', '\r', '\n', ',':
			p.advance()
		case '!':
			for !p.eof() && p.peek() != '\n' {
				p.advance()
			}
		default:
			return
		}
	}
}

func isIdent(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func validKey(key string) bool {
	if key == "" || key[0] < 'a' || key[0] > 'z' {
		return false
	}
	depth := 0
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case isIdent(c), c == '%':
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth < 0 {
				return false
			}
		case c == ',' || c == ' ':
			if depth == 0 {
				return false
			}
		default:
			return false
		}
	}
	return depth == 0
}
