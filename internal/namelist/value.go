package namelist

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"qestudio/internal/param"
)

// ParseReal parses a real literal. A d or D exponent marker is accepted and
// read as e.
func ParseReal(text string) (float64, error) {
	s := strings.TrimSpace(text)
	s = strings.Map(func(r rune) rune {
		if r == 'd' || r == 'D' {
			return 'e'
		}
		return r
	}, s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid real %q", ErrSyntax, text)
	}
	return f, nil
}

// ParseValue parses one literal: a quoted string, a logical (.true., .t., T,
// .false., ...), an integer or a real.
func ParseValue(text string) (param.Value, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return param.Value{}, fmt.Errorf("%w: empty value", ErrSyntax)
	}
	if q := s[0]; q == '\'' || q == '"' {
		str, rest, ok := unquote(s)
		if !ok || strings.TrimSpace(rest) != "" {
			return param.Value{}, fmt.Errorf("%w: bad string %s", ErrSyntax, s)
		}
		return param.String(str), nil
	}
	if b, ok := parseLogical(s); ok {
		return param.Bool(b), nil
	}
	if i, err := strconv.Atoi(s); err == nil {
		return param.Int(i), nil
	}
	if f, err := ParseReal(s); err == nil {
		return param.Float(f), nil
	}
	return param.Value{}, fmt.Errorf("%w: invalid value %q", ErrSyntax, s)
}

func parseLogical(s string) (bool, bool) {
	switch strings.Trim(strings.ToLower(s), ".") {
	case "t", "true":
		return true, true
	case "f", "false":
		return false, true
	}
	return false, false
}

// unquote reads a Fortran string starting at s[0]. A doubled quote stands for
// one quote character. It returns the text after the closing quote.
func unquote(s string) (str, rest string, ok bool) {
	q := s[0]
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != q {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == q {
			b.WriteByte(q)
			i++
			continue
		}
		return b.String(), s[i+1:], true
	}
	return "", "", false
}

// FormatValue renders v in the input format. Reals always carry a decimal
// point or an exponent, so they read back as reals.
func FormatValue(v param.Value) string {
	switch v.Kind() {
	case param.Logical:
		if v.AsLogical() {
			return ".true."
		}
		return ".false."
	case param.Character:
		return "'" + strings.ReplaceAll(v.AsCharacter(), "'", "''") + "'"
	case param.Integer:
		return strconv.Itoa(v.AsInteger())
	case param.Real:
		r := v.AsReal()
		s := strconv.FormatFloat(r, 'g', -1, 64)
		if !math.IsInf(r, 0) && !math.IsNaN(r) && !strings.ContainsAny(s, ".e") {
			s += ".0"
		}
		return s
	}
	return ""
}
