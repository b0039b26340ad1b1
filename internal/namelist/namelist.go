// Package namelist reads and writes the textual input format: Fortran
// namelists (&name key = value ... /) followed by cards (a header line and
// free-form data lines).
//
// Parsed namelists are plain param.Sets. Render walks them with Set.Each, so
// shadow parameters never reach the output.
package namelist

import (
	"errors"
	"fmt"
	"strings"

	"qestudio/internal/param"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("namelist: syntax error")

// ParseError locates a syntax error.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("namelist: line %d: %s", e.Line, e.Msg)
}

func (e *ParseError) Unwrap() error { return ErrSyntax }

// Card is one card: an upper-case name, an optional option (the text after
// the name, without braces) and its data lines with comments stripped.
type Card struct {
	Name   string
	Option string
	Lines  []string
}

// File is a parsed input file.
type File struct {
	Namelists []*param.Set
	Cards     []*Card
}

// Namelist returns the namelist with the given name, or nil.
func (f *File) Namelist(name string) *param.Set {
	name = strings.ToLower(name)
	for _, s := range f.Namelists {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

// Card returns the card with the given name, or nil.
func (f *File) Card(name string) *Card {
	name = strings.ToUpper(name)
	for _, c := range f.Cards {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// KnownCards lists the card names recognised as headers.
var KnownCards = map[string]bool{
	"ATOMIC_SPECIES":      true,
	"ATOMIC_POSITIONS":    true,
	"K_POINTS":            true,
	"ADDITIONAL_K_POINTS": true,
	"CELL_PARAMETERS":     true,
	"OCCUPATIONS":         true,
	"CONSTRAINTS":         true,
	"ATOMIC_VELOCITIES":   true,
	"ATOMIC_FORCES":       true,
	"SOLVENTS":            true,
	"HUBBARD":             true,
	"TOTAL_CHARGE":        true,
}

// splitHeader splits a card header line into its name and the rest.
func splitHeader(line string) (name, rest string) {
	line = strings.TrimSpace(line)
	i := 0
	for i < len(line) && (line[i] == '_' || line[i] >= 'a' && line[i] <= 'z' || line[i] >= 'A' && line[i] <= 'Z') {
		i++
	}
	return line[:i], line[i:]
}

func isCardHeader(line string) bool {
	name, rest := splitHeader(line)
	if !KnownCards[strings.ToUpper(name)] {
		return false
	}
	return rest == "" || strings.ContainsRune(" \t{(", rune(rest[0]))
}

func parseCardHeader(line string) *Card {
	name, rest := splitHeader(line)
	c := &Card{Name: strings.ToUpper(name)}
	opt := strings.TrimSpace(rest)
	opt = strings.TrimSpace(strings.Trim(opt, "{}()"))
	c.Option = opt
	return c
}

// stripComment drops a trailing ! or # comment from a card or top-level line.
func stripComment(line string) string {
	if i := strings.IndexAny(line, "!#"); i >= 0 {
		return line[:i]
	}
	return line
}
