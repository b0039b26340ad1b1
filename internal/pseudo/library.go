// Package pseudo implements the pseudopotential library: mapping an element
// symbol to the pseudopotential file a new atomic species should use.
package pseudo

import (
	"errors"
	"sort"
	"strings"

	"qestudio/internal/periodic"
)

// ErrNotFound is returned when no pseudopotential matches an element.
var ErrNotFound = errors.New("pseudopotential not found")

// Library resolves element symbols to pseudopotential file names.
type Library interface {
	Resolve(symbol string) (string, bool)
}

// Static is a fixed symbol -> file name library.
type Static map[string]string

// Resolve implements Library.
func (s Static) Resolve(symbol string) (string, bool) {
	f, ok := s[symbol]
	return f, ok
}

// None is a library that never resolves anything.
type None struct{}

// Resolve implements Library.
func (None) Resolve(string) (string, bool) { return "", false }

// Entry describes one pseudopotential file.
type Entry struct {
	Path    string
	File    string
	Element string
	Tags    []string
	DirRank int
	Size    int64
}

// ParseFileName splits a pseudopotential file name into its element symbol
// and lower-case tags: "Fe.pbe-spn-kjpaw_psl.1.0.0.UPF" yields "Fe" and
// [pbe spn kjpaw psl 1 0 0 upf]. ok is false when the name does not start
// with an element symbol.
func ParseFileName(name string) (element string, tags []string, ok bool) {
	cut := strings.IndexAny(name, ".-_")
	if cut <= 0 || cut > 2 {
		return "", nil, false
	}
	head := name[:cut]
	sym := periodic.Symbol(head)
	if sym == "" || !strings.EqualFold(sym, head) {
		return "", nil, false
	}
	for _, t := range strings.FieldsFunc(name[cut:], func(r rune) bool {
		return r == '.' || r == '-' || r == '_'
	}) {
		tags = append(tags, strings.ToLower(t))
	}
	return sym, tags, true
}

// Rank orders candidates for one element, best first. A candidate scores
// higher for each preferred tag it carries, earlier tags weighing more;
// ties go to the lower directory rank and then to the file name.
func Rank(entries []Entry, preferred []string) {
	score := func(e Entry) int {
		s := 0
		for i, p := range preferred {
			p = strings.ToLower(p)
			for _, t := range e.Tags {
				if t == p {
					s += len(preferred) - i
					break
				}
			}
		}
		return s
	}
	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := score(entries[i]), score(entries[j])
		if si != sj {
			return si > sj
		}
		if entries[i].DirRank != entries[j].DirRank {
			return entries[i].DirRank < entries[j].DirRank
		}
		return entries[i].File < entries[j].File
	})
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
