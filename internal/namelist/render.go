package namelist

import (
	"bufio"
	"fmt"
	"io"

	"qestudio/internal/param"
)

// Render writes f: every namelist in order, then every card. Shadow
// parameters are not part of Set.Each and are never written.
func Render(w io.Writer, f *File) error {
	bw := bufio.NewWriter(w)
	for _, s := range f.Namelists {
		writeSet(bw, s)
	}
	for _, c := range f.Cards {
		writeCard(bw, c)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("render input: %w", err)
	}
	return nil
}

// RenderSet writes one namelist.
func RenderSet(w io.Writer, s *param.Set) error {
	bw := bufio.NewWriter(w)
	writeSet(bw, s)
	return bw.Flush()
}

func writeSet(w *bufio.Writer, s *param.Set) {
	fmt.Fprintf(w, "&%s\n", s.Name())
	width := 0
	for _, k := range s.Keys() {
		if len(k) > width {
			width = len(k)
		}
	}
	s.Each(func(k string, v param.Value) {
		fmt.Fprintf(w, "  %-*s = %s\n", width, k, FormatValue(v))
	})
	w.WriteString("/\n")
}

func writeCard(w *bufio.Writer, c *Card) {
	if c.Option != "" {
		fmt.Fprintf(w, "%s {%s}\n", c.Name, c.Option)
	} else {
		fmt.Fprintf(w, "%s\n", c.Name)
	}
	for _, l := range c.Lines {
		fmt.Fprintf(w, "  %s\n", l)
	}
}
