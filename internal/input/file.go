package input

import (
	"fmt"
	"strconv"
	"strings"

	"qestudio/internal/card"
	"qestudio/internal/logging"
	"qestudio/internal/namelist"
	"qestudio/internal/param"
)

const (
	speciesCard   = "ATOMIC_SPECIES"
	positionsCard = "ATOMIC_POSITIONS"
)

// Open creates a document from a parsed file and activates it.
func Open(f *namelist.File, opts Options) (*Document, error) {
	d := New(opts)
	if err := d.Load(f); err != nil {
		return nil, err
	}
	return d, nil
}

// Load populates an inactive document from f, then activates it.
func (d *Document) Load(f *namelist.File) error {
	if err := d.Populate(f); err != nil {
		return err
	}
	d.Activate()
	return nil
}

// Populate copies the values and cards of f into an inactive document without
// running any rule, so the document holds exactly what the file says.
// Namelists outside the standard set are kept as extra sets.
func (d *Document) Populate(f *namelist.File) error {
	if d.active {
		return ErrActive
	}

	for _, src := range f.Namelists {
		dst := d.sets[src.Name()]
		if dst == nil {
			dst = d.addSet(src.Name())
		}
		d.present[src.Name()] = true
		src.Each(func(k string, v param.Value) { dst.Set(k, v) })
	}

	for _, c := range f.Cards {
		switch c.Name {
		case speciesCard:
			species, err := parseSpecies(c)
			if err != nil {
				return err
			}
			for _, sp := range species {
				d.Species.Put(sp)
			}
		case positionsCard:
			atoms, err := parsePositions(c)
			if err != nil {
				return err
			}
			if c.Option != "" {
				d.Positions.SetUnit(c.Option)
			}
			d.Positions.Replace(atoms)
		}
		d.cards = append(d.cards, &rawCard{
			name:   c.Name,
			option: c.Option,
			lines:  append([]string(nil), c.Lines...),
		})
	}

	d.log.Info("loaded %d namelists, %d cards", len(f.Namelists), len(f.Cards))
	d.journal.DocumentEvent(logging.JournalDocumentLoad, fmt.Sprintf("%d namelists", len(f.Namelists)))
	return nil
}

// File exports the document for rendering. A namelist is written when it was
// loaded or holds values; the typed cards are written when non-empty.
func (d *Document) File() *namelist.File {
	f := &namelist.File{}
	for _, s := range d.Namelists() {
		if d.present[s.Name()] || s.Len() > 0 {
			f.Namelists = append(f.Namelists, s)
		}
	}

	typed := map[string]*namelist.Card{}
	if d.Species.Len() > 0 {
		typed[speciesCard] = speciesToCard(d.Species)
	}
	if d.Positions.Len() > 0 {
		typed[positionsCard] = positionsToCard(d.Positions)
	}

	seen := map[string]bool{}
	var cards []*namelist.Card
	for _, rc := range d.cards {
		seen[rc.name] = true
		if c, ok := typed[rc.name]; ok {
			cards = append(cards, c)
			continue
		}
		if rc.name == speciesCard || rc.name == positionsCard {
			continue
		}
		cards = append(cards, &namelist.Card{Name: rc.name, Option: rc.option, Lines: rc.lines})
	}
	var front []*namelist.Card
	for _, name := range []string{speciesCard, positionsCard} {
		if c, ok := typed[name]; ok && !seen[name] {
			front = append(front, c)
		}
	}
	f.Cards = append(front, cards...)
	return f
}

func parseSpecies(c *namelist.Card) ([]card.Species, error) {
	out := make([]card.Species, 0, len(c.Lines))
	for i, line := range c.Lines {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %s line %d: want label, mass and pseudopotential", namelist.ErrSyntax, c.Name, i+1)
		}
		mass, err := namelist.ParseReal(fields[1])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", c.Name, i+1, err)
		}
		sp := card.Species{Label: fields[0], Mass: mass}
		if len(fields) > 2 {
			sp.Pseudo = fields[2]
		}
		out = append(out, sp)
	}
	return out, nil
}

func parsePositions(c *namelist.Card) ([]card.Atom, error) {
	out := make([]card.Atom, 0, len(c.Lines))
	for i, line := range c.Lines {
		fields := strings.Fields(line)
		if len(fields) < 4 {
			return nil, fmt.Errorf("%w: %s line %d: want label and three coordinates", namelist.ErrSyntax, c.Name, i+1)
		}
		a := card.Atom{Label: fields[0]}
		for j := 0; j < 3; j++ {
			x, err := namelist.ParseReal(fields[j+1])
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", c.Name, i+1, err)
			}
			a.Pos[j] = x
		}
		if len(fields) > 4 {
			a.Extra = append([]string(nil), fields[4:]...)
		}
		out = append(out, a)
	}
	return out, nil
}

func formatReal(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

func speciesToCard(s *card.AtomicSpecies) *namelist.Card {
	c := &namelist.Card{Name: speciesCard}
	for _, sp := range s.Entries() {
		line := sp.Label + " " + formatReal(sp.Mass)
		if sp.Pseudo != "" {
			line += " " + sp.Pseudo
		}
		c.Lines = append(c.Lines, line)
	}
	return c
}

func positionsToCard(p *card.AtomicPositions) *namelist.Card {
	c := &namelist.Card{Name: positionsCard, Option: p.Unit()}
	for _, a := range p.Atoms() {
		fields := []string{a.Label, formatReal(a.Pos[0]), formatReal(a.Pos[1]), formatReal(a.Pos[2])}
		fields = append(fields, a.Extra...)
		c.Lines = append(c.Lines, strings.Join(fields, " "))
	}
	return c
}
