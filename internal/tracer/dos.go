package tracer

import "qestudio/internal/param"

const (
	// TetrahedronIndex is the broadening index standing for the tetrahedron
	// method. It lies outside every real smearing index.
	TetrahedronIndex = -999
	// DefaultDegauss is the width written when no width was ever seen.
	DefaultDegauss = 0.01
	// DefaultNgauss is the index used when only a width is present.
	DefaultNgauss = 0
)

// Shadow keys owned by DOSRule on the dos set.
const (
	ShadowNgauss  param.Shadow = "ngauss"
	ShadowDegauss param.Shadow = "degauss"
)

// mirroredKeys are kept identical between the dos and projwfc namelists.
var mirroredKeys = []string{"ngauss", "degauss", "emin", "emax", "deltae"}

// Broadening overrides the defaults used by DOSRule. Zero fields keep the
// package defaults.
type Broadening struct {
	Width float64
	Index int
}

// DOSRule mirrors the energy window and broadening between the dos and
// projwfc namelists and maps the tetrahedron index onto the absence of both
// broadening fields.
type DOSRule struct {
	base

	dos     *param.Set
	projwfc *param.Set
	index   *param.Cell
	width   *param.Cell

	defaultWidth float64
	defaultIndex int
}

// NewDOS binds a broadening rule to the two post-processing namelists.
func NewDOS(dos, projwfc *param.Set, defaults Broadening, opts ...Option) *DOSRule {
	d := &DOSRule{
		base:         newBase("dos", opts),
		dos:          dos,
		projwfc:      projwfc,
		index:        dos.ShadowCell(ShadowNgauss),
		width:        dos.ShadowCell(ShadowDegauss),
		defaultWidth: DefaultDegauss,
		defaultIndex: DefaultNgauss,
	}
	if defaults.Width > 0 {
		d.defaultWidth = defaults.Width
	}
	if defaults.Index != 0 {
		d.defaultIndex = defaults.Index
	}
	return d
}

// Activate implements Rule. Values present only in projwfc are pulled into
// dos; otherwise dos wins.
func (d *DOSRule) Activate() {
	var cells []*param.Cell
	for _, set := range []*param.Set{d.dos, d.projwfc} {
		for _, k := range mirroredKeys {
			cells = append(cells, set.Cell(k))
		}
	}
	subscribeAll(&d.guard, d, cells...)

	release, ok := d.enter()
	if !ok {
		return
	}
	defer release()

	for _, k := range mirroredKeys {
		src, dst := d.dos.Cell(k), d.projwfc.Cell(k)
		if !src.HasValue() {
			src, dst = dst, src
		}
		if src.HasValue() {
			d.ensure(dst, src.Value())
		}
	}
	d.normalize()
}

// OnChange implements Rule.
func (d *DOSRule) OnChange(c *param.Cell, v param.Value) {
	release, ok := d.enter()
	if !ok {
		return
	}
	defer release()

	other := d.dos
	if c.Owner() == d.dos {
		other = d.projwfc
	}
	if v.IsSet() {
		d.ensure(other.Cell(c.Key()), v)
	} else {
		d.remove(other.Cell(c.Key()))
	}

	switch c.Key() {
	case "degauss":
		if !v.IsSet() {
			d.remove(d.width)
		}
		d.normalize()
	case "ngauss":
		d.normalize()
	}
}

// normalize derives the shadow index from the real pair and rewrites the pair
// from the shadow.
func (d *DOSRule) normalize() {
	idx, w := d.dos.Get("ngauss"), d.dos.Get("degauss")
	if r, ok := realOf(w); ok {
		d.ensure(d.width, param.Float(r))
	}

	shadow := d.defaultIndex
	switch {
	case !idx.IsSet() && !w.IsSet():
		shadow = TetrahedronIndex
	case idx.IsSet():
		if n, ok := intOf(idx); ok {
			shadow = n
		}
	}
	d.ensure(d.index, param.Int(shadow))

	for _, set := range []*param.Set{d.dos, d.projwfc} {
		if shadow == TetrahedronIndex {
			d.remove(set.Cell("ngauss"))
			d.remove(set.Cell("degauss"))
			continue
		}
		width := d.defaultWidth
		if r, ok := realOf(d.width.Value()); ok {
			width = r
		}
		d.ensure(set.Cell("ngauss"), param.Int(shadow))
		d.ensure(set.Cell("degauss"), param.Float(width))
	}
}
