// Package periodic provides element data used when a new atomic species needs
// default values.
package periodic

import (
	"strings"
	"unicode"
)

// FallbackMass is returned by DefaultMass for labels that name no element.
const FallbackMass = 1.0

// Table is the periodic-table lookup consumed by the species engine.
type Table interface {
	DefaultMass(symbol string) float64
}

// Element is one row of the periodic table.
type Element struct {
	Number int
	Symbol string
	Mass   float64 // standard atomic weight in amu
}

// Standard is the built-in table with conventional IUPAC atomic weights.
// For elements without stable isotopes the mass number of the longest-lived
// isotope is used.
type Standard struct{}

// Default is the shared instance of the built-in table.
var Default Standard

var elements = []Element{
	{1, "H", 1.008}, {2, "He", 4.0026}, {3, "Li", 6.94}, {4, "Be", 9.0122},
	{5, "B", 10.81}, {6, "C", 12.011}, {7, "N", 14.007}, {8, "O", 15.999},
	{9, "F", 18.998}, {10, "Ne", 20.180}, {11, "Na", 22.990}, {12, "Mg", 24.305},
	{13, "Al", 26.982}, {14, "Si", 28.085}, {15, "P", 30.974}, {16, "S", 32.06},
	{17, "Cl", 35.45}, {18, "Ar", 39.948}, {19, "K", 39.098}, {20, "Ca", 40.078},
	{21, "Sc", 44.956}, {22, "Ti", 47.867}, {23, "V", 50.942}, {24, "Cr", 51.996},
	{25, "Mn", 54.938}, {26, "Fe", 55.845}, {27, "Co", 58.933}, {28, "Ni", 58.693},
	{29, "Cu", 63.546}, {30, "Zn", 65.38}, {31, "Ga", 69.723}, {32, "Ge", 72.630},
	{33, "As", 74.922}, {34, "Se", 78.971}, {35, "Br", 79.904}, {36, "Kr", 83.798},
	{37, "Rb", 85.468}, {38, "Sr", 87.62}, {39, "Y", 88.906}, {40, "Zr", 91.224},
	{41, "Nb", 92.906}, {42, "Mo", 95.95}, {43, "Tc", 98}, {44, "Ru", 101.07},
	{45, "Rh", 102.91}, {46, "Pd", 106.42}, {47, "Ag", 107.87}, {48, "Cd", 112.41},
	{49, "In", 114.82}, {50, "Sn", 118.71}, {51, "Sb", 121.76}, {52, "Te", 127.60},
	{53, "I", 126.90}, {54, "Xe", 131.29}, {55, "Cs", 132.91}, {56, "Ba", 137.33},
	{57, "La", 138.91}, {58, "Ce", 140.12}, {59, "Pr", 140.91}, {60, "Nd", 144.24},
	{61, "Pm", 145}, {62, "Sm", 150.36}, {63, "Eu", 151.96}, {64, "Gd", 157.25},
	{65, "Tb", 158.93}, {66, "Dy", 162.50}, {67, "Ho", 164.93}, {68, "Er", 167.26},
	{69, "Tm", 168.93}, {70, "Yb", 173.05}, {71, "Lu", 174.97}, {72, "Hf", 178.49},
	{73, "Ta", 180.95}, {74, "W", 183.84}, {75, "Re", 186.21}, {76, "Os", 190.23},
	{77, "Ir", 192.22}, {78, "Pt", 195.08}, {79, "Au", 196.97}, {80, "Hg", 200.59},
	{81, "Tl", 204.38}, {82, "Pb", 207.2}, {83, "Bi", 208.98}, {84, "Po", 209},
	{85, "At", 210}, {86, "Rn", 222}, {87, "Fr", 223}, {88, "Ra", 226},
	{89, "Ac", 227}, {90, "Th", 232.04}, {91, "Pa", 231.04}, {92, "U", 238.03},
	{93, "Np", 237}, {94, "Pu", 244}, {95, "Am", 243}, {96, "Cm", 247},
	{97, "Bk", 247}, {98, "Cf", 251}, {99, "Es", 252}, {100, "Fm", 257},
	{101, "Md", 258}, {102, "No", 259}, {103, "Lr", 262},
}

var bySymbol = func() map[string]Element {
	m := make(map[string]Element, len(elements))
	for _, e := range elements {
		m[e.Symbol] = e
	}
	return m
}()

// Lookup returns the element with the given symbol. Matching is exact
// (case-sensitive); use Symbol to normalize a species label first.
func (Standard) Lookup(symbol string) (Element, bool) {
	e, ok := bySymbol[symbol]
	return e, ok
}

// DefaultMass returns the standard atomic weight of symbol, or FallbackMass
// when symbol names no element.
func (s Standard) DefaultMass(symbol string) float64 {
	if e, ok := s.Lookup(symbol); ok {
		return e.Mass
	}
	return FallbackMass
}

// Symbol extracts the element symbol from a species label such as "Fe",
// "Fe1", "fe_up" or "O2-". It returns "" when the label does not start with a
// known element.
func Symbol(label string) string {
	runes := []rune(strings.TrimSpace(label))
	if len(runes) == 0 || !unicode.IsLetter(runes[0]) {
		return ""
	}
	first := string(unicode.ToUpper(runes[0]))
	if len(runes) > 1 && unicode.IsLetter(runes[1]) {
		two := first + string(unicode.ToLower(runes[1]))
		if _, ok := bySymbol[two]; ok {
			return two
		}
	}
	if _, ok := bySymbol[first]; ok {
		return first
	}
	return ""
}
