package periodic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbol(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Fe", "Fe"},
		{"Fe1", "Fe"},
		{"fe_up", "Fe"},
		{"O2-", "O"},
		{"C", "C"},
		{"Co", "Co"},
		{"Hx", "H"},
		{"  Si ", "Si"},
		{"1H", ""},
		{"", ""},
		{"Qq", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Symbol(tt.label))
		})
	}
}

func TestDefaultMass(t *testing.T) {
	assert.InDelta(t, 12.011, Default.DefaultMass("C"), 1e-9)
	assert.InDelta(t, 55.845, Default.DefaultMass("Fe"), 1e-9)
	assert.Equal(t, FallbackMass, Default.DefaultMass("Xx"))
}

func TestTableIsComplete(t *testing.T) {
	for i, e := range elements {
		assert.Equal(t, i+1, e.Number, "element %s out of order", e.Symbol)
		assert.Greater(t, e.Mass, 0.0)
	}
	assert.Len(t, bySymbol, len(elements))
}
