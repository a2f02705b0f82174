package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCell(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"1,234", 1234, true},
		{"(1,234)", -1234, true},
		{"-(3)", -3, true},
		{"$5.50", 5.5, true},
		{"€ 1 000", 1000, true},
		{"12%", 0.12, true},
		{"(2.5%)", -0.025, true},
		{"−7", -7, true},
		{"0", 0, true},
		{"  42  ", 42, true},
		{"", 0, false},
		{"-", 0, false},
		{"—", 0, false},
		{"N/A", 0, false},
		{"nm", 0, false},
		{"()", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseCell(tc.raw)
		assert.Equal(t, tc.ok, ok, "ParseCell(%q)", tc.raw)
		if tc.ok {
			assert.InDelta(t, tc.want, got, 1e-12, "ParseCell(%q)", tc.raw)
		}
	}
}
