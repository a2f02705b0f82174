package statement

import (
	"strings"

	"github.com/shopspring/decimal"
)

// placeholders that exports use for "no figure".
var absentCells = map[string]bool{
	"-": true, "--": true, "—": true, "–": true,
	"n/a": true, "na": true, "nm": true, "n.m.": true,
	"#n/a": true, "null": true, "none": true,
}

var cellNoise = strings.NewReplacer(
	",", "",
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	" ", "",
	" ", "",
	"'", "",
	"−", "-", // unicode minus
)

// ParseCell converts a statement cell into a number. Thousands separators
// and currency symbols are stripped, "(1,234)" is -1234 and a trailing "%"
// divides by 100. Blank cells and dash/N/A placeholders report ok=false: they
// are absent, not zero.
func ParseCell(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || absentCells[strings.ToLower(s)] {
		return 0, false
	}

	s = cellNoise.Replace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "-("), ")")
	}

	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSuffix(s, "%")
	}
	if s == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	if percent {
		d = d.Div(decimal.NewFromInt(100))
	}
	if negative {
		d = d.Neg()
	}
	return d.InexactFloat64(), true
}
