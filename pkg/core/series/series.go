// Package series holds the year-indexed metric series shared by the
// extraction, cache and calculation layers.
package series

import (
	"fmt"
	"sort"
)

// Series is an ordered sequence of optional values indexed by ascending
// fiscal year. A nil value means the figure was absent in the source, which
// is not the same as zero.
type Series struct {
	Years  []int      `json:"years"`
	Values []*float64 `json:"values"`
}

// Float returns a pointer to v. Used when building series by hand.
func Float(v float64) *float64 {
	return &v
}

// New builds a series from parallel year/value slices. Years must be strictly
// ascending.
func New(years []int, values []*float64) (Series, error) {
	if len(years) != len(values) {
		return Series{}, fmt.Errorf("series: %d years but %d values", len(years), len(values))
	}
	for i := 1; i < len(years); i++ {
		if years[i] <= years[i-1] {
			return Series{}, fmt.Errorf("series: years not ascending at index %d (%d after %d)", i, years[i], years[i-1])
		}
	}
	s := Series{
		Years:  append([]int(nil), years...),
		Values: make([]*float64, len(values)),
	}
	for i, v := range values {
		if v != nil {
			s.Values[i] = Float(*v)
		}
	}
	return s, nil
}

// FromFloats builds a dense series with consecutive years starting at first.
func FromFloats(first int, values ...float64) Series {
	s := Series{
		Years:  make([]int, len(values)),
		Values: make([]*float64, len(values)),
	}
	for i, v := range values {
		s.Years[i] = first + i
		s.Values[i] = Float(v)
	}
	return s
}

// Len returns the number of points, present or absent.
func (s Series) Len() int {
	return len(s.Years)
}

// IsEmpty reports whether the series has no points at all.
func (s Series) IsEmpty() bool {
	return len(s.Years) == 0
}

// HasData reports whether at least one point is present.
func (s Series) HasData() bool {
	for _, v := range s.Values {
		if v != nil {
			return true
		}
	}
	return false
}

// At returns the value at index i and whether it is present.
func (s Series) At(i int) (float64, bool) {
	if i < 0 || i >= len(s.Values) || s.Values[i] == nil {
		return 0, false
	}
	return *s.Values[i], true
}

// Value returns the value for a fiscal year and whether it is present.
func (s Series) Value(year int) (float64, bool) {
	i := sort.SearchInts(s.Years, year)
	if i < len(s.Years) && s.Years[i] == year {
		return s.At(i)
	}
	return 0, false
}

// Latest returns the most recent present value and its year.
func (s Series) Latest() (year int, v float64, ok bool) {
	for i := len(s.Values) - 1; i >= 0; i-- {
		if s.Values[i] != nil {
			return s.Years[i], *s.Values[i], true
		}
	}
	return 0, 0, false
}

// MissingYears lists the years whose value is absent.
func (s Series) MissingYears() []int {
	var out []int
	for i, v := range s.Values {
		if v == nil {
			out = append(out, s.Years[i])
		}
	}
	return out
}

// Floats returns the values as a dense slice. It fails if any point is
// absent, so callers cannot silently treat a gap as zero.
func (s Series) Floats() ([]float64, error) {
	out := make([]float64, len(s.Values))
	for i, v := range s.Values {
		if v == nil {
			return nil, fmt.Errorf("series: value for %d is absent", s.Years[i])
		}
		out[i] = *v
	}
	return out, nil
}

// Clone returns a deep copy.
func (s Series) Clone() Series {
	return s.Map(func(_ int, v float64) float64 { return v })
}

// Map applies fn to every present value; absent values stay absent.
func (s Series) Map(fn func(year int, v float64) float64) Series {
	out := Series{
		Years:  append([]int(nil), s.Years...),
		Values: make([]*float64, len(s.Values)),
	}
	for i, v := range s.Values {
		if v != nil {
			out.Values[i] = Float(fn(s.Years[i], *v))
		}
	}
	return out
}
