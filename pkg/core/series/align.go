package series

import "fmt"

// AlignmentError reports series that cannot be combined index by index.
type AlignmentError struct {
	Input  int // position of the offending series in the argument list
	Reason string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("series misaligned: input %d: %s", e.Input, e.Reason)
}

// CheckAligned asserts that every series has the same length, the same year
// at every index and no absent values. Formulas that combine series element
// by element call this before touching any value.
func CheckAligned(ss ...Series) error {
	if len(ss) == 0 {
		return nil
	}
	ref := ss[0]
	for n, s := range ss {
		if len(s.Years) != len(s.Values) {
			return &AlignmentError{Input: n, Reason: fmt.Sprintf("%d years but %d values", len(s.Years), len(s.Values))}
		}
		if s.Len() != ref.Len() {
			return &AlignmentError{Input: n, Reason: fmt.Sprintf("length %d, want %d", s.Len(), ref.Len())}
		}
		for i, y := range s.Years {
			if y != ref.Years[i] {
				return &AlignmentError{Input: n, Reason: fmt.Sprintf("year %d at index %d, want %d", y, i, ref.Years[i])}
			}
			if s.Values[i] == nil {
				return &AlignmentError{Input: n, Reason: fmt.Sprintf("absent value for %d", y)}
			}
		}
	}
	return nil
}

// Align joins series by fiscal year and keeps only the years where every
// input has a present value. The returned series share one year index and
// pass CheckAligned. If any input is empty the result is a set of empty
// series.
func Align(ss ...Series) []Series {
	out := make([]Series, len(ss))
	if len(ss) == 0 {
		return out
	}

	var years []int
	for _, y := range ss[0].Years {
		complete := true
		for _, s := range ss {
			if _, ok := s.Value(y); !ok {
				complete = false
				break
			}
		}
		if complete {
			years = append(years, y)
		}
	}

	for n, s := range ss {
		aligned := Series{
			Years:  make([]int, len(years)),
			Values: make([]*float64, len(years)),
		}
		for i, y := range years {
			v, _ := s.Value(y)
			aligned.Years[i] = y
			aligned.Values[i] = Float(v)
		}
		out[n] = aligned
	}
	return out
}
