package statement

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	fullYearPattern  = regexp.MustCompile(`(?:^|\D)((?:19|20)\d{2})(?:\D|$)`)
	shortYearPattern = regexp.MustCompile(`(?i)(?:fy|[a-z]{3})[\s\-'/]*(\d{2})$`)
	trailingMarkers  = []string{"ltm", "ttm", "trailing", "current"}
)

// ParsePeriodYear extracts the fiscal year from a column header. It returns
// trailing=true for LTM/TTM style markers that carry no year of their own.
func ParsePeriodYear(header string) (year int, trailing bool, ok bool) {
	h := strings.TrimSpace(header)
	if h == "" {
		return 0, false, false
	}

	if m := fullYearPattern.FindStringSubmatch(h); m != nil {
		y, _ := strconv.Atoi(m[1])
		return y, false, true
	}
	if m := shortYearPattern.FindStringSubmatch(h); m != nil {
		yy, _ := strconv.Atoi(m[1])
		if yy > 50 {
			return 1900 + yy, false, true
		}
		return 2000 + yy, false, true
	}

	lower := strings.ToLower(h)
	for _, marker := range trailingMarkers {
		if strings.Contains(lower, marker) {
			return 0, true, true
		}
	}
	return 0, false, false
}

// findHeader returns the index of the header row and the grid columns that
// hold periods. The label column (0) is never treated as a period.
func findHeader(grid [][]string) (int, []int) {
	for i, row := range grid {
		var cols []int
		years := 0
		for c := 1; c < len(row); c++ {
			y, _, ok := ParsePeriodYear(row[c])
			if !ok {
				continue
			}
			cols = append(cols, c)
			if y > 0 {
				years++
			}
		}
		if years > 0 {
			return i, cols
		}
	}
	return -1, nil
}

// resolvePeriods turns header cells into periods. Trailing markers take the
// year after the latest dated column, matching how exports append an LTM
// column to the fiscal-year columns.
func resolvePeriods(header []string, cols []int) []Period {
	periods := make([]Period, len(cols))
	maxYear := 0
	for i, c := range cols {
		y, _, _ := ParsePeriodYear(header[c])
		periods[i] = Period{Label: strings.TrimSpace(header[c]), Year: y}
		if y > maxYear {
			maxYear = y
		}
	}
	for i := range periods {
		if periods[i].Year == 0 {
			maxYear++
			periods[i].Year = maxYear
		}
	}
	return periods
}
