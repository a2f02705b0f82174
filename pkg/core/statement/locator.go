package statement

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"

	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/series"
)

// DefaultSimilarityThreshold is the minimum similarity a row label needs
// when neither an exact nor a substring match exists.
const DefaultSimilarityThreshold = 0.80

// Match methods, in priority order.
const (
	MatchExact      = "exact"
	MatchSubstring  = "substring"
	MatchSimilarity = "similarity"
)

// Match describes the row chosen for a target line item.
type Match struct {
	Row    int
	Label  string
	Score  float64
	Method string
}

// Locator finds named line items in statement tables.
type Locator struct {
	threshold float64
	logger    zerolog.Logger
}

// NewLocator creates a locator. A threshold outside (0, 1] falls back to
// DefaultSimilarityThreshold.
func NewLocator(threshold float64, logger zerolog.Logger) *Locator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Locator{
		threshold: threshold,
		logger:    logger.With().Str("component", "locator").Logger(),
	}
}

// Threshold returns the similarity threshold in use.
func (l *Locator) Threshold() float64 { return l.threshold }

// Locate extracts the series of the row best matching target (or one of its
// aliases). When nothing clears the threshold it returns an empty series and
// a *diag.MissingMetricError; callers treat that as a warning.
func (l *Locator) Locate(t *Table, target string, aliases ...string) (series.Series, error) {
	if t == nil {
		return series.Series{}, &diag.MissingMetricError{Metric: target, Statement: "(none)", Source: "(none)"}
	}

	m, best, ok := l.Find(t, append([]string{target}, aliases...)...)
	if !ok {
		l.logger.Warn().
			Str("metric", target).
			Str("statement", string(t.Kind())).
			Str("source", string(t.Source())).
			Str("table", t.Name()).
			Str("closest", best.Label).
			Float64("score", best.Score).
			Msg("metric not found")
		return series.Series{}, &diag.MissingMetricError{
			Metric:    target,
			Statement: string(t.Kind()),
			Source:    string(t.Source()),
			BestLabel: best.Label,
			BestScore: best.Score,
		}
	}

	l.logger.Debug().
		Str("metric", target).
		Str("row", m.Label).
		Str("method", m.Method).
		Float64("score", m.Score).
		Msg("metric located")

	return extractRow(t, m.Row), nil
}

// Find picks the best row for the given names, trying them in order.
// Priority: 1) exact label, 2) whole-word substring (rows with numbers
// first, then the shortest label), 3) similarity >= threshold. The second
// return value is the closest candidate seen, for diagnostics.
func (l *Locator) Find(t *Table, names ...string) (Match, Match, bool) {
	labels := make([]string, t.NumRows())
	hasData := make([]bool, t.NumRows())
	for i := 0; i < t.NumRows(); i++ {
		r := t.rows[i]
		labels[i] = normalizeLabel(r.Label)
		for _, c := range r.Cells {
			if _, ok := ParseCell(c); ok {
				hasData[i] = true
				break
			}
		}
	}

	// 1. exact
	for _, name := range names {
		target := normalizeLabel(name)
		if target == "" {
			continue
		}
		exact := -1
		for i, label := range labels {
			if label != target {
				continue
			}
			if exact < 0 || (hasData[i] && !hasData[exact]) {
				exact = i
			}
		}
		if exact >= 0 {
			return Match{Row: exact, Label: t.rows[exact].Label, Score: 1, Method: MatchExact}, Match{}, true
		}
	}

	// 2. whole-word substring
	for _, name := range names {
		target := normalizeLabel(name)
		if target == "" {
			continue
		}
		pattern := regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(target) + `($|[^a-z0-9])`)
		pick, pickPrefix := -1, false
		for i, label := range labels {
			matched, prefix := wordMatch(pattern, label)
			if !matched {
				continue
			}
			switch {
			case pick < 0:
			case hasData[i] != hasData[pick]:
				if !hasData[i] {
					continue
				}
			case prefix != pickPrefix:
				if !prefix {
					continue
				}
			case len(label) >= len(labels[pick]):
				continue
			}
			pick, pickPrefix = i, prefix
		}
		if pick >= 0 {
			score := float64(len(target)) / float64(len(labels[pick]))
			return Match{Row: pick, Label: t.rows[pick].Label, Score: score, Method: MatchSubstring}, Match{}, true
		}
	}

	// 3. similarity
	var best Match
	best.Row = -1
	for _, name := range names {
		target := normalizeLabel(name)
		if target == "" {
			continue
		}
		for i, label := range labels {
			score := Similarity(target, label)
			if score > best.Score || (score == best.Score && best.Row >= 0 && hasData[i] && !hasData[best.Row]) {
				best = Match{Row: i, Label: t.rows[i].Label, Score: score, Method: MatchSimilarity}
			}
		}
	}
	if best.Row >= 0 && best.Score >= l.threshold {
		return best, best, true
	}
	return Match{}, best, false
}

// Similarity is 1 - levenshtein(a, b) / max(len(a), len(b)), measured in
// runes on the normalized labels.
func Similarity(a, b string) float64 {
	a, b = normalizeLabel(a), normalizeLabel(b)
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// negatingWords qualify a line item into a different one: "non-operating
// income" and "other operating income" are not operating income.
var negatingWords = map[string]bool{"non": true, "other": true}

// wordMatch reports whether pattern occurs in label without a negating word
// directly before it, and whether such an occurrence starts the label.
func wordMatch(pattern *regexp.Regexp, label string) (matched, prefix bool) {
	for _, m := range pattern.FindAllStringSubmatchIndex(label, -1) {
		start := m[3]
		words := strings.FieldsFunc(label[:start], func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if len(words) > 0 && negatingWords[words[len(words)-1]] {
			continue
		}
		matched = true
		if start == 0 {
			prefix = true
		}
	}
	return matched, prefix
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ":*")
	return strings.Join(strings.Fields(s), " ")
}

func extractRow(t *Table, i int) series.Series {
	r := t.rows[i]
	out := series.Series{
		Years:  t.Years(),
		Values: make([]*float64, len(r.Cells)),
	}
	for c, cell := range r.Cells {
		if v, ok := ParseCell(cell); ok {
			out.Values[c] = series.Float(v)
		}
	}
	return out
}
