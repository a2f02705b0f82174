// Package diag defines the error taxonomy of the valuation core and the
// structured warning records that accompany every computed result.
//
// Extraction-level problems (MissingMetricError, InsufficientHistoryError,
// DataFetchError) are recovered where they happen and turned into warnings.
// DomainError is a calculation-level violation and is always returned to
// the caller.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// MissingMetricError means a line item could not be located in a statement.
type MissingMetricError struct {
	Metric    string
	Statement string
	Source    string // "history" or "trailing"
	BestLabel string // closest row label seen, if any
	BestScore float64
}

func (e *MissingMetricError) Error() string {
	msg := fmt.Sprintf("metric not found: %s in %s %s statement", e.Metric, e.Source, e.Statement)
	if e.BestLabel != "" {
		msg += fmt.Sprintf(" (closest row %q scored %.2f)", e.BestLabel, e.BestScore)
	}
	return msg
}

// InsufficientHistoryError means a delta-based metric needs more periods
// than are available.
type InsufficientHistoryError struct {
	Metric string
	Have   int
	Need   int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: have %d periods, need %d", e.Metric, e.Have, e.Need)
}

// DomainError is an input outside the domain of a valuation formula, such
// as a terminal growth rate at or above the discount rate.
type DomainError struct {
	Field   string
	Value   float64
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("domain error: %s=%g: %s", e.Field, e.Value, e.Message)
}

// DataFetchError wraps a failure of the market-data collaborator.
type DataFetchError struct {
	Ticker string
	Err    error
}

func (e *DataFetchError) Error() string {
	return fmt.Sprintf("market data unavailable for %s: %v", e.Ticker, e.Err)
}

func (e *DataFetchError) Unwrap() error {
	return e.Err
}

// IsDomain reports whether err is or wraps a DomainError.
func IsDomain(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

// Warning codes.
const (
	CodeMissingMetric       = "missing_metric"
	CodeMissingYears        = "missing_years"
	CodeInsufficientHistory = "insufficient_history"
	CodeNotComputable       = "fcf_not_computable"
	CodeMarketDataDefault   = "market_data_default"
	CodeTrailingUnused      = "trailing_unused"
	CodeDCFSkipped          = "dcf_skipped"
)

// Warning is a structured, user-visible record of a recovered problem.
type Warning struct {
	Code      string `json:"code"`
	Metric    string `json:"metric,omitempty"`
	Statement string `json:"statement,omitempty"`
	Years     []int  `json:"years,omitempty"`
	Message   string `json:"message"`
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString("[")
	b.WriteString(w.Code)
	b.WriteString("] ")
	if w.Metric != "" {
		b.WriteString(w.Metric)
		b.WriteString(": ")
	}
	b.WriteString(w.Message)
	if len(w.Years) > 0 {
		fmt.Fprintf(&b, " %v", w.Years)
	}
	return b.String()
}

// FromError converts a recoverable error into a warning. Unknown errors keep
// their message under the given fallback code.
func FromError(err error, fallbackCode string) Warning {
	var (
		mm *MissingMetricError
		ih *InsufficientHistoryError
		df *DataFetchError
	)
	switch {
	case errors.As(err, &mm):
		return Warning{Code: CodeMissingMetric, Metric: mm.Metric, Statement: mm.Statement, Message: err.Error()}
	case errors.As(err, &ih):
		return Warning{Code: CodeInsufficientHistory, Metric: ih.Metric, Message: err.Error()}
	case errors.As(err, &df):
		return Warning{Code: CodeMarketDataDefault, Message: err.Error()}
	default:
		return Warning{Code: fallbackCode, Message: err.Error()}
	}
}
