package metrics

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"fcf_valuation/pkg/core/diag"
	"fcf_valuation/pkg/core/series"
	"fcf_valuation/pkg/core/statement"
	"fcf_valuation/pkg/core/synthesis"
)

// IncomeRecord holds the income-statement primitives.
type IncomeRecord struct {
	Revenue    series.Series `json:"revenue"`
	EBIT       series.Series `json:"ebit"`
	NetIncome  series.Series `json:"net_income"`
	TaxExpense series.Series `json:"tax_expense"`
	EBT        series.Series `json:"ebt"`
}

// BalanceRecord holds the balance-sheet primitives.
type BalanceRecord struct {
	CurrentAssets      series.Series `json:"current_assets"`
	CurrentLiabilities series.Series `json:"current_liabilities"`
}

// CashFlowRecord holds the cash-flow-statement primitives.
type CashFlowRecord struct {
	DepreciationAmortization series.Series `json:"depreciation_amortization"`
	OperatingCashFlow        series.Series `json:"operating_cash_flow"`
	CapitalExpenditure       series.Series `json:"capital_expenditure"`
	DebtIssued               series.Series `json:"debt_issued"`
	DebtRepaid               series.Series `json:"debt_repaid"`
}

// DerivedRecord holds series computed from the primitives.
type DerivedRecord struct {
	TaxRate              series.Series `json:"tax_rate"`
	WorkingCapitalChange series.Series `json:"working_capital_change"`
	NetBorrowing         series.Series `json:"net_borrowing"`
}

// Snapshot is the immutable result of one metrics build. Callers must not
// mutate the series it exposes; use Series, which returns copies.
type Snapshot struct {
	Key      string         `json:"key"`
	Income   IncomeRecord   `json:"income"`
	Balance  BalanceRecord  `json:"balance"`
	CashFlow CashFlowRecord `json:"cash_flow"`
	Derived  DerivedRecord  `json:"derived"`
	// Trailing lists the metrics whose final point came from the trailing window.
	Trailing []Metric       `json:"trailing,omitempty"`
	Warnings []diag.Warning `json:"warnings,omitempty"`
}

func (s *Snapshot) field(m Metric) *series.Series {
	switch m {
	case Revenue:
		return &s.Income.Revenue
	case EBIT:
		return &s.Income.EBIT
	case NetIncome:
		return &s.Income.NetIncome
	case TaxExpense:
		return &s.Income.TaxExpense
	case EBT:
		return &s.Income.EBT
	case CurrentAssets:
		return &s.Balance.CurrentAssets
	case CurrentLiabilities:
		return &s.Balance.CurrentLiabilities
	case DepreciationAmortization:
		return &s.CashFlow.DepreciationAmortization
	case OperatingCashFlow:
		return &s.CashFlow.OperatingCashFlow
	case CapitalExpenditure:
		return &s.CashFlow.CapitalExpenditure
	case DebtIssued:
		return &s.CashFlow.DebtIssued
	case DebtRepaid:
		return &s.CashFlow.DebtRepaid
	case TaxRate:
		return &s.Derived.TaxRate
	case WorkingCapitalChange:
		return &s.Derived.WorkingCapitalChange
	case NetBorrowing:
		return &s.Derived.NetBorrowing
	}
	return nil
}

// Series returns a copy of the named series, or an empty series for an
// unknown metric.
func (s *Snapshot) Series(m Metric) series.Series {
	if s == nil {
		return series.Series{}
	}
	if f := s.field(m); f != nil {
		return f.Clone()
	}
	return series.Series{}
}

// Build locates every catalog metric in ds, fuses history with the trailing
// window and computes the derived series. It never fails: problems become
// warnings on the snapshot. Build is deterministic for a given dataset and
// locator. A nil locator uses the default similarity threshold.
func Build(ds *statement.Dataset, loc *statement.Locator) *Snapshot {
	if loc == nil {
		loc = statement.NewLocator(statement.DefaultSimilarityThreshold, zerolog.Nop())
	}
	snap := &Snapshot{}
	if ds != nil {
		snap.Key = ds.Hash
	}

	for _, def := range Catalog {
		target, aliases := def.Labels[0], def.Labels[1:]

		hist, histErr := loc.Locate(ds.Table(statement.History, def.Statement), target, aliases...)

		var trail series.Series
		var trailErr error
		trailTable := ds.Table(statement.Trailing, def.Statement)
		if trailTable != nil {
			trail, trailErr = loc.Locate(trailTable, target, aliases...)
		}

		fused := synthesis.Fuse(hist, trail)
		*snap.field(def.Metric) = fused.Series
		if fused.TrailingApplied {
			snap.Trailing = append(snap.Trailing, def.Metric)
		}

		switch {
		case histErr != nil && fused.Series.IsEmpty():
			snap.warn(metricWarning(def, histErr))
		case histErr != nil:
			w := metricWarning(def, histErr)
			w.Message = fmt.Sprintf("%s; using trailing value only", w.Message)
			snap.warn(w)
		case trailTable != nil && trailErr != nil:
			snap.warn(diag.Warning{
				Code:      diag.CodeTrailingUnused,
				Metric:    string(def.Metric),
				Statement: string(def.Statement),
				Message:   "not found in trailing statement; latest point is fiscal-year history",
			})
		}

		if missing := fused.Series.MissingYears(); len(missing) > 0 {
			snap.warn(diag.Warning{
				Code:      diag.CodeMissingYears,
				Metric:    string(def.Metric),
				Statement: string(def.Statement),
				Years:     missing,
				Message:   "value absent for some periods",
			})
		}
	}

	snap.Derived.TaxRate = ComputeTaxRate(snap.Income.TaxExpense, snap.Income.EBT)

	wcc, err := ComputeWorkingCapitalChange(snap.Balance.CurrentAssets, snap.Balance.CurrentLiabilities)
	if err != nil {
		snap.warn(diag.FromError(err, diag.CodeInsufficientHistory))
	}
	snap.Derived.WorkingCapitalChange = wcc

	snap.Derived.NetBorrowing = ComputeNetBorrowing(snap.CashFlow.DebtIssued, snap.CashFlow.DebtRepaid)

	return snap
}

func (s *Snapshot) warn(w diag.Warning) {
	s.Warnings = append(s.Warnings, w)
}

// metricWarning reports the catalog metric name rather than the row label
// the locator searched for.
func metricWarning(def Definition, err error) diag.Warning {
	w := diag.FromError(err, diag.CodeMissingMetric)
	w.Metric = string(def.Metric)
	w.Statement = string(def.Statement)
	var mm *diag.MissingMetricError
	if errors.As(err, &mm) && mm.Source == "(none)" {
		w.Message = fmt.Sprintf("no %s statement loaded", def.Statement)
	}
	return w
}
