// Package metrics builds the per-dataset metric snapshot: every primitive
// line item located, fused with the trailing window, plus the derived series
// the FCF formulas need.
package metrics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"fcf_valuation/pkg/core/statement"
)

// Metric names a primitive or derived series.
type Metric string

// Primitive metrics.
const (
	Revenue                  Metric = "revenue"
	EBIT                     Metric = "ebit"
	NetIncome                Metric = "net_income"
	TaxExpense               Metric = "tax_expense"
	EBT                      Metric = "ebt"
	CurrentAssets            Metric = "current_assets"
	CurrentLiabilities       Metric = "current_liabilities"
	DepreciationAmortization Metric = "depreciation_amortization"
	OperatingCashFlow        Metric = "operating_cash_flow"
	CapitalExpenditure       Metric = "capital_expenditure"
	DebtIssued               Metric = "debt_issued"
	DebtRepaid               Metric = "debt_repaid"
)

// Derived metrics.
const (
	TaxRate              Metric = "tax_rate"
	WorkingCapitalChange Metric = "working_capital_change"
	NetBorrowing         Metric = "net_borrowing"
)

// Definition tells the locator where a primitive lives and which row labels
// it goes by. The first label is the canonical one.
type Definition struct {
	Metric    Metric
	Statement statement.Kind
	Labels    []string
}

// Catalog lists every primitive metric the snapshot extracts.
var Catalog = []Definition{
	{Revenue, statement.Income, []string{"Total Revenue", "Revenue", "Net Sales", "Total Net Sales", "Sales"}},
	{EBIT, statement.Income, []string{"EBIT", "Operating Income", "Operating Profit", "Income from Operations"}},
	{NetIncome, statement.Income, []string{"Net Income", "Net Income to Common", "Net Earnings", "Profit for the Year"}},
	{TaxExpense, statement.Income, []string{"Income Tax Expense", "Provision for Income Taxes", "Income Taxes", "Income Tax", "Tax Expense"}},
	{EBT, statement.Income, []string{"EBT", "Income Before Taxes", "Pretax Income", "Earnings Before Taxes", "Income Before Income Taxes", "Profit Before Tax"}},
	{CurrentAssets, statement.Balance, []string{"Total Current Assets", "Current Assets"}},
	{CurrentLiabilities, statement.Balance, []string{"Total Current Liabilities", "Current Liabilities"}},
	{DepreciationAmortization, statement.CashFlow, []string{"Depreciation & Amortization", "Depreciation and Amortization", "Depreciation, Amortization", "Depreciation"}},
	{OperatingCashFlow, statement.CashFlow, []string{"Cash from Operations", "Net Cash from Operating Activities", "Net Cash Provided by Operating Activities", "Operating Cash Flow", "Cash Flow from Operating Activities"}},
	{CapitalExpenditure, statement.CashFlow, []string{"Capital Expenditure", "Capital Expenditures", "Purchase of Property, Plant and Equipment", "Purchases of Property and Equipment", "CapEx"}},
	{DebtIssued, statement.CashFlow, []string{"Total Debt Issued", "Debt Issued", "Issuance of Debt", "Proceeds from Borrowings", "Long-Term Debt Issued"}},
	{DebtRepaid, statement.CashFlow, []string{"Total Debt Repaid", "Debt Repaid", "Repayment of Debt", "Repayments of Borrowings", "Long-Term Debt Repaid"}},
}

// Lookup returns the catalog entry for m.
func Lookup(m Metric) (Definition, bool) {
	for _, d := range Catalog {
		if d.Metric == m {
			return d, true
		}
	}
	return Definition{}, false
}

// catalogVersion fingerprints Catalog. Editing a label list changes it and
// so retires snapshots stored under the old aliases.
var catalogVersion = func() string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%v", Catalog)))
	return hex.EncodeToString(sum[:6])
}()
