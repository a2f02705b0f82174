package cmd

import (
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"fcf_valuation/pkg/core/analysis"
	"fcf_valuation/pkg/core/calc"
)

// requestFlags are shared by valuate and batch.
type requestFlags struct {
	ticker         string
	fcfType        string
	discountRate   float64
	terminalGrowth float64
	price          float64
	shares         float64
	netDebt        float64
}

var flags requestFlags

var valuateCmd = &cobra.Command{
	Use:   "valuate <dir>",
	Short: "Value one company",
	Long: `Value one company from its statement directory and print the report.

Examples:
  fcf valuate ./data/acme --ticker ACME
  fcf valuate ./data/acme --fcf-type lfcf --discount-rate 0.09 --terminal-growth 0.02`,
	Args: cobra.ExactArgs(1),
	RunE: runValuate,
}

func init() {
	addRequestFlags(valuateCmd)
	valuateCmd.Flags().StringVar(&flags.ticker, "ticker", "", "ticker for market data (default: directory name)")
}

func addRequestFlags(c *cobra.Command) {
	c.Flags().StringVar(&flags.fcfType, "fcf-type", "", "free cash flow definition: fcff, fcfe or lfcf")
	c.Flags().Float64Var(&flags.discountRate, "discount-rate", 0, "override the discount rate")
	c.Flags().Float64Var(&flags.terminalGrowth, "terminal-growth", 0, "override the terminal growth rate")
	c.Flags().Float64Var(&flags.price, "price", 0, "override the current share price")
	c.Flags().Float64Var(&flags.shares, "shares", 0, "override shares outstanding")
	c.Flags().Float64Var(&flags.netDebt, "net-debt", 0, "override net debt")
}

func runValuate(cmd *cobra.Command, args []string) error {
	dir := args[0]
	engine := services.Factory.ForDir(dir)
	req, err := buildRequest(cmd, dir, flags.ticker)
	if err != nil {
		return err
	}
	report, err := engine.Run(cmd.Context(), req)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), report)
}

// buildRequest turns the flags that were actually set into a request.
func buildRequest(cmd *cobra.Command, dir, ticker string) (analysis.Request, error) {
	if ticker == "" {
		ticker = tickerFromDir(dir)
	}
	req := analysis.Request{Ticker: ticker, FCFType: calc.FCFType(flags.fcfType)}

	set := cmd.Flags().Changed
	if set("discount-rate") || set("terminal-growth") {
		a, err := services.Config.ValuationAssumptions()
		if err != nil {
			return req, err
		}
		r, g := a.DiscountRate, a.TerminalGrowthRate
		if set("discount-rate") {
			r = flags.discountRate
		}
		if set("terminal-growth") {
			g = flags.terminalGrowth
		}
		a = a.WithRates(r, g)
		req.Assumptions = &a
	}
	if set("price") {
		req.CurrentPrice = float64Ptr(flags.price)
	}
	if set("shares") {
		req.SharesOutstanding = float64Ptr(flags.shares)
	}
	if set("net-debt") {
		req.NetDebt = float64Ptr(flags.netDebt)
	}
	return req, nil
}

func tickerFromDir(dir string) string {
	return strings.ToUpper(filepath.Base(filepath.Clean(dir)))
}

func float64Ptr(f float64) *float64 { return &f }
