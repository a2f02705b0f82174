package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"fcf_valuation/pkg/core/analysis"
)

var concurrency int

var batchCmd = &cobra.Command{
	Use:   "batch <dir>...",
	Short: "Value several companies concurrently",
	Long: `Value several companies concurrently, one engine per directory.
The ticker of each company is its directory name. A failing company is
reported in the output and does not stop the others.

Examples:
  fcf batch ./data/* --concurrency 8 -o reports.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	addRequestFlags(batchCmd)
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "companies valued at the same time")
}

// BatchResult is one company's outcome.
type BatchResult struct {
	Dir    string           `json:"dir"`
	Ticker string           `json:"ticker"`
	Report *analysis.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	requests := make([]analysis.Request, len(args))
	for i, dir := range args {
		req, err := buildRequest(cmd, dir, "")
		if err != nil {
			return err
		}
		requests[i] = req
	}

	results, err := valuateAll(cmd.Context(), services.Factory.ForDir, args, requests, concurrency)
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	log.Info().Int("companies", len(results)).Int("failed", failed).Msg("batch complete")

	if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
		return err
	}
	if failed == len(results) {
		return fmt.Errorf("all %d valuations failed", failed)
	}
	return nil
}

// valuateAll runs one engine per directory with at most limit running at
// once. Per-company failures land in the results; only cancellation aborts
// the batch.
func valuateAll(ctx context.Context, newEngine func(dir string) *analysis.Engine, dirs []string, requests []analysis.Request, limit int) ([]BatchResult, error) {
	results := make([]BatchResult, len(dirs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i := range dirs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res := BatchResult{Dir: dirs[i], Ticker: requests[i].Ticker}
			report, err := newEngine(dirs[i]).Run(gctx, requests[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				res.Error = err.Error()
				log.Warn().Err(err).Str("dir", dirs[i]).Msg("valuation failed")
			} else {
				res.Report = report
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
