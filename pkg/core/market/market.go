// Package market supplies the price and capital-structure figures a
// valuation needs. Network clients live outside this module; the providers
// here read quotes from a YAML file or from memory.
package market

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"

	"fcf_valuation/pkg/core/diag"
)

// ErrUnknownTicker is wrapped in a *diag.DataFetchError when a provider has
// no quote for a ticker.
var ErrUnknownTicker = errors.New("no quote for ticker")

// Quote is the market snapshot for one ticker. NetDebt is optional; nil
// means the provider did not know it.
type Quote struct {
	Ticker            string   `json:"ticker" yaml:"-"`
	CurrentPrice      float64  `json:"current_price" yaml:"current_price"`
	SharesOutstanding float64  `json:"shares_outstanding" yaml:"shares_outstanding"`
	MarketCap         float64  `json:"market_cap" yaml:"market_cap"`
	NetDebt           *float64 `json:"net_debt" yaml:"net_debt"`
	// Defaulted lists the fields filled from configured defaults.
	Defaulted []string `json:"defaulted,omitempty" yaml:"-"`
}

// Provider returns the current quote for a ticker. Failures are
// *diag.DataFetchError.
type Provider interface {
	Quote(ctx context.Context, ticker string) (Quote, error)
}

// StaticProvider serves quotes from memory, keyed by upper-case ticker.
type StaticProvider map[string]Quote

func (p StaticProvider) Quote(ctx context.Context, ticker string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, err
	}
	q, ok := p[normalizeTicker(ticker)]
	if !ok {
		return Quote{}, &diag.DataFetchError{Ticker: ticker, Err: ErrUnknownTicker}
	}
	q.Ticker = normalizeTicker(ticker)
	return q, nil
}

// quotesFile is the on-disk layout of a FileProvider.
type quotesFile struct {
	Quotes map[string]Quote `yaml:"quotes"`
}

// FileProvider reads quotes from a YAML file on first use.
//
//	quotes:
//	  ACME:
//	    current_price: 42.5
//	    shares_outstanding: 1200
//	    net_debt: 350
type FileProvider struct {
	path string

	mu     sync.Mutex
	quotes StaticProvider
	err    error
}

// NewFileProvider creates a provider over path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Quote(ctx context.Context, ticker string) (Quote, error) {
	quotes, err := p.load()
	if err != nil {
		return Quote{}, &diag.DataFetchError{Ticker: ticker, Err: err}
	}
	return quotes.Quote(ctx, ticker)
}

// Reload forces the file to be read again on the next lookup.
func (p *FileProvider) Reload() {
	p.mu.Lock()
	p.quotes, p.err = nil, nil
	p.mu.Unlock()
}

func (p *FileProvider) load() (StaticProvider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.quotes != nil || p.err != nil {
		return p.quotes, p.err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		p.err = fmt.Errorf("failed to read quotes file: %w", err)
		return nil, p.err
	}
	var f quotesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		p.err = fmt.Errorf("failed to parse quotes file: %w", err)
		return nil, p.err
	}
	p.quotes = make(StaticProvider, len(f.Quotes))
	for t, q := range f.Quotes {
		p.quotes[normalizeTicker(t)] = q
	}
	return p.quotes, nil
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}

// Defaults fill quote fields a provider could not supply.
type Defaults struct {
	CurrentPrice      float64 `json:"current_price" yaml:"current_price"`
	SharesOutstanding float64 `json:"shares_outstanding" yaml:"shares_outstanding"`
	NetDebt           float64 `json:"net_debt" yaml:"net_debt"`
}

// Overrides are caller-supplied figures. They win over the provider.
type Overrides struct {
	CurrentPrice      *float64 `json:"current_price,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
	NetDebt           *float64 `json:"net_debt,omitempty"`
}

func (o Overrides) apply(q *Quote) {
	if o.CurrentPrice != nil {
		q.CurrentPrice = *o.CurrentPrice
	}
	if o.SharesOutstanding != nil {
		q.SharesOutstanding = *o.SharesOutstanding
	}
	if o.NetDebt != nil {
		nd := *o.NetDebt
		q.NetDebt = &nd
	}
	if o.CurrentPrice != nil || o.SharesOutstanding != nil {
		q.MarketCap = 0
	}
}

// Resolve fetches a quote, applies overrides and fills what is still
// missing from defaults. A *diag.DataFetchError becomes a warning; any other
// error (a cancelled context, for instance) is returned.
func Resolve(ctx context.Context, p Provider, ticker string, o Overrides, d Defaults) (Quote, []diag.Warning, error) {
	var warnings []diag.Warning

	q := Quote{Ticker: normalizeTicker(ticker)}
	if p != nil && ticker != "" {
		got, err := p.Quote(ctx, ticker)
		var df *diag.DataFetchError
		switch {
		case err == nil:
			q = got
		case errors.As(err, &df):
			warnings = append(warnings, diag.FromError(err, diag.CodeMarketDataDefault))
		default:
			return Quote{}, nil, err
		}
	}
	o.apply(&q)

	if q.SharesOutstanding <= 0 && q.MarketCap > 0 && q.CurrentPrice > 0 {
		q.SharesOutstanding = q.MarketCap / q.CurrentPrice
	}
	if q.CurrentPrice <= 0 && d.CurrentPrice > 0 && o.CurrentPrice == nil {
		q.CurrentPrice = d.CurrentPrice
		q.Defaulted = append(q.Defaulted, "current_price")
	}
	if q.SharesOutstanding <= 0 && o.SharesOutstanding == nil {
		q.SharesOutstanding = d.SharesOutstanding
		q.Defaulted = append(q.Defaulted, "shares_outstanding")
	}
	if q.NetDebt == nil {
		nd := d.NetDebt
		q.NetDebt = &nd
		q.Defaulted = append(q.Defaulted, "net_debt")
	}
	if q.MarketCap <= 0 {
		q.MarketCap = q.CurrentPrice * q.SharesOutstanding
	}

	if len(q.Defaulted) > 0 {
		warnings = append(warnings, diag.Warning{
			Code:    diag.CodeMarketDataDefault,
			Message: "using configured defaults for " + strings.Join(q.Defaulted, ", "),
		})
	}
	return q, warnings, nil
}

// NetDebtOrZero returns the quote's net debt, treating unknown as zero.
func (q Quote) NetDebtOrZero() float64 {
	if q.NetDebt == nil {
		return 0
	}
	return *q.NetDebt
}
