// Package config loads service configuration from a YAML file with
// environment overrides (prefix FCF).
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"fcf_valuation/pkg/core/market"
	"fcf_valuation/pkg/core/statement"
	"fcf_valuation/pkg/core/valuation"
)

// EnvPrefix prefixes every environment override, e.g. FCF_SERVER_PORT.
const EnvPrefix = "FCF"

// DefaultPath is read when no explicit file is given and FCF_CONFIG is unset.
const DefaultPath = "config/fcf.yaml"

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server" envconfig:"SERVER"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Locator     LocatorConfig     `yaml:"locator" envconfig:"LOCATOR"`
	Assumptions AssumptionsConfig `yaml:"assumptions" envconfig:"ASSUMPTIONS"`
	Market      MarketConfig      `yaml:"market" envconfig:"MARKET"`
	Sensitivity SensitivityConfig `yaml:"sensitivity" envconfig:"SENSITIVITY"`
	Store       StoreConfig       `yaml:"store" envconfig:"STORE"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	// DataRoot, when set, confines request directories to this tree.
	DataRoot string `yaml:"data_root" envconfig:"DATA_ROOT"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level         string `yaml:"level" envconfig:"LEVEL"`
	Format        string `yaml:"format" envconfig:"FORMAT"` // json, pretty
	FileEnabled   bool   `yaml:"file_enabled" envconfig:"FILE_ENABLED"`
	FilePath      string `yaml:"file_path" envconfig:"FILE_PATH"`
	RotationSize  int    `yaml:"rotation_size" envconfig:"ROTATION_SIZE"` // MB
	RetentionDays int    `yaml:"retention_days" envconfig:"RETENTION_DAYS"`
}

// LocatorConfig tunes the fuzzy line-item matcher.
type LocatorConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" envconfig:"SIMILARITY_THRESHOLD"`
}

// AssumptionsConfig holds the default DCF assumptions. When WACC.Enabled is
// set the discount rate is derived from the WACC inputs instead.
type AssumptionsConfig struct {
	DiscountRate       float64    `yaml:"discount_rate" envconfig:"DISCOUNT_RATE"`
	TerminalGrowthRate float64    `yaml:"terminal_growth_rate" envconfig:"TERMINAL_GROWTH_RATE"`
	GrowthRatePhase1   float64    `yaml:"growth_rate_phase1" envconfig:"GROWTH_RATE_PHASE1"`
	GrowthRatePhase2   float64    `yaml:"growth_rate_phase2" envconfig:"GROWTH_RATE_PHASE2"`
	ProjectionYears    int        `yaml:"projection_years" envconfig:"PROJECTION_YEARS"`
	Phase1Years        int        `yaml:"phase1_years" envconfig:"PHASE1_YEARS"`
	WACC               WACCConfig `yaml:"wacc" envconfig:"WACC"`
}

// WACCConfig mirrors valuation.WACCInput.
type WACCConfig struct {
	Enabled           bool    `yaml:"enabled" envconfig:"ENABLED"`
	UnleveredBeta     float64 `yaml:"unlevered_beta" envconfig:"UNLEVERED_BETA"`
	RiskFreeRate      float64 `yaml:"risk_free_rate" envconfig:"RISK_FREE_RATE"`
	MarketRiskPremium float64 `yaml:"market_risk_premium" envconfig:"MARKET_RISK_PREMIUM"`
	PreTaxCostOfDebt  float64 `yaml:"pre_tax_cost_of_debt" envconfig:"PRE_TAX_COST_OF_DEBT"`
	TaxRate           float64 `yaml:"tax_rate" envconfig:"TAX_RATE"`
	DebtToEquity      float64 `yaml:"debt_to_equity" envconfig:"DEBT_TO_EQUITY"`
}

// MarketConfig points at the quotes file and the fallback figures used when
// a ticker has no quote.
type MarketConfig struct {
	QuotesFile               string  `yaml:"quotes_file" envconfig:"QUOTES_FILE"`
	DefaultPrice             float64 `yaml:"default_price" envconfig:"DEFAULT_PRICE"`
	DefaultSharesOutstanding float64 `yaml:"default_shares_outstanding" envconfig:"DEFAULT_SHARES_OUTSTANDING"`
	DefaultNetDebt           float64 `yaml:"default_net_debt" envconfig:"DEFAULT_NET_DEBT"`
}

// SensitivityConfig sets the default grid spacing.
type SensitivityConfig struct {
	Steps        int     `yaml:"steps" envconfig:"STEPS"`
	DiscountStep float64 `yaml:"discount_step" envconfig:"DISCOUNT_STEP"`
	GrowthStep   float64 `yaml:"growth_step" envconfig:"GROWTH_STEP"`
}

// StoreConfig selects the snapshot and report backends. An empty
// DatabaseURL keeps everything on the file system.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`
	CacheDir    string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
	SaveReports bool   `yaml:"save_reports" envconfig:"SAVE_REPORTS"`
}

// Default returns the built-in configuration.
func Default() *Config {
	a := valuation.DefaultAssumptions()
	s := valuation.DefaultAxisSteps()
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:         "info",
			Format:        "json",
			FilePath:      "logs",
			RotationSize:  100,
			RetentionDays: 30,
		},
		Locator: LocatorConfig{SimilarityThreshold: statement.DefaultSimilarityThreshold},
		Assumptions: AssumptionsConfig{
			DiscountRate:       a.DiscountRate,
			TerminalGrowthRate: a.TerminalGrowthRate,
			GrowthRatePhase1:   a.GrowthRatePhase1,
			GrowthRatePhase2:   a.GrowthRatePhase2,
			ProjectionYears:    a.ProjectionYears,
			Phase1Years:        *a.Phase1Years,
		},
		Sensitivity: SensitivityConfig{Steps: s.Steps, DiscountStep: s.DiscountStep, GrowthStep: s.GrowthStep},
		Store:       StoreConfig{CacheDir: ".cache/snapshots"},
	}
}

// Load builds the configuration in three layers: built-in defaults, the
// YAML file, then FCF_* environment variables. An explicit path must exist;
// the default path is optional.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = getConfigFilePath()
	}

	cfg := Default()
	if err := loadFromFile(path, cfg); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadFromFile decodes the file over cfg; keys absent from the file keep
// their current values.
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	switch c.Logging.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("logging.format must be json or pretty, got %q", c.Logging.Format)
	}
	if t := c.Locator.SimilarityThreshold; t <= 0 || t > 1 {
		return fmt.Errorf("locator.similarity_threshold must be in (0, 1], got %g", t)
	}
	if c.Market.DefaultSharesOutstanding < 0 {
		return fmt.Errorf("market.default_shares_outstanding must not be negative")
	}
	if c.Sensitivity.Steps < 0 {
		return fmt.Errorf("sensitivity.steps must not be negative")
	}
	if _, err := c.ValuationAssumptions(); err != nil {
		return err
	}
	return nil
}

// ValuationAssumptions returns the validated default assumptions, deriving
// the discount rate from WACC inputs when enabled.
func (c *Config) ValuationAssumptions() (valuation.Assumptions, error) {
	ac := c.Assumptions
	a := valuation.Assumptions{
		DiscountRate:       ac.DiscountRate,
		TerminalGrowthRate: ac.TerminalGrowthRate,
		GrowthRatePhase1:   ac.GrowthRatePhase1,
		GrowthRatePhase2:   ac.GrowthRatePhase2,
		ProjectionYears:    ac.ProjectionYears,
		Phase1Years:        valuation.Years(ac.Phase1Years),
	}
	if ac.WACC.Enabled {
		res, err := valuation.CalculateWACC(valuation.WACCInput{
			UnleveredBeta:     ac.WACC.UnleveredBeta,
			RiskFreeRate:      ac.WACC.RiskFreeRate,
			MarketRiskPremium: ac.WACC.MarketRiskPremium,
			PreTaxCostOfDebt:  ac.WACC.PreTaxCostOfDebt,
			TaxRate:           ac.WACC.TaxRate,
			DebtToEquityRatio: ac.WACC.DebtToEquity,
		})
		if err != nil {
			return valuation.Assumptions{}, fmt.Errorf("assumptions.wacc: %w", err)
		}
		a.DiscountRate = res.WACC
	}
	if err := a.Validate(); err != nil {
		return valuation.Assumptions{}, err
	}
	return a, nil
}

// MarketDefaults returns the fallback quote figures.
func (c *Config) MarketDefaults() market.Defaults {
	return market.Defaults{
		CurrentPrice:      c.Market.DefaultPrice,
		SharesOutstanding: c.Market.DefaultSharesOutstanding,
		NetDebt:           c.Market.DefaultNetDebt,
	}
}

// AxisSteps returns the sensitivity grid spacing.
func (c *Config) AxisSteps() valuation.AxisSteps {
	return valuation.AxisSteps{
		Steps:        c.Sensitivity.Steps,
		DiscountStep: c.Sensitivity.DiscountStep,
		GrowthStep:   c.Sensitivity.GrowthStep,
	}
}
