package valuation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"fcf_valuation/pkg/core/diag"
)

// Assumptions drive one DCF projection. Rates are decimals (0.10 = 10%).
type Assumptions struct {
	DiscountRate       float64 `json:"discount_rate" yaml:"discount_rate" validate:"gt=-1"`
	TerminalGrowthRate float64 `json:"terminal_growth_rate" yaml:"terminal_growth_rate" validate:"gt=-1"`
	GrowthRatePhase1   float64 `json:"growth_rate_phase1" yaml:"growth_rate_phase1" validate:"gt=-1"`
	GrowthRatePhase2   float64 `json:"growth_rate_phase2" yaml:"growth_rate_phase2" validate:"gt=-1"`
	ProjectionYears    int     `json:"projection_years" yaml:"projection_years" validate:"gte=1,lte=50"`
	// Phase1Years is how many projection years use GrowthRatePhase1. Nil
	// means DefaultPhase1Years and zero puts every year in phase 2. Values
	// above ProjectionYears are clamped.
	Phase1Years *int `json:"phase1_years,omitempty" yaml:"phase1_years" validate:"omitempty,gte=0"`
}

// DefaultPhase1Years is the length of the high-growth phase.
const DefaultPhase1Years = 5

// DefaultAssumptions returns a conventional ten-year two-phase setup.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		DiscountRate:       0.10,
		TerminalGrowthRate: 0.025,
		GrowthRatePhase1:   0.08,
		GrowthRatePhase2:   0.04,
		ProjectionYears:    10,
		Phase1Years:        Years(DefaultPhase1Years),
	}
}

// Years returns a pointer to n for the optional Phase1Years field.
func Years(n int) *int {
	return &n
}

// EffectivePhase1Years returns k, clamped to [0, ProjectionYears].
func (a Assumptions) EffectivePhase1Years() int {
	k := DefaultPhase1Years
	if a.Phase1Years != nil {
		k = *a.Phase1Years
	}
	if k > a.ProjectionYears {
		k = a.ProjectionYears
	}
	if k < 0 {
		k = 0
	}
	return k
}

// WithRates returns a copy using discount rate r and terminal growth g.
func (a Assumptions) WithRates(r, g float64) Assumptions {
	a.DiscountRate = r
	a.TerminalGrowthRate = g
	return a
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// Validator returns the shared struct validator. Field names in errors use
// the json tag.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate checks field ranges and that terminal growth is below the
// discount rate. Every failure is a *diag.DomainError.
func (a Assumptions) Validate() error {
	if err := Validator().Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			value, _ := toFloat(fe.Value())
			return &diag.DomainError{
				Field:   fe.Field(),
				Value:   value,
				Message: fmt.Sprintf("failed %q constraint %s", fe.Tag(), fe.Param()),
			}
		}
		return err
	}
	if a.TerminalGrowthRate >= a.DiscountRate {
		return &diag.DomainError{
			Field:   "terminal_growth_rate",
			Value:   a.TerminalGrowthRate,
			Message: fmt.Sprintf("must be below discount_rate %g", a.DiscountRate),
		}
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
