package iv

import (
	"fmt"
	"math"
)

// minTimeToExpiry is about one hour in years, the floor below which the
// solver refuses to run for numerical stability.
const minTimeToExpiry = 1.0 / (365.0 * 24.0)

// SolverConfig tunes the Newton-Raphson solver's convergence behavior.
type SolverConfig struct {
	MaxIterations int
	Tolerance     float64
	InitialGuess  float64
	MinIV         float64
	MaxIV         float64
	MinVega       float64
}

// DefaultSolverConfig mirrors the reference implementation's defaults.
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations: 100,
		Tolerance:     1e-8,
		InitialGuess:  0.25,
		MinIV:         0.001,
		MaxIV:         5.0,
		MinVega:       1e-10,
	}
}

func (c SolverConfig) WithMaxIterations(n int) SolverConfig { c.MaxIterations = n; return c }
func (c SolverConfig) WithTolerance(t float64) SolverConfig { c.Tolerance = t; return c }
func (c SolverConfig) WithInitialGuess(g float64) SolverConfig { c.InitialGuess = g; return c }
func (c SolverConfig) WithBounds(min, max float64) SolverConfig {
	c.MinIV, c.MaxIV = min, max
	return c
}

func validateParams(p Params) error {
	if p.Spot <= 0 {
		return &InvalidParamsError{Message: fmt.Sprintf("spot price must be positive, got %g", p.Spot)}
	}
	if p.Strike <= 0 {
		return &InvalidParamsError{Message: fmt.Sprintf("strike price must be positive, got %g", p.Strike)}
	}
	if p.TimeToExpiry < 0 {
		return &InvalidParamsError{Message: fmt.Sprintf("time to expiry must be non-negative, got %g", p.TimeToExpiry)}
	}
	if p.TimeToExpiry < minTimeToExpiry {
		return &TimeToExpiryTooSmallError{TimeToExpiry: p.TimeToExpiry, MinTime: minTimeToExpiry}
	}
	return nil
}

// smartInitialGuess uses the Brenner-Subrahmanyam ATM approximation,
// clamped to a sane range, so the solver starts close to the root.
func smartInitialGuess(p Params, marketPrice float64) float64 {
	sqrtTime := math.Sqrt(p.TimeToExpiry)
	guess := marketPrice / (0.4 * p.Spot * sqrtTime)
	return clamp(guess, 0.05, 2.0)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Solve finds the volatility that makes the Black-Scholes price equal to
// marketPrice via Newton-Raphson, falling back to a damped step when
// vega is too small to divide by safely.
func Solve(p Params, marketPrice float64, cfg SolverConfig) (float64, int, error) {
	if err := validateParams(p); err != nil {
		return 0, 0, err
	}
	if marketPrice <= 0 {
		return 0, 0, &InvalidParamsError{Message: fmt.Sprintf("market price must be positive, got %g", marketPrice)}
	}

	intrinsic := p.IntrinsicValue()
	if marketPrice < intrinsic-cfg.Tolerance {
		return 0, 0, &PriceBelowIntrinsicError{Price: marketPrice, Intrinsic: intrinsic}
	}

	v := cfg.InitialGuess
	if math.Abs(cfg.InitialGuess-0.25) < 1e-10 {
		v = smartInitialGuess(p, marketPrice)
	}
	v = clamp(v, cfg.MinIV, cfg.MaxIV)

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		bsPrice := price(p, v)
		diff := bsPrice - marketPrice

		if math.Abs(diff) < cfg.Tolerance {
			if v < cfg.MinIV || v > cfg.MaxIV {
				return 0, 0, &VolatilityOutOfBoundsError{Volatility: v, MinBound: cfg.MinIV, MaxBound: cfg.MaxIV}
			}
			return v, iteration + 1, nil
		}

		vg := vega(p, v)
		if math.Abs(vg) < cfg.MinVega {
			if diff > 0 {
				v *= 0.9
			} else {
				v *= 1.1
			}
		} else {
			step := diff / vg
			if math.Abs(step) > 0.5 {
				step = math.Copysign(0.5, step)
			}
			v -= step
		}
		v = clamp(v, cfg.MinIV, cfg.MaxIV)
	}

	return 0, 0, &ConvergenceFailureError{Iterations: cfg.MaxIterations, LastIV: v}
}

// SolveBisection is a slower, always-converging fallback for when
// Newton-Raphson's derivative-based step misbehaves.
func SolveBisection(p Params, marketPrice float64, cfg SolverConfig) (float64, int, error) {
	if err := validateParams(p); err != nil {
		return 0, 0, err
	}
	if marketPrice <= 0 {
		return 0, 0, &InvalidParamsError{Message: fmt.Sprintf("market price must be positive, got %g", marketPrice)}
	}

	intrinsic := p.IntrinsicValue()
	if marketPrice < intrinsic-cfg.Tolerance {
		return 0, 0, &PriceBelowIntrinsicError{Price: marketPrice, Intrinsic: intrinsic}
	}

	low, high := cfg.MinIV, cfg.MaxIV
	priceLow := price(p, low)
	priceHigh := price(p, high)

	if marketPrice < priceLow || marketPrice > priceHigh {
		bound := cfg.MaxIV
		if marketPrice < priceLow {
			bound = cfg.MinIV
		}
		return 0, 0, &VolatilityOutOfBoundsError{Volatility: bound, MinBound: cfg.MinIV, MaxBound: cfg.MaxIV}
	}

	for iteration := 0; iteration < cfg.MaxIterations; iteration++ {
		mid := (low + high) / 2
		bsPrice := price(p, mid)
		diff := bsPrice - marketPrice

		if math.Abs(diff) < cfg.Tolerance || (high-low) < cfg.Tolerance {
			return mid, iteration + 1, nil
		}

		if diff > 0 {
			high = mid
		} else {
			low = mid
		}
	}

	return (low + high) / 2, 0, &ConvergenceFailureError{Iterations: cfg.MaxIterations, LastIV: (low + high) / 2}
}
