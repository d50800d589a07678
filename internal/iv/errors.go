package iv

import "fmt"

// NoPriceAvailableError reports an empty or crossed book with no usable
// bid/ask to derive a market price from.
type NoPriceAvailableError struct{}

func (NoPriceAvailableError) Error() string { return "iv: no valid price available from order book" }

// SpreadTooWideError reports a spread wider than the caller's acceptable
// threshold for a reliable calculation.
type SpreadTooWideError struct {
	SpreadBps    float64
	ThresholdBps float64
}

func (e *SpreadTooWideError) Error() string {
	return fmt.Sprintf("iv: spread too wide: %.1f bps exceeds threshold of %.1f bps", e.SpreadBps, e.ThresholdBps)
}

// ConvergenceFailureError reports that the Newton-Raphson solver ran out
// of iterations before satisfying its tolerance.
type ConvergenceFailureError struct {
	Iterations int
	LastIV     float64
}

func (e *ConvergenceFailureError) Error() string {
	return fmt.Sprintf("iv: solver did not converge after %d iterations, last IV: %.4f", e.Iterations, e.LastIV)
}

// InvalidParamsError reports a malformed option contract input.
type InvalidParamsError struct {
	Message string
}

func (e *InvalidParamsError) Error() string { return fmt.Sprintf("iv: invalid parameters: %s", e.Message) }

// PriceBelowIntrinsicError reports an observed market price that implies
// an arbitrage opportunity against the option's intrinsic value.
type PriceBelowIntrinsicError struct {
	Price     float64
	Intrinsic float64
}

func (e *PriceBelowIntrinsicError) Error() string {
	return fmt.Sprintf("iv: price %.4f is below intrinsic value %.4f", e.Price, e.Intrinsic)
}

// TimeToExpiryTooSmallError reports an option too close to expiry for
// numerically stable solving.
type TimeToExpiryTooSmallError struct {
	TimeToExpiry float64
	MinTime      float64
}

func (e *TimeToExpiryTooSmallError) Error() string {
	return fmt.Sprintf("iv: time to expiry %.6f years is below minimum %.6f years", e.TimeToExpiry, e.MinTime)
}

// VolatilityOutOfBoundsError reports a solved (or bisection-bracketed)
// volatility outside the configured bounds.
type VolatilityOutOfBoundsError struct {
	Volatility float64
	MinBound   float64
	MaxBound   float64
}

func (e *VolatilityOutOfBoundsError) Error() string {
	return fmt.Sprintf("iv: volatility %.4f is outside bounds [%.4f, %.4f]", e.Volatility, e.MinBound, e.MaxBound)
}
