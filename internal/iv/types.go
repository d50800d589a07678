// Package iv solves for Black-Scholes implied volatility from an order
// book's quoted price, grounded on the reference implementation's
// implied_volatility module and cross-checked against
// johnayoung-go-crypto-quant-toolkit's blackscholes package.
package iv

// OptionType discriminates a call from a put.
type OptionType int

const (
	Call OptionType = iota
	Put
)

// PriceSource names which order-book-derived price an IV calculation
// should use.
type PriceSource int

const (
	// MidPrice is (bid+ask)/2. The zero value, matching the Rust default.
	MidPrice PriceSource = iota
	// WeightedMid is (bestBid*askQty + bestAsk*bidQty) / (askQty + bidQty),
	// the same formula as OrderBook.MicroPrice.
	WeightedMid
	LastTrade
)

// Quality buckets an IV result by the liquidity it was derived from.
type Quality int

const (
	QualityHigh Quality = iota
	QualityMedium
	QualityLow
	// QualityInterpolated marks a result derived from nearby strikes
	// rather than computed directly.
	QualityInterpolated
)

// Params is the option contract and market inputs an IV solve needs.
type Params struct {
	Spot         float64
	Strike       float64
	TimeToExpiry float64 // years
	RiskFreeRate float64
	OptionType   OptionType
}

func CallParams(spot, strike, timeToExpiry, riskFreeRate float64) Params {
	return Params{Spot: spot, Strike: strike, TimeToExpiry: timeToExpiry, RiskFreeRate: riskFreeRate, OptionType: Call}
}

func PutParams(spot, strike, timeToExpiry, riskFreeRate float64) Params {
	return Params{Spot: spot, Strike: strike, TimeToExpiry: timeToExpiry, RiskFreeRate: riskFreeRate, OptionType: Put}
}

// IntrinsicValue is max(0, spot-strike) for a call, max(0, strike-spot)
// for a put.
func (p Params) IntrinsicValue() float64 {
	if p.OptionType == Call {
		return max0(p.Spot - p.Strike)
	}
	return max0(p.Strike - p.Spot)
}

func (p Params) IsITM() bool { return p.IntrinsicValue() > 0 }

// IsATM reports whether spot is within 0.1% of strike.
func (p Params) IsATM() bool {
	return abs(p.Spot-p.Strike)/p.Strike < 0.001
}

func (p Params) IsOTM() bool { return !p.IsITM() && !p.IsATM() }

// Result is the outcome of an IV solve.
type Result struct {
	IV         float64
	PriceUsed  float64
	SpreadBps  float64
	Iterations int
	Quality    Quality
}

func (r Result) IVPercent() float64 { return r.IV * 100 }

func (r Result) IsHighQuality() bool { return r.Quality == QualityHigh }

func (r Result) IsAcceptableQuality() bool {
	return r.Quality == QualityHigh || r.Quality == QualityMedium
}

func max0(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// QualityFromSpreadBps buckets a result by spread width (spec.md §4.7:
// <100bps high, 100-500bps medium, >500bps low).
func QualityFromSpreadBps(spreadBps float64) Quality {
	switch {
	case spreadBps < 100:
		return QualityHigh
	case spreadBps <= 500:
		return QualityMedium
	default:
		return QualityLow
	}
}
