package iv

import "math"

var sqrt2 = math.Sqrt2

// erf approximates the error function via Abramowitz & Stegun 7.1.26,
// maximum error 1.5e-7.
func erf(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)
	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x)
	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)
	return sign * y
}

// normCDF is the standard normal cumulative distribution function.
func normCDF(x float64) float64 {
	return 0.5 * (1.0 + erf(x/sqrt2))
}

// normPDF is the standard normal density function.
func normPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

// d1 computes the Black-Scholes d1 term.
func d1(spot, strike, rate, time, vol float64) float64 {
	sqrtTime := math.Sqrt(time)
	return (math.Log(spot/strike) + (rate+0.5*vol*vol)*time) / (vol * sqrtTime)
}

// d2 computes the Black-Scholes d2 term.
func d2(d1Value, vol, time float64) float64 {
	return d1Value - vol*math.Sqrt(time)
}

// price returns the theoretical Black-Scholes price of the option
// described by p at volatility vol.
func price(p Params, vol float64) float64 {
	if p.TimeToExpiry <= 0 {
		return p.IntrinsicValue()
	}
	if vol <= 0 {
		discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
		if p.OptionType == Call {
			return max0(p.Spot - p.Strike*discount)
		}
		return max0(p.Strike*discount - p.Spot)
	}

	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	dd2 := d2(dd1, vol, p.TimeToExpiry)
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)

	if p.OptionType == Call {
		return p.Spot*normCDF(dd1) - p.Strike*discount*normCDF(dd2)
	}
	return p.Strike*discount*normCDF(-dd2) - p.Spot*normCDF(-dd1)
}

// vega is the option price's sensitivity to volatility, always
// non-negative for both calls and puts.
func vega(p Params, vol float64) float64 {
	if p.TimeToExpiry <= 0 || vol <= 0 {
		return 0
	}
	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	return p.Spot * normPDF(dd1) * math.Sqrt(p.TimeToExpiry)
}

// delta is the option price's sensitivity to the underlying spot price.
func delta(p Params, vol float64) float64 {
	if p.TimeToExpiry <= 0 {
		if p.OptionType == Call {
			if p.Spot > p.Strike {
				return 1
			}
			return 0
		}
		if p.Spot < p.Strike {
			return -1
		}
		return 0
	}
	dd1 := d1(p.Spot, p.Strike, p.RiskFreeRate, p.TimeToExpiry, vol)
	if p.OptionType == Call {
		return normCDF(dd1)
	}
	return normCDF(dd1) - 1
}
