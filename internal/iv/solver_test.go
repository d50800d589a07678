package iv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTolerance = 1e-4

func TestSolve_ATMCall(t *testing.T) {
	params := CallParams(100, 100, 0.25, 0.05)
	targetVol := 0.25
	marketPrice := price(params, targetVol)

	cfg := DefaultSolverConfig()
	v, iterations, err := Solve(params, marketPrice, cfg)
	require.NoError(t, err)
	assert.InDelta(t, targetVol, v, testTolerance)
	assert.LessOrEqual(t, iterations, 10)
}

func TestSolve_ITMPut(t *testing.T) {
	params := PutParams(90, 100, 0.5, 0.03)
	targetVol := 0.35
	marketPrice := price(params, targetVol)

	v, _, err := Solve(params, marketPrice, DefaultSolverConfig())
	require.NoError(t, err)
	assert.InDelta(t, targetVol, v, testTolerance)
}

func TestSolve_OTMCall(t *testing.T) {
	params := CallParams(100, 120, 0.1, 0.05)
	targetVol := 0.4
	marketPrice := price(params, targetVol)

	v, _, err := Solve(params, marketPrice, DefaultSolverConfig())
	require.NoError(t, err)
	assert.InDelta(t, targetVol, v, testTolerance)
}

func TestSolve_HighAndLowVolatility(t *testing.T) {
	for _, targetVol := range []float64{0.05, 1.5} {
		params := CallParams(100, 100, 0.25, 0.05)
		marketPrice := price(params, targetVol)

		v, _, err := Solve(params, marketPrice, DefaultSolverConfig())
		require.NoError(t, err)
		assert.InDelta(t, targetVol, v, testTolerance)
	}
}

func TestSolve_VariousMaturities(t *testing.T) {
	for _, days := range []float64{7, 30, 90, 180, 365} {
		params := CallParams(100, 100, days/365.0, 0.05)
		marketPrice := price(params, 0.3)

		v, _, err := Solve(params, marketPrice, DefaultSolverConfig())
		require.NoError(t, err)
		assert.InDelta(t, 0.3, v, testTolerance)
	}
}

func TestSolve_VariousMoneyness(t *testing.T) {
	for _, strike := range []float64{80, 90, 100, 110, 120} {
		params := CallParams(100, strike, 0.25, 0.05)
		marketPrice := price(params, 0.25)

		v, _, err := Solve(params, marketPrice, DefaultSolverConfig())
		require.NoError(t, err)
		assert.InDelta(t, 0.25, v, testTolerance)
	}
}

func TestSolve_RejectsInvalidSpot(t *testing.T) {
	params := CallParams(-10, 100, 0.25, 0.05)
	_, _, err := Solve(params, 5.0, DefaultSolverConfig())
	var invalid *InvalidParamsError
	assert.ErrorAs(t, err, &invalid)
}

func TestSolve_RejectsInvalidStrike(t *testing.T) {
	params := CallParams(100, 0, 0.25, 0.05)
	_, _, err := Solve(params, 5.0, DefaultSolverConfig())
	var invalid *InvalidParamsError
	assert.ErrorAs(t, err, &invalid)
}

func TestSolve_RejectsTimeTooSmall(t *testing.T) {
	params := CallParams(100, 100, 1e-6, 0.05)
	_, _, err := Solve(params, 5.0, DefaultSolverConfig())
	var tooSmall *TimeToExpiryTooSmallError
	assert.ErrorAs(t, err, &tooSmall)
}

func TestSolve_RejectsPriceBelowIntrinsic(t *testing.T) {
	params := CallParams(110, 100, 0.25, 0.05)
	_, _, err := Solve(params, 1.0, DefaultSolverConfig())
	var below *PriceBelowIntrinsicError
	assert.ErrorAs(t, err, &below)
}

func TestSolveBisection_MatchesNewtonRaphson(t *testing.T) {
	params := CallParams(100, 100, 0.25, 0.05)
	marketPrice := price(params, 0.3)

	nr, _, err := Solve(params, marketPrice, DefaultSolverConfig())
	require.NoError(t, err)

	bi, _, err := SolveBisection(params, marketPrice, DefaultSolverConfig())
	require.NoError(t, err)

	assert.InDelta(t, nr, bi, testTolerance)
}

func TestSolverConfig_Builder(t *testing.T) {
	cfg := DefaultSolverConfig().WithMaxIterations(50).WithTolerance(1e-6).WithBounds(0.01, 3.0)
	assert.Equal(t, 50, cfg.MaxIterations)
	assert.Equal(t, 1e-6, cfg.Tolerance)
	assert.Equal(t, 0.01, cfg.MinIV)
	assert.Equal(t, 3.0, cfg.MaxIV)
}

func TestSmartInitialGuess_ConvergesFaster(t *testing.T) {
	params := CallParams(100, 100, 0.25, 0.05)
	marketPrice := price(params, 0.25)

	_, iterations, err := Solve(params, marketPrice, DefaultSolverConfig())
	require.NoError(t, err)
	assert.LessOrEqual(t, iterations, 10)
}
