package domain

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedReturns 生成确定性的 252 日收益率序列
func fixedReturns(n int) []float64 {
	rng := rand.New(rand.NewPCG(42, 0))
	returns := make([]float64, n)
	for i := range returns {
		returns[i] = 0.0005 + 0.012*rng.NormFloat64()
	}
	return returns
}

func TestHistoricalVaRMatchesEmpiricalQuantile(t *testing.T) {
	returns := fixedReturns(252)

	result, err := ValueAtRisk(VaRInput{
		Returns:        returns,
		Confidence:     0.95,
		Method:         VaRMethodHistorical,
		HorizonDays:    1,
		PortfolioValue: decimal.NewFromInt(1),
	})
	require.NoError(t, err)

	// VaR 必须精确等于该序列 5% 分位处的收益取负
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * 0.05)
	expected := -sorted[idx]

	got, _ := result.VaR.Float64()
	assert.InDelta(t, expected, got, 1e-12)
	assert.Equal(t, VaRMethodHistorical, result.Method)
	assert.Equal(t, 0.95, result.Confidence)
	assert.Equal(t, 1, result.TimeHorizon)
}

func TestVaRAllMethodsOrdering(t *testing.T) {
	returns := fixedReturns(252)
	portfolio := decimal.NewFromInt(1000000)

	for _, method := range []VaRMethod{VaRMethodHistorical, VaRMethodParametric, VaRMethodMonteCarlo} {
		result, err := ValueAtRisk(VaRInput{
			Returns:        returns,
			Confidence:     0.99,
			Method:         method,
			HorizonDays:    1,
			PortfolioValue: portfolio,
			Iterations:     20000,
			Seed:           7,
		})
		require.NoError(t, err, "method %s", method)

		assert.True(t, result.VaR.GreaterThanOrEqual(decimal.Zero),
			"%s: VaR must be non-negative, got %s", method, result.VaR)
		assert.True(t, result.ExpectedShortfall.GreaterThanOrEqual(result.VaR),
			"%s: ES (%s) must not be below VaR (%s)", method, result.ExpectedShortfall, result.VaR)
		assert.Equal(t, method, result.Method)
	}
}

func TestMonteCarloVaRDeterministicWithSeed(t *testing.T) {
	returns := fixedReturns(100)

	input := VaRInput{
		Returns:        returns,
		Confidence:     0.95,
		Method:         VaRMethodMonteCarlo,
		HorizonDays:    1,
		PortfolioValue: decimal.NewFromInt(500000),
		Seed:           99,
	}

	first, err := ValueAtRisk(input)
	require.NoError(t, err)
	second, err := ValueAtRisk(input)
	require.NoError(t, err)

	assert.True(t, first.VaR.Equal(second.VaR))
	assert.True(t, first.ExpectedShortfall.Equal(second.ExpectedShortfall))
	// 最少抽样次数下限生效
	assert.GreaterOrEqual(t, first.Breakdown["iterations"], float64(MonteCarloMinIterations))
}

func TestVaRRejectsOutOfDomainInput(t *testing.T) {
	returns := fixedReturns(50)
	portfolio := decimal.NewFromInt(1000)

	_, err := ValueAtRisk(VaRInput{Returns: returns, Confidence: 0, Method: VaRMethodHistorical, HorizonDays: 1, PortfolioValue: portfolio})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ValueAtRisk(VaRInput{Returns: returns, Confidence: 1, Method: VaRMethodHistorical, HorizonDays: 1, PortfolioValue: portfolio})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ValueAtRisk(VaRInput{Returns: returns, Confidence: 0.95, Method: VaRMethodHistorical, HorizonDays: 0, PortfolioValue: portfolio})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ValueAtRisk(VaRInput{Returns: returns, Confidence: 0.95, Method: VaRMethodHistorical, HorizonDays: 1, PortfolioValue: decimal.Zero})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ValueAtRisk(VaRInput{Returns: []float64{0.01}, Confidence: 0.95, Method: VaRMethodHistorical, HorizonDays: 1, PortfolioValue: portfolio})
	assert.ErrorIs(t, err, ErrInsufficientData)

	_, err = ValueAtRisk(VaRInput{Returns: returns, Confidence: 0.95, Method: "naive", HorizonDays: 1, PortfolioValue: portfolio})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParametricVaRScalesWithHorizon(t *testing.T) {
	returns := fixedReturns(252)
	portfolio := decimal.NewFromInt(1000000)

	oneDay, err := ValueAtRisk(VaRInput{
		Returns: returns, Confidence: 0.95, Method: VaRMethodParametric,
		HorizonDays: 1, PortfolioValue: portfolio,
	})
	require.NoError(t, err)

	tenDay, err := ValueAtRisk(VaRInput{
		Returns: returns, Confidence: 0.95, Method: VaRMethodParametric,
		HorizonDays: 10, PortfolioValue: portfolio,
	})
	require.NoError(t, err)

	assert.True(t, tenDay.VaR.GreaterThan(oneDay.VaR),
		"10-day VaR (%s) should exceed 1-day VaR (%s)", tenDay.VaR, oneDay.VaR)
}
