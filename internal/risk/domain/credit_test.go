package domain

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strongBorrower() (FinancialMetrics, PaymentHistory) {
	return FinancialMetrics{
			CurrentRatio:     2.5,
			DebtToEquity:     0.3,
			InterestCoverage: 6.0,
			NetProfitMargin:  0.20,
		}, PaymentHistory{
			TotalPayments:  120,
			MissedPayments: 0,
			DaysPastDue:    0,
		}
}

func TestProbabilityOfDefaultBounds(t *testing.T) {
	fm, ph := strongBorrower()

	pd, err := ProbabilityOfDefault(fm, ph, "AAA")
	require.NoError(t, err)
	assert.Greater(t, pd, 0.0)
	assert.Less(t, pd, 1.0)

	// 最差输入也必须落在钳位边界内
	worst, err := ProbabilityOfDefault(FinancialMetrics{}, PaymentHistory{
		TotalPayments:  10,
		MissedPayments: 10,
		DaysPastDue:    180,
	}, "D")
	require.NoError(t, err)
	assert.Greater(t, worst, 0.0)
	assert.Less(t, worst, 1.0)
	assert.Greater(t, worst, pd)
}

func TestProbabilityOfDefaultExactOutput(t *testing.T) {
	// 满分借款人：composite score = 10，PD = 1/(1+e^(1.2*(10-5)))
	fm, ph := strongBorrower()

	pd, err := ProbabilityOfDefault(fm, ph, "AAA")
	require.NoError(t, err)

	expected := 1.0 / (1.0 + math.Exp(PDLogisticSteepness*(10-PDLogisticMidpoint)))
	assert.InDelta(t, expected, pd, 1e-12)
}

func TestProbabilityOfDefaultRejectsBadInput(t *testing.T) {
	fm, ph := strongBorrower()

	_, err := ProbabilityOfDefault(fm, ph, "ZZZ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ProbabilityOfDefault(fm, PaymentHistory{TotalPayments: 5, MissedPayments: 6}, "AAA")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ProbabilityOfDefault(fm, PaymentHistory{TotalPayments: 5, DaysPastDue: -1}, "AAA")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLossGivenDefaultSteps(t *testing.T) {
	exposure := decimal.NewFromInt(100000)

	cases := []struct {
		collateral int64
		want       float64
	}{
		{120000, LGDFullCoverage},
		{100000, LGDFullCoverage},
		{85000, LGDHighCoverage},
		{80000, LGDHighCoverage},
		{60000, LGDPartialCoverage},
		{50000, LGDPartialCoverage},
		{40000, LGDLowCoverage},
		{0, LGDLowCoverage},
	}

	for _, tc := range cases {
		lgd, err := LossGivenDefault(decimal.NewFromInt(tc.collateral), exposure)
		require.NoError(t, err)
		assert.Equal(t, tc.want, lgd, "collateral %d", tc.collateral)
	}
}

func TestLossGivenDefaultRejectsBadInput(t *testing.T) {
	_, err := LossGivenDefault(decimal.NewFromInt(-1), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = LossGivenDefault(decimal.NewFromInt(100), decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestExpectedCreditLossExact(t *testing.T) {
	ead := decimal.NewFromInt(1000000)

	ecl, err := ExpectedCreditLoss(0.02, 0.45, ead)
	require.NoError(t, err)

	want := ead.Mul(decimal.NewFromFloat(0.02)).Mul(decimal.NewFromFloat(0.45))
	assert.True(t, ecl.Equal(want), "ECL = PD*LGD*EAD exactly, got %s want %s", ecl, want)
}

func TestExpectedCreditLossDomain(t *testing.T) {
	ead := decimal.NewFromInt(1000)

	_, err := ExpectedCreditLoss(0, 0.5, ead)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ExpectedCreditLoss(1, 0.5, ead)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ExpectedCreditLoss(0.1, 1.5, ead)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ExpectedCreditLoss(0.1, 0.5, decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestIFRS9Stage(t *testing.T) {
	cases := []struct {
		daysPastDue int
		pd          float64
		want        int
	}{
		{0, 0.01, 1},
		{30, 0.01, 1},
		{31, 0.01, 2},
		{0, 0.021, 2},
		{91, 0.01, 3},
		{120, 0.5, 3},
	}

	for _, tc := range cases {
		stage, err := IFRS9Stage(tc.daysPastDue, tc.pd)
		require.NoError(t, err)
		assert.Equal(t, tc.want, stage, "dpd=%d pd=%f", tc.daysPastDue, tc.pd)
	}

	_, err := IFRS9Stage(-1, 0.01)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
