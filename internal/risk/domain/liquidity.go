package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// LiquidityMinimumRatio 监管最低流动性比率（百分比）
const LiquidityMinimumRatio = 100.0

// LiquidityRatio 流动性比率结果
type LiquidityRatio struct {
	Ratio     float64 `json:"ratio"` // 百分比；分母为 0 时为 +Inf
	Compliant bool    `json:"compliant"`
}

// LiquidityCoverageRatio 流动性覆盖率 LCR = HQLA / 净现金流出 × 100
// 净流出为 0 时返回 +Inf 哨兵值并视为达标，而不是抛出除零错误
func LiquidityCoverageRatio(hqla, netOutflows decimal.Decimal) (*LiquidityRatio, error) {
	if hqla.IsNegative() {
		return nil, fmt.Errorf("%w: HQLA must be non-negative", ErrInvalidInput)
	}
	if netOutflows.IsNegative() {
		return nil, fmt.Errorf("%w: net outflows must be non-negative", ErrInvalidInput)
	}
	return ratioOf(hqla, netOutflows), nil
}

// NetStableFundingRatio 净稳定资金比率 NSFR = 可用稳定资金 / 所需稳定资金 × 100
func NetStableFundingRatio(availableFunding, requiredFunding decimal.Decimal) (*LiquidityRatio, error) {
	if availableFunding.IsNegative() {
		return nil, fmt.Errorf("%w: available funding must be non-negative", ErrInvalidInput)
	}
	if requiredFunding.IsNegative() {
		return nil, fmt.Errorf("%w: required funding must be non-negative", ErrInvalidInput)
	}
	return ratioOf(availableFunding, requiredFunding), nil
}

func ratioOf(numerator, denominator decimal.Decimal) *LiquidityRatio {
	if denominator.IsZero() {
		return &LiquidityRatio{Ratio: math.Inf(1), Compliant: true}
	}
	ratio, _ := numerator.Div(denominator).Mul(decimal.NewFromInt(100)).Float64()
	return &LiquidityRatio{
		Ratio:     ratio,
		Compliant: ratio >= LiquidityMinimumRatio,
	}
}
