// Package domain 包含风险监控引擎的量化计算模型
package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// 违约概率模型参数
// 综合评分由三部分加权：财务比率 60%、还款记录 30%、外部评级 10%，
// 再经反向 logistic 变换映射到 (0,1)：评分 0（最差）对应 PD 接近 1，评分 10（最好）对应 PD 接近 0。
const (
	PDFinancialWeight = 0.60
	PDPaymentWeight   = 0.30
	PDRatingWeight    = 0.10

	// logistic 曲线陡峭度与中点
	PDLogisticSteepness = 1.2
	PDLogisticMidpoint  = 5.0

	// PD 钳位边界，避免出现 0 或 1 的退化值
	PDFloor = 0.0001
	PDCeil  = 0.9999
)

// FinancialMetrics 借款人财务指标
type FinancialMetrics struct {
	CurrentRatio     float64 `json:"current_ratio"`     // 流动比率
	DebtToEquity     float64 `json:"debt_to_equity"`    // 资产负债率（权益口径）
	InterestCoverage float64 `json:"interest_coverage"` // 利息保障倍数
	NetProfitMargin  float64 `json:"net_profit_margin"` // 净利润率
}

// PaymentHistory 借款人还款记录
type PaymentHistory struct {
	TotalPayments  int `json:"total_payments"`
	MissedPayments int `json:"missed_payments"`
	DaysPastDue    int `json:"days_past_due"`
}

// ratingScores 外部评级到 0-10 分的映射
var ratingScores = map[string]float64{
	"AAA": 10, "AA": 9, "A": 8,
	"BBB": 7, "BB": 5, "B": 4,
	"CCC": 2, "CC": 1, "C": 0.5, "D": 0,
}

// ProbabilityOfDefault 计算违约概率，返回值钳位在 (PDFloor, PDCeil)
func ProbabilityOfDefault(fm FinancialMetrics, ph PaymentHistory, creditRating string) (float64, error) {
	if ph.TotalPayments < 0 || ph.MissedPayments < 0 || ph.MissedPayments > ph.TotalPayments {
		return 0, fmt.Errorf("%w: payment history counts out of range", ErrInvalidInput)
	}
	if ph.DaysPastDue < 0 {
		return 0, fmt.Errorf("%w: days past due must be non-negative", ErrInvalidInput)
	}
	ratingScore, ok := ratingScores[creditRating]
	if !ok {
		return 0, fmt.Errorf("%w: unknown credit rating %q", ErrInvalidInput, creditRating)
	}

	score := PDFinancialWeight*financialScore(fm) +
		PDPaymentWeight*paymentScore(ph) +
		PDRatingWeight*ratingScore

	// 反向 logistic：score 越高 PD 越低
	pd := 1.0 / (1.0 + math.Exp(PDLogisticSteepness*(score-PDLogisticMidpoint)))

	// 钳位是此处的既定策略，不视为静默截断
	return math.Min(math.Max(pd, PDFloor), PDCeil), nil
}

// financialScore 财务比率综合评分，0-10
func financialScore(fm FinancialMetrics) float64 {
	var score float64

	switch {
	case fm.CurrentRatio >= 2.0:
		score += 2.5
	case fm.CurrentRatio >= 1.5:
		score += 2.0
	case fm.CurrentRatio >= 1.0:
		score += 1.25
	case fm.CurrentRatio >= 0.5:
		score += 0.5
	}

	switch {
	case fm.DebtToEquity <= 0.5 && fm.DebtToEquity >= 0:
		score += 2.5
	case fm.DebtToEquity <= 1.0:
		score += 2.0
	case fm.DebtToEquity <= 2.0:
		score += 1.25
	case fm.DebtToEquity <= 4.0:
		score += 0.5
	}

	switch {
	case fm.InterestCoverage >= 5.0:
		score += 2.5
	case fm.InterestCoverage >= 3.0:
		score += 2.0
	case fm.InterestCoverage >= 1.5:
		score += 1.25
	case fm.InterestCoverage >= 1.0:
		score += 0.5
	}

	switch {
	case fm.NetProfitMargin >= 0.15:
		score += 2.5
	case fm.NetProfitMargin >= 0.08:
		score += 2.0
	case fm.NetProfitMargin >= 0.03:
		score += 1.25
	case fm.NetProfitMargin > 0:
		score += 0.5
	}

	return score
}

// paymentScore 还款记录评分，0-10
func paymentScore(ph PaymentHistory) float64 {
	if ph.TotalPayments == 0 {
		// 无历史记录按中性偏保守处理
		return 5.0
	}

	onTimeRatio := 1.0 - float64(ph.MissedPayments)/float64(ph.TotalPayments)
	score := onTimeRatio * 10.0

	switch {
	case ph.DaysPastDue > 90:
		score -= 5.0
	case ph.DaysPastDue > 30:
		score -= 2.5
	case ph.DaysPastDue > 0:
		score -= 1.0
	}

	return math.Max(score, 0)
}

// 抵押覆盖率对应的违约损失率档位
const (
	LGDFullCoverage    = 0.10 // 覆盖率 >= 100%
	LGDHighCoverage    = 0.25 // 覆盖率 >= 80%
	LGDPartialCoverage = 0.45 // 覆盖率 >= 50%
	LGDLowCoverage     = 0.65 // 覆盖率 < 50%
)

// LossGivenDefault 按抵押覆盖率的阶梯函数计算违约损失率
func LossGivenDefault(collateralValue, exposure decimal.Decimal) (float64, error) {
	if collateralValue.IsNegative() {
		return 0, fmt.Errorf("%w: collateral value must be non-negative", ErrInvalidInput)
	}
	if exposure.IsNegative() || exposure.IsZero() {
		return 0, fmt.Errorf("%w: exposure must be positive", ErrInvalidInput)
	}

	coverage, _ := collateralValue.Div(exposure).Float64()
	switch {
	case coverage >= 1.0:
		return LGDFullCoverage, nil
	case coverage >= 0.8:
		return LGDHighCoverage, nil
	case coverage >= 0.5:
		return LGDPartialCoverage, nil
	default:
		return LGDLowCoverage, nil
	}
}

// ExpectedCreditLoss 预期信用损失 ECL = PD × LGD × EAD
func ExpectedCreditLoss(pd, lgd float64, ead decimal.Decimal) (decimal.Decimal, error) {
	if pd <= 0 || pd >= 1 {
		return decimal.Zero, fmt.Errorf("%w: pd must be in (0,1)", ErrInvalidInput)
	}
	if lgd < 0 || lgd > 1 {
		return decimal.Zero, fmt.Errorf("%w: lgd must be in [0,1]", ErrInvalidInput)
	}
	if ead.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: ead must be non-negative", ErrInvalidInput)
	}
	return ead.Mul(decimal.NewFromFloat(pd)).Mul(decimal.NewFromFloat(lgd)), nil
}

// IFRS9 阶段划分参数
const (
	Stage3DaysPastDue = 90
	Stage2DaysPastDue = 30
	Stage2PDThreshold = 0.02
)

// IFRS9Stage 计算 IFRS-9 减值阶段
// 逾期 >90 天为阶段 3；逾期 >30 天或 PD 显著上升为阶段 2；其余为阶段 1
func IFRS9Stage(daysPastDue int, pd float64) (int, error) {
	if daysPastDue < 0 {
		return 0, fmt.Errorf("%w: days past due must be non-negative", ErrInvalidInput)
	}
	if pd <= 0 || pd >= 1 {
		return 0, fmt.Errorf("%w: pd must be in (0,1)", ErrInvalidInput)
	}

	switch {
	case daysPastDue > Stage3DaysPastDue:
		return 3, nil
	case daysPastDue > Stage2DaysPastDue || pd > Stage2PDThreshold:
		return 2, nil
	default:
		return 1, nil
	}
}
