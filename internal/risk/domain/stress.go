package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Position 组合中的单项持仓
type Position struct {
	PositionID  string          `json:"position_id"`
	AssetClass  string          `json:"asset_class"`
	MarketValue decimal.Decimal `json:"market_value"`
}

// StressScenario 压力测试场景
// Shocks 按资产类别给出价格冲击比例，-0.40 表示下跌 40%；未命中的资产类别冲击为 0
type StressScenario struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Shocks      map[string]float64 `json:"shocks"`
}

// PositionLoss 单项持仓的压力损失
type PositionLoss struct {
	PositionID    string          `json:"position_id"`
	AssetClass    string          `json:"asset_class"`
	Shock         float64         `json:"shock"`
	InitialValue  decimal.Decimal `json:"initial_value"`
	StressedValue decimal.Decimal `json:"stressed_value"`
	Loss          decimal.Decimal `json:"loss"` // 正数表示损失
}

// StressTestResult 单个场景的压力测试结果
type StressTestResult struct {
	Scenario       string          `json:"scenario"`
	PositionLosses []PositionLoss  `json:"position_losses"`
	TotalLoss      decimal.Decimal `json:"total_loss"`
}

// RunStressScenario 在持仓上应用场景冲击，输出每项持仓与合计的损失
func RunStressScenario(positions []Position, scenario StressScenario) (*StressTestResult, error) {
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no positions to stress", ErrInvalidInput)
	}
	for _, p := range positions {
		if p.MarketValue.IsNegative() {
			return nil, fmt.Errorf("%w: position %s has negative market value", ErrInvalidInput, p.PositionID)
		}
	}

	result := &StressTestResult{
		Scenario:       scenario.Name,
		PositionLosses: make([]PositionLoss, 0, len(positions)),
	}

	for _, p := range positions {
		shock := scenario.Shocks[p.AssetClass]
		stressed := p.MarketValue.Mul(decimal.NewFromFloat(1 + shock))
		loss := p.MarketValue.Sub(stressed)

		result.PositionLosses = append(result.PositionLosses, PositionLoss{
			PositionID:    p.PositionID,
			AssetClass:    p.AssetClass,
			Shock:         shock,
			InitialValue:  p.MarketValue,
			StressedValue: stressed,
			Loss:          loss,
		})
		result.TotalLoss = result.TotalLoss.Add(loss)
	}

	return result, nil
}
