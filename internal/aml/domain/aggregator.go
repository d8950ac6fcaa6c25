package domain

import (
	"fmt"
	"time"
)

// LevelBands 风险等级分界：score < Medium 为低，[Medium, High) 为中，
// [High, Critical) 为高，>= Critical 为重大。必须严格递增以保证映射连续
type LevelBands struct {
	Medium   float64
	High     float64
	Critical float64
}

// DefaultLevelBands 示例分界
func DefaultLevelBands() LevelBands {
	return LevelBands{Medium: 31, High: 61, Critical: 86}
}

// Validate 校验分界单调性
func (b LevelBands) Validate() error {
	if !(b.Medium < b.High && b.High < b.Critical) {
		return fmt.Errorf("level bands must be strictly increasing: %+v", b)
	}
	return nil
}

// Level 将分数映射到风险等级
func (b LevelBands) Level(score float64) RiskLevel {
	switch {
	case score >= b.Critical:
		return RiskLevelCritical
	case score >= b.High:
		return RiskLevelHigh
	case score >= b.Medium:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}

// QuantSummary 量化风险库输出折算的风险贡献，批量评估路径使用
type QuantSummary struct {
	Score   float64  `json:"score"`
	Factors []string `json:"factors,omitempty"`
}

// AggregationResult 聚合结果
type AggregationResult struct {
	EntityID       string       `json:"entity_id"`
	Score          float64      `json:"score"` // [0,100]，封顶
	Level          RiskLevel    `json:"level"`
	RequiresAlert  bool         `json:"requires_alert"`
	RequiresReport bool         `json:"requires_report"`
	ReportType     ReportType   `json:"report_type,omitempty"`
	Factors        []string     `json:"factors,omitempty"`
	RuleResults    []RuleResult `json:"rule_results,omitempty"`
	AggregatedAt   time.Time    `json:"aggregated_at"`
}

// Aggregator 风险聚合器：合并量化结果与规则结果，给出总分、等级与申报决定
type Aggregator struct {
	bands          LevelBands
	alertThreshold float64
}

// NewAggregator 创建聚合器
func NewAggregator(bands LevelBands, alertThreshold float64) (*Aggregator, error) {
	if err := bands.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{bands: bands, alertThreshold: alertThreshold}, nil
}

// Aggregate 汇总一次评估
// 总分为各规则分与量化贡献之和，封顶 100；多条规则请求不同报告类型时，
// 按 SAR > CROSS_BORDER > CTR 的全序取最严重者
func (a *Aggregator) Aggregate(entityID string, quant *QuantSummary, ruleResults []RuleResult) *AggregationResult {
	result := &AggregationResult{
		EntityID:     entityID,
		RuleResults:  ruleResults,
		AggregatedAt: time.Now(),
	}

	var score float64
	if quant != nil {
		score += quant.Score
		result.Factors = append(result.Factors, quant.Factors...)
	}

	for _, r := range ruleResults {
		if !r.Triggered {
			continue
		}
		score += r.RiskScore
		result.Factors = append(result.Factors, r.RuleName)
		if r.RequiresReporting {
			result.RequiresReport = true
			result.ReportType = MoreSevere(result.ReportType, r.ReportType)
		}
	}

	if score > 100 {
		score = 100
	}
	result.Score = score
	result.Level = a.bands.Level(score)
	result.RequiresAlert = score >= a.alertThreshold || result.RequiresReport

	return result
}
