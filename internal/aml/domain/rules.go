package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// 规则名称
const (
	RuleCashThreshold        = "cash_threshold"
	RuleStructuring          = "structuring"
	RuleSanctionsMatch       = "sanctions_match"
	RuleRapidMovement        = "rapid_movement"
	RuleRoundAmount          = "round_amount"
	RuleUnusualHours         = "unusual_hours"
	RuleGeoVelocity          = "geo_velocity"
	RuleProfileInconsistency = "profile_inconsistency"
)

// 各规则的风险分贡献。规则独立计分并累加，跨规则的重复计分是有意为之，
// 反映叠加的可疑程度
const (
	ScoreCashThreshold        = 40.0
	ScoreStructuring          = 40.0
	ScoreSanctionsMatch       = 100.0
	ScoreRapidMovement        = 25.0
	ScoreRoundAmount          = 10.0
	ScoreUnusualHours         = 10.0
	ScoreGeoVelocity          = 25.0
	ScoreProfileInconsistency = 20.0
)

// RuleConfig 检测规则参数
type RuleConfig struct {
	// HomeCountry 机构本国国家码，对手方国家与之不同的转账视为跨境
	HomeCountry             string
	CTRThreshold            decimal.Decimal
	StructuringFloor        decimal.Decimal
	StructuringMinCount     int
	StructuringWindow       time.Duration
	RapidMovementMinCount   int
	RapidMovementWindow     time.Duration
	RoundAmountFloor        decimal.Decimal
	RoundAmountStep         decimal.Decimal
	NightWindowStartHour    int
	NightWindowEndHour      int
	GeoVelocityMinCountries int
	GeoVelocityWindow       time.Duration
	ProfileVolumeMultiplier float64
}

// DefaultRuleConfig 示例默认参数；正式阈值需按监管要求确认
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		HomeCountry:             "US",
		CTRThreshold:            decimal.NewFromInt(10000),
		StructuringFloor:        decimal.NewFromInt(9000),
		StructuringMinCount:     3,
		StructuringWindow:       7 * 24 * time.Hour,
		RapidMovementMinCount:   5,
		RapidMovementWindow:     24 * time.Hour,
		RoundAmountFloor:        decimal.NewFromInt(10000),
		RoundAmountStep:         decimal.NewFromInt(10000),
		NightWindowStartHour:    0,
		NightWindowEndHour:      5,
		GeoVelocityMinCountries: 3,
		GeoVelocityWindow:       48 * time.Hour,
		ProfileVolumeMultiplier: 2.0,
	}
}

// RuleResult 单条规则的评估结果
type RuleResult struct {
	RuleName          string         `json:"rule_name"`
	Triggered         bool           `json:"triggered"`
	RiskScore         float64        `json:"risk_score"`
	RequiresReporting bool           `json:"requires_reporting"`
	ReportType        ReportType     `json:"report_type,omitempty"`
	Details           map[string]any `json:"details,omitempty"`
}

// RuleEvaluator 交易检测规则评估器
// 无状态、并发安全；每条规则独立评估，互不依赖。最近交易窗口由调用方提供，
// 评估器自身不做任何取数
type RuleEvaluator struct {
	cfg RuleConfig
}

// NewRuleEvaluator 创建规则评估器
func NewRuleEvaluator(cfg RuleConfig) *RuleEvaluator {
	return &RuleEvaluator{cfg: cfg}
}

// Evaluate 对单笔交易及其客户近期交易窗口运行全部本地规则
// 名单筛查规则因依赖外部协作方，由应用层单独执行后合并
func (e *RuleEvaluator) Evaluate(tx *Transaction, customer *Customer, recent []Transaction) []RuleResult {
	results := make([]RuleResult, 0, 7)
	results = append(results, e.cashThreshold(tx))
	results = append(results, e.structuring(tx, recent))
	results = append(results, e.rapidMovement(tx, recent))
	results = append(results, e.roundAmount(tx))
	results = append(results, e.unusualHours(tx))
	results = append(results, e.geoVelocity(tx, recent))
	results = append(results, e.profileInconsistency(tx, customer, recent))
	return results
}

// cashThreshold 现金交易达到 CTR 阈值即触发申报义务；
// 达到阈值的跨境转账触发跨境报告
func (e *RuleEvaluator) cashThreshold(tx *Transaction) RuleResult {
	result := RuleResult{RuleName: RuleCashThreshold}

	if tx.AmountUSD.LessThan(e.cfg.CTRThreshold) {
		return result
	}

	switch tx.Type {
	case TransactionTypeDeposit, TransactionTypeWithdrawal:
		result.Triggered = true
		result.RiskScore = ScoreCashThreshold
		result.RequiresReporting = true
		result.ReportType = ReportTypeCTR
	case TransactionTypeTransfer:
		// 本国对手方的大额转账不构成跨境申报，仅对手方国家与本国不同时触发
		if tx.Counterparty.Country != "" && tx.Counterparty.Country != e.cfg.HomeCountry {
			result.Triggered = true
			result.RiskScore = ScoreCashThreshold
			result.RequiresReporting = true
			result.ReportType = ReportTypeCrossBorder
		}
	default:
		return result
	}

	result.Details = map[string]any{
		"amount_usd": tx.AmountUSD.String(),
		"threshold":  e.cfg.CTRThreshold.String(),
	}
	return result
}

// structuring 识别贴着申报阈值拆分的交易：金额落在 [floor, CTR) 且窗口内
// 此类交易（含当前笔）达到最少笔数
func (e *RuleEvaluator) structuring(tx *Transaction, recent []Transaction) RuleResult {
	result := RuleResult{RuleName: RuleStructuring}

	if !e.inStructuringBand(tx.AmountUSD) {
		return result
	}

	windowStart := tx.BookingTime.Add(-e.cfg.StructuringWindow)
	count := 1 // 当前笔
	for _, prior := range recent {
		if prior.TransactionID == tx.TransactionID {
			continue
		}
		if prior.BookingTime.Before(windowStart) || prior.BookingTime.After(tx.BookingTime) {
			continue
		}
		if e.inStructuringBand(prior.AmountUSD) {
			count++
		}
	}

	if count < e.cfg.StructuringMinCount {
		return result
	}

	result.Triggered = true
	result.RiskScore = ScoreStructuring
	result.RequiresReporting = true
	result.ReportType = ReportTypeSAR
	result.Details = map[string]any{
		"count":        count,
		"window_days":  int(e.cfg.StructuringWindow.Hours() / 24),
		"band_floor":   e.cfg.StructuringFloor.String(),
		"band_ceiling": e.cfg.CTRThreshold.String(),
	}
	return result
}

func (e *RuleEvaluator) inStructuringBand(amount decimal.Decimal) bool {
	return amount.GreaterThanOrEqual(e.cfg.StructuringFloor) && amount.LessThan(e.cfg.CTRThreshold)
}

// rapidMovement 短时间内的高频资金移动
func (e *RuleEvaluator) rapidMovement(tx *Transaction, recent []Transaction) RuleResult {
	result := RuleResult{RuleName: RuleRapidMovement}

	windowStart := tx.BookingTime.Add(-e.cfg.RapidMovementWindow)
	count := 1
	for _, prior := range recent {
		if prior.TransactionID == tx.TransactionID {
			continue
		}
		if !prior.BookingTime.Before(windowStart) && !prior.BookingTime.After(tx.BookingTime) {
			count++
		}
	}

	if count < e.cfg.RapidMovementMinCount {
		return result
	}

	result.Triggered = true
	result.RiskScore = ScoreRapidMovement
	result.Details = map[string]any{
		"count":        count,
		"window_hours": e.cfg.RapidMovementWindow.Hours(),
	}
	return result
}

// roundAmount 达到下限的整数金额模式（如恰好 10000、20000）
func (e *RuleEvaluator) roundAmount(tx *Transaction) RuleResult {
	result := RuleResult{RuleName: RuleRoundAmount}

	if tx.AmountUSD.LessThan(e.cfg.RoundAmountFloor) {
		return result
	}
	if !tx.AmountUSD.Mod(e.cfg.RoundAmountStep).IsZero() {
		return result
	}

	result.Triggered = true
	result.RiskScore = ScoreRoundAmount
	result.Details = map[string]any{"amount_usd": tx.AmountUSD.String()}
	return result
}

// unusualHours 记账时间落在配置的夜间时段；时段允许跨零点
func (e *RuleEvaluator) unusualHours(tx *Transaction) RuleResult {
	result := RuleResult{RuleName: RuleUnusualHours}

	hour := tx.BookingTime.Hour()
	start, end := e.cfg.NightWindowStartHour, e.cfg.NightWindowEndHour

	var inWindow bool
	if start <= end {
		inWindow = hour >= start && hour < end
	} else {
		inWindow = hour >= start || hour < end
	}
	if !inWindow {
		return result
	}

	result.Triggered = true
	result.RiskScore = ScoreUnusualHours
	result.Details = map[string]any{"hour": hour}
	return result
}

// geoVelocity 窗口内出现过多不同的对手方国家
func (e *RuleEvaluator) geoVelocity(tx *Transaction, recent []Transaction) RuleResult {
	result := RuleResult{RuleName: RuleGeoVelocity}

	windowStart := tx.BookingTime.Add(-e.cfg.GeoVelocityWindow)
	countries := make(map[string]struct{})
	if tx.Counterparty.Country != "" {
		countries[tx.Counterparty.Country] = struct{}{}
	}
	for _, prior := range recent {
		if prior.TransactionID == tx.TransactionID {
			continue
		}
		if prior.BookingTime.Before(windowStart) || prior.BookingTime.After(tx.BookingTime) {
			continue
		}
		if prior.Counterparty.Country != "" {
			countries[prior.Counterparty.Country] = struct{}{}
		}
	}

	if len(countries) < e.cfg.GeoVelocityMinCountries {
		return result
	}

	names := make([]string, 0, len(countries))
	for c := range countries {
		names = append(names, c)
	}

	result.Triggered = true
	result.RiskScore = ScoreGeoVelocity
	result.Details = map[string]any{"countries": names}
	return result
}

// profileInconsistency 实际交易行为偏离客户申报的预期画像：
// 滚动月交易量超过申报值的配置倍数，或交易类型/国家不在申报集合内
func (e *RuleEvaluator) profileInconsistency(tx *Transaction, customer *Customer, recent []Transaction) RuleResult {
	result := RuleResult{RuleName: RuleProfileInconsistency}
	if customer == nil {
		return result
	}

	var reasons []string

	if customer.Expected.MonthlyTurnover.IsPositive() {
		windowStart := tx.BookingTime.Add(-30 * 24 * time.Hour)
		volume := tx.AmountUSD
		for _, prior := range recent {
			if prior.TransactionID == tx.TransactionID {
				continue
			}
			if !prior.BookingTime.Before(windowStart) && !prior.BookingTime.After(tx.BookingTime) {
				volume = volume.Add(prior.AmountUSD)
			}
		}
		limit := customer.Expected.MonthlyTurnover.Mul(decimal.NewFromFloat(e.cfg.ProfileVolumeMultiplier))
		if volume.GreaterThan(limit) {
			reasons = append(reasons, fmt.Sprintf("rolling volume %s exceeds declared limit %s", volume, limit))
		}
	}

	if len(customer.Expected.TransactionTypes) > 0 && !containsString(customer.Expected.TransactionTypes, string(tx.Type)) {
		reasons = append(reasons, fmt.Sprintf("transaction type %s outside declared profile", tx.Type))
	}

	if len(customer.Expected.Countries) > 0 && tx.Counterparty.Country != "" &&
		!containsString(customer.Expected.Countries, tx.Counterparty.Country) {
		reasons = append(reasons, fmt.Sprintf("counterparty country %s outside declared profile", tx.Counterparty.Country))
	}

	if len(reasons) == 0 {
		return result
	}

	result.Triggered = true
	result.RiskScore = ScoreProfileInconsistency
	result.Details = map[string]any{"reasons": reasons}
	return result
}

func containsString(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
