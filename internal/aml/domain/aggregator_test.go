package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAggregatorRejectsBadBands(t *testing.T) {
	_, err := NewAggregator(LevelBands{Medium: 60, High: 60, Critical: 86}, 50)
	assert.Error(t, err)

	_, err = NewAggregator(LevelBands{Medium: 86, High: 61, Critical: 31}, 50)
	assert.Error(t, err)
}

func TestLevelBandsMapping(t *testing.T) {
	bands := DefaultLevelBands()

	cases := []struct {
		score float64
		level RiskLevel
	}{
		{0, RiskLevelLow},
		{30, RiskLevelLow},
		{31, RiskLevelMedium},
		{60, RiskLevelMedium},
		{61, RiskLevelHigh},
		{85, RiskLevelHigh},
		{86, RiskLevelCritical},
		{100, RiskLevelCritical},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, bands.Level(tc.score), "score %.0f", tc.score)
	}
}

func TestAggregateCapsAtHundred(t *testing.T) {
	agg, err := NewAggregator(DefaultLevelBands(), 50)
	require.NoError(t, err)

	results := []RuleResult{
		{RuleName: RuleSanctionsMatch, Triggered: true, RiskScore: ScoreSanctionsMatch, RequiresReporting: true, ReportType: ReportTypeSAR},
		{RuleName: RuleCashThreshold, Triggered: true, RiskScore: ScoreCashThreshold, RequiresReporting: true, ReportType: ReportTypeCTR},
		{RuleName: RuleRoundAmount, Triggered: true, RiskScore: ScoreRoundAmount},
	}
	out := agg.Aggregate("CUST-001", nil, results)
	assert.Equal(t, 100.0, out.Score)
	assert.Equal(t, RiskLevelCritical, out.Level)
	assert.True(t, out.RequiresAlert)
}

func TestAggregateReportSeverityOrder(t *testing.T) {
	agg, err := NewAggregator(DefaultLevelBands(), 50)
	require.NoError(t, err)

	// CTR 与跨境并存取跨境
	out := agg.Aggregate("CUST-001", nil, []RuleResult{
		{RuleName: RuleCashThreshold, Triggered: true, RiskScore: 40, RequiresReporting: true, ReportType: ReportTypeCTR},
		{RuleName: RuleGeoVelocity, Triggered: true, RiskScore: 25, RequiresReporting: true, ReportType: ReportTypeCrossBorder},
	})
	require.True(t, out.RequiresReport)
	assert.Equal(t, ReportTypeCrossBorder, out.ReportType)

	// SAR 压过其他一切，与规则顺序无关
	out = agg.Aggregate("CUST-001", nil, []RuleResult{
		{RuleName: RuleStructuring, Triggered: true, RiskScore: 40, RequiresReporting: true, ReportType: ReportTypeSAR},
		{RuleName: RuleCashThreshold, Triggered: true, RiskScore: 40, RequiresReporting: true, ReportType: ReportTypeCTR},
	})
	assert.Equal(t, ReportTypeSAR, out.ReportType)

	out = agg.Aggregate("CUST-001", nil, []RuleResult{
		{RuleName: RuleCashThreshold, Triggered: true, RiskScore: 40, RequiresReporting: true, ReportType: ReportTypeCTR},
		{RuleName: RuleStructuring, Triggered: true, RiskScore: 40, RequiresReporting: true, ReportType: ReportTypeSAR},
	})
	assert.Equal(t, ReportTypeSAR, out.ReportType)
}

func TestAggregateReportForcesAlert(t *testing.T) {
	agg, err := NewAggregator(DefaultLevelBands(), 50)
	require.NoError(t, err)

	// 分数低于告警阈值，但存在申报义务时仍须告警
	out := agg.Aggregate("CUST-001", nil, []RuleResult{
		{RuleName: RuleCashThreshold, Triggered: true, RiskScore: 40, RequiresReporting: true, ReportType: ReportTypeCTR},
	})
	assert.Less(t, out.Score, 50.0)
	assert.True(t, out.RequiresAlert)
}

func TestAggregateQuantContribution(t *testing.T) {
	agg, err := NewAggregator(DefaultLevelBands(), 50)
	require.NoError(t, err)

	quant := &QuantSummary{Score: 35, Factors: []string{"elevated probability of default"}}
	out := agg.Aggregate("CUST-001", quant, []RuleResult{
		{RuleName: RuleRapidMovement, Triggered: true, RiskScore: 25},
		{RuleName: RuleUnusualHours, Triggered: false, RiskScore: 0},
	})
	assert.Equal(t, 60.0, out.Score)
	assert.Equal(t, RiskLevelMedium, out.Level)
	assert.True(t, out.RequiresAlert)
	assert.False(t, out.RequiresReport)
	assert.Contains(t, out.Factors, "elevated probability of default")
	assert.Contains(t, out.Factors, RuleRapidMovement)
	assert.NotContains(t, out.Factors, RuleUnusualHours)
}

func TestAggregateNoTriggers(t *testing.T) {
	agg, err := NewAggregator(DefaultLevelBands(), 50)
	require.NoError(t, err)

	out := agg.Aggregate("CUST-001", nil, []RuleResult{
		{RuleName: RuleRoundAmount, Triggered: false},
	})
	assert.Zero(t, out.Score)
	assert.Equal(t, RiskLevelLow, out.Level)
	assert.False(t, out.RequiresAlert)
	assert.False(t, out.RequiresReport)
	assert.Equal(t, ReportTypeNone, out.ReportType)
}
