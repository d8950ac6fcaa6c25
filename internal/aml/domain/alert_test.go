package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertLifecycle(t *testing.T) {
	now := time.Now()
	alert := &RiskAlert{
		AlertNo:  "AL-001",
		EntityID: "CUST-001",
		Category: AlertCategoryTransaction,
		Severity: RiskLevelHigh,
		Status:   AlertStatusActive,
	}
	assert.True(t, alert.IsOpen())

	require.NoError(t, alert.Acknowledge("analyst-1", now))
	assert.Equal(t, AlertStatusAcknowledged, alert.Status)
	assert.True(t, alert.IsOpen())

	require.NoError(t, alert.Resolve("analyst-1", "confirmed and escalated", now.Add(time.Hour)))
	assert.Equal(t, AlertStatusResolved, alert.Status)
	assert.False(t, alert.IsOpen())
}

func TestAlertInvalidTransitions(t *testing.T) {
	now := time.Now()

	alert := &RiskAlert{Status: AlertStatusActive}
	// 未确认的告警不能直接关闭
	assert.ErrorIs(t, alert.Resolve("analyst-1", "", now), ErrInvalidAlertTransition)
	assert.ErrorIs(t, alert.Dismiss("analyst-1", "", now), ErrInvalidAlertTransition)

	require.NoError(t, alert.Acknowledge("analyst-1", now))
	// 重复确认无效
	assert.ErrorIs(t, alert.Acknowledge("analyst-2", now), ErrInvalidAlertTransition)

	require.NoError(t, alert.Dismiss("analyst-1", "false positive", now))
	assert.ErrorIs(t, alert.Resolve("analyst-1", "", now), ErrInvalidAlertTransition)
}

func TestReportSubmitOnce(t *testing.T) {
	now := time.Now()
	report := &ComplianceReport{
		ReportNo:   "RPT-001",
		Type:       ReportTypeSAR,
		CustomerID: "CUST-001",
		Status:     ReportStatusDraft,
	}
	assert.True(t, report.CanModify())

	require.NoError(t, report.MarkSubmitted(now))
	assert.False(t, report.CanModify())
	assert.ErrorIs(t, report.MarkSubmitted(now), ErrReportSubmitted)
}

func TestMoreSevere(t *testing.T) {
	assert.Equal(t, ReportTypeSAR, MoreSevere(ReportTypeCTR, ReportTypeSAR))
	assert.Equal(t, ReportTypeSAR, MoreSevere(ReportTypeSAR, ReportTypeCrossBorder))
	assert.Equal(t, ReportTypeCrossBorder, MoreSevere(ReportTypeCrossBorder, ReportTypeCTR))
	assert.Equal(t, ReportTypeCTR, MoreSevere(ReportTypeNone, ReportTypeCTR))
	assert.Equal(t, ReportTypeNone, MoreSevere(ReportTypeNone, ReportTypeNone))
}

func TestReviewInterval(t *testing.T) {
	assert.Less(t, ReviewInterval(RiskLevelCritical), ReviewInterval(RiskLevelHigh))
	assert.Less(t, ReviewInterval(RiskLevelHigh), ReviewInterval(RiskLevelMedium))
	assert.Less(t, ReviewInterval(RiskLevelMedium), ReviewInterval(RiskLevelLow))
}
