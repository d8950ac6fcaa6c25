package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

// 告警与报告事件主题
const (
	TopicAlertRaised     = "risk.alert.raised"
	TopicReportTriggered = "compliance.report.triggered"
)

// AlertEvent 告警事件载荷
type AlertEvent struct {
	AlertNo  string               `json:"alert_no"`
	EntityID string               `json:"entity_id"`
	Category domain.AlertCategory `json:"category"`
	Severity domain.RiskLevel     `json:"severity"`
	Score    float64              `json:"score"`
	Factors  []string             `json:"factors,omitempty"`
	RaisedAt time.Time            `json:"raised_at"`
}

// ReportEvent 报告事件载荷
type ReportEvent struct {
	ReportNo    string            `json:"report_no"`
	Type        domain.ReportType `json:"type"`
	CustomerID  string            `json:"customer_id"`
	TriggeredAt time.Time         `json:"triggered_at"`
}

// AlertTrigger 告警与报告触发器
// 幂等语义：同一（实体，分类）在去重窗口内重复触发只产生一条告警。
// 去重先走 Redis 原子抢占，再以数据库中的活跃告警兜底，Redis 清空不会导致重复告警
type AlertTrigger struct {
	alerts    domain.AlertRepository
	generator domain.ReportGenerator
	dedup     domain.DedupStore
	publisher domain.EventPublisher
	metrics   *metrics.Metrics

	dedupWindow time.Duration
}

// NewAlertTrigger 创建告警触发器
func NewAlertTrigger(
	alerts domain.AlertRepository,
	generator domain.ReportGenerator,
	dedup domain.DedupStore,
	publisher domain.EventPublisher,
	m *metrics.Metrics,
	dedupWindow time.Duration,
) *AlertTrigger {
	return &AlertTrigger{
		alerts:      alerts,
		generator:   generator,
		dedup:       dedup,
		publisher:   publisher,
		metrics:     m,
		dedupWindow: dedupWindow,
	}
}

// Fire 处理一次聚合结果：按需创建告警与监管报告
// 告警受去重窗口约束；报告是监管义务，不参与去重。返回的告警与报告均可能为 nil
func (t *AlertTrigger) Fire(ctx context.Context, result *domain.AggregationResult, category domain.AlertCategory, tx *domain.Transaction) (*domain.RiskAlert, *domain.ComplianceReport, error) {
	now := time.Now()

	var alert *domain.RiskAlert
	if result.RequiresAlert {
		created, err := t.raiseAlert(ctx, result, category, now)
		if err != nil {
			return nil, nil, err
		}
		alert = created
	}

	var report *domain.ComplianceReport
	if result.RequiresReport {
		generated, err := t.triggerReport(ctx, result, alert, tx, now)
		if err != nil {
			return alert, nil, err
		}
		report = generated
	}

	return alert, report, nil
}

func (t *AlertTrigger) raiseAlert(ctx context.Context, result *domain.AggregationResult, category domain.AlertCategory, now time.Time) (*domain.RiskAlert, error) {
	key := fmt.Sprintf("alert:dedup:%s:%s", result.EntityID, category)

	acquired, err := t.dedup.TryAcquire(ctx, key, t.dedupWindow)
	claimed := err == nil && acquired
	if err != nil {
		// 去重存储故障时退化为仅数据库兜底，宁可多查一次也不丢告警
		logger.Warn(ctx, "dedup store unavailable, falling back to repository check",
			"entity_id", result.EntityID, "error", err)
		acquired = true
	}
	if !acquired {
		t.metrics.AlertsDeduplicated.Inc()
		return nil, nil
	}

	// 数据库兜底：窗口内仍有未关闭的同类告警则视为重复
	existing, err := t.alerts.FindActiveInWindow(ctx, result.EntityID, category, now.Add(-t.dedupWindow))
	if err != nil {
		t.releaseClaim(ctx, key, claimed)
		return nil, fmt.Errorf("check active alerts: %w", err)
	}
	if existing != nil {
		t.metrics.AlertsDeduplicated.Inc()
		return nil, nil
	}

	alert := &domain.RiskAlert{
		AlertNo:     "AL-" + uuid.NewString(),
		EntityID:    result.EntityID,
		EntityType:  "CUSTOMER",
		Category:    category,
		Severity:    result.Level,
		Status:      domain.AlertStatusActive,
		ActualValue: result.Score,
		Description: describeAlert(result),
		Factors:     strings.Join(result.Factors, ";"),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.alerts.Save(ctx, alert); err != nil {
		// 告警未落库就归还窗口抢占，避免窗口内的重试被当作重复而永久丢失
		t.releaseClaim(ctx, key, claimed)
		return nil, fmt.Errorf("save alert: %w", err)
	}
	t.metrics.AlertsCreated.Inc()

	event := AlertEvent{
		AlertNo:  alert.AlertNo,
		EntityID: alert.EntityID,
		Category: alert.Category,
		Severity: alert.Severity,
		Score:    result.Score,
		Factors:  result.Factors,
		RaisedAt: now,
	}
	if err := t.publisher.Publish(ctx, TopicAlertRaised, alert.EntityID, event); err != nil {
		// 事件投递失败不回滚告警，下游以数据库为准
		logger.Error(ctx, "publish alert event failed", "alert_no", alert.AlertNo, "error", err)
	}

	return alert, nil
}

func (t *AlertTrigger) releaseClaim(ctx context.Context, key string, claimed bool) {
	if !claimed {
		return
	}
	if err := t.dedup.Release(ctx, key); err != nil {
		logger.Warn(ctx, "release dedup claim failed", "key", key, "error", err)
	}
}

func (t *AlertTrigger) triggerReport(ctx context.Context, result *domain.AggregationResult, alert *domain.RiskAlert, tx *domain.Transaction, now time.Time) (*domain.ComplianceReport, error) {
	details := map[string]any{"score": result.Score, "factors": result.Factors}
	if alert != nil {
		details["alert_no"] = alert.AlertNo
	}

	report, err := t.generator.Generate(ctx, result.ReportType, result.EntityID, tx, details)
	if err != nil {
		return nil, fmt.Errorf("generate %s report: %w", result.ReportType, err)
	}
	t.metrics.ReportsTriggered.WithLabelValues(string(result.ReportType)).Inc()

	event := ReportEvent{
		ReportNo:    report.ReportNo,
		Type:        report.Type,
		CustomerID:  report.CustomerID,
		TriggeredAt: now,
	}
	if err := t.publisher.Publish(ctx, TopicReportTriggered, report.CustomerID, event); err != nil {
		logger.Error(ctx, "publish report event failed", "report_no", report.ReportNo, "error", err)
	}

	return report, nil
}

func describeAlert(result *domain.AggregationResult) string {
	return fmt.Sprintf("risk score %.0f (%s), triggered: %s",
		result.Score, result.Level, strings.Join(result.Factors, ", "))
}
