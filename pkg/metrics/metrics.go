// Package metrics 提供 Prometheus helper，包含监控引擎的业务指标模板
package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// 交易评估总数
	EvaluationsTotal prometheus.Counter
	// 交易评估耗时
	EvaluationDuration prometheus.Histogram
	// 规则命中计数（按规则名）
	RulesTriggered *prometheus.CounterVec
	// 名单筛查耗时
	ScreeningDuration prometheus.Histogram
	// 名单筛查命中计数
	ScreeningMatches prometheus.Counter
	// 告警创建计数
	AlertsCreated prometheus.Counter
	// 告警去重拦截计数
	AlertsDeduplicated prometheus.Counter
	// 报告触发计数（按报告类型）
	ReportsTriggered *prometheus.CounterVec
	// 批量评估成功/失败计数
	AssessmentsSucceeded prometheus.Counter
	AssessmentsFailed    prometheus.Counter
	// 风险计算耗时（按计算类型）
	RiskCalcDuration *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	m := &Metrics{
		EvaluationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "evaluations_total",
			Help:      "Total transaction evaluations",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "evaluation_duration_seconds",
			Help:      "Transaction evaluation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		RulesTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "rules_triggered_total",
			Help:      "Total rule triggers by rule name",
		}, []string{"rule"}),
		ScreeningDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "screening_duration_seconds",
			Help:      "Watchlist screening duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		}),
		ScreeningMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "screening_matches_total",
			Help:      "Total watchlist screening matches",
		}),
		AlertsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "alerts_created_total",
			Help:      "Total risk alerts created",
		}),
		AlertsDeduplicated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "alerts_deduplicated_total",
			Help:      "Total alerts suppressed by the dedup window",
		}),
		ReportsTriggered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "reports_triggered_total",
			Help:      "Total regulatory reports triggered by type",
		}, []string{"type"}),
		AssessmentsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "assessments_succeeded_total",
			Help:      "Total periodic assessments that succeeded",
		}),
		AssessmentsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "assessments_failed_total",
			Help:      "Total periodic assessments that failed",
		}),
		RiskCalcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "riskmonitor",
			Subsystem: serviceName,
			Name:      "risk_calc_duration_seconds",
			Help:      "Risk calculation duration by calculation type",
			Buckets:   prometheus.DefBuckets,
		}, []string{"calc"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.EvaluationsTotal,
		m.EvaluationDuration,
		m.RulesTriggered,
		m.ScreeningDuration,
		m.ScreeningMatches,
		m.AlertsCreated,
		m.AlertsDeduplicated,
		m.ReportsTriggered,
		m.AssessmentsSucceeded,
		m.AssessmentsFailed,
		m.RiskCalcDuration,
	)

	return m
}

// Handler 返回 /metrics 的 HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 启动独立的指标端口
func (m *Metrics) Serve(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m.Handler())
	return http.ListenAndServe(fmt.Sprintf(":%d", port), mux)
}
