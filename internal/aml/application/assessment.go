package application

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

// QuantProvider 量化风险库在批量评估路径上的契约
// 实现方把信用、市场、流动性等量化结果折算为 [0,100] 的风险贡献
type QuantProvider interface {
	Assess(ctx context.Context, customer *domain.Customer) (*domain.QuantSummary, error)
}

// EntityFailure 单个实体的评估失败记录
type EntityFailure struct {
	EntityID string `json:"entity_id"`
	Reason   string `json:"reason"`
}

// BatchResult 一次批量评估的结果汇总
type BatchResult struct {
	Total     int             `json:"total"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Failures  []EntityFailure `json:"failures,omitempty"`
	StartedAt time.Time       `json:"started_at"`
	Duration  time.Duration   `json:"duration"`
}

// AssessmentService 周期性风险评估驱动器
// 有界并发池逐个评估到期客户；单个实体的失败只记录，不中断整批
type AssessmentService struct {
	customers  domain.CustomerRepository
	snapshots  domain.SnapshotRepository
	quant      QuantProvider
	aggregator *domain.Aggregator
	trigger    *AlertTrigger
	metrics    *metrics.Metrics

	poolSize      int
	entityTimeout time.Duration
}

// NewAssessmentService 创建批量评估服务
func NewAssessmentService(
	customers domain.CustomerRepository,
	snapshots domain.SnapshotRepository,
	quant QuantProvider,
	aggregator *domain.Aggregator,
	trigger *AlertTrigger,
	m *metrics.Metrics,
	poolSize int,
	entityTimeout time.Duration,
) *AssessmentService {
	if poolSize <= 0 {
		poolSize = 1
	}
	return &AssessmentService{
		customers:     customers,
		snapshots:     snapshots,
		quant:         quant,
		aggregator:    aggregator,
		trigger:       trigger,
		metrics:       m,
		poolSize:      poolSize,
		entityTimeout: entityTimeout,
	}
}

// RunPeriodicAssessment 评估所有复核到期的客户
// 整批的上下文取消会停止派发新任务；已开始的实体评估在自身超时内完成
func (s *AssessmentService) RunPeriodicAssessment(ctx context.Context, asOf time.Time, limit int) (*BatchResult, error) {
	due, err := s.customers.FindDueForReview(ctx, asOf, limit)
	if err != nil {
		return nil, fmt.Errorf("list customers due for review: %w", err)
	}

	start := time.Now()
	result := &BatchResult{Total: len(due), StartedAt: start}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.poolSize)

	for _, customer := range due {
		customer := customer
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				mu.Lock()
				result.Failed++
				result.Failures = append(result.Failures, EntityFailure{EntityID: customer.CustomerID, Reason: err.Error()})
				mu.Unlock()
				return nil
			}

			entityCtx, cancel := context.WithTimeout(gctx, s.entityTimeout)
			err := s.assessEntity(entityCtx, customer, asOf)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Failures = append(result.Failures, EntityFailure{EntityID: customer.CustomerID, Reason: err.Error()})
				s.metrics.AssessmentsFailed.Inc()
				logger.Error(gctx, "entity assessment failed",
					"customer_id", customer.CustomerID, "error", err)
			} else {
				result.Succeeded++
				s.metrics.AssessmentsSucceeded.Inc()
			}
			// 失败隔离：永不向 errgroup 返回错误，避免取消整批
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	logger.Info(ctx, "periodic assessment finished",
		"total", result.Total, "succeeded", result.Succeeded, "failed", result.Failed,
		"duration", result.Duration)
	return result, nil
}

// assessEntity 对单个客户执行一次量化评估并落快照
func (s *AssessmentService) assessEntity(ctx context.Context, customer *domain.Customer, asOf time.Time) error {
	quant, err := s.quant.Assess(ctx, customer)
	if err != nil {
		return fmt.Errorf("quantitative assessment: %w", err)
	}

	agg := s.aggregator.Aggregate(customer.CustomerID, quant, nil)

	snapshot := &domain.RiskSnapshot{
		SnapshotNo:     "RS-" + uuid.NewString(),
		EntityID:       customer.CustomerID,
		EntityType:     "CUSTOMER",
		Score:          agg.Score,
		Level:          agg.Level,
		Factors:        strings.Join(agg.Factors, ";"),
		AlertTriggered: agg.RequiresAlert,
		ReportType:     agg.ReportType,
		AssessedAt:     asOf,
		NextReview:     asOf.Add(domain.ReviewInterval(agg.Level)),
	}
	if err := s.snapshots.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	if agg.RequiresAlert {
		if _, _, err := s.trigger.Fire(ctx, agg, domain.AlertCategoryPeriodic, nil); err != nil {
			return fmt.Errorf("trigger alert: %w", err)
		}
	}
	return nil
}
