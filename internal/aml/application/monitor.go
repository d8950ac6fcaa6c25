// Package application 交易监控引擎的应用服务：实时评估、告警触发与周期性批量评估
package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrNilTransaction   = errors.New("transaction is required")
)

// recentWindow 规则评估读取的历史交易窗口，覆盖所有规则的最大观察期
const recentWindow = 30 * 24 * time.Hour

// customerLocks 按客户串行化评估：同一客户的两笔交易不会并发评估，
// 不同客户之间互不阻塞。锁按引用计数在无人持有时回收，避免长期运行下
// 锁表随客户数无限增长
type customerLocks struct {
	mu    sync.Mutex
	locks map[string]*customerLock
}

type customerLock struct {
	mu   sync.Mutex
	refs int
}

func newCustomerLocks() *customerLocks {
	return &customerLocks{locks: make(map[string]*customerLock)}
}

func (c *customerLocks) lock(customerID string) func() {
	c.mu.Lock()
	l, ok := c.locks[customerID]
	if !ok {
		l = &customerLock{}
		c.locks[customerID] = l
	}
	l.refs++
	c.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		c.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(c.locks, customerID)
		}
		c.mu.Unlock()
	}
}

// MonitorService 实时交易监控服务
type MonitorService struct {
	customers    domain.CustomerRepository
	transactions domain.TransactionRepository
	evaluator    *domain.RuleEvaluator
	screening    domain.ScreeningProvider
	aggregator   *domain.Aggregator
	trigger      *AlertTrigger
	metrics      *metrics.Metrics

	locks            *customerLocks
	screeningTimeout time.Duration
}

// NewMonitorService 创建交易监控服务
func NewMonitorService(
	customers domain.CustomerRepository,
	transactions domain.TransactionRepository,
	evaluator *domain.RuleEvaluator,
	screening domain.ScreeningProvider,
	aggregator *domain.Aggregator,
	trigger *AlertTrigger,
	m *metrics.Metrics,
	screeningTimeout time.Duration,
) *MonitorService {
	return &MonitorService{
		customers:        customers,
		transactions:     transactions,
		evaluator:        evaluator,
		screening:        screening,
		aggregator:       aggregator,
		trigger:          trigger,
		metrics:          m,
		locks:            newCustomerLocks(),
		screeningTimeout: screeningTimeout,
	}
}

// EvaluateTransaction 对单笔交易执行完整评估：本地规则、名单筛查、聚合、
// 回写风险子记录，并在需要时触发告警与监管报告
//
// 筛查不可用时交易转入待定而非放行；制裁命中强制阻断交易
func (s *MonitorService) EvaluateTransaction(ctx context.Context, tx *domain.Transaction) (*domain.AggregationResult, error) {
	if tx == nil {
		return nil, ErrNilTransaction
	}

	unlock := s.locks.lock(tx.CustomerID)
	defer unlock()

	start := time.Now()
	defer func() {
		s.metrics.EvaluationsTotal.Inc()
		s.metrics.EvaluationDuration.Observe(time.Since(start).Seconds())
	}()

	customer, err := s.customers.FindByCustomerID(ctx, tx.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load customer %s: %w", tx.CustomerID, err)
	}
	if customer == nil {
		return nil, fmt.Errorf("%w: %s", ErrCustomerNotFound, tx.CustomerID)
	}

	recent, err := s.transactions.FindRecentByCustomer(ctx, tx.CustomerID, tx.BookingTime.Add(-recentWindow))
	if err != nil {
		return nil, fmt.Errorf("load recent transactions: %w", err)
	}

	ruleResults := s.evaluator.Evaluate(tx, customer, recent)

	screeningResult, screeningErr := s.screenParties(ctx, customer, tx)
	now := time.Now()
	switch {
	case screeningErr != nil:
		// 依赖故障：筛查转入待定，交易不得自动放行，也绝不视为通过
		logger.Warn(ctx, "screening unavailable, transaction pending",
			"transaction_id", tx.TransactionID, "error", screeningErr)
		tx.ApplyScreeningPending(screeningErr.Error(), now)
	case screeningResult.Triggered:
		s.metrics.ScreeningMatches.Inc()
		matched, _ := screeningResult.Details["matched_lists"].([]string)
		tx.ApplySanctionsFail(matched, now)
		ruleResults = append(ruleResults, screeningResult)
	default:
		tx.Checks.SanctionsScreening = domain.ComplianceCheck{Status: domain.CheckStatusPass, CheckedAt: now}
		tx.Checks.PEPScreening = domain.ComplianceCheck{Status: domain.CheckStatusPass, CheckedAt: now}
	}

	result := s.aggregator.Aggregate(tx.CustomerID, nil, ruleResults)

	for _, r := range ruleResults {
		if r.Triggered {
			s.metrics.RulesTriggered.WithLabelValues(r.RuleName).Inc()
		}
	}

	tx.Risk = domain.RiskAssessment{
		OverallScore:   result.Score,
		AMLScore:       result.Score,
		SanctionsScore: sanctionsScore(ruleResults),
		Level:          result.Level,
		Factors:        result.Factors,
		AssessedAt:     now,
	}
	tx.Checks.RuleEvaluation = domain.ComplianceCheck{Status: ruleCheckStatus(result), CheckedAt: now}

	if result.RequiresAlert {
		alert, report, triggerErr := s.trigger.Fire(ctx, result, domain.AlertCategoryTransaction, tx)
		if triggerErr != nil {
			logger.Error(ctx, "alert trigger failed",
				"transaction_id", tx.TransactionID, "error", triggerErr)
		} else {
			if alert != nil {
				logger.Info(ctx, "alert raised",
					"alert_no", alert.AlertNo, "customer_id", tx.CustomerID, "score", result.Score)
			}
			if report != nil {
				tx.Checks.ReportReference = report.ReportNo
			}
		}
	}

	if err := s.transactions.UpdateRiskAssessment(ctx, tx); err != nil {
		return nil, fmt.Errorf("persist risk assessment: %w", err)
	}

	return result, nil
}

// screenParties 并行筛查客户与交易对手方，整体受筛查超时约束
func (s *MonitorService) screenParties(ctx context.Context, customer *domain.Customer, tx *domain.Transaction) (domain.RuleResult, error) {
	screenCtx, cancel := context.WithTimeout(ctx, s.screeningTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		s.metrics.ScreeningDuration.Observe(time.Since(start).Seconds())
	}()

	var customerHit, counterpartyHit *domain.ScreenResult

	g, gctx := errgroup.WithContext(screenCtx)
	g.Go(func() error {
		result, err := s.screening.ScreenName(gctx, customer.Name)
		if err != nil {
			return fmt.Errorf("screen customer: %w", err)
		}
		customerHit = result
		return nil
	})
	if tx.Counterparty.Name != "" {
		g.Go(func() error {
			result, err := s.screening.ScreenName(gctx, tx.Counterparty.Name)
			if err != nil {
				return fmt.Errorf("screen counterparty: %w", err)
			}
			counterpartyHit = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RuleResult{}, err
	}

	return domain.SanctionsRuleResult(customerHit, counterpartyHit), nil
}

func sanctionsScore(results []domain.RuleResult) float64 {
	for _, r := range results {
		if r.RuleName == domain.RuleSanctionsMatch && r.Triggered {
			return r.RiskScore
		}
	}
	return 0
}

func ruleCheckStatus(result *domain.AggregationResult) domain.CheckStatus {
	if result.RequiresAlert {
		return domain.CheckStatusFail
	}
	return domain.CheckStatusPass
}
