package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[string]*domain.Customer
	due       []*domain.Customer
}

func (f *fakeCustomerRepo) FindByCustomerID(_ context.Context, id string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.customers[id], nil
}

func (f *fakeCustomerRepo) FindDueForReview(_ context.Context, _ time.Time, _ int) ([]*domain.Customer, error) {
	return f.due, nil
}

type fakeTxRepo struct {
	mu      sync.Mutex
	recent  []domain.Transaction
	updated []*domain.Transaction
}

func (f *fakeTxRepo) Save(_ context.Context, _ *domain.Transaction) error { return nil }

func (f *fakeTxRepo) FindByTransactionID(_ context.Context, _ string) (*domain.Transaction, error) {
	return nil, nil
}

func (f *fakeTxRepo) FindRecentByCustomer(_ context.Context, _ string, _ time.Time) ([]domain.Transaction, error) {
	return f.recent, nil
}

func (f *fakeTxRepo) UpdateRiskAssessment(_ context.Context, tx *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = append(f.updated, tx)
	return nil
}

type fakeAlertRepo struct {
	mu           sync.Mutex
	alerts       []*domain.RiskAlert
	failNextSave error
}

func (f *fakeAlertRepo) Save(_ context.Context, alert *domain.RiskAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNextSave != nil {
		err := f.failNextSave
		f.failNextSave = nil
		return err
	}
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeAlertRepo) Update(_ context.Context, _ *domain.RiskAlert) error { return nil }

func (f *fakeAlertRepo) FindByAlertNo(_ context.Context, _ string) (*domain.RiskAlert, error) {
	return nil, nil
}

func (f *fakeAlertRepo) FindActiveInWindow(_ context.Context, entityID string, category domain.AlertCategory, since time.Time) (*domain.RiskAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.EntityID == entityID && a.Category == category && a.IsOpen() && !a.CreatedAt.Before(since) {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAlertRepo) FindOpenByEntity(_ context.Context, _ string) ([]*domain.RiskAlert, error) {
	return nil, nil
}

type fakeGenerator struct {
	mu      sync.Mutex
	reports []*domain.ComplianceReport
}

func (f *fakeGenerator) Generate(_ context.Context, reportType domain.ReportType, entityID string, tx *domain.Transaction, _ map[string]any) (*domain.ComplianceReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	report := &domain.ComplianceReport{
		ReportNo:   "RPT-" + string(reportType) + "-" + entityID,
		Type:       reportType,
		CustomerID: entityID,
		Status:     domain.ReportStatusDraft,
	}
	if tx != nil {
		report.TransactionID = tx.TransactionID
	}
	f.reports = append(f.reports, report)
	return report, nil
}

// fakeDedup 进程内去重，模拟 Redis SETNX 语义
type fakeDedup struct {
	mu       sync.Mutex
	acquired map[string]bool
	released int
	err      error
}

func (f *fakeDedup) TryAcquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquired == nil {
		f.acquired = make(map[string]bool)
	}
	if f.acquired[key] {
		return false, nil
	}
	f.acquired[key] = true
	return true, nil
}

func (f *fakeDedup) Release(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.acquired, key)
	f.released++
	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakePublisher) Publish(_ context.Context, topic string, _ string, _ any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

type fakeScreening struct {
	hits map[string]*domain.ScreenResult
	err  error
}

func (f *fakeScreening) ScreenName(_ context.Context, name string) (*domain.ScreenResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if hit, ok := f.hits[name]; ok {
		return hit, nil
	}
	return &domain.ScreenResult{Matched: false, ScreenedAt: time.Now()}, nil
}

type monitorFixture struct {
	svc       *MonitorService
	customers *fakeCustomerRepo
	txRepo    *fakeTxRepo
	alerts    *fakeAlertRepo
	generator *fakeGenerator
	dedup     *fakeDedup
	publisher *fakePublisher
	screening *fakeScreening
}

func newMonitorFixture(t *testing.T) *monitorFixture {
	t.Helper()

	customers := &fakeCustomerRepo{customers: map[string]*domain.Customer{
		"CUST-001": {
			CustomerID: "CUST-001",
			Name:       "Zhang Wei",
			Type:       domain.CustomerTypeIndividual,
			KYCStatus:  domain.KYCStatusVerified,
			Active:     true,
		},
	}}
	txRepo := &fakeTxRepo{}
	alerts := &fakeAlertRepo{}
	generator := &fakeGenerator{}
	dedup := &fakeDedup{}
	publisher := &fakePublisher{}
	screening := &fakeScreening{hits: map[string]*domain.ScreenResult{}}

	m := metrics.New("test")
	trigger := NewAlertTrigger(alerts, generator, dedup, publisher, m, time.Hour)
	aggregator, err := domain.NewAggregator(domain.DefaultLevelBands(), 50)
	require.NoError(t, err)

	svc := NewMonitorService(
		customers, txRepo,
		domain.NewRuleEvaluator(domain.DefaultRuleConfig()),
		screening, aggregator, trigger, m,
		time.Second,
	)
	return &monitorFixture{
		svc:       svc,
		customers: customers,
		txRepo:    txRepo,
		alerts:    alerts,
		generator: generator,
		dedup:     dedup,
		publisher: publisher,
		screening: screening,
	}
}

func makeDeposit(id string, amountUSD float64, at time.Time) *domain.Transaction {
	amount := decimal.NewFromFloat(amountUSD)
	return &domain.Transaction{
		TransactionID: id,
		CustomerID:    "CUST-001",
		Type:          domain.TransactionTypeDeposit,
		Amount:        amount,
		Currency:      "USD",
		AmountUSD:     amount,
		Status:        domain.TransactionStatusPending,
		BookingTime:   at,
		ValueDate:     at,
	}
}

func TestEvaluateTransactionClean(t *testing.T) {
	f := newMonitorFixture(t)
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tx := makeDeposit("TX-1", 500, at)
	result, err := f.svc.EvaluateTransaction(context.Background(), tx)
	require.NoError(t, err)

	assert.Zero(t, result.Score)
	assert.Equal(t, domain.RiskLevelLow, result.Level)
	assert.False(t, result.RequiresAlert)
	assert.Equal(t, domain.CheckStatusPass, tx.Checks.SanctionsScreening.Status)
	assert.Equal(t, domain.CheckStatusPass, tx.Checks.RuleEvaluation.Status)
	assert.True(t, tx.AutoApprovable())
	assert.Empty(t, f.alerts.alerts)
	assert.Len(t, f.txRepo.updated, 1)
}

func TestEvaluateTransactionCTRTriggersAlertAndReport(t *testing.T) {
	f := newMonitorFixture(t)
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tx := makeDeposit("TX-1", 10000, at)
	result, err := f.svc.EvaluateTransaction(context.Background(), tx)
	require.NoError(t, err)

	// cash_threshold(40) + round_amount(10)
	assert.Equal(t, 50.0, result.Score)
	assert.True(t, result.RequiresAlert)
	require.True(t, result.RequiresReport)
	assert.Equal(t, domain.ReportTypeCTR, result.ReportType)

	require.Len(t, f.alerts.alerts, 1)
	require.Len(t, f.generator.reports, 1)
	assert.Equal(t, f.generator.reports[0].ReportNo, tx.Checks.ReportReference)
	assert.Contains(t, f.publisher.topics, TopicAlertRaised)
	assert.Contains(t, f.publisher.topics, TopicReportTriggered)
}

func TestEvaluateTransactionSanctionsHitBlocks(t *testing.T) {
	f := newMonitorFixture(t)
	f.screening.hits["Zhang Wei"] = &domain.ScreenResult{
		Matched:      true,
		MatchedLists: []string{"OFAC_SDN"},
		MatchType:    domain.MatchTypeExact,
		BestScore:    1,
	}
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tx := makeDeposit("TX-1", 500, at)
	result, err := f.svc.EvaluateTransaction(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, 100.0, result.Score)
	assert.Equal(t, domain.RiskLevelCritical, result.Level)
	assert.Equal(t, domain.ReportTypeSAR, result.ReportType)

	// 制裁命中强制阻断，不可自动放行
	assert.Equal(t, domain.TransactionStatusBlocked, tx.Status)
	assert.Equal(t, domain.CheckStatusFail, tx.Checks.SanctionsScreening.Status)
	assert.Equal(t, domain.CheckStatusFail, tx.Checks.PEPScreening.Status)
	assert.False(t, tx.AutoApprovable())
	assert.Equal(t, []string{"OFAC_SDN"}, tx.Checks.SanctionsScreening.MatchedLists)
}

func TestEvaluateTransactionScreeningFailurePends(t *testing.T) {
	f := newMonitorFixture(t)
	f.screening.err = errors.New("registry timeout")
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tx := makeDeposit("TX-1", 500, at)
	result, err := f.svc.EvaluateTransaction(context.Background(), tx)
	require.NoError(t, err)

	// 依赖故障不等同于筛查通过
	assert.Equal(t, domain.CheckStatusPending, tx.Checks.SanctionsScreening.Status)
	assert.Equal(t, domain.CheckStatusPending, tx.Checks.PEPScreening.Status)
	assert.False(t, tx.AutoApprovable())
	assert.NotEqual(t, domain.TransactionStatusBlocked, tx.Status)
	assert.Zero(t, result.Score)
}

func TestEvaluateTransactionAlertDedup(t *testing.T) {
	f := newMonitorFixture(t)
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	first := makeDeposit("TX-1", 10000, at)
	_, err := f.svc.EvaluateTransaction(context.Background(), first)
	require.NoError(t, err)

	second := makeDeposit("TX-2", 10000, at.Add(10*time.Minute))
	_, err = f.svc.EvaluateTransaction(context.Background(), second)
	require.NoError(t, err)

	// 窗口内同一客户同一分类只产生一条告警；申报义务不去重
	assert.Len(t, f.alerts.alerts, 1)
	assert.Len(t, f.generator.reports, 2)
}

func TestEvaluateTransactionDedupRepositoryFallback(t *testing.T) {
	f := newMonitorFixture(t)
	f.dedup.err = errors.New("redis down")
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	first := makeDeposit("TX-1", 10000, at)
	_, err := f.svc.EvaluateTransaction(context.Background(), first)
	require.NoError(t, err)

	second := makeDeposit("TX-2", 10000, at.Add(10*time.Minute))
	_, err = f.svc.EvaluateTransaction(context.Background(), second)
	require.NoError(t, err)

	// Redis 不可用时数据库兜底仍然保证幂等
	assert.Len(t, f.alerts.alerts, 1)
}

func TestCustomerLocksReclaimedAfterUse(t *testing.T) {
	locks := newCustomerLocks()

	unlock := locks.lock("CUST-001")
	unlock()

	// 无人持有时锁条目回收，锁表不随客户数无限增长
	locks.mu.Lock()
	assert.Empty(t, locks.locks)
	locks.mu.Unlock()
}

func TestCustomerLocksSerializeSameCustomer(t *testing.T) {
	locks := newCustomerLocks()

	var wg sync.WaitGroup
	var inCritical, maxInCritical int32
	var mu sync.Mutex
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock("CUST-001")
			defer unlock()
			mu.Lock()
			inCritical++
			if inCritical > maxInCritical {
				maxInCritical = inCritical
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInCritical)
	locks.mu.Lock()
	assert.Empty(t, locks.locks)
	locks.mu.Unlock()
}

func TestEvaluateTransactionUnknownCustomer(t *testing.T) {
	f := newMonitorFixture(t)
	at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

	tx := makeDeposit("TX-1", 500, at)
	tx.CustomerID = "CUST-404"
	_, err := f.svc.EvaluateTransaction(context.Background(), tx)
	assert.ErrorIs(t, err, ErrCustomerNotFound)
	assert.Empty(t, f.txRepo.updated)
}
