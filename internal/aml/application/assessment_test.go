package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

type fakeSnapshotRepo struct {
	mu        sync.Mutex
	snapshots []*domain.RiskSnapshot
}

func (f *fakeSnapshotRepo) Save(_ context.Context, s *domain.RiskSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshots = append(f.snapshots, s)
	return nil
}

func (f *fakeSnapshotRepo) FindLatestByEntity(_ context.Context, _ string) (*domain.RiskSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshotRepo) byEntity(entityID string) *domain.RiskSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.snapshots {
		if s.EntityID == entityID {
			return s
		}
	}
	return nil
}

type fakeQuant struct {
	mu      sync.Mutex
	scores  map[string]float64
	failFor map[string]error
	calls   int
}

func (f *fakeQuant) Assess(_ context.Context, c *domain.Customer) (*domain.QuantSummary, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err, ok := f.failFor[c.CustomerID]; ok {
		return nil, err
	}
	return &domain.QuantSummary{Score: f.scores[c.CustomerID], Factors: []string{"quantitative risk"}}, nil
}

func dueCustomer(id string) *domain.Customer {
	return &domain.Customer{
		CustomerID: id,
		Name:       "Customer " + id,
		Type:       domain.CustomerTypeIndividual,
		Active:     true,
	}
}

func newAssessmentFixture(t *testing.T, quant *fakeQuant, due []*domain.Customer, poolSize int) (*AssessmentService, *fakeSnapshotRepo, *fakeAlertRepo) {
	t.Helper()

	customers := &fakeCustomerRepo{due: due}
	snapshots := &fakeSnapshotRepo{}
	alerts := &fakeAlertRepo{}
	m := metrics.New("test")
	trigger := NewAlertTrigger(alerts, &fakeGenerator{}, &fakeDedup{}, &fakePublisher{}, m, time.Hour)
	aggregator, err := domain.NewAggregator(domain.DefaultLevelBands(), 50)
	require.NoError(t, err)

	svc := NewAssessmentService(customers, snapshots, quant, aggregator, trigger, m, poolSize, time.Second)
	return svc, snapshots, alerts
}

func TestRunPeriodicAssessment(t *testing.T) {
	quant := &fakeQuant{scores: map[string]float64{
		"CUST-001": 20,
		"CUST-002": 70,
		"CUST-003": 95,
	}}
	due := []*domain.Customer{dueCustomer("CUST-001"), dueCustomer("CUST-002"), dueCustomer("CUST-003")}
	svc, snapshots, alerts := newAssessmentFixture(t, quant, due, 2)

	asOf := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	result, err := svc.RunPeriodicAssessment(context.Background(), asOf, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 3, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Len(t, snapshots.snapshots, 3)

	low := snapshots.byEntity("CUST-001")
	require.NotNil(t, low)
	assert.Equal(t, domain.RiskLevelLow, low.Level)
	assert.False(t, low.AlertTriggered)
	// 低风险客户的复核间隔最长
	assert.Equal(t, asOf.Add(domain.ReviewInterval(domain.RiskLevelLow)), low.NextReview)

	critical := snapshots.byEntity("CUST-003")
	require.NotNil(t, critical)
	assert.Equal(t, domain.RiskLevelCritical, critical.Level)
	assert.True(t, critical.AlertTriggered)

	// 超过告警阈值的两个客户各产生一条告警
	assert.Len(t, alerts.alerts, 2)
}

func TestRunPeriodicAssessmentFailureIsolation(t *testing.T) {
	quant := &fakeQuant{
		scores:  map[string]float64{"CUST-001": 20, "CUST-003": 40},
		failFor: map[string]error{"CUST-002": errors.New("portfolio feed unavailable")},
	}
	due := []*domain.Customer{dueCustomer("CUST-001"), dueCustomer("CUST-002"), dueCustomer("CUST-003")}
	svc, snapshots, _ := newAssessmentFixture(t, quant, due, 2)

	result, err := svc.RunPeriodicAssessment(context.Background(), time.Now(), 100)
	require.NoError(t, err)

	// 单个实体失败不影响其余实体
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "CUST-002", result.Failures[0].EntityID)
	assert.Contains(t, result.Failures[0].Reason, "portfolio feed unavailable")

	assert.Len(t, snapshots.snapshots, 2)
	assert.Nil(t, snapshots.byEntity("CUST-002"))
}

func TestRunPeriodicAssessmentEmptyBatch(t *testing.T) {
	svc, snapshots, _ := newAssessmentFixture(t, &fakeQuant{}, nil, 4)

	result, err := svc.RunPeriodicAssessment(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Zero(t, result.Total)
	assert.Empty(t, snapshots.snapshots)
}

func TestRunPeriodicAssessmentBoundedConcurrency(t *testing.T) {
	var mu sync.Mutex
	var inFlight, peak int

	quant := &trackingQuant{
		onAssess: func() {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			time.Sleep(10 * time.Millisecond)
			mu.Lock()
			inFlight--
			mu.Unlock()
		},
	}
	due := make([]*domain.Customer, 0, 8)
	for _, id := range []string{"C1", "C2", "C3", "C4", "C5", "C6", "C7", "C8"} {
		due = append(due, dueCustomer(id))
	}
	svc, _, _ := newAssessmentFixture(t, &fakeQuant{}, due, 2)
	svc.quant = quant

	result, err := svc.RunPeriodicAssessment(context.Background(), time.Now(), 100)
	require.NoError(t, err)
	assert.Equal(t, 8, result.Succeeded)

	mu.Lock()
	defer mu.Unlock()
	assert.LessOrEqual(t, peak, 2)
}

type trackingQuant struct {
	onAssess func()
}

func (q *trackingQuant) Assess(_ context.Context, _ *domain.Customer) (*domain.QuantSummary, error) {
	q.onAssess()
	return &domain.QuantSummary{Score: 10}, nil
}
