// Package application 风险计算服务的用例逻辑与 DTO
package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/riskmonitor/internal/risk/domain"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
	"github.com/wyfcoding/riskmonitor/pkg/metrics"
)

// PortfolioReader 组合持仓读取契约，由外部持久化协作方实现
type PortfolioReader interface {
	GetPositions(ctx context.Context, portfolioID string) ([]domain.Position, error)
	GetReturns(ctx context.Context, portfolioID string, days int) ([]float64, error)
	GetValue(ctx context.Context, portfolioID string) (decimal.Decimal, error)
}

// CreditRiskParams 信用风险计算参数
type CreditRiskParams struct {
	BorrowerID      string                  `json:"borrower_id"`
	FacilityID      string                  `json:"facility_id"`
	Financials      domain.FinancialMetrics `json:"financials"`
	Payments        domain.PaymentHistory   `json:"payments"`
	CreditRating    string                  `json:"credit_rating"`
	CollateralValue decimal.Decimal         `json:"collateral_value"`
	Exposure        decimal.Decimal         `json:"exposure"`
	DaysPastDue     int                     `json:"days_past_due"`
}

// MarketRiskParams 市场风险计算参数
type MarketRiskParams struct {
	PortfolioID string           `json:"portfolio_id"`
	Confidence  float64          `json:"confidence"`
	Method      domain.VaRMethod `json:"method"`
	HorizonDays int              `json:"horizon_days"`
	Iterations  int              `json:"iterations"`
	Seed        uint64           `json:"seed"`
	// 回看天数，决定收益率样本长度
	LookbackDays int `json:"lookback_days"`
}

// LiquidityParams 流动性比率计算参数
type LiquidityParams struct {
	HQLA             decimal.Decimal `json:"hqla"`
	NetOutflows      decimal.Decimal `json:"net_outflows"`
	AvailableFunding decimal.Decimal `json:"available_funding"`
	RequiredFunding  decimal.Decimal `json:"required_funding"`
}

// LiquidityResult 流动性比率结果
type LiquidityResult struct {
	LCR  *domain.LiquidityRatio `json:"lcr"`
	NSFR *domain.LiquidityRatio `json:"nsfr"`
}

// RiskService 风险计算应用服务
type RiskService struct {
	creditRepo      domain.CreditRiskRepository
	marketRepo      domain.MarketRiskRepository
	portfolios      PortfolioReader
	metrics         *metrics.Metrics
	varValidity     time.Duration
	defaultLookback int
}

// NewRiskService 创建风险计算服务
func NewRiskService(
	creditRepo domain.CreditRiskRepository,
	marketRepo domain.MarketRiskRepository,
	portfolios PortfolioReader,
	m *metrics.Metrics,
	varValidity time.Duration,
) *RiskService {
	return &RiskService{
		creditRepo:      creditRepo,
		marketRepo:      marketRepo,
		portfolios:      portfolios,
		metrics:         m,
		varValidity:     varValidity,
		defaultLookback: 252,
	}
}

// CalculateCreditRisk 计算并落库一次信用风险评估
func (s *RiskService) CalculateCreditRisk(ctx context.Context, params CreditRiskParams) (*domain.CreditRiskRecord, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RiskCalcDuration.WithLabelValues("credit").Observe(time.Since(start).Seconds())
		}
	}()

	if params.BorrowerID == "" || params.FacilityID == "" {
		return nil, fmt.Errorf("%w: borrower and facility are required", domain.ErrInvalidInput)
	}

	pd, err := domain.ProbabilityOfDefault(params.Financials, params.Payments, params.CreditRating)
	if err != nil {
		return nil, fmt.Errorf("pd calculation: %w", err)
	}

	lgd, err := domain.LossGivenDefault(params.CollateralValue, params.Exposure)
	if err != nil {
		return nil, fmt.Errorf("lgd calculation: %w", err)
	}

	ecl, err := domain.ExpectedCreditLoss(pd, lgd, params.Exposure)
	if err != nil {
		return nil, fmt.Errorf("ecl calculation: %w", err)
	}

	stage, err := domain.IFRS9Stage(params.DaysPastDue, pd)
	if err != nil {
		return nil, fmt.Errorf("stage calculation: %w", err)
	}

	now := time.Now()
	record := &domain.CreditRiskRecord{
		RecordNo:     "CR-" + uuid.NewString(),
		BorrowerID:   params.BorrowerID,
		FacilityID:   params.FacilityID,
		PD:           pd,
		LGD:          lgd,
		EAD:          params.Exposure,
		ECL:          ecl,
		IFRS9Stage:   stage,
		CalculatedAt: now,
		CreatedAt:    now,
	}

	if err := s.creditRepo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save credit risk record: %w", err)
	}

	logger.Info(ctx, "credit risk calculated",
		"borrower_id", params.BorrowerID,
		"facility_id", params.FacilityID,
		"pd", pd,
		"stage", stage,
	)
	return record, nil
}

// CalculateMarketRisk 计算并落库一次市场风险评估
func (s *RiskService) CalculateMarketRisk(ctx context.Context, params MarketRiskParams) (*domain.MarketRiskRecord, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RiskCalcDuration.WithLabelValues("market").Observe(time.Since(start).Seconds())
		}
	}()

	if params.PortfolioID == "" {
		return nil, fmt.Errorf("%w: portfolio id is required", domain.ErrInvalidInput)
	}

	lookback := params.LookbackDays
	if lookback <= 0 {
		lookback = s.defaultLookback
	}

	returns, err := s.portfolios.GetReturns(ctx, params.PortfolioID, lookback)
	if err != nil {
		return nil, fmt.Errorf("load portfolio returns: %w", err)
	}
	value, err := s.portfolios.GetValue(ctx, params.PortfolioID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio value: %w", err)
	}

	result, err := domain.ValueAtRisk(domain.VaRInput{
		Returns:        returns,
		Confidence:     params.Confidence,
		Method:         params.Method,
		HorizonDays:    params.HorizonDays,
		PortfolioValue: value,
		Iterations:     params.Iterations,
		Seed:           params.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("var calculation: %w", err)
	}

	now := time.Now()
	record := &domain.MarketRiskRecord{
		RecordNo:          "MR-" + uuid.NewString(),
		PortfolioID:       params.PortfolioID,
		Method:            string(result.Method),
		TimeHorizon:       result.TimeHorizon,
		VaR:               result.VaR,
		ExpectedShortfall: result.ExpectedShortfall,
		Confidence:        result.Confidence,
		ValidUntil:        now.Add(s.varValidity),
		CalculatedAt:      now,
		CreatedAt:         now,
	}

	if err := s.marketRepo.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("save market risk record: %w", err)
	}

	logger.Info(ctx, "market risk calculated",
		"portfolio_id", params.PortfolioID,
		"method", result.Method,
		"var", result.VaR,
	)
	return record, nil
}

// GetMarketRisk 返回最近一次市场风险记录；记录已过期时重新计算
func (s *RiskService) GetMarketRisk(ctx context.Context, params MarketRiskParams) (*domain.MarketRiskRecord, error) {
	record, err := s.marketRepo.FindLatest(ctx, params.PortfolioID, string(params.Method), params.HorizonDays)
	if err != nil {
		return nil, fmt.Errorf("load market risk record: %w", err)
	}
	if record != nil && !record.IsStale(time.Now()) {
		return record, nil
	}
	return s.CalculateMarketRisk(ctx, params)
}

// RunStressTest 对组合运行多个压力场景，返回每个场景的损失
func (s *RiskService) RunStressTest(ctx context.Context, portfolioID string, scenarios []domain.StressScenario) ([]*domain.StressTestResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RiskCalcDuration.WithLabelValues("stress").Observe(time.Since(start).Seconds())
		}
	}()

	if len(scenarios) == 0 {
		return nil, fmt.Errorf("%w: no scenarios provided", domain.ErrInvalidInput)
	}

	positions, err := s.portfolios.GetPositions(ctx, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("load portfolio positions: %w", err)
	}

	results := make([]*domain.StressTestResult, 0, len(scenarios))
	for _, scenario := range scenarios {
		result, err := domain.RunStressScenario(positions, scenario)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
		}
		results = append(results, result)
	}

	return results, nil
}

// AssessLiquidity 计算流动性覆盖率与净稳定资金比率
func (s *RiskService) AssessLiquidity(ctx context.Context, params LiquidityParams) (*LiquidityResult, error) {
	lcr, err := domain.LiquidityCoverageRatio(params.HQLA, params.NetOutflows)
	if err != nil {
		return nil, fmt.Errorf("lcr calculation: %w", err)
	}
	nsfr, err := domain.NetStableFundingRatio(params.AvailableFunding, params.RequiredFunding)
	if err != nil {
		return nil, fmt.Errorf("nsfr calculation: %w", err)
	}
	return &LiquidityResult{LCR: lcr, NSFR: nsfr}, nil
}
