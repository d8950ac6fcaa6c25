package infrastructure

import (
	"context"
	"fmt"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	riskdomain "github.com/wyfcoding/riskmonitor/internal/risk/domain"
)

// 周期性评估中各信号的风险贡献
const (
	quantStage1Score    = 10.0
	quantStage2Score    = 35.0
	quantStage3Score    = 60.0
	quantPEPScore       = 10.0
	quantAMLReviewScore = 20.0
	quantSanctionsScore = 30.0
)

// CreditQuantProvider 周期性评估的量化风险来源
// 读取量化风险库最近的信用评估结果，连同客户档案中的合规信号折算为风险贡献
type CreditQuantProvider struct {
	credit riskdomain.CreditRiskRepository
}

func NewCreditQuantProvider(credit riskdomain.CreditRiskRepository) *CreditQuantProvider {
	return &CreditQuantProvider{credit: credit}
}

func (p *CreditQuantProvider) Assess(ctx context.Context, customer *domain.Customer) (*domain.QuantSummary, error) {
	summary := &domain.QuantSummary{}

	records, err := p.credit.FindByBorrower(ctx, customer.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("load credit records: %w", err)
	}

	// 多个授信取最差的一个
	worstStage := 0
	worstPD := 0.0
	for _, r := range records {
		if r.IFRS9Stage > worstStage {
			worstStage = r.IFRS9Stage
		}
		if r.PD > worstPD {
			worstPD = r.PD
		}
	}
	switch worstStage {
	case 3:
		summary.Score += quantStage3Score
		summary.Factors = append(summary.Factors, "credit impaired (stage 3)")
	case 2:
		summary.Score += quantStage2Score
		summary.Factors = append(summary.Factors, fmt.Sprintf("credit risk elevated (stage 2, pd %.4f)", worstPD))
	case 1:
		summary.Score += quantStage1Score
		summary.Factors = append(summary.Factors, "performing credit exposure")
	}

	if customer.PEP.IsPEP {
		summary.Score += quantPEPScore
		summary.Factors = append(summary.Factors, "politically exposed person")
	}
	if customer.AMLStatus != domain.AMLStatusClear {
		summary.Score += quantAMLReviewScore
		summary.Factors = append(summary.Factors, "aml status "+string(customer.AMLStatus))
	}
	if customer.Sanctions != domain.SanctionsStatusClear {
		summary.Score += quantSanctionsScore
		summary.Factors = append(summary.Factors, "sanctions status "+string(customer.Sanctions))
	}

	return summary, nil
}
