package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CreditRiskRecord 一次信用风险计算的结果，按（借款人，授信）维度落库
type CreditRiskRecord struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	RecordNo     string          `json:"record_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	BorrowerID   string          `json:"borrower_id" gorm:"type:varchar(64);index;not null"`
	FacilityID   string          `json:"facility_id" gorm:"type:varchar(64);index;not null"`
	PD           float64         `json:"pd" gorm:"not null"`
	LGD          float64         `json:"lgd" gorm:"not null"`
	EAD          decimal.Decimal `json:"ead" gorm:"type:decimal(20,4);not null"`
	ECL          decimal.Decimal `json:"ecl" gorm:"type:decimal(20,4);not null"`
	IFRS9Stage   int             `json:"ifrs9_stage" gorm:"not null"`
	CalculatedAt time.Time       `json:"calculated_at"`
	CreatedAt    time.Time       `json:"created_at"`
}

func (CreditRiskRecord) TableName() string { return "credit_risk_records" }

// MarketRiskRecord 一次市场风险计算的结果，按（组合，方法，跨度）维度落库
// ValidUntil 过期后视为陈旧，必须重新计算
type MarketRiskRecord struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	RecordNo          string          `json:"record_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	PortfolioID       string          `json:"portfolio_id" gorm:"type:varchar(64);index;not null"`
	Method            string          `json:"method" gorm:"type:varchar(20);not null"`
	TimeHorizon       int             `json:"time_horizon" gorm:"not null"`
	VaR               decimal.Decimal `json:"var" gorm:"column:var_value;type:decimal(20,4);not null"`
	ExpectedShortfall decimal.Decimal `json:"expected_shortfall" gorm:"type:decimal(20,4);not null"`
	Confidence        float64         `json:"confidence" gorm:"not null"`
	ValidUntil        time.Time       `json:"valid_until" gorm:"index"`
	CalculatedAt      time.Time       `json:"calculated_at"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (MarketRiskRecord) TableName() string { return "market_risk_records" }

// IsStale 判断记录是否已过有效期
func (r *MarketRiskRecord) IsStale(now time.Time) bool {
	return now.After(r.ValidUntil)
}

// CreditRiskRepository 信用风险记录仓储
type CreditRiskRepository interface {
	Save(ctx context.Context, record *CreditRiskRecord) error
	FindLatest(ctx context.Context, borrowerID, facilityID string) (*CreditRiskRecord, error)
	FindByBorrower(ctx context.Context, borrowerID string) ([]*CreditRiskRecord, error)
}

// MarketRiskRepository 市场风险记录仓储
type MarketRiskRepository interface {
	Save(ctx context.Context, record *MarketRiskRecord) error
	FindLatest(ctx context.Context, portfolioID string, method string, horizon int) (*MarketRiskRecord, error)
	FindByPortfolio(ctx context.Context, portfolioID string) ([]*MarketRiskRecord, error)
}
