package infrastructure

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
)

// CustomerRecord 客户档案的持久化映射
type CustomerRecord struct {
	ID            uint                   `gorm:"primaryKey"`
	CustomerID    string                 `gorm:"column:customer_id;type:varchar(64);uniqueIndex;not null"`
	Name          string                 `gorm:"column:name;type:varchar(255);not null"`
	Type          string                 `gorm:"column:type;type:varchar(20);not null"`
	KYCStatus     string                 `gorm:"column:kyc_status;type:varchar(20);not null"`
	AMLStatus     string                 `gorm:"column:aml_status;type:varchar(20);not null"`
	Sanctions     string                 `gorm:"column:sanctions;type:varchar(20);not null"`
	MatchedLists  []string               `gorm:"column:matched_lists;serializer:json"`
	RiskProfile   domain.RiskProfile     `gorm:"column:risk_profile;serializer:json"`
	PEP           domain.PEPStatus       `gorm:"column:pep;serializer:json"`
	Expected      domain.ExpectedProfile `gorm:"column:expected;serializer:json"`
	NextReview    time.Time  `gorm:"column:next_review;index"`
	Active        bool       `gorm:"column:active;index;not null"`
	DeactivatedAt *time.Time `gorm:"column:deactivated_at"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (CustomerRecord) TableName() string { return "customers" }

func (r *CustomerRecord) toDomain() *domain.Customer {
	return &domain.Customer{
		CustomerID:    r.CustomerID,
		Name:          r.Name,
		Type:          domain.CustomerType(r.Type),
		RiskProfile:   r.RiskProfile,
		KYCStatus:     domain.KYCStatus(r.KYCStatus),
		AMLStatus:     domain.AMLStatus(r.AMLStatus),
		PEP:           r.PEP,
		Sanctions:     domain.SanctionsStatus(r.Sanctions),
		MatchedLists:  r.MatchedLists,
		Expected:      r.Expected,
		Active:        r.Active,
		DeactivatedAt: r.DeactivatedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

// TransactionRecord 交易的持久化映射
// 风险评估与合规检查子记录以 JSON 存储，核心业务字段入库后不再被引擎改写
type TransactionRecord struct {
	ID            uint                    `gorm:"primaryKey"`
	TransactionID string                  `gorm:"column:transaction_id;type:varchar(64);uniqueIndex;not null"`
	CustomerID    string                  `gorm:"column:customer_id;type:varchar(64);index;not null"`
	Type          string                  `gorm:"column:type;type:varchar(20);not null"`
	Amount        decimal.Decimal         `gorm:"column:amount;type:decimal(20,4);not null"`
	Currency      string                  `gorm:"column:currency;type:varchar(10);not null"`
	AmountUSD     decimal.Decimal         `gorm:"column:amount_usd;type:decimal(20,4);not null"`
	Counterparty  domain.Counterparty     `gorm:"column:counterparty;serializer:json"`
	Channel       string                  `gorm:"column:channel;type:varchar(32)"`
	Status        string                  `gorm:"column:status;type:varchar(20);index;not null"`
	ValueDate     time.Time               `gorm:"column:value_date"`
	BookingTime   time.Time               `gorm:"column:booking_time;index;not null"`
	ReportingDate time.Time               `gorm:"column:reporting_date"`
	Risk          domain.RiskAssessment   `gorm:"column:risk;serializer:json"`
	Checks        domain.ComplianceChecks `gorm:"column:checks;serializer:json"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (TransactionRecord) TableName() string { return "transactions" }

func newTransactionRecord(tx *domain.Transaction) *TransactionRecord {
	return &TransactionRecord{
		TransactionID: tx.TransactionID,
		CustomerID:    tx.CustomerID,
		Type:          string(tx.Type),
		Amount:        tx.Amount,
		Currency:      tx.Currency,
		AmountUSD:     tx.AmountUSD,
		Counterparty:  tx.Counterparty,
		Channel:       tx.Channel,
		Status:        string(tx.Status),
		ValueDate:     tx.ValueDate,
		BookingTime:   tx.BookingTime,
		ReportingDate: tx.ReportingDate,
		Risk:          tx.Risk,
		Checks:        tx.Checks,
	}
}

func (r *TransactionRecord) toDomain() domain.Transaction {
	return domain.Transaction{
		TransactionID: r.TransactionID,
		CustomerID:    r.CustomerID,
		Type:          domain.TransactionType(r.Type),
		Amount:        r.Amount,
		Currency:      r.Currency,
		AmountUSD:     r.AmountUSD,
		Counterparty:  r.Counterparty,
		Channel:       r.Channel,
		Status:        domain.TransactionStatus(r.Status),
		ValueDate:     r.ValueDate,
		BookingTime:   r.BookingTime,
		ReportingDate: r.ReportingDate,
		Risk:          r.Risk,
		Checks:        r.Checks,
	}
}
