package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var ErrTransactionImmutable = errors.New("completed transaction core fields are immutable")

// TransactionType 交易类型
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypePayment    TransactionType = "PAYMENT"
	TransactionTypeExchange   TransactionType = "EXCHANGE"
)

// TransactionStatus 交易状态
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "PENDING"
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusBlocked   TransactionStatus = "BLOCKED"
	TransactionStatusFlagged   TransactionStatus = "FLAGGED"
)

// CheckStatus 单项合规检查状态
type CheckStatus string

const (
	CheckStatusPass    CheckStatus = "PASS"
	CheckStatusFail    CheckStatus = "FAIL"
	CheckStatusPending CheckStatus = "PENDING"
)

// Counterparty 交易对手方
type Counterparty struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	BankCode string `json:"bank_code,omitempty"`
	Account  string `json:"account,omitempty"`
}

// RiskAssessment 交易风险评估子记录，交易创建后引擎唯一可更新的字段之一
type RiskAssessment struct {
	OverallScore   float64   `json:"overall_score"`
	AMLScore       float64   `json:"aml_score"`
	CFTScore       float64   `json:"cft_score"`
	SanctionsScore float64   `json:"sanctions_score"`
	Level          RiskLevel `json:"level"`
	Factors        []string  `json:"factors,omitempty"`
	AssessedAt     time.Time `json:"assessed_at"`
}

// ComplianceCheck 单项合规检查结果
type ComplianceCheck struct {
	Status       CheckStatus `json:"status"`
	MatchedLists []string    `json:"matched_lists,omitempty"`
	CheckedAt    time.Time   `json:"checked_at"`
	Detail       string      `json:"detail,omitempty"`
}

// ComplianceChecks 交易合规检查子记录
type ComplianceChecks struct {
	SanctionsScreening ComplianceCheck `json:"sanctions_screening"`
	PEPScreening       ComplianceCheck `json:"pep_screening"`
	RuleEvaluation     ComplianceCheck `json:"rule_evaluation"`
	ReportReference    string          `json:"report_reference,omitempty"`
}

// Transaction 金融交易事件
// status 为 COMPLETED 后核心字段不可变；引擎只允许更新风险评估与合规检查子记录
type Transaction struct {
	TransactionID string            `json:"transaction_id"`
	CustomerID    string            `json:"customer_id"`
	Type          TransactionType   `json:"type"`
	Amount        decimal.Decimal   `json:"amount"`
	Currency      string            `json:"currency"`
	AmountUSD     decimal.Decimal   `json:"amount_usd"`
	Counterparty  Counterparty      `json:"counterparty"`
	Channel       string            `json:"channel,omitempty"`
	Status        TransactionStatus `json:"status"`
	ValueDate     time.Time         `json:"value_date"`
	BookingTime   time.Time         `json:"booking_time"`
	ReportingDate time.Time         `json:"reporting_date"`

	Risk   RiskAssessment   `json:"risk"`
	Checks ComplianceChecks `json:"checks"`
}

// ApplySanctionsFail 标记制裁筛查失败并阻断交易
// 不变量：sanctionsScreening 为 FAIL 时交易必须转为 BLOCKED
func (t *Transaction) ApplySanctionsFail(matchedLists []string, now time.Time) {
	t.Checks.SanctionsScreening = ComplianceCheck{
		Status:       CheckStatusFail,
		MatchedLists: matchedLists,
		CheckedAt:    now,
	}
	// 名单筛查一次覆盖制裁与 PEP 两类名单，命中时两项检查同时落定
	t.Checks.PEPScreening = ComplianceCheck{
		Status:       CheckStatusFail,
		MatchedLists: matchedLists,
		CheckedAt:    now,
	}
	t.Status = TransactionStatusBlocked
}

// ApplyScreeningPending 将筛查标记为待定；待定交易不得进入自动放行
func (t *Transaction) ApplyScreeningPending(detail string, now time.Time) {
	t.Checks.SanctionsScreening = ComplianceCheck{
		Status:    CheckStatusPending,
		CheckedAt: now,
		Detail:    detail,
	}
	t.Checks.PEPScreening = ComplianceCheck{
		Status:    CheckStatusPending,
		CheckedAt: now,
		Detail:    detail,
	}
}

// AutoApprovable 判断交易是否可自动放行
func (t *Transaction) AutoApprovable() bool {
	if t.Status == TransactionStatusBlocked {
		return false
	}
	if t.Checks.SanctionsScreening.Status != CheckStatusPass {
		return false
	}
	return true
}
