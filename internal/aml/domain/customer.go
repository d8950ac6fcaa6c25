// Package domain 交易监控引擎的领域模型：客户、交易、检测规则、名单筛查、风险聚合与告警
package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrCustomerDeactivated = errors.New("customer is deactivated")
	ErrInvalidRiskScore    = errors.New("risk score out of range")
)

// CustomerType 客户类型
type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "INDIVIDUAL"
	CustomerTypeCorporate  CustomerType = "CORPORATE"
)

// KYCStatus KYC 审核状态
type KYCStatus string

const (
	KYCStatusPending  KYCStatus = "PENDING"
	KYCStatusVerified KYCStatus = "VERIFIED"
	KYCStatusRejected KYCStatus = "REJECTED"
	KYCStatusExpired  KYCStatus = "EXPIRED"
)

// AMLStatus 反洗钱审查状态
type AMLStatus string

const (
	AMLStatusClear       AMLStatus = "CLEAR"
	AMLStatusUnderReview AMLStatus = "UNDER_REVIEW"
	AMLStatusFlagged     AMLStatus = "FLAGGED"
)

// SanctionsStatus 制裁名单筛查状态
type SanctionsStatus string

const (
	SanctionsStatusClear     SanctionsStatus = "CLEAR"
	SanctionsStatusPotential SanctionsStatus = "POTENTIAL_MATCH"
	SanctionsStatusMatch     SanctionsStatus = "MATCH"
)

// RiskLevel 风险等级
type RiskLevel string

const (
	RiskLevelLow      RiskLevel = "LOW"
	RiskLevelMedium   RiskLevel = "MEDIUM"
	RiskLevelHigh     RiskLevel = "HIGH"
	RiskLevelCritical RiskLevel = "CRITICAL"
)

// RiskProfile 客户申报及评估得出的风险档案
type RiskProfile struct {
	Level          RiskLevel `json:"level"`
	Score          float64   `json:"score"` // [0,100]
	Factors        []string  `json:"factors,omitempty"`
	LastAssessment time.Time `json:"last_assessment"`
	NextReview     time.Time `json:"next_review"`
}

// PEPStatus 政治公众人物状态
type PEPStatus struct {
	IsPEP       bool      `json:"is_pep"`
	Category    string    `json:"category,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// ExpectedProfile 客户申报的预期交易画像
type ExpectedProfile struct {
	MonthlyTurnover  decimal.Decimal `json:"monthly_turnover"`
	TransactionTypes []string        `json:"transaction_types,omitempty"`
	Countries        []string        `json:"countries,omitempty"`
	AverageAmount    decimal.Decimal `json:"average_amount"`
}

// Customer 客户档案
// 引擎只读取该实体；写入由开户与管理侧工作流负责。客户从不硬删除，只做软停用
type Customer struct {
	CustomerID      string          `json:"customer_id"`
	Name            string          `json:"name"`
	Type            CustomerType    `json:"type"`
	RiskProfile     RiskProfile     `json:"risk_profile"`
	KYCStatus       KYCStatus       `json:"kyc_status"`
	AMLStatus       AMLStatus       `json:"aml_status"`
	PEP             PEPStatus       `json:"pep"`
	Sanctions       SanctionsStatus `json:"sanctions"`
	MatchedLists    []string        `json:"matched_lists,omitempty"`
	Expected        ExpectedProfile `json:"expected"`
	Active          bool            `json:"active"`
	DeactivatedAt   *time.Time      `json:"deactivated_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate 校验客户档案不变量
func (c *Customer) Validate() error {
	if c.RiskProfile.Score < 0 || c.RiskProfile.Score > 100 {
		return fmt.Errorf("%w: %f", ErrInvalidRiskScore, c.RiskProfile.Score)
	}
	if !c.RiskProfile.NextReview.IsZero() && c.RiskProfile.NextReview.Before(c.RiskProfile.LastAssessment) {
		return fmt.Errorf("next review must not precede last assessment")
	}
	return nil
}

// Deactivate 软停用客户
func (c *Customer) Deactivate(now time.Time) {
	c.Active = false
	c.DeactivatedAt = &now
	c.UpdatedAt = now
}
