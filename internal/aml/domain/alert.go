package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidAlertTransition = errors.New("invalid alert status transition")

// AlertStatus 告警状态机：ACTIVE → ACKNOWLEDGED → RESOLVED | DISMISSED
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
	AlertStatusDismissed    AlertStatus = "DISMISSED"
)

// AlertCategory 告警分类
type AlertCategory string

const (
	AlertCategoryTransaction AlertCategory = "TRANSACTION"
	AlertCategorySanctions   AlertCategory = "SANCTIONS"
	AlertCategoryCreditRisk  AlertCategory = "CREDIT_RISK"
	AlertCategoryMarketRisk  AlertCategory = "MARKET_RISK"
	AlertCategoryPeriodic    AlertCategory = "PERIODIC"
)

// RiskAlert 风险告警记录
// 只由告警触发器（或范围之外的人工操作）创建；同一（实体，分类，时间桶）
// 在去重窗口内最多存在一条活跃告警
type RiskAlert struct {
	ID             uint          `json:"id" gorm:"primaryKey"`
	AlertNo        string        `json:"alert_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	EntityID       string        `json:"entity_id" gorm:"type:varchar(64);index;not null"`
	EntityType     string        `json:"entity_type" gorm:"type:varchar(20);not null"`
	Category       AlertCategory `json:"category" gorm:"type:varchar(20);index;not null"`
	Severity       RiskLevel     `json:"severity" gorm:"type:varchar(20);not null"`
	Status         AlertStatus   `json:"status" gorm:"type:varchar(20);index;not null"`
	ThresholdValue float64       `json:"threshold_value"`
	ActualValue    float64       `json:"actual_value"`
	Description    string        `json:"description" gorm:"type:text"`
	Factors        string        `json:"factors" gorm:"type:text"` // 分号分隔
	AcknowledgedBy string        `json:"acknowledged_by,omitempty" gorm:"type:varchar(64)"`
	AcknowledgedAt *time.Time    `json:"acknowledged_at,omitempty"`
	ResolvedBy     string        `json:"resolved_by,omitempty" gorm:"type:varchar(64)"`
	ResolvedAt     *time.Time    `json:"resolved_at,omitempty"`
	Notes          string        `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

func (RiskAlert) TableName() string { return "risk_alerts" }

// Acknowledge 确认告警
func (a *RiskAlert) Acknowledge(by string, now time.Time) error {
	if a.Status != AlertStatusActive {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAlertTransition, a.Status, AlertStatusAcknowledged)
	}
	a.Status = AlertStatusAcknowledged
	a.AcknowledgedBy = by
	a.AcknowledgedAt = &now
	a.UpdatedAt = now
	return nil
}

// Resolve 关闭告警（已处理）
func (a *RiskAlert) Resolve(by, notes string, now time.Time) error {
	if a.Status != AlertStatusAcknowledged {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAlertTransition, a.Status, AlertStatusResolved)
	}
	a.Status = AlertStatusResolved
	a.ResolvedBy = by
	a.ResolvedAt = &now
	a.Notes = notes
	a.UpdatedAt = now
	return nil
}

// Dismiss 关闭告警（误报）
func (a *RiskAlert) Dismiss(by, notes string, now time.Time) error {
	if a.Status != AlertStatusAcknowledged {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAlertTransition, a.Status, AlertStatusDismissed)
	}
	a.Status = AlertStatusDismissed
	a.ResolvedBy = by
	a.ResolvedAt = &now
	a.Notes = notes
	a.UpdatedAt = now
	return nil
}

// IsOpen 告警是否仍处于活跃或已确认状态
func (a *RiskAlert) IsOpen() bool {
	return a.Status == AlertStatusActive || a.Status == AlertStatusAcknowledged
}
