package domain

import (
	"errors"
	"time"
)

var ErrReportSubmitted = errors.New("submitted report is append-only")

// ReportType 监管报告类型
type ReportType string

const (
	ReportTypeNone        ReportType = ""
	ReportTypeCTR         ReportType = "CTR"
	ReportTypeCrossBorder ReportType = "CROSS_BORDER"
	ReportTypeSAR         ReportType = "SAR"
)

// reportSeverity 报告类型的全序：SAR > CROSS_BORDER > CTR > 无
// 多条规则请求不同报告类型时取最严重者，与插入顺序无关
var reportSeverity = map[ReportType]int{
	ReportTypeNone:        0,
	ReportTypeCTR:         1,
	ReportTypeCrossBorder: 2,
	ReportTypeSAR:         3,
}

// MoreSevere 返回两个报告类型中更严重的一个
func MoreSevere(a, b ReportType) ReportType {
	if reportSeverity[a] >= reportSeverity[b] {
		return a
	}
	return b
}

// ReportStatus 报告状态
type ReportStatus string

const (
	ReportStatusDraft     ReportStatus = "DRAFT"
	ReportStatusSubmitted ReportStatus = "SUBMITTED"
)

// ComplianceReport 合规报告记录
// 草稿状态可修改；提交后只追加不修改
type ComplianceReport struct {
	ID            uint         `json:"id" gorm:"primaryKey"`
	ReportNo      string       `json:"report_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	Type          ReportType   `json:"type" gorm:"type:varchar(20);index;not null"`
	CustomerID    string       `json:"customer_id" gorm:"type:varchar(64);index;not null"`
	TransactionID string       `json:"transaction_id" gorm:"type:varchar(64);index"`
	AlertID       string       `json:"alert_id" gorm:"type:varchar(64);index"`
	Narrative     string       `json:"narrative" gorm:"type:text"`
	Status        ReportStatus `json:"status" gorm:"type:varchar(20);not null"`
	SubmittedAt   *time.Time   `json:"submitted_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (ComplianceReport) TableName() string { return "compliance_reports" }

// MarkSubmitted 提交报告，之后不可再修改
func (r *ComplianceReport) MarkSubmitted(now time.Time) error {
	if r.Status == ReportStatusSubmitted {
		return ErrReportSubmitted
	}
	r.Status = ReportStatusSubmitted
	r.SubmittedAt = &now
	r.UpdatedAt = now
	return nil
}

// CanModify 草稿状态才允许修改
func (r *ComplianceReport) CanModify() bool {
	return r.Status == ReportStatusDraft
}
