package domain

import "time"

// RiskSnapshot 周期性风险评估快照
// 驱动器对每个到期实体完成一次评估后写入一条快照，供趋势分析与复核排期
type RiskSnapshot struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	SnapshotNo     string     `json:"snapshot_no" gorm:"type:varchar(64);uniqueIndex;not null"`
	EntityID       string     `json:"entity_id" gorm:"type:varchar(64);index;not null"`
	EntityType     string     `json:"entity_type" gorm:"type:varchar(20);not null"`
	Score          float64    `json:"score"`
	Level          RiskLevel  `json:"level" gorm:"type:varchar(20);not null"`
	Factors        string     `json:"factors" gorm:"type:text"` // 分号分隔
	AlertTriggered bool       `json:"alert_triggered"`
	ReportType     ReportType `json:"report_type,omitempty" gorm:"type:varchar(20)"`
	AssessedAt     time.Time  `json:"assessed_at" gorm:"index;not null"`
	NextReview     time.Time  `json:"next_review" gorm:"index"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (RiskSnapshot) TableName() string { return "risk_snapshots" }

// ReviewInterval 按风险等级决定下次复核间隔
func ReviewInterval(level RiskLevel) time.Duration {
	switch level {
	case RiskLevelCritical:
		return 30 * 24 * time.Hour
	case RiskLevelHigh:
		return 90 * 24 * time.Hour
	case RiskLevelMedium:
		return 180 * 24 * time.Hour
	default:
		return 365 * 24 * time.Hour
	}
}
