package domain

import (
	"context"
	"time"
)

// CustomerRepository 客户仓储（引擎只读）
type CustomerRepository interface {
	FindByCustomerID(ctx context.Context, customerID string) (*Customer, error)
	FindDueForReview(ctx context.Context, before time.Time, limit int) ([]*Customer, error)
}

// TransactionRepository 交易仓储
// 引擎只写回风险评估与合规检查子记录，不改动交易本身的业务字段
type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	FindByTransactionID(ctx context.Context, transactionID string) (*Transaction, error)
	FindRecentByCustomer(ctx context.Context, customerID string, since time.Time) ([]Transaction, error)
	UpdateRiskAssessment(ctx context.Context, tx *Transaction) error
}

// AlertRepository 告警仓储
type AlertRepository interface {
	Save(ctx context.Context, alert *RiskAlert) error
	Update(ctx context.Context, alert *RiskAlert) error
	FindByAlertNo(ctx context.Context, alertNo string) (*RiskAlert, error)
	// FindActiveInWindow 查询实体在窗口内同一分类的未关闭告警，用于去重兜底
	FindActiveInWindow(ctx context.Context, entityID string, category AlertCategory, since time.Time) (*RiskAlert, error)
	FindOpenByEntity(ctx context.Context, entityID string) ([]*RiskAlert, error)
}

// ReportRepository 监管报告仓储
type ReportRepository interface {
	Save(ctx context.Context, report *ComplianceReport) error
	Update(ctx context.Context, report *ComplianceReport) error
	FindByReportNo(ctx context.Context, reportNo string) (*ComplianceReport, error)
	FindPending(ctx context.Context, limit int) ([]*ComplianceReport, error)
}

// SnapshotRepository 评估快照仓储
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *RiskSnapshot) error
	FindLatestByEntity(ctx context.Context, entityID string) (*RiskSnapshot, error)
}

// ReportGenerator 报告生成器
// 触发器只负责决定是否需要报告，生成细节（字段填充、编号、归档）由实现承担
type ReportGenerator interface {
	Generate(ctx context.Context, reportType ReportType, entityID string, tx *Transaction, details map[string]any) (*ComplianceReport, error)
}

// DedupStore 告警去重存储
// TryAcquire 在窗口内对（实体，分类）键做一次原子抢占，返回 false 表示窗口内已触发过；
// 抢占后告警落库失败时必须 Release 归还窗口，否则该窗口内的重试会被误判为重复
type DedupStore interface {
	TryAcquire(ctx context.Context, key string, window time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}
