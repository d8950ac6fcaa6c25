// Package infrastructure 交易监控引擎的基础设施实现：gorm 仓储、Redis 去重、
// Kafka 事件发布与进程内名单快照
package infrastructure

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
)

// GormCustomerRepository 客户仓储实现（引擎侧只读）
type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByCustomerID(ctx context.Context, customerID string) (*domain.Customer, error) {
	var record CustomerRecord
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

func (r *GormCustomerRepository) FindDueForReview(ctx context.Context, before time.Time, limit int) ([]*domain.Customer, error) {
	var records []CustomerRecord
	err := r.db.WithContext(ctx).
		Where("active = ? AND next_review <= ?", true, before).
		Order("next_review ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	customers := make([]*domain.Customer, 0, len(records))
	for i := range records {
		customers = append(customers, records[i].toDomain())
	}
	return customers, nil
}

// GormTransactionRepository 交易仓储实现
type GormTransactionRepository struct {
	db *gorm.DB
}

func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

func (r *GormTransactionRepository) Save(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithContext(ctx).Create(newTransactionRecord(tx)).Error
}

func (r *GormTransactionRepository) FindByTransactionID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	var record TransactionRecord
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tx := record.toDomain()
	return &tx, nil
}

func (r *GormTransactionRepository) FindRecentByCustomer(ctx context.Context, customerID string, since time.Time) ([]domain.Transaction, error) {
	var records []TransactionRecord
	err := r.db.WithContext(ctx).
		Where("customer_id = ? AND booking_time >= ?", customerID, since).
		Order("booking_time ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	txs := make([]domain.Transaction, 0, len(records))
	for i := range records {
		txs = append(txs, records[i].toDomain())
	}
	return txs, nil
}

// UpdateRiskAssessment 只回写风险与合规子记录以及状态，核心业务字段保持不变
func (r *GormTransactionRepository) UpdateRiskAssessment(ctx context.Context, tx *domain.Transaction) error {
	return r.db.WithContext(ctx).
		Model(&TransactionRecord{}).
		Where("transaction_id = ?", tx.TransactionID).
		Updates(map[string]any{
			"risk":   tx.Risk,
			"checks": tx.Checks,
			"status": string(tx.Status),
		}).Error
}

// GormAlertRepository 告警仓储实现
type GormAlertRepository struct {
	db *gorm.DB
}

func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

func (r *GormAlertRepository) Save(ctx context.Context, alert *domain.RiskAlert) error {
	return r.db.WithContext(ctx).Create(alert).Error
}

func (r *GormAlertRepository) Update(ctx context.Context, alert *domain.RiskAlert) error {
	return r.db.WithContext(ctx).Save(alert).Error
}

func (r *GormAlertRepository) FindByAlertNo(ctx context.Context, alertNo string) (*domain.RiskAlert, error) {
	var alert domain.RiskAlert
	err := r.db.WithContext(ctx).Where("alert_no = ?", alertNo).First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *GormAlertRepository) FindActiveInWindow(ctx context.Context, entityID string, category domain.AlertCategory, since time.Time) (*domain.RiskAlert, error) {
	var alert domain.RiskAlert
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND category = ? AND status IN ? AND created_at >= ?",
			entityID, category, []domain.AlertStatus{domain.AlertStatusActive, domain.AlertStatusAcknowledged}, since).
		Order("created_at DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *GormAlertRepository) FindOpenByEntity(ctx context.Context, entityID string) ([]*domain.RiskAlert, error) {
	var alerts []*domain.RiskAlert
	err := r.db.WithContext(ctx).
		Where("entity_id = ? AND status IN ?",
			entityID, []domain.AlertStatus{domain.AlertStatusActive, domain.AlertStatusAcknowledged}).
		Order("created_at DESC").
		Find(&alerts).Error
	return alerts, err
}

// GormReportRepository 监管报告仓储实现
type GormReportRepository struct {
	db *gorm.DB
}

func NewGormReportRepository(db *gorm.DB) *GormReportRepository {
	return &GormReportRepository{db: db}
}

func (r *GormReportRepository) Save(ctx context.Context, report *domain.ComplianceReport) error {
	return r.db.WithContext(ctx).Create(report).Error
}

func (r *GormReportRepository) Update(ctx context.Context, report *domain.ComplianceReport) error {
	return r.db.WithContext(ctx).Save(report).Error
}

func (r *GormReportRepository) FindByReportNo(ctx context.Context, reportNo string) (*domain.ComplianceReport, error) {
	var report domain.ComplianceReport
	err := r.db.WithContext(ctx).Where("report_no = ?", reportNo).First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *GormReportRepository) FindPending(ctx context.Context, limit int) ([]*domain.ComplianceReport, error) {
	var reports []*domain.ComplianceReport
	err := r.db.WithContext(ctx).
		Where("status = ?", domain.ReportStatusDraft).
		Order("created_at ASC").
		Limit(limit).
		Find(&reports).Error
	return reports, err
}

// GormSnapshotRepository 评估快照仓储实现
type GormSnapshotRepository struct {
	db *gorm.DB
}

func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

func (r *GormSnapshotRepository) Save(ctx context.Context, snapshot *domain.RiskSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *GormSnapshotRepository) FindLatestByEntity(ctx context.Context, entityID string) (*domain.RiskSnapshot, error) {
	var snapshot domain.RiskSnapshot
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityID).
		Order("assessed_at DESC").
		First(&snapshot).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
