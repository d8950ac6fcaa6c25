// Package infrastructure 风险记录的 GORM 持久化实现
package infrastructure

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/wyfcoding/riskmonitor/internal/risk/domain"
)

type GormCreditRiskRepository struct {
	db *gorm.DB
}

func NewGormCreditRiskRepository(db *gorm.DB) *GormCreditRiskRepository {
	return &GormCreditRiskRepository{db: db}
}

func (r *GormCreditRiskRepository) Save(ctx context.Context, record *domain.CreditRiskRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *GormCreditRiskRepository) FindLatest(ctx context.Context, borrowerID, facilityID string) (*domain.CreditRiskRecord, error) {
	var record domain.CreditRiskRecord
	err := r.db.WithContext(ctx).
		Where("borrower_id = ? AND facility_id = ?", borrowerID, facilityID).
		Order("calculated_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormCreditRiskRepository) FindByBorrower(ctx context.Context, borrowerID string) ([]*domain.CreditRiskRecord, error) {
	var records []*domain.CreditRiskRecord
	err := r.db.WithContext(ctx).
		Where("borrower_id = ?", borrowerID).
		Order("calculated_at DESC").
		Find(&records).Error
	return records, err
}

type GormMarketRiskRepository struct {
	db *gorm.DB
}

func NewGormMarketRiskRepository(db *gorm.DB) *GormMarketRiskRepository {
	return &GormMarketRiskRepository{db: db}
}

func (r *GormMarketRiskRepository) Save(ctx context.Context, record *domain.MarketRiskRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *GormMarketRiskRepository) FindLatest(ctx context.Context, portfolioID, method string, horizon int) (*domain.MarketRiskRecord, error) {
	var record domain.MarketRiskRecord
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ? AND method = ? AND time_horizon = ?", portfolioID, method, horizon).
		Order("calculated_at DESC").
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *GormMarketRiskRepository) FindByPortfolio(ctx context.Context, portfolioID string) ([]*domain.MarketRiskRecord, error) {
	var records []*domain.MarketRiskRecord
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("calculated_at DESC").
		Find(&records).Error
	return records, err
}
