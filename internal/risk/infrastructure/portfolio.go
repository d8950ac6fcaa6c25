package infrastructure

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/wyfcoding/riskmonitor/internal/risk/domain"
)

// PositionRecord 组合持仓的持久化映射
type PositionRecord struct {
	ID          uint            `gorm:"primaryKey"`
	PortfolioID string          `gorm:"column:portfolio_id;type:varchar(64);index;not null"`
	PositionID  string          `gorm:"column:position_id;type:varchar(64);uniqueIndex;not null"`
	AssetClass  string          `gorm:"column:asset_class;type:varchar(32);not null"`
	MarketValue decimal.Decimal `gorm:"column:market_value;type:decimal(20,4);not null"`
	UpdatedAt   time.Time
}

func (PositionRecord) TableName() string { return "portfolio_positions" }

// ReturnRecord 组合日收益率
type ReturnRecord struct {
	ID          uint      `gorm:"primaryKey"`
	PortfolioID string    `gorm:"column:portfolio_id;index:idx_portfolio_date;not null"`
	Date        time.Time `gorm:"column:date;index:idx_portfolio_date;not null"`
	Return      float64   `gorm:"column:daily_return;not null"`
}

func (ReturnRecord) TableName() string { return "portfolio_returns" }

// GormPortfolioReader 从数据库读取组合持仓与收益率序列
type GormPortfolioReader struct {
	db *gorm.DB
}

func NewGormPortfolioReader(db *gorm.DB) *GormPortfolioReader {
	return &GormPortfolioReader{db: db}
}

func (r *GormPortfolioReader) GetPositions(ctx context.Context, portfolioID string) ([]domain.Position, error) {
	var records []PositionRecord
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	positions := make([]domain.Position, 0, len(records))
	for _, rec := range records {
		positions = append(positions, domain.Position{
			PositionID:  rec.PositionID,
			AssetClass:  rec.AssetClass,
			MarketValue: rec.MarketValue,
		})
	}
	return positions, nil
}

// GetReturns 返回最近 days 个交易日的收益率，按时间升序
func (r *GormPortfolioReader) GetReturns(ctx context.Context, portfolioID string, days int) ([]float64, error) {
	var records []ReturnRecord
	err := r.db.WithContext(ctx).
		Where("portfolio_id = ?", portfolioID).
		Order("date DESC").
		Limit(days).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	returns := make([]float64, len(records))
	for i, rec := range records {
		returns[len(records)-1-i] = rec.Return
	}
	return returns, nil
}

func (r *GormPortfolioReader) GetValue(ctx context.Context, portfolioID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&PositionRecord{}).
		Select("SUM(market_value)").
		Where("portfolio_id = ?", portfolioID).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
