package infrastructure

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/wyfcoding/riskmonitor/internal/aml/domain"
	"github.com/wyfcoding/riskmonitor/pkg/logger"
)

// DBWatchlistProvider 从数据库加载名单并在内存中维护不可变快照
// 筛查路径只读快照指针，刷新通过原子替换完成，不阻塞进行中的评估
type DBWatchlistProvider struct {
	db       *gorm.DB
	snapshot atomic.Pointer[domain.WatchlistSnapshot]
	version  atomic.Int64
}

func NewDBWatchlistProvider(db *gorm.DB) *DBWatchlistProvider {
	return &DBWatchlistProvider{db: db}
}

// Refresh 重新加载全量名单并替换快照
func (p *DBWatchlistProvider) Refresh(ctx context.Context) error {
	var entries []domain.WatchlistEntry
	if err := p.db.WithContext(ctx).Find(&entries).Error; err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}

	snapshot := &domain.WatchlistSnapshot{
		Entries:   entries,
		Version:   p.version.Add(1),
		FetchedAt: time.Now(),
	}
	p.snapshot.Store(snapshot)

	logger.Info(ctx, "watchlist snapshot refreshed",
		"entries", len(entries), "version", snapshot.Version)
	return nil
}

// RefreshLoop 按固定间隔刷新，直到上下文取消。刷新失败保留旧快照
func (p *DBWatchlistProvider) RefreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				logger.Error(ctx, "watchlist refresh failed", "error", err)
			}
		}
	}
}

// Snapshot 返回当前快照；尚未加载过名单时返回 nil
func (p *DBWatchlistProvider) Snapshot() *domain.WatchlistSnapshot {
	return p.snapshot.Load()
}
