package domain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
)

var ErrScreeningUnavailable = errors.New("screening provider unavailable")

// MatchType 命中方式
type MatchType string

const (
	MatchTypeExact MatchType = "EXACT"
	MatchTypeFuzzy MatchType = "FUZZY"
	MatchTypeAlias MatchType = "ALIAS"
)

// ListType 名单类型
type ListType string

const (
	ListTypeSanctions ListType = "SANCTIONS"
	ListTypePEP       ListType = "PEP"
)

// ScreenResult 名单筛查结果
type ScreenResult struct {
	Matched      bool      `json:"matched"`
	MatchedLists []string  `json:"matched_lists,omitempty"`
	MatchType    MatchType `json:"match_type,omitempty"`
	BestScore    float64   `json:"best_score"`
	ScreenedAt   time.Time `json:"screened_at"`
}

// ScreeningProvider 名单筛查契约，引擎消费方接口
// 实现方可以是进程内快照筛查，也可以是外部注册中心的客户端
type ScreeningProvider interface {
	ScreenName(ctx context.Context, name string) (*ScreenResult, error)
}

// NameMatcher 姓名相似度计算接口
// 源实现中的朴素子串匹配是正确性风险；抽象为接口后，
// 可替换更强的模糊匹配实现而不触碰规则逻辑
type NameMatcher interface {
	Similarity(a, b string) float64
}

// LevenshteinMatcher 基于编辑距离的姓名匹配
type LevenshteinMatcher struct{}

// Similarity 归一化编辑距离相似度，[0,1]
func (LevenshteinMatcher) Similarity(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	dist := levenshtein.ComputeDistance(na, nb)
	maxLen := len([]rune(na))
	if l := len([]rune(nb)); l > maxLen {
		maxLen = l
	}
	return 1 - float64(dist)/float64(maxLen)
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// WatchlistEntry 名单条目
type WatchlistEntry struct {
	ID       uint     `json:"id" gorm:"primaryKey"`
	ListName string   `json:"list_name" gorm:"type:varchar(64);index;not null"`
	ListType ListType `json:"list_type" gorm:"type:varchar(20);index;not null"`
	Name     string   `json:"name" gorm:"type:varchar(255);index;not null"`
	Aliases  string   `json:"aliases" gorm:"type:text"` // 分号分隔
	Category string   `json:"category" gorm:"type:varchar(64)"`
}

func (WatchlistEntry) TableName() string { return "watchlist_entries" }

// AliasList 拆分别名字段
func (w *WatchlistEntry) AliasList() []string {
	if w.Aliases == "" {
		return nil
	}
	return strings.Split(w.Aliases, ";")
}

// WatchlistSnapshot 某一时刻的完整名单快照
// 快照不可变：一次评估全程使用评估开始时取得的快照，名单中途刷新不影响本次评估
type WatchlistSnapshot struct {
	Entries   []WatchlistEntry
	Version   int64
	FetchedAt time.Time
}

// WatchlistProvider 名单快照提供方，刷新由外部管理流程驱动
type WatchlistProvider interface {
	Snapshot() *WatchlistSnapshot
}

// ScreeningService 进程内名单筛查实现
type ScreeningService struct {
	watchlist WatchlistProvider
	matcher   NameMatcher
	minScore  float64
}

// NewScreeningService 创建名单筛查服务
func NewScreeningService(watchlist WatchlistProvider, matcher NameMatcher, minScore float64) *ScreeningService {
	return &ScreeningService{
		watchlist: watchlist,
		matcher:   matcher,
		minScore:  minScore,
	}
}

// ScreenName 对姓名做名单筛查
func (s *ScreeningService) ScreenName(ctx context.Context, name string) (*ScreenResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snapshot := s.watchlist.Snapshot()
	if snapshot == nil {
		return nil, ErrScreeningUnavailable
	}

	result := &ScreenResult{ScreenedAt: time.Now()}
	seen := make(map[string]struct{})

	for i := range snapshot.Entries {
		entry := &snapshot.Entries[i]

		score := s.matcher.Similarity(name, entry.Name)
		matchType := MatchTypeFuzzy
		if score == 1 {
			matchType = MatchTypeExact
		}

		for _, alias := range entry.AliasList() {
			if aliasScore := s.matcher.Similarity(name, alias); aliasScore > score {
				score = aliasScore
				matchType = MatchTypeAlias
			}
		}

		if score < s.minScore {
			continue
		}

		result.Matched = true
		if score > result.BestScore {
			result.BestScore = score
			result.MatchType = matchType
		}
		if _, ok := seen[entry.ListName]; !ok {
			seen[entry.ListName] = struct{}{}
			result.MatchedLists = append(result.MatchedLists, entry.ListName)
		}
	}

	return result, nil
}

// SanctionsRuleResult 将筛查命中转换为规则结果
// 命中强制 riskScore=100，触发 SAR 申报，任何情况下不得被降级
func SanctionsRuleResult(customerHit, counterpartyHit *ScreenResult) RuleResult {
	result := RuleResult{RuleName: RuleSanctionsMatch}

	var lists []string
	if customerHit != nil && customerHit.Matched {
		lists = append(lists, customerHit.MatchedLists...)
	}
	if counterpartyHit != nil && counterpartyHit.Matched {
		lists = append(lists, counterpartyHit.MatchedLists...)
	}
	if len(lists) == 0 {
		return result
	}

	result.Triggered = true
	result.RiskScore = ScoreSanctionsMatch
	result.RequiresReporting = true
	result.ReportType = ReportTypeSAR
	result.Details = map[string]any{"matched_lists": lists}
	return result
}
