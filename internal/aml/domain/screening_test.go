package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticWatchlist struct {
	snapshot *WatchlistSnapshot
}

func (s *staticWatchlist) Snapshot() *WatchlistSnapshot { return s.snapshot }

func testWatchlist() *staticWatchlist {
	return &staticWatchlist{snapshot: &WatchlistSnapshot{
		Entries: []WatchlistEntry{
			{ListName: "OFAC_SDN", ListType: ListTypeSanctions, Name: "Ivan Petrov", Aliases: "I. Petrov;Ivan P."},
			{ListName: "UN_CONSOLIDATED", ListType: ListTypeSanctions, Name: "Ivan Petrov"},
			{ListName: "PEP_GLOBAL", ListType: ListTypePEP, Name: "Maria Gonzalez"},
		},
		Version:   1,
		FetchedAt: time.Now(),
	}}
}

func TestScreenNameExactMatch(t *testing.T) {
	svc := NewScreeningService(testWatchlist(), LevenshteinMatcher{}, 0.85)

	result, err := svc.ScreenName(context.Background(), "Ivan Petrov")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, MatchTypeExact, result.MatchType)
	assert.Equal(t, 1.0, result.BestScore)
	assert.ElementsMatch(t, []string{"OFAC_SDN", "UN_CONSOLIDATED"}, result.MatchedLists)
}

func TestScreenNameFuzzyMatch(t *testing.T) {
	svc := NewScreeningService(testWatchlist(), LevenshteinMatcher{}, 0.85)

	// 一个字符的差异应当在容差内
	result, err := svc.ScreenName(context.Background(), "Ivan Petrow")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, MatchTypeFuzzy, result.MatchType)
	assert.Less(t, result.BestScore, 1.0)
	assert.GreaterOrEqual(t, result.BestScore, 0.85)
}

func TestScreenNameCaseAndSpacingInsensitive(t *testing.T) {
	svc := NewScreeningService(testWatchlist(), LevenshteinMatcher{}, 0.85)

	result, err := svc.ScreenName(context.Background(), "  ivan   PETROV ")
	require.NoError(t, err)
	require.True(t, result.Matched)
	assert.Equal(t, MatchTypeExact, result.MatchType)
}

func TestScreenNameNoMatch(t *testing.T) {
	svc := NewScreeningService(testWatchlist(), LevenshteinMatcher{}, 0.85)

	result, err := svc.ScreenName(context.Background(), "Zhang Wei")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Empty(t, result.MatchedLists)
}

func TestScreenNameSnapshotUnavailable(t *testing.T) {
	svc := NewScreeningService(&staticWatchlist{}, LevenshteinMatcher{}, 0.85)

	_, err := svc.ScreenName(context.Background(), "Ivan Petrov")
	assert.ErrorIs(t, err, ErrScreeningUnavailable)
}

func TestScreenNameCancelledContext(t *testing.T) {
	svc := NewScreeningService(testWatchlist(), LevenshteinMatcher{}, 0.85)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.ScreenName(ctx, "Ivan Petrov")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLevenshteinSimilarity(t *testing.T) {
	m := LevenshteinMatcher{}

	assert.Equal(t, 1.0, m.Similarity("Ivan Petrov", "ivan petrov"))
	assert.Equal(t, 0.0, m.Similarity("", "anything"))
	assert.InDelta(t, 0.9, m.Similarity("john smith", "jon smith"), 1e-9)
}

func TestSanctionsRuleResult(t *testing.T) {
	hit := &ScreenResult{Matched: true, MatchedLists: []string{"OFAC_SDN"}, BestScore: 1}
	clear := &ScreenResult{Matched: false}

	r := SanctionsRuleResult(hit, clear)
	require.True(t, r.Triggered)
	assert.Equal(t, ScoreSanctionsMatch, r.RiskScore)
	assert.True(t, r.RequiresReporting)
	assert.Equal(t, ReportTypeSAR, r.ReportType)

	// 对手方命中同样触发
	r = SanctionsRuleResult(clear, hit)
	assert.True(t, r.Triggered)

	r = SanctionsRuleResult(clear, nil)
	assert.False(t, r.Triggered)
	assert.Zero(t, r.RiskScore)
}
