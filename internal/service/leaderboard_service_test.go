package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

func testUser() *entity.User {
	return &entity.User{ID: "user-1", Username: "marco", TotalXP: 150}
}

// quietCache accepts every cache write; the tests here only assert on the
// persisted standings.
func quietCache() *MockCacheRepo {
	mockCache := new(MockCacheRepo)
	mockCache.On("ZAdd", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mockCache.On("Delete", mock.Anything).Return(nil)
	return mockCache
}

// ============================================================================
// Apply
// ============================================================================

func TestLeaderboardService_Apply_GlobalAndContest(t *testing.T) {
	mockLBRepo := new(MockLeaderboardRepo)
	mockXPRepo := new(MockXPRepo)
	mockUserRepo := new(MockUserRepo)

	mockUserRepo.On("GetByID", "user-1").Return(testUser(), nil)
	mockXPRepo.On("TotalForUser", "user-1").Return(150, nil)
	mockXPRepo.On("TotalForUserQuiz", "user-1", "quiz-1").Return(40, nil)
	mockLBRepo.On("GetActiveSeason").Return(nil, apperrors.ErrNotFound)

	// Totals are absolute values recomputed from the ledger, never deltas.
	mockLBRepo.On("UpsertEntry", mock.MatchedBy(func(e *entity.LeaderboardEntry) bool {
		return e.Scope == entity.ScopeGlobal && e.UserID == "user-1" && e.TotalXP == 150
	})).Return(nil)
	mockLBRepo.On("UpsertEntry", mock.MatchedBy(func(e *entity.LeaderboardEntry) bool {
		return e.Scope == entity.ContestScope("quiz-1") && e.TotalXP == 40
	})).Return(nil)

	svc := NewLeaderboardService(mockLBRepo, mockXPRepo, mockUserRepo, quietCache())

	require.NoError(t, svc.Apply("user-1", "quiz-1"))
	mockLBRepo.AssertExpectations(t)
}

func TestLeaderboardService_Apply_ActiveSeasonScope(t *testing.T) {
	mockLBRepo := new(MockLeaderboardRepo)
	mockXPRepo := new(MockXPRepo)
	mockUserRepo := new(MockUserRepo)

	seasonStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	season := &entity.Season{ID: "season-1", Name: "Primavera 2026", StartsAt: seasonStart, IsActive: true}

	mockUserRepo.On("GetByID", "user-1").Return(testUser(), nil)
	mockXPRepo.On("TotalForUser", "user-1").Return(150, nil)
	mockXPRepo.On("TotalForUserQuiz", "user-1", "quiz-1").Return(40, nil)
	mockLBRepo.On("GetActiveSeason").Return(season, nil)
	// Season totals only count events earned after the season started.
	mockXPRepo.On("TotalForUserSince", "user-1", seasonStart).Return(25, nil)

	mockLBRepo.On("UpsertEntry", mock.Anything).Return(nil)

	svc := NewLeaderboardService(mockLBRepo, mockXPRepo, mockUserRepo, quietCache())

	require.NoError(t, svc.Apply("user-1", "quiz-1"))
	mockLBRepo.AssertNumberOfCalls(t, "UpsertEntry", 3)
	mockXPRepo.AssertCalled(t, "TotalForUserSince", "user-1", seasonStart)
}

func TestLeaderboardService_Apply_IsIdempotent(t *testing.T) {
	// Re-applying after the same attempt recomputes the same absolute totals,
	// so the standings end up unchanged.
	mockLBRepo := new(MockLeaderboardRepo)
	mockXPRepo := new(MockXPRepo)
	mockUserRepo := new(MockUserRepo)

	mockUserRepo.On("GetByID", "user-1").Return(testUser(), nil)
	mockXPRepo.On("TotalForUser", "user-1").Return(150, nil)
	mockXPRepo.On("TotalForUserQuiz", "user-1", "quiz-1").Return(40, nil)
	mockLBRepo.On("GetActiveSeason").Return(nil, apperrors.ErrNotFound)

	var globalTotals []int
	mockLBRepo.On("UpsertEntry", mock.Anything).Run(func(args mock.Arguments) {
		entry := args.Get(0).(*entity.LeaderboardEntry)
		if entry.Scope == entity.ScopeGlobal {
			globalTotals = append(globalTotals, entry.TotalXP)
		}
	}).Return(nil)

	svc := NewLeaderboardService(mockLBRepo, mockXPRepo, mockUserRepo, quietCache())

	require.NoError(t, svc.Apply("user-1", "quiz-1"))
	require.NoError(t, svc.Apply("user-1", "quiz-1"))

	assert.Equal(t, []int{150, 150}, globalTotals)
}

// ============================================================================
// Reads
// ============================================================================

func TestLeaderboardService_GetUserRank_CacheHit(t *testing.T) {
	mockLBRepo := new(MockLeaderboardRepo)
	mockCache := new(MockCacheRepo)

	// Zero-based zset rank 4 -> 1-based rank 5.
	mockCache.On("ZRevRank", "leaderboard:rank:global", "user-1").Return(int64(4), nil)

	svc := NewLeaderboardService(mockLBRepo, new(MockXPRepo), new(MockUserRepo), mockCache)

	rank, err := svc.GetUserRank("", "user-1")
	require.NoError(t, err)
	assert.Equal(t, 5, rank)
	mockLBRepo.AssertNotCalled(t, "GetUserRank", mock.Anything, mock.Anything)
}

func TestLeaderboardService_GetUserRank_CacheMissFallsBack(t *testing.T) {
	mockLBRepo := new(MockLeaderboardRepo)
	mockCache := new(MockCacheRepo)

	mockCache.On("ZRevRank", "leaderboard:rank:global", "user-1").Return(int64(0), repository.ErrCacheMiss)
	mockLBRepo.On("GetUserRank", entity.ScopeGlobal, "user-1").Return(12, nil)

	svc := NewLeaderboardService(mockLBRepo, new(MockXPRepo), new(MockUserRepo), mockCache)

	rank, err := svc.GetUserRank(entity.ScopeGlobal, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 12, rank)
}

func TestLeaderboardService_GetEntries_FirstPageCached(t *testing.T) {
	mockLBRepo := new(MockLeaderboardRepo)
	mockCache := new(MockCacheRepo)

	entries := []entity.LeaderboardEntry{
		{Scope: entity.ScopeGlobal, UserID: "user-1", Username: "marco", TotalXP: 150},
		{Scope: entity.ScopeGlobal, UserID: "user-2", Username: "giulia", TotalXP: 120},
	}

	mockCache.On("GetJSON", "leaderboard:page:global", mock.Anything).Return(repository.ErrCacheMiss)
	mockLBRepo.On("GetEntries", entity.ScopeGlobal, 10, 0).Return(entries, int64(2), nil)
	mockCache.On("SetJSON", "leaderboard:page:global", mock.Anything, leaderboardCacheTTL).Return(nil)

	svc := NewLeaderboardService(mockLBRepo, new(MockXPRepo), new(MockUserRepo), mockCache)

	got, total, err := svc.GetEntries("", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, got, 2)
	mockCache.AssertExpectations(t)
}

// ============================================================================
// Rebuild
// ============================================================================

func TestLeaderboardService_Rebuild_GlobalFromLedger(t *testing.T) {
	mockLBRepo := new(MockLeaderboardRepo)
	mockXPRepo := new(MockXPRepo)
	mockUserRepo := new(MockUserRepo)

	mockXPRepo.On("TotalsSince", time.Time{}).Return(map[string]int{"user-1": 150, "user-2": 90}, nil)
	mockUserRepo.On("GetByID", "user-1").Return(testUser(), nil)
	mockUserRepo.On("GetByID", "user-2").Return(&entity.User{ID: "user-2", Username: "giulia"}, nil)
	mockLBRepo.On("UpsertEntry", mock.Anything).Return(nil)

	svc := NewLeaderboardService(mockLBRepo, mockXPRepo, mockUserRepo, quietCache())

	require.NoError(t, svc.Rebuild(entity.ScopeGlobal))
	mockLBRepo.AssertNumberOfCalls(t, "UpsertEntry", 2)
}

func TestLeaderboardService_Rebuild_RejectsContestScope(t *testing.T) {
	svc := NewLeaderboardService(new(MockLeaderboardRepo), new(MockXPRepo), new(MockUserRepo), quietCache())

	err := svc.Rebuild(entity.ContestScope("quiz-1"))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}
