package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

const leaderboardCacheTTL = 5 * time.Minute

// LeaderboardService maintains per-scope standings derived from the XP
// ledger. Totals are always recomputed from confirmed events, never
// incremented blindly, so replaying an update or rebuilding from scratch
// converges to the same standings.
type LeaderboardService struct {
	leaderboardRepo repository.LeaderboardRepository
	xpRepo          repository.XPRepository
	userRepo        repository.UserRepository
	cacheRepo       repository.CacheRepository
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(
	leaderboardRepo repository.LeaderboardRepository,
	xpRepo repository.XPRepository,
	userRepo repository.UserRepository,
	cacheRepo repository.CacheRepository,
) *LeaderboardService {
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
		xpRepo:          xpRepo,
		userRepo:        userRepo,
		cacheRepo:       cacheRepo,
	}
}

// Apply refreshes the user's standings after a confirmed attempt: the global
// scope, the quiz's contest scope and, when a season is active, the season
// scope.
func (s *LeaderboardService) Apply(userID, quizID string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return fmt.Errorf("load user %s for leaderboard: %w", userID, err)
	}

	globalTotal, err := s.xpRepo.TotalForUser(userID)
	if err != nil {
		return fmt.Errorf("recompute global total for user %s: %w", userID, err)
	}
	if err := s.upsert(entity.ScopeGlobal, user, globalTotal); err != nil {
		return err
	}

	contestTotal, err := s.xpRepo.TotalForUserQuiz(userID, quizID)
	if err != nil {
		return fmt.Errorf("recompute contest total for user %s quiz %s: %w", userID, quizID, err)
	}
	if err := s.upsert(entity.ContestScope(quizID), user, contestTotal); err != nil {
		return err
	}

	season, err := s.leaderboardRepo.GetActiveSeason()
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil // no active season, nothing more to do
		}
		return fmt.Errorf("resolve active season: %w", err)
	}

	seasonTotal, err := s.xpRepo.TotalForUserSince(userID, season.StartsAt)
	if err != nil {
		return fmt.Errorf("recompute season total for user %s: %w", userID, err)
	}
	return s.upsert(entity.SeasonScope(season.ID), user, seasonTotal)
}

func (s *LeaderboardService) upsert(scope string, user *entity.User, total int) error {
	entry := &entity.LeaderboardEntry{
		Scope:    scope,
		UserID:   user.ID,
		Username: user.Username,
		TotalXP:  total,
	}
	if err := s.leaderboardRepo.UpsertEntry(entry); err != nil {
		return fmt.Errorf("upsert leaderboard entry %s/%s: %w", scope, user.ID, err)
	}

	// Rank zset mirrors the persisted entry; a cache failure only degrades
	// rank reads, so log and continue.
	if err := s.cacheRepo.ZAdd(rankKey(scope), user.ID, float64(total)); err != nil {
		log.Printf("[LeaderboardService] WARNING: failed to update rank cache for %s: %v", scope, err)
	}
	if err := s.cacheRepo.Delete(pageCacheKey(scope)); err != nil {
		log.Printf("[LeaderboardService] WARNING: failed to invalidate page cache for %s: %v", scope, err)
	}
	return nil
}

// GetEntries returns one page of the scope's standings with the total
// entrant count. The first page is cached briefly.
func (s *LeaderboardService) GetEntries(scope string, limit, offset int) ([]entity.LeaderboardEntry, int64, error) {
	if scope == "" {
		scope = entity.ScopeGlobal
	}

	type cachedPage struct {
		Entries []entity.LeaderboardEntry `json:"entries"`
		Total   int64                     `json:"total"`
	}

	firstPage := offset == 0
	if firstPage {
		var page cachedPage
		if err := s.cacheRepo.GetJSON(pageCacheKey(scope), &page); err == nil && len(page.Entries) >= limit {
			return page.Entries[:limit], page.Total, nil
		}
	}

	entries, total, err := s.leaderboardRepo.GetEntries(scope, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	if firstPage {
		if err := s.cacheRepo.SetJSON(pageCacheKey(scope), cachedPage{Entries: entries, Total: total}, leaderboardCacheTTL); err != nil {
			log.Printf("[LeaderboardService] WARNING: failed to cache page for %s: %v", scope, err)
		}
	}
	return entries, total, nil
}

// GetUserRank returns the user's 1-based rank in a scope, preferring the
// Redis zset and falling back to the persisted entries.
func (s *LeaderboardService) GetUserRank(scope, userID string) (int, error) {
	if scope == "" {
		scope = entity.ScopeGlobal
	}

	rank, err := s.cacheRepo.ZRevRank(rankKey(scope), userID)
	if err == nil {
		return int(rank) + 1, nil
	}
	if !errors.Is(err, repository.ErrCacheMiss) {
		log.Printf("[LeaderboardService] WARNING: rank cache read failed for %s: %v", scope, err)
	}

	return s.leaderboardRepo.GetUserRank(scope, userID)
}

// Rebuild recomputes a whole scope from the ledger, repairing any drift.
// Safe to run at any time; standings converge to the ledger's truth.
func (s *LeaderboardService) Rebuild(scope string) error {
	var since time.Time
	switch {
	case scope == entity.ScopeGlobal:
	case strings.HasPrefix(scope, entity.ScopeSeasonPrefix):
		season, err := s.leaderboardRepo.GetActiveSeason()
		if err != nil {
			return fmt.Errorf("rebuild %s: %w", scope, err)
		}
		since = season.StartsAt
	default:
		return fmt.Errorf("%w: scope %s cannot be rebuilt wholesale", apperrors.ErrValidation, scope)
	}

	totals, err := s.xpRepo.TotalsSince(since)
	if err != nil {
		return fmt.Errorf("rebuild %s: %w", scope, err)
	}

	for userID, total := range totals {
		user, err := s.userRepo.GetByID(userID)
		if err != nil {
			log.Printf("[LeaderboardService] WARNING: skipping unknown user %s during rebuild: %v", userID, err)
			continue
		}
		if err := s.upsert(scope, user, total); err != nil {
			return err
		}
	}
	log.Printf("[LeaderboardService] Rebuilt scope %s with %d entries", scope, len(totals))
	return nil
}

func rankKey(scope string) string {
	return "leaderboard:rank:" + scope
}

func pageCacheKey(scope string) string {
	return "leaderboard:page:" + scope
}
