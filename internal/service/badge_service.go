package service

import (
	"fmt"
	"log"
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
)

// Badge thresholds.
const (
	veteranoXPThreshold   = 1000
	hubMasterQuizzes      = 5
	nottambuloFinishes    = 5
	secchioneMinQuestions = 10
)

// BadgeService evaluates badge criteria after a confirmed attempt. Awards
// are idempotent upserts, so re-evaluating an already-earned badge is a
// no-op; evaluation failures are logged and never propagate into the sync
// path.
type BadgeService struct {
	badgeRepo   repository.BadgeRepository
	attemptRepo repository.AttemptRepository
	xpRepo      repository.XPRepository
}

// NewBadgeService creates a new badge service
func NewBadgeService(
	badgeRepo repository.BadgeRepository,
	attemptRepo repository.AttemptRepository,
	xpRepo repository.XPRepository,
) *BadgeService {
	return &BadgeService{
		badgeRepo:   badgeRepo,
		attemptRepo: attemptRepo,
		xpRepo:      xpRepo,
	}
}

// Check evaluates every badge rule against the user's current aggregates and
// awards whatever is newly earned. Returns the ids of badges granted by this
// call.
func (s *BadgeService) Check(userID string, result *entity.Result, finishedAt time.Time) ([]string, error) {
	stats, err := s.attemptRepo.GetStats(userID, finishedAt)
	if err != nil {
		return nil, fmt.Errorf("load attempt stats for user %s: %w", userID, err)
	}
	totalXP, err := s.xpRepo.TotalForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("load xp total for user %s: %w", userID, err)
	}

	var earned []string
	award := func(badgeID string, met bool) {
		if !met {
			return
		}
		fresh, err := s.badgeRepo.Award(userID, badgeID)
		if err != nil {
			log.Printf("[BadgeService] WARNING: failed to award %s to user %s: %v", badgeID, userID, err)
			return
		}
		if fresh {
			earned = append(earned, badgeID)
			log.Printf("[BadgeService] User %s earned badge %s", userID, badgeID)
		}
	}

	award(entity.BadgePrimoPasso, stats.CompletedCount >= 1)
	award(entity.BadgeVeterano, totalXP >= veteranoXPThreshold)
	award(entity.BadgeHubMaster, stats.DistinctQuizzes >= hubMasterQuizzes)
	award(entity.BadgeNottambulo, stats.NightFinishes >= nottambuloFinishes)

	// Secchione reads the triggering result first: a perfect sheet on a long
	// enough attempt qualifies immediately, otherwise fall back to history.
	perfectNow := result != nil &&
		result.Wrong == 0 && result.Blank == 0 && result.Invalid == 0 &&
		result.Correct >= secchioneMinQuestions
	award(entity.BadgeSecchione, perfectNow || stats.HasPerfectScore)

	return earned, nil
}

// GetUserBadges returns the user's earned badges.
func (s *BadgeService) GetUserBadges(userID string) ([]entity.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(userID)
}
