package service

import (
	"errors"
	"fmt"
	"log"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// XPPerLevel is the flat level curve: 100 XP per level, starting at 1.
const XPPerLevel = 100

// XPService owns the append-only XP ledger. The unique constraint on
// xp_events.attempt_id is the only duplicate guard: Award is safe to call
// any number of times per attempt.
type XPService struct {
	xpRepo      repository.XPRepository
	userRepo    repository.UserRepository
	attemptRepo repository.AttemptRepository
}

// NewXPService creates a new XP service
func NewXPService(
	xpRepo repository.XPRepository,
	userRepo repository.UserRepository,
	attemptRepo repository.AttemptRepository,
) *XPService {
	return &XPService{
		xpRepo:      xpRepo,
		userRepo:    userRepo,
		attemptRepo: attemptRepo,
	}
}

// XPForResult is the reward rule: one XP per correct answer.
func XPForResult(result *entity.Result) int {
	return result.Correct
}

// Award grants the attempt's XP exactly once. A duplicate is a deliberate
// no-op, not an error: the first award won and the ledger already reflects
// it. A zero-correct attempt still writes a 0-amount event, so the ledger
// records that the attempt's reward round ran. Returns whether a new event
// was written.
func (s *XPService) Award(attemptID, userID, quizID string, amount int) (bool, error) {
	if amount < 0 {
		amount = 0
	}

	event := &entity.XPEvent{
		UserID:    userID,
		AttemptID: attemptID,
		QuizID:    quizID,
		Amount:    amount,
	}
	if err := s.xpRepo.Insert(event); err != nil {
		if errors.Is(err, repository.ErrDuplicateEvent) {
			log.Printf("[XPService] Attempt %s already rewarded, skipping", attemptID)
			return false, nil
		}
		return false, fmt.Errorf("insert xp event for attempt %s: %w", attemptID, err)
	}

	if amount > 0 {
		if err := s.userRepo.IncrementXP(userID, amount); err != nil {
			// The ledger row exists, so the denormalized total can be repaired
			// by RecountUser; don't fail the award.
			log.Printf("[XPService] WARNING: failed to increment total_xp for user %s: %v", userID, err)
		}
	}

	// Telemetry flag on the attempt row. The ledger stays authoritative.
	if err := s.attemptRepo.MarkXPAwarded(attemptID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[XPService] WARNING: failed to flag attempt %s as rewarded: %v", attemptID, err)
	}

	log.Printf("[XPService] Awarded %d XP to user %s for attempt %s", amount, userID, attemptID)
	return true, nil
}

// IsAwarded reports whether the attempt already has a ledger entry. Used by
// the sync coordinator to resume safely after a crash between the remote
// write and the reward.
func (s *XPService) IsAwarded(attemptID string) (bool, error) {
	return s.xpRepo.ExistsForAttempt(attemptID)
}

// UserXP is the profile view of a user's progression.
type UserXP struct {
	TotalXP       int     `json:"total_xp"`
	Level         int     `json:"level"`
	XPIntoLevel   int     `json:"xp_into_level"`
	LevelProgress float64 `json:"level_progress"` // 0..1 within the current level
}

// GetUserXP reads the user's progression from the ledger.
func (s *XPService) GetUserXP(userID string) (*UserXP, error) {
	total, err := s.xpRepo.TotalForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("sum xp for user %s: %w", userID, err)
	}
	return &UserXP{
		TotalXP:       total,
		Level:         total/XPPerLevel + 1,
		XPIntoLevel:   total % XPPerLevel,
		LevelProgress: float64(total%XPPerLevel) / float64(XPPerLevel),
	}, nil
}

// RecountUser repairs the denormalized users.total_xp from the ledger.
func (s *XPService) RecountUser(userID string) error {
	total, err := s.xpRepo.TotalForUser(userID)
	if err != nil {
		return err
	}
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if user.TotalXP == total {
		return nil
	}
	log.Printf("[XPService] Repairing total_xp for user %s: %d -> %d", userID, user.TotalXP, total)
	user.TotalXP = total
	return s.userRepo.Update(user)
}
