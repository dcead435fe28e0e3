package service

import (
	"fmt"
	"log"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
)

// applyReward runs the post-confirmation round for an attempt: XP award,
// leaderboard refresh, badge evaluation. Shared by the online finish path
// and the sync drain.
//
// Every step is idempotent. The XP ledger's unique constraint decides
// whether this attempt was already rewarded; when it was, leaderboard and
// badges are skipped because both derive from the unchanged ledger. A failed
// ledger write is returned so the caller can retry the whole round; failures
// after the award degrade to warnings, since Rebuild and re-evaluation can
// repair any partial application.
func applyReward(xp *XPService, leaderboard *LeaderboardService, badges *BadgeService, attemptID, userID, quizID string, result *entity.Result) error {
	fresh, err := xp.Award(attemptID, userID, quizID, XPForResult(result))
	if err != nil {
		return fmt.Errorf("xp award for attempt %s: %w", attemptID, err)
	}
	if !fresh {
		return nil
	}

	if err := leaderboard.Apply(userID, quizID); err != nil {
		log.Printf("[Reward] WARNING: leaderboard update for user %s failed: %v", userID, err)
	}
	if _, err := badges.Check(userID, result, result.CompletedAt); err != nil {
		log.Printf("[Reward] WARNING: badge evaluation for user %s failed: %v", userID, err)
	}
	return nil
}
