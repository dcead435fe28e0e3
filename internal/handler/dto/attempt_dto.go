package dto

import (
	"time"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/service"
)

// AttemptResponse is a live or persisted attempt in client format.
type AttemptResponse struct {
	AttemptID        string             `json:"attempt_id"`
	QuizID           string             `json:"quiz_id"`
	State            string             `json:"state"`
	StartedAt        time.Time          `json:"started_at"`
	RemainingSeconds int                `json:"remaining_seconds"`
	Questions        []QuestionResponse `json:"questions,omitempty"`
	Answers          []AnswerResponse   `json:"answers"`
}

// NewAttemptViewResponse creates the DTO for a live session view
func NewAttemptViewResponse(view *service.AttemptView) *AttemptResponse {
	if view == nil {
		return nil
	}
	return &AttemptResponse{
		AttemptID:        view.AttemptID.String(),
		QuizID:           view.QuizID,
		State:            string(view.State),
		StartedAt:        view.StartedAt,
		RemainingSeconds: int(view.Remaining.Seconds()),
		Questions:        NewListQuestionResponse(view.Questions),
		Answers:          NewListAnswerResponse(view.Answers),
	}
}

// NewAttemptResponse creates the DTO for a persisted attempt row
func NewAttemptResponse(attempt *entity.Attempt, answers []entity.AttemptAnswer) *AttemptResponse {
	if attempt == nil {
		return nil
	}
	return &AttemptResponse{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		State:     attempt.Status,
		StartedAt: attempt.StartedAt,
		Answers:   NewListAnswerResponse(answers),
	}
}

// SyncQueueItemResponse is one staged attempt in client format. Failed items
// are surfaced as "not saved", never silently discarded.
type SyncQueueItemResponse struct {
	Seq        int64     `json:"seq"`
	AttemptID  string    `json:"attempt_id"`
	Status     string    `json:"status"`
	RetryCount int       `json:"retry_count"`
	LastError  string    `json:"last_error,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewSyncQueueResponse creates DTOs for the queue view
func NewSyncQueueResponse(items []entity.SyncQueueItem) []SyncQueueItemResponse {
	list := make([]SyncQueueItemResponse, len(items))
	for i := range items {
		item := &items[i]
		list[i] = SyncQueueItemResponse{
			Seq:        item.Seq,
			AttemptID:  item.AttemptLocalID.String(),
			Status:     item.Status,
			RetryCount: item.RetryCount,
			LastError:  item.LastError,
			EnqueuedAt: item.EnqueuedAt,
		}
	}
	return list
}

// LeaderboardEntryResponse is one standing in client format.
type LeaderboardEntryResponse struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	TotalXP  int    `json:"total_xp"`
}

// NewLeaderboardResponse creates DTOs for one page of standings, assigning
// display ranks from the page offset
func NewLeaderboardResponse(entries []entity.LeaderboardEntry, offset int) []LeaderboardEntryResponse {
	list := make([]LeaderboardEntryResponse, len(entries))
	for i := range entries {
		e := &entries[i]
		rank := e.Rank
		if rank == 0 {
			rank = offset + i + 1
		}
		list[i] = LeaderboardEntryResponse{
			Rank:     rank,
			UserID:   e.UserID,
			Username: e.Username,
			TotalXP:  e.TotalXP,
		}
	}
	return list
}

// BadgeResponse is one earned badge in client format.
type BadgeResponse struct {
	BadgeID  string    `json:"badge_id"`
	EarnedAt time.Time `json:"earned_at"`
}

// NewBadgeListResponse creates DTOs for a user's earned badges
func NewBadgeListResponse(badges []entity.UserBadge) []BadgeResponse {
	list := make([]BadgeResponse, len(badges))
	for i := range badges {
		list[i] = BadgeResponse{BadgeID: badges[i].BadgeID, EarnedAt: badges[i].EarnedAt}
	}
	return list
}
