package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
	"github.com/yourusername/idoneo-api/internal/service/attemptrunner"
)

// SyncConfig bounds the drain scheduling.
type SyncConfig struct {
	Interval   time.Duration // periodic drain tick
	BackoffMin time.Duration // first backoff after a recoverable failure
	BackoffMax time.Duration // backoff ceiling
}

// DefaultSyncConfig returns the scheduling defaults.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		Interval:   time.Minute,
		BackoffMin: 5 * time.Second,
		BackoffMax: 5 * time.Minute,
	}
}

// DrainStats summarizes one drain pass.
type DrainStats struct {
	Synced    int `json:"synced"`
	Rejected  int `json:"rejected"`
	Remaining int `json:"remaining"`
}

// SyncService reconciles the offline queue with the remote store exactly
// once per attempt.
//
// Items drain strictly in sequence order: XP and leaderboard effects must
// reflect the chronological order attempts were taken. A recoverable failure
// at the head therefore ends the pass; a rejected item is marked failed and
// skipped so one bad payload cannot stall the queue. Reward idempotency
// rests solely on the xp_events.attempt_id unique constraint: a crash
// between the remote write and the reward is resumed safely because the next
// drain re-checks the ledger before awarding.
type SyncService struct {
	store        repository.LocalStore
	attemptRepo  repository.AttemptRepository
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	xpService    *XPService
	leaderboard  *LeaderboardService
	badges       *BadgeService
	monitor      *ConnectivityMonitor

	group singleflight.Group
	cfg   SyncConfig

	mu          sync.Mutex
	backoff     time.Duration
	nextAttempt time.Time

	stopOnce sync.Once
	stop     chan struct{}
}

// NewSyncService creates a new sync coordinator
func NewSyncService(
	store repository.LocalStore,
	attemptRepo repository.AttemptRepository,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	xpService *XPService,
	leaderboard *LeaderboardService,
	badges *BadgeService,
	cfg SyncConfig,
) *SyncService {
	if cfg.Interval <= 0 {
		cfg = DefaultSyncConfig()
	}
	return &SyncService{
		store:        store,
		attemptRepo:  attemptRepo,
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		xpService:    xpService,
		leaderboard:  leaderboard,
		badges:       badges,
		cfg:          cfg,
		stop:         make(chan struct{}),
	}
}

// SetMonitor attaches the connectivity monitor consulted before each pass.
func (s *SyncService) SetMonitor(m *ConnectivityMonitor) {
	s.monitor = m
}

// Drain runs one pass over the queue. Concurrent callers (ticker, reconnect
// trigger, manual endpoint) collapse into a single in-flight pass.
func (s *SyncService) Drain() (*DrainStats, error) {
	v, err, _ := s.group.Do("drain", func() (interface{}, error) {
		return s.drain()
	})
	if err != nil {
		return nil, err
	}
	return v.(*DrainStats), nil
}

// DrainNow clears the failure backoff and runs a pass immediately. Used by
// the reconnect trigger and the manual endpoint, where waiting out a backoff
// computed under the old connectivity would be wrong.
func (s *SyncService) DrainNow() (*DrainStats, error) {
	s.resetBackoff()
	return s.Drain()
}

// Start schedules periodic drains until Stop is called.
func (s *SyncService) Start() {
	go func() {
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				if _, err := s.Drain(); err != nil {
					log.Printf("[SyncService] Drain pass failed: %v", err)
				}
			}
		}
	}()
}

// Stop terminates the periodic drain loop.
func (s *SyncService) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *SyncService) drain() (*DrainStats, error) {
	stats := &DrainStats{}

	if s.monitor != nil && !s.monitor.Online() {
		return s.finishStats(stats)
	}
	if !s.backoffElapsed() {
		return s.finishStats(stats)
	}

	for {
		item, err := s.store.PeekNext()
		if err != nil {
			if errors.Is(err, repository.ErrQueueEmpty) {
				break
			}
			return nil, fmt.Errorf("peek sync queue: %w", err)
		}

		err = s.syncItem(item)
		switch {
		case err == nil:
			stats.Synced++
			s.resetBackoff()

		case errors.Is(err, apperrors.ErrSyncRejected):
			// Permanently refused: flag as "not saved" and keep draining.
			log.Printf("[SyncService] Item seq %d rejected: %v", item.Seq, err)
			if markErr := s.store.MarkFailed(item.Seq, err.Error()); markErr != nil {
				return nil, fmt.Errorf("mark seq %d failed: %w", item.Seq, markErr)
			}
			stats.Rejected++

		default:
			// Recoverable: the item stays at the head, ordering is
			// preserved, and the pass ends here.
			log.Printf("[SyncService] Item seq %d hit recoverable failure: %v", item.Seq, err)
			if markErr := s.store.MarkRetry(item.Seq, err.Error()); markErr != nil {
				log.Printf("[SyncService] WARNING: failed to record retry for seq %d: %v", item.Seq, markErr)
			}
			s.raiseBackoff()
			if s.monitor != nil {
				s.monitor.SetOnline(false)
			}
			return s.finishStats(stats)
		}
	}

	return s.finishStats(stats)
}

// syncItem promotes one queued attempt: remote write, id remap, reward
// round, then the dequeue. The reward must land before the item leaves the
// queue: every step before the dequeue is idempotent (client_ref on the
// remote write, the ledger constraint on the reward), so a crash or failure
// anywhere leaves the item at the head and the next pass resumes it.
func (s *SyncService) syncItem(item *entity.SyncQueueItem) error {
	var payload entity.SyncPayload
	if err := json.Unmarshal(item.Payload, &payload); err != nil {
		return fmt.Errorf("%w: undecodable payload: %v", apperrors.ErrSyncRejected, err)
	}
	if payload.ClientRef == "" || payload.UserID == "" || payload.QuizID == "" || len(payload.QuestionIDs) == 0 {
		return fmt.Errorf("%w: payload missing required fields", apperrors.ErrSyncRejected)
	}

	attempt, answers, result, err := s.buildRemote(&payload)
	if err != nil {
		return err
	}

	remoteID, err := s.attemptRepo.CreateSynced(attempt, answers, result)
	if err != nil && !errors.Is(err, repository.ErrDuplicateAttempt) {
		return classifyRemoteErr(err)
	}
	// A duplicate means an earlier pass already wrote the attempt and
	// crashed before finishing; remoteID points at the existing row and the
	// reward round below resumes from the ledger.

	if err := s.store.MapRemoteID(item.AttemptLocalID, remoteID); err != nil {
		return fmt.Errorf("map %s to remote %s: %w", item.AttemptLocalID, remoteID, err)
	}

	if err := applyReward(s.xpService, s.leaderboard, s.badges, remoteID, payload.UserID, payload.QuizID, result); err != nil {
		// The ledger write failed transiently. The item stays queued; the
		// retry re-hits the client_ref collision above and resumes here.
		return fmt.Errorf("%w: reward for attempt %s: %v", apperrors.ErrSyncRecoverable, remoteID, err)
	}

	if err := s.store.Dequeue(item.Seq); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return fmt.Errorf("dequeue seq %d: %w", item.Seq, err)
	}
	if err := s.store.DeleteSnapshot(item.AttemptLocalID); err != nil {
		log.Printf("[SyncService] WARNING: failed to drop snapshot for %s: %v", item.AttemptLocalID, err)
	}

	log.Printf("[SyncService] Promoted %s to remote attempt %s", item.AttemptLocalID, remoteID)
	return nil
}

// buildRemote recomputes the server-side truth from the uploaded answer
// sheet: correctness snapshots and the result are derived from the current
// question bank, never trusted from the device.
func (s *SyncService) buildRemote(payload *entity.SyncPayload) (*entity.Attempt, []entity.AttemptAnswer, *entity.Result, error) {
	quiz, err := s.quizRepo.GetByID(payload.QuizID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: quiz %s no longer exists", apperrors.ErrSyncRejected, payload.QuizID)
		}
		return nil, nil, nil, fmt.Errorf("%w: load quiz %s: %v", apperrors.ErrSyncRecoverable, payload.QuizID, err)
	}

	questions, err := s.questionRepo.GetByIDs(payload.QuestionIDs)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, nil, fmt.Errorf("%w: %v", apperrors.ErrSyncRejected, err)
		}
		return nil, nil, nil, fmt.Errorf("%w: load questions: %v", apperrors.ErrSyncRecoverable, err)
	}

	selectedByQuestion := make(map[string]*string, len(payload.Answers))
	for i := range payload.Answers {
		selectedByQuestion[payload.Answers[i].QuestionID] = payload.Answers[i].SelectedOption
	}

	answers := make([]entity.AttemptAnswer, 0, len(questions))
	for pos := range questions {
		q := &questions[pos]
		key := attemptrunner.CanonicalAnswerKey(q)

		var selected *string
		if raw, ok := selectedByQuestion[q.ID]; ok && raw != nil {
			if opt := attemptrunner.NormalizeOption(*raw); opt != entity.OptionNone {
				v := string(opt)
				selected = &v
			}
		}

		answers = append(answers, entity.AttemptAnswer{
			QuestionID:      q.ID,
			Position:        pos,
			SelectedOption:  selected,
			CorrectSnapshot: string(key),
			IsCorrect:       key != entity.OptionNone && selected != nil && entity.Option(*selected) == key,
			IsLocked:        true,
		})
	}

	outcome := attemptrunner.Evaluate(answers, attemptrunner.ConfigForQuiz(quiz))
	if outcome.Tally.TotalScoreable() == 0 {
		return nil, nil, nil, fmt.Errorf("%w: no scoreable questions for quiz %s", apperrors.ErrSyncRejected, payload.QuizID)
	}

	finishedAt := payload.FinishedAt
	attempt := &entity.Attempt{
		ID:               uuid.NewString(),
		ClientRef:        payload.ClientRef,
		UserID:           payload.UserID,
		QuizID:           payload.QuizID,
		QuestionIDs:      entity.StringArray(payload.QuestionIDs),
		TimeLimitSeconds: payload.TimeLimitSeconds,
		Status:           entity.AttemptStatusCompleted,
		FinishedBy:       payload.FinishedBy,
		StartedAt:        payload.StartedAt,
		FinishedAt:       &finishedAt,
		DurationSeconds:  payload.DurationSeconds,
	}

	result := &entity.Result{
		UserID:        payload.UserID,
		QuizID:        payload.QuizID,
		Correct:       outcome.Tally.Correct,
		Wrong:         outcome.Tally.Wrong,
		Blank:         outcome.Tally.Blank,
		Invalid:       outcome.Tally.Invalid,
		Score:         outcome.Score,
		Passed:        outcome.Passed,
		PassThreshold: outcome.PassThreshold,
		CompletedAt:   finishedAt,
	}
	return attempt, answers, result, nil
}

// classifyRemoteErr sorts remote-write failures into the retry taxonomy.
// Validation and conflict problems cannot be fixed by retrying; everything
// else (network, timeouts, unavailable database) is recoverable.
func classifyRemoteErr(err error) error {
	if errors.Is(err, apperrors.ErrValidation) || errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrConflict) {
		return fmt.Errorf("%w: %v", apperrors.ErrSyncRejected, err)
	}
	return fmt.Errorf("%w: %v", apperrors.ErrSyncRecoverable, err)
}

func (s *SyncService) finishStats(stats *DrainStats) (*DrainStats, error) {
	pending, err := s.store.ListPending()
	if err != nil {
		return stats, nil
	}
	stats.Remaining = len(pending)
	return stats, nil
}

func (s *SyncService) backoffElapsed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().After(s.nextAttempt)
}

func (s *SyncService) raiseBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backoff == 0 {
		s.backoff = s.cfg.BackoffMin
	} else {
		s.backoff *= 2
		if s.backoff > s.cfg.BackoffMax {
			s.backoff = s.cfg.BackoffMax
		}
	}
	s.nextAttempt = time.Now().Add(s.backoff)
}

func (s *SyncService) resetBackoff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backoff = 0
	s.nextAttempt = time.Time{}
}
