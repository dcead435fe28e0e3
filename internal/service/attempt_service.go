package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
	"github.com/yourusername/idoneo-api/internal/service/attemptrunner"
)

// AttemptView is the session state exposed to the API layer.
type AttemptView struct {
	AttemptID entity.AttemptID       `json:"attempt_id"`
	QuizID    string                 `json:"quiz_id"`
	State     attemptrunner.State    `json:"state"`
	StartedAt time.Time              `json:"started_at"`
	Remaining time.Duration          `json:"remaining"`
	Questions []entity.Question      `json:"questions"`
	Answers   []entity.AttemptAnswer `json:"answers"`
}

// AttemptService drives quiz attempts end to end. It keeps one live runner
// per user (a second start must resume or explicitly abandon), persists a
// snapshot after every accepted mutation, and on finish either finalizes
// remotely or stages the attempt in the offline queue.
type AttemptService struct {
	attemptRepo  repository.AttemptRepository
	quizRepo     repository.QuizRepository
	questionRepo repository.QuestionRepository
	resultRepo   repository.ResultRepository
	store        repository.LocalStore
	queue        *OfflineQueue
	monitor      *ConnectivityMonitor
	syncService  *SyncService
	xpService    *XPService
	leaderboard  *LeaderboardService
	badges       *BadgeService

	mu       sync.Mutex
	sessions map[string]*attemptrunner.Runner // keyed by user id
	starting map[string]struct{}              // users with a Start in flight

	now func() time.Time
}

// NewAttemptService creates a new attempt service
func NewAttemptService(
	attemptRepo repository.AttemptRepository,
	quizRepo repository.QuizRepository,
	questionRepo repository.QuestionRepository,
	resultRepo repository.ResultRepository,
	store repository.LocalStore,
	queue *OfflineQueue,
	monitor *ConnectivityMonitor,
	syncService *SyncService,
	xpService *XPService,
	leaderboard *LeaderboardService,
	badges *BadgeService,
) *AttemptService {
	return &AttemptService{
		attemptRepo:  attemptRepo,
		quizRepo:     quizRepo,
		questionRepo: questionRepo,
		resultRepo:   resultRepo,
		store:        store,
		queue:        queue,
		monitor:      monitor,
		syncService:  syncService,
		xpService:    xpService,
		leaderboard:  leaderboard,
		badges:       badges,
		sessions:     make(map[string]*attemptrunner.Runner),
		starting:     make(map[string]struct{}),
		now:          time.Now,
	}
}

// Start opens a new attempt for the user. While a live session exists it
// must be resumed or abandoned first; two concurrent attempts per user are
// never allowed.
func (s *AttemptService) Start(userID, quizID string) (*AttemptView, error) {
	// Reserve the user's session slot before any I/O so a second concurrent
	// Start fails here instead of racing past the live-session check.
	if err := s.reserveSession(userID); err != nil {
		return nil, err
	}
	registered := false
	defer func() {
		if !registered {
			s.releaseSession(userID)
		}
	}()

	quiz, err := s.quizRepo.GetByID(quizID)
	if err != nil {
		return nil, fmt.Errorf("load quiz %s: %w", quizID, err)
	}

	questions, err := s.loadQuestions(quiz)
	if err != nil {
		return nil, err
	}

	attemptID := s.createAttemptID(userID, quiz, questions)

	runner, err := attemptrunner.New(attemptID, userID, quiz, questions, attemptrunner.ConfigForQuiz(quiz), s.now)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[userID] = runner
	delete(s.starting, userID)
	s.mu.Unlock()
	registered = true

	if err := s.saveSnapshot(runner); err != nil {
		log.Printf("[AttemptService] WARNING: failed to snapshot attempt %s: %v", attemptID, err)
	}

	log.Printf("[AttemptService] User %s started attempt %s on quiz %s (%d questions)", userID, attemptID, quizID, len(questions))
	return s.view(runner), nil
}

// createAttemptID registers the attempt remotely when the system is online,
// falling back to a local-only identifier when the remote write fails.
func (s *AttemptService) createAttemptID(userID string, quiz *entity.Quiz, questions []entity.Question) entity.AttemptID {
	if s.monitor != nil && !s.monitor.Online() {
		return entity.NewLocalAttemptID()
	}

	questionIDs := make([]string, 0, len(questions))
	for i := range questions {
		questionIDs = append(questionIDs, questions[i].ID)
	}

	attempt := &entity.Attempt{
		ID:               uuid.NewString(),
		UserID:           userID,
		QuizID:           quiz.ID,
		QuestionIDs:      entity.StringArray(questionIDs),
		TimeLimitSeconds: int(quiz.TimeLimit().Seconds()),
		Status:           entity.AttemptStatusRunning,
		StartedAt:        s.now(),
	}
	attempt.ClientRef = attempt.ID

	if err := s.attemptRepo.Create(attempt); err != nil {
		log.Printf("[AttemptService] Remote create failed, starting offline: %v", err)
		if s.monitor != nil {
			s.monitor.SetOnline(false)
		}
		return entity.NewLocalAttemptID()
	}
	return entity.RemoteAttemptID(attempt.ID)
}

// Resume returns the user's live session, rehydrating it from the local
// snapshot after a process restart.
func (s *AttemptService) Resume(userID string) (*AttemptView, error) {
	s.mu.Lock()
	if runner, ok := s.sessions[userID]; ok && !runner.State().Terminal() {
		s.mu.Unlock()
		return s.view(runner), nil
	}
	s.mu.Unlock()

	snaps, err := s.store.ListSnapshots(userID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots for user %s: %w", userID, err)
	}

	for i := range snaps {
		snap := &snaps[i]
		state := attemptrunner.State(snap.State)
		if state != attemptrunner.StateRunning && state != attemptrunner.StateReviewing {
			continue
		}

		var sess attemptrunner.Session
		if err := json.Unmarshal(snap.Payload, &sess); err != nil {
			// One corrupt snapshot must not block resuming from the others.
			log.Printf("[AttemptService] WARNING: skipping undecodable snapshot %s: %v", snap.AttemptID, err)
			continue
		}

		questions, err := s.questionRepo.GetByIDs(sess.QuestionIDs)
		if err != nil {
			return nil, fmt.Errorf("reload questions for attempt %s: %w", snap.AttemptID, err)
		}

		runner, err := attemptrunner.Resume(sess, questions, s.now)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.sessions[userID] = runner
		s.mu.Unlock()

		log.Printf("[AttemptService] User %s resumed attempt %s", userID, runner.AttemptID())
		return s.view(runner), nil
	}

	return nil, fmt.Errorf("%w: user %s", ErrNoLiveSession, userID)
}

// SubmitAnswer records an answer on the user's live session. A nil option
// marks the question skipped.
func (s *AttemptService) SubmitAnswer(userID string, attemptID entity.AttemptID, questionID string, option *string) (*entity.AttemptAnswer, error) {
	runner, err := s.session(userID, attemptID)
	if err != nil {
		return nil, err
	}

	if _, err := s.finishExpired(userID, runner); err != nil {
		return nil, err
	}

	answer, err := runner.SubmitAnswer(questionID, option)
	if err != nil {
		return nil, err
	}

	if err := s.saveSnapshot(runner); err != nil {
		log.Printf("[AttemptService] WARNING: failed to snapshot attempt %s: %v", runner.AttemptID(), err)
	}

	// Remote attempts mirror each answer upstream; a failure only flips
	// connectivity, the snapshot already holds the truth.
	if !runner.AttemptID().IsLocal() && (s.monitor == nil || s.monitor.Online()) {
		upstream := *answer
		if err := s.attemptRepo.SaveAnswer(&upstream); err != nil {
			log.Printf("[AttemptService] Remote answer upsert failed for attempt %s: %v", runner.AttemptID(), err)
			if s.monitor != nil {
				s.monitor.SetOnline(false)
			}
		}
	}

	return answer, nil
}

// LockAnswer freezes an answer for instant checking.
func (s *AttemptService) LockAnswer(userID string, attemptID entity.AttemptID, questionID string) (*entity.AttemptAnswer, error) {
	runner, err := s.session(userID, attemptID)
	if err != nil {
		return nil, err
	}
	answer, err := runner.LockAnswer(questionID)
	if err != nil {
		return nil, err
	}
	if err := s.saveSnapshot(runner); err != nil {
		log.Printf("[AttemptService] WARNING: failed to snapshot attempt %s: %v", runner.AttemptID(), err)
	}
	return answer, nil
}

// Finish completes the user's live attempt and returns its result. Online,
// the result is finalized remotely and rewarded immediately; offline (or on
// a failed remote write) the attempt is staged for the sync drain.
func (s *AttemptService) Finish(userID string, attemptID entity.AttemptID) (*entity.Result, error) {
	runner, err := s.session(userID, attemptID)
	if err != nil {
		return nil, err
	}

	if sheet, err := s.finishExpired(userID, runner); err != nil {
		return nil, err
	} else if sheet != nil {
		return s.finalize(userID, runner, sheet)
	}

	sheet, err := runner.Finish()
	if err != nil {
		return nil, err
	}
	return s.finalize(userID, runner, sheet)
}

func (s *AttemptService) finishExpired(userID string, runner *attemptrunner.Runner) (*attemptrunner.FinalSheet, error) {
	sheet, err := runner.FinishIfExpired()
	if err != nil {
		return nil, err
	}
	if sheet != nil {
		log.Printf("[AttemptService] Attempt %s timed out, forcing completion", runner.AttemptID())
	}
	return sheet, nil
}

func (s *AttemptService) finalize(userID string, runner *attemptrunner.Runner, sheet *attemptrunner.FinalSheet) (*entity.Result, error) {
	defer s.unregister(userID, runner)

	attemptID := runner.AttemptID()
	result := &entity.Result{
		UserID:        userID,
		QuizID:        runner.QuizID(),
		Correct:       sheet.Outcome.Tally.Correct,
		Wrong:         sheet.Outcome.Tally.Wrong,
		Blank:         sheet.Outcome.Tally.Blank,
		Invalid:       sheet.Outcome.Tally.Invalid,
		Score:         sheet.Outcome.Score,
		Passed:        sheet.Outcome.Passed,
		PassThreshold: sheet.Outcome.PassThreshold,
		CompletedAt:   sheet.FinishedAt,
	}

	if attemptID.IsLocal() {
		if err := s.stageOffline(userID, runner, sheet); err != nil {
			return nil, err
		}
		result.AttemptID = attemptID.String()
		return result, nil
	}

	attempt := &entity.Attempt{
		ID:              attemptID.String(),
		Status:          entity.AttemptStatusCompleted,
		FinishedBy:      sheet.FinishedBy,
		FinishedAt:      &sheet.FinishedAt,
		DurationSeconds: int(sheet.Duration.Seconds()),
	}
	if err := s.attemptRepo.Finalize(attempt, sheet.Answers, result); err != nil {
		// The remote write failed after the session completed: stage the
		// attempt instead so the result is never lost. The client_ref
		// collision lets the drain finalize the existing remote row.
		log.Printf("[AttemptService] Remote finalize failed for %s, staging offline: %v", attemptID, err)
		if s.monitor != nil {
			s.monitor.SetOnline(false)
		}
		if err := s.stageOffline(userID, runner, sheet); err != nil {
			return nil, err
		}
		result.AttemptID = attemptID.String()
		return result, nil
	}

	s.dropSnapshot(attemptID)
	if err := applyReward(s.xpService, s.leaderboard, s.badges, attemptID.String(), userID, runner.QuizID(), result); err != nil {
		// The attempt is finalized; a failed ledger write here is repaired by
		// the next drain or a recount, never by failing the finish.
		log.Printf("[AttemptService] WARNING: reward for attempt %s failed: %v", attemptID, err)
	}

	result.AttemptID = attemptID.String()
	log.Printf("[AttemptService] User %s completed attempt %s: score=%.2f passed=%t", userID, attemptID, result.Score, result.Passed)
	return result, nil
}

// stageOffline hands the finished sheet to the offline queue and nudges the
// drain in case connectivity is back.
func (s *AttemptService) stageOffline(userID string, runner *attemptrunner.Runner, sheet *attemptrunner.FinalSheet) error {
	attemptID := runner.AttemptID()

	answers := make([]entity.SyncAnswer, 0, len(sheet.Answers))
	for i := range sheet.Answers {
		a := &sheet.Answers[i]
		answers = append(answers, entity.SyncAnswer{
			QuestionID:     a.QuestionID,
			Position:       a.Position,
			SelectedOption: a.SelectedOption,
		})
	}

	// ClientRef is the idempotency key carried to the remote store: the
	// remote id when the attempt was created online (so the drain finalizes
	// the existing row), the full local marker otherwise.
	payload := &entity.SyncPayload{
		ClientRef:        attemptID.String(),
		UserID:           userID,
		QuizID:           runner.QuizID(),
		QuestionIDs:      runner.QuestionOrder(),
		TimeLimitSeconds: int(runner.Config().TimeLimit.Seconds()),
		FinishedBy:       sheet.FinishedBy,
		StartedAt:        runner.StartedAt(),
		FinishedAt:       sheet.FinishedAt,
		DurationSeconds:  int(sheet.Duration.Seconds()),
		Answers:          answers,
	}

	stagedID := attemptID
	if !stagedID.IsLocal() {
		// Remote attempt whose finalize failed: stage under a local alias so
		// the queue invariant (local ids only) holds.
		stagedID = entity.NewLocalAttemptID()
	}

	if _, err := s.queue.Stage(stagedID, payload); err != nil {
		return err
	}

	if s.syncService != nil {
		go func() {
			if _, err := s.syncService.DrainNow(); err != nil {
				log.Printf("[AttemptService] Post-stage drain failed: %v", err)
			}
		}()
	}
	return nil
}

// Abandon terminates the live attempt without producing a result. Abandoned
// attempts are never staged, synced or rewarded.
func (s *AttemptService) Abandon(userID string, attemptID entity.AttemptID) error {
	runner, err := s.session(userID, attemptID)
	if err != nil {
		return err
	}

	if err := runner.Abandon(); err != nil {
		return err
	}
	s.unregister(userID, runner)
	s.dropSnapshot(attemptID)

	if !attemptID.IsLocal() {
		if err := s.attemptRepo.Abandon(attemptID.String(), s.now()); err != nil {
			log.Printf("[AttemptService] WARNING: remote abandon for %s failed: %v", attemptID, err)
		}
	}

	log.Printf("[AttemptService] User %s abandoned attempt %s", userID, attemptID)
	return nil
}

// Get returns the live or persisted view of an attempt. Local identifiers
// are resolved through the sync mapping once promoted.
func (s *AttemptService) Get(userID string, attemptID entity.AttemptID) (*AttemptView, *entity.Attempt, error) {
	s.mu.Lock()
	runner, ok := s.sessions[userID]
	s.mu.Unlock()
	if ok && runner.AttemptID() == attemptID && !runner.State().Terminal() {
		return s.view(runner), nil, nil
	}

	remoteID, err := s.resolveRemoteID(attemptID)
	if err != nil {
		return nil, nil, err
	}

	attempt, err := s.attemptRepo.GetByID(remoteID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.UserID != userID {
		return nil, nil, apperrors.ErrNotFound
	}
	return nil, attempt, nil
}

// GetResult returns the finalized result for an attempt, resolving local
// identifiers to their confirmed remote counterpart.
func (s *AttemptService) GetResult(userID string, attemptID entity.AttemptID) (*entity.Result, error) {
	remoteID, err := s.resolveRemoteID(attemptID)
	if err != nil {
		return nil, err
	}

	result, err := s.resultRepo.GetByAttemptID(remoteID)
	if err != nil {
		return nil, err
	}
	if result.UserID != userID {
		return nil, apperrors.ErrNotFound
	}
	return result, nil
}

func (s *AttemptService) resolveRemoteID(attemptID entity.AttemptID) (string, error) {
	if !attemptID.IsLocal() {
		return attemptID.String(), nil
	}
	remoteID, err := s.store.ResolveRemoteID(attemptID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", fmt.Errorf("%w: attempt %s has not been synced yet", apperrors.ErrNotFound, attemptID)
		}
		return "", err
	}
	return remoteID, nil
}

func (s *AttemptService) loadQuestions(quiz *entity.Quiz) ([]entity.Question, error) {
	if len(quiz.QuestionIDs) > 0 {
		return s.questionRepo.GetByIDs(quiz.QuestionIDs)
	}
	if quiz.QuestionCount > 0 {
		return s.questionRepo.GetRandom(quiz.QuestionCount)
	}
	return nil, fmt.Errorf("%w: quiz %s defines no questions", apperrors.ErrValidation, quiz.ID)
}

func (s *AttemptService) session(userID string, attemptID entity.AttemptID) (*attemptrunner.Runner, error) {
	s.mu.Lock()
	runner, ok := s.sessions[userID]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: user %s", ErrNoLiveSession, userID)
	}
	if !attemptID.IsZero() && runner.AttemptID() != attemptID {
		return nil, fmt.Errorf("%w: attempt %s is not the live session", apperrors.ErrNotFound, attemptID)
	}
	return runner, nil
}

// reserveSession claims the user's single session slot under one lock
// acquisition, so two concurrent Starts can never both pass the check.
func (s *AttemptService) reserveSession(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.starting[userID]; ok {
		return fmt.Errorf("%w: start already in flight", ErrAttemptInProgress)
	}
	if existing, ok := s.sessions[userID]; ok && !existing.State().Terminal() {
		return fmt.Errorf("%w: attempt %s", ErrAttemptInProgress, existing.AttemptID())
	}
	s.starting[userID] = struct{}{}
	return nil
}

func (s *AttemptService) releaseSession(userID string) {
	s.mu.Lock()
	delete(s.starting, userID)
	s.mu.Unlock()
}

func (s *AttemptService) unregister(userID string, runner *attemptrunner.Runner) {
	s.mu.Lock()
	if current, ok := s.sessions[userID]; ok && current == runner {
		delete(s.sessions, userID)
	}
	s.mu.Unlock()
}

func (s *AttemptService) saveSnapshot(runner *attemptrunner.Runner) error {
	sess := runner.Export()
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.store.SaveSnapshot(&repository.AttemptSnapshot{
		AttemptID: sess.AttemptID,
		UserID:    sess.UserID,
		QuizID:    sess.QuizID,
		State:     string(sess.State),
		Payload:   raw,
	})
}

func (s *AttemptService) dropSnapshot(attemptID entity.AttemptID) {
	if err := s.store.DeleteSnapshot(attemptID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		log.Printf("[AttemptService] WARNING: failed to drop snapshot for %s: %v", attemptID, err)
	}
}

func (s *AttemptService) view(runner *attemptrunner.Runner) *AttemptView {
	sess := runner.Export()
	return &AttemptView{
		AttemptID: sess.AttemptID,
		QuizID:    sess.QuizID,
		State:     sess.State,
		StartedAt: sess.StartedAt,
		Remaining: runner.Remaining(),
		Questions: runner.Questions(),
		Answers:   sess.Answers,
	}
}
