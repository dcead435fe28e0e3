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

// ============================================================================
// Fixture
// ============================================================================

type syncFixture struct {
	store       *memLocalStore
	queue       *OfflineQueue
	attemptRepo *MockAttemptRepo
	quizRepo    *MockQuizRepo
	qRepo       *MockQuestionRepo
	xpRepo      *MockXPRepo
	userRepo    *MockUserRepo
	lbRepo      *MockLeaderboardRepo
	badgeRepo   *MockBadgeRepo
	svc         *SyncService
}

func newSyncFixture() *syncFixture {
	f := &syncFixture{
		store:       newMemLocalStore(),
		attemptRepo: new(MockAttemptRepo),
		quizRepo:    new(MockQuizRepo),
		qRepo:       new(MockQuestionRepo),
		xpRepo:      new(MockXPRepo),
		userRepo:    new(MockUserRepo),
		lbRepo:      new(MockLeaderboardRepo),
		badgeRepo:   new(MockBadgeRepo),
	}
	f.queue = NewOfflineQueue(f.store)

	xpService := NewXPService(f.xpRepo, f.userRepo, f.attemptRepo)
	leaderboard := NewLeaderboardService(f.lbRepo, f.xpRepo, f.userRepo, quietCache())
	badges := NewBadgeService(f.badgeRepo, f.attemptRepo, f.xpRepo)

	f.svc = NewSyncService(f.store, f.attemptRepo, f.quizRepo, f.qRepo, xpService, leaderboard, badges, DefaultSyncConfig())
	return f
}

// allowReward wires the mocks for the full reward round with permissive
// expectations; tests that assert on reward details set their own instead.
func (f *syncFixture) allowReward() {
	f.xpRepo.On("Insert", mock.Anything).Return(nil)
	f.xpRepo.On("TotalForUser", mock.Anything).Return(10, nil)
	f.xpRepo.On("TotalForUserQuiz", mock.Anything, mock.Anything).Return(10, nil)
	f.userRepo.On("IncrementXP", mock.Anything, mock.Anything).Return(nil)
	f.userRepo.On("GetByID", mock.Anything).Return(testUser(), nil)
	f.attemptRepo.On("MarkXPAwarded", mock.Anything).Return(nil)
	f.attemptRepo.On("GetStats", mock.Anything, mock.Anything).Return(statsWith(1, 1, 0, false), nil)
	f.lbRepo.On("GetActiveSeason").Return(nil, apperrors.ErrNotFound)
	f.lbRepo.On("UpsertEntry", mock.Anything).Return(nil)
	f.badgeRepo.On("Award", mock.Anything, mock.Anything).Return(false, nil)
}

func syncQuiz() *entity.Quiz {
	return &entity.Quiz{ID: "quiz-1", Title: "Concorso OSS 2026", PointsCorrect: 1}
}

func syncQuestions() []entity.Question {
	return []entity.Question{
		{ID: "q1", Text: "Question 1", CorrectOption: "A"},
		{ID: "q2", Text: "Question 2", CorrectOption: "B"},
		{ID: "q3", Text: "Question 3", CorrectOption: "C"},
	}
}

func strPtr(s string) *string { return &s }

func stagePayload(t *testing.T, f *syncFixture, selections map[string]*string) entity.AttemptID {
	t.Helper()

	localID := entity.NewLocalAttemptID()
	answers := make([]entity.SyncAnswer, 0, len(selections))
	pos := 0
	for _, qid := range []string{"q1", "q2", "q3"} {
		if sel, ok := selections[qid]; ok {
			answers = append(answers, entity.SyncAnswer{QuestionID: qid, Position: pos, SelectedOption: sel})
		}
		pos++
	}

	started := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	_, err := f.queue.Stage(localID, &entity.SyncPayload{
		ClientRef:        localID.String(),
		UserID:           "user-1",
		QuizID:           "quiz-1",
		QuestionIDs:      []string{"q1", "q2", "q3"},
		TimeLimitSeconds: 600,
		FinishedBy:       entity.FinishedByUser,
		StartedAt:        started,
		FinishedAt:       started.Add(8 * time.Minute),
		DurationSeconds:  480,
		Answers:          answers,
	})
	require.NoError(t, err)
	return localID
}

// ============================================================================
// Drain
// ============================================================================

func TestSyncService_Drain_PromotesQueuedAttempt(t *testing.T) {
	f := newSyncFixture()
	f.allowReward()

	localID := stagePayload(t, f, map[string]*string{
		"q1": strPtr("a"), // correct
		"q2": strPtr("c"), // wrong
	})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", []string{"q1", "q2", "q3"}).Return(syncQuestions(), nil)

	// The result handed to the remote store is recomputed server-side:
	// 1 correct, 1 wrong, 1 blank over 3 scoreable questions.
	f.attemptRepo.On("CreateSynced",
		mock.MatchedBy(func(a *entity.Attempt) bool {
			return a.ClientRef == localID.String() && a.Status == entity.AttemptStatusCompleted
		}),
		mock.Anything,
		mock.MatchedBy(func(r *entity.Result) bool {
			return r.Correct == 1 && r.Wrong == 1 && r.Blank == 1 && r.Invalid == 0 && !r.Passed
		}),
	).Return("remote-1", nil)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 0, stats.Rejected)
	assert.Equal(t, 0, stats.Remaining)

	remoteID, err := f.store.ResolveRemoteID(localID)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", remoteID)

	pending, _ := f.store.ListPending()
	assert.Empty(t, pending)
	f.attemptRepo.AssertExpectations(t)
}

func TestSyncService_Drain_DuplicateUploadAwardsOnce(t *testing.T) {
	// A previous pass crashed after the remote write: the retried upload hits
	// the client_ref constraint and the XP insert hits the ledger constraint.
	// The item still drains cleanly and the user's total is not touched again.
	f := newSyncFixture()

	localID := stagePayload(t, f, map[string]*string{"q1": strPtr("a")})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("remote-1", repository.ErrDuplicateAttempt)
	f.xpRepo.On("Insert", mock.Anything).Return(repository.ErrDuplicateEvent)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	f.userRepo.AssertNotCalled(t, "IncrementXP", mock.Anything, mock.Anything)
	f.lbRepo.AssertNotCalled(t, "UpsertEntry", mock.Anything)

	remoteID, err := f.store.ResolveRemoteID(localID)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", remoteID)
}

func TestSyncService_Drain_RejectedItemDoesNotBlockQueue(t *testing.T) {
	// The first item references a deleted quiz and is permanently rejected;
	// the second item must still sync in the same pass.
	f := newSyncFixture()
	f.allowReward()

	first := stagePayload(t, f, map[string]*string{"q1": strPtr("a")})
	second := stagePayload(t, f, map[string]*string{"q2": strPtr("b")})

	f.quizRepo.On("GetByID", "quiz-1").Return(nil, apperrors.ErrNotFound).Once()
	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).Return("remote-2", nil)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 0, stats.Remaining)

	// The rejected item is preserved as failed, never silently dropped.
	failed, _ := f.store.ListFailed()
	require.Len(t, failed, 1)
	assert.Equal(t, first, failed[0].AttemptLocalID)

	remoteID, err := f.store.ResolveRemoteID(second)
	require.NoError(t, err)
	assert.Equal(t, "remote-2", remoteID)
}

func TestSyncService_Drain_RecoverableFailureEndsPass(t *testing.T) {
	// A transport failure at the head must not let later items overtake it:
	// XP and leaderboard effects have to apply in attempt order.
	f := newSyncFixture()

	stagePayload(t, f, map[string]*string{"q1": strPtr("a")})
	stagePayload(t, f, map[string]*string{"q2": strPtr("b")})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError)

	monitor := NewConnectivityMonitor(ProberFunc(func() bool { return true }), time.Minute, nil)
	f.svc.SetMonitor(monitor)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Synced)
	assert.Equal(t, 0, stats.Rejected)
	assert.Equal(t, 2, stats.Remaining)

	// Only the head was attempted, and the failure flipped the system offline.
	f.attemptRepo.AssertNumberOfCalls(t, "CreateSynced", 1)
	assert.False(t, monitor.Online())

	pending, _ := f.store.ListPending()
	require.Len(t, pending, 2)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Equal(t, 0, pending[1].RetryCount)
}

func TestSyncService_Drain_SkipsWhileOffline(t *testing.T) {
	f := newSyncFixture()
	stagePayload(t, f, map[string]*string{"q1": strPtr("a")})

	monitor := NewConnectivityMonitor(ProberFunc(func() bool { return false }), time.Minute, nil)
	monitor.SetOnline(false)
	f.svc.SetMonitor(monitor)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 0, stats.Synced)
	assert.Equal(t, 1, stats.Remaining)
	f.attemptRepo.AssertNotCalled(t, "CreateSynced", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncService_Drain_BackoffBlocksUntilDrainNow(t *testing.T) {
	f := newSyncFixture()
	f.allowReward()

	stagePayload(t, f, map[string]*string{"q1": strPtr("a")})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("", assert.AnError).Once()
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("remote-1", nil)

	// First pass fails and arms the backoff.
	_, err := f.svc.Drain()
	require.NoError(t, err)

	// A plain drain inside the backoff window does nothing.
	stats, err := f.svc.Drain()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Synced)
	f.attemptRepo.AssertNumberOfCalls(t, "CreateSynced", 1)

	// DrainNow (reconnect or manual trigger) clears it and syncs.
	stats, err = f.svc.DrainNow()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
}

func TestSyncService_Drain_UndecodablePayloadRejected(t *testing.T) {
	f := newSyncFixture()

	item := &entity.SyncQueueItem{
		AttemptLocalID: entity.NewLocalAttemptID(),
		Payload:        []byte("{not json"),
	}
	require.NoError(t, f.store.Enqueue(item))

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rejected)
	failed, _ := f.store.ListFailed()
	assert.Len(t, failed, 1)
}

func TestSyncService_Drain_AwardFailureKeepsItemQueued(t *testing.T) {
	// The remote write landed but the XP ledger insert failed transiently.
	// The item must stay at the head so the retry resumes the reward; the
	// client_ref collision keeps the remote side from duplicating the row.
	f := newSyncFixture()

	localID := stagePayload(t, f, map[string]*string{"q1": strPtr("a")})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("remote-1", nil).Once()
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("remote-1", repository.ErrDuplicateAttempt)
	f.xpRepo.On("Insert", mock.Anything).Return(assert.AnError).Once()
	f.allowReward()

	// First pass: upload succeeds, ledger write fails, nothing is dequeued.
	stats, err := f.svc.Drain()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Synced)
	assert.Equal(t, 1, stats.Remaining)

	pending, _ := f.store.ListPending()
	require.Len(t, pending, 1)
	assert.Equal(t, localID, pending[0].AttemptLocalID)
	assert.Equal(t, 1, pending[0].RetryCount)
	f.userRepo.AssertNotCalled(t, "IncrementXP", mock.Anything, mock.Anything)

	// The retry resumes from the existing remote row and rewards exactly once.
	stats, err = f.svc.DrainNow()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	assert.Equal(t, 0, stats.Remaining)
	f.xpRepo.AssertNumberOfCalls(t, "Insert", 2)
	f.userRepo.AssertNumberOfCalls(t, "IncrementXP", 1)
}

func TestSyncService_Drain_ZeroCorrectAttemptStillEarnsBadges(t *testing.T) {
	// An all-wrong sheet grants no XP, but the attempt still counts: the
	// ledger records a 0-amount event and the badge round runs, so the first
	// completed attempt earns primo_passo.
	f := newSyncFixture()

	stagePayload(t, f, map[string]*string{
		"q1": strPtr("b"),
		"q2": strPtr("c"),
		"q3": strPtr("a"),
	})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced", mock.Anything, mock.Anything, mock.Anything).
		Return("remote-1", nil)

	f.xpRepo.On("Insert", mock.MatchedBy(func(e *entity.XPEvent) bool {
		return e.AttemptID == "remote-1" && e.Amount == 0
	})).Return(nil)
	f.xpRepo.On("TotalForUser", "user-1").Return(0, nil)
	f.xpRepo.On("TotalForUserQuiz", "user-1", "quiz-1").Return(0, nil)
	f.userRepo.On("GetByID", "user-1").Return(testUser(), nil)
	f.attemptRepo.On("MarkXPAwarded", mock.Anything).Return(nil)
	f.attemptRepo.On("GetStats", "user-1", mock.Anything).Return(statsWith(1, 1, 0, false), nil)
	f.lbRepo.On("GetActiveSeason").Return(nil, apperrors.ErrNotFound)
	f.lbRepo.On("UpsertEntry", mock.Anything).Return(nil)
	f.badgeRepo.On("Award", "user-1", entity.BadgePrimoPasso).Return(true, nil)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	f.xpRepo.AssertExpectations(t)
	f.badgeRepo.AssertCalled(t, "Award", "user-1", entity.BadgePrimoPasso)
	f.userRepo.AssertNotCalled(t, "IncrementXP", mock.Anything, mock.Anything)
}

// ============================================================================
// Server-side recompute
// ============================================================================

func TestSyncService_Drain_RecomputesResultFromBank(t *testing.T) {
	// The device may lie about correctness; only the uploaded selections are
	// trusted. Here every selection matches the bank's answer key.
	f := newSyncFixture()
	f.allowReward()

	stagePayload(t, f, map[string]*string{
		"q1": strPtr("A"), // stray casing from an old client
		"q2": strPtr("b"),
		"q3": strPtr("c"),
	})

	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(syncQuestions(), nil)
	f.attemptRepo.On("CreateSynced",
		mock.Anything,
		mock.MatchedBy(func(answers []entity.AttemptAnswer) bool {
			return len(answers) == 3 && answers[0].IsCorrect && answers[1].IsCorrect && answers[2].IsCorrect
		}),
		mock.MatchedBy(func(r *entity.Result) bool {
			return r.Correct == 3 && r.Passed && r.PassThreshold == 2
		}),
	).Return("remote-1", nil)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Synced)
	f.attemptRepo.AssertExpectations(t)
}

func TestSyncService_Drain_UnscoreableQuizRejected(t *testing.T) {
	// Every answer key in the bank is garbage: no scoreable question remains
	// and the upload is rejected rather than scored as zero.
	f := newSyncFixture()

	stagePayload(t, f, map[string]*string{"q1": strPtr("a")})

	broken := []entity.Question{
		{ID: "q1", Text: "Question 1", CorrectOption: "E"},
		{ID: "q2", Text: "Question 2", CorrectOption: ""},
		{ID: "q3", Text: "Question 3", CorrectOption: "???"},
	}
	f.quizRepo.On("GetByID", "quiz-1").Return(syncQuiz(), nil)
	f.qRepo.On("GetByIDs", mock.Anything).Return(broken, nil)

	stats, err := f.svc.Drain()

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Rejected)
	f.attemptRepo.AssertNotCalled(t, "CreateSynced", mock.Anything, mock.Anything, mock.Anything)
}
