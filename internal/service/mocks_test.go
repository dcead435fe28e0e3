package service

import (
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// ============================================================================
// Repository mocks shared by the service tests
// ============================================================================

// MockAttemptRepo implements repository.AttemptRepository
type MockAttemptRepo struct {
	mock.Mock
}

func (m *MockAttemptRepo) Create(attempt *entity.Attempt) error {
	args := m.Called(attempt)
	return args.Error(0)
}

func (m *MockAttemptRepo) CreateSynced(attempt *entity.Attempt, answers []entity.AttemptAnswer, result *entity.Result) (string, error) {
	args := m.Called(attempt, answers, result)
	return args.String(0), args.Error(1)
}

func (m *MockAttemptRepo) GetByID(id string) (*entity.Attempt, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) GetByClientRef(clientRef string) (*entity.Attempt, error) {
	args := m.Called(clientRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) GetRunningByUser(userID string) ([]entity.Attempt, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Attempt), args.Error(1)
}

func (m *MockAttemptRepo) SaveAnswer(answer *entity.AttemptAnswer) error {
	args := m.Called(answer)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetAnswers(attemptID string) ([]entity.AttemptAnswer, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.AttemptAnswer), args.Error(1)
}

func (m *MockAttemptRepo) Finalize(attempt *entity.Attempt, answers []entity.AttemptAnswer, result *entity.Result) error {
	args := m.Called(attempt, answers, result)
	return args.Error(0)
}

func (m *MockAttemptRepo) Abandon(attemptID string, finishedAt time.Time) error {
	args := m.Called(attemptID, finishedAt)
	return args.Error(0)
}

func (m *MockAttemptRepo) MarkXPAwarded(attemptID string) error {
	args := m.Called(attemptID)
	return args.Error(0)
}

func (m *MockAttemptRepo) GetStats(userID string, until time.Time) (*repository.AttemptStats, error) {
	args := m.Called(userID, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.AttemptStats), args.Error(1)
}

func (m *MockAttemptRepo) ListByUser(userID string, limit, offset int) ([]entity.Attempt, int64, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Attempt), args.Get(1).(int64), args.Error(2)
}

// MockQuizRepo implements repository.QuizRepository
type MockQuizRepo struct {
	mock.Mock
}

func (m *MockQuizRepo) Create(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) GetByID(id string) (*entity.Quiz, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) GetBySlug(slug string) (*entity.Quiz, error) {
	args := m.Called(slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) Update(quiz *entity.Quiz) error {
	args := m.Called(quiz)
	return args.Error(0)
}

func (m *MockQuizRepo) List(limit, offset int) ([]entity.Quiz, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Quiz), args.Error(1)
}

func (m *MockQuizRepo) ListWithFilters(filters repository.QuizFilters, limit, offset int) ([]entity.Quiz, int64, error) {
	args := m.Called(filters, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Quiz), args.Get(1).(int64), args.Error(2)
}

func (m *MockQuizRepo) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockQuestionRepo implements repository.QuestionRepository
type MockQuestionRepo struct {
	mock.Mock
}

func (m *MockQuestionRepo) Create(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepo) CreateBatch(questions []entity.Question) error {
	args := m.Called(questions)
	return args.Error(0)
}

func (m *MockQuestionRepo) GetByID(id string) (*entity.Question, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetByIDs(ids []string) ([]entity.Question, error) {
	args := m.Called(ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetBySubject(subjectID string, limit, offset int) ([]entity.Question, error) {
	args := m.Called(subjectID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) GetRandom(limit int) ([]entity.Question, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Question), args.Error(1)
}

func (m *MockQuestionRepo) Update(question *entity.Question) error {
	args := m.Called(question)
	return args.Error(0)
}

func (m *MockQuestionRepo) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

// MockXPRepo implements repository.XPRepository
type MockXPRepo struct {
	mock.Mock
}

func (m *MockXPRepo) Insert(event *entity.XPEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockXPRepo) ExistsForAttempt(attemptID string) (bool, error) {
	args := m.Called(attemptID)
	return args.Bool(0), args.Error(1)
}

func (m *MockXPRepo) TotalForUser(userID string) (int, error) {
	args := m.Called(userID)
	return args.Int(0), args.Error(1)
}

func (m *MockXPRepo) TotalForUserQuiz(userID, quizID string) (int, error) {
	args := m.Called(userID, quizID)
	return args.Int(0), args.Error(1)
}

func (m *MockXPRepo) TotalForUserSince(userID string, since time.Time) (int, error) {
	args := m.Called(userID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockXPRepo) TotalsSince(since time.Time) (map[string]int, error) {
	args := m.Called(since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockXPRepo) ListForUser(userID string, limit, offset int) ([]entity.XPEvent, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.XPEvent), args.Error(1)
}

// MockUserRepo implements repository.UserRepository
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) Create(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) GetByID(id string) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) GetByUsername(username string) (*entity.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepo) Update(user *entity.User) error {
	args := m.Called(user)
	return args.Error(0)
}

func (m *MockUserRepo) IncrementXP(userID string, delta int) error {
	args := m.Called(userID, delta)
	return args.Error(0)
}

func (m *MockUserRepo) List(limit, offset int) ([]entity.User, error) {
	args := m.Called(limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.User), args.Error(1)
}

// MockLeaderboardRepo implements repository.LeaderboardRepository
type MockLeaderboardRepo struct {
	mock.Mock
}

func (m *MockLeaderboardRepo) UpsertEntry(entry *entity.LeaderboardEntry) error {
	args := m.Called(entry)
	return args.Error(0)
}

func (m *MockLeaderboardRepo) GetEntries(scope string, limit, offset int) ([]entity.LeaderboardEntry, int64, error) {
	args := m.Called(scope, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.LeaderboardEntry), args.Get(1).(int64), args.Error(2)
}

func (m *MockLeaderboardRepo) GetUserRank(scope, userID string) (int, error) {
	args := m.Called(scope, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockLeaderboardRepo) GetActiveSeason() (*entity.Season, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Season), args.Error(1)
}

func (m *MockLeaderboardRepo) CreateSeason(season *entity.Season) error {
	args := m.Called(season)
	return args.Error(0)
}

// MockBadgeRepo implements repository.BadgeRepository
type MockBadgeRepo struct {
	mock.Mock
}

func (m *MockBadgeRepo) Award(userID, badgeID string) (bool, error) {
	args := m.Called(userID, badgeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockBadgeRepo) GetUserBadges(userID string) ([]entity.UserBadge, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserBadge), args.Error(1)
}

// MockCacheRepo implements repository.CacheRepository
type MockCacheRepo struct {
	mock.Mock
}

func (m *MockCacheRepo) Set(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) Get(key string) (string, error) {
	args := m.Called(key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepo) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockCacheRepo) Increment(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepo) SetJSON(key string, value interface{}, expiration time.Duration) error {
	args := m.Called(key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepo) GetJSON(key string, dest interface{}) error {
	args := m.Called(key, dest)
	return args.Error(0)
}

func (m *MockCacheRepo) Exists(key string) (bool, error) {
	args := m.Called(key)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) SetNX(key string, value interface{}, expiration time.Duration) (bool, error) {
	args := m.Called(key, value, expiration)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepo) ZAdd(key, member string, score float64) error {
	args := m.Called(key, member, score)
	return args.Error(0)
}

func (m *MockCacheRepo) ZIncrBy(key, member string, delta float64) (float64, error) {
	args := m.Called(key, member, delta)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockCacheRepo) ZRevRangeWithScores(key string, start, stop int64) ([]repository.RankedMember, error) {
	args := m.Called(key, start, stop)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]repository.RankedMember), args.Error(1)
}

func (m *MockCacheRepo) ZRevRank(key, member string) (int64, error) {
	args := m.Called(key, member)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepo) ZCard(key string) (int64, error) {
	args := m.Called(key)
	return args.Get(0).(int64), args.Error(1)
}

// MockResultRepo implements repository.ResultRepository
type MockResultRepo struct {
	mock.Mock
}

func (m *MockResultRepo) Save(result *entity.Result) error {
	args := m.Called(result)
	return args.Error(0)
}

func (m *MockResultRepo) GetByAttemptID(attemptID string) (*entity.Result, error) {
	args := m.Called(attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Result), args.Error(1)
}

func (m *MockResultRepo) GetUserResults(userID string, limit, offset int) ([]entity.Result, int64, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Result), args.Get(1).(int64), args.Error(2)
}

func (m *MockResultRepo) GetQuizResults(quizID string, limit, offset int) ([]entity.Result, int64, error) {
	args := m.Called(quizID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]entity.Result), args.Get(1).(int64), args.Error(2)
}

// ============================================================================
// In-memory LocalStore for queue-semantics tests
// ============================================================================

// memLocalStore is a stateful in-memory repository.LocalStore. The sync and
// attempt tests care about queue ordering and durability semantics, which a
// call-recording mock cannot express.
type memLocalStore struct {
	mu        sync.Mutex
	nextSeq   int64
	snapshots map[string]*repository.AttemptSnapshot
	queue     map[int64]*entity.SyncQueueItem
	mappings  map[string]string
}

func newMemLocalStore() *memLocalStore {
	return &memLocalStore{
		nextSeq:   1,
		snapshots: make(map[string]*repository.AttemptSnapshot),
		queue:     make(map[int64]*entity.SyncQueueItem),
		mappings:  make(map[string]string),
	}
}

func (s *memLocalStore) SaveSnapshot(snap *repository.AttemptSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *snap
	copied.UpdatedAt = time.Now().Unix()
	s.snapshots[snap.AttemptID.String()] = &copied
	return nil
}

func (s *memLocalStore) GetSnapshot(attemptID entity.AttemptID) (*repository.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.snapshots[attemptID.String()]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *snap
	return &copied, nil
}

func (s *memLocalStore) ListSnapshots(userID string) ([]repository.AttemptSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.AttemptSnapshot
	for _, snap := range s.snapshots {
		if snap.UserID == userID {
			out = append(out, *snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out, nil
}

func (s *memLocalStore) DeleteSnapshot(attemptID entity.AttemptID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, attemptID.String())
	return nil
}

func (s *memLocalStore) Enqueue(item *entity.SyncQueueItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.Seq = s.nextSeq
	s.nextSeq++
	item.Status = entity.SyncItemPending
	item.EnqueuedAt = time.Now()
	copied := *item
	s.queue[item.Seq] = &copied
	return nil
}

func (s *memLocalStore) PeekNext() (*entity.SyncQueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var head *entity.SyncQueueItem
	for _, item := range s.queue {
		if item.Status != entity.SyncItemPending {
			continue
		}
		if head == nil || item.Seq < head.Seq {
			head = item
		}
	}
	if head == nil {
		return nil, repository.ErrQueueEmpty
	}
	copied := *head
	return &copied, nil
}

func (s *memLocalStore) Dequeue(seq int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queue[seq]; !ok {
		return apperrors.ErrNotFound
	}
	delete(s.queue, seq)
	return nil
}

func (s *memLocalStore) MarkRetry(seq int64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.queue[seq]
	if !ok {
		return apperrors.ErrNotFound
	}
	item.RetryCount++
	item.LastError = lastError
	return nil
}

func (s *memLocalStore) MarkFailed(seq int64, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.queue[seq]
	if !ok {
		return apperrors.ErrNotFound
	}
	item.Status = entity.SyncItemFailed
	item.LastError = lastError
	return nil
}

func (s *memLocalStore) ListPending() ([]entity.SyncQueueItem, error) {
	return s.listByStatus(entity.SyncItemPending), nil
}

func (s *memLocalStore) ListFailed() ([]entity.SyncQueueItem, error) {
	return s.listByStatus(entity.SyncItemFailed), nil
}

func (s *memLocalStore) listByStatus(status string) []entity.SyncQueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.SyncQueueItem
	for _, item := range s.queue {
		if item.Status == status {
			out = append(out, *item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

func (s *memLocalStore) MapRemoteID(local entity.AttemptID, remoteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[local.String()] = remoteID
	return nil
}

func (s *memLocalStore) ResolveRemoteID(local entity.AttemptID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	remoteID, ok := s.mappings[local.String()]
	if !ok {
		return "", apperrors.ErrNotFound
	}
	return remoteID, nil
}

func (s *memLocalStore) Close() error { return nil }
