package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/yourusername/idoneo-api/internal/domain/entity"
	"github.com/yourusername/idoneo-api/internal/domain/repository"
	apperrors "github.com/yourusername/idoneo-api/internal/pkg/errors"
)

// LocalStore implements repository.LocalStore on an embedded SQLite file.
// One writer connection is enough for a per-device store and sidesteps
// SQLITE_BUSY races between the attempt flow and the sync drain.
type LocalStore struct {
	db *sql.DB
}

// NewLocalStore opens (and if needed creates) the device database at path.
func NewLocalStore(path string) (*LocalStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "idoneo.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	store := &LocalStore{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the database handle
func (s *LocalStore) Close() error {
	return s.db.Close()
}

func (s *LocalStore) initSchema() error {
	// Idempotent schema init at open. No FK constraints: the three tables
	// are only ever touched through application transactions.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS attempt_snapshots (
			attempt_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			quiz_id TEXT NOT NULL,
			state TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			updated_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			attempt_local_id TEXT NOT NULL UNIQUE,
			payload_json TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			next_retry_at_unix INTEGER,
			enqueued_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS id_mappings (
			local_id TEXT PRIMARY KEY,
			remote_id TEXT NOT NULL,
			mapped_at_unix INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_user ON attempt_snapshots(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_queue_status_seq ON sync_queue(status, seq);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot upserts the attempt snapshot
func (s *LocalStore) SaveSnapshot(snap *repository.AttemptSnapshot) error {
	if !json.Valid(snap.Payload) {
		return fmt.Errorf("%w: snapshot payload for %s is not valid JSON", apperrors.ErrValidation, snap.AttemptID)
	}

	snap.UpdatedAt = time.Now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO attempt_snapshots (attempt_id, user_id, quiz_id, state, payload_json, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(attempt_id) DO UPDATE SET
			state = excluded.state,
			payload_json = excluded.payload_json,
			updated_at_unix = excluded.updated_at_unix`,
		snap.AttemptID.String(),
		snap.UserID,
		snap.QuizID,
		snap.State,
		string(snap.Payload),
		snap.UpdatedAt,
	)
	return err
}

// GetSnapshot loads one attempt snapshot
func (s *LocalStore) GetSnapshot(attemptID entity.AttemptID) (*repository.AttemptSnapshot, error) {
	row := s.db.QueryRow(
		`SELECT attempt_id, user_id, quiz_id, state, payload_json, updated_at_unix
		 FROM attempt_snapshots WHERE attempt_id = ?`,
		attemptID.String(),
	)
	return scanSnapshot(row)
}

// ListSnapshots returns the user's snapshots, most recent first
func (s *LocalStore) ListSnapshots(userID string) ([]repository.AttemptSnapshot, error) {
	rows, err := s.db.Query(
		`SELECT attempt_id, user_id, quiz_id, state, payload_json, updated_at_unix
		 FROM attempt_snapshots WHERE user_id = ?
		 ORDER BY updated_at_unix DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []repository.AttemptSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, *snap)
	}
	return snaps, rows.Err()
}

// DeleteSnapshot removes an attempt snapshot
func (s *LocalStore) DeleteSnapshot(attemptID entity.AttemptID) error {
	_, err := s.db.Exec(`DELETE FROM attempt_snapshots WHERE attempt_id = ?`, attemptID.String())
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSnapshot(row rowScanner) (*repository.AttemptSnapshot, error) {
	var (
		snap        repository.AttemptSnapshot
		rawID       string
		payloadJSON string
	)
	err := row.Scan(&rawID, &snap.UserID, &snap.QuizID, &snap.State, &payloadJSON, &snap.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	snap.AttemptID = entity.ParseAttemptID(rawID)
	snap.Payload = json.RawMessage(payloadJSON)
	return &snap, nil
}

// Enqueue appends a completed attempt to the sync queue. Seq is assigned by
// the store and written back into the item.
func (s *LocalStore) Enqueue(item *entity.SyncQueueItem) error {
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now()
	}
	item.Status = entity.SyncItemPending

	res, err := s.db.Exec(
		`INSERT INTO sync_queue (attempt_local_id, payload_json, status, enqueued_at_unix)
		 VALUES (?, ?, ?, ?)`,
		item.AttemptLocalID.String(),
		string(item.Payload),
		item.Status,
		item.EnqueuedAt.Unix(),
	)
	if err != nil {
		return err
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return err
	}
	item.Seq = seq
	return nil
}

// PeekNext returns the pending item with the lowest seq without removing it
func (s *LocalStore) PeekNext() (*entity.SyncQueueItem, error) {
	row := s.db.QueryRow(
		`SELECT seq, attempt_local_id, payload_json, status, retry_count, last_error, next_retry_at_unix, enqueued_at_unix
		 FROM sync_queue WHERE status = ?
		 ORDER BY seq ASC LIMIT 1`,
		entity.SyncItemPending,
	)
	item, err := scanQueueItem(row)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, repository.ErrQueueEmpty
	}
	return item, err
}

// Dequeue removes a successfully uploaded item
func (s *LocalStore) Dequeue(seq int64) error {
	res, err := s.db.Exec(`DELETE FROM sync_queue WHERE seq = ?`, seq)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// MarkRetry records a transient failure; the item keeps its queue position
func (s *LocalStore) MarkRetry(seq int64, lastError string) error {
	_, err := s.db.Exec(
		`UPDATE sync_queue
		 SET retry_count = retry_count + 1, last_error = ?
		 WHERE seq = ?`,
		lastError, seq,
	)
	return err
}

// MarkFailed moves a rejected item out of the drain path
func (s *LocalStore) MarkFailed(seq int64, lastError string) error {
	_, err := s.db.Exec(
		`UPDATE sync_queue
		 SET status = ?, retry_count = retry_count + 1, last_error = ?
		 WHERE seq = ?`,
		entity.SyncItemFailed, lastError, seq,
	)
	return err
}

// ListPending returns pending items in drain order
func (s *LocalStore) ListPending() ([]entity.SyncQueueItem, error) {
	return s.listByStatus(entity.SyncItemPending)
}

// ListFailed returns rejected items awaiting inspection
func (s *LocalStore) ListFailed() ([]entity.SyncQueueItem, error) {
	return s.listByStatus(entity.SyncItemFailed)
}

func (s *LocalStore) listByStatus(status string) ([]entity.SyncQueueItem, error) {
	rows, err := s.db.Query(
		`SELECT seq, attempt_local_id, payload_json, status, retry_count, last_error, next_retry_at_unix, enqueued_at_unix
		 FROM sync_queue WHERE status = ?
		 ORDER BY seq ASC`,
		status,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []entity.SyncQueueItem
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func scanQueueItem(row rowScanner) (*entity.SyncQueueItem, error) {
	var (
		item        entity.SyncQueueItem
		rawID       string
		payloadJSON string
		nextRetry   sql.NullInt64
		enqueuedAt  int64
	)
	err := row.Scan(&item.Seq, &rawID, &payloadJSON, &item.Status, &item.RetryCount, &item.LastError, &nextRetry, &enqueuedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	item.AttemptLocalID = entity.ParseAttemptID(rawID)
	item.Payload = json.RawMessage(payloadJSON)
	item.EnqueuedAt = time.Unix(enqueuedAt, 0)
	if nextRetry.Valid {
		t := time.Unix(nextRetry.Int64, 0)
		item.NextRetryAt = &t
	}
	return &item, nil
}

// MapRemoteID records the server-assigned id for a promoted local attempt
func (s *LocalStore) MapRemoteID(local entity.AttemptID, remoteID string) error {
	_, err := s.db.Exec(
		`INSERT INTO id_mappings (local_id, remote_id, mapped_at_unix)
		 VALUES (?, ?, ?)
		 ON CONFLICT(local_id) DO UPDATE SET remote_id = excluded.remote_id`,
		local.String(), remoteID, time.Now().Unix(),
	)
	return err
}

// ResolveRemoteID returns the remote id mapped to a local attempt
func (s *LocalStore) ResolveRemoteID(local entity.AttemptID) (string, error) {
	var remoteID string
	err := s.db.QueryRow(
		`SELECT remote_id FROM id_mappings WHERE local_id = ?`,
		local.String(),
	).Scan(&remoteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperrors.ErrNotFound
		}
		return "", err
	}
	return remoteID, nil
}
