// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/groblegark/roomstore/internal/model"
	"github.com/groblegark/roomstore/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// mapError translates driver errors into the store error taxonomy.
//
// A unique violation on the stream ordering constraint means two writers
// raced on coordinate assignment, which is retryable; any other unique
// violation is an event identifier collision.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			if pqErr.Constraint == "events_stream_ordering_key" {
				return store.ErrOrderingConflict
			}
			return store.ErrDuplicateEvent
		case "foreign_key_violation":
			return store.ErrReferentialViolation
		case "serialization_failure", "deadlock_detected":
			return store.ErrOrderingConflict
		}
	}
	return err
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) InsertEvent(ctx context.Context, event *model.Event, payload *model.EventPayload) error {
	return queryInsertEvent(ctx, s.db, event, payload)
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID string) (*model.Event, *model.EventPayload, error) {
	return queryGetEvent(ctx, s.db, eventID)
}

func (s *PostgresStore) EventExists(ctx context.Context, eventID string) (bool, error) {
	return queryEventExists(ctx, s.db, eventID)
}

func (s *PostgresStore) ListRoomEvents(ctx context.Context, roomID string, filter model.EventFilter) ([]*model.Event, error) {
	return queryListRoomEvents(ctx, s.db, roomID, filter)
}

func (s *PostgresStore) EventDepths(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	return queryEventDepths(ctx, s.db, eventIDs)
}

func (s *PostgresStore) MaxStreamOrdering(ctx context.Context) (int64, error) {
	return queryMaxStreamOrdering(ctx, s.db)
}

func (s *PostgresStore) UnprocessedEvents(ctx context.Context, limit int) ([]*model.Event, error) {
	return queryUnprocessedEvents(ctx, s.db, limit)
}

func (s *PostgresStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	return queryMarkEventProcessed(ctx, s.db, eventID)
}

func (s *PostgresStore) InsertStateEvent(ctx context.Context, se *model.StateEvent) error {
	return queryInsertStateEvent(ctx, s.db, se)
}

func (s *PostgresStore) SetCurrentState(ctx context.Context, se *model.StateEvent) error {
	return querySetCurrentState(ctx, s.db, se)
}

func (s *PostgresStore) GetStateEvent(ctx context.Context, eventID string) (*model.StateEvent, error) {
	return queryGetStateEvent(ctx, s.db, eventID)
}

func (s *PostgresStore) CurrentStateEvent(ctx context.Context, roomID, eventType, stateKey string) (*model.CurrentStateEvent, error) {
	return queryCurrentStateEvent(ctx, s.db, roomID, eventType, stateKey)
}

func (s *PostgresStore) CurrentStateEvents(ctx context.Context, roomID string) ([]*model.CurrentStateEvent, error) {
	return queryCurrentStateEvents(ctx, s.db, roomID)
}

func (s *PostgresStore) InsertMembership(ctx context.Context, m *model.RoomMembership) error {
	return queryInsertMembership(ctx, s.db, m)
}

func (s *PostgresStore) RoomMembers(ctx context.Context, roomID string) ([]*model.RoomMembership, error) {
	return queryRoomMembers(ctx, s.db, roomID)
}

func (s *PostgresStore) UserRooms(ctx context.Context, userID string) ([]*model.RoomMembership, error) {
	return queryUserRooms(ctx, s.db, userID)
}

func (s *PostgresStore) Membership(ctx context.Context, roomID, userID string) (*model.RoomMembership, error) {
	return queryMembership(ctx, s.db, roomID, userID)
}

func (s *PostgresStore) EnsureRoom(ctx context.Context, room *model.Room) error {
	return queryEnsureRoom(ctx, s.db, room)
}

func (s *PostgresStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	return queryGetRoom(ctx, s.db, roomID)
}

func (s *PostgresStore) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return queryListRooms(ctx, s.db)
}

func (s *PostgresStore) AddRoomHost(ctx context.Context, roomID, host string) error {
	return queryAddRoomHost(ctx, s.db, roomID, host)
}

func (s *PostgresStore) RoomHosts(ctx context.Context, roomID string) ([]string, error) {
	return queryRoomHosts(ctx, s.db, roomID)
}

func (s *PostgresStore) IsRoomHost(ctx context.Context, roomID, host string) (bool, error) {
	return queryIsRoomHost(ctx, s.db, roomID, host)
}

func (s *PostgresStore) RecomputeRoomStats(ctx context.Context, roomID string) error {
	return queryRecomputeRoomStats(ctx, s.db, roomID)
}

func (s *PostgresStore) RoomStats(ctx context.Context, roomID string) (*model.RoomStats, error) {
	return queryRoomStats(ctx, s.db, roomID)
}

func (s *PostgresStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	return queryInsertFeedback(ctx, s.db, f)
}

func (s *PostgresStore) InsertTopic(ctx context.Context, t *model.Topic) error {
	return queryInsertTopic(ctx, s.db, t)
}

func (s *PostgresStore) InsertRoomName(ctx context.Context, n *model.RoomName) error {
	return queryInsertRoomName(ctx, s.db, n)
}

func (s *PostgresStore) RoomFeedback(ctx context.Context, roomID string) ([]*model.Feedback, error) {
	return queryRoomFeedback(ctx, s.db, roomID)
}

func (s *PostgresStore) CurrentTopic(ctx context.Context, roomID string) (*model.Topic, error) {
	return queryCurrentTopic(ctx, s.db, roomID)
}

func (s *PostgresStore) CurrentRoomName(ctx context.Context, roomID string) (*model.RoomName, error) {
	return queryCurrentRoomName(ctx, s.db, roomID)
}

// RunInTransaction begins a database transaction, creates a txStore that
// delegates to it, calls fn, and commits on success or rolls back on error.
func (s *PostgresStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txS := &txStore{tx: tx}
	if err := fn(txS); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapError(fmt.Errorf("commit transaction: %w", err))
	}
	return nil
}

// txStore implements store.Store using a *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

// Compile-time check that txStore implements store.Store.
var _ store.Store = (*txStore)(nil)

func (s *txStore) InsertEvent(ctx context.Context, event *model.Event, payload *model.EventPayload) error {
	return queryInsertEvent(ctx, s.tx, event, payload)
}

func (s *txStore) GetEvent(ctx context.Context, eventID string) (*model.Event, *model.EventPayload, error) {
	return queryGetEvent(ctx, s.tx, eventID)
}

func (s *txStore) EventExists(ctx context.Context, eventID string) (bool, error) {
	return queryEventExists(ctx, s.tx, eventID)
}

func (s *txStore) ListRoomEvents(ctx context.Context, roomID string, filter model.EventFilter) ([]*model.Event, error) {
	return queryListRoomEvents(ctx, s.tx, roomID, filter)
}

func (s *txStore) EventDepths(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	return queryEventDepths(ctx, s.tx, eventIDs)
}

func (s *txStore) MaxStreamOrdering(ctx context.Context) (int64, error) {
	return queryMaxStreamOrdering(ctx, s.tx)
}

func (s *txStore) UnprocessedEvents(ctx context.Context, limit int) ([]*model.Event, error) {
	return queryUnprocessedEvents(ctx, s.tx, limit)
}

func (s *txStore) MarkEventProcessed(ctx context.Context, eventID string) error {
	return queryMarkEventProcessed(ctx, s.tx, eventID)
}

func (s *txStore) InsertStateEvent(ctx context.Context, se *model.StateEvent) error {
	return queryInsertStateEvent(ctx, s.tx, se)
}

func (s *txStore) SetCurrentState(ctx context.Context, se *model.StateEvent) error {
	return querySetCurrentState(ctx, s.tx, se)
}

func (s *txStore) GetStateEvent(ctx context.Context, eventID string) (*model.StateEvent, error) {
	return queryGetStateEvent(ctx, s.tx, eventID)
}

func (s *txStore) CurrentStateEvent(ctx context.Context, roomID, eventType, stateKey string) (*model.CurrentStateEvent, error) {
	return queryCurrentStateEvent(ctx, s.tx, roomID, eventType, stateKey)
}

func (s *txStore) CurrentStateEvents(ctx context.Context, roomID string) ([]*model.CurrentStateEvent, error) {
	return queryCurrentStateEvents(ctx, s.tx, roomID)
}

func (s *txStore) InsertMembership(ctx context.Context, m *model.RoomMembership) error {
	return queryInsertMembership(ctx, s.tx, m)
}

func (s *txStore) RoomMembers(ctx context.Context, roomID string) ([]*model.RoomMembership, error) {
	return queryRoomMembers(ctx, s.tx, roomID)
}

func (s *txStore) UserRooms(ctx context.Context, userID string) ([]*model.RoomMembership, error) {
	return queryUserRooms(ctx, s.tx, userID)
}

func (s *txStore) Membership(ctx context.Context, roomID, userID string) (*model.RoomMembership, error) {
	return queryMembership(ctx, s.tx, roomID, userID)
}

func (s *txStore) EnsureRoom(ctx context.Context, room *model.Room) error {
	return queryEnsureRoom(ctx, s.tx, room)
}

func (s *txStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	return queryGetRoom(ctx, s.tx, roomID)
}

func (s *txStore) ListRooms(ctx context.Context) ([]*model.Room, error) {
	return queryListRooms(ctx, s.tx)
}

func (s *txStore) AddRoomHost(ctx context.Context, roomID, host string) error {
	return queryAddRoomHost(ctx, s.tx, roomID, host)
}

func (s *txStore) RoomHosts(ctx context.Context, roomID string) ([]string, error) {
	return queryRoomHosts(ctx, s.tx, roomID)
}

func (s *txStore) IsRoomHost(ctx context.Context, roomID, host string) (bool, error) {
	return queryIsRoomHost(ctx, s.tx, roomID, host)
}

func (s *txStore) RecomputeRoomStats(ctx context.Context, roomID string) error {
	return queryRecomputeRoomStats(ctx, s.tx, roomID)
}

func (s *txStore) RoomStats(ctx context.Context, roomID string) (*model.RoomStats, error) {
	return queryRoomStats(ctx, s.tx, roomID)
}

func (s *txStore) InsertFeedback(ctx context.Context, f *model.Feedback) error {
	return queryInsertFeedback(ctx, s.tx, f)
}

func (s *txStore) InsertTopic(ctx context.Context, t *model.Topic) error {
	return queryInsertTopic(ctx, s.tx, t)
}

func (s *txStore) InsertRoomName(ctx context.Context, n *model.RoomName) error {
	return queryInsertRoomName(ctx, s.tx, n)
}

func (s *txStore) RoomFeedback(ctx context.Context, roomID string) ([]*model.Feedback, error) {
	return queryRoomFeedback(ctx, s.tx, roomID)
}

func (s *txStore) CurrentTopic(ctx context.Context, roomID string) (*model.Topic, error) {
	return queryCurrentTopic(ctx, s.tx, roomID)
}

func (s *txStore) CurrentRoomName(ctx context.Context, roomID string) (*model.RoomName, error) {
	return queryCurrentRoomName(ctx, s.tx, roomID)
}

// RunInTransaction on a txStore reuses the existing transaction (no nesting).
func (s *txStore) RunInTransaction(ctx context.Context, fn func(tx store.Store) error) error {
	return fn(s)
}

// Close is a no-op for a transaction store; the parent store owns the connection.
func (s *txStore) Close() error {
	return nil
}
