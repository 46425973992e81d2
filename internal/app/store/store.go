/*
Package store implements the document-store collaborator over PostgreSQL.

It persists users, conversations, and messages, and provides the live
subscription surface the chat core depends on: every mutation emits a
LISTEN/NOTIFY event, and the listener re-queries and re-delivers full snapshots
to subscribers (the store is snapshot-based, not a diff stream). Unread
counters, typing flags, reactions, and read sets are jsonb fields updated with
merge-style partial writes so concurrent writers to disjoint fields do not
clobber each other.
*/
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"seotracker/internal/app/chat"
	"seotracker/internal/app/user"
	"seotracker/internal/pkg/logx"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	// chatChannel carries conversation ids whose documents changed.
	chatChannel = "seotracker_chat"

	// presenceChannel carries user ids whose presence changed.
	presenceChannel = "seotracker_presence"
)

// Store is the PostgreSQL-backed document store. It implements
// chat.MessageStore, chat.ConversationStore, presence.Store, and
// presence.SweepStore.
type Store struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger

	mu        sync.Mutex
	nextSubID int
	msgSubs   map[string]map[int]*messageSub
	convSubs  map[string]map[int]func([]chat.Conversation)
	presSubs  map[int]func(user.User)
}

type messageSub struct {
	limit int
	fn    func(chat.Snapshot)
}

// New initializes the connection pool, runs pending migrations, and returns
// the Store. Listen must be started separately for live delivery.
func New(ctx context.Context, dsn string) (*Store, error) {
	poolCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database DSN: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(poolCtx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(poolCtx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	if err := runMigrations(sqlDB); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{
		pool:     pool,
		logger:   logx.Logger().With().Str("component", "Store").Logger(),
		msgSubs:  make(map[string]map[int]*messageSub),
		convSubs: make(map[string]map[int]func([]chat.Conversation)),
		presSubs: make(map[int]func(user.User)),
	}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// runMigrations applies all pending migrations from the embedded file system.
func runMigrations(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}
