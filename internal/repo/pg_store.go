package repo

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	dom "github.com/birlikkoshan/todos-api/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DefaultCollectionName is the well-known row the collection is stored under.
const DefaultCollectionName = "todos"

//go:embed migrations/*.sql
var migrations embed.FS

// PGStore keeps the collection as one jsonb row. Exclusive access is a
// transaction holding an advisory lock on the collection name.
type PGStore struct {
	db   *pgxpool.Pool
	name string
}

func NewPGStore(db *pgxpool.Pool, name string) *PGStore {
	if name == "" {
		name = DefaultCollectionName
	}
	return &PGStore{db: db, name: name}
}

// NewPostgres opens a pool with the same limits the service always used and pings it.
func NewPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

// RunMigrations applies the embedded goose migrations.
func RunMigrations(dsn string) error {
	db, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("goose open db: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context) (dom.Collection, error) {
	todos, err := s.load(ctx, s.db, false)
	return todos, storageErr("load", err)
}

func (s *PGStore) Save(ctx context.Context, todos dom.Collection) error {
	return storageErr("save", s.save(ctx, s.db, todos))
}

func (s *PGStore) WithExclusiveAccess(ctx context.Context, fn MutateFunc) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	// Rollback after Commit is a no-op; this also releases the advisory lock.
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, s.name); err != nil {
		return storageErr("lock", err)
	}

	current, err := loadOrEmpty(s.load(ctx, tx, true))
	if err != nil {
		return storageErr("load", err)
	}
	next, changed, err := fn(current)
	if err != nil || !changed {
		return err
	}
	if err := s.save(ctx, tx, next); err != nil {
		return storageErr("save", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (s *PGStore) Close() error {
	s.db.Close()
	return nil
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PGStore) load(ctx context.Context, q rowQuerier, forUpdate bool) (dom.Collection, error) {
	query := `SELECT data FROM todo_collections WHERE name = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var data []byte
	if err := q.QueryRow(ctx, query, s.name).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreNotFound
		}
		return nil, fmt.Errorf("select collection: %w", err)
	}
	return decodeCollection(data)
}

func (s *PGStore) save(ctx context.Context, q rowQuerier, todos dom.Collection) error {
	data, err := encodeCollection(todos)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO todo_collections (name, data, updated_at)
		VALUES ($1, $2::jsonb, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
		RETURNING name`
	var name string
	if err := q.QueryRow(ctx, query, s.name, string(data)).Scan(&name); err != nil {
		return fmt.Errorf("upsert collection: %w", err)
	}
	return nil
}
