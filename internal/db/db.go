package db

import (
	"bugfind/internal/broadcast"
	"bugfind/internal/events"
	"bugfind/internal/logger"
	"bugfind/internal/model"
	"bugfind/internal/store"
	"context"
	"embed"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is the Postgres-backed store.Store. Reads outside Atomically run on the
// pool directly.
type DB struct {
	ops
	conn *sqlx.DB
	dsn  string
	log  zerolog.Logger

	bus         *events.Bus
	Broadcaster *broadcast.Broadcaster
	listener    *pq.Listener
	done        chan struct{}
	wg          sync.WaitGroup
}

func Connect(ctx context.Context, dsn string) (*DB, error) {
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("pinging database: %w: %w", model.ErrStoreUnavailable, err)
	}
	bus := events.NewBus()
	d := &DB{
		ops:         ops{q: conn},
		conn:        conn,
		dsn:         dsn,
		log:         logger.New("db"),
		bus:         bus,
		Broadcaster: broadcast.NewBroadcaster(bus),
		done:        make(chan struct{}),
	}
	d.log.Info().Msg("connected to PostgreSQL")
	return d, nil
}

// Open connects, migrates, seeds the word list when empty and starts the
// change listener.
func Open(ctx context.Context, dsn string) (*DB, error) {
	d, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.EnsureWords(ctx, store.SeedWords()); err != nil {
		d.Close()
		return nil, err
	}
	if err := d.Listen(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	select {
	case <-d.done:
		return nil
	default:
	}
	close(d.done)
	if d.listener != nil {
		d.listener.Close()
	}
	d.wg.Wait()
	d.bus.Close()
	return d.conn.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

func (d *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, d.conn.DB, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	d.log.Info().Msg("migrations applied")
	return nil
}

// EnsureWords loads words when the word table is empty.
func (d *DB) EnsureWords(ctx context.Context, words []model.WordEntry) error {
	var n int
	if err := d.conn.GetContext(ctx, &n, `SELECT count(*) FROM words`); err != nil {
		return wrap("counting words", err)
	}
	if n > 0 {
		return nil
	}
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("beginning word seed", err)
	}
	defer tx.Rollback()
	for _, w := range words {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO words (word, difficulty, description) VALUES ($1, $2, $3)
		`, w.Word, string(w.Difficulty), nullString(w.Description)); err != nil {
			return wrap("seeding words", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrap("committing word seed", err)
	}
	d.log.Info().Int("count", len(words)).Msg("seeded word list")
	return nil
}

func (d *DB) Atomically(ctx context.Context, fn func(store.Ops) error) error {
	tx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return wrap("beginning transaction", err)
	}
	if err := fn(ops{q: tx, lock: true}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrap("committing transaction", err)
	}
	return nil
}

func (d *DB) Subscribe(ctx context.Context, f events.Filter) (store.Subscription, error) {
	if err := store.ValidateFilter(f); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.Broadcaster.Subscribe(f), nil
}
