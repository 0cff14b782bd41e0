package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/udisondev/rtp/internal/history/migrations"
)

// goose keeps its dialect and filesystem in package globals.
var gooseMu sync.Mutex

// migrate applies the embedded migrations to db.
func migrate(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func parseRecord(player, world string) (Record, error) {
	id, err := uuid.Parse(player)
	if err != nil {
		return Record{}, fmt.Errorf("parsing player id %q: %w", player, err)
	}
	return Record{PlayerID: id, World: world}, nil
}

// SQLite stores history in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

var _ Backend = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and migrates it.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	for _, p := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("applying %s: %w", p, err)
		}
	}

	if err := migrate(ctx, db, "sqlite3"); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT player_id, world_name FROM teleport_history`)
	if err != nil {
		return nil, fmt.Errorf("querying teleport history: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var player, world string
		if err := rows.Scan(&player, &world); err != nil {
			return nil, fmt.Errorf("scanning teleport history: %w", err)
		}
		rec, err := parseRecord(player, world)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (s *SQLite) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO teleport_history (player_id, world_name) VALUES (?, ?)
		 ON CONFLICT (player_id, world_name) DO NOTHING`,
		rec.PlayerID.String(), rec.World)
	if err != nil {
		return fmt.Errorf("inserting teleport record: %w", err)
	}
	return nil
}

// Flush is a no-op; every insert is committed.
func (s *SQLite) Flush(context.Context) error { return nil }

func (s *SQLite) Close() error { return s.db.Close() }

// Postgres stores history in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Backend = (*Postgres)(nil)

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// goose needs *sql.DB
	connStr := stdlib.RegisterConnConfig(pool.Config().ConnConfig)
	defer stdlib.UnregisterConnConfig(connStr)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	if err := migrate(ctx, sqlDB, "postgres"); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Load(ctx context.Context) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `SELECT player_id, world_name FROM teleport_history`)
	if err != nil {
		return nil, fmt.Errorf("querying teleport history: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var player, world string
		if err := rows.Scan(&player, &world); err != nil {
			return nil, fmt.Errorf("scanning teleport history: %w", err)
		}
		rec, err := parseRecord(player, world)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (p *Postgres) Insert(ctx context.Context, rec Record) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO teleport_history (player_id, world_name) VALUES ($1, $2)
		 ON CONFLICT (player_id, world_name) DO NOTHING`,
		rec.PlayerID.String(), rec.World)
	if err != nil {
		return fmt.Errorf("inserting teleport record: %w", err)
	}
	return nil
}

func (p *Postgres) Flush(context.Context) error { return nil }

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
