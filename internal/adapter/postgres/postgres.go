package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
)

//go:embed schemas/*.sql
var schemas embed.FS

const (
	schemaVersionTable = "public.schema_version"

	// schemaLockKey serialises migrations across server replicas.
	schemaLockKey     int64 = 0x7470_6d69_6772 // "tpmigr"
	schemaUnlockGrace       = 5 * time.Second
)

// Connect opens a pool and pings it. tracer may be nil.
func Connect(ctx context.Context, databaseURL string, tracer pgx.QueryTracer) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if tracer != nil {
		cfg.ConnConfig.Tracer = tracer
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Database connected",
		"host", cfg.ConnConfig.Host,
		"database", cfg.ConnConfig.Database,
		"tls", usesTLS(cfg.ConnConfig),
		"max_conns", cfg.MaxConns)
	return pool, nil
}

// usesTLS is false for sslmode=disable and for sslmode=allow, which tries
// plaintext first.
func usesTLS(cfg *pgx.ConnConfig) bool {
	return cfg.TLSConfig != nil
}

// RunMigrationsWithLock brings the schema up to date. Concurrent callers
// wait on a session-level advisory lock, so only one of them migrates.
func RunMigrationsWithLock(ctx context.Context, pool *pgxpool.Pool) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection for migrations: %w", err)
	}
	defer conn.Release()

	return withAdvisoryLock(ctx, conn.Conn(), schemaLockKey, func() error {
		return migrateSchema(ctx, conn.Conn())
	})
}

func migrateSchema(ctx context.Context, conn *pgx.Conn) error {
	files, err := fs.Sub(schemas, "schemas")
	if err != nil {
		return fmt.Errorf("failed to open schema files: %w", err)
	}

	m, err := migrate.NewMigrator(ctx, conn, schemaVersionTable)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := m.LoadMigrations(files); err != nil {
		return fmt.Errorf("failed to load schema files: %w", err)
	}
	m.OnStart = func(seq int32, name, direction, _ string) {
		slog.Info("Applying schema change", "sequence", seq, "name", name, "direction", direction)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate schema from version %d: %w", from, err)
	}
	slog.Info("Schema up to date", "from", from, "to", len(m.Migrations))
	return nil
}

// withAdvisoryLock holds the lock for the duration of fn. The unlock runs on
// a fresh context so a cancelled ctx does not leave the lock with the pooled
// connection.
func withAdvisoryLock(ctx context.Context, conn *pgx.Conn, key int64, fn func() error) error {
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		return fmt.Errorf("failed to take advisory lock: %w", err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), schemaUnlockGrace)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			slog.Error("Failed to release advisory lock", "key", key, "error", err)
		}
	}()
	return fn()
}
