package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/invoice-vouchers/internal/logger"
)

type Config struct {
	Driver          string // "postgres" or "sqlite" ("sqlite3" also accepted)
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// DB is the store handle: an ent SQL driver over Postgres (pgx pool) or
// SQLite. Queries are built with ent's dialect-aware builder.
type DB struct {
	drv  *entsql.Driver
	pool *pgxpool.Pool
	log  *zap.SugaredLogger
}

// Open connects according to cfg.Driver.
func Open(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*DB, error) {
	log = logger.OrNop(log)
	switch cfg.Driver {
	case "", dialect.Postgres:
		return openPostgres(ctx, cfg, log)
	case "sqlite", dialect.SQLite:
		return openSQLite(ctx, cfg, log)
	default:
		return nil, errors.Newf("unsupported database driver %q", cfg.Driver)
	}
}

func openPostgres(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*DB, error) {
	log.Infow("db.connect", "driver", dialect.Postgres)
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "parse postgres dsn")
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = cfg.MaxConns
	}
	pc.MinConns = cfg.MinConns
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.ConnConfig.RuntimeParams["application_name"] = "invoice-vouchers"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		log.Errorw("db.connect.failed", "error", err)
		return nil, errors.Wrap(err, "connect postgres")
	}

	db := stdlib.OpenDBFromPool(pool)
	log.Infow("db.connect.ok", "driver", dialect.Postgres)
	return &DB{drv: entsql.OpenDB(dialect.Postgres, db), pool: pool, log: log}, nil
}

func openSQLite(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*DB, error) {
	dsn := cfg.DSN
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		dsn = appendQuery(dsn, "_pragma=foreign_keys(1)")
	}
	if !strings.Contains(dsn, "_pragma=busy_timeout") {
		dsn = appendQuery(dsn, "_pragma=busy_timeout(5000)")
	}
	log.Infow("db.connect", "driver", dialect.SQLite)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// a single writer avoids SQLITE_BUSY between concurrent runs
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}
	log.Infow("db.connect.ok", "driver", dialect.SQLite)
	return &DB{drv: entsql.OpenDB(dialect.SQLite, db), log: log}, nil
}

func appendQuery(dsn, kv string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + kv
	}
	return dsn + "?" + kv
}

// Close closes the database connections gracefully
func (db *DB) Close() error {
	db.log.Infow("db.close")
	err := db.drv.Close()
	if db.pool != nil {
		db.pool.Close()
	}
	return err
}

// HealthCheck pings the store.
func (db *DB) HealthCheck(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := db.drv.DB().PingContext(ctx); err != nil {
		db.log.Errorw("db.ping.failed", "error", err)
		return errors.Wrap(err, "ping database")
	}
	return nil
}

// Dialect returns the ent dialect name.
func (db *DB) Dialect() string { return db.drv.Dialect() }

// SQL exposes the underlying pool.
func (db *DB) SQL() *sql.DB { return db.drv.DB() }

func (db *DB) builder() *entsql.DialectBuilder {
	return entsql.Dialect(db.drv.Dialect())
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// inTx runs fn in a transaction, rolling back when it fails.
func (db *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.SQL().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			db.log.Warnw("db.rollback.failed", "error", rerr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

// insert runs an insert and returns the generated id. Postgres uses
// RETURNING; SQLite reports it through LastInsertId.
func (db *DB) insert(ctx context.Context, q querier, b *entsql.InsertBuilder) (int64, error) {
	var id int64
	if db.Dialect() == dialect.Postgres {
		query, args := b.Returning("id").Query()
		if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}
	query, args := b.Query()
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ts binds a timestamp. SQLite stores RFC 3339 text.
func (db *DB) ts(t time.Time) any {
	t = t.UTC()
	if db.Dialect() == dialect.SQLite {
		return t.Format(time.RFC3339Nano)
	}
	return t
}
