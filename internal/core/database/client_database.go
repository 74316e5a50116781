package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/markdave123-py/Lumen/internal/config"
	"github.com/markdave123-py/Lumen/internal/core"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// DatabaseClient implements core.DbClient over database/sql. The root client
// owns the pool; handles returned by Acquire share it and own one connection.
type DatabaseClient struct {
	db   *sql.DB
	conn *sql.Conn
	q    querier
	tx   txBeginner
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	switch cfg.DatabaseDriver {
	case DriverPostgres:
		if cfg.SslCertPath != "" {
			var err error
			if dsn, err = withPostgresSSL(dsn, cfg.SslCertPath); err != nil {
				return nil, err
			}
		}
	case DriverSQLite:
		dsn = withSQLitePragmas(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	return Open(ctx, cfg.DatabaseDriver, dsn)
}

// Open connects, pings and bootstraps the schema.
func Open(ctx context.Context, driver, dsn string) (*DatabaseClient, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return newClient(db), nil
}

func newClient(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db, q: db, tx: db}
}

// Acquire returns a handle bound to a dedicated pooled connection. Background
// jobs take one per unit of work instead of sharing the request's handle.
func (c *DatabaseClient) Acquire(ctx context.Context) (core.DbClient, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailure, "acquire connection", err)
	}
	return &DatabaseClient{db: c.db, conn: conn, q: conn, tx: conn}, nil
}

func (c *DatabaseClient) Ping(ctx context.Context) error {
	if c.conn != nil {
		return c.conn.PingContext(ctx)
	}
	return c.db.PingContext(ctx)
}

// Close releases a dedicated connection back to the pool, or closes the pool
// when called on the root client.
func (c *DatabaseClient) Close() error {
	if c.conn != nil {
		err := c.conn.Close()
		if errors.Is(err, sql.ErrConnDone) {
			return nil
		}
		return err
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// withTx runs fn inside a transaction on the client's handle.
func (c *DatabaseClient) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := c.tx.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func withPostgresSSL(dsn, certPath string) (string, error) {
	if _, err := os.Stat(certPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", certPath, err)
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", certPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// withSQLitePragmas enables WAL and a busy timeout so background writers and
// request handlers can share one database file.
func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func now() time.Time {
	return time.Now().UTC()
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func rowsAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
