package db

import (
	"context"
	"database/sql"

	"github.com/markdave123-py/Lumen/internal/core"
)

// querier is the subset of *sql.DB, *sql.Conn and *sql.Tx the store uses,
// so every method runs unchanged on a pooled, dedicated or transactional handle.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var (
	_ querier    = (*sql.DB)(nil)
	_ querier    = (*sql.Conn)(nil)
	_ querier    = (*sql.Tx)(nil)
	_ txBeginner = (*sql.DB)(nil)
	_ txBeginner = (*sql.Conn)(nil)

	_ core.DbClient      = (*DatabaseClient)(nil)
	_ core.StoreProvider = (*DatabaseClient)(nil)
)
