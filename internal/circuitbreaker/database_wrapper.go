package circuitbreaker

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// DatabaseWrapper wraps a sqlx database handle with a circuit breaker for
// the record store (tickets, announcements, exams).
type DatabaseWrapper struct {
	db     *sqlx.DB
	cb     *Breaker
	logger *zap.Logger
}

// NewDatabaseWrapper creates a database wrapper with circuit breaker.
func NewDatabaseWrapper(db *sqlx.DB, config Config, logger *zap.Logger) *DatabaseWrapper {
	cb := New("postgres", instrument("postgres", "record-store", config), logger)
	return &DatabaseWrapper{db: db, cb: cb, logger: logger}
}

// PingContext verifies connectivity through the breaker.
func (dw *DatabaseWrapper) PingContext(ctx context.Context) error {
	err := dw.cb.Execute(ctx, func() error {
		return dw.db.PingContext(ctx)
	})
	recordRequest("postgres", "record-store", err == nil)
	return err
}

// ExecContext runs a statement through the breaker.
func (dw *DatabaseWrapper) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	err := dw.cb.Execute(ctx, func() error {
		var err2 error
		result, err2 = dw.db.ExecContext(ctx, query, args...)
		return err2
	})
	recordRequest("postgres", "record-store", err == nil)
	return result, err
}

// GetContext scans a single row into dest through the breaker. sql.ErrNoRows
// is a normal outcome and does not count against the breaker.
func (dw *DatabaseWrapper) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	var noRows bool
	err := dw.cb.Execute(ctx, func() error {
		err2 := dw.db.GetContext(ctx, dest, query, args...)
		if err2 == sql.ErrNoRows {
			noRows = true
			return nil
		}
		return err2
	})
	recordRequest("postgres", "record-store", err == nil)
	if err == nil && noRows {
		return sql.ErrNoRows
	}
	return err
}

// SelectContext scans multiple rows into dest through the breaker.
func (dw *DatabaseWrapper) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	err := dw.cb.Execute(ctx, func() error {
		return dw.db.SelectContext(ctx, dest, query, args...)
	})
	recordRequest("postgres", "record-store", err == nil)
	return err
}

// BeginTxx starts a transaction through the breaker. Statements inside the
// transaction are not individually breaker-accounted.
func (dw *DatabaseWrapper) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	var tx *sqlx.Tx
	err := dw.cb.Execute(ctx, func() error {
		var err2 error
		tx, err2 = dw.db.BeginTxx(ctx, opts)
		return err2
	})
	recordRequest("postgres", "record-store", err == nil)
	return tx, err
}

// Close closes the underlying database handle.
func (dw *DatabaseWrapper) Close() error {
	return dw.db.Close()
}

// IsOpen reports whether the breaker is currently open.
func (dw *DatabaseWrapper) IsOpen() bool {
	return dw.cb.State() == StateOpen
}
