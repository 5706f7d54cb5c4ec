package ddl

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/twinschema/twinschema/schema"
)

// Runner executes DDL statements with transaction support.
type Runner struct {
	db  *sql.DB
	log *zap.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = log }
}

// NewRunner creates a runner over an open database handle.
func NewRunner(db *sql.DB, opts ...RunnerOption) *Runner {
	r := &Runner{db: db, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply executes the statements inside one transaction, rolling back on the
// first failure.
func (r *Runner) Apply(ctx context.Context, stmts []string) error {
	if len(stmts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			r.log.Warn("transaction rollback failed", zap.Error(err))
		}
	}()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	r.log.Info("schema applied", zap.Int("statements", len(stmts)))
	return nil
}

// CreateAll renders and applies the schema for every finalized table.
func (r *Runner) CreateAll(ctx context.Context, g *Generator, meta *schema.Metadata) error {
	stmts, err := g.GenerateAll(meta)
	if err != nil {
		return err
	}
	return r.Apply(ctx, stmts)
}
