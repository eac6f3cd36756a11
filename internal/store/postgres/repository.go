// Package postgres stores records in PostgreSQL with row-level security.
//
// Every operation runs in its own transaction that first sets app.user_id to
// the caller's scope; the table policies hide all other rows. Queries also
// filter on user_id explicitly so a misconfigured policy cannot widen access.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"finboard/internal/core"
	"finboard/internal/store"
)

type Repository struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Repository)(nil)

// NewRepository migrates the schema and opens a connection pool.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if err := RunMigrations(dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.InfoContext(ctx, "Postgres store ready", "max_conns", cfg.MaxConns)
	return &Repository{pool: pool}, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// inScope runs fn in a transaction bound to scope.
func (r *Repository) inScope(ctx context.Context, scope core.UserScope, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('app.user_id', $1, true)`, string(scope)); err != nil {
		return fmt.Errorf("set scope: %w", err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t   core.Transaction
		typ string
		day time.Time
	)
	if err := row.Scan(&t.ID, &typ, &t.Amount, &t.Category, &t.Description, &day); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	t.Date = core.NewDate(day.Year(), int(day.Month()), day.Day())
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, scope core.UserScope) ([]core.Transaction, error) {
	out := []core.Transaction{}
	err := r.inScope(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, type, amount, category, description, date
			FROM transactions
			WHERE user_id = $1
			ORDER BY date DESC, seq ASC`, string(scope))
		if err != nil {
			return fmt.Errorf("query transactions: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTransaction(rows)
			if err != nil {
				return fmt.Errorf("scan transaction: %w", err)
			}
			out = append(out, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, scope core.UserScope, id string) (core.Transaction, error) {
	var t core.Transaction
	err := r.inScope(ctx, scope, func(tx pgx.Tx) error {
		var err error
		t, err = scanTransaction(tx.QueryRow(ctx, `
			SELECT id, type, amount, category, description, date
			FROM transactions
			WHERE id = $1 AND user_id = $2`, id, string(scope)))
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get transaction: %w", err)
		}
		return nil
	})
	return t, err
}

func (r *Repository) CreateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	err := r.inScope(ctx, scope, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO transactions (id, user_id, type, amount, category, description, date)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			t.ID, string(scope), string(t.Type), t.Amount, t.Category, t.Description, t.Date.Time)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	err := r.inScope(ctx, scope, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE transactions
			SET type = $1, amount = $2, category = $3, description = $4, date = $5, updated_at = now()
			WHERE id = $6 AND user_id = $7`,
			string(t.Type), t.Amount, t.Category, t.Description, t.Date.Time, t.ID, string(scope))
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, scope core.UserScope, id string) error {
	return r.inScope(ctx, scope, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, string(scope))
		if err != nil {
			return fmt.Errorf("delete transaction: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (r *Repository) ListBudgets(ctx context.Context, scope core.UserScope) ([]core.CategoryBudget, error) {
	out := []core.CategoryBudget{}
	err := r.inScope(ctx, scope, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT category, limit_amount
			FROM budgets
			WHERE user_id = $1
			ORDER BY position ASC`, string(scope))
		if err != nil {
			return fmt.Errorf("query budgets: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var b core.CategoryBudget
			if err := rows.Scan(&b.Category, &b.Limit); err != nil {
				return fmt.Errorf("scan budget: %w", err)
			}
			out = append(out, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) ReplaceBudgets(ctx context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error) {
	if err := core.ValidateBudgets(budgets); err != nil {
		return nil, err
	}
	err := r.inScope(ctx, scope, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM budgets WHERE user_id = $1`, string(scope)); err != nil {
			return fmt.Errorf("clear budgets: %w", err)
		}
		if len(budgets) == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, b := range budgets {
			batch.Queue(`INSERT INTO budgets (user_id, position, category, limit_amount) VALUES ($1, $2, $3, $4)`,
				string(scope), i, b.Category, b.Limit)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert budgets: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return append(make([]core.CategoryBudget, 0, len(budgets)), budgets...), nil
}

func (r *Repository) ListScopes(ctx context.Context) ([]core.UserScope, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT set_config('app.scope_scan', 'on', true)`); err != nil {
		return nil, fmt.Errorf("enable scope scan: %w", err)
	}
	rows, err := tx.Query(ctx, `
		SELECT user_id FROM transactions
		UNION
		SELECT user_id FROM budgets
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query scopes: %w", err)
	}
	scopes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.UserScope, error) {
		var s string
		err := row.Scan(&s)
		return core.UserScope(s), err
	})
	if err != nil {
		return nil, fmt.Errorf("scan scopes: %w", err)
	}
	return scopes, tx.Commit(ctx)
}
