package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"finboard/internal/core"
	"finboard/internal/store"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

// NewRepository opens (creating if needed) the database file at dbPath and
// brings its schema up to date.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.Info("SQLite store ready", "path", dbPath)
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		typ      string
		dateText string
	)
	if err := row.Scan(&t.ID, &typ, &t.Amount, &t.Category, &t.Description, &dateText); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(typ)
	d, err := core.ParseDate(dateText)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s has bad date %q: %w", t.ID, dateText, err)
	}
	t.Date = d
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, scope core.UserScope) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, type, amount, category, description, date
		FROM transactions
		WHERE user_id = ?
		ORDER BY date DESC, seq ASC`, string(scope))
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *Repository) GetTransaction(ctx context.Context, scope core.UserScope, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, type, amount, category, description, date
		FROM transactions
		WHERE id = ? AND user_id = ?`, id, string(scope))
	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return core.Transaction{}, store.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) CreateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t.ID = uuid.NewString()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, amount, category, description, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, string(scope), string(t.Type), t.Amount, t.Category, t.Description, t.Date.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"type", t.Type,
		"category", t.Category)
	return t, nil
}

func (r *Repository) UpdateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions
		SET type = ?, amount = ?, category = ?, description = ?, date = ?,
		    updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		WHERE id = ? AND user_id = ?`,
		string(t.Type), t.Amount, t.Category, t.Description, t.Date.String(), t.ID, string(scope))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return core.Transaction{}, fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return core.Transaction{}, store.ErrNotFound
	}
	return t, nil
}

func (r *Repository) DeleteTransaction(ctx context.Context, scope core.UserScope, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, string(scope))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("rows affected: %w", err)
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Repository) ListBudgets(ctx context.Context, scope core.UserScope) ([]core.CategoryBudget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category, limit_amount
		FROM budgets
		WHERE user_id = ?
		ORDER BY position ASC`, string(scope))
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	out := []core.CategoryBudget{}
	for rows.Next() {
		var b core.CategoryBudget
		if err := rows.Scan(&b.Category, &b.Limit); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *Repository) ReplaceBudgets(ctx context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error) {
	if err := core.ValidateBudgets(budgets); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE user_id = ?`, string(scope)); err != nil {
		return nil, fmt.Errorf("clear budgets: %w", err)
	}
	for i, b := range budgets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (user_id, position, category, limit_amount) VALUES (?, ?, ?, ?)`,
			string(scope), i, b.Category, b.Limit); err != nil {
			return nil, fmt.Errorf("insert budget %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit budgets: %w", err)
	}

	slog.DebugContext(ctx, "Budgets replaced in SQLite", "count", len(budgets))
	return append(make([]core.CategoryBudget, 0, len(budgets)), budgets...), nil
}

func (r *Repository) ListScopes(ctx context.Context) ([]core.UserScope, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM transactions
		UNION
		SELECT user_id FROM budgets
		ORDER BY 1`)
	if err != nil {
		return nil, fmt.Errorf("query scopes: %w", err)
	}
	defer rows.Close()

	var out []core.UserScope
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan scope: %w", err)
		}
		out = append(out, core.UserScope(s))
	}
	return out, rows.Err()
}
