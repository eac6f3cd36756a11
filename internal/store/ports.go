package store

import (
	"context"
	"errors"

	"finboard/internal/core"
)

// ErrNotFound is returned when a transaction does not exist in the given scope.
var ErrNotFound = errors.New("not found")

// Ports for record persistence. Every call names the scope it acts for;
// implementations never infer it.
type (
	TransactionStore interface {
		// ListTransactions returns the scope's transactions, newest date first.
		ListTransactions(ctx context.Context, scope core.UserScope) ([]core.Transaction, error)
		GetTransaction(ctx context.Context, scope core.UserScope, id string) (core.Transaction, error)
		// CreateTransaction assigns a new id and stores the transaction.
		CreateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error)
		// UpdateTransaction replaces the stored transaction with the same id.
		UpdateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, scope core.UserScope, id string) error
	}

	BudgetStore interface {
		// ListBudgets returns the scope's budgets in the order they were saved.
		ListBudgets(ctx context.Context, scope core.UserScope) ([]core.CategoryBudget, error)
		// ReplaceBudgets swaps the scope's whole budget list.
		ReplaceBudgets(ctx context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error)
	}

	// ScopeLister enumerates scopes that own at least one record.
	ScopeLister interface {
		ListScopes(ctx context.Context) ([]core.UserScope, error)
	}

	// Store is what a backend provides to the service layer.
	Store interface {
		TransactionStore
		BudgetStore
		ScopeLister
		Ping(ctx context.Context) error
		Close() error
	}
)
