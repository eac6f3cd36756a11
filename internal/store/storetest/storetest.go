// Package storetest holds behavior checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"finboard/internal/core"
	"finboard/internal/store"
)

// Run exercises a store created fresh by newStore for each subtest.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Helper()

	t.Run("empty scope", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		txns, err := s.ListTransactions(ctx, "nobody")
		if err != nil || txns == nil || len(txns) != 0 {
			t.Fatalf("ListTransactions = %v, %v; want empty non-nil", txns, err)
		}
		budgets, err := s.ListBudgets(ctx, "nobody")
		if err != nil || budgets == nil || len(budgets) != 0 {
			t.Fatalf("ListBudgets = %v, %v; want empty non-nil", budgets, err)
		}
	})

	t.Run("transaction lifecycle", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const scope core.UserScope = "user-a"

		created, err := s.CreateTransaction(ctx, scope, core.Transaction{
			Type: core.Expense, Amount: 42.5, Category: "Food", Description: "groceries", Date: core.NewDate(2025, 3, 10),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if created.ID == "" {
			t.Fatalf("expected id to be assigned")
		}

		got, err := s.GetTransaction(ctx, scope, created.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Amount != 42.5 || got.Category != "Food" || got.Description != "groceries" || got.Date.String() != "2025-03-10" || got.Type != core.Expense {
			t.Fatalf("unexpected record: %+v", got)
		}

		got.Amount = 50
		got.Category = "Leisure"
		if _, err := s.UpdateTransaction(ctx, scope, got); err != nil {
			t.Fatalf("update: %v", err)
		}
		after, _ := s.GetTransaction(ctx, scope, created.ID)
		if after.Amount != 50 || after.Category != "Leisure" {
			t.Fatalf("update not persisted: %+v", after)
		}

		if err := s.DeleteTransaction(ctx, scope, created.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := s.GetTransaction(ctx, scope, created.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
		if err := s.DeleteTransaction(ctx, scope, created.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("update missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.UpdateTransaction(context.Background(), "user-a", core.Transaction{
			ID: "missing", Type: core.Income, Amount: 1, Category: "Other", Date: core.NewDate(2025, 1, 1),
		})
		if !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("list order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const scope core.UserScope = "user-a"
		for _, d := range []struct {
			desc string
			date core.Date
		}{
			{"first", core.NewDate(2025, 1, 5)},
			{"second", core.NewDate(2025, 2, 1)},
			{"third", core.NewDate(2025, 1, 5)},
		} {
			if _, err := s.CreateTransaction(ctx, scope, core.Transaction{
				Type: core.Expense, Amount: 1, Category: "Food", Description: d.desc, Date: d.date,
			}); err != nil {
				t.Fatalf("create %s: %v", d.desc, err)
			}
		}
		txns, err := s.ListTransactions(ctx, scope)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		var got []string
		for _, tx := range txns {
			got = append(got, tx.Description)
		}
		if !reflect.DeepEqual(got, []string{"second", "first", "third"}) {
			t.Fatalf("unexpected order: %v", got)
		}
	})

	t.Run("scopes are isolated", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		tx, err := s.CreateTransaction(ctx, "user-a", core.Transaction{
			Type: core.Expense, Amount: 10, Category: "Food", Date: core.NewDate(2025, 1, 1),
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if _, err := s.ReplaceBudgets(ctx, "user-a", []core.CategoryBudget{{Category: "Food", Limit: 10}}); err != nil {
			t.Fatalf("replace budgets: %v", err)
		}

		if _, err := s.GetTransaction(ctx, "user-b", tx.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("other scope read: %v", err)
		}
		if err := s.DeleteTransaction(ctx, "user-b", tx.ID); !errors.Is(err, store.ErrNotFound) {
			t.Fatalf("other scope delete: %v", err)
		}
		txns, _ := s.ListTransactions(ctx, "user-b")
		budgets, _ := s.ListBudgets(ctx, "user-b")
		if len(txns) != 0 || len(budgets) != 0 {
			t.Fatalf("records leaked across scopes: %v %v", txns, budgets)
		}

		scopes, err := s.ListScopes(ctx)
		if err != nil {
			t.Fatalf("list scopes: %v", err)
		}
		if !reflect.DeepEqual(scopes, []core.UserScope{"user-a"}) {
			t.Fatalf("ListScopes = %v", scopes)
		}
	})

	t.Run("budgets replace and keep order", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		const scope core.UserScope = "user-a"
		first := []core.CategoryBudget{{Category: "Food", Limit: 500}, {Category: "Transport", Limit: 0}, {Category: "Food", Limit: 300}}
		if _, err := s.ReplaceBudgets(ctx, scope, first); err != nil {
			t.Fatalf("replace: %v", err)
		}
		got, err := s.ListBudgets(ctx, scope)
		if err != nil || !reflect.DeepEqual(got, first) {
			t.Fatalf("ListBudgets = %v, %v; want %v", got, err, first)
		}

		second := []core.CategoryBudget{{Category: "Housing", Limit: 1200}}
		if _, err := s.ReplaceBudgets(ctx, scope, second); err != nil {
			t.Fatalf("replace: %v", err)
		}
		got, _ = s.ListBudgets(ctx, scope)
		if !reflect.DeepEqual(got, second) {
			t.Fatalf("ListBudgets = %v, want %v", got, second)
		}

		if _, err := s.ReplaceBudgets(ctx, scope, []core.CategoryBudget{}); err != nil {
			t.Fatalf("replace with empty: %v", err)
		}
		got, _ = s.ListBudgets(ctx, scope)
		if len(got) != 0 {
			t.Fatalf("expected no budgets, got %v", got)
		}
	})

	t.Run("rejects invalid records", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		if _, err := s.CreateTransaction(ctx, "user-a", core.Transaction{Type: "loan", Amount: 1, Category: "x", Date: core.NewDate(2025, 1, 1)}); !errors.Is(err, core.ErrInvalidType) {
			t.Fatalf("expected ErrInvalidType, got %v", err)
		}
		if _, err := s.ReplaceBudgets(ctx, "user-a", []core.CategoryBudget{{Category: "Food", Limit: -5}}); !errors.Is(err, core.ErrInvalidLimit) {
			t.Fatalf("expected ErrInvalidLimit, got %v", err)
		}
	})

	t.Run("ping", func(t *testing.T) {
		s := newStore(t)
		if err := s.Ping(context.Background()); err != nil {
			t.Fatalf("ping: %v", err)
		}
	})
}
