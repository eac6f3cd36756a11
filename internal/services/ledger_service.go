package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/log"
	"finboard/internal/store"
)

// Publisher announces ledger changes. *amqp.Client satisfies it.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Snapshot is one user's full record set at a point in time.
type Snapshot struct {
	Transactions []core.Transaction
	Budgets      []core.CategoryBudget
}

// Dashboard is the derived read model served by /api/summary.
type Dashboard struct {
	core.Summary
	Alerts []core.BudgetAlert `json:"alerts"`
}

// TransactionPatch carries the fields a PUT supplied; nil fields stay unchanged.
type TransactionPatch struct {
	Type        *core.TransactionType
	Amount      *float64
	Category    *string
	Description *string
	Date        *core.Date
}

// LedgerService orchestrates record operations across the store and AMQP.
type LedgerService struct {
	store     store.Store
	publisher Publisher
	logger    *log.StructuredLogger
}

// NewLedgerService wires the service. publisher may be nil.
func NewLedgerService(st store.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Wrap(slog.Default(), log.ComponentLedger)
	}
	return &LedgerService{
		store:     st,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) ListTransactions(ctx context.Context, scope core.UserScope) ([]core.Transaction, error) {
	txns, err := s.store.ListTransactions(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txns, nil
}

// CreateTransaction applies creation defaults, validates and stores t.
func (s *LedgerService) CreateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	t.ApplyDefaults()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, scope, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.LogTransactionChange(ctx, log.OpCreate, string(scope), created.ID, string(created.Type), created.Amount, created.Category)
	s.publish(ctx, amqp.NewLedgerChangedMessage(scope, amqp.KindTransactionCreated, created.ID))
	return created, nil
}

// UpdateTransaction merges patch over the stored record. The id never changes.
func (s *LedgerService) UpdateTransaction(ctx context.Context, scope core.UserScope, id string, patch TransactionPatch) (core.Transaction, error) {
	current, err := s.store.GetTransaction(ctx, scope, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}

	merged := patch.apply(current)
	if err := merged.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, scope, merged)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.logger.LogTransactionChange(ctx, log.OpUpdate, string(scope), updated.ID, string(updated.Type), updated.Amount, updated.Category)
	s.publish(ctx, amqp.NewLedgerChangedMessage(scope, amqp.KindTransactionUpdated, updated.ID))
	return updated, nil
}

func (p TransactionPatch) apply(t core.Transaction) core.Transaction {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	return t
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, scope core.UserScope, id string) error {
	if err := s.store.DeleteTransaction(ctx, scope, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.logger.LogTransactionChange(ctx, log.OpDelete, string(scope), id, "", 0, "")
	s.publish(ctx, amqp.NewLedgerChangedMessage(scope, amqp.KindTransactionDeleted, id))
	return nil
}

func (s *LedgerService) ListBudgets(ctx context.Context, scope core.UserScope) ([]core.CategoryBudget, error) {
	budgets, err := s.store.ListBudgets(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// ReplaceBudgets stores budgets as the scope's complete list, order preserved.
func (s *LedgerService) ReplaceBudgets(ctx context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error) {
	if budgets == nil {
		budgets = []core.CategoryBudget{}
	}
	if err := core.ValidateBudgets(budgets); err != nil {
		return nil, err
	}

	stored, err := s.store.ReplaceBudgets(ctx, scope, budgets)
	if err != nil {
		return nil, fmt.Errorf("replace budgets: %w", err)
	}

	slog.InfoContext(ctx, "Budgets replaced",
		log.FieldUserScope, scope,
		log.FieldBudgetCount, len(stored))
	s.publish(ctx, amqp.NewLedgerChangedMessage(scope, amqp.KindBudgetsReplaced, ""))
	return stored, nil
}

// Snapshot loads transactions and budgets concurrently.
func (s *LedgerService) Snapshot(ctx context.Context, scope core.UserScope) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txns, err := s.store.ListTransactions(gctx, scope)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}
		snap.Transactions = txns
		return nil
	})
	g.Go(func() error {
		budgets, err := s.store.ListBudgets(gctx, scope)
		if err != nil {
			return fmt.Errorf("list budgets: %w", err)
		}
		snap.Budgets = budgets
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Alerts derives budget alerts from the scope's current records.
func (s *LedgerService) Alerts(ctx context.Context, scope core.UserScope) ([]core.BudgetAlert, error) {
	snap, err := s.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	alerts := core.DeriveAlerts(snap.Transactions, snap.Budgets)
	s.logger.LogAlertsDerived(ctx, string(scope), len(snap.Budgets), len(alerts))
	return alerts, nil
}

// Dashboard derives the summary and alerts from one snapshot.
func (s *LedgerService) Dashboard(ctx context.Context, scope core.UserScope) (Dashboard, error) {
	snap, err := s.Snapshot(ctx, scope)
	if err != nil {
		return Dashboard{}, err
	}
	return BuildDashboard(snap), nil
}

// BuildDashboard is the pure projection shared by the API and the mirror worker.
func BuildDashboard(snap Snapshot) Dashboard {
	return Dashboard{
		Summary: core.Summarize(snap.Transactions, snap.Budgets),
		Alerts:  core.DeriveAlerts(snap.Transactions, snap.Budgets),
	}
}

// Categories lists default categories followed by any used in records.
func (s *LedgerService) Categories(ctx context.Context, scope core.UserScope) ([]string, error) {
	snap, err := s.Snapshot(ctx, scope)
	if err != nil {
		return nil, err
	}
	return core.MergeCategories(snap.Transactions, snap.Budgets), nil
}

// Ping checks that the store is reachable, for /readyz.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// publish never fails the write that triggered it.
func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "AMQP not configured, skipping ledger change message", log.FieldEventKind, msg.Kind)
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.LogError(ctx, "Failed to publish ledger change", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithScope(string(msg.UserScope)).WithErrorType(log.ErrorTypeNetwork))
	}
}

// Close closes the store.
func (s *LedgerService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close ledger service: %w", err)
	}
	return nil
}
