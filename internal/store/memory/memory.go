package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"
)

type scopeData struct {
	txns    []core.Transaction
	budgets []core.CategoryBudget
}

// Store keeps records in process memory. It is safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	scopes map[core.UserScope]*scopeData
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{scopes: make(map[core.UserScope]*scopeData)}
}

// Seed replaces a scope's records.
func (s *Store) Seed(scope core.UserScope, txns []core.Transaction, budgets []core.CategoryBudget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scopes[scope] = &scopeData{
		txns:    append([]core.Transaction(nil), txns...),
		budgets: append([]core.CategoryBudget(nil), budgets...),
	}
}

func (s *Store) data(scope core.UserScope) *scopeData {
	d, ok := s.scopes[scope]
	if !ok {
		d = &scopeData{}
		s.scopes[scope] = d
	}
	return d
}

func (s *Store) ListTransactions(_ context.Context, scope core.UserScope) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.scopes[scope]
	if !ok {
		return []core.Transaction{}, nil
	}
	out := append(make([]core.Transaction, 0, len(d.txns)), d.txns...)
	core.SortByDateDesc(out)
	return out, nil
}

func (s *Store) GetTransaction(_ context.Context, scope core.UserScope, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.scopes[scope]; ok {
		for _, t := range d.txns {
			if t.ID == id {
				return t, nil
			}
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) CreateTransaction(_ context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.NewString()
	d := s.data(scope)
	d.txns = append(d.txns, t)
	return t, nil
}

func (s *Store) UpdateTransaction(_ context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.scopes[scope]; ok {
		for i := range d.txns {
			if d.txns[i].ID == t.ID {
				d.txns[i] = t
				return t, nil
			}
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, scope core.UserScope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.scopes[scope]; ok {
		for i := range d.txns {
			if d.txns[i].ID == id {
				d.txns = append(d.txns[:i], d.txns[i+1:]...)
				return nil
			}
		}
	}
	return store.ErrNotFound
}

func (s *Store) ListBudgets(_ context.Context, scope core.UserScope) ([]core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.scopes[scope]
	if !ok {
		return []core.CategoryBudget{}, nil
	}
	return append(make([]core.CategoryBudget, 0, len(d.budgets)), d.budgets...), nil
}

func (s *Store) ReplaceBudgets(_ context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error) {
	if err := core.ValidateBudgets(budgets); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.data(scope)
	d.budgets = append(make([]core.CategoryBudget, 0, len(budgets)), budgets...)
	return append(make([]core.CategoryBudget, 0, len(budgets)), budgets...), nil
}

func (s *Store) ListScopes(_ context.Context) ([]core.UserScope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.UserScope, 0, len(s.scopes))
	for scope, d := range s.scopes {
		if len(d.txns) == 0 && len(d.budgets) == 0 {
			continue
		}
		out = append(out, scope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
