// Package jsonfile persists records in a single JSON document on disk.
//
// The document is read on every operation and rewritten after every change,
// so external edits to the file are picked up without a restart. A missing
// or unreadable file reads as empty, but writes refuse to replace a file that
// exists and cannot be parsed.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"finboard/internal/core"
	"finboard/internal/store"
)

type scopeRecords struct {
	Transactions []core.Transaction    `json:"transactions"`
	Budgets      []core.CategoryBudget `json:"budgets"`
}

type document struct {
	Users map[core.UserScope]*scopeRecords `json:"users"`

	// Single-user layout written by earlier versions; folded into the
	// legacy scope on read and never written back.
	Transactions []core.Transaction    `json:"transactions,omitempty"`
	Budgets      []core.CategoryBudget `json:"budgets,omitempty"`
}

type Store struct {
	mu          sync.Mutex
	path        string
	legacyScope core.UserScope
}

var _ store.Store = (*Store)(nil)

// New returns a store backed by the file at path. Records found in the old
// single-user layout are attributed to legacyScope.
func New(path string, legacyScope core.UserScope) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{path: path, legacyScope: legacyScope}, nil
}

// ErrCorruptFile is returned by writes when the data file exists but cannot
// be read or parsed; overwriting it would drop every user's records.
var ErrCorruptFile = errors.New("data file is unreadable")

func (s *Store) read(ctx context.Context) *document {
	doc, err := s.load()
	if err != nil {
		slog.WarnContext(ctx, "Data file unusable, treating as empty", "path", s.path, "error", err)
		return emptyDocument()
	}
	return doc
}

// readForWrite is read for operations that rewrite the file.
func (s *Store) readForWrite() (*document, error) {
	doc, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptFile, s.path, err)
	}
	return doc, nil
}

func emptyDocument() *document {
	return &document{Users: make(map[core.UserScope]*scopeRecords)}
}

// load parses the data file. A missing file is an empty document.
func (s *Store) load() (*document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return emptyDocument(), nil
		}
		return nil, err
	}
	doc := emptyDocument()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, err
	}
	if doc.Users == nil {
		doc.Users = make(map[core.UserScope]*scopeRecords)
	}
	if len(doc.Transactions) > 0 || len(doc.Budgets) > 0 {
		if _, exists := doc.Users[s.legacyScope]; !exists {
			doc.Users[s.legacyScope] = &scopeRecords{Transactions: doc.Transactions, Budgets: doc.Budgets}
		}
		doc.Transactions, doc.Budgets = nil, nil
	}
	return doc, nil
}

func (s *Store) write(doc *document) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".finboard-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

func (d *document) scope(scope core.UserScope) *scopeRecords {
	r, ok := d.Users[scope]
	if !ok || r == nil {
		r = &scopeRecords{}
		d.Users[scope] = r
	}
	return r
}

func (s *Store) ListTransactions(ctx context.Context, scope core.UserScope) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.read(ctx).scope(scope)
	out := append(make([]core.Transaction, 0, len(r.Transactions)), r.Transactions...)
	core.SortByDateDesc(out)
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, scope core.UserScope, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.read(ctx).scope(scope).Transactions {
		if t.ID == id {
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) CreateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readForWrite()
	if err != nil {
		return core.Transaction{}, err
	}
	r := doc.scope(scope)
	t.ID = uuid.NewString()
	r.Transactions = append(r.Transactions, t)
	if err := s.write(doc); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, scope core.UserScope, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readForWrite()
	if err != nil {
		return core.Transaction{}, err
	}
	r := doc.scope(scope)
	for i := range r.Transactions {
		if r.Transactions[i].ID == t.ID {
			r.Transactions[i] = t
			if err := s.write(doc); err != nil {
				return core.Transaction{}, err
			}
			return t, nil
		}
	}
	return core.Transaction{}, store.ErrNotFound
}

func (s *Store) DeleteTransaction(ctx context.Context, scope core.UserScope, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readForWrite()
	if err != nil {
		return err
	}
	r := doc.scope(scope)
	kept := r.Transactions[:0]
	removed := false
	for _, t := range r.Transactions {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	if !removed {
		return store.ErrNotFound
	}
	r.Transactions = kept
	return s.write(doc)
}

func (s *Store) ListBudgets(ctx context.Context, scope core.UserScope) ([]core.CategoryBudget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.read(ctx).scope(scope)
	return append(make([]core.CategoryBudget, 0, len(r.Budgets)), r.Budgets...), nil
}

func (s *Store) ReplaceBudgets(ctx context.Context, scope core.UserScope, budgets []core.CategoryBudget) ([]core.CategoryBudget, error) {
	if err := core.ValidateBudgets(budgets); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.readForWrite()
	if err != nil {
		return nil, err
	}
	doc.scope(scope).Budgets = append(make([]core.CategoryBudget, 0, len(budgets)), budgets...)
	if err := s.write(doc); err != nil {
		return nil, err
	}
	return append(make([]core.CategoryBudget, 0, len(budgets)), budgets...), nil
}

func (s *Store) ListScopes(ctx context.Context) ([]core.UserScope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := s.read(ctx)
	out := make([]core.UserScope, 0, len(doc.Users))
	for scope, r := range doc.Users {
		if r == nil || (len(r.Transactions) == 0 && len(r.Budgets) == 0) {
			continue
		}
		out = append(out, scope)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// Ping checks that the data directory is still writable.
func (s *Store) Ping(context.Context) error {
	info, err := os.Stat(filepath.Dir(s.path))
	if err != nil {
		return fmt.Errorf("stat data directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("data directory %s is not a directory", filepath.Dir(s.path))
	}
	return nil
}

func (s *Store) Close() error { return nil }
