// Package client is a JSON client for the finboard API. It derives the
// dashboard locally from fetched records with the same core functions the
// server uses.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/core"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("finboard api: http %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL. An empty token sends no Authorization
// header, which only works against a server with auth disabled.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewTransaction is the body of a create request. An empty Date means today
// on the server.
type NewTransaction struct {
	Type        core.TransactionType `json:"type"`
	Amount      float64              `json:"amount"`
	Category    string               `json:"category,omitempty"`
	Description string               `json:"description,omitempty"`
	Date        string               `json:"date,omitempty"`
}

// TransactionUpdate carries only the fields to change.
type TransactionUpdate struct {
	Type        *core.TransactionType `json:"type,omitempty"`
	Amount      *float64              `json:"amount,omitempty"`
	Category    *string               `json:"category,omitempty"`
	Description *string               `json:"description,omitempty"`
	Date        *string               `json:"date,omitempty"`
}

// Dashboard is the summary plus alerts, as served by /api/summary.
type Dashboard struct {
	core.Summary
	Alerts []core.BudgetAlert `json:"alerts"`
}

func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, t NewTransaction) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodPost, "/api/transactions", t, &out)
	return out, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, u TransactionUpdate) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodPut, "/api/transactions/"+url.PathEscape(id), u, &out)
	return out, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

func (c *Client) ListBudgets(ctx context.Context) ([]core.CategoryBudget, error) {
	var out []core.CategoryBudget
	err := c.do(ctx, http.MethodGet, "/api/budgets", nil, &out)
	return out, err
}

// ReplaceBudgets sends the complete list; budgets not included are removed.
func (c *Client) ReplaceBudgets(ctx context.Context, budgets []core.CategoryBudget) ([]core.CategoryBudget, error) {
	if budgets == nil {
		budgets = []core.CategoryBudget{}
	}
	var out []core.CategoryBudget
	err := c.do(ctx, http.MethodPut, "/api/budgets", budgets, &out)
	return out, err
}

func (c *Client) Categories(ctx context.Context) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodGet, "/api/categories", nil, &out)
	return out, err
}

// ServerAlerts returns the alerts the server derived.
func (c *Client) ServerAlerts(ctx context.Context) ([]core.BudgetAlert, error) {
	var out []core.BudgetAlert
	err := c.do(ctx, http.MethodGet, "/api/alerts", nil, &out)
	return out, err
}

// ServerSummary returns the server-derived dashboard.
func (c *Client) ServerSummary(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := c.do(ctx, http.MethodGet, "/api/summary", nil, &out)
	return out, err
}

// Dashboard fetches transactions and budgets concurrently and derives the
// summary and alerts locally.
func (c *Client) Dashboard(ctx context.Context) (Dashboard, error) {
	var (
		txns    []core.Transaction
		budgets []core.CategoryBudget
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txns, err = c.ListTransactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		budgets, err = c.ListBudgets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return Dashboard{
		Summary: core.Summarize(txns, budgets),
		Alerts:  core.DeriveAlerts(txns, budgets),
	}, nil
}

// Verification compares the locally derived alerts with the server's.
type Verification struct {
	Local  []core.BudgetAlert
	Server []core.BudgetAlert
	Match  bool
}

// VerifyAlerts derives alerts locally and fetches the server's. The two reads
// are not atomic, so a concurrent write can cause a spurious mismatch.
func (c *Client) VerifyAlerts(ctx context.Context) (Verification, error) {
	var v Verification
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dash, err := c.Dashboard(gctx)
		v.Local = dash.Alerts
		return err
	})
	g.Go(func() error {
		var err error
		v.Server, err = c.ServerAlerts(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Verification{}, err
	}
	v.Match = slices.Equal(v.Local, v.Server)
	return v, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: apiErr.Error}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
