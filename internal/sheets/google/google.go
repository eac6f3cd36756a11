package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"finboard/internal/log"
	"finboard/internal/sheets"
)

// Config selects the target spreadsheet and its service account credentials.
// ServiceAccountJSON wins over ServiceAccountFile.
type Config struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// Client mirrors snapshots into one spreadsheet, two tabs per scope.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	logger        *log.Logger

	mu        sync.Mutex
	knownTabs map[string]bool
}

var _ sheets.Mirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg, log.Wrap(slog.Default(), log.ComponentSheets))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newClient(svc, cfg.SpreadsheetID), nil
}

func newClient(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(spreadsheetID),
		logger:        log.Wrap(slog.Default(), log.ComponentSheets),
		knownTabs:     make(map[string]bool),
	}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger.InfoContext(ctx, "Google Sheets service created", "scope", gsheet.SpreadsheetsScope)
	return service, nil
}

// Mirror replaces the scope's two tabs with the rendered snapshot, creating
// the tabs on first use.
func (c *Client) Mirror(ctx context.Context, snap sheets.Snapshot) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	txTab, alertTab := sheets.TabNames(snap.Scope)

	if err := c.ensureTabs(ctx, txTab, alertTab); err != nil {
		return err
	}

	clearReq := &gsheet.BatchClearValuesRequest{Ranges: []string{a1Range(txTab), a1Range(alertTab)}}
	if _, err := c.svc.Spreadsheets.Values.BatchClear(c.spreadsheetID, clearReq).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear tabs for %s: %w", snap.Scope, err)
	}

	update := &gsheet.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*gsheet.ValueRange{
			{Range: a1Range(txTab) + "!A1", Values: sheets.TransactionRows(snap)},
			{Range: a1Range(alertTab) + "!A1", Values: sheets.AlertRows(snap)},
		},
	}
	resp, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, update).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write tabs for %s: %w", snap.Scope, err)
	}

	fields := log.NewFields().WithScope(string(snap.Scope))
	c.logger.DebugContext(ctx, "Snapshot mirrored", append(fields.ToSlice(),
		"transactions", len(snap.Transactions),
		"alerts", len(snap.Alerts),
		"updated_cells", resp.TotalUpdatedCells)...)
	return nil
}

// ensureTabs adds whichever of titles the spreadsheet lacks. Titles seen once
// are remembered so steady-state mirrors skip the metadata call.
func (c *Client) ensureTabs(ctx context.Context, titles ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var unknown []string
	for _, t := range titles {
		if !c.knownTabs[t] {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) == 0 {
		return nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	existing := make(map[string]bool, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties != nil {
			existing[sh.Properties.Title] = true
			c.knownTabs[sh.Properties.Title] = true
		}
	}

	missing := missingTabs(unknown, existing)
	if len(missing) == 0 {
		return nil
	}

	reqs := make([]*gsheet.Request, 0, len(missing))
	for _, title := range missing {
		reqs = append(reqs, &gsheet.Request{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		})
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{Requests: reqs}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add tabs %v: %w", missing, err)
	}
	for _, title := range missing {
		c.knownTabs[title] = true
	}
	c.logger.InfoContext(ctx, "Created spreadsheet tabs", "tabs", missing)
	return nil
}

func missingTabs(wanted []string, existing map[string]bool) []string {
	var out []string
	for _, t := range wanted {
		if !existing[t] {
			out = append(out, t)
		}
	}
	return out
}

// a1Range quotes a sheet title for A1 notation.
func a1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}
