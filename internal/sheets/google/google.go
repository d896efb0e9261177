package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"finanzas/internal/core"
	ports "finanzas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Columns of every category sheet, starting at A.
var header = []any{"ID", "Usuario", "Fecha", "Descripción", "Cantidad", "Actualizado"}

const (
	colDescription = "D"
	colAmount      = "E"
	colUpdated     = "F"
	lastCol        = "F"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	now           func() time.Time

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// Ensure interface conformance
var (
	_ ports.Mirror    = (*Client)(nil)
	_ ports.RowLister = (*Client)(nil)
)

// Credentials selects the service account used to reach the spreadsheet.
// JSON wins over File; when both are empty GOOGLE_APPLICATION_CREDENTIALS
// is consulted.
type Credentials struct {
	JSON string
	File string
}

// New creates a client for spreadsheetID. Extra options are passed to the
// Sheets service after the credentials.
func New(ctx context.Context, spreadsheetID string, creds Credentials, opts ...goption.ClientOption) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	credOpts, err := credentialOptions(ctx, creds)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx, append(credOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully", "spreadsheet_id", spreadsheetID)
	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		now:           time.Now,
		sheetIDs:      make(map[string]int64),
	}
}

func credentialOptions(ctx context.Context, creds Credentials) ([]goption.ClientOption, error) {
	jsonCreds := strings.TrimSpace(creds.JSON)
	file := strings.TrimSpace(creds.File)
	if jsonCreds == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var data []byte
	switch {
	case jsonCreds != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		data = []byte(jsonCreds)
	case file != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", file)
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		data = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
	return []goption.ClientOption{
		goption.WithCredentialsJSON(data),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, nil
}

func sheetName(c core.Category) string { return c.Collection() }

func (c *Client) ready() error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	return nil
}

// findRow returns the 1-based row holding id in column A, or 0.
func (c *Client) findRow(ctx context.Context, cat core.Category, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", sheetName(cat))
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", rng, err)
	}
	for i, row := range resp.Values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i + 1, nil
		}
	}
	return 0, nil
}

func (c *Client) rowValues(userID string, e core.Entry) []any {
	return []any{
		e.ID,
		userID,
		e.Date.ISO(),
		e.Description,
		e.Amount.Decimal().StringFixed(2),
		c.now().UTC().Format(time.RFC3339),
	}
}

// ApplyCreated appends the entry, or overwrites its row when the event is
// replayed.
func (c *Client) ApplyCreated(ctx context.Context, userID string, e core.Entry) error {
	if err := c.ready(); err != nil {
		return err
	}
	name := sheetName(e.Category)
	row, err := c.findRow(ctx, e.Category, e.ID)
	if err != nil {
		return err
	}
	vr := &gsheet.ValueRange{Values: [][]any{c.rowValues(userID, e)}}

	if row > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", name, row, lastCol, row)
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("overwrite %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Overwrote mirrored entry", "sheet", name, "row", row, "entry_id", e.ID)
		return nil
	}

	rng := fmt.Sprintf("%s!A:%s", name, lastCol)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", name, err)
	}
	if resp.Updates != nil {
		if n, ok := rowNumber(resp.Updates.UpdatedRange); ok {
			slog.DebugContext(ctx, "Appended mirrored entry", "sheet", name, "row", n, "entry_id", e.ID)
		}
	}
	return nil
}

// ApplyUpdated rewrites only the changed cells of the entry's row.
func (c *Client) ApplyUpdated(ctx context.Context, _ string, cat core.Category, id string, p core.EntryPatch) error {
	if err := c.ready(); err != nil {
		return err
	}
	name := sheetName(cat)
	row, err := c.findRow(ctx, cat, id)
	if err != nil {
		return err
	}
	if row == 0 {
		return fmt.Errorf("%s/%s: %w", name, id, ports.ErrRowNotFound)
	}

	cell := func(col string, v any) *gsheet.ValueRange {
		return &gsheet.ValueRange{
			Range:  fmt.Sprintf("%s!%s%d", name, col, row),
			Values: [][]any{{v}},
		}
	}
	data := []*gsheet.ValueRange{cell(colUpdated, c.now().UTC().Format(time.RFC3339))}
	if p.Description != nil {
		data = append(data, cell(colDescription, *p.Description))
	}
	if p.Amount != nil {
		data = append(data, cell(colAmount, p.Amount.Decimal().StringFixed(2)))
	}

	req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "RAW", Data: data}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("update %s row %d: %w", name, row, err)
	}
	return nil
}

// ApplyDeleted removes the entry's row. A missing row is not an error.
func (c *Client) ApplyDeleted(ctx context.Context, _ string, cat core.Category, id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	name := sheetName(cat)
	row, err := c.findRow(ctx, cat, id)
	if err != nil {
		return err
	}
	if row == 0 {
		slog.DebugContext(ctx, "Mirrored entry already gone", "sheet", name, "entry_id", id)
		return nil
	}
	sheetID, err := c.sheetID(ctx, name)
	if err != nil {
		return err
	}

	dr := &gsheet.DimensionRange{
		SheetId:    sheetID,
		Dimension:  "ROWS",
		StartIndex: int64(row - 1),
		EndIndex:   int64(row),
		// the first sheet has id 0 and row 1 starts at index 0
		ForceSendFields: []string{"SheetId", "StartIndex"},
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{DeleteDimension: &gsheet.DeleteDimensionRequest{Range: dr}}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete %s row %d: %w", name, row, err)
	}
	return nil
}

func (c *Client) sheetID(ctx context.Context, name string) (int64, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.sheetIDs[s.Properties.Title] = s.Properties.SheetId
		}
	}
	id, ok = c.sheetIDs[name]
	if !ok {
		return 0, fmt.Errorf("sheet %q not found in spreadsheet", name)
	}
	return id, nil
}

// EnsureHeaders writes the header row of every category sheet that is
// still empty.
func (c *Client) EnsureHeaders(ctx context.Context) error {
	if err := c.ready(); err != nil {
		return err
	}
	for _, cat := range core.Categories {
		rng := fmt.Sprintf("%s!A1:%s1", sheetName(cat), lastCol)
		resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("read %s: %w", rng, err)
		}
		if len(resp.Values) > 0 {
			continue
		}
		vr := &gsheet.ValueRange{Values: [][]any{header}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
		slog.InfoContext(ctx, "Wrote sheet header", "sheet", sheetName(cat))
	}
	return nil
}

// Rows lists the mirrored rows of a category, skipping the header and any
// row that does not parse.
func (c *Client) Rows(ctx context.Context, cat core.Category) ([]ports.Row, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("%s!A:%s", sheetName(cat), lastCol)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseRows(resp.Values, cat), nil
}

func parseRows(values [][]any, cat core.Category) []ports.Row {
	var out []ports.Row
	for i, raw := range values {
		cols := toStrings(raw)
		if len(cols) < 5 {
			continue
		}
		if i == 0 && strings.EqualFold(cols[0], "ID") {
			continue
		}
		date, err := core.ParseISODate(cols[2])
		if err != nil {
			continue
		}
		amount, err := core.ParseAmount(cols[4])
		if err != nil {
			continue
		}
		out = append(out, ports.Row{
			UserID: cols[1],
			Entry: core.Entry{
				ID:          cols[0],
				Category:    cat,
				Description: cols[3],
				Amount:      amount,
				Date:        date,
			},
		})
	}
	return out
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// rowNumber parses the row out of an A1 reference such as "income!A7:F7".
func rowNumber(ref string) (int, bool) {
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	if i := strings.Index(ref, ":"); i >= 0 {
		ref = ref[:i]
	}
	ref = strings.TrimLeft(ref, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	n, err := strconv.Atoi(ref)
	return n, err == nil && n > 0
}
