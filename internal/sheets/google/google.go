// Package google implements the ledger ports on a Google Sheets worksheet.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	"golang.org/x/sync/singleflight"
	gdrive "google.golang.org/api/drive/v3"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"aicfo/internal/core"
	ports "aicfo/internal/sheets"
)

const (
	connectTimeout = 30 * time.Second
	ledgerColumns  = "A:E"
	headerRange    = "A1:E1"
)

var (
	ErrNoCredentials       = errors.New("missing service account credentials")
	ErrNoSpreadsheet       = errors.New("spreadsheet id or name is required")
	ErrSpreadsheetNotFound = errors.New("spreadsheet not found")
	ErrSheetNotFound       = errors.New("worksheet not found")
)

// Config identifies the ledger worksheet and how to authenticate.
type Config struct {
	// SpreadsheetID wins over SpreadsheetName when both are set.
	SpreadsheetID   string
	SpreadsheetName string
	// SheetName is the worksheet title; empty means the first worksheet.
	SheetName string
	// CredentialsJSON is a service account key.
	CredentialsJSON []byte
	// Options are appended to the API client options.
	Options []goption.ClientOption
}

type connection struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Client is a ledger backed by one worksheet. The API connection is opened
// on first use and shared by all callers.
type Client struct {
	cfg   Config
	group singleflight.Group
	mu    sync.RWMutex
	conn  *connection
}

var _ ports.Ledger = (*Client)(nil)

// New validates cfg without contacting Google.
func New(cfg Config) (*Client, error) {
	cfg.SpreadsheetID = strings.TrimSpace(cfg.SpreadsheetID)
	cfg.SpreadsheetName = strings.TrimSpace(cfg.SpreadsheetName)
	cfg.SheetName = strings.TrimSpace(cfg.SheetName)
	if cfg.SpreadsheetID == "" && cfg.SpreadsheetName == "" {
		return nil, ErrNoSpreadsheet
	}
	if len(cfg.CredentialsJSON) == 0 && len(cfg.Options) == 0 {
		return nil, ErrNoCredentials
	}
	return &Client{cfg: cfg}, nil
}

// Connect opens the connection if needed. Repeated and concurrent calls
// share one connection attempt; a failed attempt is retried on the next call.
func (c *Client) Connect(ctx context.Context) error {
	_, err := c.connection(ctx)
	return err
}

func (c *Client) connection(ctx context.Context) (*connection, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil {
		return conn, nil
	}

	v, err, _ := c.group.Do("connect", func() (any, error) {
		c.mu.RLock()
		existing := c.conn
		c.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}

		// Detached from the caller: other callers may be waiting on this attempt.
		dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), connectTimeout)
		defer cancel()
		conn, err := c.dial(dctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		return conn, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*connection), nil
}

func (c *Client) dial(ctx context.Context) (*connection, error) {
	opts, err := c.clientOptions()
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	id := c.cfg.SpreadsheetID
	if id == "" {
		drv, err := gdrive.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("create drive service: %w", err)
		}
		id, err = findSpreadsheet(ctx, drv, c.cfg.SpreadsheetName)
		if err != nil {
			return nil, err
		}
	}

	ss, err := svc.Spreadsheets.Get(id).Fields("spreadsheetId", "sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", id, err)
	}
	sheet, err := pickSheet(ss, c.cfg.SheetName)
	if err != nil {
		return nil, err
	}

	conn := &connection{svc: svc, spreadsheetID: id, sheet: sheet}
	if err := conn.ensureHeader(ctx); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Connected to ledger spreadsheet", "spreadsheet_id", id, "sheet", sheet)
	return conn, nil
}

// clientOptions authenticates with the service account key when one is
// configured. Token refreshes outlive the connect timeout, so they run on a
// background context carrying the pooled HTTP client.
func (c *Client) clientOptions() ([]goption.ClientOption, error) {
	var opts []goption.ClientOption
	if len(c.cfg.CredentialsJSON) > 0 {
		jwt, err := goauth.JWTConfigFromJSON(c.cfg.CredentialsJSON, gsheet.SpreadsheetsScope, gdrive.DriveMetadataReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account credentials: %w", err)
		}
		base := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClientWithPooling())
		opts = append(opts, goption.WithHTTPClient(oauth2.NewClient(base, jwt.TokenSource(base))))
	}
	return append(opts, c.cfg.Options...), nil
}

// newHTTPClientWithPooling creates an HTTP client for the Google APIs with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	conn, err := c.connection(ctx)
	if err != nil {
		return "", err
	}

	vr := &gsheet.ValueRange{Values: [][]any{ports.Row(e)}}
	resp, err := conn.svc.Spreadsheets.Values.Append(conn.spreadsheetID, a1(conn.sheet, ledgerColumns), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to %s: %w", conn.sheet, err)
	}

	ref := a1(conn.sheet, ledgerColumns)
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

func (c *Client) ReadAll(ctx context.Context) ([]core.Expense, error) {
	conn, err := c.connection(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := conn.svc.Spreadsheets.Values.Get(conn.spreadsheetID, a1(conn.sheet, ledgerColumns)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", conn.sheet, err)
	}

	records, skipped := ports.Records(resp.Values)
	for _, s := range skipped {
		slog.WarnContext(ctx, "Skipping unreadable ledger row", "sheet", conn.sheet, "line", s.Line, "error", s.Err)
	}
	return records, nil
}

// ensureHeader writes the header row into an empty worksheet.
func (conn *connection) ensureHeader(ctx context.Context) error {
	rng := a1(conn.sheet, headerRange)
	resp, err := conn.svc.Spreadsheets.Values.Get(conn.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	if len(resp.Values) > 0 && len(resp.Values[0]) > 0 {
		return nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{ports.Header}}
	if _, err := conn.svc.Spreadsheets.Values.Update(conn.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header to %s: %w", conn.sheet, err)
	}
	slog.InfoContext(ctx, "Wrote ledger header", "sheet", conn.sheet)
	return nil
}

func pickSheet(ss *gsheet.Spreadsheet, title string) (string, error) {
	var titles []string
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	if len(titles) == 0 {
		return "", fmt.Errorf("%w: spreadsheet has no worksheets", ErrSheetNotFound)
	}
	if title == "" {
		return titles[0], nil
	}
	for _, t := range titles {
		if strings.EqualFold(t, title) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (have %v)", ErrSheetNotFound, title, titles)
}

// a1 builds a range in A1 notation with the sheet title quoted.
func a1(sheet, cells string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cells
}
