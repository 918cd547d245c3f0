package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

const spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"

// driveQuote escapes a value for a single-quoted Drive query string.
var driveQuote = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

type Options struct {
	SheetName string

	// SheetsEndpoint and DriveEndpoint replace the public API base URLs.
	SheetsEndpoint string
	DriveEndpoint  string

	HTTPClient *http.Client

	// RequestsPerSecond limits outgoing calls; zero or less disables the limit.
	RequestsPerSecond float64

	// MaxRetries is the number of extra attempts of an idempotent call.
	MaxRetries uint64
	RetryBase  time.Duration
}

// Table is the Google Sheets backed record table.
type Table struct {
	opts    Options
	log     logging.Logger
	limiter *rate.Limiter
	ready   bool
}

func NewTable(opts Options, log logging.Logger) *Table {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 250 * time.Millisecond
	}

	limit, burst := rate.Inf, 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	return &Table{
		opts:    opts,
		log:     log.With("component", "remote"),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Init checks the configuration. Calls made before a successful Init fail.
func (t *Table) Init(ctx context.Context) error {
	if strings.TrimSpace(t.opts.SheetName) == "" {
		return errors.New("sheet name is empty")
	}
	for _, ep := range []string{t.opts.SheetsEndpoint, t.opts.DriveEndpoint} {
		if ep == "" {
			continue
		}
		u, err := url.Parse(ep)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q", ep)
		}
	}
	t.ready = true
	t.log.Debug(ctx, "remote table initialized", "sheet", t.opts.SheetName)
	return nil
}

func (t *Table) httpClient(token string) *http.Client {
	base := t.opts.HTTPClient
	return &http.Client{
		Timeout: base.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   base.Transport,
		},
	}
}

func (t *Table) sheets(ctx context.Context, token string) (*sheets.Service, error) {
	if !t.ready {
		return nil, &Error{Kind: ErrUnknown, Message: "remote client not initialized"}
	}
	opts := []option.ClientOption{option.WithHTTPClient(t.httpClient(token))}
	if t.opts.SheetsEndpoint != "" {
		opts = append(opts, option.WithEndpoint(t.opts.SheetsEndpoint))
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, &Error{Kind: ErrUnknown, Message: err.Error(), Err: err}
	}
	return srv, nil
}

func (t *Table) drive(ctx context.Context, token string) (*drive.Service, error) {
	if !t.ready {
		return nil, &Error{Kind: ErrUnknown, Message: "remote client not initialized"}
	}
	opts := []option.ClientOption{option.WithHTTPClient(t.httpClient(token))}
	if t.opts.DriveEndpoint != "" {
		opts = append(opts, option.WithEndpoint(t.opts.DriveEndpoint))
	}
	srv, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, &Error{Kind: ErrUnknown, Message: err.Error(), Err: err}
	}
	return srv, nil
}

// once runs fn a single time after waiting for the rate limiter.
func (t *Table) once(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return &Error{Kind: ErrUnavailable, Message: err.Error(), Err: err}
	}
	return mapError(fn(ctx))
}

// idempotent runs fn and retries it while it fails with ErrUnavailable.
func (t *Table) idempotent(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	b := retry.WithMaxRetries(t.opts.MaxRetries, retry.NewExponential(t.opts.RetryBase))
	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		err := t.once(ctx, fn)
		if errors.Is(err, ErrUnavailable) && ctx.Err() == nil {
			t.log.Warn(ctx, "remote call unavailable", "op", op, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// FindOrCreateDocument returns the id of the first non-trashed spreadsheet
// called name, creating it with the configured tab when there is none.
func (t *Table) FindOrCreateDocument(ctx context.Context, token, name string) (string, bool, error) {
	dsrv, err := t.drive(ctx, token)
	if err != nil {
		return "", false, err
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		driveQuote.Replace(name), spreadsheetMimeType)

	var found string
	err = t.idempotent(ctx, "files.list", func(ctx context.Context) error {
		list, err := dsrv.Files.List().Q(q).Spaces("drive").Fields("files(id,name)").PageSize(1).Context(ctx).Do()
		if err != nil {
			return err
		}
		if len(list.Files) > 0 {
			found = list.Files[0].Id
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if found != "" {
		return found, false, nil
	}

	ssrv, err := t.sheets(ctx, token)
	if err != nil {
		return "", false, err
	}
	var created string
	err = t.once(ctx, func(ctx context.Context) error {
		doc, err := ssrv.Spreadsheets.Create(&sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{Title: name},
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: t.opts.SheetName}},
			},
		}).Context(ctx).Do()
		if err != nil {
			return err
		}
		created = doc.SpreadsheetId
		return nil
	})
	if err != nil {
		return "", false, err
	}
	t.log.Info(ctx, "remote document created", "document_id", created)
	return created, true, nil
}

func (t *Table) sheetID(ctx context.Context, srv *sheets.Service, docID, name string) (int64, bool, error) {
	var (
		id    int64
		found bool
	)
	err := t.idempotent(ctx, "spreadsheets.get", func(ctx context.Context) error {
		doc, err := srv.Spreadsheets.Get(docID).Fields("sheets.properties").Context(ctx).Do()
		if err != nil {
			return err
		}
		for _, s := range doc.Sheets {
			if s.Properties != nil && s.Properties.Title == name {
				id, found = s.Properties.SheetId, true
				return nil
			}
		}
		return nil
	})
	return id, found, err
}

// ResolveTableNumericID maps a tab title to its numeric sheet id.
func (t *Table) ResolveTableNumericID(ctx context.Context, token, docID, name string) (int64, error) {
	srv, err := t.sheets(ctx, token)
	if err != nil {
		return 0, err
	}
	id, found, err := t.sheetID(ctx, srv, docID, name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, &Error{Kind: ErrSchema, Code: http.StatusNotFound, Message: fmt.Sprintf("sheet %q not found", name)}
	}
	return id, nil
}

// EnsureTableSchema adds the tab when it is missing and rewrites its header
// row. Running it again changes nothing.
func (t *Table) EnsureTableSchema(ctx context.Context, token, docID string) error {
	srv, err := t.sheets(ctx, token)
	if err != nil {
		return err
	}

	_, found, err := t.sheetID(ctx, srv, docID, t.opts.SheetName)
	if err != nil {
		return err
	}
	if !found {
		err = t.once(ctx, func(ctx context.Context) error {
			_, err := srv.Spreadsheets.BatchUpdate(docID, &sheets.BatchUpdateSpreadsheetRequest{
				Requests: []*sheets.Request{{
					AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: t.opts.SheetName}},
				}},
			}).Context(ctx).Do()
			return err
		})
		if err != nil {
			return err
		}
		t.log.Info(ctx, "remote sheet added", "document_id", docID, "sheet", t.opts.SheetName)
	}

	header := rowValues(models.Schema)
	return t.idempotent(ctx, "header.update", func(ctx context.Context) error {
		_, err := srv.Spreadsheets.Values.Update(docID, rowRange(t.opts.SheetName, 1), &sheets.ValueRange{
			Values: [][]interface{}{header},
		}).ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
}

// ReadAll returns the header row and the data rows of the tab.
func (t *Table) ReadAll(ctx context.Context, token, docID string) ([]string, [][]string, error) {
	srv, err := t.sheets(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	var values [][]interface{}
	err = t.idempotent(ctx, "values.get", func(ctx context.Context) error {
		vr, err := srv.Spreadsheets.Values.Get(docID, fullRange(t.opts.SheetName)).Context(ctx).Do()
		if err != nil {
			return err
		}
		values = vr.Values
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	if len(values) == 0 {
		return nil, nil, nil
	}

	rows := make([][]string, 0, len(values)-1)
	for _, v := range values[1:] {
		rows = append(rows, cells(v))
	}
	return cells(values[0]), rows, nil
}

// AppendRow adds row after the last data row and returns its position, or 0
// when the response does not tell.
func (t *Table) AppendRow(ctx context.Context, token, docID string, row []string) (int, error) {
	srv, err := t.sheets(ctx, token)
	if err != nil {
		return 0, err
	}

	var pos int
	err = t.once(ctx, func(ctx context.Context) error {
		resp, err := srv.Spreadsheets.Values.Append(docID, fullRange(t.opts.SheetName), &sheets.ValueRange{
			Values: [][]interface{}{rowValues(row)},
		}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		if err != nil {
			return err
		}
		if resp.Updates != nil {
			pos = rowFromRange(resp.Updates.UpdatedRange)
		}
		return nil
	})
	return pos, err
}

// UpdateRow overwrites the row at rowIndex.
func (t *Table) UpdateRow(ctx context.Context, token, docID string, rowIndex int, row []string) error {
	if rowIndex < 2 {
		return &Error{Kind: ErrUnknown, Message: fmt.Sprintf("invalid row index %d", rowIndex)}
	}
	srv, err := t.sheets(ctx, token)
	if err != nil {
		return err
	}
	return t.idempotent(ctx, "values.update", func(ctx context.Context) error {
		_, err := srv.Spreadsheets.Values.Update(docID, rowRange(t.opts.SheetName, rowIndex), &sheets.ValueRange{
			Values: [][]interface{}{rowValues(row)},
		}).ValueInputOption("RAW").Context(ctx).Do()
		return err
	})
}

// DeleteRow removes the row at rowIndex; the rows below move up by one.
func (t *Table) DeleteRow(ctx context.Context, token, docID string, rowIndex int) error {
	if rowIndex < 2 {
		return &Error{Kind: ErrUnknown, Message: fmt.Sprintf("invalid row index %d", rowIndex)}
	}
	sheetID, err := t.ResolveTableNumericID(ctx, token, docID, t.opts.SheetName)
	if err != nil {
		return err
	}
	srv, err := t.sheets(ctx, token)
	if err != nil {
		return err
	}
	return t.once(ctx, func(ctx context.Context) error {
		_, err := srv.Spreadsheets.BatchUpdate(docID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				DeleteDimension: &sheets.DeleteDimensionRequest{
					Range: &sheets.DimensionRange{
						SheetId:         sheetID,
						Dimension:       "ROWS",
						StartIndex:      int64(rowIndex - 1),
						EndIndex:        int64(rowIndex),
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			}},
		}).Context(ctx).Do()
		return err
	})
}

func rowValues(row []string) []interface{} {
	out := make([]interface{}, len(row))
	for i, v := range row {
		out[i] = v
	}
	return out
}

func cells(row []interface{}) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if s, ok := v.(string); ok {
			out[i] = s
		} else {
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
