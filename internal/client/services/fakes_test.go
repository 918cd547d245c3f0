package services

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/remote"
	"github.com/dmitrijs2005/tailorbook/internal/client/storage"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

var (
	errAuth       = &remote.Error{Kind: remote.ErrAuth, Code: 401, Message: "Request had invalid authentication credentials."}
	errPermission = &remote.Error{Kind: remote.ErrPermission, Code: 403, Status: "PERMISSION_DENIED", Message: "The caller does not have permission"}
	errSchema     = &remote.Error{Kind: remote.ErrSchema, Code: 400, Message: "Unable to parse range: 'Measurements'!A:AM"}
	errDown       = &remote.Error{Kind: remote.ErrUnavailable, Code: 503, Message: "The service is currently unavailable."}
	errOdd        = &remote.Error{Kind: remote.ErrUnknown, Code: 400, Message: "Invalid value at 'data.values[0]'"}
)

type fakeProvider struct {
	mu          sync.Mutex
	now         func() time.Time
	initErr     error
	errs        []error
	interactive int
	silent      int
	issued      int
	revoked     []string
	revokeErr   error
}

func (p *fakeProvider) Init(context.Context) error { return p.initErr }

func (p *fakeProvider) Token(_ context.Context, interactive bool) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if interactive {
		p.interactive++
	} else {
		p.silent++
	}
	if len(p.errs) > 0 {
		err := p.errs[0]
		p.errs = p.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	p.issued++
	return &oauth2.Token{
		AccessToken: "tok-" + strconv.Itoa(p.issued),
		Expiry:      p.now().Add(time.Hour),
	}, nil
}

func (p *fakeProvider) Revoke(_ context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, token)
	return p.revokeErr
}

// fakeTable is an in-memory RemoteTable with scripted failures.
type fakeTable struct {
	mu      sync.Mutex
	initErr error
	docID   string
	header  []string
	// stuckHeader, when set, is what EnsureTableSchema leaves in row 1.
	stuckHeader []string
	rows        [][]string
	errs        map[string][]error
	calls       map[string]int
	tokens      []string
}

func newFakeTable() *fakeTable {
	return &fakeTable{errs: map[string][]error{}, calls: map[string]int{}}
}

func (f *fakeTable) failNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[op] = append(f.errs[op], errs...)
}

func (f *fakeTable) seed(recs ...models.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docID = "doc-1"
	f.header = slices.Clone(models.Schema)
	f.rows = nil
	for _, r := range recs {
		f.rows = append(f.rows, models.RecordToRow(r))
	}
}

func (f *fakeTable) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeTable) records() []models.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.RowsToRecords(f.rows)
}

func (f *fakeTable) enter(op, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	f.tokens = append(f.tokens, token)
	if q := f.errs[op]; len(q) > 0 {
		f.errs[op] = q[1:]
		return q[0]
	}
	return nil
}

func (f *fakeTable) Init(context.Context) error { return f.initErr }

func (f *fakeTable) FindOrCreateDocument(_ context.Context, token, _ string) (string, bool, error) {
	if err := f.enter("find", token); err != nil {
		return "", false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.docID != "" {
		return f.docID, false, nil
	}
	f.docID = "doc-1"
	return f.docID, true, nil
}

func (f *fakeTable) EnsureTableSchema(_ context.Context, token, _ string) error {
	if err := f.enter("ensure", token); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.header = slices.Clone(models.Schema)
	if f.stuckHeader != nil {
		f.header = slices.Clone(f.stuckHeader)
	}
	return nil
}

func (f *fakeTable) ReadAll(_ context.Context, token, _ string) ([]string, [][]string, error) {
	if err := f.enter("read", token); err != nil {
		return nil, nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rows := make([][]string, len(f.rows))
	for i, r := range f.rows {
		rows[i] = slices.Clone(r)
	}
	return slices.Clone(f.header), rows, nil
}

func (f *fakeTable) AppendRow(_ context.Context, token, _ string, row []string) (int, error) {
	if err := f.enter("append", token); err != nil {
		return 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, slices.Clone(row))
	return len(f.rows) + 1, nil
}

func (f *fakeTable) UpdateRow(_ context.Context, token, _ string, rowIndex int, row []string) error {
	if err := f.enter("update", token); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rowIndex < 2 || rowIndex-2 >= len(f.rows) {
		return errors.New("row out of range")
	}
	f.rows[rowIndex-2] = slices.Clone(row)
	return nil
}

func (f *fakeTable) DeleteRow(_ context.Context, token, _ string, rowIndex int) error {
	if err := f.enter("delete", token); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rowIndex < 2 || rowIndex-2 >= len(f.rows) {
		return errors.New("row out of range")
	}
	f.rows = slices.Delete(f.rows, rowIndex-2, rowIndex-1)
	return nil
}

type env struct {
	clock time.Time
	repos *storage.Repositories
	prov  *fakeProvider
	table *fakeTable
	sess  *SessionManager
	ctl   *Controller
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repos, err := storage.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repos.Close() })

	e := &env{
		clock: time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local),
		repos: repos,
		table: newFakeTable(),
	}
	e.prov = &fakeProvider{now: e.now}
	e.sess = NewSessionManager(repos.Metadata, e.prov, logging.Discard())
	e.sess.now = e.now
	e.ctl = NewController(e.sess, e.table, repos.Records, "Tailor Measurements", logging.Discard())
	e.ctl.now = e.now
	return e
}

func (e *env) now() time.Time { return e.clock }

// storeSession persists a session that Restore will pick up.
func (e *env) storeSession(t *testing.T, token string, expiry time.Time) {
	t.Helper()
	require.NoError(t, e.repos.Metadata.SetMany(context.Background(), map[string][]byte{
		keySessionToken:    []byte(token),
		keySessionExpiry:   []byte(strconv.FormatInt(expiry.UnixMilli(), 10)),
		keySessionSignedIn: []byte("true"),
	}))
}

func (e *env) storeLocal(t *testing.T, recs ...models.Record) {
	t.Helper()
	require.NoError(t, e.repos.Records.Save(context.Background(), recs))
}

func (e *env) localRecords(t *testing.T) []models.Record {
	t.Helper()
	recs, err := e.repos.Records.Load(context.Background())
	require.NoError(t, err)
	return recs
}

// startRemote starts the controller with a valid restored session.
func (e *env) startRemote(t *testing.T) {
	t.Helper()
	e.storeSession(t, "tok-restored", e.clock.Add(time.Hour))
	e.ctl.Start(context.Background())
	require.Equal(t, BackendRemote, e.ctl.View().Backend, e.ctl.View().Status)
}

func rec(id, name, date string) models.Record {
	return models.Record{ID: id, Name: name, MeasurementDate: date, Unit: models.UnitCM}
}

func ids(recs []models.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}
