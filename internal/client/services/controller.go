package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/remote"
	"github.com/dmitrijs2005/tailorbook/internal/client/repositories/records"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

const (
	MsgSessionExpired   = "Session expired, please sign in again."
	MsgPermission       = "Google did not grant access to the spreadsheet. Sign in again and allow access to retry."
	MsgSyncError        = "Sync error: the remote table could not be repaired."
	MsgRemoteDown       = "Remote storage is unavailable, showing local records."
	MsgOffline          = "Remote storage could not be initialized, working offline."
	MsgLocalReadFailed  = "Local records could not be read."
	MsgLocalWriteFailed = "Local records could not be written."
)

type Backend int

const (
	BackendInitializing Backend = iota
	BackendRemote
	BackendLocal
)

func (b Backend) String() string {
	switch b {
	case BackendRemote:
		return "remote"
	case BackendLocal:
		return "local"
	default:
		return "initializing"
	}
}

type StatusKind int

const (
	StatusNone StatusKind = iota
	StatusInfo
	StatusWarn
	StatusError
)

type OpKind int

const (
	OpSave OpKind = iota + 1
	OpDelete
	OpLoad
)

func (k OpKind) String() string {
	switch k {
	case OpSave:
		return "save"
	case OpDelete:
		return "delete"
	case OpLoad:
		return "load"
	default:
		return "unknown"
	}
}

// PendingOp is an operation waiting for a successful token request.
type PendingOp struct {
	Kind   OpKind
	Record models.Record
	ID     string
}

// View is a snapshot of the controller state for rendering.
type View struct {
	Records    []models.Record
	Backend    Backend
	Loading    bool
	Status     string
	StatusKind StatusKind
	Session    SessionState
	// EndReason explains a signed-out Session; Expiry is set while signed in.
	EndReason  EndReason
	Expiry     time.Time
	DocumentID string
	Pending    *PendingOp
}

// Controller routes record operations to the remote table or the local
// store. Exported methods run one at a time.
type Controller struct {
	session *SessionManager
	table   RemoteTable
	local   records.Repository
	log     logging.Logger
	docName string
	now     func() time.Time

	// act serializes top-level actions.
	act        sync.Mutex
	continuing bool

	mu         sync.RWMutex
	pending    *PendingOp
	backend    Backend
	records    []models.Record
	docID      string
	loading    bool
	status     string
	statusKind StatusKind
}

func NewController(session *SessionManager, table RemoteTable, local records.Repository, docName string, log logging.Logger) *Controller {
	return &Controller{
		session: session,
		table:   table,
		local:   local,
		log:     log.With("component", "controller"),
		docName: docName,
		now:     time.Now,
		records: []models.Record{},
	}
}

// View returns the current records in display order with the status line.
func (c *Controller) View() View {
	c.mu.RLock()
	defer c.mu.RUnlock()

	recs := slices.Clone(c.records)
	models.SortRecords(recs)
	var pending *PendingOp
	if c.pending != nil {
		op := *c.pending
		pending = &op
	}
	v := View{
		Records:    recs,
		Backend:    c.backend,
		Loading:    c.loading,
		Status:     c.status,
		StatusKind: c.statusKind,
		Session:    c.session.State(),
		DocumentID: c.docID,
		Pending:    pending,
	}
	switch v.Session {
	case SignedIn:
		v.Expiry = c.session.Expiry()
	case SignedOut:
		v.EndReason = c.session.Reason()
	}
	return v
}

// Find returns the record with the given id.
func (c *Controller) Find(id string) (models.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.Record{}, false
}

// Pending returns the operation waiting for a sign-in, if any.
func (c *Controller) Pending() *PendingOp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.pending == nil {
		return nil
	}
	op := *c.pending
	return &op
}

func (c *Controller) setPending(op *PendingOp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = op
}

func (c *Controller) takePending() *PendingOp {
	c.mu.Lock()
	defer c.mu.Unlock()
	op := c.pending
	c.pending = nil
	return op
}

func (c *Controller) begin() func() {
	c.act.Lock()
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
		c.act.Unlock()
	}
}

func (c *Controller) setStatus(kind StatusKind, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status, c.statusKind = msg, kind
}

func (c *Controller) hasStatus() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status != ""
}

func (c *Controller) setRecords(b Backend, recs []models.Record) {
	if recs == nil {
		recs = []models.Record{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.backend, c.records = b, recs
}

func (c *Controller) currentBackend() Backend {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.backend
}

func (c *Controller) currentRecords() []models.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.records)
}

func (c *Controller) documentID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.docID
}

func (c *Controller) setDocumentID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docID = id
}

// Start restores the session, initializes the remote client and the token
// provider side by side, then loads the records from the best backend.
func (c *Controller) Start(ctx context.Context) {
	defer c.begin()()

	c.session.Restore(ctx)

	var remoteErr, authErr error
	var g errgroup.Group
	g.Go(func() error {
		remoteErr = c.table.Init(ctx)
		return nil
	})
	g.Go(func() error {
		authErr = c.session.Init(ctx)
		return nil
	})
	_ = g.Wait()

	if authErr != nil {
		c.log.Warn(ctx, "sign-in is unavailable", "error", authErr)
	}
	if remoteErr != nil {
		c.log.Warn(ctx, "remote client init failed", "error", remoteErr)
		c.loadLocal(ctx)
		c.setStatus(StatusWarn, MsgOffline)
		return
	}
	c.session.MarkClientReady()
	c.load(ctx)
}

// Reload fetches the whole collection again from the current best backend.
func (c *Controller) Reload(ctx context.Context) {
	defer c.begin()()
	c.setStatus(StatusNone, "")

	if c.session.NeedsReauth() {
		c.gate(ctx, PendingOp{Kind: OpLoad})
		return
	}
	c.load(ctx)
}

// SignIn runs an interactive token request and, on success, either resumes
// the pending operation or reloads from the remote table.
func (c *Controller) SignIn(ctx context.Context) {
	defer c.begin()()
	c.setStatus(StatusNone, "")
	c.reauth(ctx)
}

// SignOut ends the session and switches to the local store.
func (c *Controller) SignOut(ctx context.Context) {
	defer c.begin()()

	c.session.SignOut(ctx)
	c.setPending(nil)
	c.setDocumentID("")
	c.loadLocal(ctx)
	c.setStatus(StatusInfo, "Signed out.")
}

// Save stores r, creating it when it has no id yet.
func (c *Controller) Save(ctx context.Context, r models.Record) {
	defer c.begin()()
	c.setStatus(StatusNone, "")
	c.save(ctx, r)
}

// Delete removes the record with the given id.
func (c *Controller) Delete(ctx context.Context, id string) {
	defer c.begin()()
	c.setStatus(StatusNone, "")

	r, ok := c.Find(id)
	if !ok {
		c.setStatus(StatusWarn, fmt.Sprintf("No record with id %q.", id))
		return
	}
	c.delete(ctx, r)
}

// gate stores op and asks for a new token interactively.
func (c *Controller) gate(ctx context.Context, op PendingOp) {
	c.setPending(&op)
	c.reauth(ctx)
}

// reauth requests a token interactively. On success the pending operation,
// or a plain load when there is none, runs once. On failure the pending
// operation is kept for the next sign-in.
func (c *Controller) reauth(ctx context.Context) {
	if err := c.session.RequestToken(ctx, true); err != nil {
		c.loadLocal(ctx)
		msg := fmt.Sprintf("Sign-in failed: %v", err)
		if p := c.Pending(); p != nil && p.Kind != OpLoad {
			msg += " The last change will be sent after the next sign-in."
		}
		c.setStatus(StatusError, msg)
		return
	}

	op := c.takePending()
	resumed := op != nil
	if !resumed {
		op = &PendingOp{Kind: OpLoad}
	}

	c.continuing = true
	defer func() { c.continuing = false }()

	switch op.Kind {
	case OpSave:
		c.save(ctx, op.Record)
	case OpDelete:
		c.delete(ctx, op.Record)
	case OpLoad:
		c.load(ctx)
	}

	switch {
	case c.hasStatus():
	case !c.session.Usable():
		c.setStatus(StatusWarn, "Signed in, but remote storage is unavailable.")
	case !resumed:
		c.setStatus(StatusInfo, "Signed in.")
	}
}

func (c *Controller) load(ctx context.Context) {
	if !c.session.Usable() {
		c.loadLocal(ctx)
		return
	}
	if err := c.loadRemote(ctx); err != nil {
		c.fail(ctx, PendingOp{Kind: OpLoad}, err)
	}
}

// loadLocal replaces the collection with whatever the local store holds.
func (c *Controller) loadLocal(ctx context.Context) {
	recs, err := c.local.Load(ctx)
	c.setRecords(BackendLocal, recs)
	if err != nil {
		c.log.Warn(ctx, "local load failed", "error", err)
		c.setStatus(StatusWarn, MsgLocalReadFailed)
	}
	c.log.Debug(ctx, "records loaded", "backend", "local", "count", len(recs))
}

func (c *Controller) ensureDocument(ctx context.Context, token string) (string, error) {
	if id := c.documentID(); id != "" {
		return id, nil
	}
	id, created, err := c.table.FindOrCreateDocument(ctx, token, c.docName)
	if err != nil {
		return "", err
	}
	if created {
		if err := c.table.EnsureTableSchema(ctx, token, id); err != nil {
			return "", err
		}
	}
	c.setDocumentID(id)
	return id, nil
}

// withSchemaRetry runs fn and, when it reports a missing table, repairs the
// table and runs fn exactly once more.
func (c *Controller) withSchemaRetry(ctx context.Context, token, docID string, fn func() error) error {
	err := fn()
	if !errors.Is(err, remote.ErrSchema) {
		return err
	}
	c.log.Info(ctx, "remote table missing, repairing", "document_id", docID)
	if err := c.table.EnsureTableSchema(ctx, token, docID); err != nil {
		return err
	}
	return fn()
}

func (c *Controller) loadRemote(ctx context.Context) error {
	token := c.session.Token()
	docID, err := c.ensureDocument(ctx, token)
	if err != nil {
		return err
	}

	var (
		header []string
		rows   [][]string
	)
	read := func() error {
		var err error
		header, rows, err = c.table.ReadAll(ctx, token, docID)
		return err
	}

	if err := c.withSchemaRetry(ctx, token, docID, read); err != nil {
		return err
	}
	if !models.HeaderMatches(header) {
		c.log.Warn(ctx, "remote header mismatch, repairing", "document_id", docID)
		if err := c.table.EnsureTableSchema(ctx, token, docID); err != nil {
			return err
		}
		if err := read(); err != nil {
			return err
		}
		if !models.HeaderMatches(header) {
			c.log.Warn(ctx, "remote header still differs, accepting it", "document_id", docID)
		}
	}

	recs := models.RowsToRecords(rows)
	c.setRecords(BackendRemote, recs)
	c.log.Debug(ctx, "records loaded", "backend", "remote", "count", len(recs))
	return nil
}

func (c *Controller) save(ctx context.Context, r models.Record) {
	if err := r.Normalize(c.now()); err != nil {
		c.setStatus(StatusError, fmt.Sprintf("Record not saved: %v", err))
		return
	}

	if !c.session.Usable() {
		if c.session.NeedsReauth() && !c.continuing {
			c.gate(ctx, PendingOp{Kind: OpSave, Record: r})
			return
		}
		c.saveLocal(ctx, r)
		return
	}

	if err := c.saveRemote(ctx, r); err != nil {
		c.fail(ctx, PendingOp{Kind: OpSave, Record: r}, err)
		return
	}
	if !c.hasStatus() {
		c.setStatus(StatusInfo, "Saved.")
	}
}

func (c *Controller) saveRemote(ctx context.Context, r models.Record) error {
	token := c.session.Token()
	docID, err := c.ensureDocument(ctx, token)
	if err != nil {
		return err
	}

	write := func() error {
		row := models.RecordToRow(r)
		if r.RowIndex > 0 {
			return c.table.UpdateRow(ctx, token, docID, r.RowIndex, row)
		}
		pos, err := c.table.AppendRow(ctx, token, docID, row)
		if err == nil && pos > 0 {
			r.RowIndex = pos
		}
		return err
	}
	if err := c.withSchemaRetry(ctx, token, docID, write); err != nil {
		return err
	}
	c.log.Info(ctx, "record saved", "backend", "remote", "id", r.ID, "row", r.RowIndex)

	if err := c.loadRemote(ctx); err != nil {
		c.fail(ctx, PendingOp{Kind: OpLoad}, err)
	}
	return nil
}

// writeLocal applies mutate to the local collection and persists it.
func (c *Controller) writeLocal(ctx context.Context, mutate func([]models.Record) []models.Record) []models.Record {
	base := c.currentRecords()
	if c.currentBackend() != BackendLocal {
		var err error
		if base, err = c.local.Load(ctx); err != nil {
			c.log.Warn(ctx, "local load failed", "error", err)
		}
	}

	next := mutate(base)
	if err := c.local.Save(ctx, next); err != nil {
		c.log.Warn(ctx, "local save failed", "error", err)
		c.setStatus(StatusWarn, MsgLocalWriteFailed)
	}
	return next
}

func (c *Controller) saveLocal(ctx context.Context, r models.Record) {
	r.RowIndex = 0
	next := c.writeLocal(ctx, func(recs []models.Record) []models.Record {
		if i := slices.IndexFunc(recs, func(x models.Record) bool { return x.ID == r.ID }); i >= 0 {
			recs[i] = r
			return recs
		}
		return append(recs, r)
	})
	c.setRecords(BackendLocal, next)
	c.log.Info(ctx, "record saved", "backend", "local", "id", r.ID)
	if !c.hasStatus() {
		c.setStatus(StatusInfo, "Saved locally.")
	}
}

func (c *Controller) delete(ctx context.Context, r models.Record) {
	if !c.session.Usable() {
		if c.session.NeedsReauth() && !c.continuing && r.RowIndex > 0 {
			c.gate(ctx, PendingOp{Kind: OpDelete, Record: r, ID: r.ID})
			return
		}
		c.deleteLocal(ctx, r.ID)
		return
	}
	if r.RowIndex <= 0 {
		c.deleteLocal(ctx, r.ID)
		return
	}

	if err := c.deleteRemote(ctx, r); err != nil {
		c.fail(ctx, PendingOp{Kind: OpDelete, Record: r, ID: r.ID}, err)
		return
	}
	if !c.hasStatus() {
		c.setStatus(StatusInfo, "Deleted.")
	}
}

func (c *Controller) deleteRemote(ctx context.Context, r models.Record) error {
	token := c.session.Token()
	docID, err := c.ensureDocument(ctx, token)
	if err != nil {
		return err
	}

	del := func() error {
		return c.table.DeleteRow(ctx, token, docID, r.RowIndex)
	}
	if err := c.withSchemaRetry(ctx, token, docID, del); err != nil {
		return err
	}
	c.log.Info(ctx, "record deleted", "backend", "remote", "id", r.ID, "row", r.RowIndex)

	if err := c.loadRemote(ctx); err != nil {
		c.fail(ctx, PendingOp{Kind: OpLoad}, err)
	}
	return nil
}

func (c *Controller) deleteLocal(ctx context.Context, id string) {
	drop := func(recs []models.Record) []models.Record {
		return slices.DeleteFunc(recs, func(x models.Record) bool { return x.ID == id })
	}

	b := c.currentBackend()
	next := c.writeLocal(ctx, drop)
	if b == BackendLocal {
		c.setRecords(BackendLocal, next)
	} else {
		c.setRecords(b, drop(c.currentRecords()))
	}
	c.log.Info(ctx, "record deleted", "backend", "local", "id", id)
	if !c.hasStatus() {
		c.setStatus(StatusInfo, "Deleted locally.")
	}
}

// fail folds a remote failure of op into the controller state.
func (c *Controller) fail(ctx context.Context, op PendingOp, err error) {
	c.log.Warn(ctx, "remote operation failed", "op", op.Kind.String(), "error", err)
	isLoad := op.Kind == OpLoad

	switch {
	case errors.Is(err, remote.ErrAuth):
		c.session.ForceExpire(ctx)
		c.setPending(nil)
		c.setDocumentID("")
		c.loadLocal(ctx)
		c.setStatus(StatusWarn, MsgSessionExpired)

	case errors.Is(err, remote.ErrPermission):
		if c.continuing {
			if isLoad {
				c.loadLocal(ctx)
			}
			c.setStatus(StatusError, MsgPermission)
			return
		}
		c.gate(ctx, op)

	case errors.Is(err, remote.ErrSchema):
		if isLoad {
			c.setDocumentID("")
			c.loadLocal(ctx)
		}
		c.setStatus(StatusError, MsgSyncError)

	case errors.Is(err, remote.ErrUnavailable):
		if isLoad {
			c.loadLocal(ctx)
			c.setStatus(StatusWarn, MsgRemoteDown)
			return
		}
		c.setStatus(StatusError, providerMessage(err))

	default:
		if isLoad {
			c.loadLocal(ctx)
		}
		c.setStatus(StatusError, providerMessage(err))
	}
}

func providerMessage(err error) string {
	var re *remote.Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return err.Error()
}
