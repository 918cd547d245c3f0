// Package remotetest provides an in-memory stand-in for the subset of the
// Google Sheets and Drive REST APIs used by package remote.
package remotetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

type sheet struct {
	id    int64
	title string
	rows  [][]string
}

type document struct {
	id      string
	name    string
	trashed bool
	sheets  []*sheet
}

type failure struct {
	code    int
	status  string
	message string
	times   int
}

// Server fakes Sheets and Drive. Requests must carry a bearer token accepted
// by Authorize.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	docs     []*document
	nextDoc  int
	nextTab  int64
	tokens   map[string]bool
	denied   map[string]bool
	failures map[string][]*failure
	calls    map[string]int
}

func NewServer() *Server {
	s := &Server{
		tokens:   map[string]bool{},
		denied:   map[string]bool{},
		failures: map[string][]*failure{},
		calls:    map[string]int{},
		nextTab:  100,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// SheetsEndpoint and DriveEndpoint are the base URLs to configure clients with.
func (s *Server) SheetsEndpoint() string { return s.URL + "/" }
func (s *Server) DriveEndpoint() string  { return s.URL + "/drive/v3/" }

// Authorize accepts token from now on.
func (s *Server) Authorize(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = true
	delete(s.denied, token)
}

// Revoke makes token fail with 401 UNAUTHENTICATED.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// Deny makes token fail with 403 PERMISSION_DENIED.
func (s *Server) Deny(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denied[token] = true
}

// Fail makes the next times calls of op answer with the given error. Ops are
// files.list, spreadsheets.create, spreadsheets.get, batchUpdate, values.get,
// values.update and values.append.
func (s *Server) Fail(op string, code int, status, message string, times int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], &failure{code: code, status: status, message: message, times: times})
}

// Calls reports how many requests op has received, failed ones included.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddDocument stores a spreadsheet with one tab holding rows and returns its id.
func (s *Server) AddDocument(name, tab string, rows [][]string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.newDocument(name)
	if tab != "" {
		d.sheets = append(d.sheets, s.newSheet(tab))
		d.sheets[0].rows = cloneRows(rows)
	}
	return d.id
}

// TrashDocument marks the document as trashed.
func (s *Server) TrashDocument(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.doc(id); d != nil {
		d.trashed = true
	}
}

// DeleteSheet removes a tab.
func (s *Server) DeleteSheet(docID, tab string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.doc(docID)
	if d == nil {
		return
	}
	for i, sh := range d.sheets {
		if sh.title == tab {
			d.sheets = append(d.sheets[:i], d.sheets[i+1:]...)
			return
		}
	}
}

// Rows returns a copy of a tab's rows, header included.
func (s *Server) Rows(docID, tab string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh := s.sheet(docID, tab); sh != nil {
		return cloneRows(sh.rows)
	}
	return nil
}

// SetRows replaces a tab's rows.
func (s *Server) SetRows(docID, tab string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sh := s.sheet(docID, tab); sh != nil {
		sh.rows = cloneRows(rows)
	}
}

// Documents returns the ids of all stored spreadsheets named name.
func (s *Server) Documents(name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, d := range s.docs {
		if d.name == name {
			ids = append(ids, d.id)
		}
	}
	return ids
}

func (s *Server) newDocument(name string) *document {
	s.nextDoc++
	d := &document{id: fmt.Sprintf("doc-%d", s.nextDoc), name: name}
	s.docs = append(s.docs, d)
	return d
}

func (s *Server) newSheet(title string) *sheet {
	s.nextTab++
	return &sheet{id: s.nextTab, title: title}
}

func (s *Server) doc(id string) *document {
	for _, d := range s.docs {
		if d.id == id {
			return d
		}
	}
	return nil
}

func (s *Server) sheet(docID, title string) *sheet {
	d := s.doc(docID)
	if d == nil {
		return nil
	}
	for _, sh := range d.sheets {
		if sh.title == title {
			return sh
		}
	}
	return nil
}

func cloneRows(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, status, message string) {
	writeJSON(w, code, map[string]any{
		"error": map[string]any{"code": code, "message": message, "status": status},
	})
}

func notFound(w http.ResponseWriter) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Requested entity was not found.")
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	op, docID, rng := route(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if op == "" {
		http.NotFound(w, r)
		return
	}
	s.calls[op]++

	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !s.tokens[token] {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "Request had invalid authentication credentials.")
		return
	}
	if s.denied[token] {
		writeError(w, http.StatusForbidden, "PERMISSION_DENIED", "The caller does not have permission")
		return
	}
	if q := s.failures[op]; len(q) > 0 {
		f := q[0]
		f.times--
		if f.times <= 0 {
			s.failures[op] = q[1:]
		}
		writeError(w, f.code, f.status, f.message)
		return
	}

	switch op {
	case "files.list":
		s.filesList(w, r)
	case "spreadsheets.create":
		s.create(w, r)
	case "spreadsheets.get":
		s.get(w, docID)
	case "batchUpdate":
		s.batchUpdate(w, r, docID)
	case "values.get":
		s.valuesGet(w, docID, rng)
	case "values.update":
		s.valuesUpdate(w, r, docID, rng)
	case "values.append":
		s.valuesAppend(w, r, docID, rng)
	}
}

func route(r *http.Request) (op, docID, rng string) {
	p := r.URL.Path
	if p == "/drive/v3/files" && r.Method == http.MethodGet {
		return "files.list", "", ""
	}
	rest, ok := strings.CutPrefix(p, "/v4/spreadsheets")
	if !ok {
		return "", "", ""
	}
	if rest == "" && r.Method == http.MethodPost {
		return "spreadsheets.create", "", ""
	}
	rest = strings.TrimPrefix(rest, "/")

	if id, vals, ok := strings.Cut(rest, "/values/"); ok {
		switch {
		case r.Method == http.MethodGet:
			return "values.get", id, vals
		case r.Method == http.MethodPut:
			return "values.update", id, vals
		case r.Method == http.MethodPost && strings.HasSuffix(vals, ":append"):
			return "values.append", id, strings.TrimSuffix(vals, ":append")
		}
		return "", "", ""
	}
	if id, ok := strings.CutSuffix(rest, ":batchUpdate"); ok && r.Method == http.MethodPost {
		return "batchUpdate", id, ""
	}
	if r.Method == http.MethodGet {
		return "spreadsheets.get", rest, ""
	}
	return "", "", ""
}

var (
	nameRe   = regexp.MustCompile(`name = '((?:[^'\\]|\\.)*)'`)
	escapeRe = regexp.MustCompile(`\\(.)`)
)

func (s *Server) filesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	m := nameRe.FindStringSubmatch(q)
	if m == nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid Value")
		return
	}
	name := escapeRe.ReplaceAllString(m[1], "$1")

	files := []map[string]string{}
	for _, d := range s.docs {
		if d.name == name && !d.trashed {
			files = append(files, map[string]string{"id": d.id, "name": d.name})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

type sheetProps struct {
	SheetID int64  `json:"sheetId"`
	Title   string `json:"title"`
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
		Sheets []struct {
			Properties sheetProps `json:"properties"`
		} `json:"sheets"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}
	d := s.newDocument(body.Properties.Title)
	for _, sh := range body.Sheets {
		d.sheets = append(d.sheets, s.newSheet(sh.Properties.Title))
	}
	if len(d.sheets) == 0 {
		d.sheets = append(d.sheets, s.newSheet("Sheet1"))
	}
	writeJSON(w, http.StatusOK, s.describe(d))
}

func (s *Server) describe(d *document) map[string]any {
	sheets := make([]map[string]any, 0, len(d.sheets))
	for _, sh := range d.sheets {
		sheets = append(sheets, map[string]any{"properties": sheetProps{SheetID: sh.id, Title: sh.title}})
	}
	return map[string]any{
		"spreadsheetId": d.id,
		"properties":    map[string]any{"title": d.name},
		"sheets":        sheets,
	}
}

func (s *Server) get(w http.ResponseWriter, docID string) {
	d := s.doc(docID)
	if d == nil {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.describe(d))
}

func (s *Server) batchUpdate(w http.ResponseWriter, r *http.Request, docID string) {
	d := s.doc(docID)
	if d == nil {
		notFound(w)
		return
	}
	var body struct {
		Requests []struct {
			AddSheet *struct {
				Properties sheetProps `json:"properties"`
			} `json:"addSheet"`
			DeleteDimension *struct {
				Range struct {
					SheetID    int64  `json:"sheetId"`
					Dimension  string `json:"dimension"`
					StartIndex int64  `json:"startIndex"`
					EndIndex   int64  `json:"endIndex"`
				} `json:"range"`
			} `json:"deleteDimension"`
		} `json:"requests"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", err.Error())
		return
	}

	for _, req := range body.Requests {
		switch {
		case req.AddSheet != nil:
			title := req.AddSheet.Properties.Title
			for _, sh := range d.sheets {
				if sh.title == title {
					writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT",
						fmt.Sprintf("Invalid requests[0].addSheet: A sheet with the name %q already exists.", title))
					return
				}
			}
			d.sheets = append(d.sheets, s.newSheet(title))
		case req.DeleteDimension != nil:
			rg := req.DeleteDimension.Range
			var target *sheet
			for _, sh := range d.sheets {
				if sh.id == rg.SheetID {
					target = sh
				}
			}
			if target == nil || rg.Dimension != "ROWS" || rg.StartIndex < 0 || rg.EndIndex <= rg.StartIndex {
				writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid requests[0].deleteDimension")
				return
			}
			start, end := int(rg.StartIndex), int(rg.EndIndex)
			if start < len(target.rows) {
				end = min(end, len(target.rows))
				target.rows = append(target.rows[:start], target.rows[end:]...)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": d.id, "replies": []any{map[string]any{}}})
}

var cellRe = regexp.MustCompile(`^[A-Z]+(\d*)`)

// parseRange splits an A1 range into its tab title and first row, 0 when
// the range spans whole columns.
func parseRange(rng string) (string, int, bool) {
	i := strings.LastIndex(rng, "!")
	if i < 0 {
		return "", 0, false
	}
	title, cellsPart := rng[:i], rng[i+1:]
	if strings.HasPrefix(title, "'") && strings.HasSuffix(title, "'") && len(title) >= 2 {
		title = strings.ReplaceAll(title[1:len(title)-1], "''", "'")
	}
	m := cellRe.FindStringSubmatch(cellsPart)
	if m == nil {
		return "", 0, false
	}
	row := 0
	if m[1] != "" {
		row, _ = strconv.Atoi(m[1])
	}
	return title, row, true
}

func (s *Server) resolveRange(w http.ResponseWriter, docID, rng string) (*sheet, int, bool) {
	d := s.doc(docID)
	if d == nil {
		notFound(w)
		return nil, 0, false
	}
	title, row, ok := parseRange(rng)
	sh := s.sheet(docID, title)
	if !ok || sh == nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Unable to parse range: "+rng)
		return nil, 0, false
	}
	return sh, row, true
}

func trimRow(row []string) []string {
	n := len(row)
	for n > 0 && row[n-1] == "" {
		n--
	}
	return row[:n]
}

func (s *Server) valuesGet(w http.ResponseWriter, docID, rng string) {
	sh, _, ok := s.resolveRange(w, docID, rng)
	if !ok {
		return
	}
	values := make([][]string, 0, len(sh.rows))
	for _, row := range sh.rows {
		values = append(values, trimRow(row))
	}
	for len(values) > 0 && len(values[len(values)-1]) == 0 {
		values = values[:len(values)-1]
	}
	resp := map[string]any{"range": rng, "majorDimension": "ROWS"}
	if len(values) > 0 {
		resp["values"] = values
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeValues(r *http.Request) ([][]string, error) {
	var body struct {
		Values [][]string `json:"values"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	return body.Values, err
}

func (s *Server) valuesUpdate(w http.ResponseWriter, r *http.Request, docID, rng string) {
	sh, row, ok := s.resolveRange(w, docID, rng)
	if !ok {
		return
	}
	values, err := decodeValues(r)
	if err != nil || row < 1 {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid values")
		return
	}
	for i, v := range values {
		idx := row - 1 + i
		for len(sh.rows) <= idx {
			sh.rows = append(sh.rows, nil)
		}
		sh.rows[idx] = append([]string(nil), v...)
	}
	writeJSON(w, http.StatusOK, map[string]any{"spreadsheetId": docID, "updatedRange": rng, "updatedRows": len(values)})
}

func (s *Server) valuesAppend(w http.ResponseWriter, r *http.Request, docID, rng string) {
	sh, _, ok := s.resolveRange(w, docID, rng)
	if !ok {
		return
	}
	values, err := decodeValues(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Invalid values")
		return
	}

	last := len(sh.rows)
	for last > 0 && len(trimRow(sh.rows[last-1])) == 0 {
		last--
	}
	sh.rows = sh.rows[:last]
	first := last + 1
	for _, v := range values {
		sh.rows = append(sh.rows, append([]string(nil), v...))
	}

	title := "'" + strings.ReplaceAll(sh.title, "'", "''") + "'"
	updated := fmt.Sprintf("%s!A%d:AM%d", title, first, first+len(values)-1)
	writeJSON(w, http.StatusOK, map[string]any{
		"spreadsheetId": docID,
		"tableRange":    fmt.Sprintf("%s!A1:AM%d", title, last),
		"updates": map[string]any{
			"spreadsheetId": docID,
			"updatedRange":  updated,
			"updatedRows":   len(values),
		},
	})
}
