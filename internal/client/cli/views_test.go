package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/services"
)

func TestListView_Empty(t *testing.T) {
	noTerm(t)
	var out bytes.Buffer
	listView(&out, nil)
	assert.Equal(t, "No records.\n", out.String())
}

func TestListView_Rows(t *testing.T) {
	noTerm(t)
	var out bytes.Buffer

	listView(&out, sampleRecords())

	s := out.String()
	assert.Contains(t, s, "NAME")
	assert.Contains(t, s, "0190aaaa-0001")
	assert.Contains(t, s, "0190bbbb-0002")
	assert.Contains(t, s, "inch")
	assert.Less(t, strings.Index(s, "Alice"), strings.Index(s, "Bob"))
	assert.Contains(t, s, "2 record(s)")
}

func TestShowView_RowIndex(t *testing.T) {
	var out bytes.Buffer
	showView(&out, models.Record{ID: "x", Name: "Eve", RowIndex: 7})
	assert.Contains(t, out.String(), "Eve")
	assert.Contains(t, out.String(), "Row")
	assert.Contains(t, out.String(), "7")

	out.Reset()
	showView(&out, models.Record{ID: "x"})
	assert.NotContains(t, out.String(), "Row")
}

func TestStatusLine(t *testing.T) {
	var out bytes.Buffer
	statusLine(&out, services.View{})
	assert.Empty(t, out.String())

	statusLine(&out, services.View{Status: "Saved.", StatusKind: services.StatusInfo})
	assert.Contains(t, out.String(), "Saved.")
}

func TestPendingText(t *testing.T) {
	assert.Equal(t, `save "Ann"`, pendingText(services.PendingOp{Kind: services.OpSave, Record: models.Record{Name: "Ann"}}))
	assert.Equal(t, "save", pendingText(services.PendingOp{Kind: services.OpSave}))
	assert.Equal(t, "delete r1", pendingText(services.PendingOp{Kind: services.OpDelete, Record: models.Record{ID: "r1"}}))
	assert.Equal(t, "load", pendingText(services.PendingOp{Kind: services.OpLoad}))
}

func TestSessionText(t *testing.T) {
	assert.Equal(t, "signed out", sessionText(services.View{Session: services.SignedOut}))
	assert.Equal(t, "signed out (session expired)",
		sessionText(services.View{Session: services.SignedOut, EndReason: services.EndExpired}))
	assert.Equal(t, "signed out (signed out by user)",
		sessionText(services.View{Session: services.SignedOut, EndReason: services.EndRevoked}))
	assert.Equal(t, "signed in (until 2024-06-01 11:00)",
		sessionText(services.View{Session: services.SignedIn, Expiry: time.Date(2024, 6, 1, 11, 0, 0, 0, time.Local)}))
	assert.Equal(t, "authenticating", sessionText(services.View{Session: services.Authenticating, EndReason: services.EndExpired}))
}
