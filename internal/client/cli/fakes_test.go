package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/services"
	"github.com/dmitrijs2005/tailorbook/internal/logging"
)

type fakeController struct {
	view    services.View
	calls   []string
	saved   []models.Record
	deleted []string
}

func (f *fakeController) Start(ctx context.Context)   { f.calls = append(f.calls, "start") }
func (f *fakeController) Reload(ctx context.Context)  { f.calls = append(f.calls, "reload") }
func (f *fakeController) SignIn(ctx context.Context)  { f.calls = append(f.calls, "signin") }
func (f *fakeController) SignOut(ctx context.Context) { f.calls = append(f.calls, "signout") }

func (f *fakeController) Save(ctx context.Context, r models.Record) {
	f.calls = append(f.calls, "save")
	f.saved = append(f.saved, r)
	f.view.Status, f.view.StatusKind = "Saved.", services.StatusInfo
}

func (f *fakeController) Delete(ctx context.Context, id string) {
	f.calls = append(f.calls, "delete")
	f.deleted = append(f.deleted, id)
	f.view.Status, f.view.StatusKind = "Deleted.", services.StatusInfo
}

func (f *fakeController) View() services.View { return f.view }

func (f *fakeController) Find(id string) (models.Record, bool) {
	for _, r := range f.view.Records {
		if r.ID == id {
			return r, true
		}
	}
	return models.Record{}, false
}

func newTestApp(t *testing.T, ctl *fakeController, input string) (*App, *bytes.Buffer) {
	t.Helper()
	noTerm(t)
	var out bytes.Buffer
	return newApp(ctl, logging.Discard(), strings.NewReader(input), &out), &out
}

func noTerm(t *testing.T) {
	t.Helper()
	orig := termWidth
	termWidth = func() int { return 0 }
	t.Cleanup(func() { termWidth = orig })
}

// formInput builds the answers for one pass of formView, in schema order.
func formInput(values map[string]string) string {
	var b strings.Builder
	for _, name := range models.Schema {
		if name == "id" {
			continue
		}
		b.WriteString(values[name])
		b.WriteByte('\n')
	}
	return b.String()
}

func sampleRecords() []models.Record {
	return []models.Record{
		{ID: "0190aaaa-0001", Name: "Alice", Phone: "555-0100", MeasurementDate: "2024-06-01", Unit: models.UnitCM, Chest: "96", RowIndex: 2},
		{ID: "0190bbbb-0002", Name: "Bob", MeasurementDate: "2024-05-20", Unit: models.UnitInch},
	}
}
