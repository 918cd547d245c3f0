package cli

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
)

func runForm(t *testing.T, input string, existing *models.Record) (models.Record, bool, string) {
	t.Helper()
	var out bytes.Buffer
	r, ok := formView(bufio.NewReader(strings.NewReader(input)), &out, existing)
	return r, ok, out.String()
}

func TestFormView_NewRecord(t *testing.T) {
	r, ok, _ := runForm(t, formInput(map[string]string{
		"name":  "Alice",
		"chest": "96",
		"notes": "linen only",
	}), nil)

	require.True(t, ok)
	assert.Empty(t, r.ID)
	assert.Empty(t, r.MeasurementDate)
	assert.Equal(t, "Alice", r.Name)
	assert.Equal(t, "96", r.Chest)
	assert.Equal(t, "linen only", r.Notes)
	assert.Equal(t, models.UnitCM, r.Unit)
}

func TestFormView_EditKeepsAndClears(t *testing.T) {
	existing := models.Record{ID: "r1", Name: "Bob", Phone: "123", Unit: models.UnitInch, RowIndex: 4}

	r, ok, out := runForm(t, formInput(map[string]string{
		"phone": "-",
		"waist": "80",
	}), &existing)

	require.True(t, ok)
	assert.Equal(t, "r1", r.ID)
	assert.Equal(t, 4, r.RowIndex)
	assert.Equal(t, "Bob", r.Name)
	assert.Empty(t, r.Phone)
	assert.Equal(t, "80", r.Waist)
	assert.Equal(t, models.UnitInch, r.Unit)
	assert.Contains(t, out, "Name [Bob]: ")
	assert.Equal(t, "Bob", existing.Name)
}

func TestFormView_Cancel(t *testing.T) {
	_, ok, _ := runForm(t, "Alice\nCANCEL\n", nil)
	assert.False(t, ok)
}

func TestFormView_EndOfInputCancels(t *testing.T) {
	_, ok, _ := runForm(t, "Alice\n", nil)
	assert.False(t, ok)
}

func TestFormView_RepromptsInvalidValues(t *testing.T) {
	var b strings.Builder
	for _, name := range models.Schema {
		switch name {
		case "id":
		case "measurementDate":
			b.WriteString("01/02/2024\n2024-02-01\n")
		case "unit":
			b.WriteString("furlong\ninch\n")
		default:
			b.WriteString("\n")
		}
	}

	r, ok, out := runForm(t, b.String(), nil)

	require.True(t, ok)
	assert.Equal(t, "2024-02-01", r.MeasurementDate)
	assert.Equal(t, models.UnitInch, r.Unit)
	assert.Equal(t, 2, strings.Count(out, "Invalid value"))
}

func TestFieldLabel(t *testing.T) {
	assert.Equal(t, "Under bust", fieldLabel("underBust", ""))
	assert.Equal(t, "Name", fieldLabel("name", ""))
	assert.Equal(t, "Measurement date (YYYY-MM-DD, empty for today)", fieldLabel("measurementDate", ""))
	assert.Equal(t, "Measurement date", fieldLabel("measurementDate", "2024-01-01"))
}
