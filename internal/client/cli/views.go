package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
	"github.com/dmitrijs2005/tailorbook/internal/client/services"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	labelStyle  = lipgloss.NewStyle().Bold(true).Width(18)
)

// termWidth is a test seam; it returns 0 when stdout is not a terminal.
var termWidth = func() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 0
	}
	return w
}

// listView renders records, already in display order, as a table.
func listView(w io.Writer, records []models.Record) {
	if len(records) == 0 {
		fmt.Fprintln(w, "No records.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("ID", "NAME", "NICKNAME", "PHONE", "DATE", "UNIT", "ROW").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, r := range records {
		row := ""
		if r.RowIndex > 0 {
			row = strconv.Itoa(r.RowIndex)
		}
		t.Row(r.ID, r.Name, r.Nickname, r.Phone, r.MeasurementDate, string(r.Unit), row)
	}
	if width := termWidth(); width > 0 {
		t.Width(width)
	}

	fmt.Fprintln(w, t.Render())
	fmt.Fprintf(w, "%d record(s)\n", len(records))
}

// showView prints every non-empty field of r, one per line.
func showView(w io.Writer, r models.Record) {
	for _, name := range models.Schema {
		value, _ := r.Field(name)
		if value == "" {
			continue
		}
		fmt.Fprintln(w, labelStyle.Render(fieldLabel(name, value)), value)
	}
	if r.RowIndex > 0 {
		fmt.Fprintln(w, labelStyle.Render("Row"), r.RowIndex)
	}
}

func statusColor(kind services.StatusKind) *color.Color {
	switch kind {
	case services.StatusError:
		return color.New(color.FgRed, color.Bold)
	case services.StatusWarn:
		return color.New(color.FgYellow)
	case services.StatusInfo:
		return color.New(color.FgGreen)
	default:
		return color.New(color.Reset)
	}
}

// statusLine prints the controller's status message, if any.
func statusLine(w io.Writer, v services.View) {
	if v.Status == "" {
		return
	}
	fmt.Fprintln(w, statusColor(v.StatusKind).Sprint(v.Status))
}

// statusView prints the backend, session and sync details.
func statusView(w io.Writer, v services.View) {
	fmt.Fprintln(w, labelStyle.Render("Backend"), v.Backend)
	fmt.Fprintln(w, labelStyle.Render("Session"), sessionText(v))
	if v.DocumentID != "" {
		fmt.Fprintln(w, labelStyle.Render("Spreadsheet"), v.DocumentID)
	}
	fmt.Fprintln(w, labelStyle.Render("Records"), len(v.Records))
	if v.Pending != nil {
		fmt.Fprintln(w, labelStyle.Render("Waiting for login"), pendingText(*v.Pending))
	}
	statusLine(w, v)
}

// sessionText adds why a session ended, or until when it lasts.
func sessionText(v services.View) string {
	s := v.Session.String()
	switch {
	case v.Session == services.SignedIn && !v.Expiry.IsZero():
		s += " (until " + v.Expiry.Format("2006-01-02 15:04") + ")"
	case v.Session == services.SignedOut && v.EndReason != services.EndSignedOut:
		s += " (" + v.EndReason.String() + ")"
	}
	return s
}

func pendingText(op services.PendingOp) string {
	switch op.Kind {
	case services.OpSave:
		if op.Record.Name != "" {
			return fmt.Sprintf("save %q", op.Record.Name)
		}
		return "save"
	case services.OpDelete:
		return fmt.Sprintf("delete %s", op.Record.ID)
	default:
		return op.Kind.String()
	}
}
