package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
)

const (
	cancelWord = "cancel"
	clearWord  = "-"
)

// fieldRules are validator tags for the few fields with a fixed format.
var fieldRules = map[string]string{
	"measurementDate": "datetime=" + models.DateLayout,
	"unit":            "oneof=cm inch",
}

var fieldHints = map[string]string{
	"measurementDate": "YYYY-MM-DD, empty for today",
	"unit":            "cm or inch",
}

var validate = validator.New()

// formView walks the schema and asks for every field except the id.
// existing seeds the values when editing; nil starts from the default
// record. An empty answer keeps the value, "-" clears it and "cancel" or
// end of input abandons the form with ok=false.
func formView(reader *bufio.Reader, w io.Writer, existing *models.Record) (models.Record, bool) {
	r := models.DefaultRecord()
	if existing != nil {
		r = *existing
	}

	fmt.Fprintf(w, "Empty input keeps the value in brackets, %q clears it, %q aborts.\n", clearWord, cancelWord)
	for _, name := range models.Schema {
		if name == "id" {
			continue
		}
		for {
			current, _ := r.Field(name)
			answer, err := askField(reader, w, fieldLabel(name, current), current)
			if err != nil || strings.EqualFold(answer, cancelWord) {
				return models.Record{}, false
			}
			if answer == "" {
				break
			}
			if answer == clearWord {
				r.SetField(name, "")
				break
			}
			if rule, ok := fieldRules[name]; ok {
				if err := validate.Var(answer, rule); err != nil {
					fmt.Fprintf(w, "Invalid value %q, expected %s.\n", answer, fieldHints[name])
					continue
				}
			}
			r.SetField(name, answer)
			break
		}
	}
	return r, true
}

// fieldLabel turns a schema name such as underBust into "Under bust".
func fieldLabel(name, current string) string {
	var b strings.Builder
	for i, ch := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(ch))
		case unicode.IsUpper(ch):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(ch))
		default:
			b.WriteRune(ch)
		}
	}
	if hint, ok := fieldHints[name]; ok && current == "" {
		fmt.Fprintf(&b, " (%s)", hint)
	}
	return b.String()
}
