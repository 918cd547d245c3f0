package remote

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/tailorbook/internal/client/models"
)

// columnLetter converts a 1-based column number to its A1 letters.
func columnLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}

var lastColumn = columnLetter(len(models.Schema))

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func fullRange(sheet string) string {
	return quoteSheet(sheet) + "!A:" + lastColumn
}

func rowRange(sheet string, row int) string {
	n := strconv.Itoa(row)
	return quoteSheet(sheet) + "!A" + n + ":" + lastColumn + n
}

var updatedRowRe = regexp.MustCompile(`^\$?[A-Za-z]+\$?(\d+)`)

// rowFromRange extracts the first row number of an A1 range such as
// 'Measurements'!A7:AM7. The sheet title may itself contain '!', so the
// cell part starts after the last one. It returns 0 when there is none.
func rowFromRange(a1 string) int {
	i := strings.LastIndex(a1, "!")
	if i < 0 {
		return 0
	}
	m := updatedRowRe.FindStringSubmatch(a1[i+1:])
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
