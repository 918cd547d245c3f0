package remote

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnLetter(t *testing.T) {
	cases := map[int]string{1: "A", 26: "Z", 27: "AA", 39: "AM", 52: "AZ", 53: "BA", 702: "ZZ", 703: "AAA"}
	for n, want := range cases {
		assert.Equal(t, want, columnLetter(n), "column %d", n)
	}
	assert.Equal(t, "AM", lastColumn)
}

func TestRanges(t *testing.T) {
	assert.Equal(t, "'Measurements'!A:AM", fullRange("Measurements"))
	assert.Equal(t, "'Measurements'!A7:AM7", rowRange("Measurements", 7))
	assert.Equal(t, "'Bob''s'!A:AM", fullRange("Bob's"))
}

func TestRowFromRange(t *testing.T) {
	assert.Equal(t, 7, rowFromRange("'Measurements'!A7:AM7"))
	assert.Equal(t, 12, rowFromRange("Measurements!$A$12:$AM$12"))
	assert.Equal(t, 3, rowFromRange("'a!b'!A3:AM3"))
	assert.Equal(t, 7, rowFromRange("'Sizes!B2'!A7:AM7"))
	assert.Equal(t, 0, rowFromRange("A7:AM7"))
	assert.Equal(t, 0, rowFromRange(""))
	assert.Equal(t, 0, rowFromRange("'Measurements'!A:AM"))
}
