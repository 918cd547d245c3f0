package models

import (
	"cmp"
	"slices"
)

type column struct {
	name string
	ref  func(r *Record) *string
}

// columns is the one place the remote column order is defined. Both the
// row encoder and the row decoder walk it.
var columns = []column{
	{"id", func(r *Record) *string { return &r.ID }},
	{"name", func(r *Record) *string { return &r.Name }},
	{"nickname", func(r *Record) *string { return &r.Nickname }},
	{"phone", func(r *Record) *string { return &r.Phone }},
	{"address", func(r *Record) *string { return &r.Address }},
	{"measurementDate", func(r *Record) *string { return &r.MeasurementDate }},
	{"unit", func(r *Record) *string { return (*string)(&r.Unit) }},
	{"neck", func(r *Record) *string { return &r.Neck }},
	{"shoulder", func(r *Record) *string { return &r.Shoulder }},
	{"chest", func(r *Record) *string { return &r.Chest }},
	{"bust", func(r *Record) *string { return &r.Bust }},
	{"underBust", func(r *Record) *string { return &r.UnderBust }},
	{"waist", func(r *Record) *string { return &r.Waist }},
	{"abdomen", func(r *Record) *string { return &r.Abdomen }},
	{"hips", func(r *Record) *string { return &r.Hips }},
	{"seat", func(r *Record) *string { return &r.Seat }},
	{"frontLength", func(r *Record) *string { return &r.FrontLength }},
	{"backLength", func(r *Record) *string { return &r.BackLength }},
	{"frontWidth", func(r *Record) *string { return &r.FrontWidth }},
	{"backWidth", func(r *Record) *string { return &r.BackWidth }},
	{"armhole", func(r *Record) *string { return &r.Armhole }},
	{"sleeveLength", func(r *Record) *string { return &r.SleeveLength }},
	{"bicep", func(r *Record) *string { return &r.Bicep }},
	{"elbow", func(r *Record) *string { return &r.Elbow }},
	{"forearm", func(r *Record) *string { return &r.Forearm }},
	{"wrist", func(r *Record) *string { return &r.Wrist }},
	{"shirtLength", func(r *Record) *string { return &r.ShirtLength }},
	{"jacketLength", func(r *Record) *string { return &r.JacketLength }},
	{"trouserLength", func(r *Record) *string { return &r.TrouserLength }},
	{"inseam", func(r *Record) *string { return &r.Inseam }},
	{"outseam", func(r *Record) *string { return &r.Outseam }},
	{"crotch", func(r *Record) *string { return &r.Crotch }},
	{"thigh", func(r *Record) *string { return &r.Thigh }},
	{"knee", func(r *Record) *string { return &r.Knee }},
	{"calf", func(r *Record) *string { return &r.Calf }},
	{"ankle", func(r *Record) *string { return &r.Ankle }},
	{"hipDepth", func(r *Record) *string { return &r.HipDepth }},
	{"fabric", func(r *Record) *string { return &r.Fabric }},
	{"notes", func(r *Record) *string { return &r.Notes }},
}

// Schema is the ordered list of column names; it is also the header row of
// the remote table. RowIndex is not part of it.
var Schema = func() []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
	}
	return names
}()

// MeasurementFields lists the schema columns holding body measurements, in
// schema order.
var MeasurementFields = Schema[7 : len(Schema)-2]

// Field returns the value of the named schema column.
func (r *Record) Field(name string) (string, bool) {
	for _, c := range columns {
		if c.name == name {
			return *c.ref(r), true
		}
	}
	return "", false
}

// SetField assigns the named schema column. Unknown names are reported.
func (r *Record) SetField(name, value string) bool {
	for _, c := range columns {
		if c.name == name {
			*c.ref(r) = value
			return true
		}
	}
	return false
}

// RecordToRow projects r onto the schema.
func RecordToRow(r Record) []string {
	row := make([]string, len(columns))
	for i, c := range columns {
		row[i] = *c.ref(&r)
	}
	return row
}

// RowToRecord zips the schema with the cells of one row. Missing trailing
// cells become empty strings and extra cells are ignored. rowIndex is the
// row's 1-based position in the table.
func RowToRecord(row []string, rowIndex int) Record {
	var r Record
	for i, c := range columns {
		if i < len(row) {
			*c.ref(&r) = row[i]
		}
	}
	r.RowIndex = rowIndex
	return r
}

// RowsToRecords decodes the data rows that follow the header row, so the
// first data row sits at position 2. Rows without an id are dropped.
func RowsToRecords(rows [][]string) []Record {
	out := make([]Record, 0, len(rows))
	for i, row := range rows {
		r := RowToRecord(row, i+2)
		if r.ID == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// HeaderMatches reports whether header is exactly Schema, in order.
func HeaderMatches(header []string) bool {
	return slices.Equal(header, Schema)
}

// SortRecords orders records for display: newest measurementDate first,
// then ascending RowIndex when both records have one, else ascending id.
func SortRecords(records []Record) {
	slices.SortStableFunc(records, compareForDisplay)
}

func compareForDisplay(a, b Record) int {
	if c := cmp.Compare(b.MeasurementDate, a.MeasurementDate); c != 0 {
		return c
	}
	if a.RowIndex > 0 && b.RowIndex > 0 {
		return cmp.Compare(a.RowIndex, b.RowIndex)
	}
	return cmp.Compare(a.ID, b.ID)
}
