// Package models defines the customer measurement record and the column
// schema shared by every storage backend.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Unit applies to every numeric measurement of a record at once.
type Unit string

const (
	UnitCM   Unit = "cm"
	UnitInch Unit = "inch"
)

// DateLayout is the layout of Record.MeasurementDate.
const DateLayout = "2006-01-02"

// Record is one customer measurement entry. Measurements are kept as the
// strings the user typed; they are never parsed.
type Record struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Nickname        string `json:"nickname"`
	Phone           string `json:"phone"`
	Address         string `json:"address"`
	MeasurementDate string `json:"measurementDate"`
	Unit            Unit   `json:"unit"`

	Neck          string `json:"neck"`
	Shoulder      string `json:"shoulder"`
	Chest         string `json:"chest"`
	Bust          string `json:"bust"`
	UnderBust     string `json:"underBust"`
	Waist         string `json:"waist"`
	Abdomen       string `json:"abdomen"`
	Hips          string `json:"hips"`
	Seat          string `json:"seat"`
	FrontLength   string `json:"frontLength"`
	BackLength    string `json:"backLength"`
	FrontWidth    string `json:"frontWidth"`
	BackWidth     string `json:"backWidth"`
	Armhole       string `json:"armhole"`
	SleeveLength  string `json:"sleeveLength"`
	Bicep         string `json:"bicep"`
	Elbow         string `json:"elbow"`
	Forearm       string `json:"forearm"`
	Wrist         string `json:"wrist"`
	ShirtLength   string `json:"shirtLength"`
	JacketLength  string `json:"jacketLength"`
	TrouserLength string `json:"trouserLength"`
	Inseam        string `json:"inseam"`
	Outseam       string `json:"outseam"`
	Crotch        string `json:"crotch"`
	Thigh         string `json:"thigh"`
	Knee          string `json:"knee"`
	Calf          string `json:"calf"`
	Ankle         string `json:"ankle"`
	HipDepth      string `json:"hipDepth"`

	Fabric string `json:"fabric"`
	Notes  string `json:"notes"`

	// RowIndex is the 1-based row backing this record in the remote table,
	// or 0 when the record is not known to be backed by a remote row.
	RowIndex int `json:"rowIndex,omitempty"`
}

// DefaultRecord is the template every stored record is decoded on top of,
// so records saved by older versions still populate every field.
func DefaultRecord() Record {
	return Record{Unit: UnitCM}
}

// Normalize fills the fields a record must carry once persisted: a
// time-ordered id and, when blank, today's date in now's location.
func (r *Record) Normalize(now time.Time) error {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		r.ID = id.String()
	}
	if r.MeasurementDate == "" {
		r.MeasurementDate = now.Format(DateLayout)
	}
	if r.Unit == "" {
		r.Unit = UnitCM
	}
	return nil
}
