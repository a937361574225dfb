package attendance

import (
	"github.com/volatiletech/null/v8"
)

// Status of a person on a given day.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
	StatusSick    Status = "sick"
)

// ExcusedNote marks an absence covered by a medical certificate ("spravka").
const ExcusedNote = "Spravka bilan"

var AllStatuses = []Status{StatusPresent, StatusAbsent, StatusLate, StatusSick}

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate, StatusSick:
		return true
	}
	return false
}

// Key is the natural key of a Record: at most one Record exists per person and day.
type Key struct {
	PersonID string
	Date     string // YYYY-MM-DD
}

type Record struct {
	ID       string      `json:"id"`
	PersonID string      `json:"person_id"`
	Date     string      `json:"date"`
	Status   Status      `json:"status"`
	CheckIn  null.String `json:"check_in"`
	CheckOut null.String `json:"check_out"`
	Notes    null.String `json:"notes"`
}

func (r Record) Key() Key {
	return Key{PersonID: r.PersonID, Date: r.Date}
}

// IsExcused reports whether the Record is an absence covered by a medical certificate.
func (r Record) IsExcused() bool {
	return r.Status == StatusAbsent && r.Notes.Valid && r.Notes.String == ExcusedNote
}

// Ledger is the per-day attendance store.
type Ledger interface {
	All() ([]Record, error)
	// FindByKey returns the Record stored under key, if any.
	FindByKey(key Key) (Record, bool, error)
	// UpsertByKey replaces the Record sharing rec's key, keeping its ID, or appends rec with a new ID.
	UpsertByKey(rec Record) (Record, error)
	// RemoveWhere deletes every Record matching pred and returns how many were removed.
	RemoveWhere(pred func(Record) bool) (int, error)
}

// OnDate selects the Records of a single day.
func OnDate(date string) func(Record) bool {
	return func(r Record) bool { return r.Date == date }
}

// Summary counts the Records of a day by status.
type Summary struct {
	Date      string         `json:"date"`
	Counts    map[Status]int `json:"counts"`
	Excused   int            `json:"excused"`
	NotMarked int            `json:"not_marked"`
}
