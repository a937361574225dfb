package kvrepos

import (
	"github.com/google/uuid"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/attendance"
)

type attendanceLedger struct {
	db  *DB
	key string
}

var _ attendance.Ledger = (*attendanceLedger)(nil) // interface compliance check

// NewAttendanceLedger returns the children's attendance ledger.
func NewAttendanceLedger(db *DB) attendance.Ledger {
	return &attendanceLedger{db: db, key: core.KeyAttendance}
}

// NewStaffAttendanceLedger returns the teachers' attendance ledger.
func NewStaffAttendanceLedger(db *DB) attendance.Ledger {
	return &attendanceLedger{db: db, key: core.KeyTeacherAttendance}
}

func (l *attendanceLedger) load() []attendance.Record {
	records := make([]attendance.Record, 0)
	l.db.store.Load(l.key, &records)
	return records
}

func (l *attendanceLedger) All() ([]attendance.Record, error) {
	l.db.Lock()
	defer l.db.Unlock()
	return l.load(), nil
}

func (l *attendanceLedger) FindByKey(key attendance.Key) (attendance.Record, bool, error) {
	l.db.Lock()
	defer l.db.Unlock()

	for _, r := range l.load() {
		if r.Key() == key {
			return r, true, nil
		}
	}
	return attendance.Record{}, false, nil
}

// UpsertByKey also drops any duplicate sharing rec's key, restoring one record per person and day.
func (l *attendanceLedger) UpsertByKey(rec attendance.Record) (attendance.Record, error) {
	l.db.Lock()
	defer l.db.Unlock()

	records := l.load()
	updated := make([]attendance.Record, 0, len(records)+1)
	found := false
	for _, r := range records {
		if r.Key() != rec.Key() {
			updated = append(updated, r)
			continue
		}
		if found {
			continue
		}
		rec.ID = r.ID
		updated = append(updated, rec)
		found = true
	}
	if !found {
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		updated = append(updated, rec)
	}

	if err := l.db.store.Save(l.key, updated); err != nil {
		return attendance.Record{}, err
	}
	return rec, nil
}

func (l *attendanceLedger) RemoveWhere(pred func(attendance.Record) bool) (int, error) {
	l.db.Lock()
	defer l.db.Unlock()

	records := l.load()
	kept := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		if !pred(r) {
			kept = append(kept, r)
		}
	}
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := l.db.store.Save(l.key, kept); err != nil {
		return 0, err
	}
	return removed, nil
}
