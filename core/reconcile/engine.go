package reconcile

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/attendance"
	"github.com/trezcool/davomat/core/child"
	"github.com/trezcool/davomat/core/payment"
	"github.com/trezcool/davomat/core/user"
)

// VoidReason is the audit note left on receipts of payments refunded by an excused absence.
const VoidReason = "Spravka bilan: to'lov qaytarildi"

type (
	Deps struct {
		Children   child.Repository
		Users      user.Repository
		Attendance attendance.Ledger
		Staff      attendance.Ledger // teachers' own attendance
		Payments   payment.Ledger
		Receipts   payment.ReceiptLedger
		Notifier   core.Notifier
		Logger     core.Logger
	}

	// Engine applies attendance marks and the refunds they imply.
	// Operations are serialized: the ledgers of one call are never interleaved with another call.
	Engine struct {
		mu sync.Mutex

		children   child.Repository
		users      user.Repository
		attendance attendance.Ledger
		staff      attendance.Ledger
		payments   payment.Ledger
		receipts   payment.ReceiptLedger
		notifier   core.Notifier
		logger     core.Logger

		now      func() time.Time
		dispatch func(task func())
	}
)

func NewEngine(deps Deps) *Engine {
	return &Engine{
		children:   deps.Children,
		users:      deps.Users,
		attendance: deps.Attendance,
		staff:      deps.Staff,
		payments:   deps.Payments,
		receipts:   deps.Receipts,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		now:        time.Now,
		dispatch:   func(task func()) { go task() },
	}
}

// resolveChild fetches the child and checks it against scope before anything is mutated.
func (e *Engine) resolveChild(scope user.Scope, id string) (child.Child, error) {
	c, err := e.children.GetChildByID(id)
	if err != nil {
		return child.Child{}, err
	}
	if err = scope.Authorize(c.Group); err != nil {
		return child.Child{}, err
	}
	if !c.IsActive {
		return child.Child{}, core.NewValidationError(nil, core.FieldError{Field: "person_id", Error: "child is not active"})
	}
	return c, nil
}

// resolveTeacher fetches the staff member. Staff attendance is administered by admins only.
func (e *Engine) resolveTeacher(scope user.Scope, id string) (user.User, error) {
	if err := scope.AuthorizeAdmin(); err != nil {
		return user.User{}, err
	}
	usr, err := e.users.GetUserByID(id)
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsTeacher() || !usr.IsActive {
		return user.User{}, core.NewValidationError(nil, core.FieldError{Field: "person_id", Error: "not an active teacher"})
	}
	return usr, nil
}

func (e *Engine) clock() string {
	return e.now().Format(core.ClockLayout)
}

// Today is the current date on the engine clock.
func (e *Engine) Today() string {
	return e.now().Format(core.DateLayout)
}

// mark upserts the record of the day. Check-in and check-out are only kept for present persons.
func (e *Engine) mark(ledger attendance.Ledger, req MarkRequest) (attendance.Record, error) {
	key := attendance.Key{PersonID: req.PersonID, Date: req.Date}
	rec, found, err := ledger.FindByKey(key)
	if err != nil {
		return attendance.Record{}, errors.Wrap(err, "finding attendance")
	}
	if !found {
		rec = attendance.Record{ID: uuid.NewString(), PersonID: req.PersonID, Date: req.Date}
	}

	rec.Status = req.Status
	rec.CheckIn = null.String{}
	if req.Status != attendance.StatusPresent {
		rec.CheckOut = null.String{}
	}
	if req.Status == attendance.StatusPresent {
		checkIn := req.CheckIn
		if checkIn == "" {
			checkIn = e.clock()
		}
		rec.CheckIn = null.StringFrom(checkIn)
	}
	rec.Notes = null.NewString(req.Notes, req.Notes != "")

	rec, err = ledger.UpsertByKey(rec)
	return rec, errors.Wrap(err, "saving attendance")
}

// checkOut sets the departure time of a present record that has none yet. It reports false otherwise.
func (e *Engine) checkOut(ledger attendance.Ledger, req CheckOutRequest) (attendance.Record, bool, error) {
	rec, found, err := ledger.FindByKey(attendance.Key{PersonID: req.PersonID, Date: req.Date})
	if err != nil {
		return attendance.Record{}, false, errors.Wrap(err, "finding attendance")
	}
	if !found || rec.Status != attendance.StatusPresent || rec.CheckOut.Valid {
		return rec, false, nil
	}

	checkOut := req.CheckOut
	if checkOut == "" {
		checkOut = e.clock()
	}
	rec.CheckOut = null.StringFrom(checkOut)
	rec, err = ledger.UpsertByKey(rec)
	if err != nil {
		return attendance.Record{}, false, errors.Wrap(err, "saving attendance")
	}
	return rec, true, nil
}

// MarkAttendance records the attendance of a child for a day.
// An absent child triggers one absence notice, sent after the record is saved.
func (e *Engine) MarkAttendance(scope user.Scope, req MarkRequest) (attendance.Record, error) {
	if err := req.clean(); err != nil {
		return attendance.Record{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.resolveChild(scope, req.PersonID)
	if err != nil {
		return attendance.Record{}, err
	}
	rec, err := e.mark(e.attendance, req)
	if err != nil {
		return attendance.Record{}, err
	}

	if rec.Status == attendance.StatusAbsent {
		e.notifyAbsence(c, rec.Date)
	}
	return rec, nil
}

// MarkCheckOut records when a present child left. It is a no-op, reported by false, for any other record.
func (e *Engine) MarkCheckOut(scope user.Scope, req CheckOutRequest) (attendance.Record, bool, error) {
	if err := req.clean(); err != nil {
		return attendance.Record{}, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.resolveChild(scope, req.PersonID); err != nil {
		return attendance.Record{}, false, err
	}
	return e.checkOut(e.attendance, req)
}

// ProcessExcusedAbsence marks the child absent with a medical certificate, removes every payment of the
// billing month and voids their receipts. No absence notice is sent.
//
// The attendance record is saved before payments are removed: an interrupted call leaves the marker
// without the refund, and running it again completes it.
func (e *Engine) ProcessExcusedAbsence(scope user.Scope, req ExcusedRequest) (Result, error) {
	if err := req.clean(); err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.resolveChild(scope, req.PersonID); err != nil {
		return Result{}, err
	}

	rec, err := e.mark(e.attendance, MarkRequest{
		PersonID: req.PersonID,
		Date:     req.Date,
		Status:   attendance.StatusAbsent,
		Notes:    attendance.ExcusedNote,
	})
	if err != nil {
		return Result{}, err
	}

	removed, err := e.payments.RemoveWhere(payment.ForPeriod(req.PersonID, req.BillingMonth))
	if err != nil {
		return Result{Record: rec}, errors.Wrap(err, "removing payments")
	}
	res := Result{
		Record:       rec,
		Refunded:     payment.Total(removed),
		Removed:      len(removed),
		PaymentFound: len(removed) > 0,
	}
	if len(removed) == 0 {
		return res, nil
	}

	res.VoidedReceipts, err = e.receipts.VoidWhere(payment.ForPayments(removed), VoidReason, e.now().UTC())
	if err != nil {
		return res, errors.Wrap(err, "voiding receipts")
	}

	e.logger.Info(fmt.Sprintf("excused absence: refunded %s (%d payment(s)) for %s", res.Refunded, res.Removed, req.BillingMonth),
		map[string]interface{}{"child_id": req.PersonID, "date": req.Date, "month": req.BillingMonth})
	return res, nil
}

// MarkStaffAttendance records the attendance of a teacher for a day.
func (e *Engine) MarkStaffAttendance(scope user.Scope, req MarkRequest) (attendance.Record, error) {
	if err := req.clean(); err != nil {
		return attendance.Record{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.resolveTeacher(scope, req.PersonID); err != nil {
		return attendance.Record{}, err
	}
	return e.mark(e.staff, req)
}

func (e *Engine) MarkStaffCheckOut(scope user.Scope, req CheckOutRequest) (attendance.Record, bool, error) {
	if err := req.clean(); err != nil {
		return attendance.Record{}, false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.resolveTeacher(scope, req.PersonID); err != nil {
		return attendance.Record{}, false, err
	}
	return e.checkOut(e.staff, req)
}

// ProcessStaffExcusedAbsence marks a teacher absent with a medical certificate. Staff are not billed, so nothing is refunded.
func (e *Engine) ProcessStaffExcusedAbsence(scope user.Scope, personID, date string) (attendance.Record, error) {
	req := MarkRequest{PersonID: personID, Date: date, Status: attendance.StatusAbsent, Notes: attendance.ExcusedNote}
	return e.MarkStaffAttendance(scope, req)
}

// notifyAbsence dispatches the absence notice. Failures are logged and never reach the caller.
func (e *Engine) notifyAbsence(c child.Child, date string) {
	if e.notifier == nil {
		return
	}
	name, contact, day := c.DisplayName(), c.Contact(), core.FormatDisplayDate(date)
	meta := map[string]interface{}{"child_id": c.ID, "date": date}

	e.dispatch(func() {
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error(fmt.Sprintf("absence notification panicked: %v", r), meta)
			}
		}()
		if err := e.notifier.SendAbsenceNotification(name, contact, day); err != nil {
			e.logger.Error(fmt.Sprintf("sending absence notification: %v", err), err, meta)
		}
	})
}

// Day lists the active children visible to scope with their attendance of date.
func (e *Engine) Day(scope user.Scope, date string) (DayReport, error) {
	if _, err := core.ParseDate(date); err != nil {
		return DayReport{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: err.Error()})
	}

	children, err := e.children.QueryAllChildren()
	if err != nil {
		return DayReport{}, errors.Wrap(err, "querying children")
	}
	records, err := e.attendance.All()
	if err != nil {
		return DayReport{}, errors.Wrap(err, "querying attendance")
	}
	byPerson := make(map[string]attendance.Record)
	for _, r := range records {
		if r.Date == date {
			byPerson[r.PersonID] = r
		}
	}

	report := DayReport{
		Entries: make([]Entry, 0),
		Summary: attendance.Summary{Date: date, Counts: make(map[attendance.Status]int)},
	}
	for _, c := range children {
		if !c.IsActive || !scope.Allows(c.Group) {
			continue
		}
		entry := Entry{Child: c}
		if r, ok := byPerson[c.ID]; ok {
			r := r
			entry.Record = &r
			report.Summary.Counts[r.Status]++
			if r.IsExcused() {
				report.Summary.Excused++
			}
		} else {
			report.Summary.NotMarked++
		}
		report.Entries = append(report.Entries, entry)
	}
	sort.SliceStable(report.Entries, func(i, j int) bool {
		return report.Entries[i].Child.DisplayName() < report.Entries[j].Child.DisplayName()
	})
	return report, nil
}

// Records lists the attendance records of the children visible to scope.
// A filter naming a child fails like any other access to that child.
func (e *Engine) Records(scope user.Scope, filter RecordFilter) ([]attendance.Record, error) {
	if filter.PersonID != "" {
		c, err := e.children.GetChildByID(filter.PersonID)
		if err != nil {
			return nil, err
		}
		if err = scope.Authorize(c.Group); err != nil {
			return nil, err
		}
	}
	children, err := e.children.QueryAllChildren()
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	visible := make(map[string]struct{}, len(children))
	for _, c := range children {
		if scope.Allows(c.Group) {
			visible[c.ID] = struct{}{}
		}
	}

	all, err := e.attendance.All()
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance")
	}
	return filterRecords(all, filter, func(r attendance.Record) bool {
		_, ok := visible[r.PersonID]
		return ok
	}), nil
}

// StaffRecords lists the teachers' attendance records. Admins only.
func (e *Engine) StaffRecords(scope user.Scope, filter RecordFilter) ([]attendance.Record, error) {
	if err := scope.AuthorizeAdmin(); err != nil {
		return nil, err
	}
	all, err := e.staff.All()
	if err != nil {
		return nil, errors.Wrap(err, "querying staff attendance")
	}
	return filterRecords(all, filter, func(attendance.Record) bool { return true }), nil
}

func filterRecords(all []attendance.Record, filter RecordFilter, visible func(attendance.Record) bool) []attendance.Record {
	records := make([]attendance.Record, 0, len(all))
	for _, r := range all {
		if !visible(r) {
			continue
		}
		if filter.PersonID != "" && r.PersonID != filter.PersonID {
			continue
		}
		if filter.Date != "" && r.Date != filter.Date {
			continue
		}
		if filter.Month != "" && (len(r.Date) < 7 || r.Date[:7] != filter.Month) {
			continue
		}
		records = append(records, r)
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].Date > records[j].Date })
	return records
}
