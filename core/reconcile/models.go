package reconcile

import (
	"github.com/shopspring/decimal"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/attendance"
	"github.com/trezcool/davomat/core/child"
)

type (
	// MarkRequest sets the attendance of a person for a day.
	MarkRequest struct {
		PersonID string            `json:"person_id"`
		Date     string            `json:"date"`
		Status   attendance.Status `json:"status"`
		CheckIn  string            `json:"check_in"` // HH:MM, defaults to now when present
		Notes    string            `json:"notes"`
	}

	// CheckOutRequest records the departure of a present person.
	CheckOutRequest struct {
		PersonID string `json:"person_id"`
		Date     string `json:"date"`
		CheckOut string `json:"check_out"` // HH:MM, defaults to now
	}

	// ExcusedRequest marks an absence covered by a medical certificate and refunds the billing month.
	ExcusedRequest struct {
		PersonID     string `json:"person_id"`
		Date         string `json:"date"`
		BillingMonth string `json:"billing_month"` // YYYY-MM, defaults to the month of Date
	}

	// Result reports what an excused absence changed.
	Result struct {
		Record         attendance.Record `json:"record"`
		Refunded       decimal.Decimal   `json:"refunded"`
		Removed        int               `json:"removed"`
		PaymentFound   bool              `json:"payment_found"`
		VoidedReceipts int               `json:"voided_receipts"`
	}

	// Entry pairs a visible child with its attendance of the day, if already marked.
	Entry struct {
		Child  child.Child        `json:"child"`
		Record *attendance.Record `json:"record"`
	}

	DayReport struct {
		Entries []Entry            `json:"entries"`
		Summary attendance.Summary `json:"summary"`
	}

	RecordFilter struct {
		PersonID string `query:"child_id"`
		Date     string `query:"date"`
		Month    string `query:"month"`
	}
)

func (rf *RecordFilter) Clean() {
	rf.PersonID = core.CleanString(rf.PersonID)
	rf.Date = core.CleanString(rf.Date)
	rf.Month = core.CleanString(rf.Month)
}

func (req *MarkRequest) clean() error {
	req.PersonID = core.CleanString(req.PersonID)
	req.Date = core.CleanString(req.Date)
	req.CheckIn = core.CleanString(req.CheckIn)
	req.Notes = core.CleanString(req.Notes)

	var flds []core.FieldError
	flds = appendPersonAndDateErrors(flds, req.PersonID, req.Date)
	if !req.Status.Valid() {
		flds = append(flds, core.FieldError{Field: "status", Error: "must be one of present, absent, late or sick"})
	}
	if req.CheckIn != "" {
		if _, err := core.ParseClock(req.CheckIn); err != nil {
			flds = append(flds, core.FieldError{Field: "check_in", Error: err.Error()})
		}
	}
	return fieldErrors(flds)
}

func (req *CheckOutRequest) clean() error {
	req.PersonID = core.CleanString(req.PersonID)
	req.Date = core.CleanString(req.Date)
	req.CheckOut = core.CleanString(req.CheckOut)

	var flds []core.FieldError
	flds = appendPersonAndDateErrors(flds, req.PersonID, req.Date)
	if req.CheckOut != "" {
		if _, err := core.ParseClock(req.CheckOut); err != nil {
			flds = append(flds, core.FieldError{Field: "check_out", Error: err.Error()})
		}
	}
	return fieldErrors(flds)
}

func (req *ExcusedRequest) clean() error {
	req.PersonID = core.CleanString(req.PersonID)
	req.Date = core.CleanString(req.Date)
	req.BillingMonth = core.CleanString(req.BillingMonth)

	var flds []core.FieldError
	flds = appendPersonAndDateErrors(flds, req.PersonID, req.Date)
	if req.BillingMonth == "" && len(flds) == 0 {
		req.BillingMonth = req.Date[:7]
	}
	if _, err := core.ParseMonth(req.BillingMonth); err != nil && req.BillingMonth != "" {
		flds = append(flds, core.FieldError{Field: "billing_month", Error: err.Error()})
	}
	return fieldErrors(flds)
}

func appendPersonAndDateErrors(flds []core.FieldError, personID, date string) []core.FieldError {
	if personID == "" {
		flds = append(flds, core.FieldError{Field: "person_id", Error: "this field is required"})
	}
	if _, err := core.ParseDate(date); err != nil {
		flds = append(flds, core.FieldError{Field: "date", Error: err.Error()})
	}
	return flds
}

func fieldErrors(flds []core.FieldError) error {
	if len(flds) == 0 {
		return nil
	}
	return core.NewValidationError(nil, flds...)
}
