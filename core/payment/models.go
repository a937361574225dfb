package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/davomat/core"
)

// Method of a Payment.
type Method string

const (
	MethodCash Method = "naqd"
	MethodCard Method = "karta"
	MethodBank Method = "bank"
)

var AllMethods = []Method{MethodCash, MethodCard, MethodBank}

func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodBank:
		return true
	}
	return false
}

const (
	// EnrollmentDescription and SystemReceiver describe payments recorded automatically on enrollment.
	EnrollmentDescription = "Avtomatik oylik to'lov"
	SystemReceiver        = "Tizim"
)

// Payment is a monthly fee paid for a person. Several payments may cover the same billing month.
type Payment struct {
	ID          string          `json:"id"`
	PersonID    string          `json:"person_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`  // YYYY-MM-DD
	Month       string          `json:"month"` // billing month, YYYY-MM
	Year        int             `json:"year"`
	Method      Method          `json:"payment_method"`
	Description string          `json:"description"`
	ReceivedBy  string          `json:"received_by"`
	CreatedAt   time.Time       `json:"created_at"` // UTC
}

// Receipt is issued for every Payment recorded by staff.
// Receipts are never deleted: the receipt of a refunded Payment is voided instead.
type Receipt struct {
	ID            string          `json:"id"`
	PaymentID     string          `json:"payment_id"`
	PersonID      string          `json:"person_id"`
	ChildName     string          `json:"child_name"`
	Amount        decimal.Decimal `json:"amount"`
	Date          string          `json:"date"`
	Month         string          `json:"month"`
	ReceiptNumber string          `json:"receipt_number"`
	CreatedAt     time.Time       `json:"created_at"` // UTC
	VoidedAt      null.Time       `json:"voided_at"`
	VoidReason    null.String     `json:"void_reason"`
}

func (r Receipt) IsVoid() bool {
	return r.VoidedAt.Valid
}

// ForPeriod selects the payments of personID for a billing month.
func ForPeriod(personID, month string) func(Payment) bool {
	return func(p Payment) bool { return p.PersonID == personID && p.Month == month }
}

// ForPayments selects the receipts issued for any of the given payments.
func ForPayments(payments []Payment) func(Receipt) bool {
	ids := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		ids[p.ID] = struct{}{}
	}
	return func(r Receipt) bool {
		_, ok := ids[r.PaymentID]
		return ok
	}
}

// Total sums the amounts of payments.
func Total(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// NewPayment contains information needed to record a Payment.
type NewPayment struct {
	PersonID    string          `json:"person_id" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date" validate:"omitempty,isodate"`
	Month       string          `json:"month" validate:"required,yearmonth"`
	Method      Method          `json:"payment_method" validate:"required,paymethod"`
	Description string          `json:"description"`
	ReceivedBy  string          `json:"received_by"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.PersonID = core.CleanString(np.PersonID)
	np.Date = core.CleanString(np.Date)
	np.Month = core.CleanString(np.Month)
	np.Description = core.CleanString(np.Description)
	np.ReceivedBy = core.CleanString(np.ReceivedBy)

	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.Amount.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "must not be negative"})
	}
	return nil
}

type QueryFilter struct {
	PersonID string `query:"child_id"`
	Month    string `query:"month"`
}

func (qf *QueryFilter) Clean() {
	qf.PersonID = core.CleanString(qf.PersonID)
	qf.Month = core.CleanString(qf.Month)
}
