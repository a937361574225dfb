package payment

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/child"
	"github.com/trezcool/davomat/core/user"
)

var NowFunc = time.Now // mockable

type (
	// Ledger stores payments. (person, month) is not unique, so UpsertByKey is keyed by payment ID.
	Ledger interface {
		All() ([]Payment, error)
		Insert(p Payment) (Payment, error)
		UpsertByKey(p Payment) (Payment, error)
		// RemoveWhere deletes every Payment matching pred and returns the removed rows.
		RemoveWhere(pred func(Payment) bool) ([]Payment, error)
	}

	ReceiptLedger interface {
		All() ([]Receipt, error)
		Insert(r Receipt) (Receipt, error)
		// VoidWhere voids every not yet voided Receipt matching pred and returns how many were voided.
		VoidWhere(pred func(Receipt) bool, reason string, at time.Time) (int, error)
	}

	Service struct {
		payments Ledger
		receipts ReceiptLedger
		children child.Repository
	}
)

var _ child.EnrollmentBiller = (*Service)(nil)

func NewService(payments Ledger, receipts ReceiptLedger, children child.Repository) *Service {
	return &Service{payments: payments, receipts: receipts, children: children}
}

// Record stores a Payment made by staff and issues its Receipt.
func (svc *Service) Record(scope user.Scope, np NewPayment) (Payment, Receipt, error) {
	if err := scope.AuthorizeAdmin(); err != nil {
		return Payment{}, Receipt{}, err
	}
	c, err := svc.children.GetChildByID(np.PersonID)
	if err != nil {
		return Payment{}, Receipt{}, err
	}

	now := NowFunc()
	date := np.Date
	if date == "" {
		date = now.Format(core.DateLayout)
	}
	month, _ := core.ParseMonth(np.Month)

	p, err := svc.payments.Insert(Payment{
		ID:          uuid.NewString(),
		PersonID:    c.ID,
		Amount:      np.Amount,
		Date:        date,
		Month:       np.Month,
		Year:        month.Year(),
		Method:      np.Method,
		Description: np.Description,
		ReceivedBy:  np.ReceivedBy,
		CreatedAt:   now.UTC(),
	})
	if err != nil {
		return Payment{}, Receipt{}, errors.Wrap(err, "inserting payment")
	}

	r, err := svc.receipts.Insert(Receipt{
		ID:            uuid.NewString(),
		PaymentID:     p.ID,
		PersonID:      c.ID,
		ChildName:     c.DisplayName(),
		Amount:        p.Amount,
		Date:          p.Date,
		Month:         p.Month,
		ReceiptNumber: ReceiptNumber(now),
		CreatedAt:     now.UTC(),
	})
	if err != nil {
		return p, Receipt{}, errors.Wrap(err, "inserting receipt")
	}
	return p, r, nil
}

// BillEnrollment records the current month fee of a newly enrolled Child.
func (svc *Service) BillEnrollment(c child.Child) error {
	now := NowFunc()
	_, err := svc.payments.Insert(Payment{
		ID:          uuid.NewString(),
		PersonID:    c.ID,
		Amount:      c.MonthlyFee,
		Date:        now.Format(core.DateLayout),
		Month:       now.Format(core.MonthLayout),
		Year:        now.Year(),
		Method:      MethodCash,
		Description: EnrollmentDescription,
		ReceivedBy:  SystemReceiver,
		CreatedAt:   now.UTC(),
	})
	return err
}

// visibleChildren maps the IDs of the children visible to scope to their record.
func (svc *Service) visibleChildren(scope user.Scope) (map[string]child.Child, error) {
	all, err := svc.children.QueryAllChildren()
	if err != nil {
		return nil, errors.Wrap(err, "querying children")
	}
	visible := make(map[string]child.Child, len(all))
	for _, c := range all {
		if scope.Allows(c.Group) {
			visible[c.ID] = c
		}
	}
	return visible, nil
}

// authorizePerson rejects a filter naming a child that does not exist or is outside scope.
func (svc *Service) authorizePerson(scope user.Scope, id string) error {
	if id == "" {
		return nil
	}
	c, err := svc.children.GetChildByID(id)
	if err != nil {
		return err
	}
	return scope.Authorize(c.Group)
}

// Query lists the payments of the children visible to scope, most recent first.
func (svc *Service) Query(scope user.Scope, filter QueryFilter) ([]Payment, error) {
	if err := svc.authorizePerson(scope, filter.PersonID); err != nil {
		return nil, err
	}
	visible, err := svc.visibleChildren(scope)
	if err != nil {
		return nil, err
	}
	all, err := svc.payments.All()
	if err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	payments := make([]Payment, 0, len(all))
	for _, p := range all {
		if _, ok := visible[p.PersonID]; !ok {
			continue
		}
		if filter.PersonID != "" && p.PersonID != filter.PersonID {
			continue
		}
		if filter.Month != "" && p.Month != filter.Month {
			continue
		}
		payments = append(payments, p)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].Date > payments[j].Date
	})
	return payments, nil
}

// Receipts lists the receipts of the children visible to scope, most recent first. Voided receipts are included.
func (svc *Service) Receipts(scope user.Scope, filter QueryFilter) ([]Receipt, error) {
	if err := svc.authorizePerson(scope, filter.PersonID); err != nil {
		return nil, err
	}
	visible, err := svc.visibleChildren(scope)
	if err != nil {
		return nil, err
	}
	all, err := svc.receipts.All()
	if err != nil {
		return nil, errors.Wrap(err, "querying receipts")
	}

	receipts := make([]Receipt, 0, len(all))
	for _, r := range all {
		if _, ok := visible[r.PersonID]; !ok {
			continue
		}
		if filter.PersonID != "" && r.PersonID != filter.PersonID {
			continue
		}
		if filter.Month != "" && r.Month != filter.Month {
			continue
		}
		receipts = append(receipts, r)
	}
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].CreatedAt.After(receipts[j].CreatedAt)
	})
	return receipts, nil
}
