package kvrepos

import (
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/payment"
)

type paymentLedger struct {
	db *DB
}

var _ payment.Ledger = (*paymentLedger)(nil) // interface compliance check

func NewPaymentLedger(db *DB) payment.Ledger {
	return &paymentLedger{db: db}
}

func (l *paymentLedger) load() []payment.Payment {
	payments := make([]payment.Payment, 0)
	l.db.store.Load(core.KeyPayments, &payments)
	return payments
}

func (l *paymentLedger) All() ([]payment.Payment, error) {
	l.db.Lock()
	defer l.db.Unlock()
	return l.load(), nil
}

func (l *paymentLedger) Insert(p payment.Payment) (payment.Payment, error) {
	l.db.Lock()
	defer l.db.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	payments := append(l.load(), p)
	if err := l.db.store.Save(core.KeyPayments, payments); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (l *paymentLedger) UpsertByKey(p payment.Payment) (payment.Payment, error) {
	l.db.Lock()
	defer l.db.Unlock()

	payments := l.load()
	found := false
	for i := range payments {
		if payments[i].ID == p.ID && p.ID != "" {
			payments[i] = p
			found = true
			break
		}
	}
	if !found {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		payments = append(payments, p)
	}
	if err := l.db.store.Save(core.KeyPayments, payments); err != nil {
		return payment.Payment{}, err
	}
	return p, nil
}

func (l *paymentLedger) RemoveWhere(pred func(payment.Payment) bool) ([]payment.Payment, error) {
	l.db.Lock()
	defer l.db.Unlock()

	payments := l.load()
	kept := make([]payment.Payment, 0, len(payments))
	removed := make([]payment.Payment, 0)
	for _, p := range payments {
		if pred(p) {
			removed = append(removed, p)
		} else {
			kept = append(kept, p)
		}
	}
	if len(removed) == 0 {
		return removed, nil
	}
	if err := l.db.store.Save(core.KeyPayments, kept); err != nil {
		return nil, err
	}
	return removed, nil
}

type receiptLedger struct {
	db *DB
}

var _ payment.ReceiptLedger = (*receiptLedger)(nil) // interface compliance check

func NewReceiptLedger(db *DB) payment.ReceiptLedger {
	return &receiptLedger{db: db}
}

func (l *receiptLedger) load() []payment.Receipt {
	receipts := make([]payment.Receipt, 0)
	l.db.store.Load(core.KeyPaymentReceipts, &receipts)
	return receipts
}

func (l *receiptLedger) All() ([]payment.Receipt, error) {
	l.db.Lock()
	defer l.db.Unlock()
	return l.load(), nil
}

func (l *receiptLedger) Insert(r payment.Receipt) (payment.Receipt, error) {
	l.db.Lock()
	defer l.db.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	receipts := append(l.load(), r)
	if err := l.db.store.Save(core.KeyPaymentReceipts, receipts); err != nil {
		return payment.Receipt{}, err
	}
	return r, nil
}

func (l *receiptLedger) VoidWhere(pred func(payment.Receipt) bool, reason string, at time.Time) (int, error) {
	l.db.Lock()
	defer l.db.Unlock()

	receipts := l.load()
	voided := 0
	for i := range receipts {
		if receipts[i].IsVoid() || !pred(receipts[i]) {
			continue
		}
		receipts[i].VoidedAt.SetValid(at)
		receipts[i].VoidReason.SetValid(reason)
		voided++
	}
	if voided == 0 {
		return 0, nil
	}
	if err := l.db.store.Save(core.KeyPaymentReceipts, receipts); err != nil {
		return 0, err
	}
	return voided, nil
}
