package testutil

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/child"
	"github.com/trezcool/davomat/core/payment"
	"github.com/trezcool/davomat/core/user"
)

// Logger records what was logged, by level.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

var _ core.Logger = (*Logger)(nil)

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// Errors returns the messages logged at error level.
func (l *Logger) Errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	msgs := make([]string, 0)
	for _, e := range l.entries {
		if e.Level == "error" {
			msgs = append(msgs, e.Msg)
		}
	}
	return msgs
}

// Notifier records absence notices and fails with Err when set.
type Notifier struct {
	mu    sync.Mutex
	Err   error
	Sent  []Notice
	Panic bool
}

type Notice struct {
	PersonName string
	Contact    string
	Date       string
}

var _ core.Notifier = (*Notifier)(nil)

func (n *Notifier) SendAbsenceNotification(personName, contact, date string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Sent = append(n.Sent, Notice{PersonName: personName, Contact: contact, Date: date})
	if n.Panic {
		panic("notifier exploded")
	}
	return n.Err
}

func (n *Notifier) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Sent)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, pwd string,
	role user.Role,
	groups []string,
	isActive bool,
) user.User {
	now := time.Now().UTC()
	usr := user.User{
		ID:             uuid.NewString(),
		Name:           name,
		Username:       uname,
		Role:           role,
		AssignedGroups: groups,
		IsActive:       isActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateChild(t *testing.T, repo child.Repository, name, surname, group string, fee int64, isActive ...bool) child.Child {
	active := true
	if len(isActive) > 0 {
		active = isActive[0]
	}
	now := time.Now().UTC()
	c, err := repo.CreateChild(child.Child{
		ID:             uuid.NewString(),
		Name:           name,
		Surname:        surname,
		Group:          group,
		ParentName:     fmt.Sprintf("%s's parent", name),
		ParentPhone:    "+998 90 123 45 67",
		EnrollmentDate: now.Format(core.DateLayout),
		MonthlyFee:     decimal.NewFromInt(fee),
		IsActive:       active,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("CreateChild() failed: %v", err)
	}
	return c
}

func CreatePayment(t *testing.T, ledger payment.Ledger, personID string, amount int64, month string) payment.Payment {
	p, err := ledger.Insert(payment.Payment{
		ID:          uuid.NewString(),
		PersonID:    personID,
		Amount:      decimal.NewFromInt(amount),
		Date:        month + "-01",
		Month:       month,
		Year:        2024,
		Method:      payment.MethodCash,
		Description: "test",
		ReceivedBy:  "Admin",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return p
}

func CreateReceipt(t *testing.T, ledger payment.ReceiptLedger, p payment.Payment) payment.Receipt {
	r, err := ledger.Insert(payment.Receipt{
		ID:            uuid.NewString(),
		PaymentID:     p.ID,
		PersonID:      p.PersonID,
		Amount:        p.Amount,
		Date:          p.Date,
		Month:         p.Month,
		ReceiptNumber: payment.ReceiptNumber(time.Now()),
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateReceipt() failed: %v", err)
	}
	return r
}
