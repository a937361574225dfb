package kvrepos

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/attendance"
	"github.com/trezcool/davomat/core/child"
	"github.com/trezcool/davomat/core/payment"
	"github.com/trezcool/davomat/core/user"
	inmemkv "github.com/trezcool/davomat/storage/kv/inmem"
	"github.com/trezcool/davomat/tests"
)

func setup() (*DB, *inmemkv.Store) {
	store := inmemkv.Open("kindergarten_srm_", testutil.NewLogger())
	return Open(store), store
}

func TestAttendanceLedger_UpsertByKey(t *testing.T) {
	db, _ := setup()
	ledger := NewAttendanceLedger(db)

	first, err := ledger.UpsertByKey(attendance.Record{PersonID: "p1", Date: "2024-01-15", Status: attendance.StatusPresent, CheckIn: null.StringFrom("08:30")})
	if err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}
	if first.ID == "" {
		t.Fatal("UpsertByKey() did not assign an ID")
	}
	if _, err = ledger.UpsertByKey(attendance.Record{PersonID: "p2", Date: "2024-01-15", Status: attendance.StatusLate}); err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}

	second, err := ledger.UpsertByKey(attendance.Record{ID: "ignored", PersonID: "p1", Date: "2024-01-15", Status: attendance.StatusAbsent})
	if err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("UpsertByKey() ID = %s, want %s kept", second.ID, first.ID)
	}

	records, _ := ledger.All()
	assert.Len(t, records, 2)
	rec, found, err := ledger.FindByKey(attendance.Key{PersonID: "p1", Date: "2024-01-15"})
	if err != nil || !found {
		t.Fatalf("FindByKey() = %v, %v", found, err)
	}
	assert.Equal(t, attendance.StatusAbsent, rec.Status)
	assert.False(t, rec.CheckIn.Valid)
}

func TestAttendanceLedger_UpsertByKeyDropsDuplicates(t *testing.T) {
	db, store := setup()
	ledger := NewAttendanceLedger(db)

	dup := []attendance.Record{
		{ID: "a", PersonID: "p1", Date: "2024-01-15", Status: attendance.StatusPresent},
		{ID: "b", PersonID: "p1", Date: "2024-01-15", Status: attendance.StatusLate},
		{ID: "c", PersonID: "p1", Date: "2024-01-16", Status: attendance.StatusLate},
	}
	raw, _ := json.Marshal(dup)
	store.Put(core.KeyAttendance, raw)

	rec, err := ledger.UpsertByKey(attendance.Record{PersonID: "p1", Date: "2024-01-15", Status: attendance.StatusSick})
	if err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}
	assert.Equal(t, "a", rec.ID)

	records, _ := ledger.All()
	assert.Len(t, records, 2)
}

func TestAttendanceLedger_StaffIsSeparate(t *testing.T) {
	db, _ := setup()
	children := NewAttendanceLedger(db)
	staff := NewStaffAttendanceLedger(db)

	if _, err := staff.UpsertByKey(attendance.Record{PersonID: "t1", Date: "2024-01-15", Status: attendance.StatusPresent}); err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}
	records, _ := children.All()
	assert.Empty(t, records)

	removed, err := staff.RemoveWhere(attendance.OnDate("2024-01-15"))
	if err != nil {
		t.Fatalf("RemoveWhere() failed: %v", err)
	}
	assert.Equal(t, 1, removed)
}

func TestPaymentLedger_RemoveWhere(t *testing.T) {
	db, _ := setup()
	ledger := NewPaymentLedger(db)

	p1 := testutil.CreatePayment(t, ledger, "p1", 300000, "2024-01")
	p2 := testutil.CreatePayment(t, ledger, "p1", 200000, "2024-01")
	other := testutil.CreatePayment(t, ledger, "p1", 500000, "2024-02")
	stranger := testutil.CreatePayment(t, ledger, "p2", 500000, "2024-01")

	removed, err := ledger.RemoveWhere(payment.ForPeriod("p1", "2024-01"))
	if err != nil {
		t.Fatalf("RemoveWhere() failed: %v", err)
	}
	assert.ElementsMatch(t, []string{p1.ID, p2.ID}, []string{removed[0].ID, removed[1].ID})
	assert.True(t, payment.Total(removed).Equal(decimal.NewFromInt(500000)))

	left, _ := ledger.All()
	leftIDs := make([]string, 0, len(left))
	for _, p := range left {
		leftIDs = append(leftIDs, p.ID)
	}
	assert.ElementsMatch(t, []string{other.ID, stranger.ID}, leftIDs)

	removed, err = ledger.RemoveWhere(payment.ForPeriod("p1", "2024-01"))
	if err != nil {
		t.Fatalf("RemoveWhere() failed: %v", err)
	}
	assert.Empty(t, removed)
}

func TestPaymentLedger_UpsertByKey(t *testing.T) {
	db, _ := setup()
	ledger := NewPaymentLedger(db)

	p := testutil.CreatePayment(t, ledger, "p1", 300000, "2024-01")
	p.Amount = decimal.NewFromInt(350000)
	if _, err := ledger.UpsertByKey(p); err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}
	fresh, err := ledger.UpsertByKey(payment.Payment{PersonID: "p1", Month: "2024-01", Amount: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("UpsertByKey() failed: %v", err)
	}
	if fresh.ID == "" {
		t.Error("UpsertByKey() did not assign an ID")
	}

	all, _ := ledger.All()
	assert.Len(t, all, 2)
	assert.True(t, all[0].Amount.Equal(decimal.NewFromInt(350000)))
}

func TestReceiptLedger_VoidWhere(t *testing.T) {
	db, _ := setup()
	payments := NewPaymentLedger(db)
	receipts := NewReceiptLedger(db)

	p1 := testutil.CreatePayment(t, payments, "p1", 300000, "2024-01")
	p2 := testutil.CreatePayment(t, payments, "p1", 300000, "2024-02")
	r1 := testutil.CreateReceipt(t, receipts, p1)
	testutil.CreateReceipt(t, receipts, p2)

	at := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	voided, err := receipts.VoidWhere(payment.ForPayments([]payment.Payment{p1}), "refund", at)
	if err != nil {
		t.Fatalf("VoidWhere() failed: %v", err)
	}
	assert.Equal(t, 1, voided)

	// already voided receipts are left alone
	voided, err = receipts.VoidWhere(payment.ForPayments([]payment.Payment{p1}), "again", at.Add(time.Hour))
	if err != nil {
		t.Fatalf("VoidWhere() failed: %v", err)
	}
	assert.Equal(t, 0, voided)

	all, _ := receipts.All()
	assert.Len(t, all, 2, "receipts are never deleted")
	for _, r := range all {
		if r.ID == r1.ID {
			assert.True(t, r.IsVoid())
			assert.Equal(t, "refund", r.VoidReason.String)
			assert.True(t, r.VoidedAt.Time.Equal(at))
		} else {
			assert.False(t, r.IsVoid())
		}
	}
}

func TestChildRepository(t *testing.T) {
	db, _ := setup()
	repo := NewChildRepository(db)

	c := testutil.CreateChild(t, repo, "Sardor", "Aliyev", "9A", 500000)
	got, err := repo.GetChildByID(c.ID)
	if err != nil {
		t.Fatalf("GetChildByID() failed: %v", err)
	}
	assert.Equal(t, c.DisplayName(), got.DisplayName())
	assert.True(t, got.MonthlyFee.Equal(decimal.NewFromInt(500000)))

	got.Group = "9B"
	if _, err = repo.UpdateChild(got); err != nil {
		t.Fatalf("UpdateChild() failed: %v", err)
	}
	got, _ = repo.GetChildByID(c.ID)
	assert.Equal(t, "9B", got.Group)

	if _, err = repo.GetChildByID("lol"); err != child.ErrNotFound {
		t.Errorf("GetChildByID() error = %v, wantErr %v", err, child.ErrNotFound)
	}
	if _, err = repo.UpdateChild(child.Child{ID: "lol"}); err != child.ErrNotFound {
		t.Errorf("UpdateChild() error = %v, wantErr %v", err, child.ErrNotFound)
	}
}

func TestUserRepository_KeepsPasswordHash(t *testing.T) {
	db, _ := setup()
	repo := NewUserRepository(db)

	usr := testutil.CreateUser(t, repo, "Malika", "malika", "Str0ng-pass", user.RoleTeacher, []string{"9A"}, true)
	got, err := repo.GetUserByUsername("malika")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	if err = got.CheckPassword("Str0ng-pass"); err != nil {
		t.Errorf("stored password hash lost: %v", err)
	}
	assert.Equal(t, []string{"9A"}, got.AssignedGroups)

	if _, err = repo.CreateUser(user.User{Username: usr.Username}); err != user.ErrUsernameExists {
		t.Errorf("CreateUser() error = %v, wantErr %v", err, user.ErrUsernameExists)
	}
	if _, err = repo.GetUserByID("lol"); err != user.ErrNotFound {
		t.Errorf("GetUserByID() error = %v, wantErr %v", err, user.ErrNotFound)
	}

	// the public JSON form never carries the hash
	pub, _ := json.Marshal(got)
	assert.NotContains(t, string(pub), "password")
}

func TestDB_ExportImport(t *testing.T) {
	db, _ := setup()
	children := NewChildRepository(db)
	payments := NewPaymentLedger(db)
	testutil.CreateUser(t, NewUserRepository(db), "Admin", "admin", "", user.RoleAdmin, nil, true)
	c := testutil.CreateChild(t, children, "Sardor", "Aliyev", "9A", 500000)
	testutil.CreatePayment(t, payments, c.ID, 500000, "2024-01")

	at := time.Date(2024, 1, 31, 18, 0, 0, 0, time.UTC)
	data, err := db.Export(at)
	if err != nil {
		t.Fatalf("Export() failed: %v", err)
	}
	var doc map[string]json.RawMessage
	if err = json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	assert.Contains(t, doc, "children")
	assert.Contains(t, doc, "attendance")
	assert.Contains(t, doc, "exportDate")
	assert.NotContains(t, doc, "users")
	assert.JSONEq(t, `"2024-01-31T18:00:00Z"`, string(doc["exportDate"]))
	assert.JSONEq(t, `[]`, string(doc["attendance"]))

	// import into a fresh store
	other, _ := setup()
	imported, err := other.Import(data)
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	assert.Equal(t, BackupKeys, imported)
	got, err := NewChildRepository(other).GetChildByID(c.ID)
	if err != nil {
		t.Fatalf("GetChildByID() after import failed: %v", err)
	}
	assert.Equal(t, "9A", got.Group)
	pays, _ := NewPaymentLedger(other).All()
	assert.Len(t, pays, 1)

	// only present keys are overwritten
	imported, err = other.Import([]byte(`{"payments": []}`))
	if err != nil {
		t.Fatalf("Import() failed: %v", err)
	}
	assert.Equal(t, []string{core.KeyPayments}, imported)
	pays, _ = NewPaymentLedger(other).All()
	assert.Empty(t, pays)
	kids, _ := NewChildRepository(other).QueryAllChildren()
	assert.Len(t, kids, 1)
}

func TestDB_ImportMalformed(t *testing.T) {
	db, _ := setup()
	c := testutil.CreateChild(t, NewChildRepository(db), "Sardor", "Aliyev", "9A", 0)

	for _, doc := range []string{"{lol", `[]`, `{"children": {}, "payments": []}`} {
		if _, err := db.Import([]byte(doc)); errors.Cause(err) != ErrMalformedBackup {
			t.Errorf("Import(%s) error = %v, wantErr %v", doc, err, ErrMalformedBackup)
		}
	}
	// nothing was written
	if _, err := NewChildRepository(db).GetChildByID(c.ID); err != nil {
		t.Errorf("GetChildByID() after malformed import failed: %v", err)
	}
}
