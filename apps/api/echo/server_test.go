package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/davomat/core"
	"github.com/trezcool/davomat/core/child"
	"github.com/trezcool/davomat/core/payment"
	"github.com/trezcool/davomat/core/reconcile"
	"github.com/trezcool/davomat/core/user"
	inmemkv "github.com/trezcool/davomat/storage/kv/inmem"
	"github.com/trezcool/davomat/storage/kvrepos"
	"github.com/trezcool/davomat/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	srv      *Server
	users    user.Repository
	children child.Repository
	payments payment.Ledger
	notifier *testutil.Notifier
}

func setup(t *testing.T) *fixture {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	payment.InitValidators(validate, translator)

	db := kvrepos.Open(inmemkv.Open(conf.Store.Prefix, logger))
	f := &fixture{
		users:    kvrepos.NewUserRepository(db),
		children: kvrepos.NewChildRepository(db),
		payments: kvrepos.NewPaymentLedger(db),
		notifier: &testutil.Notifier{},
	}
	receipts := kvrepos.NewReceiptLedger(db)
	paySvc := payment.NewService(f.payments, receipts, f.children)
	engine := reconcile.NewEngineMock(reconcile.Deps{
		Children:   f.children,
		Users:      f.users,
		Attendance: kvrepos.NewAttendanceLedger(db),
		Staff:      kvrepos.NewStaffAttendanceLedger(db),
		Payments:   f.payments,
		Receipts:   receipts,
		Notifier:   f.notifier,
		Logger:     logger,
	}, time.Date(2024, 1, 15, 8, 30, 0, 0, time.UTC))

	f.srv = NewServer(&Options{
		Conf:           conf,
		Logger:         logger,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
		UserSvc:        user.NewService(f.users),
		ChildSvc:       child.NewService(f.children, paySvc),
		PaymentSvc:     paySvc,
		Engine:         engine,
	})
	return f
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func (f *fixture) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.srv.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) getToken(t *testing.T, usr user.User) string {
	token, err := f.srv.auth.generateToken(usr)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarchall(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("json.Unmarshal(%s) failed: %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func TestUserApi_Login(t *testing.T) {
	f := setup(t)
	testutil.CreateUser(t, f.users, "Malika", "malika", "Bogcha2024!", user.RoleTeacher, []string{"9A"}, true)
	testutil.CreateUser(t, f.users, "Old Timer", "oldtimer", "Bogcha2024!", user.RoleTeacher, nil, false)

	tests := []httpTest{
		{
			name:     "missing fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong password",
			body:     []byte(`{"username": "malika", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "unknown user",
			body:     []byte(`{"username": "ghost", "password": "Bogcha2024!"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "deactivated",
			body:     []byte(`{"username": "oldtimer", "password": "Bogcha2024!"}`),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "success",
			body:     []byte(`{"username": " Malika ", "password": "Bogcha2024!"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, "/v1/users/login", "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	rec := f.do(http.MethodPost, "/v1/users/login", "", []byte(`{"username": "malika", "password": "Bogcha2024!"}`))
	var login LoginResponse
	unmarchall(t, rec, &login)

	rec = f.do(http.MethodGet, "/v1/users/me", login.Token)
	var me MeResponse
	unmarchall(t, rec, &me)
	assert.Equal(t, "malika", me.User.Username)
	assert.False(t, me.CanSeeAll)
	assert.Equal(t, []string{"9A"}, me.Groups)
}

func TestUserApi_AdminOnly(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.users, "Admin", "admin", "", user.RoleAdmin, nil, true)
	teacher := testutil.CreateUser(t, f.users, "Malika", "malika", "", user.RoleTeacher, []string{"9A"}, true)
	adminToken, teacherToken := f.getToken(t, admin), f.getToken(t, teacher)

	newUser := []byte(`{"name": "Dilnoza", "username": "dilnoza", "role": "teacher", "assigned_groups": ["9B", " 9B ", "9A"],
		"password": "Bogcha2024!", "password_confirm": "Bogcha2024!"}`)

	tests := []httpTest{
		{name: "no token", method: http.MethodGet, path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "teacher lists users", method: http.MethodGet, path: "/v1/users", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "teacher registers user", method: http.MethodPost, path: "/v1/users/register", token: teacherToken, body: newUser, wantCode: http.StatusForbidden},
		{name: "admin registers user", method: http.MethodPost, path: "/v1/users/register", token: adminToken, body: newUser, wantCode: http.StatusCreated},
		{name: "duplicate username", method: http.MethodPost, path: "/v1/users/register", token: adminToken, body: newUser, wantCode: http.StatusBadRequest},
		{name: "admin deactivates self", method: http.MethodPut, path: "/v1/users/" + admin.ID, token: adminToken, body: []byte(`{"is_active": false}`), wantCode: http.StatusForbidden},
		{name: "unknown user", method: http.MethodPut, path: "/v1/users/lol", token: adminToken, body: []byte(`{}`), wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	created, err := f.users.GetUserByUsername("dilnoza")
	if err != nil {
		t.Fatalf("GetUserByUsername() failed: %v", err)
	}
	assert.Equal(t, []string{"9A", "9B"}, created.AssignedGroups)

	// a deactivated account loses access with tokens already issued
	rec := f.do(http.MethodPut, "/v1/users/"+teacher.ID, adminToken, []byte(`{"is_active": false}`))
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = f.do(http.MethodGet, "/v1/children", teacherToken)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestChildApi_Scoped(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.users, "Admin", "admin", "", user.RoleAdmin, nil, true)
	teacher := testutil.CreateUser(t, f.users, "Malika", "malika", "", user.RoleTeacher, []string{"9A"}, true)
	lonely := testutil.CreateUser(t, f.users, "Nodira", "nodira", "", user.RoleTeacher, nil, true)
	sardor := testutil.CreateChild(t, f.children, "Sardor", "Aliyev", "9A", 500000)
	madina := testutil.CreateChild(t, f.children, "Madina", "Karimova", "9B", 500000)

	count := func(token string) int {
		var children []child.Child
		unmarchall(t, f.do(http.MethodGet, "/v1/children", token), &children)
		return len(children)
	}
	assert.Equal(t, 2, count(f.getToken(t, admin)))
	assert.Equal(t, 1, count(f.getToken(t, teacher)))
	assert.Equal(t, 0, count(f.getToken(t, lonely)))

	tests := []httpTest{
		{name: "own group", method: http.MethodGet, path: "/v1/children/" + sardor.ID, token: f.getToken(t, teacher), wantCode: http.StatusOK},
		{name: "other group", method: http.MethodGet, path: "/v1/children/" + madina.ID, token: f.getToken(t, teacher), wantCode: http.StatusForbidden},
		{name: "unknown", method: http.MethodGet, path: "/v1/children/lol", token: f.getToken(t, admin), wantCode: http.StatusNotFound},
		{name: "teacher enrolls", method: http.MethodPost, path: "/v1/children", token: f.getToken(t, teacher), body: []byte(`{}`), wantCode: http.StatusForbidden},
		{
			name:     "invalid enrollment",
			method:   http.MethodPost,
			path:     "/v1/children",
			token:    f.getToken(t, admin),
			body:     []byte(`{"name": "Aziz", "surname": "Rahimov", "group": "9A", "parent_name": "Rustam", "parent_phone": "+998", "monthly_fee": "-5"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"monthly_fee": "must not be negative"}),
		},
		{
			name:     "enrollment",
			method:   http.MethodPost,
			path:     "/v1/children",
			token:    f.getToken(t, admin),
			body:     []byte(`{"name": "Aziz", "surname": "Rahimov", "group": "9A", "parent_name": "Rustam", "parent_phone": "+998", "monthly_fee": "450000"}`),
			wantCode: http.StatusCreated,
		},
		{name: "records of other group", method: http.MethodGet, path: "/v1/attendance/records?child_id=" + madina.ID, token: f.getToken(t, teacher), wantCode: http.StatusForbidden},
		{name: "payments of other group", method: http.MethodGet, path: "/v1/payments?child_id=" + madina.ID, token: f.getToken(t, teacher), wantCode: http.StatusForbidden},
		{name: "receipts of other group", method: http.MethodGet, path: "/v1/receipts?child_id=" + madina.ID, token: f.getToken(t, teacher), wantCode: http.StatusForbidden},
		{name: "payments of unknown child", method: http.MethodGet, path: "/v1/payments?child_id=lol", token: f.getToken(t, teacher), wantCode: http.StatusNotFound},
		{name: "payments of own child", method: http.MethodGet, path: "/v1/payments?child_id=" + sardor.ID, token: f.getToken(t, teacher), wantCode: http.StatusOK},
		{name: "malformed filter", method: http.MethodGet, path: "/v1/children?include_inactive=lol", token: f.getToken(t, admin), wantCode: http.StatusBadRequest},
		{name: "deactivate", method: http.MethodDelete, path: "/v1/children/" + madina.ID, token: f.getToken(t, admin), wantCode: http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Equal(t, 2, count(f.getToken(t, admin)), "deactivated children are hidden by default")
}

func TestAttendanceApi_Spravka(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.users, "Admin", "admin", "", user.RoleAdmin, nil, true)
	outsider := testutil.CreateUser(t, f.users, "Nodira", "nodira", "", user.RoleTeacher, []string{"9B"}, true)
	sardor := testutil.CreateChild(t, f.children, "Sardor", "Aliyev", "9A", 500000)
	testutil.CreatePayment(t, f.payments, sardor.ID, 500000, "2024-01")

	body := marchallObj(t, reconcile.ExcusedRequest{PersonID: sardor.ID, Date: "2024-01-15", BillingMonth: "2024-01"})

	rec := f.do(http.MethodPost, "/v1/attendance/spravka", f.getToken(t, outsider), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	all, _ := f.payments.All()
	assert.Len(t, all, 1, "a rejected call refunds nothing")

	rec = f.do(http.MethodPost, "/v1/attendance/spravka", f.getToken(t, admin), body)
	if !assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String()) {
		return
	}
	var res struct {
		Refunded     string `json:"refunded"`
		Removed      int    `json:"removed"`
		PaymentFound bool   `json:"payment_found"`
		Record       struct {
			Status string `json:"status"`
			Notes  string `json:"notes"`
		} `json:"record"`
	}
	unmarchall(t, rec, &res)
	assert.Equal(t, "500000", res.Refunded)
	assert.Equal(t, 1, res.Removed)
	assert.True(t, res.PaymentFound)
	assert.Equal(t, "absent", res.Record.Status)
	assert.Equal(t, "Spravka bilan", res.Record.Notes)
	assert.Equal(t, 0, f.notifier.Count())
}

func TestAttendanceApi_MarkAndDay(t *testing.T) {
	f := setup(t)
	teacher := testutil.CreateUser(t, f.users, "Malika", "malika", "", user.RoleTeacher, []string{"9A"}, true)
	token := f.getToken(t, teacher)
	sardor := testutil.CreateChild(t, f.children, "Sardor", "Aliyev", "9A", 0)
	testutil.CreateChild(t, f.children, "Aziz", "Rahimov", "9A", 0)

	tests := []httpTest{
		{
			name:     "invalid status",
			path:     "/v1/attendance",
			body:     []byte(`{"person_id": "` + sardor.ID + `", "date": "2024-01-15", "status": "excused"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": "must be one of present, absent, late or sick"}),
		},
		{
			name:     "absent",
			path:     "/v1/attendance",
			body:     []byte(`{"person_id": "` + sardor.ID + `", "date": "2024-01-15", "status": "absent"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "check out absent child",
			path:     "/v1/attendance/checkout",
			body:     []byte(`{"person_id": "` + sardor.ID + `", "date": "2024-01-15"}`),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, tt.path, token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
	assert.Equal(t, 1, f.notifier.Count())

	var report reconcile.DayReport
	unmarchall(t, f.do(http.MethodGet, "/v1/attendance", token), &report) // defaults to the engine's today
	assert.Equal(t, "2024-01-15", report.Summary.Date)
	assert.Len(t, report.Entries, 2)
	assert.Equal(t, 1, report.Summary.NotMarked)
}

func TestStaffAndPaymentApi_AdminOnly(t *testing.T) {
	f := setup(t)
	admin := testutil.CreateUser(t, f.users, "Admin", "admin", "", user.RoleAdmin, nil, true)
	teacher := testutil.CreateUser(t, f.users, "Malika", "malika", "", user.RoleTeacher, []string{"9A"}, true)
	sardor := testutil.CreateChild(t, f.children, "Sardor", "Aliyev", "9A", 0)
	adminToken, teacherToken := f.getToken(t, admin), f.getToken(t, teacher)

	staffMark := []byte(`{"person_id": "` + teacher.ID + `", "date": "2024-01-15", "status": "present"}`)
	pay := []byte(`{"person_id": "` + sardor.ID + `", "amount": "500000", "month": "2024-01", "payment_method": "naqd"}`)

	tests := []httpTest{
		{name: "teacher marks staff", method: http.MethodPost, path: "/v1/staff-attendance", token: teacherToken, body: staffMark, wantCode: http.StatusForbidden},
		{name: "admin marks staff", method: http.MethodPost, path: "/v1/staff-attendance", token: adminToken, body: staffMark, wantCode: http.StatusOK},
		{name: "teacher lists staff", method: http.MethodGet, path: "/v1/staff-attendance", token: teacherToken, wantCode: http.StatusForbidden},
		{name: "teacher records payment", method: http.MethodPost, path: "/v1/payments", token: teacherToken, body: pay, wantCode: http.StatusForbidden},
		{name: "admin records payment", method: http.MethodPost, path: "/v1/payments", token: adminToken, body: pay, wantCode: http.StatusCreated},
		{
			name:     "bad method",
			method:   http.MethodPost,
			path:     "/v1/payments",
			token:    adminToken,
			body:     []byte(`{"person_id": "` + sardor.ID + `", "amount": "1", "month": "2024-01", "payment_method": "crypto"}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	var payments []payment.Payment
	unmarchall(t, f.do(http.MethodGet, "/v1/payments?month=2024-01", teacherToken), &payments)
	assert.Len(t, payments, 1, "teachers read payments of their groups")

	var receipts []payment.Receipt
	unmarchall(t, f.do(http.MethodGet, "/v1/receipts", teacherToken), &receipts)
	assert.Len(t, receipts, 1)
}
