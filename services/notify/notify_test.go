package notifysvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/davomat/core"
	emailsvc "github.com/trezcool/davomat/services/email"
	"github.com/trezcool/davomat/tests"
)

type telegramRequest struct {
	path   string
	chatID string
	text   string
	mode   string
}

// newTelegramServer answers getMe and replies to sendMessage with *reply.
func newTelegramServer(t *testing.T, reply *string, got *telegramRequest) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/getMe") {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Davomat","username":"davomat_bot"}}`))
			return
		}
		_ = r.ParseForm()
		*got = telegramRequest{
			path:   r.URL.Path,
			chatID: r.PostForm.Get("chat_id"),
			text:   r.PostForm.Get("text"),
			mode:   r.PostForm.Get("parse_mode"),
		}
		_, _ = w.Write([]byte(*reply))
	}))
	t.Cleanup(srv.Close)

	origAPI := telegramAPI
	telegramAPI = srv.URL + "/bot%s/%s"
	t.Cleanup(func() { telegramAPI = origAPI })
}

func TestTelegramNotifier(t *testing.T) {
	var got telegramRequest
	reply := `{"ok":true,"result":{"message_id":7,"date":1705300000,"chat":{"id":-100,"type":"group"}}}`
	newTelegramServer(t, &reply, &got)

	n := NewTelegramNotifier(core.NotifyConfig{TelegramBotToken: "123:abc", TelegramChatID: "-100"}, testutil.NewLogger())
	if err := n.SendAbsenceNotification("Sardor Aliyev", "Jasur (+998901234567)", "15.01.2024"); err != nil {
		t.Fatalf("SendAbsenceNotification() failed: %v", err)
	}
	assert.Equal(t, "/bot123:abc/sendMessage", got.path)
	assert.Equal(t, "-100", got.chatID)
	assert.Equal(t, "HTML", got.mode)
	assert.Equal(t,
		"🚨 Davomat xabari\n\n👶 Bola: Sardor Aliyev\n👨‍👩‍👧 Ota-ona: Jasur (+998901234567)\n📅 Sana: 15.01.2024\n\n❌ Bugun bog'chaga kelmadi",
		got.text,
	)

	// names reach Telegram escaped for HTML
	if err := n.SendAbsenceNotification("Ali <Vali>", "Ota & Ona", "15.01.2024"); err != nil {
		t.Fatalf("SendAbsenceNotification() failed: %v", err)
	}
	assert.Contains(t, got.text, "Bola: Ali &lt;Vali&gt;")
	assert.Contains(t, got.text, "Ota-ona: Ota &amp; Ona")

	reply = `{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`
	err := n.SendAbsenceNotification("Sardor Aliyev", "Jasur", "15.01.2024")
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "chat not found")
	}
}

func TestTelegramNotifier_ChannelUsername(t *testing.T) {
	var got telegramRequest
	reply := `{"ok":true,"result":{"message_id":8,"date":1705300000,"chat":{"id":-200,"type":"channel"}}}`
	newTelegramServer(t, &reply, &got)

	n := NewTelegramNotifier(core.NotifyConfig{TelegramBotToken: "t", TelegramChatID: "@bogcha_davomat"}, testutil.NewLogger())
	if err := n.SendAbsenceNotification("Sardor Aliyev", "Jasur", "15.01.2024"); err != nil {
		t.Fatalf("SendAbsenceNotification() failed: %v", err)
	}
	assert.Equal(t, "@bogcha_davomat", got.chatID)
}

func TestTelegramNotifier_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":401,"description":"Unauthorized"}`))
	}))
	defer srv.Close()

	origAPI := telegramAPI
	telegramAPI = srv.URL + "/bot%s/%s"
	defer func() { telegramAPI = origAPI }()

	n := NewTelegramNotifier(core.NotifyConfig{TelegramBotToken: "t", TelegramChatID: "1"}, testutil.NewLogger())
	err := n.SendAbsenceNotification("Sardor Aliyev", "Jasur", "15.01.2024")
	if assert.Error(t, err) {
		assert.Contains(t, err.Error(), "Unauthorized")
	}
}

func TestNewTelegramNotifier_FallsBackToConsole(t *testing.T) {
	logger := testutil.NewLogger()
	n := NewTelegramNotifier(core.NotifyConfig{TelegramBotToken: "t"}, logger)

	console, ok := n.(*ConsoleNotifier)
	if !ok {
		t.Fatalf("NewTelegramNotifier() = %T, want *ConsoleNotifier", n)
	}
	if err := console.SendAbsenceNotification("Sardor Aliyev", "Jasur", "15.01.2024"); err != nil {
		t.Fatalf("SendAbsenceNotification() failed: %v", err)
	}
	assert.Equal(t, []Notice{{PersonName: "Sardor Aliyev", Contact: "Jasur", Date: "15.01.2024"}}, console.SentNotices())
}

type flakyNotifier struct {
	failures int
	calls    int
}

func (n *flakyNotifier) SendAbsenceNotification(string, string, string) error {
	n.calls++
	if n.calls <= n.failures {
		return errors.New("try again")
	}
	return nil
}

func TestWithRetry(t *testing.T) {
	var slept []time.Duration
	sleepFunc = func(d time.Duration) { slept = append(slept, d) }
	defer func() { sleepFunc = time.Sleep }()

	tests := []struct {
		name      string
		failures  int
		retries   int
		wantCalls int
		wantErr   bool
	}{
		{name: "first attempt", failures: 0, retries: 3, wantCalls: 1},
		{name: "recovers", failures: 2, retries: 3, wantCalls: 3},
		{name: "gives up", failures: 5, retries: 3, wantCalls: 4, wantErr: true},
		{name: "no retries", failures: 1, retries: 0, wantCalls: 1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slept = nil
			flaky := &flakyNotifier{failures: tt.failures}
			err := WithRetry(flaky, tt.retries, time.Second).SendAbsenceNotification("a", "b", "c")
			if (err != nil) != tt.wantErr {
				t.Errorf("SendAbsenceNotification() error = %v, wantErr %v", err, tt.wantErr)
			}
			assert.Equal(t, tt.wantCalls, flaky.calls)
		})
	}
	// "gives up" is not the last case, so check the backoff of a fresh run
	slept = nil
	_ = WithRetry(&flakyNotifier{failures: 5}, 3, time.Second).SendAbsenceNotification("a", "b", "c")
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}, slept)
}

func TestEmailNotifier(t *testing.T) {
	conf := core.NewTestConfig()
	mailer := emailsvc.NewConsoleServiceMock(conf)

	if _, err := NewEmailNotifier(core.NotifyConfig{}, mailer); err == nil {
		t.Error("NewEmailNotifier() without recipients error = nil, want error")
	}

	n, err := NewEmailNotifier(core.NotifyConfig{EmailTo: "Staff <staff@bogcha.uz>"}, mailer)
	if err != nil {
		t.Fatalf("NewEmailNotifier() failed: %v", err)
	}
	if err = n.SendAbsenceNotification("Sardor Aliyev", "Jasur", "15.01.2024"); err != nil {
		t.Fatalf("SendAbsenceNotification() failed: %v", err)
	}
	sent := mailer.SentMessages()
	if assert.Len(t, sent, 1) {
		assert.Equal(t, "staff@bogcha.uz", sent[0].To[0].Address)
		assert.True(t, strings.Contains(sent[0].TextContent, "Bola: Sardor Aliyev"))
	}
}

func TestNewNotifier(t *testing.T) {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger()

	n, err := NewNotifier(conf, logger)
	if err != nil {
		t.Fatalf("NewNotifier() failed: %v", err)
	}
	assert.IsType(t, &ConsoleNotifier{}, n)

	conf.Notify.Driver = "pigeon"
	if _, err = NewNotifier(conf, logger); err == nil {
		t.Error("NewNotifier() error = nil, want error")
	}
}
