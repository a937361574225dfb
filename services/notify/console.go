package notifysvc

import (
	"fmt"
	"sync"

	"github.com/trezcool/davomat/core"
)

// Notice is an absence notice as handed to a Notifier.
type Notice struct {
	PersonName string
	Contact    string
	Date       string
}

// ConsoleNotifier logs absence notices instead of delivering them.
type ConsoleNotifier struct {
	logger core.Logger

	mu   sync.Mutex
	sent []Notice
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(logger core.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) SendAbsenceNotification(personName, contact, date string) error {
	n.logger.Info(fmt.Sprintf("Telegram xabari: %s bugun (%s) kelmadi. Ota-ona: %s", personName, date, contact))

	n.mu.Lock()
	n.sent = append(n.sent, Notice{PersonName: personName, Contact: contact, Date: date})
	n.mu.Unlock()
	return nil
}

// SentNotices returns the notices logged so far.
func (n *ConsoleNotifier) SentNotices() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.sent...)
}
