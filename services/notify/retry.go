package notifysvc

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
)

var sleepFunc = time.Sleep // mockable

type retryNotifier struct {
	next     core.Notifier
	attempts int
	delay    time.Duration
}

// WithRetry retries failed deliveries up to retries more times, doubling delay after each failure.
func WithRetry(next core.Notifier, retries int, delay time.Duration) core.Notifier {
	if retries <= 0 {
		return next
	}
	return &retryNotifier{next: next, attempts: retries + 1, delay: delay}
}

func (n *retryNotifier) SendAbsenceNotification(personName, contact, date string) error {
	var err error
	delay := n.delay
	for i := 0; i < n.attempts; i++ {
		if i > 0 {
			sleepFunc(delay)
			delay *= 2
		}
		if err = n.next.SendAbsenceNotification(personName, contact, date); err == nil {
			return nil
		}
	}
	return errors.Wrapf(err, "giving up after %d attempts", n.attempts)
}
