package notifysvc

import (
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
	emailsvc "github.com/trezcool/davomat/services/email"
)

// NewNotifier builds the notifier selected by conf.Notify.Driver: console, telegram or email.
func NewNotifier(conf *core.Config, logger core.Logger) (core.Notifier, error) {
	nc := conf.Notify
	switch nc.Driver {
	case "", "console":
		return NewConsoleNotifier(logger), nil
	case "telegram":
		return WithRetry(NewTelegramNotifier(nc, logger), nc.Retries, nc.RetryDelay), nil
	case "email":
		var mailer core.EmailService = emailsvc.NewConsoleService(conf)
		if nc.SendgridAPIKey != "" {
			mailer = emailsvc.NewSendgridService(conf)
		}
		n, err := NewEmailNotifier(nc, mailer)
		if err != nil {
			return nil, err
		}
		return WithRetry(n, nc.Retries, nc.RetryDelay), nil
	}
	return nil, errors.Errorf("unknown notify driver %q", nc.Driver)
}
