package notifysvc

import (
	"fmt"
	"net/mail"

	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
)

// EmailNotifier mails absence notices to the staff mailbox.
type EmailNotifier struct {
	mailer core.EmailService
	to     []mail.Address
}

var _ core.Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(conf core.NotifyConfig, mailer core.EmailService) (*EmailNotifier, error) {
	to, err := core.ParseAddressList(conf.EmailTo)
	if err != nil {
		return nil, errors.Wrap(err, "parsing notification recipients")
	}
	if len(to) == 0 {
		return nil, errors.New("no notification recipients configured")
	}
	return &EmailNotifier{mailer: mailer, to: to}, nil
}

func (n *EmailNotifier) SendAbsenceNotification(personName, contact, date string) error {
	return n.mailer.SendMessages(&core.EmailMessage{
		To:          n.to,
		Subject:     fmt.Sprintf("Davomat xabari: %s (%s)", personName, date),
		TextContent: fmt.Sprintf(absenceMessage, personName, contact, date),
	})
}
