package core

import (
	"net/mail"
)

type (
	EmailMessage struct {
		To          []mail.Address
		Cc          []mail.Address
		Bcc         []mail.Address
		Subject     string
		TextContent string
		HTMLContent string
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages and reports the first delivery failure
		SendMessages(messages ...*EmailMessage) error
	}
)

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }

// ParseAddressList parses a comma separated list of addresses, e.g. "Staff <staff@bogcha.uz>, a@b.uz".
func ParseAddressList(list string) ([]mail.Address, error) {
	if CleanString(list) == "" {
		return nil, nil
	}
	addrs, err := mail.ParseAddressList(list)
	if err != nil {
		return nil, err
	}
	res := make([]mail.Address, 0, len(addrs))
	for _, a := range addrs {
		res = append(res, *a)
	}
	return res, nil
}
