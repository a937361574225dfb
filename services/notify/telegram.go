package notifysvc

import (
	"fmt"
	"html"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/trezcool/davomat/core"
)

const absenceMessage = "🚨 Davomat xabari\n\n👶 Bola: %s\n👨‍👩‍👧 Ota-ona: %s\n📅 Sana: %s\n\n❌ Bugun bog'chaga kelmadi"

var telegramAPI = tgbotapi.APIEndpoint // mockable

// TelegramNotifier posts absence notices to a Telegram group chat through the Bot API.
type TelegramNotifier struct {
	token    string
	chatID   string
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

var _ core.Notifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier returns a TelegramNotifier, or a ConsoleNotifier when the bot is not configured.
func NewTelegramNotifier(conf core.NotifyConfig, logger core.Logger) core.Notifier {
	if conf.TelegramBotToken == "" || conf.TelegramChatID == "" {
		logger.Warn("telegram bot is not configured: absence notices will only be logged")
		return NewConsoleNotifier(logger)
	}
	return &TelegramNotifier{
		token:    conf.TelegramBotToken,
		chatID:   conf.TelegramChatID,
		endpoint: telegramAPI,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// getBot connects the bot on first use; a failed connection is retried on the next notice.
func (n *TelegramNotifier) getBot() (*tgbotapi.BotAPI, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.bot == nil {
		bot, err := tgbotapi.NewBotAPIWithClient(n.token, n.endpoint, n.client)
		if err != nil {
			return nil, errors.Wrap(err, "connecting telegram bot")
		}
		n.bot = bot
	}
	return n.bot, nil
}

// newMessage addresses numeric chat ids directly and anything else (@channel) by username.
func (n *TelegramNotifier) newMessage(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(n.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(n.chatID, text)
}

func (n *TelegramNotifier) SendAbsenceNotification(personName, contact, date string) error {
	bot, err := n.getBot()
	if err != nil {
		return err
	}

	msg := n.newMessage(fmt.Sprintf(absenceMessage,
		html.EscapeString(personName), html.EscapeString(contact), html.EscapeString(date)))
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err = bot.Send(msg); err != nil {
		return errors.Wrap(err, "sending telegram message")
	}
	return nil
}
