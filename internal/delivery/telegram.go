package delivery

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramClient delivers through the Telegram Bot API. Identities are
// chat ids in decimal form. It can also serve as the inbound source via
// long polling when the bot runs on Telegram instead of a webhook platform.
type TelegramClient struct {
	api *tgbotapi.BotAPI
	s   sender
}

func NewTelegram(botToken string) (*TelegramClient, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}
	return &TelegramClient{api: api, s: api}, nil
}

func (c *TelegramClient) SendText(ctx context.Context, identity, text string) (string, error) {
	chatID, err := strconv.ParseInt(identity, 10, 64)
	if err != nil {
		return "", fmt.Errorf("telegram identity %q is not a chat id: %w", identity, err)
	}
	sent, err := c.s.Send(tgbotapi.NewMessage(chatID, text))
	if err != nil {
		return "", fmt.Errorf("telegram send failed: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// InboundHandler receives one inbound text event.
type InboundHandler func(ctx context.Context, identity, text, messageID string)

// Listen long-polls for updates and forwards text messages until ctx is
// canceled. Non-text updates are ignored.
func (c *TelegramClient) Listen(ctx context.Context, handle InboundHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := c.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			c.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			msg := update.Message
			log.Printf("incoming telegram message from chat %d", msg.Chat.ID)
			handle(ctx, strconv.FormatInt(msg.Chat.ID, 10), msg.Text, strconv.Itoa(msg.MessageID))
		}
	}
}
