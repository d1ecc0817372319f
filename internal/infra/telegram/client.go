// internal/infra/telegram/client.go
package telegram

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// TelebotAdapter implements the domain Client interface using gopkg.in/telebot.v3.
// All sends go through one limiter so that broadcasts and command replies together
// stay under the bot-wide Telegram quota.
type TelebotAdapter struct {
	bot     *telebot.Bot
	limiter *rate.Limiter
}

// NewTelebotAdapter limits sends to perSecond messages per second (burst of the same size).
func NewTelebotAdapter(b *telebot.Bot, perSecond int) *TelebotAdapter {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &TelebotAdapter{
		bot:     b,
		limiter: rate.NewLimiter(rate.Limit(perSecond), perSecond),
	}
}

// SendMessage sends a text message to the specified chat.
func (tba *TelebotAdapter) SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error {
	if err := tba.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limiter: %w", err)
	}
	if options == nil {
		options = &telebot.SendOptions{}
	}

	recipient := &telebot.User{ID: recipientChatID} // friends are private chats
	if _, err := tba.bot.Send(recipient, text, options); err != nil {
		return fmt.Errorf("telegram send to %d: %w", recipientChatID, err)
	}
	return nil
}
