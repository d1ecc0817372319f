// internal/infra/telegram/bot_commands_handler.go
package telegram

import (
	"context"
	"errors"
	"strings"

	"friend_broadcast_bot/internal/app"
	idb "friend_broadcast_bot/internal/infra/database" // For ErrFriendNotFound

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

func RegisterBotCommands(
	ctx context.Context,
	b *telebot.Bot,
	adminService *app.AdminService,
	subscriptions *app.SubscriptionService,
	baseLogger *logrus.Entry,
) {
	helpLogger := baseLogger.WithField("handler_group", "help")

	b.Handle("/help", func(c telebot.Context) error {
		senderID := c.Sender().ID
		logCtx := helpLogger.WithField("command", "/help").WithField("sender_id", senderID)
		logCtx.Info("Processing /help command")

		if adminService.IsAdmin(senderID) {
			logCtx.Info("User identified as Admin, sending admin help.")
			return c.Send(adminHelpText(), &telebot.SendOptions{ParseMode: telebot.ModeMarkdown})
		}

		f, err := subscriptions.Lookup(ctx, senderID)
		if err != nil && !errors.Is(err, idb.ErrFriendNotFound) {
			logCtx.WithError(err).Error("Error checking friend status for /help command")
			return c.Send("Could not check your subscription. Please try again later.")
		}
		if f != nil && f.IsActive {
			logCtx.WithField("friend_id", f.ID).Info("User identified as active friend")
			return c.Send("You are subscribed and will receive the regular reminders.\n\n/stop - unsubscribe\n/help - show this message")
		}
		logCtx.Info("User is not subscribed")
		return c.Send("You are not subscribed.\n\n/start - subscribe to reminders\n/help - show this message")
	})
}

func adminHelpText() string {
	var helpText strings.Builder
	helpText.WriteString("Admin commands:\n\n")
	helpText.WriteString("`/add_friend <TelegramID> <FirstName> [LastName]`\n - Add a friend to the broadcast list.\n\n")
	helpText.WriteString("`/remove_friend <TelegramID>`\n - Deactivate a friend (no more broadcasts).\n\n")
	helpText.WriteString("`/list_friends [active|all]`\n - List friends. Active ones by default.\n\n")
	helpText.WriteString("`/broadcast_status`\n - Show the state and last run of each broadcast.\n\n")
	helpText.WriteString("`/help`\n - Show this message.")
	return helpText.String()
}
