package telegram

import (
	"context"
	"errors"
	"fmt"

	"friend_broadcast_bot/internal/app"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// RegisterSubscriptionHandlers lets users join (/start) and leave (/stop) the broadcast list.
func RegisterSubscriptionHandlers(ctx context.Context, b *telebot.Bot, subscriptions *app.SubscriptionService, baseLogger *logrus.Entry) {
	b.Handle("/start", func(c telebot.Context) error {
		sender := c.Sender()
		logCtx := baseLogger.WithFields(logrus.Fields{
			"command":   "/start",
			"sender_id": sender.ID,
		})

		f, result, err := subscriptions.Subscribe(ctx, sender.ID, sender.FirstName, sender.LastName)
		if err != nil {
			logCtx.WithError(err).Error("Failed to subscribe user")
			return c.Send("Could not subscribe you right now. Please try again later.")
		}
		logCtx.WithFields(logrus.Fields{
			"friend_id": f.ID,
			"result":    result,
		}).Info("Processed /start command")

		switch result {
		case app.SubscribeCreated:
			return c.Send(fmt.Sprintf("Hello, %s! You are subscribed to the reminders. Send /stop to unsubscribe.", f.FirstName))
		case app.SubscribeReactivated:
			return c.Send(fmt.Sprintf("Welcome back, %s! Your subscription is active again.", f.FirstName))
		default:
			return c.Send(fmt.Sprintf("Hello, %s! You are already subscribed.", f.FirstName))
		}
	})

	b.Handle("/stop", func(c telebot.Context) error {
		logCtx := baseLogger.WithFields(logrus.Fields{
			"command":   "/stop",
			"sender_id": c.Sender().ID,
		})

		f, err := subscriptions.Unsubscribe(ctx, c.Sender().ID)
		if err != nil {
			if errors.Is(err, app.ErrNotSubscribed) {
				logCtx.Info("User was not subscribed")
				return c.Send("You are not subscribed. Send /start to subscribe.")
			}
			logCtx.WithError(err).Error("Failed to unsubscribe user")
			return c.Send("Could not unsubscribe you right now. Please try again later.")
		}
		logCtx.WithField("friend_id", f.ID).Info("User unsubscribed")
		return c.Send("You are unsubscribed and will not receive reminders anymore. Send /start to subscribe again.")
	})
}
