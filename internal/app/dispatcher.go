// internal/app/dispatcher.go
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"friend_broadcast_bot/internal/domain/broadcast"
	"friend_broadcast_bot/internal/domain/friend"
	domainTelegram "friend_broadcast_bot/internal/domain/telegram"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// BroadcastService runs a single broadcast cycle. The trigger loop depends on this
// interface rather than on Dispatcher so it can be tested in isolation.
type BroadcastService interface {
	// Run fetches the current friends and messages each of them once, in order.
	// The returned Run is never nil. The error is a *broadcast.LookupError when the
	// friend list could not be fetched, or ctx.Err() when the run was cancelled.
	// Per-friend delivery failures are recorded in Run.Outcomes, not returned.
	Run(ctx context.Context) (*broadcast.Run, error)
}

// Dispatcher implements BroadcastService. Friends are contacted strictly one at a time
// with a fixed pause after each send to stay under the provider's abuse threshold.
//
// No timeout is put on a single send: a send that hangs stalls the run and with it
// the whole trigger loop.
type Dispatcher struct {
	name    string
	source  friend.Source
	client  domainTelegram.Client
	message Message
	delay   time.Duration
	clock   Clock
	logger  *logrus.Entry
}

func NewDispatcher(
	name string,
	source friend.Source,
	client domainTelegram.Client,
	message Message,
	delay time.Duration, // pause after every friend, success or failure
	clock Clock,
	logger *logrus.Entry,
) *Dispatcher {
	if clock == nil {
		clock = RealClock()
	}
	return &Dispatcher{
		name:    name,
		source:  source,
		client:  client,
		message: message,
		delay:   delay,
		clock:   clock,
		logger:  logger.WithField("broadcast", name),
	}
}

// Run implements BroadcastService.
func (d *Dispatcher) Run(ctx context.Context) (*broadcast.Run, error) {
	run := broadcast.NewRun(d.name, d.clock.Now())
	runLogger := d.logger.WithField("run_id", run.ID.String())

	// 1. Snapshot the friend list
	friends, err := d.source.ListActive(ctx)
	if err != nil {
		run.FinishedAt = d.clock.Now()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			runLogger.Info("Broadcast cancelled before the friend list was fetched")
			return run, ctx.Err()
		}
		runLogger.WithError(err).Error("Failed to list friends, broadcast aborted")
		return run, &broadcast.LookupError{Err: err}
	}
	run.Friends = friends

	// 2. Render once; every friend gets the same text
	text, err := d.message.Render(run.StartedAt)
	if err != nil {
		run.FinishedAt = d.clock.Now()
		runLogger.WithError(err).Error("Failed to render broadcast message, broadcast aborted")
		return run, fmt.Errorf("failed to render broadcast message: %w", err)
	}
	run.Message = text

	runLogger.WithField("friends_count", len(friends)).Info("Starting broadcast")

	// 3. One friend at a time. A send that has started is allowed to finish even
	// if ctx is cancelled meanwhile.
	sendCtx := context.WithoutCancel(ctx)
	for _, f := range friends {
		if ctx.Err() != nil {
			return d.cancelled(ctx, run, runLogger)
		}

		run.Outcomes = append(run.Outcomes, d.deliver(sendCtx, runLogger, f, text))

		if err := d.clock.Sleep(ctx, d.delay); err != nil {
			return d.cancelled(ctx, run, runLogger)
		}
	}

	run.FinishedAt = d.clock.Now()
	sent, failed := run.Counts()
	runLogger.WithFields(logrus.Fields{
		"total":    len(run.Outcomes),
		"sent":     sent,
		"failed":   failed,
		"duration": run.FinishedAt.Sub(run.StartedAt).String(),
	}).Info("Broadcast finished")
	return run, nil
}

func (d *Dispatcher) deliver(ctx context.Context, runLogger *logrus.Entry, f *friend.Friend, text string) broadcast.Outcome {
	friendLogger := runLogger.WithFields(logrus.Fields{
		"friend_id":   f.ID,
		"telegram_id": f.TelegramID,
	})

	err := d.client.SendMessage(ctx, f.TelegramID, text, &telebot.SendOptions{DisableWebPagePreview: true})
	if err != nil {
		deliveryErr := &broadcast.DeliveryError{Friend: f, Err: err}
		friendLogger.WithError(err).Errorf("Failed to send broadcast to %s", f.DisplayName())
		return broadcast.Outcome{Friend: f, Status: broadcast.OutcomeFailed, Err: deliveryErr}
	}
	friendLogger.Infof("Successfully sent broadcast to %s", f.DisplayName())
	return broadcast.Outcome{Friend: f, Status: broadcast.OutcomeSent}
}

func (d *Dispatcher) cancelled(ctx context.Context, run *broadcast.Run, runLogger *logrus.Entry) (*broadcast.Run, error) {
	run.FinishedAt = d.clock.Now()
	sent, failed := run.Counts()
	runLogger.WithFields(logrus.Fields{
		"contacted": len(run.Outcomes),
		"skipped":   len(run.Friends) - len(run.Outcomes),
		"sent":      sent,
		"failed":    failed,
		"complete":  run.Complete(),
	}).Info("Broadcast cancelled")
	return run, ctx.Err()
}
