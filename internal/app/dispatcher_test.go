package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"friend_broadcast_bot/internal/domain/broadcast"
	"friend_broadcast_bot/internal/domain/friend"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDelay = 3 * time.Second

var testStart = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestDispatcher(t *testing.T, source friend.Source, client *fakeClient, msg Message, clock Clock) (*Dispatcher, *test.Hook) {
	t.Helper()
	log, hook := test.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return NewDispatcher("daily", source, client, msg, testDelay, clock, logrus.NewEntry(log)), hook
}

func statuses(run *broadcast.Run) []broadcast.OutcomeStatus {
	out := make([]broadcast.OutcomeStatus, 0, len(run.Outcomes))
	for _, o := range run.Outcomes {
		out = append(out, o.Status)
	}
	return out
}

func TestDispatcherRun_FailureOfOneFriendDoesNotStopTheRun(t *testing.T) {
	a, b, c := newFriend(1, "A"), newFriend(2, "B"), newFriend(3, "C")
	sendErr := errors.New("bot was blocked by the user")
	client := &fakeClient{failFor: map[int64]error{b.TelegramID: sendErr}}
	clock := newFakeClock(testStart)
	d, hook := newTestDispatcher(t, &fakeSource{friends: []*friend.Friend{a, b, c}}, client, StaticMessage("hi"), clock)

	run, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []broadcast.OutcomeStatus{broadcast.OutcomeSent, broadcast.OutcomeFailed, broadcast.OutcomeSent}, statuses(run))
	assert.Equal(t, []*friend.Friend{a, b, c}, []*friend.Friend{run.Outcomes[0].Friend, run.Outcomes[1].Friend, run.Outcomes[2].Friend})
	assert.Equal(t, []int64{a.TelegramID, b.TelegramID, c.TelegramID}, client.ChatIDs())
	assert.True(t, run.Complete())

	var deliveryErr *broadcast.DeliveryError
	require.ErrorAs(t, run.Outcomes[1].Err, &deliveryErr)
	assert.Same(t, b, deliveryErr.Friend)
	assert.ErrorIs(t, run.Outcomes[1].Err, sendErr)
	assert.NoError(t, run.Outcomes[0].Err)

	// the pause follows every friend, including the one that failed
	assert.Equal(t, []time.Duration{testDelay, testDelay, testDelay}, clock.Sleeps())

	var errorEntries int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorEntries++
			assert.Equal(t, b.TelegramID, e.Data["telegram_id"])
		}
	}
	assert.Equal(t, 1, errorEntries)

	sent, failed := run.Counts()
	assert.Equal(t, 2, sent)
	assert.Equal(t, 1, failed)
	assert.Equal(t, testStart.Add(3*testDelay), run.FinishedAt)
}

func TestDispatcherRun_OutcomesFollowSourceOrder(t *testing.T) {
	for _, n := range []int{0, 1, 2, 7} {
		friends := make([]*friend.Friend, 0, n)
		for i := n; i > 0; i-- { // descending ids: the dispatcher must not reorder
			friends = append(friends, newFriend(int64(i), "F"))
		}
		client := &fakeClient{}
		clock := newFakeClock(testStart)
		d, _ := newTestDispatcher(t, &fakeSource{friends: friends}, client, StaticMessage("hi"), clock)

		run, err := d.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, run.Outcomes, n)
		for i, o := range run.Outcomes {
			assert.Same(t, friends[i], o.Friend)
			assert.Equal(t, broadcast.OutcomeSent, o.Status)
		}
		assert.Len(t, clock.Sleeps(), n)
	}
}

func TestDispatcherRun_DuplicateFriendsAreMessagedEachTime(t *testing.T) {
	a := newFriend(1, "A")
	client := &fakeClient{}
	d, _ := newTestDispatcher(t, &fakeSource{friends: []*friend.Friend{a, a}}, client, StaticMessage("hi"), newFakeClock(testStart))

	run, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, run.Outcomes, 2)
	assert.Equal(t, []int64{a.TelegramID, a.TelegramID}, client.ChatIDs())
}

func TestDispatcherRun_LookupFailureAbortsWithoutSending(t *testing.T) {
	dbErr := errors.New("connection refused")
	client := &fakeClient{}
	clock := newFakeClock(testStart)
	d, hook := newTestDispatcher(t, &fakeSource{err: dbErr}, client, StaticMessage("hi"), clock)

	run, err := d.Run(context.Background())
	require.Error(t, err)

	var lookupErr *broadcast.LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.ErrorIs(t, err, dbErr)
	require.NotNil(t, run)
	assert.Empty(t, run.Outcomes)
	assert.Empty(t, client.ChatIDs())
	assert.Empty(t, clock.Sleeps())

	last := hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.ErrorLevel, last.Level)
	assert.Equal(t, "Failed to list friends, broadcast aborted", last.Message)
}

func TestDispatcherRun_MessageRenderedOncePerRun(t *testing.T) {
	friends := []*friend.Friend{newFriend(1, "A"), newFriend(2, "B"), newFriend(3, "C")}
	msg, err := NewTemplateMessage("Reminder\nCurrent time: {{.Now}}", time.UTC)
	require.NoError(t, err)
	client := &fakeClient{}
	d, _ := newTestDispatcher(t, &fakeSource{friends: friends}, client, msg, newFakeClock(testStart))

	run, err := d.Run(context.Background())
	require.NoError(t, err)

	want := "Reminder\nCurrent time: 2025-03-14 09:00:00"
	assert.Equal(t, want, run.Message)
	require.Len(t, client.sent, 3)
	for _, m := range client.sent {
		// the clock moved 3s per friend; the text did not
		assert.Equal(t, want, m.text)
	}
}

func TestDispatcherRun_CancelDuringSendLetsItFinish(t *testing.T) {
	a, b, c := newFriend(1, "A"), newFriend(2, "B"), newFriend(3, "C")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := &fakeClient{onSend: func(chatID int64) {
		if chatID == b.TelegramID {
			cancel()
		}
	}}
	clock := newFakeClock(testStart)
	d, _ := newTestDispatcher(t, &fakeSource{friends: []*friend.Friend{a, b, c}}, client, StaticMessage("hi"), clock)

	run, err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []int64{a.TelegramID, b.TelegramID}, client.ChatIDs())
	assert.Equal(t, []broadcast.OutcomeStatus{broadcast.OutcomeSent, broadcast.OutcomeSent}, statuses(run))
	assert.False(t, run.Complete())
	for _, m := range client.sent {
		assert.NoError(t, m.ctxErr, "a started send must not observe the cancellation")
	}
}

func TestDispatcherRun_CancelDuringDelayStopsBeforeNextFriend(t *testing.T) {
	friends := []*friend.Friend{newFriend(1, "A"), newFriend(2, "B")}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := newFakeClock(testStart)
	clock.onSleep = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	client := &fakeClient{}
	d, hook := newTestDispatcher(t, &fakeSource{friends: friends}, client, StaticMessage("hi"), clock)

	run, err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, run.Outcomes, 1)
	assert.Equal(t, []int64{friends[0].TelegramID}, client.ChatIDs())

	for _, e := range hook.AllEntries() {
		assert.NotEqual(t, logrus.ErrorLevel, e.Level, "cancellation is not a failure: %s", e.Message)
	}
	last := hook.LastEntry()
	assert.True(t, strings.Contains(last.Message, "cancelled"))
	assert.Equal(t, false, last.Data["complete"])
	assert.Equal(t, 1, last.Data["skipped"])
}

func TestDispatcherRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := &fakeClient{}
	d, _ := newTestDispatcher(t, &fakeSource{friends: []*friend.Friend{newFriend(1, "A")}}, client, StaticMessage("hi"), newFakeClock(testStart))

	run, err := d.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, run.Outcomes)
	assert.Empty(t, client.ChatIDs())
}
