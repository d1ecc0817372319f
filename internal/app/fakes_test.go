package app

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"friend_broadcast_bot/internal/domain/friend"
	idb "friend_broadcast_bot/internal/infra/database"

	"gopkg.in/telebot.v3"
)

// fakeClock advances virtual time on Sleep instead of blocking.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	n := len(c.sleeps)
	hook := c.onSleep
	c.mu.Unlock()
	if hook != nil {
		hook(n)
	}
	return ctx.Err()
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type fakeSource struct {
	friends []*friend.Friend
	err     error
	calls   int
}

func (s *fakeSource) ListActive(ctx context.Context) ([]*friend.Friend, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.friends, nil
}

type sentMessage struct {
	chatID int64
	text   string
	ctxErr error
}

type fakeClient struct {
	mu      sync.Mutex
	sent    []sentMessage
	failFor map[int64]error
	onSend  func(chatID int64)
}

func (c *fakeClient) SendMessage(ctx context.Context, chatID int64, text string, _ *telebot.SendOptions) error {
	if c.onSend != nil {
		c.onSend(chatID)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentMessage{chatID: chatID, text: text, ctxErr: ctx.Err()})
	if err := c.failFor[chatID]; err != nil {
		return err
	}
	return nil
}

func (c *fakeClient) ChatIDs() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]int64, 0, len(c.sent))
	for _, m := range c.sent {
		ids = append(ids, m.chatID)
	}
	return ids
}

func newFriend(id int64, name string) *friend.Friend {
	return &friend.Friend{ID: id, TelegramID: 1000 + id, FirstName: name, IsActive: true}
}

// memoryRepo is an in-memory friend.Repository.
type memoryRepo struct {
	mu      sync.Mutex
	nextID  int64
	friends []*friend.Friend
	err     error
}

func (r *memoryRepo) Create(ctx context.Context, f *friend.Friend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	for _, existing := range r.friends {
		if existing.TelegramID == f.TelegramID {
			return idb.ErrDuplicateTelegramID
		}
	}
	r.nextID++
	f.ID = r.nextID
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	cp := *f
	r.friends = append(r.friends, &cp)
	return nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*friend.Friend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, f := range r.friends {
		if f.ID == id {
			cp := *f
			return &cp, nil
		}
	}
	return nil, idb.ErrFriendNotFound
}

func (r *memoryRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*friend.Friend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, f := range r.friends {
		if f.TelegramID == telegramID {
			cp := *f
			return &cp, nil
		}
	}
	return nil, idb.ErrFriendNotFound
}

func (r *memoryRepo) Update(ctx context.Context, f *friend.Friend) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.friends {
		if existing.ID == f.ID {
			cp := *f
			r.friends[i] = &cp
			return nil
		}
	}
	return idb.ErrFriendNotFound
}

func (r *memoryRepo) ListActive(ctx context.Context) ([]*friend.Friend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*friend.Friend
	for _, f := range r.friends {
		if f.IsActive {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAll(ctx context.Context) ([]*friend.Friend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*friend.Friend, 0, len(r.friends))
	for _, f := range r.friends {
		cp := *f
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memoryRepo) add(telegramID int64, name string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	r.friends = append(r.friends, &friend.Friend{
		ID:         r.nextID,
		TelegramID: telegramID,
		FirstName:  name,
		LastName:   sql.NullString{},
		IsActive:   active,
	})
}
