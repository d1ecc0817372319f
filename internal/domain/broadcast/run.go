package broadcast

import (
	"time"

	"friend_broadcast_bot/internal/domain/friend"

	"github.com/google/uuid"
)

// Run is the in-memory record of one broadcast cycle. It is never persisted.
type Run struct {
	ID         uuid.UUID
	Name       string // broadcaster that started the run, e.g. "daily"
	Message    string // rendered once, identical for every friend
	Friends    []*friend.Friend
	Outcomes   []Outcome
	StartedAt  time.Time
	FinishedAt time.Time
}

// NewRun creates a Run with a generated ID.
func NewRun(name string, startedAt time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		Name:      name,
		StartedAt: startedAt,
	}
}

// Counts returns how many outcomes were sent and failed.
func (r *Run) Counts() (sent, failed int) {
	for _, o := range r.Outcomes {
		switch o.Status {
		case OutcomeSent:
			sent++
		case OutcomeFailed:
			failed++
		}
	}
	return sent, failed
}

// Complete reports whether every friend of the snapshot got an outcome.
func (r *Run) Complete() bool {
	return len(r.Outcomes) == len(r.Friends)
}
