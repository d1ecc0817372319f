package broadcast

import "friend_broadcast_bot/internal/domain/friend"

// OutcomeStatus is the result of one delivery attempt within a run.
type OutcomeStatus string

const (
	OutcomeSent   OutcomeStatus = "sent"
	OutcomeFailed OutcomeStatus = "failed"
)

// Outcome records what happened to a single friend during a run.
type Outcome struct {
	Friend *friend.Friend
	Status OutcomeStatus
	Err    error // set when Status is OutcomeFailed
}
