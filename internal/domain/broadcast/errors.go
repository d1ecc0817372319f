package broadcast

import (
	"fmt"

	"friend_broadcast_bot/internal/domain/friend"
)

// LookupError means the friend list could not be fetched. It aborts the run.
type LookupError struct {
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("friend lookup failed: %v", e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// DeliveryError means a single friend could not be reached. It never aborts the run.
type DeliveryError struct {
	Friend *friend.Friend
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Friend == nil {
		return fmt.Sprintf("delivery failed: %v", e.Err)
	}
	return fmt.Sprintf("delivery to %d failed: %v", e.Friend.TelegramID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
