package scheduler

// State is the phase of the trigger loop.
type State string

const (
	StateIdle      State = "IDLE" // not started yet
	StateWaiting   State = "WAITING"
	StateFiring    State = "FIRING"
	StateCooldown  State = "COOLDOWN"
	StateCancelled State = "CANCELLED" // terminal
)
