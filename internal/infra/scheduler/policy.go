package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultPollInterval = 30 * time.Second
	DefaultCooldown     = 61 * time.Second

	// minuteWindow is the resolution of the time-of-day check. The cooldown must be
	// longer so one matching minute cannot fire twice.
	minuteWindow = time.Minute
)

var ErrInvalidTimeOfDay = fmt.Errorf("time of day must be HH:MM (00:00-23:59)")
var ErrCooldownTooShort = fmt.Errorf("cooldown must be longer than one minute")
var ErrInvalidInterval = fmt.Errorf("interval must be at least one second")

// Policy decides when the trigger loop starts a broadcast.
type Policy interface {
	// Due reports whether a run should start at now. since is when the loop started
	// or when the previous run finished. When it returns false, wait is how long the
	// loop sleeps before asking again.
	Due(now, since time.Time) (due bool, wait time.Duration)
	// Cooldown is the pause right after a run; zero means none.
	Cooldown() time.Duration
	String() string
}

// TimeOfDay fires once when the wall clock in Location reads Clock (HH:MM).
type TimeOfDay struct {
	clock        string
	location     *time.Location
	pollInterval time.Duration
	cooldown     time.Duration
}

// NewTimeOfDay validates hhmm and the waits. Zero pollInterval or cooldown take the
// defaults (30s and 61s).
func NewTimeOfDay(hhmm string, loc *time.Location, pollInterval, cooldown time.Duration) (*TimeOfDay, error) {
	h, m, err := ParseHHMM(hhmm)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, fmt.Errorf("time of day policy needs a timezone")
	}
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	if cooldown <= minuteWindow {
		return nil, fmt.Errorf("%w: got %s", ErrCooldownTooShort, cooldown)
	}
	return &TimeOfDay{
		clock:        fmt.Sprintf("%02d:%02d", h, m),
		location:     loc,
		pollInterval: pollInterval,
		cooldown:     cooldown,
	}, nil
}

func (p *TimeOfDay) Due(now, _ time.Time) (bool, time.Duration) {
	if now.In(p.location).Format("15:04") == p.clock {
		return true, 0
	}
	return false, p.pollInterval
}

func (p *TimeOfDay) Cooldown() time.Duration { return p.cooldown }

func (p *TimeOfDay) String() string {
	return fmt.Sprintf("daily at %s %s", p.clock, p.location)
}

// FixedInterval fires every interval, measured from the end of the previous run
// (or from Start for the first run).
type FixedInterval struct {
	every    time.Duration
	schedule cron.Schedule
}

func NewFixedInterval(every time.Duration) (*FixedInterval, error) {
	// cron.Every truncates to whole seconds
	if every < time.Second || every%time.Second != 0 {
		return nil, fmt.Errorf("%w: got %s", ErrInvalidInterval, every)
	}
	return &FixedInterval{every: every, schedule: cron.Every(every)}, nil
}

func (p *FixedInterval) Due(now, since time.Time) (bool, time.Duration) {
	next := p.schedule.Next(since)
	// cron aligns to whole seconds; never fire before a full interval has passed.
	if next.Before(since.Add(p.every)) {
		next = next.Add(time.Second)
	}
	if !now.Before(next) {
		return true, 0
	}
	return false, next.Sub(now)
}

func (p *FixedInterval) Cooldown() time.Duration { return 0 }

func (p *FixedInterval) String() string {
	return fmt.Sprintf("every %s", p.every)
}

// ParseHHMM parses a 24h "HH:MM" clock time.
func ParseHHMM(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, s)
	}
	return hour, minute, nil
}
