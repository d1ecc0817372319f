package friend

import (
	"database/sql"
	"time"
)

// Friend is one subscriber of the bot and the recipient of every broadcast.
type Friend struct {
	ID         int64
	TelegramID int64
	FirstName  string
	LastName   sql.NullString // optional
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DisplayName returns the first name followed by the last name when one is set.
func (f *Friend) DisplayName() string {
	if f.LastName.Valid && f.LastName.String != "" {
		return f.FirstName + " " + f.LastName.String
	}
	return f.FirstName
}

