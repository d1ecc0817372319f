package friend

import (
	"context"
)

// Source enumerates the friends a broadcast is sent to.
// Order is the order in which they will be contacted.
type Source interface {
	ListActive(ctx context.Context) ([]*Friend, error)
}

// Repository defines the operations for persisting and retrieving Friend entities.
type Repository interface {
	Source
	Create(ctx context.Context, friend *Friend) error
	GetByID(ctx context.Context, id int64) (*Friend, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*Friend, error)
	Update(ctx context.Context, friend *Friend) error // first name, last name and IsActive
	ListAll(ctx context.Context) ([]*Friend, error)  // for admin purposes
}
