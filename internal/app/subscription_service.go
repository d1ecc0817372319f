package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"friend_broadcast_bot/internal/domain/friend"
	idb "friend_broadcast_bot/internal/infra/database"
)

var ErrNotSubscribed = fmt.Errorf("user is not subscribed")

// SubscribeResult tells the caller what Subscribe changed.
type SubscribeResult string

const (
	SubscribeCreated     SubscribeResult = "CREATED"
	SubscribeReactivated SubscribeResult = "REACTIVATED"
	SubscribeUnchanged   SubscribeResult = "UNCHANGED"
)

// SubscriptionService lets users add and remove themselves from the broadcast list.
type SubscriptionService struct {
	friendRepo friend.Repository
}

func NewSubscriptionService(fr friend.Repository) *SubscriptionService {
	return &SubscriptionService{friendRepo: fr}
}

// Subscribe makes telegramID an active friend, creating or reactivating it as needed.
func (s *SubscriptionService) Subscribe(ctx context.Context, telegramID int64, firstName, lastNameValue string) (*friend.Friend, SubscribeResult, error) {
	existing, err := s.friendRepo.GetByTelegramID(ctx, telegramID)
	switch {
	case err == nil:
		if existing.IsActive {
			return existing, SubscribeUnchanged, nil
		}
		existing.IsActive = true
		if err := s.friendRepo.Update(ctx, existing); err != nil {
			return nil, "", fmt.Errorf("failed to reactivate friend: %w", err)
		}
		return existing, SubscribeReactivated, nil
	case !errors.Is(err, idb.ErrFriendNotFound):
		return nil, "", fmt.Errorf("failed to check existing friend: %w", err)
	}

	newFriend := &friend.Friend{
		TelegramID: telegramID,
		FirstName:  firstName,
		LastName:   sql.NullString{String: lastNameValue, Valid: lastNameValue != ""},
		IsActive:   true,
	}
	if err := s.friendRepo.Create(ctx, newFriend); err != nil {
		if errors.Is(err, idb.ErrDuplicateTelegramID) {
			// lost a race with a concurrent /start
			again, getErr := s.friendRepo.GetByTelegramID(ctx, telegramID)
			if getErr != nil {
				return nil, "", fmt.Errorf("failed to get friend after duplicate insert: %w", getErr)
			}
			return again, SubscribeUnchanged, nil
		}
		return nil, "", fmt.Errorf("failed to create friend: %w", err)
	}
	return newFriend, SubscribeCreated, nil
}

// Unsubscribe deactivates telegramID. It returns ErrNotSubscribed when the user is
// unknown or already inactive.
func (s *SubscriptionService) Unsubscribe(ctx context.Context, telegramID int64) (*friend.Friend, error) {
	existing, err := s.friendRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, idb.ErrFriendNotFound) {
			return nil, ErrNotSubscribed
		}
		return nil, fmt.Errorf("failed to get friend: %w", err)
	}
	if !existing.IsActive {
		return existing, ErrNotSubscribed
	}
	existing.IsActive = false
	if err := s.friendRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to deactivate friend: %w", err)
	}
	return existing, nil
}

// Lookup returns the friend record for telegramID, or idb.ErrFriendNotFound.
func (s *SubscriptionService) Lookup(ctx context.Context, telegramID int64) (*friend.Friend, error) {
	return s.friendRepo.GetByTelegramID(ctx, telegramID)
}
