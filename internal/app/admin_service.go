package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"friend_broadcast_bot/internal/domain/friend"
	idb "friend_broadcast_bot/internal/infra/database" // ErrFriendNotFound, ErrDuplicateTelegramID
)

// Custom application-level errors for admin service
var ErrAdminNotAuthorized = fmt.Errorf("performing user is not authorized as an admin")
var ErrFriendAlreadyExists = fmt.Errorf("friend with this Telegram ID already exists")
var ErrFriendAlreadyInactive = fmt.Errorf("friend is already inactive")

type AdminService struct {
	friendRepo      friend.Repository
	adminTelegramID int64
}

func NewAdminService(fr friend.Repository, adminID int64) *AdminService {
	return &AdminService{
		friendRepo:      fr,
		adminTelegramID: adminID,
	}
}

// IsAdmin reports whether telegramID is the configured administrator.
func (s *AdminService) IsAdmin(telegramID int64) bool {
	return telegramID == s.adminTelegramID
}

// AddFriend puts a new friend on the broadcast list.
func (s *AdminService) AddFriend(ctx context.Context, performingAdminID int64, newFriendTelegramID int64, firstName string, lastNameValue string) (*friend.Friend, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	_, err := s.friendRepo.GetByTelegramID(ctx, newFriendTelegramID)
	if err == nil {
		return nil, ErrFriendAlreadyExists
	}
	if !errors.Is(err, idb.ErrFriendNotFound) {
		return nil, fmt.Errorf("failed to check existing friend: %w", err)
	}

	var lastName sql.NullString
	if lastNameValue != "" {
		lastName.String = lastNameValue
		lastName.Valid = true
	}

	newFriend := &friend.Friend{
		TelegramID: newFriendTelegramID,
		FirstName:  firstName,
		LastName:   lastName,
		IsActive:   true,
	}

	err = s.friendRepo.Create(ctx, newFriend)
	if err != nil {
		if errors.Is(err, idb.ErrDuplicateTelegramID) {
			return nil, ErrFriendAlreadyExists
		}
		return nil, fmt.Errorf("failed to create friend in repository: %w", err)
	}

	return newFriend, nil
}

// RemoveFriend deactivates a friend; they stay in the table but get no more broadcasts.
func (s *AdminService) RemoveFriend(ctx context.Context, performingAdminID int64, friendTelegramIDToRemove int64) (*friend.Friend, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}

	targetFriend, err := s.friendRepo.GetByTelegramID(ctx, friendTelegramIDToRemove)
	if err != nil {
		if errors.Is(err, idb.ErrFriendNotFound) {
			return nil, idb.ErrFriendNotFound
		}
		return nil, fmt.Errorf("failed to get friend by Telegram ID for removal: %w", err)
	}

	if !targetFriend.IsActive {
		return targetFriend, ErrFriendAlreadyInactive
	}

	targetFriend.IsActive = false
	if err := s.friendRepo.Update(ctx, targetFriend); err != nil {
		return nil, fmt.Errorf("failed to update friend to inactive in repository: %w", err)
	}

	return targetFriend, nil
}

func (s *AdminService) ListActiveFriends(ctx context.Context, performingAdminID int64) ([]*friend.Friend, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	friends, err := s.friendRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active friends: %w", err)
	}
	return friends, nil
}

func (s *AdminService) ListAllFriends(ctx context.Context, performingAdminID int64) ([]*friend.Friend, error) {
	if !s.IsAdmin(performingAdminID) {
		return nil, ErrAdminNotAuthorized
	}
	friends, err := s.friendRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list all friends: %w", err)
	}
	return friends, nil
}
