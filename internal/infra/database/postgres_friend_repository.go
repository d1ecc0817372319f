package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"friend_broadcast_bot/internal/domain/friend"

	"github.com/lib/pq"
)

// Custom errors
var ErrFriendNotFound = fmt.Errorf("friend not found")
var ErrDuplicateTelegramID = fmt.Errorf("friend with this Telegram ID already exists")

const uniqueViolation = pq.ErrorCode("23505")

const friendColumns = `id, telegram_id, first_name, last_name, is_active, created_at, updated_at`

type PostgresFriendRepository struct {
	db *sql.DB
}

func NewPostgresFriendRepository(db *sql.DB) *PostgresFriendRepository {
	return &PostgresFriendRepository{db: db}
}

func (r *PostgresFriendRepository) Create(ctx context.Context, f *friend.Friend) error {
	query := `INSERT INTO friends (telegram_id, first_name, last_name, is_active)
               VALUES ($1, $2, $3, $4)
               RETURNING id, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, f.TelegramID, f.FirstName, f.LastName, f.IsActive).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateTelegramID
		}
		return fmt.Errorf("error creating friend: %w", err)
	}
	return nil
}

func (r *PostgresFriendRepository) GetByID(ctx context.Context, id int64) (*friend.Friend, error) {
	query := `SELECT ` + friendColumns + ` FROM friends WHERE id = $1`
	f, err := scanFriend(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendNotFound
		}
		return nil, fmt.Errorf("error getting friend by ID: %w", err)
	}
	return f, nil
}

func (r *PostgresFriendRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*friend.Friend, error) {
	query := `SELECT ` + friendColumns + ` FROM friends WHERE telegram_id = $1`
	f, err := scanFriend(r.db.QueryRowContext(ctx, query, telegramID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFriendNotFound
		}
		return nil, fmt.Errorf("error getting friend by Telegram ID: %w", err)
	}
	return f, nil
}

func (r *PostgresFriendRepository) Update(ctx context.Context, f *friend.Friend) error {
	query := `UPDATE friends
               SET first_name = $1, last_name = $2, is_active = $3, updated_at = NOW()
               WHERE id = $4
               RETURNING updated_at`

	err := r.db.QueryRowContext(ctx, query, f.FirstName, f.LastName, f.IsActive, f.ID).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFriendNotFound
		}
		return fmt.Errorf("error updating friend: %w", err)
	}
	return nil
}

// ListActive returns active friends in subscription order. It is the recipient
// source of every broadcast.
func (r *PostgresFriendRepository) ListActive(ctx context.Context) ([]*friend.Friend, error) {
	query := `SELECT ` + friendColumns + ` FROM friends WHERE is_active = TRUE ORDER BY id`
	return r.list(ctx, query, "active friends")
}

func (r *PostgresFriendRepository) ListAll(ctx context.Context) ([]*friend.Friend, error) {
	query := `SELECT ` + friendColumns + ` FROM friends ORDER BY id`
	return r.list(ctx, query, "all friends")
}

func (r *PostgresFriendRepository) list(ctx context.Context, query, what string) ([]*friend.Friend, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing %s: %w", what, err)
	}
	defer rows.Close()

	friends := make([]*friend.Friend, 0)
	for rows.Next() {
		f, err := scanFriend(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning %s: %w", what, err)
		}
		friends = append(friends, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}
	return friends, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFriend(row rowScanner) (*friend.Friend, error) {
	f := &friend.Friend{}
	if err := row.Scan(&f.ID, &f.TelegramID, &f.FirstName, &f.LastName, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return f, nil
}
