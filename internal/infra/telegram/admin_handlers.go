package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"friend_broadcast_bot/internal/app"
	"friend_broadcast_bot/internal/domain/friend"
	idb "friend_broadcast_bot/internal/infra/database"
	"friend_broadcast_bot/internal/infra/scheduler"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

const notAuthorizedText = "Error: you are not allowed to use this command."

// StatusReporter is implemented by scheduler.BroadcastScheduler.
type StatusReporter interface {
	Snapshot() scheduler.Snapshot
}

// RegisterAdminHandlers registers handlers for admin commands.
func RegisterAdminHandlers(ctx context.Context, b *telebot.Bot, adminService *app.AdminService, reporters []StatusReporter, baseLogger *logrus.Entry) {
	b.Handle("/add_friend", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/add_friend",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		// /add_friend <TelegramID> <FirstName> [LastName]
		friendTelegramID, firstName, lastName, err := parseAddFriendArgs(c.Args())
		if err != nil {
			handlerLogger.WithError(err).Warn("Invalid command format")
			return c.Send(err.Error())
		}

		handlerLogger = handlerLogger.WithFields(logrus.Fields{
			"friend_telegram_id": friendTelegramID,
			"first_name":         firstName,
			"last_name":          lastName,
		})

		newFriend, err := adminService.AddFriend(ctx, c.Sender().ID, friendTelegramID, firstName, lastName)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			case errors.Is(err, app.ErrFriendAlreadyExists):
				logWithError.Warn("Friend already exists")
				return c.Send(fmt.Sprintf("Error: a friend with Telegram ID %d already exists.", friendTelegramID))
			default:
				logWithError.Error("Failed to add friend")
				return c.Send(fmt.Sprintf("Failed to add friend: %s", err.Error()))
			}
		}

		handlerLogger.WithField("new_friend_id", newFriend.ID).Info("Friend added successfully")
		return c.Send(fmt.Sprintf("Friend %s (ID: %d) added.", newFriend.DisplayName(), newFriend.TelegramID))
	})

	b.Handle("/remove_friend", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/remove_friend",
			"sender_id": c.Sender().ID,
		})
		handlerLogger.Info("Command received")

		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		args := c.Args()
		if len(args) != 1 {
			return c.Send("Invalid command format. Use: /remove_friend <TelegramID>")
		}

		friendTelegramID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			handlerLogger.WithField("arg", args[0]).Warn("Invalid Telegram ID format")
			return c.Send("Error: Telegram ID must be a number.")
		}
		handlerLogger = handlerLogger.WithField("friend_telegram_id", friendTelegramID)

		removedFriend, err := adminService.RemoveFriend(ctx, c.Sender().ID, friendTelegramID)
		if err != nil {
			logWithError := handlerLogger.WithError(err)
			switch {
			case errors.Is(err, app.ErrAdminNotAuthorized):
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			case errors.Is(err, idb.ErrFriendNotFound):
				logWithError.Warn("Friend to remove not found")
				return c.Send(fmt.Sprintf("No friend with Telegram ID %d.", friendTelegramID))
			case errors.Is(err, app.ErrFriendAlreadyInactive):
				logWithError.Warn("Friend already inactive")
				return c.Send(fmt.Sprintf("Friend %s (ID: %d) was already removed.", removedFriend.DisplayName(), removedFriend.TelegramID))
			default:
				logWithError.Error("Failed to remove friend")
				return c.Send(fmt.Sprintf("Failed to remove friend: %s", err.Error()))
			}
		}

		handlerLogger.WithField("removed_friend_id", removedFriend.ID).Info("Friend removed (deactivated) successfully")
		return c.Send(fmt.Sprintf("Friend %s (ID: %d) removed from broadcasts.", removedFriend.DisplayName(), removedFriend.TelegramID))
	})

	b.Handle("/list_friends", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/list_friends",
			"sender_id": c.Sender().ID,
		})
		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		listType := "active"
		if args := c.Args(); len(args) > 0 {
			listType = strings.ToLower(args[0])
		}
		handlerLogger = handlerLogger.WithField("list_type", listType)

		var friends []*friend.Friend
		var err error
		var title string

		switch listType {
		case "active":
			title = "Active friends"
			friends, err = adminService.ListActiveFriends(ctx, c.Sender().ID)
		case "all":
			title = "All friends"
			friends, err = adminService.ListAllFriends(ctx, c.Sender().ID)
		default:
			handlerLogger.Warn("Invalid list type argument")
			return c.Send("Invalid argument. Use 'active' or 'all', or nothing for active friends.")
		}

		if err != nil {
			logWithError := handlerLogger.WithError(err)
			if errors.Is(err, app.ErrAdminNotAuthorized) {
				logWithError.Warn("Admin not authorized (service level)")
				return c.Send(notAuthorizedText)
			}
			logWithError.Error("Failed to get list of friends")
			return c.Send(fmt.Sprintf("Failed to get the friend list: %s", err.Error()))
		}

		handlerLogger.WithField("friends_count", len(friends)).Info("Successfully retrieved friend list")
		return c.Send(formatFriendList(title, friends))
	})

	b.Handle("/broadcast_status", func(c telebot.Context) error {
		handlerLogger := baseLogger.WithFields(logrus.Fields{
			"handler":   "/broadcast_status",
			"sender_id": c.Sender().ID,
		})
		if !adminService.IsAdmin(c.Sender().ID) {
			handlerLogger.Warn("Unauthorized access attempt")
			return c.Send(notAuthorizedText)
		}

		snapshots := make([]scheduler.Snapshot, 0, len(reporters))
		for _, r := range reporters {
			snapshots = append(snapshots, r.Snapshot())
		}
		return c.Send(formatStatus(snapshots))
	})
}

func parseAddFriendArgs(args []string) (telegramID int64, firstName, lastName string, err error) {
	if len(args) < 2 || len(args) > 3 {
		return 0, "", "", errors.New("Invalid command format. Use: /add_friend <TelegramID> <FirstName> [LastName]")
	}
	telegramID, err = strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return 0, "", "", errors.New("Error: Telegram ID must be a number.")
	}
	firstName = strings.TrimSpace(args[1])
	if firstName == "" {
		return 0, "", "", errors.New("Error: first name must not be empty.")
	}
	if len(args) == 3 {
		lastName = strings.TrimSpace(args[2])
	}
	return telegramID, firstName, lastName, nil
}

func formatFriendList(title string, friends []*friend.Friend) string {
	if len(friends) == 0 {
		return "No friends found."
	}
	var response strings.Builder
	response.WriteString(fmt.Sprintf("--- %s (%d) ---\n", title, len(friends)))
	for _, f := range friends {
		status := "inactive"
		if f.IsActive {
			status = "active"
		}
		response.WriteString(fmt.Sprintf("ID: %d, Telegram ID: %d, Name: %s, Status: %s\n",
			f.ID, f.TelegramID, f.DisplayName(), status))
	}
	return response.String()
}

func formatStatus(snapshots []scheduler.Snapshot) string {
	if len(snapshots) == 0 {
		return "No broadcasts are configured."
	}
	var sb strings.Builder
	for i, s := range snapshots {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%s (%s): %s\n", s.Name, s.Policy, s.State))
		if s.LastRun == nil {
			sb.WriteString("  last run: never\n")
		} else {
			sent, failed := s.LastRun.Counts()
			sb.WriteString(fmt.Sprintf("  last run: %s, %d friends, %d sent, %d failed\n",
				s.LastRun.StartedAt.Format(time.DateTime), len(s.LastRun.Friends), sent, failed))
		}
		if s.LastErr != nil {
			sb.WriteString(fmt.Sprintf("  error: %v\n", s.LastErr))
		}
	}
	return sb.String()
}
