package telegram

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/pkg/logger"
)

// Sender is the slice of the Bot API the notifier uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// ChatResolver maps an engine user id onto a Telegram chat. ok is false for
// users without a linked chat.
type ChatResolver func(userID string) (chatID int64, ok bool)

// NumericChatID treats numeric user ids as Telegram user ids, which double as
// private chat ids.
func NumericChatID(userID string) (int64, bool) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// Notifier delivers achievement and streak messages over Telegram.
type Notifier struct {
	api        Sender
	resolve    ChatResolver
	maxRetries int
	retryDelay time.Duration
}

func NewNotifier(token string, appEnv string, resolve ChatResolver) (*Notifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if appEnv == "development" {
		api.Debug = true
	}

	logger.Info("Authorized on account", "username", api.Self.UserName)
	return NewNotifierWithSender(api, resolve), nil
}

func NewNotifierWithSender(api Sender, resolve ChatResolver) *Notifier {
	if resolve == nil {
		resolve = NumericChatID
	}
	return &Notifier{
		api:        api,
		resolve:    resolve,
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

func (n *Notifier) AchievementsUnlocked(ctx context.Context, userID string, unlocks []models.AchievementUnlock) error {
	if len(unlocks) == 0 {
		return nil
	}
	return n.notify(ctx, userID, AchievementMessage(unlocks))
}

func (n *Notifier) StreakLost(ctx context.Context, userID, category string, days int) error {
	return n.notify(ctx, userID, StreakLostMessage(category, days))
}

func (n *Notifier) notify(ctx context.Context, userID, text string) error {
	chatID, ok := n.resolve(userID)
	if !ok {
		logger.ForUser(userID).Debug("No chat linked to user, skipping notification")
		return nil
	}
	return n.send(ctx, chatID, text)
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML

	var err error
	for i := 0; i < n.maxRetries; i++ {
		if _, err = n.api.Send(msg); err == nil {
			return nil
		}
		logger.Warn("Failed to send message", "error", err, "chat_id", chatID, "attempt", i+1)

		// Only network errors are worth another try
		if !isNetworkError(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(i+1) * n.retryDelay):
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", n.maxRetries, err)
}

func isNetworkError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "network is unreachable")
}

// AchievementMessage renders one message for all badges unlocked by an event.
func AchievementMessage(unlocks []models.AchievementUnlock) string {
	var b strings.Builder
	if len(unlocks) == 1 {
		b.WriteString("🏆 <b>Achievement unlocked!</b>\n")
	} else {
		fmt.Fprintf(&b, "🏆 <b>%d achievements unlocked!</b>\n", len(unlocks))
	}
	for _, u := range unlocks {
		fmt.Fprintf(&b, "\n<b>%s</b> (%s)", html.EscapeString(u.Name), html.EscapeString(u.Rarity))
		if u.Description != "" {
			fmt.Fprintf(&b, "\n%s", html.EscapeString(u.Description))
		}
		if u.PointsAwarded > 0 {
			fmt.Fprintf(&b, "\n+%d FitCoins", u.PointsAwarded)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func StreakLostMessage(category string, days int) string {
	return fmt.Sprintf("💔 Your %d-day %s streak has ended. Log an activity today to start a new one!",
		days, html.EscapeString(category))
}
