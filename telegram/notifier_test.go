package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/mroshb/fitquest/internal/models"
)

type fakeSender struct {
	errs []error
	sent []tgbotapi.MessageConfig
	hits int
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.hits++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return tgbotapi.Message{}, err
		}
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func newTestNotifier(sender *fakeSender) *Notifier {
	n := NewNotifierWithSender(sender, nil)
	n.retryDelay = 0
	return n
}

func TestNumericChatID(t *testing.T) {
	tests := []struct {
		userID string
		want   int64
		ok     bool
	}{
		{"123456789", 123456789, true},
		{"-100200", -100200, true},
		{"athlete-1", 0, false},
		{"0", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := NumericChatID(tt.userID)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NumericChatID(%q) = %d, %v, want %d, %v", tt.userID, got, ok, tt.want, tt.ok)
		}
	}
}

func TestNotifier_AchievementsUnlocked(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	unlocks := []models.AchievementUnlock{
		{AchievementID: "first-steps", Name: "First Steps", Description: "Complete your first workout", PointsAwarded: 50, Rarity: models.RarityCommon},
	}
	if err := n.AchievementsUnlocked(context.Background(), "42", unlocks); err != nil {
		t.Fatalf("AchievementsUnlocked() error = %v", err)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.ChatID != 42 || msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("chat = %d, parse mode = %q", msg.ChatID, msg.ParseMode)
	}
	if !strings.Contains(msg.Text, "First Steps") || !strings.Contains(msg.Text, "+50 FitCoins") {
		t.Errorf("text = %q", msg.Text)
	}

	if err := n.AchievementsUnlocked(context.Background(), "42", nil); err != nil || sender.hits != 1 {
		t.Errorf("empty unlocks sent a message: hits = %d, err = %v", sender.hits, err)
	}
}

func TestNotifier_SkipsUnlinkedUsers(t *testing.T) {
	sender := &fakeSender{}
	n := newTestNotifier(sender)

	if err := n.StreakLost(context.Background(), "athlete-1", models.StreakWorkout, 5); err != nil {
		t.Errorf("StreakLost() error = %v", err)
	}
	if sender.hits != 0 {
		t.Errorf("hits = %d, want 0", sender.hits)
	}
}

func TestNotifier_Retries(t *testing.T) {
	tests := []struct {
		name     string
		errs     []error
		wantErr  bool
		wantHits int
	}{
		{"first try", nil, false, 1},
		{"network error then success", []error{errors.New("read: connection reset by peer"), nil}, false, 2},
		{"non-network error", []error{errors.New("Bad Request: chat not found")}, true, 1},
		{"all attempts time out", []error{
			errors.New("i/o timeout"), errors.New("i/o timeout"), errors.New("i/o timeout"),
		}, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{errs: tt.errs}
			n := newTestNotifier(sender)

			err := n.StreakLost(context.Background(), "42", models.StreakCheckins, 3)
			if (err != nil) != tt.wantErr {
				t.Errorf("StreakLost() error = %v, wantErr %v", err, tt.wantErr)
			}
			if sender.hits != tt.wantHits {
				t.Errorf("hits = %d, want %d", sender.hits, tt.wantHits)
			}
		})
	}
}

func TestMessages(t *testing.T) {
	multi := AchievementMessage([]models.AchievementUnlock{
		{Name: "A <b>", Rarity: models.RarityRare},
		{Name: "B", Rarity: models.RarityEpic, PointsAwarded: 10},
	})
	if !strings.Contains(multi, "2 achievements unlocked") || !strings.Contains(multi, "A &lt;b&gt;") {
		t.Errorf("AchievementMessage() = %q", multi)
	}

	lost := StreakLostMessage(models.StreakWorkout, 12)
	if !strings.Contains(lost, "12-day workout streak") {
		t.Errorf("StreakLostMessage() = %q", lost)
	}
}
