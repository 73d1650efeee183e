package services

import (
	"context"
	"testing"

	"github.com/mroshb/fitquest/internal/models"
)

func TestCompetitionRanks(t *testing.T) {
	tests := []struct {
		name   string
		scores []int64
		want   []int
	}{
		{"empty", nil, nil},
		{"distinct", []int64{300, 200, 100}, []int{1, 2, 3}},
		{"tie in the middle", []int64{500, 300, 300, 100}, []int{1, 2, 2, 4}},
		{"tie at the top", []int64{50, 50, 50, 10}, []int{1, 1, 1, 4}},
		{"all zero", []int64{0, 0}, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := make([]models.LeaderboardEntry, len(tt.scores))
			for i, s := range tt.scores {
				entries[i].TotalPoints = s
			}
			CompetitionRanks(entries)
			for i := range entries {
				if entries[i].Rank != tt.want[i] {
					t.Errorf("rank[%d] = %d, want %d", i, entries[i].Rank, tt.want[i])
				}
			}
		})
	}
}

func TestEngine_Leaderboard(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.grant(t, "dana", 100)
	te.grant(t, "carol", 300)
	te.grant(t, "bob", 300)
	te.grant(t, "alice", 500)

	board, err := te.GetLeaderboard(ctx, 0, nil)
	if err != nil {
		t.Fatalf("GetLeaderboard() error = %v", err)
	}
	want := []struct {
		userID string
		rank   int
	}{
		{"alice", 1},
		{"bob", 2},
		{"carol", 2},
		{"dana", 4},
	}
	if len(board) != len(want) {
		t.Fatalf("board = %+v", board)
	}
	for i, w := range want {
		if board[i].UserID != w.userID || board[i].Rank != w.rank {
			t.Errorf("board[%d] = %s #%d, want %s #%d", i, board[i].UserID, board[i].Rank, w.userID, w.rank)
		}
	}

	top, _ := te.GetLeaderboard(ctx, 2, nil)
	if len(top) != 2 || top[1].UserID != "bob" {
		t.Errorf("top 2 = %+v", top)
	}

	scoped, _ := te.GetLeaderboard(ctx, 10, &models.LeaderboardScope{UserIDs: []string{"dana", "carol"}})
	if len(scoped) != 2 || scoped[0].UserID != "carol" || scoped[0].Rank != 1 || scoped[1].Rank != 2 {
		t.Errorf("scoped = %+v", scoped)
	}

	empty, err := te.GetLeaderboard(ctx, 10, &models.LeaderboardScope{})
	if err != nil || len(empty) != 0 {
		t.Errorf("empty scope = %v, %v", empty, err)
	}

	// Callers get their own copy of a shared read.
	board[0].Rank = 99
	again, _ := te.GetLeaderboard(ctx, 0, nil)
	if again[0].Rank != 1 {
		t.Errorf("shared result was mutated: rank = %d", again[0].Rank)
	}
}

func TestEngine_UpdateUserRanks(t *testing.T) {
	te := newTestEngine(t, nil)
	ctx := context.Background()

	te.grant(t, "alice", 500)
	te.grant(t, "bob", 300)
	te.grant(t, "carol", 300)

	if err := te.UpdateUserRanks(ctx); err != nil {
		t.Fatalf("UpdateUserRanks() error = %v", err)
	}

	tests := []struct {
		userID string
		rank   int
	}{
		{"alice", 1},
		{"bob", 2},
		{"carol", 2},
	}
	for _, tt := range tests {
		stats, err := te.GetStats(ctx, tt.userID)
		if err != nil {
			t.Fatal(err)
		}
		if stats.Rank == nil || *stats.Rank != tt.rank {
			t.Errorf("%s rank = %v, want %d", tt.userID, stats.Rank, tt.rank)
		}
	}

	// Ranks are written outside the version column.
	profile, _ := te.profiles.Load(ctx, "alice")
	if profile.Version != 1 {
		t.Errorf("alice version = %d, want 1", profile.Version)
	}
}
