package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mroshb/fitquest/internal/metrics"
	"github.com/mroshb/fitquest/internal/models"
	"github.com/mroshb/fitquest/internal/repositories"
	"github.com/mroshb/fitquest/pkg/logger"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// LeaderboardRanker serves rankings by total points earned. Reads may be
// stale and never touch the ledger's version column.
type LeaderboardRanker struct {
	profiles *repositories.ProfileRepository
	metrics  *metrics.Collector
	reads    singleflight.Group
}

func NewLeaderboardRanker(profiles *repositories.ProfileRepository, collector *metrics.Collector) *LeaderboardRanker {
	return &LeaderboardRanker{profiles: profiles, metrics: collector}
}

// CompetitionRanks assigns standard competition ranks ("1224") to entries
// already sorted by score descending.
func CompetitionRanks(entries []models.LeaderboardEntry) {
	for i := range entries {
		if i > 0 && entries[i].TotalPoints == entries[i-1].TotalPoints {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}
}

// GetLeaderboard returns the top limit profiles, optionally restricted to a
// scope. Ranks are relative to the returned set. Identical concurrent reads
// share one query.
func (r *LeaderboardRanker) GetLeaderboard(ctx context.Context, limit int, scope *models.LeaderboardScope) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}

	v, err, _ := r.reads.Do(leaderboardKey(limit, scope), func() (interface{}, error) {
		entries, err := r.profiles.ListScores(ctx, limit, scope)
		if err != nil {
			return nil, err
		}
		CompetitionRanks(entries)
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	shared := v.([]models.LeaderboardEntry)
	entries := make([]models.LeaderboardEntry, len(shared))
	copy(entries, shared)
	return entries, nil
}

func leaderboardKey(limit int, scope *models.LeaderboardScope) string {
	if scope == nil {
		return fmt.Sprintf("%d|*", limit)
	}
	ids := append([]string(nil), scope.UserIDs...)
	sort.Strings(ids)
	return fmt.Sprintf("%d|%s", limit, strings.Join(ids, ","))
}

// UpdateUserRanks recomputes every profile's global rank and stores it.
func (r *LeaderboardRanker) UpdateUserRanks(ctx context.Context) error {
	start := time.Now()

	entries, err := r.profiles.ListScores(ctx, 0, nil)
	if err != nil {
		return err
	}
	CompetitionRanks(entries)

	ranks := make(map[string]int, len(entries))
	for _, e := range entries {
		ranks[e.UserID] = e.Rank
	}
	if err := r.profiles.UpdateRanks(ctx, ranks); err != nil {
		return err
	}

	elapsed := time.Since(start)
	r.metrics.RecordRankUpdate(elapsed, len(entries))
	logger.Info("User ranks updated", "profiles", len(entries), "duration", elapsed)
	return nil
}
