package models

// GamificationStats is the read model returned to clients.
type GamificationStats struct {
	Level                int            `json:"level"`
	ExperiencePoints     int64          `json:"experiencePoints"`
	XPIntoLevel          int64          `json:"currentXP"`
	XPForNextLevel       int64          `json:"xpForNextLevel"`
	CurrentFitCoins      int64          `json:"currentFitCoins"`
	TotalPointsEarned    int64          `json:"totalPointsEarned"`
	Streaks              map[string]int `json:"streaks"`
	AchievementCount     int            `json:"achievementCount"`
	RedeemedRewardsCount int            `json:"redeemedRewardsCount"`
	Rank                 *int           `json:"rank,omitempty"`
}

type LeaderboardEntry struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"userId"`
	TotalPoints int64  `json:"totalPoints"`
	Level       int    `json:"level"`
}

// LeaderboardScope restricts the leaderboard to a set of users, e.g. one
// trainer's athletes.
type LeaderboardScope struct {
	UserIDs []string
}
