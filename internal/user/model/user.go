package model

import (
	"strings"
	"time"
)

// Rank is the tier label derived from cumulative wins.
type Rank string

const (
	RankNovice      Rank = "Novice"
	RankApprentice  Rank = "Apprentice"
	RankCoder       Rank = "Coder"
	RankHacker      Rank = "Hacker"
	RankGrandmaster Rank = "Grandmaster"
)

var rankThresholds = []struct {
	minWins int64
	rank    Rank
}{
	{50, RankGrandmaster},
	{25, RankHacker},
	{10, RankCoder},
	{3, RankApprentice},
}

// RankTier is the lowest win count that earns Rank.
type RankTier struct {
	MinWins int64
	Rank    Rank
}

// RankTiers lists the tiers above Novice, highest first.
func RankTiers() []RankTier {
	tiers := make([]RankTier, 0, len(rankThresholds))
	for _, t := range rankThresholds {
		tiers = append(tiers, RankTier{MinWins: t.minWins, Rank: t.rank})
	}
	return tiers
}

// RankFor maps a win count onto its tier. Negative counts are treated as zero.
func RankFor(wins int64) Rank {
	for _, t := range rankThresholds {
		if wins >= t.minWins {
			return t.rank
		}
	}
	return RankNovice
}

// IsGuest reports whether userID is one of the anonymous sentinels.
func IsGuest(userID string) bool {
	switch strings.TrimSpace(userID) {
	case "", "guest", "guest_user":
		return true
	default:
		return false
	}
}

// User holds the battle statistics of a registered player.
type User struct {
	ID            string    `json:"id" bson:"-"`
	Username      string    `json:"username" bson:"username"`
	Wins          int64     `json:"wins" bson:"wins"`
	MatchesPlayed int64     `json:"matchesPlayed" bson:"matchesPlayed"`
	Rank          Rank      `json:"rank" bson:"rank"`
	CreatedAt     time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" bson:"updatedAt"`
}

// LeaderboardPage is the top of the leaderboard plus the number of ranked players.
type LeaderboardPage struct {
	Items []LeaderboardEntry `json:"items"`
	Total int64              `json:"total"`
}

// LeaderboardEntry is one row of the wins leaderboard.
type LeaderboardEntry struct {
	Position int    `json:"position"`
	UserID   string `json:"userId"`
	Wins     int64  `json:"wins"`
	Rank     Rank   `json:"rank"`
}
