package models

import (
	"time"
)

// LeagueTiers lists tiers from lowest to highest.
var LeagueTiers = []string{"bronze", "silver", "gold", "sapphire", "ruby", "emerald", "diamond"}

// TierIndex returns the position of tier in LeagueTiers, or -1.
func TierIndex(tier string) int {
	for i, t := range LeagueTiers {
		if t == tier {
			return i
		}
	}
	return -1
}

// League is one weekly competition group of a tier.
type League struct {
	ID        string `gorm:"primaryKey;type:uuid" json:"id"`
	Tier      string `gorm:"uniqueIndex:idx_league_tier_week;type:varchar(16);not null" json:"tier"`
	Week      string `gorm:"uniqueIndex:idx_league_tier_week;type:varchar(10);not null" json:"week"` // e.g. 2026-W42
	Finalized bool   `gorm:"default:false;index" json:"finalized"`

	Timestamps
}

// LeagueMembership = a user's participation and weekly XP in a league
type LeagueMembership struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	LeagueID   string    `gorm:"uniqueIndex:idx_membership_league_user;type:uuid;not null" json:"league_id"`
	UserID     string    `gorm:"uniqueIndex:idx_membership_league_user;type:uuid;not null;index" json:"user_id"`
	XPThisWeek int64     `json:"xp_this_week" gorm:"default:0"`
	JoinedAt   time.Time `json:"joined_at" gorm:"not null"`
}

// StandingEntry is one ranked row of a league's standings.
type StandingEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	XPThisWeek    int64  `json:"xp_this_week"`
	IsCurrentUser bool   `json:"is_current_user"`
}

// Standings is the response of the league standings query.
type Standings struct {
	League    string          `json:"league"`
	Week      string          `json:"week"`
	Joined    bool            `json:"joined"`
	Standings []StandingEntry `json:"standings"`
}

// LeaderboardEntry is one ranked row of the global XP leaderboard.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	XP       int64  `json:"xp"`
	Level    int    `json:"level"`
	Streak   int    `json:"streak"`
}
