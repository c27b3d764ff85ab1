package models

import (
	"time"
)

// Achievement is an awarded badge. One row per (user, badge type).
type Achievement struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_achievement_user_badge;type:uuid;not null" json:"user_id"`
	BadgeType string    `gorm:"uniqueIndex:idx_achievement_user_badge;not null" json:"badge_type"`
	Name      string    `gorm:"not null" json:"name"`
	Icon      string    `gorm:"size:10" json:"icon"`
	EarnedAt  time.Time `gorm:"not null" json:"earned_at"`
}

// AchievementRule declares a badge and the minimum counters that earn it.
// Threshold keys: "lessons_completed", "streak", "xp".
type AchievementRule struct {
	BadgeType string
	Name      string
	Icon      string
	Threshold map[string]int64
}

// AchievementRules is evaluated in order on every achievement check.
var AchievementRules = []AchievementRule{
	{BadgeType: "first_lesson", Name: "First Steps", Icon: "🎯", Threshold: map[string]int64{"lessons_completed": 1}},
	{BadgeType: "five_lessons", Name: "Getting Started", Icon: "🚀", Threshold: map[string]int64{"lessons_completed": 5}},
	{BadgeType: "ten_lessons", Name: "Dedicated Learner", Icon: "💪", Threshold: map[string]int64{"lessons_completed": 10}},
	{BadgeType: "streak_3", Name: "On Fire", Icon: "🔥", Threshold: map[string]int64{"streak": 3}},
	{BadgeType: "streak_7", Name: "Week Warrior", Icon: "⭐", Threshold: map[string]int64{"streak": 7}},
	{BadgeType: "xp_100", Name: "Century", Icon: "💯", Threshold: map[string]int64{"xp": 100}},
	{BadgeType: "xp_500", Name: "XP Master", Icon: "👑", Threshold: map[string]int64{"xp": 500}},
}
