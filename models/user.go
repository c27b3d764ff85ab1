package models

import (
	"time"

	"gorm.io/datatypes"
)

// Account defaults seeded on registration.
const (
	DefaultLevel      = 1
	DefaultGems       = 500
	DefaultHearts     = 5
	DefaultMaxHearts  = 5
	DefaultDailyGoal  = 50
	DefaultLeagueTier = "bronze"
)

// User is the learner account plus its denormalized economy state.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;not null" json:"username"`
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"not null" json:"-"`

	// Progression
	XP                    int64 `json:"xp" gorm:"default:0"`
	Level                 int   `json:"level" gorm:"default:1"`
	TotalLessonsCompleted int   `json:"total_lessons_completed" gorm:"default:0"`
	CurrentSkillTreeLevel int   `json:"current_skill_tree_level" gorm:"default:1"`

	// Economy
	Gems            int64      `json:"gems" gorm:"default:500"`
	Hearts          int        `json:"hearts" gorm:"default:5"`
	MaxHearts       int        `json:"max_hearts" gorm:"default:5"`
	LastHeartRefill *time.Time `json:"last_heart_refill,omitempty"`

	Streak    int        `json:"streak" gorm:"default:0"`
	LastLogin *time.Time `json:"last_login,omitempty"`

	DailyGoal         int64  `json:"daily_goal" gorm:"default:50"`
	DailyGoalProgress int64  `json:"daily_goal_progress" gorm:"default:0"`
	DailyGoalDate     string `json:"daily_goal_date,omitempty" gorm:"type:varchar(10)"`

	League  string                      `json:"league" gorm:"type:varchar(16);default:'bronze'"`
	Friends datatypes.JSONSlice[string] `json:"friends" gorm:"type:jsonb"`

	// Onboarding preferences
	Reason              string `json:"reason,omitempty"`
	ExperienceLevel     string `json:"experience_level,omitempty"`
	OnboardingCompleted bool   `json:"onboarding_completed" gorm:"default:false"`

	Timestamps
}

// ApplyDefaults fills zero-valued fields of records written before a field existed.
func (u *User) ApplyDefaults() {
	if u.Level < 1 {
		u.Level = DefaultLevel
	}
	if u.MaxHearts < 1 {
		u.MaxHearts = DefaultMaxHearts
	}
	if u.Hearts > u.MaxHearts {
		u.Hearts = u.MaxHearts
	}
	if u.Hearts < 0 {
		u.Hearts = 0
	}
	if u.DailyGoal <= 0 {
		u.DailyGoal = DefaultDailyGoal
	}
	if u.League == "" {
		u.League = DefaultLeagueTier
	}
	if u.CurrentSkillTreeLevel < 1 {
		u.CurrentSkillTreeLevel = 1
	}
	if u.Friends == nil {
		u.Friends = datatypes.JSONSlice[string]{}
	}
}

// HasFriend reports whether id is in the user's friend list.
func (u *User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// PublicUser is the profile shape returned to clients and in friend lists.
type PublicUser struct {
	ID                    string `json:"id"`
	Username              string `json:"username"`
	XP                    int64  `json:"xp"`
	Level                 int    `json:"level"`
	Streak                int    `json:"streak"`
	League                string `json:"league"`
	TotalLessonsCompleted int    `json:"total_lessons_completed"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                    u.ID,
		Username:              u.Username,
		XP:                    u.XP,
		Level:                 u.Level,
		Streak:                u.Streak,
		League:                u.League,
		TotalLessonsCompleted: u.TotalLessonsCompleted,
	}
}
