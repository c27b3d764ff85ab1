// Package repository defines the storage contracts used by the services and
// provides a GORM/Postgres implementation plus an in-memory one.
package repository

import (
	"context"
	"errors"
	"time"

	"lesson-league-system/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Preferences are the onboarding fields a user may change.
type Preferences struct {
	Reason              *string
	DailyGoal           *int64
	ExperienceLevel     *string
	OnboardingCompleted *bool
}

// UserRepository stores accounts and their economy counters.
// Increment/decrement methods are single-row atomic updates.
type UserRepository interface {
	// Create returns ErrDuplicate when the email or username is taken.
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	// GetByIDs returns the users that exist; unknown ids are skipped.
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	TopByXP(ctx context.Context, limit int) ([]models.User, error)

	// AddXP adds delta to xp and to the daily goal progress in one update,
	// restarting the progress at delta when daily_goal_date is not today.
	// It returns the row as written.
	AddXP(ctx context.Context, id string, delta int64, today string) (*models.User, error)
	// RaiseLevel never lowers the stored level.
	RaiseLevel(ctx context.Context, id string, level int) error
	IncrementLessonsCompleted(ctx context.Context, id string) error
	SetHearts(ctx context.Context, id string, hearts int, refilledAt time.Time) error
	// DecrementHeart returns false when the user has no hearts left.
	DecrementHeart(ctx context.Context, id string) (bool, error)
	IncreaseMaxHearts(ctx context.Context, id string) error
	// DebitGems returns false, leaving gems untouched, when the balance is below amount.
	DebitGems(ctx context.Context, id string, amount int64) (bool, error)
	IncrementSkillTreeLevel(ctx context.Context, id string) error
	SetStreak(ctx context.Context, id string, streak int, lastLogin time.Time) error
	SetLeague(ctx context.Context, id string, tier string) error
	SetFriends(ctx context.Context, id string, friends []string) error
	UpdatePreferences(ctx context.Context, id string, prefs Preferences) error
}

type LessonRepository interface {
	// Create returns ErrDuplicate when (level, topic_key) exists.
	Create(ctx context.Context, lesson *models.Lesson) error
	GetByID(ctx context.Context, id string) (*models.Lesson, error)
	GetByLevelTopic(ctx context.Context, level int, topicKey string) (*models.Lesson, error)
	// List returns lessons ordered by level then creation time. level <= 0 means all levels.
	List(ctx context.Context, level int) ([]models.Lesson, error)
}

type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id string) (*models.Story, error)
	GetByLevelTopic(ctx context.Context, level int, topicKey string) (*models.Story, error)
	List(ctx context.Context, level int) ([]models.Story, error)
}

type ProgressRepository interface {
	Get(ctx context.Context, userID, contentID string, kind models.ContentKind) (*models.Progress, error)
	// Upsert inserts or replaces the row for (user_id, content_id, content_kind).
	Upsert(ctx context.Context, p *models.Progress) error
	ListByUser(ctx context.Context, userID string, kind models.ContentKind) ([]models.Progress, error)
}

type ShopRepository interface {
	// SeedItems inserts catalog items whose item_type is missing.
	SeedItems(ctx context.Context, items []models.ShopItem) error
	ListItems(ctx context.Context) ([]models.ShopItem, error)
	// GetItem looks an item up by id or by item_type.
	GetItem(ctx context.Context, idOrType string) (*models.ShopItem, error)
	AddInventory(ctx context.Context, entry *models.InventoryEntry) error
	ListInventory(ctx context.Context, userID string, now time.Time) ([]models.InventoryEntry, error)
	DeleteExpiredInventory(ctx context.Context, now time.Time) (int64, error)
}

type AchievementRepository interface {
	// Create returns ErrDuplicate when the badge was already awarded.
	Create(ctx context.Context, a *models.Achievement) error
	ListByUser(ctx context.Context, userID string) ([]models.Achievement, error)
}

type LeagueRepository interface {
	// Find returns ErrNotFound when no league exists for (tier, week).
	Find(ctx context.Context, tier, week string) (*models.League, error)
	GetOrCreate(ctx context.Context, tier, week string) (*models.League, error)
	// FindMembership returns the user's membership for week along with its league.
	FindMembership(ctx context.Context, userID, week string) (*models.LeagueMembership, *models.League, error)
	CreateMembership(ctx context.Context, m *models.LeagueMembership) error
	// ListMembers orders by join time, then id.
	ListMembers(ctx context.Context, leagueID string) ([]models.LeagueMembership, error)
	AddWeeklyXP(ctx context.Context, userID, week string, delta int64) error
	// ListOpenBefore returns unfinalized leagues of weeks earlier than week.
	ListOpenBefore(ctx context.Context, week string) ([]models.League, error)
	MarkFinalized(ctx context.Context, leagueID string) error
}

// Store bundles every repository behind one handle.
type Store struct {
	Users        UserRepository
	Lessons      LessonRepository
	Stories      StoryRepository
	Progress     ProgressRepository
	Shop         ShopRepository
	Achievements AchievementRepository
	Leagues      LeagueRepository
}
