package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"lesson-league-system/logging"
	"lesson-league-system/metrics"
	"lesson-league-system/models"
	"lesson-league-system/repository"
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the production clock (UTC).
func SystemClock() time.Time { return time.Now().UTC() }

// XP sources and their flat amounts.
const (
	ExerciseXP       int64 = 10
	LessonCompleteXP int64 = 50
	StoryCompleteXP  int64 = 30
	BaseXPPerLevel         = 100
	dayLayout              = "2006-01-02"
)

// xpForNextLevel returns XP required to reach level+1 from current level
// e.g., xpForNextLevel(1) = XP to go from L1 → L2
func xpForNextLevel(currentLevel int) int64 {
	if currentLevel < 1 {
		currentLevel = 1
	}
	// L_n = floor(BaseXPPerLevel * n^1.2)
	return int64(float64(BaseXPPerLevel) * math.Pow(float64(currentLevel), 1.2))
}

// LevelForXP returns the level reached with xp total experience.
func LevelForXP(xp int64) int {
	level := 1
	for xp >= int64(BaseXPPerLevel)*int64(level)+xpForNextLevel(level) {
		level++
	}
	return level
}

// DailyGoalProgress resets progress when the stored activity date is not
// today, then adds xp.
func DailyGoalProgress(progress int64, storedDate, today string, xp int64) int64 {
	if storedDate != today {
		progress = 0
	}
	return progress + xp
}

// WeekKey returns the ISO week key, e.g. "2026-W42".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DailyGoalStatus is returned by the daily goal endpoint and embedded in XP awards.
type DailyGoalStatus struct {
	DailyGoal int64 `json:"daily_goal"`
	Progress  int64 `json:"progress"`
	Completed bool  `json:"completed"`
}

// XPAward summarizes one XP grant.
type XPAward struct {
	XPEarned  int64           `json:"xp_earned"`
	TotalXP   int64           `json:"total_xp"`
	Level     int             `json:"level"`
	LeveledUp bool            `json:"leveled_up"`
	DailyGoal DailyGoalStatus `json:"daily_goal"`
}

// ProgressionService is the single XP entry point: every XP grant updates the
// total, the level, the daily goal and the weekly league counter.
type ProgressionService struct {
	users   repository.UserRepository
	leagues repository.LeagueRepository
	now     Clock
}

func NewProgressionService(store *repository.Store, now Clock) *ProgressionService {
	return &ProgressionService{users: store.Users, leagues: store.Leagues, now: now}
}

// AwardXP atomically adds xp and today's daily goal progress, then
// propagates the level and weekly league side effects.
func (s *ProgressionService) AwardXP(ctx context.Context, userID string, xp int64, source string) (*XPAward, error) {
	now := s.now()
	user, err := s.users.AddXP(ctx, userID, xp, now.Format(dayLayout))
	if err != nil {
		return nil, storeErr("AwardXP", "user", err)
	}
	metrics.XPAwarded.WithLabelValues(source).Add(float64(xp))

	award := &XPAward{
		XPEarned: xp,
		TotalXP:  user.XP,
		Level:    user.Level,
		DailyGoal: DailyGoalStatus{
			DailyGoal: user.DailyGoal,
			Progress:  user.DailyGoalProgress,
			Completed: user.DailyGoalProgress >= user.DailyGoal,
		},
	}

	if newLevel := LevelForXP(user.XP); newLevel > user.Level {
		if err := s.users.RaiseLevel(ctx, userID, newLevel); err != nil {
			return nil, storeErr("AwardXP", "user", err)
		}
		award.Level = newLevel
		award.LeveledUp = true
		logging.Info().Str("user_id", userID).Int("level", newLevel).Msg("[PROGRESSION] level up")
	}

	// weekly league XP is best-effort; the user may not have joined this week
	if err := s.leagues.AddWeeklyXP(ctx, userID, WeekKey(now), xp); err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("[PROGRESSION] weekly league xp not recorded")
	}

	logging.Debug().
		Str("user_id", userID).
		Int64("xp", xp).
		Int64("total_xp", award.TotalXP).
		Str("source", source).
		Msg("[PROGRESSION] xp awarded")
	return award, nil
}

// DailyGoal reports today's progress without changing it.
func (s *ProgressionService) DailyGoal(ctx context.Context, userID string) (*DailyGoalStatus, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("DailyGoal", "user", err)
	}
	return dailyGoalFor(user, s.now()), nil
}

func dailyGoalFor(user *models.User, now time.Time) *DailyGoalStatus {
	progress := DailyGoalProgress(user.DailyGoalProgress, user.DailyGoalDate, now.Format(dayLayout), 0)
	return &DailyGoalStatus{
		DailyGoal: user.DailyGoal,
		Progress:  progress,
		Completed: progress >= user.DailyGoal,
	}
}
