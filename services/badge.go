package services

import (
	"context"
	"errors"

	"lesson-league-system/logging"
	"lesson-league-system/metrics"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/google/uuid"
)

// AchievementStats are the counters achievement rules are evaluated against.
type AchievementStats struct {
	LessonsCompleted int64
	Streak           int64
	XP               int64
}

// MeetsThreshold reports whether stats satisfy every key of req.
func MeetsThreshold(stats AchievementStats, req map[string]int64) bool {
	for key, required := range req {
		switch key {
		case "lessons_completed":
			if stats.LessonsCompleted < required {
				return false
			}
		case "streak":
			if stats.Streak < required {
				return false
			}
		case "xp":
			if stats.XP < required {
				return false
			}
		default:
			return false
		}
	}
	return true
}

type AchievementService struct {
	users        repository.UserRepository
	progress     repository.ProgressRepository
	achievements repository.AchievementRepository
	now          Clock
}

func NewAchievementService(store *repository.Store, now Clock) *AchievementService {
	return &AchievementService{
		users:        store.Users,
		progress:     store.Progress,
		achievements: store.Achievements,
		now:          now,
	}
}

func (s *AchievementService) List(ctx context.Context, userID string) ([]models.Achievement, error) {
	rows, err := s.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr("ListAchievements", "achievement", err)
	}
	return rows, nil
}

// Evaluate awards every rule the user now satisfies and has not yet earned,
// returning only the new awards. Running it again without stat changes
// awards nothing.
func (s *AchievementService) Evaluate(ctx context.Context, userID string) ([]models.Achievement, error) {
	const op = "EvaluateAchievements"
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	rows, err := s.progress.ListByUser(ctx, userID, models.ContentLesson)
	if err != nil {
		return nil, storeErr(op, "progress", err)
	}
	var completed int64
	for _, p := range rows {
		if p.Completed {
			completed++
		}
	}
	stats := AchievementStats{LessonsCompleted: completed, Streak: int64(user.Streak), XP: user.XP}

	existing, err := s.achievements.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "achievement", err)
	}
	have := make(map[string]bool, len(existing))
	for _, a := range existing {
		have[a.BadgeType] = true
	}

	awarded := []models.Achievement{}
	for _, rule := range models.AchievementRules {
		if have[rule.BadgeType] || !MeetsThreshold(stats, rule.Threshold) {
			continue
		}
		a := models.Achievement{
			ID:        uuid.NewString(),
			UserID:    userID,
			BadgeType: rule.BadgeType,
			Name:      rule.Name,
			Icon:      rule.Icon,
			EarnedAt:  s.now(),
		}
		if err := s.achievements.Create(ctx, &a); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				// awarded concurrently
				continue
			}
			return nil, storeErr(op, "achievement", err)
		}
		awarded = append(awarded, a)
		metrics.AchievementsAwarded.WithLabelValues(rule.BadgeType).Inc()
		logging.Info().Str("user_id", userID).Str("badge", rule.BadgeType).Msg("🎖️ [ACHIEVEMENT] awarded")
	}
	return awarded, nil
}
