package repository

import (
	"context"
	"time"

	"lesson-league-system/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormUserRepo struct {
	db *gorm.DB
}

func (r *gormUserRepo) Create(ctx context.Context, user *models.User) error {
	ensureID(&user.ID)
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepo) first(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	user.ApplyDefaults()
	return &user, nil
}

func (r *gormUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *gormUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "email = ?", email)
}

func (r *gormUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *gormUserRepo) GetByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	for i := range users {
		users[i].ApplyDefaults()
	}
	return users, nil
}

func (r *gormUserRepo) TopByXP(ctx context.Context, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Order("xp DESC").
		Order("created_at ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, translate(err)
	}
	for i := range users {
		users[i].ApplyDefaults()
	}
	return users, nil
}

func (r *gormUserRepo) update(ctx context.Context, id string, column string, value interface{}) error {
	return affected(r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value))
}

func (r *gormUserRepo) updates(ctx context.Context, id string, values map[string]interface{}) error {
	return affected(r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(values))
}

func (r *gormUserRepo) AddXP(ctx context.Context, id string, delta int64, today string) (*models.User, error) {
	var user models.User
	// SET expressions all read the pre-update row, so the CASE sees the old date
	tx := r.db.WithContext(ctx).Model(&user).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"xp":                  gorm.Expr("xp + ?", delta),
			"daily_goal_progress": gorm.Expr("CASE WHEN daily_goal_date = ? THEN daily_goal_progress + ? ELSE ? END", today, delta, delta),
			"daily_goal_date":     today,
		})
	if err := affected(tx); err != nil {
		return nil, err
	}
	user.ApplyDefaults()
	return &user, nil
}

func (r *gormUserRepo) RaiseLevel(ctx context.Context, id string, level int) error {
	return r.update(ctx, id, "level", gorm.Expr("GREATEST(level, ?)", level))
}

func (r *gormUserRepo) IncrementLessonsCompleted(ctx context.Context, id string) error {
	return r.update(ctx, id, "total_lessons_completed", gorm.Expr("total_lessons_completed + 1"))
}

func (r *gormUserRepo) SetHearts(ctx context.Context, id string, hearts int, refilledAt time.Time) error {
	return r.updates(ctx, id, map[string]interface{}{
		"hearts":            hearts,
		"last_heart_refill": refilledAt,
	})
}

func (r *gormUserRepo) DecrementHeart(ctx context.Context, id string) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND hearts > 0", id).
		Update("hearts", gorm.Expr("hearts - 1"))
	if tx.Error != nil {
		return false, translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *gormUserRepo) IncreaseMaxHearts(ctx context.Context, id string) error {
	return r.updates(ctx, id, map[string]interface{}{
		"max_hearts": gorm.Expr("max_hearts + 1"),
		"hearts":     gorm.Expr("hearts + 1"),
	})
}

func (r *gormUserRepo) DebitGems(ctx context.Context, id string, amount int64) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND gems >= ?", id, amount).
		Update("gems", gorm.Expr("gems - ?", amount))
	if tx.Error != nil {
		return false, translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (r *gormUserRepo) IncrementSkillTreeLevel(ctx context.Context, id string) error {
	return r.update(ctx, id, "current_skill_tree_level", gorm.Expr("current_skill_tree_level + 1"))
}

func (r *gormUserRepo) SetStreak(ctx context.Context, id string, streak int, lastLogin time.Time) error {
	return r.updates(ctx, id, map[string]interface{}{
		"streak":     streak,
		"last_login": lastLogin,
	})
}

func (r *gormUserRepo) SetLeague(ctx context.Context, id string, tier string) error {
	return r.update(ctx, id, "league", tier)
}

func (r *gormUserRepo) SetFriends(ctx context.Context, id string, friends []string) error {
	return r.update(ctx, id, "friends", datatypes.JSONSlice[string](friends))
}

func (r *gormUserRepo) UpdatePreferences(ctx context.Context, id string, prefs Preferences) error {
	values := map[string]interface{}{}
	if prefs.Reason != nil {
		values["reason"] = *prefs.Reason
	}
	if prefs.DailyGoal != nil {
		values["daily_goal"] = *prefs.DailyGoal
	}
	if prefs.ExperienceLevel != nil {
		values["experience_level"] = *prefs.ExperienceLevel
	}
	if prefs.OnboardingCompleted != nil {
		values["onboarding_completed"] = *prefs.OnboardingCompleted
	}
	if len(values) == 0 {
		_, err := r.GetByID(ctx, id)
		return err
	}
	return r.updates(ctx, id, values)
}
