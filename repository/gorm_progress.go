package repository

import (
	"context"

	"lesson-league-system/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormProgressRepo struct {
	db *gorm.DB
}

func (r *gormProgressRepo) Get(ctx context.Context, userID, contentID string, kind models.ContentKind) (*models.Progress, error) {
	var p models.Progress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_id = ? AND content_kind = ?", userID, contentID, kind).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *gormProgressRepo) Upsert(ctx context.Context, p *models.Progress) error {
	ensureID(&p.ID)
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "content_id"}, {Name: "content_kind"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"completed", "score", "attempts", "completed_at", "updated_at",
		}),
	}).Create(p).Error)
}

func (r *gormProgressRepo) ListByUser(ctx context.Context, userID string, kind models.ContentKind) ([]models.Progress, error) {
	var rows []models.Progress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND content_kind = ?", userID, kind).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

type gormAchievementRepo struct {
	db *gorm.DB
}

func (r *gormAchievementRepo) Create(ctx context.Context, a *models.Achievement) error {
	ensureID(&a.ID)
	return translate(r.db.WithContext(ctx).Create(a).Error)
}

func (r *gormAchievementRepo) ListByUser(ctx context.Context, userID string) ([]models.Achievement, error) {
	var rows []models.Achievement
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}
