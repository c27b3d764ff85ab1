package repository

import (
	"context"
	"errors"

	"lesson-league-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type gormLeagueRepo struct {
	db *gorm.DB
}

func (r *gormLeagueRepo) Find(ctx context.Context, tier, week string) (*models.League, error) {
	var league models.League
	if err := r.db.WithContext(ctx).Where("tier = ? AND week = ?", tier, week).First(&league).Error; err != nil {
		return nil, translate(err)
	}
	return &league, nil
}

func (r *gormLeagueRepo) GetOrCreate(ctx context.Context, tier, week string) (*models.League, error) {
	var league models.League
	err := r.db.WithContext(ctx).
		Where(models.League{Tier: tier, Week: week}).
		Attrs(models.League{ID: uuid.NewString()}).
		FirstOrCreate(&league).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// lost a creation race; the row exists now
		return r.Find(ctx, tier, week)
	}
	if err != nil {
		return nil, translate(err)
	}
	return &league, nil
}

func (r *gormLeagueRepo) FindMembership(ctx context.Context, userID, week string) (*models.LeagueMembership, *models.League, error) {
	var m models.LeagueMembership
	err := r.db.WithContext(ctx).
		Joins("JOIN leagues ON leagues.id = league_memberships.league_id").
		Where("league_memberships.user_id = ? AND leagues.week = ?", userID, week).
		First(&m).Error
	if err != nil {
		return nil, nil, translate(err)
	}
	var league models.League
	if err := r.db.WithContext(ctx).First(&league, "id = ?", m.LeagueID).Error; err != nil {
		return nil, nil, translate(err)
	}
	return &m, &league, nil
}

func (r *gormLeagueRepo) CreateMembership(ctx context.Context, m *models.LeagueMembership) error {
	ensureID(&m.ID)
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *gormLeagueRepo) ListMembers(ctx context.Context, leagueID string) ([]models.LeagueMembership, error) {
	var rows []models.LeagueMembership
	err := r.db.WithContext(ctx).
		Where("league_id = ?", leagueID).
		Order("joined_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (r *gormLeagueRepo) AddWeeklyXP(ctx context.Context, userID, week string, delta int64) error {
	leagueIDs := r.db.Model(&models.League{}).Select("id").Where("week = ?", week)
	return translate(r.db.WithContext(ctx).Model(&models.LeagueMembership{}).
		Where("user_id = ? AND league_id IN (?)", userID, leagueIDs).
		Update("xp_this_week", gorm.Expr("xp_this_week + ?", delta)).Error)
}

func (r *gormLeagueRepo) ListOpenBefore(ctx context.Context, week string) ([]models.League, error) {
	var rows []models.League
	err := r.db.WithContext(ctx).
		Where("finalized = ? AND week < ?", false, week).
		Order("week ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (r *gormLeagueRepo) MarkFinalized(ctx context.Context, leagueID string) error {
	return affected(r.db.WithContext(ctx).Model(&models.League{}).
		Where("id = ?", leagueID).
		Update("finalized", true))
}
