package repository

import (
	"context"
	"time"

	"lesson-league-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormShopRepo struct {
	db *gorm.DB
}

func (r *gormShopRepo) SeedItems(ctx context.Context, items []models.ShopItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.ShopItem, len(items))
	copy(rows, items)
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
	}
	return translate(r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "item_type"}}, DoNothing: true}).
		Create(&rows).Error)
}

func (r *gormShopRepo) ListItems(ctx context.Context) ([]models.ShopItem, error) {
	var items []models.ShopItem
	if err := r.db.WithContext(ctx).Order("price ASC").Find(&items).Error; err != nil {
		return nil, translate(err)
	}
	return items, nil
}

func (r *gormShopRepo) GetItem(ctx context.Context, idOrType string) (*models.ShopItem, error) {
	var item models.ShopItem
	q := r.db.WithContext(ctx)
	if _, err := uuid.Parse(idOrType); err == nil {
		q = q.Where("id = ?", idOrType)
	} else {
		q = q.Where("item_type = ?", idOrType)
	}
	if err := q.First(&item).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *gormShopRepo) AddInventory(ctx context.Context, entry *models.InventoryEntry) error {
	ensureID(&entry.ID)
	return translate(r.db.WithContext(ctx).Create(entry).Error)
}

func (r *gormShopRepo) ListInventory(ctx context.Context, userID string, now time.Time) ([]models.InventoryEntry, error) {
	var rows []models.InventoryEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", userID, now).
		Order("purchased_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err)
	}
	return rows, nil
}

func (r *gormShopRepo) DeleteExpiredInventory(ctx context.Context, now time.Time) (int64, error) {
	// expired boosts are purged, not soft-deleted
	tx := r.db.WithContext(ctx).Unscoped().
		Where("expires_at IS NOT NULL AND expires_at <= ?", now).
		Delete(&models.InventoryEntry{})
	return tx.RowsAffected, translate(tx.Error)
}
