package repository

import (
	"errors"

	"lesson-league-system/models"

	"gorm.io/gorm"
)

// NewGormStore wires every repository to the same *gorm.DB.
// The DB should be opened with gorm.Config{TranslateError: true} so unique
// violations surface as ErrDuplicate.
func NewGormStore(db *gorm.DB) *Store {
	return &Store{
		Users:        &gormUserRepo{db: db},
		Lessons:      &gormLessonRepo{db: db},
		Stories:      &gormStoryRepo{db: db},
		Progress:     &gormProgressRepo{db: db},
		Shop:         &gormShopRepo{db: db},
		Achievements: &gormAchievementRepo{db: db},
		Leagues:      &gormLeagueRepo{db: db},
	}
}

// AutoMigrate creates or updates every table the store uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Lesson{},
		&models.Story{},
		&models.Progress{},
		&models.ShopItem{},
		&models.InventoryEntry{},
		&models.Achievement{},
		&models.League{},
		&models.LeagueMembership{},
	)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// affected maps a zero-row update to ErrNotFound.
func affected(tx *gorm.DB) error {
	if tx.Error != nil {
		return translate(tx.Error)
	}
	if tx.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
