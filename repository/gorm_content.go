package repository

import (
	"context"

	"lesson-league-system/models"

	"gorm.io/gorm"
)

type gormLessonRepo struct {
	db *gorm.DB
}

func (r *gormLessonRepo) Create(ctx context.Context, lesson *models.Lesson) error {
	ensureID(&lesson.ID)
	return translate(r.db.WithContext(ctx).Create(lesson).Error)
}

func (r *gormLessonRepo) GetByID(ctx context.Context, id string) (*models.Lesson, error) {
	var lesson models.Lesson
	if err := r.db.WithContext(ctx).First(&lesson, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &lesson, nil
}

func (r *gormLessonRepo) GetByLevelTopic(ctx context.Context, level int, topicKey string) (*models.Lesson, error) {
	var lesson models.Lesson
	err := r.db.WithContext(ctx).
		Where("level = ? AND topic_key = ?", level, topicKey).
		First(&lesson).Error
	if err != nil {
		return nil, translate(err)
	}
	return &lesson, nil
}

func (r *gormLessonRepo) List(ctx context.Context, level int) ([]models.Lesson, error) {
	var lessons []models.Lesson
	q := r.db.WithContext(ctx).Order("level ASC").Order("created_at ASC")
	if level > 0 {
		q = q.Where("level = ?", level)
	}
	if err := q.Find(&lessons).Error; err != nil {
		return nil, translate(err)
	}
	return lessons, nil
}

type gormStoryRepo struct {
	db *gorm.DB
}

func (r *gormStoryRepo) Create(ctx context.Context, story *models.Story) error {
	ensureID(&story.ID)
	return translate(r.db.WithContext(ctx).Create(story).Error)
}

func (r *gormStoryRepo) GetByID(ctx context.Context, id string) (*models.Story, error) {
	var story models.Story
	if err := r.db.WithContext(ctx).First(&story, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &story, nil
}

func (r *gormStoryRepo) GetByLevelTopic(ctx context.Context, level int, topicKey string) (*models.Story, error) {
	var story models.Story
	err := r.db.WithContext(ctx).
		Where("level = ? AND topic_key = ?", level, topicKey).
		First(&story).Error
	if err != nil {
		return nil, translate(err)
	}
	return &story, nil
}

func (r *gormStoryRepo) List(ctx context.Context, level int) ([]models.Story, error) {
	var stories []models.Story
	q := r.db.WithContext(ctx).Order("level ASC").Order("created_at ASC")
	if level > 0 {
		q = q.Where("level = ?", level)
	}
	if err := q.Find(&stories).Error; err != nil {
		return nil, translate(err)
	}
	return stories, nil
}
