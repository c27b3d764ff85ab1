package models

import (
	"time"

	"gorm.io/gorm"
)

// ContentKind distinguishes the content a progress row refers to.
type ContentKind string

const (
	ContentLesson ContentKind = "lesson"
	ContentStory  ContentKind = "story"
)

// Progress tracks one user's completion of one lesson or story.
// Score is the best score seen so far.
type Progress struct {
	ID          string      `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string      `gorm:"uniqueIndex:idx_progress_user_content;type:uuid;not null" json:"user_id"`
	ContentID   string      `gorm:"uniqueIndex:idx_progress_user_content;type:uuid;not null" json:"content_id"`
	ContentKind ContentKind `gorm:"uniqueIndex:idx_progress_user_content;type:varchar(16);not null" json:"content_kind"`

	Completed   bool       `json:"completed" gorm:"default:false"`
	Score       int        `json:"score" gorm:"default:0"`
	Attempts    int        `json:"attempts" gorm:"default:0"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
