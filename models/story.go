package models

import "gorm.io/datatypes"

// StoryPart is one passage of a story with its comprehension question.
type StoryPart struct {
	Text         string   `json:"text"`
	Question     string   `json:"question,omitempty"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex int      `json:"correct_index"`
}

type Story struct {
	ID       string                         `gorm:"primaryKey;type:uuid" json:"id"`
	Level    int                            `gorm:"uniqueIndex:idx_story_level_topic;not null" json:"level"`
	Topic    string                         `gorm:"not null" json:"topic"`
	TopicKey string                         `gorm:"uniqueIndex:idx_story_level_topic;not null" json:"topic_key"`
	Title    string                         `gorm:"not null" json:"title"`
	Parts    datatypes.JSONSlice[StoryPart] `gorm:"type:jsonb" json:"parts"`

	Timestamps
}

type StorySummary struct {
	ID        string `json:"id"`
	Level     int    `json:"level"`
	Topic     string `json:"topic"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Score     int    `json:"score"`
}
