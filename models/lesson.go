package models

import (
	"gorm.io/datatypes"
)

// ExerciseType enumerates the exercise formats a lesson may contain.
type ExerciseType string

const (
	ExerciseMultipleChoice   ExerciseType = "multiple_choice"
	ExerciseWordMatch        ExerciseType = "word_match"
	ExerciseTranslation      ExerciseType = "translation"
	ExerciseSentenceComplete ExerciseType = "sentence_complete"
	ExerciseListening        ExerciseType = "listening"
	ExerciseSpeaking         ExerciseType = "speaking"
)

// Valid reports whether t is a known exercise type.
func (t ExerciseType) Valid() bool {
	switch t {
	case ExerciseMultipleChoice, ExerciseWordMatch, ExerciseTranslation,
		ExerciseSentenceComplete, ExerciseListening, ExerciseSpeaking:
		return true
	}
	return false
}

type VocabularyItem struct {
	Word          string `json:"word"`
	Translation   string `json:"translation"`
	Pronunciation string `json:"pronunciation"`
}

type WordPair struct {
	Left  string `json:"left"`
	Right string `json:"right"`
}

type Exercise struct {
	Type               ExerciseType `json:"type"`
	Question           string       `json:"question"`
	Options            []string     `json:"options,omitempty"`
	Pairs              []WordPair   `json:"pairs,omitempty"`
	CorrectAnswer      string       `json:"correct_answer"`
	AcceptableAnswers  []string     `json:"acceptable_answers,omitempty"`
	Explanation        string       `json:"explanation,omitempty"`
	AudioText          string       `json:"audio_text,omitempty"`
	PronunciationGuide string       `json:"pronunciation_guide,omitempty"`
}

// Lesson is generated once per (level, topic) and reused afterwards.
type Lesson struct {
	ID          string                              `gorm:"primaryKey;type:uuid" json:"id"`
	Level       int                                 `gorm:"uniqueIndex:idx_lesson_level_topic;not null" json:"level"`
	Topic       string                              `gorm:"not null" json:"topic"`
	TopicKey    string                              `gorm:"uniqueIndex:idx_lesson_level_topic;not null" json:"topic_key"`
	Title       string                              `gorm:"not null" json:"title"`
	Description string                              `json:"description"`
	Vocabulary  datatypes.JSONSlice[VocabularyItem] `gorm:"type:jsonb" json:"vocabulary"`
	GrammarTip  string                              `gorm:"type:text" json:"grammar_tip"`
	Exercises   datatypes.JSONSlice[Exercise]       `gorm:"type:jsonb" json:"exercises"`

	Timestamps
}

// LessonSummary is the list view of a lesson with the caller's completion state.
type LessonSummary struct {
	ID            string `json:"id"`
	Level         int    `json:"level"`
	Topic         string `json:"topic"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	ExerciseCount int    `json:"exercise_count"`
	Completed     bool   `json:"completed"`
	Score         int    `json:"score"`
}
