package services

import (
	"context"
	"strings"

	"lesson-league-system/metrics"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"golang.org/x/text/cases"
)

// normalizeAnswer trims whitespace and applies Unicode case folding.
func normalizeAnswer(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Grade compares answer with the exercise's correct answer. Translation
// exercises also accept any of their acceptable answers.
func Grade(ex models.Exercise, answer string) bool {
	got := normalizeAnswer(answer)
	if got == normalizeAnswer(ex.CorrectAnswer) {
		return true
	}
	if ex.Type != models.ExerciseTranslation {
		return false
	}
	for _, alt := range ex.AcceptableAnswers {
		if got == normalizeAnswer(alt) {
			return true
		}
	}
	return false
}

type SubmitRequest struct {
	LessonID      string `json:"lesson_id" validate:"required"`
	ExerciseIndex *int   `json:"exercise_index" validate:"required"`
	UserAnswer    string `json:"user_answer"`
}

type SubmitResult struct {
	Correct       bool     `json:"correct"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	XPEarned      int64    `json:"xp_earned"`
	XP            *XPAward `json:"xp,omitempty"`
}

// ExerciseService grades submissions. Hearts are not touched here.
type ExerciseService struct {
	lessons     repository.LessonRepository
	progression *ProgressionService
}

func NewExerciseService(store *repository.Store, progression *ProgressionService) *ExerciseService {
	return &ExerciseService{lessons: store.Lessons, progression: progression}
}

// Submit grades one answer. Every correct submission earns ExerciseXP,
// including repeats of the same exercise.
func (s *ExerciseService) Submit(ctx context.Context, userID string, req SubmitRequest) (*SubmitResult, error) {
	const op = "SubmitExercise"
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}
	if err := checkID(op, "lesson", req.LessonID); err != nil {
		return nil, err
	}
	lesson, err := s.lessons.GetByID(ctx, req.LessonID)
	if err != nil {
		return nil, storeErr(op, "lesson", err)
	}
	idx := *req.ExerciseIndex
	if idx < 0 || idx >= len(lesson.Exercises) {
		return nil, invalid(op, "Invalid exercise index")
	}
	ex := lesson.Exercises[idx]

	correct := Grade(ex, req.UserAnswer)
	label := string(ex.Type)
	if !ex.Type.Valid() {
		// generated types are stored as-is; keep label cardinality bounded
		label = "other"
	}
	metrics.RecordGrade(label, correct)

	res := &SubmitResult{
		Correct:       correct,
		CorrectAnswer: ex.CorrectAnswer,
		Explanation:   ex.Explanation,
	}
	if correct {
		award, err := s.progression.AwardXP(ctx, userID, ExerciseXP, "exercise")
		if err != nil {
			return nil, err
		}
		res.XPEarned = ExerciseXP
		res.XP = award
	}
	return res, nil
}
