package services

import (
	"context"
	"errors"
	"sort"

	"lesson-league-system/models"
	"lesson-league-system/repository"
)

const (
	// lessons completed below this score are practice candidates
	MistakeScoreThreshold = 80
	PracticeSessionSize   = 10
)

type Mistake struct {
	LessonID string `json:"lesson_id"`
	Title    string `json:"title"`
	Level    int    `json:"level"`
	Score    int    `json:"score"`
}

// PracticeExercise is an exercise pulled from a lesson, addressable through
// the normal exercise submission endpoint.
type PracticeExercise struct {
	LessonID      string `json:"lesson_id"`
	ExerciseIndex int    `json:"exercise_index"`
	models.Exercise
}

type PracticeSession struct {
	Exercises []PracticeExercise `json:"exercises"`
	Total     int                `json:"total"`
}

type PracticeService struct {
	lessons  repository.LessonRepository
	progress repository.ProgressRepository
}

func NewPracticeService(store *repository.Store) *PracticeService {
	return &PracticeService{lessons: store.Lessons, progress: store.Progress}
}

// weakRows returns completed lesson progress below the threshold, weakest first.
func (s *PracticeService) weakRows(ctx context.Context, userID string) ([]models.Progress, error) {
	rows, err := s.progress.ListByUser(ctx, userID, models.ContentLesson)
	if err != nil {
		return nil, err
	}
	weak := make([]models.Progress, 0, len(rows))
	for _, p := range rows {
		if p.Completed && p.Score < MistakeScoreThreshold {
			weak = append(weak, p)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].Score < weak[j].Score })
	return weak, nil
}

// Mistakes lists lessons worth repeating. Lessons that no longer exist are skipped.
func (s *PracticeService) Mistakes(ctx context.Context, userID string) ([]Mistake, error) {
	const op = "PracticeMistakes"
	weak, err := s.weakRows(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "progress", err)
	}
	out := make([]Mistake, 0, len(weak))
	for _, p := range weak {
		lesson, err := s.lessons.GetByID(ctx, p.ContentID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storeErr(op, "lesson", err)
		}
		out = append(out, Mistake{LessonID: lesson.ID, Title: lesson.Title, Level: lesson.Level, Score: p.Score})
	}
	return out, nil
}

// Session assembles up to PracticeSessionSize exercises from the weakest lessons.
func (s *PracticeService) Session(ctx context.Context, userID string) (*PracticeSession, error) {
	const op = "PracticeSession"
	weak, err := s.weakRows(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "progress", err)
	}
	session := &PracticeSession{Exercises: []PracticeExercise{}}
	for _, p := range weak {
		if len(session.Exercises) >= PracticeSessionSize {
			break
		}
		lesson, err := s.lessons.GetByID(ctx, p.ContentID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, storeErr(op, "lesson", err)
		}
		for i, ex := range lesson.Exercises {
			if len(session.Exercises) >= PracticeSessionSize {
				break
			}
			session.Exercises = append(session.Exercises, PracticeExercise{
				LessonID:      lesson.ID,
				ExerciseIndex: i,
				Exercise:      ex,
			})
		}
	}
	session.Total = len(session.Exercises)
	return session, nil
}
