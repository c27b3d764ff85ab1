package services

import (
	"testing"

	"lesson-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	translation := models.Exercise{
		Type:              models.ExerciseTranslation,
		CorrectAnswer:     "da",
		AcceptableAnswers: []string{"sigur"},
	}
	assert.True(t, Grade(translation, "DA "))
	assert.True(t, Grade(translation, " Sigur"))
	assert.False(t, Grade(translation, "nu"))

	// acceptable answers only count for translations
	choice := models.Exercise{
		Type:              models.ExerciseMultipleChoice,
		CorrectAnswer:     "Bună ziua",
		AcceptableAnswers: []string{"Salut"},
	}
	assert.True(t, Grade(choice, "BUNĂ ZIUA"))
	assert.False(t, Grade(choice, "Salut"))
}

func TestSubmitExercise(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "ana", nil)
	lesson := f.addLesson(t, 1, "Greetings", 3)
	idx := 1

	res, err := f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: lesson.ID, ExerciseIndex: &idx, UserAnswer: " A1 "})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, ExerciseXP, res.XPEarned)
	require.NotNil(t, res.XP)
	assert.Equal(t, int64(10), res.XP.TotalXP)

	// repeats still earn XP
	_, err = f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: lesson.ID, ExerciseIndex: &idx, UserAnswer: "a1"})
	require.NoError(t, err)
	assert.Equal(t, int64(20), f.user(t, u.ID).XP)

	res, err = f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: lesson.ID, ExerciseIndex: &idx, UserAnswer: "wrong"})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Zero(t, res.XPEarned)
	assert.Equal(t, "a1", res.CorrectAnswer)
	assert.Equal(t, int64(20), f.user(t, u.ID).XP)
}

func TestSubmitExerciseErrors(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "ana", nil)
	lesson := f.addLesson(t, 1, "Greetings", 2)
	zero, out := 0, 2

	_, err := f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: lesson.ID, ExerciseIndex: &out, UserAnswer: "x"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: "not-a-uuid", ExerciseIndex: &zero})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: "2f1c7f0e-8c1e-4d55-9d3b-6a1f0c6f9a10", ExerciseIndex: &zero})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.exercises.Submit(f.ctx, u.ID, SubmitRequest{LessonID: lesson.ID})
	assert.ErrorIs(t, err, ErrValidation, "exercise_index is required")
}
