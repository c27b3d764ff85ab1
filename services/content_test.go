package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"lesson-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeGenerator struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	reply   func(prompt string) (string, error)
}

func (g *fakeGenerator) Generate(_ context.Context, _, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.reply(prompt)
}

func (g *fakeGenerator) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeArchive struct {
	mu   sync.Mutex
	objs map[string][]byte
	meta map[string]map[string]string
	err  error
}

func (a *fakeArchive) Put(_ context.Context, key string, body []byte, _ string, meta map[string]string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	if a.objs == nil {
		a.objs = map[string][]byte{}
		a.meta = map[string]map[string]string{}
	}
	a.objs[key] = body
	a.meta[key] = meta
	return nil
}

const generatedLesson = "```json\n" + `{
  "title": "Salutări",
  "description": "Basic greetings",
  "vocabulary": [
    {"word": "Bună ziua", "translation": "İyi günler"},
    {"word": "mulțumesc", "translation": "teşekkürler", "pronunciation": "mool-tsoo-MESK"}
  ],
  "grammar_tip": "Formal greetings use dumneavoastră.",
  "exercises": [
    {"type": "multiple_choice", "question": "Hello?", "options": ["Bună", "Pa"], "correct_answer": "Bună"},
    {"type": "word_match", "question": "Match", "pairs": [{"left": "da", "right": "evet"}]},
    {"type": "essay", "question": "Write", "correct_answer": "liber"}
  ]
}` + "\n```"

const generatedStory = `{"title": "La piață", "parts": [
  {"text": "Ana merge la piață.", "question": "Unde merge Ana?", "options": ["piață", "școală"], "correct_index": 0},
  {"text": "Ea cumpără mere."}
]}`

func newContent(f *fixture, gen TextGenerator, archive Archive) *ContentService {
	return NewContentService(f.store, gen, archive, ContentLanguages{Target: "Romanian", Source: "Turkish"})
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripCodeFences("  {\"a\":1}  "))
}

func TestParseLesson(t *testing.T) {
	lesson, err := ParseLesson(generatedLesson, 1, "Greetings")
	require.NoError(t, err)
	assert.Equal(t, "Salutări", lesson.Title)
	require.Len(t, lesson.Vocabulary, 2)
	assert.Equal(t, "Bună ziua", lesson.Vocabulary[0].Word)
	assert.Equal(t, "İyi günler", lesson.Vocabulary[0].Translation)
	assert.Empty(t, lesson.Vocabulary[0].Pronunciation, "missing fields are not filled in")
	assert.Equal(t, "mool-tsoo-MESK", lesson.Vocabulary[1].Pronunciation)

	require.Len(t, lesson.Exercises, 3)
	require.Len(t, lesson.Exercises[1].Pairs, 1)
	assert.Equal(t, "da", lesson.Exercises[1].Pairs[0].Left)
	assert.Equal(t, "evet", lesson.Exercises[1].Pairs[0].Right)
	assert.Equal(t, models.ExerciseType("essay"), lesson.Exercises[2].Type)
}

func TestParseLessonKeepsExercisePositions(t *testing.T) {
	lesson, err := ParseLesson(`{"title":"t","exercises":[
		{"type":"fill_in_blank","question":"Eu ___ Ana.","correct_answer":"sunt"},
		{"type":"translation","question":"merhaba","correct_answer":"bună"}]}`, 1, "x")
	require.NoError(t, err)
	require.Len(t, lesson.Exercises, 2)
	assert.Equal(t, "sunt", lesson.Exercises[0].CorrectAnswer)
	assert.Equal(t, models.ExerciseTranslation, lesson.Exercises[1].Type)
	assert.True(t, Grade(lesson.Exercises[1], "Bună"))
}

func TestParseLessonEmptyExercises(t *testing.T) {
	lesson, err := ParseLesson(`{"title":"Alfabet","vocabulary":[],"exercises":[]}`, 1, "Alphabet")
	require.NoError(t, err)
	assert.Equal(t, "Alfabet", lesson.Title)
	assert.NotNil(t, lesson.Exercises)
	assert.Empty(t, lesson.Exercises)

	lesson, err = ParseLesson(`{"title":"Alfabet"}`, 1, "Alphabet")
	require.NoError(t, err)
	assert.NotNil(t, lesson.Exercises)
	assert.NotNil(t, lesson.Vocabulary)
}

func TestParseLessonRejects(t *testing.T) {
	_, err := ParseLesson("I cannot help with that.", 1, "x")
	assert.Error(t, err)
	_, err = ParseLesson(`{"title":"t","exercises":{"type":"translation"}}`, 1, "x")
	assert.Error(t, err, "exercises must be a list")

	lesson, err := ParseLesson(`{"exercises":[{"type":"translation","question":"q","correct_answer":"a"}]}`, 2, "Food")
	require.NoError(t, err)
	assert.Equal(t, "Food", lesson.Title, "topic is the fallback title")
	assert.NotNil(t, lesson.Vocabulary)
}

func TestParseStory(t *testing.T) {
	story, err := ParseStory(generatedStory, 1, "Market")
	require.NoError(t, err)
	assert.Len(t, story.Parts, 2)

	_, err = ParseStory(`{"title":"t","parts":[]}`, 1, "x")
	assert.Error(t, err)
	_, err = ParseStory(`{"parts":[{"text":"t","options":["a"],"correct_index":3}]}`, 1, "x")
	assert.Error(t, err)
}

func TestGenerateLessonCachesByLevelAndTopic(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{reply: func(string) (string, error) { return generatedLesson, nil }}
	archive := &fakeArchive{}
	svc := newContent(f, gen, archive)

	first, created, err := svc.GenerateLesson(f.ctx, GenerateRequest{Level: 1, Topic: "Greetings"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "greetings", first.TopicKey)
	assert.Contains(t, gen.prompts[0], `"Greetings"`)

	again, created, err := svc.GenerateLesson(f.ctx, GenerateRequest{Level: 1, Topic: "  greetings "})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, gen.count(), "cache hit does not call the generator")

	_, created, err = svc.GenerateLesson(f.ctx, GenerateRequest{Level: 2, Topic: "Greetings"})
	require.NoError(t, err)
	assert.True(t, created, "level is part of the key")
	assert.Equal(t, 2, gen.count())

	require.Contains(t, archive.objs, "lessons/1/greetings.json")
	assert.True(t, strings.HasPrefix(string(archive.objs["lessons/1/greetings.json"]), "{"), "fences stripped")
	assert.Equal(t, map[string]string{"level": "1", "topic": "Greetings", "title": "Salutări"}, archive.meta["lessons/1/greetings.json"])

	got, err := svc.GetLesson(f.ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, got.Exercises, 3)
}

func TestGenerateLessonErrors(t *testing.T) {
	f := newFixture(t)
	down := newContent(f, &fakeGenerator{reply: func(string) (string, error) {
		return "", ErrGeneratorUnavailable
	}}, nil)
	_, _, err := down.GenerateLesson(f.ctx, GenerateRequest{Level: 1, Topic: "Food"})
	assert.ErrorIs(t, err, ErrUpstreamGeneration)
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)

	garbage := newContent(f, &fakeGenerator{reply: func(string) (string, error) {
		return "Sure! Here is a lesson about food.", nil
	}}, nil)
	_, _, err = garbage.GenerateLesson(f.ctx, GenerateRequest{Level: 1, Topic: "Food"})
	assert.ErrorIs(t, err, ErrUpstreamGeneration)

	lessons, err := garbage.ListLessons(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, lessons, "nothing stored on failure")

	_, _, err = garbage.GenerateLesson(f.ctx, GenerateRequest{Level: 0, Topic: "Food"})
	assert.ErrorIs(t, err, ErrValidation)
	_, _, err = garbage.GenerateLesson(f.ctx, GenerateRequest{Level: 1, Topic: "!!!"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestArchiveFailureDoesNotFailGeneration(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{reply: func(string) (string, error) { return generatedLesson, nil }}
	svc := newContent(f, gen, &fakeArchive{err: errors.New("bucket unreachable")})

	_, created, err := svc.GenerateLesson(f.ctx, GenerateRequest{Level: 1, Topic: "Greetings"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestListLessonsIncludesProgress(t *testing.T) {
	f := newFixture(t)
	u := f.addUser(t, "ana", nil)
	a := f.addLesson(t, 1, "Greetings", 2)
	f.addLesson(t, 2, "Food", 1)
	_, err := f.progress.CompleteLesson(f.ctx, u.ID, a.ID, 60)
	require.NoError(t, err)

	svc := newContent(f, &fakeGenerator{}, nil)
	list, err := svc.ListLessons(f.ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.True(t, list[0].Completed)
	assert.Equal(t, 60, list[0].Score)
	assert.Equal(t, 2, list[0].ExerciseCount)
	assert.False(t, list[1].Completed)
}

func TestGenerateStory(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{reply: func(string) (string, error) { return generatedStory, nil }}
	archive := &fakeArchive{}
	svc := newContent(f, gen, archive)

	story, created, err := svc.GenerateStory(f.ctx, GenerateRequest{Level: 3, Topic: "At the Market"})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Contains(t, archive.objs, "stories/3/at-the-market.json")

	again, created, err := svc.GenerateStory(f.ctx, GenerateRequest{Level: 3, Topic: "at the market"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, story.ID, again.ID)
	assert.Equal(t, 1, gen.count())

	_, err = svc.GetStory(f.ctx, "not-a-uuid")
	assert.ErrorIs(t, err, ErrValidation)
}

func curriculum(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	x := excelize.NewFile()
	defer x.Close()
	sheet := x.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, x.SetSheetRow(sheet, cell, &row))
	}
	buf, err := x.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportCurriculum(t *testing.T) {
	f := newFixture(t)
	f.addLesson(t, 1, "Greetings", 1)
	gen := &fakeGenerator{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Broken") {
			return "not json", nil
		}
		return generatedLesson, nil
	}}
	svc := newContent(f, gen, nil)

	buf := curriculum(t, [][]any{
		{"level", "topic"},
		{1, "Greetings"},
		{1, "Numbers"},
		{},
		{"two", "Colors"},
		{2, "Broken"},
	})
	res, err := svc.ImportCurriculum(f.ctx, buf)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.Existing)
	assert.Equal(t, 2, res.Failed)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "row 5")
	assert.Contains(t, res.Errors[1], "Failed to generate lesson content")
}

func TestImportCurriculumRejectsNonSpreadsheet(t *testing.T) {
	f := newFixture(t)
	svc := newContent(f, &fakeGenerator{}, nil)
	_, err := svc.ImportCurriculum(f.ctx, strings.NewReader("level,topic\n1,Food\n"))
	assert.ErrorIs(t, err, ErrValidation)
}
