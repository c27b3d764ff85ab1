package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"lesson-league-system/logging"
	"lesson-league-system/metrics"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"
)

// Archive keeps a copy of raw generated payloads. utils.R2Archive and
// utils.NopArchive satisfy it.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string, meta map[string]string) error
}

type GenerateRequest struct {
	Level int    `json:"level" validate:"required,min=1,max=100"`
	Topic string `json:"topic" validate:"required,max=120"`
}

type ImportResult struct {
	Created  int      `json:"created"`
	Existing int      `json:"existing"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// ContentLanguages names the language pair generated content targets.
type ContentLanguages struct {
	Target string
	Source string
}

// ContentService serves lessons and stories and generates missing ones.
type ContentService struct {
	lessons   repository.LessonRepository
	stories   repository.StoryRepository
	progress  repository.ProgressRepository
	generator TextGenerator
	archive   Archive
	langs     ContentLanguages
}

func NewContentService(store *repository.Store, generator TextGenerator, archive Archive, langs ContentLanguages) *ContentService {
	return &ContentService{
		lessons:   store.Lessons,
		stories:   store.Stories,
		progress:  store.Progress,
		generator: generator,
		archive:   archive,
		langs:     langs,
	}
}

// TopicKey is the cache key for a topic: "Food & Drinks" and "food-drinks"
// name the same lesson.
func TopicKey(topic string) string {
	return slug.Make(strings.TrimSpace(topic))
}

func progressIndex(rows []models.Progress) map[string]models.Progress {
	m := make(map[string]models.Progress, len(rows))
	for _, p := range rows {
		m[p.ContentID] = p
	}
	return m
}

// ListLessons returns every lesson ordered by level with the caller's progress.
func (s *ContentService) ListLessons(ctx context.Context, userID string) ([]models.LessonSummary, error) {
	const op = "ListLessons"
	lessons, err := s.lessons.List(ctx, 0)
	if err != nil {
		return nil, storeErr(op, "lesson", err)
	}
	rows, err := s.progress.ListByUser(ctx, userID, models.ContentLesson)
	if err != nil {
		return nil, storeErr(op, "progress", err)
	}
	idx := progressIndex(rows)

	out := make([]models.LessonSummary, 0, len(lessons))
	for _, l := range lessons {
		sum := models.LessonSummary{
			ID:            l.ID,
			Level:         l.Level,
			Topic:         l.Topic,
			Title:         l.Title,
			Description:   l.Description,
			ExerciseCount: len(l.Exercises),
		}
		if p, ok := idx[l.ID]; ok {
			sum.Completed = p.Completed
			sum.Score = p.Score
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *ContentService) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	const op = "GetLesson"
	if err := checkID(op, "lesson", id); err != nil {
		return nil, err
	}
	lesson, err := s.lessons.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(op, "lesson", err)
	}
	return lesson, nil
}

// GenerateLesson returns the cached lesson for (level, topic) or generates,
// stores and archives a new one. created reports which happened.
func (s *ContentService) GenerateLesson(ctx context.Context, req GenerateRequest) (lesson *models.Lesson, created bool, err error) {
	const op = "GenerateLesson"
	if err := validateStruct(op, req); err != nil {
		return nil, false, err
	}
	key := TopicKey(req.Topic)
	if key == "" {
		return nil, false, invalid(op, "topic must contain letters or digits")
	}

	existing, err := s.lessons.GetByLevelTopic(ctx, req.Level, key)
	if err == nil {
		metrics.GenerationRequests.WithLabelValues("lesson", "cached").Inc()
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, storeErr(op, "lesson", err)
	}

	system, prompt := lessonPrompts(s.langs.Target, s.langs.Source, req.Level, req.Topic)
	text, err := s.generator.Generate(ctx, system, prompt)
	if err != nil {
		metrics.GenerationRequests.WithLabelValues("lesson", "upstream_error").Inc()
		return nil, false, upstream(op, "Failed to generate lesson", err)
	}
	lesson, err = ParseLesson(text, req.Level, strings.TrimSpace(req.Topic))
	if err != nil {
		metrics.GenerationRequests.WithLabelValues("lesson", "malformed").Inc()
		logging.Warn().Err(err).Str("topic", req.Topic).Str("response", truncate(text, 300)).Msg("[CONTENT] generated lesson could not be parsed")
		return nil, false, upstream(op, "Failed to generate lesson content", err)
	}
	lesson.TopicKey = key

	if err := s.lessons.Create(ctx, lesson); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// a concurrent request stored it first
			existing, gerr := s.lessons.GetByLevelTopic(ctx, req.Level, key)
			if gerr != nil {
				return nil, false, storeErr(op, "lesson", gerr)
			}
			return existing, false, nil
		}
		return nil, false, storeErr(op, "lesson", err)
	}
	metrics.GenerationRequests.WithLabelValues("lesson", "ok").Inc()
	logging.Info().Str("lesson_id", lesson.ID).Int("level", lesson.Level).Str("topic", key).Msg("[CONTENT] ✅ lesson generated")

	s.archiveRaw(ctx, fmt.Sprintf("lessons/%d/%s.json", req.Level, key), text, archiveMeta(lesson.Level, lesson.Topic, lesson.Title))
	return lesson, true, nil
}

func archiveMeta(level int, topic, title string) map[string]string {
	return map[string]string{"level": strconv.Itoa(level), "topic": topic, "title": title}
}

// archiveRaw stores the generator output; failures are only logged.
func (s *ContentService) archiveRaw(ctx context.Context, key, text string, meta map[string]string) {
	if s.archive == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.archive.Put(ctx, key, []byte(StripCodeFences(text)), "application/json", meta); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("[CONTENT] archive upload failed")
	}
}

// ImportCurriculum reads an .xlsx sheet with level in column A and topic in
// column B (first row is a header) and generates every missing lesson.
// Row failures are counted, not fatal.
func (s *ContentService) ImportCurriculum(ctx context.Context, r io.Reader) (*ImportResult, error) {
	const op = "ImportCurriculum"
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, invalid(op, "could not read spreadsheet")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, invalid(op, "spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, invalid(op, "could not read spreadsheet rows")
	}

	res := &ImportResult{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		if len(row) < 2 || strings.TrimSpace(row[0]) == "" || strings.TrimSpace(row[1]) == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return res, err
		}
		level, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: invalid level %q", i+1, row[0]))
			continue
		}
		_, created, err := s.GenerateLesson(ctx, GenerateRequest{Level: level, Topic: strings.TrimSpace(row[1])})
		switch {
		case err != nil:
			res.Failed++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s", i+1, errorMessage(err)))
		case created:
			res.Created++
		default:
			res.Existing++
		}
	}
	logging.Info().Int("created", res.Created).Int("existing", res.Existing).Int("failed", res.Failed).Msg("[CONTENT] curriculum import finished")
	return res, nil
}

// errorMessage is the client-safe text of err.
func errorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal error"
}

func (s *ContentService) ListStories(ctx context.Context, userID string) ([]models.StorySummary, error) {
	const op = "ListStories"
	stories, err := s.stories.List(ctx, 0)
	if err != nil {
		return nil, storeErr(op, "story", err)
	}
	rows, err := s.progress.ListByUser(ctx, userID, models.ContentStory)
	if err != nil {
		return nil, storeErr(op, "progress", err)
	}
	idx := progressIndex(rows)

	out := make([]models.StorySummary, 0, len(stories))
	for _, st := range stories {
		sum := models.StorySummary{ID: st.ID, Level: st.Level, Topic: st.Topic, Title: st.Title}
		if p, ok := idx[st.ID]; ok {
			sum.Completed = p.Completed
			sum.Score = p.Score
		}
		out = append(out, sum)
	}
	return out, nil
}

func (s *ContentService) GetStory(ctx context.Context, id string) (*models.Story, error) {
	const op = "GetStory"
	if err := checkID(op, "story", id); err != nil {
		return nil, err
	}
	story, err := s.stories.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(op, "story", err)
	}
	return story, nil
}

// GenerateStory mirrors GenerateLesson for stories.
func (s *ContentService) GenerateStory(ctx context.Context, req GenerateRequest) (*models.Story, bool, error) {
	const op = "GenerateStory"
	if err := validateStruct(op, req); err != nil {
		return nil, false, err
	}
	key := TopicKey(req.Topic)
	if key == "" {
		return nil, false, invalid(op, "topic must contain letters or digits")
	}

	existing, err := s.stories.GetByLevelTopic(ctx, req.Level, key)
	if err == nil {
		metrics.GenerationRequests.WithLabelValues("story", "cached").Inc()
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, storeErr(op, "story", err)
	}

	system, prompt := storyPrompts(s.langs.Target, s.langs.Source, req.Level, req.Topic)
	text, err := s.generator.Generate(ctx, system, prompt)
	if err != nil {
		metrics.GenerationRequests.WithLabelValues("story", "upstream_error").Inc()
		return nil, false, upstream(op, "Failed to generate story", err)
	}
	story, err := ParseStory(text, req.Level, strings.TrimSpace(req.Topic))
	if err != nil {
		metrics.GenerationRequests.WithLabelValues("story", "malformed").Inc()
		return nil, false, upstream(op, "Failed to generate story content", err)
	}
	story.TopicKey = key

	if err := s.stories.Create(ctx, story); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, gerr := s.stories.GetByLevelTopic(ctx, req.Level, key)
			if gerr != nil {
				return nil, false, storeErr(op, "story", gerr)
			}
			return existing, false, nil
		}
		return nil, false, storeErr(op, "story", err)
	}
	metrics.GenerationRequests.WithLabelValues("story", "ok").Inc()
	logging.Info().Str("story_id", story.ID).Int("level", story.Level).Str("topic", key).Msg("[CONTENT] story generated")

	s.archiveRaw(ctx, fmt.Sprintf("stories/%d/%s.json", req.Level, key), text, archiveMeta(story.Level, story.Topic, story.Title))
	return story, true, nil
}
