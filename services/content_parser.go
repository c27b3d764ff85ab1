package services

import (
	"fmt"
	"strings"

	"lesson-league-system/models"

	"github.com/goccy/go-json"
)

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

type rawLesson struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Vocabulary  []models.VocabularyItem `json:"vocabulary"`
	GrammarTip  string                  `json:"grammar_tip"`
	Exercises   []models.Exercise       `json:"exercises"`
}

type rawStoryPart struct {
	Text         string   `json:"text"`
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

type rawStory struct {
	Title string         `json:"title"`
	Parts []rawStoryPart `json:"parts"`
}

// ParseLesson decodes generated lesson text as-is. Only the code fences are
// stripped; exercises keep their generated order so submissions can address
// them by index. A missing title falls back to the topic.
func ParseLesson(text string, level int, topic string) (*models.Lesson, error) {
	var raw rawLesson
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("decode lesson: %w", err)
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = topic
	}
	lesson := &models.Lesson{
		Level:       level,
		Topic:       topic,
		Title:       title,
		Description: raw.Description,
		GrammarTip:  raw.GrammarTip,
		Vocabulary:  raw.Vocabulary,
		Exercises:   raw.Exercises,
	}
	if lesson.Vocabulary == nil {
		lesson.Vocabulary = []models.VocabularyItem{}
	}
	if lesson.Exercises == nil {
		lesson.Exercises = []models.Exercise{}
	}
	return lesson, nil
}

// ParseStory decodes generated story text. Options-bearing parts must point
// at a valid option.
func ParseStory(text string, level int, topic string) (*models.Story, error) {
	var raw rawStory
	if err := json.Unmarshal([]byte(StripCodeFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("decode story: %w", err)
	}
	if len(raw.Parts) == 0 {
		return nil, fmt.Errorf("story has no parts")
	}

	story := &models.Story{
		Level: level,
		Topic: topic,
		Title: strings.TrimSpace(raw.Title),
	}
	if story.Title == "" {
		story.Title = topic
	}
	for i, p := range raw.Parts {
		if len(p.Options) > 0 && (p.CorrectIndex < 0 || p.CorrectIndex >= len(p.Options)) {
			return nil, fmt.Errorf("story part %d: correct_index %d out of range", i, p.CorrectIndex)
		}
		story.Parts = append(story.Parts, models.StoryPart{
			Text:         p.Text,
			Question:     p.Question,
			Options:      p.Options,
			CorrectIndex: p.CorrectIndex,
		})
	}
	return story, nil
}

// Prompt template arguments: target language, source language,
// level, topic.
const lessonSystemPrompt = `You are a language teacher helping %[2]s speakers learn %[1]s.
You write short, Duolingo-style interactive lessons with core vocabulary, varied exercises
(multiple choice, matching, translation, listening, speaking) and practical examples.
Respond with JSON only.`

const lessonPromptTemplate = `Create a level %[3]d %[1]s lesson on the topic "%[4]s".
Instructions and explanations are in %[2]s. Use this structure:
{
  "title": "...",
  "description": "...",
  "vocabulary": [{"word": "...", "translation": "...", "pronunciation": "..."}],
  "grammar_tip": "...",
  "exercises": [
    {"type": "multiple_choice", "question": "...", "options": ["..."], "correct_answer": "...", "explanation": "..."},
    {"type": "word_match", "question": "...", "pairs": [{"left": "...", "right": "..."}]},
    {"type": "translation", "question": "...", "correct_answer": "...", "acceptable_answers": ["..."]},
    {"type": "sentence_complete", "question": "...", "options": ["..."], "correct_answer": "..."},
    {"type": "listening", "question": "...", "audio_text": "...", "correct_answer": "..."},
    {"type": "speaking", "question": "...", "correct_answer": "...", "pronunciation_guide": "..."}
  ]
}
Include 5-8 vocabulary items. Return only the JSON object.`

const storySystemPrompt = `You are a language teacher writing short graded reading stories in %[1]s for %[2]s speakers.
Respond with JSON only.`

const storyPromptTemplate = `Write a short level %[3]d story in %[1]s about "%[4]s".
Split it into 3-6 parts. Each part may carry a comprehension question in %[2]s:
{"title": "...", "parts": [{"text": "...", "question": "...", "options": ["...", "..."], "correct_index": 0}]}
Return only the JSON object.`

func lessonPrompts(target, source string, level int, topic string) (string, string) {
	return fmt.Sprintf(lessonSystemPrompt, target, source),
		fmt.Sprintf(lessonPromptTemplate, target, source, level, topic)
}

func storyPrompts(target, source string, level int, topic string) (string, string) {
	return fmt.Sprintf(storySystemPrompt, target, source),
		fmt.Sprintf(storyPromptTemplate, target, source, level, topic)
}
