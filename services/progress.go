package services

import (
	"context"
	"errors"

	"lesson-league-system/logging"
	"lesson-league-system/models"
	"lesson-league-system/repository"
)

// Stars converts a 0-100 score into a 0-5 star rating.
func Stars(score int) int {
	s := score / 20
	if s > 5 {
		return 5
	}
	if s < 0 {
		return 0
	}
	return s
}

// MergeProgress folds a new attempt into the previous row (nil when none):
// best score wins and attempts grow by one.
func MergeProgress(prev *models.Progress, userID, contentID string, kind models.ContentKind, score int) *models.Progress {
	next := &models.Progress{
		UserID:      userID,
		ContentID:   contentID,
		ContentKind: kind,
		Completed:   true,
		Score:       score,
		Attempts:    1,
	}
	if prev != nil {
		next.ID = prev.ID
		next.CreatedAt = prev.CreatedAt
		next.Attempts = prev.Attempts + 1
		if prev.Score > score {
			next.Score = prev.Score
		}
		next.CompletedAt = prev.CompletedAt
	}
	return next
}

type CompletionResult struct {
	ContentID       string               `json:"content_id"`
	Score           int                  `json:"score"`
	BestScore       int                  `json:"best_score"`
	Attempts        int                  `json:"attempts"`
	FirstCompletion bool                 `json:"first_completion"`
	XP              *XPAward             `json:"xp"`
	NewAchievements []models.Achievement `json:"new_achievements"`
}

type SkillTreeNode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Level       int    `json:"level"`
	IsUnlocked  bool   `json:"is_unlocked"`
	IsCompleted bool   `json:"is_completed"`
	Stars       int    `json:"stars"`
}

// ProgressService records lesson and story completions and builds the skill tree.
type ProgressService struct {
	users        repository.UserRepository
	lessons      repository.LessonRepository
	stories      repository.StoryRepository
	progress     repository.ProgressRepository
	progression  *ProgressionService
	achievements *AchievementService
	now          Clock
}

func NewProgressService(store *repository.Store, progression *ProgressionService, achievements *AchievementService, now Clock) *ProgressService {
	return &ProgressService{
		users:        store.Users,
		lessons:      store.Lessons,
		stories:      store.Stories,
		progress:     store.Progress,
		progression:  progression,
		achievements: achievements,
		now:          now,
	}
}

func validScore(op string, score int) error {
	if score < 0 || score > 100 {
		return invalid(op, "score must be between 0 and 100")
	}
	return nil
}

// CompleteLesson records an attempt and always awards the flat completion XP.
func (s *ProgressService) CompleteLesson(ctx context.Context, userID, lessonID string, score int) (*CompletionResult, error) {
	const op = "CompleteLesson"
	if err := checkID(op, "lesson", lessonID); err != nil {
		return nil, err
	}
	if err := validScore(op, score); err != nil {
		return nil, err
	}
	if _, err := s.lessons.GetByID(ctx, lessonID); err != nil {
		return nil, storeErr(op, "lesson", err)
	}
	res, err := s.complete(ctx, op, userID, lessonID, models.ContentLesson, score, LessonCompleteXP)
	if err != nil {
		return nil, err
	}
	if res.FirstCompletion {
		if err := s.users.IncrementLessonsCompleted(ctx, userID); err != nil {
			return nil, storeErr(op, "user", err)
		}
	}
	// badges depend on the counters just written
	awards, err := s.achievements.Evaluate(ctx, userID)
	if err != nil {
		logging.Warn().Err(err).Str("user_id", userID).Msg("[PROGRESS] achievement evaluation failed")
	}
	res.NewAchievements = awards
	return res, nil
}

// CompleteStory has the same contract as CompleteLesson for stories.
func (s *ProgressService) CompleteStory(ctx context.Context, userID, storyID string, score int) (*CompletionResult, error) {
	const op = "CompleteStory"
	if err := checkID(op, "story", storyID); err != nil {
		return nil, err
	}
	if err := validScore(op, score); err != nil {
		return nil, err
	}
	if _, err := s.stories.GetByID(ctx, storyID); err != nil {
		return nil, storeErr(op, "story", err)
	}
	res, err := s.complete(ctx, op, userID, storyID, models.ContentStory, score, StoryCompleteXP)
	if err != nil {
		return nil, err
	}
	res.NewAchievements = []models.Achievement{}
	return res, nil
}

func (s *ProgressService) complete(ctx context.Context, op, userID, contentID string, kind models.ContentKind, score int, xp int64) (*CompletionResult, error) {
	prev, err := s.progress.Get(ctx, userID, contentID, kind)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(op, "progress", err)
	}
	if errors.Is(err, repository.ErrNotFound) {
		prev = nil
	}

	row := MergeProgress(prev, userID, contentID, kind, score)
	first := prev == nil || !prev.Completed
	if row.CompletedAt == nil {
		now := s.now()
		row.CompletedAt = &now
	}
	if err := s.progress.Upsert(ctx, row); err != nil {
		return nil, storeErr(op, "progress", err)
	}

	award, err := s.progression.AwardXP(ctx, userID, xp, string(kind))
	if err != nil {
		return nil, err
	}
	return &CompletionResult{
		ContentID:       contentID,
		Score:           score,
		BestScore:       row.Score,
		Attempts:        row.Attempts,
		FirstCompletion: first,
		XP:              award,
	}, nil
}

// SkillTree lists every lesson by level. Level N is unlocked only when every
// level N-1 lesson is completed. current_skill_tree_level is a profile stat
// and does not unlock anything here.
func (s *ProgressService) SkillTree(ctx context.Context, userID string) ([]SkillTreeNode, error) {
	const op = "SkillTree"
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, storeErr(op, "user", err)
	}
	lessons, err := s.lessons.List(ctx, 0)
	if err != nil {
		return nil, storeErr(op, "lesson", err)
	}
	rows, err := s.progress.ListByUser(ctx, userID, models.ContentLesson)
	if err != nil {
		return nil, storeErr(op, "progress", err)
	}
	return BuildSkillTree(lessons, rows), nil
}

// BuildSkillTree is the pure unlock computation behind SkillTree.
func BuildSkillTree(lessons []models.Lesson, rows []models.Progress) []SkillTreeNode {
	byLesson := make(map[string]models.Progress, len(rows))
	for _, p := range rows {
		byLesson[p.ContentID] = p
	}

	total := map[int]int{}
	done := map[int]int{}
	for _, l := range lessons {
		total[l.Level]++
		if p, ok := byLesson[l.ID]; ok && p.Completed {
			done[l.Level]++
		}
	}

	tree := make([]SkillTreeNode, 0, len(lessons))
	for _, l := range lessons {
		unlocked := l.Level <= 1 || done[l.Level-1] >= total[l.Level-1]
		node := SkillTreeNode{
			ID:          l.ID,
			Title:       l.Title,
			Description: l.Description,
			Level:       l.Level,
			IsUnlocked:  unlocked,
		}
		if p, ok := byLesson[l.ID]; ok {
			node.IsCompleted = p.Completed
			node.Stars = Stars(p.Score)
		}
		tree = append(tree, node)
	}
	return tree
}
