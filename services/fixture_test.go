package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock for services under test.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// Wednesday of ISO week 2026-W42.
var testNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctx          context.Context
	store        *repository.Store
	clock        *testClock
	tokens       *TokenManager
	economy      *EconomyService
	progression  *ProgressionService
	achievements *AchievementService
	accounts     *AccountService
	progress     *ProgressService
	exercises    *ExerciseService
	social       *SocialService
	leagues      *LeagueService
	practice     *PracticeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := newTestClock(testNow)
	now := clock.Now

	f := &fixture{ctx: context.Background(), store: store, clock: clock}
	f.tokens = NewTokenManager("test-secret", 30*24*time.Hour, now)
	f.economy = NewEconomyService(store, now)
	f.progression = NewProgressionService(store, now)
	f.achievements = NewAchievementService(store, now)
	f.accounts = NewAccountService(store, f.tokens, f.economy, now)
	f.progress = NewProgressService(store, f.progression, f.achievements, now)
	f.exercises = NewExerciseService(store, f.progression)
	f.social = NewSocialService(store)
	f.leagues = NewLeagueService(store, now)
	f.practice = NewPracticeService(store)

	require.NoError(t, f.economy.SeedShop(f.ctx))
	return f
}

// addUser stores a user with starting defaults; edit adjusts it before insert.
func (f *fixture) addUser(t *testing.T, username string, edit func(u *models.User)) *models.User {
	t.Helper()
	last := f.clock.Now()
	u := &models.User{
		ID:                    uuid.NewString(),
		Username:              username,
		Email:                 username + "@example.com",
		PasswordHash:          "x",
		Level:                 models.DefaultLevel,
		Gems:                  models.DefaultGems,
		Hearts:                models.DefaultHearts,
		MaxHearts:             models.DefaultMaxHearts,
		LastHeartRefill:       &last,
		DailyGoal:             models.DefaultDailyGoal,
		League:                models.DefaultLeagueTier,
		CurrentSkillTreeLevel: 1,
	}
	if edit != nil {
		edit(u)
	}
	require.NoError(t, f.store.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.store.Users.GetByID(f.ctx, id)
	require.NoError(t, err)
	return u
}

// addLesson stores a lesson with n translation exercises whose answers are "a0".."a(n-1)".
func (f *fixture) addLesson(t *testing.T, level int, topic string, n int) *models.Lesson {
	t.Helper()
	l := &models.Lesson{
		ID:       uuid.NewString(),
		Level:    level,
		Topic:    topic,
		TopicKey: TopicKey(topic),
		Title:    topic,
	}
	for i := 0; i < n; i++ {
		l.Exercises = append(l.Exercises, models.Exercise{
			Type:          models.ExerciseTranslation,
			Question:      fmt.Sprintf("q%d", i),
			CorrectAnswer: fmt.Sprintf("a%d", i),
		})
	}
	require.NoError(t, f.store.Lessons.Create(f.ctx, l))
	return l
}

func (f *fixture) addStory(t *testing.T, level int, topic string) *models.Story {
	t.Helper()
	s := &models.Story{
		ID:       uuid.NewString(),
		Level:    level,
		Topic:    topic,
		TopicKey: TopicKey(topic),
		Title:    topic,
		Parts:    []models.StoryPart{{Text: "Ana merge la piață.", Question: "Unde merge Ana?", Options: []string{"piață", "școală"}}},
	}
	require.NoError(t, f.store.Stories.Create(f.ctx, s))
	return s
}
