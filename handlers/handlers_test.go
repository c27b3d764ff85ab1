package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lesson-league-system/middleware"
	"lesson-league-system/repository"
	"lesson-league-system/services"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubGenerator struct{ calls int }

func (g *stubGenerator) Generate(context.Context, string, string) (string, error) {
	g.calls++
	return `{"title":"Salutări","vocabulary":[{"word":"bună","translation":"merhaba"}],
	"exercises":[{"type":"translation","question":"merhaba","correct_answer":"bună","acceptable_answers":["buna"]},
	{"type":"multiple_choice","question":"?","options":["da","nu"],"correct_answer":"da"}]}`, nil
}

type testServer struct {
	app *fiber.App
	gen *stubGenerator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	now := services.SystemClock

	tokens := services.NewTokenManager("handler-test", time.Hour, now)
	economy := services.NewEconomyService(store, now)
	progression := services.NewProgressionService(store, now)
	achievements := services.NewAchievementService(store, now)
	accounts := services.NewAccountService(store, tokens, economy, now)
	progress := services.NewProgressService(store, progression, achievements, now)
	exercises := services.NewExerciseService(store, progression)
	gen := &stubGenerator{}
	content := services.NewContentService(store, gen, nil, services.ContentLanguages{Target: "Romanian", Source: "Turkish"})
	require.NoError(t, economy.SeedShop(context.Background()))

	app := NewApp(4 << 20)
	app.Use(middleware.RequestLogger())
	auth := middleware.BearerAuth(tokens)
	api := app.Group("/api")

	SetupHealthRoutes(app, api)
	SetupAuthRoutes(api, auth, accounts)
	SetupContentRoutes(api, auth, middleware.AdminKey("ops-key"), content, exercises, 1<<20)
	SetupProgressionRoutes(api, auth, progress, progression, achievements)
	SetupEconomyRoutes(api, auth, economy)
	SetupSocialRoutes(api, auth, services.NewSocialService(store), services.NewLeagueService(store, now))
	SetupPracticeRoutes(api, auth, services.NewPracticeService(store))
	return &testServer{app: app, gen: gen}
}

// do sends a JSON request and decodes the response into out when non-nil.
func (s *testServer) do(t *testing.T, method, path, token string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) register(t *testing.T, name string) (token, id string) {
	t.Helper()
	var res struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	status := s.do(t, "POST", "/api/auth/register", "", fiber.Map{
		"username": name, "email": name + "@example.com", "password": "parola123",
	}, &res)
	require.Equal(t, http.StatusCreated, status)
	return res.Token, res.User.ID
}

type errBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	var body map[string]string
	assert.Equal(t, 200, s.do(t, "GET", "/api/health", "", nil, &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token, id := s.register(t, "ana")

	var eb errBody
	assert.Equal(t, 400, s.do(t, "POST", "/api/auth/register", "", fiber.Map{
		"username": "ana", "email": "ana@example.com", "password": "parola123",
	}, &eb))
	assert.Equal(t, "validation_error", eb.Error)

	assert.Equal(t, 401, s.do(t, "POST", "/api/auth/login", "", fiber.Map{
		"email": "ana@example.com", "password": "wrong",
	}, &eb))
	assert.Equal(t, "authentication_error", eb.Error)

	var login struct {
		Token string `json:"token"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/auth/login", "", fiber.Map{
		"email": "ana@example.com", "password": "parola123",
	}, &login))
	assert.NotEmpty(t, login.Token)

	var profile struct {
		ID     string `json:"id"`
		Gems   int64  `json:"gems"`
		Hearts int    `json:"hearts"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/user/profile", token, nil, &profile))
	assert.Equal(t, id, profile.ID)
	assert.Equal(t, int64(500), profile.Gems)

	assert.Equal(t, 401, s.do(t, "GET", "/api/user/profile", "", nil, &eb))
	assert.Equal(t, 401, s.do(t, "GET", "/api/user/profile", "garbage", nil, &eb))
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest("POST", "/api/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}

func TestLessonLifecycle(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "ana")

	var gen struct {
		Lesson struct {
			ID string `json:"id"`
		} `json:"lesson"`
	}
	assert.Equal(t, 201, s.do(t, "POST", "/api/lessons/generate", token, fiber.Map{"level": 1, "topic": "Greetings"}, &gen))
	lessonID := gen.Lesson.ID
	require.NotEmpty(t, lessonID)
	assert.Equal(t, 200, s.do(t, "POST", "/api/lessons/generate", token, fiber.Map{"level": 1, "topic": "greetings"}, &gen))
	assert.Equal(t, lessonID, gen.Lesson.ID)
	assert.Equal(t, 1, s.gen.calls)

	var list struct {
		Lessons []struct {
			ID string `json:"id"`
		} `json:"lessons"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/lessons/", token, nil, &list))
	assert.Len(t, list.Lessons, 1)

	var eb errBody
	assert.Equal(t, 400, s.do(t, "GET", "/api/lessons/abc", token, nil, &eb))
	assert.Equal(t, "validation_error", eb.Error)
	assert.Equal(t, 404, s.do(t, "GET", "/api/lessons/9b2e4f1a-3c5d-4e6f-8a9b-0c1d2e3f4a5b", token, nil, &eb))
	assert.Equal(t, "not_found", eb.Error)

	var submit struct {
		Correct  bool  `json:"correct"`
		XPEarned int64 `json:"xp_earned"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/exercises/submit", token, fiber.Map{
		"lesson_id": lessonID, "exercise_index": 0, "user_answer": "Buna",
	}, &submit))
	assert.True(t, submit.Correct)
	assert.Equal(t, int64(10), submit.XPEarned)

	assert.Equal(t, 400, s.do(t, "POST", "/api/exercises/submit", token, fiber.Map{
		"lesson_id": lessonID, "exercise_index": 7, "user_answer": "x",
	}, &eb))

	var done struct {
		FirstCompletion bool `json:"first_completion"`
		BestScore       int  `json:"best_score"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/lessons/"+lessonID+"/complete?score=60", token, nil, &done))
	assert.True(t, done.FirstCompletion)
	assert.Equal(t, 60, done.BestScore)
	assert.Equal(t, 400, s.do(t, "POST", "/api/lessons/"+lessonID+"/complete", token, nil, &eb))
	assert.Equal(t, 400, s.do(t, "POST", "/api/lessons/"+lessonID+"/complete?score=abc", token, nil, &eb))

	var tree struct {
		SkillTree []struct {
			ID          string `json:"id"`
			IsCompleted bool   `json:"is_completed"`
		} `json:"skill_tree"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/skill-tree", token, nil, &tree))
	require.Len(t, tree.SkillTree, 1)
	assert.True(t, tree.SkillTree[0].IsCompleted)

	var mistakes struct {
		Total int `json:"total"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/practice/mistakes", token, nil, &mistakes))
	assert.Equal(t, 1, mistakes.Total)

	var session struct {
		Total int `json:"total"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/practice/session", token, nil, &session))
	assert.Equal(t, 2, session.Total)

	var ach struct {
		Achievements []struct {
			BadgeType string `json:"badge_type"`
		} `json:"achievements"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/achievements", token, nil, &ach))
	require.NotEmpty(t, ach.Achievements)
	assert.Equal(t, "first_lesson", ach.Achievements[0].BadgeType)

	var check struct {
		Count int `json:"count"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/achievements/check", token, nil, &check))
	assert.Zero(t, check.Count)
}

func TestAppKeepsParamsImmutable(t *testing.T) {
	assert.True(t, NewApp(1<<20).Config().Immutable)
}

func TestCompletedLessonSurvivesLaterRequests(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "ana")

	var gen struct {
		Lesson struct {
			ID string `json:"id"`
		} `json:"lesson"`
	}
	require.Equal(t, 201, s.do(t, "POST", "/api/lessons/generate", token, fiber.Map{"level": 1, "topic": "greetings"}, &gen))
	lessonID := gen.Lesson.ID
	require.NotEmpty(t, lessonID)

	require.Equal(t, 200, s.do(t, "POST", "/api/lessons/"+lessonID+"/complete?score=60", token, nil, nil))

	// unrelated ids of the same length go through the same request buffers
	for i := 0; i < 8; i++ {
		other := fmt.Sprintf("%08d-0000-4000-8000-%012d", i, i)
		s.do(t, "GET", "/api/lessons/"+other, token, nil, nil)
		s.do(t, "DELETE", "/api/friends/"+other, token, nil, nil)
	}

	var tree struct {
		SkillTree []struct {
			ID          string `json:"id"`
			IsCompleted bool   `json:"is_completed"`
			Stars       int    `json:"stars"`
		} `json:"skill_tree"`
	}
	require.Equal(t, 200, s.do(t, "GET", "/api/skill-tree", token, nil, &tree))
	require.Len(t, tree.SkillTree, 1)
	assert.Equal(t, lessonID, tree.SkillTree[0].ID)
	assert.True(t, tree.SkillTree[0].IsCompleted)
	assert.Equal(t, 3, tree.SkillTree[0].Stars)
}

func TestEconomyRoutes(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "ana")

	var hearts struct {
		Hearts   int   `json:"hearts"`
		Deducted *bool `json:"deducted"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/hearts/deduct", token, nil, &hearts))
	assert.Equal(t, 4, hearts.Hearts)
	require.NotNil(t, hearts.Deducted)
	assert.True(t, *hearts.Deducted)

	var shop struct {
		Items []struct {
			ID       string `json:"id"`
			ItemType string `json:"item_type"`
		} `json:"items"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/shop", token, nil, &shop))
	require.NotEmpty(t, shop.Items)

	var purchase map[string]any
	assert.Equal(t, 200, s.do(t, "POST", "/api/shop/purchase", token, fiber.Map{"item_id": "heart_refill"}, &purchase))

	var eb errBody
	assert.Equal(t, 404, s.do(t, "POST", "/api/shop/purchase", token, fiber.Map{"item_id": "no_such_item"}, &eb))
	assert.Equal(t, 400, s.do(t, "POST", "/api/shop/purchase", token, fiber.Map{}, &eb))

	var streak struct {
		Streak int `json:"streak"`
	}
	assert.Equal(t, 200, s.do(t, "POST", "/api/streak/update", token, nil, &streak))
	assert.Equal(t, 1, streak.Streak)

	var goal struct {
		DailyGoal int64 `json:"daily_goal"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/daily-goal", token, nil, &goal))
	assert.Equal(t, int64(50), goal.DailyGoal)

	var inv struct {
		Inventory []any `json:"inventory"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/shop/inventory", token, nil, &inv))
}

func TestSocialRoutes(t *testing.T) {
	s := newTestServer(t)
	ana, anaID := s.register(t, "ana")
	ion, ionID := s.register(t, "ion")

	var board struct {
		Leaderboard []struct {
			Rank int `json:"rank"`
		} `json:"leaderboard"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/leaderboard?limit=1", "", nil, &board))
	assert.Len(t, board.Leaderboard, 1)

	assert.Equal(t, 200, s.do(t, "POST", "/api/friends/add", ana, fiber.Map{"friend": "ion"}, nil))
	var friends struct {
		Friends []struct {
			ID string `json:"id"`
		} `json:"friends"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/friends", ion, nil, &friends))
	require.Len(t, friends.Friends, 1)
	assert.Equal(t, anaID, friends.Friends[0].ID)

	assert.Equal(t, 200, s.do(t, "DELETE", "/api/friends/"+ionID, ana, nil, nil))
	var eb errBody
	assert.Equal(t, 404, s.do(t, "DELETE", "/api/friends/"+ionID, ana, nil, &eb))

	var st struct {
		League    string `json:"league"`
		Joined    bool   `json:"joined"`
		Standings []any  `json:"standings"`
	}
	assert.Equal(t, 200, s.do(t, "GET", "/api/league/standings", ana, nil, &st))
	assert.False(t, st.Joined)
	assert.Equal(t, 200, s.do(t, "POST", "/api/league/join", ana, nil, &st))
	assert.True(t, st.Joined)
	assert.Equal(t, "bronze", st.League)
	assert.Len(t, st.Standings, 1)
}

func (s *testServer) upload(t *testing.T, token, adminKey, filename string) int {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, _ = fmt.Fprint(part, "level,topic\n1,Food\n")
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/lessons/import", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	if adminKey != "" {
		req.Header.Set(middleware.AdminKeyHeader, adminKey)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	return resp.StatusCode
}

func TestCurriculumImportRoute(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "ana")

	assert.Equal(t, 403, s.upload(t, token, "", "curriculum.xlsx"))
	assert.Equal(t, 403, s.upload(t, token, "wrong", "curriculum.xlsx"))
	assert.Equal(t, 400, s.upload(t, token, "ops-key", "curriculum.csv"), "only .xlsx uploads are accepted")
	assert.Equal(t, 400, s.upload(t, token, "ops-key", "curriculum.xlsx"), "content is not a workbook")
}
