package repository

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"lesson-league-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlRecorder keeps every statement GORM renders, with values inlined.
type sqlRecorder struct {
	gormlogger.Interface
	mu   sync.Mutex
	stmt []string
}

func (r *sqlRecorder) LogMode(gormlogger.LogLevel) gormlogger.Interface { return r }

func (r *sqlRecorder) Trace(_ context.Context, _ time.Time, fc func() (string, int64), _ error) {
	sql, _ := fc()
	r.mu.Lock()
	r.stmt = append(r.stmt, sql)
	r.mu.Unlock()
}

// take returns and clears the recorded statements.
func (r *sqlRecorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.stmt
	r.stmt = nil
	return out
}

// dryRunStore builds the GORM store on the postgres dialect without a
// server: statements are rendered and recorded but never sent.
func dryRunStore(t *testing.T) (*Store, *sqlRecorder) {
	t.Helper()
	rec := &sqlRecorder{Interface: gormlogger.Discard}
	db, err := gorm.Open(postgres.Open("host=localhost user=lingo dbname=lingo sslmode=disable"), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               rec,
	})
	require.NoError(t, err)
	return NewGormStore(db), rec
}

func requireOne(t *testing.T, stmts []string) string {
	t.Helper()
	require.NotEmpty(t, stmts)
	return stmts[0]
}

func TestGormAddXPIsOneConditionalUpdate(t *testing.T) {
	s, rec := dryRunStore(t)
	_, _ = s.Users.AddXP(context.Background(), "u1", 10, "2026-10-14")

	stmts := rec.take()
	require.Len(t, stmts, 1, "no read-modify-write")
	sql := stmts[0]
	assert.True(t, strings.HasPrefix(sql, `UPDATE "users" SET`), sql)
	assert.Contains(t, sql, `"xp"=xp + 10`)
	assert.Contains(t, sql, `"daily_goal_progress"=CASE WHEN daily_goal_date = '2026-10-14' THEN daily_goal_progress + 10 ELSE 10 END`)
	assert.Contains(t, sql, `"daily_goal_date"='2026-10-14'`)
	assert.Contains(t, sql, `id = 'u1'`)
	assert.Contains(t, sql, `RETURNING *`)
}

func TestGormRaiseLevelNeverLowers(t *testing.T) {
	s, rec := dryRunStore(t)
	_ = s.Users.RaiseLevel(context.Background(), "u1", 5)
	assert.Contains(t, requireOne(t, rec.take()), `"level"=GREATEST(level, 5)`)
}

func TestGormCounterUpdates(t *testing.T) {
	s, rec := dryRunStore(t)
	ctx := context.Background()

	_, _ = s.Users.DebitGems(ctx, "u1", 350)
	sql := requireOne(t, rec.take())
	assert.Contains(t, sql, `"gems"=gems - 350`)
	assert.Contains(t, sql, `id = 'u1' AND gems >= 350`, "debit is guarded in the same statement")

	_, _ = s.Users.DecrementHeart(ctx, "u1")
	sql = requireOne(t, rec.take())
	assert.Contains(t, sql, `"hearts"=hearts - 1`)
	assert.Contains(t, sql, `hearts > 0`)

	_ = s.Users.IncreaseMaxHearts(ctx, "u1")
	sql = requireOne(t, rec.take())
	assert.Contains(t, sql, `"max_hearts"=max_hearts + 1`)
	assert.Contains(t, sql, `"hearts"=hearts + 1`)

	_ = s.Users.IncrementLessonsCompleted(ctx, "u1")
	assert.Contains(t, requireOne(t, rec.take()), `"total_lessons_completed"=total_lessons_completed + 1`)
}

func TestGormProgressUpsert(t *testing.T) {
	s, rec := dryRunStore(t)
	p := &models.Progress{UserID: "u1", ContentID: "l1", ContentKind: models.ContentLesson, Completed: true, Score: 80, Attempts: 2}
	_ = s.Progress.Upsert(context.Background(), p)

	assert.NotEmpty(t, p.ID, "id assigned before insert")
	sql := requireOne(t, rec.take())
	assert.True(t, strings.HasPrefix(sql, `INSERT INTO`), sql)
	assert.Contains(t, sql, `ON CONFLICT ("user_id","content_id","content_kind") DO UPDATE SET`)
	for _, col := range []string{"completed", "score", "attempts", "completed_at", "updated_at"} {
		assert.Contains(t, sql, `"`+col+`"="excluded"."`+col+`"`)
	}
	assert.NotContains(t, sql, `"created_at"="excluded"`, "first-seen timestamp is kept")
}

func TestGormSeedItemsSkipsExisting(t *testing.T) {
	s, rec := dryRunStore(t)
	_ = s.Shop.SeedItems(context.Background(), []models.ShopItem{{ItemType: "heart_refill", Name: "Heart Refill", Price: 350}})
	assert.Contains(t, requireOne(t, rec.take()), `ON CONFLICT ("item_type") DO NOTHING`)
}

func TestGormAddWeeklyXPScopesToWeek(t *testing.T) {
	s, rec := dryRunStore(t)
	_ = s.Leagues.AddWeeklyXP(context.Background(), "u1", "2026-W42", 15)

	sql := requireOne(t, rec.take())
	assert.True(t, strings.HasPrefix(sql, `UPDATE "league_memberships" SET`), sql)
	assert.Contains(t, sql, `"xp_this_week"=xp_this_week + 15`)
	assert.Contains(t, sql, `user_id = 'u1' AND league_id IN (SELECT`)
	assert.Contains(t, sql, `FROM "leagues" WHERE week = '2026-W42'`)
}

func TestGormFindMembershipJoinsLeague(t *testing.T) {
	s, rec := dryRunStore(t)
	_, _, _ = s.Leagues.FindMembership(context.Background(), "u1", "2026-W42")

	stmts := rec.take()
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `JOIN leagues ON leagues.id = league_memberships.league_id`)
	assert.Contains(t, stmts[0], `league_memberships.user_id = 'u1' AND leagues.week = '2026-W42'`)
	assert.Contains(t, stmts[1], `FROM "leagues"`)
}

func TestGormListMembersOrder(t *testing.T) {
	s, rec := dryRunStore(t)
	_, _ = s.Leagues.ListMembers(context.Background(), "l1")
	assert.Contains(t, requireOne(t, rec.take()), `ORDER BY joined_at ASC,id ASC`)
}

func TestGormDeleteExpiredInventoryPurges(t *testing.T) {
	s, rec := dryRunStore(t)
	_, _ = s.Shop.DeleteExpiredInventory(context.Background(), time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC))

	sql := requireOne(t, rec.take())
	assert.True(t, strings.HasPrefix(sql, `DELETE FROM "inventory_entries"`), sql)
	assert.Contains(t, sql, `expires_at IS NOT NULL AND expires_at <=`)
}
