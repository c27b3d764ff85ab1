package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"lesson-league-system/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// memoryDB is a process-local store used for STORAGE_DRIVER=memory and tests.
// Records are copied in and out so callers never share state with the store.
type memoryDB struct {
	mu           sync.RWMutex
	users        map[string]*models.User
	lessons      map[string]*models.Lesson
	stories      map[string]*models.Story
	progress     map[string]*models.Progress
	items        map[string]*models.ShopItem
	inventory    map[string]*models.InventoryEntry
	achievements map[string]*models.Achievement
	leagues      map[string]*models.League
	memberships  map[string]*models.LeagueMembership
	seq          int64
}

// NewMemoryStore returns a Store backed by in-process maps.
func NewMemoryStore() *Store {
	m := &memoryDB{
		users:        map[string]*models.User{},
		lessons:      map[string]*models.Lesson{},
		stories:      map[string]*models.Story{},
		progress:     map[string]*models.Progress{},
		items:        map[string]*models.ShopItem{},
		inventory:    map[string]*models.InventoryEntry{},
		achievements: map[string]*models.Achievement{},
		leagues:      map[string]*models.League{},
		memberships:  map[string]*models.LeagueMembership{},
	}
	return &Store{
		Users:        (*memUserRepo)(m),
		Lessons:      (*memLessonRepo)(m),
		Stories:      (*memStoryRepo)(m),
		Progress:     (*memProgressRepo)(m),
		Shop:         (*memShopRepo)(m),
		Achievements: (*memAchievementRepo)(m),
		Leagues:      (*memLeagueRepo)(m),
	}
}

// stamp assigns creation order so ordering by created_at is stable in memory.
func (m *memoryDB) stamp(ts *models.Timestamps) {
	m.seq++
	now := time.Now().UTC().Add(time.Duration(m.seq) * time.Nanosecond)
	if ts.CreatedAt.IsZero() {
		ts.CreatedAt = now
	}
	ts.UpdatedAt = now
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

// ── users ────────────────────────────────────────────────────────────────────

type memUserRepo memoryDB

func copyUser(u *models.User) *models.User {
	c := *u
	c.Friends = append(datatypes.JSONSlice[string]{}, u.Friends...)
	c.ApplyDefaults()
	return &c
}

func (r *memUserRepo) Create(_ context.Context, user *models.User) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return ErrDuplicate
		}
	}
	ensureID(&user.ID)
	if _, ok := m.users[user.ID]; ok {
		return ErrDuplicate
	}
	m.stamp(&user.Timestamps)
	m.users[user.ID] = copyUser(user)
	return nil
}

func (r *memUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if match(u) {
			return copyUser(u), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(u), nil
}

func (r *memUserRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *memUserRepo) GetByIDs(_ context.Context, ids []string) ([]models.User, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *copyUser(u))
		}
	}
	return out, nil
}

func (r *memUserRepo) TopByXP(_ context.Context, limit int) ([]models.User, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *copyUser(u))
	}
	m.mu.RUnlock()
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].XP != all[j].XP {
			return all[i].XP > all[j].XP
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// mutate applies fn to the stored user under the write lock.
func (r *memUserRepo) mutate(id string, fn func(u *models.User)) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	m.stamp(&u.Timestamps)
	return nil
}

func (r *memUserRepo) AddXP(_ context.Context, id string, delta int64, today string) (*models.User, error) {
	var out *models.User
	err := r.mutate(id, func(u *models.User) {
		u.XP += delta
		if u.DailyGoalDate == today {
			u.DailyGoalProgress += delta
		} else {
			u.DailyGoalProgress = delta
		}
		u.DailyGoalDate = today
		out = copyUser(u)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *memUserRepo) RaiseLevel(_ context.Context, id string, level int) error {
	return r.mutate(id, func(u *models.User) {
		if level > u.Level {
			u.Level = level
		}
	})
}

func (r *memUserRepo) IncrementLessonsCompleted(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) { u.TotalLessonsCompleted++ })
}

func (r *memUserRepo) SetHearts(_ context.Context, id string, hearts int, refilledAt time.Time) error {
	return r.mutate(id, func(u *models.User) {
		u.Hearts = hearts
		t := refilledAt
		u.LastHeartRefill = &t
	})
}

func (r *memUserRepo) DecrementHeart(_ context.Context, id string) (bool, error) {
	var ok bool
	err := r.mutate(id, func(u *models.User) {
		if u.Hearts > 0 {
			u.Hearts--
			ok = true
		}
	})
	return ok, err
}

func (r *memUserRepo) IncreaseMaxHearts(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) {
		u.MaxHearts++
		u.Hearts++
	})
}

func (r *memUserRepo) DebitGems(_ context.Context, id string, amount int64) (bool, error) {
	var ok bool
	err := r.mutate(id, func(u *models.User) {
		if u.Gems >= amount {
			u.Gems -= amount
			ok = true
		}
	})
	return ok, err
}

func (r *memUserRepo) IncrementSkillTreeLevel(_ context.Context, id string) error {
	return r.mutate(id, func(u *models.User) { u.CurrentSkillTreeLevel++ })
}

func (r *memUserRepo) SetStreak(_ context.Context, id string, streak int, lastLogin time.Time) error {
	return r.mutate(id, func(u *models.User) {
		u.Streak = streak
		t := lastLogin
		u.LastLogin = &t
	})
}

func (r *memUserRepo) SetLeague(_ context.Context, id string, tier string) error {
	return r.mutate(id, func(u *models.User) { u.League = tier })
}

func (r *memUserRepo) SetFriends(_ context.Context, id string, friends []string) error {
	return r.mutate(id, func(u *models.User) {
		u.Friends = append(datatypes.JSONSlice[string]{}, friends...)
	})
}

func (r *memUserRepo) UpdatePreferences(_ context.Context, id string, prefs Preferences) error {
	return r.mutate(id, func(u *models.User) {
		if prefs.Reason != nil {
			u.Reason = *prefs.Reason
		}
		if prefs.DailyGoal != nil {
			u.DailyGoal = *prefs.DailyGoal
		}
		if prefs.ExperienceLevel != nil {
			u.ExperienceLevel = *prefs.ExperienceLevel
		}
		if prefs.OnboardingCompleted != nil {
			u.OnboardingCompleted = *prefs.OnboardingCompleted
		}
	})
}

// ── lessons & stories ────────────────────────────────────────────────────────

type memLessonRepo memoryDB

func copyLesson(l *models.Lesson) *models.Lesson {
	c := *l
	c.Vocabulary = append(datatypes.JSONSlice[models.VocabularyItem]{}, l.Vocabulary...)
	c.Exercises = append(datatypes.JSONSlice[models.Exercise]{}, l.Exercises...)
	return &c
}

func (r *memLessonRepo) Create(_ context.Context, lesson *models.Lesson) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lessons {
		if l.Level == lesson.Level && l.TopicKey == lesson.TopicKey {
			return ErrDuplicate
		}
	}
	ensureID(&lesson.ID)
	m.stamp(&lesson.Timestamps)
	m.lessons[lesson.ID] = copyLesson(lesson)
	return nil
}

func (r *memLessonRepo) GetByID(_ context.Context, id string) (*models.Lesson, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.lessons[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyLesson(l), nil
}

func (r *memLessonRepo) GetByLevelTopic(_ context.Context, level int, topicKey string) (*models.Lesson, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.lessons {
		if l.Level == level && l.TopicKey == topicKey {
			return copyLesson(l), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memLessonRepo) List(_ context.Context, level int) ([]models.Lesson, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := make([]models.Lesson, 0, len(m.lessons))
	for _, l := range m.lessons {
		if level > 0 && l.Level != level {
			continue
		}
		out = append(out, *copyLesson(l))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type memStoryRepo memoryDB

func copyStory(s *models.Story) *models.Story {
	c := *s
	c.Parts = append(datatypes.JSONSlice[models.StoryPart]{}, s.Parts...)
	return &c
}

func (r *memStoryRepo) Create(_ context.Context, story *models.Story) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stories {
		if s.Level == story.Level && s.TopicKey == story.TopicKey {
			return ErrDuplicate
		}
	}
	ensureID(&story.ID)
	m.stamp(&story.Timestamps)
	m.stories[story.ID] = copyStory(story)
	return nil
}

func (r *memStoryRepo) GetByID(_ context.Context, id string) (*models.Story, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyStory(s), nil
}

func (r *memStoryRepo) GetByLevelTopic(_ context.Context, level int, topicKey string) (*models.Story, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.stories {
		if s.Level == level && s.TopicKey == topicKey {
			return copyStory(s), nil
		}
	}
	return nil, ErrNotFound
}

func (r *memStoryRepo) List(_ context.Context, level int) ([]models.Story, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := make([]models.Story, 0, len(m.stories))
	for _, s := range m.stories {
		if level > 0 && s.Level != level {
			continue
		}
		out = append(out, *copyStory(s))
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// ── progress & achievements ──────────────────────────────────────────────────

type memProgressRepo memoryDB

func progressKey(userID, contentID string, kind models.ContentKind) string {
	return userID + "|" + contentID + "|" + string(kind)
}

func (r *memProgressRepo) Get(_ context.Context, userID, contentID string, kind models.ContentKind) (*models.Progress, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.progress[progressKey(userID, contentID, kind)]
	if !ok {
		return nil, ErrNotFound
	}
	c := *p
	return &c, nil
}

func (r *memProgressRepo) Upsert(_ context.Context, p *models.Progress) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	key := progressKey(p.UserID, p.ContentID, p.ContentKind)
	if existing, ok := m.progress[key]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	}
	ensureID(&p.ID)
	m.stamp(&p.Timestamps)
	c := *p
	m.progress[key] = &c
	return nil
}

func (r *memProgressRepo) ListByUser(_ context.Context, userID string, kind models.ContentKind) ([]models.Progress, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := []models.Progress{}
	for _, p := range m.progress {
		if p.UserID == userID && p.ContentKind == kind {
			out = append(out, *p)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memAchievementRepo memoryDB

func (r *memAchievementRepo) Create(_ context.Context, a *models.Achievement) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.achievements {
		if existing.UserID == a.UserID && existing.BadgeType == a.BadgeType {
			return ErrDuplicate
		}
	}
	ensureID(&a.ID)
	c := *a
	m.achievements[a.ID] = &c
	return nil
}

func (r *memAchievementRepo) ListByUser(_ context.Context, userID string) ([]models.Achievement, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := []models.Achievement{}
	for _, a := range m.achievements {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].EarnedAt.Before(out[j].EarnedAt) })
	return out, nil
}

// ── shop ─────────────────────────────────────────────────────────────────────

type memShopRepo memoryDB

func (r *memShopRepo) SeedItems(_ context.Context, items []models.ShopItem) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		exists := false
		for _, it := range m.items {
			if it.ItemType == item.ItemType {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		c := item
		ensureID(&c.ID)
		m.items[c.ID] = &c
	}
	return nil
}

func (r *memShopRepo) ListItems(_ context.Context) ([]models.ShopItem, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := make([]models.ShopItem, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, *it)
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Price != out[j].Price {
			return out[i].Price < out[j].Price
		}
		return out[i].ItemType < out[j].ItemType
	})
	return out, nil
}

func (r *memShopRepo) GetItem(_ context.Context, idOrType string) (*models.ShopItem, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	if it, ok := m.items[idOrType]; ok {
		c := *it
		return &c, nil
	}
	for _, it := range m.items {
		if it.ItemType == idOrType {
			c := *it
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memShopRepo) AddInventory(_ context.Context, entry *models.InventoryEntry) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	ensureID(&entry.ID)
	c := *entry
	m.inventory[entry.ID] = &c
	return nil
}

func (r *memShopRepo) ListInventory(_ context.Context, userID string, now time.Time) ([]models.InventoryEntry, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := []models.InventoryEntry{}
	for _, e := range m.inventory {
		if e.UserID == userID && e.Active(now) {
			out = append(out, *e)
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].PurchasedAt.Before(out[j].PurchasedAt) })
	return out, nil
}

func (r *memShopRepo) DeleteExpiredInventory(_ context.Context, now time.Time) (int64, error) {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, e := range m.inventory {
		if !e.Active(now) {
			delete(m.inventory, id)
			n++
		}
	}
	return n, nil
}

// ── leagues ──────────────────────────────────────────────────────────────────

type memLeagueRepo memoryDB

func (r *memLeagueRepo) Find(_ context.Context, tier, week string) (*models.League, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, l := range m.leagues {
		if l.Tier == tier && l.Week == week {
			c := *l
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memLeagueRepo) GetOrCreate(_ context.Context, tier, week string) (*models.League, error) {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.leagues {
		if l.Tier == tier && l.Week == week {
			c := *l
			return &c, nil
		}
	}
	l := &models.League{ID: uuid.NewString(), Tier: tier, Week: week}
	m.stamp(&l.Timestamps)
	m.leagues[l.ID] = l
	c := *l
	return &c, nil
}

func (r *memLeagueRepo) FindMembership(_ context.Context, userID, week string) (*models.LeagueMembership, *models.League, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, mem := range m.memberships {
		if mem.UserID != userID {
			continue
		}
		l, ok := m.leagues[mem.LeagueID]
		if !ok || l.Week != week {
			continue
		}
		cm, cl := *mem, *l
		return &cm, &cl, nil
	}
	return nil, nil, ErrNotFound
}

func (r *memLeagueRepo) CreateMembership(_ context.Context, mem *models.LeagueMembership) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.memberships {
		if existing.LeagueID == mem.LeagueID && existing.UserID == mem.UserID {
			return ErrDuplicate
		}
	}
	ensureID(&mem.ID)
	c := *mem
	m.memberships[mem.ID] = &c
	return nil
}

func (r *memLeagueRepo) ListMembers(_ context.Context, leagueID string) ([]models.LeagueMembership, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := []models.LeagueMembership{}
	for _, mem := range m.memberships {
		if mem.LeagueID == leagueID {
			out = append(out, *mem)
		}
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *memLeagueRepo) AddWeeklyXP(_ context.Context, userID, week string, delta int64) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.memberships {
		if mem.UserID != userID {
			continue
		}
		if l, ok := m.leagues[mem.LeagueID]; ok && l.Week == week {
			mem.XPThisWeek += delta
		}
	}
	return nil
}

func (r *memLeagueRepo) ListOpenBefore(_ context.Context, week string) ([]models.League, error) {
	m := (*memoryDB)(r)
	m.mu.RLock()
	out := []models.League{}
	for _, l := range m.leagues {
		if !l.Finalized && l.Week < week {
			out = append(out, *l)
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Week != out[j].Week {
			return out[i].Week < out[j].Week
		}
		return out[i].Tier < out[j].Tier
	})
	return out, nil
}

func (r *memLeagueRepo) MarkFinalized(_ context.Context, leagueID string) error {
	m := (*memoryDB)(r)
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leagues[leagueID]
	if !ok {
		return ErrNotFound
	}
	l.Finalized = true
	return nil
}
