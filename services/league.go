package services

import (
	"context"
	"errors"
	"sort"

	"lesson-league-system/logging"
	"lesson-league-system/metrics"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/google/uuid"
)

const (
	StandingsLimit = 20
	PromoteCount   = 3
	DemoteCount    = 3
	// leagues smaller than this never demote
	MinMembersForDemotion = 10
)

// LeagueService manages weekly league membership and the end-of-week rollover.
type LeagueService struct {
	users   repository.UserRepository
	leagues repository.LeagueRepository
	now     Clock
}

func NewLeagueService(store *repository.Store, now Clock) *LeagueService {
	return &LeagueService{users: store.Users, leagues: store.Leagues, now: now}
}

// SortMembers orders members by weekly XP, highest first. Ties keep their
// incoming order.
func SortMembers(members []models.LeagueMembership) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].XPThisWeek > members[j].XPThisWeek
	})
}

// Join enrolls the user in this week's league of their tier. Joining twice is a no-op.
func (s *LeagueService) Join(ctx context.Context, userID string) (*models.Standings, error) {
	const op = "JoinLeague"
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	now := s.now()
	week := WeekKey(now)

	_, league, err := s.leagues.FindMembership(ctx, userID, week)
	switch {
	case err == nil:
		return s.standings(ctx, op, league, userID, true)
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr(op, "league", err)
	}

	league, err = s.leagues.GetOrCreate(ctx, tierOf(user), week)
	if err != nil {
		return nil, storeErr(op, "league", err)
	}
	err = s.leagues.CreateMembership(ctx, &models.LeagueMembership{
		ID:       uuid.NewString(),
		LeagueID: league.ID,
		UserID:   userID,
		JoinedAt: now,
	})
	if err != nil && !errors.Is(err, repository.ErrDuplicate) {
		return nil, storeErr(op, "league", err)
	}
	logging.Info().Str("user_id", userID).Str("tier", league.Tier).Str("week", week).Msg("[LEAGUE] joined")
	return s.standings(ctx, op, league, userID, true)
}

// Standings returns the user's current league table. A user who has not
// joined this week sees their tier's league without their own row, or an
// empty table when nobody has opened it yet. Nothing is written.
func (s *LeagueService) Standings(ctx context.Context, userID string) (*models.Standings, error) {
	const op = "LeagueStandings"
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	week := WeekKey(s.now())

	_, league, err := s.leagues.FindMembership(ctx, userID, week)
	if err == nil {
		return s.standings(ctx, op, league, userID, true)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(op, "league", err)
	}
	tier := tierOf(user)
	league, err = s.leagues.Find(ctx, tier, week)
	if errors.Is(err, repository.ErrNotFound) {
		return &models.Standings{League: tier, Week: week, Standings: []models.StandingEntry{}}, nil
	}
	if err != nil {
		return nil, storeErr(op, "league", err)
	}
	return s.standings(ctx, op, league, userID, false)
}

func (s *LeagueService) standings(ctx context.Context, op string, league *models.League, userID string, joined bool) (*models.Standings, error) {
	members, err := s.leagues.ListMembers(ctx, league.ID)
	if err != nil {
		return nil, storeErr(op, "league", err)
	}
	SortMembers(members)

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.GetByIDs(ctx, ids)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	rows := make([]models.StandingEntry, 0, StandingsLimit)
	for _, m := range members {
		name, ok := names[m.UserID]
		if !ok {
			continue
		}
		rows = append(rows, models.StandingEntry{
			Rank:          len(rows) + 1,
			UserID:        m.UserID,
			Username:      name,
			XPThisWeek:    m.XPThisWeek,
			IsCurrentUser: m.UserID == userID,
		})
		if len(rows) == StandingsLimit {
			break
		}
	}
	return &models.Standings{
		League:    league.Tier,
		Week:      league.Week,
		Joined:    joined,
		Standings: rows,
	}, nil
}

func tierOf(u *models.User) string {
	if models.TierIndex(u.League) < 0 {
		return models.DefaultLeagueTier
	}
	return u.League
}

// TierMove is one promotion or demotion decided at week end.
type TierMove struct {
	UserID string
	From   string
	To     string
}

// PlanRollover decides tier moves for one finished league. members must be
// sorted with SortMembers. The top PromoteCount members with XP promote; the
// bottom DemoteCount demote when the league has at least MinMembersForDemotion
// members. Diamond never promotes and bronze never demotes.
func PlanRollover(tier string, members []models.LeagueMembership) []TierMove {
	idx := models.TierIndex(tier)
	if idx < 0 {
		return nil
	}
	var moves []TierMove
	promoted := map[string]bool{}
	if idx < len(models.LeagueTiers)-1 {
		for i := 0; i < len(members) && i < PromoteCount; i++ {
			if members[i].XPThisWeek <= 0 {
				break
			}
			promoted[members[i].UserID] = true
			moves = append(moves, TierMove{UserID: members[i].UserID, From: tier, To: models.LeagueTiers[idx+1]})
		}
	}
	if idx > 0 && len(members) >= MinMembersForDemotion {
		for i := len(members) - DemoteCount; i < len(members); i++ {
			if promoted[members[i].UserID] {
				continue
			}
			moves = append(moves, TierMove{UserID: members[i].UserID, From: tier, To: models.LeagueTiers[idx-1]})
		}
	}
	return moves
}

// Rollover finalizes every unfinalized league from an earlier week and moves
// users between tiers. A league whose moves fail stays open for the next run.
func (s *LeagueService) Rollover(ctx context.Context) (int, error) {
	week := WeekKey(s.now())
	open, err := s.leagues.ListOpenBefore(ctx, week)
	if err != nil {
		return 0, storeErr("LeagueRollover", "league", err)
	}

	finalized := 0
	for _, league := range open {
		if err := ctx.Err(); err != nil {
			return finalized, err
		}
		if err := s.finalize(ctx, league); err != nil {
			logging.Error().Err(err).Str("league_id", league.ID).Str("week", league.Week).Msg("[LEAGUE] rollover failed")
			continue
		}
		finalized++
	}
	if finalized > 0 {
		logging.Info().Int("leagues", finalized).Str("week", week).Msg("[LEAGUE] 🏆 weekly rollover complete")
	}
	return finalized, nil
}

func (s *LeagueService) finalize(ctx context.Context, league models.League) error {
	members, err := s.leagues.ListMembers(ctx, league.ID)
	if err != nil {
		return err
	}
	SortMembers(members)
	for _, mv := range PlanRollover(league.Tier, members) {
		err := s.users.SetLeague(ctx, mv.UserID, mv.To)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		direction := "promoted"
		if models.TierIndex(mv.To) < models.TierIndex(mv.From) {
			direction = "demoted"
		}
		metrics.LeagueRollovers.WithLabelValues(direction).Inc()
		logging.Debug().Str("user_id", mv.UserID).Str("from", mv.From).Str("to", mv.To).Msg("[LEAGUE] tier change")
	}
	return s.leagues.MarkFinalized(ctx, league.ID)
}
