package services

import (
	"context"
	"errors"
	"slices"
	"strings"

	"lesson-league-system/logging"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/google/uuid"
)

const (
	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

type AddFriendRequest struct {
	// Username or user id of the friend.
	Friend string `json:"friend" validate:"required,max=64"`
}

// SocialService owns the global leaderboard and friend lists.
type SocialService struct {
	users repository.UserRepository
}

func NewSocialService(store *repository.Store) *SocialService {
	return &SocialService{users: store.Users}
}

// ClampLimit applies the leaderboard default and maximum.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		return MaxLeaderboardLimit
	}
	return limit
}

// RankUsers assigns ranks 1..N in the given order.
func RankUsers(users []models.User) []models.LeaderboardEntry {
	out := make([]models.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		out = append(out, models.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   u.ID,
			Username: u.Username,
			XP:       u.XP,
			Level:    u.Level,
			Streak:   u.Streak,
		})
	}
	return out
}

// Leaderboard returns the top users by XP.
func (s *SocialService) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	users, err := s.users.TopByXP(ctx, ClampLimit(limit))
	if err != nil {
		return nil, storeErr("Leaderboard", "user", err)
	}
	return RankUsers(users), nil
}

// Friends lists the caller's friends. Ids that no longer resolve are skipped.
func (s *SocialService) Friends(ctx context.Context, userID string) ([]models.PublicUser, error) {
	const op = "Friends"
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	if len(user.Friends) == 0 {
		return []models.PublicUser{}, nil
	}
	friends, err := s.users.GetByIDs(ctx, user.Friends)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	out := make([]models.PublicUser, 0, len(friends))
	for _, f := range friends {
		out = append(out, f.Public())
	}
	return out, nil
}

func (s *SocialService) resolveFriend(ctx context.Context, ref string) (*models.User, error) {
	if _, err := uuid.Parse(ref); err == nil {
		u, err := s.users.GetByID(ctx, ref)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return u, err
		}
	}
	return s.users.GetByUsername(ctx, ref)
}

// AddFriend links both users. When the second write fails the first is reverted.
func (s *SocialService) AddFriend(ctx context.Context, userID string, req AddFriendRequest) (*models.PublicUser, error) {
	const op = "AddFriend"
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	friend, err := s.resolveFriend(ctx, strings.TrimSpace(req.Friend))
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	if friend.ID == user.ID {
		return nil, invalid(op, "cannot add yourself as a friend")
	}
	if user.HasFriend(friend.ID) {
		return nil, invalid(op, "already friends")
	}

	mine := append(slices.Clone([]string(user.Friends)), friend.ID)
	if err := s.users.SetFriends(ctx, user.ID, mine); err != nil {
		return nil, storeErr(op, "user", err)
	}
	if !friend.HasFriend(user.ID) {
		theirs := append(slices.Clone([]string(friend.Friends)), user.ID)
		if err := s.users.SetFriends(ctx, friend.ID, theirs); err != nil {
			s.revertFriends(ctx, user.ID, user.Friends)
			return nil, storeErr(op, "user", err)
		}
	}
	logging.Info().Str("user_id", user.ID).Str("friend_id", friend.ID).Msg("[SOCIAL] friend added")
	pub := friend.Public()
	return &pub, nil
}

// RemoveFriend unlinks both users. Removing a non-friend is a not-found error.
func (s *SocialService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	const op = "RemoveFriend"
	if err := checkID(op, "friend", friendID); err != nil {
		return err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return storeErr(op, "user", err)
	}
	if !user.HasFriend(friendID) {
		return notFound(op, "friend not found")
	}

	if err := s.users.SetFriends(ctx, user.ID, without(user.Friends, friendID)); err != nil {
		return storeErr(op, "user", err)
	}
	friend, err := s.users.GetByID(ctx, friendID)
	if errors.Is(err, repository.ErrNotFound) {
		// dangling id, nothing on the other side
		return nil
	}
	if err != nil {
		s.revertFriends(ctx, user.ID, user.Friends)
		return storeErr(op, "user", err)
	}
	if err := s.users.SetFriends(ctx, friend.ID, without(friend.Friends, user.ID)); err != nil {
		s.revertFriends(ctx, user.ID, user.Friends)
		return storeErr(op, "user", err)
	}
	logging.Info().Str("user_id", user.ID).Str("friend_id", friendID).Msg("[SOCIAL] friend removed")
	return nil
}

func (s *SocialService) revertFriends(ctx context.Context, userID string, prev []string) {
	if err := s.users.SetFriends(ctx, userID, prev); err != nil {
		logging.Error().Err(err).Str("user_id", userID).Msg("[SOCIAL] friend list rollback failed")
	}
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
