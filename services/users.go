package services

import (
	"context"
	"errors"
	"strings"

	"lesson-league-system/logging"
	"lesson-league-system/models"
	"lesson-league-system/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PreferencesRequest carries onboarding answers; nil fields are left alone.
type PreferencesRequest struct {
	Reason              *string `json:"reason" validate:"omitempty,max=200"`
	DailyGoal           *int64  `json:"daily_goal" validate:"omitempty,min=1,max=1000"`
	ExperienceLevel     *string `json:"experience_level" validate:"omitempty,max=50"`
	OnboardingCompleted *bool   `json:"onboarding_completed"`
}

type AuthResponse struct {
	Message string       `json:"message"`
	Token   string       `json:"token"`
	User    *models.User `json:"user"`
}

// Profile is the signed-in user's full state.
type Profile struct {
	*models.User
	DailyGoalStatus *DailyGoalStatus `json:"daily_goal_status"`
}

// AccountService handles registration, login and the profile.
type AccountService struct {
	users   repository.UserRepository
	tokens  *TokenManager
	economy *EconomyService
	now     Clock
}

func NewAccountService(store *repository.Store, tokens *TokenManager, economy *EconomyService, now Clock) *AccountService {
	return &AccountService{users: store.Users, tokens: tokens, economy: economy, now: now}
}

// Register creates an account with the starting economy and returns a token.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	const op = "Register"
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, invalid(op, "Email or username already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(op, "user", err)
	}
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, invalid(op, "Email or username already exists")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(op, "user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		ID:                    uuid.NewString(),
		Username:              req.Username,
		Email:                 req.Email,
		PasswordHash:          string(hash),
		XP:                    0,
		Level:                 models.DefaultLevel,
		Gems:                  models.DefaultGems,
		Hearts:                models.DefaultHearts,
		MaxHearts:             models.DefaultMaxHearts,
		LastHeartRefill:       &now,
		DailyGoal:             models.DefaultDailyGoal,
		League:                models.DefaultLeagueTier,
		CurrentSkillTreeLevel: 1,
		Friends:               []string{},
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalid(op, "Email or username already exists")
		}
		return nil, storeErr(op, "user", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("[ACCOUNT] registered")
	return &AuthResponse{Message: "User registered successfully", Token: token, User: user}, nil
}

// Login verifies credentials, advances the daily streak and returns a token.
func (s *AccountService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	const op = "Login"
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, authError(op, "Invalid email or password")
		}
		return nil, storeErr(op, "user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return nil, authError(op, "Invalid email or password")
	}

	if _, err := s.economy.touchStreak(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{Message: "Login successful", Token: token, User: user}, nil
}

// Profile returns the user with hearts regenerated up to now.
func (s *AccountService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeErr("Profile", "user", err)
	}
	if err := s.economy.applyRefill(ctx, user); err != nil {
		return nil, err
	}
	return &Profile{User: user, DailyGoalStatus: dailyGoalFor(user, s.now())}, nil
}

func (s *AccountService) UpdatePreferences(ctx context.Context, userID string, req PreferencesRequest) (*Profile, error) {
	const op = "UpdatePreferences"
	if err := validateStruct(op, req); err != nil {
		return nil, err
	}
	err := s.users.UpdatePreferences(ctx, userID, repository.Preferences{
		Reason:              req.Reason,
		DailyGoal:           req.DailyGoal,
		ExperienceLevel:     req.ExperienceLevel,
		OnboardingCompleted: req.OnboardingCompleted,
	})
	if err != nil {
		return nil, storeErr(op, "user", err)
	}
	return s.Profile(ctx, userID)
}
