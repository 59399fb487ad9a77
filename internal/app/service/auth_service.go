package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"cpdash/internal/common"
	"cpdash/internal/common/security"
	"cpdash/internal/domain/model"
	"cpdash/internal/domain/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const minPasswordLen = 8

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

type profileLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.PlatformProfile, error)
}

type AuthService struct {
	userRepo repository.UserRepository
	profiles profileLister
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, profiles profileLister, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, profiles: profiles, log: log.Named("auth"), now: time.Now}
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	LoginField string `json:"login_field"` // username or email
	Password   string `json:"password"`
}

type AuthResponse struct {
	User      *model.User `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (r *SignupRequest) validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Username == "" || r.Email == "" || r.Password == "" {
		return common.Errorf("username, email and password are required: %w", common.ErrBadRequest)
	}
	if !usernamePattern.MatchString(r.Username) {
		return common.Errorf("username must be 3-32 letters, digits or _.-: %w", common.ErrValidation)
	}
	if _, err := mail.ParseAddress(r.Email); err != nil {
		return common.Errorf("invalid email address: %w", common.ErrValidation)
	}
	if len(r.Password) < minPasswordLen {
		return common.Errorf("password must be at least %d characters: %w", minPasswordLen, common.ErrValidation)
	}
	return nil
}

func (s *AuthService) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, common.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:             uuid.NewString(),
		Username:       req.Username,
		Email:          req.Email,
		HashedPassword: hashedPassword,
		Role:           model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, common.Errorf("failed to create user: %w", err)
	}
	s.log.Info("user signed up", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	field := strings.TrimSpace(req.LoginField)
	if field == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.userRepo.FindByLogin(ctx, field)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, common.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, common.ErrUnauthorized
	}

	now := s.now().UTC()
	if err := s.userRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("last login not recorded", zap.String("user_id", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}
	return s.issue(user)
}

// Me returns the caller's account with every linked platform handle.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.Account, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profiles, err := s.profiles.ListByUser(ctx, userID)
	if err != nil {
		return nil, common.Errorf("failed to load profiles: %w", err)
	}
	user.HashedPassword = ""
	return &model.Account{User: user, Profiles: profiles}, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, expiresAt, err := security.IssueToken(security.Identity{UserID: user.ID, Username: user.Username, Role: user.Role})
	if err != nil {
		return nil, common.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token, ExpiresAt: expiresAt}, nil
}
