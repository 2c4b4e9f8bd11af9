package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"supplies-pos/internal/database/models"
	sysutils "supplies-pos/internal/utils"
)

const (
	REVOKED_TOKEN_PREFIX = "auth:revoked:"
	MIN_PASSWORD_LENGTH  = 6
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("not signed in")
	// ErrSessionUnavailable means the session could not be resolved right now;
	// callers must not treat it as signed-out.
	ErrSessionUnavailable = errors.New("session is still resolving")
)

type Session struct {
	Token     string
	TokenID   string
	ExpiresAt time.Time
	User      *models.Profile
	Role      Role
}

type UserHandler struct {
	db     *gorm.DB
	redis  *redis.Client
	tokens *sysutils.TokenIssuer
}

func NewUserHandler(db *gorm.DB, redisClient *redis.Client, tokens *sysutils.TokenIssuer) *UserHandler {
	return &UserHandler{
		db:     db,
		redis:  redisClient,
		tokens: tokens,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateProfile registers a user with a role. The POS has no self sign-up, so
// this is only reached from provisioning.
func (s *UserHandler) CreateProfile(ctx context.Context, email, password string, role Role) (*models.Profile, error) {
	email = normalizeEmail(email)
	if email == "" || len(password) < MIN_PASSWORD_LENGTH {
		return nil, fmt.Errorf("%w: email and a password of at least %d characters are required", ErrValidation, MIN_PASSWORD_LENGTH)
	}
	if role == RoleNone {
		return nil, fmt.Errorf("%w: role must be admin or cashier", ErrValidation)
	}

	var existing models.Profile
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check existing profile: %w", err)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	profile := models.Profile{
		Email:        email,
		PasswordHash: string(pwHash),
		Role:         string(role),
	}
	if err := s.db.WithContext(ctx).Create(&profile).Error; err != nil {
		return nil, fmt.Errorf("create profile: %w", err)
	}
	return &profile, nil
}

func (s *UserHandler) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, claims, err := s.tokens.GenerateToken(profile.ID, profile.Email)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(&profile).Update("last_login", now).Error; err != nil {
		return nil, fmt.Errorf("record last login: %w", err)
	}

	return &Session{
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      &profile,
		Role:      ParseRole(profile.Role),
	}, nil
}

// ResolveSession turns a bearer token into the current user and role. The role
// always comes from the stored profile, so demoting a user takes effect on the
// next request.
func (s *UserHandler) ResolveSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.tokens.ParseToken(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	revoked, err := s.redis.Exists(ctx, REVOKED_TOKEN_PREFIX+claims.ID).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: revocation check: %v", ErrSessionUnavailable, err)
	}
	if revoked > 0 {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthenticated)
	}

	var profile models.Profile
	if err := s.db.WithContext(ctx).Where("id = ?", claims.UserID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: profile missing", ErrUnauthenticated)
		}
		return nil, fmt.Errorf("%w: load profile: %v", ErrSessionUnavailable, err)
	}

	return &Session{
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		User:      &profile,
		Role:      ParseRole(profile.Role),
	}, nil
}

// SignOut deny-lists the token until it would have expired anyway.
func (s *UserHandler) SignOut(ctx context.Context, session *Session) error {
	if session == nil || session.TokenID == "" {
		return nil
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.redis.Set(ctx, REVOKED_TOKEN_PREFIX+session.TokenID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// UpdatePassword checks the confirmation before touching the store, then
// signs the session out so the user logs in again with the new password.
func (s *UserHandler) UpdatePassword(ctx context.Context, session *Session, password, confirm string) error {
	if session == nil || session.User == nil {
		return ErrUnauthenticated
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < MIN_PASSWORD_LENGTH {
		return fmt.Errorf("%w: password must be at least %d characters", ErrValidation, MIN_PASSWORD_LENGTH)
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	res := s.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", session.User.ID).
		Update("password_hash", string(pwHash))
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUnauthenticated
	}

	return s.SignOut(ctx, session)
}
