package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"

	"courseos-backend/internal/logger"
	"courseos-backend/internal/middleware"
	"courseos-backend/internal/models"
)

const (
	refreshTTL      = 7 * 24 * time.Hour
	bcryptCost      = 12
	accessExpiresIn = 900
)

type userStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByGoogleID(ctx context.Context, googleID string) (*models.User, error)
	LinkGoogle(ctx context.Context, userID uuid.UUID, googleID string) error
	UpdateLastLogin(ctx context.Context, userID uuid.UUID) error
}

// RefreshTokens maps opaque refresh tokens to user ids.
type RefreshTokens interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Lookup(ctx context.Context, token string) (uuid.UUID, error)
	Revoke(ctx context.Context, token string) error
}

// GoogleVerifier checks a Google ID token against the expected audience.
type GoogleVerifier func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

type AuthService struct {
	users          userStore
	refresh        RefreshTokens
	jwt            *middleware.JWTAuth
	googleClientID string
	verifyGoogle   GoogleVerifier
	log            *logger.Logger
}

func NewAuthService(users userStore, refresh RefreshTokens, jwt *middleware.JWTAuth, googleClientID string, log *logger.Logger) *AuthService {
	return &AuthService{
		users:          users,
		refresh:        refresh,
		jwt:            jwt,
		googleClientID: googleClientID,
		verifyGoogle:   idtoken.Validate,
		log:            log.With("component", "auth"),
	}
}

// WithGoogleVerifier replaces the ID token check, for tests.
func (s *AuthService) WithGoogleVerifier(v GoogleVerifier) *AuthService {
	s.verifyGoogle = v
	return s
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func (s *AuthService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthTokens, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	fieldErrors := make(map[string]string)

	if strings.TrimSpace(req.FullName) == "" {
		fieldErrors["full_name"] = "Full name is required"
	}
	if !emailRegex.MatchString(req.Email) {
		fieldErrors["email"] = "Invalid email format"
	}
	if err := validatePassword(req.Password); err != nil {
		fieldErrors["password"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return nil, &ValidationError{Fields: fieldErrors}
	}

	_, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil {
		return nil, &ConflictError{Message: "Email already in use"}
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user signed up", "user_id", user.ID)
	return s.issueTokens(ctx, user)
}

func (s *AuthService) SignIn(ctx context.Context, req models.SignInRequest) (*models.AuthTokens, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &AuthError{Message: "Invalid email or password"}
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, &AuthError{Message: "Account is deactivated"}
	}
	if user.PasswordHash == "" {
		return nil, &AuthError{Message: "This account uses Google sign-in"}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, &AuthError{Message: "Invalid email or password"}
	}

	s.touchLogin(ctx, user.ID)
	return s.issueTokens(ctx, user)
}

// Refresh rotates a refresh token: the presented token is revoked and a new
// pair is issued.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	if refreshToken == "" {
		return nil, &AuthError{Message: "Invalid or expired refresh token. Please sign in again."}
	}
	userID, err := s.refresh.Lookup(ctx, refreshToken)
	if err != nil {
		return nil, &AuthError{Message: "Invalid or expired refresh token. Please sign in again."}
	}

	if err := s.refresh.Revoke(ctx, refreshToken); err != nil {
		s.log.Warn("failed to revoke refresh token", "user_id", userID, "error", err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, &AuthError{Message: "Account is deactivated"}
	}

	return s.issueTokens(ctx, user)
}

func (s *AuthService) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.refresh.Revoke(ctx, refreshToken)
}

// Session describes the caller's current session. The user record is best
// effort; the token alone is enough to answer.
func (s *AuthService) Session(ctx context.Context, session middleware.Session) *models.SessionResponse {
	resp := &models.SessionResponse{UserID: session.UserID, Email: session.Email}
	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		s.log.Warn("session user lookup failed", "user_id", session.UserID, "error", err)
		return resp
	}
	resp.User = user
	return resp
}

// GoogleSignIn verifies a Google ID token, then signs in the matching user,
// links Google to an existing email account, or creates a new account.
func (s *AuthService) GoogleSignIn(ctx context.Context, idToken string) (*models.AuthTokens, error) {
	if s.googleClientID == "" {
		return nil, &AuthError{Message: "Google sign-in is not configured"}
	}
	if idToken == "" {
		return nil, &ValidationError{Fields: map[string]string{"id_token": "Google token is required"}}
	}

	payload, err := s.verifyGoogle(ctx, idToken, s.googleClientID)
	if err != nil {
		s.log.Warn("google token rejected", "error", err)
		return nil, &AuthError{Message: "Invalid Google token"}
	}

	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	picture, _ := payload.Claims["picture"].(string)
	email = strings.ToLower(email)
	if email == "" || payload.Subject == "" {
		return nil, &AuthError{Message: "Google account is missing an email address"}
	}

	user, err := s.users.GetByGoogleID(ctx, payload.Subject)
	if err == nil {
		if !user.IsActive {
			return nil, &AuthError{Message: "Account is deactivated"}
		}
		s.touchLogin(ctx, user.ID)
		return s.issueTokens(ctx, user)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user, err = s.users.GetByEmail(ctx, email)
	if err == nil {
		if !user.IsActive {
			return nil, &AuthError{Message: "Account is deactivated"}
		}
		if err := s.users.LinkGoogle(ctx, user.ID, payload.Subject); err != nil {
			return nil, fmt.Errorf("failed to link google account: %w", err)
		}
		s.touchLogin(ctx, user.ID)
		return s.issueTokens(ctx, user)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	googleID := payload.Subject
	newUser := &models.User{
		Email:        email,
		FullName:     name,
		AuthProvider: "google",
		GoogleID:     &googleID,
	}
	if picture != "" {
		newUser.AvatarURL = &picture
	}
	if err := s.users.Create(ctx, newUser); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info("user signed up with google", "user_id", newUser.ID)
	return s.issueTokens(ctx, newUser)
}

func (s *AuthService) touchLogin(ctx context.Context, userID uuid.UUID) {
	if err := s.users.UpdateLastLogin(ctx, userID); err != nil {
		s.log.Warn("failed to record login", "user_id", userID, "error", err)
	}
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*models.AuthTokens, error) {
	accessToken, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateToken(64)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Save(ctx, refreshToken, user.ID, refreshTTL); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    accessExpiresIn,
		User:         user,
	}, nil
}

func generateToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func validatePassword(pw string) error {
	if len(pw) < 8 {
		return fmt.Errorf("Password must be at least 8 characters")
	}
	for _, ch := range pw {
		if unicode.IsDigit(ch) {
			return nil
		}
	}
	return fmt.Errorf("Password must contain at least one number")
}

// RedisRefreshTokens stores refresh tokens as "refresh:<token>" keys.
type RedisRefreshTokens struct {
	redis *redis.Client
}

func NewRedisRefreshTokens(client *redis.Client) *RedisRefreshTokens {
	return &RedisRefreshTokens{redis: client}
}

func (r *RedisRefreshTokens) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	return r.redis.Set(ctx, "refresh:"+token, userID.String(), ttl).Err()
}

func (r *RedisRefreshTokens) Lookup(ctx context.Context, token string) (uuid.UUID, error) {
	raw, err := r.redis.Get(ctx, "refresh:"+token).Result()
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(raw)
}

func (r *RedisRefreshTokens) Revoke(ctx context.Context, token string) error {
	return r.redis.Del(ctx, "refresh:"+token).Err()
}
