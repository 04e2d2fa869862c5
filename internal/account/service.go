// Package account implements registration, login, password reset, account
// deletion and the daily token claim.
package account

import (
	"context"
	"errors"
	"log/slog"
	"serwer-kart/internal/apperrors"
	"serwer-kart/internal/auth"
	"serwer-kart/internal/database"
	"serwer-kart/internal/models"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	CreateUser(ctx context.Context, arg database.CreateUserParams) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetResetToken(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) error
	ResetPassword(ctx context.Context, token, newPasswordHash string, now time.Time) (bool, error)
	ClaimTokens(ctx context.Context, userID uuid.UUID, amount int, now time.Time, cooldown time.Duration) (*models.TokenBalance, error)
	DeleteCardsByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
	DeleteUser(ctx context.Context, id uuid.UUID) (bool, error)
}

// Notifier delivers password reset tokens out of band.
type Notifier interface {
	SendPasswordReset(ctx context.Context, toEmail, token string, validFor time.Duration) error
}

type Config struct {
	JWTSecret     string
	TokenTTL      time.Duration
	WelcomeEmail  string
	ResetTTL      time.Duration
	ClaimGrant    int
	ClaimCooldown time.Duration
}

type Service struct {
	store    Store
	notifier Notifier
	cfg      Config
	now      func() time.Time
}

type Option func(*Service)

// WithNotifier enables out-of-band delivery of reset tokens.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(store Store, cfg Config, opts ...Option) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	if cfg.ClaimGrant <= 0 {
		cfg.ClaimGrant = auth.DefaultClaimGrant
	}
	if cfg.ClaimCooldown <= 0 {
		cfg.ClaimCooldown = auth.DefaultClaimCooldown
	}
	cfg.WelcomeEmail = auth.NormalizeEmail(cfg.WelcomeEmail)

	s := &Service{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterResult struct {
	User             *models.User
	ShowWelcomeModal bool
}

func (s *Service) isWelcomeEmail(email string) bool {
	return s.cfg.WelcomeEmail != "" && email == s.cfg.WelcomeEmail
}

func validateCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperrors.Validation("email and password are required")
	}
	if err := auth.ValidateEmail(email); err != nil {
		return apperrors.Validation(err.Error())
	}
	if err := auth.ValidatePassword(password); err != nil {
		return apperrors.Validation(err.Error())
	}
	return nil
}

// Register creates an account. The welcome address succeeds on every call and
// asks the client to show the welcome flow.
func (s *Service) Register(ctx context.Context, email, password string) (*RegisterResult, error) {
	email = auth.NormalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	welcome := s.isWelcomeEmail(email)
	if welcome {
		existing, err := s.store.GetUserByEmail(ctx, email)
		if err != nil {
			return nil, apperrors.Internal("failed to register user").WithCause(err)
		}
		if existing != nil {
			return &RegisterResult{User: existing, ShowWelcomeModal: true}, nil
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.Internal("failed to register user").WithCause(err)
	}

	user, err := s.store.CreateUser(ctx, database.CreateUserParams{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			if welcome {
				return &RegisterResult{ShowWelcomeModal: true}, nil
			}
			return nil, apperrors.Validation("email already registered")
		}
		return nil, apperrors.Internal("failed to register user").WithCause(err)
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID)
	return &RegisterResult{User: user, ShowWelcomeModal: welcome}, nil
}

// Login returns a signed bearer token. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", apperrors.Validation("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Internal("failed to log in").WithCause(err)
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return "", apperrors.InvalidCredentials()
	}

	token, err := auth.GenerateJWT(user, s.cfg.JWTSecret, s.cfg.TokenTTL)
	if err != nil {
		return "", apperrors.Internal("failed to generate token").WithCause(err)
	}
	return token, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", apperrors.Unauthorized("no token")
	}
	return strings.TrimSpace(parts[1]), nil
}

func (s *Service) VerifyToken(tokenString string) (*auth.AppClaims, error) {
	claims, err := auth.VerifyJWT(tokenString, s.cfg.JWTSecret)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid or expired token").WithCause(err)
	}
	return claims, nil
}

type ResetResult struct {
	// Token is empty when it was delivered out of band.
	Token     string
	ExpiresAt time.Time
	Delivered bool
}

func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetResult, error) {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return nil, apperrors.Validation("email is required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("failed to request password reset").WithCause(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	token, err := auth.GenerateResetToken()
	if err != nil {
		return nil, apperrors.Internal("failed to generate reset token").WithCause(err)
	}
	expiresAt := s.now().Add(s.cfg.ResetTTL)

	if err := s.store.SetResetToken(ctx, user.ID, token, expiresAt); err != nil {
		return nil, apperrors.Internal("failed to store reset token").WithCause(err)
	}

	if s.notifier == nil {
		slog.WarnContext(ctx, "no email delivery configured, returning reset token to caller", "user_id", user.ID)
		return &ResetResult{Token: token, ExpiresAt: expiresAt}, nil
	}

	if err := s.notifier.SendPasswordReset(ctx, user.Email, token, s.cfg.ResetTTL); err != nil {
		return nil, apperrors.Internal("failed to send reset email").WithCause(err)
	}
	return &ResetResult{ExpiresAt: expiresAt, Delivered: true}, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return apperrors.Validation("reset token is required")
	}
	if err := auth.ValidatePassword(newPassword); err != nil {
		return apperrors.Validation(err.Error())
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return apperrors.Internal("failed to reset password").WithCause(err)
	}

	ok, err := s.store.ResetPassword(ctx, token, hash, s.now())
	if err != nil {
		return apperrors.Internal("failed to reset password").WithCause(err)
	}
	if !ok {
		return apperrors.Validation("invalid or expired reset token")
	}
	return nil
}

// DeleteAccount removes the user's cards and then the user. If the second
// step fails the cards stay deleted.
func (s *Service) DeleteAccount(ctx context.Context, email, password string) (int64, error) {
	email = auth.NormalizeEmail(email)
	if email == "" || password == "" {
		return 0, apperrors.Validation("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return 0, apperrors.Internal("failed to delete account").WithCause(err)
	}
	if user == nil {
		return 0, apperrors.NotFound("user")
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return 0, apperrors.InvalidCredentials()
	}

	cards, err := s.store.DeleteCardsByOwner(ctx, user.ID)
	if err != nil {
		return 0, apperrors.Internal("failed to delete cards").WithCause(err)
	}

	if _, err := s.store.DeleteUser(ctx, user.ID); err != nil {
		slog.ErrorContext(ctx, "cards deleted but user remains", "user_id", user.ID, "cards", cards, "error", err)
		return cards, apperrors.Internal("failed to delete account").WithCause(err)
	}

	slog.InfoContext(ctx, "account deleted", "user_id", user.ID, "cards", cards)
	return cards, nil
}

func (s *Service) ClaimDailyTokens(ctx context.Context, userID uuid.UUID) (*models.TokenBalance, error) {
	now := s.now()

	balance, err := s.store.ClaimTokens(ctx, userID, s.cfg.ClaimGrant, now, s.cfg.ClaimCooldown)
	if err != nil {
		return nil, apperrors.Internal("failed to claim tokens").WithCause(err)
	}
	if balance != nil {
		return balance, nil
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to claim tokens").WithCause(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}

	hours, eligible := auth.ClaimHoursRemaining(user.LastTokenClaim, now, s.cfg.ClaimCooldown)
	if eligible {
		// the conditional update matched nothing although the stored claim time allows it
		slog.WarnContext(ctx, "claim not granted although cooldown elapsed",
			"user_id", userID, "last_claim", user.LastTokenClaim, "cooldown", s.cfg.ClaimCooldown)
	}
	return nil, apperrors.Cooldown(max(hours, 1))
}

func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (*models.TokenBalance, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.TokenBalance{Tokens: user.Tokens, LastTokenClaim: user.LastTokenClaim}, nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("failed to load user").WithCause(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("user")
	}
	return user, nil
}

func (s *Service) Grant() int {
	return s.cfg.ClaimGrant
}
