package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/X-spec7/book-review-backend/internal/config"
	"github.com/X-spec7/book-review-backend/internal/ids"
	"github.com/X-spec7/book-review-backend/internal/models"
	"github.com/X-spec7/book-review-backend/internal/repository"
	"github.com/X-spec7/book-review-backend/internal/security"
)

var (
	ErrEmailInUse = errors.New("email already in use")

	// ErrInvalidCredentials covers both unknown email and wrong password
	// so login failures cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvalidRole         = errors.New("invalid role")
	ErrNoRefreshToken      = errors.New("no refresh token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrUserNotFound surfaces a matched refresh token whose owner row is
	// gone. A consistency violation, not a normal user error.
	ErrUserNotFound = errors.New("user not found")

	ErrNotFound = errors.New("not found")
)

// UserStore is the slice of user persistence the authority needs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
}

// TokenStore persists refresh-token records. Rotate must revoke the
// predecessor and create the successor atomically; when two rotations
// race on one record, exactly one may succeed and the loser gets
// repository.ErrTokenRevoked.
type TokenStore interface {
	Create(ctx context.Context, token models.RefreshToken) error
	FindActive(ctx context.Context, now time.Time) ([]models.RefreshToken, error)
	Revoke(ctx context.Context, id string) error
	Rotate(ctx context.Context, predecessorID string, successor models.RefreshToken) error
}

type AuthService struct {
	users  UserStore
	tokens TokenStore
	cfg    *config.AppConfig
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens TokenStore, cfg *config.AppConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      models.UserRole
}

type RegisterResult struct {
	ID    string
	Email string
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (RegisterResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))
	if !models.ValidRole(input.Role) {
		return RegisterResult{}, ErrInvalidRole
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return RegisterResult{}, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return RegisterResult{}, err
	}

	hashedPassword, err := security.HashSecret(input.Password)
	if err != nil {
		return RegisterResult{}, err
	}

	user := models.User{
		ID:             ids.New(),
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          input.Email,
		HashedPassword: hashedPassword,
		Role:           input.Role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return RegisterResult{}, ErrEmailInUse
		}
		return RegisterResult{}, err
	}

	return RegisterResult{ID: user.ID, Email: user.Email}, nil
}

type LoginInput struct {
	Email    string
	Password string
}

// AuthResult carries the signed access token plus the plaintext refresh
// secret. The secret exists only in this value; the store holds its hash.
// Transport (cookie vs body) is the handler's decision.
type AuthResult struct {
	AccessToken   string
	RefreshSecret string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	input.Email = strings.TrimSpace(strings.ToLower(input.Email))

	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	if !security.VerifySecret(input.Password, user.HashedPassword) {
		return AuthResult{}, ErrInvalidCredentials
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		string(user.Role),
		s.cfg.Security.AccessTokenTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	secret, token, err := s.mintRefreshToken(user.ID)
	if err != nil {
		return AuthResult{}, err
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		return AuthResult{}, err
	}

	return AuthResult{AccessToken: accessToken, RefreshSecret: secret}, nil
}

// Refresh exchanges a presented refresh secret for a fresh access token
// and a replacement secret. Rotation is one-shot: the presented secret
// is dead after this call whether or not the response is delivered, so a
// lost response forces re-login rather than leaving the old secret live.
func (s *AuthService) Refresh(ctx context.Context, presented string) (AuthResult, error) {
	if presented == "" {
		return AuthResult{}, ErrNoRefreshToken
	}

	matched, err := s.matchActiveToken(ctx, presented)
	if err != nil {
		return AuthResult{}, err
	}

	secret, successor, err := s.mintRefreshToken(matched.UserID)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.tokens.Rotate(ctx, matched.ID, successor); err != nil {
		if errors.Is(err, repository.ErrTokenRevoked) || errors.Is(err, repository.ErrTokenNotFound) {
			// Lost a concurrent rotation on the same record.
			return AuthResult{}, ErrInvalidRefreshToken
		}
		return AuthResult{}, err
	}

	// Re-fetch the owner so a role change since login takes effect.
	user, err := s.users.GetByID(ctx, matched.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.log.Error().
				Str("user_id", matched.UserID).
				Str("token_id", matched.ID).
				Msg("refresh token owner vanished")
			return AuthResult{}, ErrUserNotFound
		}
		return AuthResult{}, err
	}

	accessToken, err := security.GenerateAccessToken(
		s.cfg.Security.JWTSecret,
		user.ID,
		string(user.Role),
		s.cfg.Security.AccessTokenTTL,
	)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{AccessToken: accessToken, RefreshSecret: secret}, nil
}

// Logout revokes the record matching the presented secret. It is
// idempotent and deliberately quiet: a missing or unknown secret is
// still success, so the endpoint never reveals whether a token was live.
func (s *AuthService) Logout(ctx context.Context, presented string) error {
	if presented == "" {
		return nil
	}

	matched, err := s.matchActiveToken(ctx, presented)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) {
			return nil
		}
		return err
	}

	if err := s.tokens.Revoke(ctx, matched.ID); err != nil {
		if errors.Is(err, repository.ErrTokenRevoked) || errors.Is(err, repository.ErrTokenNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// AdminRevoke revokes one refresh token by record id, the explicit
// administrative kill switch for a leaked credential. Revocation is
// monotonic, so hitting an already-revoked record is still success.
func (s *AuthService) AdminRevoke(ctx context.Context, tokenID string) error {
	if err := s.tokens.Revoke(ctx, tokenID); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			return ErrNotFound
		}
		if errors.Is(err, repository.ErrTokenRevoked) {
			return nil
		}
		return err
	}
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

// matchActiveToken scans the active set hash-verifying the presented
// secret against each candidate. O(n) over live tokens system-wide:
// hashes are salted, so there is no index by secret. The active set is
// bounded by roughly one token per signed-in user.
func (s *AuthService) matchActiveToken(ctx context.Context, presented string) (models.RefreshToken, error) {
	now := s.now()
	candidates, err := s.tokens.FindActive(ctx, now)
	if err != nil {
		return models.RefreshToken{}, err
	}

	for _, candidate := range candidates {
		if !candidate.Active(now) {
			continue
		}
		if security.VerifySecret(presented, candidate.TokenHash) {
			return candidate, nil
		}
	}
	return models.RefreshToken{}, ErrInvalidRefreshToken
}

func (s *AuthService) mintRefreshToken(userID string) (string, models.RefreshToken, error) {
	secret, err := security.GenerateOpaqueSecret(s.cfg.Security.RefreshSecretBytes)
	if err != nil {
		return "", models.RefreshToken{}, err
	}

	hash, err := security.HashSecret(secret)
	if err != nil {
		return "", models.RefreshToken{}, err
	}

	token := models.RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		TokenHash: hash,
		ExpiresAt: s.now().Add(s.cfg.Security.RefreshTokenTTL()),
	}
	return secret, token, nil
}
