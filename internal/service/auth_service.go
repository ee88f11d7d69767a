package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"todo-assistant/internal/apperr"
	"todo-assistant/internal/model"
	"todo-assistant/internal/repository"
)

const (
	minPasswordLength = 8
	maxPasswordBytes  = 72
)

// AuthConfig holds the secrets and limits used to issue access tokens.
type AuthConfig struct {
	SecretKey  string
	TokenTTL   time.Duration
	BcryptCost int
}

type tokenClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService registers accounts, checks passwords and issues bearer tokens.
type AuthService struct {
	accounts *repository.AccountRepository
	cfg      AuthConfig
	now      func() time.Time
}

func NewAuthService(accounts *repository.AccountRepository, cfg AuthConfig) *AuthService {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 30 * time.Minute
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{accounts: accounts, cfg: cfg, now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*model.Account, error) {
	email = normalizeEmail(email)
	if !strings.Contains(email, "@") {
		return nil, apperr.Invalid("a valid email is required")
	}
	if len([]rune(password)) < minPasswordLength {
		return nil, apperr.Invalid("Password must be at least 8 characters long")
	}
	if len(password) > maxPasswordBytes {
		return nil, apperr.Invalid("Password must not exceed 72 bytes when encoded")
	}

	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("User with this email already exists")
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &model.Account{Email: &email, PasswordHash: string(hash), IsActive: true}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	log.Printf("[info] account registered id=%s", account.ID)
	return account, nil
}

// Login checks the password and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil, apperr.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if account.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, apperr.ErrInvalidCredentials
	}

	now := s.now()
	claims := tokenClaims{
		UserID: account.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   *account.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, account, nil
}

// Authenticate resolves a bearer token to its active account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.Account, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad user_id claim", apperr.ErrInvalidToken)
	}
	account, err := s.accounts.FindByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("%w: unknown account", apperr.ErrInvalidToken)
	}
	if err != nil {
		return nil, err
	}
	if account.Email == nil || *account.Email != claims.Subject {
		return nil, fmt.Errorf("%w: subject mismatch", apperr.ErrInvalidToken)
	}
	if !account.IsActive {
		return nil, fmt.Errorf("%w: inactive account", apperr.ErrInvalidToken)
	}
	return account, nil
}

// LinkTelegram returns the account bound to a Telegram user, creating it on first contact.
func (s *AuthService) LinkTelegram(ctx context.Context, telegramID int64, firstName, username string) (*model.Account, error) {
	return s.accounts.UpsertFromTelegram(ctx, telegramID, firstName, username)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
