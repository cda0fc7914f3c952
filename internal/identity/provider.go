package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"code-bounty/internal/log"
	"code-bounty/internal/models"
	"code-bounty/internal/store"
)

// Principal is the signed-in identity.
type Principal struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// Session is a principal together with the token proving it.
type Session struct {
	Principal
	Token     string
	TokenID   string
	ExpiresAt time.Time
}

// Backend is the authentication service an Auth binding talks to.
type Backend interface {
	CreateUser(ctx context.Context, email, password string) (*Session, error)
	SignIn(ctx context.Context, email, password string) (*Session, error)
	UpdateDisplayName(ctx context.Context, uid, displayName string) error
	Verify(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

type ProviderConfig struct {
	MinPasswordLength int
}

// Provider implements Backend on top of a credential store.
type Provider struct {
	credentials       store.Credentials
	hasher            *PasswordHasher
	tokens            *TokenIssuer
	limiter           AttemptLimiter
	revoker           Revoker
	validate          *validator.Validate
	minPasswordLength int
}

func NewProvider(
	credentials store.Credentials,
	hasher *PasswordHasher,
	tokens *TokenIssuer,
	limiter AttemptLimiter,
	revoker Revoker,
	cfg ProviderConfig,
) *Provider {
	minLength := cfg.MinPasswordLength
	if minLength < 1 {
		minLength = 6
	}
	return &Provider{
		credentials:       credentials,
		hasher:            hasher,
		tokens:            tokens,
		limiter:           limiter,
		revoker:           revoker,
		validate:          validator.New(),
		minPasswordLength: minLength,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (p *Provider) checkEmail(email string) error {
	if err := p.validate.Var(email, "required,email"); err != nil {
		return ErrInvalidEmail
	}
	return nil
}

func (p *Provider) CreateUser(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := p.checkEmail(email); err != nil {
		return nil, err
	}
	if len(password) < p.minPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	cred := &models.Credential{
		UID:          uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
	}
	if err := p.credentials.CreateCredential(ctx, cred); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailInUse
		}
		log.Error(ctx, "Failed to create credential",
			"error", err,
			"operation", "create_credential",
		)
		return nil, fmt.Errorf("failed to create credential: %w", err)
	}

	log.Info(ctx, "Identity created", "uid", cred.UID)
	return p.issue(cred)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := p.checkEmail(email); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, ErrInvalidCredential
	}

	allowed, err := p.limiter.Allow(ctx, email)
	if err != nil {
		// Limiter outages fail open.
		log.Warn(ctx, "Sign-in limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, ErrTooManyRequests
	}

	cred, err := p.credentials.GetCredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.recordFailure(ctx, email)
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	if err := p.hasher.Verify(cred.PasswordHash, password); err != nil {
		if errors.Is(err, ErrWrongPassword) {
			p.recordFailure(ctx, email)
			return nil, ErrWrongPassword
		}
		return nil, ErrInvalidCredential
	}

	if err := p.limiter.Reset(ctx, email); err != nil {
		log.Warn(ctx, "Failed to reset sign-in failures", "error", err)
	}
	return p.issue(cred)
}

func (p *Provider) recordFailure(ctx context.Context, email string) {
	if err := p.limiter.Fail(ctx, email); err != nil {
		log.Warn(ctx, "Failed to record sign-in failure", "error", err)
	}
}

func (p *Provider) UpdateDisplayName(ctx context.Context, uid, displayName string) error {
	if err := p.credentials.UpdateCredentialDisplayName(ctx, uid, displayName); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update display name: %w", err)
	}
	return nil
}

// Verify checks a token and re-reads the account it names, so tokens of
// deleted accounts stop working and the display name is current.
func (p *Provider) Verify(ctx context.Context, token string) (*Session, error) {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	revoked, err := p.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidToken
	}

	cred, err := p.credentials.GetCredential(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up credential: %w", err)
	}

	return &Session{
		Principal: Principal{
			UID:         cred.UID,
			Email:       cred.Email,
			DisplayName: cred.DisplayName,
		},
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Revoke ends the session carried by token. Expired tokens need no revocation.
func (p *Provider) Revoke(ctx context.Context, token string) error {
	claims, err := p.tokens.Parse(token)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return nil
		}
		return err
	}
	return p.revoker.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (p *Provider) issue(cred *models.Credential) (*Session, error) {
	token, claims, err := p.tokens.Issue(cred.UID, cred.Email)
	if err != nil {
		return nil, err
	}
	return &Session{
		Principal: Principal{
			UID:         cred.UID,
			Email:       cred.Email,
			DisplayName: cred.DisplayName,
		},
		Token:     token,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
