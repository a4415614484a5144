package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

type Mailer interface {
	SendVerificationMail(to, link string) error
}

// Provider is the identity provider: credentials, verification and
// profile changes over the user and session stores.
type Provider struct {
	users    *UserStore
	sessions *SessionStore
	hasher   *BcryptHasher
	signer   *VerificationSigner
	mailer   Mailer
	baseURL  string
}

func NewProvider(users *UserStore, sessions *SessionStore, hasher *BcryptHasher, signer *VerificationSigner, mailer Mailer, baseURL string) *Provider {
	return &Provider{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		signer:   signer,
		mailer:   mailer,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", models.ErrInvalidEmail
	}
	return email, nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return models.ErrWeakPassword
	}
	return nil
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := p.users.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrUserNotFound) {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := p.hasher.Compare(user.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}
	return user, nil
}

// Lookup finds the user registered under email.
func (p *Provider) Lookup(ctx context.Context, email string) (*User, error) {
	return p.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (p *Provider) SignUp(ctx context.Context, email, password string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := p.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateEmail is only allowed once the current address is verified. The new
// address starts unverified.
func (p *Provider) UpdateEmail(ctx context.Context, userID, newEmail string) (*User, error) {
	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.EmailVerified {
		return nil, models.ErrEmailNotVerified
	}

	newEmail, err = normalizeEmail(newEmail)
	if err != nil {
		return nil, err
	}
	if newEmail == user.Email {
		return user, nil
	}

	user.EmailVerified = false
	if err := p.users.ChangeEmail(ctx, user, newEmail); err != nil {
		return nil, err
	}
	return user, nil
}

func (p *Provider) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := p.hasher.Compare(user.PasswordHash, currentPassword); err != nil {
		return models.ErrInvalidCredentials
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	hash, err := p.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash
	return p.users.SaveUser(ctx, user)
}

func (p *Provider) VerificationLink(token string) string {
	return p.baseURL + "/api/v1/auth/verify?token=" + url.QueryEscape(token)
}

func (p *Provider) SendVerificationEmail(ctx context.Context, userID string) error {
	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if p.mailer == nil {
		return fmt.Errorf("mail delivery is not configured")
	}

	token, err := p.signer.Sign(user.ID, user.Email)
	if err != nil {
		return err
	}
	if err := p.mailer.SendVerificationMail(user.Email, p.VerificationLink(token)); err != nil {
		return fmt.Errorf("failed to send verification mail: %w", err)
	}
	log.Printf("✓ Verification mail sent to %s", user.Email)
	return nil
}

// VerifyEmail marks the address a token was issued for as verified. A
// token sent to a previous address is rejected.
func (p *Provider) VerifyEmail(ctx context.Context, token string) (*User, error) {
	userID, email, err := p.signer.Parse(token)
	if err != nil {
		return nil, err
	}

	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Email != email {
		return nil, models.ErrInvalidToken
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		if err := p.users.SaveUser(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// SignOut destroys every HTTP session of the user.
func (p *Provider) SignOut(ctx context.Context, userID string) error {
	return p.sessions.DeleteUserSessions(ctx, userID)
}

func (p *Provider) Reload(ctx context.Context, userID string) (*User, error) {
	return p.users.GetUser(ctx, userID)
}

func (p *Provider) SetGoogleLinked(ctx context.Context, userID string, linked bool) (*User, error) {
	user, err := p.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.GoogleLinked == linked {
		return user, nil
	}

	user.GoogleLinked = linked
	if err := p.users.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
