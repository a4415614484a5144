package auth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

type recordingMailer struct {
	to    []string
	links []string
	err   error
}

func (m *recordingMailer) SendVerificationMail(to, link string) error {
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.links = append(m.links, link)
	return nil
}

func setupProvider(t *testing.T) (*Provider, *recordingMailer, *SessionStore) {
	_, client := setupRedis(t)
	mailer := &recordingMailer{}
	sessions := NewSessionStore(client, time.Hour)
	provider := NewProvider(
		NewUserStore(client),
		sessions,
		NewBcryptHasher(bcrypt.MinCost),
		NewVerificationSigner("secret", time.Hour),
		mailer,
		"http://localhost:8080/",
	)
	return provider, mailer, sessions
}

func tokenFromLink(t *testing.T, link string) string {
	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/auth/verify", u.Path)
	return u.Query().Get("token")
}

func TestProvider_SignUpAndSignIn(t *testing.T) {
	provider, _, _ := setupProvider(t)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, "  Alice@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.False(t, user.EmailVerified)
	assert.NotEqual(t, "secret1", user.PasswordHash)

	signedIn, err := provider.SignIn(ctx, "ALICE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, signedIn.ID)

	_, err = provider.SignIn(ctx, "alice@example.com", "wrong")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	_, err = provider.SignIn(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestProvider_Lookup(t *testing.T) {
	provider, _, _ := setupProvider(t)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, "bob@example.com", "secret1")
	require.NoError(t, err)

	found, err := provider.Lookup(ctx, " Bob@Example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = provider.Lookup(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestProvider_SignUpValidation(t *testing.T) {
	provider, _, _ := setupProvider(t)
	ctx := context.Background()

	_, err := provider.SignUp(ctx, "not-an-email", "secret1")
	assert.ErrorIs(t, err, models.ErrInvalidEmail)

	_, err = provider.SignUp(ctx, "a@example.com", "12345")
	assert.ErrorIs(t, err, models.ErrWeakPassword)

	_, err = provider.SignUp(ctx, "a@example.com", "123456")
	require.NoError(t, err)
	_, err = provider.SignUp(ctx, "A@example.com", "123456")
	assert.ErrorIs(t, err, models.ErrEmailInUse)
}

func TestProvider_VerificationFlow(t *testing.T) {
	provider, mailer, _ := setupProvider(t)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, provider.SendVerificationEmail(ctx, user.ID))
	require.Len(t, mailer.links, 1)
	assert.Equal(t, "a@example.com", mailer.to[0])

	verified, err := provider.VerifyEmail(ctx, tokenFromLink(t, mailer.links[0]))
	require.NoError(t, err)
	assert.True(t, verified.EmailVerified)

	reloaded, err := provider.Reload(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.EmailVerified)

	_, err = provider.VerifyEmail(ctx, "garbage")
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestProvider_UpdateEmailRequiresVerification(t *testing.T) {
	provider, mailer, _ := setupProvider(t)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	_, err = provider.UpdateEmail(ctx, user.ID, "b@example.com")
	assert.ErrorIs(t, err, models.ErrEmailNotVerified)

	require.NoError(t, provider.SendVerificationEmail(ctx, user.ID))
	oldToken := tokenFromLink(t, mailer.links[0])
	_, err = provider.VerifyEmail(ctx, oldToken)
	require.NoError(t, err)

	updated, err := provider.UpdateEmail(ctx, user.ID, "B@example.com")
	require.NoError(t, err)
	assert.Equal(t, "b@example.com", updated.Email)
	assert.False(t, updated.EmailVerified)

	// A link issued for the previous address no longer verifies.
	_, err = provider.VerifyEmail(ctx, oldToken)
	assert.ErrorIs(t, err, models.ErrInvalidToken)

	_, err = provider.SignIn(ctx, "b@example.com", "secret1")
	assert.NoError(t, err)
}

func TestProvider_UpdatePassword(t *testing.T) {
	provider, _, _ := setupProvider(t)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, provider.UpdatePassword(ctx, user.ID, "wrong", "secret2"), models.ErrInvalidCredentials)
	assert.ErrorIs(t, provider.UpdatePassword(ctx, user.ID, "secret1", "short"), models.ErrWeakPassword)
	require.NoError(t, provider.UpdatePassword(ctx, user.ID, "secret1", "secret2"))

	_, err = provider.SignIn(ctx, "a@example.com", "secret2")
	assert.NoError(t, err)
}

func TestProvider_SignOutDropsSessions(t *testing.T) {
	provider, _, sessions := setupProvider(t)
	ctx := context.Background()

	session, err := sessions.CreateSession(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, provider.SignOut(ctx, "u1"))
	_, err = sessions.GetSession(ctx, session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProvider_SetGoogleLinked(t *testing.T) {
	provider, _, _ := setupProvider(t)
	ctx := context.Background()

	user, err := provider.SignUp(ctx, "a@example.com", "secret1")
	require.NoError(t, err)

	linked, err := provider.SetGoogleLinked(ctx, user.ID, true)
	require.NoError(t, err)
	assert.True(t, linked.GoogleLinked)

	_, err = provider.SetGoogleLinked(ctx, "missing", true)
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}

func TestVerificationSigner_Expired(t *testing.T) {
	signer := NewVerificationSigner("secret", -time.Minute)
	token, err := signer.Sign("u1", "a@example.com")
	require.NoError(t, err)

	_, _, err = signer.Parse(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}

func TestVerificationSigner_WrongSecret(t *testing.T) {
	token, err := NewVerificationSigner("secret", time.Hour).Sign("u1", "a@example.com")
	require.NoError(t, err)

	_, _, err = NewVerificationSigner("other", time.Hour).Parse(token)
	assert.ErrorIs(t, err, models.ErrInvalidToken)
}
