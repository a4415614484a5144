package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"

	"www.github.com/Wanderer0074348/EventSync/src/config"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

// NewGoogleOAuthConfig builds the consent flow used to link a calendar.
func NewGoogleOAuthConfig(cfg *config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     google.Endpoint,
	}
}

// GrantStore persists OAuth grants in the device database, one row per
// owner in the tokens table.
type GrantStore struct {
	db          *sql.DB
	oauthConfig *oauth2.Config
	revokeURL   string
	httpClient  *http.Client
}

func NewGrantStore(db *sql.DB, oauthConfig *oauth2.Config, revokeURL string) *GrantStore {
	return &GrantStore{
		db:          db,
		oauthConfig: oauthConfig,
		revokeURL:   revokeURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *GrantStore) SaveToken(ctx context.Context, ownerID string, token *oauth2.Token) error {
	tokenJSON, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	_, err = g.db.ExecContext(ctx, "INSERT OR REPLACE INTO tokens (account_name, token) VALUES (?, ?)", ownerID, string(tokenJSON))
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (g *GrantStore) loadToken(ctx context.Context, ownerID string) (*oauth2.Token, error) {
	var tokenJSON string
	err := g.db.QueryRowContext(ctx, "SELECT token FROM tokens WHERE account_name = ?", ownerID).Scan(&tokenJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotLinked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(tokenJSON), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

func (g *GrantStore) HasGrant(ctx context.Context, ownerID string) (bool, error) {
	_, err := g.loadToken(ctx, ownerID)
	if errors.Is(err, models.ErrNotLinked) {
		return false, nil
	}
	return err == nil, err
}

// TokenSource returns a source that refreshes the stored token when it has
// expired and writes the refreshed token back.
func (g *GrantStore) TokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error) {
	token, err := g.loadToken(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	return &persistingTokenSource{
		store:   g,
		ownerID: ownerID,
		base:    g.oauthConfig.TokenSource(ctx, token),
		last:    token.AccessToken,
	}, nil
}

type persistingTokenSource struct {
	store   *GrantStore
	ownerID string
	base    oauth2.TokenSource

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if token.AccessToken != p.last {
		if err := p.store.SaveToken(context.Background(), p.ownerID, token); err != nil {
			log.Printf("⚠️  Failed to persist refreshed token for %s: %v", p.ownerID, err)
		} else {
			log.Printf("✓ Token refreshed for %s", p.ownerID)
		}
		p.last = token.AccessToken
	}
	return token, nil
}

// Revoke invalidates the grant at the provider and deletes it locally. The
// row is deleted even when the provider call fails. A missing grant is not
// an error.
func (g *GrantStore) Revoke(ctx context.Context, ownerID string) error {
	token, err := g.loadToken(ctx, ownerID)
	if errors.Is(err, models.ErrNotLinked) {
		return nil
	}

	var revokeErr error
	if err != nil {
		revokeErr = err
	} else {
		revokeErr = g.revokeAtProvider(ctx, token)
	}

	if _, err := g.db.ExecContext(ctx, "DELETE FROM tokens WHERE account_name = ?", ownerID); err != nil {
		return errors.Join(revokeErr, fmt.Errorf("failed to delete token: %w", err))
	}
	return revokeErr
}

func (g *GrantStore) revokeAtProvider(ctx context.Context, token *oauth2.Token) error {
	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}
	if value == "" || g.revokeURL == "" {
		return nil
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to revoke token: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
