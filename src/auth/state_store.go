package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// StateStore holds one-time OAuth states, each bound to the user who
// started the linkage.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) *StateStore {
	return &StateStore{
		client: client,
	}
}

func stateKey(state string) string {
	return "oauth_state:" + state
}

func (s *StateStore) GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random state: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func (s *StateStore) SaveState(ctx context.Context, state, userID string, ttl time.Duration) error {
	oauthState := OAuthState{
		State:     state,
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
	}

	data, err := json.Marshal(oauthState)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	return s.client.Set(ctx, stateKey(state), data, ttl).Err()
}

// ConsumeState validates and removes a state, returning the user it was
// issued to. A state can be consumed once.
func (s *StateStore) ConsumeState(ctx context.Context, state string) (string, bool, error) {
	data, err := s.client.GetDel(ctx, stateKey(state)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get state: %w", err)
	}

	var oauthState OAuthState
	if err := json.Unmarshal([]byte(data), &oauthState); err != nil {
		return "", false, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	if time.Now().After(oauthState.ExpiresAt) || oauthState.UserID == "" {
		return "", false, nil
	}
	return oauthState.UserID, true, nil
}
