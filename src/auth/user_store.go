package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"www.github.com/Wanderer0074348/EventSync/src/models"
)

type UserStore struct {
	client *redis.Client
}

func NewUserStore(client *redis.Client) *UserStore {
	return &UserStore{
		client: client,
	}
}

func userKey(userID string) string {
	return "user:" + userID
}

func emailKey(email string) string {
	return "user_email:" + email
}

// CreateUser claims the email and stores the user. The email claim is the
// uniqueness check.
func (u *UserStore) CreateUser(ctx context.Context, user *User) error {
	claimed, err := u.client.SetNX(ctx, emailKey(user.Email), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return models.ErrEmailInUse
	}

	if err := u.SaveUser(ctx, user); err != nil {
		u.client.Del(ctx, emailKey(user.Email))
		return err
	}
	return nil
}

func (u *UserStore) SaveUser(ctx context.Context, user *User) error {
	user.UpdatedAt = time.Now()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	if err := u.client.Set(ctx, userKey(user.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// ChangeEmail moves the email index from the user's current address to
// newEmail and saves the user.
func (u *UserStore) ChangeEmail(ctx context.Context, user *User, newEmail string) error {
	if newEmail == user.Email {
		return nil
	}

	claimed, err := u.client.SetNX(ctx, emailKey(newEmail), user.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim email: %w", err)
	}
	if !claimed {
		return models.ErrEmailInUse
	}

	oldEmail := user.Email
	user.Email = newEmail
	user.UpdatedAt = time.Now()

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	_, err = u.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, userKey(user.ID), data, 0)
		pipe.Del(ctx, emailKey(oldEmail))
		return nil
	})
	if err != nil {
		user.Email = oldEmail
		u.client.Del(ctx, emailKey(newEmail))
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (u *UserStore) GetUser(ctx context.Context, userID string) (*User, error) {
	data, err := u.client.Get(ctx, userKey(userID)).Result()
	if err == redis.Nil {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	var user User
	if err := json.Unmarshal([]byte(data), &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &user, nil
}

func (u *UserStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	userID, err := u.client.Get(ctx, emailKey(email)).Result()
	if err == redis.Nil {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user ID: %w", err)
	}

	return u.GetUser(ctx, userID)
}
