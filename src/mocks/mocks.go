package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/oauth2"

	"www.github.com/Wanderer0074348/EventSync/src/auth"
	"www.github.com/Wanderer0074348/EventSync/src/models"
)

// MockEventStore implements models.EventStore
type MockEventStore struct {
	mock.Mock
}

func (m *MockEventStore) Query(ctx context.Context, ownerID string, filter models.EventFilter) ([]models.Event, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Event), args.Error(1)
}

func (m *MockEventStore) Get(ctx context.Context, ownerID, eventID string) (*models.Event, error) {
	args := m.Called(ctx, ownerID, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventStore) Add(ctx context.Context, event *models.Event) (*models.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventStore) Update(ctx context.Context, event *models.Event) (*models.Event, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

func (m *MockEventStore) Delete(ctx context.Context, ownerID, eventID string) error {
	args := m.Called(ctx, ownerID, eventID)
	return args.Error(0)
}

func (m *MockEventStore) Batch(ctx context.Context, ownerID string, ops []models.BatchOp) error {
	args := m.Called(ctx, ownerID, ops)
	return args.Error(0)
}

func (m *MockEventStore) Subscribe(ctx context.Context, ownerID string, callback func([]models.Event)) (func(), error) {
	args := m.Called(ctx, ownerID, callback)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(func()), args.Error(1)
}

// MockCalendarClient implements models.CalendarClient
type MockCalendarClient struct {
	mock.Mock
}

func (m *MockCalendarClient) ListUpcoming(ctx context.Context, ownerID string, timeMin time.Time, maxResults int64) ([]models.ExternalEvent, error) {
	args := m.Called(ctx, ownerID, timeMin, maxResults)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ExternalEvent), args.Error(1)
}

func (m *MockCalendarClient) Insert(ctx context.Context, ownerID string, event *models.Event) (string, error) {
	args := m.Called(ctx, ownerID, event)
	return args.String(0), args.Error(1)
}

func (m *MockCalendarClient) Patch(ctx context.Context, ownerID, externalID string, event *models.Event) error {
	args := m.Called(ctx, ownerID, externalID, event)
	return args.Error(0)
}

func (m *MockCalendarClient) Delete(ctx context.Context, ownerID, externalID string) error {
	args := m.Called(ctx, ownerID, externalID)
	return args.Error(0)
}

// MockLocalCache implements models.LocalCache
type MockLocalCache struct {
	mock.Mock
}

func (m *MockLocalCache) GetItem(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockLocalCache) SetItem(ctx context.Context, key, value string) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockLocalCache) RemoveItem(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockLocalCache) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockTokenProvider implements models.TokenProvider
type MockTokenProvider struct {
	mock.Mock
}

func (m *MockTokenProvider) TokenSource(ctx context.Context, ownerID string) (oauth2.TokenSource, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(oauth2.TokenSource), args.Error(1)
}

// MockPuller implements models.Puller
type MockPuller struct {
	mock.Mock
}

func (m *MockPuller) PullOnce(ctx context.Context, ownerID string) (*models.PullResult, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PullResult), args.Error(1)
}

// MockPusher implements models.Pusher
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Push(ctx context.Context, req models.SyncRequest) (*models.Event, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Event), args.Error(1)
}

// MockIdentityProvider implements session.IdentityProvider
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*auth.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*auth.User, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockIdentityProvider) Lookup(ctx context.Context, email string) (*auth.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockIdentityProvider) SendVerificationEmail(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockIdentityProvider) Reload(ctx context.Context, userID string) (*auth.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockIdentityProvider) SetGoogleLinked(ctx context.Context, userID string, linked bool) (*auth.User, error) {
	args := m.Called(ctx, userID, linked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// MockGrantRevoker implements session.GrantRevoker
type MockGrantRevoker struct {
	mock.Mock
}

func (m *MockGrantRevoker) Revoke(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}
