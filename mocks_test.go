package authapi_test

import (
	"context"
	"sync"
	"time"

	authapi "github.com/goliatone/go-auth-api"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockIdentity implements authapi.Identity for testing
type MockIdentity struct {
	mock.Mock
}

func (m *MockIdentity) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIdentity) Email() string {
	args := m.Called()
	return args.String(0)
}

// MockLogger implements authapi.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// MockIdentityProvider implements authapi.IdentityProvider for testing
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) VerifyIdentity(ctx context.Context, identifier, password string) (authapi.Identity, error) {
	args := m.Called(ctx, identifier, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(authapi.Identity), args.Error(1)
}

func (m *MockIdentityProvider) FindIdentityByIdentifier(ctx context.Context, identifier string) (authapi.Identity, error) {
	args := m.Called(ctx, identifier)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(authapi.Identity), args.Error(1)
}

// stubIdentity is a plain value identity for tests that do not need
// expectation tracking.
type stubIdentity struct {
	id    string
	name  string
	email string
}

func (s stubIdentity) ID() string    { return s.id }
func (s stubIdentity) Name() string  { return s.name }
func (s stubIdentity) Email() string { return s.email }

// recordingSink captures activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []authapi.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event authapi.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Events() []authapi.ActivityEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]authapi.ActivityEvent, len(s.events))
	copy(out, s.events)
	return out
}

// memoryRevocationStore is an in-memory RevocationStore for token tests.
type memoryRevocationStore struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemoryRevocationStore() *memoryRevocationStore {
	return &memoryRevocationStore{revoked: map[string]time.Time{}}
}

func (s *memoryRevocationStore) Revoke(_ context.Context, tokenID string, _ uuid.UUID, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.revoked[tokenID]; !ok {
		s.revoked[tokenID] = expiresAt
	}
	return nil
}

func (s *memoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revoked[tokenID]
	return ok, nil
}
