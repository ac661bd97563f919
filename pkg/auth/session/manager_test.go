package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mockStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	m.ttls[key] = ttl
	return nil
}

func (m *mockStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return "wolf:session:" + accessID
}

func TestManagerGenerateStoresDigestOnly(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, store, 2*time.Hour)
	userID := uuid.New()

	token, err := manager.Generate(context.Background(), "access-1", userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	stored := store.data[store.AccessSessionKey("access-1")]
	if strings.Contains(stored, token) {
		t.Fatalf("refresh token stored in clear: %s", stored)
	}
	if !strings.Contains(stored, userID.String()) {
		t.Fatalf("expected session bound to user, got %s", stored)
	}
	if store.ttls[store.AccessSessionKey("access-1")] != 2*time.Hour {
		t.Fatalf("unexpected ttl %s", store.ttls[store.AccessSessionKey("access-1")])
	}

	if _, err := manager.Generate(context.Background(), "access-2", uuid.Nil); err == nil {
		t.Fatal("expected nil user to be rejected")
	}
}

func TestManagerRotate(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, store, time.Hour)
	ctx := context.Background()
	userID := uuid.New()

	token, err := manager.Generate(ctx, "access-1", userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, _, err := manager.Rotate(ctx, "access-1", userID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, "access-1", uuid.New(), token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected another user's session to be rejected, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, "access-1", userID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if ok, _ := manager.HasSession(ctx, "access-1"); ok {
		t.Fatal("old session left behind")
	}
	if ok, _ := manager.HasSession(ctx, newAccessID); !ok {
		t.Fatal("expected new session")
	}
	if _, _, err := manager.Rotate(ctx, "access-1", userID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected replayed token to fail, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, newAccessID, userID, newToken); err != nil {
		t.Fatalf("expected rotated token to work, got %v", err)
	}
}

func TestManagerRevoke(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, store, time.Hour)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "access-1", uuid.New()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := manager.Revoke(ctx, "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := manager.HasSession(ctx, "access-1"); ok || err != nil {
		t.Fatalf("expected no session, ok=%v err=%v", ok, err)
	}
	if err := manager.Revoke(ctx, " "); err == nil {
		t.Fatal("expected blank access id to fail")
	}
}

func TestManagerCorruptRecordIsInvalid(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, store, time.Hour)
	store.data[store.AccessSessionKey("access-1")] = "plain-token"

	if _, _, err := manager.Rotate(context.Background(), "access-1", uuid.New(), "plain-token"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token, got %v", err)
	}
}
