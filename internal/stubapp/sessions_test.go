package stubapp

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid"
)

func newTestSessionManager(t *testing.T) *SessionManager {
	t.Helper()
	sm := NewSessionManager(SessionManagerOptions{
		InitialBalance: 10_000,
		IdleTimeout:    time.Hour,
	})
	t.Cleanup(sm.Close)
	return sm
}

func TestSessionManager_Username_NonExistent(t *testing.T) {
	sm := newTestSessionManager(t)

	if _, ok := sm.Username(uuid.Must(uuid.NewV4())); ok {
		t.Error("expected unknown session to be rejected")
	}
}

func TestSessionManager_Create(t *testing.T) {
	sm := newTestSessionManager(t)

	sessionID := sm.Create("alice")

	username, ok := sm.Username(sessionID)
	if !ok {
		t.Fatal("expected session to exist")
	}
	if username != "alice" {
		t.Errorf("expected username alice, got %s", username)
	}
	if balance := sm.Balance(sessionID); balance != 10_000 {
		t.Errorf("expected initial balance 10000, got %v", balance)
	}
}

func TestSessionManager_WalletsAreIndependent(t *testing.T) {
	sm := newTestSessionManager(t)

	first := sm.Create("alice")
	second := sm.Create("alice")

	if _, err := sm.Purchase(first, 1, 6000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balance := sm.Balance(first); balance != 4000 {
		t.Errorf("expected balance 4000, got %v", balance)
	}
	if balance := sm.Balance(second); balance != 10_000 {
		t.Errorf("expected untouched balance 10000, got %v", balance)
	}
}

func TestSessionManager_Purchase(t *testing.T) {
	sm := newTestSessionManager(t)
	sessionID := sm.Create("alice")

	order, err := sm.Purchase(sessionID, 0.5, 3000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(order.ID, "GLD-") {
		t.Errorf("expected order id with GLD- prefix, got %s", order.ID)
	}

	stored, ok := sm.Order(sessionID, order.ID)
	if !ok {
		t.Fatal("expected order to be stored")
	}
	if stored.Total != 3000 || stored.Grams != 0.5 {
		t.Errorf("unexpected stored order %+v", stored)
	}

	if _, ok := sm.Order(sm.Create("bob"), order.ID); ok {
		t.Error("expected order to be invisible to other sessions")
	}
}

func TestSessionManager_Purchase_InsufficientBalance(t *testing.T) {
	sm := newTestSessionManager(t)
	sessionID := sm.Create("alice")

	_, err := sm.Purchase(sessionID, 2, 12_000)
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if balance := sm.Balance(sessionID); balance != 10_000 {
		t.Errorf("expected balance to be unchanged, got %v", balance)
	}
}

func TestSessionManager_Purchase_UnknownSession(t *testing.T) {
	sm := newTestSessionManager(t)

	_, err := sm.Purchase(uuid.Must(uuid.NewV4()), 1, 1)
	if !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("expected ErrUnknownSession, got %v", err)
	}
}

func TestSessionManager_Delete(t *testing.T) {
	sm := newTestSessionManager(t)
	sessionID := sm.Create("alice")

	sm.Delete(sessionID)

	if _, ok := sm.Username(sessionID); ok {
		t.Error("expected session to be removed")
	}
	// Deleting again is a no-op
	sm.Delete(sessionID)
}

func TestSessionManager_CleanupIdleSessions(t *testing.T) {
	sm := newTestSessionManager(t)

	now := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	sm.now = func() time.Time { return now }

	idle := sm.Create("idle")
	now = now.Add(45 * time.Minute)
	active := sm.Create("active")
	now = now.Add(30 * time.Minute)

	sm.cleanupIdleSessions()

	if _, ok := sm.Username(idle); ok {
		t.Error("expected idle session to be removed")
	}
	if _, ok := sm.Username(active); !ok {
		t.Error("expected active session to be kept")
	}
	if sm.Len() != 1 {
		t.Errorf("expected 1 session, got %d", sm.Len())
	}
}

func TestSessionManager_Close(t *testing.T) {
	sm := NewSessionManager(SessionManagerOptions{IdleTimeout: time.Minute})
	sm.Create("alice")
	sm.Create("bob")

	sm.Close()

	if sm.Len() != 0 {
		t.Errorf("expected no sessions after close, got %d", sm.Len())
	}
}
