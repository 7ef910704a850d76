package stubapp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofrs/uuid"
)

// Order is a completed purchase.
type Order struct {
	ID        string
	Grams     float64
	Total     float64
	CreatedAt time.Time
}

// sessionState tracks a logged-in shopper. Every session starts with its own wallet so
// browser contexts of different tests do not share a balance.
type sessionState struct {
	username   string
	balance    float64
	orders     map[string]Order
	lastActive time.Time
}

// SessionManager keeps the logged-in sessions of the shop and removes idle ones.
type SessionManager struct {
	logger *slog.Logger

	sessions   map[uuid.UUID]*sessionState
	sessionsMu sync.RWMutex

	initialBalance float64
	idleTimeout    time.Duration
	now            func() time.Time

	cleanupCtx       context.Context
	cleanupCtxCancel context.CancelFunc
}

// SessionManagerOptions configures a SessionManager
type SessionManagerOptions struct {
	InitialBalance float64
	IdleTimeout    time.Duration
	Logger         *slog.Logger
}

// NewSessionManager creates a new SessionManager and starts the cleanup goroutine
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	idleTimeout := opts.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cleanupCtx, cleanupCtxCancel := context.WithCancel(context.Background())

	sm := &SessionManager{
		logger:           logger,
		sessions:         make(map[uuid.UUID]*sessionState),
		initialBalance:   opts.InitialBalance,
		idleTimeout:      idleTimeout,
		now:              time.Now,
		cleanupCtx:       cleanupCtx,
		cleanupCtxCancel: cleanupCtxCancel,
	}

	go sm.cleanupLoop()

	return sm
}

// Create starts a session for username with a fresh wallet.
func (sm *SessionManager) Create(username string) uuid.UUID {
	sessionID := uuid.Must(uuid.NewV4())

	sm.sessionsMu.Lock()
	defer sm.sessionsMu.Unlock()

	sm.sessions[sessionID] = &sessionState{
		username:   username,
		balance:    sm.initialBalance,
		orders:     make(map[string]Order),
		lastActive: sm.now(),
	}

	return sessionID
}

// Username returns the user of a session and marks it active.
func (sm *SessionManager) Username(sessionID uuid.UUID) (string, bool) {
	sm.sessionsMu.Lock()
	defer sm.sessionsMu.Unlock()

	state, exists := sm.sessions[sessionID]
	if !exists {
		return "", false
	}
	state.lastActive = sm.now()
	return state.username, true
}

// Balance returns the wallet balance of a session.
func (sm *SessionManager) Balance(sessionID uuid.UUID) float64 {
	sm.sessionsMu.RLock()
	defer sm.sessionsMu.RUnlock()

	if state, exists := sm.sessions[sessionID]; exists {
		return state.balance
	}
	return 0
}

// Purchase debits total from the wallet of a session and stores the order.
func (sm *SessionManager) Purchase(sessionID uuid.UUID, grams, total float64) (Order, error) {
	sm.sessionsMu.Lock()
	defer sm.sessionsMu.Unlock()

	state, exists := sm.sessions[sessionID]
	if !exists {
		return Order{}, ErrUnknownSession
	}
	if total > state.balance {
		return Order{}, ErrInsufficientBalance
	}

	order := Order{
		ID:        newOrderID(),
		Grams:     grams,
		Total:     total,
		CreatedAt: sm.now(),
	}
	state.balance -= total
	state.orders[order.ID] = order
	state.lastActive = order.CreatedAt

	return order, nil
}

// Order looks up an order placed in a session.
func (sm *SessionManager) Order(sessionID uuid.UUID, orderID string) (Order, bool) {
	sm.sessionsMu.RLock()
	defer sm.sessionsMu.RUnlock()

	state, exists := sm.sessions[sessionID]
	if !exists {
		return Order{}, false
	}
	order, ok := state.orders[orderID]
	return order, ok
}

// Delete removes a session
func (sm *SessionManager) Delete(sessionID uuid.UUID) {
	sm.sessionsMu.Lock()
	defer sm.sessionsMu.Unlock()

	delete(sm.sessions, sessionID)
}

// Len returns the number of live sessions.
func (sm *SessionManager) Len() int {
	sm.sessionsMu.RLock()
	defer sm.sessionsMu.RUnlock()

	return len(sm.sessions)
}

// Close stops the cleanup goroutine and drops all sessions
func (sm *SessionManager) Close() {
	sm.cleanupCtxCancel()

	sm.sessionsMu.Lock()
	defer sm.sessionsMu.Unlock()

	clear(sm.sessions)
}

// cleanupLoop periodically checks for idle sessions and cleans them up
func (sm *SessionManager) cleanupLoop() {
	ticker := time.NewTicker(sm.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-sm.cleanupCtx.Done():
			return
		case <-ticker.C:
			sm.cleanupIdleSessions()
		}
	}
}

func (sm *SessionManager) cleanupIdleSessions() {
	now := sm.now()

	sm.sessionsMu.Lock()
	defer sm.sessionsMu.Unlock()

	for sessionID, state := range sm.sessions {
		if idle := now.Sub(state.lastActive); idle > sm.idleTimeout {
			sm.logger.Debug("Removing idle session", slog.String("session", sessionID.String()), slog.Duration("idle", idle))
			delete(sm.sessions, sessionID)
		}
	}
}

func newOrderID() string {
	id := uuid.Must(uuid.NewV7()).String()
	return "GLD-" + id[len(id)-12:]
}
