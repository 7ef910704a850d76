package stubapp

import (
	"log/slog"
	"time"
)

const (
	// DefaultInitialBalance is the wallet balance of a new session.
	DefaultInitialBalance = 1_000_000
	// DefaultPricePerGram is the gold price used for quotes.
	DefaultPricePerGram = 6000
	// DefaultSessionIdleTimeout is how long a session may stay unused before it is removed.
	DefaultSessionIdleTimeout = 30 * time.Minute
	// SessionCookieName is the cookie that carries the session id.
	SessionCookieName = "goldstub_session"
)

// serverOptions holds configuration for a Server.
// This is unexported; use Option functions to configure.
type serverOptions struct {
	// Username and Password are the only accepted credentials.
	Username string
	Password string
	// InitialBalance is the wallet balance every new session starts with.
	InitialBalance float64
	// PricePerGram is the price of one gram of gold.
	PricePerGram float64
	// SessionIdleTimeout is how long a session may stay unused.
	SessionIdleTimeout time.Duration
	Logger             *slog.Logger
}

// Option configures a Server.
type Option func(*serverOptions)

// WithCredentials sets the accepted username and password.
func WithCredentials(username, password string) Option {
	return func(o *serverOptions) {
		o.Username = username
		o.Password = password
	}
}

// WithInitialBalance sets the wallet balance of new sessions.
// Default is 1,000,000 if not specified.
func WithInitialBalance(balance float64) Option {
	return func(o *serverOptions) {
		o.InitialBalance = balance
	}
}

// WithPricePerGram sets the gold price.
func WithPricePerGram(price float64) Option {
	return func(o *serverOptions) {
		o.PricePerGram = price
	}
}

// WithSessionIdleTimeout sets how long an unused session is kept.
func WithSessionIdleTimeout(timeout time.Duration) Option {
	return func(o *serverOptions) {
		o.SessionIdleTimeout = timeout
	}
}

// WithLogger sets the request and session logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serverOptions) {
		o.Logger = logger
	}
}

func defaultOptions() serverOptions {
	return serverOptions{
		Username:           "demo",
		Password:           "demo",
		InitialBalance:     DefaultInitialBalance,
		PricePerGram:       DefaultPricePerGram,
		SessionIdleTimeout: DefaultSessionIdleTimeout,
		Logger:             slog.Default(),
	}
}
