// Package stubapp is a minimal gold shop used as a local target for the acceptance suite.
package stubapp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gofrs/uuid"
)

type contextKey string

const sessionContextKey contextKey = "session"

// Server serves the shop.
type Server struct {
	options  serverOptions
	sessions *SessionManager
	router   chi.Router
}

// New creates a shop server. Close must be called to stop the session cleanup.
func New(opts ...Option) *Server {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}

	s := &Server{
		options: options,
		sessions: NewSessionManager(SessionManagerOptions{
			InitialBalance: options.InitialBalance,
			IdleTimeout:    options.SessionIdleTimeout,
			Logger:         options.Logger,
		}),
	}
	s.router = s.buildRouter()

	return s
}

// Sessions exposes the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close removes all sessions and stops the cleanup goroutine.
func (s *Server) Close() {
	s.sessions.Close()
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/buy", s.handleBuyForm)
		r.Post("/buy", s.handleBuy)
		r.Get("/orders/{id}", s.handleOrder)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render(w, r, http.StatusNotFound, notFoundView())
	})

	return r
}

// requestLogger logs incoming HTTP requests.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.options.Logger.Debug("Request handled",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// requireSession redirects to the login page unless the request carries a live session.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID, ok := s.sessionFromRequest(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionContextKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) sessionFromRequest(r *http.Request) (uuid.UUID, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return uuid.Nil, false
	}
	sessionID, err := uuid.FromString(cookie.Value)
	if err != nil {
		return uuid.Nil, false
	}
	if _, ok := s.sessions.Username(sessionID); !ok {
		return uuid.Nil, false
	}
	return sessionID, true
}

func sessionFromContext(ctx context.Context) uuid.UUID {
	sessionID, _ := ctx.Value(sessionContextKey).(uuid.UUID)
	return sessionID
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionFromRequest(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, loginView(loginProps{}))
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(w, r, http.StatusBadRequest, loginView(loginProps{Error: "Invalid form"}))
		return
	}

	username := r.PostForm.Get("username")
	if username != s.options.Username || r.PostForm.Get("password") != s.options.Password {
		s.options.Logger.Info("Rejected login", slog.String("username", username))
		render(w, r, http.StatusUnauthorized, loginView(loginProps{Error: "Invalid username or password"}))
		return
	}

	sessionID := s.sessions.Create(username)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, ok := s.sessionFromRequest(r); ok {
		s.sessions.Delete(sessionID)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookieName, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromContext(r.Context())
	username, _ := s.sessions.Username(sessionID)

	render(w, r, http.StatusOK, dashboardView(dashboardProps{
		Username: username,
		Balance:  s.sessions.Balance(sessionID),
	}))
}

func (s *Server) handleBuyForm(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, buyView(s.buyProps(r)))
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	props := s.buyProps(r)

	if err := r.ParseForm(); err != nil {
		props.Error = "Invalid form"
		render(w, r, http.StatusBadRequest, buyView(props))
		return
	}
	props.Amount = r.PostForm.Get("amount")
	props.Grams = r.PostForm.Get("grams")

	quote, err := NewQuote(props.Amount, props.Grams, s.options.PricePerGram)
	if err != nil {
		props.Error = err.Error()
		render(w, r, http.StatusUnprocessableEntity, buyView(props))
		return
	}
	props.Total = quote.Total

	sessionID := sessionFromContext(r.Context())
	order, err := s.sessions.Purchase(sessionID, quote.Grams, quote.Total)
	if errors.Is(err, ErrUnknownSession) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		props.Error = err.Error()
		render(w, r, http.StatusUnprocessableEntity, buyView(props))
		return
	}

	s.options.Logger.Info("Order placed",
		slog.String("order", order.ID),
		slog.Float64("grams", order.Grams),
		slog.Float64("total", order.Total),
	)
	http.Redirect(w, r, "/orders/"+order.ID, http.StatusSeeOther)
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := sessionFromContext(r.Context())

	order, ok := s.sessions.Order(sessionID, chi.URLParam(r, "id"))
	if !ok {
		render(w, r, http.StatusNotFound, notFoundView())
		return
	}

	render(w, r, http.StatusOK, orderView(orderProps{
		Order:   order,
		Balance: s.sessions.Balance(sessionID),
	}))
}

func (s *Server) buyProps(r *http.Request) buyProps {
	return buyProps{
		PricePerGram: s.options.PricePerGram,
		Balance:      s.sessions.Balance(sessionFromContext(r.Context())),
	}
}

func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	templ.Handler(c, templ.WithStatus(status)).ServeHTTP(w, r)
}
