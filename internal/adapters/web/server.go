// Package web serves the dashboard state over HTTP and a websocket stream.
package web

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/xoelrdgz/trafficradar/internal/app"
	"github.com/xoelrdgz/trafficradar/internal/domain"
)

const (
	DefaultAddr          = ":8080"
	DefaultRateLimit     = 10
	DefaultRateWindow    = time.Minute
	defaultNotifications = 50
	maxNotifications     = 1000
	maxBodyBytes         = 4 << 10
)

// StateProvider is the read side of the poller.
type StateProvider interface {
	Snapshot() domain.Snapshot
	Rows() []domain.TrafficRow
	Events() []domain.Event
	Refresh() bool
}

// ActionDispatcher issues user actions against the detection service.
type ActionDispatcher interface {
	RequestStartSniffing(ctx context.Context) (domain.Ack, error)
	RequestUnblock(ctx context.Context, ip string) (domain.Ack, error)
}

// ThemeController reads and changes the persisted theme.
type ThemeController interface {
	Theme() app.Theme
	SetTheme(t app.Theme) error
}

// NotificationFeed exposes recent notifications.
type NotificationFeed interface {
	Latest(n int) []*domain.Notification
}

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	RateLimit      int
	RateWindow     time.Duration
}

func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:       DefaultAddr,
		RateLimit:  DefaultRateLimit,
		RateWindow: DefaultRateWindow,
	}
}

// Server is the HTTP/WebSocket presentation of the shared poller state.
type Server struct {
	config        ServerConfig
	state         StateProvider
	actions       ActionDispatcher
	theme         ThemeController
	notifications NotificationFeed
	hub           *Hub

	mu     sync.Mutex
	server *http.Server
}

// NewServer wires the handlers. notifications and theme may be nil, in which
// case their routes answer 404.
func NewServer(config ServerConfig, state StateProvider, actions ActionDispatcher, theme ThemeController, notifications NotificationFeed, hub *Hub) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.RateLimit <= 0 {
		config.RateLimit = DefaultRateLimit
	}
	if config.RateWindow <= 0 {
		config.RateWindow = DefaultRateWindow
	}
	return &Server{
		config:        config,
		state:         state,
		actions:       actions,
		theme:         theme,
		notifications: notifications,
		hub:           hub,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	if len(s.config.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.config.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Get("/notifications", s.handleNotifications)
		r.Get("/theme", s.handleGetTheme)

		r.Group(func(r chi.Router) {
			r.Use(httprate.Limit(
				s.config.RateLimit,
				s.config.RateWindow,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				}),
			))
			r.Post("/refresh", s.handleRefresh)
			r.Post("/sniffing", s.handleStartSniffing)
			r.Delete("/blocked/{ip}", s.handleUnblock)
			r.Put("/theme", s.handleSetTheme)
		})
	})

	if s.hub != nil {
		r.Handle("/ws", s.hub)
	}

	return r
}

type stateResponse struct {
	domain.Snapshot
	Rows  []domain.TrafficRow `json:"rows"`
	Theme string              `json:"theme,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := stateResponse{
		Snapshot: s.state.Snapshot(),
		Rows:     s.state.Rows(),
	}
	if s.theme != nil {
		resp.Theme = string(s.theme.Theme())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.Events())
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if s.notifications == nil {
		writeError(w, http.StatusNotFound, "notifications disabled")
		return
	}

	limit := defaultNotifications
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxNotifications)
	}

	list := s.notifications.Latest(limit)
	if list == nil {
		list = []*domain.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	queued := s.state.Refresh()
	writeJSON(w, http.StatusAccepted, map[string]bool{"queued": queued})
}

func (s *Server) handleStartSniffing(w http.ResponseWriter, r *http.Request) {
	ack, err := s.actions.RequestStartSniffing(r.Context())
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	ip, err := url.PathUnescape(chi.URLParam(r, "ip"))
	if err != nil || ip == "" {
		writeError(w, http.StatusBadRequest, "invalid ip")
		return
	}

	ack, err := s.actions.RequestUnblock(r.Context(), ip)
	if err != nil {
		writeActionError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

type themeBody struct {
	Theme string `json:"theme"`
}

func (s *Server) handleGetTheme(w http.ResponseWriter, r *http.Request) {
	if s.theme == nil {
		writeError(w, http.StatusNotFound, "theme store disabled")
		return
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: string(s.theme.Theme())})
}

func (s *Server) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	if s.theme == nil {
		writeError(w, http.StatusNotFound, "theme store disabled")
		return
	}

	var body themeBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	t, err := app.ParseTheme(body.Theme)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.theme.SetTheme(t); err != nil {
		if errors.Is(err, app.ErrUnknownTheme) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// The in-memory theme changed; only persistence failed.
		log.Warn().Err(err).Str("theme", string(t)).Msg("Failed to persist theme")
	}
	writeJSON(w, http.StatusOK, themeBody{Theme: string(s.theme.Theme())})
}

// Start listens in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.New("web server already started")
	}

	s.server = &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := s.server
	go func() {
		log.Info().Str("addr", s.config.Addr).Msg("Starting web dashboard server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Web server error")
		}
	}()

	return nil
}

// Stop shuts the server down and disconnects websocket clients.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.mu.Unlock()

	if s.hub != nil {
		s.hub.Close()
	}
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeActionError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if te, ok := domain.AsTransportError(err); ok && te.Kind == domain.KindStatus && te.StatusCode >= 400 && te.StatusCode < 500 {
		status = te.StatusCode
	}
	writeError(w, status, err.Error())
}
