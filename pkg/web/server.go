// Package web serves the catalog page and its JSON twin over HTTP.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sternrassler/pokedex-browser/pkg/browse"
	"github.com/Sternrassler/pokedex-browser/pkg/catalog"
	"github.com/Sternrassler/pokedex-browser/pkg/logging"
	"github.com/Sternrassler/pokedex-browser/pkg/metrics"
	"github.com/Sternrassler/pokedex-browser/pkg/render"
	"github.com/Sternrassler/pokedex-browser/pkg/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// CookieName holds the session ID.
const CookieName = "pokedex_session"

// Config holds server dependencies and limits.
type Config struct {
	Controller *browse.Controller
	Store      session.Store
	Renderer   *render.Renderer
	Logger     zerolog.Logger

	// LoadTimeout bounds a page load once started. Loads are not tied to
	// the request that triggered them.
	LoadTimeout time.Duration

	// SessionTTL sets the cookie lifetime.
	SessionTTL time.Duration
}

// Server handles the page routes.
type Server struct {
	controller  *browse.Controller
	store       session.Store
	renderer    *render.Renderer
	logger      zerolog.Logger
	loadTimeout time.Duration
	sessionTTL  time.Duration
}

// New creates a server.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, fmt.Errorf("controller is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = 30 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	return &Server{
		controller:  cfg.Controller,
		store:       cfg.Store,
		renderer:    cfg.Renderer,
		logger:      cfg.Logger,
		loadTimeout: cfg.LoadTimeout,
		sessionTTL:  cfg.SessionTTL,
	}, nil
}

// Handler returns the routed, access-logged handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handlePage)
	mux.HandleFunc("POST /next", s.action(s.next, false))
	mux.HandleFunc("POST /prev", s.action(s.previous, false))
	mux.HandleFunc("GET /search", s.action(s.search, false))
	mux.HandleFunc("GET /open", s.handleOpen)

	mux.HandleFunc("GET /api/page", s.handleAPIPage)
	mux.HandleFunc("POST /api/next", s.action(s.next, true))
	mux.HandleFunc("POST /api/prev", s.action(s.previous, true))
	mux.HandleFunc("GET /api/search", s.action(s.search, true))

	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	return logging.Middleware(s.logger)(mux)
}

type pageReply struct {
	browse.View
	Error string `json:"error,omitempty"`
}

type stepFunc func(ctx context.Context, st *browse.State, r *http.Request) (browse.View, error)

func (s *Server) next(ctx context.Context, st *browse.State, _ *http.Request) (browse.View, error) {
	return s.controller.Next(ctx, st)
}

func (s *Server) previous(ctx context.Context, st *browse.State, _ *http.Request) (browse.View, error) {
	return s.controller.Previous(ctx, st)
}

func (s *Server) search(ctx context.Context, st *browse.State, r *http.Request) (browse.View, error) {
	return s.controller.Search(ctx, st, r.URL.Query().Get("q"))
}

// action applies step to the session. Page routes redirect back to the page;
// API routes answer with the resulting view.
func (s *Server) action(step stepFunc, api bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, st, _ := s.session(w, r)

		ctx, cancel := s.loadContext(r)
		defer cancel()

		view, err := step(ctx, st, r)
		s.logStep(r, err)
		s.save(r, id, st)

		if api {
			writeJSON(w, http.StatusOK, reply(view, err))
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	view := s.current(w, r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderer.Render(w, view); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Render failed")
	}
}

func (s *Server) handleAPIPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, reply(s.current(w, r), nil))
}

// current returns the session's view. A new session gets its initial page
// load; a session whose last load failed is loaded again, as a reload would.
func (s *Server) current(w http.ResponseWriter, r *http.Request) browse.View {
	id, st, fresh := s.session(w, r)
	if !fresh && !loadFailed(st) {
		return s.controller.View(st)
	}

	page := 1
	if !fresh {
		page = st.CurrentPage
		hlog.FromRequest(r).Debug().Int("page", page).Msg("Retrying failed page load")
	}

	ctx, cancel := s.loadContext(r)
	defer cancel()

	view, err := s.controller.Load(ctx, st, page)
	s.logStep(r, err)
	s.save(r, id, st)
	return view
}

// loadFailed reports whether st shows a page load error. The empty-corpus
// instruction is not one.
func loadFailed(st *browse.State) bool {
	return st.Failed && st.Notice != nil && st.Notice.Kind == browse.NoticeError
}

// handleOpen redirects to an image the visitor's session has been shown.
// Anything else is a 404, so the route cannot bounce to arbitrary hosts.
func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request) {
	src := r.URL.Query().Get("src")

	_, st, err := s.stored(r)
	if err != nil || !render.Openable(src) || !shown(st, src) {
		hlog.FromRequest(r).Debug().Err(err).Str("src", src).Msg("Image not available to open")
		http.Error(w, "image not available", http.StatusNotFound)
		return
	}
	http.Redirect(w, r, src, http.StatusFound)
}

// shown reports whether src is the image of an entry loaded in st.
func shown(st *browse.State, src string) bool {
	for _, entries := range [][]catalog.Entry{st.CurrentItems, st.Accumulated} {
		for _, e := range entries {
			if e.Image == src {
				return true
			}
		}
	}
	return false
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Session store not ready")
		http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

// stored loads the session named by the request cookie.
func (s *Server) stored(r *http.Request) (string, *browse.State, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || !session.ValidID(c.Value) {
		return "", nil, session.ErrNotFound
	}
	st, err := s.store.Load(r.Context(), c.Value)
	if err != nil {
		return "", nil, err
	}
	return c.Value, st, nil
}

// session resolves the request's session, starting a new one when the cookie
// is missing, malformed, expired or unreadable.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *browse.State, bool) {
	id, st, err := s.stored(r)
	if err == nil {
		return id, st, false
	}
	if !errors.Is(err, session.ErrNotFound) {
		hlog.FromRequest(r).Warn().Err(err).Msg("Session load failed, starting a new session")
	}

	id = session.NewID()
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.sessionTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, browse.NewState(), true
}

func (s *Server) save(r *http.Request, id string, st *browse.State) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()

	if err := s.store.Save(ctx, id, st); err != nil {
		hlog.FromRequest(r).Warn().Err(err).Msg("Session save failed")
	}
}

// loadContext detaches a load from the request so a started load always
// completes; overlapping loads of one session are not sequenced.
func (s *Server) loadContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), s.loadTimeout)
}

func (s *Server) logStep(r *http.Request, err error) {
	if err == nil {
		return
	}
	logger := hlog.FromRequest(r)
	if errors.Is(err, browse.ErrEmptyCorpus) {
		logger.Debug().Err(err).Msg("Search refused")
		return
	}
	logger.Warn().Err(err).Msg("Page load failed")
}

func reply(v browse.View, err error) pageReply {
	out := pageReply{View: v}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
