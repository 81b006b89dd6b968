package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"support-assistant/internal/config"
	"support-assistant/internal/dialogue"
	"support-assistant/internal/store"
	"support-assistant/internal/types"
)

// turnTimeout bounds a single chat turn, including any LLM fallback call.
const turnTimeout = 20 * time.Second

// Preprocessor exposes the text the classifier actually scores.
type Preprocessor interface {
	Preprocess(raw string) string
}

type Server struct {
	router       *chi.Mux
	store        *store.MemoryStore
	manager      *dialogue.Manager
	preprocessor Preprocessor
	cfg          config.Config
	logger       *zap.Logger
}

func NewServer(cfg config.Config, manager *dialogue.Manager, pre Preprocessor, sessions *store.MemoryStore, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:       r,
		store:        sessions,
		manager:      manager,
		preprocessor: pre,
		cfg:          cfg,
		logger:       logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/menu", s.handleMenu)
	s.router.Post("/api/session", s.handleSession)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Post("/api/classify", s.handleClassify)
}

func (s *Server) Router() http.Handler { return s.router }

// Serve listens on addr until ctx is cancelled, sweeping idle sessions in
// the background.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) sweep(ctx context.Context) {
	interval := s.cfg.SessionTTL / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Sweep(); n > 0 {
				s.logger.Debug("expired sessions removed", zap.Int("count", n))
			}
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, types.MenuResponse{
		Header:  s.manager.Messages().MenuHeader,
		Options: s.menu(),
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	name := s.manager.Messages().DefaultName
	if strings.TrimSpace(req.Name) != "" {
		n, err := dialogue.NormalizeName(req.Name)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, s.manager.Messages().InvalidName)
			return
		}
		name = n
	}

	sess := s.store.Create(name)
	greeting, err := s.manager.Greet(sess)
	if err != nil {
		s.logger.Error("greeting failed", zap.String("session", sess.ID), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "could not start session")
		return
	}
	_ = s.store.AppendTranscript(sess.ID, store.Entry{Role: "assistant", Content: greeting.Text, At: time.Now()})
	s.logger.Info("session created", zap.String("session", sess.ID))

	s.setSessionCookie(w, sess.ID)
	w.Header().Set("X-Session-Id", sess.ID)
	s.writeJSON(w, http.StatusCreated, types.SessionResponse{
		SessionID: sess.ID,
		Name:      sess.Name,
		Greeting:  greeting.Text,
		Menu:      s.menu(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	// Blank input never reaches the store, so it cannot open a session.
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, s.manager.Messages().EmptyInput)
		return
	}

	sid := s.sessionID(w, r, req.SessionID)

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()
	var reply dialogue.Reply
	next, err := s.store.Update(sid, func(sess dialogue.Session) (dialogue.Session, error) {
		next, rep, err := s.manager.Handle(ctx, sess, req.Message)
		if err != nil {
			return sess, err
		}
		reply = rep
		now := time.Now()
		_ = s.store.AppendTranscript(sess.ID,
			store.Entry{Role: "user", Content: rep.Utterance, At: now},
			store.Entry{Role: "assistant", Content: rep.Text, Intent: rep.Label.String(), At: now},
		)
		return next, nil
	})
	switch {
	case errors.Is(err, store.ErrSessionNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, dialogue.ErrEmptyInput):
		s.writeError(w, http.StatusBadRequest, s.manager.Messages().EmptyInput)
		return
	case errors.Is(err, dialogue.ErrSessionTerminated):
		s.writeError(w, http.StatusConflict, "session has ended; start a new one")
		return
	case err != nil:
		s.logger.Error("turn failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "I'm having trouble understanding your request right now. Please try again.")
		return
	}

	resp := types.ChatResponse{
		SessionID:      next.ID,
		Reply:          reply.Text,
		Acknowledgment: reply.Acknowledgment,
		Intent:         reply.Label.String(),
		Sentiment:      string(reply.Sentiment),
		Suggestions:    reply.Suggestions,
		Terminated:     reply.Terminated,
	}
	if reply.ShowMenu {
		resp.Menu = s.menu()
	}
	if reply.Terminated {
		s.clearSessionCookie(w)
	}
	w.Header().Set("X-Session-Id", next.ID)
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req types.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), turnTimeout)
	defer cancel()
	in := s.manager.Inspect(ctx, req.Message)
	s.writeJSON(w, http.StatusOK, types.ClassifyResponse{
		Message:      in.Utterance,
		Preprocessed: s.preprocessor.Preprocess(in.Utterance),
		Intent:       in.Label.String(),
		Predicted:    in.Predicted.String(),
		Score:        in.Score,
		Match:        in.Match,
		Sentiment:    string(in.Sentiment),
		FromMenu:     in.FromMenu,
		Resolved:     in.Resolved,
	})
}

// sessionID picks the session named by the request, or starts one for the
// default name when the request carries no session id at all.
func (s *Server) sessionID(w http.ResponseWriter, r *http.Request, bodyID string) string {
	sid := strings.TrimSpace(bodyID)
	if sid == "" {
		sid = getSessionID(r)
	}
	if sid != "" {
		return sid
	}
	sess := s.store.Create(s.manager.Messages().DefaultName)
	s.logger.Info("session created", zap.String("session", sess.ID), zap.String("endpoint", r.URL.Path))
	s.setSessionCookie(w, sess.ID)
	return sess.ID
}

func (s *Server) menu() []types.MenuOption {
	opts := s.manager.Menu()
	out := make([]types.MenuOption, len(opts))
	for i, o := range opts {
		out[i] = types.MenuOption{Key: o.Key, Title: o.Title, Intent: o.Intent.String()}
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

// getSessionID looks for the session id in the cookie, then the
// X-Session-Id header, then the sessionId query parameter.
func getSessionID(r *http.Request) string {
	if sid := sessionCookie(r); sid != "" {
		return sid
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}
