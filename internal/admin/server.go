package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/velvetlab/nightwhisper/internal/service"
)

// Broadcaster delivers plain text to a single chat. The telegram bot
// satisfies it; tests can stub it.
type Broadcaster interface {
	SendText(chatID int64, text string) error
}

type Server struct {
	addr     string
	username string
	password string
	log      *slog.Logger
	users    *service.UserService
	stats    *service.StatsService
	bot      Broadcaster
	router   *chi.Mux
}

func NewServer(addr, username, password string, log *slog.Logger, users *service.UserService, stats *service.StatsService, bot Broadcaster) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	s := &Server{
		addr:     addr,
		username: username,
		password: password,
		log:      log,
		users:    users,
		stats:    stats,
		bot:      bot,
		router:   r,
	}
	r.Group(func(protected chi.Router) {
		protected.Use(s.basicAuthMiddleware())
		protected.Get("/stats", s.handleStats)
		protected.Get("/inactive", s.handleInactive)
		protected.Post("/broadcast", s.handleBroadcast)
		protected.Route("/users/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetUser)
			r.Post("/premium", s.handleGrantPremium)
			r.Post("/bonus", s.handleGrantBonus)
			r.Post("/block", s.handleBlock)
		})
	})
	return s
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("admin shutdown error", "err", err)
		}
	}()

	s.log.Info("admin panel listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin listen: %w", err)
	}
	return nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	days := 1
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}
	report, err := s.stats.Report(r.Context(), days)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	user, err := s.users.Find(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if user == nil {
		http.Error(w, "user not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, user)
}

type premiumRequest struct {
	Days int `json:"days"`
}

func (s *Server) handleGrantPremium(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req premiumRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Days == 0 {
		http.Error(w, "days required", http.StatusBadRequest)
		return
	}
	if req.Days < 0 {
		if err := s.users.RemovePremium(r.Context(), id); err != nil {
			s.internalError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]any{"premium": false})
		return
	}
	if err := s.users.ExtendPremium(r.Context(), id, req.Days); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"premium": true, "days": req.Days})
}

type bonusRequest struct {
	Count int `json:"count"`
}

func (s *Server) handleGrantBonus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req bonusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.Count <= 0 {
		http.Error(w, "count must be positive", http.StatusBadRequest)
		return
	}
	if err := s.users.AddBonusMessages(r.Context(), id, req.Count); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"bonus": req.Count})
}

type blockRequest struct {
	Blocked bool `json:"blocked"`
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var req blockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := s.users.SetBlocked(r.Context(), id, req.Blocked); err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"blocked": req.Blocked})
}

func (s *Server) handleInactive(w http.ResponseWriter, r *http.Request) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "invalid days", http.StatusBadRequest)
			return
		}
		days = parsed
	}
	users, err := s.users.ListInactive(r.Context(), days)
	if err != nil {
		s.internalError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"days":  days,
		"count": len(users),
		"users": users,
	})
}

type broadcastRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var req broadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		http.Error(w, "message required", http.StatusBadRequest)
		return
	}

	ids, err := s.users.ListIDs(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	count := 0
	for _, id := range ids {
		if err := s.bot.SendText(id, req.Message); err != nil {
			s.log.Error("send broadcast", "user", id, "err", err)
			continue
		}
		count++
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"sent":  count,
		"total": len(ids),
	})
}

func (s *Server) basicAuthMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || user != s.username || pass != s.password {
				w.Header().Set("WWW-Authenticate", `Basic realm="nightwhisper"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("admin handler error", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func parseID(value string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(value), 10, 64)
}
