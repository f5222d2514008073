// Package api provides the HTTP control surface for a groupmemberd node:
// join/leave/members plus health and Prometheus metrics. The gossip
// protocol itself never touches HTTP — this is purely the local
// administrative front door, mirroring the donor's chi-based server shape.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tutu-network/groupmember/internal/domain"
	"github.com/tutu-network/groupmember/internal/runtime"
)

// Server is groupmemberd's HTTP control surface.
type Server struct {
	host *runtime.Host
}

// NewServer creates a Server bound to host.
func NewServer(host *runtime.Host) *Server {
	return &Server{host: host}
}

// Handler returns the chi router with every route mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", s.host.MetricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/join", s.handleJoin)
		r.Post("/leave", s.handleLeave)
		r.Get("/members", s.handleMembers)
	})

	return r
}

// ─── /v1/join ─────────────────────────────────────────────────────────────

type joinRequest struct {
	Seed     string `json:"seed"`
	SeedAddr string `json:"seed_addr,omitempty"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Seed == "" {
		writeError(w, http.StatusBadRequest, "seed is required")
		return
	}
	if req.SeedAddr != "" {
		if err := s.host.SeedAddr(domain.ProcessId(req.Seed), req.SeedAddr); err != nil {
			writeError(w, http.StatusBadRequest, "invalid seed_addr: "+err.Error())
			return
		}
	}

	s.host.Submit(domain.Join{Seed: domain.ProcessId(req.Seed)})
	writeJSON(w, http.StatusOK, map[string]string{"status": "joining"})
}

// ─── /v1/leave ────────────────────────────────────────────────────────────

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	s.host.Submit(domain.Leave{})
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// ─── /v1/members ──────────────────────────────────────────────────────────

type membersResponse struct {
	Members []string `json:"members"`
}

func (s *Server) handleMembers(w http.ResponseWriter, r *http.Request) {
	replies := s.host.Submit(domain.GetMembers{})
	resp := membersResponse{Members: []string{}}
	for _, reply := range replies {
		if members, ok := reply.(domain.Members); ok {
			for _, m := range members.Members {
				resp.Members = append(resp.Members, string(m))
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ─── Shared helpers ───────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{"message": msg},
	})
}
