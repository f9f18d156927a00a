package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"hashpaste/internal/metrics"
	"hashpaste/internal/model"
	"hashpaste/internal/render"
	"hashpaste/internal/secrets"
	"hashpaste/internal/store"
	"hashpaste/internal/util"
)

const maxIDAttempts = 10

type createRequest struct {
	Text string `json:"text"`
	Lang string `json:"lang"`
}

type createResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// pageURL is the address of the page showing id.
func (s *Server) pageURL(r *http.Request, id string) string {
	if s.Config.PublicBase != "" {
		return strings.TrimRight(s.Config.PublicBase, "/") + "/#" + id
	}
	scheme := "http"
	if r.Header.Get("X-Forwarded-Proto") == "https" || r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/#" + id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.Config.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "error reading body")
		return
	}

	var req createRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if s.Config.BlockSecrets {
		if fs := secrets.Scan(req.Text); len(fs) > 0 {
			s.Log.Info("rejected paste containing credentials", zap.Int("findings", len(fs)))
			writeError(w, http.StatusUnprocessableEntity, "paste looks like it contains credentials:\n"+secrets.Brief(fs, 5))
			return
		}
	}

	now := s.now().UTC()
	p := model.Paste{
		Text:      req.Text,
		Lang:      render.Normalize(req.Lang),
		CreatedAt: now,
	}
	if s.Config.TTL > 0 {
		p.ExpiresAt = now.Add(s.Config.TTL)
	}

	for tried := 0; tried < maxIDAttempts; tried++ {
		p.ID, err = util.NewID(s.Config.IDLength)
		if err != nil {
			s.Log.Error("id generation failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not generate identifier")
			return
		}
		ok, err := s.Store.Create(r.Context(), p)
		if err != nil {
			s.Log.Error("store create failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not store paste")
			return
		}
		if ok {
			metrics.PastesCreated.Inc()
			s.Log.Debug("created paste", zap.String("id", p.ID), zap.String("lang", p.Lang), zap.Int("bytes", len(p.Text)))
			w.Header().Set("Location", s.pageURL(r, p.ID))
			writeJSON(w, http.StatusCreated, createResponse{ID: p.ID})
			return
		}
		metrics.IDCollisions.Inc()
	}

	s.Log.Error("could not generate unique identifier", zap.Int("attempts", maxIDAttempts))
	writeError(w, http.StatusInternalServerError, "could not generate identifier")
}

// lookup fetches the {id} paste, writing the error response itself on failure.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, endpoint string) (model.Paste, bool) {
	id := chi.URLParam(r, "id")
	p, err := s.Store.Get(r.Context(), id)
	switch {
	case err == nil:
		metrics.PasteLookups.WithLabelValues(endpoint, "hit").Inc()
		return p, true
	case errors.Is(err, store.ErrNotFound):
		metrics.PasteLookups.WithLabelValues(endpoint, "miss").Inc()
		writeError(w, http.StatusNotFound, "paste not found")
	default:
		metrics.PasteLookups.WithLabelValues(endpoint, "error").Inc()
		s.Log.Error("store get failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load paste")
	}
	return model.Paste{}, false
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r, "paste")
	if !ok {
		return
	}
	p.Lang = p.LangOrDefault()
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	p, ok := s.lookup(w, r, "raw")
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, p.Text)
}

func (s *Server) handleLangs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, render.Languages())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	rt := util.ReadRuntime()
	status := http.StatusOK
	body := map[string]any{
		"status":     "ok",
		"alloc":      util.HumanBytes(rt.Alloc),
		"sys":        util.HumanBytes(rt.Sys),
		"goroutines": rt.Goroutines,
	}
	n, err := s.Store.Count(r.Context())
	if err != nil {
		s.Log.Warn("store count failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	} else {
		body["pastes"] = n
	}
	writeJSON(w, status, body)
}
