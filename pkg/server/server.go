// Package server exposes the backend HTTP surface consumed by the front
// ends: chat (plain and streaming), session context management and runtime
// configuration.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"

	"github.com/Lothnic/Ruty/pkg/agent"
	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/memory"
	"github.com/Lothnic/Ruty/pkg/observability"
	"github.com/Lothnic/Ruty/pkg/provider"
	"github.com/Lothnic/Ruty/pkg/session"
	"github.com/Lothnic/Ruty/pkg/tooling"
)

// Server binds the agent and its configuration to HTTP handlers.
type Server struct {
	agent *agent.Agent
	cfg   *config.Store
}

// New builds the handler tree.
func New(ag *agent.Agent, cfg *config.Store) http.Handler {
	s := &Server{agent: ag, cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.withRequestID(s.handleChat))
	mux.HandleFunc("/chat/stream", s.withRequestID(s.handleChatStream))
	mux.HandleFunc("/context/load", s.withRequestID(s.handleContextLoad))
	mux.HandleFunc("/context/clear", s.withRequestID(s.handleContextClear))
	mux.HandleFunc("/sessions", s.withRequestID(s.handleSessions))
	mux.HandleFunc("/providers", s.withRequestID(s.handleProviders))
	mux.HandleFunc("/config", s.withRequestID(s.handleConfig))
	return mux
}

func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := observability.WithRequestID(r.Context(), uuid.NewString())
		next(w, r.WithContext(ctx))
	}
}

type chatRequest struct {
	Message      string            `json:"message"`
	SessionID    string            `json:"session_id"`
	LocalContext string            `json:"local_context,omitempty"`
	APIKeys      map[string]string `json:"api_keys,omitempty"`
}

type chatResponse struct {
	Response  string   `json:"response"`
	ToolsUsed []string `json:"tools_used"`
	SessionID string   `json:"session_id"`
}

// overridesFrom converts the per-request key map into Overrides. The
// "supermemory" entry addresses the remote store; everything else is a
// provider key.
func overridesFrom(apiKeys map[string]string) config.Overrides {
	ov := config.Overrides{APIKeys: map[string]string{}}
	for id, key := range apiKeys {
		if id == "supermemory" {
			ov.SupermemoryKey = key
			continue
		}
		ov.APIKeys[id] = key
	}
	return ov
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		badRequest(w, "message and session_id are required")
		return
	}

	log := observability.LoggerFromContext(r.Context()).With("session_id", req.SessionID)
	log.Info("chat turn started")

	result, err := s.agent.Run(r.Context(), agent.TurnRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		LocalContext: req.LocalContext,
		Overrides:    overridesFrom(req.APIKeys),
	})
	if err != nil {
		log.Error("chat turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	log.Info("chat turn finished", "tools_used", len(result.ToolsUsed))
	writeJSON(w, http.StatusOK, chatResponse{
		Response:  result.Answer,
		ToolsUsed: dedupe(result.ToolsUsed),
		SessionID: req.SessionID,
	})
}

type streamEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) handleChatStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Message == "" {
		badRequest(w, "message and session_id are required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	stream := s.agent.RunStream(r.Context(), agent.TurnRequest{
		SessionID:    req.SessionID,
		Message:      req.Message,
		LocalContext: req.LocalContext,
		Overrides:    overridesFrom(req.APIKeys),
	})
	for stream.Next() {
		ev := stream.Current()
		out := streamEvent{Type: ev.Kind}
		switch ev.Kind {
		case agent.EventToolInvoked:
			out.Name = ev.Name
		case agent.EventAnswer:
			out.Content = ev.Content
		case agent.EventError:
			out.Message = ev.Content
		}
		data, err := json.Marshal(out)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()
	}
}

type contextLoadRequest struct {
	SessionID string `json:"session_id"`
	Path      string `json:"path"`
}

func (s *Server) handleContextLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req contextLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.SessionID == "" || req.Path == "" {
		badRequest(w, "session_id and path are required")
		return
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success": false,
			"error":   fmt.Sprintf("Path not found: %s", req.Path),
		})
		return
	}

	var content, kind string
	if info.IsDir() {
		content = memory.ReadDirContext(req.Path, 0)
		kind = "directory"
	} else {
		content = tooling.ReadFileContext(req.Path)
		kind = "file"
	}

	sess, err := s.agent.Store.Load(req.SessionID)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	if sess == nil {
		sess = session.New(req.SessionID)
	}
	sess.LocalContext = content
	if err := s.agent.Store.Save(sess); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"loaded":  info.Name(),
		"type":    kind,
	})
}

type contextClearRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleContextClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req contextClearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	sess, err := s.agent.Store.Load(req.SessionID)
	if err != nil || sess == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	sess.LocalContext = ""
	if err := s.agent.Store.Save(sess); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	metas, err := s.agent.Store.List()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if metas == nil {
		metas = []session.Meta{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": metas})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, provider.List())
}

type configResponse struct {
	Provider       string            `json:"provider"`
	Model          string            `json:"model,omitempty"`
	CurrentModel   string            `json:"current_model"`
	APIKeys        map[string]string `json:"api_keys"`
	SupermemoryKey string            `json:"supermemory_key,omitempty"`
	Theme          string            `json:"theme"`
	Hotkey         string            `json:"hotkey"`
}

type configUpdateRequest struct {
	Provider       *string           `json:"provider,omitempty"`
	Model          *string           `json:"model,omitempty"`
	APIKeys        map[string]string `json:"api_keys,omitempty"`
	SupermemoryKey *string           `json:"supermemory_key,omitempty"`
	Theme          *string           `json:"theme,omitempty"`
	Hotkey         *string           `json:"hotkey,omitempty"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, maskedConfig(s.cfg.Get()))
	case http.MethodPut:
		var req configUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
		if req.Provider != nil && !provider.Known(*req.Provider) {
			badRequest(w, "unknown provider: "+*req.Provider)
			return
		}
		cfg, err := s.cfg.Update(func(c *config.Config) {
			if req.Provider != nil {
				c.Provider = *req.Provider
			}
			if req.Model != nil {
				c.Model = *req.Model
			}
			for id, key := range req.APIKeys {
				c.APIKeys[id] = key
			}
			if req.SupermemoryKey != nil {
				c.SupermemoryKey = *req.SupermemoryKey
			}
			if req.Theme != nil {
				c.Theme = *req.Theme
			}
			if req.Hotkey != nil {
				c.Hotkey = *req.Hotkey
			}
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, maskedConfig(cfg))
	default:
		methodNotAllowed(w)
	}
}

func maskedConfig(cfg config.Config) configResponse {
	masked := make(map[string]string, len(cfg.APIKeys))
	for id, key := range cfg.APIKeys {
		masked[id] = maskKey(key)
	}
	return configResponse{
		Provider:       cfg.Provider,
		Model:          cfg.Model,
		CurrentModel:   cfg.CurrentModel(),
		APIKeys:        masked,
		SupermemoryKey: maskKey(cfg.SupermemoryKey),
		Theme:          cfg.Theme,
		Hotkey:         cfg.Hotkey,
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "••••"
	}
	return "••••" + key[len(key)-4:]
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := []string{}
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
