// Package restapi implements the external REST surface: read-only
// endpoints that map 1:1 onto session store operations, plus public
// ping/health checks. Authorization uses the same auth.TokenVerifier
// boundary and group-scoping rules as the tool dispatcher; the two
// surfaces share no state beyond the session.Store and auth.TokenVerifier
// they're both handed.
package restapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/scraptool/corefetch/internal/auth"
	"github.com/scraptool/corefetch/internal/obslog"
	"github.com/scraptool/corefetch/internal/session"
	"github.com/scraptool/corefetch/internal/toolerr"
)

// Server holds the collaborators every handler needs.
type Server struct {
	store       *session.Store
	verifier    auth.TokenVerifier
	serviceName string
	logger      *obslog.Logger
	startedAt   time.Time
}

func New(store *session.Store, verifier auth.TokenVerifier, serviceName string, logger *obslog.Logger) *Server {
	return &Server{
		store:       store,
		verifier:    verifier,
		serviceName: serviceName,
		logger:      logger,
		startedAt:   time.Now(),
	}
}

// Router builds the chi mux for this server: public ping/health plus the
// three protected session-read endpoints.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ping", s.handlePing)
	r.Get("/health", s.handleHealth)

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/info", s.handleSessionInfo)
		r.Get("/chunks/{index}", s.handleSessionChunk)
		r.Get("/urls", s.handleSessionUrls)
	})

	return r
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "service": s.serviceName})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime_sec": int(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	groups, authErr := s.authenticate(r)
	if authErr != nil {
		writeToolError(w, authErr)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	rec, serr := s.store.Info(sessionID, groups)
	if serr != nil {
		writeToolError(w, classify(serr))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSessionChunk(w http.ResponseWriter, r *http.Request) {
	groups, authErr := s.authenticate(r)
	if authErr != nil {
		writeToolError(w, authErr)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	indexStr := chi.URLParam(r, "index")
	index, err := strconv.Atoi(indexStr)
	if err != nil {
		writeToolError(w, toolerr.New(toolerr.CodeInvalidChunkIndex, "chunk index must be an integer", map[string]string{"chunk_index": indexStr}))
		return
	}

	content, serr := s.store.Chunk(sessionID, index, groups)
	if serr != nil {
		writeToolError(w, classify(serr))
		return
	}
	rec, serr := s.store.Info(sessionID, groups)
	if serr != nil {
		writeToolError(w, classify(serr))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id":   sessionID,
		"chunk_index":  index,
		"total_chunks": rec.TotalChunks,
		"content":      string(content),
	})
}

func (s *Server) handleSessionUrls(w http.ResponseWriter, r *http.Request) {
	groups, authErr := s.authenticate(r)
	if authErr != nil {
		writeToolError(w, authErr)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	baseURL := r.URL.Query().Get("base_url")

	urls, serr := s.store.Urls(sessionID, groups, baseURL)
	if serr != nil {
		writeToolError(w, classify(serr))
		return
	}
	if baseURL != "" {
		chunkURLs := make([]string, 0, len(urls))
		for _, u := range urls {
			chunkURLs = append(chunkURLs, u.URL)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"chunk_urls": chunkURLs})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chunks": urls})
}

// authenticate extracts a Bearer token and resolves it to a group set. A
// missing or absent token resolves to the anonymous (no-group) caller,
// matching the tool dispatcher's behavior: only group-owned sessions are
// gated, so anonymous access to public sessions remains possible.
func (s *Server) authenticate(r *http.Request) ([]string, *toolerr.ToolError) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, toolerr.New(toolerr.CodeAuthError, "Authorization header must use the Bearer scheme", nil)
	}
	if s.verifier == nil {
		return nil, nil
	}
	info, authErr := s.verifier.Verify(token)
	if authErr != nil {
		return nil, toolerr.New(toolerr.CodeAuthError, authErr.Error(), map[string]string{"cause": string(authErr.Cause)})
	}
	return info.Groups, nil
}

// toolCoder mirrors internal/dispatch's boundary-conversion interface: every
// typed component error in this module knows its own wire code.
type toolCoder interface {
	Error() string
	ToolCode() toolerr.Code
}

func classify(err error) *toolerr.ToolError {
	if tc, ok := err.(toolCoder); ok {
		return toolerr.New(tc.ToolCode(), tc.Error(), nil)
	}
	return toolerr.New(toolerr.CodeInternalError, err.Error(), nil)
}

func statusForCode(code toolerr.Code) int {
	switch code {
	case toolerr.CodeAuthError:
		return http.StatusUnauthorized
	case toolerr.CodePermissionDenied:
		return http.StatusForbidden
	case toolerr.CodeSessionNotFound:
		return http.StatusNotFound
	case toolerr.CodeInvalidChunkIndex, toolerr.CodeInvalidArgument:
		return http.StatusBadRequest
	case toolerr.CodeContentTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeToolError(w http.ResponseWriter, e *toolerr.ToolError) {
	writeJSON(w, statusForCode(e.Code), map[string]interface{}{
		"success":           false,
		"error_code":        string(e.Code),
		"error":             e.Message,
		"recovery_strategy": e.Recovery(),
		"details":           e.Details,
	})
}
