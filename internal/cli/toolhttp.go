package cli

import (
	"encoding/json"
	"net/http"
	"strings"
)

// dispatchHTTPHandler exposes the tool dispatcher over a single HTTP
// endpoint: POST /tools/dispatch with {"tool": "...", "args": {...}}. This
// is the minimal wire shape the serve command needs to drive the
// dispatcher over HTTP at all, not an agent-protocol transport framing.
func dispatchHTTPHandler(comp *components) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		var req struct {
			Tool string                 `json:"tool"`
			Args map[string]interface{} `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"success":    false,
				"error_code": "INVALID_ARGUMENT",
				"error":      "request body must be JSON with a \"tool\" field",
			})
			return
		}
		req.Tool = strings.TrimSpace(req.Tool)

		out := comp.dispatcher.Dispatch(r.Context(), req.Tool, req.Args)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	}
}
