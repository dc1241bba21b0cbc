package httpapi

import (
	"encoding/json"
	"net/http"
)

// writeJSON is the 200-path shortcut; error responses go through
// WriteError so they carry the envelope.
func writeJSON(w http.ResponseWriter, v any) {
	_ = json.NewEncoder(w).Encode(v)
}

// methodMux dispatches one route by HTTP method.
func methodMux(byMethod map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, ok := byMethod[r.Method]
		if !ok {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h(w, r)
	}
}
