package api

import (
	"net/http"
	"time"

	"merchantpay/internal/buildinfo"
)

// DebugJSON handles GET /debug/config with build info and non-secret settings.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build":  buildinfo.Info(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"config": s.Cfg.Public(),
	})
}
