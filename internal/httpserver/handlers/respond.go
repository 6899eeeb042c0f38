package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"fleetkeys/internal/apperr"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// respondErr is the single place service errors become HTTP responses.
// Internal errors are logged in full and surfaced generically.
func respondErr(w http.ResponseWriter, lg *zap.SugaredLogger, err error) {
	ae := apperr.From(err)
	if ae.Kind == apperr.KindInternal {
		lg.Errorw("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Kind.Status())
	_ = json.NewEncoder(w).Encode(map[string]any{"code": ae.Code, "error": ae.Message})
}
