package handlers

import (
	"net/http"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleetkeys/internal/auth"
	"fleetkeys/internal/models"
)

// MyLogs returns recent audit entries. Staff see their own; dispatch can
// pass ?all=1 for everyone's.
func MyLogs(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := r.URL.Query().Get("all") == "1"
		var logs []models.AuditLog
		if all && auth.FromContext(r.Context()).Role.IsDispatch() {
			_ = db.Order("created_at desc").Limit(200).Find(&logs).Error
		} else {
			uid := auth.Subject(r.Context())
			_ = db.Where("user_id = ?", uid).Order("created_at desc").Limit(200).Find(&logs).Error
		}
		respondJSON(w, logs)
	}
}
