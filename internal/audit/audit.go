// Package audit appends best-effort audit entries. A failed audit write is
// logged and swallowed; it never fails the operation it describes.
package audit

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleetkeys/internal/models"
)

func Record(db *gorm.DB, lg *zap.SugaredLogger, userID, action string, meta map[string]any) {
	entry := models.AuditLog{
		Action:    action,
		Metadata:  models.JSONB("{}"),
		CreatedAt: time.Now(),
	}
	if userID != "" {
		entry.UserID = &userID
	}
	if len(meta) > 0 {
		if b, err := json.Marshal(meta); err == nil {
			entry.Metadata = models.JSONB(b)
		}
	}
	if err := db.Create(&entry).Error; err != nil {
		lg.Warnw("audit write failed", "action", action, "error", err)
	}
}
