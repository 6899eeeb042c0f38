package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleetkeys/internal/models"
)

// SessionCookie is the httpOnly cookie carrying the session token.
const SessionCookie = "fleetkeys_session"

// OpenSession records a new revocable session row and returns its jti.
func OpenSession(db *gorm.DB, userID string, ttl time.Duration) (string, error) {
	s := models.Session{
		JTI:       uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(ttl),
		CreatedAt: time.Now(),
	}
	if err := db.Create(&s).Error; err != nil {
		return "", err
	}
	return s.JTI, nil
}

// RevokeSession marks the session unusable. Idempotent.
func RevokeSession(db *gorm.DB, jti string) error {
	now := time.Now()
	return db.Model(&models.Session{}).
		Where("jti = ? AND revoked_at IS NULL", jti).
		Update("revoked_at", &now).Error
}

func SetSessionCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
