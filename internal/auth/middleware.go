package auth

import (
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	"fleetkeys/internal/models"
)

// tokenFromRequest accepts the session cookie or a bearer header, in that
// order. The kiosk UI uses the cookie; scripted callers use the header.
func tokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// SessionAuth validates the token signature, the backing Session row, and
// that the account is still active. Anything else is a 401 and the cookie
// is discarded.
func SessionAuth(db *gorm.DB, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := tokenFromRequest(r)
			if raw == "" {
				http.Error(w, "missing session token", http.StatusUnauthorized)
				return
			}
			claims, err := Verify(secret, raw)
			if err != nil {
				ClearSessionCookie(w)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}
			var sess models.Session
			if db.First(&sess, "jti = ?", claims.JWTID).Error != nil {
				ClearSessionCookie(w)
				http.Error(w, "session not found", http.StatusUnauthorized)
				return
			}
			if sess.RevokedAt != nil || time.Now().After(sess.ExpiresAt) {
				ClearSessionCookie(w)
				http.Error(w, "session expired or revoked", http.StatusUnauthorized)
				return
			}
			var active int64
			db.Model(&models.User{}).
				Where("id = ? AND is_active = ?", claims.Subject, true).
				Count(&active)
			if active == 0 {
				ClearSessionCookie(w)
				http.Error(w, "account inactive", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireDispatch gates the fleet-management and reporting surface.
func RequireDispatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !FromContext(r.Context()).Role.IsDispatch() {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
