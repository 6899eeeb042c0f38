package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleetkeys/internal/apperr"
	"fleetkeys/internal/audit"
	"fleetkeys/internal/auth"
	"fleetkeys/internal/config"
	"fleetkeys/internal/models"
	"fleetkeys/internal/services/identity"
)

type loginReq struct {
	Role       string `json:"role"`
	Identifier string `json:"identifier"`
	PIN        string `json:"pin"`
}

func Login(db *gorm.DB, svc *identity.Service, cfg config.Config, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, lg, apperr.Validation("bad_json", "request body is not valid JSON"))
			return
		}
		role := models.Role(strings.ToUpper(strings.TrimSpace(req.Role)))
		if !role.Valid() {
			respondErr(w, lg, apperr.Validation("invalid_role", "role must be DISPATCH, DRIVER, or CLEANING_STAFF"))
			return
		}
		u, err := svc.Verify(r.Context(), role, req.Identifier, req.PIN)
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		jti, err := auth.OpenSession(db, u.ID, cfg.SessionTTL)
		if err != nil {
			respondErr(w, lg, apperr.Internal(err))
			return
		}
		token, err := auth.Sign([]byte(cfg.JWTSecret), u.ID, u.Role, jti, cfg.SessionTTL)
		if err != nil {
			respondErr(w, lg, apperr.Internal(err))
			return
		}
		auth.SetSessionCookie(w, token, cfg.SessionTTL)
		audit.Record(db, lg, u.ID, "auth.login", map[string]any{"role": u.Role})
		respondJSON(w, map[string]any{
			"token":       token,
			"role":        u.Role,
			"full_name":   u.FullName,
			"employee_id": u.EmployeeID,
		})
	}
}

type registerReq struct {
	FullName     string `json:"full_name"`
	LicenseLast4 string `json:"license_last4"`
	Role         string `json:"role"`
	PIN          string `json:"pin"`
}

func Register(db *gorm.DB, svc *identity.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, lg, apperr.Validation("bad_json", "request body is not valid JSON"))
			return
		}
		u, err := svc.Register(r.Context(), identity.RegisterInput{
			FullName:     req.FullName,
			LicenseLast4: req.LicenseLast4,
			Role:         models.Role(strings.ToUpper(strings.TrimSpace(req.Role))),
			PIN:          req.PIN,
		})
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		audit.Record(db, lg, u.ID, "user.register", map[string]any{"employee_id": u.EmployeeID})
		respondJSON(w, map[string]any{"id": u.ID, "employee_id": u.EmployeeID, "role": u.Role})
	}
}

func Logout(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		if err := auth.RevokeSession(db, claims.JWTID); err != nil {
			respondErr(w, lg, apperr.Internal(err))
			return
		}
		auth.ClearSessionCookie(w)
		respondJSON(w, map[string]any{"logged_out": true})
	}
}

func Me(db *gorm.DB, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u models.User
		if err := db.First(&u, "id = ?", auth.Subject(r.Context())).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondErr(w, lg, apperr.NotFound("not_found", "user not found"))
				return
			}
			respondErr(w, lg, apperr.Internal(err))
			return
		}
		respondJSON(w, u)
	}
}
