package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleetkeys/internal/apperr"
	"fleetkeys/internal/audit"
	"fleetkeys/internal/auth"
	"fleetkeys/internal/models"
	"fleetkeys/internal/services/fleet"
	"fleetkeys/internal/services/ledger"
)

func ListKeys(svc *fleet.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := svc.ListKeys(r.Context())
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, keys)
	}
}

func SearchKey(svc *ledger.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := r.URL.Query().Get("number")
		view, err := svc.SearchByKeyNumber(r.Context(), number, auth.Subject(r.Context()))
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, view)
	}
}

func CheckoutKey(db *gorm.DB, svc *ledger.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := auth.FromContext(r.Context())
		txn, err := svc.Checkout(r.Context(), claims.Subject, claims.Role, chi.URLParam(r, "id"))
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		audit.Record(db, lg, claims.Subject, "key.checkout", map[string]any{
			"key_id": txn.KeyID, "transaction_id": txn.ID,
		})
		respondJSON(w, txn)
	}
}

type checkinReq struct {
	Condition      string `json:"condition"`
	IncidentReport string `json:"incident_report,omitempty"`
}

func CheckinKey(db *gorm.DB, svc *ledger.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req checkinReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, lg, apperr.Validation("bad_json", "request body is not valid JSON"))
			return
		}
		claims := auth.FromContext(r.Context())
		condition := models.VehicleCondition(strings.ToUpper(strings.TrimSpace(req.Condition)))
		txn, err := svc.Checkin(r.Context(), claims.Subject, chi.URLParam(r, "id"), condition, req.IncidentReport)
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		audit.Record(db, lg, claims.Subject, "key.checkin", map[string]any{
			"transaction_id": txn.ID, "condition": condition,
		})
		respondJSON(w, txn)
	}
}

func MyLoans(svc *ledger.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		txns, err := svc.OpenLoans(r.Context(), auth.Subject(r.Context()))
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, txns)
	}
}
