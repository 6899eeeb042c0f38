package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"fleetkeys/internal/apperr"
	"fleetkeys/internal/audit"
	"fleetkeys/internal/auth"
	"fleetkeys/internal/services/fleet"
	"fleetkeys/internal/services/reports"
)

type vehicleReq struct {
	UnitNumber  string `json:"unit_number"`
	PlateNumber string `json:"plate_number"`
	VehicleType string `json:"vehicle_type"`
	Brand       string `json:"brand"`
	Model       string `json:"model"`
	Year        int    `json:"year"`
	Color       string `json:"color,omitempty"`
}

func RegisterVehicle(db *gorm.DB, svc *fleet.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req vehicleReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, lg, apperr.Validation("bad_json", "request body is not valid JSON"))
			return
		}
		v, err := svc.RegisterVehicle(r.Context(), fleet.VehicleInput{
			UnitNumber:  req.UnitNumber,
			PlateNumber: req.PlateNumber,
			VehicleType: req.VehicleType,
			Brand:       req.Brand,
			Model:       req.Model,
			Year:        req.Year,
			Color:       req.Color,
		})
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		audit.Record(db, lg, auth.Subject(r.Context()), "vehicle.register", map[string]any{
			"vehicle_id": v.ID, "unit_number": v.UnitNumber,
		})
		respondJSON(w, v)
	}
}

type keyReq struct {
	KeyNumber string `json:"key_number"`
	VehicleID string `json:"vehicle_id"`
	Location  string `json:"location"`
	Notes     string `json:"notes,omitempty"`
}

func RegisterKey(db *gorm.DB, svc *fleet.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req keyReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondErr(w, lg, apperr.Validation("bad_json", "request body is not valid JSON"))
			return
		}
		k, err := svc.RegisterKey(r.Context(), fleet.KeyInput{
			KeyNumber: req.KeyNumber,
			VehicleID: req.VehicleID,
			Location:  req.Location,
			Notes:     req.Notes,
		})
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		audit.Record(db, lg, auth.Subject(r.Context()), "key.register", map[string]any{
			"key_id": k.ID, "key_number": k.KeyNumber,
		})
		respondJSON(w, k)
	}
}

func Dashboard(svc *reports.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.DashboardStats(r.Context())
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, stats)
	}
}

// ActiveLoans lists open loans; ?overdue=1 narrows to the overdue subset.
func ActiveLoans(svc *reports.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			loans []reports.Loan
			err   error
		)
		if r.URL.Query().Get("overdue") == "1" {
			loans, err = svc.OverdueLoans(r.Context())
		} else {
			loans, err = svc.ActiveLoans(r.Context())
		}
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, loans)
	}
}

func VehicleReport(svc *reports.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.VehicleUsageReport(r.Context())
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, report)
	}
}

func DriverReport(svc *reports.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := svc.DriverUsageReport(r.Context())
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, report)
	}
}

func IncidentReport(svc *reports.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		incidents, err := svc.Incidents(r.Context())
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, incidents)
	}
}

func History(svc *reports.Service, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		txns, err := svc.History(r.Context(), limit)
		if err != nil {
			respondErr(w, lg, err)
			return
		}
		respondJSON(w, txns)
	}
}
