// Package reports builds read-only projections over the transaction
// ledger. Nothing here mutates state; "overdue" is a label recomputed on
// every read, never stored.
package reports

import (
	"context"
	"time"

	"gorm.io/gorm"

	"fleetkeys/internal/apperr"
	"fleetkeys/internal/config"
	"fleetkeys/internal/models"
)

type Service struct {
	db  *gorm.DB
	cfg config.Config
}

func New(db *gorm.DB, cfg config.Config) *Service {
	return &Service{db: db, cfg: cfg}
}

// Loan decorates an open transaction with the derived overdue flag.
type Loan struct {
	models.KeyTransaction
	Overdue  bool    `json:"overdue"`
	HoursOut float64 `json:"hours_out"`
}

// ActiveLoans returns all open transactions, newest first.
func (s *Service) ActiveLoans(ctx context.Context) ([]Loan, error) {
	return s.loans(ctx, false)
}

// OverdueLoans returns the open transactions past the overdue threshold.
func (s *Service) OverdueLoans(ctx context.Context) ([]Loan, error) {
	return s.loans(ctx, true)
}

func (s *Service) loans(ctx context.Context, overdueOnly bool) ([]Loan, error) {
	now := time.Now()
	q := s.db.WithContext(ctx).
		Preload("Key").Preload("Key.Vehicle").Preload("User").
		Where("status = ?", models.TxCheckedOut)
	if overdueOnly {
		q = q.Where("checkout_time < ?", now.Add(-s.cfg.OverdueAfter))
	}
	var txns []models.KeyTransaction
	if err := q.Order("checkout_time desc").Find(&txns).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	loans := make([]Loan, 0, len(txns))
	for _, t := range txns {
		out := now.Sub(t.CheckoutTime)
		loans = append(loans, Loan{
			KeyTransaction: t,
			Overdue:        out > s.cfg.OverdueAfter,
			HoursOut:       out.Hours(),
		})
	}
	return loans, nil
}

type Stats struct {
	TotalKeys       int64 `json:"total_keys"`
	AvailableKeys   int64 `json:"available_keys"`
	MaintenanceKeys int64 `json:"maintenance_keys"`
	LostKeys        int64 `json:"lost_keys"`
	ActiveLoans     int64 `json:"active_loans"`
	OverdueLoans    int64 `json:"overdue_loans"`
	TotalStaff      int64 `json:"total_staff"`
}

func (s *Service) DashboardStats(ctx context.Context) (Stats, error) {
	db := s.db.WithContext(ctx)
	var st Stats
	db.Model(&models.Key{}).Count(&st.TotalKeys)
	db.Model(&models.Key{}).Where("status = ?", models.KeyAvailable).Count(&st.AvailableKeys)
	db.Model(&models.Key{}).Where("status = ?", models.KeyMaintenance).Count(&st.MaintenanceKeys)
	db.Model(&models.Key{}).Where("status = ?", models.KeyLost).Count(&st.LostKeys)
	db.Model(&models.KeyTransaction{}).Where("status = ?", models.TxCheckedOut).Count(&st.ActiveLoans)
	db.Model(&models.KeyTransaction{}).
		Where("status = ? AND checkout_time < ?", models.TxCheckedOut, time.Now().Add(-s.cfg.OverdueAfter)).
		Count(&st.OverdueLoans)
	db.Model(&models.User{}).Where("role IN ?", []models.Role{models.RoleDriver, models.RoleCleaningStaff}).Count(&st.TotalStaff)
	return st, nil
}

type VehicleUsage struct {
	Vehicle  models.Vehicle `json:"vehicle"`
	Uses     int64          `json:"uses"`
	LastUsed *time.Time     `json:"last_used,omitempty"`
}

// VehicleUsageReport counts closed loans per vehicle, ordered by unit.
func (s *Service) VehicleUsageReport(ctx context.Context) ([]VehicleUsage, error) {
	var vehicles []models.Vehicle
	if err := s.db.WithContext(ctx).Order("unit_number asc").Find(&vehicles).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	closed, err := s.closedLoans(ctx)
	if err != nil {
		return nil, err
	}

	uses := make(map[string]int64)
	last := make(map[string]*time.Time)
	for i := range closed {
		vid := closed[i].Key.VehicleID
		uses[vid]++
		if t := closed[i].CheckinTime; t != nil {
			if prev := last[vid]; prev == nil || t.After(*prev) {
				last[vid] = t
			}
		}
	}

	report := make([]VehicleUsage, 0, len(vehicles))
	for _, v := range vehicles {
		report = append(report, VehicleUsage{Vehicle: v, Uses: uses[v.ID], LastUsed: last[v.ID]})
	}
	return report, nil
}

type DriverUsage struct {
	User            models.User `json:"user"`
	Uses            int64       `json:"uses"`
	MostUsedVehicle string      `json:"most_used_vehicle,omitempty"`
}

// DriverUsageReport counts closed loans per staff member and names each
// member's most-used vehicle by unit number.
func (s *Service) DriverUsageReport(ctx context.Context) ([]DriverUsage, error) {
	var users []models.User
	err := s.db.WithContext(ctx).
		Where("role IN ?", []models.Role{models.RoleDriver, models.RoleCleaningStaff}).
		Order("full_name asc").Find(&users).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	closed, err := s.closedLoans(ctx)
	if err != nil {
		return nil, err
	}

	uses := make(map[string]int64)
	perVehicle := make(map[string]map[string]int64)
	for i := range closed {
		uid := closed[i].UserID
		uses[uid]++
		if perVehicle[uid] == nil {
			perVehicle[uid] = make(map[string]int64)
		}
		perVehicle[uid][closed[i].Key.Vehicle.UnitNumber]++
	}

	report := make([]DriverUsage, 0, len(users))
	for _, u := range users {
		du := DriverUsage{User: u, Uses: uses[u.ID]}
		var best int64
		for unit, n := range perVehicle[u.ID] {
			if n > best || (n == best && du.MostUsedVehicle == "") {
				best = n
				du.MostUsedVehicle = unit
			}
		}
		report = append(report, du)
	}
	return report, nil
}

// Incidents lists closed transactions returned in less-than-good
// condition, newest first.
func (s *Service) Incidents(ctx context.Context) ([]models.KeyTransaction, error) {
	var txns []models.KeyTransaction
	err := s.db.WithContext(ctx).
		Preload("Key").Preload("Key.Vehicle").Preload("User").
		Where("status = ? AND vehicle_condition <> ?", models.TxCheckedIn, models.ConditionGood).
		Order("checkin_time desc").
		Find(&txns).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return txns, nil
}

const historyCap = 50

// History lists recent returns, newest first, capped.
func (s *Service) History(ctx context.Context, limit int) ([]models.KeyTransaction, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	var txns []models.KeyTransaction
	err := s.db.WithContext(ctx).
		Preload("Key").Preload("Key.Vehicle").Preload("User").
		Where("status = ?", models.TxCheckedIn).
		Order("checkin_time desc").
		Limit(limit).
		Find(&txns).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return txns, nil
}

func (s *Service) closedLoans(ctx context.Context) ([]models.KeyTransaction, error) {
	var txns []models.KeyTransaction
	err := s.db.WithContext(ctx).
		Preload("Key").Preload("Key.Vehicle").
		Where("status = ?", models.TxCheckedIn).
		Find(&txns).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return txns, nil
}
