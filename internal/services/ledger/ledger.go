// Package ledger implements the key checkout/check-in protocol. Every
// mutation runs inside one database transaction, and the status flips are
// conditional updates checked through RowsAffected, so a reader can never
// observe a CHECKED_OUT key without exactly one open loan on it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
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

// Checkout opens a loan: a CHECKED_OUT transaction row plus the key and
// vehicle status flips, all or nothing.
func (s *Service) Checkout(ctx context.Context, userID string, role models.Role, keyID string) (*models.KeyTransaction, error) {
	if !role.CanHoldKeys() {
		return nil, apperr.E(apperr.KindForbidden, "not_authorized", "this role cannot check out keys")
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return nil, apperr.Validation("missing_key", "key id required")
	}

	var txn models.KeyTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var key models.Key
		if err := tx.First(&key, "id = ?", keyID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("not_found", "key not found")
			}
			return apperr.Internal(err)
		}
		if key.Status != models.KeyAvailable {
			return apperr.Conflict("not_available",
				fmt.Sprintf("key is not available (current status: %s)", key.Status))
		}

		// Double-check against the status flag: the flag and the open
		// loan must never disagree.
		var open int64
		tx.Model(&models.KeyTransaction{}).
			Where("key_id = ? AND status = ?", key.ID, models.TxCheckedOut).
			Count(&open)
		if open > 0 {
			return apperr.Conflict("already_in_use", "key already has an open loan")
		}

		var mine int64
		tx.Model(&models.KeyTransaction{}).
			Where("user_id = ? AND status = ?", userID, models.TxCheckedOut).
			Count(&mine)
		if int(mine) >= s.cfg.MaxOpenLoans {
			return apperr.Conflict("loan_limit_exceeded",
				fmt.Sprintf("cannot hold more than %d keys at once", s.cfg.MaxOpenLoans))
		}

		now := time.Now()
		res := tx.Model(&models.Key{}).
			Where("id = ? AND status = ?", key.ID, models.KeyAvailable).
			Updates(map[string]any{"status": models.KeyCheckedOut, "updated_at": now})
		if res.Error != nil {
			return apperr.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			// A concurrent checkout won the conditional update.
			return apperr.Conflict("not_available", "key is not available")
		}
		if err := tx.Model(&models.Vehicle{}).
			Where("id = ?", key.VehicleID).
			Updates(map[string]any{"status": models.VehicleInUse, "updated_at": now}).Error; err != nil {
			return apperr.Internal(err)
		}

		txn = models.KeyTransaction{
			ID:           uuid.NewString(),
			KeyID:        key.ID,
			UserID:       userID,
			Status:       models.TxCheckedOut,
			CheckoutTime: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &txn, nil
}

// Checkin closes a loan. Only the holder may return the key; a second
// return of the same transaction is rejected. A bad-condition return
// requires an incident report and sends the vehicle to maintenance.
func (s *Service) Checkin(ctx context.Context, userID, transactionID string, condition models.VehicleCondition, incidentReport string) (*models.KeyTransaction, error) {
	if !condition.Valid() {
		return nil, apperr.Validation("invalid_condition", "vehicle condition is not valid")
	}
	report := strings.TrimSpace(incidentReport)
	if condition.RequiresReport() {
		if len(report) < 10 || len(report) > 1000 {
			return nil, apperr.Validation("invalid_report",
				"incident report must be between 10 and 1000 characters")
		}
	}

	var txn models.KeyTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&txn, "id = ?", strings.TrimSpace(transactionID)).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("not_found", "transaction not found")
			}
			return apperr.Internal(err)
		}
		if txn.UserID != userID {
			return apperr.E(apperr.KindForbidden, "not_owner", "only the holder may return this key")
		}
		if txn.Status != models.TxCheckedOut {
			return apperr.Conflict("already_returned", "this key was already returned")
		}

		now := time.Now()
		if s.cfg.MinLoanDwell > 0 && now.Sub(txn.CheckoutTime) < s.cfg.MinLoanDwell {
			return apperr.Conflict("too_soon",
				fmt.Sprintf("key can be returned %s after checkout at the earliest", s.cfg.MinLoanDwell))
		}

		updates := map[string]any{
			"status":            models.TxCheckedIn,
			"checkin_time":      now,
			"vehicle_condition": condition,
			"updated_at":        now,
		}
		if report != "" {
			updates["incident_report"] = report
		}
		res := tx.Model(&models.KeyTransaction{}).
			Where("id = ? AND status = ?", txn.ID, models.TxCheckedOut).
			Updates(updates)
		if res.Error != nil {
			return apperr.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("already_returned", "this key was already returned")
		}

		if err := tx.Model(&models.Key{}).
			Where("id = ?", txn.KeyID).
			Updates(map[string]any{"status": models.KeyAvailable, "updated_at": now}).Error; err != nil {
			return apperr.Internal(err)
		}
		vehicleStatus := models.VehicleAvailable
		if condition != models.ConditionGood {
			vehicleStatus = models.VehicleMaintenance
		}
		var key models.Key
		if err := tx.First(&key, "id = ?", txn.KeyID).Error; err != nil {
			return apperr.Internal(err)
		}
		if err := tx.Model(&models.Vehicle{}).
			Where("id = ?", key.VehicleID).
			Updates(map[string]any{"status": vehicleStatus, "updated_at": now}).Error; err != nil {
			return apperr.Internal(err)
		}

		txn.Status = models.TxCheckedIn
		txn.CheckinTime = &now
		txn.VehicleCondition = &condition
		if report != "" {
			txn.IncidentReport = &report
		}
		txn.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &txn, nil
}

// Availability classifications returned by SearchByKeyNumber. A key held
// by someone else is only reported as held, with the holder's name; no
// action on it is offered.
const (
	ViewAvailable         = "AVAILABLE"
	ViewCheckedOutByMe    = "CHECKED_OUT_BY_ME"
	ViewCheckedOutByOther = "CHECKED_OUT_BY_OTHER"
)

type KeyView struct {
	Key           models.Key `json:"key"`
	Availability  string     `json:"availability"`
	TransactionID string     `json:"transaction_id,omitempty"`
	HeldBy        string     `json:"held_by,omitempty"`
	CheckoutTime  *time.Time `json:"checkout_time,omitempty"`
}

// SearchByKeyNumber matches the printed key number, case-insensitively and
// exactly, and classifies the key relative to the caller.
func (s *Service) SearchByKeyNumber(ctx context.Context, number, callerID string) (*KeyView, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" {
		return nil, apperr.Validation("missing_number", "key number required")
	}

	var key models.Key
	err := s.db.WithContext(ctx).Preload("Vehicle").
		First(&key, "UPPER(key_number) = ?", number).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("not_found", "no key found with that number")
		}
		return nil, apperr.Internal(err)
	}

	view := KeyView{Key: key, Availability: string(key.Status)}
	if key.Status == models.KeyCheckedOut {
		var txn models.KeyTransaction
		if err := s.db.WithContext(ctx).Preload("User").
			First(&txn, "key_id = ? AND status = ?", key.ID, models.TxCheckedOut).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		if txn.UserID == callerID {
			view.Availability = ViewCheckedOutByMe
			view.TransactionID = txn.ID
		} else {
			view.Availability = ViewCheckedOutByOther
			view.HeldBy = txn.User.FullName
		}
		view.CheckoutTime = &txn.CheckoutTime
	}
	return &view, nil
}

// OpenLoans lists the caller's open transactions, newest first.
func (s *Service) OpenLoans(ctx context.Context, userID string) ([]models.KeyTransaction, error) {
	var txns []models.KeyTransaction
	err := s.db.WithContext(ctx).
		Preload("Key").Preload("Key.Vehicle").
		Where("user_id = ? AND status = ?", userID, models.TxCheckedOut).
		Order("checkout_time desc").
		Find(&txns).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return txns, nil
}
