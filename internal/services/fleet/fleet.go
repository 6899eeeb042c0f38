// Package fleet owns vehicle and key registration, a dispatch-only surface.
package fleet

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleetkeys/internal/apperr"
	"fleetkeys/internal/models"
)

type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service {
	return &Service{db: db}
}

type VehicleInput struct {
	UnitNumber  string
	PlateNumber string
	VehicleType string
	Brand       string
	Model       string
	Year        int
	Color       string
}

func (s *Service) RegisterVehicle(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	in.UnitNumber = strings.TrimSpace(in.UnitNumber)
	in.PlateNumber = strings.ToUpper(strings.TrimSpace(in.PlateNumber))
	in.VehicleType = strings.TrimSpace(in.VehicleType)
	in.Brand = strings.TrimSpace(in.Brand)
	in.Model = strings.TrimSpace(in.Model)

	if in.UnitNumber == "" || in.PlateNumber == "" || in.VehicleType == "" || in.Brand == "" || in.Model == "" {
		return nil, apperr.Validation("missing_fields", "unit, plate, type, brand, and model are required")
	}
	if in.Year < 1980 || in.Year > time.Now().Year()+1 {
		return nil, apperr.Validation("invalid_year", "vehicle year is out of range")
	}

	v := models.Vehicle{
		ID:          uuid.NewString(),
		UnitNumber:  in.UnitNumber,
		PlateNumber: in.PlateNumber,
		VehicleType: in.VehicleType,
		Brand:       in.Brand,
		Model:       in.Model,
		Year:        in.Year,
		Status:      models.VehicleAvailable,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if c := strings.TrimSpace(in.Color); c != "" {
		v.Color = &c
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		tx.Model(&models.Vehicle{}).Where("unit_number = ?", in.UnitNumber).Count(&n)
		if n > 0 {
			return apperr.Conflict("duplicate_unit", "a vehicle with this unit number already exists")
		}
		tx.Model(&models.Vehicle{}).Where("plate_number = ?", in.PlateNumber).Count(&n)
		if n > 0 {
			return apperr.Conflict("duplicate_plate", "a vehicle with this plate already exists")
		}
		if err := tx.Create(&v).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &v, nil
}

type KeyInput struct {
	KeyNumber string
	VehicleID string
	Location  string
	Notes     string
}

// RegisterKey creates a key for a vehicle. Key numbers are stored
// uppercase, and a vehicle may have at most one key.
func (s *Service) RegisterKey(ctx context.Context, in KeyInput) (*models.Key, error) {
	in.KeyNumber = strings.ToUpper(strings.TrimSpace(in.KeyNumber))
	in.VehicleID = strings.TrimSpace(in.VehicleID)
	in.Location = strings.TrimSpace(in.Location)

	if in.KeyNumber == "" || in.VehicleID == "" || in.Location == "" {
		return nil, apperr.Validation("missing_fields", "key number, vehicle, and location are required")
	}

	k := models.Key{
		ID:        uuid.NewString(),
		KeyNumber: in.KeyNumber,
		VehicleID: in.VehicleID,
		Location:  in.Location,
		Status:    models.KeyAvailable,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if n := strings.TrimSpace(in.Notes); n != "" {
		k.Notes = &n
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle models.Vehicle
		if err := tx.First(&vehicle, "id = ?", in.VehicleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("not_found", "vehicle not found")
			}
			return apperr.Internal(err)
		}
		var n int64
		tx.Model(&models.Key{}).Where("UPPER(key_number) = ?", in.KeyNumber).Count(&n)
		if n > 0 {
			return apperr.Conflict("duplicate_key", "this key number is already registered")
		}
		tx.Model(&models.Key{}).Where("vehicle_id = ?", in.VehicleID).Count(&n)
		if n > 0 {
			return apperr.Conflict("vehicle_has_key", "this vehicle already has a key assigned")
		}
		if err := tx.Create(&k).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &k, nil
}

func (s *Service) ListKeys(ctx context.Context) ([]models.Key, error) {
	var keys []models.Key
	err := s.db.WithContext(ctx).Preload("Vehicle").
		Order("key_number asc").Find(&keys).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return keys, nil
}
