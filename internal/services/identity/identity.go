// Package identity owns user lookup, PIN verification, and self-service
// registration for drivers and cleaning staff. Dispatch accounts are seeded
// at boot and never self-register.
package identity

import (
	"context"
	"errors"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleetkeys/internal/apperr"
	"fleetkeys/internal/auth"
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

var (
	// Letters, accented letters, and spaces. Same charset the kiosk
	// registration form accepted.
	nameRe  = regexp.MustCompile(`^[a-zA-ZáéíóúÁÉÍÓÚñÑ\s]+$`)
	last4Re = regexp.MustCompile(`^\d{4}$`)
	pinRe   = regexp.MustCompile(`^\d{4,6}$`)
)

// errInvalidCredentials is shared by every verification failure so a caller
// cannot distinguish a missing identifier from a wrong PIN.
func errInvalidCredentials() *apperr.Error {
	return apperr.E(apperr.KindUnauthorized, "invalid_credentials", "incorrect identifier or PIN")
}

// Verify authenticates a caller. Dispatch logs in by dispatch id; drivers
// and cleaning staff by the last 4 digits of their license.
func (s *Service) Verify(ctx context.Context, role models.Role, identifier, pin string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	pin = strings.TrimSpace(pin)
	if identifier == "" || pin == "" {
		return nil, apperr.Validation("missing_fields", "identifier and PIN are required")
	}
	if !pinRe.MatchString(pin) {
		return nil, apperr.Validation("invalid_pin", "PIN must be 4 to 6 digits")
	}

	var u models.User
	var err error
	switch {
	case role.IsDispatch():
		err = s.db.WithContext(ctx).
			First(&u, "dispatch_id = ? AND role = ? AND is_active = ?", identifier, models.RoleDispatch, true).Error
	default:
		if !last4Re.MatchString(identifier) {
			return nil, apperr.Validation("invalid_license", "license identifier must be exactly 4 digits")
		}
		err = s.db.WithContext(ctx).
			First(&u, "license_last4 = ? AND role IN ? AND is_active = ?",
				identifier, []models.Role{models.RoleDriver, models.RoleCleaningStaff}, true).Error
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errInvalidCredentials()
		}
		return nil, apperr.Internal(err)
	}
	if auth.CheckPIN(u.PINHash, pin) != nil {
		return nil, errInvalidCredentials()
	}
	return &u, nil
}

type RegisterInput struct {
	FullName     string
	LicenseLast4 string
	Role         models.Role
	PIN          string
}

// Register creates a driver or cleaning-staff account. Validations run in
// intake order and report the first failure; the PIN is stored only as a
// bcrypt hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.LicenseLast4 = strings.TrimSpace(in.LicenseLast4)
	in.PIN = strings.TrimSpace(in.PIN)

	if in.FullName == "" || in.LicenseLast4 == "" || in.PIN == "" || in.Role == "" {
		return nil, apperr.Validation("missing_fields", "all fields are required")
	}
	if len(in.FullName) < 3 {
		return nil, apperr.Validation("invalid_name", "full name must be at least 3 characters")
	}
	if len(in.FullName) > 100 {
		return nil, apperr.Validation("invalid_name", "full name cannot exceed 100 characters")
	}
	if !nameRe.MatchString(in.FullName) {
		return nil, apperr.Validation("invalid_name", "name can only contain letters and spaces")
	}
	if !last4Re.MatchString(in.LicenseLast4) {
		return nil, apperr.Validation("invalid_license", "license identifier must be exactly 4 digits")
	}
	if !pinRe.MatchString(in.PIN) {
		return nil, apperr.Validation("invalid_pin", "PIN must be 4 to 6 digits")
	}
	if !in.Role.CanHoldKeys() {
		return nil, apperr.Validation("invalid_role", "role must be DRIVER or CLEANING_STAFF")
	}

	hash, err := auth.HashPIN(in.PIN)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	u := models.User{
		ID:           uuid.NewString(),
		FullName:     in.FullName,
		Role:         in.Role,
		LicenseLast4: &in.LicenseLast4,
		PINHash:      hash,
		IsActive:     true,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dup int64
		tx.Model(&models.User{}).Where("license_last4 = ?", in.LicenseLast4).Count(&dup)
		if dup > 0 {
			return apperr.Conflict("duplicate_license", "these license digits are already registered")
		}
		id, err := generateEmployeeID(tx, in.Role, in.LicenseLast4)
		if err != nil {
			return err
		}
		u.EmployeeID = id
		if err := tx.Create(&u).Error; err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, apperr.From(err)
	}
	return &u, nil
}

// generateEmployeeID builds {rolePrefix}{last4}{millis-suffix}. One retry
// with a perturbed timestamp on collision, then the registration fails.
func generateEmployeeID(tx *gorm.DB, role models.Role, last4 string) (string, error) {
	candidate := employeeID(role, last4, time.Now().UnixMilli())
	if !employeeIDTaken(tx, candidate) {
		return candidate, nil
	}
	candidate = employeeID(role, last4, time.Now().UnixMilli()+int64(rand.Intn(1000))+1)
	if !employeeIDTaken(tx, candidate) {
		return candidate, nil
	}
	return "", apperr.Conflict("id_generation", "could not generate an employee id, please retry")
}

func employeeID(role models.Role, last4 string, millis int64) string {
	ts := strconv.FormatInt(millis, 10)
	return role.EmployeePrefix() + last4 + ts[len(ts)-4:]
}

func employeeIDTaken(tx *gorm.DB, id string) bool {
	var n int64
	tx.Model(&models.User{}).Where("employee_id = ?", id).Count(&n)
	return n > 0
}
