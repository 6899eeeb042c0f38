package models

import "time"

// Role is the closed set of account types. Authorization decisions are
// total functions over this type rather than string comparisons in handlers.
type Role string

const (
	RoleDispatch      Role = "DISPATCH"
	RoleDriver        Role = "DRIVER"
	RoleCleaningStaff Role = "CLEANING_STAFF"
)

func (r Role) Valid() bool {
	return r == RoleDispatch || r == RoleDriver || r == RoleCleaningStaff
}

// CanHoldKeys reports whether the role may check a key out. Dispatch
// coordinates loans but never holds a key itself.
func (r Role) CanHoldKeys() bool {
	return r == RoleDriver || r == RoleCleaningStaff
}

func (r Role) IsDispatch() bool { return r == RoleDispatch }

// EmployeePrefix is the prefix used when generating employee ids.
func (r Role) EmployeePrefix() string {
	switch r {
	case RoleDriver:
		return "DRV"
	case RoleCleaningStaff:
		return "CLN"
	case RoleDispatch:
		return "DSP"
	}
	return ""
}

type KeyStatus string

const (
	KeyAvailable   KeyStatus = "AVAILABLE"
	KeyCheckedOut  KeyStatus = "CHECKED_OUT"
	KeyMaintenance KeyStatus = "MAINTENANCE"
	KeyLost        KeyStatus = "LOST"
)

type VehicleStatus string

const (
	VehicleAvailable    VehicleStatus = "AVAILABLE"
	VehicleInUse        VehicleStatus = "IN_USE"
	VehicleMaintenance  VehicleStatus = "MAINTENANCE"
	VehicleOutOfService VehicleStatus = "OUT_OF_SERVICE"
)

type TransactionStatus string

const (
	TxCheckedOut TransactionStatus = "CHECKED_OUT"
	TxCheckedIn  TransactionStatus = "CHECKED_IN"
)

type VehicleCondition string

const (
	ConditionGood        VehicleCondition = "GOOD"
	ConditionMinorDamage VehicleCondition = "MINOR_DAMAGE"
	ConditionMajorDamage VehicleCondition = "MAJOR_DAMAGE"
	ConditionAccident    VehicleCondition = "ACCIDENT"
)

func (c VehicleCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionMinorDamage, ConditionMajorDamage, ConditionAccident:
		return true
	}
	return false
}

// RequiresReport: any return in less-than-good condition must carry an
// incident report.
func (c VehicleCondition) RequiresReport() bool { return c != ConditionGood }

type User struct {
	ID           string    `gorm:"type:uuid;primaryKey" json:"id"`
	EmployeeID   string    `gorm:"uniqueIndex;not null" json:"employee_id"`
	FullName     string    `gorm:"not null;size:100" json:"full_name"`
	Role         Role      `gorm:"not null;size:20" json:"role"`
	DispatchID   *string   `gorm:"uniqueIndex" json:"dispatch_id,omitempty"`
	LicenseLast4 *string   `gorm:"uniqueIndex;size:4" json:"license_last4,omitempty"`
	PINHash      string    `gorm:"not null" json:"-"`
	IsActive     bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Vehicle struct {
	ID          string        `gorm:"type:uuid;primaryKey" json:"id"`
	UnitNumber  string        `gorm:"uniqueIndex;not null;size:20" json:"unit_number"`
	PlateNumber string        `gorm:"uniqueIndex;not null;size:20" json:"plate_number"`
	VehicleType string        `gorm:"not null;size:30" json:"vehicle_type"`
	Brand       string        `gorm:"not null;size:50" json:"brand"`
	Model       string        `gorm:"not null;size:50" json:"model"`
	Year        int           `gorm:"not null" json:"year"`
	Color       *string       `gorm:"size:30" json:"color,omitempty"`
	Status      VehicleStatus `gorm:"not null;size:20;default:AVAILABLE" json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Key is a physical vehicle key. One vehicle has at most one key; the 1:1
// rule is enforced at registration time, not by the schema.
type Key struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	KeyNumber string    `gorm:"uniqueIndex;not null;size:20" json:"key_number"`
	VehicleID string    `gorm:"type:uuid;index;not null" json:"vehicle_id"`
	Vehicle   Vehicle   `gorm:"foreignKey:VehicleID" json:"vehicle"`
	Location  string    `gorm:"not null;size:100" json:"location"`
	Notes     *string   `json:"notes,omitempty"`
	Status    KeyStatus `gorm:"not null;size:20;default:AVAILABLE" json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// KeyTransaction is one loan on the ledger. A row is written once at
// checkout and finalized once at checkin; rows are never deleted.
type KeyTransaction struct {
	ID               string            `gorm:"type:uuid;primaryKey" json:"id"`
	KeyID            string            `gorm:"type:uuid;index;not null" json:"key_id"`
	Key              Key               `gorm:"foreignKey:KeyID" json:"key"`
	UserID           string            `gorm:"type:uuid;index;not null" json:"user_id"`
	User             User              `gorm:"foreignKey:UserID" json:"user"`
	Status           TransactionStatus `gorm:"not null;size:20;index" json:"status"`
	CheckoutTime     time.Time         `gorm:"not null" json:"checkout_time"`
	CheckinTime      *time.Time        `json:"checkin_time,omitempty"`
	VehicleCondition *VehicleCondition `gorm:"size:20" json:"vehicle_condition,omitempty"`
	IncidentReport   *string           `json:"incident_report,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type Session struct {
	JTI       string     `gorm:"primaryKey;size:64" json:"jti"`
	UserID    string     `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type AuditLog struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    *string   `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Action    string    `gorm:"not null" json:"action"`
	Metadata  JSONB     `gorm:"default:'{}'" json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}

// All lists every persisted model, in AutoMigrate order.
func All() []any {
	return []any{&User{}, &Vehicle{}, &Key{}, &KeyTransaction{}, &Session{}, &AuditLog{}}
}
