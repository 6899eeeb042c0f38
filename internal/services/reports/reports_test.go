package reports

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"fleetkeys/internal/config"
	"fleetkeys/internal/models"
	"fleetkeys/internal/testdb"
)

func testConfig() config.Config {
	return config.Config{OverdueAfter: 12 * time.Hour}
}

type fixture struct {
	db     *gorm.DB
	svc    *Service
	driver models.User
	key    models.Key
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	last4 := "5678"
	u := models.User{
		ID:           uuid.NewString(),
		EmployeeID:   "DRV56780001",
		FullName:     "Juan Perez",
		Role:         models.RoleDriver,
		LicenseLast4: &last4,
		PINHash:      "irrelevant",
		IsActive:     true,
	}
	v := models.Vehicle{
		ID:          uuid.NewString(),
		UnitNumber:  "U-100",
		PlateNumber: "PL-100",
		VehicleType: "VAN",
		Brand:       "Ford",
		Model:       "Transit",
		Year:        2021,
		Status:      models.VehicleAvailable,
	}
	k := models.Key{
		ID:        uuid.NewString(),
		KeyNumber: "K100",
		VehicleID: v.ID,
		Location:  "board A",
		Status:    models.KeyAvailable,
	}
	for _, m := range []any{&u, &v, &k} {
		if err := db.Create(m).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	return &fixture{db: db, svc: New(db, testConfig()), driver: u, key: k}
}

func (f *fixture) openLoan(t *testing.T, age time.Duration) models.KeyTransaction {
	t.Helper()
	txn := models.KeyTransaction{
		ID:           uuid.NewString(),
		KeyID:        f.key.ID,
		UserID:       f.driver.ID,
		Status:       models.TxCheckedOut,
		CheckoutTime: time.Now().Add(-age),
	}
	if err := f.db.Create(&txn).Error; err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return txn
}

func (f *fixture) closedLoan(t *testing.T, condition models.VehicleCondition, report string, closedAt time.Time) models.KeyTransaction {
	t.Helper()
	txn := models.KeyTransaction{
		ID:               uuid.NewString(),
		KeyID:            f.key.ID,
		UserID:           f.driver.ID,
		Status:           models.TxCheckedIn,
		CheckoutTime:     closedAt.Add(-time.Hour),
		CheckinTime:      &closedAt,
		VehicleCondition: &condition,
	}
	if report != "" {
		txn.IncidentReport = &report
	}
	if err := f.db.Create(&txn).Error; err != nil {
		t.Fatalf("seed closed loan: %v", err)
	}
	return txn
}

func TestOverdueBoundary(t *testing.T) {
	f := newFixture(t)
	fresh := f.openLoan(t, 11*time.Hour)
	stale := f.openLoan(t, 13*time.Hour)

	overdue, err := f.svc.OverdueLoans(context.Background())
	if err != nil {
		t.Fatalf("OverdueLoans: %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != stale.ID {
		t.Fatalf("expected only the 13h loan, got %d entries", len(overdue))
	}
	if !overdue[0].Overdue {
		t.Fatalf("expected the overdue flag set")
	}

	active, err := f.svc.ActiveLoans(context.Background())
	if err != nil {
		t.Fatalf("ActiveLoans: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("expected both open loans, got %d", len(active))
	}
	for _, l := range active {
		if l.ID == fresh.ID && l.Overdue {
			t.Fatalf("an 11h loan must not be flagged overdue")
		}
		if l.ID == stale.ID && !l.Overdue {
			t.Fatalf("a 13h loan must be flagged overdue")
		}
	}
}

func TestIncidentsExcludeGoodReturns(t *testing.T) {
	f := newFixture(t)
	f.closedLoan(t, models.ConditionGood, "", time.Now().Add(-2*time.Hour))
	damaged := f.closedLoan(t, models.ConditionMajorDamage, "rear bumper cracked on loading dock", time.Now().Add(-time.Hour))

	incidents, err := f.svc.Incidents(context.Background())
	if err != nil {
		t.Fatalf("Incidents: %v", err)
	}
	if len(incidents) != 1 || incidents[0].ID != damaged.ID {
		t.Fatalf("expected only the damaged return, got %d entries", len(incidents))
	}
}

func TestUsageCounts(t *testing.T) {
	f := newFixture(t)
	f.closedLoan(t, models.ConditionGood, "", time.Now().Add(-3*time.Hour))
	f.closedLoan(t, models.ConditionGood, "", time.Now().Add(-2*time.Hour))
	f.openLoan(t, time.Hour) // open loans do not count as usage

	vehicles, err := f.svc.VehicleUsageReport(context.Background())
	if err != nil {
		t.Fatalf("VehicleUsageReport: %v", err)
	}
	if len(vehicles) != 1 || vehicles[0].Uses != 2 {
		t.Fatalf("expected one vehicle with 2 uses, got %+v", vehicles)
	}
	if vehicles[0].LastUsed == nil {
		t.Fatalf("expected last-used timestamp")
	}

	drivers, err := f.svc.DriverUsageReport(context.Background())
	if err != nil {
		t.Fatalf("DriverUsageReport: %v", err)
	}
	if len(drivers) != 1 || drivers[0].Uses != 2 {
		t.Fatalf("expected one driver with 2 uses, got %+v", drivers)
	}
	if drivers[0].MostUsedVehicle != "U-100" {
		t.Fatalf("expected most-used vehicle U-100, got %q", drivers[0].MostUsedVehicle)
	}
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	f.openLoan(t, 13*time.Hour)
	f.db.Model(&models.Key{}).Where("id = ?", f.key.ID).Update("status", models.KeyCheckedOut)

	stats, err := f.svc.DashboardStats(context.Background())
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	if stats.TotalKeys != 1 || stats.AvailableKeys != 0 {
		t.Fatalf("unexpected key counts: %+v", stats)
	}
	if stats.ActiveLoans != 1 || stats.OverdueLoans != 1 {
		t.Fatalf("unexpected loan counts: %+v", stats)
	}
	if stats.TotalStaff != 1 {
		t.Fatalf("unexpected staff count: %+v", stats)
	}
}

func TestHistoryNewestFirstAndCapped(t *testing.T) {
	f := newFixture(t)
	old := f.closedLoan(t, models.ConditionGood, "", time.Now().Add(-3*time.Hour))
	recent := f.closedLoan(t, models.ConditionGood, "", time.Now().Add(-time.Hour))

	history, err := f.svc.History(context.Background(), 0)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 2 || history[0].ID != recent.ID || history[1].ID != old.ID {
		t.Fatalf("expected newest-first history, got %d entries", len(history))
	}

	limited, err := f.svc.History(context.Background(), 1)
	if err != nil {
		t.Fatalf("History limited: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != recent.ID {
		t.Fatalf("expected the single newest entry")
	}
}
