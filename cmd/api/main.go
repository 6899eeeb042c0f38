package main

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fleetkeys/internal/auth"
	"fleetkeys/internal/config"
	"fleetkeys/internal/httpserver"
	"fleetkeys/internal/logger"
	"fleetkeys/internal/models"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()

	if cfg.DatabaseURL == "" {
		lg.Fatalw("DATABASE_URL is empty")
	}
	if cfg.JWTSecret == "" {
		lg.Fatalw("JWT_SECRET is empty")
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		lg.Fatalw("automigrate failed", "error", err)
	}
	seedDefaultDispatcher(db, lg)

	router := httpserver.NewRouter(db, cfg, lg)
	lg.Infow("listening", "port", cfg.HTTPPort)
	if err := http.ListenAndServe(":"+cfg.HTTPPort, router); err != nil {
		log.Fatal(err)
	}
}

// seedDefaultDispatcher creates the first dispatch account if none exists.
// Dispatch accounts cannot self-register, so a fresh install needs one to
// bootstrap. Change the PIN after first login.
func seedDefaultDispatcher(db *gorm.DB, lg *zap.SugaredLogger) {
	var count int64
	db.Model(&models.User{}).Where("role = ?", models.RoleDispatch).Count(&count)
	if count > 0 {
		return
	}
	hash, _ := auth.HashPIN("0000")
	dispatchID := "0000"
	u := models.User{
		ID:         uuid.NewString(),
		EmployeeID: "DSP00000000",
		FullName:   "Dispatch Central",
		Role:       models.RoleDispatch,
		DispatchID: &dispatchID,
		PINHash:    hash,
		IsActive:   true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := db.Create(&u).Error; err != nil {
		lg.Warnw("dispatcher seed failed", "error", err)
		return
	}
	lg.Infow("seeded default dispatcher", "dispatch_id", dispatchID)
}
