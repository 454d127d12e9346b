package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/lumenhotels/onboarding-app/config"
	"github.com/lumenhotels/onboarding-app/database"
	"github.com/lumenhotels/onboarding-app/models"
	"github.com/lumenhotels/onboarding-app/router"
	"github.com/lumenhotels/onboarding-app/services"
	"github.com/lumenhotels/onboarding-app/utils"
)

func main() {
	cfg := config.Load()

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to connect to database: %v", err)
	}
	utils.InitDB(db)

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	autoMigrate(db)

	// Redis-backed revocation when configured; in-process map otherwise.
	if cfg.Redis.Host != "" {
		rdb, err := config.NewRedisClient(cfg.Redis)
		if err != nil {
			utils.ErrorLogger.Printf("redis unavailable, using in-process revocation store: %v", err)
		} else {
			services.InitRevocationStore(rdb)
			utils.InfoLogger.Println("redis revocation store enabled")
		}
	}

	monitor := services.NewComplianceMonitor(db)
	monitor.Start()
	defer monitor.Stop()

	r := router.SetupRouter(db, cfg)

	utils.InfoLogger.Printf("Listening on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}

func autoMigrate(db *gorm.DB) {
	err := db.AutoMigrate(
		&models.Property{},
		&models.User{},
		&models.PropertyManagerAssignment{},
		&models.JobApplication{},
		&models.Employee{},
		&models.OnboardingSession{},
		&models.EmployeeModule{},
		&models.ComplianceDeadline{},
		&models.AuditLogEntry{},
	)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}
	utils.InfoLogger.Println("AutoMigrate completed.")

	if err := database.ExecuteIndexes(db); err != nil {
		utils.ErrorLogger.Printf("Error setting up indexes: %v", err)
	}
}
