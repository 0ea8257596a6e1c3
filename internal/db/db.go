package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bilik-backend/config"
	"bilik-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Println("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Room{},
		&model.Session{},
		&model.WaitingEntry{},
	); err != nil {
		return nil, fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnforceUniqueOccupant {
		log.Println("Applying store-level occupant uniqueness constraints...")
		if err := applyUniqueOccupantDDL(db); err != nil {
			return nil, err
		}
	}

	log.Println("Database initialization complete.")
	return db, nil
}

// applyUniqueOccupantDDL adds the partial unique indexes backing the
// system-wide occupant uniqueness rules. The engine already pre-checks both
// inside its transactions for friendly errors; these make the store itself
// the final enforcement point. Postgres-only DDL, hence the config flag.
func applyUniqueOccupantDDL(db *gorm.DB) error {
	ddls := []string{
		// One active session per occupant, across all rooms.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_occupant " +
			"ON sessions (occupant_id) WHERE status <> 'done';",

		// One live waiting entry per occupant; rows are deleted on
		// promotion or withdrawal, so all live rows count.
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_waiting_entries_occupant " +
			"ON waiting_entries (occupant_id);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
