package database

import (
	"fmt"
	"log"
	"strings"

	"capacity-planner-api/internal/config"
	"capacity-planner-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// DefaultTechStacks is the tech-stack catalogue every database starts with.
var DefaultTechStacks = []models.TechStack{
	{ID: 1, Name: "Frontend Dev"},
	{ID: 2, Name: "UI Design"},
	{ID: 3, Name: "Design"},
	{ID: 4, Name: "Feature"},
	{ID: 5, Name: "Backend API"},
	{ID: 6, Name: "Security Review"},
	{ID: 7, Name: "Database Setup"},
	{ID: 8, Name: "Testing"},
	{ID: 9, Name: "Planning"},
	{ID: 10, Name: "Data Analysis"},
	{ID: 11, Name: "Supervising"},
}

// InitDB opens the configured database and runs migrations.
func InitDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(cfg.Path, cfg.MaxOpenConns, ParseLogLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}

	log.Printf("Database %s connected and migrated", cfg.Path)
	return db, nil
}

// Open connects to a SQLite database. glebarez/sqlite is a pure Go driver,
// so no CGO is required.
func Open(path string, maxOpenConns int, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(path)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database: pool: %w", err)
	}
	// SQLite has a single writer; an in-memory database also exists only
	// per connection, so tests run with exactly one.
	sqlDB.SetMaxOpenConns(maxOpenConns)

	return db, nil
}

// Migrate creates missing tables and seeds the tech-stack catalogue.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&DefaultTechStacks).Error
	if err != nil {
		return fmt.Errorf("database: seed tech stacks: %w", err)
	}
	return nil
}

// ParseLogLevel maps a config string to a gorm log level.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

func dsn(path string) string {
	if path == ":memory:" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
}
