package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cgrente/profile-intake-platform/models"
)

var DB *gorm.DB

// InitDB opens the configured database, migrates the schema and stores the
// handle in DB.
func InitDB(cfg Config) error {
	db, err := OpenDatabase(cfg.DatabaseURL, GormLogLevel(cfg.LogLevel))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	DB = db
	log.Println("Database connected successfully")
	return nil
}

// OpenDatabase opens a gorm handle for a sqlite://, mysql:// or postgres://
// URL.
func OpenDatabase(databaseURL string, level logger.LogLevel) (*gorm.DB, error) {
	dialector, isSQLite, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.New(
			log.New(LogWriter, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold: 1500 * time.Millisecond,
				LogLevel:      level,
			},
		),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY
		// between request handlers and the completion job.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
	return db, nil
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Profile{},
		&models.Submission{},
		&models.CompletionTask{},
	)
}

func dialectorFor(databaseURL string) (gorm.Dialector, bool, error) {
	raw := strings.TrimSpace(databaseURL)
	switch {
	case strings.HasPrefix(raw, "sqlite://"):
		return sqlite.Open(sqliteDSN(raw)), true, nil
	case strings.HasPrefix(raw, "mysql://"):
		dsn := strings.TrimPrefix(raw, "mysql://")
		if !strings.Contains(dsn, "parseTime=") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=True"
			} else {
				dsn += "?parseTime=True"
			}
		}
		return mysql.Open(dsn), false, nil
	case strings.HasPrefix(raw, "postgres://"), strings.HasPrefix(raw, "postgresql://"):
		return postgres.Open(raw), false, nil
	case raw == "":
		return nil, false, errors.New("database url is empty")
	default:
		return nil, false, fmt.Errorf("unsupported database url %q", raw)
	}
}

// sqliteDSN turns sqlite:///relative.db and sqlite:////abs/path.db into a
// file path with the connection pragmas attached.
func sqliteDSN(raw string) string {
	path := strings.TrimPrefix(raw, "sqlite://")
	if strings.HasPrefix(path, "/") {
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			path = ":memory:"
		}
	}
	if path == ":memory:" {
		return path + "?_pragma=foreign_keys(1)"
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// legacyMySQLURL builds a mysql:// URL from the DB_* variables when they are
// present, so existing deployments keep working without DATABASE_URL.
func legacyMySQLURL() string {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		return ""
	}
	dbPort := os.Getenv("DB_PORT")
	if dbPort == "" {
		dbPort = "3306"
	}

	return fmt.Sprintf("mysql://%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		os.Getenv("DB_USERNAME"),
		os.Getenv("DB_PASSWORD"),
		dbHost,
		dbPort,
		os.Getenv("DB_DATABASE"),
	)
}
