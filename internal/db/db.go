package db

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"machine-manual-backend/config"
	"machine-manual-backend/internal/model"
)

// Init opens the database connection and runs migrations.
func Init(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database initialization complete.")
	return db, nil
}

// Open connects to the configured database and tunes the pool. A server that
// refuses connections is retried with exponential backoff for up to
// cfg.ConnectTimeoutSeconds, so the process can start before the database.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logMode := logger.Silent
	if cfg.Debug {
		logMode = logger.Info
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = time.Duration(cfg.ConnectTimeoutSeconds) * time.Second

	var db *gorm.DB
	attempt := 0
	err = backoff.Retry(func() error {
		attempt++
		var openErr error
		db, openErr = gorm.Open(dialector, &gorm.Config{
			Logger:         logger.Default.LogMode(logMode),
			TranslateError: true,
			NowFunc:        func() time.Time { return time.Now().UTC() },
		})
		if openErr != nil {
			log.WithError(openErr).WithField("attempt", attempt).Warn("waiting for database")
			return openErr
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to %s database after %d attempts", cfg.Driver, attempt)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get sql.DB")
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

// Dialector maps the configured driver to a gorm dialector.
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return sqlite.Open(sqliteDSN(cfg.DSN)), nil
	case config.DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	case config.DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	default:
		return nil, errors.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}

// sqliteDSN turns on foreign key enforcement for every pooled connection.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// Migrate creates or upgrades the tables for every persisted entity.
func Migrate(db *gorm.DB) error {
	log.Info("Running database migrations...")
	if err := db.AutoMigrate(
		&model.Machine{},
		&model.Issue{},
		&model.IssueUpdate{},
		&model.Maintenance{},
		&model.Employee{},
	); err != nil {
		return errors.Wrap(err, "automigrate failed")
	}
	return nil
}

// Ping checks that the database still answers. Failures are reported to the
// caller and never retried.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return errors.Wrap(err, "failed to get sql.DB")
	}
	return sqlDB.PingContext(ctx)
}
