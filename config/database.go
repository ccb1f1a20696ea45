package config

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	// DriverSQLite takes DB_NAME as the database file or DSN. Local runs and tests only.
	DriverSQLite = "sqlite"
)

func dialector(cfg DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverMySQL, "":
		network := "tcp"
		address := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
		// Cloud SQL unix socket, e.g. DB_HOST=/cloudsql/<CONNECTION_NAME>
		if strings.HasPrefix(cfg.Host, "/cloudsql/") {
			network = "unix"
			address = cfg.Host
		}
		dsn := fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true&loc=UTC",
			cfg.User, cfg.Password, network, address, cfg.Name)
		return mysql.Open(dsn), nil
	case DriverPostgres:
		dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
		return postgres.Open(dsn), nil
	case DriverSQLite:
		return sqlite.Open(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// ConnectDatabaseWithRetry blocks until the database answers.
// Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry(cfg *Config) (*gorm.DB, error) {
	dial, err := dialector(cfg.Database)
	if err != nil {
		return nil, err
	}

	var attempt int
	for {
		attempt++
		db, err := gorm.Open(dial, initConfig(cfg.Database))
		if err == nil {
			if sqlDB, derr := db.DB(); derr == nil && sqlDB != nil {
				if cfg.Database.MaxOpenConns > 0 {
					sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
				}
				if cfg.Database.MaxIdleConns >= 0 {
					sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
				}
				if cfg.Database.ConnMaxLifetime > 0 {
					sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
				}
				if cfg.Database.ConnMaxIdleTime > 0 {
					sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)
				}
			}

			if pluginErr := db.Use(otelgorm.NewPlugin()); pluginErr != nil {
				log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
			}
			if pluginErr := db.Use(NewTenantGuardPlugin()); pluginErr != nil {
				log.Printf("db connected but failed to install tenant guard plugin: %v", pluginErr)
			}
			log.Printf("connected to database (driver=%s attempt=%d)", cfg.Database.Driver, attempt)
			return db, nil
		}

		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func initConfig(cfg DatabaseConfig) *gorm.Config {
	return &gorm.Config{
		Logger: initLog(cfg.LogFile),
		NamingStrategy: &schema.NamingStrategy{
			SingularTable: false,
			TablePrefix:   "",
		},
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func initLog(logFile string) logger.Interface {
	if logFile != "" {
		if f, err := os.Create(logFile); err == nil {
			return logger.New(log.New(io.MultiWriter(f), "\r\n", log.LstdFlags), logger.Config{
				Colorful:      true,
				LogLevel:      logger.Info,
				SlowThreshold: time.Second,
			})
		}
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      logger.Error,
			SlowThreshold: time.Second,
		},
	)
}
