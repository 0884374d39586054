package database

import (
	"fmt"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/toml"
	"github.com/ARahim900/muscatbay-sub004/entity"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _db *gorm.DB

// InitDB opens the configured database, migrates the tables and sizes the pool.
func InitDB(cfg toml.DatabaseConfig) error {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if err := db.AutoMigrate(
		&entity.WaterMeterEntity{},
		&entity.WaterDailyConsumptionEntity{},
		&entity.WaterLossDailyEntity{},
		&entity.ImportJobEntity{},
		&entity.ImportErrorRowEntity{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(cfg.Maxdbconnections)
	sqlDB.SetMaxIdleConns(cfg.Maxdbidleconnections)
	sqlDB.SetConnMaxLifetime(time.Hour)

	_db = db
	log.Logger.Info("database connected", zap.String("driver", cfg.Driver), zap.String("host", cfg.Host), zap.String("db", cfg.DbName))
	return nil
}

func dialectorFor(cfg toml.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "", "postgres":
		// dsn == Data Source Name
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.User, cfg.Password, cfg.DbName, cfg.Port, cfg.SslMode)
		return postgres.Open(dsn), nil
	case "mysql":
		// if connection time > 10s, then timeout
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&timeout=10s",
			cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.DbName)
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func GetDB() *gorm.DB {
	return _db
}
