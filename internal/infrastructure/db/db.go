package db

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kidpech/users_api/internal/config"
	"github.com/kidpech/users_api/internal/domain/user"
)

// Manager coordinates read/write connections. The gorm handles share the
// sqlx pools.
type Manager struct {
	Write     *sqlx.DB
	Read      *sqlx.DB
	GormWrite *gorm.DB
	GormRead  *gorm.DB
}

// Connect establishes sqlx connections based on configuration.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	// sqlx driver name mapping: allow "postgres" in config but use the
	// compiled pgx stdlib driver which registers under "pgx".
	driverName := cfg.Driver
	if driverName == "postgres" {
		driverName = "pgx"
	}

	write, err := open(ctx, driverName, cfg.DSN, cfg)
	if err != nil {
		return nil, err
	}

	mgr := &Manager{Write: write, Read: write}
	if cfg.ReadOnlyDSN != "" {
		read, err := open(ctx, driverName, cfg.ReadOnlyDSN, cfg)
		if err != nil {
			if logger != nil {
				logger.Warn("read-only db unavailable, using primary", zap.Error(err))
			}
		} else {
			mgr.Read = read
		}
	}

	if mgr.GormWrite, err = wrap(cfg.Driver, write); err != nil {
		_ = mgr.Close()
		return nil, err
	}
	mgr.GormRead = mgr.GormWrite
	if mgr.Read != mgr.Write {
		if mgr.GormRead, err = wrap(cfg.Driver, mgr.Read); err != nil {
			_ = mgr.Close()
			return nil, err
		}
	}
	return mgr, nil
}

func open(ctx context.Context, driverName, dsn string, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return conn, nil
}

// wrap opens a gorm handle over an existing pool.
func wrap(driver string, conn *sqlx.DB) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.New(mysql.Config{Conn: conn.DB})
	default:
		dialector = postgres.New(postgres.Config{Conn: conn.DB})
	}
	gdb, err := gorm.Open(dialector, gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	return gdb, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	}
}

// Migrate creates or updates the users, sessions and accounts tables.
func (m *Manager) Migrate(ctx context.Context) error {
	if err := m.GormWrite.WithContext(ctx).AutoMigrate(&user.User{}, &user.Session{}, &user.Account{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Ping checks the primary connection.
func (m *Manager) Ping(ctx context.Context) error {
	return m.Write.PingContext(ctx)
}

// Close closes all DB handles.
func (m *Manager) Close() error {
	if m == nil || m.Write == nil {
		return nil
	}
	if err := m.Write.Close(); err != nil {
		return err
	}
	if m.Read != nil && m.Read != m.Write {
		return m.Read.Close()
	}
	return nil
}
