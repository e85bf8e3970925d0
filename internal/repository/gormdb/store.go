package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mamadbah2/dairyfarm/internal/domain/models"
)

// Store owns the relational connection shared by every service.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open connects to the configured database. driver is "postgres" or "sqlite".
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		NowFunc:        now,
		Logger:         newGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql pool: %w", err)
	}
	if driver == "sqlite" {
		// Every connection to an in-memory database is a separate database.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping %s database: %w", driver, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// OpenSQLite opens a sqlite database and migrates it. ":memory:" gives a private
// throwaway database.
func OpenSQLite(dsn string) (*Store, error) {
	s, err := Open(context.Background(), "sqlite", dsn, nil)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Tables lists every persisted model, in dependency order.
func Tables() []any {
	return []any{
		&models.Farm{},
		&models.Cow{},
		&models.ChickenBatch{},
		&models.ChickenReduction{},
		&models.MilkProduction{},
		&models.MilkSale{},
		&models.EggProduction{},
		&models.ChickHatching{},
		&models.FeedType{},
		&models.FeedPurchase{},
		&models.DailyFeedConsumption{},
		&models.ChickenFeedConsumption{},
		&models.FeedInventory{},
		&models.Veterinarian{},
		&models.HealthRecord{},
		&models.BreedingRecord{},
		&models.HeatDetection{},
		&models.Transaction{},
		&models.DailyMilkSummary{},
		&models.MonthlyFinancialSummary{},
		&models.ProductionReport{},
		&models.Notification{},
	}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(Tables()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	s.logger.Info("schema migrated", zap.Int("tables", len(Tables())))
	return nil
}

// Conn returns a handle bound to ctx.
func (s *Store) Conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Transaction runs fn in a database transaction, rolling back when it returns an error.
func (s *Store) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type zapWriter struct {
	sugar *zap.SugaredLogger
}

func (w zapWriter) Printf(format string, args ...any) {
	w.sugar.Warnf(format, args...)
}

func newGormLogger(logger *zap.Logger) gormlogger.Interface {
	return gormlogger.New(zapWriter{sugar: logger.Named("gorm").Sugar()}, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// translate maps driver errors onto domain errors.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", models.ErrConflict, err)
	default:
		return err
	}
}
