package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/avstrong/stays/internal/logger"
)

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type Config struct {
	L           *logger.Logger
	DSN         string
	IDGenerator idGenerator
}

type DB struct {
	l           *logger.Logger
	db          *gorm.DB
	idGenerator idGenerator
}

func Open(conf Config) (*DB, error) {
	//nolint:exhaustruct
	gdb, err := gorm.Open(postgres.Open(conf.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return New(conf.L, gdb, conf.IDGenerator), nil
}

func New(l *logger.Logger, gdb *gorm.DB, idGen idGenerator) *DB {
	return &DB{l: l, db: gdb, idGenerator: idGen}
}

// Migrate creates or updates the tables.
func (db *DB) Migrate(ctx context.Context) error {
	err := db.db.WithContext(ctx).AutoMigrate(
		&listingModel{},
		&reservationModel{},
		&eventModel{},
		&reviewModel{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	db.l.LogInfo("Postgres schema is up to date")

	return nil
}

func (db *DB) Close() error {
	sqlDB, err := db.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}

	return sqlDB.Close() //nolint:wrapcheck
}

type trxKey struct{}

func isolation(level string) sql.IsolationLevel {
	switch level {
	case "READ COMMITTED":
		return sql.LevelReadCommitted
	case "REPEATABLE READ":
		return sql.LevelRepeatableRead
	case "SERIALIZABLE":
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

func (db *DB) BeginTransaction(ctx context.Context, level string) (context.Context, error) {
	//nolint:exhaustruct
	tx := db.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: isolation(level)})
	if tx.Error != nil {
		return nil, fmt.Errorf("begin transaction: %w", tx.Error)
	}

	return context.WithValue(ctx, trxKey{}, tx), nil
}

func (db *DB) trx(ctx context.Context) (*gorm.DB, error) {
	tx, ok := ctx.Value(trxKey{}).(*gorm.DB)
	if !ok {
		return nil, ErrTransactionNotFoundInCtx
	}

	return tx, nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	tx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	tx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	if err := tx.Rollback().Error; err != nil {
		return fmt.Errorf("rollback: %w", err)
	}

	return nil
}
