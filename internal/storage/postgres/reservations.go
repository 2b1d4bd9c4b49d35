package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/booking"
)

// SaveReservation inserts a new row keyed by a generated id. The idempotency
// key from ctx, if any, is stored under a unique index.
func (db *DB) SaveReservation(ctx context.Context, reservation *booking.Reservation) (string, error) {
	tx, err := db.trx(ctx)
	if err != nil {
		return "", err
	}

	id, err := db.idGenerator.GetID(ctx)
	if err != nil {
		return "", fmt.Errorf("generate reservation id: %w", err)
	}

	key, _ := booking.IdempotencyKeyFromContext(ctx)

	m := toReservationModel(reservation, key)
	m.ID = id

	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		return "", fmt.Errorf("insert reservation: %w", err)
	}

	return id, nil
}

func (db *DB) DeleteReservation(ctx context.Context, id string) error {
	tx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Where("id = ?", id).Delete(&reservationModel{}).Error; err != nil { //nolint:exhaustruct
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}

	return nil
}

func (db *DB) SaveEvent(ctx context.Context, event *booking.Event) error {
	tx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	m, err := toEventModel(event)
	if err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	return nil
}

func (db *DB) getReservation(ctx context.Context, query string, arg any) (*booking.Reservation, error) {
	var m reservationModel

	err := db.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	return m.toReservation(), nil
}

func (db *DB) GetReservation(ctx context.Context, id string) (*booking.Reservation, error) {
	return db.getReservation(ctx, "id = ?", id)
}

func (db *DB) GetReservationByIdempotencyKey(ctx context.Context) (*booking.Reservation, error) {
	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return nil, apperror.ErrIdempotencyKey
	}

	return db.getReservation(ctx, "idempotency_key = ?", key)
}

func (db *DB) ListReservations(ctx context.Context) ([]*booking.Reservation, error) {
	var models []reservationModel

	if err := db.db.WithContext(ctx).Order("created_at, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	res := make([]*booking.Reservation, 0, len(models))
	for i := range models {
		res = append(res, models[i].toReservation())
	}

	return res, nil
}
