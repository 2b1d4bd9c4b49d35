package memory

import (
	"context"
	"fmt"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/booking"
)

func copyReservation(r *booking.Reservation) *booking.Reservation {
	cp := *r

	return &cp
}

func (db *DB) SaveReservation(ctx context.Context, reservation *booking.Reservation) (string, error) {
	id, err := db.idGenerator.GetID(ctx)
	if err != nil {
		return "", fmt.Errorf("generate reservation id: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return "", err
	}

	cp := copyReservation(reservation)
	cp.ID = id
	trx.reservationWrites = append(trx.reservationWrites, cp)

	return id, nil
}

func (db *DB) DeleteReservation(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	trx.reservationDeletes = append(trx.reservationDeletes, id)

	return nil
}

func (db *DB) SaveEvent(ctx context.Context, event *booking.Event) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	cp := *event
	trx.eventWrites = append(trx.eventWrites, &cp)

	return nil
}

func (db *DB) GetReservation(_ context.Context, id string) (*booking.Reservation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	r, ok := db.reservations[id]
	if !ok {
		return nil, apperror.ErrRecordNotFound
	}

	return copyReservation(r), nil
}

func (db *DB) ListReservations(_ context.Context) ([]*booking.Reservation, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res := make([]*booking.Reservation, 0, len(db.reservationOrder))
	for _, id := range db.reservationOrder {
		res = append(res, copyReservation(db.reservations[id]))
	}

	return res, nil
}

func (db *DB) GetReservationByIdempotencyKey(ctx context.Context) (*booking.Reservation, error) {
	key, ok := booking.IdempotencyKeyFromContext(ctx)
	if !ok {
		return nil, apperror.ErrIdempotencyKey
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	id, exists := db.idempotencyKeys[key]
	if !exists {
		return nil, apperror.ErrRecordNotFound
	}

	return copyReservation(db.reservations[id]), nil
}

// Events returns the lifecycle events recorded for a reservation.
func (db *DB) Events(_ context.Context, reservationID string) []*booking.Event {
	db.mu.Lock()
	defer db.mu.Unlock()

	var res []*booking.Event

	for _, e := range db.events {
		if e.ReservationID == reservationID {
			cp := *e
			res = append(res, &cp)
		}
	}

	return res
}
