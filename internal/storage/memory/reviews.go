package memory

import (
	"context"
	"fmt"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/review"
)

func (db *DB) SaveReview(ctx context.Context, r *review.Review) (string, error) {
	id, err := db.idGenerator.GetID(ctx)
	if err != nil {
		return "", fmt.Errorf("generate review id: %w", err)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, exists := db.reviewsByReservation[r.ReservationID]; exists {
		return "", ErrDuplicateReview
	}

	cp := *r
	cp.ID = id

	db.reviews[id] = &cp
	db.reviewOrder = append(db.reviewOrder, id)
	db.reviewsByReservation[r.ReservationID] = id

	return id, nil
}

func (db *DB) ListReviewsByListing(_ context.Context, listingID string) ([]*review.Review, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var res []*review.Review

	for _, id := range db.reviewOrder {
		if r := db.reviews[id]; r.ListingID == listingID {
			cp := *r
			res = append(res, &cp)
		}
	}

	return res, nil
}

func (db *DB) GetReviewByReservation(_ context.Context, reservationID string) (*review.Review, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	id, exists := db.reviewsByReservation[reservationID]
	if !exists {
		return nil, apperror.ErrRecordNotFound
	}

	cp := *db.reviews[id]

	return &cp, nil
}
