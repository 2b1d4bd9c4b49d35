package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/review"
)

func (db *DB) SaveReview(ctx context.Context, r *review.Review) (string, error) {
	id, err := db.idGenerator.GetID(ctx)
	if err != nil {
		return "", fmt.Errorf("generate review id: %w", err)
	}

	m := toReviewModel(r)
	m.ID = id

	err = db.db.WithContext(ctx).Create(m).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", ErrDuplicateReview
	}

	if err != nil {
		return "", fmt.Errorf("insert review: %w", err)
	}

	return id, nil
}

func (db *DB) ListReviewsByListing(ctx context.Context, listingID string) ([]*review.Review, error) {
	var models []reviewModel

	err := db.db.WithContext(ctx).Where("listing_id = ?", listingID).Order("created_at, id").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	res := make([]*review.Review, 0, len(models))
	for i := range models {
		res = append(res, models[i].toReview())
	}

	return res, nil
}

func (db *DB) GetReviewByReservation(ctx context.Context, reservationID string) (*review.Review, error) {
	var m reviewModel

	err := db.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	return m.toReview(), nil
}
