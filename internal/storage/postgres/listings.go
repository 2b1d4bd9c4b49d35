package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/catalog"
)

// SaveListings upserts listings inside the transaction from ctx. Slice order
// becomes catalog order.
func (db *DB) SaveListings(ctx context.Context, listings []*catalog.Listing) error {
	tx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	models := make([]*listingModel, 0, len(listings))

	for i, l := range listings {
		m, err := toListingModel(l, i)
		if err != nil {
			return err
		}

		models = append(models, m)
	}

	if len(models) == 0 {
		return nil
	}

	//nolint:exhaustruct
	err = tx.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&models).Error
	if err != nil {
		return fmt.Errorf("upsert listings: %w", err)
	}

	return nil
}

func (db *DB) GetListing(ctx context.Context, id string) (*catalog.Listing, error) {
	var m listingModel

	err := db.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.ErrRecordNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("get listing %s: %w", id, err)
	}

	return m.toListing()
}

func (db *DB) ListListings(ctx context.Context) ([]*catalog.Listing, error) {
	var models []listingModel

	if err := db.db.WithContext(ctx).Order("position, id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	res := make([]*catalog.Listing, 0, len(models))

	for i := range models {
		l, err := models[i].toListing()
		if err != nil {
			return nil, err
		}

		res = append(res, l)
	}

	return res, nil
}
