package memory

import (
	"context"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/catalog"
)

func (db *DB) SaveListings(ctx context.Context, listings []*catalog.Listing) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	for _, l := range listings {
		cp := *l
		trx.listingWrites = append(trx.listingWrites, &cp)
	}

	return nil
}

func (db *DB) GetListing(_ context.Context, id string) (*catalog.Listing, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	l, ok := db.listings[id]
	if !ok {
		return nil, apperror.ErrRecordNotFound
	}

	cp := *l

	return &cp, nil
}

func (db *DB) ListListings(_ context.Context) ([]*catalog.Listing, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	res := make([]*catalog.Listing, 0, len(db.listingOrder))

	for _, id := range db.listingOrder {
		cp := *db.listings[id]
		res = append(res, &cp)
	}

	return res, nil
}
