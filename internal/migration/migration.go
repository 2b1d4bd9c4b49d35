package migration

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/logger"
)

//go:embed listings.yaml
var listingsFixture []byte

type storage interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveListings(ctx context.Context, listings []*catalog.Listing) error
}

// Listings decodes the bundled listing fixture.
func Listings() ([]*catalog.Listing, error) {
	var listings []*catalog.Listing

	if err := yaml.Unmarshal(listingsFixture, &listings); err != nil {
		return nil, fmt.Errorf("decode listings fixture: %w", err)
	}

	for _, l := range listings {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("fixture listing %q: %w", l.ID, err)
		}
	}

	return listings, nil
}

// Up seeds the listing catalog in one transaction.
func Up(ctx context.Context, l *logger.Logger, storage storage) (err error) {
	listings, err := Listings()
	if err != nil {
		return err
	}

	ctx, err = storage.BeginTransaction(ctx, "")
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after panic %v: %v", p, rbErr)
			}

			l.LogInfo("Migration transaction has been roll backed after panic")

			panic(p)
		}

		if err != nil {
			if rbErr := storage.RollbackTransaction(ctx); rbErr != nil {
				l.LogErrorf("Could not rollback migration transaction after error %v: %v", err.Error(), rbErr)
			}

			l.LogInfo("Migration transaction has been roll backed after error")

			return
		}

		if err = storage.CommitTransaction(ctx); err != nil {
			err = fmt.Errorf("commit migration: %w", err)

			return
		}

		l.LogInfo("Migration transaction has been committed, %d listings seeded", len(listings))
	}()

	if err = storage.SaveListings(ctx, listings); err != nil {
		return fmt.Errorf("save listings to storage: %w", err)
	}

	return nil
}
