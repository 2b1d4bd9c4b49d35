package migration_test

import (
	"context"
	"errors"
	"io"
	"net/url"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/idgen/simple"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/migration"
	"github.com/avstrong/stays/internal/storage/memory"
)

func testLogger() *logger.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return logger.New(l)
}

func TestUpSeedsSixListings(t *testing.T) {
	l := testLogger()
	db := memory.New(memory.Config{L: l, IDGenerator: simple.New("id-")})

	require.NoError(t, migration.Up(context.Background(), l, db))

	listings, err := db.ListListings(context.Background())
	require.NoError(t, err)
	require.Len(t, listings, 6)
	assert.Equal(t, "house1", listings[0].ID)
	assert.Equal(t, "house6", listings[5].ID)
	assert.NotEmpty(t, listings[0].Rules)

	criteria, err := catalog.ParseCriteria(url.Values{
		"title":    {"villa"},
		"minPrice": {"100"},
		"maxPrice": {"300"},
		"guests":   {"Any"},
	})
	require.NoError(t, err)

	var got []string
	for _, listing := range catalog.New(listings).Filter(criteria) {
		got = append(got, listing.ID)
	}

	assert.Equal(t, []string{"house1", "house3"}, got)
}

type failingStorage struct {
	*memory.DB
	rolledBack bool
}

func (s *failingStorage) SaveListings(context.Context, []*catalog.Listing) error {
	return errors.New("disk full")
}

func (s *failingStorage) RollbackTransaction(ctx context.Context) error {
	s.rolledBack = true

	return s.DB.RollbackTransaction(ctx)
}

func TestUpRollsBackOnError(t *testing.T) {
	l := testLogger()
	s := &failingStorage{DB: memory.New(memory.Config{L: l, IDGenerator: simple.New("id-")})}

	err := migration.Up(context.Background(), l, s)
	require.Error(t, err)
	assert.True(t, s.rolledBack)
}
