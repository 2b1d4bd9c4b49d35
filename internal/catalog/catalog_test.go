package catalog_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/retry"
)

func sixListings() []*catalog.Listing {
	return []*catalog.Listing{
		{ID: "house1", Title: "Seaside Villa", Location: "Nice", Price: 250, Stars: 4.8, Guests: 4},
		{ID: "house2", Title: "Mountain Cabin", Location: "Chamonix", Price: 120, Stars: 4.5, Guests: 2},
		{ID: "house3", Title: "VILLA Rosa", Location: "Amalfi", Price: 300, Stars: 4.9, Guests: 8},
		{ID: "house4", Title: "Grand villa estate", Location: "Ibiza", Price: 900, Stars: 5, Guests: 8},
		{ID: "house5", Title: "City Loft", Location: "Paris", Price: 180, Stars: 4.1, Guests: 2},
		{ID: "house6", Title: "Little Villa", Location: "Porto", Price: 99, Stars: 3.9, Guests: 1},
	}
}

func ids(listings []*catalog.Listing) []string {
	res := make([]string, 0, len(listings))
	for _, l := range listings {
		res = append(res, l.ID)
	}

	return res
}

func TestFilterVillaWithinPriceRange(t *testing.T) {
	c := catalog.New(sixListings())

	criteria, err := catalog.ParseCriteria(url.Values{
		"title":    {"villa"},
		"minPrice": {"100"},
		"maxPrice": {"300"},
		"guests":   {"Any"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"house1", "house3"}, ids(c.Filter(criteria)))
}

func TestFilterEmptyCriteriaKeepsOrder(t *testing.T) {
	c := catalog.New(sixListings())

	assert.Equal(t, []string{"house1", "house2", "house3", "house4", "house5", "house6"}, ids(c.Filter(catalog.Criteria{})))
}

func TestFilterGuestsIsExactMatch(t *testing.T) {
	c := catalog.New(sixListings())

	criteria, err := catalog.ParseCriteria(url.Values{"guests": {"2"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"house2", "house5"}, ids(c.Filter(criteria)))

	criteria, err = catalog.ParseCriteria(url.Values{"guests": {"8+"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"house3", "house4"}, ids(c.Filter(criteria)))
}

func TestFilterOpenEndedBounds(t *testing.T) {
	c := catalog.New(sixListings())

	minOnly, err := catalog.ParseCriteria(url.Values{"minPrice": {"300"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"house3", "house4"}, ids(c.Filter(minOnly)))

	maxOnly, err := catalog.ParseCriteria(url.Values{"maxPrice": {"120"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"house2", "house6"}, ids(c.Filter(maxOnly)))
}

func TestParseCriteriaRejectsMalformedNumbers(t *testing.T) {
	_, err := catalog.ParseCriteria(url.Values{"minPrice": {"cheap"}, "guests": {"0"}})

	validationErr := apperror.IsValidationError(err)
	require.NotNil(t, validationErr)
	assert.Contains(t, validationErr.Fields(), "minPrice")
	assert.Contains(t, validationErr.Fields(), "guests")
}

func TestGetUnknownListing(t *testing.T) {
	c := catalog.New(sixListings())

	l, err := c.Get("house3")
	require.NoError(t, err)
	assert.Equal(t, "VILLA Rosa", l.Title)

	_, err = c.Get("house42")
	assert.NotNil(t, apperror.IsNotFoundError(err))
}

func TestCatalogIsIsolatedFromCallerSlices(t *testing.T) {
	listings := sixListings()
	listings[0].Rules = []string{"No parties"}

	c := catalog.New(listings)
	listings[0].Title = "changed"
	listings[0].Rules[0] = "changed"

	l, err := c.Get("house1")
	require.NoError(t, err)
	assert.Equal(t, "Seaside Villa", l.Title)
	assert.Equal(t, []string{"No parties"}, l.Rules)
}

type flakySource struct {
	failures int
	calls    int
}

func (s *flakySource) ListListings(context.Context) ([]*catalog.Listing, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("backend unavailable")
	}

	return sixListings(), nil
}

func TestLoadRetriesAndResolvesImages(t *testing.T) {
	src := &flakySource{failures: 2}
	policy := retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond}

	c, err := catalog.Load(context.Background(), src, catalog.ImageResolver{BaseURL: "https://cdn.test/images/"}, policy)
	require.NoError(t, err)

	assert.Equal(t, 3, src.calls)
	assert.Equal(t, 6, c.Len())

	l, err := c.Get("house2")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/images/house2.jpg", l.ImageURL)
}

func TestLoadFailsAfterBoundedRetries(t *testing.T) {
	src := &flakySource{failures: 10}
	policy := retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond}

	_, err := catalog.Load(context.Background(), src, catalog.ImageResolver{}, policy)
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

type staticSource []*catalog.Listing

func (s staticSource) ListListings(context.Context) ([]*catalog.Listing, error) {
	return s, nil
}

func TestLoadRejectsInvalidListing(t *testing.T) {
	src := staticSource{{ID: "house1", Title: "Free stay", Price: 0, Guests: 1}}

	_, err := catalog.Load(context.Background(), src, catalog.ImageResolver{}, retry.DefaultPolicy())

	validationErr := apperror.IsValidationError(err)
	require.NotNil(t, validationErr)
	assert.Contains(t, validationErr.Fields(), "price")
}
