package review_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/clock"
	"github.com/avstrong/stays/internal/idgen/simple"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/retry"
	"github.com/avstrong/stays/internal/review"
	"github.com/avstrong/stays/internal/storage/memory"
)

type stubReservations struct {
	clock clock.Clock
	byID  map[string]*booking.Reservation
}

func (s *stubReservations) Get(_ context.Context, id string) (*booking.Reservation, error) {
	r, ok := s.byID[id]
	if !ok {
		return nil, apperror.NewNotFoundError("reservation", id)
	}

	return r, nil
}

func (s *stubReservations) Status(r *booking.Reservation) booking.State {
	return r.Status(s.clock.Now())
}

// staleLookupDB misses existing reviews on lookup, as a concurrent submit
// would, so the write itself has to catch the duplicate.
type staleLookupDB struct {
	*memory.DB
}

func (s staleLookupDB) GetReviewByReservation(context.Context, string) (*review.Review, error) {
	return nil, apperror.ErrRecordNotFound
}

type reviewStorage interface {
	SaveReview(ctx context.Context, r *review.Review) (string, error)
	ListReviewsByListing(ctx context.Context, listingID string) ([]*review.Review, error)
	GetReviewByReservation(ctx context.Context, reservationID string) (*review.Review, error)
}

type fixture struct {
	svc   *review.Service
	clock *clock.Fake
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	return newFixtureWithStorage(t, func(db *memory.DB) reviewStorage { return db })
}

func newFixtureWithStorage(t *testing.T, storage func(db *memory.DB) reviewStorage) *fixture {
	t.Helper()

	l := logrus.New()
	l.SetOutput(io.Discard)
	lg := logger.New(l)

	clk := clock.NewFake(time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC))

	past, err := booking.NewDateRange(
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	future, err := booking.NewDateRange(
		time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC),
	)
	require.NoError(t, err)

	listing := booking.ListingSnapshot{ID: "house1", Title: "Luxury Villa", Location: "Goa", Price: 150}

	//nolint:exhaustruct
	reservations := &stubReservations{
		clock: clk,
		byID: map[string]*booking.Reservation{
			"done":     {ID: "done", Listing: listing, Range: past, Guests: 2, State: booking.StateConfirmed},
			"upcoming": {ID: "upcoming", Listing: listing, Range: future, Guests: 2, State: booking.StateConfirmed},
		},
	}

	db := memory.New(memory.Config{L: lg, IDGenerator: simple.New("rev-")})

	svc := review.New(review.Config{
		L:            lg,
		Storage:      storage(db),
		Reservations: reservations,
		Clock:        clk,
		Retry:        retry.Policy{MaxAttempts: 1, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond},
	})

	return &fixture{svc: svc, clock: clk}
}

func TestSubmitForCompletedStay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Submit(ctx, "done", review.Input{Author: " Anna ", Message: "Lovely place", Rating: 5})
	require.NoError(t, err)

	assert.Equal(t, "rev-1", r.ID)
	assert.Equal(t, "house1", r.ListingID)
	assert.Equal(t, "Luxury Villa", r.ListingTitle)
	assert.Equal(t, "Anna", r.Author)
	assert.Equal(t, "June 2024", r.Date)

	reviews, err := f.svc.ListByListing(ctx, "house1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Lovely place", reviews[0].Message)

	none, err := f.svc.ListByListing(ctx, "house2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		in    review.Input
		field string
	}{
		{name: "blank author", in: review.Input{Author: "   ", Message: "ok", Rating: 4}, field: "author"},
		{name: "blank message", in: review.Input{Author: "Anna", Message: "", Rating: 4}, field: "message"},
		{name: "rating too low", in: review.Input{Author: "Anna", Message: "ok", Rating: 0}, field: "rating"},
		{name: "rating too high", in: review.Input{Author: "Anna", Message: "ok", Rating: 6}, field: "rating"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), "done", tt.in)

			validationErr := apperror.IsValidationError(err)
			require.NotNil(t, validationErr)
			assert.Contains(t, validationErr.Fields(), tt.field)
		})
	}
}

func TestSubmitRequiresCompletedReservation(t *testing.T) {
	f := newFixture(t)
	in := review.Input{Author: "Anna", Message: "ok", Rating: 4}

	_, err := f.svc.Submit(context.Background(), "upcoming", in)
	stateErr := apperror.IsStateError(err)
	require.NotNil(t, stateErr)
	assert.Equal(t, string(booking.StateConfirmed), stateErr.From)

	_, err = f.svc.Submit(context.Background(), "missing", in)
	require.NotNil(t, apperror.IsNotFoundError(err))

	f.clock.Set(time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC))

	_, err = f.svc.Submit(context.Background(), "upcoming", in)
	require.NoError(t, err)
}

func TestSubmitOncePerReservation(t *testing.T) {
	f := newFixture(t)
	in := review.Input{Author: "Anna", Message: "ok", Rating: 4}

	_, err := f.svc.Submit(context.Background(), "done", in)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), "done", in)
	validationErr := apperror.IsValidationError(err)
	require.NotNil(t, validationErr)
	assert.Contains(t, validationErr.Fields(), "reservationId")
}

func TestSubmitDuplicateCaughtOnWrite(t *testing.T) {
	f := newFixtureWithStorage(t, func(db *memory.DB) reviewStorage { return staleLookupDB{DB: db} })
	in := review.Input{Author: "Anna", Message: "ok", Rating: 4}

	_, err := f.svc.Submit(context.Background(), "done", in)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), "done", in)
	require.Nil(t, apperror.IsPersistenceError(err))

	validationErr := apperror.IsValidationError(err)
	require.NotNil(t, validationErr)
	assert.Contains(t, validationErr.Fields(), "reservationId")
}
