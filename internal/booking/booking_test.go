package booking_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/clock"
	"github.com/avstrong/stays/internal/idgen/simple"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/storage/memory"
)

func testLogger() *logger.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return logger.New(l)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*booking.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event *booking.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return p.err
}

func (p *recordingPublisher) types() []booking.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	res := make([]booking.EventType, 0, len(p.events))
	for _, e := range p.events {
		res = append(res, e.Type)
	}

	return res
}

// flakyDB fails reservation writes while failSaves > 0.
type flakyDB struct {
	*memory.DB

	mu        sync.Mutex
	failSaves int
	saves     int
	delay     time.Duration
}

func (db *flakyDB) SaveReservation(ctx context.Context, r *booking.Reservation) (string, error) {
	db.mu.Lock()
	db.saves++
	fail := db.failSaves > 0
	if fail {
		db.failSaves--
	}
	delay := db.delay
	db.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if fail {
		return "", errors.New("backend unavailable")
	}

	return db.DB.SaveReservation(ctx, r)
}

func (db *flakyDB) saveCalls() int {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.saves
}

type fixture struct {
	manager   *booking.Manager
	db        *flakyDB
	clock     *clock.Fake
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	l := testLogger()
	db := &flakyDB{DB: memory.New(memory.Config{L: l, IDGenerator: simple.New("res-")})}
	clk := clock.NewFake(date(2024, 5, 20).Add(10 * time.Hour))
	pub := &recordingPublisher{}

	listings := catalog.New([]*catalog.Listing{
		{ID: "house1", Title: "Seaside Villa", Location: "Nice", Price: 150, Stars: 4.8, Guests: 4, ImageURL: "/img/house1.jpg"},
	})

	m := booking.New(booking.Config{
		L:           l,
		Storage:     db,
		Listings:    listings,
		IDGenerator: simple.New("evt-"),
		Publisher:   pub,
		Clock:       clk,
		Fees:        booking.DefaultFees(),
	})

	return &fixture{manager: m, db: db, clock: clk, publisher: pub}
}

func validDraft() booking.Draft {
	return booking.Draft{ListingID: "house1", CheckIn: date(2024, 6, 1), CheckOut: date(2024, 6, 4), Guests: 2}
}

func withKey(key string) context.Context {
	return booking.NewContextWithIdempotencyKey(context.Background(), key)
}

func TestSubmitBuildsPendingReservation(t *testing.T) {
	f := newFixture(t)

	res, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	assert.Equal(t, booking.StatePending, res.State)
	assert.Empty(t, res.ID)
	assert.Equal(t, "Seaside Villa", res.Listing.Title)
	assert.Equal(t, 3, res.Price.Nights)
	assert.InDelta(t, 450, res.Price.Subtotal, 1e-9)
	assert.InDelta(t, 650, res.Price.Total, 1e-9)
}

func TestSubmitWithoutCheckOutIsIncomplete(t *testing.T) {
	f := newFixture(t)

	draft := booking.Draft{ListingID: "house1", CheckIn: date(2024, 6, 1), Guests: 1}
	before := draft

	res, err := f.manager.Submit(draft)

	incomplete := apperror.IsIncompleteBookingError(err)
	require.NotNil(t, incomplete)
	assert.Equal(t, []string{booking.QueryCheckOut}, incomplete.Missing())
	assert.Nil(t, res)
	assert.Equal(t, before, draft)
}

func TestSubmitRejectsMissingGuestsAndInvertedRange(t *testing.T) {
	f := newFixture(t)

	noGuests := validDraft()
	noGuests.Guests = 0
	_, err := f.manager.Submit(noGuests)
	require.NotNil(t, apperror.IsIncompleteBookingError(err))

	inverted := validDraft()
	inverted.CheckIn, inverted.CheckOut = inverted.CheckOut, inverted.CheckIn
	_, err = f.manager.Submit(inverted)
	require.NotNil(t, apperror.IsInvalidRangeError(err))
}

func TestSubmitUnknownListing(t *testing.T) {
	f := newFixture(t)

	draft := validDraft()
	draft.ListingID = "house9"

	_, err := f.manager.Submit(draft)
	require.NotNil(t, apperror.IsNotFoundError(err))
}

func TestConfirmPersistsAndRoundTrips(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	confirmed, err := f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)

	assert.Equal(t, "res-1", confirmed.ID)
	assert.Equal(t, booking.StateConfirmed, confirmed.State)
	assert.Equal(t, confirmed.ID, pending.ID)
	assert.Equal(t, booking.StateConfirmed, pending.State)

	fetched, err := f.manager.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)

	assert.Equal(t, pending.Range, fetched.Range)
	assert.Equal(t, pending.Guests, fetched.Guests)
	assert.Equal(t, pending.Price, fetched.Price)
	assert.Equal(t, f.clock.Now(), fetched.CreatedAt)

	assert.Equal(t, []booking.EventType{booking.EventReservationConfirmed}, f.publisher.types())
	assert.Len(t, f.db.Events(context.Background(), confirmed.ID), 1)
}

func TestConfirmRequiresIdempotencyKey(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	_, err = f.manager.Confirm(context.Background(), pending)
	require.ErrorIs(t, err, apperror.ErrIdempotencyKey)
	assert.Equal(t, booking.StatePending, pending.State)
}

func TestConfirmFailureLeavesPendingAndIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.db.failSaves = 1

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	_, err = f.manager.Confirm(withKey("k-1"), pending)
	require.NotNil(t, apperror.IsPersistenceError(err))
	assert.Equal(t, booking.StatePending, pending.State)
	assert.Empty(t, pending.ID)

	all, err := f.manager.List(context.Background(), booking.ViewAll)
	require.NoError(t, err)
	assert.Empty(t, all)

	confirmed, err := f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, confirmed.State)
}

func TestConfirmIsIdempotentPerKey(t *testing.T) {
	f := newFixture(t)

	first, err := f.manager.Submit(validDraft())
	require.NoError(t, err)
	second, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	a, err := f.manager.Confirm(withKey("same"), first)
	require.NoError(t, err)
	b, err := f.manager.Confirm(withKey("same"), second)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 1, f.db.saveCalls())
}

func TestConcurrentConfirmsWriteOnce(t *testing.T) {
	f := newFixture(t)
	f.db.delay = 20 * time.Millisecond

	const clicks = 5

	var (
		wg  sync.WaitGroup
		ids = make([]string, clicks)
	)

	for i := 0; i < clicks; i++ {
		pending, err := f.manager.Submit(validDraft())
		require.NoError(t, err)

		wg.Add(1)

		go func(i int, pending *booking.Reservation) {
			defer wg.Done()

			res, err := f.manager.Confirm(withKey("double-click"), pending)
			if err == nil {
				ids[i] = res.ID
			}
		}(i, pending)
	}

	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}

	assert.NotEmpty(t, ids[0])
	assert.Equal(t, 1, f.db.saveCalls())

	all, err := f.manager.List(context.Background(), booking.ViewAll)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConfirmRejectsWrongState(t *testing.T) {
	f := newFixture(t)

	_, err := f.manager.Confirm(withKey("k"), &booking.Reservation{State: booking.StateCancelled})
	require.NotNil(t, apperror.IsStateError(err))
}

func TestCancelTwiceIsSameAsOnce(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)
	confirmed, err := f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)

	require.NoError(t, f.manager.Cancel(context.Background(), confirmed.ID))
	require.NoError(t, f.manager.Cancel(context.Background(), confirmed.ID))

	_, err = f.manager.Get(context.Background(), confirmed.ID)
	require.NotNil(t, apperror.IsNotFoundError(err))

	assert.Equal(t,
		[]booking.EventType{booking.EventReservationConfirmed, booking.EventReservationCancelled},
		f.publisher.types(),
	)
}

func TestCancelReleasesIdempotencyKey(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)
	confirmed, err := f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)
	require.NoError(t, f.manager.Cancel(context.Background(), confirmed.ID))

	again, err := f.manager.Submit(validDraft())
	require.NoError(t, err)
	rebooked, err := f.manager.Confirm(withKey("k-1"), again)
	require.NoError(t, err)

	assert.NotEqual(t, confirmed.ID, rebooked.ID)
}

func TestCancelCompletedStayIsRejected(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)
	confirmed, err := f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)

	f.clock.Set(date(2024, 6, 4))

	err = f.manager.Cancel(context.Background(), confirmed.ID)
	require.NotNil(t, apperror.IsStateError(err))

	_, err = f.manager.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	f := newFixture(t)
	f.publisher.err = errors.New("broker down")

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	_, err = f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)
}

func TestStatusIsDerivedFromClock(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)
	confirmed, err := f.manager.Confirm(withKey("k-1"), pending)
	require.NoError(t, err)

	assert.Equal(t, booking.StateConfirmed, f.manager.Status(confirmed))

	f.clock.Set(date(2024, 6, 3).Add(23 * time.Hour))
	assert.Equal(t, booking.StateConfirmed, f.manager.Status(confirmed))

	f.clock.Set(date(2024, 6, 4))
	assert.Equal(t, booking.StateCompleted, f.manager.Status(confirmed))

	stored, err := f.manager.Get(context.Background(), confirmed.ID)
	require.NoError(t, err)
	assert.Equal(t, booking.StateConfirmed, stored.State)
}

func TestListViews(t *testing.T) {
	f := newFixture(t)

	past := booking.Draft{ListingID: "house1", CheckIn: date(2024, 5, 1), CheckOut: date(2024, 5, 3), Guests: 1}
	future := validDraft()

	for i, d := range []booking.Draft{future, past} {
		pending, err := f.manager.Submit(d)
		require.NoError(t, err)

		_, err = f.manager.Confirm(withKey(string(rune('a'+i))), pending)
		require.NoError(t, err)
	}

	all, err := f.manager.List(context.Background(), booking.ViewAll)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, date(2024, 5, 1), all[0].Range.CheckIn)

	upcoming, err := f.manager.List(context.Background(), booking.ViewUpcoming)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, date(2024, 6, 1), upcoming[0].Range.CheckIn)

	done, err := f.manager.List(context.Background(), booking.ViewDone)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, date(2024, 5, 1), done[0].Range.CheckIn)

	// At the check-out instant the stay is completed and moves to done.
	f.clock.Set(date(2024, 6, 4))

	upcoming, err = f.manager.List(context.Background(), booking.ViewUpcoming)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	done, err = f.manager.List(context.Background(), booking.ViewDone)
	require.NoError(t, err)
	require.Len(t, done, 2)

	for _, r := range done {
		assert.Equal(t, booking.StateCompleted, f.manager.Status(r))
	}
}

func TestParseView(t *testing.T) {
	v, err := booking.ParseView("")
	require.NoError(t, err)
	assert.Equal(t, booking.ViewAll, v)

	_, err = booking.ParseView("archived")
	require.NotNil(t, apperror.IsValidationError(err))
}

func TestQuoteWithoutDatesIsFeesOnly(t *testing.T) {
	f := newFixture(t)

	p, err := f.manager.Quote("house1", booking.Draft{ListingID: "house1"})
	require.NoError(t, err)

	assert.Zero(t, p.Nights)
	assert.InDelta(t, 200, p.Total, 1e-9)
}

func TestQuoteRejectsInvertedRange(t *testing.T) {
	f := newFixture(t)

	inverted := validDraft()
	inverted.CheckIn, inverted.CheckOut = inverted.CheckOut, inverted.CheckIn

	_, err := f.manager.Quote("house1", inverted)
	require.NotNil(t, apperror.IsInvalidRangeError(err))

	// A half-picked range still quotes fees only.
	half := booking.Draft{ListingID: "house1", CheckIn: date(2024, 6, 1)}

	p, err := f.manager.Quote("house1", half)
	require.NoError(t, err)
	assert.Zero(t, p.Nights)
	assert.InDelta(t, 200, p.Total, 1e-9)
}

func TestLocalCancelOfPendingReservation(t *testing.T) {
	f := newFixture(t)

	pending, err := f.manager.Submit(validDraft())
	require.NoError(t, err)

	require.NoError(t, pending.Cancel(f.clock.Now()))
	require.NoError(t, pending.Cancel(f.clock.Now()))
	assert.Equal(t, booking.StateCancelled, pending.State)

	_, err = f.manager.Confirm(withKey("k"), pending)
	require.NotNil(t, apperror.IsStateError(err))
}
