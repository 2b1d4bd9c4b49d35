package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/singleflight"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/clock"
	"github.com/avstrong/stays/internal/logger"
)

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type listingGetter interface {
	Get(id string) (*catalog.Listing, error)
}

type publisher interface {
	Publish(ctx context.Context, event *Event) error
}

type storageReader interface {
	GetReservation(ctx context.Context, id string) (*Reservation, error)
	ListReservations(ctx context.Context) ([]*Reservation, error)
	GetReservationByIdempotencyKey(ctx context.Context) (*Reservation, error)
}

type storageWriter interface {
	BeginTransaction(ctx context.Context, level string) (context.Context, error)
	CommitTransaction(ctx context.Context) error
	RollbackTransaction(ctx context.Context) error
	SaveReservation(ctx context.Context, reservation *Reservation) (string, error)
	DeleteReservation(ctx context.Context, id string) error
	SaveEvent(ctx context.Context, event *Event) error
}

type storage interface {
	storageReader
	storageWriter
}

type View string

const (
	ViewAll      View = "all"
	ViewUpcoming View = "upcoming"
	ViewDone     View = "done"
)

func ParseView(v string) (View, error) {
	switch View(v) {
	case "", ViewAll:
		return ViewAll, nil
	case ViewUpcoming, ViewDone:
		return View(v), nil
	default:
		validationErr := apperror.NewValidationError()
		validationErr.AddError("view", "view must be one of all, upcoming, done")

		return "", validationErr
	}
}

type Config struct {
	L           *logger.Logger
	Storage     storage
	Listings    listingGetter
	IDGenerator idGenerator
	Publisher   publisher
	Clock       clock.Clock
	Fees        Fees
}

type Manager struct {
	l           *logger.Logger
	storage     storage
	listings    listingGetter
	idGenerator idGenerator
	publisher   publisher
	clock       clock.Clock
	fees        Fees
	inFlight    singleflight.Group
}

func New(conf Config) *Manager {
	clk := conf.Clock
	if clk == nil {
		clk = clock.Real()
	}

	//nolint:exhaustruct
	return &Manager{
		l:           conf.L,
		storage:     conf.Storage,
		listings:    conf.Listings,
		idGenerator: conf.IDGenerator,
		publisher:   conf.Publisher,
		clock:       clk,
		fees:        conf.Fees,
	}
}

func (m *Manager) Fees() Fees {
	return m.fees
}

// Status evaluates the derived lifecycle state at the current time.
func (m *Manager) Status(r *Reservation) State {
	return r.Status(m.clock.Now())
}

// Quote prices a draft against the listing's nightly rate. A draft without
// dates quotes fees only; an inverted range is an error.
func (m *Manager) Quote(listingID string, draft Draft) (PriceBreakdown, error) {
	listing, err := m.listings.Get(listingID)
	if err != nil {
		return PriceBreakdown{}, fmt.Errorf("get listing: %w", err)
	}

	rng, err := draft.Range()
	if err != nil {
		return PriceBreakdown{}, err
	}

	return ComputePrice(listing.Price, rng, m.fees), nil
}

func (m *Manager) Submit(draft Draft) (*Reservation, error) {
	listing, err := m.listings.Get(draft.ListingID)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}

	return Submit(draft, SnapshotOf(listing), m.fees)
}

// Confirm persists a pending reservation. Concurrent calls sharing the
// idempotency key in ctx produce a single write; a retry after success gets
// the stored reservation back. On failure res stays pending.
func (m *Manager) Confirm(ctx context.Context, res *Reservation) (*Reservation, error) {
	if res.State == StateConfirmed && res.ID != "" {
		return res, nil
	}

	if res.State != StatePending {
		return nil, apperror.NewStateError(string(res.State), "confirm")
	}

	key, ok := IdempotencyKeyFromContext(ctx)
	if !ok {
		return nil, apperror.ErrIdempotencyKey
	}

	v, err, shared := m.inFlight.Do(key, func() (any, error) {
		return m.confirm(ctx, res)
	})
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	if shared {
		m.l.LogDebug("Confirm for idempotency key %s shared an in-flight call", key)
	}

	confirmed, _ := v.(*Reservation)
	out := confirmed.clone()

	res.ID = out.ID
	res.State = out.State
	res.CreatedAt = out.CreatedAt

	return out, nil
}

func (m *Manager) confirm(ctx context.Context, res *Reservation) (*Reservation, error) {
	existing, err := m.storage.GetReservationByIdempotencyKey(ctx)
	if err != nil && !errors.Is(err, apperror.ErrRecordNotFound) {
		return nil, apperror.NewPersistenceError("get reservation by idempotency key", err)
	}

	if err == nil {
		return existing, nil
	}

	persisted := res.clone()
	persisted.State = StateConfirmed
	persisted.CreatedAt = m.clock.Now()

	event, err := m.persistConfirmed(ctx, persisted)
	if err != nil {
		return nil, apperror.NewPersistenceError("confirm reservation", err)
	}

	m.l.With(logger.Fields{"reservation_id": persisted.ID, "listing_id": persisted.Listing.ID}).
		LogInfo("Reservation has been confirmed")

	m.publish(ctx, event)

	return persisted, nil
}

func (m *Manager) persistConfirmed(ctx context.Context, res *Reservation) (_ *Event, err error) {
	ctx, err = m.storage.BeginTransaction(ctx, "READ COMMITTED")
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { err = m.finishTransaction(ctx, err, recover()) }()

	id, err := m.storage.SaveReservation(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("save reservation to storage: %w", err)
	}

	res.ID = id

	event, err := m.buildEvent(ctx, res, EventReservationConfirmed)
	if err != nil {
		return nil, fmt.Errorf("build event for reservation %v: %w", id, err)
	}

	if err = m.storage.SaveEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("save event to storage: %w", err)
	}

	return event, nil
}

// Cancel hard-deletes a persisted reservation. Cancelling an absent
// reservation succeeds without effect, so repeated calls are harmless.
func (m *Manager) Cancel(ctx context.Context, id string) error {
	res, err := m.storage.GetReservation(ctx, id)
	if errors.Is(err, apperror.ErrRecordNotFound) {
		m.l.LogDebug("Reservation %s is already gone, nothing to cancel", id)

		return nil
	}

	if err != nil {
		return fmt.Errorf("get reservation %s: %w", id, err)
	}

	if err := res.Cancel(m.clock.Now()); err != nil {
		return err
	}

	event, err := m.persistCancelled(ctx, res)
	if err != nil {
		return apperror.NewPersistenceError("cancel reservation", err)
	}

	m.l.With(logger.Fields{"reservation_id": id}).LogInfo("Reservation has been cancelled")

	m.publish(ctx, event)

	return nil
}

func (m *Manager) persistCancelled(ctx context.Context, res *Reservation) (_ *Event, err error) {
	ctx, err = m.storage.BeginTransaction(ctx, "READ COMMITTED")
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() { err = m.finishTransaction(ctx, err, recover()) }()

	if err = m.storage.DeleteReservation(ctx, res.ID); err != nil {
		return nil, fmt.Errorf("delete reservation from storage: %w", err)
	}

	event, err := m.buildEvent(ctx, res, EventReservationCancelled)
	if err != nil {
		return nil, fmt.Errorf("build event for reservation %v: %w", res.ID, err)
	}

	if err = m.storage.SaveEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("save event to storage: %w", err)
	}

	return event, nil
}

// finishTransaction commits on success and rolls back on error or panic.
// A failed commit is reported to the caller.
func (m *Manager) finishTransaction(ctx context.Context, err error, p any) error {
	if p != nil {
		if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
			m.l.LogErrorf("Could not rollback reservation transaction after panic %v: %v", p, rbErr)
		}

		m.l.LogInfo("Transaction has been roll backed after panic")

		panic(p)
	}

	if err != nil {
		if rbErr := m.storage.RollbackTransaction(ctx); rbErr != nil {
			m.l.LogErrorf("Could not rollback reservation transaction after error %v: %v", err.Error(), rbErr)
		}

		m.l.LogInfo("Transaction has been roll backed after error")

		return err
	}

	if err = m.storage.CommitTransaction(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	m.l.LogDebug("Transaction has been committed")

	return nil
}

func (m *Manager) buildEvent(ctx context.Context, res *Reservation, typ EventType) (*Event, error) {
	id, err := m.idGenerator.GetID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get next id from generator: %w", err)
	}

	return &Event{
		ID:            id,
		ReservationID: res.ID,
		Type:          typ,
		CreatedAt:     m.clock.Now(),
		Reservation:   res.clone(),
	}, nil
}

func (m *Manager) publish(ctx context.Context, event *Event) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.Publish(ctx, event); err != nil {
		m.l.LogErrorf("Could not publish %s event for reservation %s: %v", event.Type, event.ReservationID, err)
	}
}

func (m *Manager) Get(ctx context.Context, id string) (*Reservation, error) {
	res, err := m.storage.GetReservation(ctx, id)
	if errors.Is(err, apperror.ErrRecordNotFound) {
		return nil, apperror.NewNotFoundError("reservation", id)
	}

	if err != nil {
		return nil, fmt.Errorf("get reservation %s: %w", id, err)
	}

	return res, nil
}

// List returns reservations ordered by check-in. Done keeps completed stays;
// upcoming keeps the rest.
func (m *Manager) List(ctx context.Context, view View) ([]*Reservation, error) {
	all, err := m.storage.ListReservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}

	now := m.clock.Now()
	res := make([]*Reservation, 0, len(all))

	for _, r := range all {
		completed := r.Status(now) == StateCompleted

		switch view {
		case ViewUpcoming:
			if completed {
				continue
			}
		case ViewDone:
			if !completed {
				continue
			}
		case ViewAll:
		}

		res = append(res, r)
	}

	sort.SliceStable(res, func(i, j int) bool {
		return res[i].Range.CheckIn.Before(res[j].Range.CheckIn)
	})

	return res, nil
}
