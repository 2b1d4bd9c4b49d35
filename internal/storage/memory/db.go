package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/review"
)

type idGenerator interface {
	GetID(ctx context.Context) (string, error)
}

type Config struct {
	L           *logger.Logger
	IDGenerator idGenerator
}

// transaction stages writes until commit; rollback drops them.
type transaction struct {
	id                 string
	idempotencyKey     string
	listingWrites      []*catalog.Listing
	reservationWrites  []*booking.Reservation
	reservationDeletes []string
	eventWrites        []*booking.Event
}

type DB struct {
	mu                   sync.Mutex
	l                    *logger.Logger
	idGenerator          idGenerator
	listings             map[string]*catalog.Listing
	listingOrder         []string
	reservations         map[string]*booking.Reservation
	reservationOrder     []string
	idempotencyKeys      map[string]string
	events               map[string]*booking.Event
	reviews              map[string]*review.Review
	reviewOrder          []string
	reviewsByReservation map[string]string
	transactions         map[string]*transaction
	nextTrxID            int64
}

func New(conf Config) *DB {
	//nolint:exhaustruct
	return &DB{
		l:                    conf.L,
		idGenerator:          conf.IDGenerator,
		listings:             make(map[string]*catalog.Listing),
		reservations:         make(map[string]*booking.Reservation),
		idempotencyKeys:      make(map[string]string),
		events:               make(map[string]*booking.Event),
		reviews:              make(map[string]*review.Review),
		reviewsByReservation: make(map[string]string),
		transactions:         make(map[string]*transaction),
	}
}

func (db *DB) BeginTransaction(ctx context.Context, _ string) (context.Context, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	trxID := fmt.Sprintf("trx-%d", db.nextTrxID)
	db.nextTrxID++

	key, _ := booking.IdempotencyKeyFromContext(ctx)

	//nolint:exhaustruct
	db.transactions[trxID] = &transaction{
		id:             trxID,
		idempotencyKey: key,
	}

	return withTransactionID(ctx, trxID), nil
}

// trx must be called with db.mu held.
func (db *DB) trx(ctx context.Context) (*transaction, error) {
	trxID, ok := transactionIDFromContext(ctx)
	if !ok {
		return nil, ErrTransactionIDNotFoundInCtx
	}

	trx, exists := db.transactions[trxID]
	if !exists {
		return nil, fmt.Errorf("transaction %s not found: %w", trxID, ErrTransactionNotFound)
	}

	return trx, nil
}

func (db *DB) CommitTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	defer delete(db.transactions, trx.id)

	if trx.idempotencyKey != "" && len(trx.reservationWrites) > 0 {
		if _, taken := db.idempotencyKeys[trx.idempotencyKey]; taken {
			return fmt.Errorf("commit %s: %w", trx.id, ErrDuplicateIdempotencyKey)
		}
	}

	for _, l := range trx.listingWrites {
		if _, exists := db.listings[l.ID]; !exists {
			db.listingOrder = append(db.listingOrder, l.ID)
		}

		db.listings[l.ID] = l
	}

	for _, r := range trx.reservationWrites {
		if _, exists := db.reservations[r.ID]; !exists {
			db.reservationOrder = append(db.reservationOrder, r.ID)
		}

		db.reservations[r.ID] = r

		if trx.idempotencyKey != "" {
			db.idempotencyKeys[trx.idempotencyKey] = r.ID
		}
	}

	for _, id := range trx.reservationDeletes {
		db.deleteReservation(id)
	}

	for _, e := range trx.eventWrites {
		db.events[e.ID] = e
	}

	return nil
}

func (db *DB) RollbackTransaction(ctx context.Context) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	trx, err := db.trx(ctx)
	if err != nil {
		return err
	}

	delete(db.transactions, trx.id)

	return nil
}

// deleteReservation must be called with db.mu held. Idempotency keys pointing
// at the reservation are released as well.
func (db *DB) deleteReservation(id string) {
	if _, exists := db.reservations[id]; !exists {
		return
	}

	delete(db.reservations, id)

	for i, rid := range db.reservationOrder {
		if rid == id {
			db.reservationOrder = append(db.reservationOrder[:i], db.reservationOrder[i+1:]...)

			break
		}
	}

	for key, rid := range db.idempotencyKeys {
		if rid == id {
			delete(db.idempotencyKeys, key)
		}
	}
}
