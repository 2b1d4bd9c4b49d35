package booking

import (
	"time"

	"github.com/avstrong/stays/internal/apperror"
)

// Submit turns a draft into a pending reservation. The draft is never
// modified; an incomplete or invalid draft stays editable.
func Submit(draft Draft, listing ListingSnapshot, fees Fees) (*Reservation, error) {
	incomplete := apperror.NewIncompleteBookingError()

	if draft.CheckIn.IsZero() {
		incomplete.AddMissing(QueryCheckIn)
	}

	if draft.CheckOut.IsZero() {
		incomplete.AddMissing(QueryCheckOut)
	}

	if draft.Guests < 1 {
		incomplete.AddMissing(QueryGuests)
	}

	if incomplete.MissingCount() > 0 {
		return nil, incomplete
	}

	rng, err := draft.Range()
	if err != nil {
		return nil, err
	}

	//nolint:exhaustruct
	return &Reservation{
		Listing: listing,
		Range:   *rng,
		Guests:  draft.Guests,
		Price:   ComputePrice(listing.Price, rng, fees),
		State:   StatePending,
	}, nil
}

// Cancel is the local transition for a reservation that was never
// persisted. Cancelling twice is a no-op.
func (r *Reservation) Cancel(now time.Time) error {
	switch r.Status(now) {
	case StateCancelled:
		return nil
	case StateDraft, StatePending, StateConfirmed:
		r.State = StateCancelled

		return nil
	default:
		return apperror.NewStateError(string(r.Status(now)), "cancel")
	}
}
