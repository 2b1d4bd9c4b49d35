package booking

import (
	"time"

	"github.com/avstrong/stays/internal/catalog"
)

type State string

const (
	StateDraft     State = "draft"
	StatePending   State = "pending"
	StateConfirmed State = "confirmed"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled
}

// ListingSnapshot is the listing as it was when the reservation was made.
type ListingSnapshot struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	ImageURL string  `json:"imageUrl"`
}

func SnapshotOf(l *catalog.Listing) ListingSnapshot {
	return ListingSnapshot{
		ID:       l.ID,
		Title:    l.Title,
		Location: l.Location,
		Price:    l.Price,
		ImageURL: l.ImageURL,
	}
}

// Draft holds what the guest picked so far. Zero times mean "not picked".
type Draft struct {
	ListingID string    `json:"listingId"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	Guests    int       `json:"guests"`
}

func (d *Draft) PickCheckIn(t time.Time) {
	r := WithAutoCheckout(t, d.CheckOut)
	d.CheckIn = r.CheckIn
	d.CheckOut = r.CheckOut
}

func (d *Draft) PickCheckOut(t time.Time) {
	loc := t.Location()
	if !d.CheckIn.IsZero() {
		loc = d.CheckIn.Location()
	}

	d.CheckOut = calendarDate(t, loc)
}

// Range is nil when a date is missing.
func (d *Draft) Range() (*DateRange, error) {
	if d.CheckIn.IsZero() || d.CheckOut.IsZero() {
		return nil, nil //nolint:nilnil
	}

	r, err := NewDateRange(d.CheckIn, d.CheckOut)
	if err != nil {
		return nil, err
	}

	return &r, nil
}

type Reservation struct {
	ID        string          `json:"id"`
	Listing   ListingSnapshot `json:"listing"`
	Range     DateRange       `json:"range"`
	Guests    int             `json:"guests"`
	Price     PriceBreakdown  `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
	State     State           `json:"state"`
}

// Status is the state as seen at now: a confirmed stay whose check-out day
// has come is completed.
func (r *Reservation) Status(now time.Time) State {
	if r.State == StateConfirmed && r.Range.EndedBy(now) {
		return StateCompleted
	}

	return r.State
}

func (r *Reservation) clone() *Reservation {
	c := *r

	return &c
}

type EventType string

const (
	EventReservationConfirmed EventType = "reservation.confirmed"
	EventReservationCancelled EventType = "reservation.cancelled"
)

type Event struct {
	ID            string       `json:"id"`
	ReservationID string       `json:"reservationId"`
	Type          EventType    `json:"type"`
	CreatedAt     time.Time    `json:"createdAt"`
	Reservation   *Reservation `json:"reservation,omitempty"`
}
