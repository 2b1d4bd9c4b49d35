package booking

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Query parameters carrying booking state between the request, payment and
// confirmation steps. Kept stable for bookmarked links.
const (
	QueryCheckIn       = "checkIn"
	QueryCheckOut      = "checkOut"
	QueryGuests        = "guests"
	QueryReservationID = "reservationId"
)

var acceptedDateLayouts = []string{time.DateOnly, time.RFC3339Nano, time.RFC3339}

func parseQueryDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}

	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			y, m, d := t.UTC().Date()

			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		}
	}

	return time.Time{}
}

func formatQueryDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.DateOnly)
}

// DraftFromQuery never fails: unparsable values come back as "not picked" and
// are reported by Submit.
func DraftFromQuery(listingID string, q url.Values) Draft {
	//nolint:exhaustruct
	d := Draft{
		ListingID: listingID,
		CheckIn:   parseQueryDate(q.Get(QueryCheckIn)),
		CheckOut:  parseQueryDate(q.Get(QueryCheckOut)),
	}

	if guests, err := strconv.Atoi(strings.TrimSpace(q.Get(QueryGuests))); err == nil && guests > 0 {
		d.Guests = guests
	}

	return d
}

func (d Draft) Query() url.Values {
	q := url.Values{}

	if v := formatQueryDate(d.CheckIn); v != "" {
		q.Set(QueryCheckIn, v)
	}

	if v := formatQueryDate(d.CheckOut); v != "" {
		q.Set(QueryCheckOut, v)
	}

	if d.Guests > 0 {
		q.Set(QueryGuests, strconv.Itoa(d.Guests))
	}

	return q
}

func ConfirmationQuery(r *Reservation) url.Values {
	q := url.Values{}
	q.Set(QueryCheckIn, formatQueryDate(r.Range.CheckIn))
	q.Set(QueryCheckOut, formatQueryDate(r.Range.CheckOut))
	q.Set(QueryGuests, strconv.Itoa(r.Guests))
	q.Set(QueryReservationID, r.ID)

	return q
}
