package booking

import (
	"time"

	"github.com/avstrong/stays/internal/apperror"
)

// DateRange is a check-in/check-out pair of calendar dates. Both ends are
// kept at midnight in the check-in's location, so nights are always whole.
type DateRange struct {
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()

	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

const secondsPerDay = 24 * 60 * 60

// daysBetween counts calendar days on dates only, so DST shifts do not leak in.
// Unix seconds keep it exact past the ~292 year span of time.Duration.
func daysBetween(from, to time.Time) int {
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()

	start := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)

	return int((end.Unix() - start.Unix()) / secondsPerDay)
}

func NewDateRange(checkIn, checkOut time.Time) (DateRange, error) {
	loc := checkIn.Location()
	r := DateRange{
		CheckIn:  calendarDate(checkIn, loc),
		CheckOut: calendarDate(checkOut, loc),
	}

	if !r.Valid() {
		return DateRange{}, apperror.NewInvalidRangeError(r.CheckIn, r.CheckOut)
	}

	return r, nil
}

// WithAutoCheckout applies the minimum-stay rule used by every date picker:
// when no check-out is set, or the new check-in is on or after it, check-out
// moves to the day after check-in. A zero checkOut means "not set".
func WithAutoCheckout(checkIn, checkOut time.Time) DateRange {
	loc := checkIn.Location()
	in := calendarDate(checkIn, loc)

	if checkOut.IsZero() {
		return DateRange{CheckIn: in, CheckOut: in.AddDate(0, 0, 1)}
	}

	out := calendarDate(checkOut, loc)
	if !in.Before(out) {
		out = in.AddDate(0, 0, 1)
	}

	return DateRange{CheckIn: in, CheckOut: out}
}

func (r *DateRange) IsZero() bool {
	return r == nil || r.CheckIn.IsZero() || r.CheckOut.IsZero()
}

func (r *DateRange) Valid() bool {
	if r.IsZero() {
		return false
	}

	return daysBetween(r.CheckIn, r.CheckOut.In(r.CheckIn.Location())) > 0
}

// Nights is 0 for an absent or invalid range, never negative.
func (r *DateRange) Nights() int {
	if !r.Valid() {
		return 0
	}

	return daysBetween(r.CheckIn, r.CheckOut.In(r.CheckIn.Location()))
}

// EndedBy reports whether the check-out day has been reached at t.
func (r *DateRange) EndedBy(t time.Time) bool {
	return !r.IsZero() && !t.Before(r.CheckOut)
}
