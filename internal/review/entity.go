package review

import "time"

// DateLayout is how review dates are shown: month name and year.
const DateLayout = "January 2006"

type Review struct {
	ID            string    `json:"id"`
	ListingID     string    `json:"listingId"`
	ListingTitle  string    `json:"listingTitle"`
	ReservationID string    `json:"reservationId"`
	Author        string    `json:"author"`
	Message       string    `json:"message"`
	Rating        int       `json:"rating"`
	Date          string    `json:"date"`
	CreatedAt     time.Time `json:"createdAt"`
}

type Input struct {
	Author  string `json:"author"  validate:"required,max=100"`
	Message string `json:"message" validate:"required,max=2000"`
	Rating  int    `json:"rating"  validate:"min=1,max=5"`
}
