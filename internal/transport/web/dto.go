package web

import (
	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/favorites"
	"github.com/avstrong/stays/internal/review"
)

type listingItem struct {
	*catalog.Listing
	Favorite bool `json:"favorite"`
}

type listingsResponse struct {
	Listings []listingItem `json:"listings"`
	Count    int           `json:"count"`
}

type listingResponse struct {
	Listing listingItem      `json:"listing"`
	Reviews []*review.Review `json:"reviews"`
	Fees    booking.Fees     `json:"fees"`
}

type quoteResponse struct {
	Draft   booking.Draft          `json:"draft"`
	Nights  int                    `json:"nights"`
	Price   booking.PriceBreakdown `json:"price"`
	Display booking.PriceDisplay   `json:"display"`
	Next    string                 `json:"next"`
}

type reservationResponse struct {
	*booking.Reservation
	Status       booking.State        `json:"status"`
	Display      booking.PriceDisplay `json:"display"`
	Confirmation string               `json:"confirmation"`
}

type reservationsResponse struct {
	View         booking.View          `json:"view"`
	Reservations []reservationResponse `json:"reservations"`
}

type favoritesResponse struct {
	Favorites []favorites.Entry `json:"favorites"`
	Flags     map[string]bool   `json:"flags"`
}

type toggleResponse struct {
	ListingID string `json:"listingId"`
	Favorite  bool   `json:"favorite"`
}

type reviewsResponse struct {
	Reviews []*review.Review `json:"reviews"`
}

func (s *Server) reservationView(r *booking.Reservation) reservationResponse {
	return reservationResponse{
		Reservation:  r,
		Status:       s.bManager.Status(r),
		Display:      r.Price.Display(),
		Confirmation: booking.ConfirmationQuery(r).Encode(),
	}
}
