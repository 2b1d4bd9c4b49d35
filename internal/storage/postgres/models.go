package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/review"
)

type listingModel struct {
	ID          string `gorm:"primaryKey"`
	Position    int    `gorm:"index"`
	Title       string `gorm:"not null"`
	Location    string
	Price       float64
	Stars       float64
	Guests      int
	Description string
	Rules       datatypes.JSON `gorm:"type:jsonb"`
	Safety      datatypes.JSON `gorm:"type:jsonb"`
	Features    datatypes.JSON `gorm:"type:jsonb"`
	Services    datatypes.JSON `gorm:"type:jsonb"`
	Offers      datatypes.JSON `gorm:"type:jsonb"`
}

func (listingModel) TableName() string {
	return "listings"
}

func jsonList(v []string) (datatypes.JSON, error) {
	if v == nil {
		v = []string{}
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode list: %w", err)
	}

	return raw, nil
}

func stringList(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var v []string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}

	return v, nil
}

func toListingModel(l *catalog.Listing, position int) (*listingModel, error) {
	m := &listingModel{
		ID:          l.ID,
		Position:    position,
		Title:       l.Title,
		Location:    l.Location,
		Price:       l.Price,
		Stars:       l.Stars,
		Guests:      l.Guests,
		Description: l.Description,
	}

	lists := []struct {
		src []string
		dst *datatypes.JSON
	}{
		{l.Rules, &m.Rules},
		{l.Safety, &m.Safety},
		{l.Features, &m.Features},
		{l.Services, &m.Services},
		{l.Offers, &m.Offers},
	}

	for _, item := range lists {
		raw, err := jsonList(item.src)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", l.ID, err)
		}

		*item.dst = raw
	}

	return m, nil
}

func (m *listingModel) toListing() (*catalog.Listing, error) {
	//nolint:exhaustruct
	l := &catalog.Listing{
		ID:          m.ID,
		Title:       m.Title,
		Location:    m.Location,
		Price:       m.Price,
		Stars:       m.Stars,
		Guests:      m.Guests,
		Description: m.Description,
	}

	lists := []struct {
		src datatypes.JSON
		dst *[]string
	}{
		{m.Rules, &l.Rules},
		{m.Safety, &l.Safety},
		{m.Features, &l.Features},
		{m.Services, &l.Services},
		{m.Offers, &l.Offers},
	}

	for _, item := range lists {
		v, err := stringList(item.src)
		if err != nil {
			return nil, fmt.Errorf("listing %s: %w", m.ID, err)
		}

		*item.dst = v
	}

	return l, nil
}

type reservationModel struct {
	ID              string  `gorm:"primaryKey"`
	IdempotencyKey  *string `gorm:"uniqueIndex"`
	ListingID       string  `gorm:"index;not null"`
	ListingTitle    string
	ListingLocation string
	ListingPrice    float64
	ListingImageURL string
	CheckIn         datatypes.Date `gorm:"not null"`
	CheckOut        datatypes.Date `gorm:"not null"`
	Guests          int
	NightlyRate     float64
	Nights          int
	Subtotal        float64
	CleaningFee     float64
	ServiceFee      float64
	Total           float64
	State           string `gorm:"not null"`
	CreatedAt       time.Time
}

func (reservationModel) TableName() string {
	return "reservations"
}

func toReservationModel(r *booking.Reservation, idempotencyKey string) *reservationModel {
	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	return &reservationModel{
		ID:              r.ID,
		IdempotencyKey:  key,
		ListingID:       r.Listing.ID,
		ListingTitle:    r.Listing.Title,
		ListingLocation: r.Listing.Location,
		ListingPrice:    r.Listing.Price,
		ListingImageURL: r.Listing.ImageURL,
		CheckIn:         datatypes.Date(r.Range.CheckIn),
		CheckOut:        datatypes.Date(r.Range.CheckOut),
		Guests:          r.Guests,
		NightlyRate:     r.Price.NightlyRate,
		Nights:          r.Price.Nights,
		Subtotal:        r.Price.Subtotal,
		CleaningFee:     r.Price.CleaningFee,
		ServiceFee:      r.Price.ServiceFee,
		Total:           r.Price.Total,
		State:           string(r.State),
		CreatedAt:       r.CreatedAt,
	}
}

func dateOf(d datatypes.Date) time.Time {
	y, m, day := time.Time(d).Date()

	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func (m *reservationModel) toReservation() *booking.Reservation {
	return &booking.Reservation{
		ID: m.ID,
		Listing: booking.ListingSnapshot{
			ID:       m.ListingID,
			Title:    m.ListingTitle,
			Location: m.ListingLocation,
			Price:    m.ListingPrice,
			ImageURL: m.ListingImageURL,
		},
		Range:  booking.DateRange{CheckIn: dateOf(m.CheckIn), CheckOut: dateOf(m.CheckOut)},
		Guests: m.Guests,
		Price: booking.PriceBreakdown{
			NightlyRate: m.NightlyRate,
			Nights:      m.Nights,
			Subtotal:    m.Subtotal,
			CleaningFee: m.CleaningFee,
			ServiceFee:  m.ServiceFee,
			Total:       m.Total,
		},
		CreatedAt: m.CreatedAt.UTC(),
		State:     booking.State(m.State),
	}
}

type eventModel struct {
	ID            string         `gorm:"primaryKey"`
	ReservationID string         `gorm:"index;not null"`
	Type          string         `gorm:"not null"`
	Payload       datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt     time.Time
}

func (eventModel) TableName() string {
	return "reservation_events"
}

func toEventModel(e *booking.Event) (*eventModel, error) {
	var payload datatypes.JSON

	if e.Reservation != nil {
		raw, err := json.Marshal(e.Reservation)
		if err != nil {
			return nil, fmt.Errorf("encode event payload: %w", err)
		}

		payload = raw
	}

	return &eventModel{
		ID:            e.ID,
		ReservationID: e.ReservationID,
		Type:          string(e.Type),
		Payload:       payload,
		CreatedAt:     e.CreatedAt,
	}, nil
}

type reviewModel struct {
	ID            string `gorm:"primaryKey"`
	ListingID     string `gorm:"index;not null"`
	ListingTitle  string
	ReservationID string `gorm:"uniqueIndex;not null"`
	Author        string `gorm:"not null"`
	Message       string `gorm:"not null"`
	Rating        int    `gorm:"not null"`
	Date          string
	CreatedAt     time.Time
}

func (reviewModel) TableName() string {
	return "reviews"
}

func toReviewModel(r *review.Review) *reviewModel {
	return &reviewModel{
		ID:            r.ID,
		ListingID:     r.ListingID,
		ListingTitle:  r.ListingTitle,
		ReservationID: r.ReservationID,
		Author:        r.Author,
		Message:       r.Message,
		Rating:        r.Rating,
		Date:          r.Date,
		CreatedAt:     r.CreatedAt,
	}
}

func (m *reviewModel) toReview() *review.Review {
	return &review.Review{
		ID:            m.ID,
		ListingID:     m.ListingID,
		ListingTitle:  m.ListingTitle,
		ReservationID: m.ReservationID,
		Author:        m.Author,
		Message:       m.Message,
		Rating:        m.Rating,
		Date:          m.Date,
		CreatedAt:     m.CreatedAt.UTC(),
	}
}
