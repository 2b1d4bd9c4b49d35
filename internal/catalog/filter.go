package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/avstrong/stays/internal/apperror"
)

const GuestsAny = "Any"

// Criteria is the search form. Nil bounds and a nil guest count mean "any".
type Criteria struct {
	Title    string
	MinPrice *float64
	MaxPrice *float64
	Guests   *int
}

func (c Criteria) Match(l *Listing) bool {
	if !strings.Contains(strings.ToLower(l.Title), strings.ToLower(c.Title)) {
		return false
	}

	if c.MinPrice != nil && l.Price < *c.MinPrice {
		return false
	}

	if c.MaxPrice != nil && l.Price > *c.MaxPrice {
		return false
	}

	if c.Guests != nil && l.Guests != *c.Guests {
		return false
	}

	return true
}

func ParseCriteria(q url.Values) (Criteria, error) {
	validationErr := apperror.NewValidationError()

	//nolint:exhaustruct
	c := Criteria{Title: strings.TrimSpace(q.Get("title"))}

	if v := strings.TrimSpace(q.Get("minPrice")); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			validationErr.AddError("minPrice", "minPrice must be a non-negative number")
		} else {
			c.MinPrice = &price
		}
	}

	if v := strings.TrimSpace(q.Get("maxPrice")); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || price < 0 {
			validationErr.AddError("maxPrice", "maxPrice must be a non-negative number")
		} else {
			c.MaxPrice = &price
		}
	}

	// "8+" is the last button of the guest picker and selects exactly 8.
	if v := strings.TrimSpace(q.Get("guests")); v != "" && !strings.EqualFold(v, GuestsAny) {
		guests, err := strconv.Atoi(strings.TrimSuffix(v, "+"))
		if err != nil || guests < 1 {
			validationErr.AddError("guests", "guests must be 'Any' or a positive integer")
		} else {
			c.Guests = &guests
		}
	}

	if validationErr.FieldsCount() > 0 {
		return Criteria{}, validationErr
	}

	return c, nil
}
