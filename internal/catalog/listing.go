package catalog

import (
	"strings"

	"github.com/avstrong/stays/internal/apperror"
)

type Listing struct {
	ID          string   `json:"id"          yaml:"id"`
	Title       string   `json:"title"       yaml:"title"`
	Location    string   `json:"location"    yaml:"location"`
	Price       float64  `json:"price"       yaml:"price"`
	Stars       float64  `json:"stars"       yaml:"stars"`
	Guests      int      `json:"guests"      yaml:"guests"`
	ImageURL    string   `json:"imageUrl"    yaml:"-"`
	Description string   `json:"description" yaml:"description"`
	Rules       []string `json:"rules"       yaml:"rules"`
	Safety      []string `json:"safety"      yaml:"safety"`
	Features    []string `json:"features"    yaml:"features"`
	Services    []string `json:"services"    yaml:"services"`
	Offers      []string `json:"offers"      yaml:"offers"`
}

func (l *Listing) Validate() error {
	validationErr := apperror.NewValidationError()

	if strings.TrimSpace(l.ID) == "" {
		validationErr.AddError("id", "provide listing id")
	}

	if strings.TrimSpace(l.Title) == "" {
		validationErr.AddError("title", "provide listing title")
	}

	if l.Price <= 0 {
		validationErr.AddError("price", "price must be positive")
	}

	if l.Stars < 0 || l.Stars > 5 {
		validationErr.AddError("stars", "stars must be between 0 and 5")
	}

	if l.Guests < 1 {
		validationErr.AddError("guests", "guest capacity must be at least 1")
	}

	if validationErr.FieldsCount() > 0 {
		return validationErr
	}

	return nil
}

func (l *Listing) clone() *Listing {
	c := *l
	c.Rules = append([]string(nil), l.Rules...)
	c.Safety = append([]string(nil), l.Safety...)
	c.Features = append([]string(nil), l.Features...)
	c.Services = append([]string(nil), l.Services...)
	c.Offers = append([]string(nil), l.Offers...)

	return &c
}

// ImageResolver maps a listing to its display image. The storage key is
// deterministic: "<listing id>.jpg".
type ImageResolver struct {
	BaseURL string
}

func (r ImageResolver) Key(listingID string) string {
	return listingID + ".jpg"
}

func (r ImageResolver) URL(listingID string) string {
	return strings.TrimSuffix(r.BaseURL, "/") + "/" + r.Key(listingID)
}
