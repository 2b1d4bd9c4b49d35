package catalog

import (
	"context"
	"fmt"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/retry"
)

type source interface {
	ListListings(ctx context.Context) ([]*Listing, error)
}

// Catalog is the immutable set of listings fetched for the session.
type Catalog struct {
	listings []*Listing
	byID     map[string]*Listing
}

func New(listings []*Listing) *Catalog {
	c := &Catalog{
		listings: make([]*Listing, 0, len(listings)),
		byID:     make(map[string]*Listing, len(listings)),
	}

	for _, l := range listings {
		cp := l.clone()
		c.listings = append(c.listings, cp)
		c.byID[cp.ID] = cp
	}

	return c
}

func Load(ctx context.Context, src source, images ImageResolver, policy retry.Policy) (*Catalog, error) {
	var listings []*Listing

	err := retry.Do(ctx, policy, func(ctx context.Context) error {
		var err error

		listings, err = src.ListListings(ctx)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list listings: %w", err)
	}

	for _, l := range listings {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("listing %q: %w", l.ID, err)
		}

		l.ImageURL = images.URL(l.ID)
	}

	return New(listings), nil
}

func (c *Catalog) All() []*Listing {
	return append([]*Listing(nil), c.listings...)
}

func (c *Catalog) Len() int {
	return len(c.listings)
}

func (c *Catalog) Get(id string) (*Listing, error) {
	l, ok := c.byID[id]
	if !ok {
		return nil, apperror.NewNotFoundError("listing", id)
	}

	return l, nil
}

// Filter is a linear pass that keeps catalog order.
func (c *Catalog) Filter(criteria Criteria) []*Listing {
	res := make([]*Listing, 0, len(c.listings))

	for _, l := range c.listings {
		if criteria.Match(l) {
			res = append(res, l)
		}
	}

	return res
}
