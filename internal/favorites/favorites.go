package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/kv"
	"github.com/avstrong/stays/internal/logger"
)

// GuestScope holds favorites of signed-out visitors.
const GuestScope = "guest"

type listingGetter interface {
	Get(id string) (*catalog.Listing, error)
}

// Entry is the listing as it looked when it was favorited.
type Entry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	ImageURL string  `json:"imageUrl"`
	Location string  `json:"location"`
	Price    float64 `json:"price"`
	Stars    float64 `json:"stars"`
}

func entryOf(l *catalog.Listing) Entry {
	return Entry{
		ID:       l.ID,
		Title:    l.Title,
		ImageURL: l.ImageURL,
		Location: l.Location,
		Price:    l.Price,
		Stars:    l.Stars,
	}
}

type Config struct {
	L        *logger.Logger
	KV       kv.Store
	Listings listingGetter
}

type Store struct {
	l        *logger.Logger
	kv       kv.Store
	listings listingGetter
}

func New(conf Config) *Store {
	return &Store{l: conf.L, kv: conf.KV, listings: conf.Listings}
}

func normalizeScope(scope string) string {
	scope = strings.TrimSpace(scope)
	if scope == "" {
		return GuestScope
	}

	return scope
}

func flagsKey(scope string) string {
	return scope + ":favorites"
}

func entriesKey(scope string) string {
	return scope + ":favoriteHouses"
}

// Toggle flips the listing's membership and returns whether it is now a
// favorite. The flag map and the snapshot list change together.
func (s *Store) Toggle(ctx context.Context, scope, listingID string) (bool, error) {
	listing, err := s.listings.Get(listingID)
	if err != nil {
		return false, fmt.Errorf("get listing: %w", err)
	}

	scope = normalizeScope(scope)
	fk, ek := flagsKey(scope), entriesKey(scope)

	var favorite bool

	err = s.kv.Update(ctx, []string{fk, ek}, func(cur map[string][]byte) (map[string][]byte, error) {
		flags, entries, err := decode(cur[fk], cur[ek])
		if err != nil {
			return nil, err
		}

		favorite = !flags[listingID]
		if favorite {
			flags[listingID] = true
			entries = append(removeEntry(entries, listingID), entryOf(listing))
		} else {
			delete(flags, listingID)
			entries = removeEntry(entries, listingID)
		}

		return encode(fk, ek, flags, entries)
	})
	if err != nil {
		return false, fmt.Errorf("toggle favorite %s for %s: %w", listingID, scope, err)
	}

	s.l.With(logger.Fields{"scope": scope, "listing_id": listingID, "favorite": favorite}).
		LogDebug("Favorite has been toggled")

	return favorite, nil
}

// List returns favorites in the order they were added.
func (s *Store) List(ctx context.Context, scope string) ([]Entry, error) {
	scope = normalizeScope(scope)

	raw, _, err := s.kv.Get(ctx, entriesKey(scope))
	if err != nil {
		return nil, fmt.Errorf("get favorites of %s: %w", scope, err)
	}

	_, entries, err := decode(nil, raw)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) Flags(ctx context.Context, scope string) (map[string]bool, error) {
	scope = normalizeScope(scope)

	raw, _, err := s.kv.Get(ctx, flagsKey(scope))
	if err != nil {
		return nil, fmt.Errorf("get favorite flags of %s: %w", scope, err)
	}

	flags, _, err := decode(raw, nil)
	if err != nil {
		return nil, err
	}

	return flags, nil
}

func removeEntry(entries []Entry, listingID string) []Entry {
	res := entries[:0]

	for _, e := range entries {
		if e.ID != listingID {
			res = append(res, e)
		}
	}

	return res
}

func decode(rawFlags, rawEntries []byte) (map[string]bool, []Entry, error) {
	flags := make(map[string]bool)
	entries := make([]Entry, 0)

	if len(rawFlags) > 0 {
		if err := json.Unmarshal(rawFlags, &flags); err != nil {
			return nil, nil, fmt.Errorf("decode favorite flags: %w", err)
		}
	}

	if len(rawEntries) > 0 {
		if err := json.Unmarshal(rawEntries, &entries); err != nil {
			return nil, nil, fmt.Errorf("decode favorite listings: %w", err)
		}
	}

	return flags, entries, nil
}

func encode(fk, ek string, flags map[string]bool, entries []Entry) (map[string][]byte, error) {
	rawFlags, err := json.Marshal(flags)
	if err != nil {
		return nil, fmt.Errorf("encode favorite flags: %w", err)
	}

	rawEntries, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encode favorite listings: %w", err)
	}

	return map[string][]byte{fk: rawFlags, ek: rawEntries}, nil
}
