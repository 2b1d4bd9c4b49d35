package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/catalog"
	"github.com/avstrong/stays/internal/identity"
	"github.com/avstrong/stays/internal/review"
)

const idempotencyKeyHeader = "Idempotency-Key"

func (s *Server) favoriteFlags(r *http.Request) map[string]bool {
	scope := identity.FromContext(r.Context()).FavoritesScope()

	flags, err := s.favorites.Flags(r.Context(), scope)
	if err != nil {
		s.l.LogErrorf("Could not load favorite flags of %s: %v", scope, err.Error())

		return map[string]bool{}
	}

	return flags
}

func (s *Server) profileHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, identity.FromContext(r.Context()))
}

func (s *Server) listListingsHandler(w http.ResponseWriter, r *http.Request) {
	criteria, err := catalog.ParseCriteria(r.URL.Query())
	if err != nil {
		s.writeError(w, "parse listing filter", err)

		return
	}

	flags := s.favoriteFlags(r)
	found := s.catalog.Filter(criteria)

	items := make([]listingItem, 0, len(found))
	for _, l := range found {
		items = append(items, listingItem{Listing: l, Favorite: flags[l.ID]})
	}

	s.writeJSON(w, http.StatusOK, listingsResponse{Listings: items, Count: len(items)})
}

func (s *Server) getListingHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	l, err := s.catalog.Get(id)
	if err != nil {
		s.writeError(w, "get listing", err)

		return
	}

	reviews, err := s.reviews.ListByListing(r.Context(), id)
	if err != nil {
		s.writeError(w, "list reviews", err)

		return
	}

	if reviews == nil {
		reviews = []*review.Review{}
	}

	s.writeJSON(w, http.StatusOK, listingResponse{
		Listing: listingItem{Listing: l, Favorite: s.favoriteFlags(r)[id]},
		Reviews: reviews,
		Fees:    s.bManager.Fees(),
	})
}

// quoteDraft reads the booking query. Picking only a check-in applies
// the minimum stay of one night.
func quoteDraft(r *http.Request) booking.Draft {
	draft := booking.DraftFromQuery(r.PathValue("id"), r.URL.Query())
	if !draft.CheckIn.IsZero() && draft.CheckOut.IsZero() {
		draft.PickCheckIn(draft.CheckIn)
	}

	return draft
}

func (s *Server) quoteHandler(w http.ResponseWriter, r *http.Request) {
	draft := quoteDraft(r)

	price, err := s.bManager.Quote(draft.ListingID, draft)
	if err != nil {
		s.writeError(w, "quote", err)

		return
	}

	s.writeJSON(w, http.StatusOK, quoteResponse{
		Draft:   draft,
		Nights:  price.Nights,
		Price:   price,
		Display: price.Display(),
		Next:    draft.Query().Encode(),
	})
}

func (s *Server) reserveHandler(w http.ResponseWriter, r *http.Request) {
	idempotencyKey := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if idempotencyKey == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "Idempotency-Key header is missing"}) //nolint:exhaustruct

		return
	}

	ctx := booking.NewContextWithIdempotencyKey(r.Context(), idempotencyKey)

	// Both dates must be picked explicitly; the minimum-stay rule only
	// applies while quoting.
	res, err := s.bManager.Submit(booking.DraftFromQuery(r.PathValue("id"), r.URL.Query()))
	if err != nil {
		s.writeError(w, "submit reservation", err)

		return
	}

	confirmed, err := s.bManager.Confirm(ctx, res)
	if err != nil {
		s.writeError(w, "confirm reservation", err)

		return
	}

	s.writeJSON(w, http.StatusCreated, s.reservationView(confirmed))
}

func (s *Server) listReservationsHandler(w http.ResponseWriter, r *http.Request) {
	view, err := booking.ParseView(r.URL.Query().Get("view"))
	if err != nil {
		s.writeError(w, "parse view", err)

		return
	}

	list, err := s.bManager.List(r.Context(), view)
	if err != nil {
		s.writeError(w, "list reservations", err)

		return
	}

	out := reservationsResponse{View: view, Reservations: make([]reservationResponse, 0, len(list))}
	for _, res := range list {
		out.Reservations = append(out.Reservations, s.reservationView(res))
	}

	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) getReservationHandler(w http.ResponseWriter, r *http.Request) {
	res, err := s.bManager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, "get reservation", err)

		return
	}

	s.writeJSON(w, http.StatusOK, s.reservationView(res))
}

func (s *Server) cancelReservationHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.bManager.Cancel(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, "cancel reservation", err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) submitReviewHandler(w http.ResponseWriter, r *http.Request) {
	var input review.Input

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: "malformed review body"}) //nolint:exhaustruct

		return
	}

	out, err := s.reviews.Submit(r.Context(), r.PathValue("id"), input)
	if err != nil {
		s.writeError(w, "submit review", err)

		return
	}

	s.writeJSON(w, http.StatusCreated, out)
}

func (s *Server) listReviewsHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.catalog.Get(id); err != nil {
		s.writeError(w, "get listing", err)

		return
	}

	reviews, err := s.reviews.ListByListing(r.Context(), id)
	if err != nil {
		s.writeError(w, "list reviews", err)

		return
	}

	if reviews == nil {
		reviews = []*review.Review{}
	}

	s.writeJSON(w, http.StatusOK, reviewsResponse{Reviews: reviews})
}

func (s *Server) listFavoritesHandler(w http.ResponseWriter, r *http.Request) {
	scope := identity.FromContext(r.Context()).FavoritesScope()

	list, err := s.favorites.List(r.Context(), scope)
	if err != nil {
		s.writeError(w, "list favorites", err)

		return
	}

	flags, err := s.favorites.Flags(r.Context(), scope)
	if err != nil {
		s.writeError(w, "list favorite flags", err)

		return
	}

	s.writeJSON(w, http.StatusOK, favoritesResponse{Favorites: list, Flags: flags})
}

func (s *Server) toggleFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	scope := identity.FromContext(r.Context()).FavoritesScope()

	favorite, err := s.favorites.Toggle(r.Context(), scope, id)
	if err != nil {
		s.writeError(w, "toggle favorite", err)

		return
	}

	s.writeJSON(w, http.StatusOK, toggleResponse{ListingID: id, Favorite: favorite})
}

func (s *Server) livenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) addRoutes(r *http.ServeMux) {
	open := func(h http.HandlerFunc) http.Handler {
		return s.applyMiddlewares(h, s.identityMiddleware(), s.loggerMiddleware(), s.recoverMiddleware())
	}

	gated := func(h http.HandlerFunc) http.Handler {
		return s.applyMiddlewares(h, s.signedIn(), s.identityMiddleware(), s.loggerMiddleware(), s.recoverMiddleware())
	}

	r.Handle("GET /api/profile/v1", open(s.profileHandler))

	r.Handle("GET /api/listings/v1", open(s.listListingsHandler))
	r.Handle("GET /api/listings/v1/{id}", open(s.getListingHandler))
	r.Handle("GET /api/listings/v1/{id}/quote", open(s.quoteHandler))
	r.Handle("POST /api/listings/v1/{id}/reservations", gated(s.reserveHandler))
	r.Handle("GET /api/listings/v1/{id}/reviews", open(s.listReviewsHandler))

	r.Handle("GET /api/reservations/v1", open(s.listReservationsHandler))
	r.Handle("GET /api/reservations/v1/{id}", open(s.getReservationHandler))
	r.Handle("DELETE /api/reservations/v1/{id}", gated(s.cancelReservationHandler))
	r.Handle("POST /api/reservations/v1/{id}/reviews", gated(s.submitReviewHandler))

	r.Handle("GET /api/favorites/v1", open(s.listFavoritesHandler))
	r.Handle("PUT /api/favorites/v1/{id}", open(s.toggleFavoriteHandler))

	r.Handle(
		fmt.Sprintf("GET %s", s.conf.LivenessEndpoint),
		s.applyMiddlewares(http.HandlerFunc(s.livenessHandler), s.loggerMiddleware(), s.recoverMiddleware()),
	)
}
