package review

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/avstrong/stays/internal/apperror"
	"github.com/avstrong/stays/internal/booking"
	"github.com/avstrong/stays/internal/clock"
	"github.com/avstrong/stays/internal/logger"
	"github.com/avstrong/stays/internal/retry"
)

type reservationGetter interface {
	Get(ctx context.Context, id string) (*booking.Reservation, error)
	Status(r *booking.Reservation) booking.State
}

type storage interface {
	SaveReview(ctx context.Context, r *Review) (string, error)
	ListReviewsByListing(ctx context.Context, listingID string) ([]*Review, error)
	GetReviewByReservation(ctx context.Context, reservationID string) (*Review, error)
}

type Config struct {
	L            *logger.Logger
	Storage      storage
	Reservations reservationGetter
	Clock        clock.Clock
	Retry        retry.Policy
}

type Service struct {
	l            *logger.Logger
	storage      storage
	reservations reservationGetter
	clock        clock.Clock
	retry        retry.Policy
	validate     *validator.Validate
}

func New(conf Config) *Service {
	clk := conf.Clock
	if clk == nil {
		clk = clock.Real()
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return &Service{
		l:            conf.L,
		storage:      conf.Storage,
		reservations: conf.Reservations,
		clock:        clk,
		retry:        conf.Retry,
		validate:     v,
	}
}

func (s *Service) validateInput(in Input) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate review: %w", err)
	}

	validationErr := apperror.NewValidationError()

	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			validationErr.AddError(fe.Field(), "required")
		case "min", "max":
			if fe.Field() == "rating" {
				validationErr.AddError(fe.Field(), "rating must be between 1 and 5")
			} else {
				validationErr.AddError(fe.Field(), "must be at most "+fe.Param()+" characters")
			}
		default:
			validationErr.AddError(fe.Field(), "invalid value")
		}
	}

	return validationErr
}

// Submit attaches a review to a completed reservation. A reservation takes
// one review only.
func (s *Service) Submit(ctx context.Context, reservationID string, in Input) (*Review, error) {
	in.Author = strings.TrimSpace(in.Author)
	in.Message = strings.TrimSpace(in.Message)

	if err := s.validateInput(in); err != nil {
		return nil, err
	}

	res, err := s.reservations.Get(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}

	if state := s.reservations.Status(res); state != booking.StateCompleted {
		return nil, apperror.NewStateError(string(state), "review")
	}

	if _, err = s.storage.GetReviewByReservation(ctx, reservationID); err == nil {
		return nil, alreadyReviewed()
	} else if !errors.Is(err, apperror.ErrRecordNotFound) {
		return nil, apperror.NewPersistenceError("get review by reservation", err)
	}

	now := s.clock.Now()

	//nolint:exhaustruct
	r := &Review{
		ListingID:     res.Listing.ID,
		ListingTitle:  res.Listing.Title,
		ReservationID: res.ID,
		Author:        in.Author,
		Message:       in.Message,
		Rating:        in.Rating,
		Date:          now.Format(DateLayout),
		CreatedAt:     now,
	}

	id, err := s.storage.SaveReview(ctx, r)
	if errors.Is(err, apperror.ErrDuplicateReview) {
		// Lost a race with a concurrent submit for the same reservation.
		return nil, alreadyReviewed()
	}

	if err != nil {
		return nil, apperror.NewPersistenceError("save review", err)
	}

	r.ID = id

	s.l.With(logger.Fields{"review_id": id, "listing_id": r.ListingID}).LogInfo("Review has been submitted")

	return r, nil
}

func alreadyReviewed() *apperror.ValidationError {
	validationErr := apperror.NewValidationError()
	validationErr.AddError("reservationId", "reservation has already been reviewed")

	return validationErr
}

func (s *Service) ListByListing(ctx context.Context, listingID string) ([]*Review, error) {
	var reviews []*Review

	err := retry.Do(ctx, s.retry, func(ctx context.Context) error {
		var err error

		reviews, err = s.storage.ListReviewsByListing(ctx, listingID)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list reviews for listing %s: %w", listingID, err)
	}

	return reviews, nil
}
