package apperror_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avstrong/stays/internal/apperror"
)

func TestHelpersUnwrapWrappedErrors(t *testing.T) {
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	rangeErr := fmt.Errorf("quote: %w", apperror.NewInvalidRangeError(day, day))
	require.NotNil(t, apperror.IsInvalidRangeError(rangeErr))
	assert.Nil(t, apperror.IsValidationError(rangeErr))

	notFound := fmt.Errorf("get: %w", apperror.NewNotFoundError("reservation", "r-1"))
	got := apperror.IsNotFoundError(notFound)
	require.NotNil(t, got)
	assert.Equal(t, "r-1", got.ID)
	assert.Equal(t, "reservation 'r-1' not found", got.Error())

	assert.Nil(t, apperror.IsNotFoundError(nil))
}

func TestPersistenceErrorUnwraps(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("confirm: %w", apperror.NewPersistenceError("save reservation", cause))

	require.NotNil(t, apperror.IsPersistenceError(err))
	assert.ErrorIs(t, err, cause)
}

func TestValidationErrorCollectsFields(t *testing.T) {
	v := apperror.NewValidationError()
	v.AddError("rating", "must be between 1 and 5")
	v.AddError("author", "required")
	v.AddError("rating", "required")

	assert.Equal(t, 2, v.FieldsCount())
	assert.Equal(t, []string{"must be between 1 and 5", "required"}, v.Fields()["rating"])
	assert.Equal(t, "validation failed: author: required, rating: must be between 1 and 5; required", v.Error())
}

func TestIncompleteBookingErrorFields(t *testing.T) {
	e := apperror.NewIncompleteBookingError()
	e.AddMissing("checkOut")

	assert.Equal(t, 1, e.MissingCount())
	assert.Equal(t, map[string][]string{"checkOut": {"required"}}, e.Fields())
}
