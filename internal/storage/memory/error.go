package memory

import (
	"errors"

	"github.com/avstrong/stays/internal/apperror"
)

var (
	ErrTransactionIDNotFoundInCtx = errors.New("no transaction id found in ctx")
	ErrTransactionNotFound        = errors.New("transaction not found")
	ErrDuplicateIdempotencyKey    = errors.New("idempotency key already used by another reservation")
	ErrDuplicateReview            = apperror.ErrDuplicateReview
)
