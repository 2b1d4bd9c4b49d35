package postgres

import (
	"errors"

	"github.com/avstrong/stays/internal/apperror"
)

var (
	ErrTransactionNotFoundInCtx = errors.New("transaction not found in context")
	ErrDuplicateReview          = apperror.ErrDuplicateReview
)
