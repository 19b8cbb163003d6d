package commissions

import (
	"context"
	"errors"

	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
)

var (
	ErrInvalidRange           = errors.New("week end must be after week start")
	ErrPeriodNotYetClosed     = errors.New("billing period has not closed yet")
	ErrPaymentNotFound        = errors.New("commission payment not found")
	ErrPaymentAlreadyPaid     = errors.New("commission payment already paid")
	ErrInvalidStateTransition = errors.New("invalid commission payment state transition")
)

// toAPIError converts domain sentinels into coded errors for transport layers.
// Errors that already carry a code pass through unchanged.
func toAPIError(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidRange), errors.Is(err, ErrPeriodNotYetClosed):
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	case errors.Is(err, ErrPaymentNotFound):
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, err.Error())
	case errors.Is(err, ErrPaymentAlreadyPaid):
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, err.Error())
	case errors.Is(err, ErrInvalidStateTransition):
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message+": timed out")
	default:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
	}
}
