package domain

import (
	"errors"
	"fmt"
	"strings"

	"loancrm_backend/platform/apperr"
)

// Sentinels for errors.Is matching. Every error the wizard returns is an
// *apperr.Error wrapping one of these.
var (
	ErrValidation        = errors.New("validation error")
	ErrCollaborator      = errors.New("collaborator error")
	ErrDuplicateConflict = errors.New("duplicate conflict")
	ErrStatusRevert      = errors.New("status revert error")
	ErrInvalidState      = errors.New("invalid wizard state")
	ErrBusy              = errors.New("wizard busy")
	ErrAlreadyAttempted  = errors.New("conversion already attempted")
	ErrLeadConverted     = errors.New("lead already converted")
)

// NewValidationError reports missing required fields.
func NewValidationError(missing []string) *apperr.Error {
	return apperr.Wrap(apperr.KindValidation, MsgFillRequiredFields, ErrValidation).
		WithDetails(map[string]any{"missingFields": missing})
}

// NewFieldFormatError reports a submission the record store rejected.
func NewFieldFormatError(cause error) *apperr.Error {
	return apperr.Wrap(apperr.KindValidation, MsgUpdateFailedPrefix+CauseMessage(cause), fmt.Errorf("%w: %w", ErrValidation, cause))
}

// NewCollaboratorError wraps a failed remote call. message is the user-facing text.
func NewCollaboratorError(message string, cause error) *apperr.Error {
	return apperr.Wrap(apperr.KindUnavailable, message, fmt.Errorf("%w: %w", ErrCollaborator, cause))
}

// NewDuplicateConflictError reports a late duplicate rejection from the executor.
func NewDuplicateConflictError(cause error) *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, MsgDuplicatesDetected, fmt.Errorf("%w: %w", ErrDuplicateConflict, cause))
}

// NewStatusRevertError reports a failed status rollback on close.
func NewStatusRevertError(cause error) *apperr.Error {
	return apperr.Wrap(apperr.KindInternal, MsgRevertFailedPrefix+CauseMessage(cause), fmt.Errorf("%w: %w", ErrStatusRevert, cause))
}

// NewInvalidStateError reports an operation issued from the wrong step.
func NewInvalidStateError(op string, state WizardState) *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, fmt.Sprintf("cannot %s while %s", op, state), ErrInvalidState)
}

// NewBusyError reports an operation issued while a remote call is in flight.
func NewBusyError() *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, MsgStepInProgress, ErrBusy)
}

// NewAlreadyAttemptedError reports a second conversion attempt in one activation.
func NewAlreadyAttemptedError() *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, MsgAlreadyAttempted, ErrAlreadyAttempted)
}

// NewLeadConvertedError reports an activation for a lead that is already converted.
func NewLeadConvertedError() *apperr.Error {
	return apperr.Wrap(apperr.KindConflict, MsgLeadAlreadyConverted, ErrLeadConverted)
}

// CauseMessage prefers the user-facing message of an *apperr.Error over its
// full chain, which may carry internal operation names.
func CauseMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	var convErr *ConversionError
	if errors.As(err, &convErr) && convErr.Message != "" {
		return convErr.Message
	}
	return strings.TrimSpace(err.Error())
}

// IsBusy reports whether err rejected an operation because a remote call was in flight.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}
