// Package wizard implements the lead conversion wizard: one activation walks a
// lead from field validation through the duplicate gate to a single
// conversion attempt, and restores the previous status when an auto-opened
// activation is cancelled.
package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Dependencies are the collaborators a wizard calls.
type Dependencies struct {
	Duplicates ports.DuplicateChecker
	Executor   ports.ConversionExecutor
	Updater    ports.RecordUpdater
	Snapshots  ports.SnapshotReader
	Notifier   ports.Notifier
	Log        *logger.Logger
}

// Hooks are optional listeners for terminal outcomes. They run synchronously
// after the wizard has released its lock.
type Hooks struct {
	OnConverted        func(ctx context.Context, lead domain.LeadSnapshot, result domain.ConversionResult)
	OnConversionFailed func(ctx context.Context, leadID uuid.UUID, err error, duplicates bool)
	OnStatusReverted   func(ctx context.Context, leadID uuid.UUID, from, to string, err error)
}

// View is a copy of the wizard's observable state.
type View struct {
	LeadID              uuid.UUID
	UserID              uuid.UUID
	Open                bool
	State               domain.WizardState
	Config              domain.WizardConfig
	Snapshot            *domain.LeadSnapshot
	Duplicates          *domain.DuplicateCheckResult
	Result              *domain.ConversionResult
	ConversionAttempted bool
	Busy                bool
}

// Wizard is one conversion activation owned by a single user.
//
// Remote calls run outside the mutex. While one is in flight the wizard is
// busy and every other operation fails with a busy error, so a second
// confirmation can never reach the executor.
type Wizard struct {
	deps   Dependencies
	hooks  Hooks
	userID uuid.UUID

	mu             sync.Mutex
	open           bool
	leadID         uuid.UUID
	cfg            domain.WizardConfig
	state          domain.WizardState
	snapshot       *domain.LeadSnapshot
	duplicates     *domain.DuplicateCheckResult
	result         *domain.ConversionResult
	attempted      bool
	converted      bool
	busy           bool
	suppressToasts bool
}

// New creates a closed wizard for userID.
func New(userID uuid.UUID, deps Dependencies, hooks Hooks) *Wizard {
	return &Wizard{
		deps:   deps,
		hooks:  hooks,
		userID: userID,
		state:  domain.StateValidatingFields,
	}
}

// Open starts an activation for leadID. A nil leadID is ignored.
func (w *Wizard) Open(ctx context.Context, leadID uuid.UUID, cfg domain.WizardConfig) error {
	if leadID == uuid.Nil {
		return nil
	}

	w.mu.Lock()
	busy := w.busy
	current := w.leadID
	w.mu.Unlock()
	if busy {
		return w.reject(ctx, current, domain.NewBusyError())
	}

	snapshot, err := w.deps.Snapshots.GetSnapshot(ctx, leadID)
	if err != nil {
		w.logEvent(ctx, "open", leadID, "load_failed", err)
		w.toast(ctx, leadID, domain.TitleError, domain.MsgLoadFailed, ports.SeverityError)
		if apperr.Is(err, apperr.KindNotFound) {
			return err
		}
		return domain.NewCollaboratorError(domain.MsgLoadFailed, err)
	}
	if snapshot.IsConverted {
		w.toast(ctx, leadID, domain.TitleError, domain.MsgLeadAlreadyConverted, ports.SeverityError)
		return domain.NewLeadConvertedError()
	}

	w.mu.Lock()
	w.reset()
	w.open = true
	w.leadID = leadID
	w.cfg = cfg
	w.snapshot = &snapshot
	w.mu.Unlock()

	w.logEvent(ctx, "open", leadID, "opened", nil)
	return nil
}

// SubmitValidation checks the seven required fields, persists them and moves
// to the duplicate check step.
func (w *Wizard) SubmitValidation(ctx context.Context, fields map[string]string) error {
	w.mu.Lock()
	leadID := w.leadID
	if err := w.check("submit fields", domain.StateValidatingFields); err != nil {
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}

	if missing := domain.MissingFields(fields); len(missing) > 0 {
		w.mu.Unlock()
		w.toast(ctx, leadID, domain.TitleValidationError, domain.MsgFillRequiredFields, ports.SeverityError)
		return domain.NewValidationError(missing)
	}
	w.busy = true
	w.mu.Unlock()

	if err := w.deps.Updater.UpdateFields(ctx, leadID, requiredValues(fields)); err != nil {
		w.release()
		var failure *apperr.Error
		if apperr.Is(err, apperr.KindValidation) {
			failure = domain.NewFieldFormatError(err)
		} else {
			failure = domain.NewCollaboratorError(domain.MsgUpdateFailedPrefix+domain.CauseMessage(err), err)
		}
		w.logEvent(ctx, "submit_validation", leadID, "update_failed", err)
		w.toast(ctx, leadID, domain.TitleError, failure.Message, ports.SeverityError)
		return failure
	}
	w.toast(ctx, leadID, domain.TitleSuccess, domain.MsgLeadUpdated, ports.SeveritySuccess)

	refreshed, refreshErr := w.deps.Snapshots.GetSnapshot(ctx, leadID)

	w.mu.Lock()
	w.busy = false
	w.state = domain.StateCheckingDuplicates
	if refreshErr == nil {
		w.snapshot = &refreshed
	}
	w.mu.Unlock()

	if refreshErr != nil {
		w.logEvent(ctx, "submit_validation", leadID, "refresh_failed", refreshErr)
		w.toast(ctx, leadID, domain.TitleError, domain.MsgLoadFailed, ports.SeverityError)
	}
	return nil
}

// StartConversion runs the duplicate check and converts immediately when it
// comes back clean. Found duplicates park the wizard until the user decides.
func (w *Wizard) StartConversion(ctx context.Context) error {
	w.mu.Lock()
	leadID := w.leadID
	if err := w.check("start conversion"); err != nil {
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}
	if w.attempted {
		w.mu.Unlock()
		return w.reject(ctx, leadID, domain.NewAlreadyAttemptedError())
	}

	switch w.state {
	case domain.StateCheckingDuplicates:
	case domain.StateValidatingFields:
		// Fields already stored on the lead satisfy the validation step.
		var missing []string
		if w.snapshot != nil {
			missing = domain.MissingFields(w.snapshot.ConversionFields())
		} else {
			missing = append(missing, domain.RequiredFields...)
		}
		if len(missing) > 0 {
			w.mu.Unlock()
			w.toast(ctx, leadID, domain.TitleValidationError, domain.MsgFillRequiredFields, ports.SeverityError)
			return domain.NewValidationError(missing)
		}
	default:
		err := domain.NewInvalidStateError("start conversion", w.state)
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}

	prior := w.state
	w.state = domain.StateCheckingDuplicates
	w.busy = true
	w.suppressToasts = true
	w.mu.Unlock()

	check, err := w.deps.Duplicates.CheckForDuplicates(ctx, leadID)
	if err == nil && !check.Success {
		err = errors.New(domain.MsgDuplicateCheckRejected)
	}
	if err != nil {
		w.restoreStep(leadID, prior)
		failure := domain.NewCollaboratorError(domain.MsgDuplicateCheckPrefix+domain.CauseMessage(err), err)
		w.logEvent(ctx, "duplicate_check", leadID, "failed", err)
		w.toast(ctx, leadID, domain.TitleError, failure.Message, ports.SeverityError)
		return failure
	}

	w.mu.Lock()
	w.duplicates = &check
	if check.HasDuplicates() {
		w.state = domain.StateAwaitingDuplicateConfirmation
		w.busy = false
		w.suppressToasts = false
		w.mu.Unlock()

		w.logEvent(ctx, "duplicate_check", leadID, "duplicates_found", nil)
		w.toast(ctx, leadID, domain.TitleDuplicatesFound, domain.MsgDuplicatesFound, ports.SeverityWarning)
		return nil
	}
	w.attempted = true
	w.state = domain.StateConverting
	w.mu.Unlock()

	w.logEvent(ctx, "duplicate_check", leadID, "clean", nil)
	return w.performConversion(ctx, leadID)
}

// ConfirmDespiteDuplicates converts after the user accepted the matches.
func (w *Wizard) ConfirmDespiteDuplicates(ctx context.Context) error {
	w.mu.Lock()
	leadID := w.leadID
	if err := w.check("confirm conversion"); err != nil {
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}
	if w.attempted {
		w.mu.Unlock()
		return w.reject(ctx, leadID, domain.NewAlreadyAttemptedError())
	}
	if w.state != domain.StateAwaitingDuplicateConfirmation {
		err := domain.NewInvalidStateError("confirm conversion", w.state)
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}

	w.attempted = true
	w.state = domain.StateConverting
	w.busy = true
	w.suppressToasts = true
	w.mu.Unlock()

	return w.performConversion(ctx, leadID)
}

// DeclineDuplicates abandons the duplicate warning and returns to the idle
// duplicate check step without converting.
func (w *Wizard) DeclineDuplicates(ctx context.Context) error {
	w.mu.Lock()
	leadID := w.leadID
	if err := w.check("decline duplicates", domain.StateAwaitingDuplicateConfirmation); err != nil {
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}
	w.state = domain.StateCheckingDuplicates
	w.duplicates = nil
	w.mu.Unlock()
	return nil
}

// Back returns from the duplicate check step to field validation.
func (w *Wizard) Back(ctx context.Context) error {
	w.mu.Lock()
	leadID := w.leadID
	if err := w.check("go back", domain.StateCheckingDuplicates); err != nil {
		w.mu.Unlock()
		return w.reject(ctx, leadID, err)
	}
	w.state = domain.StateValidatingFields
	w.duplicates = nil
	w.mu.Unlock()
	return nil
}

// Close ends the activation. An auto-opened activation with a recorded
// previous status restores it first, unless the lead was converted. A failed
// restore is reported but the wizard still closes.
func (w *Wizard) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.open {
		w.mu.Unlock()
		return nil
	}
	leadID := w.leadID
	if w.busy {
		w.mu.Unlock()
		return w.reject(ctx, leadID, domain.NewBusyError())
	}
	target, revert := w.cfg.RevertTarget()
	if w.converted {
		revert = false
	}
	var from string
	if w.snapshot != nil {
		from = w.snapshot.Status
	}
	w.busy = true
	w.mu.Unlock()

	var failure error
	if revert {
		err := w.deps.Updater.UpdateStatus(ctx, leadID, w.userID, target)
		if err != nil {
			failure = domain.NewStatusRevertError(err)
			w.logEvent(ctx, "revert_status", leadID, "failed", err)
			w.toast(ctx, leadID, domain.TitleError, domain.MsgRevertFailedPrefix+domain.CauseMessage(err), ports.SeverityError)
		} else {
			w.logEvent(ctx, "revert_status", leadID, "reverted", nil)
			w.toast(ctx, leadID, domain.TitleInfo, domain.MsgStatusReverted, ports.SeverityInfo)
		}
		if w.hooks.OnStatusReverted != nil {
			w.hooks.OnStatusReverted(ctx, leadID, from, target, err)
		}
	}

	w.mu.Lock()
	w.reset()
	w.mu.Unlock()

	return failure
}

// Cancel is Close.
func (w *Wizard) Cancel(ctx context.Context) error {
	return w.Close(ctx)
}

// View returns a copy of the current state.
func (w *Wizard) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()

	view := View{
		LeadID:              w.leadID,
		UserID:              w.userID,
		Open:                w.open,
		State:               w.state,
		Config:              w.cfg,
		ConversionAttempted: w.attempted,
		Busy:                w.busy,
	}
	if w.snapshot != nil {
		snapshot := *w.snapshot
		view.Snapshot = &snapshot
	}
	if w.duplicates != nil {
		duplicates := *w.duplicates
		view.Duplicates = &duplicates
	}
	if w.result != nil {
		result := *w.result
		view.Result = &result
	}
	if w.cfg.PreviousStatus != nil {
		previous := *w.cfg.PreviousStatus
		view.Config.PreviousStatus = &previous
	}
	return view
}

// UserID returns the owner of the wizard.
func (w *Wizard) UserID() uuid.UUID {
	return w.userID
}

// performConversion calls the executor exactly once. The caller has marked the
// attempt, set the Converting state and the busy flag.
func (w *Wizard) performConversion(ctx context.Context, leadID uuid.UUID) error {
	result, err := w.deps.Executor.StartLeadConversion(ctx, leadID)
	if err == nil && !result.Success {
		message := strings.TrimSpace(result.Message)
		if message == "" {
			message = domain.MsgConversionFailedDefault
		}
		err = &domain.ConversionError{Message: message}
	}

	if err != nil {
		w.release()
		duplicates := domain.IsDuplicateConflict(err)

		var failure *apperr.Error
		if duplicates {
			failure = domain.NewDuplicateConflictError(err)
		} else {
			failure = domain.NewCollaboratorError(domain.MsgConversionFailedPrefix+domain.CauseMessage(err), err)
		}
		w.logEvent(ctx, "convert", leadID, "failed", err)
		w.toast(ctx, leadID, domain.TitleError, failure.Message, ports.SeverityError)
		if w.hooks.OnConversionFailed != nil {
			w.hooks.OnConversionFailed(ctx, leadID, err, duplicates)
		}
		return failure
	}

	refreshed, refreshErr := w.deps.Snapshots.GetSnapshot(ctx, leadID)
	if refreshErr != nil {
		w.logEvent(ctx, "convert", leadID, "refresh_failed", refreshErr)
		w.toastIntermediate(ctx, leadID, domain.TitleError, domain.MsgLoadFailed)
	}

	w.mu.Lock()
	w.result = &result
	w.converted = true
	w.state = domain.StateShowingResult
	w.busy = false
	w.suppressToasts = false
	if refreshErr == nil {
		w.snapshot = &refreshed
	}
	var snapshot domain.LeadSnapshot
	if w.snapshot != nil {
		snapshot = *w.snapshot
	}
	w.mu.Unlock()

	w.logEvent(ctx, "convert", leadID, "converted", nil)
	w.toast(ctx, leadID, domain.TitleSuccess, domain.MsgConverted, ports.SeveritySuccess)
	if w.hooks.OnConverted != nil {
		w.hooks.OnConverted(ctx, snapshot, result)
	}
	return nil
}

// check must be called with mu held. want, when given, is the only state the
// operation is valid from.
func (w *Wizard) check(op string, want ...domain.WizardState) *apperr.Error {
	if !w.open {
		return apperr.Wrap(apperr.KindConflict, "cannot "+op+": wizard is closed", domain.ErrInvalidState)
	}
	if w.busy {
		return domain.NewBusyError()
	}
	if len(want) > 0 && w.state != want[0] {
		return domain.NewInvalidStateError(op, w.state)
	}
	return nil
}

// reject reports a refused operation. The toast is dropped while a remote
// call is in flight.
func (w *Wizard) reject(ctx context.Context, leadID uuid.UUID, err *apperr.Error) error {
	w.toastIntermediate(ctx, leadID, domain.TitleError, err.Message)
	return err
}

func (w *Wizard) release() {
	w.mu.Lock()
	w.busy = false
	w.suppressToasts = false
	w.mu.Unlock()
}

// restoreStep puts a wizard that is still on leadID back on the step it left
// for a remote call that failed.
func (w *Wizard) restoreStep(leadID uuid.UUID, step domain.WizardState) {
	w.mu.Lock()
	if w.open && w.leadID == leadID && w.state == domain.StateCheckingDuplicates {
		w.state = step
	}
	w.busy = false
	w.suppressToasts = false
	w.mu.Unlock()
}

// reset must be called with mu held.
func (w *Wizard) reset() {
	w.open = false
	w.leadID = uuid.Nil
	w.cfg = domain.WizardConfig{}
	w.state = domain.StateValidatingFields
	w.snapshot = nil
	w.duplicates = nil
	w.result = nil
	w.attempted = false
	w.converted = false
	w.busy = false
	w.suppressToasts = false
}

// toast delivers a terminal outcome. Terminal outcomes are never suppressed.
func (w *Wizard) toast(ctx context.Context, leadID uuid.UUID, title, message string, severity ports.Severity) {
	w.deps.Notifier.Notify(ctx, w.userID, ports.Toast{
		Title:    title,
		Message:  message,
		Severity: severity,
		LeadID:   leadID,
	})
}

// toastIntermediate delivers an error toast unless a remote call is in flight.
func (w *Wizard) toastIntermediate(ctx context.Context, leadID uuid.UUID, title, message string) {
	w.mu.Lock()
	suppressed := w.suppressToasts
	w.mu.Unlock()
	if suppressed {
		return
	}
	w.toast(ctx, leadID, title, message, ports.SeverityError)
}

func (w *Wizard) logEvent(ctx context.Context, step string, leadID uuid.UUID, outcome string, err error) {
	if w.deps.Log == nil {
		return
	}
	w.deps.Log.WithContext(ctx).ConversionEvent(step, leadID.String(), outcome, err)
}

func requiredValues(fields map[string]string) map[string]string {
	values := make(map[string]string, len(domain.RequiredFields))
	for _, key := range domain.RequiredFields {
		values[key] = strings.TrimSpace(fields[key])
	}
	return values
}
