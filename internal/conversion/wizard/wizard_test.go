package wizard

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

var (
	leadL1 = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
	leadL2 = uuid.MustParse("00000000-0000-0000-0000-0000000000a2")
	userID = uuid.MustParse("00000000-0000-0000-0000-0000000000f1")
)

type fakeDuplicates struct {
	mu     sync.Mutex
	result domain.DuplicateCheckResult
	err    error
	calls  int
}

func (f *fakeDuplicates) CheckForDuplicates(context.Context, uuid.UUID) (domain.DuplicateCheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type fakeExecutor struct {
	result  domain.ConversionResult
	err     error
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (f *fakeExecutor) StartLeadConversion(context.Context, uuid.UUID) (domain.ConversionResult, error) {
	f.calls.Add(1)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	return f.result, f.err
}

type fakeUpdater struct {
	mu          sync.Mutex
	fields      []map[string]string
	statuses    []string
	fieldsErr   error
	statusErr   error
	statusActor uuid.UUID
}

func (f *fakeUpdater) UpdateFields(_ context.Context, _ uuid.UUID, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fieldsErr != nil {
		return f.fieldsErr
	}
	f.fields = append(f.fields, fields)
	return nil
}

func (f *fakeUpdater) UpdateStatus(_ context.Context, _ uuid.UUID, actorID uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.statusActor = actorID
	return f.statusErr
}

type fakeSnapshots struct {
	snapshot domain.LeadSnapshot
	err      error
}

func (f *fakeSnapshots) GetSnapshot(_ context.Context, leadID uuid.UUID) (domain.LeadSnapshot, error) {
	if f.err != nil {
		return domain.LeadSnapshot{}, f.err
	}
	snapshot := f.snapshot
	snapshot.ID = leadID
	return snapshot, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	toasts []ports.Toast
}

func (n *recordingNotifier) Notify(_ context.Context, _ uuid.UUID, toast ports.Toast) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, toast)
}

func (n *recordingNotifier) messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.toasts))
	for i, toast := range n.toasts {
		out[i] = toast.Message
	}
	return out
}

func (n *recordingNotifier) has(message string) bool {
	for _, m := range n.messages() {
		if m == message {
			return true
		}
	}
	return false
}

type harness struct {
	duplicates *fakeDuplicates
	executor   *fakeExecutor
	updater    *fakeUpdater
	snapshots  *fakeSnapshots
	notifier   *recordingNotifier
	converted  []domain.ConversionResult
	wizard     *Wizard
}

func newHarness() *harness {
	h := &harness{
		duplicates: &fakeDuplicates{result: domain.DuplicateCheckResult{Success: true}},
		executor:   &fakeExecutor{result: domain.ConversionResult{Success: true, OpportunityID: "O1"}},
		updater:    &fakeUpdater{},
		snapshots:  &fakeSnapshots{snapshot: domain.LeadSnapshot{Status: "Call after", RecordTypeID: "012Kc000000tenuIAA"}},
		notifier:   &recordingNotifier{},
	}
	h.wizard = New(userID, Dependencies{
		Duplicates: h.duplicates,
		Executor:   h.executor,
		Updater:    h.updater,
		Snapshots:  h.snapshots,
		Notifier:   h.notifier,
		Log:        logger.NewWithWriter("test", io.Discard),
	}, Hooks{
		OnConverted: func(_ context.Context, _ domain.LeadSnapshot, result domain.ConversionResult) {
			h.converted = append(h.converted, result)
		},
	})
	return h
}

func validFields() map[string]string {
	return map[string]string{
		domain.FieldFinalDailyPayment:    "150.00",
		domain.FieldFinalPurchasedAmount: "18000",
		domain.FieldPaymentFrequency:     "Daily",
		domain.FieldLoanStartDate:        "2026-11-02",
		domain.FieldFinalTerm:            "120",
		domain.FieldClientEmail:          "owner@example.com",
		domain.FieldLenderType:           "Direct",
	}
}

func (h *harness) openAndValidate(t *testing.T, leadID uuid.UUID, cfg domain.WizardConfig) {
	t.Helper()
	ctx := context.Background()
	if err := h.wizard.Open(ctx, leadID, cfg); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.wizard.SubmitValidation(ctx, validFields()); err != nil {
		t.Fatalf("submit validation: %v", err)
	}
}

func autoConfig(previous string) domain.WizardConfig {
	return domain.WizardConfig{AutoOpened: true, PreviousStatus: &previous}
}

func TestOpenWithNilLeadIsNoop(t *testing.T) {
	h := newHarness()

	if err := h.wizard.Open(context.Background(), uuid.Nil, domain.WizardConfig{}); err != nil {
		t.Fatalf("expected silent no-op, got %v", err)
	}
	if h.wizard.View().Open {
		t.Fatal("expected wizard to stay closed")
	}
	if len(h.notifier.messages()) != 0 {
		t.Fatalf("expected no toasts, got %v", h.notifier.messages())
	}
}

func TestOpenRejectsConvertedLead(t *testing.T) {
	h := newHarness()
	h.snapshots.snapshot.IsConverted = true

	err := h.wizard.Open(context.Background(), leadL1, domain.WizardConfig{})
	if !errors.Is(err, domain.ErrLeadConverted) {
		t.Fatalf("expected ErrLeadConverted, got %v", err)
	}
	if h.wizard.View().Open {
		t.Fatal("expected wizard to stay closed")
	}
}

func TestSubmitValidationWithAllFieldsMovesToCheckingDuplicates(t *testing.T) {
	h := newHarness()
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	view := h.wizard.View()
	if view.State != domain.StateCheckingDuplicates {
		t.Fatalf("expected CheckingDuplicates, got %s", view.State)
	}
	if len(h.updater.fields) != 1 {
		t.Fatalf("expected fields persisted once, got %d", len(h.updater.fields))
	}
	if !h.notifier.has(domain.MsgLeadUpdated) {
		t.Fatalf("expected %q toast, got %v", domain.MsgLeadUpdated, h.notifier.messages())
	}
}

func TestSubmitValidationMissingAnyFieldStaysInValidation(t *testing.T) {
	for _, key := range domain.RequiredFields {
		t.Run(key, func(t *testing.T) {
			h := newHarness()
			ctx := context.Background()
			if err := h.wizard.Open(ctx, leadL1, domain.WizardConfig{}); err != nil {
				t.Fatalf("open: %v", err)
			}

			fields := validFields()
			fields[key] = " "
			err := h.wizard.SubmitValidation(ctx, fields)

			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if state := h.wizard.View().State; state != domain.StateValidatingFields {
				t.Fatalf("expected ValidatingFields, got %s", state)
			}
			if len(h.updater.fields) != 0 {
				t.Fatal("expected no update for invalid submission")
			}
			if !h.notifier.has(domain.MsgFillRequiredFields) {
				t.Fatalf("expected validation toast, got %v", h.notifier.messages())
			}
		})
	}
}

func TestSubmitValidationUpdaterFailureStays(t *testing.T) {
	h := newHarness()
	h.updater.fieldsErr = apperr.Validation("loanStartDate must be YYYY-MM-DD")
	ctx := context.Background()
	if err := h.wizard.Open(ctx, leadL1, domain.WizardConfig{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	err := h.wizard.SubmitValidation(ctx, validFields())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if state := h.wizard.View().State; state != domain.StateValidatingFields {
		t.Fatalf("expected ValidatingFields, got %s", state)
	}
	if !h.notifier.has(domain.MsgUpdateFailedPrefix + "loanStartDate must be YYYY-MM-DD") {
		t.Fatalf("expected update failure toast, got %v", h.notifier.messages())
	}
}

func TestStartConversionWithExistingAccountAwaitsConfirmation(t *testing.T) {
	h := newHarness()
	h.duplicates.result = domain.DuplicateCheckResult{Success: true, HasExistingAccount: true, AccountID: "A9"}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	if err := h.wizard.StartConversion(context.Background()); err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	view := h.wizard.View()
	if view.State != domain.StateAwaitingDuplicateConfirmation {
		t.Fatalf("expected AwaitingDuplicateConfirmation, got %s", view.State)
	}
	if view.Duplicates == nil || view.Duplicates.AccountID != "A9" {
		t.Fatalf("expected matches retained, got %+v", view.Duplicates)
	}
	if calls := h.executor.calls.Load(); calls != 0 {
		t.Fatalf("expected executor not called, got %d calls", calls)
	}
}

func TestStartConversionWithoutDuplicatesCallsExecutorOnce(t *testing.T) {
	h := newHarness()
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	if err := h.wizard.StartConversion(context.Background()); err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	if calls := h.executor.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly one executor call, got %d", calls)
	}
	if state := h.wizard.View().State; state != domain.StateShowingResult {
		t.Fatalf("expected ShowingResult, got %s", state)
	}
}

func TestStartConversionFromValidationUsesStoredFields(t *testing.T) {
	h := newHarness()
	h.snapshots.snapshot = domain.LeadSnapshot{
		Status:               "Call after",
		FinalDailyPayment:    "150",
		FinalPurchasedAmount: "18000",
		PaymentFrequency:     "Daily",
		LoanStartDate:        "2026-11-02",
		FinalTerm:            "120",
		ClientEmail:          "owner@example.com",
		LenderType:           "Direct",
	}
	if err := h.wizard.Open(context.Background(), leadL1, domain.WizardConfig{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := h.wizard.StartConversion(context.Background()); err != nil {
		t.Fatalf("start conversion: %v", err)
	}
	if calls := h.executor.calls.Load(); calls != 1 {
		t.Fatalf("expected one executor call, got %d", calls)
	}
}

func TestStartConversionFromValidationWithoutFieldsFails(t *testing.T) {
	h := newHarness()
	if err := h.wizard.Open(context.Background(), leadL1, domain.WizardConfig{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	err := h.wizard.StartConversion(context.Background())
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if h.duplicates.calls != 0 {
		t.Fatal("expected duplicate check not to run")
	}
}

func TestStartFromValidationKeepsValidationStepWhenDuplicateCheckFails(t *testing.T) {
	h := newHarness()
	h.snapshots.snapshot = domain.LeadSnapshot{
		Status:               "Call after",
		FinalDailyPayment:    "150",
		FinalPurchasedAmount: "18000",
		PaymentFrequency:     "Daily",
		LoanStartDate:        "2026-11-02",
		FinalTerm:            "120",
		ClientEmail:          "owner@example.com",
		LenderType:           "Direct",
	}
	h.duplicates.err = errors.New("servicing platform timeout")
	if err := h.wizard.Open(context.Background(), leadL1, domain.WizardConfig{}); err != nil {
		t.Fatalf("open: %v", err)
	}

	err := h.wizard.StartConversion(context.Background())
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	view := h.wizard.View()
	if view.State != domain.StateValidatingFields {
		t.Fatalf("expected ValidatingFields after failed check, got %s", view.State)
	}
	if view.Busy {
		t.Fatal("expected wizard to be idle after failed check")
	}
}

func TestConfirmDespiteDuplicatesTwiceInvokesExecutorOnce(t *testing.T) {
	h := newHarness()
	h.duplicates.result = domain.DuplicateCheckResult{Success: true, HasExistingContact: true}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})
	ctx := context.Background()

	if err := h.wizard.StartConversion(ctx); err != nil {
		t.Fatalf("start conversion: %v", err)
	}
	if err := h.wizard.ConfirmDespiteDuplicates(ctx); err != nil {
		t.Fatalf("first confirm: %v", err)
	}
	err := h.wizard.ConfirmDespiteDuplicates(ctx)
	if err == nil {
		t.Fatal("expected second confirm to be rejected")
	}

	if calls := h.executor.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly one executor call, got %d", calls)
	}
	if state := h.wizard.View().State; state != domain.StateShowingResult {
		t.Fatalf("expected ShowingResult, got %s", state)
	}
	if len(h.converted) != 1 {
		t.Fatalf("expected one conversion notification, got %d", len(h.converted))
	}
}

func TestConcurrentConfirmReachesExecutorOnce(t *testing.T) {
	h := newHarness()
	h.duplicates.result = domain.DuplicateCheckResult{Success: true, HasExistingAccount: true}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})
	ctx := context.Background()
	if err := h.wizard.StartConversion(ctx); err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	h.executor.started = make(chan struct{})
	h.executor.release = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.wizard.ConfirmDespiteDuplicates(ctx) }()
	<-h.executor.started

	toastsBefore := len(h.notifier.messages())
	err := h.wizard.ConfirmDespiteDuplicates(ctx)
	if !errors.Is(err, domain.ErrAlreadyAttempted) && !errors.Is(err, domain.ErrBusy) {
		t.Fatalf("expected concurrent confirm to be rejected, got %v", err)
	}
	if got := len(h.notifier.messages()); got != toastsBefore {
		t.Fatalf("expected rejection toast to be suppressed while converting, got %v", h.notifier.messages())
	}

	close(h.executor.release)
	if err := <-done; err != nil {
		t.Fatalf("first confirm: %v", err)
	}

	if calls := h.executor.calls.Load(); calls != 1 {
		t.Fatalf("expected exactly one executor call, got %d", calls)
	}
	if !h.notifier.has(domain.MsgConverted) {
		t.Fatalf("expected terminal success toast, got %v", h.notifier.messages())
	}
}

func TestDuplicateCheckFailureKeepsStepAndAllowsRetry(t *testing.T) {
	h := newHarness()
	h.duplicates.err = errors.New("servicing platform timeout")
	h.openAndValidate(t, leadL1, domain.WizardConfig{})
	ctx := context.Background()

	err := h.wizard.StartConversion(ctx)
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if state := h.wizard.View().State; state != domain.StateCheckingDuplicates {
		t.Fatalf("expected CheckingDuplicates, got %s", state)
	}
	if !h.notifier.has(domain.MsgDuplicateCheckPrefix + "servicing platform timeout") {
		t.Fatalf("expected duplicate check failure toast, got %v", h.notifier.messages())
	}

	h.duplicates.err = nil
	if err := h.wizard.StartConversion(ctx); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if calls := h.executor.calls.Load(); calls != 1 {
		t.Fatalf("expected executor called once after retry, got %d", calls)
	}
}

func TestUnsuccessfulDuplicateCheckIsCollaboratorError(t *testing.T) {
	h := newHarness()
	h.duplicates.result = domain.DuplicateCheckResult{Success: false}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	err := h.wizard.StartConversion(context.Background())
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	if calls := h.executor.calls.Load(); calls != 0 {
		t.Fatalf("expected no conversion without a duplicate verdict, got %d calls", calls)
	}
}

func TestLateDuplicateRejectionSurfacesDistinctMessage(t *testing.T) {
	h := newHarness()
	h.executor.err = &domain.ConversionError{Message: "Conversion failed: DUPLICATES_DETECTED"}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	err := h.wizard.StartConversion(context.Background())
	if !errors.Is(err, domain.ErrDuplicateConflict) {
		t.Fatalf("expected DuplicateConflictError, got %v", err)
	}
	if !h.notifier.has(domain.MsgDuplicatesDetected) {
		t.Fatalf("expected duplicate conflict toast, got %v", h.notifier.messages())
	}
}

func TestGenericConversionFailureStaysConverting(t *testing.T) {
	h := newHarness()
	h.executor.result = domain.ConversionResult{Success: false, Message: "Opportunity validation rule failed"}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})
	ctx := context.Background()

	err := h.wizard.StartConversion(ctx)
	if !errors.Is(err, domain.ErrCollaborator) {
		t.Fatalf("expected CollaboratorError, got %v", err)
	}
	view := h.wizard.View()
	if view.State != domain.StateConverting {
		t.Fatalf("expected Converting, got %s", view.State)
	}
	if view.Result != nil {
		t.Fatal("expected no stored result after failure")
	}
	if !h.notifier.has(domain.MsgConversionFailedPrefix + "Opportunity validation rule failed") {
		t.Fatalf("expected conversion failure toast, got %v", h.notifier.messages())
	}

	if err := h.wizard.StartConversion(ctx); !errors.Is(err, domain.ErrAlreadyAttempted) {
		t.Fatalf("expected no auto-retry, got %v", err)
	}
	if calls := h.executor.calls.Load(); calls != 1 {
		t.Fatalf("expected one executor call, got %d", calls)
	}
}

func TestCancelAutoOpenedRevertsToPreviousStatusOnce(t *testing.T) {
	h := newHarness()
	if err := h.wizard.Open(context.Background(), leadL1, autoConfig("Qualified")); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := h.wizard.Cancel(context.Background()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(h.updater.statuses) != 1 || h.updater.statuses[0] != "Qualified" {
		t.Fatalf("expected one revert to Qualified, got %v", h.updater.statuses)
	}
	if h.updater.statusActor != userID {
		t.Fatalf("expected revert attributed to %s, got %s", userID, h.updater.statusActor)
	}
	if !h.notifier.has(domain.MsgStatusReverted) {
		t.Fatalf("expected revert toast, got %v", h.notifier.messages())
	}
}

func TestCancelUserInitiatedIssuesNoRevert(t *testing.T) {
	h := newHarness()
	previous := "Qualified"
	if err := h.wizard.Open(context.Background(), leadL1, domain.WizardConfig{PreviousStatus: &previous}); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := h.wizard.Cancel(context.Background()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if len(h.updater.statuses) != 0 {
		t.Fatalf("expected no status updates, got %v", h.updater.statuses)
	}
}

func TestCancelWithSkipRevertIssuesNoRevert(t *testing.T) {
	h := newHarness()
	cfg := autoConfig("Qualified")
	cfg.SkipStatusRevert = true
	if err := h.wizard.Open(context.Background(), leadL1, cfg); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := h.wizard.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(h.updater.statuses) != 0 {
		t.Fatalf("expected no status updates, got %v", h.updater.statuses)
	}
}

func TestCloseAfterConversionDoesNotRevert(t *testing.T) {
	h := newHarness()
	h.openAndValidate(t, leadL1, autoConfig("Contacted"))
	ctx := context.Background()
	if err := h.wizard.StartConversion(ctx); err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	if err := h.wizard.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if len(h.updater.statuses) != 0 {
		t.Fatalf("expected converted lead to keep its status, got %v", h.updater.statuses)
	}
}

func TestRevertFailureStillClosesWithStatusRevertError(t *testing.T) {
	h := newHarness()
	h.updater.statusErr = errors.New("record locked")
	if err := h.wizard.Open(context.Background(), leadL1, autoConfig("Qualified")); err != nil {
		t.Fatalf("open: %v", err)
	}

	err := h.wizard.Cancel(context.Background())
	if !errors.Is(err, domain.ErrStatusRevert) {
		t.Fatalf("expected StatusRevertError, got %v", err)
	}
	if h.wizard.View().Open {
		t.Fatal("expected wizard to close after failed revert")
	}
	if !h.notifier.has(domain.MsgRevertFailedPrefix + "record locked") {
		t.Fatalf("expected revert failure toast, got %v", h.notifier.messages())
	}
}

func TestCloseResetsState(t *testing.T) {
	h := newHarness()
	h.duplicates.result = domain.DuplicateCheckResult{Success: true, HasExistingAccount: true}
	h.openAndValidate(t, leadL1, domain.WizardConfig{})
	if err := h.wizard.StartConversion(context.Background()); err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	if err := h.wizard.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}

	view := h.wizard.View()
	if view.Open || view.State != domain.StateValidatingFields || view.Duplicates != nil || view.Result != nil {
		t.Fatalf("expected reset wizard, got %+v", view)
	}
}

func TestBackReturnsToValidation(t *testing.T) {
	h := newHarness()
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	if err := h.wizard.Back(context.Background()); err != nil {
		t.Fatalf("back: %v", err)
	}
	if state := h.wizard.View().State; state != domain.StateValidatingFields {
		t.Fatalf("expected ValidatingFields, got %s", state)
	}

	if err := h.wizard.Back(context.Background()); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state from ValidatingFields, got %v", err)
	}
}

func TestEndToEndCleanConversionShowsOpportunity(t *testing.T) {
	h := newHarness()
	h.openAndValidate(t, leadL1, domain.WizardConfig{})

	if err := h.wizard.StartConversion(context.Background()); err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	view := h.wizard.View()
	if view.State != domain.StateShowingResult {
		t.Fatalf("expected ShowingResult, got %s", view.State)
	}
	if view.Result == nil || view.Result.OpportunityID != "O1" {
		t.Fatalf("expected opportunity O1, got %+v", view.Result)
	}
	if !h.notifier.has(domain.MsgConverted) {
		t.Fatalf("expected success toast, got %v", h.notifier.messages())
	}
}

func TestEndToEndDeclinedDuplicatesReturnsToIdle(t *testing.T) {
	h := newHarness()
	h.duplicates.result = domain.DuplicateCheckResult{Success: true, HasExistingContact: true, ContactID: "C7"}
	h.openAndValidate(t, leadL2, domain.WizardConfig{})
	ctx := context.Background()

	if err := h.wizard.StartConversion(ctx); err != nil {
		t.Fatalf("start conversion: %v", err)
	}
	if err := h.wizard.DeclineDuplicates(ctx); err != nil {
		t.Fatalf("decline duplicates: %v", err)
	}

	view := h.wizard.View()
	if view.State != domain.StateCheckingDuplicates {
		t.Fatalf("expected idle CheckingDuplicates step, got %s", view.State)
	}
	if view.ConversionAttempted {
		t.Fatal("expected no conversion attempt")
	}
	if calls := h.executor.calls.Load(); calls != 0 {
		t.Fatalf("expected executor not called, got %d", calls)
	}
}
