package service

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/internal/conversion/wizard"
	"loancrm_backend/internal/events"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *fakeBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *fakeBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *fakeBus) Subscribe(string, events.Handler) {}

func (b *fakeBus) named(name string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventName() == name {
			out = append(out, e)
		}
	}
	return out
}

type stubCollaborators struct {
	mu        sync.Mutex
	loadDelay time.Duration
	converted bool
	statuses  []string
	duplicate domain.DuplicateCheckResult
}

func (s *stubCollaborators) CheckForDuplicates(context.Context, uuid.UUID) (domain.DuplicateCheckResult, error) {
	return s.duplicate, nil
}

func (s *stubCollaborators) StartLeadConversion(context.Context, uuid.UUID) (domain.ConversionResult, error) {
	return domain.ConversionResult{Success: true, AccountID: "A1", ContactID: "C1", OpportunityID: "O1"}, nil
}

func (s *stubCollaborators) UpdateFields(context.Context, uuid.UUID, map[string]string) error {
	return nil
}

func (s *stubCollaborators) UpdateStatus(_ context.Context, _ uuid.UUID, _ uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return nil
}

func (s *stubCollaborators) GetSnapshot(_ context.Context, leadID uuid.UUID) (domain.LeadSnapshot, error) {
	time.Sleep(s.loadDelay)
	return domain.LeadSnapshot{
		ID:                   leadID,
		Status:               "Call after",
		FinalDailyPayment:    "150",
		FinalPurchasedAmount: "18000",
		PaymentFrequency:     "Daily",
		LoanStartDate:        "2026-11-02",
		FinalTerm:            "120",
		ClientEmail:          "owner@example.com",
		LenderType:           "Direct",
	}, nil
}

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, uuid.UUID, ports.Toast) {}

func newTestService() (*Service, *stubCollaborators, *fakeBus) {
	stub := &stubCollaborators{duplicate: domain.DuplicateCheckResult{Success: true}}
	bus := &fakeBus{}
	log := logger.NewWithWriter("test", io.Discard)
	svc := New(wizard.Dependencies{
		Duplicates: stub,
		Executor:   stub,
		Updater:    stub,
		Snapshots:  stub,
		Notifier:   discardNotifier{},
		Log:        log,
	}, bus, log)
	return svc, stub, bus
}

func TestOpenIsIdempotentPerUserAndLead(t *testing.T) {
	svc, _, bus := newTestService()
	ctx := context.Background()
	userID, leadID := uuid.New(), uuid.New()

	first, err := svc.Open(ctx, userID, leadID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := svc.Open(ctx, userID, leadID)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same session, got %s and %s", first.ID, second.ID)
	}
	if got := len(bus.named(events.ConversionWizardActivated{}.EventName())); got != 1 {
		t.Fatalf("expected one activation event, got %d", got)
	}
}

func TestConcurrentOpenAndActivateShareOneSession(t *testing.T) {
	svc, stub, _ := newTestService()
	stub.loadDelay = 20 * time.Millisecond
	ctx := context.Background()
	userID, leadID := uuid.New(), uuid.New()
	previous := "Qualified"

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := svc.Open(ctx, userID, leadID)
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- svc.Activate(ctx, leadID, userID, domain.WizardConfig{AutoOpened: true, PreviousStatus: &previous})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("open: %v", err)
		}
	}

	svc.mu.Lock()
	sessions, opening := len(svc.sessions), len(svc.opening)
	svc.mu.Unlock()
	if sessions != 1 {
		t.Fatalf("expected one registered session, got %d", sessions)
	}
	if opening != 0 {
		t.Fatalf("expected lead locks released, got %d", opening)
	}
	if _, err := svc.FindByLead(ctx, userID, leadID); err != nil {
		t.Fatalf("find by lead: %v", err)
	}
}

func TestOpenByAnotherUserConflicts(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	leadID := uuid.New()

	if _, err := svc.Open(ctx, uuid.New(), leadID); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.Open(ctx, uuid.New(), leadID)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestSessionsAreOwnerScoped(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()
	owner := uuid.New()

	sess, err := svc.Open(ctx, owner, uuid.New())
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, err := svc.Get(ctx, uuid.New(), sess.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := svc.StartConversion(ctx, uuid.New(), sess.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
}

func TestConversionPublishesLeadConverted(t *testing.T) {
	svc, _, bus := newTestService()
	ctx := context.Background()
	userID, leadID := uuid.New(), uuid.New()

	sess, err := svc.Open(ctx, userID, leadID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sess, err = svc.StartConversion(ctx, userID, sess.ID)
	if err != nil {
		t.Fatalf("start conversion: %v", err)
	}

	if sess.State != domain.StateShowingResult {
		t.Fatalf("expected ShowingResult, got %s", sess.State)
	}
	converted := bus.named(events.LeadConverted{}.EventName())
	if len(converted) != 1 {
		t.Fatalf("expected one LeadConverted event, got %d", len(converted))
	}
	e := converted[0].(events.LeadConverted)
	if e.LeadID != leadID || e.UserID != userID || e.OpportunityID != "O1" {
		t.Fatalf("unexpected event %+v", e)
	}
}

func TestActivateThenCancelRevertsAndDropsSession(t *testing.T) {
	svc, stub, bus := newTestService()
	ctx := context.Background()
	userID, leadID := uuid.New(), uuid.New()
	previous := "Qualified"

	if err := svc.Activate(ctx, leadID, userID, domain.WizardConfig{AutoOpened: true, PreviousStatus: &previous}); err != nil {
		t.Fatalf("activate: %v", err)
	}
	sess, err := svc.FindByLead(ctx, userID, leadID)
	if err != nil {
		t.Fatalf("find by lead: %v", err)
	}
	if !sess.Config.AutoOpened {
		t.Fatal("expected auto-opened session")
	}

	if _, err := svc.Cancel(ctx, userID, sess.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if len(stub.statuses) != 1 || stub.statuses[0] != "Qualified" {
		t.Fatalf("expected one revert to Qualified, got %v", stub.statuses)
	}
	if _, err := svc.Get(ctx, userID, sess.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected session dropped, got %v", err)
	}
	reverted := bus.named(events.LeadStatusReverted{}.EventName())
	if len(reverted) != 1 || !reverted[0].(events.LeadStatusReverted).RevertSucceeded {
		t.Fatalf("expected successful revert event, got %+v", reverted)
	}
}

func TestSweepIdleClosesStaleSessions(t *testing.T) {
	svc, stub, _ := newTestService()
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	userID, leadID := uuid.New(), uuid.New()
	previous := "Contacted"

	if err := svc.Activate(ctx, leadID, userID, domain.WizardConfig{AutoOpened: true, PreviousStatus: &previous}); err != nil {
		t.Fatalf("activate: %v", err)
	}

	if n := svc.SweepIdle(ctx); n != 0 {
		t.Fatalf("expected fresh session kept, closed %d", n)
	}

	now = now.Add(DefaultIdleTimeout + time.Minute)
	if n := svc.SweepIdle(ctx); n != 1 {
		t.Fatalf("expected one idle session closed, got %d", n)
	}
	if len(stub.statuses) != 1 || stub.statuses[0] != "Contacted" {
		t.Fatalf("expected idle close to revert, got %v", stub.statuses)
	}
	if _, err := svc.FindByLead(ctx, userID, leadID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected no session after sweep, got %v", err)
	}
}

func TestOpenRejectsMissingLead(t *testing.T) {
	svc, _, _ := newTestService()

	if _, err := svc.Open(context.Background(), uuid.New(), uuid.Nil); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
