// Package service keeps the open conversion wizards. Every lead has at most
// one open wizard; the user who opened it is the only one who can drive it.
package service

import (
	"context"
	"sync"
	"time"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/wizard"
	"loancrm_backend/internal/events"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

// DefaultIdleTimeout is how long an untouched wizard stays registered.
const DefaultIdleTimeout = 30 * time.Minute

const msgSessionNotFound = "conversion session not found"

// Session is a registered wizard.
type Session struct {
	ID uuid.UUID
	wizard.View
	LastActivity time.Time
}

type session struct {
	id       uuid.UUID
	wizard   *wizard.Wizard
	lastUsed time.Time
}

// Service is the wizard registry.
type Service struct {
	deps        wizard.Dependencies
	eventBus    events.Bus
	log         *logger.Logger
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	byLead   map[uuid.UUID]uuid.UUID
	opening  map[uuid.UUID]*leadLock
}

// leadLock serialises opening wizards for one lead. refs counts holders and
// waiters so the entry can be dropped once nobody needs it.
type leadLock struct {
	mu   sync.Mutex
	refs int
}

// New creates the registry. deps are shared by every wizard it creates.
func New(deps wizard.Dependencies, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		deps:        deps,
		eventBus:    eventBus,
		log:         log,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		sessions:    make(map[uuid.UUID]*session),
		byLead:      make(map[uuid.UUID]uuid.UUID),
		opening:     make(map[uuid.UUID]*leadLock),
	}
}

// Open starts a user-initiated wizard for leadID. A wizard the same user
// already has open for the lead is returned as is.
func (s *Service) Open(ctx context.Context, userID, leadID uuid.UUID) (Session, error) {
	if leadID == uuid.Nil {
		return Session{}, apperr.Validation("leadId is required")
	}

	unlock := s.lockLead(leadID)
	defer unlock()

	if existing, ok := s.lookupLead(leadID); ok {
		if existing.wizard.UserID() != userID {
			return Session{}, apperr.Conflict("lead is being converted by another user")
		}
		if existing.wizard.View().Open {
			return s.touch(existing), nil
		}
	}

	return s.activate(ctx, leadID, userID, domain.WizardConfig{})
}

// Activate opens an auto-triggered wizard. It satisfies the status watcher's
// Activator.
func (s *Service) Activate(ctx context.Context, leadID, userID uuid.UUID, cfg domain.WizardConfig) error {
	unlock := s.lockLead(leadID)
	defer unlock()

	if existing, ok := s.lookupLead(leadID); ok && existing.wizard.UserID() != userID && existing.wizard.View().Open {
		return apperr.Conflict("lead is being converted by another user")
	}
	_, err := s.activate(ctx, leadID, userID, cfg)
	return err
}

// lockLead holds off other Open and Activate calls for leadID until the
// returned func is called. Callers must not already hold s.mu.
func (s *Service) lockLead(leadID uuid.UUID) func() {
	s.mu.Lock()
	l, ok := s.opening[leadID]
	if !ok {
		l = &leadLock{}
		s.opening[leadID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.opening, leadID)
		}
		s.mu.Unlock()
	}
}

// activate must be called with the lead lock held.
func (s *Service) activate(ctx context.Context, leadID, userID uuid.UUID, cfg domain.WizardConfig) (Session, error) {
	sess, reused := s.lookupLead(leadID)
	if !reused || sess.wizard.UserID() != userID {
		sess = &session{id: uuid.New(), wizard: wizard.New(userID, s.deps, s.hooks(userID))}
	}

	var previous string
	if cfg.PreviousStatus != nil {
		previous = *cfg.PreviousStatus
	}

	if err := sess.wizard.Open(ctx, leadID, cfg); err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	if oldID, ok := s.byLead[leadID]; ok && oldID != sess.id {
		delete(s.sessions, oldID)
	}
	s.sessions[sess.id] = sess
	s.byLead[leadID] = sess.id
	s.mu.Unlock()

	s.eventBus.Publish(ctx, events.ConversionWizardActivated{
		BaseEvent:      events.NewBaseEvent(),
		SessionID:      sess.id,
		LeadID:         leadID,
		UserID:         userID,
		AutoOpened:     cfg.AutoOpened,
		PreviousStatus: previous,
	})

	return s.touch(sess), nil
}

// Get returns a session owned by userID.
func (s *Service) Get(_ context.Context, userID, sessionID uuid.UUID) (Session, error) {
	sess, err := s.owned(userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	return s.touch(sess), nil
}

// FindByLead returns the open session userID has for leadID, if any.
func (s *Service) FindByLead(_ context.Context, userID, leadID uuid.UUID) (Session, error) {
	sess, ok := s.lookupLead(leadID)
	if !ok || sess.wizard.UserID() != userID || !sess.wizard.View().Open {
		return Session{}, apperr.NotFound(msgSessionNotFound)
	}
	return s.touch(sess), nil
}

// SubmitValidation forwards the field submission to the wizard.
func (s *Service) SubmitValidation(ctx context.Context, userID, sessionID uuid.UUID, fields map[string]string) (Session, error) {
	return s.drive(userID, sessionID, func(w *wizard.Wizard) error {
		return w.SubmitValidation(ctx, fields)
	})
}

// StartConversion runs the duplicate check and, when clean, the conversion.
func (s *Service) StartConversion(ctx context.Context, userID, sessionID uuid.UUID) (Session, error) {
	return s.drive(userID, sessionID, func(w *wizard.Wizard) error {
		return w.StartConversion(ctx)
	})
}

// ConfirmDuplicates converts despite found duplicates.
func (s *Service) ConfirmDuplicates(ctx context.Context, userID, sessionID uuid.UUID) (Session, error) {
	return s.drive(userID, sessionID, func(w *wizard.Wizard) error {
		return w.ConfirmDespiteDuplicates(ctx)
	})
}

// DeclineDuplicates abandons the duplicate warning.
func (s *Service) DeclineDuplicates(ctx context.Context, userID, sessionID uuid.UUID) (Session, error) {
	return s.drive(userID, sessionID, func(w *wizard.Wizard) error {
		return w.DeclineDuplicates(ctx)
	})
}

// Back returns to field validation.
func (s *Service) Back(ctx context.Context, userID, sessionID uuid.UUID) (Session, error) {
	return s.drive(userID, sessionID, func(w *wizard.Wizard) error {
		return w.Back(ctx)
	})
}

// Cancel closes the wizard and drops the session. The session is dropped even
// when restoring the previous status failed.
func (s *Service) Cancel(ctx context.Context, userID, sessionID uuid.UUID) (Session, error) {
	sess, err := s.owned(userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	leadID := sess.wizard.View().LeadID

	closeErr := sess.wizard.Cancel(ctx)
	if domain.IsBusy(closeErr) {
		return s.touch(sess), closeErr
	}

	s.mu.Lock()
	delete(s.sessions, sess.id)
	if s.byLead[leadID] == sess.id {
		delete(s.byLead, leadID)
	}
	s.mu.Unlock()

	return s.view(sess), closeErr
}

// SweepIdle closes sessions untouched for longer than the idle timeout. Auto
// opened wizards restore their previous status as if cancelled.
func (s *Service) SweepIdle(ctx context.Context) int {
	cutoff := s.now().Add(-s.idleTimeout)

	s.mu.Lock()
	var idle []*session
	for _, sess := range s.sessions {
		if sess.lastUsed.Before(cutoff) {
			idle = append(idle, sess)
		}
	}
	s.mu.Unlock()

	closed := 0
	for _, sess := range idle {
		if _, err := s.Cancel(ctx, sess.wizard.UserID(), sess.id); err != nil {
			if domain.IsBusy(err) {
				continue
			}
			s.log.WithContext(ctx).Warn("idle conversion session closed with error", "sessionId", sess.id, "error", err)
		}
		closed++
	}
	return closed
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.SweepIdle(ctx); n > 0 {
				s.log.Info("closed idle conversion sessions", "count", n)
			}
		}
	}
}

func (s *Service) drive(userID, sessionID uuid.UUID, op func(w *wizard.Wizard) error) (Session, error) {
	sess, err := s.owned(userID, sessionID)
	if err != nil {
		return Session{}, err
	}
	err = op(sess.wizard)
	return s.touch(sess), err
}

func (s *Service) owned(userID, sessionID uuid.UUID) (*session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok || sess.wizard.UserID() != userID {
		return nil, apperr.NotFound(msgSessionNotFound)
	}
	return sess, nil
}

func (s *Service) lookupLead(leadID uuid.UUID) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byLead[leadID]
	if !ok {
		return nil, false
	}
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Service) touch(sess *session) Session {
	s.mu.Lock()
	sess.lastUsed = s.now()
	s.mu.Unlock()
	return s.view(sess)
}

func (s *Service) view(sess *session) Session {
	s.mu.Lock()
	lastUsed := sess.lastUsed
	s.mu.Unlock()
	return Session{ID: sess.id, View: sess.wizard.View(), LastActivity: lastUsed}
}

// hooks turn wizard outcomes into domain events.
func (s *Service) hooks(userID uuid.UUID) wizard.Hooks {
	return wizard.Hooks{
		OnConverted: func(ctx context.Context, lead domain.LeadSnapshot, result domain.ConversionResult) {
			s.eventBus.Publish(ctx, events.LeadConverted{
				BaseEvent:     events.NewBaseEvent(),
				LeadID:        lead.ID,
				UserID:        userID,
				AccountID:     result.AccountID,
				ContactID:     result.ContactID,
				OpportunityID: result.OpportunityID,
				Message:       result.Message,
			})
		},
		OnConversionFailed: func(ctx context.Context, leadID uuid.UUID, err error, duplicates bool) {
			s.eventBus.Publish(ctx, events.LeadConversionFailed{
				BaseEvent:  events.NewBaseEvent(),
				LeadID:     leadID,
				UserID:     userID,
				Duplicates: duplicates,
				Reason:     domain.CauseMessage(err),
			})
		},
		OnStatusReverted: func(ctx context.Context, leadID uuid.UUID, from, to string, err error) {
			s.eventBus.Publish(ctx, events.LeadStatusReverted{
				BaseEvent:       events.NewBaseEvent(),
				LeadID:          leadID,
				UserID:          userID,
				RevertedTo:      to,
				RevertedFrom:    from,
				RevertSucceeded: err == nil,
			})
		},
	}
}
