// Package watcher opens the conversion wizard automatically when a lead moves
// into the trigger status, remembering the status it came from so that a
// cancelled wizard can restore it.
package watcher

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

// Activator opens a wizard for a user.
type Activator interface {
	Activate(ctx context.Context, leadID, userID uuid.UUID, cfg domain.WizardConfig) error
}

// Observation is one status notification for a lead.
type Observation struct {
	LeadID       uuid.UUID
	OwnerID      uuid.UUID
	ActorID      uuid.UUID
	Status       string
	OldStatus    string
	RecordTypeID string
	IsConverted  bool
}

// Outcome is what the watcher did with an observation.
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeRemembered
	OutcomeActivated
	OutcomeConverted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRemembered:
		return "remembered"
	case OutcomeActivated:
		return "activated"
	case OutcomeConverted:
		return "converted"
	default:
		return "ignored"
	}
}

// Watcher reacts to lead status notifications.
type Watcher struct {
	rules     Rules
	memory    StatusMemory
	history   ports.StatusHistory
	activator Activator
	log       *logger.Logger

	mu sync.Mutex
}

// New creates a watcher.
func New(rules Rules, memory StatusMemory, history ports.StatusHistory, activator Activator, log *logger.Logger) *Watcher {
	return &Watcher{
		rules:     rules,
		memory:    memory,
		history:   history,
		activator: activator,
		log:       log,
	}
}

// Observe processes one notification. Notifications are handled one at a
// time so that memory updates for a lead are never interleaved.
func (w *Watcher) Observe(ctx context.Context, obs Observation) (Outcome, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if obs.IsConverted || w.rules.IsConvertedStatus(obs.Status) {
		if err := w.memory.Forget(ctx, obs.LeadID); err != nil {
			w.log.WithContext(ctx).Warn("failed to forget watcher memory", "leadId", obs.LeadID, "error", err)
		}
		return OutcomeConverted, nil
	}

	memory, found, err := w.memory.Load(ctx, obs.LeadID)
	if err != nil {
		w.log.WithContext(ctx).Warn("failed to load watcher memory", "leadId", obs.LeadID, "error", err)
		found = false
	}
	last := strings.TrimSpace(obs.OldStatus)
	if found {
		last = memory.LastObserved
	}

	trigger := w.rules.TriggerStatus
	if obs.Status != trigger {
		w.remember(ctx, obs.LeadID, Memory{LastObserved: obs.Status, Previous: obs.Status})
		return OutcomeRemembered, nil
	}

	if last == trigger || !w.rules.AllowsRecordType(obs.RecordTypeID) {
		w.remember(ctx, obs.LeadID, Memory{LastObserved: trigger, Previous: memory.Previous})
		return OutcomeIgnored, nil
	}

	userID := obs.ActorID
	if userID == uuid.Nil {
		userID = obs.OwnerID
	}
	if userID == uuid.Nil {
		w.log.WithContext(ctx).Warn("status watcher has no user to open the wizard for", "leadId", obs.LeadID)
		w.remember(ctx, obs.LeadID, Memory{LastObserved: trigger, Previous: memory.Previous})
		return OutcomeIgnored, nil
	}

	previous := w.resolvePrevious(ctx, obs.LeadID, memory.Previous)
	w.remember(ctx, obs.LeadID, Memory{LastObserved: trigger, Previous: previous})

	cfg := domain.WizardConfig{AutoOpened: true, PreviousStatus: &previous}
	if err := w.activator.Activate(ctx, obs.LeadID, userID, cfg); err != nil {
		w.log.WithContext(ctx).ConversionEvent("auto_open", obs.LeadID.String(), "activation_failed", err)
		return OutcomeIgnored, fmt.Errorf("activate wizard for lead %s: %w", obs.LeadID, err)
	}
	w.log.WithContext(ctx).ConversionEvent("auto_open", obs.LeadID.String(), "activated", nil)
	return OutcomeActivated, nil
}

// resolvePrevious picks the revert target: remembered status, then status
// history, then the sentinel.
func (w *Watcher) resolvePrevious(ctx context.Context, leadID uuid.UUID, remembered string) string {
	candidate := strings.TrimSpace(remembered)
	if candidate == "" && w.history != nil {
		fromHistory, err := w.history.GetPreviousStatus(ctx, leadID)
		if err != nil {
			w.log.WithContext(ctx).Warn("status history lookup failed", "leadId", leadID, "error", err)
		} else {
			candidate = strings.TrimSpace(fromHistory)
		}
	}
	if candidate == "" || candidate == w.rules.SentinelStatus || candidate == w.rules.TriggerStatus {
		return w.rules.SentinelStatus
	}
	return candidate
}

func (w *Watcher) remember(ctx context.Context, leadID uuid.UUID, memory Memory) {
	if err := w.memory.Store(ctx, leadID, memory); err != nil {
		w.log.WithContext(ctx).Warn("failed to store watcher memory", "leadId", leadID, "error", err)
	}
}
