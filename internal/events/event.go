// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"loancrm_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when a new lead is created.
type LeadCreated struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	OwnerID      uuid.UUID `json:"ownerId"`
	Status       string    `json:"status"`
	RecordTypeID string    `json:"recordTypeId"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published after a lead status change has been stored.
// The status watcher consumes it to decide whether to open the conversion wizard.
type LeadStatusChanged struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	OwnerID      uuid.UUID `json:"ownerId"`
	ActorID      uuid.UUID `json:"actorId"`
	OldStatus    string    `json:"oldStatus"`
	NewStatus    string    `json:"newStatus"`
	RecordTypeID string    `json:"recordTypeId"`
	IsConverted  bool      `json:"isConverted"`
}

func (e LeadStatusChanged) EventName() string { return "leads.status.changed" }

// =============================================================================
// Conversion Domain Events
// =============================================================================

// ConversionWizardActivated is published when a wizard session opens for a lead.
type ConversionWizardActivated struct {
	BaseEvent
	SessionID      uuid.UUID `json:"sessionId"`
	LeadID         uuid.UUID `json:"leadId"`
	UserID         uuid.UUID `json:"userId"`
	AutoOpened     bool      `json:"autoOpened"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
}

func (e ConversionWizardActivated) EventName() string { return "conversion.wizard.activated" }

// LeadConverted is published once the servicing platform accepted a conversion.
type LeadConverted struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	UserID        uuid.UUID `json:"userId"`
	AccountID     string    `json:"accountId"`
	ContactID     string    `json:"contactId"`
	OpportunityID string    `json:"opportunityId"`
	Message       string    `json:"message"`
}

func (e LeadConverted) EventName() string { return "conversion.lead.converted" }

// LeadConversionFailed is published when the servicing platform rejected a conversion.
type LeadConversionFailed struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	UserID     uuid.UUID `json:"userId"`
	Duplicates bool      `json:"duplicates"`
	Reason     string    `json:"reason"`
}

func (e LeadConversionFailed) EventName() string { return "conversion.lead.failed" }

// LeadStatusReverted is published when a cancelled auto-opened wizard restored
// the lead's previous status.
type LeadStatusReverted struct {
	BaseEvent
	LeadID          uuid.UUID `json:"leadId"`
	UserID          uuid.UUID `json:"userId"`
	RevertedTo      string    `json:"revertedTo"`
	RevertedFrom    string    `json:"revertedFrom"`
	RevertSucceeded bool      `json:"revertSucceeded"`
}

func (e LeadStatusReverted) EventName() string { return "conversion.status.reverted" }
