// Package ports defines the collaborators the conversion wizard and status
// watcher depend on. Adapters in internal/adapters bind them to the leads
// module, the servicing platform client and the notification channel.
package ports

import (
	"context"

	"loancrm_backend/internal/conversion/domain"

	"github.com/google/uuid"
)

// DuplicateChecker looks up existing Accounts and Contacts matching a lead.
type DuplicateChecker interface {
	CheckForDuplicates(ctx context.Context, leadID uuid.UUID) (domain.DuplicateCheckResult, error)
}

// ConversionExecutor converts a lead into Account, Contact and Opportunity
// records. A refused conversion is returned as *domain.ConversionError.
type ConversionExecutor interface {
	StartLeadConversion(ctx context.Context, leadID uuid.UUID) (domain.ConversionResult, error)
}

// RecordUpdater mutates the lead record.
type RecordUpdater interface {
	UpdateFields(ctx context.Context, leadID uuid.UUID, fields map[string]string) error
	UpdateStatus(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID, status string) error
}

// StatusHistory answers what status a lead held before its current one.
type StatusHistory interface {
	GetPreviousStatus(ctx context.Context, leadID uuid.UUID) (string, error)
}

// SnapshotReader loads the current lead projection.
type SnapshotReader interface {
	GetSnapshot(ctx context.Context, leadID uuid.UUID) (domain.LeadSnapshot, error)
}

// Severity of a toast.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Toast is a user-visible notification.
type Toast struct {
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity Severity  `json:"variant"`
	LeadID   uuid.UUID `json:"leadId"`
}

// Notifier delivers toasts. Delivery is fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, toast Toast)
}
