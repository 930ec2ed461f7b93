package repository

import (
	"context"

	"github.com/google/uuid"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
}

// LeadWriter provides write operations for lead management.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	UpdateConversionFields(ctx context.Context, id uuid.UUID, fields ConversionFields) (Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID *uuid.UUID) (Lead, string, error)
	MarkConverted(ctx context.Context, id uuid.UUID, params MarkConvertedParams) (Lead, error)
}

// StatusHistoryStore reads the status transition log.
type StatusHistoryStore interface {
	ListStatusHistory(ctx context.Context, leadID uuid.UUID) ([]StatusHistoryEntry, error)
	GetPreviousStatus(ctx context.Context, leadID uuid.UUID) (string, error)
}

// CommentStore manages lead comments.
type CommentStore interface {
	CreateLeadComment(ctx context.Context, params CreateLeadCommentParams) (LeadComment, error)
	ListLeadComments(ctx context.Context, leadID uuid.UUID) ([]LeadComment, error)
}

// =====================================
// Composite Interface
// =====================================

// LeadsRepository defines the complete interface for leads data operations.
type LeadsRepository interface {
	LeadReader
	LeadWriter
	StatusHistoryStore
	CommentStore
}

// Ensure Repository implements LeadsRepository
var _ LeadsRepository = (*Repository)(nil)
