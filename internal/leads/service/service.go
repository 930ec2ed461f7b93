// Package service implements lead record management: creation, conversion
// fields, status transitions and the status timeline.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"loancrm_backend/internal/events"
	"loancrm_backend/internal/leads/repository"
	"loancrm_backend/internal/leads/transport"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/phone"
	"loancrm_backend/platform/sanitize"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStatus is assigned to leads created without an explicit status.
	DefaultStatus = "New"

	msgLeadNotFound      = "lead not found"
	msgLeadConverted     = "lead is already converted"
	opUpdateStatus       = "leads.update_status"
	opUpdateConversion   = "leads.update_conversion_fields"
	opMarkConverted      = "leads.mark_converted"
	opPreviousStatusRead = "leads.previous_status"
)

// Repository defines the data access interface needed by the lead service.
type Repository interface {
	repository.LeadReader
	repository.LeadWriter
	repository.StatusHistoryStore
}

// Service handles lead record operations.
type Service struct {
	repo        Repository
	eventBus    events.Bus
	phoneRegion string
	now         func() time.Time
}

// New creates a new lead service.
func New(repo Repository, eventBus events.Bus, phoneRegion string) *Service {
	return &Service{
		repo:        repo,
		eventBus:    eventBus,
		phoneRegion: phoneRegion,
		now:         time.Now,
	}
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = DefaultStatus
	}

	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		OwnerID:      ownerID,
		FirstName:    sanitize.Text(req.FirstName),
		LastName:     sanitize.Text(req.LastName),
		Phone:        phone.NormalizeE164In(req.Phone, s.phoneRegion),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Company:      sanitize.Text(req.Company),
		Status:       status,
		RecordTypeID: strings.TrimSpace(req.RecordTypeID),
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.eventBus.Publish(ctx, events.LeadCreated{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		OwnerID:      lead.OwnerID,
		Status:       lead.Status,
		RecordTypeID: lead.RecordTypeID,
	})

	return ToLeadResponse(lead), nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.GetLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// GetLead returns the stored lead record for other modules.
func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	return lead, err
}

// UpdateStatus changes the lead status and publishes LeadStatusChanged when the
// status actually moved.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, actorID uuid.UUID, status string) (transport.LeadResponse, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return transport.LeadResponse{}, apperr.Validation("status is required").WithOp(opUpdateStatus)
	}

	var actor *uuid.UUID
	if actorID != uuid.Nil {
		actor = &actorID
	}

	lead, oldStatus, err := s.repo.UpdateStatus(ctx, id, status, actor)
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound).WithOp(opUpdateStatus)
	}
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update lead status", err).WithOp(opUpdateStatus)
	}

	if oldStatus != lead.Status {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       lead.ID,
			OwnerID:      lead.OwnerID,
			ActorID:      actorID,
			OldStatus:    oldStatus,
			NewStatus:    lead.Status,
			RecordTypeID: lead.RecordTypeID,
			IsConverted:  lead.IsConverted,
		})
	}

	return ToLeadResponse(lead), nil
}

// UpdateConversionFields stores the financial terms. Converted leads are frozen.
func (s *Service) UpdateConversionFields(ctx context.Context, id uuid.UUID, req transport.ConversionFieldsRequest) (transport.LeadResponse, error) {
	current, err := s.GetLead(ctx, id)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	if current.IsConverted {
		return transport.LeadResponse{}, apperr.Conflict(msgLeadConverted).WithOp(opUpdateConversion)
	}

	lead, err := s.repo.UpdateConversionFields(ctx, id, repository.ConversionFields{
		FinalDailyPayment:    strings.TrimSpace(req.FinalDailyPayment),
		FinalPurchasedAmount: strings.TrimSpace(req.FinalPurchasedAmount),
		PaymentFrequency:     sanitize.Text(req.PaymentFrequency),
		LoanStartDate:        strings.TrimSpace(req.LoanStartDate),
		FinalTerm:            strings.TrimSpace(req.FinalTerm),
		ClientEmail:          strings.ToLower(strings.TrimSpace(req.ClientEmail)),
		LenderType:           sanitize.Text(req.LenderType),
	})
	if errors.Is(err, repository.ErrNotFound) {
		return transport.LeadResponse{}, apperr.NotFound(msgLeadNotFound).WithOp(opUpdateConversion)
	}
	if err != nil {
		return transport.LeadResponse{}, apperr.Wrap(apperr.KindInternal, "failed to update conversion fields", err).WithOp(opUpdateConversion)
	}

	return ToLeadResponse(lead), nil
}

// MarkConverted flags the lead as converted and stores the created record ids.
func (s *Service) MarkConverted(ctx context.Context, id uuid.UUID, params repository.MarkConvertedParams) error {
	_, err := s.repo.MarkConverted(ctx, id, params)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgLeadNotFound).WithOp(opMarkConverted)
	}
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "failed to mark lead converted", err).WithOp(opMarkConverted)
	}
	return nil
}

// GetPreviousStatus returns the status held before the latest transition, or
// an empty string when there is none.
func (s *Service) GetPreviousStatus(ctx context.Context, id uuid.UUID) (string, error) {
	previous, err := s.repo.GetPreviousStatus(ctx, id)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "failed to read status history", err).WithOp(opPreviousStatusRead)
	}
	return previous, nil
}

// StatusTimeline returns how long the lead spent in each status. The lead and
// its history are loaded concurrently.
func (s *Service) StatusTimeline(ctx context.Context, id uuid.UUID) (transport.StatusTimelineResponse, error) {
	var entries []repository.StatusHistoryEntry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.GetLead(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		entries, err = s.repo.ListStatusHistory(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return transport.StatusTimelineResponse{}, err
	}

	return transport.StatusTimelineResponse{Items: BuildStatusTimeline(entries, s.now())}, nil
}

func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                     lead.ID,
		OwnerID:                lead.OwnerID,
		FirstName:              lead.FirstName,
		LastName:               lead.LastName,
		Phone:                  lead.Phone,
		Email:                  lead.Email,
		Company:                lead.Company,
		Status:                 lead.Status,
		RecordTypeID:           lead.RecordTypeID,
		IsConverted:            lead.IsConverted,
		ConvertedAccountID:     lead.ConvertedAccountID,
		ConvertedContactID:     lead.ConvertedContactID,
		ConvertedOpportunityID: lead.ConvertedOpportunityID,
		FinalDailyPayment:      lead.FinalDailyPayment,
		FinalPurchasedAmount:   lead.FinalPurchasedAmount,
		PaymentFrequency:       lead.PaymentFrequency,
		LoanStartDate:          lead.LoanStartDate,
		FinalTerm:              lead.FinalTerm,
		ClientEmail:            lead.ClientEmail,
		LenderType:             lead.LenderType,
		CreatedAt:              lead.CreatedAt,
		UpdatedAt:              lead.UpdatedAt,
	}
}
