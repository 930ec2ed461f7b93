package adapters

import (
	"context"
	"sort"
	"strings"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/ports"
	leadsrepo "loancrm_backend/internal/leads/repository"
	leadsvc "loancrm_backend/internal/leads/service"
	"loancrm_backend/internal/leads/transport"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/validator"

	"github.com/google/uuid"
)

// LeadRecordAdapter exposes the leads service to the conversion wizard and
// status watcher.
type LeadRecordAdapter struct {
	svc *leadsvc.Service
	val *validator.Validator
}

func NewLeadRecordAdapter(svc *leadsvc.Service, val *validator.Validator) *LeadRecordAdapter {
	return &LeadRecordAdapter{svc: svc, val: val}
}

// GetSnapshot loads the lead projection the wizard works on.
func (a *LeadRecordAdapter) GetSnapshot(ctx context.Context, leadID uuid.UUID) (domain.LeadSnapshot, error) {
	lead, err := a.svc.GetLead(ctx, leadID)
	if err != nil {
		return domain.LeadSnapshot{}, err
	}
	return toSnapshot(lead), nil
}

// UpdateFields format-checks and stores the conversion fields. A bad format is
// reported as a validation error naming the offending fields.
func (a *LeadRecordAdapter) UpdateFields(ctx context.Context, leadID uuid.UUID, fields map[string]string) error {
	req := transport.ConversionFieldsRequest{
		FinalDailyPayment:    fields[domain.FieldFinalDailyPayment],
		FinalPurchasedAmount: fields[domain.FieldFinalPurchasedAmount],
		PaymentFrequency:     fields[domain.FieldPaymentFrequency],
		LoanStartDate:        fields[domain.FieldLoanStartDate],
		FinalTerm:            fields[domain.FieldFinalTerm],
		ClientEmail:          fields[domain.FieldClientEmail],
		LenderType:           fields[domain.FieldLenderType],
	}
	if err := a.val.Struct(req); err != nil {
		invalid := validator.FieldErrors(err)
		names := make([]string, 0, len(invalid))
		for name := range invalid {
			names = append(names, name)
		}
		sort.Strings(names)
		return apperr.Validation("invalid format for " + strings.Join(names, ", ")).
			WithDetails(map[string]any{"invalidFields": invalid})
	}

	_, err := a.svc.UpdateConversionFields(ctx, leadID, req)
	return err
}

// UpdateStatus changes the lead status on behalf of actorID.
func (a *LeadRecordAdapter) UpdateStatus(ctx context.Context, leadID uuid.UUID, actorID uuid.UUID, status string) error {
	_, err := a.svc.UpdateStatus(ctx, leadID, actorID, status)
	return err
}

// GetPreviousStatus answers from the lead's status history.
func (a *LeadRecordAdapter) GetPreviousStatus(ctx context.Context, leadID uuid.UUID) (string, error) {
	return a.svc.GetPreviousStatus(ctx, leadID)
}

func toSnapshot(lead leadsrepo.Lead) domain.LeadSnapshot {
	return domain.LeadSnapshot{
		ID:                   lead.ID,
		OwnerID:              lead.OwnerID,
		FirstName:            lead.FirstName,
		LastName:             lead.LastName,
		Phone:                lead.Phone,
		Status:               lead.Status,
		RecordTypeID:         lead.RecordTypeID,
		IsConverted:          lead.IsConverted,
		FinalDailyPayment:    lead.FinalDailyPayment,
		FinalPurchasedAmount: lead.FinalPurchasedAmount,
		PaymentFrequency:     lead.PaymentFrequency,
		LoanStartDate:        lead.LoanStartDate,
		FinalTerm:            lead.FinalTerm,
		ClientEmail:          lead.ClientEmail,
		LenderType:           lead.LenderType,
	}
}

// Compile-time checks.
var (
	_ ports.SnapshotReader = (*LeadRecordAdapter)(nil)
	_ ports.RecordUpdater  = (*LeadRecordAdapter)(nil)
	_ ports.StatusHistory  = (*LeadRecordAdapter)(nil)
)
