package adapters

import (
	"context"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/internal/servicing"

	"github.com/google/uuid"
)

// ServicingConversionAdapter sends the current lead snapshot to the loan
// servicing platform for duplicate checks and conversion.
type ServicingConversionAdapter struct {
	client    *servicing.Client
	snapshots ports.SnapshotReader
}

func NewServicingConversionAdapter(client *servicing.Client, snapshots ports.SnapshotReader) *ServicingConversionAdapter {
	return &ServicingConversionAdapter{client: client, snapshots: snapshots}
}

func (a *ServicingConversionAdapter) CheckForDuplicates(ctx context.Context, leadID uuid.UUID) (domain.DuplicateCheckResult, error) {
	lead, err := a.snapshots.GetSnapshot(ctx, leadID)
	if err != nil {
		return domain.DuplicateCheckResult{}, err
	}
	return a.client.CheckDuplicates(ctx, lead)
}

func (a *ServicingConversionAdapter) StartLeadConversion(ctx context.Context, leadID uuid.UUID) (domain.ConversionResult, error) {
	lead, err := a.snapshots.GetSnapshot(ctx, leadID)
	if err != nil {
		return domain.ConversionResult{}, err
	}
	return a.client.ConvertLead(ctx, lead)
}

// Compile-time checks.
var (
	_ ports.DuplicateChecker   = (*ServicingConversionAdapter)(nil)
	_ ports.ConversionExecutor = (*ServicingConversionAdapter)(nil)
)
