package transport

import (
	"time"

	"loancrm_backend/internal/conversion/domain"

	"github.com/google/uuid"
)

type OpenConversionRequest struct {
	LeadID uuid.UUID `json:"leadId" validate:"required"`
}

// SubmitValidationRequest carries the seven conversion fields. Blank values
// are reported by the wizard, not rejected at binding.
type SubmitValidationRequest struct {
	FinalDailyPayment    string `json:"finalDailyPayment"`
	FinalPurchasedAmount string `json:"finalPurchasedAmount"`
	PaymentFrequency     string `json:"paymentFrequency"`
	LoanStartDate        string `json:"loanStartDate"`
	FinalTerm            string `json:"finalTerm"`
	ClientEmail          string `json:"clientEmail"`
	LenderType           string `json:"lenderType"`
}

func (r SubmitValidationRequest) Fields() map[string]string {
	return map[string]string{
		domain.FieldFinalDailyPayment:    r.FinalDailyPayment,
		domain.FieldFinalPurchasedAmount: r.FinalPurchasedAmount,
		domain.FieldPaymentFrequency:     r.PaymentFrequency,
		domain.FieldLoanStartDate:        r.LoanStartDate,
		domain.FieldFinalTerm:            r.FinalTerm,
		domain.FieldClientEmail:          r.ClientEmail,
		domain.FieldLenderType:           r.LenderType,
	}
}

type LeadSnapshotResponse struct {
	ID                   uuid.UUID `json:"id"`
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	Status               string    `json:"status"`
	RecordTypeID         string    `json:"recordTypeId"`
	IsConverted          bool      `json:"isConverted"`
	FinalDailyPayment    string    `json:"finalDailyPayment"`
	FinalPurchasedAmount string    `json:"finalPurchasedAmount"`
	PaymentFrequency     string    `json:"paymentFrequency"`
	LoanStartDate        string    `json:"loanStartDate"`
	FinalTerm            string    `json:"finalTerm"`
	ClientEmail          string    `json:"clientEmail"`
	LenderType           string    `json:"lenderType"`
}

type SessionResponse struct {
	ID                  uuid.UUID                    `json:"id"`
	LeadID              uuid.UUID                    `json:"leadId"`
	Open                bool                         `json:"open"`
	State               domain.WizardState           `json:"state"`
	AutoOpened          bool                         `json:"autoOpened"`
	PreviousStatus      *string                      `json:"previousStatus,omitempty"`
	SkipStatusRevert    bool                         `json:"skipStatusRevert"`
	Lead                *LeadSnapshotResponse        `json:"lead,omitempty"`
	Duplicates          *domain.DuplicateCheckResult `json:"duplicates,omitempty"`
	Result              *domain.ConversionResult     `json:"result,omitempty"`
	ConversionAttempted bool                         `json:"conversionAttempted"`
	Busy                bool                         `json:"busy"`
	LastActivity        time.Time                    `json:"lastActivity"`
}
