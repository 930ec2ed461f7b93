// Package domain holds the conversion wizard's value types, state machine
// states and error taxonomy. It has no dependencies on transport or storage.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// Required conversion field keys, as submitted by the validation step.
const (
	FieldFinalDailyPayment    = "finalDailyPayment"
	FieldFinalPurchasedAmount = "finalPurchasedAmount"
	FieldPaymentFrequency     = "paymentFrequency"
	FieldLoanStartDate        = "loanStartDate"
	FieldFinalTerm            = "finalTerm"
	FieldClientEmail          = "clientEmail"
	FieldLenderType           = "lenderType"
)

// RequiredFields lists the seven fields that must be non-empty before a lead
// can be converted, in form order.
var RequiredFields = []string{
	FieldFinalDailyPayment,
	FieldFinalPurchasedAmount,
	FieldPaymentFrequency,
	FieldLoanStartDate,
	FieldFinalTerm,
	FieldClientEmail,
	FieldLenderType,
}

// LeadSnapshot is a read-only projection of the lead record at one point in
// time. The wizard refreshes it explicitly after every mutation.
type LeadSnapshot struct {
	ID                   uuid.UUID
	OwnerID              uuid.UUID
	FirstName            string
	LastName             string
	Phone                string
	Status               string
	RecordTypeID         string
	IsConverted          bool
	FinalDailyPayment    string
	FinalPurchasedAmount string
	PaymentFrequency     string
	LoanStartDate        string
	FinalTerm            string
	ClientEmail          string
	LenderType           string
}

// ConversionFields returns the snapshot's required fields keyed like a
// validation submission.
func (s LeadSnapshot) ConversionFields() map[string]string {
	return map[string]string{
		FieldFinalDailyPayment:    s.FinalDailyPayment,
		FieldFinalPurchasedAmount: s.FinalPurchasedAmount,
		FieldPaymentFrequency:     s.PaymentFrequency,
		FieldLoanStartDate:        s.LoanStartDate,
		FieldFinalTerm:            s.FinalTerm,
		FieldClientEmail:          s.ClientEmail,
		FieldLenderType:           s.LenderType,
	}
}

// MissingFields returns the required keys whose value is absent or blank.
func MissingFields(fields map[string]string) []string {
	var missing []string
	for _, key := range RequiredFields {
		if strings.TrimSpace(fields[key]) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
