package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateLeadRequest struct {
	FirstName    string `json:"firstName" validate:"required,min=1,max=100"`
	LastName     string `json:"lastName" validate:"required,min=1,max=100"`
	Phone        string `json:"phone" validate:"omitempty,max=40"`
	Email        string `json:"email" validate:"omitempty,email,max=254"`
	Company      string `json:"company" validate:"omitempty,max=200"`
	Status       string `json:"status" validate:"omitempty,max=80"`
	RecordTypeID string `json:"recordTypeId" validate:"omitempty,max=40"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,min=1,max=80"`
}

// ConversionFieldsRequest carries the financial terms required before conversion.
// Every field is optional at the transport level; the conversion wizard decides
// which must be present, this layer only checks formats.
type ConversionFieldsRequest struct {
	FinalDailyPayment    string `json:"finalDailyPayment" validate:"omitempty,decimal"`
	FinalPurchasedAmount string `json:"finalPurchasedAmount" validate:"omitempty,decimal"`
	PaymentFrequency     string `json:"paymentFrequency" validate:"omitempty,max=40"`
	LoanStartDate        string `json:"loanStartDate" validate:"omitempty,datetime=2006-01-02"`
	FinalTerm            string `json:"finalTerm" validate:"omitempty,numeric"`
	ClientEmail          string `json:"clientEmail" validate:"omitempty,email,max=254"`
	LenderType           string `json:"lenderType" validate:"omitempty,max=80"`
}

type LeadResponse struct {
	ID                     uuid.UUID `json:"id"`
	OwnerID                uuid.UUID `json:"ownerId"`
	FirstName              string    `json:"firstName"`
	LastName               string    `json:"lastName"`
	Phone                  string    `json:"phone"`
	Email                  string    `json:"email"`
	Company                string    `json:"company"`
	Status                 string    `json:"status"`
	RecordTypeID           string    `json:"recordTypeId"`
	IsConverted            bool      `json:"isConverted"`
	ConvertedAccountID     *string   `json:"convertedAccountId,omitempty"`
	ConvertedContactID     *string   `json:"convertedContactId,omitempty"`
	ConvertedOpportunityID *string   `json:"convertedOpportunityId,omitempty"`
	FinalDailyPayment      string    `json:"finalDailyPayment"`
	FinalPurchasedAmount   string    `json:"finalPurchasedAmount"`
	PaymentFrequency       string    `json:"paymentFrequency"`
	LoanStartDate          string    `json:"loanStartDate"`
	FinalTerm              string    `json:"finalTerm"`
	ClientEmail            string    `json:"clientEmail"`
	LenderType             string    `json:"lenderType"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// StatusDuration is one row of the status timeline. ExitedAt is nil for the
// status the lead currently holds.
type StatusDuration struct {
	Status            string     `json:"status"`
	EnteredAt         time.Time  `json:"enteredAt"`
	ExitedAt          *time.Time `json:"exitedAt,omitempty"`
	DurationDays      float64    `json:"durationDays"`
	DurationHours     int        `json:"durationHours"`
	DurationMinutes   int        `json:"durationMinutes"`
	FormattedDuration string     `json:"formattedDuration"`
}

type StatusTimelineResponse struct {
	Items []StatusDuration `json:"items"`
}

type CreateLeadCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=4000"`
}

type LeadCommentResponse struct {
	ID        uuid.UUID `json:"id"`
	LeadID    uuid.UUID `json:"leadId"`
	AuthorID  uuid.UUID `json:"authorId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

type LeadCommentsResponse struct {
	Items []LeadCommentResponse `json:"items"`
}
