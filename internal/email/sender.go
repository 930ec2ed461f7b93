package email

import (
	"context"

	"loancrm_backend/platform/config"
)

// Sender delivers transactional email.
type Sender interface {
	SendConversionConfirmationEmail(ctx context.Context, toEmail string, data ConversionConfirmation) error
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// ConversionConfirmation is rendered into the confirmation sent to a client
// once their loan application has been converted.
type ConversionConfirmation struct {
	ClientName        string
	Company           string
	OpportunityID     string
	FinalPurchasedAmt string
	FinalDailyPayment string
	PaymentFrequency  string
	LoanStartDate     string
	FinalTerm         string
}

type NoopSender struct{}

func (NoopSender) SendConversionConfirmationEmail(ctx context.Context, toEmail string, data ConversionConfirmation) error {
	return nil
}

func (NoopSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	return nil
}

// NewSender returns an SMTP sender, or a NoopSender when email is disabled.
func NewSender(cfg config.EmailConfig) (Sender, error) {
	if !cfg.GetEmailEnabled() {
		return NoopSender{}, nil
	}

	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	), nil
}
