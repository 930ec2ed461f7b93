package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"loancrm_backend/internal/email"
	leadrepo "loancrm_backend/internal/leads/repository"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

// LeadReader loads the converted lead.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadrepo.Lead, error)
}

// WhatsAppSender sends a WhatsApp message to a phone number.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// FollowUpProcessor contacts the client of a converted lead by email and,
// when a gateway is configured, WhatsApp.
type FollowUpProcessor struct {
	leads    LeadReader
	sender   email.Sender
	whatsapp WhatsAppSender
	log      *logger.Logger
}

func NewFollowUpProcessor(leads LeadReader, sender email.Sender, whatsapp WhatsAppSender, log *logger.Logger) *FollowUpProcessor {
	return &FollowUpProcessor{
		leads:    leads,
		sender:   sender,
		whatsapp: whatsapp,
		log:      log,
	}
}

// Process sends the follow-up. Email failures are returned so asynq retries
// the task; WhatsApp is best effort.
func (p *FollowUpProcessor) Process(ctx context.Context, payload ConversionFollowUpPayload) error {
	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("parse lead id: %w", err)
	}

	lead, err := p.leads.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if !lead.IsConverted {
		p.log.Warn("follow-up skipped for unconverted lead", "leadId", leadID)
		return nil
	}

	clientName := strings.TrimSpace(lead.FirstName + " " + lead.LastName)

	var errs []error
	if to := recipientEmail(lead); to != "" && p.sender != nil {
		err := p.sender.SendConversionConfirmationEmail(ctx, to, email.ConversionConfirmation{
			ClientName:        clientName,
			Company:           lead.Company,
			OpportunityID:     payload.OpportunityID,
			FinalPurchasedAmt: lead.FinalPurchasedAmount,
			FinalDailyPayment: lead.FinalDailyPayment,
			PaymentFrequency:  lead.PaymentFrequency,
			LoanStartDate:     lead.LoanStartDate,
			FinalTerm:         lead.FinalTerm,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("send confirmation email: %w", err))
		}
	}

	if lead.Phone != "" && p.whatsapp != nil {
		if err := p.whatsapp.SendMessage(ctx, lead.Phone, followUpMessage(clientName, lead.Company)); err != nil {
			p.log.Warn("whatsapp follow-up failed", "error", err, "leadId", leadID)
		}
	}

	return errors.Join(errs...)
}

func recipientEmail(lead leadrepo.Lead) string {
	if lead.ClientEmail != "" {
		return lead.ClientEmail
	}
	return lead.Email
}

func followUpMessage(clientName, company string) string {
	greeting := "Hello"
	if clientName != "" {
		greeting = "Hello " + clientName
	}
	subject := "your funding"
	if company != "" {
		subject = "the funding for " + company
	}
	return fmt.Sprintf("%s, %s has been approved. Your account manager will send the agreement shortly.", greeting, subject)
}
