// Package leads provides the lead records bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"loancrm_backend/internal/events"
	apphttp "loancrm_backend/internal/http"
	"loancrm_backend/internal/leads/comments"
	"loancrm_backend/internal/leads/handler"
	"loancrm_backend/internal/leads/repository"
	"loancrm_backend/internal/leads/service"
	"loancrm_backend/platform/config"
	"loancrm_backend/platform/logger"
	"loancrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.PhoneConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, cfg.GetDefaultPhoneRegion())
	commentsSvc := comments.New(repo)

	// Converted leads are frozen locally once the servicing platform accepted them.
	eventBus.Subscribe(events.LeadConverted{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadConverted)
		if !ok {
			return nil
		}
		if err := svc.MarkConverted(ctx, e.LeadID, repository.MarkConvertedParams{
			AccountID:     e.AccountID,
			ContactID:     e.ContactID,
			OpportunityID: e.OpportunityID,
		}); err != nil {
			log.Error("failed to mark lead converted", "error", err, "leadId", e.LeadID)
			return err
		}
		return nil
	}))

	commentsHandler := handler.NewCommentsHandler(commentsSvc, val)
	h := handler.New(svc, commentsHandler, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
