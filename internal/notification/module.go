// Package notification reacts to conversion events: it persists in-app
// notifications, pushes SSE events to the agent's browser and schedules the
// client follow-up. Domain modules publish events and never call it directly.
package notification

import (
	"context"
	"fmt"

	"loancrm_backend/internal/events"
	apphttp "loancrm_backend/internal/http"
	notifhandler "loancrm_backend/internal/notification/handler"
	"loancrm_backend/internal/notification/inapp"
	"loancrm_backend/internal/notification/sse"
	"loancrm_backend/platform/httpkit"
	"loancrm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const resourceTypeLead = "lead"

// FollowUpScheduler enqueues the post-conversion client follow-up.
type FollowUpScheduler interface {
	ScheduleConversionFollowUp(ctx context.Context, leadID, userID uuid.UUID, opportunityID string) error
}

// Module handles all notification-related event subscriptions.
type Module struct {
	log          *logger.Logger
	sse          *sse.Service
	followUps    FollowUpScheduler
	inAppService *inapp.Service
	inAppHandler *notifhandler.HTTPHandler
	toaster      *Toaster
}

// New creates a new notification module backed by Postgres.
func New(pool *pgxpool.Pool, sseSvc *sse.Service, log *logger.Logger) *Module {
	return NewWithStore(inapp.NewRepository(pool), sseSvc, log)
}

// NewWithStore creates the module over an arbitrary in-app store.
func NewWithStore(store inapp.Store, sseSvc *sse.Service, log *logger.Logger) *Module {
	inAppSvc := inapp.NewService(store, sseSvc, log)

	return &Module{
		log:          log,
		sse:          sseSvc,
		inAppService: inAppSvc,
		inAppHandler: notifhandler.NewHTTPHandler(inAppSvc),
		toaster:      NewToaster(sseSvc),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterRoutes registers notification API routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	notifications := ctx.Protected.Group("/notifications")
	m.inAppHandler.RegisterRoutes(notifications)
	if m.sse != nil {
		notifications.GET("/stream", m.sse.Handler(identityUserID))
	}
}

func identityUserID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.GetIdentity(c)
	if !identity.IsAuthenticated() {
		return uuid.Nil, false
	}
	return identity.UserID(), true
}

// Toaster returns the notifier the conversion wizard reports progress through.
func (m *Module) Toaster() *Toaster { return m.toaster }

// SetFollowUpScheduler injects the job queue used after successful conversions.
func (m *Module) SetFollowUpScheduler(s FollowUpScheduler) { m.followUps = s }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ConversionWizardActivated{}.EventName(), m)
	bus.Subscribe(events.LeadConverted{}.EventName(), m)
	bus.Subscribe(events.LeadConversionFailed{}.EventName(), m)
	bus.Subscribe(events.LeadStatusReverted{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ConversionWizardActivated:
		return m.handleWizardActivated(ctx, e)
	case events.LeadConverted:
		return m.handleLeadConverted(ctx, e)
	case events.LeadConversionFailed:
		return m.handleLeadConversionFailed(ctx, e)
	case events.LeadStatusReverted:
		return m.handleLeadStatusReverted(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleWizardActivated(_ context.Context, e events.ConversionWizardActivated) error {
	if m.sse == nil {
		return nil
	}
	m.sse.Publish(e.UserID, sse.Event{
		Type:    sse.EventConversionWizardOpened,
		LeadID:  e.LeadID,
		Message: "Lead conversion started",
		Data: map[string]any{
			"sessionId":      e.SessionID,
			"autoOpened":     e.AutoOpened,
			"previousStatus": e.PreviousStatus,
		},
	})
	return nil
}

func (m *Module) handleLeadConverted(ctx context.Context, e events.LeadConverted) error {
	leadID := e.LeadID
	content := e.Message
	if content == "" {
		content = "Lead converted successfully"
	}
	if e.OpportunityID != "" {
		content = fmt.Sprintf("%s (opportunity %s)", content, e.OpportunityID)
	}

	if _, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        "Lead converted",
		Content:      content,
		ResourceID:   &leadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategorySuccess,
	}); err != nil {
		m.log.Warn("failed to record conversion notification", "error", err, "leadId", e.LeadID)
	}

	if m.sse != nil {
		m.sse.Publish(e.UserID, sse.Event{
			Type:    sse.EventLeadConverted,
			LeadID:  e.LeadID,
			Message: e.Message,
			Data: map[string]any{
				"accountId":     e.AccountID,
				"contactId":     e.ContactID,
				"opportunityId": e.OpportunityID,
			},
		})
	}

	if m.followUps == nil {
		return nil
	}
	if err := m.followUps.ScheduleConversionFollowUp(ctx, e.LeadID, e.UserID, e.OpportunityID); err != nil {
		m.log.Error("failed to schedule conversion follow-up", "error", err, "leadId", e.LeadID)
		return err
	}
	return nil
}

func (m *Module) handleLeadConversionFailed(ctx context.Context, e events.LeadConversionFailed) error {
	leadID := e.LeadID
	title := "Lead conversion failed"
	category := inapp.CategoryError
	if e.Duplicates {
		title = "Duplicates found"
		category = inapp.CategoryWarning
	}

	_, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        title,
		Content:      e.Reason,
		ResourceID:   &leadID,
		ResourceType: resourceTypeLead,
		Category:     category,
	})
	return err
}

// Only failed reverts are recorded. Successful ones are toasted by the wizard.
func (m *Module) handleLeadStatusReverted(ctx context.Context, e events.LeadStatusReverted) error {
	if e.RevertSucceeded {
		return nil
	}

	leadID := e.LeadID
	_, err := m.inAppService.Send(ctx, inapp.SendParams{
		UserID:       e.UserID,
		Title:        "Lead status not restored",
		Content:      fmt.Sprintf("The lead is still %q. Set it back to %q manually.", e.RevertedFrom, e.RevertedTo),
		ResourceID:   &leadID,
		ResourceType: resourceTypeLead,
		Category:     inapp.CategoryError,
	})
	return err
}

// Compile-time checks
var (
	_ apphttp.Module = (*Module)(nil)
	_ events.Handler = (*Module)(nil)
)
