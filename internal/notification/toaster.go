package notification

import (
	"context"

	"loancrm_backend/internal/conversion/ports"
	"loancrm_backend/internal/notification/sse"

	"github.com/google/uuid"
)

// Toaster delivers wizard toasts to the user's open browser sessions. Toasts
// for a user without a connection are dropped.
type Toaster struct {
	sse *sse.Service
}

func NewToaster(sseSvc *sse.Service) *Toaster {
	return &Toaster{sse: sseSvc}
}

func (t *Toaster) Notify(_ context.Context, userID uuid.UUID, toast ports.Toast) {
	if t == nil || t.sse == nil {
		return
	}
	t.sse.Publish(userID, sse.Event{
		Type:    sse.EventToast,
		LeadID:  toast.LeadID,
		Message: toast.Message,
		Data:    toast,
	})
}

var _ ports.Notifier = (*Toaster)(nil)
