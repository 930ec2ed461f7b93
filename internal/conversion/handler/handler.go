package handler

import (
	"errors"
	"net/http"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/internal/conversion/service"
	"loancrm_backend/internal/conversion/transport"
	"loancrm_backend/platform/apperr"
	"loancrm_backend/platform/httpkit"
	"loancrm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts the wizard routes. limiter guards the steps that call
// the servicing platform.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, limiter gin.HandlerFunc) {
	rg.POST("", h.Open)
	rg.GET("", h.FindByLead)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/validation", h.SubmitValidation)
	rg.POST("/:id/start", limiter, h.StartConversion)
	rg.POST("/:id/confirm-duplicates", limiter, h.ConfirmDuplicates)
	rg.POST("/:id/decline-duplicates", h.DeclineDuplicates)
	rg.POST("/:id/back", h.Back)
	rg.POST("/:id/cancel", h.Cancel)
}

func (h *Handler) Open(c *gin.Context) {
	var req transport.OpenConversionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	sess, err := h.svc.Open(c.Request.Context(), identity.UserID(), req.LeadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, toResponse(sess))
}

func (h *Handler) FindByLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Query("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	sess, err := h.svc.FindByLead(c.Request.Context(), identity.UserID(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(sess))
}

func (h *Handler) Get(c *gin.Context) {
	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.Get(c.Request.Context(), userID, sessionID)
	})
}

func (h *Handler) SubmitValidation(c *gin.Context) {
	var req transport.SubmitValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.SubmitValidation(c.Request.Context(), userID, sessionID, req.Fields())
	})
}

func (h *Handler) StartConversion(c *gin.Context) {
	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.StartConversion(c.Request.Context(), userID, sessionID)
	})
}

func (h *Handler) ConfirmDuplicates(c *gin.Context) {
	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.ConfirmDuplicates(c.Request.Context(), userID, sessionID)
	})
}

func (h *Handler) DeclineDuplicates(c *gin.Context) {
	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.DeclineDuplicates(c.Request.Context(), userID, sessionID)
	})
}

func (h *Handler) Back(c *gin.Context) {
	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.Back(c.Request.Context(), userID, sessionID)
	})
}

func (h *Handler) Cancel(c *gin.Context) {
	h.step(c, func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error) {
		return h.svc.Cancel(c.Request.Context(), userID, sessionID)
	})
}

type stepFunc func(c *gin.Context, userID, sessionID uuid.UUID) (service.Session, error)

// step runs one wizard operation. A rejected step still carries the session
// so the client can render where the wizard stayed.
func (h *Handler) step(c *gin.Context, run stepFunc) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	sess, err := run(c, identity.UserID(), sessionID)
	if err != nil && sess.ID != uuid.Nil {
		var appErr *apperr.Error
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus(), StepErrorResponse{
				Error:   appErr.Message,
				Details: appErr.Details,
				Session: toResponse(sess),
			})
			return
		}
	}
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, toResponse(sess))
}

// StepErrorResponse is a rejected step together with the session it left behind.
type StepErrorResponse struct {
	Error   string                    `json:"error"`
	Details any                       `json:"details,omitempty"`
	Session transport.SessionResponse `json:"session"`
}

func toResponse(sess service.Session) transport.SessionResponse {
	resp := transport.SessionResponse{
		ID:                  sess.ID,
		LeadID:              sess.LeadID,
		Open:                sess.Open,
		State:               sess.State,
		AutoOpened:          sess.Config.AutoOpened,
		PreviousStatus:      sess.Config.PreviousStatus,
		SkipStatusRevert:    sess.Config.SkipStatusRevert,
		Duplicates:          sess.Duplicates,
		Result:              sess.Result,
		ConversionAttempted: sess.ConversionAttempted,
		Busy:                sess.Busy,
		LastActivity:        sess.LastActivity,
	}
	if sess.Snapshot != nil {
		resp.Lead = toLeadResponse(*sess.Snapshot)
	}
	return resp
}

func toLeadResponse(s domain.LeadSnapshot) *transport.LeadSnapshotResponse {
	return &transport.LeadSnapshotResponse{
		ID:                   s.ID,
		FirstName:            s.FirstName,
		LastName:             s.LastName,
		Status:               s.Status,
		RecordTypeID:         s.RecordTypeID,
		IsConverted:          s.IsConverted,
		FinalDailyPayment:    s.FinalDailyPayment,
		FinalPurchasedAmount: s.FinalPurchasedAmount,
		PaymentFrequency:     s.PaymentFrequency,
		LoanStartDate:        s.LoanStartDate,
		FinalTerm:            s.FinalTerm,
		ClientEmail:          s.ClientEmail,
		LenderType:           s.LenderType,
	}
}
