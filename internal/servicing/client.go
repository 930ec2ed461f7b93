// Package servicing is the HTTP client for the loan servicing platform, which
// owns Accounts, Contacts and Opportunities and performs lead conversions.
package servicing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"loancrm_backend/internal/conversion/domain"
	"loancrm_backend/platform/config"
	"loancrm_backend/platform/logger"

	"github.com/google/uuid"
)

const maxErrorBody = 4 << 10

// APIError is a non-2xx response from the servicing platform.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Code != "" {
		return fmt.Sprintf("servicing platform returned %d (%s): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("servicing platform returned %d: %s", e.StatusCode, msg)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

type leadPayload struct {
	LeadID               uuid.UUID `json:"leadId"`
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	Phone                string    `json:"phone,omitempty"`
	RecordTypeID         string    `json:"recordTypeId,omitempty"`
	FinalDailyPayment    string    `json:"finalDailyPayment"`
	FinalPurchasedAmount string    `json:"finalPurchasedAmount"`
	PaymentFrequency     string    `json:"paymentFrequency"`
	LoanStartDate        string    `json:"loanStartDate"`
	FinalTerm            string    `json:"finalTerm"`
	ClientEmail          string    `json:"clientEmail"`
	LenderType           string    `json:"lenderType"`
}

type duplicateCheckResponse struct {
	Success            bool   `json:"success"`
	HasExistingAccount bool   `json:"hasExistingAccount"`
	HasExistingContact bool   `json:"hasExistingContact"`
	AccountID          string `json:"accountId"`
	ContactID          string `json:"contactId"`
}

type conversionResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ErrorCode     string `json:"errorCode"`
	AccountID     string `json:"accountId"`
	ContactID     string `json:"contactId"`
	OpportunityID string `json:"opportunityId"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func NewClient(cfg config.ServicingConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.GetServicingAPIURL(), "/"),
		apiKey:  cfg.GetServicingAPIKey(),
		http:    &http.Client{Timeout: cfg.GetServicingAPITimeout()},
		log:     log,
	}
}

// CheckDuplicates asks whether an Account or Contact already matches lead.
func (c *Client) CheckDuplicates(ctx context.Context, lead domain.LeadSnapshot) (domain.DuplicateCheckResult, error) {
	var resp duplicateCheckResponse
	if err := c.post(ctx, fmt.Sprintf("/leads/%s/duplicate-check", lead.ID), toPayload(lead), &resp); err != nil {
		return domain.DuplicateCheckResult{}, err
	}
	return domain.DuplicateCheckResult{
		Success:            resp.Success,
		HasExistingAccount: resp.HasExistingAccount,
		HasExistingContact: resp.HasExistingContact,
		AccountID:          resp.AccountID,
		ContactID:          resp.ContactID,
	}, nil
}

// ConvertLead converts lead. A conversion the platform refuses comes back as
// *domain.ConversionError carrying the platform's error code.
func (c *Client) ConvertLead(ctx context.Context, lead domain.LeadSnapshot) (domain.ConversionResult, error) {
	var resp conversionResponse
	err := c.post(ctx, fmt.Sprintf("/leads/%s/convert", lead.ID), toPayload(lead), &resp)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return domain.ConversionResult{}, &domain.ConversionError{Code: apiErr.Code, Message: apiErr.Message}
	}
	if err != nil {
		return domain.ConversionResult{}, err
	}

	if !resp.Success {
		return domain.ConversionResult{}, &domain.ConversionError{Code: resp.ErrorCode, Message: resp.Message}
	}

	c.log.Info("lead converted on servicing platform", "leadId", lead.ID, "opportunityId", resp.OpportunityID)
	return domain.ConversionResult{
		Success:       true,
		Message:       resp.Message,
		AccountID:     resp.AccountID,
		ContactID:     resp.ContactID,
		OpportunityID: resp.OpportunityID,
	}, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal servicing payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("servicing request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return readAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode servicing response: %w", err)
	}
	return nil
}

func readAPIError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var parsed errorResponse
	if json.Unmarshal(data, &parsed) == nil {
		apiErr.Code = parsed.ErrorCode
		apiErr.Message = parsed.Message
		if apiErr.Message == "" {
			apiErr.Message = parsed.Error
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

func toPayload(lead domain.LeadSnapshot) leadPayload {
	return leadPayload{
		LeadID:               lead.ID,
		FirstName:            lead.FirstName,
		LastName:             lead.LastName,
		Phone:                lead.Phone,
		RecordTypeID:         lead.RecordTypeID,
		FinalDailyPayment:    lead.FinalDailyPayment,
		FinalPurchasedAmount: lead.FinalPurchasedAmount,
		PaymentFrequency:     lead.PaymentFrequency,
		LoanStartDate:        lead.LoanStartDate,
		FinalTerm:            lead.FinalTerm,
		ClientEmail:          lead.ClientEmail,
		LenderType:           lead.LenderType,
	}
}
