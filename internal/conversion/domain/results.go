package domain

import (
	"errors"
	"strings"
)

// DuplicateConflictCode is the code (and message marker) the servicing
// platform uses when it rejects a conversion because matching records exist.
const DuplicateConflictCode = "DUPLICATES_DETECTED"

// DuplicateCheckResult is the outcome of one duplicate lookup.
type DuplicateCheckResult struct {
	Success            bool   `json:"success"`
	HasExistingAccount bool   `json:"hasExistingAccount"`
	HasExistingContact bool   `json:"hasExistingContact"`
	AccountID          string `json:"accountId,omitempty"`
	ContactID          string `json:"contactId,omitempty"`
}

// HasDuplicates reports whether any existing Account or Contact matched.
func (r DuplicateCheckResult) HasDuplicates() bool {
	return r.HasExistingAccount || r.HasExistingContact
}

// ConversionResult is the outcome of a successful conversion.
type ConversionResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	AccountID     string `json:"accountId,omitempty"`
	ContactID     string `json:"contactId,omitempty"`
	OpportunityID string `json:"opportunityId,omitempty"`
}

// ConversionError is a conversion the servicing platform refused.
type ConversionError struct {
	Code    string
	Message string
}

func (e *ConversionError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// IsDuplicateConflict classifies a conversion failure. A structured
// DUPLICATES_DETECTED code wins; otherwise the message is searched for the
// marker because older servicing endpoints only report it as text.
func IsDuplicateConflict(err error) bool {
	if err == nil {
		return false
	}
	var convErr *ConversionError
	if errors.As(err, &convErr) {
		if convErr.Code == DuplicateConflictCode {
			return true
		}
		return strings.Contains(convErr.Message, DuplicateConflictCode)
	}
	return strings.Contains(err.Error(), DuplicateConflictCode)
}
