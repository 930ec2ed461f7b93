package watcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Built-in watch rules for Loan_Leads.
const (
	DefaultTriggerStatus  = "Call after"
	DefaultSentinelStatus = "New"
	LoanLeadsRecordType   = "012Kc000000tenuIAA"
)

// Rules decide which status transitions open the conversion wizard.
type Rules struct {
	// TriggerStatus is the status that auto-opens the wizard.
	TriggerStatus string `yaml:"trigger_status"`
	// RecordTypes is the allow-list of record types the watcher reacts to.
	RecordTypes []string `yaml:"record_types"`
	// SentinelStatus is the revert target when no usable previous status exists.
	SentinelStatus string `yaml:"sentinel_status"`
	// ConvertedStatuses mark a lead as converted even before the flag is set.
	ConvertedStatuses []string `yaml:"converted_statuses"`
}

// DefaultRules returns the rules used when no rule file is configured.
func DefaultRules() Rules {
	return Rules{
		TriggerStatus:     DefaultTriggerStatus,
		RecordTypes:       []string{LoanLeadsRecordType},
		SentinelStatus:    DefaultSentinelStatus,
		ConvertedStatuses: []string{"Converted"},
	}
}

// LoadRules reads rules from a YAML file. An empty path or a missing file
// yields the defaults. Keys absent from the file keep their default value.
func LoadRules(path string) (Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultRules(), nil
	}
	if err != nil {
		return Rules{}, fmt.Errorf("read watch rules %q: %w", path, err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return Rules{}, fmt.Errorf("parse watch rules %q: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes YAML rules over the defaults.
func ParseRules(data []byte) (Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, err
	}
	rules.TriggerStatus = strings.TrimSpace(rules.TriggerStatus)
	rules.SentinelStatus = strings.TrimSpace(rules.SentinelStatus)
	if rules.TriggerStatus == "" {
		return Rules{}, errors.New("trigger_status must not be empty")
	}
	if rules.SentinelStatus == "" {
		rules.SentinelStatus = DefaultSentinelStatus
	}
	if rules.SentinelStatus == rules.TriggerStatus {
		return Rules{}, errors.New("sentinel_status must differ from trigger_status")
	}
	return rules, nil
}

// AllowsRecordType reports whether the watcher reacts to recordTypeID. An
// empty allow-list accepts every record type.
func (r Rules) AllowsRecordType(recordTypeID string) bool {
	if len(r.RecordTypes) == 0 {
		return true
	}
	return slices.Contains(r.RecordTypes, recordTypeID)
}

// IsConvertedStatus reports whether status is terminal.
func (r Rules) IsConvertedStatus(status string) bool {
	return slices.Contains(r.ConvertedStatuses, status)
}
