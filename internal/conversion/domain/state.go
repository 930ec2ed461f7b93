package domain

import "fmt"

// WizardState is the step a conversion wizard is on.
type WizardState int

const (
	StateValidatingFields WizardState = iota
	StateCheckingDuplicates
	StateAwaitingDuplicateConfirmation
	StateConverting
	StateShowingResult
)

var stateNames = map[WizardState]string{
	StateValidatingFields:              "validating_fields",
	StateCheckingDuplicates:            "checking_duplicates",
	StateAwaitingDuplicateConfirmation: "awaiting_duplicate_confirmation",
	StateConverting:                    "converting",
	StateShowingResult:                 "showing_result",
}

func (s WizardState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("wizard_state(%d)", int(s))
}

// MarshalText renders the state by name in API responses.
func (s WizardState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// WizardConfig parameterizes one activation.
type WizardConfig struct {
	// AutoOpened is true when the status watcher opened the wizard.
	AutoOpened bool
	// PreviousStatus is the status to restore when an auto-opened wizard is cancelled.
	PreviousStatus *string
	// SkipStatusRevert disables the restore even for auto-opened wizards.
	SkipStatusRevert bool
}

// RevertTarget returns the status to restore on close and whether a restore
// applies at all.
func (c WizardConfig) RevertTarget() (string, bool) {
	if !c.AutoOpened || c.SkipStatusRevert || c.PreviousStatus == nil || *c.PreviousStatus == "" {
		return "", false
	}
	return *c.PreviousStatus, true
}
