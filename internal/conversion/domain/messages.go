package domain

// User-facing toast titles and messages.
const (
	TitleSuccess         = "Success"
	TitleError           = "Error"
	TitleInfo            = "Info"
	TitleValidationError = "Validation Error"

	MsgFillRequiredFields     = "Please fill in all required fields"
	MsgLeadUpdated            = "Lead updated successfully"
	MsgUpdateFailedPrefix     = "Failed to update lead: "
	MsgLoadFailed             = "Failed to load lead data"
	MsgDuplicateCheckPrefix   = "Failed to check for duplicates: "
	MsgConverted              = "Lead converted successfully!"
	MsgConversionFailedPrefix = "Conversion failed: "
	MsgDuplicatesDetected     = "Duplicate records detected. The system found existing Account or Contact with the same information. Please check for existing records with the same email or company name."
	MsgStatusReverted         = "Lead returned to previous status"
	MsgRevertFailedPrefix     = "Failed to return to previous status: "
	MsgStepInProgress         = "Another step is still in progress"
	MsgAlreadyAttempted       = "Conversion was already attempted; close the wizard and start again"
	MsgLeadAlreadyConverted   = "Lead is already converted"
)

const (
	TitleDuplicatesFound = "Duplicates Found"

	MsgDuplicatesFound         = "Existing Account or Contact records match this lead. Confirm to convert anyway."
	MsgDuplicateCheckRejected  = "duplicate check was not successful"
	MsgConversionFailedDefault = "Conversion failed"
)
