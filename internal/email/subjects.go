package email

import "fmt"

const (
	subjectConversionConfirmation    = "Your funding agreement is being prepared"
	subjectConversionConfirmationFmt = "%s: your funding agreement is being prepared"
)

func conversionConfirmationSubject(data ConversionConfirmation) string {
	if data.Company == "" {
		return subjectConversionConfirmation
	}
	return fmt.Sprintf(subjectConversionConfirmationFmt, data.Company)
}
