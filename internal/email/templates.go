package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

type conversionConfirmationEmailData struct {
	baseEmailData
	ConversionConfirmation
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderConversionConfirmation(data ConversionConfirmation) (string, error) {
	heading := "Thank you"
	if data.ClientName != "" {
		heading = "Thank you, " + data.ClientName
	}
	return renderEmailTemplate("conversion_confirmation.html", conversionConfirmationEmailData{
		baseEmailData: baseEmailData{
			Title:      subjectConversionConfirmation,
			Heading:    heading,
			Subheading: "Your application has been approved and handed to our servicing team.",
		},
		ConversionConfirmation: data,
	})
}
