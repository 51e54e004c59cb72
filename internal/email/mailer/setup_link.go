// internal/email/mailer/setup_link.go
package mailer

import (
	"time"

	"github.com/dangerclosesec/campusops/internal/email"
)

// SetupLinkTemplateData contains data for the setup and reset templates
type SetupLinkTemplateData struct {
	FirstName        string
	OrganizationName string
	Link             string
	ExpiresAt        time.Time
}

// SendSetupLinkEmail sends a first-time password setup link
func SendSetupLinkEmail(s email.Sender, to string, data SetupLinkTemplateData) error {
	return s.SendEmail(email.EmailData{
		To:           to,
		Subject:      "Set up your " + data.OrganizationName + " account",
		TemplateName: "setup_link",
		TemplateData: data,
	})
}

// SendPasswordResetEmail sends a password reset link
func SendPasswordResetEmail(s email.Sender, to string, data SetupLinkTemplateData) error {
	return s.SendEmail(email.EmailData{
		To:           to,
		Subject:      "Reset your " + data.OrganizationName + " password",
		TemplateName: "password_reset",
		TemplateData: data,
	})
}
