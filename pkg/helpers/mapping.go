package helpers

import (
	"fmt"
	"strings"

	"github.com/oksasatya/house-marketplace/pkg/mailer"
	mailtpl "github.com/oksasatya/house-marketplace/pkg/mailer/templates"
)

func SubjectForUniversal(data map[string]any) string {
	typeStr := fmt.Sprintf("%v", data["Type"])
	switch strings.ToLower(typeStr) {
	case mailtpl.Welcome:
		return "Welcome to " + fmt.Sprintf("%v", data["AppName"])
	case mailtpl.ListingPublished:
		return fmt.Sprintf("Your listing \"%v\" is live", data["ListingName"])
	case mailtpl.ContactOwner:
		return fmt.Sprintf("New message about \"%v\"", data["ListingName"])
	case mailtpl.ForgotPassword:
		return "Reset your password"
	default:
		return "Notification"
	}
}

func EnsureRecipientAndEmail(job *mailer.EmailJob) {
	if job.Data == nil {
		job.Data = map[string]any{}
	}
	if v, ok := job.Data["Email"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["Email"] = job.To
	}
	if v, ok := job.Data["RecipientEmail"]; !ok || fmt.Sprintf("%v", v) == "" {
		job.Data["RecipientEmail"] = job.To
	}
}

// MapTypedToUniversal lets producers name the email type directly as the template.
func MapTypedToUniversal(job *mailer.EmailJob) {
	switch strings.ToLower(job.Template) {
	case mailtpl.Welcome, mailtpl.ListingPublished, mailtpl.ContactOwner, mailtpl.ForgotPassword:
		if job.Data == nil {
			job.Data = map[string]any{}
		}
		if _, ok := job.Data["Type"]; !ok || fmt.Sprintf("%v", job.Data["Type"]) == "" {
			job.Data["Type"] = job.Template
		}
		job.Template = "universal"
	}
}
