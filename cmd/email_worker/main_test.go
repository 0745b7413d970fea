package main

import (
	"strings"
	"testing"

	"github.com/oksasatya/house-marketplace/pkg/mailer"
	mailtpl "github.com/oksasatya/house-marketplace/pkg/mailer/templates"
)

func TestPrepareRendersTypedTemplate(t *testing.T) {
	job := mailer.EmailJob{
		To:       "jane@example.com",
		Template: mailtpl.ContactOwner,
		Data: map[string]any{
			"Name":        "Jane",
			"ListingName": "Villa with sea view",
			"SenderName":  "Bob",
			"Message":     "Is it still available?",
		},
	}
	if err := prepare(&job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if job.Template != "universal" || job.Data["RecipientEmail"] != "jane@example.com" {
		t.Fatalf("job not mapped: %+v", job)
	}
	if job.Subject != `New message about "Villa with sea view"` {
		t.Fatalf("unexpected subject %q", job.Subject)
	}
	if !strings.Contains(job.HTML, "Is it still available?") || job.Text == "" {
		t.Fatalf("bodies not rendered:\n%s", job.HTML)
	}
}

func TestPrepareKeepsExplicitSubject(t *testing.T) {
	job := mailer.EmailJob{To: "a@example.com", Subject: "Hello", Template: mailtpl.Welcome, Data: map[string]any{"AppName": "x"}}
	if err := prepare(&job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if job.Subject != "Hello" {
		t.Fatalf("subject overwritten: %q", job.Subject)
	}
}

func TestPreparePlainJobUntouched(t *testing.T) {
	job := mailer.EmailJob{To: "a@example.com", Subject: "Hi", Text: "plain"}
	if err := prepare(&job); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if job.Text != "plain" || job.HTML != "" {
		t.Fatalf("plain job changed: %+v", job)
	}
}

func TestPrepareUnknownTemplate(t *testing.T) {
	job := mailer.EmailJob{To: "a@example.com", Template: "nope"}
	if err := prepare(&job); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
