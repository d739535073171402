package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/joblane/verification-service/internal/config"
	"github.com/joblane/verification-service/internal/utils"
)

// Event types delivered to employers when an admin decides on their
// verification items.
const (
	EventIDCardApproved   = "id_card.approved"
	EventIDCardRejected   = "id_card.rejected"
	EventDocumentApproved = "document.approved"
	EventDocumentRejected = "document.rejected"
)

// VerificationEvent is a typed notification published after an admin
// decision. The workflow depends on this shape only, never on the
// delivery transport.
type VerificationEvent struct {
	Type       string            `json:"type"`
	EmployerID uuid.UUID         `json:"employer_id"`
	Payload    map[string]string `json:"payload,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, employerEmail string, event VerificationEvent) error
}

// emailNotifier delivers verification events as SendGrid emails.
type emailNotifier struct {
	cfg    *config.Config
	client *sendgrid.Client
}

func NewEmailNotifier(cfg *config.Config) Notifier {
	return &emailNotifier{
		cfg:    cfg,
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
	}
}

func (n *emailNotifier) Notify(ctx context.Context, employerEmail string, event VerificationEvent) error {
	subject, body := n.renderEvent(event)

	from := mail.NewEmail(n.cfg.OrganizationName, n.cfg.SendgridFromEmail)
	to := mail.NewEmail("", employerEmail)
	plain := body
	html := fmt.Sprintf(decisionEmailHTML, subject, body, time.Now().Year(), n.cfg.OrganizationName)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	if n.cfg.SendgridSandboxMode {
		ms := mail.NewMailSettings()
		ms.SetSandboxMode(mail.NewSetting(true))
		message.MailSettings = ms
	}

	_, err := n.client.Send(message)
	if err != nil {
		utils.Logger.WithError(err).Errorf("Failed to send %s notification to %s via SendGrid", event.Type, employerEmail)
		return fmt.Errorf("%w: failed to send notification via sendgrid: %v", utils.ErrExternalServiceFailure, err)
	}
	return nil
}

func (n *emailNotifier) renderEvent(event VerificationEvent) (subject, body string) {
	org := n.cfg.OrganizationName
	reason := event.Payload["rejection_reason"]
	docType := event.Payload["doc_type"]

	switch event.Type {
	case EventIDCardApproved:
		return org + " - ID Verification Approved",
			"Your ID card has been reviewed and approved."
	case EventIDCardRejected:
		return org + " - ID Verification Rejected",
			"Your ID card was rejected. Reason: " + reason + ". Please upload a new document."
	case EventDocumentApproved:
		return org + " - Business Document Approved",
			"Your " + docType + " document has been reviewed and approved."
	case EventDocumentRejected:
		return org + " - Business Document Rejected",
			"Your " + docType + " document was rejected. Reason: " + reason + ". Please upload a new document."
	default:
		return org + " - Verification Update", "Your verification status has changed."
	}
}
