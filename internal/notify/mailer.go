package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coachlink/coachlink-go/internal/platform/logutil"
)

// EmailClient is the low-level send abstraction implemented by the
// SendGrid client (or any SMTP-ish transport).
type EmailClient interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Mailer implements Notifier by rendering plain-text emails and handing
// them to an EmailClient.
type Mailer struct {
	client    EmailClient
	fromAddr  string
	acceptURL string // base URL the invite link is built from
	logger    *slog.Logger
}

// NewMailer creates a Mailer. acceptBaseURL is the public web origin the
// invitation link points at, e.g. "https://app.coachlink.io".
func NewMailer(c EmailClient, fromAddr, acceptBaseURL string, logger *slog.Logger) *Mailer {
	return &Mailer{
		client:    c,
		fromAddr:  fromAddr,
		acceptURL: strings.TrimRight(acceptBaseURL, "/"),
		logger:    logutil.NoopIfNil(logger),
	}
}

// InviteURL builds the link embedded in invitation emails.
func (m *Mailer) InviteURL(token string) string {
	return m.acceptURL + "/invitations/" + token
}

func (m *Mailer) SendInvitation(ctx context.Context, inv Invitation) error {
	subject := fmt.Sprintf("%s invited you to train together on Coachlink", inv.Coach.Name)

	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) has invited you to become their athlete on Coachlink.\n\n", inv.Coach.Name, inv.Coach.Email)
	if strings.TrimSpace(inv.Message) != "" {
		fmt.Fprintf(&b, "Their message:\n\n  %s\n\n", strings.TrimSpace(inv.Message))
	}
	fmt.Fprintf(&b, "Open the link below to review and accept the invitation:\n\n  %s\n\n", m.InviteURL(inv.Token))
	fmt.Fprintf(&b, "The invitation expires on %s.\n\n", inv.ExpiresAt.Format("January 2, 2006"))
	b.WriteString("If you weren't expecting this, you can ignore this email.\n")

	if err := m.client.Send(ctx, m.fromAddr, inv.AthleteEmail, subject, b.String()); err != nil {
		m.logger.Warn("invitation email failed", "to", inv.AthleteEmail, "error", err)
		return err
	}
	return nil
}

func (m *Mailer) SendAcceptanceNotice(ctx context.Context, acc Acceptance) error {
	subject := fmt.Sprintf("%s accepted your invitation", acc.AthleteName)

	var b strings.Builder
	fmt.Fprintf(&b, "Good news: %s (%s) accepted your coaching invitation.\n\n", acc.AthleteName, acc.AthleteMail)
	b.WriteString("You can now find them in your athlete roster.\n")

	if err := m.client.Send(ctx, m.fromAddr, acc.Coach.Email, subject, b.String()); err != nil {
		m.logger.Warn("acceptance notice failed", "to", acc.Coach.Email, "error", err)
		return err
	}
	return nil
}
