package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/coachlink/coachlink-go/internal/platform/logutil"
)

// SendGridClient implements EmailClient against the SendGrid v3 API.
type SendGridClient struct {
	apiKey   string
	fromName string
	logger   *slog.Logger
}

// NewSendGridClient creates a SendGrid-backed email client. fromName is the
// display name attached to the configured from address.
func NewSendGridClient(apiKey, fromName string, logger *slog.Logger) *SendGridClient {
	return &SendGridClient{
		apiKey:   apiKey,
		fromName: fromName,
		logger:   logutil.NoopIfNil(logger),
	}
}

// htmlBody renders the plain-text body as the HTML part. The body embeds
// coach-supplied text, so it is escaped before wrapping.
func htmlBody(body string) string {
	return fmt.Sprintf("<pre>%s</pre>", html.EscapeString(body))
}

func (c *SendGridClient) Send(ctx context.Context, from, to, subject, body string) error {
	if c.apiKey == "" {
		return fmt.Errorf("sendgrid api key is empty")
	}
	if from == "" || to == "" {
		return fmt.Errorf("from and to addresses are required")
	}

	message := mail.NewSingleEmail(
		mail.NewEmail(c.fromName, from),
		subject,
		mail.NewEmail("", to),
		body,
		htmlBody(body),
	)

	client := sendgrid.NewSendClient(c.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid send error: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send failed: status=%d body=%s", response.StatusCode, response.Body)
	}

	c.logger.Debug("mail sent", "to", to, "subject", subject, "status", response.StatusCode)
	return nil
}
