package services

import (
	"context"
	"fmt"
	"html"
	"log"
	"os"
	"strings"

	"github.com/resend/resend-go/v2"
)

// emailSender is the part of the Resend client the email channel uses.
type emailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailChannel delivers follow-up messages through Resend.
type EmailChannel struct {
	client  emailSender
	from    string
	orgName string
}

// NewEmailChannel returns nil when RESEND_API_KEY is not set, leaving the email
// channel without a sender.
func NewEmailChannel(orgName string) *EmailChannel {
	apiKey := os.Getenv("RESEND_API_KEY")

	if apiKey == "" {
		log.Println("WARNING: RESEND_API_KEY not set. Email follow-ups will not be available.")
		return nil
	}

	log.Println("Email channel initialized successfully with Resend")
	return &EmailChannel{
		client:  resend.NewClient(apiKey).Emails,
		from:    os.Getenv("RESEND_FROM_EMAIL"),
		orgName: orgName,
	}
}

func (e *EmailChannel) Send(ctx context.Context, to string, subject string, body string) error {
	if e.client == nil {
		return fmt.Errorf("email channel not initialized")
	}

	params := &resend.SendEmailRequest{
		From:    e.from,
		To:      []string{to},
		Subject: subject,
		Html:    e.renderHTML(body),
		Text:    body + "\n\nBlessings,\n" + e.orgName,
	}

	sent, err := e.client.SendWithContext(ctx, params)
	if err != nil {
		log.Printf("Failed to send follow-up email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	log.Printf("Successfully sent follow-up email to %s. Email ID: %s", to, sent.Id)
	return nil
}

func (e *EmailChannel) renderHTML(body string) string {
	paragraphs := strings.Split(strings.TrimSpace(body), "\n\n")
	var content strings.Builder
	for _, p := range paragraphs {
		content.WriteString("        <p>")
		content.WriteString(strings.ReplaceAll(html.EscapeString(p), "\n", "<br>"))
		content.WriteString("</p>\n")
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            line-height: 1.6;
            color: #333;
            max-width: 600px;
            margin: 0 auto;
            padding: 20px;
        }
        .header {
            text-align: center;
            padding: 20px 0;
            border-bottom: 2px solid #90c590;
        }
        .footer {
            text-align: center;
            padding: 20px 0;
            border-top: 1px solid #ddd;
            font-size: 12px;
            color: #666;
        }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
%s        <p>Blessings,<br>%s</p>
    </div>
    <div class="footer">
        <p>You are receiving this because you recently connected with %s.</p>
    </div>
</body>
</html>
`, html.EscapeString(e.orgName), content.String(), html.EscapeString(e.orgName), html.EscapeString(e.orgName))
}
