package collab

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"

	"github.com/charmbracelet/log"
)

// SMTPMattermostNotifier implements the `report` action-link's two
// sinks: plain SMTP for email, and a Mattermost incoming-webhook POST for
// mattermost.
type SMTPMattermostNotifier struct {
	Logger   *log.Logger
	SMTPAddr string
	SMTPAuth smtp.Auth
	From     string
	Client   *http.Client
}

func (n *SMTPMattermostNotifier) SendEmail(ctx context.Context, to, subject, body, replyTo string) error {
	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", n.From, to, subject)
	if replyTo != "" {
		headers += fmt.Sprintf("Reply-To: %s\r\n", replyTo)
	}
	msg := []byte(headers + "\r\n" + body)

	n.Logger.Info("sending email report", "to", to, "subject", subject)
	if err := smtp.SendMail(n.SMTPAddr, n.SMTPAuth, n.From, []string{to}, msg); err != nil {
		return fmt.Errorf("sending email to %s: %w", to, err)
	}
	return nil
}

func (n *SMTPMattermostNotifier) SendMattermost(ctx context.Context, url, text string) error {
	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("encoding mattermost payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building mattermost request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	n.Logger.Info("sending mattermost report", "url", url)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to mattermost webhook: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("mattermost webhook returned status %d", resp.StatusCode)
	}
	return nil
}
