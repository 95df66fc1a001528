package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

type Client struct {
	apiKey     string
	fromEmail  string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(apiKey, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		fromEmail:  fromEmail,
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if the API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text"`
}

// SendCheckInReminder sends the magic link email for a scheduled
// check-in. The body carries the link only; the prompt and any session
// context are loaded when the link is opened.
func (c *Client) SendCheckInReminder(toEmail, checkInType, token string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing api key")
	}

	var subject string
	switch checkInType {
	case "morning":
		subject = "Your morning check-in is ready"
	case "evening":
		subject = "Your evening check-in is ready"
	case "post_session":
		subject = "A quick follow-up on today's session"
	default:
		subject = "Your check-in is ready"
	}

	link := fmt.Sprintf("%s/check-in/%s", c.baseURL, token)
	textBody := fmt.Sprintf("Take a minute to check in with yourself:\n\n%s\n\nThis link expires in 24 hours.", link)
	htmlBody := fmt.Sprintf(
		`<p>Take a minute to check in with yourself:</p><p><a href="%s">Open your check-in</a></p><p>This link expires in 24 hours.</p>`,
		link,
	)

	return c.send(resendEmail{
		From:    c.fromEmail,
		To:      []string{toEmail},
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
}

// SendMilestoneReminder sends the magic link email for a follow-up
// milestone, e.g. "3 days smoke-free".
func (c *Client) SendMilestoneReminder(toEmail, milestoneLabel, token string) error {
	if !c.Configured() {
		return fmt.Errorf("email client not configured: missing api key")
	}

	subject := fmt.Sprintf("%s: how are you doing?", milestoneLabel)
	link := fmt.Sprintf("%s/check-in/%s", c.baseURL, token)
	textBody := fmt.Sprintf("You've reached %s. Take a moment to reflect:\n\n%s", milestoneLabel, link)
	htmlBody := fmt.Sprintf(
		`<p>You've reached %s. Take a moment to reflect:</p><p><a href="%s">Open your check-in</a></p>`,
		milestoneLabel, link,
	)

	return c.send(resendEmail{
		From:    c.fromEmail,
		To:      []string{toEmail},
		Subject: subject,
		HTML:    htmlBody,
		Text:    textBody,
	})
}

func (c *Client) send(payload resendEmail) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequest("POST", "https://api.resend.com/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend API error: status %d", resp.StatusCode)
	}

	return nil
}
