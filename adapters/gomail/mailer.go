// Package gomail delivers lifecycle email over SMTP using gopkg.in/gomail.v2.
//
// The adapter implements newsletter.Mailer with a single-shot send per call.
// It never retries; a transient SMTP failure surfaces to the caller, who
// reports it as a delivery error.
package gomail

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/gomail.v2"
)

// Config holds the SMTP and link settings for the mailer.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string

	// From is the sender address, e.g. "Newsletter <newsletter@example.com>".
	From string

	// BaseURL is the public root the confirmation and unsubscribe links are
	// built against, without a trailing slash (e.g. "https://example.com").
	BaseURL string

	// Subject overrides the default confirmation subject when non-empty.
	Subject string
}

const defaultSubject = "Confirm your subscription"

// Mailer sends double-opt-in confirmation email over SMTP.
type Mailer struct {
	dialer  *gomail.Dialer
	from    string
	baseURL string
	subject string
}

// NewMailer creates an SMTP mailer from the given config.
func NewMailer(cfg Config) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("from address is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	subject := cfg.Subject
	if subject == "" {
		subject = defaultSubject
	}
	port := cfg.Port
	if port == 0 {
		port = 587
	}
	return &Mailer{
		dialer:  gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password),
		from:    cfg.From,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		subject: subject,
	}, nil
}

// SendConfirmation sends the confirmation email for a pending subscription.
// The confirmation link carries the raw one-time token; the unsubscribe link
// carries the signed token and is also advertised via List-Unsubscribe.
func (m *Mailer) SendConfirmation(ctx context.Context, email, confirmToken, unsubscribeToken string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	confirmURL := m.link("/api/v1/confirm", confirmToken)

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", m.subject)
	if unsubscribeToken != "" {
		unsubscribeURL := m.link("/api/v1/unsubscribe", unsubscribeToken)
		msg.SetHeader("List-Unsubscribe", "<"+unsubscribeURL+">")
	}
	msg.SetBody("text/html", m.confirmationBody(confirmURL, unsubscribeToken))

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func (m *Mailer) link(path, token string) string {
	return m.baseURL + path + "?token=" + url.QueryEscape(token)
}

func (m *Mailer) confirmationBody(confirmURL, unsubscribeToken string) string {
	var b strings.Builder
	b.WriteString(`<p>Thanks for subscribing! Please confirm your email address by clicking the link below.</p>`)
	b.WriteString(fmt.Sprintf(`<p><a href="%s">Confirm subscription</a></p>`, confirmURL))
	b.WriteString(`<p>The link expires in 24 hours. If you didn't request this, you can ignore this email.</p>`)
	if unsubscribeToken != "" {
		unsubscribeURL := m.link("/api/v1/unsubscribe", unsubscribeToken)
		b.WriteString(fmt.Sprintf(`<p style="color:#888;font-size:12px"><a href="%s">Unsubscribe</a></p>`, unsubscribeURL))
	}
	return b.String()
}
