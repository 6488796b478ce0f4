package newsletter

import "context"

// Mailer defines the outbound email interface consumed by the lifecycle
// manager. The confirmation send is a single-shot, bounded call: the manager
// never retries, and a failure after the pending row is persisted surfaces
// as a delivery error without rolling the row back.
//
// Implementations might deliver via SMTP, an ESP HTTP API, or a message queue.
type Mailer interface {
	// SendConfirmation sends the double-opt-in confirmation email.
	// The raw confirmation token is embedded in the link; the unsubscribe
	// token is a self-contained signed token for the list-unsubscribe link.
	SendConfirmation(ctx context.Context, email, confirmToken, unsubscribeToken string) error
}

// NoopMailer is a no-op implementation of Mailer.
// Use this in tests or when outbound mail is disabled.
type NoopMailer struct{}

// SendConfirmation does nothing.
func (m *NoopMailer) SendConfirmation(_ context.Context, _, _, _ string) error {
	return nil
}

// LoggingMailer is a simple implementation that logs instead of sending.
// Useful for local development without SMTP credentials.
type LoggingMailer struct {
	logger Logger
}

// NewLoggingMailer creates a new LoggingMailer.
func NewLoggingMailer(logger Logger) *LoggingMailer {
	return &LoggingMailer{logger: logger}
}

// SendConfirmation logs the confirmation parameters.
func (m *LoggingMailer) SendConfirmation(_ context.Context, email, confirmToken, _ string) error {
	m.logger.Infof("confirmation email (not sent): to=%s, token=%s", email, confirmToken)
	return nil
}
