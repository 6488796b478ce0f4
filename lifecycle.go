package newsletter

import (
	"context"
	"fmt"
	"time"

	"github.com/coregx/newsletter/model"
)

// Outcome is the user-facing result of applying one lifecycle event.
// Handlers map outcomes onto HTTP status codes and page wording; the core
// never formats user-visible text itself.
type Outcome string

const (
	// OutcomeConfirmationSent — row is pending and a confirmation email fired.
	OutcomeConfirmationSent Outcome = "confirmation_sent"

	// OutcomeAlreadySubscribed — address is already active; nothing changed.
	OutcomeAlreadySubscribed Outcome = "already_subscribed"

	// OutcomeSuppressed — suppressed address tried to subscribe. Hard stop,
	// not an error: state before equals state after.
	OutcomeSuppressed Outcome = "suppressed"

	// OutcomeConfirmed — pending subscriber activated.
	OutcomeConfirmed Outcome = "confirmed"

	// OutcomeInvalidToken — token is unknown, malformed, forged, or already
	// used. A replayed confirm link lands here after the hash was cleared.
	OutcomeInvalidToken Outcome = "invalid_token"

	// OutcomeExpiredToken — authentic token past its validity window.
	// Distinct from invalid so the caller can suggest re-subscribing.
	OutcomeExpiredToken Outcome = "expired_token"

	// OutcomeUnsubscribed — opt-out recorded.
	OutcomeUnsubscribed Outcome = "unsubscribed"

	// OutcomeAlreadyUnsubscribed — opt-out replayed; idempotent no-op.
	OutcomeAlreadyUnsubscribed Outcome = "already_unsubscribed"

	// OutcomeNotSubscribed — unsubscribe for an address that has no row.
	OutcomeNotSubscribed Outcome = "not_subscribed"
)

// Result pairs an outcome with the subscriber row it settled on, when one
// exists. Subscriber is nil for outcomes that never resolved a row.
type Result struct {
	Outcome    Outcome
	Subscriber *model.Subscriber
}

// DefaultConfirmTokenTTL is the validity window for confirmation links.
const DefaultConfirmTokenTTL = 24 * time.Hour

// DefaultUnsubscribeTokenTTL is the validity window for signed unsubscribe
// links embedded in outbound mail.
const DefaultUnsubscribeTokenTTL = 30 * 24 * time.Hour

// LifecycleManager applies subscriber lifecycle events: subscribe requests,
// confirmation clicks, unsubscribe requests, and suppression webhooks.
//
// For every event it loads the current row, computes a complete next state
// via the model's transition methods, and persists it in one Save call —
// no transition is ever partially applied from the manager's perspective.
// All transitions are idempotent under replay.
//
// Thread safety: Safe for concurrent use. Concurrent events for the same
// email are not mutually excluded; the last write wins at the storage layer.
type LifecycleManager struct {
	repo           SubscriberRepository
	schema         SchemaEnsurer
	mailer         Mailer
	signer         *SignedTokenCodec
	logger         Logger
	confirmTTL     time.Duration
	unsubscribeTTL time.Duration
}

// LifecycleOption is a function that configures a LifecycleManager.
// Used with the Options Pattern for flexible service construction.
type LifecycleOption func(*LifecycleManager) error

// NewLifecycleManager creates a new LifecycleManager with the provided options.
//
// Required options:
//   - WithRepository: subscriber persistence
//   - WithMailer: confirmation email delivery
//   - WithLifecycleLogger: logger instance
//
// Optional options:
//   - WithSchemaEnsurer: lazy schema migration before first use
//   - WithSigner: signed-token codec enabling one-click unsubscribe links
//   - WithConfirmTokenTTL / WithUnsubscribeTokenTTL: validity windows
//
// Example:
//
//	manager, err := newsletter.NewLifecycleManager(
//	    newsletter.WithRepository(repo),
//	    newsletter.WithSchemaEnsurer(repo),
//	    newsletter.WithMailer(mailer),
//	    newsletter.WithSigner(codec),
//	    newsletter.WithLifecycleLogger(logger),
//	)
func NewLifecycleManager(opts ...LifecycleOption) (*LifecycleManager, error) {
	m := &LifecycleManager{
		confirmTTL:     DefaultConfirmTokenTTL,
		unsubscribeTTL: DefaultUnsubscribeTokenTTL,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to apply lifecycle option", err)
		}
	}

	// Validate required dependencies
	if m.repo == nil {
		return nil, NewError(ErrCodeConfiguration, "SubscriberRepository is required (use WithRepository)")
	}
	if m.mailer == nil {
		return nil, NewError(ErrCodeConfiguration, "Mailer is required (use WithMailer)")
	}
	if m.logger == nil {
		return nil, NewError(ErrCodeConfiguration, "Logger is required (use WithLifecycleLogger)")
	}

	return m, nil
}

// WithRepository sets the required subscriber repository.
func WithRepository(repo SubscriberRepository) LifecycleOption {
	return func(m *LifecycleManager) error {
		if repo == nil {
			return fmt.Errorf("repo cannot be nil")
		}
		m.repo = repo
		return nil
	}
}

// WithSchemaEnsurer sets an optional schema ensurer invoked before each
// operation. Implementations memoize, so the cost after the first successful
// run is a single atomic load.
func WithSchemaEnsurer(schema SchemaEnsurer) LifecycleOption {
	return func(m *LifecycleManager) error {
		if schema == nil {
			return fmt.Errorf("schema ensurer cannot be nil")
		}
		m.schema = schema
		return nil
	}
}

// WithMailer sets the required confirmation mailer.
// Use NoopMailer to disable outbound mail.
func WithMailer(mailer Mailer) LifecycleOption {
	return func(m *LifecycleManager) error {
		if mailer == nil {
			return fmt.Errorf("mailer cannot be nil")
		}
		m.mailer = mailer
		return nil
	}
}

// WithSigner sets the optional signed-token codec. Without it, unsubscribe
// works by email only and outbound mail carries no one-click link.
func WithSigner(signer *SignedTokenCodec) LifecycleOption {
	return func(m *LifecycleManager) error {
		if signer == nil {
			return fmt.Errorf("signer cannot be nil")
		}
		m.signer = signer
		return nil
	}
}

// WithLifecycleLogger sets the required logger instance.
func WithLifecycleLogger(logger Logger) LifecycleOption {
	return func(m *LifecycleManager) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		m.logger = logger
		return nil
	}
}

// WithConfirmTokenTTL overrides the confirmation link validity window.
func WithConfirmTokenTTL(ttl time.Duration) LifecycleOption {
	return func(m *LifecycleManager) error {
		if ttl <= 0 {
			return fmt.Errorf("confirm token TTL must be > 0, got %v", ttl)
		}
		m.confirmTTL = ttl
		return nil
	}
}

// WithUnsubscribeTokenTTL overrides the signed unsubscribe link validity window.
func WithUnsubscribeTokenTTL(ttl time.Duration) LifecycleOption {
	return func(m *LifecycleManager) error {
		if ttl <= 0 {
			return fmt.Errorf("unsubscribe token TTL must be > 0, got %v", ttl)
		}
		m.unsubscribeTTL = ttl
		return nil
	}
}

// Subscribe applies a subscribe request for the given email.
//
// Transitions:
//   - no row → create pending row, mint token, send confirmation email
//   - active row → no change, OutcomeAlreadySubscribed
//   - suppressed row → no change, OutcomeSuppressed (rejection, not an error)
//   - unsubscribed or pending row → re-arm with a fresh token and send again
//
// A mail delivery failure surfaces as a DELIVERY_ERROR after the pending row
// is already persisted; the subscriber can retry to get a fresh email.
func (m *LifecycleManager) Subscribe(ctx context.Context, email string) (*Result, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, NewError(ErrCodeValidation, "email is required")
	}

	if err := m.ensureSchema(ctx); err != nil {
		return nil, err
	}

	sub, err := m.repo.GetByEmail(ctx, email)
	if err != nil && !IsNoData(err) {
		return nil, err
	}

	if IsNoData(err) {
		token, hash, err := NewConfirmationToken()
		if err != nil {
			return nil, err
		}
		created := model.NewSubscriber(email, hash, time.Now().Add(m.confirmTTL))
		if err := m.repo.Save(ctx, &created); err != nil {
			return nil, err
		}
		m.logger.Infof("Subscriber created: email=%s, status=%s", created.Email, created.Status)
		if err := m.sendConfirmation(ctx, &created, token); err != nil {
			return nil, err
		}
		return &Result{Outcome: OutcomeConfirmationSent, Subscriber: &created}, nil
	}

	if sub.IsSuppressed() {
		m.logger.Warnf("Subscribe blocked for suppressed address: email=%s, reason=%s",
			sub.Email, sub.SuppressionReason.String)
		return &Result{Outcome: OutcomeSuppressed, Subscriber: &sub}, nil
	}

	if sub.Status == model.StatusActive && !sub.UnsubscribedAt.Valid {
		return &Result{Outcome: OutcomeAlreadySubscribed, Subscriber: &sub}, nil
	}

	// Unsubscribed or still pending (expired or not): re-arm with a fresh token.
	token, hash, err := NewConfirmationToken()
	if err != nil {
		return nil, err
	}
	sub.BeginConfirmation(hash, time.Now().Add(m.confirmTTL))
	if err := m.repo.Save(ctx, &sub); err != nil {
		return nil, err
	}
	m.logger.Infof("Subscriber re-armed for confirmation: email=%s", sub.Email)
	if err := m.sendConfirmation(ctx, &sub, token); err != nil {
		return nil, err
	}
	return &Result{Outcome: OutcomeConfirmationSent, Subscriber: &sub}, nil
}

// Confirm applies a confirmation click carrying the raw token.
//
// An unknown hash (including a replay after the token was consumed) yields
// OutcomeInvalidToken; an expired token yields OutcomeExpiredToken with the
// row left pending so the user can re-subscribe for a fresh link.
func (m *LifecycleManager) Confirm(ctx context.Context, token string) (*Result, error) {
	if token == "" {
		return &Result{Outcome: OutcomeInvalidToken}, nil
	}

	if err := m.ensureSchema(ctx); err != nil {
		return nil, err
	}

	sub, err := m.repo.FindByConfirmTokenHash(ctx, HashToken(token))
	if IsNoData(err) {
		return &Result{Outcome: OutcomeInvalidToken}, nil
	}
	if err != nil {
		return nil, err
	}

	if sub.ConfirmTokenExpired(time.Now()) {
		return &Result{Outcome: OutcomeExpiredToken, Subscriber: &sub}, nil
	}

	sub.Confirm()
	if err := m.repo.Save(ctx, &sub); err != nil {
		return nil, err
	}
	m.logger.Infof("Subscriber confirmed: email=%s", sub.Email)
	return &Result{Outcome: OutcomeConfirmed, Subscriber: &sub}, nil
}

// Unsubscribe applies a voluntary opt-out by email.
// Replays are idempotent: an already-unsubscribed row reports
// OutcomeAlreadyUnsubscribed without a write.
func (m *LifecycleManager) Unsubscribe(ctx context.Context, email string) (*Result, error) {
	email = model.NormalizeEmail(email)
	if email == "" {
		return nil, NewError(ErrCodeValidation, "email is required")
	}

	if err := m.ensureSchema(ctx); err != nil {
		return nil, err
	}

	sub, err := m.repo.GetByEmail(ctx, email)
	if IsNoData(err) {
		return &Result{Outcome: OutcomeNotSubscribed}, nil
	}
	if err != nil {
		return nil, err
	}

	if sub.UnsubscribedAt.Valid {
		return &Result{Outcome: OutcomeAlreadyUnsubscribed, Subscriber: &sub}, nil
	}

	sub.Unsubscribe()
	if err := m.repo.Save(ctx, &sub); err != nil {
		return nil, err
	}
	m.logger.Infof("Subscriber unsubscribed: email=%s", sub.Email)
	return &Result{Outcome: OutcomeUnsubscribed, Subscriber: &sub}, nil
}

// UnsubscribeByToken verifies a signed unsubscribe token and, if valid,
// applies the opt-out for the email it carries.
func (m *LifecycleManager) UnsubscribeByToken(ctx context.Context, token string) (*Result, error) {
	if m.signer == nil {
		return nil, NewError(ErrCodeConfiguration, "signed tokens are not configured (use WithSigner)")
	}

	payload, err := m.signer.Verify(token, PurposeUnsubscribe)
	if err != nil {
		if IsTokenExpired(err) {
			return &Result{Outcome: OutcomeExpiredToken}, nil
		}
		return &Result{Outcome: OutcomeInvalidToken}, nil
	}

	return m.Unsubscribe(ctx, payload.Email)
}

// ProcessSuppressions applies a batch of normalized webhook events.
// Each event is independent: addresses without a row are skipped, replays
// and out-of-order delivery are tolerated, and the last applied reason wins.
// Returns how many suppressions were written.
func (m *LifecycleManager) ProcessSuppressions(ctx context.Context, events []SuppressionEvent) (int, error) {
	if err := m.ensureSchema(ctx); err != nil {
		return 0, err
	}

	applied := 0
	for _, ev := range events {
		sub, err := m.repo.GetByEmail(ctx, ev.Email)
		if IsNoData(err) {
			m.logger.Debugf("Suppression event for unknown address skipped: email=%s", ev.Email)
			continue
		}
		if err != nil {
			return applied, err
		}

		sub.Suppress(ev.Reason)
		if err := m.repo.Save(ctx, &sub); err != nil {
			return applied, err
		}
		m.logger.Warnf("Subscriber suppressed: email=%s, reason=%s", sub.Email, ev.Reason)
		applied++
	}

	return applied, nil
}

// MintUnsubscribeToken produces a signed one-click unsubscribe token for the
// given email, valid for the configured window.
func (m *LifecycleManager) MintUnsubscribeToken(email string) (string, error) {
	if m.signer == nil {
		return "", NewError(ErrCodeConfiguration, "signed tokens are not configured (use WithSigner)")
	}
	return m.signer.Mint(model.NormalizeEmail(email), PurposeUnsubscribe, m.unsubscribeTTL)
}

// ListSubscribers returns all subscribers with the given status.
func (m *LifecycleManager) ListSubscribers(ctx context.Context, status model.Status) ([]model.Subscriber, error) {
	if !status.Valid() {
		return nil, NewError(ErrCodeValidation, fmt.Sprintf("unknown status: %s", status))
	}
	if err := m.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return m.repo.ListByStatus(ctx, status)
}

// Stats returns per-status subscriber counts.
func (m *LifecycleManager) Stats(ctx context.Context) (model.Stats, error) {
	if err := m.ensureSchema(ctx); err != nil {
		return model.Stats{}, err
	}
	return m.repo.GetStats(ctx)
}

func (m *LifecycleManager) ensureSchema(ctx context.Context) error {
	if m.schema == nil {
		return nil
	}
	if err := m.schema.EnsureSchema(ctx); err != nil {
		return NewErrorWithCause(ErrCodeDatabase, "failed to ensure subscriber schema", err)
	}
	return nil
}

// sendConfirmation fires the confirmation email side effect. The pending row
// is already persisted; a failure here leaves it in place and surfaces as a
// delivery error to the caller.
func (m *LifecycleManager) sendConfirmation(ctx context.Context, sub *model.Subscriber, token string) error {
	unsubscribeToken := ""
	if m.signer != nil {
		t, err := m.signer.Mint(sub.Email, PurposeUnsubscribe, m.unsubscribeTTL)
		if err != nil {
			return err
		}
		unsubscribeToken = t
	}

	if err := m.mailer.SendConfirmation(ctx, sub.Email, token, unsubscribeToken); err != nil {
		m.logger.Errorf("Confirmation email failed: email=%s, error=%v", sub.Email, err)
		return NewErrorWithCause(ErrCodeDelivery, "failed to send confirmation email", err)
	}
	return nil
}
