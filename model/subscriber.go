package model

import (
	"database/sql"
	"strings"
	"time"
)

// Status represents the lifecycle state of a subscriber.
type Status string

const (
	// StatusPending indicates the subscriber requested signup but has not
	// confirmed via the emailed link yet.
	StatusPending Status = "pending"

	// StatusActive indicates a confirmed subscriber currently receiving mail.
	StatusActive Status = "active"

	// StatusUnsubscribed indicates the subscriber voluntarily opted out.
	StatusUnsubscribed Status = "unsubscribed"

	// StatusSuppressed indicates a platform-enforced block (bounce, spam
	// complaint). No automated path leaves this state.
	StatusSuppressed Status = "suppressed"
)

// Valid reports whether s is one of the four recognized statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusUnsubscribed, StatusSuppressed:
		return true
	}
	return false
}

// SuppressionReason enumerates why an email was suppressed.
type SuppressionReason string

const (
	// ReasonBounce indicates a hard delivery failure reported by the ESP.
	ReasonBounce SuppressionReason = "bounce"

	// ReasonSpamComplaint indicates the recipient flagged a message as spam.
	ReasonSpamComplaint SuppressionReason = "spam_complaint"

	// ReasonSubscriptionChange indicates an ESP-side subscription change event.
	ReasonSubscriptionChange SuppressionReason = "subscription_change"
)

// Subscriber represents one email address on the newsletter list.
// One row exists per unique, case-normalized email; re-subscription reuses
// the row instead of creating a duplicate.
//
// Lifecycle:
//  1. Created with status=PENDING and an outstanding confirmation token hash
//  2. Confirm click → ACTIVE, token cleared (single use)
//  3. Unsubscribe → UNSUBSCRIBED (re-subscribe returns it to PENDING)
//  4. Bounce/complaint webhook → SUPPRESSED from any prior state
//
// Business logic methods:
//   - BeginConfirmation: arm a fresh confirmation token (subscribe/re-subscribe)
//   - Confirm: activate after a valid confirmation click
//   - Unsubscribe: voluntary opt-out
//   - Suppress: platform-enforced block
type Subscriber struct {
	ID                    int64          `json:"id"`
	Email                 string         `json:"email" db:"email"`
	Status                Status         `json:"status" db:"status"`
	Confirmed             bool           `json:"confirmed" db:"confirmed"` // LEGACY: kept for pre-status rows, use Status
	ConfirmTokenHash      sql.NullString `json:"-" db:"confirm_token_hash"`
	ConfirmTokenExpiresAt sql.NullTime   `json:"-" db:"confirm_token_expires_at"`
	ConfirmedAt           sql.NullTime   `json:"confirmedAt" db:"confirmed_at"`
	SubscribedAt          sql.NullTime   `json:"subscribedAt" db:"subscribed_at"`
	UnsubscribedAt        sql.NullTime   `json:"unsubscribedAt" db:"unsubscribed_at"`
	SuppressedAt          sql.NullTime   `json:"suppressedAt" db:"suppressed_at"`
	SuppressionReason     sql.NullString `json:"suppressionReason" db:"suppression_reason"`
	CreatedAt             time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt             time.Time      `json:"updatedAt" db:"updated_at"`
}

// TableName returns the database table name for Subscriber.
func (s Subscriber) TableName() string {
	return "subscribers"
}

// NormalizeEmail lower-cases and trims an email address. The result is the
// identity key for the subscriber row. Normalization is idempotent.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewSubscriber creates a pending subscriber with an outstanding confirmation
// token. Only the token hash is stored; the raw token travels in the email.
func NewSubscriber(email, tokenHash string, tokenExpiresAt time.Time) Subscriber {
	now := time.Now()
	return Subscriber{
		ID:                    0,
		Email:                 NormalizeEmail(email),
		Status:                StatusPending,
		ConfirmTokenHash:      sql.NullString{String: tokenHash, Valid: true},
		ConfirmTokenExpiresAt: sql.NullTime{Time: tokenExpiresAt, Valid: true},
		SubscribedAt:          sql.NullTime{Time: now, Valid: true},
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// BeginConfirmation re-arms the row for a fresh confirmation round.
// Used when an unsubscribed or still-pending address subscribes again:
// status returns to PENDING, the previous opt-out and any stale token are
// replaced, and the subscription timestamp is refreshed.
func (s *Subscriber) BeginConfirmation(tokenHash string, tokenExpiresAt time.Time) {
	now := time.Now()
	s.Status = StatusPending
	s.ConfirmTokenHash = sql.NullString{String: tokenHash, Valid: true}
	s.ConfirmTokenExpiresAt = sql.NullTime{Time: tokenExpiresAt, Valid: true}
	s.UnsubscribedAt = sql.NullTime{}
	s.SubscribedAt = sql.NullTime{Time: now, Valid: true}
	s.UpdatedAt = now
}

// Confirm activates the subscriber after a valid confirmation click.
// The token fields are cleared (single use) and ConfirmedAt is set only if
// absent, so replays keep the original confirmation time.
func (s *Subscriber) Confirm() {
	now := time.Now()
	s.Status = StatusActive
	s.Confirmed = true
	if !s.ConfirmedAt.Valid {
		s.ConfirmedAt = sql.NullTime{Time: now, Valid: true}
	}
	s.UnsubscribedAt = sql.NullTime{}
	s.ConfirmTokenHash = sql.NullString{}
	s.ConfirmTokenExpiresAt = sql.NullTime{}
	s.UpdatedAt = now
}

// Unsubscribe records a voluntary opt-out. Any outstanding confirmation
// token is cleared so a stale confirm link cannot reactivate the address.
func (s *Subscriber) Unsubscribe() {
	now := time.Now()
	s.Status = StatusUnsubscribed
	s.UnsubscribedAt = sql.NullTime{Time: now, Valid: true}
	s.ConfirmTokenHash = sql.NullString{}
	s.ConfirmTokenExpiresAt = sql.NullTime{}
	s.UpdatedAt = now
}

// Suppress applies a platform-enforced block regardless of prior state.
// A later suppression event overwrites the reason (last applied wins).
func (s *Subscriber) Suppress(reason SuppressionReason) {
	now := time.Now()
	s.Status = StatusSuppressed
	s.SuppressedAt = sql.NullTime{Time: now, Valid: true}
	s.SuppressionReason = sql.NullString{String: string(reason), Valid: true}
	s.UpdatedAt = now
}

// IsSuppressed reports whether the subscriber is blocked from the subscribe
// path. Checks the timestamp as well as the status so legacy rows whose
// status column predates the suppression columns are still honored.
func (s *Subscriber) IsSuppressed() bool {
	return s.Status == StatusSuppressed || s.SuppressedAt.Valid
}

// ConfirmTokenExpired reports whether the outstanding confirmation token has
// passed its validity window. A row without an expiry never expires.
func (s *Subscriber) ConfirmTokenExpired(now time.Time) bool {
	return s.ConfirmTokenExpiresAt.Valid && s.ConfirmTokenExpiresAt.Time.Before(now)
}

// DeriveStatus computes the status a row should carry from its timestamp
// fields. This is the single source of truth used by the schema migrator's
// backfill and as a consistency fallback when a stored status is
// unrecognized:
//
//	suppressed_at set            → suppressed
//	else unsubscribed_at set     → unsubscribed
//	else confirmed_at/confirmed  → active
//	else no token and never left → active (legacy pre-double-opt-in rows)
//	else                         → pending
func DeriveStatus(s *Subscriber) Status {
	switch {
	case s.SuppressedAt.Valid:
		return StatusSuppressed
	case s.UnsubscribedAt.Valid:
		return StatusUnsubscribed
	case s.ConfirmedAt.Valid || s.Confirmed:
		return StatusActive
	case !s.ConfirmTokenHash.Valid:
		return StatusActive
	default:
		return StatusPending
	}
}
