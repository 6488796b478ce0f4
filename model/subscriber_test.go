package model

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriber_TableName(t *testing.T) {
	sub := Subscriber{}
	assert.Equal(t, "subscribers", sub.TableName())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "test@example.com", NormalizeEmail("  TEST@Example.COM "))

	// Normalization is idempotent
	once := NormalizeEmail("E@X.com")
	assert.Equal(t, once, NormalizeEmail(once))
}

func TestNewSubscriber(t *testing.T) {
	expiresAt := time.Now().Add(24 * time.Hour)
	sub := NewSubscriber("NEW@Example.com", "hash-abc", expiresAt)

	assert.Equal(t, int64(0), sub.ID)
	assert.Equal(t, "new@example.com", sub.Email)
	assert.Equal(t, StatusPending, sub.Status)
	assert.True(t, sub.ConfirmTokenHash.Valid)
	assert.Equal(t, "hash-abc", sub.ConfirmTokenHash.String)
	assert.True(t, sub.ConfirmTokenExpiresAt.Valid)
	assert.Equal(t, expiresAt, sub.ConfirmTokenExpiresAt.Time)
	assert.True(t, sub.SubscribedAt.Valid)
	assert.False(t, sub.ConfirmedAt.Valid)
	assert.False(t, sub.UnsubscribedAt.Valid)
	assert.WithinDuration(t, time.Now(), sub.CreatedAt, time.Second)
}

func TestSubscriber_Confirm(t *testing.T) {
	sub := NewSubscriber("a@x.com", "hash", time.Now().Add(time.Hour))

	sub.Confirm()

	assert.Equal(t, StatusActive, sub.Status)
	assert.True(t, sub.Confirmed)
	assert.True(t, sub.ConfirmedAt.Valid)
	assert.False(t, sub.ConfirmTokenHash.Valid, "token is single use")
	assert.False(t, sub.ConfirmTokenExpiresAt.Valid)
	assert.False(t, sub.UnsubscribedAt.Valid)
}

func TestSubscriber_ConfirmKeepsOriginalConfirmedAt(t *testing.T) {
	sub := NewSubscriber("a@x.com", "hash", time.Now().Add(time.Hour))
	first := time.Now().Add(-48 * time.Hour)
	sub.ConfirmedAt = sql.NullTime{Time: first, Valid: true}

	sub.Confirm()

	assert.Equal(t, first, sub.ConfirmedAt.Time)
}

func TestSubscriber_Unsubscribe(t *testing.T) {
	sub := NewSubscriber("a@x.com", "hash", time.Now().Add(time.Hour))
	sub.Confirm()

	sub.Unsubscribe()

	assert.Equal(t, StatusUnsubscribed, sub.Status)
	assert.True(t, sub.UnsubscribedAt.Valid)
	assert.False(t, sub.ConfirmTokenHash.Valid, "stale confirm link must not reactivate")
}

func TestSubscriber_BeginConfirmationClearsOptOut(t *testing.T) {
	sub := NewSubscriber("a@x.com", "old-hash", time.Now().Add(time.Hour))
	sub.Confirm()
	sub.Unsubscribe()

	sub.BeginConfirmation("new-hash", time.Now().Add(24*time.Hour))

	assert.Equal(t, StatusPending, sub.Status)
	assert.False(t, sub.UnsubscribedAt.Valid)
	assert.Equal(t, "new-hash", sub.ConfirmTokenHash.String)
	assert.True(t, sub.SubscribedAt.Valid)
}

func TestSubscriber_SuppressOverridesAnyState(t *testing.T) {
	sub := NewSubscriber("a@x.com", "hash", time.Now().Add(time.Hour))
	sub.Confirm()

	sub.Suppress(ReasonBounce)

	assert.Equal(t, StatusSuppressed, sub.Status)
	assert.True(t, sub.SuppressedAt.Valid)
	assert.Equal(t, "bounce", sub.SuppressionReason.String)
	assert.True(t, sub.IsSuppressed())

	// Last applied reason wins
	sub.Suppress(ReasonSpamComplaint)
	assert.Equal(t, "spam_complaint", sub.SuppressionReason.String)
}

func TestSubscriber_ConfirmTokenExpired(t *testing.T) {
	now := time.Now()
	sub := NewSubscriber("a@x.com", "hash", now.Add(-time.Minute))
	assert.True(t, sub.ConfirmTokenExpired(now))

	sub = NewSubscriber("a@x.com", "hash", now.Add(time.Minute))
	assert.False(t, sub.ConfirmTokenExpired(now))

	// No expiry on record means never expired
	sub.ConfirmTokenExpiresAt = sql.NullTime{}
	assert.False(t, sub.ConfirmTokenExpired(now))
}

func TestDeriveStatus(t *testing.T) {
	now := sql.NullTime{Time: time.Now(), Valid: true}

	tests := []struct {
		name string
		sub  Subscriber
		want Status
	}{
		{
			name: "suppressed wins over everything",
			sub:  Subscriber{SuppressedAt: now, UnsubscribedAt: now, ConfirmedAt: now},
			want: StatusSuppressed,
		},
		{
			name: "unsubscribed beats confirmed",
			sub:  Subscriber{UnsubscribedAt: now, ConfirmedAt: now},
			want: StatusUnsubscribed,
		},
		{
			name: "confirmed timestamp means active",
			sub:  Subscriber{ConfirmedAt: now},
			want: StatusActive,
		},
		{
			name: "legacy confirmed flag means active",
			sub:  Subscriber{Confirmed: true},
			want: StatusActive,
		},
		{
			name: "legacy row without token is active",
			sub:  Subscriber{},
			want: StatusActive,
		},
		{
			name: "outstanding token means pending",
			sub:  Subscriber{ConfirmTokenHash: sql.NullString{String: "h", Valid: true}},
			want: StatusPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(&tt.sub))
		})
	}
}

func TestStatus_Valid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusActive.Valid())
	assert.True(t, StatusUnsubscribed.Valid())
	assert.True(t, StatusSuppressed.Valid())
	assert.False(t, Status("deleted").Valid())
	assert.False(t, Status("").Valid())
}
