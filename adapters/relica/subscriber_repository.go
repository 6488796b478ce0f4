package relica

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coregx/newsletter"
	"github.com/coregx/newsletter/model"
	"github.com/coregx/relica"
)

// SubscriberRepository implements newsletter.SubscriberRepository using Relica.
type SubscriberRepository struct {
	db          *relica.DB
	tablePrefix string
}

// NewSubscriberRepository creates a new SubscriberRepository.
func NewSubscriberRepository(sqlDB *sql.DB, driverName string) *SubscriberRepository {
	return &SubscriberRepository{db: relica.WrapDB(sqlDB, driverName)}
}

// NewSubscriberRepositoryWithPrefix creates a new SubscriberRepository with a
// custom table prefix.
func NewSubscriberRepositoryWithPrefix(sqlDB *sql.DB, driverName, prefix string) *SubscriberRepository {
	return &SubscriberRepository{db: relica.WrapDB(sqlDB, driverName), tablePrefix: prefix}
}

func (r *SubscriberRepository) tableName() string {
	return r.tablePrefix + "subscribers"
}

// GetByEmail retrieves a subscriber by normalized email.
func (r *SubscriberRepository) GetByEmail(ctx context.Context, email string) (model.Subscriber, error) {
	var sub model.Subscriber
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("email = ?", model.NormalizeEmail(email)).
		One(&sub)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, newsletter.ErrNoData
	}
	if err != nil {
		return sub, newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to load subscriber", err)
	}
	normalizeRow(&sub)
	return sub, nil
}

// FindByConfirmTokenHash retrieves the subscriber holding the given
// outstanding confirmation token hash.
func (r *SubscriberRepository) FindByConfirmTokenHash(ctx context.Context, tokenHash string) (model.Subscriber, error) {
	var sub model.Subscriber
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("confirm_token_hash = ?", tokenHash).
		One(&sub)
	if errors.Is(err, sql.ErrNoRows) {
		return sub, newsletter.ErrNoData
	}
	if err != nil {
		return sub, newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to find subscriber by token", err)
	}
	normalizeRow(&sub)
	return sub, nil
}

// Save creates or updates a subscriber. The full row is written in one
// statement so a transition is never partially applied.
func (r *SubscriberRepository) Save(ctx context.Context, m *model.Subscriber) error {
	if m.ID == 0 {
		// Insert using Model() API - auto-populates m.ID
		err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Insert()
		if err != nil {
			return newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to insert subscriber", err)
		}
		return nil
	}

	// Update using Model() API - auto WHERE id = ?
	err := r.db.WithContext(ctx).Model(m).Table(r.tableName()).Update()
	if err != nil {
		return newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to update subscriber", err)
	}
	return nil
}

// ListByStatus retrieves all subscribers with the given status, newest first.
func (r *SubscriberRepository) ListByStatus(ctx context.Context, status model.Status) ([]model.Subscriber, error) {
	var subs []model.Subscriber
	err := r.db.WithContext(ctx).Select("*").
		From(r.tableName()).
		Where("status = ?", string(status)).
		OrderBy("created_at DESC").
		All(&subs)
	if err != nil {
		return nil, newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to list subscribers", err)
	}
	for i := range subs {
		normalizeRow(&subs[i])
	}
	return subs, nil
}

// GetStats retrieves per-status subscriber counts.
func (r *SubscriberRepository) GetStats(ctx context.Context) (model.Stats, error) {
	var stats model.Stats

	var total int64
	err := r.db.WithContext(ctx).Select("COUNT(*)").From(r.tableName()).One(&total)
	if err != nil {
		return stats, newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to count subscribers", err)
	}
	stats.Total = int(total)

	counts := map[model.Status]*int{
		model.StatusPending:      &stats.Pending,
		model.StatusActive:       &stats.Active,
		model.StatusUnsubscribed: &stats.Unsubscribed,
		model.StatusSuppressed:   &stats.Suppressed,
	}
	for status, target := range counts {
		var count int64
		err := r.db.WithContext(ctx).Select("COUNT(*)").
			From(r.tableName()).
			Where("status = ?", string(status)).
			One(&count)
		if err != nil {
			return stats, newsletter.NewErrorWithCause(newsletter.ErrCodeDatabase, "failed to count subscribers by status", err)
		}
		*target = int(count)
	}

	return stats, nil
}

// normalizeRow falls back to the derived status when a stored value is
// unrecognized (rows written before the status column existed).
func normalizeRow(sub *model.Subscriber) {
	if !sub.Status.Valid() {
		sub.Status = model.DeriveStatus(sub)
	}
}
