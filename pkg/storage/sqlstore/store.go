package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/storefront/pkg/db"
	"github.com/angelmondragon/storefront/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store keeps visitor state in the storefront_kv table (see pkg/migrate/migrations).
type Store struct {
	client *db.Client
	ttl    time.Duration
	now    func() time.Time
}

func New(client *db.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

func (s *Store) live(tx *gorm.DB) *gorm.DB {
	return tx.Where("expires_at IS NULL OR expires_at > ?", s.now().UTC())
}

func (s *Store) Get(ctx context.Context, visitorID, key string) (string, bool, error) {
	var entry models.VisitorEntry
	err := s.live(s.client.DB().WithContext(ctx)).
		Where("visitor_id = ? AND name = ?", visitorID, key).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *Store) Set(ctx context.Context, visitorID, key, value string) error {
	entry := models.VisitorEntry{
		VisitorID: visitorID,
		Name:      key,
		Value:     value,
		UpdatedAt: s.now().UTC(),
	}
	if s.ttl > 0 {
		expires := entry.UpdatedAt.Add(s.ttl)
		entry.ExpiresAt = &expires
	}
	return s.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "visitor_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at", "expires_at"}),
		}).
		Create(&entry).Error
}

func (s *Store) Delete(ctx context.Context, visitorID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.DB().WithContext(ctx).
		Where("visitor_id = ? AND name IN ?", visitorID, keys).
		Delete(&models.VisitorEntry{}).Error
}

// Take deletes the row with RETURNING so the read and the removal are one statement.
func (s *Store) Take(ctx context.Context, visitorID, key string) (string, bool, error) {
	var rows []models.VisitorEntry
	res := s.live(s.client.DB().WithContext(ctx)).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "value"}}}).
		Where("visitor_id = ? AND name = ?", visitorID, key).
		Delete(&rows)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected == 0 || len(rows) == 0 {
		return "", false, nil
	}
	return rows[0].Value, true, nil
}

// PurgeExpired removes entries whose TTL elapsed and returns how many were dropped.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res := s.client.DB().WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at <= ?", s.now().UTC()).
		Delete(&models.VisitorEntry{})
	return res.RowsAffected, res.Error
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() error {
	return s.client.Close()
}
