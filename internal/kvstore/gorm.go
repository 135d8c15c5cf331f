package kvstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is the single table behind the store. Values are stored in the
// database JSON type where available and TEXT otherwise.
type Entry struct {
	Key       string         `gorm:"primaryKey;size:255" json:"key"`
	Value     datatypes.JSON `json:"value"`
	Version   uint64         `gorm:"not null;default:0" json:"version"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (Entry) TableName() string { return "kv_entries" }

type gormStore struct {
	db *gorm.DB
}

// NewGorm returns a Store backed by the kv_entries table.
func NewGorm(db *gorm.DB) (Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &gormStore{db: db}, nil
}

func (s *gormStore) Get(ctx context.Context, key string) (datatypes.JSON, bool, error) {
	var e Entry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e.Value, true, nil
}

func (s *gormStore) Set(ctx context.Context, key string, value datatypes.JSON) error {
	e := Entry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      value,
			"version":    gorm.Expr("kv_entries.version + 1"),
			"updated_at": e.UpdatedAt,
		}),
	}).Create(&e).Error
}

func (s *gormStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&Entry{}).Error
}

func (s *gormStore) ScanPrefix(ctx context.Context, prefix string) ([]datatypes.JSON, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).Where("key LIKE ?", prefix+"%").Find(&entries).Error; err != nil {
		return nil, err
	}
	values := make([]datatypes.JSON, 0, len(entries))
	for _, e := range entries {
		values = append(values, e.Value)
	}
	return values, nil
}

const maxUpdateAttempts = 5

func (s *gormStore) Update(ctx context.Context, key string, fn UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		var e Entry
		found := true
		err := s.db.WithContext(ctx).Where("key = ?", key).First(&e).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			found = false
		} else if err != nil {
			return err
		}

		next, err := fn(e.Value, found)
		if err != nil {
			return err
		}

		if !found {
			res := s.db.WithContext(ctx).Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoNothing: true,
			}).Create(&Entry{Key: key, Value: next, UpdatedAt: time.Now().UTC()})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				return nil
			}
			// lost the create race, reload and retry
			continue
		}

		res := s.db.WithContext(ctx).Model(&Entry{}).
			Where("key = ? AND version = ?", key, e.Version).
			Updates(map[string]any{
				"value":      next,
				"version":    e.Version + 1,
				"updated_at": time.Now().UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 1 {
			return nil
		}
	}
	return ErrConflict
}
