package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// sessionRowID is the fixed primary key of the single session row.
const sessionRowID = 1

// CookieRepository defines operations on the persisted cookie jar.
type CookieRepository interface {
	Get(ctx context.Context, name string) (*Cookie, error)
	Set(ctx context.Context, c *Cookie) error
	Delete(ctx context.Context, name string) error
}

// LocalRepository defines operations on the durable key/value store.
type LocalRepository interface {
	Get(ctx context.Context, key string) (*LocalItem, error)
	Set(ctx context.Context, item *LocalItem) error
	Delete(ctx context.Context, key string) error
}

// SessionRepository defines operations on the persisted session row.
type SessionRepository interface {
	Get(ctx context.Context) (*SessionRecord, error)
	Upsert(ctx context.Context, rec *SessionRecord) error
}

type gormCookieRepo struct{ db *gorm.DB }

type gormLocalRepo struct{ db *gorm.DB }

type gormSessionRepo struct{ db *gorm.DB }

// NewCookieRepository creates a CookieRepository. Accepts *gorm.DB to avoid global access.
func NewCookieRepository(db *gorm.DB) CookieRepository { return &gormCookieRepo{db: db} }

// NewLocalRepository creates a LocalRepository. Accepts *gorm.DB to avoid global access.
func NewLocalRepository(db *gorm.DB) LocalRepository { return &gormLocalRepo{db: db} }

// NewSessionRepository creates a SessionRepository. Accepts *gorm.DB to avoid global access.
func NewSessionRepository(db *gorm.DB) SessionRepository { return &gormSessionRepo{db: db} }

func (r *gormCookieRepo) Get(ctx context.Context, name string) (*Cookie, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var c Cookie
	err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormCookieRepo) Set(ctx context.Context, c *Cookie) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(c).Error
}

func (r *gormCookieRepo) Delete(ctx context.Context, name string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Delete(&Cookie{}, "name = ?", name).Error
}

func (r *gormLocalRepo) Get(ctx context.Context, key string) (*LocalItem, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var item LocalItem
	err := r.db.WithContext(ctx).First(&item, "item_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *gormLocalRepo) Set(ctx context.Context, item *LocalItem) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(item).Error
}

func (r *gormLocalRepo) Delete(ctx context.Context, key string) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	return r.db.WithContext(ctx).Delete(&LocalItem{}, "item_key = ?", key).Error
}

func (r *gormSessionRepo) Get(ctx context.Context) (*SessionRecord, error) {
	if r.db == nil {
		return nil, fmt.Errorf("repository not initialized")
	}
	var rec SessionRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", sessionRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *gormSessionRepo) Upsert(ctx context.Context, rec *SessionRecord) error {
	if r.db == nil {
		return fmt.Errorf("repository not initialized")
	}
	rec.ID = sessionRowID
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"signed_in", "token_valid", "user", "updated_at"}),
	}).Create(rec).Error
}
