package store

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/fiffu/listingwatch/lib"
	"github.com/fiffu/listingwatch/lib/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Object is a stored blob. Bucket and key form the primary key.
type Object struct {
	Bucket       string `gorm:"primaryKey"`
	ObjectKey    string `gorm:"primaryKey"`
	Body         []byte
	ContentType  string
	LastModified time.Time `gorm:"index"`
}

// GormStore keeps objects in a relational table through gorm.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Object{}); err != nil {
		return nil, &lib.StorageError{Op: "migrate", Err: err}
	}
	return &GormStore{db}, nil
}

func (s *GormStore) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	obj := &Object{
		Bucket:       bucket,
		ObjectKey:    key,
		Body:         body,
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
	}
	tx := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(obj)
	if err := tx.Error; err != nil {
		return &lib.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *GormStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj := Object{}
	tx := s.db.WithContext(ctx).
		Where("bucket = ? AND object_key = ?", bucket, key).
		First(&obj)
	if err := tx.Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &lib.StorageError{Op: "get", Key: key, Err: ErrObjectNotFound}
	} else if err != nil {
		return nil, &lib.StorageError{Op: "get", Key: key, Err: err}
	}
	return obj.Body, nil
}

func (s *GormStore) ListByPrefix(ctx context.Context, bucket, prefix string) (models.ObjectInfos, error) {
	var objs []Object
	tx := s.db.WithContext(ctx).
		Select("object_key", "last_modified").
		Where("bucket = ?", bucket).
		Where("substr(object_key, 1, ?) = ?", utf8.RuneCountInString(prefix), prefix).
		Find(&objs)
	if err := tx.Error; err != nil {
		return nil, &lib.StorageError{Op: "list", Key: prefix, Err: err}
	}

	infos := make(models.ObjectInfos, len(objs))
	for i, obj := range objs {
		infos[i] = models.ObjectInfo{Key: obj.ObjectKey, LastModified: obj.LastModified}
	}
	return infos, nil
}
