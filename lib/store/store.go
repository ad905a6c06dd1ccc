package store

import (
	"context"
	"errors"
	"sort"

	"github.com/fiffu/listingwatch/lib/models"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the subset of an object storage API the watcher needs.
type ObjectStore interface {
	PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	ListByPrefix(ctx context.Context, bucket, prefix string) (models.ObjectInfos, error)
}

// Latest returns the most recently modified object under prefix, or nil if
// there is none.
func Latest(ctx context.Context, s ObjectStore, bucket, prefix string) (*models.ObjectInfo, error) {
	objs, err := sortedByRecency(ctx, s, bucket, prefix)
	if err != nil || len(objs) == 0 {
		return nil, err
	}
	return &objs[0], nil
}

// LatestTwo returns the two most recently modified objects under prefix,
// newer first. Both are nil when fewer than two objects exist.
func LatestTwo(ctx context.Context, s ObjectStore, bucket, prefix string) (newer, older *models.ObjectInfo, err error) {
	objs, err := sortedByRecency(ctx, s, bucket, prefix)
	if err != nil || len(objs) < 2 {
		return nil, nil, err
	}
	return &objs[0], &objs[1], nil
}

// sortedByRecency orders by LastModified descending. Equal timestamps are
// broken by key descending, so timestamp-suffixed keys still sort newest first.
func sortedByRecency(ctx context.Context, s ObjectStore, bucket, prefix string) (models.ObjectInfos, error) {
	objs, err := s.ListByPrefix(ctx, bucket, prefix)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(objs, func(i, j int) bool {
		a, b := objs[i], objs[j]
		if !a.LastModified.Equal(b.LastModified) {
			return a.LastModified.After(b.LastModified)
		}
		return a.Key > b.Key
	})
	return objs, nil
}
