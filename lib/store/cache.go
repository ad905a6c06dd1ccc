package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedStore keeps recently read object bodies in memory. Writes evict the
// written key; archived snapshots are never rewritten.
type CachedStore struct {
	ObjectStore
	cache *lru.Cache[string, []byte]
}

func NewCachedStore(inner ObjectStore, size int) (*CachedStore, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{inner, cache}, nil
}

func cacheKey(bucket, key string) string {
	return bucket + "\x00" + key
}

func (s *CachedStore) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	s.cache.Remove(cacheKey(bucket, key))
	return s.ObjectStore.PutObject(ctx, bucket, key, body, contentType)
}

func (s *CachedStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	ck := cacheKey(bucket, key)
	if body, ok := s.cache.Get(ck); ok {
		return body, nil
	}
	body, err := s.ObjectStore.GetObject(ctx, bucket, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(ck, body)
	return body, nil
}
