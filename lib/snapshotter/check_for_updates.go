package snapshotter

import (
	"context"
	"net/http"

	"github.com/fiffu/listingwatch/lib"
	"github.com/fiffu/listingwatch/lib/models"
	"github.com/fiffu/listingwatch/lib/store"
	"go.uber.org/zap"
)

const (
	BodyFirstSeen    = "No previous hash found, storing current hash!"
	BodyUnchanged    = "No updates to the site. Hash looks the same!"
	BodyChanged      = "New site update, sent notification!"
	BodyFetchFailed  = "Unable to fetch site, current hash unknown"
	BodyStoreFailed  = "Failed to store site update"
	BodyUnknownError = "Unknown error occurred!"

	changeSubject = "Site Update"
	changeMessage = "New site update detected!"
)

// CheckForUpdates fingerprints the live page and compares it with the last
// stored fingerprint. A new or changed fingerprint is stored, the page is
// archived, and for a change a notification event is published.
func (s *Snapshotter) CheckForUpdates(ctx context.Context, log *zap.Logger) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	lastHash := s.latestFingerprint(ctx, log)

	page, err := s.FetchPage(ctx)
	if err != nil {
		log.Sugar().Errorw("Failed to fetch page", "err", err)
		s.metrics.IncCheck("fetch_error")
		return Result{http.StatusInternalServerError, BodyFetchFailed}
	}

	currHash, err := lib.Fingerprint(page)
	if err != nil {
		log.Sugar().Errorw("Failed to fingerprint page", "err", err)
		s.metrics.IncCheck("fetch_error")
		return Result{http.StatusInternalServerError, BodyFetchFailed}
	}

	log.Sugar().Infow("Compared fingerprints", "last_known", lastHash, "current", currHash)

	switch {
	case lastHash == "":
		if err := s.storeUpdate(ctx, currHash, page); err != nil {
			log.Sugar().Errorw("Failed to store first snapshot", "err", err)
			s.metrics.IncCheck("store_error")
			return Result{http.StatusInternalServerError, BodyStoreFailed}
		}
		s.metrics.IncCheck("first_seen")
		return Result{http.StatusOK, BodyFirstSeen}

	case lastHash == currHash:
		s.metrics.IncCheck("unchanged")
		return Result{http.StatusOK, BodyUnchanged}

	default:
		if err := s.storeUpdate(ctx, currHash, page); err != nil {
			log.Sugar().Errorw("Failed to store snapshot", "err", err)
			s.metrics.IncCheck("store_error")
			return Result{http.StatusInternalServerError, BodyStoreFailed}
		}

		id, err := s.publisher.Publish(ctx, changeSubject, changeMessage)
		if err != nil {
			// The snapshot is stored; the next report will still see it.
			log.Sugar().Errorw("Failed to publish change event", "err", err)
		} else {
			log.Sugar().Infow("Published change event", "message_id", id)
		}
		s.metrics.IncCheck("changed")
		return Result{http.StatusOK, BodyChanged}
	}
}

// latestFingerprint returns "" when no fingerprint is stored or the store
// cannot be read.
func (s *Snapshotter) latestFingerprint(ctx context.Context, log *zap.Logger) models.Fingerprint {
	key, err := lib.DeriveKey(s.targetURL, lib.HashPrefix)
	if err != nil {
		log.Sugar().Errorw("Failed to derive hash key", "err", err)
		return ""
	}
	prefix := key + "_"

	obj, err := store.Latest(ctx, s.store, s.bucket, prefix)
	if err != nil {
		log.Sugar().Errorw("Error retrieving hash from store", "err", err)
		return ""
	}
	if obj == nil {
		log.Sugar().Infow("No stored hash", "prefix", prefix)
		return ""
	}

	body, err := s.store.GetObject(ctx, s.bucket, obj.Key)
	if err != nil {
		log.Sugar().Errorw("Error retrieving hash from store", "key", obj.Key, "err", err)
		return ""
	}
	return models.Fingerprint(body)
}

// storeUpdate archives the page, then writes the fingerprint computed from it.
func (s *Snapshotter) storeUpdate(ctx context.Context, hash models.Fingerprint, page []byte) error {
	now := s.now()

	hashKey, err := lib.DeriveKey(s.targetURL, lib.HashPrefix)
	if err != nil {
		return err
	}
	archiveKey, err := lib.DeriveKey(s.targetURL, lib.ArchivePrefix)
	if err != nil {
		return err
	}

	hashKey = lib.TimestampedKey(hashKey, now)
	archiveKey = lib.TimestampedKey(archiveKey, now) + ".html"

	// The archive goes first so the fingerprint never moves past an unarchived page.
	if err := s.store.PutObject(ctx, s.bucket, archiveKey, page, "text/html"); err != nil {
		return err
	}
	if err := s.store.PutObject(ctx, s.bucket, hashKey, []byte(hash), "text/plain"); err != nil {
		return err
	}

	s.log.Sugar().Infow("Stored snapshot", "hash_key", hashKey, "archive_key", archiveKey)
	return nil
}
