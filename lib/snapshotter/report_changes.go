package snapshotter

import (
	"context"
	"fmt"
	"net/http"

	"github.com/fiffu/listingwatch/lib"
	"github.com/fiffu/listingwatch/lib/models"
	"github.com/fiffu/listingwatch/lib/store"
	"go.uber.org/zap"
)

const (
	BodyNotEnoughSnapshots = "Not enough snapshots to compare"
	BodyLoadFailed         = "Failed to load archived snapshots"

	reportSubject = "Listing update"
)

// ReportChanges diffs the listings of the two newest archived pages and sends
// one message per removed listing, then one per added listing, to every sender.
func (s *Snapshotter) ReportChanges(ctx context.Context, log *zap.Logger) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	older, newer, err := s.loadLatestPair(ctx)
	if err != nil {
		log.Sugar().Errorw("Failed to load archived snapshots", "err", err)
		s.metrics.IncReport("load_error")
		return Result{http.StatusInternalServerError, BodyLoadFailed}
	}
	if older == nil {
		log.Sugar().Info("Fewer than two archived snapshots, skipping report")
		s.metrics.IncReport("insufficient")
		return Result{http.StatusOK, BodyNotEnoughSnapshots}
	}

	olderListings, err := lib.ExtractListings(older.Body)
	if err != nil {
		log.Sugar().Errorw("Failed to parse snapshot", "key", older.Key, "err", err)
		s.metrics.IncReport("load_error")
		return Result{http.StatusInternalServerError, BodyLoadFailed}
	}
	newerListings, err := lib.ExtractListings(newer.Body)
	if err != nil {
		log.Sugar().Errorw("Failed to parse snapshot", "key", newer.Key, "err", err)
		s.metrics.IncReport("load_error")
		return Result{http.StatusInternalServerError, BodyLoadFailed}
	}

	diff := lib.Diff(olderListings, newerListings)
	s.metrics.AddChanges("added", len(diff.Added))
	s.metrics.AddChanges("removed", len(diff.Removed))
	s.metrics.AddChanges("updated", len(diff.Updated))
	log.Sugar().Infow("Compared snapshots",
		"older", older.Key,
		"newer", newer.Key,
		"added", len(diff.Added),
		"removed", len(diff.Removed),
		"updated", len(diff.Updated),
	)

	sent := 0
	for _, msg := range ChangeMessages(diff, log) {
		sent += s.broadcast(ctx, log, msg)
	}

	s.metrics.IncReport("ok")
	return Result{http.StatusOK, fmt.Sprintf("Sent %d notifications", sent)}
}

// ChangeMessages renders the removed listings followed by the added ones.
// Updated listings are not announced.
func ChangeMessages(diff models.DiffResult, log *zap.Logger) []string {
	msgs := make([]string, 0, len(diff.Removed)+len(diff.Added))
	for _, raw := range diff.Removed {
		msgs = append(msgs, "Removed: "+formatRaw(raw, log))
	}
	for _, raw := range diff.Added {
		msgs = append(msgs, "Added: "+formatRaw(raw, log))
	}
	return msgs
}

func formatRaw(raw string, log *zap.Logger) string {
	rec, err := lib.DecodeListing(raw)
	if err != nil {
		log.Sugar().Warnw("Listing has no structured data", "err", err)
	}
	return lib.FormatListing(rec)
}

// broadcast hands msg to every sender and returns how many accepted it.
func (s *Snapshotter) broadcast(ctx context.Context, log *zap.Logger, msg string) int {
	ok := 0
	for platform, sender := range s.senders {
		id, err := sender.Send(ctx, reportSubject, msg)
		if err != nil {
			log.Sugar().Errorw("Failed to send notification", "platform", platform, "err", err)
			s.metrics.IncNotification(platform, "error")
			continue
		}
		log.Sugar().Infow("Sent notification", "platform", platform, "id", id)
		s.metrics.IncNotification(platform, "ok")
		ok++
	}
	return ok
}

// loadLatestPair returns nil snapshots when fewer than two pages are archived.
func (s *Snapshotter) loadLatestPair(ctx context.Context) (older, newer *models.Snapshot, err error) {
	key, err := lib.DeriveKey(s.targetURL, lib.ArchivePrefix)
	if err != nil {
		return nil, nil, err
	}

	newerInfo, olderInfo, err := store.LatestTwo(ctx, s.store, s.bucket, key+"_")
	if err != nil || newerInfo == nil {
		return nil, nil, err
	}

	if older, err = s.loadSnapshot(ctx, *olderInfo); err != nil {
		return nil, nil, err
	}
	if newer, err = s.loadSnapshot(ctx, *newerInfo); err != nil {
		return nil, nil, err
	}
	return older, newer, nil
}

func (s *Snapshotter) loadSnapshot(ctx context.Context, info models.ObjectInfo) (*models.Snapshot, error) {
	body, err := s.store.GetObject(ctx, s.bucket, info.Key)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{ObjectInfo: info, Body: body}, nil
}
