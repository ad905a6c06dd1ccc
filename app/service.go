package app

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/fiffu/listingwatch/lib/snapshotter"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// jobs is what a trigger can run; *snapshotter.Snapshotter implements it.
type jobs interface {
	CheckForUpdates(ctx context.Context, log *zap.Logger) snapshotter.Result
	ReportChanges(ctx context.Context, log *zap.Logger) snapshotter.Result
}

type Service struct {
	log  *zap.Logger
	jobs jobs
}

func NewService(log *zap.Logger, snaps *snapshotter.Snapshotter) *Service {
	return &Service{log, snaps}
}

// Dispatch runs the reporter for change events and the checker for anything else.
func (svc *Service) Dispatch(ctx context.Context, payload []byte) (res snapshotter.Result) {
	log := svc.log.With(zap.String("invocation_id", uuid.NewString()))

	defer func() {
		if r := recover(); r != nil {
			log.Sugar().Errorw("Invocation panicked", "panic", r)
			res = snapshotter.Result{StatusCode: http.StatusInternalServerError, Body: snapshotter.BodyUnknownError}
		}
	}()

	if IsUpdateEvent(payload) {
		log.Sugar().Infow("Dispatching", "job", "report_changes")
		res = svc.jobs.ReportChanges(ctx, log)
	} else {
		log.Sugar().Infow("Dispatching", "job", "check_for_updates")
		res = svc.jobs.CheckForUpdates(ctx, log)
	}

	log.Sugar().Infow("Invocation finished", "status", res.StatusCode, "body", res.Body)
	return res
}

// pushEnvelope is the body of a Pub/Sub push delivery.
type pushEnvelope struct {
	Message struct {
		Data       []byte            `json:"data"`
		Attributes map[string]string `json:"attributes"`
		MessageID  string            `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// IsUpdateEvent reports whether payload is a push delivery carrying a change
// event. Malformed payloads are not.
func IsUpdateEvent(payload []byte) bool {
	var env pushEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return false
	}
	return len(env.Message.Data) > 0
}
