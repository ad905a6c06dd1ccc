package snapshotter

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/fiffu/listingwatch/config"
	"github.com/fiffu/listingwatch/lib"
	"github.com/fiffu/listingwatch/lib/store"
	"github.com/fiffu/listingwatch/senders"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Result is the outcome of one invocation, shaped like an HTTP response.
type Result struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

type Snapshotter struct {
	log       *zap.Logger
	store     store.ObjectStore
	transport http.RoundTripper
	publisher Publisher
	senders   senders.Registry
	metrics   *Metrics

	targetURL    string
	bucket       string
	fetchTimeout time.Duration

	alarmClock *alarmClock
	now        func() time.Time

	// mu serializes checks and reports.
	mu sync.Mutex
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Log       *zap.Logger
	Store     store.ObjectStore
	Transport http.RoundTripper
	Publisher Publisher
	Senders   senders.Registry
	Metrics   *Metrics
}

func NewSnapshotter(p Params) *Snapshotter {
	s := &Snapshotter{
		log:          p.Log,
		store:        p.Store,
		transport:    p.Transport,
		publisher:    p.Publisher,
		senders:      p.Senders,
		metrics:      p.Metrics,
		targetURL:    p.Config.TargetURL,
		bucket:       p.Config.Bucket,
		fetchTimeout: p.Config.FetchTimeout,
		now:          time.Now,
	}

	if interval := p.Config.CheckInterval; interval > 0 {
		s.alarmClock = NewAlarmClock(interval)

		p.Lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// ctx only lives as long as the start hook.
				s.Start(context.Background())
				return nil
			},
			OnStop: func(ctx context.Context) error {
				p.Log.Sugar().Info("Trying to stop snapshotter")
				s.Stop()
				return nil
			},
		})
	} else {
		p.Log.Sugar().Info("Ticker is disabled; checks run only on trigger")
	}

	return s
}

func (s *Snapshotter) Start(ctx context.Context) {
	c := s.alarmClock.Start(ctx)

	go func() {
		for evt := range c {
			s.handleEvent(evt)
		}
	}()
}

func (s *Snapshotter) Stop() {
	s.alarmClock.Stop()
	s.log.Sugar().Info("Snapshotter stopped")
}

func (s *Snapshotter) handleEvent(evt Event) {
	ctx := context.Background()
	switch evt.(type) {
	case checkWakeupEvent:
		res := s.CheckForUpdates(ctx, s.log)
		s.log.Sugar().Infow("Scheduled check finished", "woke_at", evt.Timestamp(), "status", res.StatusCode, "body", res.Body)
	}
}

// FetchPage retrieves the monitored page. Any transport failure or non-2xx
// status is returned as a *lib.FetchError.
func (s *Snapshotter) FetchPage(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var buf bytes.Buffer
	err := requests.URL(s.targetURL).
		Transport(s.transport).
		ToBytesBuffer(&buf).
		Fetch(ctx)
	if err != nil {
		return nil, &lib.FetchError{URL: s.targetURL, Err: err}
	}
	return buf.Bytes(), nil
}
