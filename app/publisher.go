package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/fiffu/listingwatch/config"
	"github.com/fiffu/listingwatch/lib/snapshotter"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewPublisher connects to the change-event topic. The topic must already exist.
func NewPublisher(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (snapshotter.Publisher, error) {
	client, err := pubsub.NewClient(context.Background(), cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	pub := snapshotter.NewPubSubPublisher(client.Topic(cfg.PubSub.TopicID))

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Sugar().Infow("Publishing change events", "project", cfg.PubSub.ProjectID, "topic", cfg.PubSub.TopicID)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			pub.Stop()
			return client.Close()
		},
	})
	return pub, nil
}
