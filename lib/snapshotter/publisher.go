package snapshotter

import (
	"context"
	"time"

	"cloud.google.com/go/pubsub"
)

// Publisher announces that a new snapshot was archived.
type Publisher interface {
	Publish(ctx context.Context, subject, message string) (string, error)
}

// PubSubPublisher implements Publisher using a Pub/Sub topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

func NewPubSubPublisher(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic}
}

func (p *PubSubPublisher) Publish(ctx context.Context, subject, message string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return p.topic.Publish(ctx, &pubsub.Message{
		Data:       []byte(message),
		Attributes: map[string]string{"subject": subject},
	}).Get(ctx)
}

// Stop flushes pending publishes.
func (p *PubSubPublisher) Stop() {
	p.topic.Stop()
}
