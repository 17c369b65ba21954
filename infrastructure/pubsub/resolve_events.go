package pubsub

import (
	"context"

	"terastream/infrastructure/logger"

	"cloud.google.com/go/pubsub"
)

// NewPubSub connects a Pub/Sub client for the configured project.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	return pubsub.NewClient(ctx, projectID)
}

// ResolveEventPublisher pushes resolve events onto a Pub/Sub topic. The
// client may be nil; publishing then becomes a no-op.
type ResolveEventPublisher struct {
	client *pubsub.Client
	topic  string
}

func NewResolveEventPublisher(client *pubsub.Client, topic string) *ResolveEventPublisher {
	return &ResolveEventPublisher{client: client, topic: topic}
}

func (p *ResolveEventPublisher) PublishResolved(ctx context.Context, payload []byte) error {
	if p.client == nil || p.topic == "" {
		return nil
	}
	topic := p.client.Topic(p.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		logger.GetLogger().WithField("topic", p.topic).Info("Topic doesn't exist - creating it")
		if _, err := p.client.CreateTopic(ctx, p.topic); err != nil {
			return err
		}
	}
	serverID, err := topic.Publish(ctx, &pubsub.Message{Data: payload}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().WithField("server ID", serverID).Debug("Resolve event published")
	return nil
}
