package servicebus

import (
	"context"

	"terastream/infrastructure/logger"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"
)

// NewServiceBus connects an Azure Service Bus client using the default
// credential chain.
func NewServiceBus(namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

// ResolveEventPublisher pushes resolve events onto a Service Bus queue. The
// client may be nil; publishing then becomes a no-op.
type ResolveEventPublisher struct {
	client *azservicebus.Client
	queue  string
}

func NewResolveEventPublisher(client *azservicebus.Client, queue string) *ResolveEventPublisher {
	return &ResolveEventPublisher{client: client, queue: queue}
}

func (p *ResolveEventPublisher) PublishResolved(ctx context.Context, payload []byte) error {
	if p.client == nil || p.queue == "" {
		return nil
	}
	sender, err := p.client.NewSender(p.queue, nil)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while making new sender service bus.")
		return err
	}
	defer func() {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing sender.")
		}
	}()
	return sender.SendMessage(ctx, &azservicebus.Message{Body: payload}, nil)
}
