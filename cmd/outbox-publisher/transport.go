package main

import (
	"context"
	"errors"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/harvestlink/market-backend/pkg/outbox/registry"
	"github.com/harvestlink/market-backend/pkg/pubsub"
)

// outboundMessage is the broker-neutral form of an outbox row.
type outboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

// transport delivers messages to one broker and blocks until it acknowledges.
type transport interface {
	Name() string
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic string, msg outboundMessage) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubSubTransport struct {
	client  pubSubClient
	factory publisherFactory
}

func newPubSubTransport(client pubSubClient, factory publisherFactory) *pubSubTransport {
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPublisher(client.Publisher(topic))
		}
	}
	return &pubSubTransport{client: client, factory: factory}
}

func (t *pubSubTransport) Name() string { return "pubsub" }

func (t *pubSubTransport) Ping(ctx context.Context) error { return t.client.Ping(ctx) }

func (t *pubSubTransport) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	pub := t.factory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data:        msg.Data,
		Attributes:  msg.Attributes,
		OrderingKey: msg.Key,
	})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	if _, err := result.Get(ctx); err != nil {
		if pubsub.IsPermanent(err) {
			return registry.NewNonRetryableError(err)
		}
		return err
	}
	return nil
}

func newGCPPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{
		PublishResult: p.Publisher.Publish(ctx, msg),
		resume:        func() { p.ResumePublish(msg.OrderingKey) },
	}
}

// gcpPublishResult resumes the ordering key after a failure; an ordered publisher otherwise
// rejects every later message with that key.
type gcpPublishResult struct {
	*gcppubsub.PublishResult
	resume func()
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.PublishResult.Get(ctx)
	if err != nil && r.resume != nil {
		r.resume()
	}
	return id, err
}

type kafkaProducer interface {
	Ping(ctx context.Context) error
	Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error
}

type kafkaTransport struct {
	producer kafkaProducer
}

func (t *kafkaTransport) Name() string { return "kafka" }

func (t *kafkaTransport) Ping(ctx context.Context) error { return t.producer.Ping(ctx) }

func (t *kafkaTransport) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	if topic == "" {
		return registry.NewNonRetryableError(errors.New("kafka topic not configured"))
	}
	return t.producer.Publish(ctx, topic, msg.Key, msg.Data, msg.Attributes)
}
