package main

import (
	"context"
	"errors"
	"testing"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/harvestlink/market-backend/pkg/outbox/registry"
)

func TestPubSubTransportWaitsForResult(t *testing.T) {
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: errors.New("deadline")}}}
	tr := newPubSubTransport(&fakePubSubClient{}, func(topic string) publisher {
		assert.Equal(t, "orders", topic)
		return pub
	})

	err := tr.Publish(context.Background(), "orders", outboundMessage{
		Key:        "order-1",
		Data:       []byte(`{"version":1}`),
		Attributes: map[string]string{"event_type": "order_created"},
	})
	require.EqualError(t, err, "deadline")
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "order_created", pub.messages[0].Attributes["event_type"])
	assert.Equal(t, "pubsub", tr.Name())
}

func TestPubSubTransportOrdersByAggregateKey(t *testing.T) {
	pub := &fakePublisher{}
	tr := newPubSubTransport(&fakePubSubClient{}, func(string) publisher { return pub })

	require.NoError(t, tr.Publish(context.Background(), "orders", outboundMessage{Key: "order-7"}))
	require.Len(t, pub.messages, 1)
	assert.Equal(t, "order-7", pub.messages[0].OrderingKey)
}

func TestPubSubTransportPermanentStatusIsTerminal(t *testing.T) {
	pub := &fakePublisher{results: []publishResult{fakePublishResult{err: status.Error(codes.NotFound, "topic deleted")}}}
	tr := newPubSubTransport(&fakePubSubClient{}, func(string) publisher { return pub })

	err := tr.Publish(context.Background(), "orders", outboundMessage{Key: "order-7"})
	var nonRetry registry.NonRetryableError
	require.ErrorAs(t, err, &nonRetry)

	pub.results = []publishResult{fakePublishResult{err: status.Error(codes.Unavailable, "busy")}}
	err = tr.Publish(context.Background(), "orders", outboundMessage{Key: "order-7"})
	require.Error(t, err)
	assert.False(t, errors.As(err, &nonRetry))
}

func TestPubSubTransportMissingPublisherIsTerminal(t *testing.T) {
	tr := newPubSubTransport(&fakePubSubClient{}, func(string) publisher { return nil })

	err := tr.Publish(context.Background(), "orders", outboundMessage{})
	var nonRetry registry.NonRetryableError
	require.ErrorAs(t, err, &nonRetry)
}

func TestPubSubTransportDefaultFactoryUsesClientPublisher(t *testing.T) {
	client := &fakePubSubClient{}
	tr := newPubSubTransport(client, nil)

	err := tr.Publish(context.Background(), "orders", outboundMessage{})
	var nonRetry registry.NonRetryableError
	require.ErrorAs(t, err, &nonRetry)
	assert.Equal(t, []string{"orders"}, client.requested)
}

func TestKafkaTransportForwardsKeyAndHeaders(t *testing.T) {
	producer := &fakeKafkaProducer{}
	tr := &kafkaTransport{producer: producer}

	err := tr.Publish(context.Background(), "orders.lifecycle", outboundMessage{
		Key:        "agg-1",
		Data:       []byte("payload"),
		Attributes: map[string]string{"event_id": "evt-1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "orders.lifecycle", producer.topic)
	assert.Equal(t, "agg-1", producer.key)
	assert.Equal(t, "evt-1", producer.headers["event_id"])
	assert.Equal(t, "kafka", tr.Name())
}

func TestKafkaTransportRequiresTopic(t *testing.T) {
	tr := &kafkaTransport{producer: &fakeKafkaProducer{}}

	err := tr.Publish(context.Background(), "", outboundMessage{})
	var nonRetry registry.NonRetryableError
	require.ErrorAs(t, err, &nonRetry)
}

type fakePubSubClient struct {
	requested []string
}

func (f *fakePubSubClient) Ping(context.Context) error { return nil }

func (f *fakePubSubClient) Publisher(name string) *gcppubsub.Publisher {
	f.requested = append(f.requested, name)
	return nil
}

type fakePublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (f *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	f.messages = append(f.messages, msg)
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "server-id", f.err
}

type fakeKafkaProducer struct {
	topic   string
	key     string
	headers map[string]string
}

func (f *fakeKafkaProducer) Ping(context.Context) error { return nil }

func (f *fakeKafkaProducer) Publish(_ context.Context, topic, key string, _ []byte, headers map[string]string) error {
	f.topic = topic
	f.key = key
	f.headers = headers
	return nil
}
