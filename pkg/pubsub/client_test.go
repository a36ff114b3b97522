package pubsub

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/harvestlink/market-backend/pkg/config"
)

func TestTopicResourceName(t *testing.T) {
	assert.Equal(t, "projects/harvest/topics/order-events", TopicResourceName("harvest", "order-events"))
	assert.Equal(t, "projects/other/topics/x", TopicResourceName("harvest", "projects/other/topics/x"))
	assert.Equal(t, "projects/harvest/topics/trimmed", TopicResourceName(" harvest ", " trimmed "))
	assert.Empty(t, TopicResourceName("", "order-events"))
	assert.Empty(t, TopicResourceName("harvest", "  "))
}

func TestNewClientValidatesConfig(t *testing.T) {
	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{OrdersTopic: "orders"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "harvest"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoOrdersTopic)
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	assert.Nil(t, c.Publisher("orders"))
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.Ping(context.Background()), errNotInitialized)
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(status.Error(codes.NotFound, "topic gone")))
	assert.True(t, IsPermanent(fmt.Errorf("publish: %w", status.Error(codes.PermissionDenied, "no"))))
	assert.False(t, IsPermanent(status.Error(codes.Unavailable, "try later")))
	assert.False(t, IsPermanent(errors.New("plain")))
	assert.False(t, IsPermanent(nil))
}
