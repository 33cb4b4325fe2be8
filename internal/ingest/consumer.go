package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prudhvinik1/nurseaide/internal/models"
	"go.uber.org/zap"
)

// RequestWriter stores a new request in the remote collection.
type RequestWriter interface {
	PutChild(ctx context.Context, path string, child models.RequestChild) (string, error)
}

// Subscriber is the part of MQTTClient the consumer needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
	Unsubscribe(topics ...string) error
}

// RequestConsumer writes requests published by bedside devices into the
// remote collection. Dashboards see them through their normal subscription.
type RequestConsumer struct {
	subscriber Subscriber
	writer     RequestWriter
	path       string
	topic      string
	timeout    time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

func NewRequestConsumer(subscriber Subscriber, writer RequestWriter, path, topic string, logger *zap.Logger) *RequestConsumer {
	return &RequestConsumer{
		subscriber: subscriber,
		writer:     writer,
		path:       path,
		topic:      topic,
		timeout:    5 * time.Second,
		logger:     logger,
		now:        time.Now,
	}
}

// Start subscribes and blocks until ctx is cancelled.
func (c *RequestConsumer) Start(ctx context.Context) error {
	if err := c.subscriber.Subscribe(c.topic, 1, c.handleMessage); err != nil {
		return err
	}
	c.logger.Info("request consumer started", zap.String("topic", c.topic))

	<-ctx.Done()

	if err := c.subscriber.Unsubscribe(c.topic); err != nil {
		c.logger.Warn("failed to unsubscribe", zap.Error(err))
	}
	c.logger.Info("request consumer stopped")
	return nil
}

func (c *RequestConsumer) handleMessage(topic string, payload []byte) error {
	var child models.RequestChild
	if err := json.Unmarshal(payload, &child); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}
	if child.Timestamp == 0 {
		child.Timestamp = float64(c.now().UnixMilli())
	}
	if err := child.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	id, err := c.writer.PutChild(ctx, c.path, child)
	if err != nil {
		return err
	}

	c.logger.Info("request received from device",
		zap.String("topic", topic),
		zap.String("request_id", id),
		zap.String("type", child.Type),
		zap.String("room", child.RoomNumber),
	)
	return nil
}
