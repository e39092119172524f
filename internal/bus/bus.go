// Package bus implements the metric/event transport described in spec §6:
// byte-oriented topics carrying JSON-encoded ContainerMetric, HttpMetric,
// ApplicationMetric, ScalingLog, and BindingEvent records. The teacher has
// no message bus of its own; this is grounded on the redis/go-redis/v9
// pub/sub client the wider example pack uses for the same role.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"autoscaler/internal/metrics"
)

// Topic names the channels the controller subscribes to or publishes on.
type Topic string

const (
	TopicContainerMetrics   Topic = "autoscaler.metrics.container"
	TopicHttpMetrics        Topic = "autoscaler.metrics.http"
	TopicApplicationMetrics Topic = "autoscaler.metrics.application"
	TopicScalingLogs        Topic = "autoscaler.scaling.log"
	TopicBindingEvents      Topic = "autoscaler.binding.event"
)

// Publisher is the narrow outbound contract the registry, aggregator, and
// scaler depend on, so they can be exercised against a fake in tests
// without a live Redis instance.
type Publisher interface {
	PublishApplicationMetric(metrics.ApplicationMetric)
	PublishScalingLog(metrics.ScalingLog)
	PublishBindingEvent(metrics.BindingEvent)
}

// Bus wraps a redis client, publishing each record type as JSON on its own
// topic and offering typed subscriptions for the two inbound raw-sample
// topics consumers.go reads from.
type Bus struct {
	rdb *redis.Client
}

// New builds a Bus around an already-configured redis client.
func New(rdb *redis.Client) *Bus {
	return &Bus{rdb: rdb}
}

func (b *Bus) publish(ctx context.Context, topic Topic, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		log.Printf("[bus] failed to marshal payload for %s: %v", topic, err)
		return
	}
	if err := b.rdb.Publish(ctx, string(topic), raw).Err(); err != nil {
		log.Printf("[bus] failed to publish to %s: %v", topic, err)
	}
}

// PublishApplicationMetric implements Publisher.
func (b *Bus) PublishApplicationMetric(m metrics.ApplicationMetric) {
	b.publish(context.Background(), TopicApplicationMetrics, m)
}

// PublishScalingLog implements Publisher.
func (b *Bus) PublishScalingLog(l metrics.ScalingLog) {
	b.publish(context.Background(), TopicScalingLogs, l)
}

// PublishBindingEvent implements Publisher.
func (b *Bus) PublishBindingEvent(e metrics.BindingEvent) {
	b.publish(context.Background(), TopicBindingEvents, e)
}

// SubscribeContainerMetrics subscribes to the raw container-metric topic
// and decodes each message, handing it to handle. It runs until ctx is
// canceled, the way the teacher's health.go polling loop runs until
// stopped.
func (b *Bus) SubscribeContainerMetrics(ctx context.Context, handle func(metrics.ContainerMetric)) error {
	return subscribeJSON(ctx, b.rdb, TopicContainerMetrics, handle)
}

// SubscribeHttpMetrics subscribes to the raw HTTP-metric topic.
func (b *Bus) SubscribeHttpMetrics(ctx context.Context, handle func(metrics.HttpMetric)) error {
	return subscribeJSON(ctx, b.rdb, TopicHttpMetrics, handle)
}

func subscribeJSON[T any](ctx context.Context, rdb *redis.Client, topic Topic, handle func(T)) error {
	sub := rdb.Subscribe(ctx, string(topic))
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("bus: subscription to %s closed", topic)
			}
			var v T
			if err := json.Unmarshal([]byte(msg.Payload), &v); err != nil {
				log.Printf("[bus] dropping malformed message on %s: %v", topic, err)
				continue
			}
			handle(v)
		}
	}
}
