package kafka_middleware

import (
	"context"
	"time"

	"gotour/pkg/kafka"
	"gotour/pkg/metrics"
)

// MetricsProducerMiddleware records publish outcomes and latency per topic
func MetricsProducerMiddleware(m *metrics.Metrics) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		m.Published(msg.Topic, err, time.Since(start).Seconds())
		return err
	}
}
