package broker

import (
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	writerBatchTimeout = 10 * time.Millisecond
	writerBatchSize    = 1
)

type ReaderConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type WriterConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// NewReader returns a consumer-group reader that starts a span per message.
func NewReader(cfg ReaderConfig) (*otelkafka.Reader, error) {
	base := kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		Topic:   cfg.Topic,
		GroupID: cfg.GroupID,
	})
	return otelkafka.NewReader(base)
}

// NewWriter returns a writer that injects the trace context into headers.
func NewWriter(cfg WriterConfig, tp trace.TracerProvider) (*otelkafka.Writer, error) {
	base := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: writerBatchTimeout,
		BatchSize:    writerBatchSize,
	}

	return otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(tp),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes(
			[]attribute.KeyValue{
				semconv.MessagingDestinationNameKey.String(cfg.Topic),
				attribute.String("messaging.kafka.client_id", cfg.ClientID),
			},
		),
	)
}
