package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/rl1809/item-stock/internal/core/service"
	"github.com/rl1809/item-stock/internal/port"
)

// Error types published on the error topic.
const (
	ErrorTypeItemNotFound    = "ITEM_NOT_FOUND"
	ErrorTypeInvalidQuantity = "INVALID_QUANTITY"
	ErrorTypeUnexpected      = "UNEXPECTED_ERROR"
)

const readRetryDelay = time.Second

var errMissingQuantity = errors.New("quantity is required")

type IncrementStockMessage struct {
	ItemID   string `json:"itemId"`
	Quantity *int64 `json:"quantity"`
}

type StockIncrementedMessage struct {
	ItemID string `json:"itemId"`
	Stock  int64  `json:"stock"`
}

type IncrementStockErrorMessage struct {
	Type   string `json:"type"`
	ItemID string `json:"itemId"`
	Cause  string `json:"cause"`
}

// IdempotencyStore remembers which messages were already handled.
type IdempotencyStore interface {
	SetIdempotency(ctx context.Context, key string) (bool, error)
}

// KafkaHandler applies increment messages and routes each outcome to the
// success or the error producer.
type KafkaHandler struct {
	itemService ItemService
	success     port.Producer
	failure     port.Producer
	idempotency IdempotencyStore
	logger      *zap.Logger
}

// NewKafkaHandler builds the message adapter. idempotency may be nil, in
// which case redelivered messages are applied again.
func NewKafkaHandler(itemService ItemService, success, failure port.Producer, idempotency IdempotencyStore, logger *zap.Logger) *KafkaHandler {
	return &KafkaHandler{
		itemService: itemService,
		success:     success,
		failure:     failure,
		idempotency: idempotency,
		logger:      logger,
	}
}

// Start reads from consumer until ctx is done.
func (h *KafkaHandler) Start(ctx context.Context, consumer port.Consumer) error {
	h.logger.Info("increment stock listener started")

	for {
		msg, err := consumer.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break
			}
			h.logger.Error("failed to read message", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}

		if err := h.HandleIncrementStock(ctx, *msg); err != nil {
			h.logger.Error("failed to publish outcome, message will not be retried",
				zap.String("topic", msg.Topic),
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("increment stock listener stopped")
	return nil
}

// HandleIncrementStock processes one message. The returned error is only
// about publishing the outcome; service failures become error messages.
// The idempotency marker is set before the increment runs, so a message whose
// outcome could not be published is not applied again on redelivery.
func (h *KafkaHandler) HandleIncrementStock(ctx context.Context, msg kafka.Message) error {
	msgCtx := extractTraceContext(ctx, msg.Headers)

	if h.idempotency != nil {
		key := fmt.Sprintf("%s/%d/%d", msg.Topic, msg.Partition, msg.Offset)
		first, err := h.idempotency.SetIdempotency(msgCtx, key)
		if err != nil {
			h.logger.Warn("idempotency check failed, processing anyway", zap.String("key", key), zap.Error(err))
		} else if !first {
			h.logger.Debug("skipping redelivered message", zap.String("key", key))
			return nil
		}
	}

	var in IncrementStockMessage
	if err := json.Unmarshal(msg.Value, &in); err != nil {
		h.logger.Error("invalid increment message", zap.ByteString("raw_value", msg.Value), zap.Error(err))
		return h.publishError(msgCtx, ErrorTypeUnexpected, string(msg.Key), err)
	}
	id, err := parseItemID(in.ItemID)
	if err != nil {
		return h.publishError(msgCtx, ErrorTypeUnexpected, in.ItemID, err)
	}
	if in.Quantity == nil {
		h.logger.Error("increment message without quantity", zap.String("item_id", in.ItemID))
		return h.publishError(msgCtx, ErrorTypeUnexpected, in.ItemID, errMissingQuantity)
	}

	id, stock, err := h.itemService.IncrementItemStock(msgCtx, id, *in.Quantity)
	if err != nil {
		return h.publishError(msgCtx, h.errorType(err), in.ItemID, err)
	}
	return h.publish(msgCtx, h.success, id.String(), StockIncrementedMessage{ItemID: id.String(), Stock: stock})
}

func (h *KafkaHandler) errorType(err error) string {
	switch service.KindOf(err) {
	case service.KindNotFound:
		return ErrorTypeItemNotFound
	case service.KindInvalidArgument:
		return ErrorTypeInvalidQuantity
	}
	h.logger.Error("unexpected error during stock increment", zap.Error(err))
	return ErrorTypeUnexpected
}

func (h *KafkaHandler) publishError(ctx context.Context, errorType, itemID string, cause error) error {
	return h.publish(ctx, h.failure, itemID, IncrementStockErrorMessage{
		Type:   errorType,
		ItemID: itemID,
		Cause:  cause.Error(),
	})
}

func (h *KafkaHandler) publish(ctx context.Context, producer port.Producer, key string, payload any) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}
	if err := producer.WriteMessage(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		return fmt.Errorf("write outcome for %s: %w", key, err)
	}
	return nil
}

func extractTraceContext(ctx context.Context, headers []kafka.Header) context.Context {
	carrier := propagation.MapCarrier{}
	for _, header := range headers {
		carrier[header.Key] = string(header.Value)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
