package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fahrez/warungpos-inventory-service/internal/apperrors"
	"github.com/fahrez/warungpos-inventory-service/internal/stock"
	"github.com/fahrez/warungpos-inventory-service/internal/stock/dto"
	"github.com/fahrez/warungpos-inventory-service/pkg/broker"
	"go.uber.org/zap"
)

// StockListener consumes order events and commits the corresponding sale.
// One order maps to one CommitSale call, so the whole order's stock removal
// is atomic.
type StockListener struct {
	consumer *broker.KafkaConsumer
	uc       stock.UseCase
	logger   *zap.Logger
}

func NewStockListener(consumer *broker.KafkaConsumer, uc stock.UseCase, logger *zap.Logger) *StockListener {
	return &StockListener{
		consumer: consumer,
		uc:       uc,
		logger:   logger,
	}
}

func (l *StockListener) Start(ctx context.Context) {
	l.logger.Info("Starting stock Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping stock Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID    string             `json:"id"`
	Items []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

func (l *StockListener) processMessage(ctx context.Context, value []byte) {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != "OrderCreated" {
		return
	}

	l.logger.Info("Processing OrderCreated event", zap.String("order_id", event.Payload.ID))

	input := &dto.SaleInput{
		Note:    "order " + event.Payload.ID,
		ActorID: "system",
	}
	for _, item := range event.Payload.Items {
		input.Items = append(input.Items, dto.SaleItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	if _, err := l.uc.CommitSale(ctx, input); err != nil {
		// Expected outcomes (insufficient stock) are business rejections of
		// the order, not listener failures.
		switch apperrors.CodeOf(err) {
		case apperrors.CodeInsufficientStock, apperrors.CodeInvalidRequest:
			l.logger.Warn("Order rejected by stock commit",
				zap.String("order_id", event.Payload.ID),
				zap.Error(err),
			)
		default:
			l.logger.Error("Failed to commit sale for order",
				zap.String("order_id", event.Payload.ID),
				zap.Error(err),
			)
		}
	}
}
