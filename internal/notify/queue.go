package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"pixiv_watcher/internal/config"
	"pixiv_watcher/internal/domain"
)

// QueueSink fans every new item out as one persistent JSON message, for
// downstream consumers (archivers, secondary bots) hanging off the queue.
type QueueSink struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
	logger     *slog.Logger
}

func NewQueueSink(cfg config.QueueConfig, logger *slog.Logger) (*QueueSink, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	err = ch.QueueBind(
		q.Name,
		cfg.RoutingKey,
		cfg.Exchange,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	logger.Info("connected to rabbitmq",
		"exchange", cfg.Exchange,
		"queue", cfg.QueueName,
		"routing_key", cfg.RoutingKey,
	)

	return &QueueSink{
		conn:       conn,
		channel:    ch,
		exchange:   cfg.Exchange,
		routingKey: cfg.RoutingKey,
		logger:     logger,
	}, nil
}

// NovelMessage is the wire format published per item.
type NovelMessage struct {
	Item     domain.NovelItem `json:"item"`
	RunInfo  domain.RunInfo   `json:"run_info"`
	QueuedAt time.Time        `json:"queued_at"`
}

func (q *QueueSink) Name() string {
	return "queue"
}

// Send publishes one message per item. A failed publish is logged and the
// remaining items are still attempted.
func (q *QueueSink) Send(ctx context.Context, items []domain.NovelItem, info domain.RunInfo) error {
	if len(items) == 0 {
		return nil
	}

	var failed int
	for _, item := range items {
		if err := q.publish(ctx, item, info); err != nil {
			failed++
			q.logger.Error("publish item failed", "novel_id", item.ID, "error", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d items failed to publish", failed, len(items))
	}
	return nil
}

func (q *QueueSink) publish(ctx context.Context, item domain.NovelItem, info domain.RunInfo) error {
	msg := NovelMessage{
		Item:     item,
		RunInfo:  info,
		QueuedAt: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = q.channel.PublishWithContext(
		ctx,
		q.exchange,
		q.routingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	q.logger.Debug("published item", "novel_id", item.ID)
	return nil
}

func (q *QueueSink) Close() error {
	if q.channel != nil {
		q.channel.Close()
	}
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}
