// Package rabbitmq は画像ライフサイクルイベントをRabbitMQへ通知します。
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"safetysnap/internal/feature/images/domain/entity"
)

// ExchangeName はイベントを流すtopic exchangeです。ルーティングキーはイベント種別です。
const ExchangeName = "safetysnap.images"

// LoadURLFromEnv は AMQP_URL を返します。空の場合は通知無効です。
func LoadURLFromEnv() string {
	return os.Getenv("AMQP_URL")
}

// channel はテストで差し替えるための *amqp.Channel の部分集合です。
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher はイベントをJSONでexchangeへ発行します。
type Publisher struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   channel
}

// NewPublisher は接続してexchangeを宣言します。
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	slog.Info("RabbitMQ publisher initialized", "exchange", ExchangeName)
	return &Publisher{conn: conn, ch: ch}, nil
}

// PublishImageEvent はイベントを永続メッセージとして発行します。
func (p *Publisher) PublishImageEvent(ctx context.Context, evt entity.ImageEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		ExchangeName,
		string(evt.Type),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Timestamp:    evt.OccurredAt,
			MessageId:    fmt.Sprintf("%s-%d-%d", evt.Type, evt.ImageID, time.Now().UnixNano()),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", evt.Type, err)
	}
	return nil
}

// Close はチャネルと接続を閉じます。
func (p *Publisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			slog.Warn("error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			slog.Warn("error closing connection", "error", err)
		}
	}
	return nil
}
