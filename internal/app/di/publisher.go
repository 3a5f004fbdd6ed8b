package di

import (
	"log"

	"safetysnap/internal/feature/images/usecase"
	"safetysnap/internal/platform/rabbitmq"
)

var _ usecase.EventPublisher = (*rabbitmq.Publisher)(nil)

// NewEventPublisher はRabbitMQのpublisherを作成します。
// URLが空、または接続できない場合はnilを返し、イベント通知なしで動作します。
func NewEventPublisher(url string) (usecase.EventPublisher, func()) {
	if url == "" {
		return nil, func() {}
	}
	p, err := rabbitmq.NewPublisher(url)
	if err != nil {
		log.Println("[WARN] RabbitMQ unavailable. Running without image events:", err)
		return nil, func() {}
	}
	return p, func() { _ = p.Close() }
}
