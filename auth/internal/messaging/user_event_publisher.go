package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"identity-server/shared/interfaces"
	"identity-server/shared/models"
)

const (
	userEventsExchange     = "user_events"
	userEventsExchangeType = "fanout"
)

// Compile-time check
var _ interfaces.UserEventPublisher = (*RabbitMQUserEventPublisher)(nil)

// RabbitMQUserEventPublisher broadcasts account lifecycle events on a
// fanout exchange so every interested service gets its own copy.
type RabbitMQUserEventPublisher struct {
	conn   *amqp091.Connection
	ch     *amqp091.Channel
	logger *zap.Logger
}

// NewRabbitMQUserEventPublisher opens a channel and declares the exchange.
func NewRabbitMQUserEventPublisher(conn *amqp091.Connection, logger *zap.Logger) (*RabbitMQUserEventPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open a channel for user events", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		userEventsExchange,
		userEventsExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		logger.Error("Failed to declare user events exchange", zap.String("exchange", userEventsExchange), zap.Error(err))
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", userEventsExchange, err)
	}

	logger.Info("User events exchange declared", zap.String("exchange", userEventsExchange))

	return &RabbitMQUserEventPublisher{
		conn:   conn,
		ch:     ch,
		logger: logger.Named("UserEventPublisher"),
	}, nil
}

// PublishUserVerified broadcasts a verification event. The routing key is
// empty; fanout ignores it.
func (p *RabbitMQUserEventPublisher) PublishUserVerified(ctx context.Context, event *models.UserVerifiedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("Failed to marshal user verified event", zap.Error(err))
		return fmt.Errorf("failed to marshal user verified event: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		userEventsExchange,
		"",    // routing key
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish user verified event", zap.Error(err), zap.String("userID", event.UserID.String()))
		return fmt.Errorf("failed to publish user verified event: %w", err)
	}

	p.logger.Info("User verified event published", zap.String("userID", event.UserID.String()))
	return nil
}

// Close releases the channel.
func (p *RabbitMQUserEventPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
