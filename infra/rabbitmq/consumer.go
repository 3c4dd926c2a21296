package rabbitmq

import (
	"affiliate/pkg/events"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const handlerTimeout = 30 * time.Second

// EventHandler processes one consumed event. A returned error dead-letters
// the message.
type EventHandler func(ctx context.Context, event *events.Event) error

type Consumer struct {
	conn        *amqp.Connection
	channel     *amqp.Channel
	queueName   string
	serviceName string
	workers     int
}

type ConsumerConfig struct {
	Exchange       string   // e.g. "affiliate.click"
	QueueName      string   // e.g. "affiliate.click.recorded.v1"
	RoutingKeys    []string // e.g. ["click.recorded.v1"]
	ServiceName    string   // consumer tag
	PrefetchCount  int      // defaults to 10
	WorkerPoolSize int      // concurrent handlers, defaults to 1
}

// NewConsumer declares the exchange, the queue and its dead letter pair,
// and binds them to the configured routing keys.
func NewConsumer(url string, config ConsumerConfig) (*Consumer, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := setupTopology(channel, config); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	zap.L().Info("RabbitMQ consumer created successfully",
		zap.String("queue", config.QueueName),
		zap.String("exchange", config.Exchange),
		zap.Strings("routingKeys", config.RoutingKeys),
	)

	workers := config.WorkerPoolSize
	if workers <= 0 {
		workers = 1
	}

	return &Consumer{
		conn:        conn,
		channel:     channel,
		queueName:   config.QueueName,
		serviceName: config.ServiceName,
		workers:     workers,
	}, nil
}

func setupTopology(channel *amqp.Channel, config ConsumerConfig) error {
	prefetchCount := config.PrefetchCount
	if prefetchCount == 0 {
		prefetchCount = 10
	}
	if err := channel.Qos(prefetchCount, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	if err := declareTopicExchange(channel, config.Exchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	dlxName := config.Exchange + ".dlx"
	if err := declareTopicExchange(channel, dlxName); err != nil {
		return fmt.Errorf("failed to declare DLX: %w", err)
	}

	queue, err := channel.QueueDeclare(
		config.QueueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		amqp.Table{"x-dead-letter-exchange": dlxName},
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	dlqName := config.QueueName + ".dlq"
	if _, err := channel.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}

	for _, routingKey := range config.RoutingKeys {
		if err := channel.QueueBind(dlqName, routingKey, dlxName, false, nil); err != nil {
			return fmt.Errorf("failed to bind DLQ: %w", err)
		}
		if err := channel.QueueBind(queue.Name, routingKey, config.Exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue: %w", err)
		}
	}

	return nil
}

// Consume dispatches deliveries to handler on the worker pool until ctx is
// cancelled or the broker closes the channel. In-flight messages finish
// before it returns.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	msgs, err := c.channel.Consume(
		c.queueName,
		c.serviceName, // consumer tag
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	zap.L().Info("Started consuming messages",
		zap.String("queue", c.queueName),
		zap.Int("workers", c.workers),
	)

	errCh := make(chan error, c.workers)
	var wg sync.WaitGroup

	for range c.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errCh <- c.work(ctx, msgs, handler)
		}()
	}

	wg.Wait()
	close(errCh)

	return <-errCh
}

func (c *Consumer) work(ctx context.Context, msgs <-chan amqp.Delivery, handler EventHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				zap.L().Warn("Message channel closed", zap.String("queue", c.queueName))
				return errors.New("message channel closed")
			}
			c.handleMessage(ctx, msg, handler)
		}
	}
}

// acknowledger is the part of amqp.Delivery handleMessage needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Consumer) handleMessage(ctx context.Context, msg amqp.Delivery, handler EventHandler) {
	process(ctx, msg.Body, headersFromTable(msg.Headers), msg, handler)
}

// process decodes and handles one message body. Malformed and failed
// messages are rejected without requeue so they land in the DLQ.
func process(ctx context.Context, body []byte, headers events.Headers, ack acknowledger, handler EventHandler) {
	var event events.Event
	if err := json.Unmarshal(body, &event); err != nil {
		zap.L().Error("Failed to unmarshal event",
			zap.Error(err),
			zap.String("traceId", headers.TraceID),
		)
		_ = ack.Nack(false, false)
		return
	}

	// Shutdown must not abort a message already taken off the queue.
	processCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), handlerTimeout)
	defer cancel()

	if err := handler(processCtx, &event); err != nil {
		zap.L().Error("Failed to process event",
			zap.Error(err),
			zap.String("event", event.Event),
			zap.String("traceId", headers.TraceID),
			zap.String("sourceService", headers.Service),
		)
		_ = ack.Nack(false, false)
		return
	}

	if err := ack.Ack(false); err != nil {
		zap.L().Error("Failed to acknowledge message",
			zap.Error(err),
			zap.String("traceId", headers.TraceID),
		)
		return
	}

	zap.L().Debug("Processed event",
		zap.String("event", event.Event),
		zap.String("traceId", headers.TraceID),
	)
}

func (c *Consumer) Close() error {
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			zap.L().Error("Failed to close channel", zap.Error(err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			zap.L().Error("Failed to close connection", zap.Error(err))
			return err
		}
	}
	zap.L().Info("RabbitMQ consumer closed")
	return nil
}
