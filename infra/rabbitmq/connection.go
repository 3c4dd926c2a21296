package rabbitmq

import (
	"affiliate/pkg/events"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dialAttempts = 5

// dial connects to the broker, backing off linearly between attempts.
func dial(url string) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error

	for i := 0; i < dialAttempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		zap.L().Warn("Failed to connect to RabbitMQ, retrying...",
			zap.Int("attempt", i+1),
			zap.Error(err))
		time.Sleep(time.Second * time.Duration(i+1))
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after retries: %w", err)
}

func declareTopicExchange(ch *amqp.Channel, name string) error {
	return ch.ExchangeDeclare(
		name,    // name
		"topic", // type
		true,    // durable
		false,   // auto-deleted
		false,   // internal
		false,   // no-wait
		nil,     // arguments
	)
}

func messageHeaders(headers events.Headers, service string) amqp.Table {
	if headers.Service != "" {
		service = headers.Service
	}

	return amqp.Table{
		"x-trace-id":       headers.TraceID,
		"x-correlation-id": headers.CorrelationID,
		"x-service":        service,
	}
}

func headersFromTable(table amqp.Table) events.Headers {
	traceID, _ := table["x-trace-id"].(string)
	correlationID, _ := table["x-correlation-id"].(string)
	service, _ := table["x-service"].(string)

	return events.Headers{
		TraceID:       traceID,
		CorrelationID: correlationID,
		Service:       service,
	}
}
