package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// defaultDialTimeout bounds the TCP dial and AMQP handshake when the
// caller's context carries no deadline.
const defaultDialTimeout = 5 * time.Second

// Publisher sends order events to RabbitMQ.  Each publish opens its own
// connection; paid orders are rare enough that pooling is not worth the
// reconnect bookkeeping.  Errors are logged and returned so callers can
// ignore them without interrupting the request.
type Publisher struct {
	url    string
	logger *log.Logger
	dial   func(url string, cfg amqp.Config) (*amqp.Connection, error)
}

func NewPublisher(url string, logger *log.Logger) *Publisher {
	return &Publisher{url: url, logger: logger, dial: amqp.DialConfig}
}

// PublishOrderPaid publishes ev as a persistent JSON message to the
// order.paid queue.  The dial and handshake finish within ctx's deadline.
func (p *Publisher) PublishOrderPaid(ctx context.Context, ev OrderPaidEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	conn, err := p.dial(p.url, dialConfig(ctx))
	if err != nil {
		p.logger.Warnf("rabbitmq: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.logger.Warnf("rabbitmq: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareOrderQueue(ch); err != nil {
		p.logger.Warnf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         OrderPaidQueue,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",             // default exchange
		OrderPaidQueue, // routing key = queue name
		false,          // mandatory
		false,          // immediate
		pub,
	); err != nil {
		p.logger.Warnf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// dialConfig matches amqp.Dial's defaults but bounds the connection by
// ctx.
func dialConfig(ctx context.Context) amqp.Config {
	return amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout(ctx)),
	}
}

// dialTimeout is the time left before ctx's deadline, or
// defaultDialTimeout without one.  It never returns zero, which
// net.DialTimeout would treat as no limit.
func dialTimeout(ctx context.Context) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if d := time.Until(deadline); d > time.Millisecond {
		return d
	}
	return time.Millisecond
}

// declareOrderQueue is idempotent; durable so messages survive broker restarts.
func declareOrderQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(
		OrderPaidQueue, // name
		true,           // durable
		false,          // autoDelete
		false,          // exclusive
		false,          // noWait
		nil,            // args
	)
}
