package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"driver-companion/internal/general/contracts"
	"driver-companion/internal/general/logger"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPListener consumes push notifications from the driver's notification
// queue on the broker, the same queue the dispatch side publishes ride
// requests to. Manual acks; undecodable messages are dropped as poison.
type AMQPListener struct {
	url      string
	driverID string
	queue    string
	prefetch int
	logger   *logger.Logger

	msgs chan contracts.PushMessage
}

// NewAMQPListener creates an AMQP push listener for the given driver.
func NewAMQPListener(url, driverID string, prefetch int, lg *logger.Logger) *AMQPListener {
	if prefetch < 1 {
		prefetch = 1
	}
	return &AMQPListener{
		url:      url,
		driverID: driverID,
		queue:    contracts.QueueDriverNotificationsPrefix + driverID,
		prefetch: prefetch,
		logger:   lg,
		msgs:     make(chan contracts.PushMessage, 16),
	}
}

// Messages delivers decoded push envelopes.
func (l *AMQPListener) Messages() <-chan contracts.PushMessage {
	return l.msgs
}

// Run consumes until ctx is cancelled, reconnecting with capped exponential
// backoff on broker failures.
func (l *AMQPListener) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		err := l.consumeOnce(ctx)

		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			l.logger.Error(ctx, "push_amqp_disconnected", "Broker connection lost, will reconnect", err,
				map[string]any{"queue": l.queue, "backoff_seconds": backoff.Seconds()})
		} else {
			backoff = time.Second
		}

		sleepCtx(ctx, backoff)
		if ctx.Err() != nil {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

// consumeOnce handles one connection lifetime: dial, declare, consume.
func (l *AMQPListener) consumeOnce(ctx context.Context) error {
	conn, err := amqp.DialConfig(l.url, amqp.Config{
		Heartbeat: 10 * time.Second,                   // heartbeat interval
		Locale:    "en_US",                            // default locale
		Dial:      amqp.DefaultDial(30 * time.Second), // dial timeout
	})
	if err != nil {
		return fmt.Errorf("amqp dial failed: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp: failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(l.prefetch, 0, false); err != nil {
		return fmt.Errorf("amqp: set QoS (prefetch=%d): %w", l.prefetch, err)
	}

	// ensure this driver's notification queue exists and is bound
	if err := l.declareTopology(ch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(
		l.queue,
		"driver-companion", // consumerTag
		false,              // autoAck
		false,              // exclusive
		false,              // noLocal (ignored by RabbitMQ)
		false,              // noWait
		nil,                // args
	)
	if err != nil {
		return fmt.Errorf("amqp: consume(%s): %w", l.queue, err)
	}

	l.logger.Info(ctx, "push_connected", "Consuming driver notification queue",
		map[string]any{"queue": l.queue})

	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			_ = ch.Cancel("driver-companion", false)
			return nil

		case cerr := <-chClosed:
			if cerr != nil {
				return fmt.Errorf("amqp: channel closed while consuming %s: %w", l.queue, cerr)
			}
			return nil

		case d, ok := <-deliveries:
			if !ok {
				// deliveries stream ended
				return nil
			}

			var pm contracts.PushMessage
			if err := json.Unmarshal(d.Body, &pm); err != nil {
				l.logger.Error(ctx, "push_amqp_bad_message", "Dropping undecodable message", err,
					map[string]any{"queue": l.queue, "size": len(d.Body)})
				_ = d.Nack(false, false) // drop poison message
				continue
			}

			select {
			case l.msgs <- pm:
				_ = d.Ack(false)
			case <-ctx.Done():
				_ = d.Nack(false, true) // requeue; we are shutting down
				return nil
			}
		}
	}
}

// declareTopology declares the driver topic exchange, the per-driver queue,
// and its binding.
func (l *AMQPListener) declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(contracts.ExchangeDriverTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeDriverTopic, err)
	}
	if _, err := ch.QueueDeclare(l.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", l.queue, err)
	}
	if err := ch.QueueBind(l.queue, contracts.RouteDriverNotifyPrefix+l.driverID, contracts.ExchangeDriverTopic, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", l.queue, contracts.ExchangeDriverTopic, err)
	}
	return nil
}
