package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk/internal/config"
)

// AMQPSender publishes rendered reset emails to a durable RabbitMQ queue.
// A connection is opened per message; reset mail is low volume.
type AMQPSender struct {
	url    string
	queue  string
	from   string
	logger *zap.Logger
	now    func() time.Time
}

// NewAMQPSender creates an AMQPSender.
func NewAMQPSender(cfg config.MailConfig, logger *zap.Logger) *AMQPSender {
	return &AMQPSender{
		url:    cfg.AMQPURL,
		queue:  cfg.AMQPQueue,
		from:   cfg.From,
		logger: logger,
		now:    time.Now,
	}
}

func (s *AMQPSender) SendResetLink(ctx context.Context, to, link string) error {
	body, err := json.Marshal(ResetMessage(s.from, to, link))
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- s.publish(ctx, body)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *AMQPSender) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.DialConfig(s.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      contextDialer(ctx),
	})
	if err != nil {
		s.logger.Error("rabbitmq dial failed", zap.Error(err))
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(s.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    s.now().UTC(),
		Type:         "password_reset",
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", s.queue, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// contextDialer dials within ctx and applies its deadline to the socket.
func contextDialer(ctx context.Context) func(network, addr string) (net.Conn, error) {
	return func(network, addr string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if deadline, ok := ctx.Deadline(); ok {
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
		}
		return conn, nil
	}
}
