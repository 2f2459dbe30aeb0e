// Package amqp publishes and consumes ledger events over RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
)

// ErrCircuitOpen is returned by Publish while the broker is considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

var errClientClosed = errors.New("amqp client closed")

type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel
	closed  bool

	state        int32
	failureCount int64
	lastFailure  time.Time

	// at most one reconnect loop runs at a time
	reconnecting atomic.Bool
	dial         func() error
	backoff      func(attempt int) time.Duration
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		backoff:      exponentialBackoff,
	}
	c.dial = c.connect
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		channel.Close()
		conn.Close()
		return errClientClosed
	}
	oldConn, oldChannel := c.conn, c.channel
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	if oldChannel != nil {
		oldChannel.Close()
	}
	if oldConn != nil {
		oldConn.Close()
	}
	return nil
}

func (c *Client) setup(ch *amqp091.Channel) error {
	err := ch.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := ch.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishEvent publishes a persistent JSON event.
func (c *Client) PublishEvent(ctx context.Context, event *LedgerEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		eventsPublished.WithLabelValues(string(event.Kind), "rejected").Inc()
		return fmt.Errorf("publish %s: %w", event.Kind, ErrCircuitOpen)
	}

	body, err := event.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: channel not open", event.Kind)
	}

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    event.ID,
			Timestamp:    event.Timestamp,
			Type:         string(event.Kind),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		eventsPublished.WithLabelValues(string(event.Kind), "error").Inc()
		if isConnectionError(err) {
			c.startReconnect()
		}
		return fmt.Errorf("publish message: %w", err)
	}

	c.recordSuccess()
	eventsPublished.WithLabelValues(string(event.Kind), "ok").Inc()
	slog.DebugContext(ctx, "Published ledger event",
		"event_id", event.ID,
		"kind", event.Kind,
		"exchange", c.exchangeName)
	return nil
}

// ConsumeEvents delivers events to handler until ctx is done. Handler errors
// requeue the delivery; undecodable payloads are dropped.
func (c *Client) ConsumeEvents(ctx context.Context, prefetch int, handler func(context.Context, *LedgerEvent) error) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("channel not open")
	}

	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName, "prefetch", prefetch)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return errors.New("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *LedgerEvent) error) {
	event, err := LedgerEventFromJSON(d.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal event", "error", err)
		eventsConsumed.WithLabelValues("dropped").Inc()
		d.Nack(false, false)
		return
	}

	if err := handler(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to handle event",
			"error", err,
			"event_id", event.ID,
			"kind", event.Kind,
			"redelivered", d.Redelivered)
		eventsConsumed.WithLabelValues("requeued").Inc()
		d.Nack(false, true)
		return
	}

	d.Ack(false)
	eventsConsumed.WithLabelValues("ok").Inc()
}

// startReconnect launches the reconnect loop unless one is already running.
func (c *Client) startReconnect() {
	if !c.reconnecting.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.reconnecting.Store(false)
		c.reconnect()
	}()
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// reconnect redials with exponential backoff until it succeeds, the client
// is closed or maxFailures attempts have failed.
func (c *Client) reconnect() {
	dial, backoff := c.dial, c.backoff
	if dial == nil {
		dial = c.connect
	}
	if backoff == nil {
		backoff = exponentialBackoff
	}
	for attempt := 0; attempt < maxFailures; attempt++ {
		time.Sleep(backoff(attempt))
		if c.isClosed() {
			return
		}
		if err := dial(); err != nil {
			slog.Warn("AMQP reconnect failed", "attempt", attempt+1, "error", err)
			continue
		}
		slog.Info("AMQP reconnected", "attempt", attempt+1)
		c.recordSuccess()
		return
	}
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.mu.Lock()
	last := c.lastFailure
	c.mu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.StoreInt32(&c.state, StateHalfOpen)
		circuitState.Set(float64(StateHalfOpen))
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
	circuitState.Set(float64(StateClosed))
}

func (c *Client) recordFailure() {
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
		circuitState.Set(float64(StateOpen))
	}
}

func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << attempt
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	ch, conn := c.channel, c.conn
	c.channel, c.conn = nil, nil
	if ch != nil {
		ch.Close()
	}
	if conn != nil {
		return conn.Close()
	}
	return nil
}
