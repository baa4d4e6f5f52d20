package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// drainTimeout bounds how long Run waits for the subscription to drain.
const drainTimeout = 30 * time.Second

// Consumer feeds messages from a NATS subject to a Processor.
type Consumer struct {
	nc        *nats.Conn
	subject   string
	queue     string
	workers   int
	processor *Processor
	logger    *slog.Logger
}

// NewConsumer creates a consumer on subject. Consumers sharing a queue group
// split the subject's messages between them.
func NewConsumer(nc *nats.Conn, subject, queue string, workers int, p *Processor, logger *slog.Logger) *Consumer {
	if workers < 1 {
		workers = 1
	}
	return &Consumer{nc: nc, subject: subject, queue: queue, workers: workers, processor: p, logger: logger}
}

// Run processes messages until ctx is cancelled, then drains the
// subscription: messages already delivered are still processed before Run
// returns. Messages that fail to process are logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	msgs := make(chan *nats.Msg, c.workers*64)

	var sub *nats.Subscription
	var err error
	if c.queue != "" {
		sub, err = c.nc.ChanQueueSubscribe(c.subject, c.queue, msgs)
	} else {
		sub, err = c.nc.ChanSubscribe(c.subject, msgs)
	}
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", c.subject, err)
	}
	c.logger.Info("consumer started", "subject", c.subject, "queue", c.queue, "workers", c.workers)

	var wg sync.WaitGroup
	for range c.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.work(ctx, msgs)
		}()
	}

	<-ctx.Done()
	c.logger.Info("consumer stopping", "reason", ctx.Err())
	c.drain(sub)
	close(msgs)
	wg.Wait()
	return nil
}

// drain stops delivery to sub and waits until the subscription is closed,
// after which nothing more is sent on its channel.
func (c *Consumer) drain(sub *nats.Subscription) {
	closed := sub.StatusChanged(nats.SubscriptionClosed)
	if err := sub.Drain(); err != nil {
		c.logger.Warn("drain failed", "subject", c.subject, "error", err)
		_ = sub.Unsubscribe()
		return
	}
	select {
	case <-closed:
	case <-time.After(drainTimeout):
		c.logger.Warn("drain timed out", "subject", c.subject)
		_ = sub.Unsubscribe()
	}
}

// work handles messages until msgs is closed. Processing outlives the
// cancellation of ctx so that drained messages still reach the sinks.
func (c *Consumer) work(ctx context.Context, msgs <-chan *nats.Msg) {
	ctx = context.WithoutCancel(ctx)
	for msg := range msgs {
		c.handle(ctx, msg)
	}
}

func (c *Consumer) handle(ctx context.Context, msg *nats.Msg) {
	obs, err := c.processor.Handle(ctx, msg.Data)
	if err != nil {
		c.logger.Error("process message failed", "subject", msg.Subject, "id", obs.ID, "error", err)
		return
	}
	c.logger.Debug("processed report", "station", obs.Station, "parsed", obs.Parsed)
}
