package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/inventory-dashboard/internal/logger"
)

// Handler must return nil only when the message is done and its offset may be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r          messageReader
	workers    int
	log        logger.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewConsumer(brokers []string, group, topic string, workers int, log logger.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, log)
}

func newConsumer(r messageReader, workers int, log logger.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Consumer{r: r, workers: workers, log: log, backoff: 200 * time.Millisecond, maxBackoff: 10 * time.Second}
}

// Start fetches until ctx ends. Each partition is pinned to one worker, and
// a worker does not move past a message until the handler accepts it, so
// offsets are committed in order and a failed message is never skipped.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		queues[i] = make(chan kafka.Message, 64)
		wg.Add(1)
		go func(id int, jobs <-chan kafka.Message) {
			defer wg.Done()
			for m := range jobs {
				if !c.handle(ctx, id, h, m) {
					return
				}
			}
		}(i, queues[i])
	}
	defer wg.Wait()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[m.Partition%c.workers] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

// handle retries h with backoff until it succeeds, then commits. It reports
// false when ctx ended first; the offset then stays uncommitted.
func (c *Consumer) handle(ctx context.Context, worker int, h Handler, m kafka.Message) bool {
	wait := c.backoff
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			break
		}
		c.log.Error("handler failed, retrying",
			logger.Int("worker", worker),
			logger.Int("partition", m.Partition),
			logger.Int64("offset", m.Offset),
			logger.Int("attempt", attempt),
			logger.Error(err))
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		wait = min(wait*2, c.maxBackoff)
	}
	if err := c.r.CommitMessages(ctx, m); err != nil {
		c.log.Warn("commit failed", logger.Int64("offset", m.Offset), logger.Error(err))
		return ctx.Err() == nil
	}
	return true
}
