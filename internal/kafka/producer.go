package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/inventory-dashboard/internal/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer buffers messages and writes them from one goroutine so request
// handlers never block on the broker. Each message names its own topic.
type Producer struct {
	w         messageWriter
	inbox     chan kafka.Message
	closing   chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	log       logger.Logger
}

func NewProducer(brokers []string, buf int, log logger.Logger) *Producer {
	return newProducer(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}, buf, log)
}

func newProducer(w messageWriter, buf int, log logger.Logger) *Producer {
	if log == nil {
		log = logger.Nop()
	}
	return &Producer{
		w:       w,
		inbox:   make(chan kafka.Message, buf),
		closing: make(chan struct{}),
		closed:  make(chan struct{}),
		log:     log,
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closed)
		defer func() { _ = p.w.Close() }()
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case <-p.closing:
				p.drain()
				return
			case m := <-p.inbox:
				p.write(m)
			}
		}
	}()
}

func (p *Producer) drain() {
	for {
		select {
		case m := <-p.inbox:
			p.write(m)
		default:
			return
		}
	}
}

func (p *Producer) write(m kafka.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.w.WriteMessages(ctx, m); err != nil {
		p.log.Error("kafka write failed", logger.String("topic", m.Topic), logger.Error(err))
	}
}

// Publish never blocks. Messages published after Close, or while the buffer
// is full, are dropped and logged.
func (p *Producer) Publish(topic string, key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}
	select {
	case <-p.closing:
		p.log.Warn("producer closed, event dropped", logger.String("topic", topic))
	case <-p.closed:
		p.log.Warn("producer stopped, event dropped", logger.String("topic", topic))
	case p.inbox <- m:
	default:
		p.log.Warn("producer buffer full, event dropped", logger.String("topic", topic))
	}
}

// Close asks the loop to flush what is buffered and exit.
func (p *Producer) Close() { p.closeOnce.Do(func() { close(p.closing) }) }

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closed }
