package kafka

import (
	"context"
	"sync"

	"github.com/segmentio/kafka-go"

	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

// Producer publishes to any number of topics, one lazily created writer per topic
type Producer struct {
	mu      sync.Mutex
	writers map[string]*kafka.Writer
	brokers []string
	async   bool
	prefix  string
	log     *logger.Logger
}

// ProducerConfig holds producer configuration
type ProducerConfig struct {
	Brokers     []string
	Async       bool
	TopicPrefix string
}

func NewProducer(cfg ProducerConfig) *Producer {
	return &Producer{
		writers: make(map[string]*kafka.Writer),
		brokers: cfg.Brokers,
		async:   cfg.Async,
		prefix:  cfg.TopicPrefix,
		log:     logger.Get().With("component", "kafka_producer"),
	}
}

// Topic applies the configured prefix
func (p *Producer) Topic(name string) string {
	return p.prefix + name
}

func (p *Producer) getWriter(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if w, ok := p.writers[topic]; ok {
		return w
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		Async:                  p.async,
		AllowAutoTopicCreation: true,
	}

	p.writers[topic] = w
	return w
}

// PublishBinary sends an already encoded payload. Messages with the same key
// land on the same partition, so per-alert ordering holds.
func (p *Producer) PublishBinary(ctx context.Context, topic string, key, data []byte) error {
	topic = p.Topic(topic)
	msg := kafka.Message{Key: key, Value: data}

	if err := p.getWriter(topic).WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(errors.Join(errors.ErrExternal, err), "publish to %s", topic)
	}

	p.log.Debugw("Published message", "topic", topic, "key", string(key), "size_bytes", len(data))
	return nil
}

// Close closes all writers, returning the first failure
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs errors.MultiError
	for topic, w := range p.writers {
		if err := w.Close(); err != nil {
			errs.Add(errors.Wrapf(err, "close writer for %s", topic))
		}
	}
	return errs.ToError()
}
