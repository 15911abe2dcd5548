package events

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"stockwatch/internal/adapters/kafka"
	"stockwatch/internal/domain/alert"
	"stockwatch/internal/metrics"
	"stockwatch/pkg/errors"
	"stockwatch/pkg/logger"
)

const (
	eventSource  = "stockwatch"
	eventVersion = "1.0"
)

// BinaryProducer is the slice of the Kafka producer the publisher needs
type BinaryProducer interface {
	PublishBinary(ctx context.Context, topic string, key, data []byte) error
}

// AlertPublisher implements alert.Publisher over Kafka. Payloads are
// protobuf-encoded google.protobuf.Struct values keyed by alert id.
type AlertPublisher struct {
	producer BinaryProducer
	log      *logger.Logger
}

var _ alert.Publisher = (*AlertPublisher)(nil)

func NewAlertPublisher(producer BinaryProducer) *AlertPublisher {
	return &AlertPublisher{
		producer: producer,
		log:      logger.Get().With("component", "alert_publisher"),
	}
}

// TopicFor maps an event type to its topic
func TopicFor(t alert.EventType) string {
	if t == alert.EventRearmed {
		return kafka.TopicAlertsRearmed
	}
	return kafka.TopicAlertsTriggered
}

func (p *AlertPublisher) PublishAlertEvent(ctx context.Context, ev alert.Event) error {
	data, err := EncodeAlertEvent(ev)
	if err != nil {
		return err
	}

	topic := TopicFor(ev.Type)
	err = p.producer.PublishBinary(ctx, topic, []byte(ev.AlertID.String()), data)
	metrics.RecordKafkaMessage(topic, err)
	if err != nil {
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("Alert event published",
		"topic", topic,
		"type", ev.Type,
		"alert_id", ev.AlertID,
		"size_bytes", len(data),
	)
	return nil
}

// EncodeAlertEvent serializes ev. Free-text fields are forced to valid UTF-8
// since protobuf rejects anything else.
func EncodeAlertEvent(ev alert.Event) ([]byte, error) {
	payload, err := structpb.NewStruct(map[string]interface{}{
		"id":             uuid.NewString(),
		"type":           string(ev.Type),
		"source":         eventSource,
		"version":        eventVersion,
		"alert_id":       ev.AlertID.String(),
		"user_id":        ev.UserID.String(),
		"symbol":         sanitize(ev.Symbol),
		"alert_type":     ev.AlertType.String(),
		"price":          ev.Price.String(),
		"change_percent": ev.ChangePercent.String(),
		"threshold":      ev.Threshold.String(),
		"message":        sanitize(ev.Message),
		"occurred_at":    ev.OccurredAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, errors.Wrap(err, "build event payload")
	}

	data, err := proto.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, "marshal protobuf")
	}
	return data, nil
}

// DecodeAlertEvent parses a payload produced by EncodeAlertEvent
func DecodeAlertEvent(data []byte) (alert.Event, error) {
	var payload structpb.Struct
	if err := proto.Unmarshal(data, &payload); err != nil {
		return alert.Event{}, errors.Wrap(err, "unmarshal protobuf")
	}

	f := payload.GetFields()
	str := func(key string) string { return f[key].GetStringValue() }

	var (
		ev   alert.Event
		errs errors.MultiError
	)
	ev.Type = alert.EventType(str("type"))
	ev.Symbol = str("symbol")
	ev.AlertType = alert.Type(str("alert_type"))
	ev.Message = str("message")

	var err error
	if ev.AlertID, err = uuid.Parse(str("alert_id")); err != nil {
		errs.Add(errors.Wrap(err, "alert_id"))
	}
	if ev.UserID, err = uuid.Parse(str("user_id")); err != nil {
		errs.Add(errors.Wrap(err, "user_id"))
	}
	if ev.Price, err = decimal.NewFromString(str("price")); err != nil {
		errs.Add(errors.Wrap(err, "price"))
	}
	if ev.ChangePercent, err = decimal.NewFromString(str("change_percent")); err != nil {
		errs.Add(errors.Wrap(err, "change_percent"))
	}
	if ev.Threshold, err = decimal.NewFromString(str("threshold")); err != nil {
		errs.Add(errors.Wrap(err, "threshold"))
	}
	if ev.OccurredAt, err = time.Parse(time.RFC3339Nano, str("occurred_at")); err != nil {
		errs.Add(errors.Wrap(err, "occurred_at"))
	}

	if errs.HasErrors() {
		return alert.Event{}, errors.Wrap(errors.Join(errors.ErrInvalidInput, errs.ToError()), "decode alert event")
	}
	return ev, nil
}

func sanitize(s string) string {
	return strings.ToValidUTF8(s, "")
}
