package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"stockwatch/internal/adapters/kafka"
	"stockwatch/internal/domain/alert"
	"stockwatch/pkg/errors"
)

type sentMessage struct {
	topic string
	key   []byte
	data  []byte
}

type fakeProducer struct {
	sent []sentMessage
	err  error
}

func (p *fakeProducer) PublishBinary(_ context.Context, topic string, key, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, sentMessage{topic: topic, key: key, data: data})
	return nil
}

func sampleEvent(t alert.EventType) alert.Event {
	return alert.Event{
		Type:          t,
		AlertID:       uuid.New(),
		UserID:        uuid.New(),
		Symbol:        "AAPL",
		AlertType:     alert.TypePriceDrop,
		Price:         decimal.RequireFromString("92.00"),
		ChangePercent: decimal.RequireFromString("-8.00"),
		Threshold:     decimal.NewFromInt(-5),
		Message:       "Alert triggered: AAPL price is $92.00",
		OccurredAt:    time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC),
	}
}

func TestAlertPublisher_RoutesAndKeys(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewAlertPublisher(producer)
	ctx := context.Background()

	triggered := sampleEvent(alert.EventTriggered)
	rearmed := sampleEvent(alert.EventRearmed)
	smart := sampleEvent(alert.EventSmartTriggered)

	require.NoError(t, pub.PublishAlertEvent(ctx, triggered))
	require.NoError(t, pub.PublishAlertEvent(ctx, rearmed))
	require.NoError(t, pub.PublishAlertEvent(ctx, smart))

	require.Len(t, producer.sent, 3)
	assert.Equal(t, kafka.TopicAlertsTriggered, producer.sent[0].topic)
	assert.Equal(t, kafka.TopicAlertsRearmed, producer.sent[1].topic)
	assert.Equal(t, kafka.TopicAlertsTriggered, producer.sent[2].topic)
	assert.Equal(t, []byte(triggered.AlertID.String()), producer.sent[0].key)

	decoded, err := DecodeAlertEvent(producer.sent[0].data)
	require.NoError(t, err)
	assert.Equal(t, triggered.AlertID, decoded.AlertID)
	assert.Equal(t, triggered.UserID, decoded.UserID)
	assert.True(t, decoded.Price.Equal(triggered.Price))
	assert.True(t, decoded.ChangePercent.Equal(triggered.ChangePercent))
	assert.True(t, decoded.OccurredAt.Equal(triggered.OccurredAt))
	assert.Equal(t, alert.TypePriceDrop, decoded.AlertType)
}

func TestAlertPublisher_ProducerError(t *testing.T) {
	pub := NewAlertPublisher(&fakeProducer{err: errors.ErrExternal})

	err := pub.PublishAlertEvent(context.Background(), sampleEvent(alert.EventTriggered))
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

func TestEncodeAlertEvent_SanitizesUTF8(t *testing.T) {
	ev := sampleEvent(alert.EventTriggered)
	ev.Message = "Error\xff from feed"

	data, err := EncodeAlertEvent(ev)
	require.NoError(t, err)

	var payload structpb.Struct
	require.NoError(t, proto.Unmarshal(data, &payload))
	assert.Equal(t, "Error from feed", payload.Fields["message"].GetStringValue())
	assert.Equal(t, "stockwatch", payload.Fields["source"].GetStringValue())
}

func TestDecodeAlertEvent_RejectsGarbage(t *testing.T) {
	payload, err := structpb.NewStruct(map[string]interface{}{"type": "alert.triggered"})
	require.NoError(t, err)
	data, err := proto.Marshal(payload)
	require.NoError(t, err)

	_, err = DecodeAlertEvent(data)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
