package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testProducer(w *fakeWriter) *Producer {
	return newProducer(w, "thistle.records", ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {}))
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)

	err := p.Publish(context.Background(), Message{
		Key:     "record-1",
		Headers: map[string]string{"kind": "account", "event_type": "record.labeled"},
		Value:   map[string]string{"label": "duplicate"},
	})
	require.NoError(t, err)

	require.Len(t, w.written, 1)
	msg := w.written[0]
	assert.Equal(t, []byte("record-1"), msg.Key)
	assert.Equal(t, []kafka.Header{
		{Key: "event_type", Value: []byte("record.labeled")},
		{Key: "kind", Value: []byte("account")},
	}, msg.Headers)

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "duplicate", body["label"])
}

func TestProducer_PublishNothing(t *testing.T) {
	w := &fakeWriter{err: errors.New("unreachable")}
	assert.NoError(t, testProducer(w).Publish(context.Background()))
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	err := testProducer(w).Publish(context.Background(), Message{Key: "a", Value: 1})
	assert.EqualError(t, err, "broker down")
}

func TestProducer_MarshalError(t *testing.T) {
	w := &fakeWriter{}
	err := testProducer(w).Publish(context.Background(), Message{Key: "a", Value: make(chan int)})
	assert.Error(t, err)
	assert.Empty(t, w.written)
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := testProducer(w)
	assert.Equal(t, "thistle.records", p.Topic())
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
