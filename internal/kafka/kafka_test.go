package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-membership/internal/logger"
	"ms-membership/internal/models"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error { return nil }

func TestProducerKeysByEvent(t *testing.T) {
	w := new(MockWriter)
	p := &Producer{Writer: w}
	n := models.Notification{EventID: "evt-1", Kind: models.NotifyLeave, Name: "Bob", At: time.Now().UTC()}

	w.On("WriteMessages", mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || string(msgs[0].Key) != "evt-1" {
			return false
		}
		var got models.Notification
		return json.Unmarshal(msgs[0].Value, &got) == nil && got.Name == "Bob" && got.Kind == models.NotifyLeave
	})).Return(nil).Once()

	require.NoError(t, p.Notify(context.Background(), n))
	w.AssertExpectations(t)

	w.On("WriteMessages", mock.Anything).Return(errors.New("broker down"))
	assert.Error(t, p.Notify(context.Background(), n))
}

type sliceReader struct {
	msgs []kafka.Message
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *sliceReader) Close() error { return nil }

func TestConsumerSkipsMalformedMessages(t *testing.T) {
	good, err := json.Marshal(models.Notification{EventID: "evt-1", Name: "Alice"})
	require.NoError(t, err)

	c := &Consumer{
		Reader: &sliceReader{msgs: []kafka.Message{{Value: []byte("{not json")}, {Value: good}}},
		Logger: logger.NewNopLogger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	var got []models.Notification
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, func(_ context.Context, n models.Notification) {
			got = append(got, n)
			cancel()
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Name)
}
