package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsume_DecodesAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher, pubSub := NewGoChannelEventPublisher("exam-events", testLogger())
	defer publisher.Close()

	var (
		mu       sync.Mutex
		received []*Event
	)
	got := make(chan struct{}, 2)
	done := make(chan error, 1)
	go func() {
		done <- Consume(ctx, pubSub, "exam-events", func(_ context.Context, e *Event) error {
			mu.Lock()
			received = append(received, e)
			mu.Unlock()
			select {
			case got <- struct{}{}:
			default:
			}
			return nil
		}, testLogger())
	}()

	// The subscription is registered asynchronously.
	require.Eventually(t, func() bool {
		_ = pubSub.Publish("exam-events", message.NewMessage("junk", []byte("not json")))
		return publisher.Publish(ctx, NewEvent(TypeResultsPublished, "7", ResultsPublishedData{ExamID: 7})) == nil && len(got) > 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, received)
	assert.Equal(t, TypeResultsPublished, received[0].Type)
	assert.Equal(t, "7", received[0].Key)
}
