package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/quizarena/go/internal/events"
)

type recordingSink struct {
	mu       sync.Mutex
	failures int
	calls    int
	got      []events.Lifecycle
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Handle(_ context.Context, e events.Lifecycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("sink unavailable")
	}
	s.got = append(s.got, e)
	return nil
}

func (s *recordingSink) received() []events.Lifecycle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]events.Lifecycle(nil), s.got...)
}

func testConfig() Config {
	return Config{
		BufferSize:     16,
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		PublishTimeout: time.Second,
		DrainTimeout:   time.Second,
	}
}

func lifecycle(t *testing.T, typ events.LifecycleType, roomID string) events.Lifecycle {
	t.Helper()
	e, err := events.NewLifecycle(typ, roomID, time.Unix(1700000000, 0), events.RoomClosedPayload{RoomID: roomID})
	require.NoError(t, err)
	return e
}

func TestDeliversInOrder(t *testing.T) {
	sink := &recordingSink{}
	ob := New(testConfig(), sink)
	require.NoError(t, ob.Start(context.Background()))

	for _, id := range []string{"A", "B", "C"} {
		require.True(t, ob.Enqueue(lifecycle(t, events.LifecycleRoomClosed, id)))
	}

	require.Eventually(t, func() bool { return len(sink.received()) == 3 }, time.Second, 5*time.Millisecond)
	got := sink.received()
	assert.Equal(t, "A", got[0].RoomID)
	assert.Equal(t, "B", got[1].RoomID)
	assert.Equal(t, "C", got[2].RoomID)

	require.NoError(t, ob.Stop())
	assert.Equal(t, Stats{Delivered: 3}, ob.Stats())
}

func TestRetriesThenSucceeds(t *testing.T) {
	sink := &recordingSink{failures: 2}
	ob := New(testConfig(), sink)
	require.NoError(t, ob.Start(context.Background()))

	require.True(t, ob.Enqueue(lifecycle(t, events.LifecycleGameStarted, "R1")))
	require.NoError(t, ob.Stop())

	assert.Len(t, sink.received(), 1)
	assert.Equal(t, 3, sink.calls)
	assert.Equal(t, int64(1), ob.Stats().Delivered)
}

func TestGivesUpAfterMaxRetries(t *testing.T) {
	sink := &recordingSink{failures: 10}
	ok := &recordingSink{}
	ob := New(testConfig(), sink, ok)
	require.NoError(t, ob.Start(context.Background()))

	require.True(t, ob.Enqueue(lifecycle(t, events.LifecycleGameStarted, "R1")))
	require.NoError(t, ob.Stop())

	assert.Equal(t, 3, sink.calls)
	assert.Len(t, ok.received(), 1, "a failing sink does not block the others")
	stats := ob.Stats()
	assert.Equal(t, int64(1), stats.Failed)
	assert.Equal(t, int64(1), stats.Delivered)
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	cfg := testConfig()
	cfg.BufferSize = 1
	ob := New(cfg)

	assert.True(t, ob.Enqueue(lifecycle(t, events.LifecycleRoomClosed, "A")))
	assert.False(t, ob.Enqueue(lifecycle(t, events.LifecycleRoomClosed, "B")))
	assert.Equal(t, Stats{Pending: 1, Dropped: 1}, ob.Stats())
}

func TestStopDrainsBuffer(t *testing.T) {
	sink := &recordingSink{}
	ob := New(testConfig(), sink)
	for _, id := range []string{"A", "B"} {
		require.True(t, ob.Enqueue(lifecycle(t, events.LifecycleRoomClosed, id)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, ob.Start(ctx))
	require.NoError(t, ob.Stop())

	assert.Len(t, sink.received(), 2)
}

func TestStartStopGuards(t *testing.T) {
	ob := New(testConfig(), NewLogSink(zerolog.Nop()))
	assert.Error(t, ob.Stop())
	require.NoError(t, ob.Start(context.Background()))
	assert.Error(t, ob.Start(context.Background()))
	require.NoError(t, ob.Stop())
}

func TestJetStreamMessage(t *testing.T) {
	e := lifecycle(t, events.LifecycleGameFinished, "ABC123")

	msg, err := message("quiz.events", e)
	require.NoError(t, err)

	assert.Equal(t, "quiz.events.GameFinished", msg.Subject)
	assert.Equal(t, "GameFinished", msg.Header.Get("Event-Type"))
	assert.Equal(t, "ABC123", msg.Header.Get("Room-ID"))
	assert.Equal(t, e.ID.String(), msg.Header.Get("Event-ID"))

	var decoded events.Lifecycle
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.JSONEq(t, string(e.Payload), string(decoded.Payload))
}

func TestStreamConfigEquality(t *testing.T) {
	s := &JetStreamSink{config: DefaultJetStreamConfig()}
	a := s.streamConfig()
	b := s.streamConfig()
	assert.True(t, isStreamConfigEqual(a, b))

	b.MaxAge = time.Hour
	assert.False(t, isStreamConfigEqual(a, b))
	assert.Equal(t, []string{"quiz.events.>"}, a.Subjects)
}
