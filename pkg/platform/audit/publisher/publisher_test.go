package publisher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "intakedesk/pkg/platform/audit"
	"intakedesk/pkg/platform/audit/store/memory"
	"intakedesk/pkg/requestcontext"
)

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: "sub-1",
		Action:  string(audit.EventSubmissionCreated),
	})
	require.NoError(t, err)

	events, err := store.ListBySubject(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventSubmissionCreated), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Nil(t, pub.Events(), "sync mode has no buffer")
}

func TestPublisher_AsyncModeEnqueues(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventSubmissionDeleted)}))

	all, err := store.ListAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all, "async mode must not write on the caller's goroutine")

	select {
	case event := <-pub.Events():
		assert.Equal(t, string(audit.EventSubmissionDeleted), event.Action)
	case <-time.After(time.Second):
		t.Fatal("event was not buffered")
	}
	pub.Close()
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	for range 3 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventSubmissionCreated)}))
	}
	assert.Equal(t, int64(2), pub.Dropped())
}

func TestPublisher_EmitAfterCloseIsDropped(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(4))
	pub.Close()
	pub.Close()

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Action: string(audit.EventSubmissionCreated)}))
	assert.Equal(t, int64(1), pub.Dropped())
}

func TestPublisher_EnrichesFromContext(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	now := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.9", "curl/8.0")
	ctx = requestcontext.WithBrowser(ctx, "curl")

	require.NoError(t, pub.Emit(ctx, audit.Event{Action: string(audit.EventStaticTokenUsed)}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, now, events[0].Timestamp)
	assert.Equal(t, "req-42", events[0].RequestID)
	assert.Equal(t, "203.0.113.9", events[0].IP)
	assert.Equal(t, "curl/8.0", events[0].UserAgent)
	assert.Equal(t, "curl", events[0].Browser)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)

	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		Action:    string(audit.EventSubmissionCreated),
		Timestamp: fixed,
	}))

	events, err := store.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}
