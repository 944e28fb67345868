package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/sustainifly/go/internal/events"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, events.Envelope) error { return f.err }

type fakeConn bool

func (c fakeConn) Connected() bool { return bool(c) }

func testEnvelope(t *testing.T) events.Envelope {
	t.Helper()
	env, err := events.New(uuid.New(), events.TypeItemCollected, time.Now(), events.ItemCollectedPayload{ItemsCollected: 1})
	require.NoError(t, err)
	return env
}

func TestCountingPublisherRecordsOutcomes(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 22, 9, 0, 0, 0, time.UTC))
	ok := NewCountingPublisher(NopPublisher{}, clock)

	require.NoError(t, ok.Publish(context.Background(), testEnvelope(t)))
	require.NoError(t, ok.Publish(context.Background(), testEnvelope(t)))
	stats := ok.Stats()
	assert.Equal(t, uint64(2), stats.Published)
	assert.Zero(t, stats.Failed)
	assert.Equal(t, clock.Now(), stats.LastPublished)

	bad := NewCountingPublisher(failingPublisher{err: errors.New("nats down")}, clock)
	assert.Error(t, bad.Publish(context.Background(), testEnvelope(t)))
	stats = bad.Stats()
	assert.Equal(t, uint64(1), stats.Failed)
	assert.Equal(t, "nats down", stats.LastError)
	assert.True(t, stats.LastPublished.IsZero())
}

func TestHealthChecker(t *testing.T) {
	pub := NewCountingPublisher(failingPublisher{err: errors.New("timeout")}, nil)
	_ = pub.Publish(context.Background(), testEnvelope(t))

	status := NewHealthChecker(pub, nil).Check()
	assert.True(t, status.Healthy)
	assert.Nil(t, status.NATSConnected)
	assert.Equal(t, []string{"last publish failed: timeout"}, status.Errors)

	status = NewHealthChecker(pub, fakeConn(false)).Check()
	assert.False(t, status.Healthy)
	require.NotNil(t, status.NATSConnected)
	assert.False(t, *status.NATSConnected)
	assert.Contains(t, status.Errors, "NATS disconnected")
}

func TestHealthCheckerServeHTTP(t *testing.T) {
	pub := NewCountingPublisher(NopPublisher{}, nil)

	rec := httptest.NewRecorder()
	NewHealthChecker(pub, fakeConn(true)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/events", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["healthy"])
	assert.Equal(t, true, body["nats_connected"])
	assert.EqualValues(t, 0, body["events_published"])

	rec = httptest.NewRecorder()
	NewHealthChecker(pub, fakeConn(false)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/events", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
