package sse

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter_WriteEvent(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec, "d1", &Config{IncludeIDs: true})
	require.NoError(t, err)
	assert.Equal(t, "d1", w.StreamID())

	require.NoError(t, w.WriteEvent("document.status", map[string]string{"status": "ready"}))
	require.NoError(t, w.WriteEvent("document.status", map[string]string{"status": "error"}))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t,
		"id: 1\nevent: document.status\ndata: {\"status\":\"ready\"}\n\n"+
			"id: 2\nevent: document.status\ndata: {\"status\":\"error\"}\n\n",
		rec.Body.String())
}

func TestWriter_WithoutIDs(t *testing.T) {
	rec := httptest.NewRecorder()
	w, err := NewWriter(rec, "d1", DefaultConfig())
	require.NoError(t, err)

	require.NoError(t, w.WriteEvent("x", 1))
	require.NoError(t, w.WriteKeepAlive())
	assert.Equal(t, "event: x\ndata: 1\n\n: keepalive\n\n", rec.Body.String())
}

type plainWriter struct{ http.ResponseWriter }

func TestNewWriter_RequiresFlusher(t *testing.T) {
	_, err := NewWriter(plainWriter{httptest.NewRecorder()}, "d1", nil)
	assert.ErrorIs(t, err, ErrStreamingUnsupported)
}

type countingWriter struct {
	n    atomic.Int32
	fail bool
}

func (c *countingWriter) WriteKeepAlive() error {
	c.n.Add(1)
	if c.fail {
		return assert.AnError
	}
	return nil
}

func TestTickerKeepAlive(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("pings until stopped", func(t *testing.T) {
		k := NewTickerKeepAlive(time.Millisecond)
		w := &countingWriter{}
		stopped := k.Start(w, logger)

		require.Eventually(t, func() bool { return w.n.Load() >= 3 }, time.Second, time.Millisecond)
		k.Stop()
		k.Stop()
		<-stopped
	})

	t.Run("stops after a failed write", func(t *testing.T) {
		k := NewTickerKeepAlive(time.Millisecond)
		w := &countingWriter{fail: true}
		<-k.Start(w, logger)
		assert.Equal(t, int32(1), w.n.Load())
	})
}
