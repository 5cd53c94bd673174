package handler

import (
	"context"
	"log/slog"
	"net/http"

	"smartdoc/internal/events"
	"smartdoc/internal/handler/sse"
	"smartdoc/internal/httputil"
)

// subscribeFunc opens an event subscription bound to ctx
type subscribeFunc func(ctx context.Context) (<-chan events.Event, func(), error)

// streamEvents relays subscription events to the client as Server-Sent
// Events until the client disconnects or the subscription ends.
func streamEvents(w http.ResponseWriter, r *http.Request, streamID string, subscribe subscribeFunc, cfg *sse.Config, logger *slog.Logger) {
	ctx := r.Context()

	ch, cancel, err := subscribe(ctx)
	if err != nil {
		handleError(w, err)
		return
	}
	defer cancel()

	writer, err := sse.NewWriter(w, streamID, cfg)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.Debug("event stream opened", "stream_id", streamID, "client_ip", r.RemoteAddr)
	defer logger.Debug("event stream closed", "stream_id", streamID)

	keepAlive := sse.NewTickerKeepAlive(cfg.KeepAliveInterval)
	dropped := keepAlive.Start(writer, logger)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := writer.WriteEvent(ev.Type, ev); err != nil {
				logger.Info("client disconnected during event write", "stream_id", streamID, "error", err)
				return
			}
		case <-dropped:
			return
		case <-ctx.Done():
			return
		}
	}
}
