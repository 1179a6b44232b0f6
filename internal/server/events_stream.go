package server

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait    = 10 * time.Second
	pingInterval = 30 * time.Second
)

// handleEventsStream upgrades to a websocket and forwards bus events until
// the client disconnects.
// GET /api/events/stream
func (s *Server) handleEventsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	events, cancel := s.bus.Subscribe()
	defer cancel()

	s.log.Debug().Msg("Event stream client connected")

	ctx := r.Context()
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ping.C:
			pingCtx, pingCancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			pingCancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("Event stream client gone")
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			writeCtx, writeCancel := context.WithTimeout(ctx, writeWait)
			err := wsjson.Write(writeCtx, conn, ev)
			writeCancel()
			if err != nil {
				s.log.Debug().Err(err).Msg("Event stream write failed")
				return
			}
		}
	}
}
