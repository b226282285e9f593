package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/hlog"

	"github.com/nikbrunner/stash/internal/reconcile"
)

const streamWriteTimeout = 5 * time.Second

// handleSidebarStream mounts a sidebar for the connection and pushes its
// snapshot on connect and after every change. The sidebar is unmounted when
// the client goes away.
func (s *Server) handleSidebarStream(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	log := hlog.FromRequest(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	stop := context.AfterFunc(s.streams, cancel)
	defer stop()

	sidebar, unmount, err := s.svc.Mount(ctx, user)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load sidebar")
		conn.Close(websocket.StatusInternalError, "failed to load sidebar")
		return
	}
	defer unmount()

	updates := make(chan reconcile.Snapshot, 1)
	sidebar.OnChange(func(snap reconcile.Snapshot) {
		// Only the newest snapshot matters to a slow client.
		for {
			select {
			case updates <- snap:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})

	// Client messages are not used; CloseRead handles control frames and
	// cancels ctx when the peer closes.
	ctx = conn.CloseRead(ctx)

	log.Debug().Msg("Sidebar stream connected")
	if err := writeSnapshot(ctx, conn, sidebar.Snapshot()); err != nil {
		return
	}

	for {
		select {
		case <-ctx.Done():
			if s.streams.Err() != nil {
				conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			log.Debug().Msg("Sidebar stream closed")
			return
		case snap := <-updates:
			if err := writeSnapshot(ctx, conn, snap); err != nil {
				log.Debug().Err(err).Msg("Sidebar stream write failed")
				return
			}
		}
	}
}

func writeSnapshot(ctx context.Context, conn *websocket.Conn, snap reconcile.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, streamWriteTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
