package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/policy"
	"github.com/erazemk/najdeno/internal/store"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 500

	streamPoll   = 2 * time.Second
	pongWait     = 60 * time.Second
	pingPeriod   = pongWait * 9 / 10
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// NotificationsHandler serves the notification feed. Staff read the staff
// feed plus their own entries; everyone else reads their own.
type NotificationsHandler struct {
	DB *sql.DB
	// Poll is how often a stream checks for new entries. Zero means
	// streamPoll.
	Poll time.Duration
}

func (h *NotificationsHandler) feed(r *http.Request, after int64, limit int) ([]model.Notification, error) {
	claims := GetClaims(r.Context())
	return store.ListNotifications(r.Context(), h.DB, claims.UserID, policy.IsStaff(claims.Role), after, limit)
}

// List handles GET /api/notifications?after=&limit=.
func (h *NotificationsHandler) List(w http.ResponseWriter, r *http.Request) {
	after, ok := queryInt(w, r, "after")
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	if limit == 0 {
		limit = defaultFeedLimit
	}
	limit = min(limit, maxFeedLimit)

	entries, err := h.feed(r, after, int(limit))
	if err != nil {
		slog.Error("failed to list notifications", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	if entries == nil {
		entries = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Stream handles GET /api/notifications/ws. It pushes feed entries newer
// than the after parameter as they are written.
func (h *NotificationsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	after, ok := queryInt(w, r, "after")
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	username := GetClaims(r.Context()).Username
	slog.Info("notification stream opened", "user", username)
	defer slog.Info("notification stream closed", "user", username)

	// The reader only handles control frames; it ends when the client goes.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := h.Poll
	if poll <= 0 {
		poll = streamPoll
	}
	poller := time.NewTicker(poll)
	defer poller.Stop()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		entries, err := h.feed(r, after, maxFeedLimit)
		if err != nil {
			slog.Error("failed to read notifications", "user", username, "error", err)
			return
		}
		for _, n := range entries {
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(n); err != nil {
				return
			}
			after = n.ID
		}

		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-pinger.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-poller.C:
		}
	}
}
