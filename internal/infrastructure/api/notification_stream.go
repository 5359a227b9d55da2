package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"gaint-shopify-connector/internal/application"
	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/infrastructure/pubsub"

	"github.com/rs/zerolog"
)

const heartbeatInterval = 25 * time.Second

// NotificationStream streams the one-shot notifications of a session as Server-Sent
// Events. A stream lives no longer than its session and keeps the session active.
type NotificationStream struct {
	sessions *application.SessionManager
	pubsub   *pubsub.NotificationPubSub
	logger   zerolog.Logger
}

// NewNotificationStream creates a new notification stream handler
func NewNotificationStream(sessions *application.SessionManager, ps *pubsub.NotificationPubSub, logger zerolog.Logger) *NotificationStream {
	return &NotificationStream{sessions: sessions, pubsub: ps, logger: logger}
}

// ServeHTTP godoc
//
//	@Summary	Subscribe to session notifications
//	@Tags		notifications
//	@Produce	text/event-stream
//	@Success	200	{string}	string	"SSE stream"
//	@Router		/api/v1/notifications/stream [get]
func (s *NotificationStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	admin, _ := domain.AdminSessionFromContext(r.Context())
	if admin.ID == "" {
		writeError(w, http.StatusUnauthorized, "session id required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	orch, err := s.sessions.Resume(r.Context(), admin)
	if err != nil {
		writeError(w, statusFor(err), messageFor(err))
		return
	}

	// the subscription ends with the request or the session, whichever comes first
	ctx, cancel := orch.Scope(r.Context())
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := s.pubsub.Subscribe(ctx, admin.ID)
	s.logger.Debug().Str("sessionId", admin.ID).Str("channelId", sub.ID).Msg("Notification stream opened")

	writeEvent(w, "connected", map[string]string{"session_id": admin.ID})
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done:
			return
		case n, ok := <-sub.Events:
			if !ok {
				return
			}
			if n.ID != "" {
				fmt.Fprintf(w, "id: %s\n", n.ID)
			}
			writeEvent(w, "notification", n)
			flusher.Flush()
		case <-heartbeat.C:
			if _, live := s.sessions.Get(admin.ID); !live {
				return
			}
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
