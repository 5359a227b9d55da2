package pubsub

import (
	"context"
	"fmt"
	"sync"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"

	"github.com/rs/zerolog"
)

// NotificationChannel represents a subscription channel
type NotificationChannel struct {
	ID        string
	SessionID string
	Events    chan *domain.Notification
	Done      chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NotificationPubSub fans one-shot notifications out to the subscribers of a session
type NotificationPubSub struct {
	mu       sync.RWMutex
	channels map[string]*NotificationChannel
	logger   zerolog.Logger
	nextID   int64
	idMu     sync.Mutex
}

var _ ports.Notifier = (*NotificationPubSub)(nil)

// NewNotificationPubSub creates a new notification pub/sub system
func NewNotificationPubSub(logger zerolog.Logger) *NotificationPubSub {
	return &NotificationPubSub{
		channels: make(map[string]*NotificationChannel),
		logger:   logger,
	}
}

// Subscribe creates a subscription for one session. It is removed when ctx is done.
func (ps *NotificationPubSub) Subscribe(ctx context.Context, sessionID string) *NotificationChannel {
	ps.idMu.Lock()
	id := ps.generateID()
	ps.idMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)

	channel := &NotificationChannel{
		ID:        id,
		SessionID: sessionID,
		Events:    make(chan *domain.Notification, 10),
		Done:      make(chan struct{}),
		ctx:       subCtx,
		cancel:    cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("channelId", id).
		Str("sessionId", sessionID).
		Msg("Notification subscription created")

	go func() {
		<-subCtx.Done()
		ps.Unsubscribe(id)
	}()

	return channel
}

// Unsubscribe removes a subscription channel
func (ps *NotificationPubSub) Unsubscribe(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Debug().
		Str("channelId", channelID).
		Msg("Notification subscription removed")
}

// Publish delivers n to every subscriber of its session without blocking
func (ps *NotificationPubSub) Publish(n *domain.Notification) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	delivered := 0
	for _, channel := range ps.channels {
		if channel.SessionID != n.SessionID {
			continue
		}
		select {
		case channel.Events <- n:
			delivered++
		case <-channel.ctx.Done():
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping notification")
		}
	}

	ps.logger.Debug().
		Str("sessionId", n.SessionID).
		Str("message", n.Message).
		Int("subscribers", delivered).
		Msg("Published notification")
}

// ActiveSubscriptions returns the number of open subscriptions
func (ps *NotificationPubSub) ActiveSubscriptions() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.channels)
}

func (ps *NotificationPubSub) generateID() string {
	ps.nextID++
	return fmt.Sprintf("channel-%d", ps.nextID)
}
