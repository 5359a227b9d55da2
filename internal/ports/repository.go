package ports

import (
	"context"

	"gaint-shopify-connector/internal/domain"
)

// ValidationLog records every channel validation attempt
type ValidationLog interface {
	Record(ctx context.Context, attempt *domain.ValidationAttempt) error
	// ListByShop returns the newest attempts first
	ListByShop(ctx context.Context, shop string, limit int64) ([]*domain.ValidationAttempt, error)
}

// SessionSnapshotStore keeps the view state of live sessions so another replica can
// resume them. Entries expire with the session.
type SessionSnapshotStore interface {
	Save(ctx context.Context, view *domain.SettingsView) error
	// Load returns nil, nil when no snapshot exists.
	Load(ctx context.Context, sessionID string) (*domain.SettingsView, error)
	Delete(ctx context.Context, sessionID string) error
}

// Notifier delivers one-shot notifications to a session
type Notifier interface {
	Publish(n *domain.Notification)
}
