package domain

import "time"

// Notification is a one-shot toast for a single admin session.
type Notification struct {
	ID        string    `json:"id"`
	SessionID string    `json:"-"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Toast messages.
const (
	ToastChannelValidated   = "Channel validated and details passed successfully!"
	ToastSyncNotImplemented = "Orders sync not implemented in this version."
)

// Modal is the display surface opened by the order sync stub.
type Modal struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// OrderSyncModal is what the sync action shows while pushing orders is unsupported.
var OrderSyncModal = Modal{
	Title: "Order Sync",
	Body:  "Orders are not fetched in this version.",
}
