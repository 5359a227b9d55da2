package domain

import (
	"errors"
	"fmt"
)

// User-facing messages shown in the settings view.
const (
	MsgShopNotLoaded      = "Shop details not loaded yet."
	MsgChannelRequired    = "Channel ID and channel name are required."
	MsgOperationFailed    = "Operation failed!"
	MsgPartnerUnreachable = "Error connecting to shopify-login."
	MsgShopLoadFailed     = "Failed to load shop details."
	MsgOrdersLoadFailed   = "Failed to load orders."
	MsgSettingsLocked     = "Sync settings are locked."
)

var (
	// ErrInvalidToggle is returned for an unknown toggle field or value.
	ErrInvalidToggle = errors.New("invalid toggle")
	// ErrSuperseded marks a validation response that arrived after a newer one was started.
	ErrSuperseded = errors.New("validation superseded by a newer request")
	// ErrSessionEnded is returned when a result arrives for a session that has been closed.
	ErrSessionEnded = errors.New("session ended")
)

// UserError is implemented by every error that carries a message fit for the admin UI.
type UserError interface {
	error
	UserMessage() string
}

// UpstreamDataError reports a missing or malformed field in a commerce platform query result.
type UpstreamDataError struct {
	Query  string
	Reason string
	Err    error
}

func (e *UpstreamDataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upstream data error in %s query: %s: %v", e.Query, e.Reason, e.Err)
	}
	return fmt.Sprintf("upstream data error in %s query: %s", e.Query, e.Reason)
}

func (e *UpstreamDataError) Unwrap() error { return e.Err }

func (e *UpstreamDataError) UserMessage() string {
	if e.Query == "orders" {
		return MsgOrdersLoadFailed
	}
	return MsgShopLoadFailed
}

// PreconditionError means an action was attempted before the data it needs was available.
type PreconditionError struct {
	Message string
}

func (e *PreconditionError) Error() string       { return "precondition failed: " + e.Message }
func (e *PreconditionError) UserMessage() string { return e.Message }

// TransportError wraps a network or decode failure while talking to the logistics partner.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string       { return fmt.Sprintf("partner transport error: %v", e.Err) }
func (e *TransportError) Unwrap() error       { return e.Err }
func (e *TransportError) UserMessage() string { return MsgPartnerUnreachable }

// ValidationRejected is the partner explicitly refusing a channel.
type ValidationRejected struct {
	Message string
}

func (e *ValidationRejected) Error() string       { return "channel validation rejected: " + e.Message }
func (e *ValidationRejected) UserMessage() string { return e.Message }

// GateLocked is returned when a toggle is changed while disableAll is set.
type GateLocked struct {
	Field ToggleField
}

func (e *GateLocked) Error() string {
	return fmt.Sprintf("sync settings locked: cannot change %s", e.Field)
}

func (e *GateLocked) UserMessage() string { return MsgSettingsLocked }

// UserMessageOf returns the UI message for err, falling back to fallback for errors
// that do not carry one.
func UserMessageOf(err error, fallback string) string {
	var ue UserError
	if errors.As(err, &ue) {
		return ue.UserMessage()
	}
	return fallback
}
