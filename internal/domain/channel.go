package domain

import (
	"encoding/json"
	"time"
)

// ChannelValidationRequest is the body posted to the partner's shopify-login endpoint.
type ChannelValidationRequest struct {
	ChannelID   string       `json:"channel_id"`
	ChannelName string       `json:"channel_name"`
	ShopDetails *ShopProfile `json:"shop_details"`
}

// ResultKind tags a ValidationResult.
type ResultKind string

const (
	ResultSuccess          ResultKind = "success"
	ResultRejected         ResultKind = "rejected"
	ResultTransportFailure ResultKind = "transport_failure"
)

// ValidationResult is the partner response decoded into a tagged outcome.
// Exactly one of Details, Message or Err is meaningful, chosen by Kind.
type ValidationResult struct {
	Kind    ResultKind
	Details json.RawMessage
	Message string
	Err     error
}

func Success(details json.RawMessage) ValidationResult {
	return ValidationResult{Kind: ResultSuccess, Details: details}
}

func Rejected(message string) ValidationResult {
	return ValidationResult{Kind: ResultRejected, Message: message}
}

func TransportFailure(err error) ValidationResult {
	return ValidationResult{Kind: ResultTransportFailure, Err: err}
}

// AsError converts a non-success result to its domain error, nil for success.
func (r ValidationResult) AsError() error {
	switch r.Kind {
	case ResultSuccess:
		return nil
	case ResultRejected:
		return &ValidationRejected{Message: r.Message}
	default:
		return &TransportError{Err: r.Err}
	}
}

// ValidationAttempt is one entry of the validation audit trail.
type ValidationAttempt struct {
	ID          string
	SessionID   string
	Shop        string
	ChannelID   string
	ChannelName string
	Outcome     ResultKind
	Message     string
	Duration    time.Duration
	CreatedAt   time.Time
}
