package ports

import (
	"context"

	"gaint-shopify-connector/internal/domain"
)

// PartnerClient talks to the logistics partner. Implementations make exactly one
// attempt and always return a tagged result, never a bare error.
type PartnerClient interface {
	ValidateChannel(ctx context.Context, req domain.ChannelValidationRequest) domain.ValidationResult
}
