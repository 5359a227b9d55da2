package application

import (
	"context"
	"encoding/json"
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"

	"github.com/rs/zerolog"
)

const auditWriteTimeout = 5 * time.Second

// ChannelService validates a channel with the logistics partner
type ChannelService struct {
	partner ports.PartnerClient
	log     ports.ValidationLog
	metrics ports.MetricsRecorder
	logger  zerolog.Logger
}

// NewChannelService creates a new channel service
func NewChannelService(partner ports.PartnerClient, log ports.ValidationLog, metrics ports.MetricsRecorder, logger zerolog.Logger) *ChannelService {
	return &ChannelService{
		partner: partner,
		log:     log,
		metrics: metrics,
		logger:  logger,
	}
}

// Validate checks the preconditions and then makes exactly one partner call. On
// success it returns the channel details to display.
func (s *ChannelService) Validate(ctx context.Context, form domain.ChannelForm, profile *domain.ShopProfile) (json.RawMessage, error) {
	if !profile.Loaded() {
		return nil, &domain.PreconditionError{Message: domain.MsgShopNotLoaded}
	}
	if form.ChannelID == "" || form.ChannelName == "" {
		return nil, &domain.PreconditionError{Message: domain.MsgChannelRequired}
	}

	start := time.Now()
	result := s.partner.ValidateChannel(ctx, domain.ChannelValidationRequest{
		ChannelID:   form.ChannelID,
		ChannelName: form.ChannelName,
		ShopDetails: profile,
	})
	elapsed := time.Since(start)

	s.metrics.IncValidation(result.Kind)
	s.record(ctx, form, result, elapsed)

	if err := result.AsError(); err != nil {
		s.logger.Warn().
			Err(err).
			Str("channelId", form.ChannelID).
			Str("outcome", string(result.Kind)).
			Msg("Channel validation failed")
		return nil, err
	}

	s.logger.Info().
		Str("channelId", form.ChannelID).
		Str("channelName", form.ChannelName).
		Dur("elapsed", elapsed).
		Msg("Channel validated")

	return result.Details, nil
}

// History returns the latest validation attempts of shop
func (s *ChannelService) History(ctx context.Context, shop string, limit int64) ([]*domain.ValidationAttempt, error) {
	return s.log.ListByShop(ctx, shop, limit)
}

// record appends the attempt to the audit trail. A failed write is logged only.
func (s *ChannelService) record(ctx context.Context, form domain.ChannelForm, result domain.ValidationResult, elapsed time.Duration) {
	attempt := &domain.ValidationAttempt{
		ChannelID:   form.ChannelID,
		ChannelName: form.ChannelName,
		Outcome:     result.Kind,
		Duration:    elapsed,
		CreatedAt:   time.Now().UTC(),
	}
	if session, ok := domain.AdminSessionFromContext(ctx); ok {
		attempt.SessionID = session.ID
		attempt.Shop = session.Shop
	}
	switch result.Kind {
	case domain.ResultRejected:
		attempt.Message = result.Message
	case domain.ResultTransportFailure:
		if result.Err != nil {
			attempt.Message = result.Err.Error()
		}
	}

	// the attempt is recorded even when the caller has gone away
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
	defer cancel()
	if err := s.log.Record(writeCtx, attempt); err != nil {
		s.logger.Error().Err(err).Str("channelId", form.ChannelID).Msg("Failed to record validation attempt")
	}
}
