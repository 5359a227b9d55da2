package application

import (
	"context"
	"encoding/json"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/infrastructure/shopify"
	"gaint-shopify-connector/internal/ports"

	"github.com/rs/zerolog"
)

const shopQueryName = "shop"

// ShopProfileService fetches the shop identity of the authenticated admin session
type ShopProfileService struct {
	queries adminQueries
	logger  zerolog.Logger
}

// NewShopProfileService creates a new shop profile service
func NewShopProfileService(clientPool ports.ShopifyClientPool, metrics ports.MetricsRecorder, logger zerolog.Logger) *ShopProfileService {
	return &ShopProfileService{
		queries: adminQueries{clientPool: clientPool, metrics: metrics},
		logger:  logger,
	}
}

type shopNode struct {
	Name          *string `json:"name"`
	ID            *string `json:"id"`
	Email         *string `json:"email"`
	PrimaryDomain *struct {
		Host *string `json:"host"`
	} `json:"primaryDomain"`
	BillingAddress map[string]any `json:"billingAddress"`
}

// FetchShopProfile issues one shop query. The admin session is taken from ctx.
func (s *ShopProfileService) FetchShopProfile(ctx context.Context) (*domain.ShopProfile, error) {
	data, err := s.queries.run(ctx, shopQueryName, shopify.ShopProfileOperation, nil)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to fetch shop profile")
		return nil, err
	}

	var payload struct {
		Shop json.RawMessage `json:"shop"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, malformed(shopQueryName, "data", err)
	}
	if len(payload.Shop) == 0 || string(payload.Shop) == "null" {
		return nil, malformed(shopQueryName, "shop", nil)
	}

	var node shopNode
	if err := json.Unmarshal(payload.Shop, &node); err != nil {
		return nil, malformed(shopQueryName, "shop", err)
	}

	switch {
	case node.Name == nil:
		return nil, malformed(shopQueryName, "shop.name", nil)
	case node.ID == nil:
		return nil, malformed(shopQueryName, "shop.id", nil)
	case node.Email == nil:
		return nil, malformed(shopQueryName, "shop.email", nil)
	case node.PrimaryDomain == nil || node.PrimaryDomain.Host == nil:
		return nil, malformed(shopQueryName, "shop.primaryDomain.host", nil)
	}

	profile := domain.NewShopProfile(*node.Name, *node.ID, *node.Email, *node.PrimaryDomain.Host, node.BillingAddress)

	s.logger.Debug().
		Str("shopId", profile.ID).
		Str("domain", profile.PrimaryDomainHost).
		Msg("Fetched shop profile")

	return profile, nil
}
