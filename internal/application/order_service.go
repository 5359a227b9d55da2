package application

import (
	"context"
	"encoding/json"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/infrastructure/shopify"
	"gaint-shopify-connector/internal/ports"

	"github.com/rs/zerolog"
)

const ordersQueryName = "orders"

// OrderService lists the first page of orders as display records
type OrderService struct {
	queries adminQueries
	logger  zerolog.Logger
}

// NewOrderService creates a new order service
func NewOrderService(clientPool ports.ShopifyClientPool, metrics ports.MetricsRecorder, logger zerolog.Logger) *OrderService {
	return &OrderService{
		queries: adminQueries{clientPool: clientPool, metrics: metrics},
		logger:  logger,
	}
}

// FetchOrders returns at most one page of projected orders. There is no cursor
// continuation.
func (s *OrderService) FetchOrders(ctx context.Context, limit int) ([]domain.OrderRecord, error) {
	limit = domain.ClampOrderLimit(limit)

	data, err := s.queries.run(ctx, ordersQueryName, shopify.OrdersOperation, map[string]any{"first": limit})
	if err != nil {
		s.logger.Error().Err(err).Int("limit", limit).Msg("Failed to fetch orders")
		return nil, err
	}

	var payload struct {
		Orders *struct {
			Edges *[]struct {
				Node domain.OrderNode `json:"node"`
			} `json:"edges"`
		} `json:"orders"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, malformed(ordersQueryName, "orders.edges", err)
	}
	if payload.Orders == nil || payload.Orders.Edges == nil {
		return nil, malformed(ordersQueryName, "orders.edges", nil)
	}

	nodes := make([]domain.OrderNode, 0, len(*payload.Orders.Edges))
	for _, edge := range *payload.Orders.Edges {
		nodes = append(nodes, edge.Node)
	}

	records := domain.ProjectOrders(nodes)
	s.logger.Debug().Int("count", len(records)).Int("limit", limit).Msg("Fetched orders")
	return records, nil
}
