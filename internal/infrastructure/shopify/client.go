package shopify

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"gaint-shopify-connector/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// querier adapts a goshopify client to ports.AdminQuerier
type querier struct {
	client *goshopify.Client
}

func (q *querier) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	if err := q.client.GraphQL.Query(ctx, query, vars, out); err != nil {
		return fmt.Errorf("failed to execute admin query: %w", err)
	}
	return nil
}

type poolEntry struct {
	accessToken string
	querier     *querier
}

// ClientPool caches one goshopify client per shop. A client is rebuilt when the shop's
// access token changes.
type ClientPool struct {
	mu         sync.RWMutex
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	clients    map[string]*poolEntry
	logger     zerolog.Logger
}

var _ ports.ShopifyClientPool = (*ClientPool)(nil)

// NewClientPool creates a new Shopify client pool
func NewClientPool(apiKey, apiSecret, apiVersion string, httpClient *http.Client, logger zerolog.Logger) *ClientPool {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientPool{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		httpClient: httpClient,
		clients:    make(map[string]*poolEntry),
		logger:     logger,
	}
}

// GetQuerier returns the cached querier for shop or builds a new one
func (p *ClientPool) GetQuerier(ctx context.Context, shop string, accessToken string) (ports.AdminQuerier, error) {
	if shop == "" || accessToken == "" {
		return nil, fmt.Errorf("shop and access token are required")
	}

	p.mu.RLock()
	entry, ok := p.clients[shop]
	p.mu.RUnlock()
	if ok && entry.accessToken == accessToken {
		return entry.querier, nil
	}

	client, err := goshopify.NewClient(p.app, shop, accessToken,
		goshopify.WithVersion(p.apiVersion),
		goshopify.WithHTTPClient(p.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	entry = &poolEntry{accessToken: accessToken, querier: &querier{client: client}}

	p.mu.Lock()
	p.clients[shop] = entry
	p.mu.Unlock()

	p.logger.Debug().
		Str("shop", shop).
		Str("apiVersion", p.apiVersion).
		Msg("Created Shopify admin client")

	return entry.querier, nil
}

// size returns the number of cached clients
func (p *ClientPool) size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.clients)
}
