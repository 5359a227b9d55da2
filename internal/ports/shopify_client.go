package ports

import "context"

// AdminQuerier runs read queries against the Shopify Admin GraphQL API on behalf of
// one authenticated shop. out receives the decoded "data" object.
type AdminQuerier interface {
	Query(ctx context.Context, query string, vars map[string]any, out any) error
}

// ShopifyClientPool hands out queriers keyed by shop domain
type ShopifyClientPool interface {
	GetQuerier(ctx context.Context, shop string, accessToken string) (AdminQuerier, error)
}
