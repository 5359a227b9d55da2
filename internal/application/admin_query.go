package application

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/infrastructure/shopify"
	"gaint-shopify-connector/internal/ports"
)

// adminQueries runs Admin GraphQL reads for the shop of the admin session in ctx
type adminQueries struct {
	clientPool ports.ShopifyClientPool
	metrics    ports.MetricsRecorder
}

// run executes one operation and returns the raw "data" object. Every failure is
// reported as an UpstreamDataError for queryName.
func (a *adminQueries) run(ctx context.Context, queryName string, op shopify.Operation, vars map[string]any) (json.RawMessage, error) {
	if err := op.CheckVariables(vars); err != nil {
		return nil, &domain.UpstreamDataError{Query: queryName, Reason: "invalid variables", Err: err}
	}

	session, ok := domain.AdminSessionFromContext(ctx)
	if !ok {
		return nil, &domain.UpstreamDataError{Query: queryName, Reason: "no authenticated admin session"}
	}

	querier, err := a.clientPool.GetQuerier(ctx, session.Shop, session.AccessToken)
	if err != nil {
		return nil, &domain.UpstreamDataError{Query: queryName, Reason: "client unavailable", Err: err}
	}

	var data json.RawMessage
	start := time.Now()
	err = querier.Query(ctx, op.Query, vars, &data)
	a.metrics.ObserveAdminQuery(queryName, time.Since(start), err)
	if err != nil {
		return nil, &domain.UpstreamDataError{Query: queryName, Reason: "query failed", Err: err}
	}
	if len(data) == 0 || string(data) == "null" {
		return nil, &domain.UpstreamDataError{Query: queryName, Reason: "empty data"}
	}
	return data, nil
}

func malformed(queryName, field string, err error) error {
	return &domain.UpstreamDataError{
		Query:  queryName,
		Reason: fmt.Sprintf("%s missing or malformed", field),
		Err:    err,
	}
}
