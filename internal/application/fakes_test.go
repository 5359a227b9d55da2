package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/ports"
)

const (
	testShop  = "acme.myshopify.com"
	testToken = "shpat_test"
)

const shopResponse = `{"shop":{
	"name":"Acme",
	"id":"gid://shopify/Shop/1",
	"email":"owner@acme.test",
	"primaryDomain":{"host":"acme.test"},
	"billingAddress":{"city":"Lagos","country":"Nigeria"}
}}`

// fakeQuerier answers queries by operation name with canned "data" objects
type fakeQuerier struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	calls     map[string]int
	vars      []map[string]any
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{
		responses: map[string]string{},
		errs:      map[string]error{},
		calls:     map[string]int{},
	}
}

func operationOf(query string) string {
	switch {
	case strings.Contains(query, "shopProfile"):
		return "shop"
	case strings.Contains(query, "recentOrders"):
		return "orders"
	}
	return "unknown"
}

func (q *fakeQuerier) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	op := operationOf(query)
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.calls[op]++
	q.vars = append(q.vars, vars)
	resp, err := q.responses[op], q.errs[op]
	q.mu.Unlock()

	if err != nil {
		return err
	}
	if resp == "" {
		return errors.New("no canned response for " + op)
	}
	return json.Unmarshal([]byte(resp), out)
}

func (q *fakeQuerier) Calls(op string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.calls[op]
}

type fakePool struct {
	querier *fakeQuerier
	err     error
	shops   []string
}

func (p *fakePool) GetQuerier(ctx context.Context, shop string, accessToken string) (ports.AdminQuerier, error) {
	p.shops = append(p.shops, shop)
	if p.err != nil {
		return nil, p.err
	}
	return p.querier, nil
}

// fakePartner returns results from respond, one call at a time
type fakePartner struct {
	mu       sync.Mutex
	requests []domain.ChannelValidationRequest
	respond  func(ctx context.Context, call int, req domain.ChannelValidationRequest) domain.ValidationResult
}

func (p *fakePartner) ValidateChannel(ctx context.Context, req domain.ChannelValidationRequest) domain.ValidationResult {
	p.mu.Lock()
	p.requests = append(p.requests, req)
	call := len(p.requests)
	p.mu.Unlock()
	return p.respond(ctx, call, req)
}

func (p *fakePartner) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func partnerReturning(result domain.ValidationResult) *fakePartner {
	return &fakePartner{respond: func(context.Context, int, domain.ChannelValidationRequest) domain.ValidationResult {
		return result
	}}
}

type fakeMetrics struct {
	mu             sync.Mutex
	queries        map[string]int
	validations    map[domain.ResultKind]int
	gateRejections map[domain.ToggleField]int
	activeSessions int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		queries:        map[string]int{},
		validations:    map[domain.ResultKind]int{},
		gateRejections: map[domain.ToggleField]int{},
	}
}

func (m *fakeMetrics) ObserveAdminQuery(query string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries[query]++
}

func (m *fakeMetrics) IncValidation(outcome domain.ResultKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations[outcome]++
}

func (m *fakeMetrics) IncGateRejection(field domain.ToggleField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gateRejections[field]++
}

func (m *fakeMetrics) SetActiveSessions(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activeSessions = n
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []*domain.Notification
}

func (n *fakeNotifier) Publish(msg *domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *fakeNotifier) Messages() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.messages))
	for _, m := range n.messages {
		out = append(out, m.Message)
	}
	return out
}

type fakeValidationLog struct {
	mu       sync.Mutex
	attempts []*domain.ValidationAttempt
	err      error
}

func (l *fakeValidationLog) Record(ctx context.Context, attempt *domain.ValidationAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts = append(l.attempts, attempt)
	return l.err
}

func (l *fakeValidationLog) ListByShop(ctx context.Context, shop string, limit int64) ([]*domain.ValidationAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []*domain.ValidationAttempt
	for i := len(l.attempts) - 1; i >= 0; i-- {
		if l.attempts[i].Shop == shop {
			out = append(out, l.attempts[i])
		}
	}
	return out, nil
}

func (l *fakeValidationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

func adminCtx(ctx context.Context) context.Context {
	return domain.WithAdminSession(ctx, domain.AdminSession{ID: "sess-1", Shop: testShop, AccessToken: testToken})
}

func loadedProfile() *domain.ShopProfile {
	return domain.NewShopProfile("Acme", "gid://shopify/Shop/1", "owner@acme.test", "acme.test", nil)
}
