package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gaint-shopify-connector/internal/application"
	"gaint-shopify-connector/internal/domain"
	"gaint-shopify-connector/internal/infrastructure/logistics"
	"gaint-shopify-connector/internal/infrastructure/metrics"
	"gaint-shopify-connector/internal/infrastructure/pubsub"
	"gaint-shopify-connector/internal/infrastructure/repository"
	"gaint-shopify-connector/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testShop  = "acme.myshopify.com"
	testToken = "shpat_test"
)

type stubQuerier struct {
	shop   string
	orders string

	mu           sync.Mutex
	shopFailures int
	shopCalls    int
}

func (q *stubQuerier) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	if strings.Contains(query, "recentOrders") {
		return json.Unmarshal([]byte(q.orders), out)
	}

	q.mu.Lock()
	q.shopCalls++
	fail := q.shopFailures > 0
	if fail {
		q.shopFailures--
	}
	q.mu.Unlock()
	if fail {
		return errors.New("502 Bad Gateway")
	}
	return json.Unmarshal([]byte(q.shop), out)
}

func (q *stubQuerier) ShopCalls() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.shopCalls
}

type stubPool struct {
	querier ports.AdminQuerier
}

func (p *stubPool) GetQuerier(ctx context.Context, shop, accessToken string) (ports.AdminQuerier, error) {
	return p.querier, nil
}

type testServer struct {
	*httptest.Server
	partner   *httptest.Server
	querier   *stubQuerier
	sessions  *application.SessionManager
	snapshots *repository.MemorySessionSnapshotStore
}

// newTestServer wires the real stack against a stub Admin API and a partner server
// answering with partnerBody.
func newTestServer(t *testing.T, partnerBody string) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	partner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(partnerBody))
	}))
	t.Cleanup(partner.Close)

	querier := &stubQuerier{
		shop: `{"shop":{"name":"Acme","id":"gid://shopify/Shop/1","email":"owner@acme.test","primaryDomain":{"host":"acme.test"}}}`,
		orders: `{"orders":{"edges":[{"node":{"id":"1","name":"#1001","createdAt":"2024-01-01T00:00:00Z",
			"totalPriceSet":{"shopMoney":{"amount":"20.00","currencyCode":"USD"}},"displayFinancialStatus":"PAID",
			"fulfillmentStatus":null,"customer":null,"lineItems":{"edges":[{"node":{"title":"Widget","quantity":3}}]}}}]}}`,
	}
	pool := &stubPool{querier: querier}

	registry := prometheus.NewRegistry()
	recorder := metrics.New(registry)
	snapshots := repository.NewMemorySessionSnapshotStore(time.Hour)
	notifications := pubsub.NewNotificationPubSub(logger)
	channels := application.NewChannelService(
		logistics.NewClient(partner.URL, time.Second, logger),
		repository.NewMemoryValidationLog(10, logger),
		recorder,
		logger,
	)

	sessions := application.NewSessionManager(application.OrchestratorDeps{
		Profiles:  application.NewShopProfileService(pool, recorder, logger),
		Channels:  channels,
		Orders:    application.NewOrderService(pool, recorder, logger),
		Notifier:  notifications,
		Snapshots: snapshots,
		Metrics:   recorder,
		Logger:    logger,
	}, "default-channel", time.Hour)

	router := NewRouter(RouterConfig{
		Sessions:       sessions,
		Channels:       channels,
		Notifications:  notifications,
		Gatherer:       registry,
		AllowedOrigins: []string{"*"},
		Logger:         logger,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, partner: partner, querier: querier, sessions: sessions, snapshots: snapshots}
}

func (s *testServer) request(t *testing.T, ctx context.Context, sessionID, method, path, body string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, method, s.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set(HeaderShopDomain, testShop)
	req.Header.Set("Authorization", "Bearer "+testToken)
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set(HeaderSessionID, sessionID)
	}
	return req
}

func (s *testServer) do(t *testing.T, sessionID, method, path, body string) *http.Response {
	t.Helper()
	resp, err := http.DefaultClient.Do(s.request(t, t.Context(), sessionID, method, path, body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// load opens the settings page and returns the session it was given
func (s *testServer) load(t *testing.T) domain.SettingsView {
	t.Helper()
	resp := s.do(t, "", http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[domain.SettingsView](t, resp)
	require.NotEmpty(t, view.SessionID)
	return view
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type actionBody struct {
	View  domain.SettingsView `json:"view"`
	Toast string              `json:"toast"`
	Error string              `json:"error"`
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	srv.load(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(1), body["sessions"])
}

func TestAdminSessionRequired(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	tests := map[string]map[string]string{
		"no headers":   {},
		"no token":     {HeaderShopDomain: testShop},
		"no shop":      {"Authorization": "Bearer " + testToken},
		"basic auth":   {HeaderShopDomain: testShop, "Authorization": "Basic abc"},
		"empty bearer": {HeaderShopDomain: testShop, "Authorization": "Bearer "},
	}
	for name, headers := range tests {
		t.Run(name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/settings", nil)
			require.NoError(t, err)
			for k, v := range headers {
				req.Header.Set(k, v)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestSessionIDRequiredForActions(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	tests := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodPost, "/api/v1/settings/validate", `{"channel_id":"c","channel_name":"n"}`},
		{http.MethodPut, "/api/v1/settings/toggles/orderSync", `{"value":"enabled"}`},
		{http.MethodPost, "/api/v1/settings/sync-orders", ""},
		{http.MethodPost, "/api/v1/settings/modal/close", ""},
		{http.MethodDelete, "/api/v1/session", ""},
		{http.MethodGet, "/api/v1/orders", ""},
		{http.MethodGet, "/api/v1/notifications/stream", ""},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			resp := srv.do(t, "", tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
	assert.Equal(t, 0, srv.sessions.Count())
}

func TestUnknownSessionHasEnded(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	resp := srv.do(t, "no-such-session", http.MethodPost, "/api/v1/settings/sync-orders", "")
	assert.Equal(t, http.StatusGone, resp.StatusCode)
	assert.Equal(t, 0, srv.sessions.Count())
}

func TestGetSettings(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	view := srv.load(t)
	require.NotNil(t, view.Shop)
	assert.Equal(t, "Acme", view.Shop.Name)
	assert.Equal(t, testShop, view.ShopDomain)
	assert.Equal(t, "default-channel", view.Form.ChannelID)
	assert.Equal(t, domain.ToggleDisabled, view.SyncSettings.AppStatus)

	// the page keeps its session while it is open
	resp := srv.do(t, view.SessionID, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	again := decode[domain.SettingsView](t, resp)
	assert.Equal(t, view.SessionID, again.SessionID)
	assert.Equal(t, 1, srv.querier.ShopCalls())
}

func TestReloadStartsFreshSession(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	first := srv.load(t)
	resp := srv.do(t, first.SessionID, http.MethodPut, "/api/v1/settings/toggles/orderSync", `{"value":"enabled"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second := srv.load(t)
	assert.NotEqual(t, first.SessionID, second.SessionID)
	assert.Equal(t, domain.ToggleDisabled, second.SyncSettings.OrderSync)
	assert.Equal(t, 2, srv.querier.ShopCalls())
}

func TestReloadAfterShopLoadFailure(t *testing.T) {
	srv := newTestServer(t, `{"s":1,"data":{"channel":"linked"}}`)
	srv.querier.shopFailures = 1

	failed := srv.load(t)
	assert.Nil(t, failed.Shop)
	assert.Equal(t, domain.MsgShopLoadFailed, failed.Errors.ShopError)

	resp := srv.do(t, failed.SessionID, http.MethodPost, "/api/v1/settings/validate", `{"channel_id":"chan-1","channel_name":"Main"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.MsgShopNotLoaded, decode[actionBody](t, resp).View.Errors.APIError)

	reloaded := srv.load(t)
	require.NotNil(t, reloaded.Shop)
	assert.Empty(t, reloaded.Errors.ShopError)
	assert.Equal(t, 2, srv.querier.ShopCalls())

	resp = srv.do(t, reloaded.SessionID, http.MethodPost, "/api/v1/settings/validate", `{"channel_id":"chan-1","channel_name":"Main"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Empty(t, body.Error)
	assert.Equal(t, domain.ToastChannelValidated, body.Toast)
}

func TestValidateChannel_Success(t *testing.T) {
	srv := newTestServer(t, `{"s":1,"data":{"channel":"linked"}}`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodPost, "/api/v1/settings/validate", `{"channel_id":"chan-1","channel_name":"Main"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[actionBody](t, resp)
	assert.Empty(t, body.Error)
	assert.Equal(t, domain.ToastChannelValidated, body.Toast)
	assert.JSONEq(t, `{"channel":"linked"}`, string(body.View.ChannelDetails))
	assert.False(t, body.View.SyncSettings.DisableAll)

	resp = srv.do(t, "", http.MethodGet, "/api/v1/validations", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]validationAttemptResponse](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, "success", history[0].Outcome)
	assert.Equal(t, "chan-1", history[0].ChannelID)
}

func TestValidateChannel_Rejected(t *testing.T) {
	srv := newTestServer(t, `{"s":0}`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodPost, "/api/v1/settings/validate", `{"channel_id":"chan-1","channel_name":"Main"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode[actionBody](t, resp)
	assert.Equal(t, "Operation failed!", body.Error)
	assert.Equal(t, "Operation failed!", body.View.Errors.APIError)
	assert.Empty(t, body.Toast)
}

func TestValidateChannel_NullPartnerBody(t *testing.T) {
	srv := newTestServer(t, `null`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodPost, "/api/v1/settings/validate", `{"channel_id":"chan-1","channel_name":"Main"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, domain.MsgPartnerUnreachable, decode[actionBody](t, resp).View.Errors.APIError)
}

func TestValidateChannel_BadJSON(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodPost, "/api/v1/settings/validate", `{`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetToggle(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodPut, "/api/v1/settings/toggles/orderSync", `{"value":"enabled"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Equal(t, domain.ToggleEnabled, body.View.SyncSettings.OrderSync)

	resp = srv.do(t, id, http.MethodPut, "/api/v1/settings/toggles/shipping", `{"value":"enabled"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = srv.do(t, id, http.MethodPut, "/api/v1/settings/toggles/appStatus", `{"value":"on"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetToggle_Locked(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	// a page resuming after a restart finds its saved, locked view
	locked := domain.NewSyncSettings()
	locked.DisableAll = true
	require.NoError(t, srv.snapshots.Save(t.Context(), &domain.SettingsView{
		SessionID:    "saved-session",
		ShopDomain:   testShop,
		Shop:         domain.NewShopProfile("Acme", "1", "e", "acme.test", nil),
		SyncSettings: locked,
	}))

	resp := srv.do(t, "saved-session", http.MethodPut, "/api/v1/settings/toggles/orderSync", `{"value":"enabled"}`)
	require.Equal(t, http.StatusLocked, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Equal(t, domain.MsgSettingsLocked, body.Error)
	assert.Equal(t, domain.MsgSettingsLocked, body.View.Errors.ToggleError)
	assert.Equal(t, domain.ToggleDisabled, body.View.SyncSettings.OrderSync)
}

func TestOrderSyncAndModal(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodPost, "/api/v1/settings/sync-orders", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[actionBody](t, resp)
	assert.Equal(t, domain.ToastSyncNotImplemented, body.Toast)
	require.NotNil(t, body.View.Modal)
	assert.Equal(t, "Order Sync", body.View.Modal.Title)

	resp = srv.do(t, id, http.MethodPost, "/api/v1/settings/modal/close", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decode[actionBody](t, resp)
	assert.Nil(t, body.View.Modal)
}

func TestListOrders(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID

	resp := srv.do(t, id, http.MethodGet, "/api/v1/orders?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	orders := decode[[]domain.OrderRecord](t, resp)
	require.Len(t, orders, 1)
	assert.Equal(t, "#1001", orders[0].DisplayName)
	assert.Equal(t, "N/A", orders[0].CustomerFullName)
	assert.Equal(t, "$20.00 USD", orders[0].TotalFormatted)
	assert.Equal(t, "Unfulfilled", orders[0].Fulfillment)
	assert.Equal(t, "Widget (x3)", orders[0].LineItemsSummary)
}

func TestEndSession(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID
	require.Equal(t, 1, srv.sessions.Count())

	resp := srv.do(t, id, http.MethodDelete, "/api/v1/session", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, srv.sessions.Count())

	resp = srv.do(t, id, http.MethodPost, "/api/v1/settings/sync-orders", "")
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	srv.load(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var found bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "connector_active_sessions 1") {
			found = true
		}
	}
	assert.True(t, found)
}

// openStream subscribes to the session's notifications and returns its lines
func (s *testServer) openStream(t *testing.T, sessionID string) <-chan string {
	t.Helper()
	ctx, cancel := context.WithCancel(t.Context())
	t.Cleanup(cancel)

	resp, err := http.DefaultClient.Do(s.request(t, ctx, sessionID, http.MethodGet, "/api/v1/notifications/stream", ""))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()
	return lines
}

func waitForLine(t *testing.T, lines <-chan string, prefix string) string {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before %q", prefix)
			}
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", prefix)
		}
	}
}

func TestNotificationStream(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID

	lines := srv.openStream(t, id)
	waitForLine(t, lines, "event: connected")

	srv.do(t, id, http.MethodPost, "/api/v1/settings/sync-orders", "")

	waitForLine(t, lines, "id: ")
	waitForLine(t, lines, "event: notification")
	data := waitForLine(t, lines, "data: ")
	assert.Contains(t, data, domain.ToastSyncNotImplemented)
}

func TestNotificationStream_ClosesWhenSessionEnds(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)
	id := srv.load(t).SessionID

	lines := srv.openStream(t, id)
	waitForLine(t, lines, "event: connected")

	resp := srv.do(t, id, http.MethodDelete, "/api/v1/session", "")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-lines:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("stream stayed open after the session ended")
		}
	}
}

func TestNotificationStream_UnknownSession(t *testing.T) {
	srv := newTestServer(t, `{"s":1}`)

	resp := srv.do(t, "no-such-session", http.MethodGet, "/api/v1/notifications/stream", "")
	assert.Equal(t, http.StatusGone, resp.StatusCode)
}
