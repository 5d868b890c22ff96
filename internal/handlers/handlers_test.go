package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/events"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/integration"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/meli"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/middleware"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/models"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/services"
	"github.com/wolfxweb/meli-mentor-suite-sub000/internal/storage"
)

// fakeMarketplace answers the OAuth, identity and catalog endpoints
func fakeMarketplace(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		switch {
		case r.PostForm.Get("grant_type") == "authorization_code" && r.PostForm.Get("code") == "good-code":
			writeJSONResponse(w, http.StatusOK, meli.TokenResponse{
				AccessToken: "APP_USR-first", TokenType: "bearer", ExpiresIn: 21600,
				Scope: "offline_access read", UserID: 555, RefreshToken: "TG-first",
			})
		case r.PostForm.Get("grant_type") == "refresh_token" && r.PostForm.Get("refresh_token") == "TG-first":
			writeJSONResponse(w, http.StatusOK, meli.TokenResponse{
				AccessToken: "APP_USR-second", TokenType: "bearer", ExpiresIn: 21600, RefreshToken: "TG-second",
			})
		default:
			writeJSONResponse(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
		}
	})

	mux.HandleFunc("/users/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, meli.User{ID: 555, Nickname: "LOJA_TESTE", Email: "loja@example.com"})
	})
	mux.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/users/")
		user := meli.User{Nickname: "SELLER_" + id}
		user.SellerReputation.PowerSellerStatus = "gold"
		writeJSONResponse(w, http.StatusOK, user)
	})

	mux.HandleFunc("/products/MLB-P1/items", func(w http.ResponseWriter, r *http.Request) {
		writeJSONResponse(w, http.StatusOK, map[string]interface{}{
			"results": []map[string]interface{}{
				{"item_id": "MLB2", "title": "Fone Azul", "price": 110.0, "seller_id": 10},
				{"item_id": "MLB1", "title": "Fone Meu", "price": 100.0, "seller_id": 555},
				{"item_id": "MLB3", "title": "Fone Verde", "price": 90.0, "seller_id": 11},
			},
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

type testAPI struct {
	router  *mux.Router
	log     *events.Log
	manager *integration.Manager
}

// newTestAPI wires the handlers the same way the server does, without auth
func newTestAPI(t *testing.T, rateLimiter *middleware.RateLimiter) *testAPI {
	t.Helper()
	marketplace := fakeMarketplace(t)

	client := meli.NewClient(meli.ClientConfig{
		AuthURL: marketplace.URL, APIURL: marketplace.URL,
		ClientID: "app", ClientSecret: "secret",
		RatePerSecond: 1000, RateBurst: 100,
	})
	store, err := storage.NewMemoryStorage("")
	require.NoError(t, err)

	eventLog, err := events.NewLog(events.Config{MaxEvents: 100})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eventLog.Close() })

	manager, err := integration.NewManager(client, store, eventLog, nil, integration.Config{
		StateSecret:        []byte("test-secret"),
		DefaultRedirectURI: "https://app.example/callback",
	})
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	competitors := services.NewCompetitorService(manager, client, time.Minute, nil)
	t.Cleanup(competitors.Stop)

	analysisHandler := NewAnalysisHandler(services.NewAnalysisService(nil))
	integrationHandler := NewIntegrationHandler(manager, competitors)
	eventsHandler := NewEventsHandler(eventLog, slog.Default())
	rateLimitHandler := NewRateLimitStatusHandler(rateLimiter)
	adminHandler := NewAdminHandler(manager, competitors, eventLog)

	r := mux.NewRouter()
	r.HandleFunc("/health", NewHealthHandler().Health).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/callback", integrationHandler.Callback).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/events", eventsHandler.GetEvents).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/{id}/authorization-url", integrationHandler.AuthorizationURL).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/{id}/refresh", integrationHandler.Refresh).Methods(http.MethodPost)
	r.HandleFunc("/v1/integrations/{id}/test-connection", integrationHandler.TestConnection).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/{id}/status", integrationHandler.Status).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/{id}/competitors/{catalogProductId}", integrationHandler.Competitors).Methods(http.MethodGet)
	r.HandleFunc("/v1/integrations/{id}", integrationHandler.Disconnect).Methods(http.MethodDelete)
	r.HandleFunc("/v1/analysis/listing", analysisHandler.AnalyzeListing).Methods(http.MethodPost)
	r.HandleFunc("/v1/analysis/price", analysisHandler.ResolvePrice).Methods(http.MethodPost)
	r.HandleFunc("/v1/analysis/costs", analysisHandler.CostBreakdown).Methods(http.MethodPost)
	r.HandleFunc("/v1/analysis/catalog", analysisHandler.ClassifyCatalog).Methods(http.MethodPost)
	r.HandleFunc("/v1/analysis/ads", analysisHandler.AnalyzeAds).Methods(http.MethodPost)
	r.HandleFunc("/v1/admin/rate-limit/status", rateLimitHandler.GetRateLimitStatus).Methods(http.MethodGet)
	r.HandleFunc("/v1/admin/rate-limit/reset", rateLimitHandler.ResetRateLimits).Methods(http.MethodPost)
	r.HandleFunc("/v1/admin/stats", adminHandler.GetStats).Methods(http.MethodGet)

	return &testAPI{router: r, log: eventLog, manager: manager}
}

func (a *testAPI) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

// connect runs the authorization round trip for integrationID
func (a *testAPI) connect(t *testing.T, integrationID string) {
	t.Helper()
	rr := a.do(t, http.MethodGet, "/v1/integrations/"+integrationID+"/authorization-url", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var auth integration.AuthorizationRequest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&auth))

	rr = a.do(t, http.MethodGet, "/v1/integrations/callback?code=good-code&state="+url.QueryEscape(auth.State), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func floatPtr(v float64) *float64 { return &v }

// TestHealth tests the health endpoint
func TestHealth(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rr.Body.String())
}

// TestAnalysisHandler_Listing tests the full report endpoint
func TestAnalysisHandler_Listing(t *testing.T) {
	api := newTestAPI(t, nil)
	req := services.ListingAnalysisRequest{
		Listing: models.Listing{
			ID:                "MLB123",
			Price:             200,
			ListingFeeAmount:  floatPtr(0),
			SaleFeePercentage: floatPtr(12),
			SaleFeeFixed:      floatPtr(2),
			ProductCost:       models.NewAmount(50),
			ShippingCost:      models.NewAmount(15),
			TaxesPercent:      models.NewAmount(5),
			AdsCostPercent:    models.NewAmount(3),
		},
	}

	rr := api.do(t, http.MethodPost, "/v1/analysis/listing", req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report services.ListingReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	assert.Equal(t, "MLB123", report.ListingID)
	assert.Equal(t, 107.0, report.Costs.TotalCost)
	assert.Equal(t, 93.0, report.Costs.NetProfit)
	assert.NotNil(t, report.Advisories)
}

// TestAnalysisHandler_Errors tests the error envelope of the analysis endpoints
func TestAnalysisHandler_Errors(t *testing.T) {
	api := newTestAPI(t, nil)

	tests := []struct {
		name       string
		path       string
		body       interface{}
		wantStatus int
		wantCode   string
		wantField  string
	}{
		{name: "invalid json", path: "/v1/analysis/price", body: "{not json", wantStatus: http.StatusBadRequest, wantCode: "bad_request", wantField: "body"},
		{name: "negative price", path: "/v1/analysis/price", body: models.Listing{Price: -10}, wantStatus: http.StatusUnprocessableEntity, wantCode: "invalid_input", wantField: "price"},
		{name: "negative competitor", path: "/v1/analysis/catalog",
			body:       CatalogRequest{Listing: models.Listing{Price: 10}, Competitors: []models.CompetitorOffer{{ItemID: "X", Price: -1}}},
			wantStatus: http.StatusUnprocessableEntity, wantCode: "invalid_input", wantField: "competitors[0].price"},
		{name: "negative ads cost", path: "/v1/analysis/ads", body: AdsRequest{Metrics: models.AdsMetrics{Cost: -1}, ListingPrice: 10},
			wantStatus: http.StatusUnprocessableEntity, wantCode: "invalid_input", wantField: "cost"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decodeError(t, rr)
			assert.Equal(t, tt.wantCode, body.Code)
			require.NotEmpty(t, body.Details)
			assert.Equal(t, tt.wantField, body.Details[0].Field)
		})
	}
}

// TestAnalysisHandler_SingleStages tests the price, costs, catalog and ads endpoints
func TestAnalysisHandler_SingleStages(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodPost, "/v1/analysis/price", `{"price": 80, "original_price": 100}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"current":80,"original":100,"is_on_sale":true,"discount_percent":20}`, rr.Body.String())

	rr = api.do(t, http.MethodPost, "/v1/analysis/costs", `{"price": 150, "product_cost": "100", "sale_fee_amount": 0}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var costs map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&costs))
	assert.Equal(t, 50.0, costs["markup_percent"])

	rr = api.do(t, http.MethodPost, "/v1/analysis/catalog", CatalogRequest{
		Listing:     models.Listing{ID: "MLB1", Price: 100, CatalogListing: true},
		Competitors: []models.CompetitorOffer{{ItemID: "A", Price: 90}, {ItemID: "B", Price: 110}},
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var classification map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&classification))
	stats := classification["stats"].(map[string]interface{})
	assert.Equal(t, 2.0, stats["own_rank"])

	rr = api.do(t, http.MethodPost, "/v1/analysis/ads", `{"metrics": {"period_days": 30, "acos": 10}, "listing_price": 100, "ads_cost_percent": "junk"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

// TestIntegrationHandler_Lifecycle tests connect, refresh, probe, competitors, events and disconnect
func TestIntegrationHandler_Lifecycle(t *testing.T) {
	api := newTestAPI(t, nil)

	// Act: connect
	api.connect(t, "store-1")

	// Assert: status
	rr := api.do(t, http.MethodGet, "/v1/integrations/store-1/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var status integration.ConnectionStatus
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&status))
	assert.True(t, status.Connected)
	assert.Equal(t, integration.StateConnected, status.State)
	assert.Equal(t, "555", status.ExternalUserID)

	// refresh never exposes tokens
	rr = api.do(t, http.MethodPost, "/v1/integrations/store-1/refresh", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "APP_USR")
	assert.NotContains(t, rr.Body.String(), "TG-")

	rr = api.do(t, http.MethodGet, "/v1/integrations/store-1/test-connection", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var probe integration.ConnectionTest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&probe))
	assert.True(t, probe.OK)
	assert.Equal(t, "LOJA_TESTE", probe.Nickname)

	rr = api.do(t, http.MethodGet, "/v1/integrations/store-1/competitors/MLB-P1?item_id=MLB1&price=100&free_shipping=true", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var report services.CompetitorReport
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
	require.Len(t, report.Competitors, 3)
	assert.Equal(t, 90.0, report.Competitors[0].Price)
	assert.Equal(t, "SELLER_11", report.Competitors[0].Seller.Nickname)
	require.NotNil(t, report.Classification.Stats)
	assert.Equal(t, 2, report.Classification.Stats.Count)
	assert.Equal(t, 2, report.Classification.Stats.SellerTiers.Gold)

	rr = api.do(t, http.MethodGet, "/v1/integrations/events?offset=0", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var evts models.EventsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&evts))
	var types []string
	for _, e := range evts.Events {
		types = append(types, e.EventType)
	}
	assert.Equal(t, []string{
		models.EventTypeAuthorizationStarted, models.EventTypeConnected, models.EventTypeTokenRefreshed,
	}, types)

	// disconnect twice
	rr = api.do(t, http.MethodDelete, "/v1/integrations/store-1", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = api.do(t, http.MethodDelete, "/v1/integrations/store-1", nil)
	require.Equal(t, http.StatusOK, rr.Code, "deactivating an inactive record is idempotent")

	rr = api.do(t, http.MethodGet, "/v1/integrations/store-1/competitors/MLB-P1", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_connected", decodeError(t, rr).Code)
}

// TestIntegrationHandler_CallbackErrors tests the OAuth callback failure modes
func TestIntegrationHandler_CallbackErrors(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/v1/integrations/store-1/authorization-url", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var auth integration.AuthorizationRequest
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&auth))
	assert.Contains(t, auth.URL, "redirect_uri="+url.QueryEscape("https://app.example/callback"))

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantCode   string
	}{
		{name: "seller denied", query: "error=access_denied&error_description=nope", wantStatus: http.StatusBadRequest, wantCode: "authorization_denied"},
		{name: "missing state", query: "code=good-code", wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "forged state", query: "code=good-code&state=forged", wantStatus: http.StatusBadRequest, wantCode: "invalid_state"},
		{name: "rejected code", query: "code=bad-code&state=" + url.QueryEscape(auth.State), wantStatus: http.StatusBadGateway, wantCode: "token_exchange_failed"},
		{name: "replayed state", query: "code=good-code&state=" + url.QueryEscape(auth.State), wantStatus: http.StatusBadRequest, wantCode: "invalid_state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := api.do(t, http.MethodGet, "/v1/integrations/callback?"+tt.query, nil)

			assert.Equal(t, tt.wantStatus, rr.Code)
			body := decodeError(t, rr)
			assert.Equal(t, tt.wantCode, body.Code)
			if tt.wantCode == "token_exchange_failed" {
				require.NotEmpty(t, body.Details)
				assert.Equal(t, models.ErrorDetail{Field: "upstream_status", Issue: "400"}, body.Details[0])
			}
		})
	}
}

// TestIntegrationHandler_NotConnected tests endpoints against an unknown integration
func TestIntegrationHandler_NotConnected(t *testing.T) {
	api := newTestAPI(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/integrations/ghost/refresh"},
		{http.MethodGet, "/v1/integrations/ghost/test-connection"},
		{http.MethodDelete, "/v1/integrations/ghost"},
	} {
		rr := api.do(t, tc.method, tc.path, nil)
		assert.Equal(t, http.StatusNotFound, rr.Code, "%s %s", tc.method, tc.path)
	}

	rr := api.do(t, http.MethodGet, "/v1/integrations/ghost/status", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"state":"disconnected"`)

	rr = api.do(t, http.MethodGet, "/v1/integrations/ghost/competitors/MLB-P1?price=abc&free_shipping=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, decodeError(t, rr).Details, 2)
}

// TestEventsHandler tests validation and long polling
func TestEventsHandler(t *testing.T) {
	api := newTestAPI(t, nil)

	rr := api.do(t, http.MethodGet, "/v1/integrations/events", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodGet, "/v1/integrations/events?offset=-4", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = api.do(t, http.MethodGet, "/v1/integrations/events?offset=0", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"events":[],"nextOffset":0,"hasMore":false,"count":0}`, rr.Body.String())

	go func() {
		time.Sleep(50 * time.Millisecond)
		api.log.Publish(models.EventTypeConnected, "store-9", "")
	}()
	start := time.Now()
	rr = api.do(t, http.MethodGet, "/v1/integrations/events?offset=0&wait=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Less(t, time.Since(start), 4*time.Second)

	var resp models.EventsResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "store-9", resp.Events[0].IntegrationID)
	assert.Equal(t, int64(1), resp.NextOffset)
}

// TestRateLimitStatusHandler tests the admin endpoints with and without a limiter
func TestRateLimitStatusHandler(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		api := newTestAPI(t, nil)
		rr := api.do(t, http.MethodGet, "/v1/admin/rate-limit/status", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
			Enabled: true, Type: middleware.RateLimitTypeIP, RequestsPerMinute: 60, Burst: 5,
		})
		t.Cleanup(limiter.Stop)
		limiter.IsAllowed("192.0.2.1", false)
		api := newTestAPI(t, limiter)

		rr := api.do(t, http.MethodGet, "/v1/admin/rate-limit/status", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"active_ip_limits":1`)

		rr = api.do(t, http.MethodPost, "/v1/admin/rate-limit/reset", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 0, limiter.GetRateLimitStats()["active_ip_limits"])
	})
}

// TestAdminHandler_Stats tests the runtime statistics endpoint
func TestAdminHandler_Stats(t *testing.T) {
	// Arrange
	api := newTestAPI(t, nil)
	api.connect(t, "shop-stats")

	// Act
	rr := api.do(t, http.MethodGet, "/v1/admin/stats", nil)

	// Assert
	require.Equal(t, http.StatusOK, rr.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	locks := body["integration_locks"].(map[string]interface{})
	assert.Equal(t, 1.0, locks["total_integration_locks"])
	assert.Equal(t, 0.0, locks["pending_authorizations"])
	assert.Contains(t, body, "competitor_cache")
	assert.Equal(t, 2.0, body["event_log_offset"])
}

// TestWriteServiceError tests the status mapping of lifecycle errors
func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{integration.ErrTokenExpired, http.StatusUnauthorized, "reconnect_required"},
		{fmt.Errorf("wrapped: %w", integration.ErrConcurrentRefresh), http.StatusConflict, "refresh_in_progress"},
		{&integration.RefreshError{IntegrationID: "a", Err: &meli.APIError{StatusCode: 400, Body: "invalid_grant"}}, http.StatusBadGateway, "token_refresh_failed"},
		{&meli.APIError{StatusCode: 500}, http.StatusBadGateway, "upstream_error"},
		{&integration.RefreshError{IntegrationID: "a", Err: fmt.Errorf("failed to make request: %w", context.DeadlineExceeded)}, http.StatusGatewayTimeout, "upstream_timeout"},
		{context.Canceled, http.StatusServiceUnavailable, "request_canceled"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeServiceError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, rr).Code)
		})
	}
}
