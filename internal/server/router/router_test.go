package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/dairyfarm/internal/blob"
	"github.com/mamadbah2/dairyfarm/internal/domain/models"
	"github.com/mamadbah2/dairyfarm/internal/metrics"
	"github.com/mamadbah2/dairyfarm/internal/repository/gormdb/gormdbtest"
	"github.com/mamadbah2/dairyfarm/internal/server/admin"
	"github.com/mamadbah2/dairyfarm/internal/server/handlers"
	"github.com/mamadbah2/dairyfarm/internal/service/analytics"
	"github.com/mamadbah2/dairyfarm/internal/service/breeding"
	"github.com/mamadbah2/dairyfarm/internal/service/farms"
	"github.com/mamadbah2/dairyfarm/internal/service/feeds"
	"github.com/mamadbah2/dairyfarm/internal/service/financial"
	"github.com/mamadbah2/dairyfarm/internal/service/health"
	"github.com/mamadbah2/dairyfarm/internal/service/livestock"
	"github.com/mamadbah2/dairyfarm/internal/service/notifications"
	"github.com/mamadbah2/dairyfarm/internal/service/production"
	"github.com/mamadbah2/dairyfarm/internal/service/reports"
	"github.com/mamadbah2/dairyfarm/internal/service/summary"
)

type fakeMessaging struct {
	handled int
	sendErr error
}

func (f *fakeMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != "secret" {
		return "", errors.New("bad token")
	}
	return challenge, nil
}

func (f *fakeMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	f.handled++
	return errors.New("reply failed")
}

func (f *fakeMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return f.sendErr
}

type testServer struct {
	engine *gin.Engine
	wa     *fakeMessaging
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := gormdbtest.NewStore(t)
	farmSvc := farms.NewService(store, nil)
	herd := livestock.NewService(store, nil)
	prod := production.NewService(store, nil)
	feedSvc := feeds.NewService(store, nil)
	healthSvc := health.NewService(store, nil)
	breed := breeding.NewService(store, nil)
	ledger := financial.NewService(store, nil)
	sums := summary.NewService(store, nil)
	stats := analytics.NewService(store, nil)
	notes := notifications.NewService(store, nil, nil)
	reps := reports.NewService(store, stats, blob.NewMemory(), notes, nil)

	registry := admin.NewDefault(store, admin.Services{
		Farms: farmSvc, Livestock: herd, Production: prod, Feeds: feedSvc, Health: healthSvc,
		Breeding: breed, Financial: ledger, Summary: sums, Reports: reps, Notifications: notes,
	})
	wa := &fakeMessaging{}
	engine := New(Deps{
		API: []Mounter{
			handlers.NewRecords(farmSvc, herd, prod, feedSvc, healthSvc, breed, ledger, nil),
			handlers.NewInsights(sums, stats, nil),
			handlers.NewReports(reps, nil),
			handlers.NewNotifications(notes, nil),
			handlers.NewAdmin(registry, nil),
		},
		Webhook: handlers.NewWebhookHandler(wa, nil),
		Metrics: metrics.New(),
		DB:      store,
	}, nil)
	return &testServer{engine: engine, wa: wa}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
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
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) seedFarmAndCow(t *testing.T) (farmID, cowID string) {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/farms", map[string]any{"name": "Green Acres", "location": "Nakuru"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	farmID = decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/cows", map[string]any{
		"farm_id": farmID, "name": "Daisy", "tag_number": "C-001", "breed": "friesian", "date_acquired": "2022-01-10",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cowID = decode[map[string]any](t, rec)["id"].(string)
	return farmID, cowID
}

func TestHealthzAndMetrics(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `route="/healthz"`)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	farmID, cowID := s.seedFarmAndCow(t)

	rec := s.do(t, http.MethodPost, "/api/farms", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/farms", map[string]any{"name": "No location"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[handlers.ErrorResponse](t, rec)
	assert.Equal(t, "validation failed", body.Detail)
	assert.Contains(t, body.Fields, "location")

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/farms/not-a-uuid", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/cows/00000000-0000-0000-0000-000000000001", nil).Code)

	milk := map[string]any{"cow_id": cowID, "date": "2024-05-01", "session": "morning", "quantity_liters": "12.5"}
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/milk", milk).Code)
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/api/milk", milk).Code)

	rec = s.do(t, http.MethodGet, "/api/cows?farm_id="+farmID+"&colour=black", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/cows?limit=ten", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListAndUpdate(t *testing.T) {
	s := newTestServer(t)
	farmID, cowID := s.seedFarmAndCow(t)

	rec := s.do(t, http.MethodGet, "/api/cows?farm_id="+farmID+"&search=daisy", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Results []map[string]any `json:"results"`
		Count   int              `json:"count"`
	}](t, rec)
	assert.Equal(t, 1, page.Count)
	assert.Equal(t, "C-001", page.Results[0]["tag_number"])

	rec = s.do(t, http.MethodPut, "/api/cows/"+cowID, map[string]any{
		"farm_id": farmID, "name": "Daisy II", "tag_number": "C-001", "breed": "jersey", "date_acquired": "2022-01-10",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Daisy II", decode[map[string]any](t, rec)["name"])

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/cows/"+cowID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/cows/"+cowID, nil).Code)
}

func TestBatchReductions(t *testing.T) {
	s := newTestServer(t)
	farmID, _ := s.seedFarmAndCow(t)

	rec := s.do(t, http.MethodPost, "/api/chicken-batches", map[string]any{
		"farm_id": farmID, "batch_name": "Layers", "batch_type": "layers", "initial_count": 50, "date_acquired": "2024-01-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	batchID := decode[map[string]any](t, rec)["id"].(string)

	path := "/api/chicken-batches/" + batchID + "/reductions"
	rec = s.do(t, http.MethodPost, path, map[string]any{"count": 5, "reason": "death", "date": "2024-02-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, path, map[string]any{"count": 46, "reason": "sale"}).Code)

	rec = s.do(t, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"count":1`)

	rec = s.do(t, http.MethodGet, "/api/chicken-batches/"+batchID, nil)
	assert.EqualValues(t, 45, decode[map[string]any](t, rec)["current_count"])

	update := map[string]any{
		"farm_id": farmID, "batch_name": "Layers", "batch_type": "layers", "initial_count": 50,
		"date_acquired": "2024-01-01", "current_count": 500,
	}
	rec = s.do(t, http.MethodPut, "/api/chicken-batches/"+batchID, update)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	assert.Contains(t, decode[handlers.ErrorResponse](t, rec).Fields, "current_count")

	delete(update, "current_count")
	update["notes"] = "house 2"
	rec = s.do(t, http.MethodPut, "/api/chicken-batches/"+batchID, update)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 45, decode[map[string]any](t, rec)["current_count"])

	rec = s.do(t, http.MethodGet, "/api/chicken-batches/"+batchID, nil)
	assert.EqualValues(t, 45, decode[map[string]any](t, rec)["current_count"])
}

func TestSummariesAndAnalytics(t *testing.T) {
	s := newTestServer(t)
	farmID, cowID := s.seedFarmAndCow(t)
	for _, session := range []string{"morning", "evening"} {
		rec := s.do(t, http.MethodPost, "/api/milk", map[string]any{"cow_id": cowID, "date": "2024-05-01", "session": session, "quantity_liters": 10})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := s.do(t, http.MethodPost, "/api/summaries/daily-milk/recalculate", map[string]any{"farm_id": farmID, "date": "2024-05-01"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodGet, "/api/summaries/daily-milk?farm_id="+farmID+"&date=2024-05-01", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "20", decode[map[string]any](t, rec)["total_daily"])

	rec = s.do(t, http.MethodPost, "/api/summaries/monthly-financial/recalculate", map[string]any{"farm_id": farmID, "year": 2024, "month": 13})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode[handlers.ErrorResponse](t, rec).Fields, "month")

	rec = s.do(t, http.MethodGet, "/api/analytics/milk?farm_id="+farmID+"&start_date=2024-05-01&end_date=2024-05-07", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "20", decode[map[string]any](t, rec)["total_production"])

	rec = s.do(t, http.MethodGet, "/api/analytics/eggs?farm_id=nope", nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := decode[handlers.ErrorResponse](t, rec).Fields
	assert.Contains(t, fields, "farm_id")
	assert.Contains(t, fields, "start_date")
	assert.Contains(t, fields, "end_date")
}

func TestAnalyticsUnknownFarm(t *testing.T) {
	s := newTestServer(t)
	query := "?farm_id=00000000-0000-0000-0000-000000000001&start_date=2024-01-01&end_date=2024-01-31"
	for _, stat := range []string{"milk", "eggs", "feed", "financial", "bundle"} {
		rec := s.do(t, http.MethodGet, "/api/analytics/"+stat+query, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, stat)
	}
}

func TestReportsAndNotifications(t *testing.T) {
	s := newTestServer(t)
	farmID, _ := s.seedFarmAndCow(t)

	rec := s.do(t, http.MethodPost, "/api/reports", map[string]any{
		"farm_id": farmID, "report_type": "weekly", "start_date": "2024-05-01", "end_date": "2024-05-07", "generated_by": "manager",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	reportID := decode[map[string]any](t, rec)["id"].(string)

	rec = s.do(t, http.MethodGet, "/api/reports/"+reportID+"/file", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = s.do(t, http.MethodGet, "/api/notifications?recipient_id=manager&unread=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	page := decode[struct {
		Results []map[string]any `json:"results"`
	}](t, rec)
	require.NotEmpty(t, page.Results)
	noteID := page.Results[0]["id"].(string)

	rec = s.do(t, http.MethodPost, "/api/notifications/"+noteID+"/read", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["is_read"])

	rec = s.do(t, http.MethodGet, "/api/notifications?recipient_id=manager&unread=maybe", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodGet, "/api/notifications/ws", nil).Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t)
	_, cowID := s.seedFarmAndCow(t)

	rec := s.do(t, http.MethodGet, "/api/admin/resources", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"feed-purchases"`)

	rec = s.do(t, http.MethodGet, "/api/admin/resources/cows?q=C-00&ordering=tag_number", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"tag_number":"C-001"`)

	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/admin/resources/barns", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodPost, "/api/admin/resources/cows/actions/explode", map[string]any{"ids": []string{cowID}}).Code)

	rec = s.do(t, http.MethodPost, "/api/admin/resources/cows/actions/soft_delete", map[string]any{"ids": []string{cowID}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"action":"soft_delete","succeeded":1}`, rec.Body.String())
}

func TestWebhookRoutes(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=42", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "42", rec.Body.String())
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope", nil).Code)

	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/webhook", map[string]any{"object": "whatsapp_business_account"}).Code)
	assert.Equal(t, 1, s.wa.handled)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/webhook", "not json").Code)

	assert.Equal(t, http.StatusAccepted, s.do(t, http.MethodPost, "/send-message", map[string]any{"to": "2547", "message": "hi"}).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPost, "/send-message", map[string]any{"to": "2547"}).Code)
	s.wa.sendErr = errors.New("meta down")
	assert.Equal(t, http.StatusBadGateway, s.do(t, http.MethodPost, "/send-message", map[string]any{"to": "2547", "message": "hi"}).Code)
}
