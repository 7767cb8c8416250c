package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/internal/cron"
	mpwebhook "github.com/agendali/payments-backend/internal/webhooks/mercadopago"
	"github.com/agendali/payments-backend/pkg/config"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubIdempotencyStore struct {
	records map[string]string
}

func (s *stubIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	return s.records[key], nil
}

func (s *stubIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if s.records == nil {
		s.records = map[string]string{}
	}
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	s.records[key] = value.(string)
	return true, nil
}

func (s *stubIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "agl:idemp:" + scope + ":" + id
}

func (s *stubIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

type stubChargesService struct{}

func (stubChargesService) Create(_ context.Context, params charges.CreateChargeParams) (*models.Charge, error) {
	return &models.Charge{ID: uuid.New(), CustomerID: params.CustomerID, Amount: params.Amount}, nil
}

func (stubChargesService) List(context.Context, charges.ListParams) (*charges.ListResult, error) {
	return &charges.ListResult{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(context.Context, uuid.UUID, int) ([]models.Notification, error) {
	return nil, nil
}

type stubWebhookService struct{}

func (stubWebhookService) HandleNotification(context.Context, mpwebhook.Notification) error {
	return nil
}

func testRouter() http.Handler {
	cfg := &config.Config{}
	cfg.App.Env = "test"
	return NewRouter(RouterParams{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "routes-test"}),
		DB:            stubPinger{},
		Redis:         &stubIdempotencyStore{},
		RedisPinger:   stubPinger{},
		Charges:       stubChargesService{},
		Notifications: stubNotificationsService{},
		Webhooks:      stubWebhookService{},
		Jobs:          cron.NewRegistry(),
	})
}

func TestRouterHealthEndpoints(t *testing.T) {
	router := testRouter()

	for _, path := range []string{"/health/live", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, resp.Code)
		}
	}
}

func TestRouterChargeCreationRequiresIdempotencyKey(t *testing.T) {
	router := testRouter()

	body := `{"customer_id":"` + uuid.NewString() + `","amount":"50.00"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charges", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", resp.Code)
	}
}

func TestRouterChargeCreationReplaysStoredResponse(t *testing.T) {
	router := testRouter()

	body := `{"customer_id":"` + uuid.NewString() + `","amount":"50.00"}`
	first := httptest.NewRequest(http.MethodPost, "/api/v1/charges", strings.NewReader(body))
	first.Header.Set("Idempotency-Key", "abc-123")
	firstResp := httptest.NewRecorder()
	router.ServeHTTP(firstResp, first)
	if firstResp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", firstResp.Code, firstResp.Body.String())
	}

	second := httptest.NewRequest(http.MethodPost, "/api/v1/charges", strings.NewReader(body))
	second.Header.Set("Idempotency-Key", "abc-123")
	secondResp := httptest.NewRecorder()
	router.ServeHTTP(secondResp, second)
	if secondResp.Code != http.StatusCreated {
		t.Fatalf("expected replayed 201, got %d", secondResp.Code)
	}
	if secondResp.Body.String() != firstResp.Body.String() {
		t.Fatal("replay must return the stored response body")
	}
}

func TestRouterWebhookAccepted(t *testing.T) {
	router := testRouter()

	body := `{"type":"payment","data":{"id":"1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/mercadopago", strings.NewReader(body))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestRouterUnknownJob(t *testing.T) {
	router := testRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs/nope/run", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
