package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
)

type testChargesService struct {
	lastCreate charges.CreateChargeParams
	lastList   charges.ListParams
	charge     *models.Charge
	list       *charges.ListResult
	err        error
}

func (s *testChargesService) Create(_ context.Context, params charges.CreateChargeParams) (*models.Charge, error) {
	s.lastCreate = params
	return s.charge, s.err
}

func (s *testChargesService) List(_ context.Context, params charges.ListParams) (*charges.ListResult, error) {
	s.lastList = params
	return s.list, s.err
}

func TestCreateChargeReturnsCreated(t *testing.T) {
	customerID := uuid.New()
	qr := "00020126580014br.gov.bcb.pix"
	service := &testChargesService{
		charge: &models.Charge{
			ID:         uuid.New(),
			CustomerID: customerID,
			Amount:     decimal.RequireFromString("150.00"),
			Status:     enums.ChargeStatusPending,
			QRCode:     &qr,
			ExpiresAt:  time.Now().Add(24 * time.Hour),
		},
	}

	body := `{"customer_id":"` + customerID.String() + `","amount":"150.00","description":"Corte de cabelo"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charges", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreateCharge(service, nil)(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if service.lastCreate.CustomerID != customerID {
		t.Fatalf("customer id not forwarded")
	}
	if !service.lastCreate.Amount.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("amount not forwarded, got %s", service.lastCreate.Amount)
	}

	var envelope struct {
		Data chargeResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.QRCode == nil || *envelope.Data.QRCode != qr {
		t.Fatalf("qr code missing from response")
	}
	if envelope.Data.Amount != "150.00" {
		t.Fatalf("unexpected amount %q", envelope.Data.Amount)
	}
}

func TestCreateChargeRejectsBadAmount(t *testing.T) {
	body := `{"customer_id":"` + uuid.NewString() + `","amount":"abc"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charges", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreateCharge(&testChargesService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestCreateChargeRejectsUnknownFields(t *testing.T) {
	body := `{"customer_id":"` + uuid.NewString() + `","amount":"10.00","surprise":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/charges", strings.NewReader(body))
	resp := httptest.NewRecorder()
	CreateCharge(&testChargesService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestListChargesParsesFilters(t *testing.T) {
	customerID := uuid.New()
	service := &testChargesService{
		list: &charges.ListResult{
			Charges: []models.Charge{
				{
					ID:         uuid.New(),
					CustomerID: customerID,
					Amount:     decimal.RequireFromString("99.90"),
					Status:     enums.ChargeStatusPaid,
					ExpiresAt:  time.Now(),
				},
			},
			NextCursor: "next-page",
		},
	}

	target := "/api/v1/charges?limit=10&status=paid&customer_id=" + customerID.String() + "&cursor=abc"
	req := httptest.NewRequest(http.MethodGet, target, nil)
	resp := httptest.NewRecorder()
	ListCharges(service, nil)(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if service.lastList.Limit != 10 {
		t.Fatalf("expected limit 10, got %d", service.lastList.Limit)
	}
	if service.lastList.Status == nil || *service.lastList.Status != enums.ChargeStatusPaid {
		t.Fatalf("status filter not forwarded")
	}
	if service.lastList.CustomerID == nil || *service.lastList.CustomerID != customerID {
		t.Fatalf("customer filter not forwarded")
	}
	if service.lastList.Cursor != "abc" {
		t.Fatalf("cursor not forwarded, got %q", service.lastList.Cursor)
	}

	var envelope struct {
		Data listChargesResponse `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Cursor != "next-page" {
		t.Fatalf("next cursor not forwarded, got %q", envelope.Data.Cursor)
	}
	if len(envelope.Data.Charges) != 1 {
		t.Fatalf("expected 1 charge, got %d", len(envelope.Data.Charges))
	}
}

func TestListChargesRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/charges?status=void", nil)
	resp := httptest.NewRecorder()
	ListCharges(&testChargesService{}, nil)(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
