package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/api/responses"
	"github.com/agendali/payments-backend/api/validators"
	"github.com/agendali/payments-backend/internal/charges"
	"github.com/agendali/payments-backend/pkg/db/models"
	"github.com/agendali/payments-backend/pkg/enums"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
)

const maxListLimit = 100

// ChargesService is the slice of the charge service the HTTP layer needs.
type ChargesService interface {
	Create(ctx context.Context, params charges.CreateChargeParams) (*models.Charge, error)
	List(ctx context.Context, params charges.ListParams) (*charges.ListResult, error)
}

type createChargeRequest struct {
	CustomerID        string  `json:"customer_id" validate:"required,uuid"`
	Amount            string  `json:"amount" validate:"required"`
	Description       string  `json:"description" validate:"omitempty,max=140"`
	AppointmentID     *string `json:"appointment_id,omitempty" validate:"omitempty,uuid"`
	FinancialRecordID *string `json:"financial_record_id,omitempty" validate:"omitempty,uuid"`
}

type chargeResponse struct {
	ID                string     `json:"id"`
	CustomerID        string     `json:"customer_id"`
	SubscriptionID    *string    `json:"subscription_id,omitempty"`
	AppointmentID     *string    `json:"appointment_id,omitempty"`
	ProviderPaymentID *string    `json:"provider_payment_id,omitempty"`
	Amount            string     `json:"amount"`
	Status            string     `json:"status"`
	QRCode            *string    `json:"qr_code,omitempty"`
	ExpiresAt         time.Time  `json:"expires_at"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

type listChargesResponse struct {
	Charges []chargeResponse `json:"charges"`
	Cursor  string           `json:"cursor"`
}

// CreateCharge issues a PIX charge and returns it with the QR code payload.
func CreateCharge(svc ChargesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "charge service unavailable"))
			return
		}

		var body createChargeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		customerID, err := uuid.Parse(body.CustomerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid uuid"))
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal string"))
			return
		}

		params := charges.CreateChargeParams{
			CustomerID:  customerID,
			Amount:      amount,
			Description: body.Description,
		}
		if body.AppointmentID != nil {
			id, parseErr := uuid.Parse(*body.AppointmentID)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "appointment_id must be a valid uuid"))
				return
			}
			params.AppointmentID = &id
		}
		if body.FinancialRecordID != nil {
			id, parseErr := uuid.Parse(*body.FinancialRecordID)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "financial_record_id must be a valid uuid"))
				return
			}
			params.FinancialRecordID = &id
		}

		charge, err := svc.Create(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, toChargeResponse(*charge))
	}
}

// ListCharges pages through charges, newest first.
func ListCharges(svc ChargesService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "charge service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, maxListLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		query := r.URL.Query()
		params := charges.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(query.Get("cursor")),
		}

		if raw := strings.TrimSpace(query.Get("customer_id")); raw != "" {
			id, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid uuid"))
				return
			}
			params.CustomerID = &id
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status, parseErr := enums.ParseChargeStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status"))
				return
			}
			params.Status = &status
		}

		result, err := svc.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := listChargesResponse{
			Charges: make([]chargeResponse, len(result.Charges)),
			Cursor:  result.NextCursor,
		}
		for i, charge := range result.Charges {
			payload.Charges[i] = toChargeResponse(charge)
		}

		responses.WriteSuccess(w, payload)
	}
}

func toChargeResponse(c models.Charge) chargeResponse {
	resp := chargeResponse{
		ID:                c.ID.String(),
		CustomerID:        c.CustomerID.String(),
		ProviderPaymentID: c.ProviderPaymentID,
		Amount:            c.Amount.StringFixed(2),
		Status:            string(c.Status),
		QRCode:            c.QRCode,
		ExpiresAt:         c.ExpiresAt.UTC(),
		PaidAt:            c.PaidAt,
		CreatedAt:         c.CreatedAt.UTC(),
	}
	if c.SubscriptionID != nil {
		id := c.SubscriptionID.String()
		resp.SubscriptionID = &id
	}
	if c.AppointmentID != nil {
		id := c.AppointmentID.String()
		resp.AppointmentID = &id
	}
	return resp
}
