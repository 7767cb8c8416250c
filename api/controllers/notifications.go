package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agendali/payments-backend/api/responses"
	"github.com/agendali/payments-backend/api/validators"
	"github.com/agendali/payments-backend/pkg/db/models"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
)

type NotificationsService interface {
	List(ctx context.Context, customerID uuid.UUID, limit int) ([]models.Notification, error)
}

type notificationResponse struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func ListNotifications(svc NotificationsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		raw := strings.TrimSpace(r.URL.Query().Get("customer_id"))
		if raw == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id is required"))
			return
		}
		customerID, err := uuid.Parse(raw)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "customer_id must be a valid uuid"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.List(ctx, customerID, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		payload := make([]notificationResponse, len(rows))
		for i, row := range rows {
			payload[i] = notificationResponse{
				ID:        row.ID.String(),
				Type:      string(row.Type),
				Title:     row.Title,
				Body:      row.Body,
				ReadAt:    row.ReadAt,
				CreatedAt: row.CreatedAt.UTC(),
			}
		}
		responses.WriteSuccess(w, map[string]any{"notifications": payload})
	}
}
