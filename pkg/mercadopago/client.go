package mercadopago

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/agendali/payments-backend/pkg/config"
	pkgerrors "github.com/agendali/payments-backend/pkg/errors"
	"github.com/agendali/payments-backend/pkg/logger"
)

const (
	paymentMethodPix = "pix"

	headerIdempotency = "X-Idempotency-Key"
)

var (
	errAccessTokenRequired = errors.New("mercado pago access token is required")
	errLoggerRequired      = errors.New("mercado pago logger is required")
	errBaseURLInvalid      = errors.New("mercado pago base url is invalid")
)

// Doer abstracts the HTTP transport so tests can swap it out.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client wraps the Mercado Pago REST API with centralized auth, logging, retry,
// and error mapping. Only the payments surface the billing flows need is exposed.
type Client struct {
	httpClient  Doer
	accessToken string
	baseURL     *url.URL
	maxRetries  int
	logger      *logger.Logger
}

// NewClient initializes the Mercado Pago wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.MercadoPagoConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	accessToken := strings.TrimSpace(cfg.AccessToken)
	if accessToken == "" {
		return nil, errAccessTokenRequired
	}
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errBaseURLInvalid
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: timeout},
		accessToken: accessToken,
		baseURL:     base,
		maxRetries:  cfg.MaxRetries,
		logger:      logg,
	}

	logg.Info(ctx, "mercado pago client initialized")
	return c, nil
}

// NewIdempotencyKey returns a unique key for Mercado Pago write operations.
func (c *Client) NewIdempotencyKey(prefix string) string {
	key := strings.TrimSpace(prefix)
	if key == "" {
		key = "agl"
	}
	return fmt.Sprintf("%s-%s", key, uuid.NewString())
}

// Payment is the subset of the Mercado Pago payment resource the billing flows read.
type Payment struct {
	ID                int64           `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	DateApproved      *time.Time      `json:"date_approved"`
	DateOfExpiration  *time.Time      `json:"date_of_expiration"`
	PointOfInteraction struct {
		TransactionData struct {
			QRCode       string `json:"qr_code"`
			QRCodeBase64 string `json:"qr_code_base64"`
			TicketURL    string `json:"ticket_url"`
		} `json:"transaction_data"`
	} `json:"point_of_interaction"`
}

// ProviderID renders the numeric payment id the way webhooks reference it.
func (p *Payment) ProviderID() string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("%d", p.ID)
}

// PaymentCreateParams describes a PIX charge request.
type PaymentCreateParams struct {
	Amount            decimal.Decimal
	Description       string
	ExternalReference string
	PayerEmail        string
	ExpiresAt         time.Time
	IdempotencyKey    string
}

type paymentCreateRequest struct {
	TransactionAmount decimal.Decimal `json:"transaction_amount"`
	Description       string          `json:"description,omitempty"`
	PaymentMethodID   string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference,omitempty"`
	DateOfExpiration  string          `json:"date_of_expiration,omitempty"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
}

// CreatePayment creates a PIX payment and returns the provider resource including the QR code.
func (c *Client) CreatePayment(ctx context.Context, params PaymentCreateParams) (*Payment, error) {
	body := paymentCreateRequest{
		TransactionAmount: params.Amount,
		Description:       params.Description,
		PaymentMethodID:   paymentMethodPix,
		ExternalReference: params.ExternalReference,
	}
	body.Payer.Email = params.PayerEmail
	if !params.ExpiresAt.IsZero() {
		body.DateOfExpiration = params.ExpiresAt.UTC().Format("2006-01-02T15:04:05.000-07:00")
	}

	c.log(ctx, "request", "create_payment", map[string]any{
		"external_reference": params.ExternalReference,
		"amount":             params.Amount.String(),
	})

	payment := &Payment{}
	headers := map[string]string{
		headerIdempotency: c.ensureIdempotencyKey("payment.create", params.IdempotencyKey),
	}
	if err := c.do(ctx, http.MethodPost, "/v1/payments", headers, body, payment); err != nil {
		c.log(ctx, "error", "create_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "create_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return payment, nil
}

// GetPayment fetches a payment by its provider id.
func (c *Client) GetPayment(ctx context.Context, paymentID string) (*Payment, error) {
	id := strings.TrimSpace(paymentID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required")
	}

	c.log(ctx, "request", "get_payment", map[string]any{"payment_id": id})

	payment := &Payment{}
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, nil, payment); err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "get_payment", map[string]any{
		"payment_id": payment.ID,
		"status":     payment.Status,
	})
	return payment, nil
}

func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, in, out any) error {
	var payload []byte
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode mercado pago request")
		}
		payload = encoded
	}

	target := c.baseURL.JoinPath(path).String()

	backoff := retry.WithMaxRetries(uint64(c.retries()), retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, target, reader)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build mercado pago request")
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mercado pago request failed"))
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read mercado pago response"))
		}

		if resp.StatusCode >= 500 {
			return retry.RetryableError(c.mapAPIError(resp.StatusCode, raw))
		}
		if resp.StatusCode >= 400 {
			return c.mapAPIError(resp.StatusCode, raw)
		}

		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode mercado pago response")
			}
		}
		return nil
	})
}

func (c *Client) retries() int {
	if c.maxRetries <= 0 {
		return 0
	}
	return c.maxRetries
}

type apiErrorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Status  int    `json:"status"`
}

func (c *Client) mapAPIError(status int, raw []byte) error {
	body := apiErrorBody{}
	_ = json.Unmarshal(raw, &body)
	message := strings.TrimSpace(body.Message)
	if message == "" {
		message = strings.TrimSpace(body.Error)
	}
	if message == "" {
		message = http.StatusText(status)
	}

	cause := fmt.Errorf("mercado pago responded %d: %s", status, message)
	return pkgerrors.Wrap(domainCodeForStatus(status), cause, "mercado pago request rejected")
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}

func (c *Client) ensureIdempotencyKey(prefix, provided string) string {
	if strings.TrimSpace(provided) != "" {
		return provided
	}
	return c.NewIdempotencyKey(prefix)
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("mercado pago %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Info(ctx, fmt.Sprintf("mercado pago %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"token", "secret", "email", "phone", "qr"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}
