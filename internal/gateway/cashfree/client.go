// Package cashfree implements the payment gateway client against the
// Cashfree PG REST API. It is the only place gateway credentials and endpoint
// knowledge live; everything else depends on the checkout.Gateway interface.
package cashfree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/rentora/checkout/internal/domain/checkout"
)

// DefaultAPIVersion is the x-api-version header sent with every request.
const DefaultAPIVersion = "2023-08-01"

// Config holds the gateway credentials and endpoint. Constructed once at
// startup and injected; there is no package-level state.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	APIVersion   string
	Timeout      time.Duration
}

var _ checkout.Gateway = (*Client)(nil)

// Client talks to the Cashfree payment gateway.
type Client struct {
	http       *http.Client
	baseURL    string
	clientID   string
	secret     string
	apiVersion string
}

// NewClient creates a gateway client from the given configuration.
func NewClient(cfg Config) *Client {
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: timeout},
		baseURL:    cfg.BaseURL,
		clientID:   cfg.ClientID,
		secret:     cfg.ClientSecret,
		apiVersion: version,
	}
}

type createOrderRequest struct {
	OrderID       string          `json:"order_id"`
	OrderAmount   decimal.Decimal `json:"order_amount"`
	OrderCurrency string          `json:"order_currency"`
	Customer      customerDetails `json:"customer_details"`
}

type customerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerEmail string `json:"customer_email"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone"`
}

type createOrderResponse struct {
	PaymentSessionID string `json:"payment_session_id"`
}

type gatewayError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type paymentAttempt struct {
	CfPaymentID   json.Number     `json:"cf_payment_id"`
	OrderID       string          `json:"order_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentGroup  string          `json:"payment_group"`
	BankReference string          `json:"bank_reference"`
	PaymentTime   string          `json:"payment_time"`
}

// CreateOrder registers the order with the gateway and returns the payment
// session token the client completes payment with.
func (c *Client) CreateOrder(ctx context.Context, orderID string, amount decimal.Decimal, currency string, customer checkout.Customer) (string, error) {
	body, err := json.Marshal(createOrderRequest{
		OrderID:       orderID,
		OrderAmount:   amount,
		OrderCurrency: currency,
		Customer: customerDetails{
			CustomerID:    customer.ID,
			CustomerEmail: customer.Email,
			CustomerName:  customer.Name,
			CustomerPhone: customer.Mobile,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "encode create order request")
	}

	resp, err := c.do(ctx, http.MethodPost, "/pg/orders", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", c.translateError(resp, orderID)
	}

	var out createOrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", errors.Wrap(err, "decode create order response")
	}
	if out.PaymentSessionID == "" {
		return "", errors.Wrap(checkout.ErrGatewayRejected, "gateway returned no session token")
	}
	return out.PaymentSessionID, nil
}

// FetchPaymentStatus returns the gateway's latest payment attempt for the
// order. The gateway returns attempts newest-first.
func (c *Client) FetchPaymentStatus(ctx context.Context, orderID string) (*checkout.PaymentRecord, error) {
	resp, err := c.do(ctx, http.MethodGet, "/pg/orders/"+orderID+"/payments", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, checkout.ErrPaymentNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, c.translateError(resp, orderID)
	}

	var attempts []paymentAttempt
	if err := json.NewDecoder(resp.Body).Decode(&attempts); err != nil {
		return nil, errors.Wrap(err, "decode payments response")
	}
	if len(attempts) == 0 {
		return nil, checkout.ErrPaymentNotFound
	}

	latest := attempts[0]
	rec := &checkout.PaymentRecord{
		OrderID:       latest.OrderID,
		State:         translateState(latest.PaymentStatus),
		Amount:        latest.PaymentAmount,
		Method:        latest.PaymentGroup,
		GatewayTxnID:  latest.CfPaymentID.String(),
		BankReference: latest.BankReference,
	}
	if latest.PaymentTime != "" {
		t, err := time.Parse(time.RFC3339, latest.PaymentTime)
		if err != nil {
			return nil, errors.Wrapf(err, "parse payment time %q", latest.PaymentTime)
		}
		rec.PaymentTime = t
	}
	return rec, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build gateway request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-version", c.apiVersion)
	req.Header.Set("x-client-id", c.clientID)
	req.Header.Set("x-client-secret", c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport failures (timeouts included) never leak past this
		// boundary as raw errors.
		return nil, errors.Wrap(checkout.ErrGatewayUnavailable, err.Error())
	}
	return resp, nil
}

// translateError maps a non-2xx gateway response to the domain taxonomy.
// The caller owns resp.Body.
func (c *Client) translateError(resp *http.Response, orderID string) error {
	if resp.StatusCode >= 500 {
		return errors.Wrapf(checkout.ErrGatewayUnavailable, "gateway returned %d", resp.StatusCode)
	}

	var ge gatewayError
	if err := json.NewDecoder(resp.Body).Decode(&ge); err != nil {
		return errors.Wrapf(checkout.ErrGatewayRejected, "gateway returned %d for order %s", resp.StatusCode, orderID)
	}
	if ge.Code == "order_already_exists" {
		return checkout.ErrDuplicateOrderID
	}
	return errors.Wrapf(checkout.ErrGatewayRejected, "%s: %s", ge.Code, ge.Message)
}

func translateState(status string) checkout.PaymentState {
	switch status {
	case "SUCCESS":
		return checkout.PaymentStateSuccess
	case "FAILED", "USER_DROPPED", "CANCELLED", "VOID":
		return checkout.PaymentStateFailed
	default:
		return checkout.PaymentStatePending
	}
}

// String implements fmt.Stringer without exposing credentials in logs.
func (c *Client) String() string {
	return fmt.Sprintf("cashfree(%s)", c.baseURL)
}
