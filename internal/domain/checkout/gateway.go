package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrGatewayUnavailable indicates a transport-level failure talking to
	// the payment gateway. Retryable by the caller with backoff.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected indicates the gateway refused the request
	// (malformed customer data, bad amount). Not retryable without new input.
	ErrGatewayRejected = errors.New("payment gateway rejected request")
	// ErrDuplicateOrderID indicates the gateway already knows the order id.
	ErrDuplicateOrderID = errors.New("order id already used at gateway")
	// ErrPaymentNotFound indicates the gateway has no payment attempt on
	// record for the order.
	ErrPaymentNotFound = errors.New("payment not found at gateway")
)

// PaymentState is the gateway's view of a payment attempt.
type PaymentState string

const (
	PaymentStateSuccess PaymentState = "SUCCESS"
	PaymentStatePending PaymentState = "PENDING"
	PaymentStateFailed  PaymentState = "FAILED"
)

// PaymentRecord is the latest payment attempt the gateway reports for an
// order.
type PaymentRecord struct {
	OrderID       string
	State         PaymentState
	Amount        decimal.Decimal
	Method        string
	GatewayTxnID  string
	BankReference string
	PaymentTime   time.Time
}

// Customer identifies the paying user to the gateway.
type Customer struct {
	ID     string
	Email  string
	Name   string
	Mobile string
}

// Gateway abstracts the external payment processor. It is the only component
// allowed to talk to the gateway; it holds all credentials and endpoint
// knowledge, which keeps the processor swappable and the orchestrator
// testable with a fake.
type Gateway interface {
	// CreateOrder registers the order with the gateway and returns the
	// session token the client needs to complete payment.
	CreateOrder(ctx context.Context, orderID string, amount decimal.Decimal, currency string, customer Customer) (sessionToken string, err error)

	// FetchPaymentStatus returns the gateway's latest payment attempt for
	// the order.
	FetchPaymentStatus(ctx context.Context, orderID string) (*PaymentRecord, error)
}
