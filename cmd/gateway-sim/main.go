// Command gateway-sim is an in-memory stand-in for the payment gateway, used
// in local development and integration tests. It accepts the same order and
// payment endpoints as the real gateway plus a /sim/ surface for settling
// payments by hand.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type order struct {
	OrderID   string
	Amount    decimal.Decimal
	Currency  string
	SessionID string
	Attempts  []attempt
}

type attempt struct {
	CfPaymentID   string          `json:"cf_payment_id"`
	OrderID       string          `json:"order_id"`
	PaymentStatus string          `json:"payment_status"`
	PaymentAmount decimal.Decimal `json:"payment_amount"`
	PaymentGroup  string          `json:"payment_group"`
	BankReference string          `json:"bank_reference"`
	PaymentTime   string          `json:"payment_time"`
}

type simulator struct {
	mu     sync.Mutex
	orders map[string]*order
	nextID int
}

func newSimulator() *simulator {
	return &simulator{orders: make(map[string]*order), nextID: 10001}
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", "0.0.0.0:8090", "listen address")
	flag.Parse()

	sim := newSimulator()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /pg/orders", sim.createOrder)
	mux.HandleFunc("GET /pg/orders/{orderId}/payments", sim.listPayments)
	mux.HandleFunc("POST /sim/orders/{orderId}/settle", sim.settle)

	slog.Info("gateway simulator listening", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func (s *simulator) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID       string          `json:"order_id"`
		OrderAmount   decimal.Decimal `json:"order_amount"`
		OrderCurrency string          `json:"order_currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code": "request_invalid", "message": "order_id is required",
		})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orders[req.OrderID]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{
			"code": "order_already_exists", "message": "order with same id exists",
		})
		return
	}

	o := &order{
		OrderID:   req.OrderID,
		Amount:    req.OrderAmount,
		Currency:  req.OrderCurrency,
		SessionID: "session_" + uuid.NewString(),
	}
	s.orders[req.OrderID] = o

	slog.Info("order registered", slog.String("order_id", o.OrderID), slog.String("amount", o.Amount.String()))
	writeJSON(w, http.StatusOK, map[string]string{"payment_session_id": o.SessionID})
}

func (s *simulator) listPayments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[r.PathValue("orderId")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"code": "order_not_found", "message": "order does not exist",
		})
		return
	}

	// Newest first, matching the real gateway.
	out := make([]attempt, len(o.Attempts))
	for i, a := range o.Attempts {
		out[len(o.Attempts)-1-i] = a
	}
	writeJSON(w, http.StatusOK, out)
}

// settle records a payment attempt. Body: {"status": "SUCCESS"} or any other
// terminal gateway status such as FAILED or USER_DROPPED.
func (s *simulator) settle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
		Method string `json:"method"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"code": "request_invalid", "message": "malformed body",
		})
		return
	}
	if req.Status == "" {
		req.Status = "SUCCESS"
	}
	if req.Method == "" {
		req.Method = "upi"
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[r.PathValue("orderId")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"code": "order_not_found", "message": "order does not exist",
		})
		return
	}

	a := attempt{
		CfPaymentID:   fmt.Sprintf("%d", s.nextID),
		OrderID:       o.OrderID,
		PaymentStatus: strings.ToUpper(req.Status),
		PaymentAmount: o.Amount,
		PaymentGroup:  req.Method,
		BankReference: "sim_" + uuid.NewString()[:8],
		PaymentTime:   time.Now().Format(time.RFC3339),
	}
	s.nextID++
	o.Attempts = append(o.Attempts, a)

	slog.Info("payment settled",
		slog.String("order_id", o.OrderID),
		slog.String("status", a.PaymentStatus),
	)
	writeJSON(w, http.StatusOK, a)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
