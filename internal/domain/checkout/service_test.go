package checkout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentora/checkout/internal/domain/coupon"
	"github.com/rentora/checkout/internal/domain/plan"
	"github.com/rentora/checkout/internal/domain/user"
)

type fakeUsers struct {
	users map[string]*user.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

type fakePlans struct {
	plans map[string]*plan.Plan
}

func (f *fakePlans) GetByID(_ context.Context, id string) (*plan.Plan, error) {
	p, ok := f.plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return p, nil
}

func (f *fakePlans) List(_ context.Context) ([]plan.Plan, error) {
	return nil, nil
}

type fakeEvaluator struct {
	evaluateFn func(ctx context.Context, code, planID string) (decimal.Decimal, error)
}

func (f *fakeEvaluator) Evaluate(ctx context.Context, code, planID string) (decimal.Decimal, error) {
	return f.evaluateFn(ctx, code, planID)
}

type fakeGateway struct {
	mu          sync.Mutex
	createErrs  []error // popped per call; nil entry means success
	created     []string
	payments    map[string]*PaymentRecord
	fetchErr    error
	fetchCalled int
}

func (f *fakeGateway) CreateOrder(_ context.Context, orderID string, _ decimal.Decimal, _ string, _ Customer) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return "", err
		}
	}
	f.created = append(f.created, orderID)
	return "session-" + orderID, nil
}

func (f *fakeGateway) FetchPaymentStatus(_ context.Context, orderID string) (*PaymentRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalled++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	rec, ok := f.payments[orderID]
	if !ok {
		return nil, ErrPaymentNotFound
	}
	return rec, nil
}

// memStore mirrors the transactional store: ApplySuccess is a compare-and-set
// admitting any non-success order, so concurrent confirms apply exactly once
// and a failed order is repaired by a later successful attempt.
type memStore struct {
	mu         sync.Mutex
	orders     map[string]*Order
	createErrs []error
	applied    int
}

func newMemStore() *memStore {
	return &memStore{orders: make(map[string]*Order)}
}

func (s *memStore) Create(_ context.Context, o *Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return err
		}
	}
	if _, exists := s.orders[o.OrderID]; exists {
		return ErrOrderIDConflict
	}
	cp := *o
	s.orders[o.OrderID] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, orderID string) (*Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *memStore) MarkFailed(_ context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[orderID]; ok && o.Status == StatusCreated {
		o.Status = StatusFailed
	}
	return nil
}

func (s *memStore) ApplySuccess(_ context.Context, orderID string, conf Confirmation) (*Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, false, ErrOrderNotFound
	}
	if o.Status == StatusSuccess {
		cp := *o
		return &cp, false, nil
	}

	o.Status = StatusSuccess
	o.GatewayTxnID = conf.GatewayTxnID
	o.BankReference = conf.BankReference
	o.PaymentMethod = conf.PaymentMethod
	paymentTime := conf.PaymentTime
	o.PaymentTime = &paymentTime
	s.applied++

	cp := *o
	return &cp, true, nil
}

type serviceDeps struct {
	gateway *fakeGateway
	store   *memStore
	svc     *Service
}

func newTestService(t *testing.T) *serviceDeps {
	t.Helper()

	users := &fakeUsers{users: map[string]*user.User{
		"user-1": {ID: "user-1", Email: "rider@example.com", Name: "Stored Name", Mobile: "8888888888"},
	}}
	plans := &fakePlans{plans: map[string]*plan.Plan{
		"basic":   {ID: "basic", DiscountedPrice: decimal.NewFromInt(299), Active: true},
		"premium": {ID: "premium", DiscountedPrice: decimal.NewFromInt(599), Active: true},
	}}
	evaluator := &fakeEvaluator{
		evaluateFn: func(_ context.Context, code, planID string) (decimal.Decimal, error) {
			if code == "SAVE50" && planID == "basic" {
				return decimal.NewFromInt(249), nil
			}
			return decimal.Zero, coupon.ErrNotFound
		},
	}
	gateway := &fakeGateway{payments: make(map[string]*PaymentRecord)}
	store := newMemStore()

	svc := NewService(users, plans, evaluator, gateway, store, "INR")
	svc.now = func() time.Time {
		return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	}

	return &serviceDeps{gateway: gateway, store: store, svc: svc}
}

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("full price without coupon", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)

		res, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "premium", Name: "Test Rider", Mobile: "9999999999",
		})
		require.NoError(t, err)
		assert.Len(t, res.OrderID, orderIDLength)
		assert.Equal(t, "session-"+res.OrderID, res.SessionToken)
		assert.True(t, decimal.NewFromInt(599).Equal(res.Amount))
		assert.Equal(t, "INR", res.Currency)

		stored, err := d.store.Get(ctx, res.OrderID)
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, stored.Status)
		assert.True(t, decimal.NewFromInt(599).Equal(stored.Amount))
	})

	t.Run("coupon reduces the charge", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)

		res, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "basic", CouponCode: "SAVE50", Mobile: "9999999999",
		})
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(249).Equal(res.Amount), "got %s", res.Amount)

		stored, err := d.store.Get(ctx, res.OrderID)
		require.NoError(t, err)
		assert.Equal(t, "SAVE50", stored.CouponCode)
	})

	t.Run("invalid coupon aborts before the gateway", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)

		_, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "basic", CouponCode: "GHOST", Mobile: "9999999999",
		})
		assert.ErrorIs(t, err, coupon.ErrNotFound)
		assert.Empty(t, d.gateway.created)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)

		_, err := d.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "ghost", PlanID: "basic"})
		assert.ErrorIs(t, err, user.ErrNotFound)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)

		_, err := d.svc.CreateOrder(ctx, CreateOrderRequest{UserID: "user-1", PlanID: "ghost"})
		assert.ErrorIs(t, err, plan.ErrNotFound)
	})

	t.Run("gateway failure leaves no order behind", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		d.gateway.createErrs = []error{ErrGatewayUnavailable}

		_, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "basic", Mobile: "9999999999",
		})
		assert.ErrorIs(t, err, ErrGatewayUnavailable)
		assert.Empty(t, d.store.orders)
	})

	t.Run("duplicate id at gateway retries with fresh id", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		d.gateway.createErrs = []error{ErrDuplicateOrderID, nil}

		res, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "basic", Mobile: "9999999999",
		})
		require.NoError(t, err)
		assert.Len(t, d.gateway.created, 1)
		assert.Equal(t, res.OrderID, d.gateway.created[0])
	})

	t.Run("duplicate id in store retries with fresh id", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		d.store.createErrs = []error{ErrOrderIDConflict, nil}

		_, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "basic", Mobile: "9999999999",
		})
		require.NoError(t, err)
		assert.Len(t, d.store.orders, 1)
	})

	t.Run("persistent collisions give up", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		d.gateway.createErrs = []error{ErrDuplicateOrderID, ErrDuplicateOrderID, ErrDuplicateOrderID}

		_, err := d.svc.CreateOrder(ctx, CreateOrderRequest{
			UserID: "user-1", PlanID: "basic", Mobile: "9999999999",
		})
		assert.ErrorIs(t, err, ErrOrderIDConflict)
	})
}

func createTestOrder(t *testing.T, d *serviceDeps) *CreateOrderResult {
	t.Helper()
	res, err := d.svc.CreateOrder(context.Background(), CreateOrderRequest{
		UserID: "user-1", PlanID: "premium", Name: "Test Rider", Mobile: "9999999999",
	})
	require.NoError(t, err)
	return res
}

func markPaid(d *serviceDeps, orderID string) {
	d.gateway.payments[orderID] = &PaymentRecord{
		OrderID:       orderID,
		State:         PaymentStateSuccess,
		Amount:        decimal.NewFromInt(599),
		Method:        "upi",
		GatewayTxnID:  "txn-1",
		BankReference: "bank-1",
		PaymentTime:   time.Date(2026, 8, 27, 12, 5, 0, 0, time.UTC),
	}
}

func TestConfirmPayment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("successful payment is applied", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		markPaid(d, res.OrderID)

		o, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, o.Status)
		assert.Equal(t, "txn-1", o.GatewayTxnID)
		assert.Equal(t, "bank-1", o.BankReference)
		require.NotNil(t, o.PaymentTime)
		assert.Equal(t, 1, d.store.applied)
	})

	t.Run("replay returns the stored order without reapplying", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		markPaid(d, res.OrderID)

		first, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		require.NoError(t, err)

		second, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		require.NoError(t, err)
		assert.Equal(t, first.GatewayTxnID, second.GatewayTxnID)
		assert.Equal(t, 1, d.store.applied, "side effects ran more than once")
	})

	t.Run("concurrent confirms apply exactly once", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		markPaid(d, res.OrderID)

		var wg sync.WaitGroup
		errs := make([]error, 20)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
			}()
		}
		wg.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.Equal(t, 1, d.store.applied)
	})

	t.Run("pending payment leaves the order open", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		d.gateway.payments[res.OrderID] = &PaymentRecord{OrderID: res.OrderID, State: PaymentStatePending}

		_, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		assert.ErrorIs(t, err, ErrPaymentNotSuccessful)

		stored, err := d.store.Get(ctx, res.OrderID)
		require.NoError(t, err)
		assert.Equal(t, StatusCreated, stored.Status, "pending must not finalize the order")
	})

	t.Run("failed payment marks the order failed", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		d.gateway.payments[res.OrderID] = &PaymentRecord{OrderID: res.OrderID, State: PaymentStateFailed}

		_, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		assert.ErrorIs(t, err, ErrPaymentNotSuccessful)

		stored, err := d.store.Get(ctx, res.OrderID)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, stored.Status)
	})

	t.Run("failed attempt then successful retry is applied", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		d.gateway.payments[res.OrderID] = &PaymentRecord{OrderID: res.OrderID, State: PaymentStateFailed}

		_, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		require.ErrorIs(t, err, ErrPaymentNotSuccessful)

		markPaid(d, res.OrderID)

		o, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "premium"})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, o.Status)
		assert.Equal(t, "txn-1", o.GatewayTxnID)
		assert.Equal(t, 1, d.store.applied)
	})

	t.Run("mismatched plan is rejected", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		markPaid(d, res.OrderID)

		_, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID, PlanID: "basic"})
		assert.ErrorIs(t, err, ErrOrderMismatch)
		assert.Zero(t, d.store.applied)
	})

	t.Run("webhook confirm needs only the order id", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)
		markPaid(d, res.OrderID)

		o, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID})
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, o.Status)
	})

	t.Run("unknown order", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		markPaid(d, "ghost")

		_, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: "ghost"})
		assert.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("gateway has no payment record", func(t *testing.T) {
		t.Parallel()
		d := newTestService(t)
		res := createTestOrder(t, d)

		_, err := d.svc.ConfirmPayment(ctx, ConfirmRequest{OrderID: res.OrderID})
		assert.ErrorIs(t, err, ErrPaymentNotFound)
	})
}
