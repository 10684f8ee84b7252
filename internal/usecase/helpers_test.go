package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/events"
	repo "storefront/internal/repository"
	"storefront/internal/testutil/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// 固定時計
// =====================

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// =====================
// イベント記録
// =====================

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderCreated
	err    error
}

func (p *recordingPublisher) PublishOrderCreated(_ context.Context, evt events.OrderCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

// =====================
// 最初のUpdateだけversion衝突させる
// =====================

type flakyCartRepo struct {
	repo.CartRepository
	failures int
}

func (r *flakyCartRepo) Update(ctx context.Context, c *model.Cart) error {
	if r.failures > 0 {
		r.failures--
		return repo.ErrVersionConflict
	}
	return r.CartRepository.Update(ctx, c)
}

// =====================
// 読み取り・ロックの前後に割り込む
// =====================

type hookCartRepo struct {
	repo.CartRepository
	// FindByGuestIDの読み取り直後に1回だけ呼ぶ
	afterGuestRead func()
	// FindByUserIDForUpdateが見つからなかった直後に呼ぶ
	afterUserLockMiss func()
	locked            []int64
}

func (r *hookCartRepo) FindByGuestID(ctx context.Context, guestID string) (*model.Cart, error) {
	c, err := r.CartRepository.FindByGuestID(ctx, guestID)
	if hook := r.afterGuestRead; hook != nil {
		r.afterGuestRead = nil
		hook()
	}
	return c, err
}

func (r *hookCartRepo) FindByUserIDForUpdate(ctx context.Context, userID int64) (*model.Cart, error) {
	c, err := r.CartRepository.FindByUserIDForUpdate(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) && r.afterUserLockMiss != nil {
		r.afterUserLockMiss()
	}
	return c, err
}

func (r *hookCartRepo) FindByIDForUpdate(ctx context.Context, cartID int64) (*model.Cart, error) {
	r.locked = append(r.locked, cartID)
	return r.CartRepository.FindByIDForUpdate(ctx, cartID)
}

// トランザクション内のCarts()だけ差し替える
type hookTxManager struct {
	inner repo.TransactionManager
	carts *hookCartRepo
}

func (m hookTxManager) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return m.inner.WithinTx(ctx, func(r repo.TxRepos) error {
		m.carts.CartRepository = r.Carts()
		return fn(hookTxRepos{TxRepos: r, carts: m.carts})
	})
}

type hookTxRepos struct {
	repo.TxRepos
	carts repo.CartRepository
}

func (r hookTxRepos) Carts() repo.CartRepository { return r.carts }

// =====================
// 組み立て
// =====================

type fixture struct {
	store     *memstore.Store
	clock     *fakeClock
	publisher *recordingPublisher
	cart      *CartUsecase
	checkout  *CheckoutUsecase
	orders    *OrderUsecase
	admin     *AdminOrderUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memstore.New()
	clock := newFakeClock()
	pub := &recordingPublisher{}
	return &fixture{
		store:     s,
		clock:     clock,
		publisher: pub,
		cart:      NewCartUsecase(s.TxManager(), s.Carts(), s.Products(), nil, nil, nil),
		checkout:  NewCheckoutUsecase(s.TxManager(), s.Checkouts(), s.Carts(), nil, pub, nil, clock, nil),
		orders:    NewOrderUsecase(s.Orders()),
		admin:     NewAdminOrderUsecase(s.TxManager(), s.Orders(), nil, clock, nil),
	}
}

func (f *fixture) seedProduct(name string, price int64) model.Product {
	return f.store.SeedProduct(model.Product{
		Name:     name,
		Price:    price,
		ImageURL: "https://img.example/" + name + ".png",
		Sizes:    []string{"S", "M", "L"},
		Colors:   []string{"Red", "Blue"},
		IsActive: true,
	})
}

func testAddress() model.ShippingAddress {
	return model.ShippingAddress{
		Address:    "1-2-3 Chiyoda",
		City:       "Tokyo",
		PostalCode: "100-0001",
		Country:    "JP",
		Phone:      "090-0000-0000",
	}
}

// 支払い済みチェックアウトを作る
func (f *fixture) paidCheckout(t *testing.T, userID int64) *model.Checkout {
	t.Helper()
	p := f.seedProduct("tee", 1000)
	_, err := f.cart.AddItem(context.Background(), model.UserIdentity(userID), AddItemInput{ProductID: p.ID, Quantity: 1, Size: "M", Color: "Red"})
	require.NoError(t, err)

	co, err := f.checkout.CreateCheckoutFromCart(context.Background(), userID, CreateCheckoutFromCartInput{
		ShippingAddress: testAddress(),
		PaymentMethod:   "paypal",
	})
	require.NoError(t, err)

	co, err = f.checkout.ConfirmPayment(context.Background(), userID, co.ID, ConfirmPaymentInput{PaymentStatus: "paid"})
	require.NoError(t, err)
	return co
}

func assertKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	ae, ok := AsAppError(err)
	require.True(t, ok, "expected *AppError, got %T: %v", err, err)
	assert.Equal(t, kind, ae.Kind, ae.Error())
}

// 確定済みの注文を作る（呼ぶたびに時計を1分進める）
func (f *fixture) placeOrder(t *testing.T, userID int64) *model.Order {
	t.Helper()
	co := f.paidCheckout(t, userID)
	o, err := f.checkout.Finalize(context.Background(), userID, co.ID)
	require.NoError(t, err)
	f.clock.Advance(time.Minute)
	return o
}
