package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	"storefront/internal/infra/cache"
	"storefront/internal/infra/events"
	"storefront/internal/infra/metrics"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

const maxCheckoutWriteAttempts = 3

// CheckoutUsecase はチェックアウト（pending → paid → finalized）の業務ロジックです。
type CheckoutUsecase struct {
	tx        repo.TransactionManager
	checkouts repo.CheckoutRepository
	carts     repo.CartRepository
	cache     cache.CartCache
	publisher events.OrderPublisher
	metrics   *metrics.Metrics
	clock     Clock
	log       *zap.Logger
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	checkouts repo.CheckoutRepository,
	carts repo.CartRepository,
	cartCache cache.CartCache,
	publisher events.OrderPublisher,
	m *metrics.Metrics,
	clock Clock,
	log *zap.Logger,
) *CheckoutUsecase {
	if cartCache == nil {
		cartCache = cache.Noop{}
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutUsecase{
		tx:        tx,
		checkouts: checkouts,
		carts:     carts,
		cache:     cartCache,
		publisher: publisher,
		metrics:   m,
		clock:     clock,
		log:       log,
	}
}

type CreateCheckoutInput struct {
	Items           model.LineItems
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	// 0は「送られていない」扱い
	TotalPrice int64
}

type CreateCheckoutFromCartInput struct {
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
}

type ConfirmPaymentInput struct {
	PaymentStatus  string
	PaymentDetails json.RawMessage
}

// CreateCheckout は送られてきた明細からチェックアウトを作る。
func (u *CheckoutUsecase) CreateCheckout(ctx context.Context, userID int64, in CreateCheckoutInput) (*model.Checkout, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	if len(in.Items) == 0 {
		return nil, NewError(KindEmptyCheckout, "no items in checkout")
	}
	for _, it := range in.Items {
		if it.ProductID <= 0 {
			return nil, NewError(KindValidation, "invalid product_id")
		}
		if it.Quantity < 1 {
			return nil, NewError(KindValidation, "quantity must be at least 1")
		}
		if it.Price < 0 {
			return nil, NewError(KindValidation, "price must be >= 0")
		}
	}
	if err := in.Items.Validate(); err != nil {
		return nil, lineItemError("validate items", err)
	}
	if err := validateShipping(in.ShippingAddress, in.PaymentMethod); err != nil {
		return nil, err
	}

	// 現在のカートを覚えておく（無くてもよい）
	cart, err := u.carts.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repo.ErrNotFound) {
		return nil, internalError("find cart", err)
	}

	c := model.NewCheckout(userID, in.Items, in.ShippingAddress, strings.TrimSpace(in.PaymentMethod))
	if in.TotalPrice != 0 && in.TotalPrice != c.TotalPrice {
		return nil, NewError(KindValidation, "total_price does not match items")
	}
	c.CaptureSourceCart(cart)

	return u.create(ctx, c)
}

// CreateCheckoutFromCart はユーザーカートの中身をそのままスナップショットする。
func (u *CheckoutUsecase) CreateCheckoutFromCart(ctx context.Context, userID int64, in CreateCheckoutFromCartInput) (*model.Checkout, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	if err := validateShipping(in.ShippingAddress, in.PaymentMethod); err != nil {
		return nil, err
	}

	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindNotFound, "cart not found")
	}
	if err != nil {
		return nil, internalError("find cart", err)
	}
	if cart.IsEmpty() {
		return nil, NewError(KindEmptyCheckout, "cart is empty")
	}

	c := model.NewCheckout(userID, cart.Items, in.ShippingAddress, strings.TrimSpace(in.PaymentMethod))
	c.CaptureSourceCart(cart)

	return u.create(ctx, c)
}

func (u *CheckoutUsecase) create(ctx context.Context, c *model.Checkout) (*model.Checkout, error) {
	if err := u.checkouts.Create(ctx, c); err != nil {
		return nil, internalError("create checkout", err)
	}
	u.metrics.CheckoutCreated()
	u.log.Info("checkout created",
		zap.Int64("checkout_id", c.ID),
		zap.Int64("user_id", c.UserID),
		zap.Int("items", len(c.Items)),
		zap.Int64("total_price", c.TotalPrice),
	)
	return c, nil
}

// GetCheckout は本人のチェックアウトだけ返す（他人のものはNotFound）。
func (u *CheckoutUsecase) GetCheckout(ctx context.Context, userID int64, checkoutID int64) (*model.Checkout, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	return u.findOwned(ctx, userID, checkoutID)
}

func (u *CheckoutUsecase) findOwned(ctx context.Context, userID int64, checkoutID int64) (*model.Checkout, error) {
	if checkoutID <= 0 {
		return nil, NewError(KindValidation, "invalid checkout id")
	}
	c, err := u.checkouts.FindByID(ctx, checkoutID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, NewError(KindNotFound, "checkout not found")
	}
	if err != nil {
		return nil, internalError("find checkout", err)
	}
	if c.UserID != userID {
		return nil, NewError(KindNotFound, "checkout not found")
	}
	return c, nil
}

// ConfirmPayment は決済結果を反映する（"paid"のみ受け付ける）。
func (u *CheckoutUsecase) ConfirmPayment(ctx context.Context, userID int64, checkoutID int64, in ConfirmPaymentInput) (*model.Checkout, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	status := model.PaymentStatus(strings.TrimSpace(in.PaymentStatus))

	for attempt := 0; attempt < maxCheckoutWriteAttempts; attempt++ {
		c, err := u.findOwned(ctx, userID, checkoutID)
		if err != nil {
			return nil, err
		}

		changed, err := c.ConfirmPayment(status, in.PaymentDetails, u.clock.Now())
		if err != nil {
			return nil, checkoutStateError(err)
		}
		if !changed {
			return c, nil
		}

		err = u.checkouts.Update(ctx, c)
		if errors.Is(err, repo.ErrVersionConflict) {
			u.metrics.VersionConflict("checkout")
			continue
		}
		if err != nil {
			return nil, internalError("update checkout", err)
		}

		u.metrics.PaymentConfirmed()
		u.log.Info("checkout paid", zap.Int64("checkout_id", c.ID), zap.Int64("user_id", userID))
		return c, nil
	}
	return nil, NewError(KindConflict, "checkout was modified concurrently, please retry")
}

// Finalize は支払い済みチェックアウトを注文に確定する（1チェックアウトにつき1回だけ）。
func (u *CheckoutUsecase) Finalize(ctx context.Context, userID int64, checkoutID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	if checkoutID <= 0 {
		return nil, NewError(KindValidation, "invalid checkout id")
	}

	var (
		order       *model.Order
		cartRemoved bool
		cartVersion int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Checkouts().FindByIDForUpdate(ctx, checkoutID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "checkout not found")
		}
		if err != nil {
			return internalError("lock checkout", err)
		}
		if c.UserID != userID {
			return NewError(KindNotFound, "checkout not found")
		}

		now := u.clock.Now()
		if err := c.MarkFinalized(now); err != nil {
			return checkoutStateError(err)
		}

		order = model.NewOrderFromCheckout(c, now)
		if err := r.Orders().Create(ctx, order); err != nil {
			if errors.Is(err, repo.ErrDuplicate) {
				return NewError(KindAlreadyFinalized, "checkout already finalized")
			}
			return internalError("create order", err)
		}

		if err := r.Checkouts().Update(ctx, c); err != nil {
			if errors.Is(err, repo.ErrVersionConflict) {
				return NewError(KindConflict, "checkout was modified concurrently, please retry")
			}
			return internalError("update checkout", err)
		}

		// 作成時点から変わっていないカートだけ消す
		if c.SourceCartID != nil {
			removed, err := deleteSourceCart(ctx, r.Carts(), *c.SourceCartID, c.SourceCartVersion)
			if err != nil {
				return err
			}
			cartRemoved, cartVersion = removed, c.SourceCartVersion+1
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cartRemoved {
		if err := u.cache.Invalidate(ctx, cartVersion, model.UserIdentity(userID)); err != nil {
			u.log.Warn("cart cache invalidate failed", zap.Error(err))
		}
	}

	// イベント送信の失敗で確定は取り消さない
	if err := u.publisher.PublishOrderCreated(ctx, events.NewOrderCreated(order, u.clock.Now())); err != nil {
		u.log.Error("publish order.created failed", zap.Int64("order_id", order.ID), zap.Error(err))
	}

	u.metrics.CheckoutFinalized()
	u.log.Info("checkout finalized",
		zap.Int64("checkout_id", checkoutID),
		zap.Int64("order_id", order.ID),
		zap.Int64("user_id", userID),
		zap.Bool("cart_removed", cartRemoved),
	)
	return order, nil
}

// 行ロックを取ってからversionを見る。消えていたり変わっていたら残す。
func deleteSourceCart(ctx context.Context, carts repo.CartRepository, cartID, version int64) (bool, error) {
	cart, err := carts.FindByIDForUpdate(ctx, cartID)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, internalError("lock source cart", err)
	}
	if cart.Version != version {
		return false, nil
	}

	err = carts.DeleteIfVersion(ctx, cartID, version)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repo.ErrVersionConflict):
		return false, nil
	default:
		return false, internalError("delete source cart", err)
	}
}

func validateShipping(addr model.ShippingAddress, paymentMethod string) error {
	if missing := addr.MissingFields(); len(missing) > 0 {
		return NewError(KindValidation, "shipping_address."+missing[0]+" is required")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return NewError(KindValidation, "payment_method is required")
	}
	return nil
}

func checkoutStateError(err error) error {
	switch {
	case errors.Is(err, model.ErrCheckoutFinalized):
		return NewError(KindAlreadyFinalized, "checkout already finalized")
	case errors.Is(err, model.ErrCheckoutNotPaid):
		return NewError(KindNotPaid, "checkout is not paid")
	case errors.Is(err, model.ErrInvalidPaymentStatus):
		return NewError(KindInvalidPaymentStatus, "payment_status must be \"paid\"")
	default:
		return internalError("checkout state", err)
	}
}
