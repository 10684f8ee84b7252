package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/metrics"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

type AdminOrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	metrics *metrics.Metrics
	clock   Clock
	log     *zap.Logger
}

func NewAdminOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	m *metrics.Metrics,
	clock Clock,
	log *zap.Logger,
) *AdminOrderUsecase {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminOrderUsecase{tx: tx, orders: orders, metrics: m, clock: clock, log: log}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

type AdminOrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 注文一覧（新しい順）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return AdminOrderListOutput{}, NewError(KindValidation, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, NewError(KindValidation, "invalid limit")
	}
	f.Status = strings.TrimSpace(f.Status)
	if f.Status != "" && !model.OrderStatus(f.Status).Valid() {
		return AdminOrderListOutput{}, NewError(KindValidation, "invalid status")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AdminOrderListOutput{}, NewError(KindValidation, "from must be before to")
	}

	items, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return AdminOrderListOutput{}, internalError("list orders", err)
	}
	return AdminOrderListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

// ステータス更新（deliveredならDeliveredAtを入れる）。監査ログも同じTxで書く。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (*model.Order, error) {
	if actorAdminUserID <= 0 {
		return nil, NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return nil, NewError(KindValidation, "invalid id")
	}
	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	if !newStatus.Valid() {
		return nil, NewError(KindValidation, "invalid status")
	}

	var updated *model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found")
		}
		if err != nil {
			return internalError("find order", err)
		}

		before := orderStatusSnapshot(o)
		now := u.clock.Now()
		o.ApplyStatus(newStatus, now)
		o.UpdatedAt = now

		if err := r.Orders().UpdateStatus(ctx, o); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "order not found")
			}
			return internalError("update order status", err)
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   before,
			AfterJSON:    orderStatusSnapshot(o),
			CreatedAt:    now,
		}); err != nil {
			return internalError("create audit log", err)
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.metrics.OrderStatusUpdated(string(newStatus))
	u.log.Info("order status updated",
		zap.Int64("order_id", orderID),
		zap.Int64("admin_id", actorAdminUserID),
		zap.String("status", string(newStatus)),
	)
	return updated, nil
}

// 注文の物理削除。監査ログには削除前の内容を残す。
func (u *AdminOrderUsecase) Delete(ctx context.Context, actorAdminUserID int64, orderID int64) error {
	if actorAdminUserID <= 0 {
		return NewError(KindUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return NewError(KindValidation, "invalid id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewError(KindNotFound, "order not found")
		}
		if err != nil {
			return internalError("find order", err)
		}

		before, err := json.Marshal(o)
		if err != nil {
			return internalError("marshal order", err)
		}

		if err := r.Orders().Delete(ctx, orderID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return NewError(KindNotFound, "order not found")
			}
			return internalError("delete order", err)
		}

		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionDeleteOrder,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   string(before),
			AfterJSON:    "{}",
			CreatedAt:    u.clock.Now(),
		}); err != nil {
			return internalError("create audit log", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	u.log.Info("order deleted", zap.Int64("order_id", orderID), zap.Int64("admin_id", actorAdminUserID))
	return nil
}

func orderStatusSnapshot(o *model.Order) string {
	snap := struct {
		Status      model.OrderStatus `json:"status"`
		DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	}{Status: o.Status, DeliveredAt: o.DeliveredAt}
	b, _ := json.Marshal(snap)
	return string(b)
}

// 期間パラメータ（RFC3339）。空なら指定なし。
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
