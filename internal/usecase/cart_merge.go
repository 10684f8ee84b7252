package usecase

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"go.uber.org/zap"
)

// MergeGuestCart はログイン直後にゲストカートをユーザーカートへ取り込む。
// ゲストカートは消えるか、ユーザーのものに付け替えられる（どちらか一方）。
func (u *CartUsecase) MergeGuestCart(ctx context.Context, userID int64, guestID string) (*model.Cart, error) {
	if userID <= 0 {
		return nil, NewError(KindUnidentified, "login required")
	}
	guestID = strings.TrimSpace(guestID)
	if guestID == "" {
		return nil, NewError(KindValidation, "guest_id is required")
	}

	var (
		result  *model.Cart
		outcome string
		// 無効化するguest側のversion（削除なら次のversion）
		guestVersion int64
	)
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// ロック順は guest → user で固定
		guest, err := r.Carts().FindByGuestIDForUpdate(ctx, guestID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return internalError("find guest cart", err)
		}
		user, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if err != nil && !errors.Is(err, repo.ErrNotFound) {
			return internalError("find user cart", err)
		}

		switch {
		case guest == nil && user == nil:
			return NewError(KindNotFound, "cart not found")
		case guest == nil:
			// マージ済み or 別端末。ユーザーカートをそのまま返す
			result, outcome = user, "noop"
			return nil
		case guest.IsEmpty():
			return NewError(KindEmptyGuestCart, "guest cart is empty")
		case user != nil:
			if err := user.Absorb(guest); err != nil {
				return lineItemError("absorb guest cart", err)
			}
			if err := r.Carts().Update(ctx, user); err != nil {
				return cartWriteError("update user cart", err)
			}
			if err := r.Carts().Delete(ctx, guest.ID); err != nil {
				return internalError("delete guest cart", err)
			}
			result, outcome, guestVersion = user, "merged", guest.Version+1
		default:
			guest.Reparent(userID)
			if err := r.Carts().Update(ctx, guest); err != nil {
				return cartWriteError("reparent guest cart", err)
			}
			result, outcome, guestVersion = guest, "reparented", guest.Version
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome != "noop" {
		u.invalidate(ctx, guestVersion, model.GuestIdentity(guestID))
		u.invalidate(ctx, result.Version, model.UserIdentity(userID))
	}
	u.metrics.CartMerge(outcome)
	u.log.Info("guest cart merged",
		zap.Int64("user_id", userID),
		zap.String("outcome", outcome),
		zap.Int64("cart_id", result.ID),
	)
	return result, nil
}

func cartWriteError(op string, err error) error {
	// 付け替え中に別リクエストがユーザーカートを作ったときはErrDuplicate
	if errors.Is(err, repo.ErrVersionConflict) || errors.Is(err, repo.ErrDuplicate) {
		return NewError(KindConflict, "cart was modified concurrently, please retry")
	}
	return internalError(op, err)
}
