package model

import (
	"encoding/json"
	"errors"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

var (
	ErrCheckoutFinalized    = errors.New("checkout already finalized")
	ErrCheckoutNotPaid      = errors.New("checkout not paid")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
)

// チェックアウト（作成後は明細を変えないスナップショット）。
// pending → paid → finalized の一方向のみ。
type Checkout struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	Items           LineItems       `gorm:"type:jsonb;serializer:json;not null" json:"checkout_items"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   string          `gorm:"type:varchar(50)" json:"payment_method"`
	TotalPrice      int64           `gorm:"not null" json:"total_price"`

	IsPaid         bool            `gorm:"not null;default:false" json:"is_paid"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	PaymentDetails json.RawMessage `gorm:"type:jsonb;serializer:json" json:"payment_details,omitempty"`

	IsFinalized bool       `gorm:"not null;default:false" json:"is_finalized"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`

	// 作成時点のユーザーカート（finalize時に消す対象）
	SourceCartID      *int64 `json:"-"`
	SourceCartVersion int64  `gorm:"not null;default:0" json:"-"`

	Version   int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func NewCheckout(userID int64, items LineItems, addr ShippingAddress, paymentMethod string) *Checkout {
	snapshot := items.Clone()
	return &Checkout{
		UserID:          userID,
		Items:           snapshot,
		ShippingAddress: addr,
		PaymentMethod:   paymentMethod,
		TotalPrice:      snapshot.Total(),
		PaymentStatus:   PaymentStatusPending,
		Version:         1,
	}
}

// 作成時点のカートを覚えておく
func (c *Checkout) CaptureSourceCart(cart *Cart) {
	if cart == nil {
		return
	}
	id := cart.ID
	c.SourceCartID = &id
	c.SourceCartVersion = cart.Version
}

// 決済結果の反映。"paid"以外は受け付けない。
// すでにpaidなら最初のPaidAtを保持したまま何もしない。
func (c *Checkout) ConfirmPayment(status PaymentStatus, details json.RawMessage, now time.Time) (changed bool, err error) {
	if c.IsFinalized {
		return false, ErrCheckoutFinalized
	}
	if status != PaymentStatusPaid {
		return false, ErrInvalidPaymentStatus
	}
	if c.IsPaid {
		return false, nil
	}
	c.IsPaid = true
	c.PaymentStatus = PaymentStatusPaid
	c.PaymentDetails = details
	paidAt := now
	c.PaidAt = &paidAt
	return true, nil
}

// finalize可能か確認して終端にする
func (c *Checkout) MarkFinalized(now time.Time) error {
	if c.IsFinalized {
		return ErrCheckoutFinalized
	}
	if !c.IsPaid {
		return ErrCheckoutNotPaid
	}
	c.IsFinalized = true
	at := now
	c.FinalizedAt = &at
	return nil
}
