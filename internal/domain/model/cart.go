package model

import (
	"errors"
	"time"
)

var ErrLineItemNotFound = errors.New("line item not found")

// 購入前のカート。ユーザーかゲストのどちらか一方が持ち主。
// TotalPriceは明細から毎回計算し直す（クライアントの値は使わない）。
type Cart struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     *int64    `gorm:"uniqueIndex" json:"user_id,omitempty"`
	GuestID    *string   `gorm:"type:varchar(100);uniqueIndex" json:"guest_id,omitempty"`
	Items      LineItems `gorm:"type:jsonb;serializer:json;not null" json:"items"`
	TotalPrice int64     `gorm:"not null;default:0" json:"total_price"`
	Version    int64     `gorm:"not null;default:1" json:"-"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// identityに紐づく空のカートを作る
func NewCart(id Identity) *Cart {
	c := &Cart{Items: LineItems{}, Version: 1}
	switch id.Kind {
	case IdentityUser:
		uid := id.UserID
		c.UserID = &uid
	case IdentityGuest:
		gid := id.GuestID
		c.GuestID = &gid
	}
	return c
}

func (c *Cart) Owner() Identity {
	if c.UserID != nil {
		return UserIdentity(*c.UserID)
	}
	if c.GuestID != nil {
		return GuestIdentity(*c.GuestID)
	}
	return Identity{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Recalculate() {
	c.TotalPrice = c.Items.Total()
}

// 同じ(商品,サイズ,色)があれば数量を足す。無ければ末尾に追加。
// 上限を超えるときはカートを変えずにエラーを返す。
func (c *Cart) AddItem(item LineItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	items, err := addLine(c.Items.Clone(), item)
	if err != nil {
		return err
	}
	c.Items = items
	c.Recalculate()
	return nil
}

func addLine(items LineItems, item LineItem) (LineItems, error) {
	if i := items.IndexOf(item.Key()); i >= 0 {
		if items[i].Quantity+item.Quantity > MaxLineQuantity {
			return nil, ErrQuantityLimit
		}
		items[i].Quantity += item.Quantity
		return items, nil
	}
	if len(items) >= MaxLineItems {
		return nil, ErrTooManyLineItems
	}
	return append(items, item), nil
}

// quantity<=0 は明細ごと削除する
func (c *Cart) SetQuantity(key LineItemKey, quantity int64) error {
	i := c.Items.IndexOf(key)
	if i < 0 {
		return ErrLineItemNotFound
	}
	if quantity > MaxLineQuantity {
		return ErrQuantityLimit
	}
	if quantity > 0 {
		c.Items[i].Quantity = quantity
	} else {
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
	}
	c.Recalculate()
	return nil
}

func (c *Cart) RemoveItem(key LineItemKey) error {
	return c.SetQuantity(key, 0)
}

// ゲストカートの明細をこのカートに合算する。
// どれか1行でも上限を超えるなら何も変えない。
func (c *Cart) Absorb(guest *Cart) error {
	items := c.Items.Clone()
	for _, it := range guest.Items {
		var err error
		if items, err = addLine(items, it); err != nil {
			return err
		}
	}
	c.Items = items
	c.Recalculate()
	return nil
}

// ゲストカートをそのままユーザーのものにする（合算相手がいないとき）
func (c *Cart) Reparent(userID int64) {
	uid := userID
	c.UserID = &uid
	c.GuestID = nil
}
