package model

import "errors"

const (
	// 1明細あたりの数量上限
	MaxLineQuantity int64 = 999
	// 単価の上限（最小通貨単位）
	MaxUnitPrice int64 = 100_000_000
	// 1カート/1チェックアウトの明細数上限
	MaxLineItems = 100
)

// 上限内ならΣ(price × quantity)はint64に収まる
var (
	ErrQuantityLimit    = errors.New("quantity out of range")
	ErrPriceLimit       = errors.New("price out of range")
	ErrTooManyLineItems = errors.New("too many line items")
)

// カート・チェックアウト・注文に埋め込む明細。
// 追加時点の商品名・画像・価格をそのまま保存する（後で商品が変わっても履歴は変わらない）。
type LineItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     int64  `json:"price"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int64  `json:"quantity"`
}

// 同じ明細かどうかの判定キー（商品ID＋サイズ＋色）
type LineItemKey struct {
	ProductID int64
	Size      string
	Color     string
}

func (it LineItem) Key() LineItemKey {
	return LineItemKey{ProductID: it.ProductID, Size: it.Size, Color: it.Color}
}

func (it LineItem) Validate() error {
	if it.Quantity < 1 || it.Quantity > MaxLineQuantity {
		return ErrQuantityLimit
	}
	if it.Price < 0 || it.Price > MaxUnitPrice {
		return ErrPriceLimit
	}
	return nil
}

func (it LineItem) Subtotal() int64 {
	return it.Price * it.Quantity
}

type LineItems []LineItem

// Σ(price × quantity)
func (items LineItems) Total() int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

func (items LineItems) Validate() error {
	if len(items) > MaxLineItems {
		return ErrTooManyLineItems
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// 値のコピーを返す。元のスライスとは何も共有しない。
func (items LineItems) Clone() LineItems {
	if items == nil {
		return LineItems{}
	}
	out := make(LineItems, len(items))
	copy(out, items)
	return out
}

func (items LineItems) IndexOf(key LineItemKey) int {
	for i, it := range items {
		if it.Key() == key {
			return i
		}
	}
	return -1
}

func (items LineItems) Quantity() int64 {
	var n int64
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
