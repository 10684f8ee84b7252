package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(productID int64, size, color string, price, qty int64) LineItem {
	return LineItem{ProductID: productID, Name: "p", Price: price, Size: size, Color: color, Quantity: qty}
}

func TestCart_AddItem_TotalAlwaysMatchesItems(t *testing.T) {
	c := NewCart(GuestIdentity("guest_1"))

	adds := []LineItem{
		item(1, "M", "Red", 1500, 2),
		item(2, "L", "Blue", 800, 1),
		item(1, "M", "Red", 1500, 3),
		item(1, "S", "Red", 1500, 1),
		item(3, "", "", 99, 7),
	}
	for _, it := range adds {
		require.NoError(t, c.AddItem(it))

		var want int64
		for _, li := range c.Items {
			want += li.Price * li.Quantity
		}
		assert.Equal(t, want, c.TotalPrice)
	}

	// 同じ(商品,サイズ,色)は1行にまとまる
	require.Len(t, c.Items, 4)
	assert.Equal(t, int64(5), c.Items[0].Quantity)
}

func TestCart_SetQuantity(t *testing.T) {
	t.Run("正の値で上書き", func(t *testing.T) {
		c := NewCart(UserIdentity(1))
		require.NoError(t, c.AddItem(item(1, "M", "Red", 1000, 2)))

		require.NoError(t, c.SetQuantity(LineItemKey{ProductID: 1, Size: "M", Color: "Red"}, 5))
		assert.Equal(t, int64(5), c.Items[0].Quantity)
		assert.Equal(t, int64(5000), c.TotalPrice)
	})

	t.Run("0で削除", func(t *testing.T) {
		c := NewCart(UserIdentity(1))
		require.NoError(t, c.AddItem(item(1, "M", "Red", 1000, 2)))
		require.NoError(t, c.AddItem(item(2, "", "", 300, 1)))

		require.NoError(t, c.SetQuantity(LineItemKey{ProductID: 1, Size: "M", Color: "Red"}, 0))
		require.Len(t, c.Items, 1)
		assert.Equal(t, int64(2), c.Items[0].ProductID)
		assert.Equal(t, int64(300), c.TotalPrice)
	})

	t.Run("無い明細はErrLineItemNotFound", func(t *testing.T) {
		c := NewCart(UserIdentity(1))
		require.NoError(t, c.AddItem(item(1, "M", "Red", 1000, 2)))

		err := c.SetQuantity(LineItemKey{ProductID: 1, Size: "L", Color: "Red"}, 1)
		assert.ErrorIs(t, err, ErrLineItemNotFound)
		assert.Equal(t, int64(2000), c.TotalPrice)
	})
}

func TestCart_RemoveItem(t *testing.T) {
	c := NewCart(UserIdentity(1))
	require.NoError(t, c.AddItem(item(1, "M", "Red", 1000, 2)))

	require.NoError(t, c.RemoveItem(LineItemKey{ProductID: 1, Size: "M", Color: "Red"}))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, int64(0), c.TotalPrice)

	assert.ErrorIs(t, c.RemoveItem(LineItemKey{ProductID: 1, Size: "M", Color: "Red"}), ErrLineItemNotFound)
}

func TestCart_Absorb(t *testing.T) {
	user := NewCart(UserIdentity(7))
	require.NoError(t, user.AddItem(item(1, "M", "Red", 100, 1))) // A×1
	require.NoError(t, user.AddItem(item(2, "L", "Blue", 50, 3))) // B×3

	guest := NewCart(GuestIdentity("guest_x"))
	require.NoError(t, guest.AddItem(item(1, "M", "Red", 100, 2))) // A×2

	require.NoError(t, user.Absorb(guest))

	require.Len(t, user.Items, 2)
	assert.Equal(t, int64(3), user.Items[0].Quantity)
	assert.Equal(t, int64(3), user.Items[1].Quantity)
	assert.Equal(t, int64(3*100+3*50), user.TotalPrice)
}

func TestCart_Reparent(t *testing.T) {
	c := NewCart(GuestIdentity("guest_x"))
	c.Reparent(9)

	assert.Nil(t, c.GuestID)
	require.NotNil(t, c.UserID)
	assert.Equal(t, UserIdentity(9), c.Owner())
}

func TestLineItems_CloneDoesNotShare(t *testing.T) {
	src := LineItems{item(1, "M", "Red", 100, 1)}
	dst := src.Clone()
	dst[0].Quantity = 99

	assert.Equal(t, int64(1), src[0].Quantity)
	assert.NotNil(t, LineItems(nil).Clone())
}

func TestCart_QuantityLimit(t *testing.T) {
	key := LineItemKey{ProductID: 1, Size: "M", Color: "Red"}

	t.Run("足して上限を超えるなら変えない", func(t *testing.T) {
		c := NewCart(GuestIdentity("guest_1"))
		require.NoError(t, c.AddItem(item(1, "M", "Red", 100, MaxLineQuantity)))

		assert.ErrorIs(t, c.AddItem(item(1, "M", "Red", 100, 1)), ErrQuantityLimit)
		assert.Equal(t, MaxLineQuantity, c.Items[0].Quantity)
		assert.Equal(t, 100*MaxLineQuantity, c.TotalPrice)
	})

	t.Run("1回で上限超えや巨大な値は拒否", func(t *testing.T) {
		c := NewCart(GuestIdentity("guest_1"))
		assert.ErrorIs(t, c.AddItem(item(1, "M", "Red", 100, MaxLineQuantity+1)), ErrQuantityLimit)
		assert.ErrorIs(t, c.AddItem(item(1, "M", "Red", 100, math.MaxInt64)), ErrQuantityLimit)
		assert.ErrorIs(t, c.AddItem(item(1, "M", "Red", MaxUnitPrice+1, 1)), ErrPriceLimit)
		assert.ErrorIs(t, c.AddItem(item(1, "M", "Red", -1, 1)), ErrPriceLimit)
		assert.True(t, c.IsEmpty())
	})

	t.Run("SetQuantityの上限", func(t *testing.T) {
		c := NewCart(UserIdentity(1))
		require.NoError(t, c.AddItem(item(1, "M", "Red", 100, 2)))

		assert.ErrorIs(t, c.SetQuantity(key, MaxLineQuantity+1), ErrQuantityLimit)
		assert.Equal(t, int64(2), c.Items[0].Quantity)
		require.NoError(t, c.SetQuantity(key, MaxLineQuantity))
		assert.Equal(t, MaxLineQuantity, c.Items[0].Quantity)
	})

	t.Run("明細数の上限", func(t *testing.T) {
		c := NewCart(UserIdentity(1))
		for i := 0; i < MaxLineItems; i++ {
			require.NoError(t, c.AddItem(item(int64(i+1), "", "", 10, 1)))
		}
		assert.ErrorIs(t, c.AddItem(item(int64(MaxLineItems+1), "", "", 10, 1)), ErrTooManyLineItems)
		// 既存行への加算はできる
		require.NoError(t, c.AddItem(item(1, "", "", 10, 1)))
		assert.Len(t, c.Items, MaxLineItems)
	})

	t.Run("Absorbで上限を超えるなら全部そのまま", func(t *testing.T) {
		user := NewCart(UserIdentity(7))
		require.NoError(t, user.AddItem(item(2, "L", "Blue", 50, 1)))
		require.NoError(t, user.AddItem(item(1, "M", "Red", 100, MaxLineQuantity-1)))

		guest := NewCart(GuestIdentity("guest_x"))
		require.NoError(t, guest.AddItem(item(2, "L", "Blue", 50, 4)))
		require.NoError(t, guest.AddItem(item(1, "M", "Red", 100, 2)))

		assert.ErrorIs(t, user.Absorb(guest), ErrQuantityLimit)
		assert.Equal(t, int64(1), user.Items[0].Quantity)
		assert.Equal(t, MaxLineQuantity-1, user.Items[1].Quantity)
		assert.Equal(t, user.Items.Total(), user.TotalPrice)
	})
}

func TestLineItems_Validate(t *testing.T) {
	assert.NoError(t, LineItems{item(1, "", "", MaxUnitPrice, MaxLineQuantity)}.Validate())
	assert.ErrorIs(t, LineItems{item(1, "", "", 100, 0)}.Validate(), ErrQuantityLimit)
	assert.ErrorIs(t, LineItems{item(1, "", "", 100, math.MaxInt64/50)}.Validate(), ErrQuantityLimit)

	many := make(LineItems, MaxLineItems+1)
	for i := range many {
		many[i] = item(int64(i+1), "", "", 1, 1)
	}
	assert.ErrorIs(t, many.Validate(), ErrTooManyLineItems)
}
