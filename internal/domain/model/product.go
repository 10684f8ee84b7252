package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品カタログ。カートに入れた時点の名前/画像/価格が明細へコピーされる。
type Product struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       int64          `gorm:"not null" json:"price"`
	ImageURL    string         `gorm:"type:varchar(512)" json:"image_url"`
	Sizes       []string       `gorm:"type:jsonb;serializer:json" json:"sizes"`
	Colors      []string       `gorm:"type:jsonb;serializer:json" json:"colors"`
	IsActive    bool           `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}

// 追加時点の商品情報で明細を作る
func (p *Product) LineItem(quantity int64, size, color string) LineItem {
	return LineItem{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.ImageURL,
		Price:     p.Price,
		Size:      size,
		Color:     color,
		Quantity:  quantity,
	}
}
