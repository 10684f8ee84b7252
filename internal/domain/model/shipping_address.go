package model

import "strings"

// 配送先。チェックアウトと注文にコピーして持つ。
type ShippingAddress struct {
	Address    string `gorm:"type:varchar(255);not null" json:"address"`
	City       string `gorm:"type:varchar(100);not null" json:"city"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country    string `gorm:"type:varchar(100);not null" json:"country"`
	Phone      string `gorm:"type:varchar(30);not null" json:"phone"`
}

// 空欄のフィールド名を返す（全部埋まっていればnil）
func (a ShippingAddress) MissingFields() []string {
	var missing []string
	check := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	check("address", a.Address)
	check("city", a.City)
	check("postal_code", a.PostalCode)
	check("country", a.Country)
	check("phone", a.Phone)
	return missing
}
