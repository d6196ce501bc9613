package models

import (
	"gorm.io/gorm"
)

// Product unit values
const (
	UnitKG    = "KG"
	UnitPiece = "UNIT"
)

// Product is a catalog entry referenced by weekly basket items. The catalog
// itself is managed outside this service.
type Product struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`
	Unit string `gorm:"not null;type:varchar(10);default:'UNIT'" json:"unit"` // KG or UNIT
}

func (Product) TableName() string {
	return "products"
}
