package models

import "gorm.io/gorm"

// PickupLocation is a place where weekly baskets are handed out
type PickupLocation struct {
	gorm.Model
	Name     string `gorm:"not null" json:"name"`
	Address  string `gorm:"type:text;default:''" json:"address"`
	IsActive bool   `gorm:"default:true" json:"isActive"`
}

func (PickupLocation) TableName() string {
	return "pickup_locations"
}
