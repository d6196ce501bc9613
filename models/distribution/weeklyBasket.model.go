package distribution

import (
	"amap/models"
	"time"
)

// WeeklyBasket is the composition handed out for one (Year, WeekNumber).
// Baskets are never soft deleted so the week pair stays reusable.
type WeeklyBasket struct {
	ID               uint       `gorm:"primarykey" json:"id"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	Year             int        `gorm:"not null;uniqueIndex:idx_weekly_baskets_week" json:"year"`
	WeekNumber       int        `gorm:"not null;uniqueIndex:idx_weekly_baskets_week" json:"weekNumber"`
	DistributionDate time.Time  `gorm:"not null;type:date;index" json:"distributionDate"`
	IsPublished      bool       `gorm:"not null;default:false;index" json:"isPublished"`
	PublishedAt      *time.Time `json:"publishedAt"`
	Notes            string     `gorm:"type:text;default:''" json:"notes"`

	// Relations
	Items []WeeklyBasketItem `gorm:"foreignKey:BasketID;constraint:OnDelete:CASCADE" json:"items"`
}

func (WeeklyBasket) TableName() string {
	return "weekly_baskets"
}

// WeeklyBasketItem is one product line of a weekly basket, with a quantity
// per basket size. The unit comes from the product.
type WeeklyBasketItem struct {
	ID            uint    `gorm:"primarykey" json:"id"`
	BasketID      uint    `gorm:"not null;index" json:"basketId"`
	ProductID     uint    `gorm:"not null;index" json:"productId"`
	Position      int     `gorm:"not null;default:0" json:"position"`
	QuantitySmall float64 `gorm:"not null;default:0;check:quantity_small >= 0" json:"quantitySmall"`
	QuantityLarge float64 `gorm:"not null;default:0;check:quantity_large >= 0" json:"quantityLarge"`

	// Relations
	Product models.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (WeeklyBasketItem) TableName() string {
	return "weekly_basket_items"
}
