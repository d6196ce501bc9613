package distributionValidator

import (
	"amap/validators"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

type BasketItem struct {
	ProductID     uint    `json:"productId" validate:"required"`
	QuantitySmall float64 `json:"quantitySmall" validate:"gte=0"`
	QuantityLarge float64 `json:"quantityLarge" validate:"gte=0"`
}

type ComposeBasketRequest struct {
	Year             int          `json:"year" validate:"required,gte=2000,lte=2100"`
	WeekNumber       int          `json:"weekNumber" validate:"required,gte=1,lte=53"`
	DistributionDate string       `json:"distributionDate" validate:"required,datetime=2006-01-02"`
	Notes            string       `json:"notes" validate:"max=2000"`
	Items            []BasketItem `json:"items" validate:"dive"`

	Date time.Time `json:"-"`
}

// ComposeBasket validates the composition of a weekly basket
func ComposeBasket() fiber.Handler {
	return validators.Body("validatedComposeBasket", func(r *ComposeBasketRequest, errs map[string]string) {
		r.Date = validators.ParseDate(r.DistributionDate)
		checkWeek(r.Year, r.WeekNumber, r.Date, errs)
	})
}

// AddBasketItem validates one product line
func AddBasketItem() fiber.Handler {
	return validators.Body[BasketItem]("validatedBasketItem", nil)
}

type DuplicateBasketRequest struct {
	Year             int    `json:"year" validate:"required,gte=2000,lte=2100"`
	WeekNumber       int    `json:"weekNumber" validate:"required,gte=1,lte=53"`
	DistributionDate string `json:"distributionDate" validate:"required,datetime=2006-01-02"`

	Date time.Time `json:"-"`
}

// DuplicateBasket validates the target week of a copy
func DuplicateBasket() fiber.Handler {
	return validators.Body("validatedDuplicateBasket", func(r *DuplicateBasketRequest, errs map[string]string) {
		r.Date = validators.ParseDate(r.DistributionDate)
		checkWeek(r.Year, r.WeekNumber, r.Date, errs)
	})
}

type ListBasketsRequest struct {
	Year      int  `json:"year" query:"year" validate:"omitempty,gte=2000,lte=2100"`
	Published bool `json:"published" query:"published"`
}

// ListBaskets validates the basket listing filters
func ListBaskets() fiber.Handler {
	return validators.Query[ListBasketsRequest]("validatedListBaskets", nil)
}

func checkWeek(year, week int, date time.Time, errs map[string]string) {
	if y, w := date.ISOWeek(); y != year || w != week {
		errs["distributionDate"] = fmt.Sprintf("Date falls in week %d of %d, not week %d of %d!", w, y, week, year)
	}
}
