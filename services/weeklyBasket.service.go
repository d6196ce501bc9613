package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"amap/models"
	"amap/models/distribution"
	"amap/services/interval"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BasketRegistry stores weekly basket compositions keyed by (year, week).
type BasketRegistry struct {
	db    *gorm.DB
	clock Clock
}

func NewBasketRegistry(db *gorm.DB, clock Clock) *BasketRegistry {
	return &BasketRegistry{db: db, clock: clock}
}

// ItemInput is one product line of a composition.
type ItemInput struct {
	ProductID     uint
	QuantitySmall float64
	QuantityLarge float64
}

// ComposeInput describes the draft basket of one week.
type ComposeInput struct {
	Year             int
	WeekNumber       int
	DistributionDate time.Time
	Notes            string
	Items            []ItemInput
}

// Compose creates the basket of (Year, WeekNumber) or replaces the
// composition of the existing one. A week already bound to a different
// distribution date is rejected with ErrDuplicateWeek. Edits to a published
// basket are accepted as corrections but may not leave it empty.
func (r *BasketRegistry) Compose(ctx context.Context, in ComposeInput) (*distribution.WeeklyBasket, error) {
	if err := validateWeek(in.Year, in.WeekNumber, in.DistributionDate); err != nil {
		return nil, err
	}
	if err := validateItems(in.Items); err != nil {
		return nil, err
	}
	date := interval.Day(in.DistributionDate)

	var basketID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureProducts(tx, in.Items); err != nil {
			return err
		}

		var existing distribution.WeeklyBasket
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("year = ? AND week_number = ?", in.Year, in.WeekNumber).
			First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			basket := distribution.WeeklyBasket{
				Year:             in.Year,
				WeekNumber:       in.WeekNumber,
				DistributionDate: date,
				Notes:            in.Notes,
			}
			if err := tx.Omit(clause.Associations).Create(&basket).Error; err != nil {
				return duplicateWeek(err, in.Year, in.WeekNumber)
			}
			basketID = basket.ID
		case err != nil:
			return err
		default:
			if !interval.Day(existing.DistributionDate).Equal(date) {
				return fmt.Errorf("%w: week %d/%d is already distributed on %s",
					ErrDuplicateWeek, in.WeekNumber, in.Year, existing.DistributionDate.Format(time.DateOnly))
			}
			if existing.IsPublished && len(in.Items) == 0 {
				return fmt.Errorf("%w: cannot empty the published basket %d/%d", ErrEmptyBasket, in.WeekNumber, in.Year)
			}
			if err := tx.Model(&existing).Omit(clause.Associations).Update("notes", in.Notes).Error; err != nil {
				return err
			}
			if err := tx.Where("basket_id = ?", existing.ID).Delete(&distribution.WeeklyBasketItem{}).Error; err != nil {
				return err
			}
			basketID = existing.ID
		}

		return insertItems(tx, basketID, 0, in.Items)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, basketID)
}

// AddItem appends a product line to a basket.
func (r *BasketRegistry) AddItem(ctx context.Context, basketID uint, item ItemInput) (*distribution.WeeklyBasket, error) {
	if err := validateItems([]ItemInput{item}); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		basket, err := lockBasket(tx, basketID)
		if err != nil {
			return err
		}
		if err := ensureProducts(tx, []ItemInput{item}); err != nil {
			return err
		}
		for _, it := range basket.Items {
			if it.ProductID == item.ProductID {
				return invalidInput("product %d is already in the basket", item.ProductID)
			}
		}
		return insertItems(tx, basket.ID, len(basket.Items), []ItemInput{item})
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, basketID)
}

// RemoveItem drops a product line. A published basket keeps at least one item.
func (r *BasketRegistry) RemoveItem(ctx context.Context, basketID, productID uint) (*distribution.WeeklyBasket, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		basket, err := lockBasket(tx, basketID)
		if err != nil {
			return err
		}
		found := false
		for _, it := range basket.Items {
			if it.ProductID == productID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: product %d in basket %d", ErrNotFound, productID, basketID)
		}
		if basket.IsPublished && len(basket.Items) == 1 {
			return fmt.Errorf("%w: cannot remove the last item of a published basket", ErrEmptyBasket)
		}
		return tx.Where("basket_id = ? AND product_id = ?", basketID, productID).
			Delete(&distribution.WeeklyBasketItem{}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, basketID)
}

// Publish makes a basket visible to members and to the roster. Publishing an
// already published basket is a no-op.
func (r *BasketRegistry) Publish(ctx context.Context, basketID uint) (*distribution.WeeklyBasket, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		basket, err := lockBasket(tx, basketID)
		if err != nil {
			return err
		}
		if len(basket.Items) == 0 {
			return fmt.Errorf("%w: basket %d/%d", ErrEmptyBasket, basket.WeekNumber, basket.Year)
		}
		if basket.IsPublished {
			return nil
		}
		now := r.clock.now()
		return tx.Model(basket).Omit(clause.Associations).Updates(map[string]interface{}{
			"is_published": true,
			"published_at": now,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, basketID)
}

// Unpublish is the administrative override hiding a published basket. It is
// refused once pickups were recorded against it.
func (r *BasketRegistry) Unpublish(ctx context.Context, basketID uint) (*distribution.WeeklyBasket, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		basket, err := lockBasket(tx, basketID)
		if err != nil {
			return err
		}
		if err := ensureNoPickups(tx, basket.ID); err != nil {
			return err
		}
		return tx.Model(basket).Omit(clause.Associations).Updates(map[string]interface{}{
			"is_published": false,
			"published_at": nil,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, basketID)
}

// Duplicate copies the items and notes of a basket into a new draft for
// another week.
func (r *BasketRegistry) Duplicate(ctx context.Context, basketID uint, newWeekNumber, newYear int, newDistributionDate time.Time) (*distribution.WeeklyBasket, error) {
	if err := validateWeek(newYear, newWeekNumber, newDistributionDate); err != nil {
		return nil, err
	}

	var newID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var source distribution.WeeklyBasket
		if err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			First(&source, basketID).Error; err != nil {
			return notFound(err, "basket", basketID)
		}

		var taken int64
		if err := tx.Model(&distribution.WeeklyBasket{}).
			Where("year = ? AND week_number = ?", newYear, newWeekNumber).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return fmt.Errorf("%w: week %d/%d", ErrDuplicateWeek, newWeekNumber, newYear)
		}

		copied := distribution.WeeklyBasket{
			Year:             newYear,
			WeekNumber:       newWeekNumber,
			DistributionDate: interval.Day(newDistributionDate),
			Notes:            source.Notes,
		}
		if err := tx.Omit(clause.Associations).Create(&copied).Error; err != nil {
			return duplicateWeek(err, newYear, newWeekNumber)
		}
		newID = copied.ID

		items := make([]ItemInput, 0, len(source.Items))
		for _, it := range source.Items {
			items = append(items, ItemInput{ProductID: it.ProductID, QuantitySmall: it.QuantitySmall, QuantityLarge: it.QuantityLarge})
		}
		return insertItems(tx, copied.ID, 0, items)
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, newID)
}

// GetCurrent returns the published basket whose distribution date is
// closest to asOf. On a tie the upcoming basket wins over the past one.
func (r *BasketRegistry) GetCurrent(ctx context.Context, asOf time.Time) (*distribution.WeeklyBasket, error) {
	day := interval.Day(asOf)
	db := r.db.WithContext(ctx)

	var upcoming, past distribution.WeeklyBasket
	upErr := db.Where("is_published = ? AND distribution_date >= ?", true, day).
		Order("distribution_date ASC").First(&upcoming).Error
	if upErr != nil && !errors.Is(upErr, gorm.ErrRecordNotFound) {
		return nil, upErr
	}
	pastErr := db.Where("is_published = ? AND distribution_date < ?", true, day).
		Order("distribution_date DESC").First(&past).Error
	if pastErr != nil && !errors.Is(pastErr, gorm.ErrRecordNotFound) {
		return nil, pastErr
	}

	var chosen uint
	switch {
	case upErr == nil && pastErr == nil:
		chosen = upcoming.ID
		if interval.DaysBetween(past.DistributionDate, day) < interval.DaysBetween(day, upcoming.DistributionDate) {
			chosen = past.ID
		}
	case upErr == nil:
		chosen = upcoming.ID
	case pastErr == nil:
		chosen = past.ID
	default:
		return nil, fmt.Errorf("%w: no published basket", ErrNotFound)
	}
	return r.Get(ctx, chosen)
}

// Get loads a basket with its items and their products.
func (r *BasketRegistry) Get(ctx context.Context, basketID uint) (*distribution.WeeklyBasket, error) {
	var basket distribution.WeeklyBasket
	if err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Items.Product").
		First(&basket, basketID).Error; err != nil {
		return nil, notFound(err, "basket", basketID)
	}
	return &basket, nil
}

// List returns the baskets of a year (all years when year is 0), newest first.
func (r *BasketRegistry) List(ctx context.Context, year int, publishedOnly bool) ([]distribution.WeeklyBasket, error) {
	query := r.db.WithContext(ctx).Model(&distribution.WeeklyBasket{})
	if year != 0 {
		query = query.Where("year = ?", year)
	}
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}

	var baskets []distribution.WeeklyBasket
	if err := query.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("distribution_date DESC").
		Find(&baskets).Error; err != nil {
		return nil, err
	}
	return baskets, nil
}

// Delete removes a basket and its items unless pickups reference it.
func (r *BasketRegistry) Delete(ctx context.Context, basketID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		basket, err := lockBasket(tx, basketID)
		if err != nil {
			return err
		}
		if err := ensureNoPickups(tx, basket.ID); err != nil {
			return err
		}
		if err := tx.Where("basket_id = ?", basket.ID).Delete(&distribution.WeeklyBasketItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&distribution.WeeklyBasket{}, basket.ID).Error
	})
}

func lockBasket(tx *gorm.DB, basketID uint) (*distribution.WeeklyBasket, error) {
	var basket distribution.WeeklyBasket
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&basket, basketID).Error; err != nil {
		return nil, notFound(err, "basket", basketID)
	}
	if err := tx.Where("basket_id = ?", basketID).Order("position ASC").Find(&basket.Items).Error; err != nil {
		return nil, err
	}
	return &basket, nil
}

func insertItems(tx *gorm.DB, basketID uint, offset int, items []ItemInput) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]distribution.WeeklyBasketItem, 0, len(items))
	for i, it := range items {
		rows = append(rows, distribution.WeeklyBasketItem{
			BasketID:      basketID,
			ProductID:     it.ProductID,
			Position:      offset + i,
			QuantitySmall: it.QuantitySmall,
			QuantityLarge: it.QuantityLarge,
		})
	}
	return tx.Omit(clause.Associations).Create(&rows).Error
}

func ensureProducts(tx *gorm.DB, items []ItemInput) error {
	if len(items) == 0 {
		return nil
	}
	ids := make([]uint, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	var found int64
	if err := tx.Model(&models.Product{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
		return err
	}
	if int(found) != len(ids) {
		return fmt.Errorf("%w: one or more products of the composition", ErrNotFound)
	}
	return nil
}

func ensureNoPickups(tx *gorm.DB, basketID uint) error {
	var pickups int64
	if err := tx.Model(&distribution.WeeklyPickup{}).Where("basket_id = ?", basketID).Count(&pickups).Error; err != nil {
		return err
	}
	if pickups > 0 {
		return fmt.Errorf("%w: basket %d has %d pickup records", ErrInUse, basketID, pickups)
	}
	return nil
}

func validateWeek(year, week int, date time.Time) error {
	if year < 2000 || week < 1 || week > 53 {
		return invalidInput("year %d / week %d is out of range", year, week)
	}
	if date.IsZero() {
		return invalidInput("distribution date is required")
	}
	if y, w := interval.Day(date).ISOWeek(); y != year || w != week {
		return invalidInput("distribution date %s falls in week %d/%d, not %d/%d",
			date.Format(time.DateOnly), w, y, week, year)
	}
	return nil
}

func validateItems(items []ItemInput) error {
	seen := make(map[uint]bool, len(items))
	for _, it := range items {
		if it.ProductID == 0 {
			return invalidInput("product is required")
		}
		if it.QuantitySmall < 0 || it.QuantityLarge < 0 {
			return invalidInput("quantities must not be negative")
		}
		if seen[it.ProductID] {
			return invalidInput("product %d appears twice", it.ProductID)
		}
		seen[it.ProductID] = true
	}
	return nil
}

func duplicateWeek(err error, year, week int) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: week %d/%d", ErrDuplicateWeek, week, year)
	}
	return err
}
