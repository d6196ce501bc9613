package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"amap/config"
	"amap/database"
	"amap/models"
	"amap/models/distribution"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	t        *testing.T
	ctx      context.Context
	db       *gorm.DB
	engine   *Engine
	today    time.Time
	location models.PickupLocation
	products []models.Product
}

func newFixture(t *testing.T, today time.Time) *fixture {
	t.Helper()

	db, err := database.Connect(&config.Config{
		DBDriver: "sqlite",
		DBDsn:    filepath.Join(t.TempDir(), "amap.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	f := &fixture{t: t, ctx: context.Background(), db: db, today: today}
	f.engine = NewEngine(db, Clock{Now: func() time.Time { return f.today }, Location: time.UTC})

	f.location = models.PickupLocation{Name: "Ferme du Moulin", IsActive: true}
	require.NoError(t, db.Create(&f.location).Error)

	f.products = []models.Product{
		{Name: "Carottes", Unit: models.UnitKG},
		{Name: "Salade", Unit: models.UnitPiece},
		{Name: "Oeufs", Unit: models.UnitPiece},
	}
	require.NoError(t, db.Create(&f.products).Error)
	return f
}

func (f *fixture) member(first, last string) models.Member {
	f.t.Helper()
	m := models.Member{FirstName: first, LastName: last, Email: first + "." + last + "@example.org"}
	require.NoError(f.t, f.db.Create(&m).Error)
	return m
}

func (f *fixture) pending(m models.Member, start, end time.Time, size string) *distribution.Subscription {
	f.t.Helper()
	sub, err := f.engine.Subscriptions.Create(f.ctx, NewSubscription{
		MemberID:         m.ID,
		Type:             distribution.TypeAnnual,
		BasketSize:       size,
		PricingType:      distribution.PricingNormal,
		StartDate:        start,
		EndDate:          end,
		Price:            520,
		PickupLocationID: f.location.ID,
	})
	require.NoError(f.t, err)
	return sub
}

func (f *fixture) active(m models.Member, start, end time.Time, size string) *distribution.Subscription {
	f.t.Helper()
	sub := f.pending(m, start, end, size)
	sub, err := f.engine.Subscriptions.Activate(f.ctx, sub.ID)
	require.NoError(f.t, err)
	return sub
}

func (f *fixture) items() []ItemInput {
	return []ItemInput{
		{ProductID: f.products[0].ID, QuantitySmall: 1, QuantityLarge: 2},
		{ProductID: f.products[1].ID, QuantitySmall: 1, QuantityLarge: 1},
	}
}

func (f *fixture) draft(date time.Time) *distribution.WeeklyBasket {
	f.t.Helper()
	year, week := date.ISOWeek()
	basket, err := f.engine.Baskets.Compose(f.ctx, ComposeInput{
		Year:             year,
		WeekNumber:       week,
		DistributionDate: date,
		Items:            f.items(),
	})
	require.NoError(f.t, err)
	return basket
}

func (f *fixture) published(date time.Time) *distribution.WeeklyBasket {
	f.t.Helper()
	basket, err := f.engine.Baskets.Publish(f.ctx, f.draft(date).ID)
	require.NoError(f.t, err)
	return basket
}

// assertDay compares calendar days, ignoring the location the driver hands back.
func assertDay(t *testing.T, want, got time.Time) {
	t.Helper()
	require.Equal(t, want.Format(time.DateOnly), got.Format(time.DateOnly))
}
