package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/howtoquitvivek/skipnomeal/config"
	"github.com/howtoquitvivek/skipnomeal/logger"
	"github.com/howtoquitvivek/skipnomeal/nutrition"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func testDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(tb.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	// one connection keeps the shared in-memory database alive and
	// serializes writers
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return db
}

type fixture struct {
	db    *gorm.DB
	foods *FoodService
	meals *MealService
}

func newFixture(tb testing.TB) *fixture {
	tb.Helper()
	db := testDB(tb)
	log := logger.Nop()
	return &fixture{
		db:    db,
		foods: NewFoodService(db, log, nil, nil, nil, 2),
		meals: NewMealService(db, log, nil, 2),
	}
}

func ptr(v float64) *float64 { return &v }

func macrosIn(cal, p, c, f float64) *nutrition.MacrosInput {
	return &nutrition.MacrosInput{Calories: ptr(cal), Protein: ptr(p), Carbs: ptr(c), Fat: ptr(f)}
}

func densityPayload(base float64, m *nutrition.MacrosInput) nutrition.Payload {
	return nutrition.Payload{Density: &nutrition.DensityInput{BaseQuantity: ptr(base), Macros: m}}
}

func servingPayload(labels map[string]nutrition.ServingMacroInput) nutrition.Payload {
	return nutrition.Payload{Serving: &nutrition.ServingInput{Labels: labels}}
}

func (f *fixture) chicken(tb testing.TB, userID uint) *Food {
	tb.Helper()
	food, err := f.foods.Create(context.Background(), userID, "Chicken Breast", nutrition.Gram,
		densityPayload(100, macrosIn(165, 31, 0, 3.6)))
	if err != nil {
		tb.Fatalf("create chicken: %v", err)
	}
	return food
}

func (f *fixture) egg(tb testing.TB, userID uint) *Food {
	tb.Helper()
	food, err := f.foods.Create(context.Background(), userID, "Egg", nutrition.Serving,
		servingPayload(map[string]nutrition.ServingMacroInput{
			"large": {UnitQuantity: ptr(50), Macros: macrosIn(72, 6, 0.4, 5)},
		}))
	if err != nil {
		tb.Fatalf("create egg: %v", err)
	}
	return food
}
