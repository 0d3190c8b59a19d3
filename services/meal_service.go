package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/howtoquitvivek/skipnomeal/logger"
	"github.com/howtoquitvivek/skipnomeal/models"
	"github.com/howtoquitvivek/skipnomeal/nutrition"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type MealService struct {
	db      *gorm.DB
	log     *logger.Logger
	hub     *RealtimeHub
	workers int
}

func NewMealService(db *gorm.DB, log *logger.Logger, hub *RealtimeHub, workers int) *MealService {
	if workers < 1 {
		workers = 1
	}
	return &MealService{db: db, log: log, hub: hub, workers: workers}
}

// MealView is a meal with freshly computed totals and per-entry breakdown.
type MealView struct {
	ID        uint                          `json:"id"`
	Name      string                        `json:"name"`
	EatenAt   time.Time                     `json:"eaten_at"`
	Entries   []nutrition.EntryContribution `json:"entries"`
	Totals    nutrition.MealTotals          `json:"totals"`
	CreatedAt time.Time                     `json:"created_at"`
	UpdatedAt time.Time                     `json:"updated_at"`
}

type DailySummary struct {
	Date   string               `json:"date"`
	Meals  []MealView           `json:"meals"`
	Totals nutrition.MealTotals `json:"totals"`
}

type mealTotals struct {
	MealID uint
	Totals nutrition.MealTotals
}

// Preview aggregates a proposed entry list without storing anything.
func (s *MealService) Preview(ctx context.Context, userID uint, entries []nutrition.MealEntry) (*nutrition.MealBreakdown, error) {
	records, err := loadRecords(s.db.WithContext(ctx), userID, foodIDs(entries))
	if err != nil {
		return nil, err
	}
	b, err := nutrition.Breakdown(records, entries)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *MealService) AddMeal(ctx context.Context, userID uint, name string, eatenAt time.Time, entries []nutrition.MealEntry) (*MealView, error) {
	name, err := checkMeal(name, entries)
	if err != nil {
		return nil, err
	}
	if eatenAt.IsZero() {
		eatenAt = time.Now().UTC()
	}

	var view *MealView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		records, err := loadRecords(tx, userID, foodIDs(entries))
		if err != nil {
			return err
		}
		b, err := nutrition.Breakdown(records, entries)
		if err != nil {
			return err
		}
		meal := &models.Meal{
			UserID:        userID,
			Name:          name,
			EatenAt:       eatenAt,
			Entries:       modelEntries(entries),
			TotalCalories: b.Totals.Calories,
			TotalProtein:  b.Totals.Protein,
			TotalCarbs:    b.Totals.Carbs,
			TotalFat:      b.Totals.Fat,
		}
		if err := tx.Create(meal).Error; err != nil {
			return err
		}
		view = viewOf(meal, b)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("meal added", "user_id", userID, "meal_id", view.ID, "entries", len(entries), "calories", view.Totals.Calories)
	s.hub.BroadcastMealTotals(userID, view.ID, view.Totals)
	return view, nil
}

// UpdateMeal replaces a meal's entries wholesale and recomputes its totals.
func (s *MealService) UpdateMeal(ctx context.Context, userID, mealID uint, name string, eatenAt time.Time, entries []nutrition.MealEntry) (*MealView, error) {
	name, err := checkMeal(name, entries)
	if err != nil {
		return nil, err
	}

	var view *MealView
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := findMeal(tx, userID, mealID)
		if err != nil {
			return err
		}
		records, err := loadRecords(tx, userID, foodIDs(entries))
		if err != nil {
			return err
		}
		b, err := nutrition.Breakdown(records, entries)
		if err != nil {
			return err
		}

		if err := tx.Unscoped().Where("meal_id = ?", meal.ID).Delete(&models.MealEntry{}).Error; err != nil {
			return err
		}
		fresh := modelEntries(entries)
		for i := range fresh {
			fresh[i].MealID = meal.ID
		}
		if err := tx.Create(&fresh).Error; err != nil {
			return err
		}

		meal.Name = name
		if !eatenAt.IsZero() {
			meal.EatenAt = eatenAt
		}
		meal.TotalCalories = b.Totals.Calories
		meal.TotalProtein = b.Totals.Protein
		meal.TotalCarbs = b.Totals.Carbs
		meal.TotalFat = b.Totals.Fat
		meal.Entries = nil
		if err := tx.Save(meal).Error; err != nil {
			return err
		}
		meal.Entries = fresh
		view = viewOf(meal, b)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("meal updated", "user_id", userID, "meal_id", mealID, "entries", len(entries), "calories", view.Totals.Calories)
	s.hub.BroadcastMealTotals(userID, view.ID, view.Totals)
	return view, nil
}

// GetMeal recomputes the meal from its entries and refreshes the cached
// totals when they drifted.
func (s *MealService) GetMeal(ctx context.Context, userID, mealID uint) (*MealView, error) {
	meal, err := findMeal(s.db.WithContext(ctx), userID, mealID)
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, userID, []models.Meal{*meal})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *MealService) ListMeals(ctx context.Context, userID uint) ([]MealView, error) {
	var meals []models.Meal
	if err := s.db.WithContext(ctx).
		Preload("Entries", byPosition).
		Where("user_id = ?", userID).
		Order("eaten_at DESC").
		Find(&meals).Error; err != nil {
		return nil, err
	}
	return s.views(ctx, userID, meals)
}

// ListMealsByDateRange returns meals eaten in [from, to).
func (s *MealService) ListMealsByDateRange(ctx context.Context, userID uint, from, to time.Time) ([]MealView, error) {
	var meals []models.Meal
	if err := s.db.WithContext(ctx).
		Preload("Entries", byPosition).
		Where("user_id = ? AND eaten_at >= ? AND eaten_at < ?", userID, from, to).
		Order("eaten_at DESC").
		Find(&meals).Error; err != nil {
		return nil, err
	}
	return s.views(ctx, userID, meals)
}

func (s *MealService) DeleteMeal(ctx context.Context, userID, mealID uint) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meal, err := findMeal(tx, userID, mealID)
		if err != nil {
			return err
		}
		if err := tx.Unscoped().Where("meal_id = ?", meal.ID).Delete(&models.MealEntry{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Meal{}, meal.ID).Error
	})
	if err != nil {
		return err
	}
	s.log.Info("meal deleted", "user_id", userID, "meal_id", mealID)
	s.hub.BroadcastMealDeleted(userID, mealID)
	return nil
}

// DailySummary sums every meal eaten on day's calendar date in day's
// location.
func (s *MealService) DailySummary(ctx context.Context, userID uint, day time.Time) (*DailySummary, error) {
	start := dayStart(day)
	end := start.AddDate(0, 0, 1)
	meals, err := s.ListMealsByDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	totals := make([]nutrition.MealTotals, len(meals))
	for i, m := range meals {
		totals[i] = m.Totals
	}
	sum, err := nutrition.Sum(totals...)
	if err != nil {
		return nil, err
	}
	return &DailySummary{
		Date:   start.Format(dateLayout),
		Meals:  meals,
		Totals: sum,
	}, nil
}

// views recomputes every meal against one load of the food records and
// writes back cached totals that no longer match.
func (s *MealService) views(ctx context.Context, userID uint, meals []models.Meal) ([]MealView, error) {
	var ids []string
	for _, m := range meals {
		ids = append(ids, foodIDs(engineEntries(m.Entries))...)
	}
	records, err := loadRecords(s.db.WithContext(ctx), userID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]MealView, 0, len(meals))
	for i := range meals {
		m := &meals[i]
		b, err := nutrition.Breakdown(records, engineEntries(m.Entries))
		if err != nil {
			return nil, fmt.Errorf("meal %d: %w", m.ID, err)
		}
		if b.Totals != totalsOf(m) {
			s.log.Warn("meal totals drifted, refreshing", "meal_id", m.ID, "cached", totalsOf(m), "computed", b.Totals)
			if err := s.db.WithContext(ctx).Model(&models.Meal{}).
				Where("id = ?", m.ID).
				Updates(totalsColumns(b.Totals)).Error; err != nil {
				return nil, err
			}
		}
		out = append(out, *viewOf(m, b))
	}
	return out, nil
}

// recomputeMeals aggregates meals concurrently against the user's records,
// with override taking precedence, then stores the new totals through tx.
// Nothing is written unless every meal resolves.
func recomputeMeals(ctx context.Context, tx *gorm.DB, userID uint, meals []models.Meal, override map[string]nutrition.FoodRecord, workers int) ([]mealTotals, error) {
	if len(meals) == 0 {
		return nil, nil
	}
	ctx, span := otel.Tracer("skipnomeal/services").Start(ctx, "recomputeMeals",
		trace.WithAttributes(attribute.Int("meals", len(meals)), attribute.Int("workers", workers)))
	defer span.End()

	var ids []string
	for _, m := range meals {
		ids = append(ids, foodIDs(engineEntries(m.Entries))...)
	}
	records, err := loadRecords(tx, userID, ids)
	if err != nil {
		return nil, err
	}
	for id, rec := range override {
		records[id] = rec
	}

	results := make([]mealTotals, len(meals))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range meals {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			totals, err := nutrition.Aggregate(records, engineEntries(meals[i].Entries))
			if err != nil {
				return fmt.Errorf("meal %d: %w", meals[i].ID, err)
			}
			results[i] = mealTotals{MealID: meals[i].ID, Totals: totals}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	for _, r := range results {
		if err := tx.Model(&models.Meal{}).
			Where("id = ?", r.MealID).
			Updates(totalsColumns(r.Totals)).Error; err != nil {
			return nil, err
		}
	}
	return results, nil
}

func mealsUsingFood(tx *gorm.DB, userID uint, foodID string) ([]models.Meal, error) {
	var meals []models.Meal
	err := tx.
		Preload("Entries", byPosition).
		Where("user_id = ? AND id IN (?)", userID,
			tx.Model(&models.MealEntry{}).Select("meal_id").Where("food_item_id = ?", foodID)).
		Find(&meals).Error
	return meals, err
}

func findMeal(tx *gorm.DB, userID, mealID uint) (*models.Meal, error) {
	var meal models.Meal
	err := tx.
		Preload("Entries", byPosition).
		Where("id = ? AND user_id = ?", mealID, userID).
		First(&meal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMealNotFound
	}
	if err != nil {
		return nil, err
	}
	return &meal, nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func checkMeal(name string, entries []nutrition.MealEntry) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidMeal)
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("%w: at least one entry is required", ErrInvalidMeal)
	}
	return name, nil
}

func foodIDs(entries []nutrition.MealEntry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.FoodItemID]; ok {
			continue
		}
		seen[e.FoodItemID] = struct{}{}
		out = append(out, e.FoodItemID)
	}
	return out
}

func viewOf(m *models.Meal, b nutrition.MealBreakdown) *MealView {
	return &MealView{
		ID:        m.ID,
		Name:      m.Name,
		EatenAt:   m.EatenAt,
		Entries:   b.Entries,
		Totals:    b.Totals,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
