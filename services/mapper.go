package services

import (
	"encoding/json"
	"fmt"

	"github.com/howtoquitvivek/skipnomeal/models"
	"github.com/howtoquitvivek/skipnomeal/nutrition"

	"gorm.io/datatypes"
)

func itemFromRecord(userID uint, rec nutrition.FoodRecord) (*models.FoodItem, error) {
	raw, err := json.Marshal(rec.Payload())
	if err != nil {
		return nil, fmt.Errorf("encode representation: %w", err)
	}
	return &models.FoodItem{
		ID:             rec.ID(),
		UserID:         userID,
		Name:           rec.Name(),
		QuantityKind:   string(rec.QuantityKind()),
		Representation: datatypes.JSON(raw),
	}, nil
}

// recordFromItem rebuilds the record through nutrition.Create so a row can
// never yield a record with both or neither representation.
func recordFromItem(it *models.FoodItem) (nutrition.FoodRecord, error) {
	var p nutrition.Payload
	if err := json.Unmarshal(it.Representation, &p); err != nil {
		return nutrition.FoodRecord{}, fmt.Errorf("%w: food %s: %v", ErrCorruptRecord, it.ID, err)
	}
	rec, err := nutrition.Create(it.ID, it.Name, nutrition.QuantityKind(it.QuantityKind), p)
	if err != nil {
		return nutrition.FoodRecord{}, fmt.Errorf("%w: food %s: %v", ErrCorruptRecord, it.ID, err)
	}
	return rec, nil
}

func foodFromItem(it *models.FoodItem) (*Food, error) {
	rec, err := recordFromItem(it)
	if err != nil {
		return nil, err
	}
	return &Food{
		Record:    rec,
		ImageURL:  it.ImageURL,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}, nil
}

func modelEntries(entries []nutrition.MealEntry) []models.MealEntry {
	out := make([]models.MealEntry, len(entries))
	for i, e := range entries {
		out[i] = models.MealEntry{
			Position:   i,
			FoodItemID: e.FoodItemID,
			Quantity:   e.Quantity,
		}
		if e.ServingLabel != "" {
			label := e.ServingLabel
			out[i].ServingLabel = &label
		}
	}
	return out
}

func engineEntries(entries []models.MealEntry) []nutrition.MealEntry {
	out := make([]nutrition.MealEntry, len(entries))
	for i, e := range entries {
		out[i] = nutrition.MealEntry{FoodItemID: e.FoodItemID, Quantity: e.Quantity}
		if e.ServingLabel != nil {
			out[i].ServingLabel = *e.ServingLabel
		}
	}
	return out
}

func totalsOf(m *models.Meal) nutrition.MealTotals {
	return nutrition.MealTotals{
		Calories: m.TotalCalories,
		Protein:  m.TotalProtein,
		Carbs:    m.TotalCarbs,
		Fat:      m.TotalFat,
	}
}

func totalsColumns(t nutrition.MealTotals) map[string]any {
	return map[string]any{
		"total_calories": t.Calories,
		"total_protein":  t.Protein,
		"total_carbs":    t.Carbs,
		"total_fat":      t.Fat,
	}
}
