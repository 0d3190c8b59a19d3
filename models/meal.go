package models

import (
	"time"

	"gorm.io/gorm"
)

// One Meal (breakfast/lunch/…). The totals are a cache of the last
// aggregation over Entries, never a source of truth.
type Meal struct {
	gorm.Model
	UserID  uint      `gorm:"index;not null"`
	Name    string    `gorm:"size:255;not null"`
	EatenAt time.Time `gorm:"index"`
	Entries []MealEntry

	TotalCalories float64
	TotalProtein  float64
	TotalCarbs    float64
	TotalFat      float64
}

// MealEntry references a FoodItem by id. Quantity is grams/ml or a serving
// count depending on the food's representation.
type MealEntry struct {
	gorm.Model
	MealID       uint    `gorm:"index;not null"`
	Position     int     `gorm:"not null"`
	FoodItemID   string  `gorm:"type:varchar(36);index;not null"`
	Quantity     float64 `gorm:"not null"`
	ServingLabel *string `gorm:"size:64"`
}
