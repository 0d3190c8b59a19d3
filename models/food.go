package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FoodItem is the stored form of a nutrition.FoodRecord. Representation
// holds the canonical payload; rows are always re-validated on load.
type FoodItem struct {
	ID             string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         uint           `gorm:"index;not null" json:"user_id"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	QuantityKind   string         `gorm:"size:16;not null" json:"quantity_kind"`
	Representation datatypes.JSON `gorm:"not null" json:"representation"`
	ImageURL       string         `gorm:"size:512" json:"image_url,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}
