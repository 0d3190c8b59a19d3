// Package nutrition holds the food record model and the meal aggregation
// rules. It performs no I/O and keeps no state between calls.
package nutrition

import (
	"math"
	"sort"
)

// DefaultBaseQuantity is used when a density payload omits its base quantity.
const DefaultBaseQuantity = 100.0

// QuantityKind is how a food is measured.
type QuantityKind string

const (
	Gram       QuantityKind = "gram"
	Milliliter QuantityKind = "ml"
	Serving    QuantityKind = "serving"
)

func (k QuantityKind) Valid() bool {
	switch k {
	case Gram, Milliliter, Serving:
		return true
	}
	return false
}

// Macros is one complete macro set. All four fields are always present.
type Macros struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Scale multiplies every field by f.
func (m Macros) Scale(f float64) Macros {
	return Macros{
		Calories: m.Calories * f,
		Protein:  m.Protein * f,
		Carbs:    m.Carbs * f,
		Fat:      m.Fat * f,
	}
}

// Add returns the field-wise sum.
func (m Macros) Add(o Macros) Macros {
	return Macros{
		Calories: m.Calories + o.Calories,
		Protein:  m.Protein + o.Protein,
		Carbs:    m.Carbs + o.Carbs,
		Fat:      m.Fat + o.Fat,
	}
}

// Rounded rounds every field to 2 decimal places.
func (m Macros) finite() bool {
	for _, v := range [...]float64{m.Calories, m.Protein, m.Carbs, m.Fat} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (m Macros) Rounded() Macros {
	return Macros{
		Calories: Round2(m.Calories),
		Protein:  Round2(m.Protein),
		Carbs:    Round2(m.Carbs),
		Fat:      Round2(m.Fat),
	}
}

// RepresentationKind discriminates the two nutrition encodings.
type RepresentationKind string

const (
	KindDensity RepresentationKind = "density"
	KindServing RepresentationKind = "serving"
)

// Representation is either a DensityRep or a ServingRep. The interface is
// sealed so no other type can satisfy it.
type Representation interface {
	Kind() RepresentationKind
	representation()
}

// DensityRep defines nutrition per BaseQuantity grams or milliliters.
type DensityRep struct {
	BaseQuantity float64
	Macros       Macros
}

func (DensityRep) Kind() RepresentationKind { return KindDensity }
func (DensityRep) representation()          {}

// ServingMacro is the nutrition of one unit of a named serving.
type ServingMacro struct {
	UnitQuantity float64 `json:"unit_quantity"`
	Macros       Macros  `json:"macros"`
}

// ServingRep defines nutrition per named serving. Construct it only through
// Create or ReplaceRepresentation.
type ServingRep struct {
	labels map[string]ServingMacro
}

func (ServingRep) Kind() RepresentationKind { return KindServing }
func (ServingRep) representation()          {}

// Label looks up a serving by name.
func (s ServingRep) Label(name string) (ServingMacro, bool) {
	m, ok := s.labels[name]
	return m, ok
}

// Labels returns the serving names in sorted order.
func (s ServingRep) Labels() []string {
	out := make([]string, 0, len(s.labels))
	for k := range s.labels {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// LabelMap returns a copy of the label map.
func (s ServingRep) LabelMap() map[string]ServingMacro {
	out := make(map[string]ServingMacro, len(s.labels))
	for k, v := range s.labels {
		out[k] = v
	}
	return out
}

// FoodRecord is a validated food. The zero value is not a valid record;
// records come from Create and ReplaceRepresentation only.
type FoodRecord struct {
	id   string
	name string
	kind QuantityKind
	rep  Representation
}

func (r FoodRecord) ID() string                     { return r.id }
func (r FoodRecord) Name() string                   { return r.name }
func (r FoodRecord) QuantityKind() QuantityKind     { return r.kind }
func (r FoodRecord) Representation() Representation { return r.rep }

// Density returns the density representation, if that is what r uses.
func (r FoodRecord) Density() (DensityRep, bool) {
	d, ok := r.rep.(DensityRep)
	return d, ok
}

// Serving returns the serving representation, if that is what r uses.
func (r FoodRecord) Serving() (ServingRep, bool) {
	s, ok := r.rep.(ServingRep)
	return s, ok
}

// MealEntry is one food reference inside a meal. Quantity is an absolute
// amount for density foods and a serving count for serving foods.
type MealEntry struct {
	FoodItemID   string  `json:"food_item_id"`
	Quantity     float64 `json:"quantity"`
	ServingLabel string  `json:"serving_label,omitempty"`
}

// MealTotals is the rounded sum of a meal's contributions.
type MealTotals struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func totalsOf(m Macros) MealTotals {
	r := m.Rounded()
	return MealTotals{Calories: r.Calories, Protein: r.Protein, Carbs: r.Carbs, Fat: r.Fat}
}

// Macros converts t back into a macro set.
func (t MealTotals) Macros() Macros {
	return Macros{Calories: t.Calories, Protein: t.Protein, Carbs: t.Carbs, Fat: t.Fat}
}
