package nutrition

import (
	"math"
	"sort"
	"strings"
)

// EntryContribution is one entry's share of a meal, rounded for display.
type EntryContribution struct {
	Index        int     `json:"index"`
	FoodItemID   string  `json:"food_item_id"`
	FoodName     string  `json:"food_name"`
	Quantity     float64 `json:"quantity"`
	ServingLabel string  `json:"serving_label,omitempty"`
	Macros       Macros  `json:"macros"`
}

// MealBreakdown is a meal's totals together with the per-entry contributions
// they were summed from.
type MealBreakdown struct {
	Entries []EntryContribution `json:"entries"`
	Totals  MealTotals          `json:"totals"`
}

// Contribution computes the unrounded macros one entry adds to a meal.
func Contribution(r FoodRecord, e MealEntry) (Macros, error) {
	if err := checkEntry(-1, e); err != nil {
		return Macros{}, err
	}
	return contribution(-1, r, e)
}

// Aggregate sums the contributions of entries, resolving every entry against
// records by food id. Any unresolved entry fails the whole call.
func Aggregate(records map[string]FoodRecord, entries []MealEntry) (MealTotals, error) {
	b, err := Breakdown(records, entries)
	if err != nil {
		return MealTotals{}, err
	}
	return b.Totals, nil
}

// Breakdown is Aggregate plus the per-entry contributions.
func Breakdown(records map[string]FoodRecord, entries []MealEntry) (MealBreakdown, error) {
	for i, e := range entries {
		if err := checkEntry(i, e); err != nil {
			return MealBreakdown{}, err
		}
	}

	out := MealBreakdown{Entries: make([]EntryContribution, 0, len(entries))}
	parts := make([]Macros, 0, len(entries))
	for i, e := range entries {
		r, ok := records[e.FoodItemID]
		if !ok {
			return MealBreakdown{}, &UnresolvedReferenceError{
				Index:      i,
				FoodItemID: e.FoodItemID,
				Reason:     "food record not found",
			}
		}
		m, err := contribution(i, r, e)
		if err != nil {
			return MealBreakdown{}, err
		}
		parts = append(parts, m)
		out.Entries = append(out.Entries, EntryContribution{
			Index:        i,
			FoodItemID:   e.FoodItemID,
			FoodName:     r.name,
			Quantity:     e.Quantity,
			ServingLabel: servingLabelFor(r, e),
			Macros:       m.Rounded(),
		})
	}
	totals, err := checkedTotals(sumMacros(parts))
	if err != nil {
		return MealBreakdown{}, err
	}
	out.Totals = totals
	return out, nil
}

// Sum adds already computed totals, e.g. every meal of a day. It fails when
// the sum overflows float64.
func Sum(totals ...MealTotals) (MealTotals, error) {
	parts := make([]Macros, len(totals))
	for i, t := range totals {
		parts[i] = t.Macros()
	}
	return checkedTotals(sumMacros(parts))
}

// checkedTotals rounds m and rejects results that are no longer finite, so an
// overflow can never be stored as NaN or Inf.
func checkedTotals(m Macros) (MealTotals, error) {
	t := totalsOf(m)
	if !m.finite() || !t.Macros().finite() {
		return MealTotals{}, tooLarge(-1)
	}
	return t, nil
}

func tooLarge(i int) error {
	return &PreconditionError{Index: i, Field: "quantity", Reason: "too large"}
}

func checkEntry(i int, e MealEntry) error {
	if math.IsNaN(e.Quantity) || math.IsInf(e.Quantity, 0) {
		return &PreconditionError{Index: i, Field: "quantity", Reason: "must be a finite number"}
	}
	if e.Quantity <= 0 {
		return &PreconditionError{Index: i, Field: "quantity", Reason: "must be positive"}
	}
	return nil
}

func contribution(i int, r FoodRecord, e MealEntry) (Macros, error) {
	if r.rep == nil {
		return Macros{}, &UnresolvedReferenceError{Index: i, FoodItemID: e.FoodItemID, Reason: "food record is not loaded"}
	}
	if r.id != e.FoodItemID {
		return Macros{}, &UnresolvedReferenceError{Index: i, FoodItemID: e.FoodItemID, Reason: "entry references a different food record"}
	}

	switch rep := r.rep.(type) {
	case DensityRep:
		// quantity is an absolute amount in the record's unit
		ratio := e.Quantity / rep.BaseQuantity
		return scaled(i, rep.Macros, ratio)
	case ServingRep:
		// quantity is a count of the named serving
		label := strings.TrimSpace(e.ServingLabel)
		if label == "" {
			return Macros{}, &UnresolvedReferenceError{Index: i, FoodItemID: e.FoodItemID, Reason: "serving label is required"}
		}
		sm, ok := rep.labels[label]
		if !ok {
			return Macros{}, &UnresolvedReferenceError{Index: i, FoodItemID: e.FoodItemID, ServingLabel: label, Reason: "unknown serving label"}
		}
		return scaled(i, sm.Macros, e.Quantity)
	}
	return Macros{}, &UnresolvedReferenceError{Index: i, FoodItemID: e.FoodItemID, Reason: "unsupported representation"}
}

func scaled(i int, m Macros, f float64) (Macros, error) {
	out := m.Scale(f)
	if !out.finite() || !out.Rounded().finite() {
		return Macros{}, tooLarge(i)
	}
	return out, nil
}

func servingLabelFor(r FoodRecord, e MealEntry) string {
	if _, ok := r.rep.(ServingRep); ok {
		return strings.TrimSpace(e.ServingLabel)
	}
	return ""
}

func sumMacros(parts []Macros) Macros {
	field := func(get func(Macros) float64) float64 {
		vals := make([]float64, len(parts))
		for i, p := range parts {
			vals[i] = get(p)
		}
		return stableSum(vals)
	}
	return Macros{
		Calories: field(func(m Macros) float64 { return m.Calories }),
		Protein:  field(func(m Macros) float64 { return m.Protein }),
		Carbs:    field(func(m Macros) float64 { return m.Carbs }),
		Fat:      field(func(m Macros) float64 { return m.Fat }),
	}
}

// stableSum adds vals in ascending order with Neumaier compensation, so the
// result does not depend on the order vals arrive in.
func stableSum(vals []float64) float64 {
	sort.Float64s(vals)
	var sum, c float64
	for _, v := range vals {
		t := sum + v
		if math.Abs(sum) >= math.Abs(v) {
			c += (sum - t) + v
		} else {
			c += (v - t) + sum
		}
		sum = t
	}
	return sum + c
}
