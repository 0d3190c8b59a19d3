package nutrition

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

func chicken(t *testing.T) FoodRecord {
	return mustCreate(t, "chicken", "Chicken Breast", Gram, densityPayload(100, macrosIn(165, 31, 0, 3.6)))
}

func egg(t *testing.T) FoodRecord {
	return mustCreate(t, "egg", "Egg", Serving, servingPayload(map[string]ServingMacroInput{
		"large": {UnitQuantity: ptr(50), Macros: macrosIn(72, 6, 0.4, 5)},
	}))
}

func index(recs ...FoodRecord) map[string]FoodRecord {
	out := make(map[string]FoodRecord, len(recs))
	for _, r := range recs {
		out[r.ID()] = r
	}
	return out
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestContributionDensityScenario(t *testing.T) {
	got, err := Contribution(chicken(t), MealEntry{FoodItemID: "chicken", Quantity: 150})
	if err != nil {
		t.Fatalf("Contribution: %v", err)
	}
	want := Macros{Calories: 247.5, Protein: 46.5, Carbs: 0, Fat: 5.4}
	if !near(got.Calories, want.Calories) || !near(got.Protein, want.Protein) || !near(got.Carbs, want.Carbs) || !near(got.Fat, want.Fat) {
		t.Fatalf("contribution: want=%+v got=%+v", want, got)
	}
	totals, err := Aggregate(index(chicken(t)), []MealEntry{{FoodItemID: "chicken", Quantity: 150}})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if totals != (MealTotals{Calories: 247.5, Protein: 46.5, Carbs: 0, Fat: 5.4}) {
		t.Fatalf("totals: got=%+v", totals)
	}
}

func TestContributionServingScenario(t *testing.T) {
	totals, err := Aggregate(index(egg(t)), []MealEntry{{FoodItemID: "egg", ServingLabel: "large", Quantity: 2}})
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if totals != (MealTotals{Calories: 144, Protein: 12, Carbs: 0.8, Fat: 10}) {
		t.Fatalf("totals: got=%+v", totals)
	}
}

func TestDensityIgnoresServingLabel(t *testing.T) {
	got, err := Contribution(chicken(t), MealEntry{FoodItemID: "chicken", Quantity: 100, ServingLabel: "large"})
	if err != nil {
		t.Fatalf("Contribution: %v", err)
	}
	if got != (Macros{Calories: 165, Protein: 31, Carbs: 0, Fat: 3.6}) {
		t.Fatalf("got=%+v", got)
	}
}

func TestDensityBaseQuantityIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		base := 1 + math.Floor(rng.Float64()*500)
		m := macrosIn(rng.Float64()*900, rng.Float64()*90, rng.Float64()*90, rng.Float64()*90)
		rec := mustCreate(t, "d", "D", Gram, densityPayload(base, m))
		got, err := Contribution(rec, MealEntry{FoodItemID: "d", Quantity: base})
		if err != nil {
			t.Fatalf("Contribution: %v", err)
		}
		d, _ := rec.Density()
		if got != d.Macros {
			t.Fatalf("ratio 1: want=%+v got=%+v", d.Macros, got)
		}
	}
}

func TestServingScalesByCount(t *testing.T) {
	rec := egg(t)
	s, _ := rec.Serving()
	large, _ := s.Label("large")
	for _, n := range []float64{0.5, 1, 2, 3, 7.25} {
		got, err := Contribution(rec, MealEntry{FoodItemID: "egg", ServingLabel: "large", Quantity: n})
		if err != nil {
			t.Fatalf("Contribution(%v): %v", n, err)
		}
		want := Macros{
			Calories: n * large.Macros.Calories,
			Protein:  n * large.Macros.Protein,
			Carbs:    n * large.Macros.Carbs,
			Fat:      n * large.Macros.Fat,
		}
		if got != want {
			t.Fatalf("n=%v: want=%+v got=%+v", n, want, got)
		}
	}
}

func TestAggregateUnknownServingLabel(t *testing.T) {
	_, err := Aggregate(index(egg(t), chicken(t)), []MealEntry{
		{FoodItemID: "chicken", Quantity: 150},
		{FoodItemID: "egg", ServingLabel: "xlarge", Quantity: 1},
	})
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Fatalf("want ErrUnresolvedReference, got %v", err)
	}
	var ue *UnresolvedReferenceError
	if !errors.As(err, &ue) || ue.Index != 1 || ue.ServingLabel != "xlarge" {
		t.Fatalf("unexpected error detail: %+v", ue)
	}
}

func TestAggregateMissingServingLabel(t *testing.T) {
	_, err := Aggregate(index(egg(t)), []MealEntry{{FoodItemID: "egg", Quantity: 1}})
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Fatalf("want ErrUnresolvedReference, got %v", err)
	}
}

func TestAggregateMissingFood(t *testing.T) {
	_, err := Aggregate(index(chicken(t)), []MealEntry{
		{FoodItemID: "chicken", Quantity: 100},
		{FoodItemID: "tofu", Quantity: 100},
	})
	var ue *UnresolvedReferenceError
	if !errors.As(err, &ue) {
		t.Fatalf("want UnresolvedReferenceError, got %v", err)
	}
	if ue.FoodItemID != "tofu" || ue.Index != 1 {
		t.Fatalf("unexpected error detail: %+v", ue)
	}
}

func TestAggregateMismatchedRecord(t *testing.T) {
	_, err := Contribution(chicken(t), MealEntry{FoodItemID: "egg", Quantity: 1, ServingLabel: "large"})
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Fatalf("want ErrUnresolvedReference, got %v", err)
	}
}

func TestAggregateRejectsNonPositiveQuantity(t *testing.T) {
	for _, q := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		// the unknown food after the bad entry must not be reported first
		_, err := Aggregate(index(chicken(t)), []MealEntry{
			{FoodItemID: "tofu", Quantity: 10},
			{FoodItemID: "chicken", Quantity: q},
		})
		var pe *PreconditionError
		if !errors.As(err, &pe) {
			t.Fatalf("q=%v: want PreconditionError, got %v", q, err)
		}
		if pe.Index != 1 || pe.Field != "quantity" {
			t.Fatalf("q=%v: unexpected detail: %+v", q, pe)
		}
		if !errors.Is(err, ErrPrecondition) {
			t.Fatalf("q=%v: errors.Is(ErrPrecondition) = false", q)
		}
	}
}

func TestAggregateEmpty(t *testing.T) {
	totals, err := Aggregate(nil, nil)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if totals != (MealTotals{}) {
		t.Fatalf("want zero totals, got %+v", totals)
	}
}

func TestAggregateIsIdempotentAndOrderIndependent(t *testing.T) {
	recs := index(
		chicken(t),
		egg(t),
		mustCreate(t, "oil", "Olive Oil", Milliliter, densityPayload(15, macrosIn(119, 0, 0, 13.5))),
		mustCreate(t, "rice", "Rice", Gram, densityPayload(100, macrosIn(130.1, 2.69, 28.17, 0.28))),
	)
	entries := []MealEntry{
		{FoodItemID: "chicken", Quantity: 133.3},
		{FoodItemID: "egg", ServingLabel: "large", Quantity: 1.5},
		{FoodItemID: "oil", Quantity: 7.7},
		{FoodItemID: "rice", Quantity: 211.1},
		{FoodItemID: "chicken", Quantity: 0.1},
		{FoodItemID: "rice", Quantity: 0.3},
	}
	first, err := Aggregate(recs, entries)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	second, err := Aggregate(recs, entries)
	if err != nil {
		t.Fatalf("Aggregate again: %v", err)
	}
	if first != second {
		t.Fatalf("not idempotent: %+v vs %+v", first, second)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]MealEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got, err := Aggregate(recs, shuffled)
		if err != nil {
			t.Fatalf("Aggregate shuffled: %v", err)
		}
		if got != first {
			t.Fatalf("order dependent: want=%+v got=%+v", first, got)
		}
	}
}

func TestAggregateDoesNotMutateInputs(t *testing.T) {
	recs := index(egg(t))
	entries := []MealEntry{{FoodItemID: "egg", ServingLabel: " large ", Quantity: 2}}
	if _, err := Aggregate(recs, entries); err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if entries[0].ServingLabel != " large " {
		t.Fatalf("entry mutated: %+v", entries[0])
	}
	s, _ := recs["egg"].Serving()
	if len(s.Labels()) != 1 {
		t.Fatalf("record mutated: %v", s.Labels())
	}
}

func TestBreakdownReportsRoundedContributions(t *testing.T) {
	b, err := Breakdown(index(chicken(t), egg(t)), []MealEntry{
		{FoodItemID: "chicken", Quantity: 150},
		{FoodItemID: "egg", ServingLabel: "large", Quantity: 2},
	})
	if err != nil {
		t.Fatalf("Breakdown: %v", err)
	}
	if len(b.Entries) != 2 {
		t.Fatalf("entries: want=2 got=%d", len(b.Entries))
	}
	if b.Entries[0].Macros != (Macros{Calories: 247.5, Protein: 46.5, Carbs: 0, Fat: 5.4}) {
		t.Fatalf("chicken: got=%+v", b.Entries[0].Macros)
	}
	if b.Entries[0].ServingLabel != "" || b.Entries[1].ServingLabel != "large" {
		t.Fatalf("labels: got=%q/%q", b.Entries[0].ServingLabel, b.Entries[1].ServingLabel)
	}
	if b.Entries[1].FoodName != "Egg" {
		t.Fatalf("food name: got=%q", b.Entries[1].FoodName)
	}
	if b.Totals != (MealTotals{Calories: 391.5, Protein: 58.5, Carbs: 0.8, Fat: 15.4}) {
		t.Fatalf("totals: got=%+v", b.Totals)
	}
}

func TestSum(t *testing.T) {
	got, err := Sum(
		MealTotals{Calories: 247.5, Protein: 46.5, Carbs: 0, Fat: 5.4},
		MealTotals{Calories: 144, Protein: 12, Carbs: 0.8, Fat: 10},
		MealTotals{Calories: 0.1, Protein: 0.2, Carbs: 0.1, Fat: 0.2},
	)
	if err != nil {
		t.Fatalf("Sum: %v", err)
	}
	want := MealTotals{Calories: 391.6, Protein: 58.7, Carbs: 0.9, Fat: 15.6}
	if got != want {
		t.Fatalf("want=%+v got=%+v", want, got)
	}
}

func TestSumRejectsOverflow(t *testing.T) {
	huge := MealTotals{Calories: 1.7e308, Protein: 1, Carbs: 1, Fat: 1}
	_, err := Sum(huge, huge)
	var pe *PreconditionError
	if !errors.As(err, &pe) || pe.Field != "quantity" {
		t.Fatalf("want precondition error on quantity, got %v", err)
	}
}

func TestAggregateRejectsOverflow(t *testing.T) {
	var pe *PreconditionError

	// a single serving count large enough to overflow the scaled macros
	_, err := Aggregate(index(egg(t)), []MealEntry{{FoodItemID: "egg", Quantity: 1e307, ServingLabel: "large"}})
	if !errors.As(err, &pe) || pe.Index != 0 || pe.Field != "quantity" || pe.Reason != "too large" {
		t.Fatalf("scaled overflow: want too large at entry 0, got %v", err)
	}

	// two finite contributions whose sum overflows
	dense := mustCreate(t, "dense", "Dense", Gram, densityPayload(100, macrosIn(1.7e308, 1, 1, 1)))
	_, err = Aggregate(index(dense), []MealEntry{
		{FoodItemID: "dense", Quantity: 100},
		{FoodItemID: "dense", Quantity: 100},
	})
	if !errors.As(err, &pe) || pe.Field != "quantity" {
		t.Fatalf("sum overflow: want precondition error, got %v", err)
	}

	if _, err := Contribution(egg(t), MealEntry{FoodItemID: "egg", Quantity: math.MaxFloat64, ServingLabel: "large"}); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Contribution overflow: want ErrPrecondition got %v", err)
	}
}
