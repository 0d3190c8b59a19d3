package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/howtoquitvivek/skipnomeal/models"
	"github.com/howtoquitvivek/skipnomeal/nutrition"
)

type fakeImages struct {
	prefix string
	url    string
	err    error
}

func (f *fakeImages) UploadDataURL(_ context.Context, prefix, _ string) (string, error) {
	f.prefix = prefix
	return f.url, f.err
}

type fakeLabels struct {
	labels []string
	err    error
}

func (f *fakeLabels) DetectLabels(context.Context, string) ([]string, error) {
	return f.labels, f.err
}

func TestFoodCreateAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	created := f.egg(t, 1)

	got, err := f.foods.Get(ctx, 1, created.Record.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got.Record, created.Record) {
		t.Fatalf("record mismatch: want=%+v got=%+v", created.Record, got.Record)
	}
	if got.Record.QuantityKind() != nutrition.Serving {
		t.Fatalf("kind: want=serving got=%s", got.Record.QuantityKind())
	}
	if _, err := f.foods.Get(ctx, 2, created.Record.ID()); !errors.Is(err, ErrFoodNotFound) {
		t.Fatalf("other user: want ErrFoodNotFound got %v", err)
	}
}

func TestFoodCreateRejectsInvalidPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.foods.Create(ctx, 1, "Rice", nutrition.Gram, nutrition.Payload{
		Density: &nutrition.DensityInput{Macros: &nutrition.MacrosInput{Calories: ptr(130), Protein: ptr(2.7), Carbs: ptr(28)}},
	})
	var ve *nutrition.ValidationError
	if !errors.As(err, &ve) || ve.Field != "density.macros.fat" {
		t.Fatalf("want validation error on density.macros.fat, got %v", err)
	}
	list, err := f.foods.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("foods stored: want=0 got=%d", len(list))
	}
}

func TestFoodListAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chicken(t, 1)
	f.egg(t, 1)
	f.egg(t, 2)

	all, err := f.foods.List(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].Record.Name() != "Chicken Breast" {
		t.Fatalf("unexpected list: %d foods", len(all))
	}

	found, err := f.foods.Search(ctx, 1, "CHICK")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(found) != 1 || found[0].Record.Name() != "Chicken Breast" {
		t.Fatalf("search chick: want=1 got=%d", len(found))
	}
}

func TestFoodSearchTreatsWildcardsLiterally(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chicken(t, 1)
	f.egg(t, 1)
	for _, name := range []string{"100% Orange Juice", "Brown_Rice", `Salt\Pepper`} {
		if _, err := f.foods.Create(ctx, 1, name, nutrition.Gram, densityPayload(100, macrosIn(50, 1, 10, 0))); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	cases := map[string]string{
		"%": "100% Orange Juice",
		"_": "Brown_Rice",
		`\`: `Salt\Pepper`,
	}
	for q, want := range cases {
		found, err := f.foods.Search(ctx, 1, q)
		if err != nil {
			t.Fatalf("search %q: %v", q, err)
		}
		if len(found) != 1 || found[0].Record.Name() != want {
			names := make([]string, len(found))
			for i, fd := range found {
				names[i] = fd.Record.Name()
			}
			t.Fatalf("search %q: want [%s] got %v", q, want, names)
		}
	}
}

func TestReplaceRepresentationRecomputesMeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chicken := f.chicken(t, 1)
	egg := f.egg(t, 1)
	view, err := f.meals.AddMeal(ctx, 1, "Lunch", time.Time{}, []nutrition.MealEntry{
		{FoodItemID: chicken.Record.ID(), Quantity: 150},
		{FoodItemID: egg.Record.ID(), Quantity: 2, ServingLabel: "large"},
	})
	if err != nil {
		t.Fatalf("add meal: %v", err)
	}

	next, err := f.foods.ReplaceRepresentation(ctx, 1, chicken.Record.ID(), nutrition.Gram,
		densityPayload(100, macrosIn(200, 30, 0, 10)))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if next.Record.ID() != chicken.Record.ID() || next.Record.Name() != "Chicken Breast" {
		t.Fatalf("identity changed: %+v", next.Record)
	}

	var stored models.Meal
	if err := f.db.First(&stored, view.ID).Error; err != nil {
		t.Fatalf("load meal: %v", err)
	}
	want := nutrition.MealTotals{Calories: 444, Protein: 57, Carbs: 0.8, Fat: 25}
	if got := totalsOf(&stored); got != want {
		t.Fatalf("recomputed totals: want=%+v got=%+v", want, got)
	}
}

func TestReplaceRepresentationSwitchesKind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chicken := f.chicken(t, 1)

	next, err := f.foods.ReplaceRepresentation(ctx, 1, chicken.Record.ID(), nutrition.Serving,
		servingPayload(map[string]nutrition.ServingMacroInput{
			"fillet": {UnitQuantity: ptr(120), Macros: macrosIn(198, 37.2, 0, 4.3)},
		}))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if _, ok := next.Record.Density(); ok {
		t.Fatalf("density representation should be gone")
	}
	got, err := f.foods.Get(ctx, 1, chicken.Record.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	s, ok := got.Record.Serving()
	if !ok {
		t.Fatalf("want serving representation")
	}
	if _, ok := s.Label("fillet"); !ok {
		t.Fatalf("want fillet label, got %v", s.Labels())
	}
}

func TestReplaceRepresentationRejectsBreakingEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	egg := f.egg(t, 1)
	view, err := f.meals.AddMeal(ctx, 1, "Breakfast", time.Time{}, []nutrition.MealEntry{
		{FoodItemID: egg.Record.ID(), Quantity: 2, ServingLabel: "large"},
	})
	if err != nil {
		t.Fatalf("add meal: %v", err)
	}

	_, err = f.foods.ReplaceRepresentation(ctx, 1, egg.Record.ID(), nutrition.Serving,
		servingPayload(map[string]nutrition.ServingMacroInput{
			"small": {UnitQuantity: ptr(38), Macros: macrosIn(54, 4.7, 0.3, 3.7)},
		}))
	if !errors.Is(err, nutrition.ErrUnresolvedReference) {
		t.Fatalf("want unresolved reference got %v", err)
	}

	got, err := f.foods.Get(ctx, 1, egg.Record.ID())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got.Record, egg.Record) {
		t.Fatalf("food changed after rejected edit")
	}
	meal, err := f.meals.GetMeal(ctx, 1, view.ID)
	if err != nil {
		t.Fatalf("get meal: %v", err)
	}
	if meal.Totals != view.Totals {
		t.Fatalf("meal totals changed: want=%+v got=%+v", view.Totals, meal.Totals)
	}
}

func TestReplaceRepresentationValidatesBeforeWriting(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chicken := f.chicken(t, 1)

	_, err := f.foods.ReplaceRepresentation(ctx, 1, chicken.Record.ID(), nutrition.Gram, nutrition.Payload{
		Density: &nutrition.DensityInput{BaseQuantity: ptr(100), Macros: macrosIn(165, 31, 0, 3.6)},
		Serving: &nutrition.ServingInput{Labels: map[string]nutrition.ServingMacroInput{
			"piece": {UnitQuantity: ptr(30), Macros: macrosIn(50, 9, 0, 1)},
		}},
	})
	if !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("want validation error got %v", err)
	}
	if _, err := f.foods.ReplaceRepresentation(ctx, 1, "missing", nutrition.Gram, densityPayload(100, macrosIn(1, 1, 1, 1))); !errors.Is(err, ErrFoodNotFound) {
		t.Fatalf("unknown id: want ErrFoodNotFound got %v", err)
	}
}

func TestDeleteFoodInUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chicken := f.chicken(t, 1)
	view, err := f.meals.AddMeal(ctx, 1, "Lunch", time.Time{}, []nutrition.MealEntry{
		{FoodItemID: chicken.Record.ID(), Quantity: 100},
	})
	if err != nil {
		t.Fatalf("add meal: %v", err)
	}

	if err := f.foods.Delete(ctx, 1, chicken.Record.ID()); !errors.Is(err, ErrFoodInUse) {
		t.Fatalf("want ErrFoodInUse got %v", err)
	}
	if err := f.meals.DeleteMeal(ctx, 1, view.ID); err != nil {
		t.Fatalf("delete meal: %v", err)
	}
	if err := f.foods.Delete(ctx, 1, chicken.Record.ID()); err != nil {
		t.Fatalf("delete food: %v", err)
	}
	if _, err := f.foods.Get(ctx, 1, chicken.Record.ID()); !errors.Is(err, ErrFoodNotFound) {
		t.Fatalf("want ErrFoodNotFound got %v", err)
	}
}

func TestAttachImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chicken := f.chicken(t, 1)

	if _, err := f.foods.AttachImage(ctx, 1, chicken.Record.ID(), "data:image/png;base64,AA=="); !errors.Is(err, ErrImagesUnavailable) {
		t.Fatalf("no store: want ErrImagesUnavailable got %v", err)
	}

	store := &fakeImages{url: "https://cdn.example.com/foods/x.png"}
	f.foods.images = store
	got, err := f.foods.AttachImage(ctx, 1, chicken.Record.ID(), "data:image/png;base64,AA==")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got.ImageURL != store.url {
		t.Fatalf("image url: want=%s got=%s", store.url, got.ImageURL)
	}
	if store.prefix != "foods/"+chicken.Record.ID() {
		t.Fatalf("key prefix: got=%s", store.prefix)
	}
	reloaded, _ := f.foods.Get(ctx, 1, chicken.Record.ID())
	if reloaded.ImageURL != store.url {
		t.Fatalf("stored url: want=%s got=%s", store.url, reloaded.ImageURL)
	}

	store.err = errors.New("boom")
	if _, err := f.foods.AttachImage(ctx, 1, chicken.Record.ID(), "data:image/png;base64,AA=="); err == nil {
		t.Fatalf("want upload error")
	}
}

func TestRecognizeMatchesFoodNames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.chicken(t, 1)
	f.egg(t, 1)

	if _, _, err := f.foods.Recognize(ctx, 1, "data:image/png;base64,AA=="); !errors.Is(err, ErrRecognitionUnavailable) {
		t.Fatalf("no detector: want ErrRecognitionUnavailable got %v", err)
	}

	f.foods.labels = &fakeLabels{labels: []string{"Food", "Chicken", "Chicken Breast", "Plate"}}
	labels, matches, err := f.foods.Recognize(ctx, 1, "data:image/png;base64,AA==")
	if err != nil {
		t.Fatalf("recognize: %v", err)
	}
	if len(labels) != 4 {
		t.Fatalf("labels: want=4 got=%d", len(labels))
	}
	if len(matches) != 1 || matches[0].Record.Name() != "Chicken Breast" {
		t.Fatalf("matches: want [Chicken Breast] got %d", len(matches))
	}
}
