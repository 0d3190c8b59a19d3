package services

import (
	"context"
	"time"

	"github.com/howtoquitvivek/skipnomeal/nutrition"
)

type AnalyticsService struct{ meals *MealService }

func NewAnalyticsService(meals *MealService) *AnalyticsService {
	return &AnalyticsService{meals: meals}
}

type DayTotals struct {
	Date   string               `json:"date"`
	Meals  int                  `json:"meals"`
	Totals nutrition.MealTotals `json:"totals"`
}

type WeeklyOverview struct {
	WeekStart    string               `json:"week_start"`
	Days         []DayTotals          `json:"days"`
	Totals       nutrition.MealTotals `json:"totals"`
	DailyAverage nutrition.MealTotals `json:"daily_average"`
}

// WeeklyOverview buckets the seven days starting at weekStart's calendar
// date, in weekStart's location. Days without meals report zero totals.
func (s *AnalyticsService) WeeklyOverview(ctx context.Context, userID uint, weekStart time.Time) (*WeeklyOverview, error) {
	from := dayStart(weekStart)
	meals, err := s.meals.ListMealsByDateRange(ctx, userID, from, from.AddDate(0, 0, 7))
	if err != nil {
		return nil, err
	}

	byDay := make(map[string][]nutrition.MealTotals)
	for _, m := range meals {
		key := m.EatenAt.In(from.Location()).Format(dateLayout)
		byDay[key] = append(byDay[key], m.Totals)
	}

	out := &WeeklyOverview{WeekStart: from.Format(dateLayout), Days: make([]DayTotals, 7)}
	week := make([]nutrition.MealTotals, 7)
	for i := range out.Days {
		key := from.AddDate(0, 0, i).Format(dateLayout)
		day, err := nutrition.Sum(byDay[key]...)
		if err != nil {
			return nil, err
		}
		out.Days[i] = DayTotals{Date: key, Meals: len(byDay[key]), Totals: day}
		week[i] = day
	}
	if out.Totals, err = nutrition.Sum(week...); err != nil {
		return nil, err
	}
	out.DailyAverage = nutrition.MealTotals{
		Calories: nutrition.Round2(out.Totals.Calories / 7),
		Protein:  nutrition.Round2(out.Totals.Protein / 7),
		Carbs:    nutrition.Round2(out.Totals.Carbs / 7),
		Fat:      nutrition.Round2(out.Totals.Fat / 7),
	}
	return out, nil
}

const dateLayout = "2006-01-02"

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
