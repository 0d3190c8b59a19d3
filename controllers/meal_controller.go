package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/howtoquitvivek/skipnomeal/middlewares"
	"github.com/howtoquitvivek/skipnomeal/nutrition"
	"github.com/howtoquitvivek/skipnomeal/services"

	"github.com/gin-gonic/gin"
)

type MealController struct {
	Meals *services.MealService
}

func NewMealController(ms *services.MealService) *MealController {
	return &MealController{Meals: ms}
}

type mealRequest struct {
	Name    string                `json:"name"`
	EatenAt time.Time             `json:"eaten_at"`
	Entries []nutrition.MealEntry `json:"entries"`
}

type previewRequest struct {
	Entries []nutrition.MealEntry `json:"entries"`
}

// POST /api/meals/preview
func (mc *MealController) Preview(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	b, err := mc.Meals.Preview(c.Request.Context(), middlewares.UserID(c), req.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/meals
func (mc *MealController) Create(c *gin.Context) {
	var req mealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	meal, err := mc.Meals.AddMeal(c.Request.Context(), middlewares.UserID(c), req.Name, req.EatenAt, req.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, meal)
}

// GET /api/meals?from=2025-01-01&to=2025-01-08
func (mc *MealController) List(c *gin.Context) {
	uid := middlewares.UserID(c)
	fromStr, toStr := c.Query("from"), c.Query("to")
	if fromStr == "" && toStr == "" {
		meals, err := mc.Meals.ListMeals(c.Request.Context(), uid)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, meals)
		return
	}

	from, err := parseTimeParam(fromStr)
	if err != nil {
		badRequest(c, "invalid 'from': use RFC3339 or YYYY-MM-DD")
		return
	}
	to, err := parseTimeParam(toStr)
	if err != nil {
		badRequest(c, "invalid 'to': use RFC3339 or YYYY-MM-DD")
		return
	}
	if !to.After(from) {
		badRequest(c, "'to' must be after 'from'")
		return
	}
	meals, err := mc.Meals.ListMealsByDateRange(c.Request.Context(), uid, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meals)
}

// GET /api/meals/summary?date=2025-01-01&tz=Asia/Colombo
func (mc *MealController) Summary(c *gin.Context) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			badRequest(c, "invalid 'tz'")
			return
		}
		loc = l
	}
	day := time.Now().In(loc)
	if dateStr := c.Query("date"); dateStr != "" {
		d, err := time.ParseInLocation("2006-01-02", dateStr, loc)
		if err != nil {
			badRequest(c, "invalid date format. Use YYYY-MM-DD")
			return
		}
		day = d
	}
	summary, err := mc.Meals.DailySummary(c.Request.Context(), middlewares.UserID(c), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// GET /api/meals/:id
func (mc *MealController) Get(c *gin.Context) {
	id, ok := mealID(c)
	if !ok {
		return
	}
	meal, err := mc.Meals.GetMeal(c.Request.Context(), middlewares.UserID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

// PUT /api/meals/:id
func (mc *MealController) Update(c *gin.Context) {
	id, ok := mealID(c)
	if !ok {
		return
	}
	var req mealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	meal, err := mc.Meals.UpdateMeal(c.Request.Context(), middlewares.UserID(c), id, req.Name, req.EatenAt, req.Entries)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, meal)
}

// DELETE /api/meals/:id
func (mc *MealController) Delete(c *gin.Context) {
	id, ok := mealID(c)
	if !ok {
		return
	}
	if err := mc.Meals.DeleteMeal(c.Request.Context(), middlewares.UserID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func mealID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid meal id")
		return 0, false
	}
	return uint(id), true
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", v)
}
