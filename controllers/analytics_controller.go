package controllers

import (
	"net/http"
	"time"

	"github.com/howtoquitvivek/skipnomeal/middlewares"
	"github.com/howtoquitvivek/skipnomeal/services"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	Svc *services.AnalyticsService
}

func NewAnalyticsController(svc *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{Svc: svc}
}

// GET /api/meals/weekly?week_start=2025-03-10&tz=Asia/Colombo
func (h *AnalyticsController) GetWeeklyOverview(c *gin.Context) {
	loc := time.UTC
	if tz := c.Query("tz"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			badRequest(c, "invalid 'tz'")
			return
		}
		loc = l
	}
	weekStart := startOfWeek(time.Now().In(loc))
	if v := c.Query("week_start"); v != "" {
		ws, err := time.ParseInLocation("2006-01-02", v, loc)
		if err != nil {
			badRequest(c, "invalid week_start")
			return
		}
		weekStart = startOfWeek(ws)
	}

	out, err := h.Svc.WeeklyOverview(c.Request.Context(), middlewares.UserID(c), weekStart)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// startOfWeek returns the Monday on or before t.
func startOfWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	tt := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return tt.AddDate(0, 0, -(wd - 1))
}
