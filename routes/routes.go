package routes

import (
	"net/http"
	"time"

	"github.com/howtoquitvivek/skipnomeal/controllers"
	"github.com/howtoquitvivek/skipnomeal/logger"
	"github.com/howtoquitvivek/skipnomeal/middlewares"
	"github.com/howtoquitvivek/skipnomeal/observability"
	"github.com/howtoquitvivek/skipnomeal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Log         *logger.Logger
	JWTSecret   string
	CORSOrigins []string
	Foods       *services.FoodService
	Meals       *services.MealService
	Analytics   *services.AnalyticsService
	Realtime    *services.RealtimeHub
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware(observability.ServiceName), middlewares.RequestLogger(d.Log))
	corsCfg := cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(d.CORSOrigins) == 0 {
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	foods := controllers.NewFoodController(d.Foods)
	meals := controllers.NewMealController(d.Meals)
	analytics := controllers.NewAnalyticsController(d.Analytics)
	rt := controllers.NewRealtimeController(d.Realtime)

	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware(d.JWTSecret))
	{
		api.POST("/foods", foods.Create)
		api.GET("/foods", foods.List)
		api.POST("/foods/recognize", foods.Recognize)
		api.GET("/foods/:id", foods.Get)
		api.PUT("/foods/:id/representation", foods.ReplaceRepresentation)
		api.DELETE("/foods/:id", foods.Delete)
		api.POST("/foods/:id/image", foods.AttachImage)

		api.POST("/meals/preview", meals.Preview)
		api.POST("/meals", meals.Create)
		api.GET("/meals", meals.List)
		api.GET("/meals/summary", meals.Summary)
		api.GET("/meals/weekly", analytics.GetWeeklyOverview)
		api.GET("/meals/:id", meals.Get)
		api.PUT("/meals/:id", meals.Update)
		api.DELETE("/meals/:id", meals.Delete)
	}

	ws := r.Group("/ws")
	ws.Use(middlewares.AuthMiddleware(d.JWTSecret))
	{
		ws.GET("/meals", rt.MealsWS)
	}

	return r
}
