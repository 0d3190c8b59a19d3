package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/howtoquitvivek/skipnomeal/config"
	"github.com/howtoquitvivek/skipnomeal/logger"
	"github.com/howtoquitvivek/skipnomeal/observability"
	"github.com/howtoquitvivek/skipnomeal/routes"
	"github.com/howtoquitvivek/skipnomeal/services"
	"github.com/howtoquitvivek/skipnomeal/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if cfg.Env == "prod" || cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal("database init failed", "error", err)
	}

	ctx := context.Background()
	shutdownTracing := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OtelEnabled,
		Environment: cfg.Env,
		Endpoint:    cfg.OtelEndpoint,
		Insecure:    cfg.OtelInsecure,
		SampleRatio: cfg.OtelSampleRatio,
	})

	var images services.ImageStore
	if cfg.S3Bucket != "" {
		store, err := utils.NewS3ImageStore(ctx, cfg.S3Region, cfg.S3Bucket, cfg.CloudFrontURL)
		if err != nil {
			log.Fatal("s3 init failed", "error", err)
		}
		images = store
	} else {
		log.Warn("S3_BUCKET not set, food photos disabled")
	}
	var labels services.LabelDetector
	if cfg.AWSRegion != "" {
		det, err := utils.NewRekognitionDetector(ctx, cfg.AWSRegion)
		if err != nil {
			log.Fatal("rekognition init failed", "error", err)
		}
		labels = det
	} else {
		log.Warn("AWS_REGION not set, food recognition disabled")
	}

	hub := services.NewRealtimeHub(log)
	foods := services.NewFoodService(db, log, hub, images, labels, cfg.RecomputeWorkers)
	meals := services.NewMealService(db, log, hub, cfg.RecomputeWorkers)

	r := routes.SetupRouter(routes.Deps{
		Log:         log,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Foods:       foods,
		Meals:       meals,
		Analytics:   services.NewAnalyticsService(meals),
		Realtime:    hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracer shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
