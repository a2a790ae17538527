package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"locallibrary/pkg/api"
	"locallibrary/pkg/auth"
	"locallibrary/pkg/catalog"
	"locallibrary/pkg/config"
	"locallibrary/pkg/database"
	"locallibrary/pkg/logger"
	"locallibrary/pkg/session"
	"locallibrary/pkg/workflow"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Log)
	defer func() { _ = zlog.Sync() }()
	zlog.Info("Starting catalog service", zap.String("env", cfg.App.Env), zap.String("timezone", cfg.App.Timezone))

	db, err := database.Open(cfg.Database, zlog)
	if err != nil {
		zlog.Fatal("Failed to open database", zap.Error(err))
	}

	engine := workflow.NewEngine(workflow.WithLocation(cfg.Location()))
	if cfg.App.Seed {
		if err := database.Seed(db, zlog, engine.Today()); err != nil {
			zlog.Fatal("Failed to seed database", zap.Error(err))
		}
	}

	counter := session.NewCounter(cfg.Redis, zlog)
	if closer, ok := counter.(io.Closer); ok {
		defer closer.Close()
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, db, engine, counter, zlog)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("Catalog service listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	zlog.Info("Server exited")
}

func newRouter(cfg *config.Config, db *gorm.DB, engine *workflow.Engine, counter session.Counter, zlog *zap.Logger) *gin.Engine {
	store := catalog.NewStore(db)
	svc := catalog.NewService(store, engine, zlog)

	router := gin.New()
	router.Use(
		logger.RequestID(),
		logger.GinMiddleware(zlog),
		logger.Recovery(zlog),
		session.Middleware(counter, cfg.IsProduction()),
		auth.Middleware(auth.NewService(cfg.JWT)),
	)
	api.NewHandler(svc, store, zlog).Register(router)
	return router
}
