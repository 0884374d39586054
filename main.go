package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/cronjob"
	"github.com/ARahim900/muscatbay-sub004/config/database"
	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/metrics"
	redisUtil "github.com/ARahim900/muscatbay-sub004/config/redis"
	"github.com/ARahim900/muscatbay-sub004/config/toml"
	"github.com/ARahim900/muscatbay-sub004/config/worker"
	"github.com/ARahim900/muscatbay-sub004/src/cron"
	"github.com/ARahim900/muscatbay-sub004/src/handler"
	"github.com/ARahim900/muscatbay-sub004/src/service"
	"github.com/ARahim900/muscatbay-sub004/src/tools"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := toml.GetConfig()
	tools.SafeStart()
	defer log.Sync()

	if err := database.InitDB(cfg.Database); err != nil {
		fmt.Println("database init failed:", err)
		os.Exit(1)
	}
	metrics.Init()

	var locker service.Locker
	if len(cfg.Redis.Urls) > 0 {
		if client, err := redisUtil.GetRedisClient(); err != nil {
			log.Logger.Warn("redis unavailable, imports run without a lock", zap.Error(err))
		} else {
			locker = client
			defer client.Close()
		}
	}

	var blobs service.BlobStore
	if cfg.Storage.Enabled {
		gcs, err := service.NewGCSBlobStore(context.Background(), cfg.Storage.Bucket, cfg.Storage.Credentialsjson)
		if err != nil {
			log.Logger.Warn("blob storage unavailable, backups disabled", zap.Error(err))
		} else {
			blobs = gcs
			defer gcs.Close()
		}
	}

	service.Setup(database.GetDB(), cfg, locker, blobs)
	worker.StartWorkerPool(cfg.Import.Numworkers, cfg.Import.Jobqueuesize, cfg.Import.Archivedir)
	tools.NewPanicGroup().Go(cron.CreateBaseCronJob)

	gin.SetMode(gin.ReleaseMode)
	r := handler.NewRouter(&handler.WaterHandler{
		Importer: service.IImportService,
		Reporter: service.ILossReportService,
		Jobs:     handler.DBJobStore{DB: database.GetDB()},
		Enqueue:  worker.EnqueueFile,
		InboxDir: cfg.Import.Inboxdir,
	})
	s := &http.Server{
		Addr:           cfg.Server.Addr,
		Handler:        r,
		ReadTimeout:    time.Duration(cfg.Server.Readtimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.Writetimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Logger.Info("http server listening", zap.String("addr", cfg.Server.Addr))
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logger.Error("http server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		log.Logger.Error("http server shutdown failed", zap.Error(err))
	}
	<-cronjob.StopCJ().Done()
	log.Logger.Info("shutdown complete")
}
