package cron

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/cronjob"
	"github.com/ARahim900/muscatbay-sub004/config/log"
	"github.com/ARahim900/muscatbay-sub004/config/toml"
	"github.com/ARahim900/muscatbay-sub004/config/worker"
	"github.com/ARahim900/muscatbay-sub004/src/service"
	"github.com/ARahim900/muscatbay-sub004/src/tools"

	"go.uber.org/zap"
)

const rejectedDir = "rejected"

// CreateBaseCronJob schedules the inbox scan.
func CreateBaseCronJob() {
	cfg := toml.GetConfig().Import
	if _, err := cronjob.GetCJ().AddFunc(cfg.Cronspec, func() {
		defer func() {
			if r := recover(); r != nil {
				log.Logger.Error("Recovered from panic in cron job", zap.Any("panic", r))
			}
		}()
		if cfg.Mockingestion {
			MockDataIngestion(cfg.Inboxdir)
		}
		ScanInbox(cfg.Inboxdir)
	}); err != nil {
		log.Logger.Error("Failed to schedule inbox scan", zap.String("spec", cfg.Cronspec), zap.Error(err))
		return
	}
	log.Logger.Info("Inbox scan scheduled", zap.String("spec", cfg.Cronspec), zap.String("inbox", cfg.Inboxdir))
}

// ScanInbox validates every csv, tsv or zip file dropped in dir and enqueues
// the valid ones. Invalid files are moved to dir/rejected.
func ScanInbox(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Logger.Warn("Failed to read inbox", zap.String("dir", dir), zap.Error(err))
		return
	}

	for _, e := range entries {
		if e.IsDir() || !isImportFile(e.Name()) {
			continue
		}
		path, err := filepath.Abs(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}

		if !service.IZipProcessService.IsZip(path) {
			validationErr, err := service.IFileCheckerService.CheckImportFile(path)
			if err != nil {
				log.Logger.Error("failed to check file", zap.String("path", path), zap.Error(err))
				continue
			}
			if len(validationErr) > 0 {
				log.Logger.Error("file is not valid", zap.String("path", path), zap.Any("errors", validationErr))
				reject(dir, path)
				continue
			}
		}

		month, year := service.IFileCheckerService.InferPeriod(e.Name(), time.Now())
		if _, err := worker.EnqueueFile(path, month, year); err != nil {
			log.Logger.Warn("File not enqueued, will retry on next scan", zap.String("path", path), zap.Error(err))
		}
	}
}

// MockDataIngestion mimics a data provider by writing a file for every
// configured meter into the inbox.
func MockDataIngestion(dir string) {
	if service.IWaterRepository == nil {
		return
	}
	meters, err := service.IWaterRepository.ListMeters(context.Background())
	if err != nil || len(meters) == 0 {
		log.Logger.Warn("No meters to generate mock data for", zap.Error(err))
		return
	}
	now := time.Now().UTC()
	name := fmt.Sprintf("mock_%s_%s.csv", service.FormatMonth(int(now.Month()), now.Year()), tools.NewUuid())
	if err := tools.GenerateWaterCSV(filepath.Join(dir, name), meters, now.Day()); err != nil {
		log.Logger.Error("Failed to generate CSV", zap.String("file", name), zap.Error(err))
		return
	}
	log.Logger.Info("Mock data ingestion triggered", zap.String("file", name))
}

func isImportFile(name string) bool {
	name = strings.ToLower(name)
	return strings.HasSuffix(name, ".csv") || strings.HasSuffix(name, ".tsv") || strings.HasSuffix(name, ".zip")
}

func reject(dir, path string) {
	target := filepath.Join(dir, rejectedDir)
	if err := os.MkdirAll(target, 0o755); err != nil {
		log.Logger.Error("Failed to create rejected dir", zap.String("dir", target), zap.Error(err))
		return
	}
	// a uuid prefix keeps resent files with the same name apart
	dest := filepath.Join(target, tools.NewUuid()+"_"+filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Logger.Error("Failed to move rejected file", zap.String("file", path), zap.Error(err))
	}
}
