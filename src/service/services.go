package service

import (
	"time"

	"github.com/ARahim900/muscatbay-sub004/config/toml"

	"gorm.io/gorm"
)

var (
	IZipProcessService    = &ZipProcessServiceImpl{}
	ICsvParseService      = &CsvParseServiceImpl{}
	IReconcileService     = &ReconcileServiceImpl{}
	ILossAggregateService = &LossAggregateServiceImpl{}
	IJobQueueService      = &JobQueueServiceImpl{}
	IFileCheckerService   = &FileCheckerServiceImpl{}

	// set by Setup once the database is connected
	IWaterRepository   *WaterRepositoryServiceImpl
	IImportService     *ImportServiceImpl
	ILossReportService *LossReportServiceImpl
)

// Setup builds the database-backed services. locker and blobs may be nil.
func Setup(db *gorm.DB, cfg toml.TomlConfig, locker Locker, blobs BlobStore) {
	IWaterRepository = NewWaterRepositoryServiceImpl(db, cfg.Import.Maxretries)

	deps := ImportDeps{
		Registry:  IWaterRepository,
		Writer:    NewPersistServiceImpl(IWaterRepository, cfg.Import.Batchsize),
		LossDaily: NewLossDailyServiceImpl(IWaterRepository, cfg.Import.Batchsize),
		Locker:    locker,
		LockTTL:   time.Duration(cfg.Import.Locktimeout) * time.Second,
	}
	if blobs != nil {
		deps.Backup = NewBackupServiceImpl(blobs, cfg.Storage.Prefix)
	}
	IImportService = NewImportServiceImpl(deps)

	ILossReportService = NewLossReportServiceImpl(IWaterRepository, IWaterRepository, AggregateOptions{
		L1ZeroPolicy: NormalizeL1ZeroPolicy(cfg.Aggregate.L1zeropolicy),
	})
}
