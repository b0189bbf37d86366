package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"vinpipe/config"
	"vinpipe/handlers"
	"vinpipe/models"
	"vinpipe/reader"
	"vinpipe/scraper/oms"
	"vinpipe/services"
	"vinpipe/storage"
	"vinpipe/tradeform"
	"vinpipe/utils"
)

const usage = `usage: vinpipe [command] [flags]

commands:
  run      load exports, write CSV and snapshot, print the report (default)
  report   print the report only (-ref YYYY-MM-DD)
  fetch    download exports from OMS with per-store cookies
  pull     copy exports from the bucket into the export dir
  serve    serve the inventory API
  trade    print a trade record for one vin (-vin, -cost, -keys)
`

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.NewLogger().Error("Failed to load config: %v", err)
		os.Exit(1)
	}
	logger := utils.NewLoggerWithConfig(utils.LoggerConfig{Level: cfg.LogLevel, Format: cfg.LogFormat})

	cmd, args := "run", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	switch cmd {
	case "run":
		err = runPipeline(ctx, cfg, logger, args)
	case "report":
		err = runReport(ctx, cfg, logger, args)
	case "fetch":
		err = runFetch(ctx, cfg, logger)
	case "pull":
		err = runPull(ctx, cfg, logger)
	case "serve":
		err = runServe(ctx, cfg, logger)
	case "trade":
		err = runTrade(ctx, cfg, logger, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		stop()
		os.Exit(2)
	}
	stop()

	if err != nil {
		logger.Error("%s failed: %v", cmd, err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

// sources lists the configured store exports, keyed by store short name.
func sources(cfg *config.Config) []services.Source {
	out := make([]services.Source, 0, len(cfg.Stores))
	for _, s := range cfg.Stores {
		out = append(out, services.Source{Store: s.Short, Path: cfg.ExportPath(s)})
	}
	return out
}

func parseRef(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	ref, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("-ref must be YYYY-MM-DD: %w", err)
	}
	return ref, nil
}

func load(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*services.LoadResult, error) {
	loader := services.NewLoader(logger, cfg.CacheSize)
	res, err := loader.LoadAll(ctx, sources(cfg))
	if err != nil {
		return nil, err
	}
	if len(res.Stores) == 0 {
		return nil, errors.New("no store export could be loaded")
	}
	return res, nil
}

func openSnapshot(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.SnapshotStore, error) {
	if cfg.DBDriver == "" {
		return nil, nil
	}
	return storage.NewSnapshotStore(ctx, cfg.DBDriver, cfg.DSN(), logger)
}

func openBucket(ctx context.Context, cfg *config.Config, logger *utils.Logger) (*storage.Bucket, error) {
	if !cfg.BucketEnabled() {
		return nil, nil
	}
	return storage.NewBucket(ctx, storage.BucketConfig{
		Endpoint:  cfg.BucketEndpoint,
		Region:    cfg.BucketRegion,
		Bucket:    cfg.BucketName,
		Prefix:    cfg.BucketPrefix,
		AccessKey: cfg.BucketAccessKey,
		SecretKey: cfg.BucketSecretKey,
		UseSSL:    cfg.BucketUseSSL,
	}, logger)
}

func runPipeline(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	refFlag := fs.String("ref", "", "reference date YYYY-MM-DD (default today)")
	publish := fs.Bool("publish", false, "publish the unioned table to the bucket")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := parseRef(*refFlag)
	if err != nil {
		return err
	}

	logger.Info("=== Inventory pipeline starting ===")
	logger.Info("Config: stores: %d | export dir: %s | snapshot: %q", len(cfg.Stores), cfg.ExportDir, cfg.DBDriver)

	res, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.WorkbookPath != "" {
		wb, err := reader.ReadWorkbook(cfg.WorkbookPath, reader.DefaultWorkbookLayout())
		if err != nil {
			logger.Warn("Workbook skipped: %v", err)
		} else {
			logger.Info("Workbook %s: %d vehicles", filepath.Base(cfg.WorkbookPath), wb.Len())
		}
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		return err
	}
	defer csvWriter.Close()
	if err := csvWriter.Write(res.Union); err != nil {
		logger.Error("CSV write failed: %v", err)
	} else {
		logger.Info("Union saved to %s", csvWriter.Path())
	}

	table := res.Union
	snap, err := openSnapshot(ctx, cfg, logger)
	if err != nil {
		logger.Error("Snapshot store unavailable: %v", err)
	} else if snap != nil {
		defer snap.Close()
		if err := snap.Write(res.Union); err != nil {
			logger.Error("Snapshot write failed: %v", err)
		} else if stored, err := snap.FetchAll(); err != nil {
			logger.Error("Failed to read snapshot back: %v", err)
		} else {
			table = stored
		}
	}

	if *publish {
		if err := publishTable(ctx, cfg, logger, res.Union); err != nil {
			logger.Error("Publish failed: %v", err)
		}
	}

	reporter := services.NewReportService(logger, cfg.CacheSize)
	reporter.Print(reporter.Generate(table, ref))

	fmt.Printf("  Done. %d/%d stores loaded | CSV → %s\n\n", len(res.Stores), len(cfg.Stores), csvWriter.Path())
	return nil
}

func publishTable(ctx context.Context, cfg *config.Config, logger *utils.Logger, t *models.Table) error {
	bucket, err := openBucket(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if bucket == nil {
		return errors.New("bucket is not configured")
	}
	blob, err := storage.RenderHTML(t, "Inventory")
	if err != nil {
		return err
	}
	if err := bucket.Publish(ctx, cfg.PublishKey, blob); err != nil {
		return err
	}
	logger.Info("Published %d rows to %s", t.Len(), cfg.PublishKey)
	return nil
}

func runReport(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	refFlag := fs.String("ref", "", "reference date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ref, err := parseRef(*refFlag)
	if err != nil {
		return err
	}

	res, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}
	reporter := services.NewReportService(logger, cfg.CacheSize)
	reporter.Print(reporter.Generate(res.Union, ref))
	return nil
}

func runFetch(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	d := oms.New(cfg, logger)
	results, err := d.Download(ctx, oms.JobsFromStores(cfg.Stores))
	for _, r := range results {
		if r.Err == nil {
			fmt.Printf("  %-10s saved: %s\n", r.Job.Name, r.Path)
		} else {
			fmt.Printf("  %-10s ERROR: %v\n", r.Job.Name, r.Err)
		}
	}
	return err
}

func runPull(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	bucket, err := openBucket(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if bucket == nil {
		return errors.New("bucket is not configured (BUCKET_NAME, BUCKET_ACCESS_KEY_ID, BUCKET_SECRET_ACCESS_KEY)")
	}

	keys, err := bucket.List(ctx)
	if err != nil {
		return err
	}
	logger.Info("Bucket %s holds %d objects", cfg.BucketName, len(keys))

	failures := 0
	for _, s := range cfg.Stores {
		if err := bucket.Pull(ctx, s.BucketKey, cfg.ExportPath(s)); err != nil {
			logger.Error("[%s] pull failed: %v", s.Name, err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d pulls failed", failures, len(cfg.Stores))
	}
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	deps := handlers.Deps{
		Logger:       logger,
		Loader:       services.NewLoader(logger, cfg.CacheSize),
		Reporter:     services.NewReportService(logger, cfg.CacheSize),
		Sources:      sources(cfg),
		PublishKey:   cfg.PublishKey,
		WorkbookPath: cfg.WorkbookPath,
	}

	snap, err := openSnapshot(ctx, cfg, logger)
	if err != nil {
		logger.Error("Snapshot store unavailable, edits stay in memory: %v", err)
	} else if snap != nil {
		defer snap.Close()
		deps.Snapshot = snap
	}

	bucket, err := openBucket(ctx, cfg, logger)
	if err != nil {
		logger.Error("Bucket unavailable, edits will not be published: %v", err)
	} else if bucket != nil {
		deps.Publisher = bucket
	}

	srv := handlers.NewServer(deps)
	if err := srv.Reload(ctx); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving inventory API on %s", cfg.ListenAddr)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func runTrade(ctx context.Context, cfg *config.Config, logger *utils.Logger, args []string) error {
	fs := flag.NewFlagSet("trade", flag.ContinueOnError)
	vin := fs.String("vin", "", "vin of the traded vehicle")
	cost := fs.String("cost", "", "projected cost")
	keys := fs.String("keys", "", "key charge")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *vin == "" {
		return errors.New("-vin is required")
	}

	fee, err := tradeform.ParseCurrency(cfg.TradeFeeAmount)
	if err != nil {
		return fmt.Errorf("TRADE_FEE_AMOUNT: %w", err)
	}

	res, err := load(ctx, cfg, logger)
	if err != nil {
		return err
	}
	fields := map[string]string{"vin": *vin}
	for _, v := range res.Union.Vehicles() {
		if v.VIN == *vin {
			fields = tradeform.FromVehicle(v)
			break
		}
	}
	fields[tradeform.FieldProjectedCost] = *cost
	fields[tradeform.FieldKeyCharge] = *keys

	rec, err := tradeform.Build(fields, fee)
	if err != nil {
		return err
	}
	for _, k := range rec.Keys() {
		fmt.Printf("  %-16s %s\n", k, rec[k])
	}
	return nil
}
