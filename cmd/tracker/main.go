package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/lisanmuaddib/mindshare-tracker/pkg/api"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/campaign"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/db"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/lock"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/logging"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/metrics"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/scheduler"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/sources"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/store/memstore"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/tracker"
	"github.com/lisanmuaddib/mindshare-tracker/pkg/validity"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		// Only log at debug level since .env is optional
		logrus.WithError(err).Debug("No .env file loaded")
	}

	campaignsFile := flag.String("campaigns", envOr("CAMPAIGNS_FILE", campaign.DefaultFile), "path to the campaigns JSON file")
	interval := flag.Duration("interval", 0, "time between batches; 0 runs a single batch and exits")
	dryRun := flag.Bool("dry-run", false, "keep all state in memory instead of the database")
	flag.Parse()

	log := logging.FromEnv()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	campaigns, err := campaign.LoadCampaigns(*campaignsFile)
	if err != nil {
		log.WithError(err).Fatal("Failed to load campaigns")
	}

	trackerConfig, err := tracker.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to create tracker config")
	}

	sourcesConfig, err := sources.NewConfig()
	if err != nil {
		log.WithError(err).Fatal("Failed to create mirror config")
	}
	// Override logger to use our main logger
	sourcesConfig.Logger = log
	gateway, registry := sources.NewGatewayFromConfig(sourcesConfig, validity.NewFilter(trackerConfig.PrimaryTag))

	st, err := openStore(log, *dryRun)
	if err != nil {
		log.WithError(err).Fatal("Failed to open store")
	}

	locker, err := openLocker(ctx, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to redis")
	}

	m := metrics.New()
	t, err := tracker.New(tracker.Deps{
		Store:   st,
		Source:  gateway,
		Locker:  locker,
		Metrics: m,
		Logger:  log,
		Config:  trackerConfig,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to create tracker")
	}

	runBatch := func(ctx context.Context) *tracker.BatchReport {
		batch := t.TrackAll(ctx, campaigns)
		if err := tracker.PersistHealth(ctx, st, registry.Snapshot(), m); err != nil {
			log.WithError(err).Warn("Failed to persist endpoint health")
		}
		for _, run := range batch.Runs {
			for _, msg := range run.Errors {
				log.WithFields(logrus.Fields{
					"campaign_id": run.CampaignID,
					"run_id":      run.RunID,
				}).Warn(msg)
			}
		}
		return batch
	}

	log.WithFields(logrus.Fields{
		"campaigns": len(campaigns),
		"endpoints": len(sourcesConfig.Endpoints),
		"dry_run":   *dryRun,
		"interval":  interval.String(),
	}).Info("Starting mindshare tracker")

	if *interval == 0 {
		batch := runBatch(ctx)
		for _, run := range batch.Runs {
			if !run.OK() {
				os.Exit(1)
			}
		}
		return
	}

	if err := scheduler.ValidateInterval(*interval); err != nil {
		log.WithError(err).Fatal("Invalid batch interval")
	}

	sched := scheduler.New(log)
	job, err := scheduler.NewPeriodic("track_campaigns", func(ctx context.Context) error {
		runBatch(ctx)
		return nil
	}, log, scheduler.PeriodicOptions{Interval: *interval, RunOnStart: true})
	if err != nil {
		log.WithError(err).Fatal("Failed to create batch job")
	}
	if err := sched.Register(job); err != nil {
		log.WithError(err).Fatal("Failed to register batch job")
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		handler := api.NewHandler(api.Deps{
			Tracker:   t,
			Campaigns: campaigns,
			Health:    registry,
			Metrics:   m,
			Logger:    log,
		})
		if err := sched.Register(api.NewServerJob(handler, addr)); err != nil {
			log.WithError(err).Fatal("Failed to register report API")
		}
	}

	if err := sched.Run(ctx); err != nil && err != context.Canceled {
		log.WithError(err).Fatal("Tracker stopped with error")
	}

	log.Info("Tracker shutdown complete")
}

func openStore(log *logrus.Logger, dryRun bool) (store.Store, error) {
	if dryRun {
		log.Warn("Dry run: state is kept in memory and discarded on exit")
		return memstore.New(), nil
	}

	dbConfig, err := db.NewConfig()
	if err != nil {
		return nil, err
	}
	gormDB, err := db.SetupDatabase(log, dbConfig)
	if err != nil {
		return nil, err
	}
	return store.NewGormStore(log, gormDB), nil
}

func openLocker(ctx context.Context, log *logrus.Logger) (lock.Locker, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return lock.NewLocalLocker(), nil
	}

	client, err := lock.Connect(addr)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	log.WithField("addr", addr).Info("Using redis run lock")
	return lock.NewRedisLocker(client), nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
