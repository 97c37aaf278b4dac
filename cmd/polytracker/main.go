package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/liyuxiao2/polytracker/internal/alerts"
	"github.com/liyuxiao2/polytracker/internal/api"
	"github.com/liyuxiao2/polytracker/internal/config"
	"github.com/liyuxiao2/polytracker/internal/ingest"
	"github.com/liyuxiao2/polytracker/internal/marketwatch"
	"github.com/liyuxiao2/polytracker/internal/polymarket/clobapi"
	"github.com/liyuxiao2/polytracker/internal/polymarket/dataapi"
	"github.com/liyuxiao2/polytracker/internal/polymarket/gammaapi"
	"github.com/liyuxiao2/polytracker/internal/profile"
	"github.com/liyuxiao2/polytracker/internal/resolution"
	"github.com/liyuxiao2/polytracker/internal/schedule"
	"github.com/liyuxiao2/polytracker/internal/snapshot"
	"github.com/liyuxiao2/polytracker/internal/storage"
)

func main() {
	backfill := flag.Bool("backfill", false, "run a bulk historical backfill and exit")
	backfillDays := flag.Int("backfill-days", 0, "how far back the bulk backfill reaches (0 = page budget only)")
	backfillPages := flag.Int("backfill-pages", 0, "page budget for the bulk backfill (0 = configured default)")
	flag.Parse()

	log := logrus.New()
	log.SetOutput(os.Stdout)

	log.Info("Starting polytracker service...")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	configureLogger(log, cfg)

	log.WithFields(logrus.Fields{
		"environment": cfg.Environment,
		"db_driver":   cfg.Database.Driver,
		"ingest_mode": cfg.Ingest.Mode,
		"alert_mode":  cfg.Alerts.Mode,
	}).Info("Configuration loaded")

	db, err := storage.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.WithError(err).Fatal("Failed to run database migrations")
	}
	log.Info("Database ready")

	dataClient := dataapi.NewClient(cfg)
	gammaClient := gammaapi.NewClient(cfg)
	clobClient := clobapi.NewClient(cfg)

	dispatcher := buildDispatcher(cfg, log)
	profiles := profile.New(cfg, db, dataClient, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One-shot maintenance mode: pull history, rebuild every profile, exit.
	if *backfill {
		runBulkBackfill(ctx, cfg, db, dataClient, profiles, dispatcher, log, *backfillPages, *backfillDays)
		return
	}

	source, streamRun := buildSource(cfg, dataClient, log)
	worker := ingest.New(cfg, db, dataClient, source, profiles, dispatcher, log)
	resolver := resolution.NewResolver(cfg, db, gammaClient, profiles, dispatcher, log)
	valuer := resolution.NewValuer(cfg, db, gammaClient, clobClient, profiles, log)
	watcher := marketwatch.New(cfg, db, log)
	collector := snapshot.New(cfg, db, gammaClient, clobClient, log)
	server := api.New(cfg, db, profiles, log)

	runner := schedule.New(log, ctx)
	mustSchedule(runner, log, "market watch refresh", cfg.Watch.Cron, func(ctx context.Context) {
		if err := watcher.Refresh(ctx); err != nil {
			log.WithError(err).Error("Market watch refresh failed")
		}
	})
	mustSchedule(runner, log, "snapshot capture", cfg.Snapshot.Cron, func(ctx context.Context) {
		if err := collector.Capture(ctx); err != nil {
			log.WithError(err).Error("Snapshot capture failed")
		}
	})
	mustSchedule(runner, log, "profile sweep", cfg.Watch.RecomputeCron, func(ctx context.Context) {
		count, err := profiles.RecomputeAll(ctx)
		if err != nil {
			log.WithError(err).Error("Profile sweep failed")
			return
		}
		log.WithField("wallets", count).Info("Profile sweep complete")
	})
	runner.Start()
	defer runner.Stop()

	var wg sync.WaitGroup
	runWorker := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn(ctx)
			log.WithField("worker", name).Info("Worker stopped")
		}()
	}

	if streamRun != nil {
		runWorker("stream source", streamRun)
	}
	runWorker("ingest", worker.Run)
	runWorker("resolver", resolver.Run)
	runWorker("valuer", valuer.Run)

	// Build the watch list right away so the dashboard is not empty until
	// the first cron tick.
	go func() {
		if err := watcher.Refresh(ctx); err != nil {
			log.WithError(err).Warn("Initial market watch refresh failed")
		}
	}()

	errCh := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := server.Run(ctx); err != nil {
			select {
			case errCh <- err:
			default:
			}
		}
	}()

	log.Info("polytracker running")

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-errCh:
		log.WithError(err).Error("Query API failed")
		stop()
	}

	wg.Wait()
	log.Info("Graceful shutdown complete")
}

func configureLogger(log *logrus.Logger, cfg *config.Config) {
	if strings.EqualFold(cfg.Environment, "production") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
}

// buildSource picks the trade feed per config. Stream mode additionally
// returns the connection loop for main to run.
func buildSource(cfg *config.Config, feed *dataapi.Client, log *logrus.Logger) (ingest.TradeSource, func(context.Context)) {
	if cfg.Ingest.Mode == config.IngestModeStream {
		stream := ingest.NewStreamSource(cfg.ClobAPI.WSURL, cfg.Ingest.StreamBuffer, log)
		return stream, stream.Run
	}
	return ingest.NewPollSource(feed, cfg.Ingest.FetchLimit), nil
}

func buildDispatcher(cfg *config.Config, log *logrus.Logger) *alerts.Dispatcher {
	var senders []alerts.Sender
	for _, mode := range cfg.AlertModes() {
		switch mode {
		case "log":
			senders = append(senders, alerts.NewLogSender(log))
		case "webhook":
			senders = append(senders, alerts.NewWebhookSender(cfg.Alerts.WebhookURL))
		case "kafka":
			senders = append(senders, alerts.NewKafkaSender(cfg.Alerts.KafkaBrokers, cfg.Alerts.KafkaTopic))
		}
	}
	if len(senders) == 0 {
		senders = append(senders, alerts.NewLogSender(log))
	}
	log.WithField("alert_mode", cfg.Alerts.Mode).Info("Alert dispatcher initialized")
	return alerts.NewDispatcher(log, cfg.Alerts.Cooldown, senders...)
}

func mustSchedule(runner *schedule.Runner, log *logrus.Logger, name, spec string, job func(context.Context)) {
	if _, err := runner.Add(name, spec, job); err != nil {
		log.WithError(err).Fatal("Failed to register scheduled job")
	}
}

func runBulkBackfill(ctx context.Context, cfg *config.Config, db *storage.DB, feed *dataapi.Client, profiles *profile.Maintainer, dispatcher *alerts.Dispatcher, log *logrus.Logger, pages, days int) {
	var oldest time.Time
	if days > 0 {
		oldest = time.Now().AddDate(0, 0, -days)
	}

	worker := ingest.New(cfg, db, feed, ingest.NewPollSource(feed, cfg.Ingest.FetchLimit), profiles, dispatcher, log)
	inserted, err := worker.BulkBackfill(ctx, pages, oldest)
	if err != nil {
		log.WithError(err).Fatal("Bulk backfill failed")
	}

	wallets, err := profiles.RecomputeAll(ctx)
	if err != nil {
		log.WithError(err).Fatal("Profile recompute after backfill failed")
	}

	log.WithFields(logrus.Fields{
		"inserted": inserted,
		"wallets":  wallets,
	}).Info("Backfill and profile rebuild finished")
}
