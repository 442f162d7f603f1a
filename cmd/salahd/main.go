package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/sandeepkv93/salahd/internal/app"
	"github.com/sandeepkv93/salahd/internal/backup"
	"github.com/sandeepkv93/salahd/internal/completion"
	"github.com/sandeepkv93/salahd/internal/config"
	"github.com/sandeepkv93/salahd/internal/content"
	"github.com/sandeepkv93/salahd/internal/logging"
	"github.com/sandeepkv93/salahd/internal/model"
	"github.com/sandeepkv93/salahd/internal/notify"
	"github.com/sandeepkv93/salahd/internal/prayertime"
	"github.com/sandeepkv93/salahd/internal/scheduler"
	"github.com/sandeepkv93/salahd/internal/settings"
	"github.com/sandeepkv93/salahd/internal/stats"
	"github.com/sandeepkv93/salahd/internal/storage"
	"github.com/sandeepkv93/salahd/internal/update"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "salahd failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zone, err := cfg.Zone()
	if err != nil {
		return err
	}

	logFile, err := logging.OpenFile(cfg.Logging.File)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format, logFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv, err := storage.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer kv.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := notify.NewMetrics(reg)

	prefs := settings.NewStore(kv, cfg.Notifications, cfg.Place())
	source := prayertime.NewAladhanSource(cfg.Source.BaseURL, cfg.Source.Method, &http.Client{Timeout: cfg.Source.Timeout})
	provider := prayertime.NewProvider(source, kv, logger,
		prayertime.WithZone(zone),
		prayertime.WithTimeout(cfg.Source.Timeout),
		prayertime.WithConnectivity(prayertime.StaticConnectivity(!cfg.Source.Offline)),
	)

	// The service owns the live location; the lookup reads it lazily.
	var svc *app.Service
	lookup := prayertime.NewLookup(provider, func() model.Location { return svc.Location() })

	store, err := completion.Open(ctx, kv, lookup, logger, completion.WithZone(zone))
	if err != nil {
		return err
	}

	engine := scheduler.NewEngine(cfg.Scheduler.Buffer)
	engine.Start()
	defer engine.Stop()
	windows := scheduler.NewEngine(len(model.DailyPrayers))
	windows.Start()
	defer windows.Stop()

	notifier := notify.NewScheduler(notify.NewEngineTransport(engine), kv, logger,
		notify.WithZone(zone),
		notify.WithMetrics(metrics),
		notify.WithPlanInputs(lookup, prefs),
	)
	store.Subscribe(notifier)

	daily, err := content.NewProvider()
	if err != nil {
		return err
	}

	deps := app.Deps{
		Provider:   provider,
		Completion: store,
		Notifier:   notifier,
		Settings:   prefs,
		Content:    daily,
	}
	if cfg.Backup.RedisURL != "" {
		remote, err := storage.OpenRedis(cfg.Backup.RedisURL, cfg.Backup.Namespace)
		if err != nil {
			return err
		}
		defer remote.Close()
		deps.Backup = backup.NewService(store, prefs, remote, nil, logger)
	}

	svc, err = app.NewService(ctx, deps, logger,
		app.WithZone(zone),
		app.WithWindowEngine(windows),
		app.WithStreakPolicy(stats.StreakPolicy(cfg.Stats.StreakPolicy)),
	)
	if err != nil {
		return err
	}

	ui := notify.NewChannelDeliverer(cfg.Scheduler.Buffer)
	deliverers := []notify.Deliverer{ui}
	if cfg.Scheduler.DesktopNotify {
		deliverers = append(deliverers, notify.NewDesktopDeliverer())
	}
	if cfg.MQTT.Broker != "" {
		mq, err := notify.ConnectMQTT(notify.MQTTConfig{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			QoS:         byte(cfg.MQTT.QoS),
		}, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("MQTT delivery disabled")
		} else {
			defer mq.Close()
			deliverers = append(deliverers, mq)
		}
	}
	go notify.NewDispatcher(engine.C(), logger, metrics, deliverers...).Run(ctx)
	go svc.RunWindows(ctx)

	if err := svc.Foreground(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial reconcile failed")
	}
	if err := svc.Sync(ctx); err != nil {
		logger.Warn().Err(err).Msg("initial sync failed")
	}

	jobs := app.NewJobs(svc, cfg.Scheduler.ReconcileInterval, zone, logger)
	if err := jobs.Start(); err != nil {
		return err
	}
	defer jobs.Stop()

	if cfg.Metrics.Addr != "" {
		srv := app.NewMetricsServer(cfg.Metrics.Addr, reg, logger)
		srv.Start()
		defer shutdown(srv, logger)
	}

	logger.Info().Str("db", cfg.Database.Path).Str("zone", zone.String()).Msg("salahd started")
	program := tea.NewProgram(update.NewModel(ctx, svc, update.WithDeliveries(ui.C())), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	logger.Info().Msg("salahd stopped")
	return nil
}

func shutdown(srv *app.MetricsServer, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn().Err(err).Msg("metrics server shutdown failed")
	}
}
