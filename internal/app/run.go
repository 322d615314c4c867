package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"cloudpico-station/internal/aggregator"
	"cloudpico-station/internal/bus"
	"cloudpico-station/internal/config"
	"cloudpico-station/internal/connectivity"
	db "cloudpico-station/internal/db"
	"cloudpico-station/internal/db/migrate"
	"cloudpico-station/internal/dispatch"
	"cloudpico-station/internal/hardware"
	httpapi "cloudpico-station/internal/httpapi"
	weather "cloudpico-station/internal/modules/weather"
	"cloudpico-station/internal/modules/weather/repository"
	"cloudpico-station/internal/mqtt"
	"cloudpico-station/internal/sensors/dht"
	"cloudpico-station/internal/sensors/pulse"
)

const shutdownTimeout = 10 * time.Second

// Run starts the station and blocks until ctx is done, an exit event is
// handled or the HTTP server fails. After an exit event it returns
// dispatch.ErrExit.
func Run(ctx context.Context, cfg config.Config, sessionID string) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"staticDir", cfg.StaticDir,
		"stationId", cfg.StationID,
		"hardware", cfg.Hardware,
		"sqliteDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"sqliteMaxOpenConns", cfg.MaxOpenConns,
		"sqliteMaxIdleConns", cfg.MaxIdleConns,
		"sqliteConnMaxLifetime", cfg.ConnMaxLifetime,
		"mqttEnabled", cfg.MQTT.Enabled,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(dbConn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if _, err := migrate.Run(ctx, dbConn, logger); err != nil {
		return err
	}
	logger.Info("database ready")

	board, err := hardware.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := board.Close(); closeErr != nil {
			logger.Error("hardware close", "error", closeErr)
		}
	}()

	b := bus.New()
	s, err := newStation(cfg, board, b, logger)
	if err != nil {
		return err
	}

	agg := aggregator.New(aggregator.Options{
		Payloads: b.Payloads,
		Store:    repository.NewRepository(dbConn),
		Pinger: connectivity.NewPinger(connectivity.Options{
			URL:    cfg.Connectivity.PingURL,
			Logger: logger,
		}),
		Display:           s.display,
		DisplayEvery:      cfg.Display.Every,
		ConnectivityEvery: cfg.Connectivity.Every,
		CycleBudget:       cfg.Aggregator.CycleBudget,
		PersistTimeout:    cfg.Aggregator.PersistTimeout,
		PingTimeout:       cfg.Connectivity.Timeout,
		Logger:            logger,
	})

	dispatcher := dispatch.New(dispatch.Options{
		Events:     b.Events,
		Payloads:   b.Payloads,
		Scheduler:  s.scheduler,
		Sensors:    s.sensors,
		Rollover:   agg.Notify,
		TickPeriod: cfg.Schedule.TickPeriod,
		Logger:     logger,
	})

	mux := httpapi.NewMux(dbConn, cfg.StaticDir)
	weather.RegisterFeature(mux, agg)
	srv := httpapi.NewServer(cfg, mux, logger)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	var wg sync.WaitGroup
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("component stopped", "component", name, "error", err)
			}
		}()
	}

	goRun("anemometer watch", func(ctx context.Context) error {
		return pulse.Watch(ctx, board.Anemometer, cfg.Pulse.Debounce, func() { b.Events.Publish(bus.EventAnemometerPulse) })
	})
	goRun("rain watch", func(ctx context.Context) error {
		return pulse.Watch(ctx, board.Rain, cfg.Pulse.Debounce, func() { b.Events.Publish(bus.EventRainPulse) })
	})
	if s.dhtRunner != nil {
		goRun("dht runner", s.dhtRunner.Run)
	}
	if cfg.DHT.SelfTest > 0 {
		goRun("dht self-test", func(ctx context.Context) error {
			dht.SelfTest(ctx, s.dhtSensor, cfg.DHT.SelfTest, cfg.DHT.RetryInterval, b.Events, logger)
			return nil
		})
	}
	goRun("aggregator", agg.Run)

	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient = mqtt.NewClient(cfg.MQTT, cfg.StationID+"-"+sessionID, logger)
		goRun("mqtt connect", mqttClient.Connect)
		goRun("mqtt telemetry", func(ctx context.Context) error {
			return mqtt.RunTelemetry(ctx, mqttClient, agg, mqtt.TelemetryOptions{
				StationID: cfg.StationID,
				SessionID: sessionID,
				Interval:  cfg.MQTT.Interval,
				Logger:    logger,
			})
		})
	}

	dispatchErr := make(chan error, 1)
	go func() {
		dispatchErr <- dispatcher.Run(runCtx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", cfg.HTTPAddr)
		httpErr <- srv.ListenAndServe()
	}()

	var (
		runErr                 error
		httpDone, dispatchDone bool
	)
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-dispatchErr:
		dispatchDone = true
	case err := <-httpErr:
		httpDone = true
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	}

	logger.Info("station shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if mqttClient != nil {
		logger.Info("mqtt disconnecting")
		mqttClient.Disconnect()
	}

	if !httpDone {
		logger.Info("http shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = err
		}
		if err := <-httpErr; err != nil && !errors.Is(err, http.ErrServerClosed) && runErr == nil {
			runErr = err
		}
	}
	if !dispatchDone {
		<-dispatchErr
	}

	wg.Wait()
	b.Close()
	return runErr
}
