package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sisa/internal/auth"
	"sisa/internal/camera"
	"sisa/internal/capture"
	"sisa/internal/config"
	"sisa/internal/database"
	"sisa/internal/detection"
	"sisa/internal/metrics"
	"sisa/internal/pipeline"
	"sisa/internal/ws"
)

func main() {
	logger := log.New(os.Stderr, "[sisa] ", log.Ltime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("invalid configuration: %v", err)
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		logger.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.Fatalf("failed to migrate database: %v", err)
	}

	registry, err := camera.NewRegistry(db)
	if err != nil {
		logger.Fatalf("failed to load cameras: %v", err)
	}

	// Detectors are external services holding the loaded models. An
	// unreachable detector at startup aborts initialization entirely; this
	// is the only fatal path once the process is up.
	forkliftDet := detection.NewClient(detection.ClientConfig{
		Name:                "forklift",
		ServiceEndpoint:     cfg.ForkliftDetectorEndpoint,
		ConfidenceThreshold: cfg.ForkliftConfidence,
		ClassesFilter:       cfg.ForkliftClass,
	})
	personDet := detection.NewClient(detection.ClientConfig{
		Name:                "person",
		ServiceEndpoint:     cfg.PersonDetectorEndpoint,
		ConfidenceThreshold: cfg.PersonConfidence,
		ClassesFilter:       cfg.PersonClass,
	})

	for _, det := range []*detection.Client{forkliftDet, personDet} {
		if !det.IsHealthy() {
			logger.Fatalf("detector %q is not available, no cameras will be monitored", det.Name())
		}
	}

	m := metrics.New()
	bus := pipeline.NewEventBus()

	wrapper := detection.NewWrapper(cfg.InferenceWidth)
	engine := pipeline.NewProximityEngine(cfg.ForkliftProximityPx, cfg.PersonProximityPx)
	tracker := pipeline.NewCooldownTracker(cfg.CooldownWindow)
	recorder := pipeline.NewRecorder(cfg.StorageDir, tracker, db, bus)

	supervisor := pipeline.NewSupervisor(
		func(cam *camera.Camera) (pipeline.FrameStream, error) {
			return capture.Open(cam)
		},
		wrapper,
		forkliftDet,
		personDet,
		engine,
		recorder,
		bus,
		m,
		pipeline.MonitorConfig{
			FrameSkip: cfg.FrameSkip,
			Backoff:   cfg.ReconnectBackoff,
			ForkliftOptions: detection.InferOptions{
				Confidence: cfg.ForkliftConfidence,
				Classes:    []string{cfg.ForkliftClass},
			},
			PersonOptions: detection.InferOptions{
				Confidence: cfg.PersonConfidence,
				Classes:    []string{cfg.PersonClass},
			},
		},
	)

	hub := ws.NewAlertHub()
	unsubscribeAlerts := bus.SubscribeAlerts(hub)
	defer unsubscribeAlerts()
	unsubscribeDetections := bus.SubscribeDetections(hub)
	defer unsubscribeDetections()

	authenticator, err := auth.NewAuthenticator(auth.Config{
		Enabled:   cfg.AuthEnabled,
		Username:  cfg.AuthUsername,
		Password:  cfg.AuthPassword,
		JWTSecret: cfg.JWTSecret,
		JWTExpiry: cfg.JWTExpiry,
	})
	if err != nil {
		logger.Fatalf("failed to set up auth: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := supervisor.Start(ctx, registry.Monitored()); err != nil {
		logger.Fatalf("failed to start monitor loops: %v", err)
	}

	errc := make(chan error)

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	server := startHTTPServer(cfg, db, hub, authenticator, m, errc, logger)

	logger.Printf("exiting (%v)", <-errc)

	cancel()
	if err := supervisor.Stop(10 * time.Second); err != nil {
		logger.Printf("shutdown: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Println("exited")
}
