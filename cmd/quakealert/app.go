package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rajasatyajit/QuakeAlert/config"
	"github.com/rajasatyajit/QuakeAlert/internal/classifier"
	"github.com/rajasatyajit/QuakeAlert/internal/database"
	"github.com/rajasatyajit/QuakeAlert/internal/guard"
	"github.com/rajasatyajit/QuakeAlert/internal/logger"
	"github.com/rajasatyajit/QuakeAlert/internal/pipeline"
	"github.com/rajasatyajit/QuakeAlert/internal/publisher"
	"github.com/rajasatyajit/QuakeAlert/internal/push"
	"github.com/rajasatyajit/QuakeAlert/internal/seismic"
	"github.com/rajasatyajit/QuakeAlert/internal/store"
)

// app holds the wired components shared by serve and check.
type app struct {
	db        *database.DB
	store     store.Store
	guard     guard.Guard
	publisher publisher.Publisher
	pipeline  *pipeline.Pipeline
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	a.db = db
	a.store = store.New(db)

	if cfg.Redis.URL != "" {
		// A lease outlives the longest cycle so it only expires for crashed holders.
		g, err := guard.NewRedisGuard(cfg.Redis.URL, cfg.Redis.KeyPrefix, cfg.Dispatch.CycleTimeout+30*time.Second)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("initialize cycle guard: %w", err)
		}
		a.guard = g
		logger.Info("Using Redis cycle guard", "prefix", cfg.Redis.KeyPrefix)
	} else {
		a.guard = guard.NewLocalGuard()
	}

	if cfg.Kafka.Enabled {
		a.publisher = publisher.NewKafkaPublisher(cfg.Kafka)
		logger.Info("Publishing events to Kafka", "topic", cfg.Kafka.Topic, "brokers", cfg.Kafka.Brokers)
	} else {
		a.publisher = publisher.NoOp{}
	}

	sender, err := newSender(ctx, cfg.Push)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	adapters, err := seismic.New(cfg.Sources)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("initialize feeds: %w", err)
	}

	a.pipeline = pipeline.New(pipeline.Dependencies{
		Adapters:    adapters,
		Subscribers: a.store,
		Ledger:      a.store,
		Classifier: classifier.New(classifier.Rules{
			ProximityRadiusKm:     cfg.Dispatch.ProximityRadiusKm,
			ProximityMinMagnitude: cfg.Dispatch.ProximityMinMagnitude,
			MagnitudeThreshold:    cfg.Dispatch.MagnitudeThreshold,
		}),
		Sender:    sender,
		Publisher: a.publisher,
		Guard:     a.guard,
	}, cfg.Sources.Window, cfg.Dispatch)

	return a, nil
}

func newSender(ctx context.Context, cfg config.PushConfig) (push.Sender, error) {
	if cfg.DryRun {
		logger.Warn("Push dry run enabled; alerts are logged, not delivered")
		return push.NewRateLimited(push.LogSender{}, cfg.RateLimit, cfg.Burst), nil
	}
	fcm, err := push.NewFCMSender(ctx, cfg.ProjectID, cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("initialize push sender: %w", err)
	}
	return push.NewRateLimited(fcm, cfg.RateLimit, cfg.Burst), nil
}

// Close releases every component that holds a connection
func (a *app) Close(ctx context.Context) {
	if a.pipeline != nil {
		a.pipeline.WaitPublishes()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			logger.Warn("Closing publisher failed", "error", err)
		}
	}
	if a.guard != nil {
		if err := a.guard.Close(); err != nil {
			logger.Warn("Closing cycle guard failed", "error", err)
		}
	}
	if a.db != nil {
		a.db.Close(ctx)
	}
}
