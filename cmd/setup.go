package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/class-attendance/internal/classroom"
	"github.com/kozaktomas/class-attendance/internal/config"
	"github.com/kozaktomas/class-attendance/internal/database"
	"github.com/kozaktomas/class-attendance/internal/database/mariadb"
	"github.com/kozaktomas/class-attendance/internal/database/postgres"
	"github.com/kozaktomas/class-attendance/internal/detector"
	"github.com/kozaktomas/class-attendance/internal/logging"
)

// loadConfig reads the environment, validates it and configures logging.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	return cfg, nil
}

// initStorage opens the configured database, applies migrations and registers
// the backend. The returned func closes the connection pool.
func initStorage(cfg *config.Config) (func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMariaDB:
		pool, err := mariadb.Initialize(&cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MariaDB: %w", err)
		}
		logging.Info(nil, "using MariaDB backend")
		return func() { pool.Close() }, nil
	default:
		if err := postgres.Initialize(&cfg.Database); err != nil {
			return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		logging.Info(nil, "using PostgreSQL backend")
		return func() { postgres.GetGlobalPool().Close() }, nil
	}
}

// newService wires the registered store and the face encoder into a classroom service.
func newService(cfg *config.Config) (*classroom.Service, error) {
	store, err := database.GetStore(context.Background())
	if err != nil {
		return nil, err
	}

	faces := detector.NewClient(cfg.Encoder.URL, cfg.Encoder.Timeout())
	det := detector.New(faces, detector.Options{
		EmbeddingDim: cfg.Recognition.EmbeddingDim,
		FrameScale:   cfg.Recognition.FrameScale,
		Thresholds: detector.Thresholds{
			MinImageDim: cfg.Recognition.MinImageDim,
			MinFaceDim:  cfg.Recognition.MinFaceDim,
		},
	})

	return classroom.New(store, det, classroom.Options{
		Tolerance: cfg.Recognition.Tolerance,
		Location:  cfg.Attendance.Location(),
	}), nil
}

// setup is the common prologue of every command that touches storage.
func setup() (*config.Config, *classroom.Service, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	closeStorage, err := initStorage(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	service, err := newService(cfg)
	if err != nil {
		closeStorage()
		return nil, nil, nil, err
	}
	return cfg, service, closeStorage, nil
}
