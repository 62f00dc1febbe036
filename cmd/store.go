package main

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/Dosada05/uniplay/config"
	"github.com/Dosada05/uniplay/db"
	"github.com/Dosada05/uniplay/repositories"
)

// stores bundles the repositories of the configured storage driver.
type stores struct {
	tx        repositories.Transactor
	live      repositories.LiveMatchRepository
	fixtures  repositories.FixtureRepository
	events    repositories.EventRepository
	teams     repositories.TeamRepository
	autoPlays repositories.AutoPlayRepository

	ping  func(ctx context.Context) error
	close func()
}

func openStores(cfg *config.Config, logger *slog.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		mem := repositories.NewMemoryStore()
		return &stores{
			tx:        mem,
			live:      mem.LiveMatches(),
			fixtures:  mem.Fixtures(),
			events:    mem.Events(),
			teams:     mem.Teams(),
			autoPlays: mem.AutoPlays(),
			close:     func() {},
		}, nil
	}

	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("database connection established")

	return &stores{
		tx:        repositories.NewPostgresTransactor(dbConn),
		live:      repositories.NewPostgresLiveMatchRepository(dbConn),
		fixtures:  repositories.NewPostgresFixtureRepository(dbConn),
		events:    repositories.NewPostgresEventRepository(dbConn),
		teams:     repositories.NewPostgresTeamRepository(dbConn),
		autoPlays: repositories.NewPostgresAutoPlayRepository(dbConn),
		ping:      dbConn.PingContext,
		close:     closeDB(dbConn, logger),
	}, nil
}

func closeDB(dbConn *sql.DB, logger *slog.Logger) func() {
	return func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
			return
		}
		logger.Info("database connection closed")
	}
}
