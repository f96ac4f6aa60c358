package main

import (
	"os"

	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/config"
	"github.com/ReadyPlayerEmma/looplace/internal/database"
	logger "github.com/ReadyPlayerEmma/looplace/internal/logging"
	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/repository"
	"github.com/ReadyPlayerEmma/looplace/internal/router"
	"github.com/ReadyPlayerEmma/looplace/internal/session"
	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

func main() {
	projectRoot, err := os.Getwd()
	if err != nil {
		panic("failed to determine working directory: " + err.Error())
	}

	// A minimal console logger covers startup until the configured logger
	// takes over.
	bootstrapLog, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize bootstrap logger: " + err.Error())
	}

	if err := config.Init(projectRoot, bootstrapLog); err != nil {
		bootstrapLog.Fatal("Failed to load configuration", zap.Error(err))
	}

	log, err := logger.Init(projectRoot, config.Conf.Logging)
	if err != nil {
		bootstrapLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	// Initialize Database
	database.Init(log)

	// Load the task catalog at startup
	catalog, err := models.LoadCatalog(config.Conf.Server.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load task catalog", zap.Error(err))
	}

	// Server-driven sessions run on the real clock.
	manager := session.NewManager(
		log,
		timing.SystemClock{},
		timing.Sleep,
		repository.SummaryStore{},
		config.Conf.PVT.Engine(),
		config.Conf.NBack.Engine(),
	)
	defer manager.Close()

	// Setup router, passing the logger to it
	r := router.Setup(log, catalog, manager)

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
