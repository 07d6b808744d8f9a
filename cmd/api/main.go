package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"brokersync/internal/client"
	"brokersync/internal/config"
	"brokersync/internal/database"
	"brokersync/internal/handlers"
	"brokersync/internal/logger"
	"brokersync/internal/middleware"
	"brokersync/internal/services"
	"brokersync/internal/validator"
)

// @title           Brokersync API
// @version         1.0
// @description     Brokersync ingests broker-exported trade CSVs, resolves broker symbols to canonical tickers, and submits validated batches to a portfolio ledger.

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(appConfig.RegistryDBPath)
	if err != nil {
		return fmt.Errorf("failed to open registry database: %w", err)
	}
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to migrate registry database: %w", err)
	}

	validator.Register()

	httpClient := &http.Client{Timeout: appConfig.HTTPTimeout}
	catalogClient := client.NewCatalogClient(appConfig.CatalogURL, httpClient)
	ledgerClient := client.NewLedgerClient(appConfig.LedgerURL, appConfig.LedgerAPIKey, httpClient)

	// Initialize services
	parserService := services.NewParserService()
	catalogService := services.NewCatalogService(catalogClient)
	registryService := services.NewRegistryService(dbManager.DB())
	resolverService := services.NewResolverService(catalogService, registryService)
	executorService := services.NewExecutorService(ledgerClient)
	sessionService := services.NewSessionService(parserService, resolverService, registryService, executorService)

	// Warm the catalog cache; a failed load degrades resolution, it does
	// not block startup.
	ctx, cancel := context.WithTimeout(context.Background(), appConfig.HTTPTimeout)
	catalogService.Load(ctx)
	cancel()

	// Initialize handlers
	importHandler := handlers.NewImportHandler(sessionService, parserService)
	mappingHandler := handlers.NewMappingHandler(registryService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	imports := v1.Group("/imports")
	imports.GET("/template", importHandler.Template)
	imports.POST("", importHandler.OpenSession)
	imports.GET("/:id", importHandler.GetSession)
	imports.POST("/:id/upload", importHandler.Upload)
	imports.PUT("/:id/mappings/:symbol", importHandler.EditMapping)
	imports.POST("/:id/confirm", importHandler.ConfirmMappings)
	imports.POST("/:id/back", importHandler.Back)
	imports.POST("/:id/import", importHandler.Import)
	imports.DELETE("/:id", importHandler.Cancel)

	mappings := v1.Group("/mappings")
	mappings.GET("", mappingHandler.ListMappings)
	mappings.PUT("", mappingHandler.UpsertMapping)
	mappings.DELETE("/:symbol", mappingHandler.DeleteMapping)

	log.Infof("Starting Brokersync server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
