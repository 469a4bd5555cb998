package main

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"covid-data-portal/internal/analytics"
	"covid-data-portal/internal/config"
	"covid-data-portal/internal/database"
	"covid-data-portal/internal/handlers"
	"covid-data-portal/internal/ingest"
	"covid-data-portal/internal/locations"
	"covid-data-portal/internal/normalize"
	"covid-data-portal/internal/notify"
	"covid-data-portal/internal/scheduler"
	"covid-data-portal/internal/search"
	"covid-data-portal/internal/source"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	configPath := getEnv("CONFIG_PATH", "./config/portal.yaml")
	appConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config from %s: %v", configPath, err)
	}
	setupLogging(appConfig.Logging)

	// Configuration problems abort before any network or store access.
	if err := appConfig.Validate(); err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// County reference dataset
	directory, err := locations.Load(appConfig.Source.CountyDataset)
	if err != nil {
		log.Fatalf("Failed to load county dataset: %v", err)
	}
	log.Infof("Loaded %d counties from %s", directory.Counties(), appConfig.Source.CountyDataset)

	// Initialize the document store based on configuration
	var (
		store     ingest.Store
		analStore analytics.Store
		gormStore *database.GormStore
	)
	dbCfg := appConfig.Database
	port := ""
	if dbCfg.Port > 0 {
		port = strconv.Itoa(dbCfg.Port)
	}

	if dbCfg.Type == "postgres" {
		log.Info("Using PostgreSQL store")
		pgStore, err := database.NewPostgresStore(dbCfg.Host, port, dbCfg.User, dbCfg.Password, dbCfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pgStore.Close()
		if err := pgStore.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		store = pgStore
		analStore = pgStore
	} else {
		log.Info("Using MySQL store with GORM")
		gormStore, err = database.NewGormStore(dbCfg.Host, port, dbCfg.User, dbCfg.Password, dbCfg.Database)
		if err != nil {
			log.Fatalf("Failed to connect to MySQL: %v", err)
		}
		defer gormStore.Close()
		if err := gormStore.InitSchema(); err != nil {
			log.Fatalf("Failed to initialize schema: %v", err)
		}
		store = gormStore
		analStore = gormStore
	}

	// Record source
	caseSource, mode, err := buildSource(appConfig.Source)
	if err != nil {
		log.Fatalf("Failed to configure record source: %v", err)
	}

	// Daily statistics (optional): the REST feed, or the flat export that
	// accompanies the CSV case source.
	var statsSource ingest.StatsSource
	var totalsSource ingest.StatTotalsSource
	switch {
	case appConfig.Source.StatsURL != "":
		statsSource = source.NewStatsFeedSource(source.StatsFeedConfig{
			URL:     appConfig.Source.StatsURL,
			State:   appConfig.Source.State,
			Timeout: appConfig.Source.GetTimeout(),
		})
	case appConfig.Source.Type == "csv" && appConfig.Source.StatsCSVPath != "":
		totalsSource = source.NewStatCSVSource(appConfig.Source.StatsCSVPath)
	}

	// Search index (optional)
	var indexer ingest.Indexer
	var searchClient *search.SearchClient
	if appConfig.Search.Enabled {
		client := search.NewSearchClient(appConfig.Search.Host, appConfig.Search.APIKey)
		if err := client.InitIndex(); err != nil {
			log.Warnf("Failed to initialize search index: %v", err)
		} else {
			indexer = client
			searchClient = client
		}
	}

	// Notifier (optional)
	var notifier ingest.Notifier
	if appConfig.SMTP.Enabled {
		notifier = notify.NewEmailNotifier(notify.SMTPConfig{
			Server:   appConfig.SMTP.Server,
			Port:     appConfig.SMTP.Port,
			User:     appConfig.SMTP.User,
			Password: appConfig.SMTP.Password,
			From:     appConfig.SMTP.From,
			To:       appConfig.SMTP.To,
		})
	}

	// Analytics (optional)
	var analyticsService *analytics.Service
	if appConfig.Analytics.Enabled {
		analyticsService = analytics.NewService(analStore, directory)
		if appConfig.Analytics.ProjectionDays > 0 {
			analyticsService.Horizon = appConfig.Analytics.ProjectionDays
		}
		if appConfig.Analytics.RateWindow > 0 {
			analyticsService.RateWindow = appConfig.Analytics.RateWindow
		}
		if appConfig.Analytics.TopCounties > 0 {
			analyticsService.TopN = appConfig.Analytics.TopCounties
		}
	}

	runner := ingest.NewRunner(ingest.Options{
		Source:              caseSource,
		Normalizer:          normalize.New(directory),
		Store:               store,
		Mode:                mode,
		Stats:               statsSource,
		Totals:              totalsSource,
		Analytics:           analyticsService,
		Notifier:            notifier,
		Indexer:             indexer,
		DashboardURL:        appConfig.DashboardURL,
		RecomputeSimulation: appConfig.Analytics.RecomputeSimulation,
	})

	// Scheduler
	appScheduler := scheduler.NewScheduler(runner, appConfig)
	if err := appScheduler.Start(); err != nil {
		log.Warnf("Failed to start scheduler: %v", err)
	}
	defer appScheduler.Stop()

	// Setup Gin router
	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		AllowCredentials: true,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now()})
	})

	if searchClient != nil {
		searchHandler := handlers.NewSearchHandler(searchClient)
		r.GET("/api/cases/search", searchHandler.SearchCases)
		log.Info("Case search registered at /api/cases/search")
	}

	// Admin API routes (GORM store only, like the stats queries they serve)
	if gormStore != nil {
		adminHandler := handlers.NewAdminHandler(gormStore.DB(), appScheduler)
		admin := r.Group("/api/admin")
		{
			admin.GET("/stats", adminHandler.GetStats)
			admin.GET("/health", adminHandler.Health)
			admin.POST("/ingest/run", adminHandler.TriggerRun)
		}
		log.Info("Admin API routes registered at /api/admin/*")
	} else {
		r.POST("/api/admin/ingest/run", func(c *gin.Context) {
			result := appScheduler.RunNow(c.Request.Context())
			status := http.StatusOK
			if !result.Success {
				status = http.StatusInternalServerError
			}
			c.JSON(status, result)
		})
	}

	httpPort := getEnv("PORT", "8084")
	log.Infof("Server starting on port %s", httpPort)
	if err := r.Run(":" + httpPort); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// buildSource selects the record source variant and the persistence mode
// that matches it: the paginated feed and the CSV export are complete
// snapshots and replace the dataset wholesale; the dashboard table is a
// delta and reconciles incrementally.
func buildSource(cfg config.SourceConfig) (ingest.Source, ingest.Mode, error) {
	switch cfg.Type {
	case "arcgis":
		return source.NewArcGISSource(source.ArcGISConfig{
			URL:       cfg.URL,
			PageSize:  cfg.PageSize,
			PageDelay: cfg.GetPageDelay(),
			Timeout:   cfg.GetTimeout(),
		}), ingest.ModeFullRefresh, nil
	case "html":
		return source.NewHTMLTableSource(source.HTMLTableConfig{
			URL:      cfg.PageURL,
			ExecPath: cfg.ChromePath,
			Timeout:  cfg.GetTimeout(),
		}), ingest.ModeIncremental, nil
	case "csv":
		return source.NewCSVSource(cfg.CSVPath), ingest.ModeFullRefresh, nil
	default:
		return nil, 0, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	if cfg.JSON {
		log.SetFormatter(&log.JSONFormatter{})
	}
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
