package cmd

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/config"
	"github.com/skatamatic/blulok-cloud-sub001/core/database"
	"github.com/skatamatic/blulok-cloud-sub001/core/loader"
	"github.com/skatamatic/blulok-cloud-sub001/core/logger"
	"github.com/skatamatic/blulok-cloud-sub001/core/middleware/actor"
	"github.com/skatamatic/blulok-cloud-sub001/core/middleware/auth"
	"github.com/skatamatic/blulok-cloud-sub001/core/middleware/rayid"
	"github.com/skatamatic/blulok-cloud-sub001/core/storage"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/apply"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/archive"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/events"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/provider"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "github.com/skatamatic/blulok-cloud-sub001/docs/swagger"
)

// @title BluLok FMS Sync API
// @version 1.0
// @description Facility management system synchronization and change review for the BluLok access-control platform.
// @host localhost:8080
// @BasePath /api/v1

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the FMS sync server",
	Long:  `Starts the HTTP server and initializes all enabled features.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		db, err := database.Connect(cfg.Database)
		if err != nil {
			logg.Fatal("Failed to connect to database", zap.Error(err))
		}

		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			logg.Fatal("Failed to create storage client", zap.Error(err))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true, // We log our own startup message
		})

		store := repository.New(db)
		bus := events.NewBus()
		engine := apply.NewEngine(store, bus, logg)
		registry := provider.NewRegistry(time.Duration(cfg.FMS.ProviderTimeoutSeconds) * time.Second)
		archiver := archive.NewWriter(client, cfg.Storage.Bucket, logg)
		service := fms.NewService(store, registry, engine, archiver, cfg.FMS, logg)

		mgr := loader.NewManager()
		mgr.Register(fms.NewFeature(service, cfg.FMS))

		// RayID first so every request is traceable.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		// Swagger documentation (public).
		app.Get("/swagger/*", swagger.HandlerDefault)

		api := app.Group("/api/v1")
		api.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))
		api.Use(actor.New())

		if err := mgr.LoadAll(api); err != nil {
			logg.Fatal("Failed to load features", zap.Error(err))
		}

		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			if err := app.Listen(":" + cfg.Server.Port); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		_ = app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
