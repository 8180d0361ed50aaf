package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"videoscribe/internal/api"
	"videoscribe/internal/backend"
	"videoscribe/internal/config"
	"videoscribe/internal/logging"
	"videoscribe/internal/store"
	"videoscribe/internal/workspace"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel)

	client := backend.NewClient(cfg.BackendURL, nil, log)

	// The segment archive is optional; without Supabase credentials
	// saves go to the transcription backend only.
	var archive api.Archive
	saver := workspace.Saver(client)
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		segmentArchive, err := store.NewSegmentArchive(cfg.SupabaseURL, cfg.SupabaseKey, log)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize segment archive")
		}
		archive = segmentArchive
		saver = segmentArchive
		log.Info("Segment archive enabled")
	}

	ws := workspace.New(client, workspace.Options{
		Log:             log,
		PollInterval:    cfg.PollInterval,
		MaxPollFailures: cfg.MaxPollFailures,
		MaxPollDuration: cfg.MaxPollDuration,
		SyncWindow:      cfg.SyncWindow,
		Saver:           saver,
	})

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	app.Use(api.RequestLogger(log))

	api.NewHandler(ws, archive, log).Register(app)

	log.WithField("addr", cfg.ListenAddr).Info("Starting videoscribe")
	if err := app.Listen(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}
