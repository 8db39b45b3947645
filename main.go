package main

import (
	"fmt"
	"os"
	"time"
	"unisoncomms/adapters"
	"unisoncomms/comms"
	"unisoncomms/config"
	"unisoncomms/handlers/api"
	"unisoncomms/middleware"
	"unisoncomms/storage"
	"unisoncomms/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
)

// openStore builds the encrypted message store. A missing passphrase is not
// fatal: the unison channel falls back to its stub provider. A passphrase
// that fails to decrypt existing records is fatal, silently serving garbage
// is worse than refusing to start.
func openStore(cfg *config.Config) *storage.LocalEncryptedStore {
	passphrase := cfg.Store.StorePassphrase()
	if passphrase == "" {
		utils.Log.Warn("No store passphrase in %s, unison channel will use the stub provider", cfg.Store.PassphraseEnv)
		return nil
	}

	crypter, err := storage.NewAESCrypter(passphrase)
	if err != nil {
		utils.Log.Error("Failed to initialize store encryption: %v", err)
		os.Exit(1)
	}

	store, err := storage.NewLocalEncryptedStore(cfg.Store.Path, crypter)
	if err != nil {
		utils.Log.Error("Failed to open message store at %s: %v", cfg.Store.Path, err)
		os.Exit(1)
	}
	return store
}

func main() {
	utils.Log.Info("Initializing UnisonComms gateway...")

	config, err := config.LoadConfig("config.toml")
	if err != nil {
		utils.Log.Error("Failed to load config: %v", err)
		os.Exit(1)
	}

	if !config.IsLoopback() && !config.Server.UnsafeAllowNonlocal {
		utils.Log.Error("Refusing to bind %s: set unsafe_allow_nonlocal = true to expose the gateway beyond loopback", config.Server.Host)
		os.Exit(1)
	}

	store := openStore(config)
	stream := comms.NewEventStream(config.Stream.QueueSize)
	resolver := adapters.NewResolver(config, store, stream.Publish)
	service := comms.NewService(resolver)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError

			// Check for AppError
			if appErr, ok := err.(*utils.AppError); ok {
				code = appErr.Code
				utils.Log.Error("Application error: %v", appErr)
			} else if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	// Add global middleware
	app.Use(recover.New()) // Recover from panics
	app.Use(logger.New())  // Request logging
	app.Use(compress.New())
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "SAMEORIGIN",
		ReferrerPolicy:     "no-referrer",
	}))

	// Add rate limiting (100 requests per minute per IP)
	app.Use(middleware.RateLimiter(100, time.Minute))

	commsHandler := api.NewCommsHandler(service)
	streamHandler := api.NewStreamHandler(stream)

	// Health check endpoints
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	app.Get("/readyz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "ready",
			"store":       store != nil,
			"subscribers": stream.SubscriberCount(),
		})
	})

	// Protected routes group
	protected := app.Group("/comms", middleware.AuthGate(config.Auth.Mode, config.Auth.Secret))
	{
		protected.Post("/check", commsHandler.HandleCheck)
		protected.Post("/summarize", commsHandler.HandleSummarize)
		protected.Post("/reply", commsHandler.HandleReply)
		protected.Post("/compose", commsHandler.HandleCompose)

		// Meeting stubs
		protected.Post("/join_meeting", commsHandler.HandleMeeting("comms.join_meeting", "Joining meeting"))
		protected.Post("/prepare_meeting", commsHandler.HandleMeeting("comms.prepare_meeting", "Meeting preparation"))
		protected.Post("/debrief_meeting", commsHandler.HandleMeeting("comms.debrief_meeting", "Meeting debrief"))

		// Live event stream, SSE and WebSocket flavors
		protected.Get("/stream", streamHandler.HandleSSE)
		protected.Get("/stream/ws", api.UpgradeRequired, websocket.New(streamHandler.HandleWebSocket))
	}

	// 404 handler for undefined routes
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(404).JSON(fiber.Map{
			"error": "not found",
		})
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	utils.Log.Info("Starting server on %s...", addr)
	if err := app.Listen(addr); err != nil {
		utils.Log.Error("Error starting server: %v", err)
		os.Exit(1)
	}
}
