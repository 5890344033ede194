package server

import (
	"fmt"
	"time"

	"avroviewer/config"
	"avroviewer/internal/app"
	"avroviewer/internal/handlers"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberLogs "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/helmet/v2"
)

type AppServer struct {
	FiberApp *fiber.App
	log      logger.Logger
}

func New(app *app.App) (*AppServer, error) {
	log := logger.New("server").Function("New")
	log.Info("Initializing server")

	server := fiber.New(FiberConfig(app.Config))

	server.Use(cors.New(cors.Config{
		AllowOrigins:  app.Config.CorsAllowOrigins,
		AllowMethods:  "GET, POST, OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, X-Trace-ID",
		MaxAge:        300,
		ExposeHeaders: "Content-Disposition, X-Trace-ID",
	}))

	server.Use(fiberLogs.New())
	server.Use(compress.New())

	server.Use(helmet.New(helmet.Config{
		XSSProtection:             "1; mode=block",
		ContentTypeNosniff:        "nosniff",
		XFrameOptions:             "DENY",
		ReferrerPolicy:            "strict-origin-when-cross-origin",
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "same-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	if err := handlers.Router(server, app); err != nil {
		return &AppServer{}, log.Err("failed to initialize handlers", err)
	}

	return &AppServer{
		FiberApp: server,
		log:      logger.New("server"),
	}, nil
}

// FiberConfig sizes the request body for a whole upload batch. Decoding
// happens after the body is fully read, so uploads are not streamed.
func FiberConfig(cfg config.Config) fiber.Config {
	fiberConfig := fiber.Config{
		ServerHeader:          fmt.Sprintf("AvroViewer/%s", cfg.GeneralVersion),
		AppName:               "avroviewer_server",
		BodyLimit:             cfg.UploadMaxBytes,
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		StreamRequestBody:     false,
		ReadTimeout:           2 * time.Minute,
		WriteTimeout:          2 * time.Minute,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	}

	if fiberConfig.BodyLimit <= 0 {
		fiberConfig.BodyLimit = config.DefaultUploadMaxBytes
	}

	if cfg.Environment == "development" {
		fiberConfig.DisableStartupMessage = false
		fiberConfig.EnablePrintRoutes = true
	}

	return fiberConfig
}

func (s *AppServer) Listen(port int) error {
	log := s.log.Function("Listen")

	if port == 0 {
		return log.Error("Fatal error: invalid port", "port", port)
	}

	log.Info("Starting server", "port", port)
	return s.FiberApp.Listen(fmt.Sprintf(":%d", port))
}
