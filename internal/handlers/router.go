package handlers

import (
	"avroviewer/internal/app"
	"avroviewer/internal/handlers/middleware"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	middleware middleware.Middleware
	log        logger.Logger
	router     fiber.Router
}

func Router(router fiber.Router, app *app.App) (err error) {
	router.Use(app.Middleware.TraceID())

	if app.Websocket != nil {
		WebSocketHandler(router, app.Websocket)
	}

	api := router.Group("/api")
	HealthHandler(api, app.Config)
	NewBatchHandler(*app, api).Register()

	return nil
}
