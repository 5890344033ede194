package handlers

import (
	"errors"
	"fmt"

	"avroviewer/internal/app"
	batchController "avroviewer/internal/controllers/batches"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/gofiber/fiber/v2"
)

const UPLOAD_FIELD = "files"

type BatchHandler struct {
	Handler
	batchController batchController.BatchControllerInterface
}

func NewBatchHandler(app app.App, router fiber.Router) *BatchHandler {
	log := logger.New("handlers").File("batch_handler")
	return &BatchHandler{
		batchController: app.Controllers.Batch,
		Handler: Handler{
			log:        log,
			router:     router,
			middleware: app.Middleware,
		},
	}
}

func (h *BatchHandler) Register() {
	batches := h.router.Group("/batches", h.middleware.RequireToken())
	batches.Post("", h.upload)
	batches.Get("/latest", h.latest)
	batches.Get("/latest/files/:index", h.export)
	batches.Get("/history", h.history)
}

func (h *BatchHandler) upload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Expected a multipart form upload",
		})
	}

	outcome, err := h.batchController.Upload(c.UserContext(), form.File[UPLOAD_FIELD])
	if err != nil {
		if errors.Is(err, batchController.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.Function("upload").Er("failed to process batch", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process batch",
		})
	}

	return c.Status(fiber.StatusOK).JSON(outcome)
}

func (h *BatchHandler) latest(c *fiber.Ctx) error {
	outcome, err := h.batchController.Latest(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "No batch has been processed yet",
		})
	}

	return c.JSON(outcome)
}

func (h *BatchHandler) export(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid file index",
		})
	}

	file, err := h.batchController.Export(c.UserContext(), index)
	if err != nil {
		if errors.Is(err, batchController.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "No decoded file at that index",
			})
		}
		h.log.Function("export").Er("failed to export file", err, "index", index)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to export file",
		})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
	return c.Send(file.Content)
}

func (h *BatchHandler) history(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)

	records, err := h.batchController.History(c.UserContext(), limit)
	if err != nil {
		if errors.Is(err, batchController.ErrValidation) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.Function("history").Er("failed to load batch history", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load batch history",
		})
	}

	return c.JSON(fiber.Map{
		"batches": records,
	})
}
