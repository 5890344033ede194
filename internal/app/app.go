package app

import (
	"context"

	"avroviewer/config"
	"avroviewer/internal/controllers"
	"avroviewer/internal/database"
	"avroviewer/internal/events"
	"avroviewer/internal/handlers/middleware"
	"avroviewer/internal/jobs"
	"avroviewer/internal/repositories"
	"avroviewer/internal/services"
	"avroviewer/internal/websockets"

	logger "github.com/Bparsons0904/goLogger"
)

type App struct {
	Database    database.DB
	Middleware  middleware.Middleware
	Websocket   *websockets.Manager
	EventBus    *events.EventBus
	Config      config.Config
	Services    services.Service
	Repos       repositories.Repository
	Controllers controllers.Controllers
}

func New() (*App, error) {
	log := logger.New("app").Function("New")

	config, err := config.New()
	if err != nil {
		return &App{}, log.Err("failed to initialize config", err)
	}

	db, err := database.New(config)
	if err != nil {
		return &App{}, log.Err("failed to create database", err)
	}

	app, err := Build(config, db)
	if err != nil {
		_ = db.Close()
		return &App{}, err
	}

	if err := app.Services.Scheduler.Start(context.Background()); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to start scheduler", err)
	}

	return app, nil
}

// Build wires every component on top of an already opened database. Missing
// postgres or valkey connections degrade features rather than fail.
func Build(config config.Config, db database.DB) (*App, error) {
	log := logger.New("app").Function("Build")

	eventBus := events.New(db.Cache.Events)
	repos := repositories.New(db)
	service := services.New(db, config, eventBus, repos)

	websocket, err := websockets.New(eventBus, service.Token)
	if err != nil {
		service.Close()
		_ = eventBus.Close()
		return &App{}, log.Err("failed to create websocket manager", err)
	}

	if err := jobs.RegisterAllJobs(service.Scheduler, config, service); err != nil {
		websocket.Close()
		service.Close()
		_ = eventBus.Close()
		return &App{}, log.Err("failed to register jobs", err)
	}

	app := &App{
		Database:    db,
		Config:      config,
		Middleware:  middleware.New(config, service.Token),
		Websocket:   websocket,
		EventBus:    eventBus,
		Services:    service,
		Repos:       repos,
		Controllers: controllers.New(service),
	}

	if err := app.validate(); err != nil {
		_ = app.Close()
		return &App{}, log.Err("failed to validate app", err)
	}

	return app, nil
}

func (a *App) validate() error {
	log := logger.New("app").Function("validate")

	if a.Config.ServerPort <= 0 {
		return log.ErrMsg("config is missing a server port")
	}

	missing := map[string]bool{
		"websocket":          a.Websocket == nil,
		"eventBus":           a.EventBus == nil,
		"transactionService": a.Services.Transaction == nil,
		"schedulerService":   a.Services.Scheduler == nil,
		"tokenService":       a.Services.Token == nil,
		"progressService":    a.Services.Progress == nil,
		"historyService":     a.Services.History == nil,
		"ingestionService":   a.Services.Ingestion == nil,
		"batchRecordRepo":    a.Repos.BatchRecord == nil,
		"outcomeRepo":        a.Repos.Outcome == nil,
		"batchController":    a.Controllers.Batch == nil,
	}

	for name, isNil := range missing {
		if isNil {
			return log.Error("nil check failed", "component", name)
		}
	}

	return nil
}

func (a *App) Close() (err error) {
	if a.Services.Scheduler != nil {
		if closeErr := a.Services.Scheduler.Stop(context.Background()); closeErr != nil {
			err = closeErr
		}
	}

	a.Services.Close()

	if a.Websocket != nil {
		a.Websocket.Close()
	}

	if a.EventBus != nil {
		if closeErr := a.EventBus.Close(); closeErr != nil {
			err = closeErr
		}
	}

	if dbErr := a.Database.Close(); dbErr != nil {
		err = dbErr
	}

	return err
}
