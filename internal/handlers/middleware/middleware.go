package middleware

import (
	"avroviewer/config"
	"avroviewer/internal/services"

	logger "github.com/Bparsons0904/goLogger"
)

type Middleware struct {
	Config config.Config
	tokens *services.TokenService
	log    logger.Logger
}

func New(config config.Config, tokens *services.TokenService) Middleware {
	return Middleware{
		Config: config,
		tokens: tokens,
		log:    logger.New("middleware"),
	}
}
