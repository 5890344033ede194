package server

import (
	"testing"

	"avroviewer/config"

	"github.com/stretchr/testify/assert"
)

func TestFiberConfig(t *testing.T) {
	tests := []struct {
		name         string
		cfg          config.Config
		bodyLimit    int
		printsRoutes bool
	}{
		{
			name:      "explicit upload limit",
			cfg:       config.Config{UploadMaxBytes: 1024, GeneralVersion: "1.2.3"},
			bodyLimit: 1024,
		},
		{
			name:      "falls back to default limit",
			cfg:       config.Config{},
			bodyLimit: config.DefaultUploadMaxBytes,
		},
		{
			name:         "development prints routes",
			cfg:          config.Config{UploadMaxBytes: 2048, Environment: "development"},
			bodyLimit:    2048,
			printsRoutes: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fiberConfig := FiberConfig(tt.cfg)

			assert.Equal(t, tt.bodyLimit, fiberConfig.BodyLimit)
			assert.Equal(t, tt.printsRoutes, fiberConfig.EnablePrintRoutes)
			assert.Equal(t, "AvroViewer/"+tt.cfg.GeneralVersion, fiberConfig.ServerHeader)
		})
	}
}
