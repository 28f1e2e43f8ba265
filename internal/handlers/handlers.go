package handlers

import (
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Category services.CategoryServicer
	Rider    services.RiderServicer
	Heat     services.HeatServicer
	Bracket  services.BracketServicer
	Stages   services.StageResolver
	Settings services.SettingsServicer
	Hub      *websocket.Hub
	Log      HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// New creates a new Handlers instance with all dependencies
func New(
	category services.CategoryServicer,
	rider services.RiderServicer,
	heat services.HeatServicer,
	bracket services.BracketServicer,
	stages services.StageResolver,
	settings services.SettingsServicer,
	hub *websocket.Hub,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Category: category,
		Rider:    rider,
		Heat:     heat,
		Bracket:  bracket,
		Stages:   stages,
		Settings: settings,
		Hub:      hub,
		Log:      log,
	}
}

// NoopHTTPLogger is an HTTPLogger that never logs requests
type NoopHTTPLogger struct{}

// IsHTTPLoggingEnabled always returns false
func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }
