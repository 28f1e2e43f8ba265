package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abrezinsky/gaterace/internal/config"
	"github.com/abrezinsky/gaterace/internal/handlers"
	"github.com/abrezinsky/gaterace/internal/logger"
	"github.com/abrezinsky/gaterace/internal/repository"
	"github.com/abrezinsky/gaterace/internal/services"
	"github.com/abrezinsky/gaterace/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

// App holds all application dependencies
type App struct {
	log      logger.Logger
	cfg      *config.Config
	repo     *repository.Repository
	hub      *websocket.Hub
	handlers *handlers.Handlers
}

// New opens the database and wires services, the live hub and handlers
func New(log logger.Logger, cfg *config.Config) (*App, error) {
	repo, err := repository.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Initialize services
	settingsService := services.NewSettingsService(log, repo)
	categoryService := services.NewCategoryService(log, repo)
	riderService := services.NewRiderService(log, repo)
	stageService := services.NewStageService(log, repo)
	heatService := services.NewHeatService(log, repo, settingsService, services.HeatConfig{
		BatchSize:   cfg.BatchSize,
		DNSPoint:    cfg.DNSPoint,
		DQThreshold: cfg.DQPenaltyThreshold,
	})
	bracketService := services.NewBracketService(log, repo, stageService, services.BracketConfig{
		HeatMaxSize: cfg.HeatMaxSize,
		DNSPoint:    cfg.DNSPoint,
		DQThreshold: cfg.DQPenaltyThreshold,
	})

	hub := websocket.New(log)
	heatService.SetBroadcaster(hub)
	bracketService.SetBroadcaster(hub)

	h := handlers.New(
		categoryService,
		riderService,
		heatService,
		bracketService,
		stageService,
		settingsService,
		hub,
		log,
	)

	return &App{
		log:      log,
		cfg:      cfg,
		repo:     repo,
		hub:      hub,
		handlers: h,
	}, nil
}

// Router returns the configured HTTP router
func (a *App) Router() chi.Router {
	return a.handlers.Router()
}

// Hub returns the live results hub
func (a *App) Hub() *websocket.Hub {
	return a.hub
}

// Close releases the database
func (a *App) Close() error {
	return a.repo.Close()
}

// Run serves HTTP on addr until ctx is cancelled, then shuts down gracefully
func (a *App) Run(ctx context.Context, addr string) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	baseURL := a.cfg.BaseURL
	if baseURL != "" {
		if err := a.repo.SetSetting(ctx, "base_url", baseURL); err != nil {
			a.log.Warn("Failed to store configured base_url", "error", err)
		}
	} else {
		baseURL = fmt.Sprintf("http://%s%s", getPreferredIP(realNetworkProvider{}), addr)
		a.setDefaultBaseURL(ctx, baseURL)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.Info("Server starting", "url", baseURL)
		serverErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.log.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// setDefaultBaseURL stores baseURL when no base URL is configured or the
// current one points at localhost, which scanners on the LAN cannot reach
func (a *App) setDefaultBaseURL(ctx context.Context, baseURL string) {
	existing, _ := a.repo.GetSetting(ctx, "base_url")
	if existing != "" && !strings.Contains(existing, "localhost") {
		return
	}
	if err := a.repo.SetSetting(ctx, "base_url", baseURL); err != nil {
		a.log.Warn("Failed to set default base_url", "error", err)
		return
	}
	a.log.Info("Default base URL set", "url", baseURL)
}
