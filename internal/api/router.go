package api

import (
	"errors"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/pich-app/pich-core/docs"
	"github.com/pich-app/pich-core/internal/api/handler"
	"github.com/pich-app/pich-core/internal/api/middleware"
	"github.com/pich-app/pich-core/internal/core/ports"
	"github.com/pich-app/pich-core/internal/pkg/validation"
)

// Options holds the router dependencies. Registerer and Gatherer default to the
// global Prometheus registry.
type Options struct {
	Remote    ports.Remote
	JWTSecret string
	Log       zerolog.Logger
	// Probes are pinged by the readiness endpoint, keyed by dependency name.
	Probes     map[string]ports.Pinger
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(opts Options) (*echo.Echo, error) {
	if opts.Remote == nil {
		return nil, errors.New("api: remote is required")
	}
	if opts.JWTSecret == "" {
		return nil, errors.New("api: jwt secret is required")
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(opts.Log)

	prom, err := echoprometheus.MiddlewareConfig{
		Subsystem:  "pichd",
		Registerer: opts.Registerer,
	}.ToMiddleware()
	if err != nil {
		return nil, err
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(prom)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(opts.Remote)
	profileHandler := handler.NewProfileHandler(opts.Remote)
	cardHandler := handler.NewCardHandler(opts.Remote)
	connHandler := handler.NewConnectionHandler(opts.Remote)
	qrHandler := handler.NewQRCodeHandler(opts.Remote)
	authMiddleware := middleware.Auth(opts.JWTSecret)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Protected routes ---
	e.POST("/auth/logout", authHandler.Logout, authMiddleware)

	e.GET("/profile", profileHandler.Get, authMiddleware)
	e.PATCH("/profile/:id", profileHandler.Update, authMiddleware)

	e.GET("/cards", cardHandler.List, authMiddleware)
	e.POST("/cards", cardHandler.Create, authMiddleware)
	e.PATCH("/cards/:id", cardHandler.Update, authMiddleware)
	e.DELETE("/cards/:id", cardHandler.Delete, authMiddleware)
	e.POST("/cards/:id/main", cardHandler.ToggleMain, authMiddleware)

	e.GET("/connections", connHandler.List, authMiddleware)
	e.POST("/connections", connHandler.Create, authMiddleware)
	e.POST("/connections/:id/favorite", connHandler.ToggleFavorite, authMiddleware)
	e.PUT("/connections/:id/notes", connHandler.UpdateNotes, authMiddleware)
	e.DELETE("/connections/:id", connHandler.Delete, authMiddleware)

	e.GET("/qrcode", qrHandler.Get, authMiddleware)
	e.POST("/qrcode/refresh", qrHandler.Refresh, authMiddleware)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(opts.Probes)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Ops ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: opts.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e, nil
}
