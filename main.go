package main

import (
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	ginGzip "github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	"nearword/internal/config"
	"nearword/internal/logging"
	"nearword/internal/present"
	"nearword/internal/session"
	"nearword/internal/transport"
)

//go:embed templates static
var assets embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		logFatal("Failed to load config: %v", err)
	}
	logging.Setup(cfg.LogLevel, cfg.LogJSON)
	if err := cfg.Validate(); err != nil {
		logFatal("Invalid config: %v", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	logInfo("Starting Nearword in %s mode", map[bool]string{true: "production", false: "development"}[cfg.IsProduction()])

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svc, err := transport.New(cfg.ServiceURL, transport.Options{
		Timeout: cfg.RequestTimeout,
		RPS:     cfg.ServiceRPS,
		Burst:   cfg.ServiceBurst,
		Metrics: transport.NewMetrics(reg),
	})
	if err != nil {
		logFatal("Failed to create game service client: %v", err)
	}
	logInfo("Using game service at %s", cfg.ServiceURL)

	app := newApp(cfg, svc, reg)
	defer app.Controller.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	if err := app.Controller.Initialize(ctx); err != nil {
		logWarn("Initial game not started: %s", userMessage(err))
	}
	cancel()

	startServer(app.setupRouter(), cfg.Port)
}

// newApp wires the controller to the given service.
func newApp(cfg *config.Config, svc session.Transport, reg *prometheus.Registry) *App {
	app := &App{
		Config:       cfg,
		Registry:     reg,
		Notices:      newNoticeHub(),
		LimiterMap:   make(map[string]*rate.Limiter),
		IsProduction: cfg.IsProduction(),
		StartTime:    time.Now(),
	}
	app.Controller = session.New(svc, session.Options{
		Difficulty:       cfg.Difficulty,
		ClueDisplay:      cfg.ClueDisplay,
		CelebrationDelay: cfg.CelebrationDelay,
		OnCelebrate:      app.celebrate,
	})
	return app
}

func (app *App) setupRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts", RouteEvents})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(func(c *gin.Context) {
		applyCacheHeaders(c, app.IsProduction, app.Config.StaticCacheAge)
	})
	router.Use(requestIDMiddleware())

	funcMap := template.FuncMap{
		"plural":    plural,
		"notRanked": func() string { return present.NotRanked },
	}

	if app.IsProduction && dirExists("dist") {
		logInfo("Serving assets from dist/ directory")
		router.SetHTMLTemplate(template.Must(template.New("").Funcs(funcMap).ParseGlob("dist/templates/*.html")))
		router.Static("/static", "./dist/static")
	} else {
		logInfo("Serving embedded assets")
		router.SetHTMLTemplate(template.Must(template.New("").Funcs(funcMap).ParseFS(assets, "templates/*.html")))
		static, err := fs.Sub(assets, "static")
		if err != nil {
			logFatal("Failed to open embedded static assets: %v", err)
		}
		router.StaticFS("/static", http.FS(static))
	}

	limited := app.rateLimitMiddleware()
	router.GET(RouteHome, app.homeHandler)
	router.GET(RouteGameState, app.gameStateHandler)
	router.GET(RouteEvents, app.eventsHandler)
	router.POST(RouteNewGame, limited, app.newGameHandler)
	router.POST(RouteGuess, limited, app.guessHandler)
	router.POST(RouteClue, limited, app.clueHandler)
	router.POST(RouteGiveUp, limited, app.giveUpHandler)
	router.POST(RouteRefresh, limited, app.refreshHandler)
	router.GET(RouteHealthz, app.healthzHandler)
	router.GET(RouteMetrics, gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{})))

	return router
}

func startServer(router *gin.Engine, port int) {
	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		logInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	logInfo("Server starting on http://localhost:%d", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	logInfo("Server shutdown complete")
}

// applyCacheHeaders lets browsers cache static assets in production and nothing else.
func applyCacheHeaders(c *gin.Context, production bool, staticAge time.Duration) {
	if production && strings.HasPrefix(c.Request.URL.Path, "/static/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(staticAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}
