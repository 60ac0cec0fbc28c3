package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ggsolution/autotok/internal/api"
	"github.com/ggsolution/autotok/internal/api/handler"
	mw "github.com/ggsolution/autotok/internal/api/middleware"
	"github.com/ggsolution/autotok/internal/config"
	"github.com/ggsolution/autotok/internal/downloader"
	"github.com/ggsolution/autotok/internal/repository"
	"github.com/ggsolution/autotok/internal/service"
	"github.com/ggsolution/autotok/pkg/gemini"
	"github.com/ggsolution/autotok/pkg/tiktok"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("autotok %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	logger.Info("starting autotok",
		"version", Version,
		"build_time", BuildTime,
	)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Storage.UploadDir, 0755); err != nil {
		logger.Error("failed to create upload directory", "error", err)
		os.Exit(1)
	}

	accounts, closeAccounts, err := repository.OpenAccountRepository(cfg.Accounts)
	if err != nil {
		logger.Error("failed to open account store", "backend", cfg.Accounts.Backend, "error", err)
		os.Exit(1)
	}
	defer closeAccounts()

	dl := downloader.NewHTTPDownloader(cfg.Download)
	dl.SetLogger(logger)
	store := repository.NewFilesystemVideoStore(cfg.Storage, dl, logger)

	tiktokClient := tiktok.NewClient(cfg.TikTok)
	geminiClient := gemini.NewClient(cfg.Gemini)
	if !geminiClient.Configured() {
		logger.Warn("gemini API key not found, text generation endpoints will fail")
	}
	if cfg.TikTok.ClientKey == "" || cfg.TikTok.ClientSecret == "" {
		logger.Warn("TIKTOK_CLIENT_KEY or TIKTOK_CLIENT_SECRET not set, token exchange will fail")
	}

	ingestSvc := service.NewIngestService(store, cfg.Server.PublicHost, logger)
	accountSvc := service.NewAccountService(tiktokClient, accounts, logger)
	publishSvc := service.NewPublishService(ingestSvc, accounts, tiktokClient, logger)

	if cfg.Session.Secret == "" {
		logger.Warn("SESSION_SECRET not set, pending account connections will not survive a restart")
	}
	sessionStore := handler.NewSessionStore(cfg.Session, strings.HasPrefix(cfg.TikTok.RedirectURI, "https://"))

	spa := handler.NewSPAHandler(cfg.Server.DistDir)
	if !spa.Available() {
		logger.Warn("frontend build not found, only API is running", "dist_dir", cfg.Server.DistDir)
		spa = nil
	}

	router := api.NewRouter(api.Handlers{
		Upload:  handler.NewUploadHandler(ingestSvc, store, cfg.Storage.MaxUploadSize, logger),
		TikTok:  handler.NewTikTokHandler(tiktokClient, accountSvc, ingestSvc, logger),
		OAuth:   handler.NewOAuthHandler(accountSvc, sessionStore, cfg.TikTok.RedirectURI, logger),
		Account: handler.NewAccountHandler(accountSvc, logger),
		Publish: handler.NewPublishHandler(publishSvc, cfg.Storage.MaxUploadSize, logger),
		Gemini:  handler.NewGeminiHandler(geminiClient, logger),
		Health:  handler.NewHealthHandler(accounts, store),
		SPA:     spa,
	}, api.Options{
		UploadDir:      cfg.Storage.UploadDir,
		Limiter:        mw.NewIPRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, cfg.RateLimit.Burst, 10*time.Minute),
		RateLimitRetry: cfg.RateLimit.Window,
		RequestTimeout: cfg.Server.WriteTimeout,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr, "upload_dir", cfg.Storage.UploadDir, "accounts_backend", cfg.Accounts.Backend)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}
