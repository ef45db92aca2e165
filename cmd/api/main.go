package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"cityinit.org/internal/auth"
	"cityinit.org/internal/config"
	"cityinit.org/internal/estimate"
	"cityinit.org/internal/httpapi"
	"cityinit.org/internal/jobs"
	"cityinit.org/internal/library"
	"cityinit.org/internal/obs"
	"cityinit.org/internal/portal"
	"cityinit.org/internal/store"
	"cityinit.org/internal/upload"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	var (
		configPath  = flag.String("config", os.Getenv("PORTAL_CONFIG"), "path to YAML config")
		autoMigrate = flag.Bool("migrate", false, "apply pending PostgreSQL migrations before serving")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := obs.Configure(cfg.Log); err != nil {
		log.Fatalf("logger: %v", err)
	}
	logger := obs.Logger()
	defer func() { _ = logger.Sync() }()
	obs.Init()
	obs.InitBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := store.Open(ctx, cfg.Database, *autoMigrate)
	if err != nil {
		logger.Fatal("open store", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = ephemeralSecret()
		logger.Warn("auth.secret is not set; using an ephemeral secret, tokens will not survive a restart")
	}
	tokens, err := auth.NewTokens(secret, cfg.Auth.TokenTTL)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}
	catalog, err := estimate.DefaultCatalog()
	if err != nil {
		logger.Fatal("resource catalog", zap.Error(err))
	}
	lib, err := library.Default()
	if err != nil {
		logger.Fatal("template library", zap.Error(err))
	}
	svc := portal.NewService(backend,
		portal.WithCatalog(catalog),
		portal.WithLibrary(lib),
		portal.WithBudget(cfg.Budget.Min, cfg.Budget.Max),
	)
	authSvc := auth.NewService(backend, tokens, auth.OnRegister(svc.OnRegister))
	uploads, err := upload.NewStore(cfg.Upload.Dir, cfg.Upload.URLPrefix, cfg.Upload.MaxBytes)
	if err != nil {
		logger.Fatal("upload store", zap.Error(err))
	}

	api := httpapi.New(authSvc, svc, uploads,
		httpapi.WithVersion(version),
		httpapi.WithBasePath(cfg.Server.BasePath),
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins...),
		httpapi.WithMaxBody(cfg.Server.MaxBodyBytes),
		httpapi.WithRateLimit(cfg.RateLimit.Burst, cfg.RateLimit.PerSecond),
	)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	var grpcSrv *grpc.Server
	if cfg.GRPC.Addr != "" {
		lis, err := net.Listen("tcp", cfg.GRPC.Addr)
		if err != nil {
			logger.Fatal("grpc listen", zap.String("addr", cfg.GRPC.Addr), zap.Error(err))
		}
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(svc))
		go func() {
			logger.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Error("grpc serve", zap.Error(err))
			}
		}()
	}

	scheduler, err := jobs.NewManager(cfg.Jobs.GaugeInterval, backend, svc.Ready)
	if err != nil {
		logger.Fatal("scheduler", zap.Error(err))
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal("scheduler start", zap.Error(err))
	}

	logger.Info("starting portal api",
		zap.String("version", version),
		zap.String("addr", srv.Addr),
		zap.String("driver", cfg.Database.Driver),
		zap.String("base_path", cfg.Server.BasePath),
	)

	// graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("listen", zap.Error(err))
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := scheduler.Stop(); err != nil {
		logger.Warn("scheduler stop", zap.Error(err))
	}
	logger.Info("stopped")
}

func ephemeralSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
	return hex.EncodeToString(buf)
}
