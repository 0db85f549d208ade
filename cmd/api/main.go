package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"bazaar.dev/internal/audit"
	"bazaar.dev/internal/auth"
	"bazaar.dev/internal/catalog"
	"bazaar.dev/internal/config"
	"bazaar.dev/internal/httpapi"
	"bazaar.dev/internal/obs"
	"bazaar.dev/internal/ratelimit"
	"bazaar.dev/internal/store/pg"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	obs.Init()
	obs.InitBuildInfo(cfg.Version, cfg.Commit, cfg.Environment)
	if cfg.SecretWarning != "" {
		obs.Warn(cfg.SecretWarning, map[string]any{"env": cfg.Environment})
	}

	codec, err := auth.NewTokenCodec(cfg.JWTSecret,
		auth.WithIssuer(cfg.JWTIssuer),
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}

	var (
		users      auth.UserStore
		shops      catalog.Store
		probe      httpapi.ReadyProbe
		dispatcher *audit.Dispatcher
		store      *pg.Store
	)
	if cfg.DatabaseDSN != "" {
		store, err = pg.Open(cfg.DatabaseDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		users, shops, probe = store, store, httpapi.ReadyProbe{DB: store}
		dispatcher = audit.NewDispatcher(store, cfg.AuditQueueSize)
	} else {
		obs.Warn("BAZAAR_PG_DSN unset; using in-memory stores", nil)
		users, shops = auth.NewMemoryUsers(), catalog.NewMemory()
	}

	var trailOpts []audit.Option
	if dispatcher != nil {
		trailOpts = append(trailOpts, audit.WithDispatcher(dispatcher))
	}
	recorder := audit.NewTrail(trailOpts...)
	revoked := auth.NewMemoryRevocations()

	svc, err := auth.NewService(users, codec, auth.WithRevocations(revoked), auth.WithRecorder(recorder))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	gate := ratelimit.NewGate(ratelimit.Rules{
		Auth:    cfg.RateLimit.AuthPerWindow,
		Upload:  cfg.RateLimit.UploadPerWindow,
		Create:  cfg.RateLimit.CreatePerWindow,
		Default: cfg.RateLimit.DefaultPerWindow,
		Admin:   cfg.RateLimit.AdminPerWindow,
	}, cfg.RateLimit.Window)

	api := httpapi.New(httpapi.Deps{
		Version:       cfg.Version,
		Service:       svc,
		Authenticator: auth.NewAuthenticator(codec, revoked, users, recorder),
		Policy:        auth.NewPolicy(shops, recorder),
		Catalog:       shops,
		Limiter:       gate,
		Recorder:      recorder,
		Ready:         probe,
		CORSOrigins:   cfg.CORSOrigins,
		MaxBodyBytes:  cfg.MaxBodyBytes,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go gate.Run(ctx, cfg.RateLimit.SweepInterval)

	var grpcSrv *grpc.Server
	if cfg.GRPCEnabled {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		grpcSrv = grpc.NewServer()
		health := httpapi.NewHealthServer(probe)
		health.Register(grpcSrv)
		go health.Run(ctx, 10*time.Second)
		go func() {
			obs.Info("grpc health listening", map[string]any{"addr": cfg.GRPCAddr})
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		obs.Info("starting bazaar-api", map[string]any{"version": cfg.Version, "addr": srv.Addr, "env": cfg.Environment})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	obs.Info("shutting down", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if dispatcher != nil {
		if err := dispatcher.Close(shutdownCtx); err != nil {
			obs.Warn("audit drain incomplete", map[string]any{"error": err.Error()})
		}
	}
	if store != nil {
		_ = store.Close()
	}
	obs.Info("stopped", nil)
}
