package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	server "pixelplaza/server"
	"pixelplaza/server/internal/config"
	"pixelplaza/server/internal/identity"
	servernet "pixelplaza/server/internal/net"
	"pixelplaza/server/internal/store"
	"pixelplaza/server/logging"
	loggingSinks "pixelplaza/server/logging/sinks"
)

// Run builds the full process: configuration, logging router, store
// adapters, hub, janitor, and the HTTP server, then blocks until the
// context is cancelled or a termination signal arrives.
func Run(ctx context.Context) error {
	logger := log.Default()

	cfgPath := os.Getenv("PLAZA_CONFIG")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logConfig := logging.DefaultConfig()
	if len(cfg.Logging.Sinks) > 0 {
		logConfig.EnabledSinks = cfg.Logging.Sinks
	}
	sinks := make([]logging.NamedSink, 0, 2)
	if logConfig.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{
			Name: "console",
			Sink: loggingSinks.NewConsoleSink(os.Stdout, logConfig.Console),
		})
	}
	if logConfig.HasSink("json") && cfg.Logging.JSONPath != "" {
		file, err := os.OpenFile(cfg.Logging.JSONPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open json log: %w", err)
		}
		defer file.Close()
		sinks = append(sinks, logging.NamedSink{
			Name: "json",
			Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval),
		})
	}

	router, err := logging.NewRouter(logging.SystemClock{}, logConfig, sinks)
	if err != nil {
		return fmt.Errorf("construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.Config{
		Publisher: router,
		Logger:    logger,
	}

	if cfg.JWTSecret != "" {
		hubCfg.Verifier = identity.NewJWTVerifier(cfg.JWTSecret)
	}

	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pg.Close()
		hubCfg.Identity = pg
		hubCfg.Followers = pg
	} else {
		hubCfg.Identity = identity.NewStaticLookup()
		logger.Printf("no postgres dsn configured, identities resolve anonymous")
	}

	if cfg.RedisAddr != "" {
		chat, err := store.NewRedisChatHistory(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer chat.Close()
		hubCfg.Chat = chat
	}

	hub := server.NewHub(hubCfg)

	stop := make(chan struct{})
	go hub.RunJanitor(stop)
	defer close(stop)

	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		Logger:    logger,
		Publisher: router,
	})

	srv := &nethttp.Server{Addr: cfg.Addr, Handler: handler}
	logger.Printf("server listening on %s", srv.Addr)

	signalCtx, stopSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
