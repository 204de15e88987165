package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darknet-duel/duel-server-go/internal/config"
	"github.com/darknet-duel/duel-server-go/internal/game"
	"github.com/darknet-duel/duel-server-go/internal/game/cards"
	"github.com/darknet-duel/duel-server-go/internal/match"
	"github.com/darknet-duel/duel-server-go/internal/server"
	"github.com/darknet-duel/duel-server-go/internal/store"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting duel server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	catalogue, err := cards.LoadFile(cfg.Catalogue.Path)
	if err != nil {
		logger.Fatal("failed to load card catalogue", zap.Error(err))
	}
	logger.Info("card catalogue loaded",
		zap.String("version", catalogue.Version),
		zap.Int("attacker_cards", len(catalogue.Attacker)),
		zap.Int("defender_cards", len(catalogue.Defender)),
	)

	engine := game.NewEngine(catalogue, cfg.Game, logger)

	var opts []match.Option
	if cfg.Replay.Enabled {
		if err := os.MkdirAll(cfg.Replay.Dir, 0o755); err != nil {
			logger.Fatal("failed to create replay directory", zap.Error(err))
		}
		opts = append(opts, match.WithRecorder(game.NewReplayRecorder(logger, cfg.Replay.Dir)))
		logger.Info("replay recording enabled", zap.String("dir", cfg.Replay.Dir))
	}

	if cfg.Database.Enabled {
		pool, err := store.NewPool(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()

		summaries := store.NewSummaryStore(pool, logger)
		if err := summaries.Migrate(ctx); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
		opts = append(opts, match.WithSummarySink(summaries))
	} else {
		logger.Warn("database disabled; match summaries will not be stored")
	}

	matches := match.NewManager(engine, logger, opts...)
	logger.Info("match manager initialized")

	hub := server.NewHub(matches, logger)
	matches.SetNotificationHandler(hub.Notify)
	go hub.Run(ctx)

	grpcServer, healthServer := server.NewGRPCServer(cfg.Server.GRPC, server.NewDuelServer(matches, logger), logger)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	httpServer := server.NewHTTPServer(cfg.Server.WebSocket, server.NewRouter(matches, hub, logger))
	go func() {
		logger.Info("starting WebSocket server", zap.String("address", cfg.Server.WebSocket.Address))
		if wsErr := httpServer.ListenAndServe(); wsErr != nil && !errors.Is(wsErr, http.ErrServerClosed) {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("duel server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.Int("max_turns", cfg.Game.MaxTurns),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("WebSocket server shutdown error", zap.Error(err))
	}

	grpcServer.GracefulStop()
	cancel()

	logger.Info("duel server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
