package main

import (
	"affiliate/infra"
	"affiliate/infra/grpc"
	"affiliate/pkg/config"
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, _ := zapConfig.Build()
	zap.ReplaceGlobals(logger)
	defer logger.Sync()

	zap.L().Info("Affiliate gRPC health service starting...")

	appConfig := config.Read()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := infra.OpenStore(ctx, appConfig)
	defer store.Close()

	grpcServer, err := grpc.NewServer(appConfig)
	if err != nil {
		zap.L().Error("failed to create grpc server", zap.Error(err))
		os.Exit(1)
	}

	// An unconfigured store is reported as NOT_SERVING.
	var pinger grpc.Pinger
	if store.Configured() {
		pinger = store
	}
	go grpc.NewHealthMonitor(grpcServer.Health(), pinger).Run(ctx)

	zap.L().Info("starting gRPC server...", zap.String("port", appConfig.GRPCPort))
	go func() {
		if err := grpcServer.Start(); err != nil {
			zap.L().Error("failed to start grpc server", zap.Error(err))
			os.Exit(1)
		}
	}()

	gracefulShutdown(grpcServer, cancel)
}

func gracefulShutdown(grpcServer *grpc.Server, cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	zap.L().Info("Shutting down server...")

	cancel()
	grpcServer.GracefulStop()

	zap.L().Info("Server gracefully stopped")
}
