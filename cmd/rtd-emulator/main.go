package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chatlink/internal/emulator"
	"chatlink/internal/rtdb"
	"chatlink/pkg/env"
	"chatlink/pkg/logger"

	"go.uber.org/zap"
)

// rtd-emulator serves an empty in-memory realtime tree over the emulator
// protocol: REST reads/writes plus a WebSocket watch stream. State lives for
// the lifetime of the process.
func main() {
	_ = godotenv.Load()
	logger.InitDefault()
	defer logger.Sync()

	store := rtdb.NewMemoryStore()
	srv := emulator.New(store)

	addr := env.GetString("EMULATOR_ADDR", ":9000")
	server := &http.Server{
		Addr:    addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Info("realtime tree emulator listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("forced shutdown", zap.Error(err))
	}
}
