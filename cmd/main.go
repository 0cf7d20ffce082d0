package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fathima-sithara/user-service/internal/bootstrap"
	"github.com/fathima-sithara/user-service/internal/routes"
	"github.com/fathima-sithara/user-service/internal/server"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	app, cleanup, err := bootstrap.Init(configPath)
	if err != nil {
		log.Fatalf("bootstrap failed: %v", err)
	}

	fiberApp := server.New(app.Config, app.Logger)
	routes.Setup(fiberApp, app.Handler, app.AuthGuard, app.OTPLimiter)

	go func() {
		addr := fmt.Sprintf(":%d", app.Config.App.Port)
		if err := fiberApp.Listen(addr); err != nil {
			app.Sugar.Fatalf("server stopped: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	app.Sugar.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.App.ShutdownTimeout)
	defer cancel()

	if err := fiberApp.ShutdownWithContext(ctx); err != nil {
		app.Sugar.Errorf("Server shutdown error: %v", err)
	}
	cleanup(ctx)
}
