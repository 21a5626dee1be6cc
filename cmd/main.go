package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/planadapt-backend/internal/app"
)

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Start(); err != nil {
		a.Log.Error("Failed to start sweeps", "error", err)
		return
	}

	errCh := make(chan error, 1)
	go func() { errCh <- a.Run() }()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case s := <-sig:
		a.Log.Info("Shutting down", "signal", s.String())
	case err := <-errCh:
		if err != nil {
			a.Log.Error("HTTP server stopped", "error", err)
		}
	}
}
