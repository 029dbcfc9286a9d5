package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"canvas-rag-be/internal/bootstrap"
	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/server"
	"canvas-rag-be/internal/tracer"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Bootstrap Dependencies (Container)
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		log.Fatalf("[FATAL] %v", err)
	}
	defer container.Close()

	// Tracer (no-op unless OTEL_ENABLED=true), flushed before the logger syncs
	shutdownTracer := tracer.InitTracer(cfg, container.Logger)
	defer shutdownTracer(context.Background())

	// 3. Start Background Services
	if err := container.EventRelayService.Consume(ctx); err != nil {
		log.Printf("[WARN] Event relay not started: %v", err)
	}

	// 4. Initialize Server
	srv := server.New(cfg, container)

	// 5. Run Server until a signal arrives
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Run)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("[ERROR] Server stopped: %v", err)
	}
}
