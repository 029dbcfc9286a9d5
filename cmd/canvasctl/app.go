package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"canvas-rag-be/internal/bootstrap"
	"canvas-rag-be/internal/config"
	"canvas-rag-be/internal/service"
)

// app carries what the subcommands share: the output stream, the parsed
// global flags and a lazily opened canvas service.
type app struct {
	out       io.Writer
	vaultRoot string
	jsonOut   bool

	cfg   *config.Config
	svc   service.ICanvasService
	close func()

	// open builds the service. Tests replace it.
	open func(ctx context.Context, cfg *config.Config) (service.ICanvasService, func(), error)
}

func newApp(out io.Writer) *app {
	return &app{out: out, open: openContainer}
}

func openContainer(ctx context.Context, cfg *config.Config) (service.ICanvasService, func(), error) {
	container, err := bootstrap.NewContainer(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := container.EventRelayService.Consume(ctx); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("start event relay: %w", err)
	}
	return container.CanvasService, container.Close, nil
}

func (a *app) config() *config.Config {
	if a.cfg == nil {
		a.cfg = config.Load()
		if a.vaultRoot != "" {
			a.cfg.Vault.Root = a.vaultRoot
		}
	}
	return a.cfg
}

func (a *app) service(ctx context.Context) (service.ICanvasService, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, closeFn, err := a.open(ctx, a.config())
	if err != nil {
		return nil, err
	}
	a.svc, a.close = svc, closeFn
	return svc, nil
}

func (a *app) shutdown() {
	if a.close != nil {
		a.close()
		a.close = nil
	}
}

// emit prints v as indented JSON when --json is set and reports whether
// it did.
func (a *app) emit(v interface{}) (bool, error) {
	if !a.jsonOut {
		return false, nil
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
