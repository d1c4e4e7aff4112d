package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/kardianos/service"
)

const (
	serviceName        = "WSConnProbe"
	serviceDisplayName = "wsconn Probe"
	serviceDescription = "Maintains a long-lived wsconn session against a configured endpoint and logs round trips"
)

// probeService implements kardianos/service.Interface so the probe can also
// run as an OS service rather than only in the foreground.
type probeService struct {
	cfg    *Config
	cancel context.CancelFunc
}

func (p *probeService) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *probeService) Stop(s service.Service) error {
	slog.Info("service stop requested")
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

func (p *probeService) run() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	defer cancel()

	if err := runProbeLoop(ctx, p.cfg); err != nil && ctx.Err() == nil {
		slog.Error("probe exited with error", "error", err)
		os.Exit(1)
	}
}
