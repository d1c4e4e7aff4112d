// Command wsconn-probe maintains a long-lived wsconn session against a
// configured endpoint, sending a JSON probe message on an interval and
// logging every event the session delivers. It exists to exercise the
// wsconn package end to end against a real peer, and doubles as a minimal
// example of embedding a Session in a reconnecting daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kardianos/service"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (default: "+defaultConfigPath+")")
		doInstall   = flag.Bool("install", false, "install as an OS service")
		doUninstall = flag.Bool("uninstall", false, "uninstall the OS service")
		doRun       = flag.Bool("run", false, "run in the foreground (non-service mode)")
	)
	flag.Parse()

	initLogger("info")

	cfg, err := loadConfig(*configPath)
	if err != nil && !*doInstall && !*doUninstall {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg != nil {
		initLogger(cfg.LogLevel)
	}

	svcConfig := &service.Config{
		Name:        serviceName,
		DisplayName: serviceDisplayName,
		Description: serviceDescription,
	}

	p := &probeService{cfg: cfg}
	svc, err := service.New(p, svcConfig)
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	switch {
	case *doInstall:
		if err := svc.Install(); err != nil {
			slog.Error("failed to install service", "error", err)
			os.Exit(1)
		}
		fmt.Println("Service installed successfully:", serviceName)

	case *doUninstall:
		if err := svc.Stop(); err != nil {
			slog.Warn("failed to stop service (may not be running)", "error", err)
		}
		if err := svc.Uninstall(); err != nil {
			slog.Error("failed to uninstall service", "error", err)
			os.Exit(1)
		}
		fmt.Println("Service uninstalled successfully:", serviceName)

	case *doRun, service.Interactive():
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		slog.Info("starting probe in foreground mode", "url", cfg.URL)
		if err := runProbeLoop(ctx, cfg); err != nil && ctx.Err() == nil {
			slog.Error("probe exited with error", "error", err)
			os.Exit(1)
		}

	default:
		if err := svc.Run(); err != nil {
			slog.Error("service run failed", "error", err)
			os.Exit(1)
		}
	}
}

// initLogger configures the global slog logger at the given level.
func initLogger(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
