package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kardianos/service"
)

// program adapts [runDaemon] to the [service.Interface] the teacher's
// service.go wires into kardianos/service: Start returns immediately and
// the real work happens on its own goroutine, Stop just cancels it.
type program struct {
	opts   options
	logger *slog.Logger
	cancel func()
}

// type check
var _ service.Interface = (*program)(nil)

// Start implements the [service.Interface] interface for *program.
func (p *program) Start(_ service.Service) (err error) {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	go func() {
		if runErr := runDaemon(ctx, p.opts, p.logger); runErr != nil {
			p.logger.Error("daemon exited", "err", runErr)
			os.Exit(1)
		}
	}()

	return nil
}

// Stop implements the [service.Interface] interface for *program.
func (p *program) Stop(_ service.Service) (err error) {
	if p.cancel != nil {
		p.cancel()
	}

	return nil
}

// handleServiceControlAction installs, removes, or controls the rpld
// system service, following the teacher's service.go control flow
// (install/uninstall/start/stop/restart/status/run).
func handleServiceControlAction(action string, opts options, logger *slog.Logger) {
	pwd, err := os.Getwd()
	if err != nil {
		logger.Error("getting working directory", "err", err)
		os.Exit(1)
	}

	svcConfig := &service.Config{
		Name:             "rpld",
		DisplayName:      "RPL control-plane daemon",
		Description:      "IPv6 RPL control-plane daemon",
		WorkingDirectory: pwd,
		Arguments:        []string{"-s", "run", "-c", opts.confPath},
	}

	prg := &program{opts: opts, logger: logger}
	svc, err := service.New(prg, svcConfig)
	if err != nil {
		logger.Error("creating service", "err", err)
		os.Exit(1)
	}

	switch action {
	case "status":
		status, statusErr := svc.Status()
		if statusErr != nil {
			logger.Error("getting service status", "err", statusErr)
			os.Exit(1)
		}

		fmt.Println(serviceStatusString(status))
	case "run":
		if err = svc.Run(); err != nil {
			logger.Error("running service", "err", err)
			os.Exit(1)
		}
	default:
		if action == "uninstall" {
			_ = svc.Stop()
		}

		if err = service.Control(svc, action); err != nil {
			logger.Error("performing service action", "action", action, "err", err)
			os.Exit(1)
		}

		if action == "install" {
			if err = service.Control(svc, "start"); err != nil {
				logger.Error("starting service after install", "err", err)
				os.Exit(1)
			}
		}
	}
}

func serviceStatusString(status service.Status) (s string) {
	switch status {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
