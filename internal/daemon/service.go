// Package daemon wraps the bridgeupd process as an installable OS service
// using kardianos/service, so operators can run it under systemd/launchd/
// Windows service control without a separate unit file.
package daemon

import (
	"context"
	"log/slog"

	"github.com/kardianos/service"
)

// Runner is the subset of the daemon's lifecycle the service wrapper drives.
type Runner interface {
	Run(ctx context.Context) error
	Shutdown()
}

type program struct {
	runner Runner
	cancel context.CancelFunc
}

func (p *program) Start(s service.Service) error {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go func() {
		if err := p.runner.Run(ctx); err != nil {
			slog.Error("daemon exited with error", "error", err)
		}
	}()
	return nil
}

func (p *program) Stop(s service.Service) error {
	p.runner.Shutdown()
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// Config describes the installable service's identity.
type Config struct {
	Name        string
	DisplayName string
	Description string
}

// New builds a kardianos/service.Service wrapping runner.
func New(cfg Config, runner Runner) (service.Service, error) {
	svcConfig := &service.Config{
		Name:        cfg.Name,
		DisplayName: cfg.DisplayName,
		Description: cfg.Description,
	}
	return service.New(&program{runner: runner}, svcConfig)
}
