package health

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const SERVICE_NAME = "pos"

// Check probes one dependency. A nil error means it is reachable.
type Check struct {
	Name  string
	Probe func(ctx context.Context) error
}

// Prober keeps the SERVICE_NAME status on a grpc health server in line with
// its checks. The overall "" service follows it.
type Prober struct {
	server   *health.Server
	checks   []Check
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewProber(server *health.Server, interval time.Duration, logger *slog.Logger, checks ...Check) *Prober {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		server:   server,
		checks:   checks,
		interval: interval,
		timeout:  3 * time.Second,
		logger:   logger,
	}
}

// CheckOnce runs every check and publishes the resulting status.
func (p *Prober) CheckOnce(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for _, check := range p.checks {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := check.Probe(checkCtx)
		cancel()
		if err != nil {
			p.logger.Warn("dependency check failed", "dependency", check.Name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	p.server.SetServingStatus(SERVICE_NAME, status)
	p.server.SetServingStatus("", status)
	return status
}

// Run probes on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	p.CheckOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.server.Shutdown()
			return
		case <-ticker.C:
			p.CheckOnce(ctx)
		}
	}
}
