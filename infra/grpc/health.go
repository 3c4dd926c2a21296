package grpc

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// CatalogService is the service name health checks can ask about besides
// the overall server status "".
const CatalogService = "affiliate.Catalog"

const (
	defaultCheckInterval = 10 * time.Second
	defaultCheckTimeout  = 2 * time.Second
)

// Pinger reports whether the document store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthMonitor keeps the gRPC health status in line with store
// connectivity.
type HealthMonitor struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration
	timeout  time.Duration
}

func NewHealthMonitor(server *health.Server, pinger Pinger) *HealthMonitor {
	return &HealthMonitor{
		server:   server,
		pinger:   pinger,
		interval: defaultCheckInterval,
		timeout:  defaultCheckTimeout,
	}
}

// Check pings the store once and publishes the result.
func (m *HealthMonitor) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING

	pingCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	if m.pinger == nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	} else if err := m.pinger.Ping(pingCtx); err != nil {
		zap.L().Warn("Store ping failed", zap.Error(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	m.server.SetServingStatus("", status)
	m.server.SetServingStatus(CatalogService, status)

	return status
}

// Run checks immediately and then on every interval until ctx is done.
func (m *HealthMonitor) Run(ctx context.Context) {
	m.Check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check(ctx)
		}
	}
}
