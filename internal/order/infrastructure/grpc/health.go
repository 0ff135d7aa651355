package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name clients pass to the health Check RPC.
const ServiceName = "pos.OrderLedger"

// Probe reports whether one backing dependency is reachable.
type Probe func(ctx context.Context) error

type Health struct {
	log    *slog.Logger
	srv    *health.Server
	probes map[string]Probe
}

func NewHealth(log *slog.Logger, probes map[string]Probe) *Health {
	h := &Health{log: log, srv: health.NewServer(), probes: probes}
	h.srv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// NewServer returns a gRPC server exposing the standard health service.
func (h *Health) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, h.srv)
	return s
}

// Refresh runs every probe once and publishes the combined status.
func (h *Health) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, probe := range h.probes {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := probe(pctx)
		cancel()
		if err != nil {
			h.log.Warn("health probe failed", "probe", name, "err", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.srv.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes on every tick until ctx is done, then reports shutdown.
func (h *Health) Watch(ctx context.Context, every time.Duration) {
	h.Refresh(ctx)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			h.srv.Shutdown()
			return
		case <-t.C:
			h.Refresh(ctx)
		}
	}
}
