package health

import (
	"context"
	"sync"

	"github.com/sherrrrryzeng/dictation-trainer/internal/monitor"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
)

// HealthChecker implements the gRPC health checking protocol on top of the
// transcription load monitor: a service that is drowning in transcription
// jobs stops reporting SERVING so probes can shed traffic before uploads
// start failing with busy errors.
type HealthChecker struct {
	grpc_health_v1.UnimplementedHealthServer
	mu          sync.RWMutex
	loadMonitor monitor.LoadMonitor
	statusMap   map[string]grpc_health_v1.HealthCheckResponse_ServingStatus
}

func NewHealthChecker(loadMonitor monitor.LoadMonitor) *HealthChecker {
	return &HealthChecker{
		loadMonitor: loadMonitor,
		statusMap:   make(map[string]grpc_health_v1.HealthCheckResponse_ServingStatus),
	}
}

func (h *HealthChecker) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	st, err := h.servingStatus(req.GetService())
	if err != nil {
		return nil, err
	}
	return &grpc_health_v1.HealthCheckResponse{Status: st}, nil
}

func (h *HealthChecker) Watch(req *grpc_health_v1.HealthCheckRequest, stream grpc_health_v1.Health_WatchServer) error {
	st, err := h.servingStatus(req.GetService())
	if err != nil {
		return err
	}
	if err := stream.Send(&grpc_health_v1.HealthCheckResponse{Status: st}); err != nil {
		return err
	}

	// Status-change pushes are not implemented; hold the stream open until
	// the watcher goes away.
	<-stream.Context().Done()
	return stream.Context().Err()
}

// SetServingStatus sets the serving status for a named service. Load still
// overrides: an overloaded service never reports SERVING.
func (h *HealthChecker) SetServingStatus(service string, status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statusMap[service] = status
}

func (h *HealthChecker) servingStatus(service string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	st := grpc_health_v1.HealthCheckResponse_SERVING
	if service != "" {
		named, ok := h.statusMap[service]
		if !ok {
			return 0, status.Error(codes.NotFound, "service not found")
		}
		st = named
	}

	if st == grpc_health_v1.HealthCheckResponse_SERVING && !h.loadMonitor.IsHealthy() {
		st = grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return st, nil
}

func (h *HealthChecker) GetLoadMetrics() monitor.LoadMetrics {
	return h.loadMonitor.GetMetrics()
}
