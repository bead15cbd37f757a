package grpc

import (
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/proto"

	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
)

// DaemonService is the health service name reporting the control loop's bus link.
const DaemonService = "envctl.Daemon"

// StatusServer exposes the standard gRPC health protocol for the daemon.
type StatusServer struct {
	Health           *health.Server
	RateLimiterStore *iot.RateLimiterStore
}

func NewStatusServer(limiter *iot.RateLimiterStore) *StatusServer {
	s := &StatusServer{Health: health.NewServer(), RateLimiterStore: limiter}
	s.SetBusConnected(false)
	return s
}

// SetBusConnected flips both the overall and the daemon service status.
func (s *StatusServer) SetBusConnected(connected bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus("", status)
	s.Health.SetServingStatus(DaemonService, status)

	common.GetLoggerWith(common.LoggerNameGrpcServer).
		Info("Health status changed", zap.String("status", status.String()))
}

func (s *StatusServer) GetLimiter(key string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	} else {
		return s.RateLimiterStore.GetLimiter(key)
	}
}

func (s *StatusServer) CheckLimiter(key string) bool {
	limiter := s.GetLimiter(key)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

// NewServer builds a grpc.Server with health, reflection and the rate limit interceptor on health checks.
func (s *StatusServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	interceptor := s.CreateRateLimitInterceptor([]proto.Message{
		&healthpb.HealthCheckRequest{},
	})
	opts = append(opts, grpc.UnaryInterceptor(interceptor))

	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, s.Health)
	reflection.Register(server)
	return server
}

// Shutdown marks every service NOT_SERVING so watchers drain before the listener closes.
func (s *StatusServer) Shutdown() {
	s.Health.Shutdown()
}
