package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
	_ "liyu1981.xyz/envctl-daemon/pkg/testing"
)

const bufSize = 1024 * 1024

func startTestServer(t *testing.T, limiterStore *iot.RateLimiterStore) (*StatusServer, healthpb.HealthClient) {
	listener := bufconn.Listen(bufSize)

	statusServer := NewStatusServer(limiterStore)
	server := statusServer.NewServer()

	go func() {
		_ = server.Serve(listener)
	}()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, s string) (net.Conn, error) {
			return listener.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return statusServer, healthpb.NewHealthClient(conn)
}

func TestHealthFollowsBus(t *testing.T) {
	common.SetTestLoggerNop()
	statusServer, client := startTestServer(t, nil)
	ctx := context.Background()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: DaemonService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.Status)

	statusServer.SetBusConnected(true)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "unknown.Service"})
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
}

func TestRateLimitInterceptor(t *testing.T) {
	common.SetTestLoggerNop()

	limiterStore := iot.NewRateLimiterStore(2, 2) // 2 req/sec per service
	statusServer, client := startTestServer(t, limiterStore)
	statusServer.SetBusConnected(true)

	ctx := context.Background()
	req := &healthpb.HealthCheckRequest{Service: DaemonService}

	// First 2 requests should pass
	for i := 0; i < 2; i++ {
		_, err := client.Check(ctx, req)
		require.NoError(t, err, "expected request %d to pass", i+1)
	}

	// 3rd request should fail immediately
	_, err := client.Check(ctx, req)
	require.Error(t, err, "expected third request to be rate limited")

	st, ok := status.FromError(err)
	require.True(t, ok, "expected gRPC status error")
	require.Equal(t, codes.ResourceExhausted, st.Code(), "expected ResourceExhausted code")

	// other services keep their own bucket
	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)

	// raising the limit lets the service through again
	limiterStore.SetLimiter(DaemonService, 3, 2)
	_, err = client.Check(ctx, req)
	require.NoError(t, err)
}
