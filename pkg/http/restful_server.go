package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
	"liyu1981.xyz/envctl-daemon/pkg/cache"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
)

// RestfulServer is the read-only status surface of the daemon.
type RestfulServer struct {
	Server           *gin.Engine
	Iot              *iot.IOT
	Site             *config.Site
	Realtime         *cache.Realtime
	Gatherer         prometheus.Gatherer
	RateLimiterStore *iot.RateLimiterStore
	// BusConnected reports broker connectivity for /healthz, nil skips the check.
	BusConnected func() bool
}

func (rs *RestfulServer) GetLimiter(controllerID string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(controllerID)
	}
}

func (rs *RestfulServer) CheckDeviceLimiter(controllerID string) bool {
	limiter := rs.GetLimiter(controllerID)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/realtime", rs.GetRealtime)
	rs.Server.GET("/alerts", rs.GetAlerts)
	rs.Server.GET("/metrics", rs.Metrics())

	rs.Server.GET("/devices", rs.ListDevices)
	devices := rs.Server.Group("/devices/:controller_id")
	{
		devices.GET("", rs.GetDevice)
		devices.GET("/readings", rs.GetReadings)
	}
}
