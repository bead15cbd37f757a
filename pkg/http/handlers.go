package http

import (
	"context"
	"errors"
	"net/http"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/envctl-daemon/pkg/cache"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

const defaultListLimit = 100

type ListQuery struct {
	Limit int `zog:"limit"`
}

var listQuerySchema = z.Struct(z.Shape{
	"Limit": z.Int().GTE(0).LTE(1000),
})

func parseLimit(c *gin.Context) (int, bool) {
	var q ListQuery
	if errs := listQuerySchema.Parse(zhttp.Request(c.Request), &q); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return 0, false
	}
	if q.Limit == 0 {
		q.Limit = defaultListLimit
	}
	return q.Limit, true
}

func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), common.StorageTimeout)
}

func internalError(c *gin.Context, msg string, err error) {
	common.GetLoggerWith(common.LoggerNameStatusServer).Error(msg, zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

type DeviceView struct {
	models.DeviceStatus
	Location string `json:"location,omitempty"`
}

func (rs *RestfulServer) deviceView(s models.DeviceStatus) DeviceView {
	location, _ := rs.Site.Location(s.ControllerID)
	return DeviceView{DeviceStatus: s, Location: location}
}

func (rs *RestfulServer) ListDevices(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	statuses, err := rs.Iot.Status.ListDeviceStatuses(ctx)
	if err != nil {
		internalError(c, "Failed to list device statuses", err)
		return
	}

	c.JSON(http.StatusOK, common.Mapper(statuses, rs.deviceView))
}

func (rs *RestfulServer) GetDevice(c *gin.Context) {
	controllerID := c.Param("controller_id")

	if !rs.CheckDeviceLimiter(controllerID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	status, err := rs.Iot.Status.GetDeviceStatus(ctx, controllerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown controller " + controllerID})
		return
	}
	if err != nil {
		internalError(c, "Failed to get device status", err)
		return
	}

	c.JSON(http.StatusOK, rs.deviceView(*status))
}

func (rs *RestfulServer) GetReadings(c *gin.Context) {
	controllerID := c.Param("controller_id")

	if !rs.CheckDeviceLimiter(controllerID) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	readings, err := rs.Iot.Reading.GetDeviceReadings(ctx, controllerID, limit)
	if err != nil {
		internalError(c, "Failed to get device readings", err)
		return
	}

	c.JSON(http.StatusOK, readings)
}

func (rs *RestfulServer) GetAlerts(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	alerts, err := rs.Iot.AlertLog.GetAlerts(ctx, limit)
	if err != nil {
		internalError(c, "Failed to get alerts", err)
		return
	}

	c.JSON(http.StatusOK, alerts)
}

func (rs *RestfulServer) GetRealtime(c *gin.Context) {
	if rs.Realtime == nil {
		c.JSON(http.StatusOK, cache.Snapshot{})
		return
	}
	c.JSON(http.StatusOK, rs.Realtime.Snapshot())
}

func (rs *RestfulServer) Metrics() gin.HandlerFunc {
	gatherer := rs.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	if rs.BusConnected != nil && !rs.BusConnected() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "bus": "disconnected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
