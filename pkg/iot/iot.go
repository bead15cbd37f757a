package iot

import (
	"context"
	"time"

	"liyu1981.xyz/envctl-daemon/pkg/db"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

// IStatus is the durable side of controller liveness.
type IStatus interface {
	MarkOnline(ctx context.Context, controllerID string, seenAt time.Time) error
	MarkOffline(ctx context.Context, controllerID string) error
	GetStaleControllers(ctx context.Context, cutoff time.Time) ([]models.DeviceStatus, error)
	GetFreshControllers(ctx context.Context, cutoff time.Time) ([]models.DeviceStatus, error)
	GetDeviceStatus(ctx context.Context, controllerID string) (*models.DeviceStatus, error)
	ListDeviceStatuses(ctx context.Context) ([]models.DeviceStatus, error)
}

type IReading interface {
	InsertReading(ctx context.Context, reading *models.SensorReading) error
	GetDeviceReadings(ctx context.Context, controllerID string, limit int) ([]models.SensorReading, error)
}

type IAlertLog interface {
	RecordAlert(ctx context.Context, alert *models.Alert) error
	GetAlerts(ctx context.Context, limit int) ([]models.Alert, error)
}

type IOT struct {
	Db       db.DB
	Status   IStatus
	Reading  IReading
	AlertLog IAlertLog
}

type ServiceOpts struct {
	Status   IStatus
	Reading  IReading
	AlertLog IAlertLog
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Status != nil {
		i.Status = opts.Status
	}
	if opts.Reading != nil {
		i.Reading = opts.Reading
	}
	if opts.AlertLog != nil {
		i.AlertLog = opts.AlertLog
	}
	return i
}

// WithDefaultServices wires the gorm backed implementation of every service.
func (i *IOT) WithDefaultServices() *IOT {
	return i.WithServices(ServiceOpts{
		Status:   i.GetIStatus(),
		Reading:  i.GetIReading(),
		AlertLog: i.GetIAlertLog(),
	})
}
