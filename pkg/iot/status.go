package iot

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm/clause"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

// timestamps are stored in UTC so the textual sqlite comparison orders them correctly
func (i *IOT) markOnline(ctx context.Context, controllerID string, seenAt time.Time) error {
	status := models.DeviceStatus{
		ControllerID: controllerID,
		Status:       models.StatusOnline,
		LastSeenAt:   seenAt.UTC(),
	}

	err := i.Db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "controller_id"}},
		UpdateAll: true,
	}).Create(&status).Error

	if err == nil {
		common.GetCoreLogger(common.LoggerCategoryStorage).
			Debug("Upserted device status", zap.Reflect("status", status))
	}

	return err
}

// markOffline keeps last_seen_at, a row that never existed is created offline.
func (i *IOT) markOffline(ctx context.Context, controllerID string) error {
	status := models.DeviceStatus{
		ControllerID: controllerID,
		Status:       models.StatusOffline,
	}

	return i.Db.Conn.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "controller_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status"}),
	}).Create(&status).Error
}

func (i *IOT) getStaleControllers(ctx context.Context, cutoff time.Time) ([]models.DeviceStatus, error) {
	var statuses []models.DeviceStatus
	err := i.Db.Conn.WithContext(ctx).
		Where("status = ? AND last_seen_at < ?", models.StatusOnline, cutoff.UTC()).
		Order("controller_id").
		Find(&statuses).Error
	return statuses, err
}

func (i *IOT) getFreshControllers(ctx context.Context, cutoff time.Time) ([]models.DeviceStatus, error) {
	var statuses []models.DeviceStatus
	err := i.Db.Conn.WithContext(ctx).
		Where("status = ? AND last_seen_at >= ?", models.StatusOnline, cutoff.UTC()).
		Order("controller_id").
		Find(&statuses).Error
	return statuses, err
}

func (i *IOT) getDeviceStatus(ctx context.Context, controllerID string) (*models.DeviceStatus, error) {
	var status models.DeviceStatus
	err := i.Db.Conn.WithContext(ctx).First(&status, "controller_id = ?", controllerID).Error
	return &status, err
}

func (i *IOT) listDeviceStatuses(ctx context.Context) ([]models.DeviceStatus, error) {
	var statuses []models.DeviceStatus
	err := i.Db.Conn.WithContext(ctx).Order("controller_id").Find(&statuses).Error
	return statuses, err
}

type IStatusImpl struct {
	iot *IOT
}

func (is *IStatusImpl) MarkOnline(ctx context.Context, controllerID string, seenAt time.Time) error {
	return is.iot.markOnline(ctx, controllerID, seenAt)
}

func (is *IStatusImpl) MarkOffline(ctx context.Context, controllerID string) error {
	return is.iot.markOffline(ctx, controllerID)
}

func (is *IStatusImpl) GetStaleControllers(ctx context.Context, cutoff time.Time) ([]models.DeviceStatus, error) {
	return is.iot.getStaleControllers(ctx, cutoff)
}

func (is *IStatusImpl) GetFreshControllers(ctx context.Context, cutoff time.Time) ([]models.DeviceStatus, error) {
	return is.iot.getFreshControllers(ctx, cutoff)
}

func (is *IStatusImpl) GetDeviceStatus(ctx context.Context, controllerID string) (*models.DeviceStatus, error) {
	return is.iot.getDeviceStatus(ctx, controllerID)
}

func (is *IStatusImpl) ListDeviceStatuses(ctx context.Context) ([]models.DeviceStatus, error) {
	return is.iot.listDeviceStatuses(ctx)
}

func (i *IOT) GetIStatus() IStatus {
	return &IStatusImpl{iot: i}
}
