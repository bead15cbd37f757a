package iot

import (
	"context"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

func (i *IOT) recordAlert(ctx context.Context, alert *models.Alert) error {
	if err := i.Db.Conn.WithContext(ctx).Create(alert).Error; err != nil {
		return err
	}

	common.GetCoreLogger(common.LoggerCategoryAlert).Info("Alert saved", zap.Reflect("alert", alert))
	return nil
}

func (i *IOT) getAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	q := i.Db.Conn.WithContext(ctx).Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&alerts).Error
	return alerts, err
}

type IAlertLogImpl struct {
	iot *IOT
}

func (ia *IAlertLogImpl) RecordAlert(ctx context.Context, alert *models.Alert) error {
	return ia.iot.recordAlert(ctx, alert)
}

func (ia *IAlertLogImpl) GetAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	return ia.iot.getAlerts(ctx, limit)
}

func (i *IOT) GetIAlertLog() IAlertLog {
	return &IAlertLogImpl{iot: i}
}
