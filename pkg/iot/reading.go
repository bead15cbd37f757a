package iot

import (
	"context"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/models"
)

func (i *IOT) insertReading(ctx context.Context, input *models.SensorReading) error {
	reading := models.SensorReading{
		ControllerID: input.ControllerID,
		SensorType:   input.SensorType,
		Metric:       input.Metric,
		Value:        input.Value,
		Timestamp:    input.Timestamp,
	}

	if err := i.Db.Conn.WithContext(ctx).Create(&reading).Error; err != nil {
		return err
	}

	common.GetCoreLogger(common.LoggerCategoryStorage).
		Debug("Stored sensor reading", zap.Reflect("reading", reading))
	return nil
}

func (i *IOT) getDeviceReadings(ctx context.Context, controllerID string, limit int) ([]models.SensorReading, error) {
	var readings []models.SensorReading
	q := i.Db.Conn.WithContext(ctx).
		Where("controller_id = ?", controllerID).
		Order("timestamp desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&readings).Error
	return readings, err
}

type IReadingImpl struct {
	iot *IOT
}

func (ir *IReadingImpl) InsertReading(ctx context.Context, reading *models.SensorReading) error {
	return ir.iot.insertReading(ctx, reading)
}

func (ir *IReadingImpl) GetDeviceReadings(ctx context.Context, controllerID string, limit int) ([]models.SensorReading, error) {
	return ir.iot.getDeviceReadings(ctx, controllerID, limit)
}

func (i *IOT) GetIReading() IReading {
	return &IReadingImpl{iot: i}
}
