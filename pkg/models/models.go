package models

import "time"

type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// DeviceStatus is the durable liveness row, one per controller.
type DeviceStatus struct {
	ControllerID string    `gorm:"primaryKey" json:"controller_id"`
	Status       Status    `gorm:"type:varchar(10);check:status IN ('online','offline')" json:"status"`
	LastSeenAt   time.Time `gorm:"index" json:"last_seen_at"`
}

func (DeviceStatus) TableName() string {
	return "device_status"
}

// SensorReading is appended for every sample that passes the storage throttle.
type SensorReading struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ControllerID string    `gorm:"index" json:"controller_id"`
	SensorType   string    `json:"sensor_type"`
	Metric       string    `json:"metric"`
	Value        float64   `json:"value"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
}

type AlertType string

const (
	AlertTypeTemperature AlertType = "temperature"
	AlertTypeOffline     AlertType = "offline"
	AlertTypeStuckValve  AlertType = "stuck_valve"
	AlertTypeRestart     AlertType = "restart"
)

// Alert is the history of alerts that passed the cooldown gate.
type Alert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"index" json:"key"`
	Type      AlertType `gorm:"type:varchar(20);check:type IN ('temperature','offline','stuck_valve','restart')" json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Channels  string    `json:"channels"`
	Failures  string    `json:"failures"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
}
