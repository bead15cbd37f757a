package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
	"liyu1981.xyz/envctl-daemon/pkg/common"
)

var ErrInvalidDocument = errors.New("config: invalid document")

func readJSON(path string, dest any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, err)
	}
	return nil
}

func LoadDeviceConfig(path string) (*DeviceConfig, error) {
	var doc DeviceConfig
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	if errs := deviceConfigSchema.Validate(&doc); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, errs)
	}

	seen := map[string]bool{}
	for _, m := range doc.MistZones {
		if seen[m.ID] {
			return nil, fmt.Errorf("%w: %s: duplicate mist zone id %q", ErrInvalidDocument, path, m.ID)
		}
		seen[m.ID] = true
	}
	return &doc, nil
}

func LoadAlertConfig(path string) (*AlertConfig, error) {
	var doc AlertConfig
	if err := readJSON(path, &doc); err != nil {
		return nil, err
	}
	if errs := alertConfigSchema.Validate(&doc); len(errs) > 0 {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, path, errs)
	}
	if doc.Temperature.Enabled && doc.Temperature.Low >= doc.Temperature.High {
		return nil, fmt.Errorf("%w: %s: temperature low %.2f must be below high %.2f",
			ErrInvalidDocument, path, doc.Temperature.Low, doc.Temperature.High)
	}
	return &doc, nil
}

// Snapshot is the configuration for one control cycle. A nil document means
// "no configuration available" and the cycles depending on it are skipped.
type Snapshot struct {
	Devices *DeviceConfig
	Alerts  *AlertConfig
}

// Loader re-reads both documents on every Load, logging failures only when they change.
type Loader struct {
	DevicePath string
	AlertPath  string

	lastDeviceErr string
	lastAlertErr  string
}

func NewLoader(devicePath, alertPath string) *Loader {
	return &Loader{DevicePath: devicePath, AlertPath: alertPath}
}

func (l *Loader) Load() Snapshot {
	logger := common.GetCoreLogger(common.LoggerCategoryConfig)

	devices, err := LoadDeviceConfig(l.DevicePath)
	l.lastDeviceErr = logTransition(logger, "device", l.DevicePath, l.lastDeviceErr, err)

	alerts, err := LoadAlertConfig(l.AlertPath)
	l.lastAlertErr = logTransition(logger, "alert", l.AlertPath, l.lastAlertErr, err)

	return Snapshot{Devices: devices, Alerts: alerts}
}

func logTransition(logger *zap.Logger, doc, path, last string, err error) string {
	current := ""
	if err != nil {
		current = err.Error()
	}
	if current == last {
		return last
	}
	if err != nil {
		logger.Warn("Configuration unavailable, skipping dependent cycles",
			zap.String("document", doc), zap.String("path", path), zap.Error(err))
	} else {
		logger.Info("Configuration loaded", zap.String("document", doc), zap.String("path", path))
	}
	return current
}
