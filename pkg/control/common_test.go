package control

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/db"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
	_ "liyu1981.xyz/envctl-daemon/pkg/testing"
)

const testNamespace = "greenhouse"

type recordingAlerter struct {
	mu   sync.Mutex
	sent []alert.Alert
}

func (r *recordingAlerter) Send(_ time.Time, _ *config.AlertConfig, a alert.Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, a)
	return true
}

func (r *recordingAlerter) keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.sent))
	for _, a := range r.sent {
		keys = append(keys, a.Key)
	}
	return keys
}

func getMemoryIOT() *iot.IOT {
	iotObj := &iot.IOT{Db: *db.GetInstance(db.UseMemorySqliteDialector())}
	return iotObj.WithDefaultServices()
}

func loadTestDevices(t *testing.T) *config.DeviceConfig {
	devices, err := config.LoadDeviceConfig("testdata/config/devices.json")
	require.NoError(t, err)
	return devices
}

func loadTestAlerts(t *testing.T) *config.AlertConfig {
	alerts, err := config.LoadAlertConfig("testdata/config/alerts.json")
	require.NoError(t, err)
	return alerts
}

func loadTestSite(t *testing.T) *config.Site {
	site, err := config.LoadSite("testdata/config/site.yaml")
	require.NoError(t, err)
	return site
}

func findZone(t *testing.T, devices *config.DeviceConfig, id string) config.MistZoneConfig {
	for _, z := range devices.MistZones {
		if z.ID == id {
			return z
		}
	}
	t.Fatalf("zone %s not in test devices", id)
	return config.MistZoneConfig{}
}

func at(hour, min, sec int) time.Time {
	return time.Date(2026, 5, 1, hour, min, sec, 0, time.Local)
}

func ParseLogs(r io.Reader) []any {
	scanner := bufio.NewScanner(r)
	var logs []any

	for scanner.Scan() {
		var j any
		if err := json.Unmarshal(scanner.Bytes(), &j); err == nil {
			logs = append(logs, j)
		}
	}
	return logs
}
