package common

import "time"

const (
	EnvKeyGoEnv string = "GO_ENV"

	EnvKeyRunIntegrationTests string = "RUN_INTEGRATION_TESTS"

	EnvKeyDBType string = "ENVCTL_DB_TYPE"
	EnvKeyDbPath string = "ENVCTL_DB_PATH"

	EnvKeyMQTTBroker   string = "ENVCTL_MQTT_BROKER"
	EnvKeyMQTTClientID string = "ENVCTL_MQTT_CLIENT_ID"
	EnvKeyMQTTUsername string = "ENVCTL_MQTT_USERNAME"
	EnvKeyMQTTPassword string = "ENVCTL_MQTT_PASSWORD"
	EnvKeyNamespace    string = "ENVCTL_TOPIC_NAMESPACE"

	EnvKeySiteConfigPath   string = "ENVCTL_SITE_CONFIG_PATH"
	EnvKeyDeviceConfigPath string = "ENVCTL_DEVICE_CONFIG_PATH"
	EnvKeyAlertConfigPath  string = "ENVCTL_ALERT_CONFIG_PATH"
	EnvKeyRealtimeCache    string = "ENVCTL_REALTIME_CACHE_PATH"
	EnvKeyRedisURL         string = "ENVCTL_REDIS_URL"

	EnvKeyHttpHostPort string = "ENVCTL_HTTP_HOST_PORT"
	EnvKeyGrpcHostPort string = "ENVCTL_GRPC_HOST_PORT"

	EnvKeyStartupGraceSeconds string = "ENVCTL_STARTUP_GRACE_SECONDS"
	EnvKeyHeartbeatMs         string = "ENVCTL_HEARTBEAT_MS"

	EnvKeyDefaultRate  string = "ENVCTL_DEFAULT_RATE"
	EnvKeyDefaultBurst string = "ENVCTL_DEFAULT_BURST"

	EnvKeyLogDir string = "ENVCTL_LOG_DIR"

	LoggerNameEnvctlCore   string = "envctl_core"
	LoggerNameStatusServer string = "status_server"
	LoggerNameGrpcServer   string = "grpc_server"
	LoggerFieldCategory    string = "category"

	LoggerCategoryIngest   string = "ingest"
	LoggerCategoryLiveness string = "liveness"
	LoggerCategoryFan      string = "fan"
	LoggerCategoryMist     string = "mist"
	LoggerCategoryAlert    string = "alert"
	LoggerCategoryGrace    string = "grace"
	LoggerCategoryConfig   string = "config"
	LoggerCategoryCache    string = "cache"
	LoggerCategoryBus      string = "bus"
	LoggerCategoryLoop     string = "loop"
	LoggerCategoryStorage  string = "storage"
)

const (
	DefaultNamespace         = "greenhouse"
	DefaultSiteConfigPath    = "config/site.yaml"
	DefaultDeviceConfigPath  = "config/devices.json"
	DefaultAlertConfigPath   = "config/alerts.json"
	DefaultRealtimeCachePath = "data/realtime.json"

	DefaultHeartbeat       = 500 * time.Millisecond
	DefaultStartupGrace    = 5 * time.Second
	LivenessInterval       = 30 * time.Second
	ConfigPollInterval     = 3 * time.Second
	StaleAfter             = 3 * time.Minute
	MissedPingsForOffline  = 2
	SensorThrottleInterval = 300 * time.Second
	StorageTimeout         = 2 * time.Second
	AlertHTTPTimeout       = 10 * time.Second
	DefaultAlertCooldown   = 30 * time.Minute
	DefaultStuckValveAfter = 60 * time.Minute
)
