package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"liyu1981.xyz/envctl-daemon/pkg/alert"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
	"liyu1981.xyz/envctl-daemon/pkg/cache"
	"liyu1981.xyz/envctl-daemon/pkg/common"
	"liyu1981.xyz/envctl-daemon/pkg/config"
	"liyu1981.xyz/envctl-daemon/pkg/control"
	"liyu1981.xyz/envctl-daemon/pkg/db"
	iotGrpc "liyu1981.xyz/envctl-daemon/pkg/grpc"
	iotHttp "liyu1981.xyz/envctl-daemon/pkg/http"
	"liyu1981.xyz/envctl-daemon/pkg/iot"
	"liyu1981.xyz/envctl-daemon/pkg/metrics"
)

var (
	envFile string

	rootCmd = &cobra.Command{
		Use:   "envctld",
		Short: "Greenhouse environmental control daemon",
		Long:  "Consumes controller telemetry over MQTT, drives fans and mist valves, supervises liveness and sends alerts.",
		RunE:  runDaemon,

		SilenceUsage: true,
	}

	checkConfigCmd = &cobra.Command{
		Use:   "check-config",
		Short: "Validate the site, device and alert documents",
		RunE:  checkConfig,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load, missing file is ignored")
	rootCmd.AddCommand(checkConfigCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadEnv() {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("Error loading %s: %v", envFile, err)
	}
}

func envDuration(key string, unit time.Duration, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		log.Fatalf("Invalid %s=%q, should be a non negative integer", key, raw)
	}
	return time.Duration(v) * unit
}

func openDatabase() *db.DB {
	switch dbType := common.GetEnvOr(common.EnvKeyDBType, "file"); dbType {
	case "file":
		return db.GetInstance(db.UseSqliteDialector())
	case "memory":
		return db.GetInstance(db.UseMemorySqliteDialector())
	default:
		log.Fatal("Unknown " + common.EnvKeyDBType + ": " + dbType)
		return nil
	}
}

func loadSite(logger *zap.Logger) *config.Site {
	path := common.GetEnvOr(common.EnvKeySiteConfigPath, common.DefaultSiteConfigPath)
	site, err := config.LoadSite(path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Warn("Site file not found, realtime cache keeps no locations", zap.String("path", path))
		return &config.Site{}
	}
	if err != nil {
		log.Fatalf("Invalid site file: %v", err)
	}
	return site
}

func runDaemon(cmd *cobra.Command, args []string) error {
	loadEnv()
	defer common.SyncLogger()
	logger := common.GetLogger()

	iotCore := (&iot.IOT{Db: *openDatabase()}).WithDefaultServices()

	site := loadSite(logger)
	namespace := common.GetEnvOr(common.EnvKeyNamespace, common.DefaultNamespace)
	if site.Namespace != "" && os.Getenv(common.EnvKeyNamespace) == "" {
		namespace = site.Namespace
	}

	var defaultRate float64 = 5
	var defaultBurst int64 = 10
	var err error
	if raw := os.Getenv(common.EnvKeyDefaultRate); raw != "" {
		if defaultRate, err = strconv.ParseFloat(raw, 64); err != nil {
			log.Fatal("Invalid " + common.EnvKeyDefaultRate + ", should be a float64 value")
		}
	}
	if raw := os.Getenv(common.EnvKeyDefaultBurst); raw != "" {
		if defaultBurst, err = strconv.ParseInt(raw, 10, 64); err != nil {
			log.Fatal("Invalid " + common.EnvKeyDefaultBurst + ", should be an int value")
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	writers := []cache.Writer{
		cache.NewFileWriter(common.GetEnvOr(common.EnvKeyRealtimeCache, common.DefaultRealtimeCachePath)),
	}
	if redisURL := os.Getenv(common.EnvKeyRedisURL); redisURL != "" {
		redisWriter, err := cache.NewRedisWriter(redisURL, cache.DefaultRedisKey)
		if err != nil {
			log.Fatalf("Invalid %s: %v", common.EnvKeyRedisURL, err)
		}
		defer redisWriter.Close()
		writers = append(writers, redisWriter)
	}
	realtime := cache.NewRealtime(writers...)

	dispatcher := alert.NewDispatcher(alert.DispatcherOpts{
		Notifiers: []alert.Notifier{alert.NewTelegramNotifier(), alert.NewEmailNotifier()},
		History:   iotCore.AlertLog,
		Metrics:   m,
	})

	statusServer := iotGrpc.NewStatusServer(iot.NewRateLimiterStore(rate.Limit(defaultRate), int(defaultBurst)))

	var daemon *control.Daemon
	busClient := bus.NewClient(bus.Options{
		Broker:    common.GetEnvOr(common.EnvKeyMQTTBroker, "tcp://localhost:1883"),
		ClientID:  os.Getenv(common.EnvKeyMQTTClientID),
		Username:  os.Getenv(common.EnvKeyMQTTUsername),
		Password:  os.Getenv(common.EnvKeyMQTTPassword),
		Namespace: namespace,
		OnConnectionChange: func(connected bool, at time.Time) {
			daemon.HandleConnectionChange(connected, at)
			statusServer.SetBusConnected(connected)
		},
	})

	daemon = control.New(control.Options{
		Namespace: namespace,
		Site:      site,
		Config: config.NewLoader(
			common.GetEnvOr(common.EnvKeyDeviceConfigPath, common.DefaultDeviceConfigPath),
			common.GetEnvOr(common.EnvKeyAlertConfigPath, common.DefaultAlertConfigPath),
		),
		IOT:       iotCore,
		Publisher: busClient,
		Cache:     realtime,
		Alerter:   dispatcher,
		Metrics:   m,
		Heartbeat: envDuration(common.EnvKeyHeartbeatMs, time.Millisecond, common.DefaultHeartbeat),
		Grace:     envDuration(common.EnvKeyStartupGraceSeconds, time.Second, common.DefaultStartupGrace),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := busClient.Subscribe(daemon.HandleMessage); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := busClient.Connect(ctx); err != nil {
		// paho keeps retrying in the background
		logger.Warn("Broker not reachable yet", zap.Error(err))
	}

	if grpcHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyGrpcHostPort)); grpcHostPort != "" {
		listener, err := net.Listen("tcp", grpcHostPort)
		if err != nil {
			log.Fatalf("failed to listen: %v", err)
		}
		grpcServer := statusServer.NewServer()
		go func() {
			logger.Info("Starting gRPC server on " + grpcHostPort)
			if err := grpcServer.Serve(listener); err != nil {
				logger.Error("grpc server failed to serve", zap.Error(err))
			}
		}()
		defer grpcServer.GracefulStop()
		defer statusServer.Shutdown()
	}

	httpHostPort := strings.TrimSpace(os.Getenv(common.EnvKeyHttpHostPort))
	if httpHostPort == "" {
		// fallback to default http port
		httpHostPort = ":1080"
	}
	if common.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	rs := &iotHttp.RestfulServer{
		Server:           gin.Default(),
		Iot:              iotCore,
		Site:             site,
		Realtime:         realtime,
		Gatherer:         registry,
		RateLimiterStore: iot.NewRateLimiterStore(rate.Limit(defaultRate), int(defaultBurst)),
		BusConnected:     busClient.IsConnected,
	}
	rs.Setup()
	httpServer := &http.Server{Addr: httpHostPort, Handler: rs.Server}
	go func() {
		logger.Info("Starting HTTP server on: "+httpHostPort,
			zap.String("default_limiter",
				fmt.Sprintf("{\"default_rate\": %v, \"default_burst\": %v}", defaultRate, defaultBurst)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server failed to serve: %v", err)
		}
	}()

	runErr := daemon.Run(ctx)

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	busClient.Close()
	dispatcher.Wait()
	return runErr
}

func checkConfig(cmd *cobra.Command, args []string) error {
	loadEnv()

	out := cmd.OutOrStdout()
	var failed []string
	report := func(name, path string, err error) {
		if err != nil {
			fmt.Fprintf(out, "FAIL %-8s %s: %v\n", name, path, err)
			failed = append(failed, name)
			return
		}
		fmt.Fprintf(out, "ok   %-8s %s\n", name, path)
	}

	sitePath := common.GetEnvOr(common.EnvKeySiteConfigPath, common.DefaultSiteConfigPath)
	_, err := config.LoadSite(sitePath)
	report("site", sitePath, err)

	devicePath := common.GetEnvOr(common.EnvKeyDeviceConfigPath, common.DefaultDeviceConfigPath)
	_, err = config.LoadDeviceConfig(devicePath)
	report("devices", devicePath, err)

	alertPath := common.GetEnvOr(common.EnvKeyAlertConfigPath, common.DefaultAlertConfigPath)
	_, err = config.LoadAlertConfig(alertPath)
	report("alerts", alertPath, err)

	if len(failed) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(failed, ", "))
	}
	return nil
}
