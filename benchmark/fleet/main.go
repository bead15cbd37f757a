package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"liyu1981.xyz/envctl-daemon/pkg/bus"
)

var maxControllers = flag.Int("controllers", 200, "number of simulated controllers")
var broker = flag.String("broker", "tcp://127.0.0.1:1883", "MQTT broker url")
var namespace = flag.String("namespace", "greenhouse", "topic namespace")
var interval = flag.Duration("interval", 5*time.Second, "telemetry interval per controller")
var duration = flag.Duration("duration", time.Minute, "how long to run")

var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var published, pongs, commands atomic.Int64

func main() {
	flag.Parse()

	controllerIDs := make([]string, *maxControllers)
	for i := 0; i < *maxControllers; i++ {
		controllerIDs[i] = fmt.Sprintf("sim_%04d", i)
	}
	fmt.Printf("generated %v controller IDs\n", *maxControllers)

	clients := make([]mqtt.Client, *maxControllers)
	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := 0; i < *maxControllers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			clients[i] = connectController(controllerIDs[i])
			fmt.Printf("\rconnected controller %v", i)
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)
	fmt.Printf(
		"\rconnected %v controllers: used time=%v seconds, throughput=%v connect/second\n",
		*maxControllers, usedTime.Seconds(), float64(*maxControllers)/usedTime.Seconds(),
	)

	stop := make(chan struct{})
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigs:
		case <-time.After(*duration):
		}
		close(stop)
	}()

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := 0; i < *maxControllers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			runTelemetry(clients[i], controllerIDs[i], stop)
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	for i, c := range clients {
		c.Publish(statusTopic(controllerIDs[i]), 1, true, "offline").Wait()
		c.Disconnect(250)
	}

	fmt.Printf(
		"\n\rpublished %v readings in %v seconds, throughput=%v msg/second, answered %v pings, received %v commands\n",
		published.Load(), usedTime.Seconds(), float64(published.Load())/usedTime.Seconds(), pongs.Load(), commands.Load(),
	)
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := math.Pow10(decimal)
	return math.Round(val*multiplier) / multiplier
}

func statusTopic(controllerID string) string {
	return *namespace + "/" + controllerID + "/status"
}

func connectController(controllerID string) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(*broker).
		SetClientID("fleet-" + uuid.NewString()[:8]).
		SetWill(statusTopic(controllerID), "offline", 1, true).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("controller %s failed to connect: %v", controllerID, token.Error())
	}

	client.Subscribe(bus.PingTopic(*namespace, controllerID), 0, func(c mqtt.Client, _ mqtt.Message) {
		c.Publish(*namespace+"/"+controllerID+"/pong", 0, false, "pong")
		pongs.Add(1)
	}).Wait()

	// echo every actuator command back as the reported state
	client.Subscribe(*namespace+"/"+controllerID+"/+/cmd", 1, func(c mqtt.Client, m mqtt.Message) {
		msg, ok := bus.ParseTopic(*namespace, m.Topic())
		if !ok || msg.Kind != bus.KindCommand {
			return
		}
		c.Publish(*namespace+"/"+controllerID+"/"+msg.DeviceID+"/state", 1, true, m.Payload())
		commands.Add(1)
	}).Wait()

	client.Publish(statusTopic(controllerID), 1, true, "online").Wait()
	return client
}

func runTelemetry(client mqtt.Client, controllerID string, stop <-chan struct{}) {
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			readings := map[[2]string]float64{
				{"sht31", "temperature"}: rndFloat64(15.0, 35.0, 2),
				{"sht31", "humidity"}:    rndFloat64(40.0, 95.0, 2),
			}
			for k, v := range readings {
				topic := bus.TelemetryTopic(*namespace, controllerID, k[0], k[1])
				client.Publish(topic, byte(bus.QoSTelemetry), false, fmt.Sprintf("%.2f", v))
				published.Add(1)
			}
			fmt.Printf("\rpublished readings for %v", controllerID)
		}
	}
}
