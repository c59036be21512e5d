// Command glosa-predictor serves traffic signal phase predictions and speed
// advisories over HTTP, and optionally follows one junction live, driving
// a GPIO signal head and publishing phase changes to MQTT.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/sweeney/glosa-predictor/internal/config"
	"github.com/sweeney/glosa-predictor/internal/lamp"
	"github.com/sweeney/glosa-predictor/internal/mqtt"
	"github.com/sweeney/glosa-predictor/internal/phase"
	"github.com/sweeney/glosa-predictor/internal/status"
	"github.com/sweeney/glosa-predictor/internal/web"
)

var log = logrus.WithField("module", "main")

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	logrus.SetLevel(config.LogLevels[cfg.LogLevel])
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if opts.printPhase {
		if err := printPhase(os.Stdout, cfg.Junction, time.Now()); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := run(cfg); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

// options holds command-line settings. Only flags set explicitly on the
// command line override the loaded configuration.
type options struct {
	fs         *pflag.FlagSet
	configPath string
	printPhase bool
	values     config.Config
}

func parseFlags(args []string) (*options, error) {
	def := config.Default()
	o := &options{
		fs:     pflag.NewFlagSet("glosa-predictor", pflag.ContinueOnError),
		values: def,
	}
	fs := o.fs
	v := &o.values

	fs.StringVarP(&o.configPath, "config", "c", "", "YAML config file")
	fs.BoolVar(&o.printPhase, "print-phase", false, "Print the current phase of --junction and exit")
	fs.StringVar(&v.HTTPAddr, "http", def.HTTPAddr, "HTTP listen address (empty to disable)")
	fs.StringVar(&v.LogLevel, "log.level", def.LogLevel, "Log level (trace, debug, info, warn, error, fatal)")
	fs.StringVar(&v.Junction, "junction", def.Junction, "Junction to follow live (empty to disable)")
	fs.DurationVar(&v.Tick, "tick", def.Tick, "Phase evaluation interval")
	fs.DurationVar(&v.Heartbeat, "heartbeat", def.Heartbeat, "Heartbeat interval (0 to disable)")
	fs.StringVar(&v.MQTT.Broker, "mqtt.broker", def.MQTT.Broker, "MQTT broker address (empty to disable)")
	fs.StringVar(&v.MQTT.ClientID, "mqtt.client-id", def.MQTT.ClientID, "MQTT client ID")
	fs.StringVar(&v.MQTT.Username, "mqtt.username", def.MQTT.Username, "MQTT username")
	fs.StringVar(&v.MQTT.Password, "mqtt.password", def.MQTT.Password, "MQTT password (prefer "+config.EnvMQTTPassword+")")
	fs.StringVar(&v.MQTT.TopicPrefix, "mqtt.topic-prefix", def.MQTT.TopicPrefix, "MQTT topic prefix")
	fs.IntVar(&v.MQTT.BufferSize, "mqtt.buffer", def.MQTT.BufferSize, "Messages kept while the broker is unreachable")
	fs.BoolVar(&v.Lamp.Enabled, "lamp", def.Lamp.Enabled, "Drive a GPIO signal head for --junction")
	fs.StringVar(&v.Lamp.Chip, "lamp.chip", def.Lamp.Chip, "GPIO chip for the signal head")
	fs.IntVar(&v.Lamp.Red, "lamp.red", def.Lamp.Red, "BCM pin for the red lamp")
	fs.IntVar(&v.Lamp.Amber, "lamp.amber", def.Lamp.Amber, "BCM pin for the amber lamp")
	fs.IntVar(&v.Lamp.Green, "lamp.green", def.Lamp.Green, "BCM pin for the green lamp")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

// apply copies every explicitly set flag into cfg.
func (o *options) apply(cfg *config.Config) {
	v := o.values
	set := map[string]func(){
		"http":              func() { cfg.HTTPAddr = v.HTTPAddr },
		"log.level":         func() { cfg.LogLevel = v.LogLevel },
		"junction":          func() { cfg.Junction = v.Junction },
		"tick":              func() { cfg.Tick = v.Tick },
		"heartbeat":         func() { cfg.Heartbeat = v.Heartbeat },
		"mqtt.broker":       func() { cfg.MQTT.Broker = v.MQTT.Broker },
		"mqtt.client-id":    func() { cfg.MQTT.ClientID = v.MQTT.ClientID },
		"mqtt.username":     func() { cfg.MQTT.Username = v.MQTT.Username },
		"mqtt.password":     func() { cfg.MQTT.Password = v.MQTT.Password },
		"mqtt.topic-prefix": func() { cfg.MQTT.TopicPrefix = v.MQTT.TopicPrefix },
		"mqtt.buffer":       func() { cfg.MQTT.BufferSize = v.MQTT.BufferSize },
		"lamp":              func() { cfg.Lamp.Enabled = v.Lamp.Enabled },
		"lamp.chip":         func() { cfg.Lamp.Chip = v.Lamp.Chip },
		"lamp.red":          func() { cfg.Lamp.Red = v.Lamp.Red },
		"lamp.amber":        func() { cfg.Lamp.Amber = v.Lamp.Amber },
		"lamp.green":        func() { cfg.Lamp.Green = v.Lamp.Green },
	}
	o.fs.Visit(func(f *pflag.Flag) {
		if fn, ok := set[f.Name]; ok {
			fn()
		}
	})
}

// printPhase writes the phase of junction at the given instant.
func printPhase(w io.Writer, junction string, at time.Time) error {
	if junction == "" {
		return errors.New("--print-phase requires --junction")
	}
	p := phase.PredictAt(junction, at)
	_, err := fmt.Fprintf(w, "%s: %s, %.1fs to change\n", p.JunctionID, p.Status, p.SecondsToChange)
	return err
}

func run(cfg config.Config) error {
	// Initialize lamp driver
	var driver lamp.Driver
	if cfg.Lamp.Enabled {
		d, err := lamp.NewRealDriver(cfg.Lamp.Chip, lamp.Pins{Red: cfg.Lamp.Red, Amber: cfg.Lamp.Amber, Green: cfg.Lamp.Green})
		if err != nil {
			return fmt.Errorf("init lamp: %w", err)
		}
		defer d.Close()
		driver = d
	}

	// Initialize MQTT
	var publisher mqtt.Publisher = noopPublisher{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.MQTT.Broker != "" {
		p, err := mqtt.NewRealPublisher(mqtt.Options{
			Broker:     cfg.MQTT.Broker,
			ClientID:   cfg.MQTT.ClientID,
			Username:   cfg.MQTT.Username,
			Password:   cfg.MQTT.Password,
			Topics:     mqtt.Topics{Prefix: cfg.MQTT.TopicPrefix},
			BufferSize: cfg.MQTT.BufferSize,
		})
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher = p
		mqttStatus = p
	}

	// Initialize status tracker (before STARTUP so snapshot is available)
	tracker := status.NewTracker(time.Now(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startup := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      mqtt.EventStartup,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, mqtt.EventStartup, ""),
	}
	if err := publisher.PublishSystem(startup); err != nil {
		log.Warnf("failed to publish startup event: %v", err)
	}

	// Start HTTP server
	if cfg.HTTPAddr != "" {
		srv := web.New(cfg.HTTPAddr, tracker, publisher)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
		log.Infof("http server listening on %s", cfg.HTTPAddr)
	}

	log.WithFields(logrus.Fields{
		"junction":  cfg.Junction,
		"tick":      cfg.Tick,
		"heartbeat": cfg.Heartbeat,
		"broker":    cfg.MQTT.Broker,
		"lamp":      cfg.Lamp.Enabled,
		"provider":  tracker.Snapshot().Config.Provider(),
	}).Info("started")

	ticker := time.NewTicker(cfg.Tick)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(loopDeps{
		junction:   cfg.Junction,
		driver:     driver,
		publisher:  publisher,
		mqttStatus: mqttStatus,
		tracker:    tracker,
	}, cfg.Heartbeat, time.Now, ticker.C, sigCh)
}

func statusConfig(cfg config.Config) status.Config {
	return status.Config{
		HTTPAddr:      cfg.HTTPAddr,
		Broker:        cfg.MQTT.Broker,
		TopicPrefix:   cfg.MQTT.TopicPrefix,
		TickMs:        cfg.Tick.Milliseconds(),
		HeartbeatMs:   cfg.Heartbeat.Milliseconds(),
		Junction:      cfg.Junction,
		Lamp:          cfg.Lamp.Enabled,
		CloudEndpoint: cfg.Cloud.Endpoint,
		CloudRegion:   cfg.Cloud.Region,
	}
}

// loopDeps are the collaborators of runLoop. Only publisher is required.
type loopDeps struct {
	junction   string
	driver     lamp.Driver
	publisher  mqtt.Publisher
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
}

func runLoop(d loopDeps, heartbeat time.Duration, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	monitor := phase.NewMonitor(d.junction, now())
	lit := false

	for {
		select {
		case s := <-sig:
			reason := signalName(s)
			log.Infof("received %v, shutting down", s)
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     mqtt.EventShutdown,
				Reason:    reason,
				Retained:  true,
			}
			if d.tracker != nil {
				d.refreshConnection()
				event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), mqtt.EventShutdown, reason)
			}
			if err := d.publisher.PublishSystem(event); err != nil {
				log.Warnf("failed to publish shutdown event: %v", err)
			}
			return nil

		case <-tick:
			t := now()

			if d.junction != "" {
				if tr := monitor.Process(t); tr != nil {
					log.WithFields(logrus.Fields{
						"junction": tr.JunctionID,
						"from":     tr.From,
						"to":       tr.To,
					}).Infof("phase change, next in %.1fs", tr.SecondsToChange)
					d.show(tr.To)
					if err := d.publisher.PublishTransition(*tr); err != nil {
						log.Warnf("publish transition: %v", err)
					}
				} else if !lit {
					d.show(monitor.CurrentPrediction().Status)
				}
				lit = true

				if d.tracker != nil {
					d.tracker.UpdateSignal(monitor.CurrentPrediction(), monitor.Counts())
				}
			}

			if hb := monitor.CheckHeartbeat(t, heartbeat); hb != nil {
				log.Debugf("heartbeat: uptime=%v green=%d red=%d amber=%d",
					hb.Uptime, hb.Counts.Green, hb.Counts.Red, hb.Counts.Amber)
				event := mqtt.SystemEvent{
					Timestamp: hb.Timestamp,
					Event:     mqtt.EventHeartbeat,
				}
				if d.tracker != nil {
					d.refreshConnection()
					if net := readNetworkInfo(); net != nil {
						d.tracker.SetNetwork(net)
					}
					event.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), mqtt.EventHeartbeat, "")
				}
				if err := d.publisher.PublishSystem(event); err != nil {
					log.Warnf("heartbeat publish error: %v", err)
				}
			}

			if d.tracker != nil {
				d.refreshConnection()
			}
		}
	}
}

func (d loopDeps) show(s phase.Status) {
	if d.driver == nil {
		return
	}
	if err := d.driver.Show(s); err != nil {
		log.Warnf("lamp: %v", err)
	}
}

func (d loopDeps) refreshConnection() {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// noopPublisher stands in when MQTT is disabled.
type noopPublisher struct{}

func (noopPublisher) PublishPrediction(mqtt.PredictionEvent) error { return nil }
func (noopPublisher) PublishTransition(phase.Transition) error { return nil }
func (noopPublisher) PublishTelemetry(mqtt.TelemetryEvent) error { return nil }
func (noopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (noopPublisher) Close() error { return nil }

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}
