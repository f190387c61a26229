// Command haptic-sim is a simulated device-control service.
//
// It speaks the haptic bus protocol over TCP, serves a configurable set
// of simulated devices, and optionally announces itself via mDNS so that
// haptic-ctl can find it with 'discover'.
//
// Usage:
//
//	haptic-sim [flags]
//
// Flags:
//
//	-listen string      Listen address (default ":12350")
//	-name string        Server name announced in WELCOME (default "haptic-sim")
//	-devices string     YAML file describing the simulated devices
//	-advertise          Announce the service via mDNS
//	-churn duration     Periodically detach and re-attach a device (0 disables)
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-log-file string    Write the binary event stream to this file
//
// Examples:
//
//	# Serve one full-featured device on the default port
//	haptic-sim -advertise
//
//	# Serve a custom device set with event capture
//	haptic-sim -devices devices.yaml -log-file session.hlog -log-level debug
//
// Device file format:
//
//	devices:
//	  - id: dev-1
//	    name: Demo Stroker
//	    vibrate: 1
//	    linear: 2
//	  - id: dev-2
//	    name: Demo Buzzer
//	    vibrate: 2
//	    rotate: 1
package main

import (
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hapticlink/haptic-go/internal/sim"
	"github.com/hapticlink/haptic-go/pkg/discovery"
	"github.com/hapticlink/haptic-go/pkg/log"
	"github.com/hapticlink/haptic-go/pkg/wire"
)

type cliConfig struct {
	Listen     string
	Name       string
	DeviceFile string
	Advertise  bool
	Churn      time.Duration
	LogLevel   string
	LogFile    string
}

// deviceFile is the YAML schema of the -devices file.
type deviceFile struct {
	Devices []sim.DeviceSpec `yaml:"devices"`
}

var config cliConfig

func init() {
	flag.StringVar(&config.Listen, "listen", fmt.Sprintf(":%d", discovery.DefaultPort), "Listen address")
	flag.StringVar(&config.Name, "name", "haptic-sim", "Server name announced in WELCOME")
	flag.StringVar(&config.DeviceFile, "devices", "", "YAML file describing the simulated devices")
	flag.BoolVar(&config.Advertise, "advertise", false, "Announce the service via mDNS")
	flag.DurationVar(&config.Churn, "churn", 0, "Periodically detach and re-attach a device (0 disables)")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.LogFile, "log-file", "", "Write the binary event stream to this file")
}

func main() {
	flag.Parse()

	logger, closeLogs, err := buildLogger(config.LogLevel, config.LogFile)
	if err != nil {
		stdlog.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLogs()

	devices, err := loadDevices(config.DeviceFile)
	if err != nil {
		stdlog.Fatalf("Failed to load device file: %v", err)
	}

	server := sim.NewServer(sim.Config{
		Address:    config.Listen,
		ServerName: config.Name,
		Devices:    devices,
		Logger:     logger,
	})
	if err := server.Start(); err != nil {
		stdlog.Fatalf("Failed to start service: %v", err)
	}
	stdlog.Printf("Simulated device-control service %q listening on %s (%d device(s))",
		config.Name, server.Addr(), server.DeviceCount())

	var advertiser *discovery.Advertiser
	if config.Advertise {
		advertiser = discovery.NewAdvertiser(discovery.AdvertiserConfig{})
		info := discovery.Info{
			ServerName:  config.Name,
			Version:     wire.ProtocolVersion,
			DeviceCount: server.DeviceCount(),
		}
		port := listenPort(server.Addr())
		if err := advertiser.Advertise(info, port); err != nil {
			stdlog.Printf("Warning: mDNS advertising failed: %v", err)
			advertiser = nil
		} else {
			stdlog.Printf("Advertising %s on port %d", discovery.ServiceType, port)
		}
	}

	churnDone := make(chan struct{})
	if config.Churn > 0 && len(devices) > 0 {
		go runChurnLoop(server, advertiser, devices[len(devices)-1], churnDone)
	} else {
		close(churnDone)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	stdlog.Printf("Received signal: %v", sig)

	if advertiser != nil {
		advertiser.Stop()
	}
	if err := server.Stop(); err != nil {
		stdlog.Printf("Error stopping service: %v", err)
	}
	stdlog.Println("Goodbye!")
}

// buildLogger assembles the event logger from the CLI flags: an slog
// adapter for the console, plus an optional binary capture file.
func buildLogger(level, file string) (log.Logger, func(), error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, nil, fmt.Errorf("unknown log level: %s", level)
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slogLevel})
	loggers := []log.Logger{log.NewSlogAdapter(slog.New(handler))}

	closeLogs := func() {}
	if file != "" {
		fileLogger, err := log.NewFileLogger(file)
		if err != nil {
			return nil, nil, err
		}
		loggers = append(loggers, fileLogger)
		closeLogs = func() { _ = fileLogger.Close() }
	}

	return log.NewMultiLogger(loggers...), closeLogs, nil
}

// loadDevices reads the -devices YAML file, or falls back to a single
// full-featured demo device.
func loadDevices(path string) ([]sim.DeviceSpec, error) {
	if path == "" {
		return []sim.DeviceSpec{
			{ID: "sim-1", Name: "Simulated Device", Vibrate: 1, Rotate: 1, Oscillate: 1, Linear: 1},
		}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file deviceFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(file.Devices) == 0 {
		return nil, fmt.Errorf("%s declares no devices", path)
	}
	for i, spec := range file.Devices {
		if spec.ID == "" {
			return nil, fmt.Errorf("%s: device %d has no id", path, i)
		}
	}
	return file.Devices, nil
}

// runChurnLoop detaches and re-attaches one device on a timer so clients
// see DEVICE_REMOVED/DEVICE_ADDED notifications.
func runChurnLoop(server *sim.Server, advertiser *discovery.Advertiser, spec sim.DeviceSpec, done <-chan struct{}) {
	ticker := time.NewTicker(config.Churn)
	defer ticker.Stop()

	attached := true
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if attached {
				server.RemoveDevice(spec.ID)
				stdlog.Printf("Churn: detached %s", spec.ID)
			} else {
				server.AddDevice(spec)
				stdlog.Printf("Churn: re-attached %s", spec.ID)
			}
			attached = !attached

			if advertiser != nil {
				_ = advertiser.Update(discovery.Info{
					ServerName:  config.Name,
					Version:     wire.ProtocolVersion,
					DeviceCount: server.DeviceCount(),
				})
			}
		}
	}
}

// listenPort extracts the TCP port from the bound listen address.
func listenPort(addr string) int {
	_, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return discovery.DefaultPort
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return discovery.DefaultPort
	}
	return port
}
