// Command haptic-ctl is an interactive client for a haptic bus
// device-control service.
//
// It connects to a service (directly or via mDNS discovery), opens a
// control session, and exposes the session operations as interactive
// commands.
//
// Usage:
//
//	haptic-ctl [flags]
//
// Flags:
//
//	-addr string        Service address (host:port); overrides discovery
//	-discover           Discover the service via mDNS
//	-server-name string Pick a specific service by name during discovery
//	-config string      YAML configuration file path
//	-client-name string Client name announced in HELLO (default "haptic-ctl")
//	-reconnect          Redial with backoff when the service drops the link
//	-log-level string   Log level: debug, info, warn, error (default "info")
//	-log-file string    Write the binary event stream to this file
//
// Examples:
//
//	# Connect to a local simulator
//	haptic-ctl -addr 127.0.0.1:12350
//
//	# Find the service on the LAN and keep redialing if it drops
//	haptic-ctl -discover -reconnect
//
//	# Capture the event stream for later inspection
//	haptic-ctl -addr 127.0.0.1:12350 -log-file session.hlog
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hapticlink/haptic-go/cmd/haptic-ctl/interactive"
	"github.com/hapticlink/haptic-go/pkg/bus"
	"github.com/hapticlink/haptic-go/pkg/connection"
	"github.com/hapticlink/haptic-go/pkg/control"
	"github.com/hapticlink/haptic-go/pkg/discovery"
	"github.com/hapticlink/haptic-go/pkg/log"
)

type cliConfig struct {
	Addr       string
	Discover   bool
	ServerName string
	ConfigFile string
	ClientName string
	Reconnect  bool
	LogLevel   string
	LogFile    string
}

// fileConfig is the YAML schema of the -config file. Flags left at their
// defaults take their values from here.
type fileConfig struct {
	Addr       string `yaml:"addr"`
	ServerName string `yaml:"serverName"`
	ClientName string `yaml:"clientName"`
	Reconnect  bool   `yaml:"reconnect"`
	LogLevel   string `yaml:"logLevel"`
	LogFile    string `yaml:"logFile"`
}

var config cliConfig

func init() {
	flag.StringVar(&config.Addr, "addr", "", "Service address (host:port); overrides discovery")
	flag.BoolVar(&config.Discover, "discover", false, "Discover the service via mDNS")
	flag.StringVar(&config.ServerName, "server-name", "", "Pick a specific service by name during discovery")
	flag.StringVar(&config.ConfigFile, "config", "", "YAML configuration file path")
	flag.StringVar(&config.ClientName, "client-name", "haptic-ctl", "Client name announced in HELLO")
	flag.BoolVar(&config.Reconnect, "reconnect", false, "Redial with backoff when the service drops the link")
	flag.StringVar(&config.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&config.LogFile, "log-file", "", "Write the binary event stream to this file")
}

// client owns the bus connection and control session, replacing both
// when a reconnect succeeds. It implements interactive.Client.
type client struct {
	logger  log.Logger
	busConf bus.Config

	mu      sync.Mutex
	bus     *bus.Bus
	session *control.Session
}

// Session implements interactive.Client.
func (c *client) Session() *control.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Bus implements interactive.Client.
func (c *client) Bus() *bus.Bus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bus
}

// connect dials the service and replaces the active session.
func (c *client) connect(ctx context.Context, address string, onDropped func(error)) error {
	b, err := bus.Connect(ctx, address, c.busConf)
	if err != nil {
		return err
	}
	b.OnDropped(onDropped)

	sessionConf := control.DefaultConfig()
	sessionConf.Logger = c.logger
	session := control.NewSession(b, sessionConf)

	c.mu.Lock()
	c.bus = b
	c.session = session
	c.mu.Unlock()
	return nil
}

// shutdown gracefully ends the active session, which stops all devices
// and disconnects the bus.
func (c *client) shutdown() {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil || session.Closed() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := session.Exit(ctx); err != nil {
		stdlog.Printf("Error ending session: %v", err)
	}
}

func main() {
	flag.Parse()

	if err := applyConfigFile(&config); err != nil {
		stdlog.Fatalf("Failed to load config file: %v", err)
	}

	logger, closeLogs, err := buildLogger(config.LogLevel, config.LogFile)
	if err != nil {
		stdlog.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLogs()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	address, err := resolveAddress(ctx, config)
	if err != nil {
		stdlog.Fatalf("Failed to locate service: %v", err)
	}

	busConf := bus.DefaultConfig()
	busConf.ClientName = config.ClientName
	busConf.Logger = logger

	c := &client{logger: logger, busConf: busConf}

	var onDropped func(error)
	onDropped = func(dropErr error) {
		stdlog.Printf("Connection lost: %v", dropErr)
		if !config.Reconnect {
			cancel()
			return
		}

		redialer := connection.NewRedialer(func(ctx context.Context) error {
			return c.connect(ctx, address, onDropped)
		})
		redialer.OnAttempt(func(attempt int, delay time.Duration) {
			stdlog.Printf("Reconnect attempt %d failed, retrying in %s", attempt, delay.Round(time.Millisecond))
		})
		go func() {
			if err := redialer.Run(ctx); err != nil {
				if !errors.Is(err, context.Canceled) {
					stdlog.Printf("Reconnect abandoned: %v", err)
				}
				cancel()
				return
			}
			stdlog.Printf("Reconnected to %s", address)
		}()
	}

	connectCtx, connectCancel := context.WithTimeout(ctx, 10*time.Second)
	err = c.connect(connectCtx, address, onDropped)
	connectCancel()
	if err != nil {
		stdlog.Fatalf("Failed to connect to %s: %v", address, err)
	}
	stdlog.Printf("Connected to %q at %s (%d device(s))",
		c.Bus().ServerName(), address, len(c.Bus().Devices()))

	ic, err := interactive.New(c)
	if err != nil {
		stdlog.Fatalf("Failed to create interactive console: %v", err)
	}
	// Route log output through readline so it does not clobber the prompt
	stdlog.SetOutput(ic.Stdout())
	go ic.Run(ctx, cancel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		stdlog.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	stdlog.Println("Shutting down...")
	c.shutdown()
	stdlog.Println("Goodbye!")
}

// applyConfigFile fills in flags the user left at their defaults from
// the YAML config file, when one is given.
func applyConfigFile(cfg *cliConfig) error {
	if cfg.ConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		return err
	}
	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", cfg.ConfigFile, err)
	}

	if cfg.Addr == "" {
		cfg.Addr = file.Addr
	}
	if cfg.ServerName == "" {
		cfg.ServerName = file.ServerName
	}
	if cfg.ClientName == "haptic-ctl" && file.ClientName != "" {
		cfg.ClientName = file.ClientName
	}
	if !cfg.Reconnect {
		cfg.Reconnect = file.Reconnect
	}
	if cfg.LogLevel == "info" && file.LogLevel != "" {
		cfg.LogLevel = file.LogLevel
	}
	if cfg.LogFile == "" {
		cfg.LogFile = file.LogFile
	}
	return nil
}

// resolveAddress picks the service address from the -addr flag or via
// mDNS discovery.
func resolveAddress(ctx context.Context, cfg cliConfig) (string, error) {
	if cfg.Addr != "" {
		return cfg.Addr, nil
	}
	if !cfg.Discover && cfg.ServerName == "" {
		return "", fmt.Errorf("no service address: pass -addr or -discover")
	}

	stdlog.Println("Discovering device-control services...")
	browser := discovery.NewBrowser(discovery.BrowserConfig{})

	findCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var (
		service *discovery.Service
		err     error
	)
	if cfg.ServerName != "" {
		service, err = browser.FindByName(findCtx, cfg.ServerName)
	} else {
		service, err = browser.FindFirst(findCtx)
	}
	if err != nil {
		return "", err
	}

	stdlog.Printf("Found %q at %s (%d device(s), protocol v%d)",
		service.ServerName, service.Addr(), service.DeviceCount, service.Version)
	return service.Addr(), nil
}

// buildLogger assembles the event logger from the CLI flags.
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
