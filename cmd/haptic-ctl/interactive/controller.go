// Package interactive provides the interactive command-line interface
// for haptic-ctl.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/hapticlink/haptic-go/pkg/actuator"
	"github.com/hapticlink/haptic-go/pkg/bus"
	"github.com/hapticlink/haptic-go/pkg/control"
)

// Client provides the interactive console with the active connection.
// The console fetches the session per command so a reconnect in the
// background transparently swaps the connection underneath it.
type Client interface {
	// Session returns the active control session, or nil when
	// disconnected.
	Session() *control.Session

	// Bus returns the active bus connection, or nil when disconnected.
	Bus() *bus.Bus
}

// Console handles interactive mode for haptic-ctl.
type Console struct {
	client Client
	rl     *readline.Instance
}

// New creates a new interactive console.
func New(client Client) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "haptic> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &Console{client: client, rl: rl}, nil
}

// Stdout returns a writer that properly coordinates with the readline
// input. Use this for log output to avoid interfering with the prompt.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			// EOF or interrupt
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			c.printHelp()

		case "devices", "list", "ls":
			c.cmdDevices()

		case "control", "c":
			c.cmdControl(ctx, args)

		case "set":
			c.cmdSet(ctx, args)

		case "press", "p":
			c.cmdPress(ctx, args)

		case "stop":
			c.cmdStop(ctx)

		case "fade":
			c.cmdFade(ctx, args)

		case "fadein":
			c.cmdFadeIn(ctx)

		case "fadeout":
			c.cmdFadeOut(ctx)

		case "pulse":
			c.cmdPulse(ctx, args)

		case "hold":
			c.cmdHold(ctx, args)

		case "status", "s":
			c.cmdStatus()

		case "quit", "exit", "q":
			fmt.Fprintln(c.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(c.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.rl.Stdout(), `
Haptic Control Commands:
  Devices:
    devices                    - List connected devices

  Intensity & Position:
    control <int> [pos]        - Set intensity [0,1], optional stroke position
    set <speed>                - Set intensity and oscillation speed (auto mode)
    press <int>                - Set intensity at a manual position
    stop                       - Set intensity and oscillation to zero

  Fades:
    fade <target> [smooth]     - Fade intensity to target (smoothness 0.1-1)
    fadein                     - Fade intensity to full
    fadeout                    - Fade intensity to zero

  Gestures:
    pulse <rebound>            - Full-intensity pulse; rebound in [0,1]
    hold <rebound>             - Fade in, hold, fade out; rebound in [0,1]

  General:
    status                     - Show session state
    help                       - Show this help
    quit                       - Stop all devices and exit`)
}

// session fetches the active session, reporting when disconnected.
func (c *Console) session() *control.Session {
	s := c.client.Session()
	if s == nil || s.Closed() {
		fmt.Fprintln(c.rl.Stdout(), "Not connected")
		return nil
	}
	return s
}

func (c *Console) cmdDevices() {
	b := c.client.Bus()
	if b == nil {
		fmt.Fprintln(c.rl.Stdout(), "Not connected")
		return
	}

	devices := b.Devices()
	if len(devices) == 0 {
		fmt.Fprintln(c.rl.Stdout(), "No devices attached")
		return
	}

	fmt.Fprintf(c.rl.Stdout(), "\nAttached Devices (%d):\n", len(devices))
	for _, d := range devices {
		fmt.Fprintf(c.rl.Stdout(), "  %s  %q  %s\n", d.ID(), d.Name(), describeCaps(d.Capabilities()))
	}
}

func describeCaps(caps actuator.CapabilitySet) string {
	var parts []string
	if caps.Vibrate > 0 {
		parts = append(parts, fmt.Sprintf("vibrate x%d", caps.Vibrate))
	}
	if caps.Rotate > 0 {
		parts = append(parts, fmt.Sprintf("rotate x%d", caps.Rotate))
	}
	if caps.Oscillate > 0 {
		parts = append(parts, fmt.Sprintf("oscillate x%d", caps.Oscillate))
	}
	if caps.Linear > 0 {
		parts = append(parts, fmt.Sprintf("linear x%d", caps.Linear))
	}
	if len(parts) == 0 {
		return "no actuators"
	}
	return strings.Join(parts, ", ")
}

func (c *Console) cmdControl(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: control <intensity> [position]")
		return
	}

	intensity, err := parseLevel(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid intensity: %v\n", err)
		return
	}

	req := control.Request{Intensity: intensity}
	if len(args) == 2 {
		position, err := parseLevel(args[1])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid position: %v\n", err)
			return
		}
		req.Position = &position
	}

	if err := s.Control(ctx, req); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Control failed: %v\n", err)
	}
}

func (c *Console) cmdSet(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: set <speed>")
		return
	}

	speed, err := parseLevel(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid speed: %v\n", err)
		return
	}
	if err := s.Set(ctx, speed); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Set failed: %v\n", err)
	}
}

func (c *Console) cmdPress(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: press <intensity>")
		return
	}

	intensity, err := parseLevel(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid intensity: %v\n", err)
		return
	}
	if err := s.Press(ctx, intensity); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Press failed: %v\n", err)
	}
}

func (c *Console) cmdStop(ctx context.Context) {
	s := c.session()
	if s == nil {
		return
	}
	if err := s.Stop(ctx); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Stop failed: %v\n", err)
	}
}

func (c *Console) cmdFade(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: fade <target> [smoothness]")
		return
	}

	target, err := parseLevel(args[0])
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid target: %v\n", err)
		return
	}
	smoothness := 1.0
	if len(args) == 2 {
		smoothness, err = parseLevel(args[1])
		if err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Invalid smoothness: %v\n", err)
			return
		}
	}

	c.runFade(func() error { return s.Fade(ctx, target, smoothness) },
		fmt.Sprintf("Fading to %.2f...", target))
}

func (c *Console) cmdFadeIn(ctx context.Context) {
	s := c.session()
	if s == nil {
		return
	}
	c.runFade(func() error { return s.FadeIn(ctx) }, "Fading in...")
}

func (c *Console) cmdFadeOut(ctx context.Context) {
	s := c.session()
	if s == nil {
		return
	}
	c.runFade(func() error { return s.FadeOut(ctx) }, "Fading out...")
}

// runFade runs a fade without blocking the prompt; fades take seconds.
func (c *Console) runFade(fade func() error, banner string) {
	fmt.Fprintln(c.rl.Stdout(), banner)
	go func() {
		start := time.Now()
		if err := fade(); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Fade failed: %v\n", err)
			return
		}
		fmt.Fprintf(c.rl.Stdout(), "Fade done (%s)\n", time.Since(start).Round(time.Millisecond))
	}()
}

func (c *Console) cmdPulse(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: pulse <rebound>")
		return
	}

	rebound, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid rebound: %v\n", err)
		return
	}
	if err := s.Pulse(ctx, rebound); err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Pulse failed: %v\n", err)
	}
}

func (c *Console) cmdHold(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.rl.Stdout(), "Usage: hold <rebound>")
		return
	}

	rebound, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.rl.Stdout(), "Invalid rebound: %v\n", err)
		return
	}

	fmt.Fprintln(c.rl.Stdout(), "Holding...")
	go func() {
		if err := s.Hold(ctx, rebound); err != nil {
			fmt.Fprintf(c.rl.Stdout(), "Hold failed: %v\n", err)
			return
		}
		fmt.Fprintln(c.rl.Stdout(), "Hold done")
	}()
}

func (c *Console) cmdStatus() {
	b := c.client.Bus()
	s := c.client.Session()
	out := c.rl.Stdout()

	if b == nil || s == nil {
		fmt.Fprintln(out, "Not connected")
		return
	}

	fmt.Fprintln(out, "\nSession Status:")
	fmt.Fprintf(out, "  Server:      %s\n", b.ServerName())
	fmt.Fprintf(out, "  Session:     %s\n", s.ID())
	fmt.Fprintf(out, "  Devices:     %d\n", len(b.Devices()))
	fmt.Fprintf(out, "  Mode:        %s\n", s.Mode())
	fmt.Fprintf(out, "  Intensity:   %.2f\n", s.Intensity())
	fmt.Fprintf(out, "  Fading:      %v\n", s.Fading())
	fmt.Fprintf(out, "  Oscillation: %.2f\n", s.OscillationSpeed())
	fmt.Fprintf(out, "  Position:    %.2f\n", s.LastPosition())
	fmt.Fprintf(out, "  Queued:      %d stroke(s)\n", s.QueueLen())
}

// parseLevel parses a normalized value and checks it is in [0,1].
func parseLevel(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("%v out of range [0,1]", v)
	}
	return v, nil
}
