// Package commands implements the haptic-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// ViewOptions specifies criteria for filtering events in the view command.
// Empty fields match everything.
type ViewOptions struct {
	Layer     string
	Category  string
	Direction string
	DeviceID  string
	SessionID string
}

// RunView reads the capture file and prints matching events.
func RunView(path string, opts ViewOptions, output io.Writer) error {
	filter := log.Filter{
		SessionID: opts.SessionID,
		DeviceID:  opts.DeviceID,
	}

	if opts.Layer != "" {
		l, err := parseLayer(opts.Layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}
	if opts.Category != "" {
		c, err := parseCategory(opts.Category)
		if err != nil {
			return err
		}
		filter.Category = &c
	}

	var direction *log.Direction
	if opts.Direction != "" {
		d, err := parseDirection(opts.Direction)
		if err != nil {
			return err
		}
		direction = &d
	}

	events, err := log.ReadFile(path, &filter)
	if err != nil {
		return fmt.Errorf("failed to read capture file: %w", err)
	}

	for _, event := range events {
		if direction != nil && event.Direction != *direction {
			continue
		}
		formatEvent(output, event)
	}
	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = "Frame"
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Device != nil:
		typeLabel = "Device"
	case event.Command != nil:
		typeLabel = event.Command.Kind.String()
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	scope := shortenID(event.ConnectionID)
	if event.SessionID != "" {
		scope = shortenID(event.SessionID)
	}

	fmt.Fprintf(w, "%s [%s] %-3s %s %s\n", ts, scope, event.Direction, event.Layer, typeLabel)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Device != nil:
		formatDeviceDetails(w, event.DeviceID, event.Device)
	case event.Command != nil:
		formatCommandDetails(w, event.DeviceID, event.Command)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenID returns the first 8 characters of a UUID-ish identifier.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes\n", frame.Size)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity)
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatDeviceDetails(w io.Writer, deviceID string, dev *log.DeviceEvent) {
	fmt.Fprintf(w, "  %s: %s", dev.Change, deviceID)
	if dev.Name != "" {
		fmt.Fprintf(w, " %q", dev.Name)
	}
	fmt.Fprintln(w)

	var caps []string
	if dev.Vibrate > 0 {
		caps = append(caps, fmt.Sprintf("vibrate x%d", dev.Vibrate))
	}
	if dev.Rotate > 0 {
		caps = append(caps, fmt.Sprintf("rotate x%d", dev.Rotate))
	}
	if dev.Oscillate > 0 {
		caps = append(caps, fmt.Sprintf("oscillate x%d", dev.Oscillate))
	}
	if dev.Linear > 0 {
		caps = append(caps, fmt.Sprintf("linear x%d", dev.Linear))
	}
	if len(caps) > 0 {
		fmt.Fprintf(w, "  Actuators: %s\n", strings.Join(caps, ", "))
	}
}

func formatCommandDetails(w io.Writer, deviceID string, cmd *log.CommandEvent) {
	fmt.Fprintf(w, "  Device: %s\n", deviceID)

	switch cmd.Kind {
	case log.CommandVibrate, log.CommandOscillate:
		fmt.Fprintf(w, "  Level: %.3f\n", cmd.Level)
	case log.CommandRotate:
		dir := "counter-clockwise"
		if cmd.Clockwise {
			dir = "clockwise"
		}
		fmt.Fprintf(w, "  Level: %.3f (%s)\n", cmd.Level, dir)
	case log.CommandLinear:
		fmt.Fprintf(w, "  Position: %.3f over %dms\n", cmd.Position, cmd.DurationMs)
	}
}

func formatErrorDetails(w io.Writer, errData *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", errData.Layer)
	fmt.Fprintf(w, "  Message: %s\n", errData.Message)
	if errData.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", errData.Context)
	}
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "bus":
		return log.LayerBus, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, bus, or session)", s)
	}
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "state":
		return log.CategoryState, nil
	case "device":
		return log.CategoryDevice, nil
	case "command":
		return log.CategoryCommand, nil
	case "frame":
		return log.CategoryFrame, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be state, device, command, frame, or error)", s)
	}
}
