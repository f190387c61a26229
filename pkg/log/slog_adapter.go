package log

import (
	"context"
	"log/slog"
)

// SlogAdapter mirrors capture events onto an slog.Logger at debug
// level, for watching a session live in the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter wraps the given slog.Logger as an event sink.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log emits one event as a single debug record.
func (a *SlogAdapter) Log(event Event) {
	attrs := append(scopeAttrs(event), detailAttrs(event)...)
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "hapticbus", attrs...)
}

func scopeAttrs(event Event) []slog.Attr {
	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	)
	for _, kv := range []struct{ key, val string }{
		{"session_id", event.SessionID},
		{"conn_id", event.ConnectionID},
		{"device_id", event.DeviceID},
		{"remote", event.RemoteAddr},
	} {
		if kv.val != "" {
			attrs = append(attrs, slog.String(kv.key, kv.val))
		}
	}
	return attrs
}

func detailAttrs(event Event) []slog.Attr {
	switch {
	case event.Frame != nil:
		return []slog.Attr{
			slog.String("direction", event.Direction.String()),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		}
	case event.StateChange != nil:
		attrs := []slog.Attr{
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		}
		if reason := event.StateChange.Reason; reason != "" {
			attrs = append(attrs, slog.String("reason", reason))
		}
		return attrs
	case event.Device != nil:
		return []slog.Attr{
			slog.String("change", event.Device.Change.String()),
			slog.String("name", event.Device.Name),
			slog.Int("vibrate", event.Device.Vibrate),
			slog.Int("rotate", event.Device.Rotate),
			slog.Int("oscillate", event.Device.Oscillate),
			slog.Int("linear", event.Device.Linear),
		}
	case event.Command != nil:
		return commandAttrs(event.Command)
	case event.Error != nil:
		attrs := []slog.Attr{
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
		return attrs
	}
	return nil
}

func commandAttrs(cmd *CommandEvent) []slog.Attr {
	attrs := []slog.Attr{slog.String("kind", cmd.Kind.String())}
	switch cmd.Kind {
	case CommandLinear:
		return append(attrs,
			slog.Uint64("duration_ms", uint64(cmd.DurationMs)),
			slog.Float64("position", cmd.Position),
		)
	case CommandStop:
		return attrs
	default:
		return append(attrs, slog.Float64("level", cmd.Level))
	}
}

var _ Logger = (*SlogAdapter)(nil)
