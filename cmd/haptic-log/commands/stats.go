package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/hapticlink/haptic-go/pkg/log"
)

// Stats holds aggregate statistics about a capture file.
type Stats struct {
	TotalEvents      int
	EventsByLayer    map[log.Layer]int
	EventsByCategory map[log.Category]int
	CommandsByKind   map[log.CommandKind]int
	CommandsByDevice map[string]int
	Sessions         map[string]*SessionStats
	Errors           int
	TimeRange        struct {
		Start time.Time
		End   time.Time
	}
}

// SessionStats holds statistics for a single control session.
type SessionStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Commands  int
}

// RunStats analyzes the capture file and prints statistics.
func RunStats(path string, w io.Writer) error {
	events, err := log.ReadFile(path, nil)
	if err != nil {
		return fmt.Errorf("failed to read capture file: %w", err)
	}

	stats := &Stats{
		EventsByLayer:    make(map[log.Layer]int),
		EventsByCategory: make(map[log.Category]int),
		CommandsByKind:   make(map[log.CommandKind]int),
		CommandsByDevice: make(map[string]int),
		Sessions:         make(map[string]*SessionStats),
	}

	for _, event := range events {
		stats.TotalEvents++
		stats.EventsByLayer[event.Layer]++
		stats.EventsByCategory[event.Category]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.Command != nil {
			stats.CommandsByKind[event.Command.Kind]++
			if event.DeviceID != "" {
				stats.CommandsByDevice[event.DeviceID]++
			}
		}
		if event.Error != nil {
			stats.Errors++
		}

		if event.SessionID != "" {
			session, ok := stats.Sessions[event.SessionID]
			if !ok {
				session = &SessionStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
				stats.Sessions[event.SessionID] = session
			}
			session.Events++
			if event.Timestamp.After(session.LastSeen) {
				session.LastSeen = event.Timestamp
			}
			if event.Command != nil {
				session.Commands++
			}
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Haptic Bus Capture Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerBus, log.LayerSession} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryState, log.CategoryDevice, log.CategoryCommand, log.CategoryFrame, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}

	if len(stats.CommandsByKind) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands by Kind:")
		for _, kind := range []log.CommandKind{log.CommandVibrate, log.CommandRotate, log.CommandOscillate, log.CommandLinear, log.CommandStop} {
			if count := stats.CommandsByKind[kind]; count > 0 {
				fmt.Fprintf(w, "  %-12s %d\n", kind.String()+":", count)
			}
		}
	}

	if len(stats.CommandsByDevice) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Commands by Device:")
		devices := make([]string, 0, len(stats.CommandsByDevice))
		for id := range stats.CommandsByDevice {
			devices = append(devices, id)
		}
		sort.Strings(devices)
		for _, id := range devices {
			fmt.Fprintf(w, "  %-12s %d\n", id+":", stats.CommandsByDevice[id])
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sessions: %d\n", len(stats.Sessions))
	if len(stats.Sessions) > 0 {
		type sessionInfo struct {
			id    string
			stats *SessionStats
		}
		sessions := make([]sessionInfo, 0, len(stats.Sessions))
		for id, ss := range stats.Sessions {
			sessions = append(sessions, sessionInfo{id, ss})
		}
		sort.Slice(sessions, func(i, j int) bool {
			return sessions[i].stats.FirstSeen.Before(sessions[j].stats.FirstSeen)
		})

		for _, s := range sessions {
			duration := s.stats.LastSeen.Sub(s.stats.FirstSeen).Round(time.Millisecond)
			shortID := s.id
			if len(shortID) > 8 {
				shortID = shortID[:8]
			}
			fmt.Fprintf(w, "  [%s] %d events, %d commands, duration %s\n",
				shortID, s.stats.Events, s.stats.Commands, duration)
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
