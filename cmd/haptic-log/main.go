// Command haptic-log is a tool for viewing and analyzing haptic bus
// event capture files.
//
// Capture files are created by running haptic-ctl or haptic-sim with
// the -log-file flag.
//
// Usage:
//
//	haptic-log <command> [flags] <file.hlog>
//
// Commands:
//
//	view     View capture file in human-readable format
//	export   Export capture file to JSONL or CSV format
//	filter   Filter capture file and write to new file
//	stats    Show statistics about the capture file
//
// Examples:
//
//	# View all events
//	haptic-log view session.hlog
//
//	# View only session-layer events
//	haptic-log view -layer session session.hlog
//
//	# View only commands sent to one device
//	haptic-log view -category command -device dev-1 session.hlog
//
//	# Export to JSONL
//	haptic-log export -format jsonl session.hlog
//
//	# Filter by session and save to a new file
//	haptic-log filter -session 6e1b... -o filtered.hlog session.hlog
//
//	# Show statistics
//	haptic-log stats session.hlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/hapticlink/haptic-go/cmd/haptic-log/commands"
)

const usage = `haptic-log - Haptic Bus Event Capture Analyzer

Usage:
  haptic-log <command> [flags] <file.hlog>

Commands:
  view     View capture file in human-readable format
  export   Export capture file to JSONL or CSV format
  filter   Filter capture file and write to new file
  stats    Show statistics about the capture file

Use "haptic-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	layer := fs.String("layer", "", "Filter by layer: transport, bus, session")
	category := fs.String("category", "", "Filter by category: state, device, command, frame, error")
	direction := fs.String("direction", "", "Filter by direction: in, out")
	device := fs.String("device", "", "Filter by device ID")
	session := fs.String("session", "", "Filter by session ID")
	_ = fs.Parse(args)

	path := requirePath(fs)
	opts := commands.ViewOptions{
		Layer:     *layer,
		Category:  *category,
		Direction: *direction,
		DeviceID:  *device,
		SessionID: *session,
	}
	if err := commands.RunView(path, opts, os.Stdout); err != nil {
		fatal(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "jsonl", "Output format: jsonl, csv")
	output := fs.String("o", "", "Output file (default: stdout)")
	_ = fs.Parse(args)

	path := requirePath(fs)
	if err := commands.RunExport(path, *format, *output); err != nil {
		fatal(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	output := fs.String("o", "", "Output file (required)")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	session := fs.String("session", "", "Filter by session ID")
	device := fs.String("device", "", "Filter by device ID")
	layer := fs.String("layer", "", "Filter by layer: transport, bus, session")
	category := fs.String("category", "", "Filter by category: state, device, command, frame, error")
	timeStart := fs.String("time-start", "", "Only events at or after this RFC3339 time")
	timeEnd := fs.String("time-end", "", "Only events before this RFC3339 time")
	_ = fs.Parse(args)

	if *output == "" {
		fatal(fmt.Errorf("filter requires -o <output file>"))
	}

	path := requirePath(fs)
	opts := commands.FilterOptions{
		Output:    *output,
		ConnID:    *connID,
		SessionID: *session,
		DeviceID:  *device,
		Layer:     *layer,
		Category:  *category,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
	}
	if err := commands.RunFilter(path, opts); err != nil {
		fatal(err)
	}
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	_ = fs.Parse(args)

	path := requirePath(fs)
	if err := commands.RunStats(path, os.Stdout); err != nil {
		fatal(err)
	}
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Expected exactly one capture file argument")
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
