package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/go8021x/go8021x/pkg/dot1xpb"
)

const (
	formatJSON  = "json"
	formatTable = "table"
	valueNA     = "N/A"
)

// errUnsupportedFormat is returned when the requested output format is not supported.
var errUnsupportedFormat = errors.New("unsupported output format")

// formatPorts renders a slice of ports in the requested format.
func formatPorts(ports []*dot1xpb.Port, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatPortsJSON(ports)
	case formatTable:
		return formatPortsTable(ports), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatPort renders a single port in the requested format.
func formatPort(port *dot1xpb.Port, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatPortJSON(port)
	case formatTable:
		return formatPortDetail(port), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// formatEvent renders a port event in the requested format.
func formatEvent(event *dot1xpb.PortEvent, format string) (string, error) {
	switch format {
	case formatJSON:
		return formatEventJSON(event)
	case formatTable:
		return formatEventTable(event), nil
	default:
		return "", fmt.Errorf("%w: %q", errUnsupportedFormat, format)
	}
}

// --- Table formatters ---

func formatPortsTable(ports []*dot1xpb.Port) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tPAE-STATE\tSTATUS\tSUPPLICANT-MAC")

	for _, p := range ports {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Index, p.PAEState, p.Status, supplicantOrNA(p.SupplicantMAC))
	}

	_ = w.Flush()
	return buf.String()
}

func formatPortDetail(p *dot1xpb.Port) string {
	var buf strings.Builder
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "Index:\t%d\n", p.Index)
	fmt.Fprintf(w, "PAE State:\t%s\n", p.PAEState)
	fmt.Fprintf(w, "Status:\t%s\n", p.Status)
	fmt.Fprintf(w, "Port Control:\t%s\n", p.PortControl)
	fmt.Fprintf(w, "Supplicant MAC:\t%s\n", supplicantOrNA(p.SupplicantMAC))

	for name, v := range p.Counters {
		fmt.Fprintf(w, "  %s:\t%d\n", name, v)
	}

	_ = w.Flush()
	return buf.String()
}

func formatEventTable(event *dot1xpb.PortEvent) string {
	ts := valueNA
	if !event.Timestamp.IsZero() {
		ts = event.Timestamp.Format(time.RFC3339)
	}

	idx := valueNA
	state := valueNA
	if event.Port != nil {
		idx = fmt.Sprintf("%d", event.Port.Index)
		state = event.Port.Status.String()
	}

	return fmt.Sprintf("[%s] %s  port=%s  status=%s  prev=%s  cause=%s",
		ts, event.Type, idx, state, event.PreviousState, event.Cause)
}

func supplicantOrNA(mac string) string {
	if mac == "" {
		return valueNA
	}
	return mac
}

// --- JSON formatters ---

func formatPortsJSON(ports []*dot1xpb.Port) (string, error) {
	data, err := json.MarshalIndent(ports, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal ports to JSON: %w", err)
	}
	return string(data), nil
}

func formatPortJSON(port *dot1xpb.Port) (string, error) {
	data, err := json.MarshalIndent(port, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal port to JSON: %w", err)
	}
	return string(data), nil
}

func formatEventJSON(event *dot1xpb.PortEvent) (string, error) {
	data, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal event to JSON: %w", err)
	}
	return string(data), nil
}
