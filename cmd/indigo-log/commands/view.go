// Package commands implements the indigo-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/indigo-protocol/indigo-go/pkg/log"
)

// ViewOptions specifies criteria for filtering events in the view
// command.
type ViewOptions struct {
	Direction *log.Direction
	Category  *log.Category
	Device    string
}

// RunView executes the view command.
func RunView(path string, opts ViewOptions, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, log.Filter{
		Direction: opts.Direction,
		Category:  opts.Category,
		Device:    opts.Device,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(output, event)
	}

	return nil
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	connID := shortenConnID(event.ConnectionID)

	var typeLabel string
	switch {
	case event.Message != nil:
		typeLabel = event.Message.Tag
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s\n", ts, connID, event.Direction, typeLabel)

	switch {
	case event.Message != nil:
		formatMessageDetails(w, event.Device, event.Message)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenConnID returns the first 8 characters of the connection ID.
func shortenConnID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatMessageDetails writes message-specific details.
func formatMessageDetails(w io.Writer, device string, msg *log.MessageEvent) {
	if device != "" {
		fmt.Fprintf(w, "  Device: %s\n", device)
	}
	if msg.Property != "" {
		fmt.Fprintf(w, "  Property: %s", msg.Property)
		if msg.State != "" {
			fmt.Fprintf(w, "  State: %s", msg.State)
		}
		fmt.Fprintln(w)
	}
	if msg.Items > 0 {
		fmt.Fprintf(w, "  Items: %d\n", msg.Items)
	}
	if msg.Size > 0 {
		fmt.Fprintf(w, "  Size: %d bytes\n", msg.Size)
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseDirectionFlag parses a direction flag value (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category flag value (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}
