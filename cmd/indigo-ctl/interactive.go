package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/chzyer/readline"

	"github.com/indigo-protocol/indigo-go/pkg/client"
	"github.com/indigo-protocol/indigo-go/pkg/discovery"
	"github.com/indigo-protocol/indigo-go/pkg/model"
	"github.com/indigo-protocol/indigo-go/pkg/registry"
	"github.com/indigo-protocol/indigo-go/pkg/subscription"
)

// console is the interactive command loop around one client.
type console struct {
	c       *client.Client
	address string
	rl      *readline.Instance

	// watches maps "device" or "device/property" to active handles.
	watches map[string]*subscription.Handle
}

// newConsole creates the interactive console.
func newConsole(c *client.Client, address string) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "indigo> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	return &console{
		c:       c,
		address: address,
		rl:      rl,
		watches: make(map[string]*subscription.Handle),
	}, nil
}

// Run starts the interactive command loop.
func (con *console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer con.rl.Close()

	con.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := con.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(con.rl.Stdout(), "Exiting...")
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
			con.printHelp()

		case "devices", "list", "ls":
			con.cmdDevices()

		case "props", "p":
			con.cmdProps(args)

		case "get", "g":
			con.cmdGet(args)

		case "set", "s":
			con.cmdSet(args)

		case "blob":
			con.cmdBlob(args)

		case "watch", "w":
			con.cmdWatch(args)

		case "unwatch":
			con.cmdUnwatch(args)

		case "message", "messages":
			con.cmdMessage()

		case "status":
			con.cmdStatus()

		case "discover":
			con.cmdDiscover(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(con.rl.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(con.rl.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (con *console) printHelp() {
	fmt.Fprintln(con.rl.Stdout(), `
INDIGO Client Commands:
  Inspection:
    devices                      - List mirrored devices
    props <device>               - List a device's properties
    get <device>/<prop>[/<el>]   - Show a property or one element

  Control:
    set <device>/<prop> <el>=<val> [<el>=<val> ...]
                                 - Request new element values
    blob <device> <mode>         - Set BLOB delivery: Never, Also, Only

  Monitoring:
    watch <device>[/<prop>]      - Print changes as they arrive
    unwatch <device>[/<prop>]    - Stop watching
    message                      - Show last server broadcast

  General:
    status                       - Show connection status
    discover [seconds]           - Browse for INDIGO servers via mDNS
    help                         - Show this help
    quit                         - Exit

  Switch values: on/off, true/false, 1/0`)
}

// cmdDevices handles the devices command.
func (con *console) cmdDevices() {
	count := 0
	w := tabwriter.NewWriter(con.rl.Stdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DEVICE\tPROPERTIES\tCONNECTED")
	for d := range con.c.Devices() {
		fmt.Fprintf(w, "%s\t%d\t%t\n", d.Name(), d.PropertyCount(), d.Connected())
		count++
	}
	w.Flush()
	if count == 0 {
		fmt.Fprintln(con.rl.Stdout(), "No devices mirrored yet")
	}
}

// cmdProps handles the props command.
func (con *console) cmdProps(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(con.rl.Stdout(), "Usage: props <device>")
		return
	}

	d, err := con.c.Device(args[0])
	if err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
		return
	}

	w := tabwriter.NewWriter(con.rl.Stdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROPERTY\tKIND\tSTATE\tPERM\tELEMENTS\tLABEL")
	for p := range d.Properties() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			p.Name(), p.Kind(), p.State(), p.Perm(), p.ElementCount(), p.Label())
	}
	w.Flush()
}

// cmdGet handles the get command.
func (con *console) cmdGet(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(con.rl.Stdout(), "Usage: get <device>/<property>[/<element>]")
		return
	}

	device, property, element, err := splitPath(args[0])
	if err != nil || property == "" {
		fmt.Fprintln(con.rl.Stdout(), "Usage: get <device>/<property>[/<element>]")
		return
	}

	p, err := con.c.Property(device, property)
	if err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if element != "" {
		el, err := p.Element(element)
		if err != nil {
			fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
			return
		}
		fmt.Fprintf(con.rl.Stdout(), "%s = %s\n", args[0], el.String())
		return
	}

	con.printProperty(p)
}

// printProperty renders one property with its elements.
func (con *console) printProperty(p *model.Property) {
	out := con.rl.Stdout()
	fmt.Fprintf(out, "\n%s.%s (%s)\n", p.Device().Name(), p.Name(), p.Kind())
	fmt.Fprintf(out, "  State: %s  Perm: %s", p.State(), p.Perm())
	if p.Kind() == model.KindSwitch {
		fmt.Fprintf(out, "  Rule: %s", p.Rule())
	}
	fmt.Fprintln(out)
	if p.Label() != "" {
		fmt.Fprintf(out, "  Label: %s\n", p.Label())
	}
	if p.Group() != "" {
		fmt.Fprintf(out, "  Group: %s\n", p.Group())
	}

	w := tabwriter.NewWriter(out, 2, 4, 2, ' ', 0)
	for el := range p.Elements() {
		fmt.Fprintf(w, "  %s\t%s\t%s\n", el.Name(), el.String(), el.Label())
	}
	w.Flush()
}

// cmdSet handles the set command.
func (con *console) cmdSet(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(con.rl.Stdout(), "Usage: set <device>/<property> <element>=<value> [...]")
		fmt.Fprintln(con.rl.Stdout(), "  Example: set Mount/EQUATORIAL_COORDINATES RA=5.6 DEC=-5.4")
		return
	}

	device, property, element, err := splitPath(args[0])
	if err != nil || property == "" || element != "" {
		fmt.Fprintln(con.rl.Stdout(), "Usage: set <device>/<property> <element>=<value> [...]")
		return
	}

	p, err := con.c.Property(device, property)
	if err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
		return
	}

	values := make(map[string]any, len(args)-1)
	for _, pair := range args[1:] {
		name, raw, found := strings.Cut(pair, "=")
		if !found || name == "" {
			fmt.Fprintf(con.rl.Stdout(), "Invalid assignment: %s\n", pair)
			return
		}
		values[name] = parseValue(p, name, raw)
	}

	if err := con.c.SendValues(device, property, values); err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintln(con.rl.Stdout(), "OK (awaiting server confirmation)")
}

// parseValue converts a raw string by the target element's kind. When
// the element is unknown the raw string passes through and SendValues
// reports the error.
func parseValue(p *model.Property, element, raw string) any {
	el, err := p.Element(element)
	if err != nil {
		return raw
	}

	switch el.Kind() {
	case model.KindNumber:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
		return raw
	case model.KindSwitch:
		switch strings.ToLower(raw) {
		case "on", "true", "1":
			return true
		case "off", "false", "0":
			return false
		}
		return raw
	default:
		return raw
	}
}

// cmdBlob handles the blob command.
func (con *console) cmdBlob(args []string) {
	if len(args) < 2 {
		fmt.Fprintln(con.rl.Stdout(), "Usage: blob <device> <Never|Also|Only>")
		return
	}

	mode, err := model.ParseBLOBMode(args[1])
	if err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
		return
	}

	if err := con.c.EnableBLOB(args[0], mode); err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Error: %v\n", err)
		return
	}
	fmt.Fprintf(con.rl.Stdout(), "BLOB delivery for %s set to %s\n", args[0], mode)
}

// cmdWatch handles the watch command.
func (con *console) cmdWatch(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(con.rl.Stdout(), "Usage: watch <device>[/<property>]")
		return
	}

	device, property, element, err := splitPath(args[0])
	if err != nil || element != "" {
		fmt.Fprintln(con.rl.Stdout(), "Usage: watch <device>[/<property>]")
		return
	}

	key := device
	if property != "" {
		key = device + "/" + property
	}
	if _, exists := con.watches[key]; exists {
		fmt.Fprintf(con.rl.Stdout(), "Already watching %s\n", key)
		return
	}

	out := con.rl.Stdout()
	listener := func(ev registry.Event) {
		con.printEvent(out, ev)
	}

	var handle *subscription.Handle
	if property != "" {
		handle = con.c.SubscribeProperty(device, property, listener)
	} else {
		handle = con.c.SubscribeAll(func(ev registry.Event) {
			if ev.Device != nil && ev.Device.Name() == device {
				con.printEvent(out, ev)
			}
		})
	}
	con.watches[key] = handle
	fmt.Fprintf(out, "Watching %s\n", key)
}

// cmdUnwatch handles the unwatch command.
func (con *console) cmdUnwatch(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(con.rl.Stdout(), "Usage: unwatch <device>[/<property>]")
		return
	}

	key := strings.TrimSuffix(args[0], "/")
	handle, exists := con.watches[key]
	if !exists {
		fmt.Fprintf(con.rl.Stdout(), "Not watching %s\n", key)
		return
	}
	handle.Cancel()
	delete(con.watches, key)
	fmt.Fprintf(con.rl.Stdout(), "Stopped watching %s\n", key)
}

// printEvent renders one registry event. Runs on the read-loop
// goroutine; rl.Stdout() coordinates with the prompt.
func (con *console) printEvent(out io.Writer, ev registry.Event) {
	switch ev.Type {
	case registry.PropertyDefined, registry.PropertyUpdated:
		var values []string
		for el := range ev.Property.Elements() {
			values = append(values, fmt.Sprintf("%s=%s", el.Name(), el.String()))
		}
		fmt.Fprintf(out, "[%s] %s.%s (%s) %s\n",
			ev.Type, ev.Device.Name(), ev.Property.Name(), ev.Property.State(),
			strings.Join(values, " "))

	case registry.PropertyDeleted:
		fmt.Fprintf(out, "[%s] %s.%s\n", ev.Type, ev.Device.Name(), ev.Property.Name())

	case registry.DeviceAdded, registry.DeviceRemoved:
		fmt.Fprintf(out, "[%s] %s\n", ev.Type, ev.Device.Name())

	case registry.DeviceMessage:
		fmt.Fprintf(out, "[%s] %s: %s\n", ev.Type, ev.Device.Name(), ev.Message)

	case registry.ClientMessage:
		fmt.Fprintf(out, "[%s] %s\n", ev.Type, ev.Message)
	}
}

// cmdMessage handles the message command.
func (con *console) cmdMessage() {
	message, timestamp := con.c.LastMessage()
	if message == "" {
		fmt.Fprintln(con.rl.Stdout(), "No broadcast messages received")
		return
	}
	fmt.Fprintf(con.rl.Stdout(), "[%s] %s\n", timestamp, message)
}

// cmdStatus handles the status command.
func (con *console) cmdStatus() {
	out := con.rl.Stdout()
	fmt.Fprintln(out, "\nConnection Status")
	fmt.Fprintln(out, "-------------------------------------------")
	fmt.Fprintf(out, "  Server:     %s\n", con.address)
	fmt.Fprintf(out, "  Connected:  %t\n", con.c.Connected())
	if id := con.c.ID(); id != "" {
		fmt.Fprintf(out, "  Connection: %s\n", id)
	}
	deviceCount := 0
	propertyCount := 0
	for d := range con.c.Devices() {
		deviceCount++
		propertyCount += d.PropertyCount()
	}
	fmt.Fprintf(out, "  Devices:    %d\n", deviceCount)
	fmt.Fprintf(out, "  Properties: %d\n", propertyCount)
	fmt.Fprintln(out)
}

// cmdDiscover handles the discover command.
func (con *console) cmdDiscover(ctx context.Context, args []string) {
	seconds := 3
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			fmt.Fprintln(con.rl.Stdout(), "Usage: discover [seconds]")
			return
		}
		seconds = n
	}

	fmt.Fprintf(con.rl.Stdout(), "Browsing for INDIGO servers (%ds)...\n", seconds)

	browseCtx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()

	browser := discovery.NewBrowser(discovery.Config{})
	results, err := browser.Browse(browseCtx)
	if err != nil {
		fmt.Fprintf(con.rl.Stdout(), "Discovery error: %v\n", err)
		return
	}

	found := 0
	for svc := range results {
		found++
		fmt.Fprintf(con.rl.Stdout(), "  %d. %s at %s\n", found, svc.InstanceName, svc.Endpoint())
	}
	if found == 0 {
		fmt.Fprintln(con.rl.Stdout(), "No servers found")
	}
}

// Reconnect manager callbacks. These run off the prompt goroutine.

func (con *console) onConnectionLost(err error) {
	fmt.Fprintf(con.rl.Stdout(), "Connection lost: %v\n", err)
}

func (con *console) onReconnecting(attempt int, delay time.Duration) {
	fmt.Fprintf(con.rl.Stdout(), "Reconnecting (attempt %d) in %s...\n", attempt, delay.Round(time.Millisecond))
}

func (con *console) onReconnected() {
	fmt.Fprintf(con.rl.Stdout(), "Connected to %s\n", con.address)
}

func (con *console) onGiveUp(lastErr error) {
	fmt.Fprintf(con.rl.Stdout(), "Giving up after repeated failures: %v\n", lastErr)
}

// splitPath splits "device/property/element" into its parts. Property
// and element may be absent.
func splitPath(input string) (device, property, element string, err error) {
	parts := strings.Split(input, "/")
	if len(parts) > 3 || parts[0] == "" {
		return "", "", "", fmt.Errorf("invalid path %q", input)
	}
	device = parts[0]
	if len(parts) > 1 {
		property = parts[1]
	}
	if len(parts) > 2 {
		element = parts[2]
	}
	return device, property, element, nil
}
