// Command indigo-ctl is an interactive INDIGO client console.
//
// It connects to an INDIGO server, mirrors the server's devices and
// properties, and offers an interactive shell to inspect and change
// them.
//
// Usage:
//
//	indigo-ctl [flags]
//
// Flags:
//
//	-server string   Server address host:port (default "localhost:7624")
//	-config string   Configuration file path
//	-name string     Client name for the protocol handshake
//	-log string      Protocol event log file (.ilog)
//	-debug           Mirror protocol events to stderr
//	-reconnect       Reconnect automatically after connection loss
//
// Examples:
//
//	# Connect to a local server
//	indigo-ctl
//
//	# Connect to a remote server with event capture
//	indigo-ctl -server observatory.lan:7624 -log session.ilog
//
//	# Use a config file
//	indigo-ctl -config ~/.config/indigo/client.yaml
package main

import (
	"context"
	"flag"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/indigo-protocol/indigo-go/pkg/client"
	"github.com/indigo-protocol/indigo-go/pkg/config"
	"github.com/indigo-protocol/indigo-go/pkg/connection"
	"github.com/indigo-protocol/indigo-go/pkg/log"
	"github.com/indigo-protocol/indigo-go/pkg/model"
)

func main() {
	var (
		serverFlag    = flag.String("server", "", "Server address host:port")
		configFlag    = flag.String("config", "", "Configuration file path")
		nameFlag      = flag.String("name", "", "Client name for the protocol handshake")
		logFlag       = flag.String("log", "", "Protocol event log file (.ilog)")
		debugFlag     = flag.Bool("debug", false, "Mirror protocol events to stderr")
		reconnectFlag = flag.Bool("reconnect", false, "Reconnect automatically after connection loss")
	)
	flag.Parse()

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			stdlog.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	// Flags override the file.
	address := cfg.Server.Endpoint()
	if *serverFlag != "" {
		address = *serverFlag
	}
	if *nameFlag != "" {
		cfg.Client.Name = *nameFlag
	}
	if *logFlag != "" {
		cfg.Log.File = *logFlag
	}
	if *debugFlag {
		cfg.Log.Debug = true
	}
	if *reconnectFlag {
		cfg.Reconnect.Enabled = true
	}

	blobMode, err := model.ParseBLOBMode(cfg.Client.BLOBMode)
	if err != nil {
		stdlog.Fatalf("Invalid BLOB mode: %v", err)
	}

	logger, closeLogger, err := buildLogger(cfg.Log)
	if err != nil {
		stdlog.Fatalf("Failed to open protocol log: %v", err)
	}
	defer closeLogger()

	c := client.New(client.Config{
		Address:        address,
		Name:           cfg.Client.Name,
		BLOBMode:       blobMode,
		ProtocolLogger: logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	console, err := newConsole(c, address)
	if err != nil {
		stdlog.Fatalf("Failed to start console: %v", err)
	}

	if cfg.Reconnect.Enabled {
		mgr := connection.NewManager(connection.Config{
			Connect: c.Connect,
			Backoff: connection.BackoffConfig{
				Initial: cfg.Reconnect.InitialDelay.Std(),
				Max:     cfg.Reconnect.MaxDelay.Std(),
			},
			MaxAttempts: cfg.Reconnect.MaxAttempts,
			Callbacks: connection.Callbacks{
				OnReconnecting: console.onReconnecting,
				OnConnected:    console.onReconnected,
				OnGiveUp:       console.onGiveUp,
			},
		})
		c.SubscribeConnectionLost(func(error) { mgr.NotifyConnectionLost() })
		if err := mgr.Start(ctx); err != nil {
			stdlog.Fatalf("Failed to connect to %s: %v", address, err)
		}
		defer mgr.Close()
	} else {
		c.SubscribeConnectionLost(console.onConnectionLost)
		if err := c.Connect(ctx); err != nil {
			stdlog.Fatalf("Failed to connect to %s: %v", address, err)
		}
	}
	defer c.Disconnect()

	// Ctrl-C outside the prompt also shuts down cleanly.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	console.Run(ctx, cancel)
}

// buildLogger assembles the protocol logger from config. The returned
// close function flushes the file logger, if any.
func buildLogger(cfg config.LogConfig) (log.Logger, func(), error) {
	var loggers []log.Logger

	var fileLogger *log.FileLogger
	if cfg.File != "" {
		fl, err := log.NewFileLogger(cfg.File)
		if err != nil {
			return nil, nil, err
		}
		fileLogger = fl
		loggers = append(loggers, fl)
	}
	if cfg.Debug {
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		loggers = append(loggers, log.NewSlogAdapter(slog.New(handler)))
	}

	closeFn := func() {
		if fileLogger != nil {
			_ = fileLogger.Close()
		}
	}

	switch len(loggers) {
	case 0:
		return log.NoopLogger{}, closeFn, nil
	case 1:
		return loggers[0], closeFn, nil
	default:
		return log.NewMultiLogger(loggers...), closeFn, nil
	}
}
