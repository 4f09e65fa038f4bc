package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/indigo-protocol/indigo-go/pkg/model"
)

// DefaultPort is the INDIGO server port.
const DefaultPort = 7624

// Config is the full client configuration.
type Config struct {
	// Server is the endpoint to connect to.
	Server ServerConfig `yaml:"server"`

	// Client identifies this client to the server.
	Client ClientConfig `yaml:"client"`

	// Log configures protocol event capture.
	Log LogConfig `yaml:"log"`

	// Reconnect configures automatic reconnection.
	Reconnect ReconnectConfig `yaml:"reconnect"`
}

// ServerConfig names the INDIGO server endpoint.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Endpoint returns the host:port to dial.
func (s ServerConfig) Endpoint() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// ClientConfig holds client identity and BLOB policy.
type ClientConfig struct {
	// Name goes into the getProperties handshake.
	Name string `yaml:"name"`

	// BLOBMode is the delivery mode requested for devices:
	// "Never", "Also" or "Only".
	BLOBMode string `yaml:"blob_mode"`
}

// LogConfig configures protocol event capture.
type LogConfig struct {
	// File is the .ilog path to append events to. Empty disables
	// file capture.
	File string `yaml:"file"`

	// Debug mirrors events to the process logger at debug level.
	Debug bool `yaml:"debug"`
}

// ReconnectConfig configures the reconnection policy.
type ReconnectConfig struct {
	// Enabled turns automatic reconnection on.
	Enabled bool `yaml:"enabled"`

	// MaxAttempts caps consecutive retries. Zero retries forever.
	MaxAttempts int `yaml:"max_attempts"`

	// InitialDelay is the first backoff delay.
	InitialDelay Duration `yaml:"initial_delay"`

	// MaxDelay caps the backoff.
	MaxDelay Duration `yaml:"max_delay"`
}

// Duration wraps time.Duration for YAML values like "30s" or "1m".
type Duration time.Duration

// UnmarshalYAML decodes a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML encodes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the standard library duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: DefaultPort,
		},
		Client: ClientConfig{
			Name:     "indigo-go",
			BLOBMode: model.BLOBNever.String(),
		},
		Reconnect: ReconnectConfig{
			InitialDelay: Duration(1 * time.Second),
			MaxDelay:     Duration(60 * time.Second),
		},
	}
}

// Parse decodes YAML bytes over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host must not be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Client.Name == "" {
		return fmt.Errorf("client.name must not be empty")
	}
	if _, err := model.ParseBLOBMode(c.Client.BLOBMode); err != nil {
		return fmt.Errorf("client.blob_mode: %w", err)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	if c.Reconnect.InitialDelay < 0 || c.Reconnect.MaxDelay < 0 {
		return fmt.Errorf("reconnect delays must not be negative")
	}
	return nil
}
