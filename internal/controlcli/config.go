package controlcli

import (
	"errors"
	"fmt"
	"os"

	"github.com/mfulz/shellgeist/internal/configloader"
	"github.com/mfulz/shellgeist/internal/logging"
	"github.com/mfulz/shellgeist/protocol"
	"gopkg.in/yaml.v3"
)

// DaemonConfig represents one connection target (unix socket or TCP).
type DaemonConfig struct {
	Socket string `yaml:"socket,omitempty"`
	TCP    string `yaml:"tcp,omitempty"`
}

// Channel returns the channel name for the target.
func (d DaemonConfig) Channel() string {
	if d.Socket != "" {
		return d.Socket
	}
	if d.TCP != "" {
		return "tcp://" + d.TCP
	}
	return protocol.DefaultChannel
}

// CTLConfig holds the entire client-side geistctl configuration.
type CTLConfig struct {
	Default string                  `yaml:"default,omitempty"`
	Daemons map[string]DaemonConfig `yaml:"daemons"`
	Logger  logging.Config          `yaml:"log"`
}

// LoadCTLConfig loads geistctl.yaml. A missing file yields an empty config
// that targets the default channel.
func LoadCTLConfig() (*CTLConfig, error) {
	path, err := configloader.ResolveConfigPath("geistctl", "geistctl.yaml")
	if errors.Is(err, configloader.ErrNoConfig) {
		return &CTLConfig{}, nil
	}
	if err != nil {
		return nil, err
	}
	return ReadCTLConfig(path)
}

// ReadCTLConfig parses the config file at path.
func ReadCTLConfig(path string) (*CTLConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var config CTLConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &config, nil
}

// Channel resolves a daemon name to its channel. An empty name selects the
// configured default, the only configured daemon or the default channel,
// in that order.
func (c *CTLConfig) Channel(name string) (string, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		if len(c.Daemons) == 1 {
			for _, d := range c.Daemons {
				return d.Channel(), nil
			}
		}
		return protocol.DefaultChannel, nil
	}
	d, ok := c.Daemons[name]
	if !ok {
		return "", fmt.Errorf("daemon '%s' not found", name)
	}
	return d.Channel(), nil
}
