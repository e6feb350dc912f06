// Package config loads the instrument roster from a TOML file and turns
// each entry into a transport configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/qclabs/go-instr/transport"
)

// Config represents the instrument roster.
type Config struct {
	Instruments []Instrument `toml:"instrument"`
}

// Instrument is one roster entry. Which keys are required depends on the
// transport kind.
type Instrument struct {
	Name   string `toml:"name"`
	Driver string `toml:"driver"`
	Com    string `toml:"com"` // TCPIP, GPIB, COM or direct

	// TCPIP
	Host string `toml:"host"`
	Port int    `toml:"port"`

	// GPIB, COM and direct
	Device string `toml:"device"`

	// GPIB
	GPIBAddress int `toml:"gpib_address"`

	// COM
	BaudRate int    `toml:"baud_rate"`
	DataBits int    `toml:"data_bits"`
	StopBits int    `toml:"stop_bits"`
	Parity   string `toml:"parity"`

	// session tuning
	ReadTimeoutMS    int `toml:"read_timeout_ms"`
	ConnectTimeoutMS int `toml:"connect_timeout_ms"`
}

// Load reads and parses a TOML roster file.
func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses TOML roster data.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks the roster for consistency.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("at least one instrument must be defined")
	}

	names := make(map[string]bool, len(c.Instruments))
	for i, inst := range c.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("instrument[%d]: name is required", i)
		}
		if names[inst.Name] {
			return fmt.Errorf("instrument[%d]: duplicate name %q", i, inst.Name)
		}
		names[inst.Name] = true

		if inst.Driver == "" {
			return fmt.Errorf("instrument[%d] %q: driver is required", i, inst.Name)
		}

		kind, err := transport.ParseKind(inst.Com)
		if err != nil {
			return fmt.Errorf("instrument[%d] %q: %w", i, inst.Name, err)
		}

		switch kind {
		case transport.TCP:
			if inst.Host == "" {
				return fmt.Errorf("instrument[%d] %q: host is required for TCPIP", i, inst.Name)
			}
			if inst.Port <= 0 || inst.Port > 65535 {
				return fmt.Errorf("instrument[%d] %q: port %d must be between 1 and 65535", i, inst.Name, inst.Port)
			}
		case transport.GPIB, transport.Serial, transport.Direct:
			if inst.Device == "" {
				return fmt.Errorf("instrument[%d] %q: device is required for %s", i, inst.Name, kind)
			}
		}
	}

	return nil
}

// Instrument returns the roster entry with the given name.
func (c *Config) Instrument(name string) *Instrument {
	for i := range c.Instruments {
		if c.Instruments[i].Name == name {
			return &c.Instruments[i]
		}
	}

	return nil
}

// TransportConfig builds the transport configuration for a roster entry.
func (inst *Instrument) TransportConfig() (*transport.Config, error) {
	kind, err := transport.ParseKind(inst.Com)
	if err != nil {
		return nil, err
	}

	var opts []transport.Option

	switch kind {
	case transport.TCP:
		opts = append(opts, transport.WithHost(inst.Host), transport.WithPort(inst.Port))
	case transport.GPIB:
		opts = append(opts, transport.WithDevice(inst.Device), transport.WithGPIBAddress(inst.GPIBAddress))
	case transport.Serial:
		opts = append(opts, transport.WithDevice(inst.Device))
		if inst.BaudRate != 0 {
			opts = append(opts, transport.WithBaudRate(inst.BaudRate))
		}
		if inst.DataBits != 0 {
			opts = append(opts, transport.WithDataBits(inst.DataBits))
		}
		if inst.StopBits != 0 {
			opts = append(opts, transport.WithStopBits(inst.StopBits))
		}
		if inst.Parity != "" {
			opts = append(opts, transport.WithParity(inst.Parity))
		}
	case transport.Direct:
		opts = append(opts, transport.WithDevice(inst.Device))
	}

	if inst.ReadTimeoutMS != 0 {
		opts = append(opts, transport.WithReadTimeout(time.Duration(inst.ReadTimeoutMS)*time.Millisecond))
	}
	if inst.ConnectTimeoutMS != 0 {
		opts = append(opts, transport.WithConnectTimeout(time.Duration(inst.ConnectTimeoutMS)*time.Millisecond))
	}

	return transport.NewConfig(kind, opts...)
}
