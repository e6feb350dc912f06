package transport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qclabs/go-instr/logger"
)

// Default configuration values.
const (
	DefaultReadTimeout    = 1 * time.Second
	DefaultConnectTimeout = 3 * time.Second

	DefaultBaudRate = 9600
	DefaultDataBits = 8
	DefaultStopBits = 1
	DefaultParity   = "N"
)

// Kind identifies the physical transport of a channel.
type Kind int

const (
	// TCP is a stream socket to the instrument's LAN interface.
	TCP Kind = iota
	// GPIB is an IEEE-488 device behind a Prologix controller.
	GPIB
	// Serial is an RS-232 UART.
	Serial
	// Direct is a character special file opened read/write.
	Direct
)

// String returns the canonical name of the transport kind.
func (k Kind) String() string {
	switch k {
	case TCP:
		return "TCPIP"
	case GPIB:
		return "GPIB"
	case Serial:
		return "COM"
	case Direct:
		return "direct"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind converts a configuration string into a Kind. The accepted names
// are the ones instrument configurations have historically used: "TCPIP",
// "GPIB", "COM" and "direct" (case-insensitive).
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "TCPIP", "TCP":
		return TCP, nil
	case "GPIB":
		return GPIB, nil
	case "COM", "SERIAL":
		return Serial, nil
	case "DIRECT":
		return Direct, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Config holds all configuration for a transport channel. Only the fields
// relevant to the configured Kind are consulted; the rest keep their
// defaults.
type Config struct {
	kind Kind

	// TCP.
	host string
	port int

	// Serial and Direct: device path. For GPIB this is the serial port of
	// the Prologix controller.
	device string

	// Serial line parameters.
	baudRate int
	dataBits int
	stopBits int
	parity   string

	// GPIB primary address of the instrument.
	gpibAddr int

	readTimeout    time.Duration
	connectTimeout time.Duration

	logger logger.Logger
}

// NewConfig creates a channel configuration for the given transport kind.
// opts are functional options applied in order; see With* functions.
func NewConfig(kind Kind, opts ...Option) (*Config, error) {
	if kind < TCP || kind > Direct {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(kind))
	}

	cfg := &Config{
		kind:           kind,
		baudRate:       DefaultBaudRate,
		dataBits:       DefaultDataBits,
		stopBits:       DefaultStopBits,
		parity:         DefaultParity,
		readTimeout:    DefaultReadTimeout,
		connectTimeout: DefaultConnectTimeout,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.kind {
	case TCP:
		if cfg.host == "" {
			return errors.New("transport: TCP channel requires a host")
		}
		if cfg.port == 0 {
			return errors.New("transport: TCP channel requires a port")
		}
	case GPIB:
		if cfg.device == "" {
			return errors.New("transport: GPIB channel requires a controller serial port")
		}
	case Serial, Direct:
		if cfg.device == "" {
			return fmt.Errorf("transport: %s channel requires a device path", cfg.kind)
		}
	}

	return nil
}

// --- Getters ---

// Kind returns the configured transport kind.
func (cfg *Config) Kind() Kind { return cfg.kind }

// Host returns the configured TCP host.
func (cfg *Config) Host() string { return cfg.host }

// Port returns the configured TCP port.
func (cfg *Config) Port() int { return cfg.port }

// Addr returns "host:port".
func (cfg *Config) Addr() string { return fmt.Sprintf("%s:%d", cfg.host, cfg.port) }

// Device returns the configured device path.
func (cfg *Config) Device() string { return cfg.device }

// BaudRate returns the serial baud rate.
func (cfg *Config) BaudRate() int { return cfg.baudRate }

// DataBits returns the number of serial data bits.
func (cfg *Config) DataBits() int { return cfg.dataBits }

// StopBits returns the number of serial stop bits.
func (cfg *Config) StopBits() int { return cfg.stopBits }

// Parity returns the serial parity mode ("N", "E" or "O").
func (cfg *Config) Parity() string { return cfg.parity }

// GPIBAddress returns the GPIB primary address of the instrument.
func (cfg *Config) GPIBAddress() int { return cfg.gpibAddr }

// ReadTimeout returns the per-read timeout.
func (cfg *Config) ReadTimeout() time.Duration { return cfg.readTimeout }

// ConnectTimeout returns the open/dial timeout.
func (cfg *Config) ConnectTimeout() time.Duration { return cfg.connectTimeout }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// --- Option ---

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithHost sets the TCP host address.
func WithHost(host string) Option {
	return optFunc(func(cfg *Config) error {
		if host == "" {
			return errors.New("transport: host must not be empty")
		}
		cfg.host = host

		return nil
	})
}

// WithPort sets the TCP port. Must be in [1, 65535].
func WithPort(port int) Option {
	return optFunc(func(cfg *Config) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("transport: port %d out of range [1, 65535]", port)
		}
		cfg.port = port

		return nil
	})
}

// WithDevice sets the device path for Serial and Direct channels, or the
// Prologix controller serial port for GPIB channels.
func WithDevice(path string) Option {
	return optFunc(func(cfg *Config) error {
		if path == "" {
			return errors.New("transport: device path must not be empty")
		}
		cfg.device = path

		return nil
	})
}

// WithBaudRate sets the serial baud rate.
func WithBaudRate(baud int) Option {
	return optFunc(func(cfg *Config) error {
		if baud <= 0 {
			return fmt.Errorf("transport: baud rate %d must be positive", baud)
		}
		cfg.baudRate = baud

		return nil
	})
}

// WithDataBits sets the number of serial data bits (5-8).
func WithDataBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits < 5 || bits > 8 {
			return fmt.Errorf("transport: data bits %d out of range [5, 8]", bits)
		}
		cfg.dataBits = bits

		return nil
	})
}

// WithStopBits sets the number of serial stop bits (1 or 2).
func WithStopBits(bits int) Option {
	return optFunc(func(cfg *Config) error {
		if bits != 1 && bits != 2 {
			return fmt.Errorf("transport: stop bits %d must be 1 or 2", bits)
		}
		cfg.stopBits = bits

		return nil
	})
}

// WithParity sets the serial parity mode: "N" (none), "E" (even) or
// "O" (odd).
func WithParity(parity string) Option {
	return optFunc(func(cfg *Config) error {
		parity = strings.ToUpper(parity)
		if parity != "N" && parity != "E" && parity != "O" {
			return fmt.Errorf("transport: parity %q must be N, E or O", parity)
		}
		cfg.parity = parity

		return nil
	})
}

// WithGPIBAddress sets the GPIB primary address. Must be in [0, 30].
func WithGPIBAddress(addr int) Option {
	return optFunc(func(cfg *Config) error {
		if addr < 0 || addr > 30 {
			return fmt.Errorf("transport: GPIB address %d out of range [0, 30]", addr)
		}
		cfg.gpibAddr = addr

		return nil
	})
}

// WithReadTimeout sets the per-read timeout.
func WithReadTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: read timeout must be positive")
		}
		cfg.readTimeout = d

		return nil
	})
}

// WithConnectTimeout sets the open/dial timeout.
func WithConnectTimeout(d time.Duration) Option {
	return optFunc(func(cfg *Config) error {
		if d <= 0 {
			return errors.New("transport: connect timeout must be positive")
		}
		cfg.connectTimeout = d

		return nil
	})
}

// WithLogger sets the logger for the channel.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("transport: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
