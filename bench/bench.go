// Package bench maintains the registry of open instruments for one
// measurement setup. Every instrument from the roster is opened
// concurrently and kept addressable by name; serializing commands per
// instrument remains the caller's contract.
package bench

import (
	"errors"
	"fmt"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/qclabs/go-instr/config"
	"github.com/qclabs/go-instr/logger"
	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// ErrNotRegistered is returned when a named instrument is not on the
// bench.
var ErrNotRegistered = errors.New("bench: instrument not registered")

// pfeiffer and the MKS controllers answer with their own handshakes
// instead of *IDN?, use a bare CR terminator, and build query frames
// themselves.
var driverSessions = map[string]struct {
	sessOpts   []scpi.SessionOption
	clientOpts []scpi.ClientOption
	identify   bool
}{
	"pfeiffer": {
		sessOpts:   []scpi.SessionOption{scpi.WithTerminator([]byte("\r"))},
		clientOpts: []scpi.ClientOption{scpi.WithQuerySuffix(false)},
	},
	"mks946": {
		sessOpts: []scpi.SessionOption{
			scpi.WithTerminator([]byte("\r")),
			scpi.WithEnforceTermination(false),
		},
		clientOpts: []scpi.ClientOption{scpi.WithQuerySuffix(false)},
	},
	"mks647": {
		sessOpts:   []scpi.SessionOption{scpi.WithTerminator([]byte("\r"))},
		clientOpts: []scpi.ClientOption{scpi.WithQuerySuffix(false)},
	},
	"lockin": {
		clientOpts: []scpi.ClientOption{scpi.WithQuerySuffix(false)},
		identify:   true,
	},
	"delaygen": {
		clientOpts: []scpi.ClientOption{scpi.WithQuerySuffix(false)},
		identify:   true,
	},
}

// Instrument is one open bench entry.
type Instrument struct {
	Name     string
	Driver   string
	Identity string
	Client   *scpi.Client
}

// Bench is the registry of open instruments.
type Bench struct {
	instruments *xsync.MapOf[string, *Instrument]
	logger      logger.Logger

	// dial is swapped out in tests
	dial func(cfg *transport.Config, sessOpts []scpi.SessionOption, opts ...scpi.ClientOption) (*scpi.Client, error)
}

// Option configures a Bench.
type Option func(*Bench)

// WithLogger sets the logger used for open and close events.
func WithLogger(l logger.Logger) Option {
	return func(b *Bench) { b.logger = l }
}

// New creates an empty bench.
func New(opts ...Option) *Bench {
	b := &Bench{
		instruments: xsync.NewMapOf[string, *Instrument](),
		logger:      logger.GetLogger(),
		dial:        scpi.Dial,
	}
	for _, opt := range opts {
		opt(b)
	}

	return b
}

// OpenAll opens every instrument in the roster concurrently. Instruments
// whose driver speaks IEEE-488.2 are verified with *IDN? before being
// registered. Failures are collected per instrument; the successfully
// opened instruments stay registered.
func (b *Bench) OpenAll(cfg *config.Config) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for i := range cfg.Instruments {
		inst := &cfg.Instruments[i]

		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := b.Open(inst); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return errors.Join(errs...)
}

// Open opens one roster entry and registers it under its name.
func (b *Bench) Open(inst *config.Instrument) error {
	if _, ok := b.instruments.Load(inst.Name); ok {
		return fmt.Errorf("bench: instrument %q already open", inst.Name)
	}

	tc, err := inst.TransportConfig()
	if err != nil {
		return fmt.Errorf("bench: configure %q: %w", inst.Name, err)
	}

	profile, ok := driverSessions[inst.Driver]
	if !ok {
		profile.identify = true
	}

	client, err := b.dial(tc, profile.sessOpts, profile.clientOpts...)
	if err != nil {
		return fmt.Errorf("bench: open %q: %w", inst.Name, err)
	}

	entry := &Instrument{Name: inst.Name, Driver: inst.Driver, Client: client}
	if profile.identify {
		identity, err := client.Identify()
		if err != nil {
			_ = client.Close()

			return fmt.Errorf("bench: identify %q: %w", inst.Name, err)
		}
		entry.Identity = identity
	}

	b.instruments.Store(inst.Name, entry)
	b.logger.Info("instrument opened", "name", inst.Name, "driver", inst.Driver, "identity", entry.Identity)

	return nil
}

// Register adds an already open client to the bench.
func (b *Bench) Register(name, driver string, client *scpi.Client) {
	b.instruments.Store(name, &Instrument{Name: name, Driver: driver, Client: client})
}

// Lookup returns the named instrument entry.
func (b *Bench) Lookup(name string) (*Instrument, bool) {
	return b.instruments.Load(name)
}

// Client returns the command facade of the named instrument.
func (b *Bench) Client(name string) (*scpi.Client, error) {
	entry, ok := b.instruments.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	return entry.Client, nil
}

// Names returns the names of all open instruments.
func (b *Bench) Names() []string {
	names := make([]string, 0, b.instruments.Size())
	b.instruments.Range(func(name string, _ *Instrument) bool {
		names = append(names, name)

		return true
	})

	return names
}

// Close closes and removes one instrument.
func (b *Bench) Close(name string) error {
	entry, ok := b.instruments.LoadAndDelete(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}

	b.logger.Info("instrument closed", "name", name)

	return entry.Client.Close()
}

// CloseAll closes every open instrument and empties the bench.
func (b *Bench) CloseAll() error {
	var errs []error

	b.instruments.Range(func(name string, entry *Instrument) bool {
		if err := entry.Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bench: close %q: %w", name, err))
		}
		b.instruments.Delete(name)

		return true
	})

	return errors.Join(errs...)
}
