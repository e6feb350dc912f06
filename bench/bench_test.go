package bench

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qclabs/go-instr/config"
	"github.com/qclabs/go-instr/internal/scripttest"
	"github.com/qclabs/go-instr/scpi"
	"github.com/qclabs/go-instr/transport"
)

// scriptedDial returns a dial function that hands every instrument its
// own scripted channel, keyed by host or device.
func scriptedDial(t *testing.T, channels map[string]*scripttest.Channel) func(*transport.Config, []scpi.SessionOption, ...scpi.ClientOption) (*scpi.Client, error) {
	t.Helper()

	return func(cfg *transport.Config, sessOpts []scpi.SessionOption, opts ...scpi.ClientOption) (*scpi.Client, error) {
		key := cfg.Host()
		if key == "" {
			key = cfg.Device()
		}
		ch, ok := channels[key]
		if !ok {
			return nil, errors.New("no scripted channel for " + key)
		}

		s, err := scpi.NewSession(ch, sessOpts...)
		if err != nil {
			return nil, err
		}

		return scpi.NewClient(ch, s, opts...)
	}
}

func testRoster(t *testing.T) *config.Config {
	t.Helper()

	cfg, err := config.Parse([]byte(`
[[instrument]]
name = "synth"
driver = "synth"
com = "TCPIP"
host = "psg"
port = 5025

[[instrument]]
name = "gauge"
driver = "pfeiffer"
com = "COM"
device = "/dev/ttyS0"
`))
	require.NoError(t, err)

	return cfg
}

func TestBenchOpenAllConcurrent(t *testing.T) {
	channels := map[string]*scripttest.Channel{
		"psg":        scripttest.New(1, "Agilent,E8257D,MY001,C.06\n"),
		"/dev/ttyS0": scripttest.New(1),
	}

	b := New()
	b.dial = scriptedDial(t, channels)

	require.NoError(t, b.OpenAll(testRoster(t)))

	names := b.Names()
	sort.Strings(names)
	assert.Equal(t, []string{"gauge", "synth"}, names)

	// SCPI instruments are identified on open, handshake drivers are not.
	synth, ok := b.Lookup("synth")
	require.True(t, ok)
	assert.Equal(t, "Agilent,E8257D,MY001,C.06", synth.Identity)
	assert.Equal(t, []string{"*IDN?\n"}, channels["psg"].Writes)

	gauge, ok := b.Lookup("gauge")
	require.True(t, ok)
	assert.Empty(t, gauge.Identity)
	assert.Empty(t, channels["/dev/ttyS0"].Writes)
}

func TestBenchOpenAllCollectsFailures(t *testing.T) {
	// only the gauge channel exists; the synth dial fails
	channels := map[string]*scripttest.Channel{
		"/dev/ttyS0": scripttest.New(1),
	}

	b := New()
	b.dial = scriptedDial(t, channels)

	err := b.OpenAll(testRoster(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synth")

	// the gauge still opened
	_, ok := b.Lookup("gauge")
	assert.True(t, ok)
	_, ok = b.Lookup("synth")
	assert.False(t, ok)
}

func TestBenchOpenRejectsDuplicate(t *testing.T) {
	channels := map[string]*scripttest.Channel{
		"/dev/ttyS0": scripttest.New(1),
	}

	b := New()
	b.dial = scriptedDial(t, channels)

	roster := testRoster(t)
	gauge := roster.Instrument("gauge")
	require.NoError(t, b.Open(gauge))

	err := b.Open(gauge)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already open")
}

func TestBenchIdentifyFailureClosesClient(t *testing.T) {
	// empty identity response fails verification
	channels := map[string]*scripttest.Channel{
		"psg": scripttest.New(1, "\n"),
	}

	b := New()
	b.dial = scriptedDial(t, channels)

	roster := testRoster(t)
	err := b.Open(roster.Instrument("synth"))
	require.Error(t, err)
	require.ErrorIs(t, err, scpi.ErrEmptyIdent)

	_, ok := b.Lookup("synth")
	assert.False(t, ok)
	assert.False(t, channels["psg"].IsOpen())
}

func TestBenchClientLookup(t *testing.T) {
	ch := scripttest.New(1)
	s, err := scpi.NewSession(ch)
	require.NoError(t, err)
	client, err := scpi.NewClient(ch, s)
	require.NoError(t, err)

	b := New()
	b.Register("dmm", "multimeter", client)

	got, err := b.Client("dmm")
	require.NoError(t, err)
	assert.Same(t, client, got)

	_, err = b.Client("nope")
	require.ErrorIs(t, err, ErrNotRegistered)
}

func TestBenchCloseAndCloseAll(t *testing.T) {
	ch1 := scripttest.New(1)
	ch2 := scripttest.New(1)

	b := New()
	for name, ch := range map[string]*scripttest.Channel{"a": ch1, "b": ch2} {
		s, err := scpi.NewSession(ch)
		require.NoError(t, err)
		client, err := scpi.NewClient(ch, s)
		require.NoError(t, err)
		b.Register(name, "synth", client)
	}

	require.NoError(t, b.Close("a"))
	assert.False(t, ch1.IsOpen())
	require.ErrorIs(t, b.Close("a"), ErrNotRegistered)

	require.NoError(t, b.CloseAll())
	assert.False(t, ch2.IsOpen())
	assert.Empty(t, b.Names())
}
