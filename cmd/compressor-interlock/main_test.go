package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sweeney/compressor-interlock/internal/config"
	"github.com/sweeney/compressor-interlock/internal/gpio"
	"github.com/sweeney/compressor-interlock/internal/link"
	"github.com/sweeney/compressor-interlock/internal/logic"
	"github.com/sweeney/compressor-interlock/internal/node"
	"github.com/sweeney/compressor-interlock/internal/status"
)

// TestEnvVarNames verifies the env var constants match what pi-helper writes
// to /run/pi-helper.env. If pi-helper changes its var names, this test fails
// and we update the constants, not the other way around.
func TestEnvVarNames(t *testing.T) {
	// These are the canonical names from pi-helper.
	want := map[string]string{
		"NETWORK_TYPE":        envNetworkType,
		"NETWORK_IP":          envNetworkIP,
		"NETWORK_STATUS":      envNetworkStatus,
		"NETWORK_GATEWAY":     envNetworkGateway,
		"NETWORK_WIFI_STATUS": envNetworkWifiStatus,
		"NETWORK_WIFI_SSID":   envNetworkWifiSSID,
	}
	for canonical, got := range want {
		assert.Equal(t, canonical, got, "env var constant")
	}
}

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv(envNetworkType, "wifi")
	t.Setenv(envNetworkIP, "192.168.1.100")
	t.Setenv(envNetworkStatus, "connected")
	t.Setenv(envNetworkGateway, "192.168.1.1")
	t.Setenv(envNetworkWifiStatus, "connected")
	t.Setenv(envNetworkWifiSSID, "MyNetwork")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, "wifi", info.Type)
	assert.Equal(t, "192.168.1.100", info.IP)
	assert.Equal(t, "192.168.1.1", info.Gateway)
	assert.Equal(t, "MyNetwork", info.SSID)
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	assert.Nil(t, readNetworkInfo(), "nil when NETWORK_STATUS is unset")
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv(envNetworkStatus, "connected")

	info := readNetworkInfo()
	require.NotNil(t, info)
	assert.Equal(t, "connected", info.Status)
	assert.Empty(t, info.IP)
}

func TestPrintState(t *testing.T) {
	lines := gpio.InputLines{
		Air:        gpio.Line{Name: gpio.PinAirSwitch, Offset: 17, ActiveLow: true},
		Drain:      gpio.Line{Name: gpio.PinDrainSwitch, Offset: 27, ActiveLow: true},
		Vent:       gpio.Line{Name: gpio.PinVentSwitch, Offset: 22, ActiveLow: true},
		Compressor: gpio.Unwired(gpio.PinCompressor),
	}
	pins := gpio.NewFakePins(map[string]bool{
		gpio.PinAirSwitch:   false, // low = on
		gpio.PinDrainSwitch: true,
		gpio.PinVentSwitch:  false,
	})

	var buf bytes.Buffer
	require.NoError(t, printState(&buf, gpio.NewSampler(pins, lines)))
	assert.Equal(t, "AIR: ON, DRAIN: OFF, VENT: ON, COMPRESSOR: OFF\n", buf.String())
}

func TestPrintStateReadError(t *testing.T) {
	pins := gpio.NewFakePins(nil)
	pins.ReadError = errors.New("gpio fault")
	lines := gpio.InputLines{Air: gpio.Line{Name: gpio.PinAirSwitch, Offset: 17}}

	assert.Error(t, printState(&bytes.Buffer{}, gpio.NewSampler(pins, lines)))
}

func loadConfig(t *testing.T, args ...string) *config.Config {
	t.Helper()
	cfg, err := config.Load(args)
	require.NoError(t, err)
	return cfg
}

func TestStatusConfig(t *testing.T) {
	sc := statusConfig(loadConfig(t))
	assert.Equal(t, status.Config{
		Role:          "single",
		CyclePeriodMs: 1000,
		RuntimeLimitS: 300,
		CooldownS:     300,
		HTTPAddr:      ":8080",
	}, sc, "single node reports no link settings")

	sc = statusConfig(loadConfig(t, "--role", "shop", "--broker", "tcp://b:1883"))
	assert.Equal(t, int64(30), sc.LinkTimeoutS)
	assert.Equal(t, "tcp://b:1883", sc.Broker)
	assert.Equal(t, "shop/compressor", sc.TopicPrefix)
}

func TestNewDaemonPicksRole(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{nil, "single"},
		{[]string{"--role", "shop", "--broker", "tcp://b:1883"}, "shop"},
		{[]string{"--role", "utility", "--broker", "tcp://b:1883"}, "utility"},
	}
	for _, tc := range tests {
		cfg := loadConfig(t, tc.args...)
		d := newDaemon(cfg, zap.NewNop().Sugar(), gpio.NewFakePins(nil), link.NewFakeTransport(), time.Now())
		assert.Equal(t, tc.want, d.node.Role(), "role for %v", tc.args)
	}
}

func TestServerDisabled(t *testing.T) {
	cfg := loadConfig(t, "--http", "")
	d := newDaemon(cfg, zap.NewNop().Sugar(), gpio.NewFakePins(nil), nil, time.Now())
	assert.Nil(t, d.server(), "no server with an empty address")
}

func TestServerEndpoints(t *testing.T) {
	cfg := loadConfig(t, "--role", "shop", "--broker", "tcp://b:1883")
	tr := link.NewFakeTransport()
	tr.SetLinkUp(false)
	d := newDaemon(cfg, zap.NewNop().Sugar(), gpio.NewFakePins(nil), tr, time.Now())

	ts := httptest.NewServer(d.server().Handler())
	defer ts.Close()

	for path, want := range map[string]int{
		"/index.json": http.StatusOK,
		"/metrics":    http.StatusOK,
		"/live":       http.StatusOK,
		"/ready":      http.StatusServiceUnavailable, // no cycle yet, link down
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, "GET %s", path)
	}
}

// singleLevels returns raw levels with the air switch on, everything else off.
func singleLevels() map[string]bool {
	return map[string]bool{
		gpio.PinAirSwitch:   false,
		gpio.PinDrainSwitch: true,
		gpio.PinVentSwitch:  true,
		gpio.PinCompressor:  false, // running
	}
}

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Not safe for concurrent use (only called from runLoop's goroutine).
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// runRunLoop drives runLoop for nTicks and then cancels it.
func runRunLoop(t *testing.T, n node.Node, clock func() time.Time, nTicks int) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	tick := make(chan time.Time)

	errCh := make(chan error, 1)
	go func() {
		errCh <- runLoop(ctx, n, 0, clock, tick)
	}()

	for i := 0; i < nTicks; i++ {
		tick <- time.Time{}
	}
	cancel()

	select {
	case err := <-errCh:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("runLoop did not return after cancel")
		return nil
	}
}

func TestRunLoopTripsAndShutsDown(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := loadConfig(t)
	pins := gpio.NewFakePins(singleLevels())
	d := newDaemon(cfg, zap.NewNop().Sugar(), pins, nil, start)

	// 302 ticks one second apart: t=0..301, trip at t=300
	require.NoError(t, runRunLoop(t, d.node, fakeClock(start, time.Second), 302))

	snap := d.tracker.Snapshot()
	assert.Equal(t, logic.StateError, snap.State)
	require.NotNil(t, snap.LastTrip)
	assert.Equal(t, logic.TripRuntimeLimit, snap.LastTrip.Reason)
	assert.True(t, snap.LastTrip.Time.Equal(start.Add(300*time.Second)), "trip time: got %v", snap.LastTrip.Time)
	for _, l := range cfg.GPIO.Outputs.All() {
		assert.False(t, pins.Level(l.Name), "%s should be off after shutdown", l.Name)
	}
}

func TestRunLoopGPIOReadError(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	pins := gpio.NewFakePins(singleLevels())
	pins.ReadError = errors.New("gpio fault")
	d := newDaemon(loadConfig(t), zap.NewNop().Sugar(), pins, nil, start)

	require.NoError(t, runRunLoop(t, d.node, fakeClock(start, time.Second), 5), "read errors do not stop the loop")
	assert.Equal(t, uint64(0), d.tracker.Snapshot().Cycles)
}

func TestExitCode(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core).Sugar()

	assert.Equal(t, 0, exitCode(log, nil))
	assert.Equal(t, 0, logs.Len())

	assert.Equal(t, 1, exitCode(log, errors.New("init gpio: no chip")))
	entries := logs.FilterMessage("fatal").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
	assert.Equal(t, "init gpio: no chip", entries[0].ContextMap()["err"])
}
