package internal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sweeney/compressor-interlock/internal/gpio"
	"github.com/sweeney/compressor-interlock/internal/link"
	"github.com/sweeney/compressor-interlock/internal/logic"
	"github.com/sweeney/compressor-interlock/internal/metrics"
	"github.com/sweeney/compressor-interlock/internal/node"
	"github.com/sweeney/compressor-interlock/internal/status"
	"github.com/sweeney/compressor-interlock/internal/web"
)

var startTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func at(s int) time.Time {
	return startTime.Add(time.Duration(s) * time.Second)
}

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

var (
	switchInputs = gpio.InputLines{
		Air:        gpio.Line{Name: gpio.PinAirSwitch, Offset: 17, ActiveLow: true},
		Drain:      gpio.Line{Name: gpio.PinDrainSwitch, Offset: 27, ActiveLow: true},
		Vent:       gpio.Line{Name: gpio.PinVentSwitch, Offset: 22, ActiveLow: true},
		Compressor: gpio.Unwired(gpio.PinCompressor),
	}
	soundInputs = gpio.InputLines{
		Air:        gpio.Unwired(gpio.PinAirSwitch),
		Drain:      gpio.Unwired(gpio.PinDrainSwitch),
		Vent:       gpio.Unwired(gpio.PinVentSwitch),
		Compressor: gpio.Line{Name: gpio.PinCompressor, Offset: 23},
	}
	relayOutputs = gpio.OutputLines{
		Enable: gpio.Line{Name: gpio.PinEnableRelay, Offset: 12},
		Dryer:  gpio.Line{Name: gpio.PinDryerRelay, Offset: 16},
		Drain:  gpio.Line{Name: gpio.PinDrainRelay, Offset: 20},
		Vent:   gpio.Line{Name: gpio.PinVentRelay, Offset: 21},
		OK:     gpio.Line{Name: gpio.PinOKLED, Offset: 5},
		Error:  gpio.Line{Name: gpio.PinErrorLED, Offset: 6},
	}
	indicatorOutputs = gpio.OutputLines{
		Enable: gpio.Unwired(gpio.PinEnableRelay),
		Dryer:  gpio.Unwired(gpio.PinDryerRelay),
		Drain:  gpio.Unwired(gpio.PinDrainRelay),
		Vent:   gpio.Unwired(gpio.PinVentRelay),
		OK:     gpio.Line{Name: gpio.PinOKLED, Offset: 5},
		Error:  gpio.Line{Name: gpio.PinErrorLED, Offset: 6},
	}
)

func options(pins gpio.Pins, in gpio.InputLines, out gpio.OutputLines, clk *clock) node.Options {
	return node.Options{
		Timing:  logic.DefaultTiming(),
		Pins:    pins,
		Inputs:  in,
		Outputs: out,
		Tracker: status.NewTracker(startTime, status.Config{}),
		Metrics: metrics.New(),
		Log:     zap.NewNop().Sugar(),
		Start:   startTime,
		Now:     clk.now,
	}
}

func relays(p *gpio.FakePins) logic.Outputs {
	return logic.Outputs{
		Enable: p.Level(gpio.PinEnableRelay),
		Dryer:  p.Level(gpio.PinDryerRelay),
		Drain:  p.Level(gpio.PinDrainRelay),
		Vent:   p.Level(gpio.PinVentRelay),
	}
}

// TestIntegrationSingleRunAndCooldown runs the 120 s compressor scenario on
// the single box: vent stays on while running and for 300 s after the stop.
func TestIntegrationSingleRunAndCooldown(t *testing.T) {
	pins := gpio.NewFakePins(map[string]bool{
		gpio.PinAirSwitch:   false, // on
		gpio.PinDrainSwitch: true,  // off
		gpio.PinVentSwitch:  false, // on
		gpio.PinCompressor:  false, // running
	})
	in := switchInputs
	in.Compressor = gpio.Line{Name: gpio.PinCompressor, Offset: 23, ActiveLow: true}
	opts := options(pins, in, relayOutputs, &clock{})
	n := node.NewSingle(opts)

	for s := 0; s < 500; s++ {
		if s == 120 {
			pins.Set(gpio.PinCompressor, true) // stopped
		}
		n.Cycle(at(s))

		want := logic.Outputs{Enable: true, Dryer: true, Vent: s < 420}
		require.Equal(t, want, relays(pins), "relays at t=%d", s)
		require.Equal(t, logic.StateNormal, n.State(), "state at t=%d", s)
	}
}

// TestIntegrationSingleStatusEndpoint checks the diagnostics server against a
// tripped single box.
func TestIntegrationSingleStatusEndpoint(t *testing.T) {
	pins := gpio.NewFakePins(map[string]bool{
		gpio.PinAirSwitch:   false,
		gpio.PinDrainSwitch: true,
		gpio.PinVentSwitch:  true,
		gpio.PinCompressor:  false,
	})
	in := switchInputs
	in.Compressor = gpio.Line{Name: gpio.PinCompressor, Offset: 23, ActiveLow: true}
	opts := options(pins, in, relayOutputs, &clock{})
	n := node.NewSingle(opts)

	for s := 0; s <= 301; s++ {
		n.Cycle(at(s))
	}

	srv := web.New(":0", opts.Tracker, web.Handlers{Metrics: opts.Metrics.Handler()})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/index.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var sj status.StatusJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sj))
	assert.Equal(t, "ERROR", sj.Status.State)
	require.NotNil(t, sj.Status.LastTrip)
	assert.Equal(t, "runtime_limit", sj.Status.LastTrip.Reason)
	assert.Equal(t, "2026-01-01T12:05:00Z", sj.Status.LastTrip.Time)
	assert.False(t, sj.Status.Outputs.Enable, "enable off after trip")
}

// pairRig wires a shop and a utility node back to back.
type pairRig struct {
	clk         *clock
	pair        *link.Pair
	shopPins    *gpio.FakePins
	utilityPins *gpio.FakePins
	shop        *node.Shop
	utility     *node.Utility
}

func newPairRig(compressorRunning bool) *pairRig {
	clk := &clock{t: startTime}
	pair := link.NewPair("shop", "utility")

	shopPins := gpio.NewFakePins(map[string]bool{
		gpio.PinAirSwitch:   false, // on
		gpio.PinDrainSwitch: true,  // off
		gpio.PinVentSwitch:  false, // on
	})
	utilityPins := gpio.NewFakePins(map[string]bool{
		gpio.PinCompressor: compressorRunning,
	})

	return &pairRig{
		clk:         clk,
		pair:        pair,
		shopPins:    shopPins,
		utilityPins: utilityPins,
		shop:        node.NewShop(options(shopPins, switchInputs, indicatorOutputs, clk), pair.A),
		utility:     node.NewUtility(options(utilityPins, soundInputs, relayOutputs, clk), pair.B),
	}
}

// second runs both nodes for one cycle at t=s, shop first.
func (r *pairRig) second(s int) {
	r.clk.t = at(s)
	r.shop.Cycle(at(s))
	r.utility.Cycle(at(s))
}

func (r *pairRig) setLinkUp(up bool) {
	r.pair.A.SetLinkUp(up)
	r.pair.B.SetLinkUp(up)
}

func TestIntegrationPairFollowsSwitches(t *testing.T) {
	r := newPairRig(false)

	for s := 0; s < 60; s++ {
		r.second(s)
	}

	assert.Equal(t, logic.Outputs{Enable: true, Dryer: true}, relays(r.utilityPins))
	assert.Equal(t, logic.StateNormal, r.shop.State())
	assert.Equal(t, logic.StateNormal, r.utility.State())
	assert.True(t, r.shopPins.Level(gpio.PinOKLED), "shop OK indicator")
	assert.True(t, r.utilityPins.Level(gpio.PinOKLED), "utility OK indicator")
}

// TestIntegrationPairRuntimeTrip holds the compressor on: the shop trips on
// runtime, the utility drops its relays on the all-off command and then
// latches itself once the shop falls silent.
func TestIntegrationPairRuntimeTrip(t *testing.T) {
	r := newPairRig(true)

	// The shop first sees the compressor in the report sent at t=0, so its
	// run starts at t=1 and trips at t=301.
	for s := 0; s <= 300; s++ {
		r.second(s)
		require.Equal(t, logic.StateNormal, r.shop.State(), "shop state at t=%d", s)
	}
	require.True(t, r.utilityPins.Level(gpio.PinEnableRelay), "enable on before the trip")

	r.second(301)
	require.Equal(t, logic.StateError, r.shop.State())
	assert.Equal(t, logic.Outputs{}, relays(r.utilityPins), "utility relays after the trip")
	assert.True(t, r.shopPins.Level(gpio.PinErrorLED), "shop Error indicator")

	// Last command arrived at t=301: the utility latches at t=332
	for s := 302; s <= 331; s++ {
		r.second(s)
		require.Equal(t, logic.StateNormal, r.utility.State(), "utility state at t=%d", s)
	}
	r.second(332)
	require.Equal(t, logic.StateError, r.utility.State())
	assert.True(t, r.utilityPins.Level(gpio.PinErrorLED), "utility Error indicator")
	assert.False(t, r.utilityPins.Level(gpio.PinOKLED), "utility OK indicator")
}

func TestIntegrationPairLinkLoss(t *testing.T) {
	r := newPairRig(false)

	for s := 0; s < 10; s++ {
		r.second(s)
	}
	// Both sides last heard from each other at t=9
	r.setLinkUp(false)
	for s := 10; s <= 39; s++ {
		r.second(s)
		require.Equal(t, logic.StateNormal, r.shop.State(), "shop state at t=%d", s)
		require.Equal(t, logic.StateNormal, r.utility.State(), "utility state at t=%d", s)
	}

	r.second(40)
	assert.Equal(t, logic.StateError, r.shop.State())
	assert.Equal(t, logic.StateError, r.utility.State())
	assert.Equal(t, logic.Outputs{}, relays(r.utilityPins))

	// The link coming back does not clear either latch
	r.setLinkUp(true)
	for s := 41; s < 100; s++ {
		r.second(s)
	}
	assert.Equal(t, logic.StateError, r.shop.State(), "shop after reconnect")
	assert.Equal(t, logic.StateError, r.utility.State(), "utility after reconnect")
	assert.Equal(t, logic.Outputs{}, relays(r.utilityPins), "utility relays after reconnect")
}

func TestIntegrationPairLinkRecoversInTime(t *testing.T) {
	r := newPairRig(false)

	for s := 0; s < 10; s++ {
		r.second(s)
	}
	r.setLinkUp(false)
	for s := 10; s < 35; s++ {
		r.second(s)
	}
	r.setLinkUp(true)
	for s := 35; s < 120; s++ {
		r.second(s)
	}

	assert.Equal(t, logic.StateNormal, r.shop.State())
	assert.Equal(t, logic.StateNormal, r.utility.State())
	assert.True(t, r.utilityPins.Level(gpio.PinEnableRelay), "enable on after the link recovered")
}
