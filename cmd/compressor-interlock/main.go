// Command compressor-interlock runs the safety interlock for a compressed-air
// shop: as a single box, or as the shop or utility half of a two-node pair.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sweeney/compressor-interlock/internal/config"
	"github.com/sweeney/compressor-interlock/internal/gpio"
	"github.com/sweeney/compressor-interlock/internal/link"
	"github.com/sweeney/compressor-interlock/internal/logging"
	"github.com/sweeney/compressor-interlock/internal/metrics"
	"github.com/sweeney/compressor-interlock/internal/mqtt"
	"github.com/sweeney/compressor-interlock/internal/node"
	"github.com/sweeney/compressor-interlock/internal/status"
	"github.com/sweeney/compressor-interlock/internal/web"
)

// lampTestDuration is how long both indicators stay lit at startup.
const lampTestDuration = time.Second

func main() {
	cfg, err := config.Load(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	if cfg.PrintConfig {
		if err := cfg.WriteSettings(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "print config: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log := logging.New(cfg.LogLevel)
	os.Exit(exitCode(log, run(cfg, log)))
}

// exitCode logs a fatal run error and flushes the logger before main exits.
func exitCode(log *zap.SugaredLogger, err error) int {
	code := 0
	if err != nil {
		log.Errorw("fatal", "err", err)
		code = 1
	}
	log.Sync()
	return code
}

func run(cfg *config.Config, log *zap.SugaredLogger) error {
	// Initialize GPIO
	pins, err := gpio.NewRealPins(cfg.GPIO.Chip, cfg.GPIO.Inputs.All(), cfg.GPIO.Outputs.All())
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer pins.Close()

	// Print state mode
	if cfg.PrintState {
		return printState(os.Stdout, gpio.NewSampler(pins, cfg.GPIO.Inputs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Distributed roles do not enter the cycle until the link is up.
	var transport link.Transport
	if cfg.Role.Distributed() {
		t, err := mqtt.NewTransport(cfg.MQTTOptions(), log.Named("link"))
		if err != nil {
			return fmt.Errorf("init link: %w", err)
		}
		defer t.Close()
		transport = t
	}

	d := newDaemon(cfg, log, pins, transport, time.Now())

	// Start HTTP status server
	if srv := d.server(); srv != nil {
		ln, err := net.Listen("tcp", cfg.HTTPAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
		}
		go func() {
			if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
				log.Errorw("http server error", "err", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Infow("http status server listening", "addr", ln.Addr().String())
	}

	log.Infow("started",
		"role", cfg.Role,
		"cycle", cfg.Timing.CyclePeriod,
		"runtime_limit", cfg.Timing.RuntimeLimit,
		"cooldown", cfg.Timing.Cooldown,
		"link_timeout", cfg.Timing.LinkTimeout,
		"broker", cfg.Link.Broker,
	)

	ticker := time.NewTicker(cfg.Timing.CyclePeriod)
	defer ticker.Stop()

	return runLoop(ctx, d.node, lampTestDuration, time.Now, ticker.C)
}

// daemon is the wired set of components of one node.
type daemon struct {
	cfg       *config.Config
	tracker   *status.Tracker
	metrics   *metrics.Metrics
	transport link.Transport
	node      node.Node
}

func newDaemon(cfg *config.Config, log *zap.SugaredLogger, pins gpio.Pins, transport link.Transport, start time.Time) *daemon {
	tracker := status.NewTracker(start, statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	m := metrics.New()

	opts := node.Options{
		Timing:  cfg.Timing,
		Pins:    pins,
		Inputs:  cfg.GPIO.Inputs,
		Outputs: cfg.GPIO.Outputs,
		Tracker: tracker,
		Metrics: m,
		Log:     log,
		Start:   start,
	}

	var n node.Node
	switch cfg.Role {
	case config.RoleShop:
		n = node.NewShop(opts, transport)
	case config.RoleUtility:
		n = node.NewUtility(opts, transport)
	default:
		n = node.NewSingle(opts)
	}

	return &daemon{cfg: cfg, tracker: tracker, metrics: m, transport: transport, node: n}
}

// server returns the diagnostics server, or nil when disabled.
func (d *daemon) server() *web.Server {
	if d.cfg.HTTPAddr == "" {
		return nil
	}
	hopts := web.HealthOptions{CyclePeriod: d.cfg.Timing.CyclePeriod}
	if d.transport != nil {
		hopts.LinkUp = d.transport.IsLinkUp
	}
	return web.New(d.cfg.HTTPAddr, d.tracker, web.Handlers{
		Metrics: d.metrics.Handler(),
		Health:  web.NewHealth(d.tracker, hopts),
	})
}

// runLoop runs the lamp test and then cycles n until ctx is cancelled.
func runLoop(ctx context.Context, n node.Node, lamp time.Duration, now func() time.Time, tick <-chan time.Time) error {
	if err := n.LampTest(ctx, lamp); err != nil {
		return fmt.Errorf("lamp test: %w", err)
	}
	return node.Run(ctx, n, now, tick)
}

func statusConfig(cfg *config.Config) status.Config {
	sc := status.Config{
		Role:          string(cfg.Role),
		CyclePeriodMs: cfg.Timing.CyclePeriod.Milliseconds(),
		RuntimeLimitS: int64(cfg.Timing.RuntimeLimit.Seconds()),
		CooldownS:     int64(cfg.Timing.Cooldown.Seconds()),
		HTTPAddr:      cfg.HTTPAddr,
	}
	if cfg.Role.Distributed() {
		sc.LinkTimeoutS = int64(cfg.Timing.LinkTimeout.Seconds())
		sc.Broker = cfg.Link.Broker
		sc.TopicPrefix = cfg.Link.TopicPrefix
	}
	return sc
}

// printState samples every wired input once.
func printState(w io.Writer, s *gpio.Sampler) error {
	in, err := s.Sample(time.Now())
	if err != nil {
		return fmt.Errorf("read gpio: %w", err)
	}
	fmt.Fprintf(w, "AIR: %s, DRAIN: %s, VENT: %s, COMPRESSOR: %s\n",
		stateString(in.AirOn), stateString(in.DrainOn), stateString(in.VentOn), stateString(in.CompressorRunning))
	return nil
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func stateString(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}
