// Package config loads daemon configuration from defaults, an optional YAML
// file, INTERLOCK_* environment variables and command-line flags, in that
// order of precedence (flags win).
package config

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sweeney/compressor-interlock/internal/gpio"
	"github.com/sweeney/compressor-interlock/internal/logging"
	"github.com/sweeney/compressor-interlock/internal/logic"
	"github.com/sweeney/compressor-interlock/internal/mqtt"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// EnvPrefix is the prefix of environment overrides (INTERLOCK_TIMING_COOLDOWN=...).
const EnvPrefix = "INTERLOCK"

// Role is the deployment role of a node.
type Role string

const (
	RoleSingle  Role = "single"
	RoleShop    Role = "shop"
	RoleUtility Role = "utility"
)

// Distributed reports whether the role runs half of a two-node pair.
func (r Role) Distributed() bool {
	return r == RoleShop || r == RoleUtility
}

// Peer returns the role on the other end of the link, or "" for single.
func (r Role) Peer() Role {
	switch r {
	case RoleShop:
		return RoleUtility
	case RoleUtility:
		return RoleShop
	default:
		return ""
	}
}

func (r Role) valid() bool {
	return r == RoleSingle || r == RoleShop || r == RoleUtility
}

// GPIO is the pin wiring of a node.
type GPIO struct {
	Chip    string
	Inputs  gpio.InputLines
	Outputs gpio.OutputLines
}

// Link configures the node-to-node transport.
type Link struct {
	Broker         string
	TopicPrefix    string
	ClientID       string
	ConnectTimeout time.Duration
}

// Config is the effective daemon configuration.
type Config struct {
	Role     Role
	LogLevel string
	Timing   logic.Timing
	GPIO     GPIO
	Link     Link
	HTTPAddr string

	PrintConfig bool
	PrintState  bool

	settings map[string]any
}

// MQTTOptions returns the transport options for this node.
func (c *Config) MQTTOptions() mqtt.Options {
	return mqtt.Options{
		Broker:         c.Link.Broker,
		ClientID:       c.Link.ClientID,
		TopicPrefix:    c.Link.TopicPrefix,
		Self:           string(c.Role),
		Peer:           string(c.Role.Peer()),
		ConnectTimeout: c.Link.ConnectTimeout,
	}
}

// WriteSettings writes the merged settings as indented JSON.
func (c *Config) WriteSettings(w io.Writer) error {
	data, err := json.MarshalIndent(c.settings, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// Load parses args (without the program name) and builds a validated Config.
func Load(args []string) (*Config, error) {
	v := viper.New()
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := bindFlags(v, fs); err != nil {
		return nil, err
	}

	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	role := Role(strings.ToLower(v.GetString("role")))
	setPinDefaults(v, role)

	cfg := build(v, role)
	cfg.PrintConfig, _ = fs.GetBool("print-config")
	cfg.PrintState, _ = fs.GetBool("print-state")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("compressor-interlock", pflag.ContinueOnError)
	fs.String("config", "", "path to a YAML config file")
	fs.String("role", string(RoleSingle), "node role: single, shop or utility")
	fs.String("log-level", logging.InfoLevel, "log level: debug, info, warn or error")
	fs.Duration("cycle-period", time.Second, "control cycle period")
	fs.Duration("runtime-limit", 300*time.Second, "maximum continuous compressor run")
	fs.Duration("cooldown", 300*time.Second, "vent hold time after the compressor stops")
	fs.Duration("link-timeout", 30*time.Second, "silence on the link before tripping")
	fs.String("gpio-chip", "gpiochip0", "GPIO character device")
	fs.String("broker", "", "MQTT broker URL (shop and utility roles)")
	fs.String("topic-prefix", mqtt.DefaultTopicPrefix, "MQTT topic prefix")
	fs.String("client-id", "", "MQTT client ID (generated when empty)")
	fs.Duration("connect-timeout", 10*time.Second, "time to wait for the link at startup")
	fs.String("http", ":8080", "diagnostics HTTP address (empty to disable)")
	fs.Bool("print-config", false, "print the effective configuration and exit")
	fs.Bool("print-state", false, "print the current inputs and exit")
	return fs
}

var flagKeys = map[string]string{
	"role":            "role",
	"log-level":       "log.level",
	"cycle-period":    "timing.cycle_period",
	"runtime-limit":   "timing.runtime_limit",
	"cooldown":        "timing.cooldown",
	"link-timeout":    "timing.link_timeout",
	"gpio-chip":       "gpio.chip",
	"broker":          "link.broker",
	"topic-prefix":    "link.topic_prefix",
	"client-id":       "link.client_id",
	"connect-timeout": "link.connect_timeout",
	"http":            "http.addr",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("bind flag %s: %w", flag, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("role", string(RoleSingle))
	v.SetDefault("log.level", logging.InfoLevel)
	v.SetDefault("timing.cycle_period", time.Second)
	v.SetDefault("timing.runtime_limit", 300*time.Second)
	v.SetDefault("timing.cooldown", 300*time.Second)
	v.SetDefault("timing.link_timeout", 30*time.Second)
	v.SetDefault("gpio.chip", "gpiochip0")
	v.SetDefault("link.topic_prefix", mqtt.DefaultTopicPrefix)
	v.SetDefault("link.connect_timeout", 10*time.Second)
	v.SetDefault("http.addr", ":8080")
}

// pinDefault is a BCM line and polarity.
type pinDefault struct {
	line      int
	activeLow bool
}

var unwired = pinDefault{line: -1}

// Inputs are switches to ground with pull-ups (active-low). The utility's
// sound meter drives its line high while the compressor runs.
var roleInputs = map[Role]map[string]pinDefault{
	RoleSingle: {
		"air":        {17, true},
		"drain":      {27, true},
		"vent":       {22, true},
		"compressor": {23, true},
	},
	RoleShop: {
		"air":        {17, true},
		"drain":      {27, true},
		"vent":       {22, true},
		"compressor": unwired,
	},
	RoleUtility: {
		"air":        unwired,
		"drain":      unwired,
		"vent":       unwired,
		"compressor": {23, false},
	},
}

var roleOutputs = map[Role]map[string]pinDefault{
	RoleSingle: {
		"enable": {12, false},
		"dryer":  {16, false},
		"drain":  {20, false},
		"vent":   {21, false},
		"ok":     {5, false},
		"error":  {6, false},
	},
	RoleShop: {
		"enable": unwired,
		"dryer":  unwired,
		"drain":  unwired,
		"vent":   unwired,
		"ok":     {5, false},
		"error":  {6, false},
	},
	RoleUtility: {
		"enable": {12, false},
		"dryer":  {16, false},
		"drain":  {20, false},
		"vent":   {21, false},
		"ok":     {5, false},
		"error":  {6, false},
	},
}

func setPinDefaults(v *viper.Viper, role Role) {
	set := func(kind string, pins map[string]pinDefault) {
		for name, p := range pins {
			v.SetDefault(fmt.Sprintf("gpio.%s.%s.line", kind, name), p.line)
			v.SetDefault(fmt.Sprintf("gpio.%s.%s.active_low", kind, name), p.activeLow)
		}
	}
	if pins, ok := roleInputs[role]; ok {
		set("inputs", pins)
	}
	if pins, ok := roleOutputs[role]; ok {
		set("outputs", pins)
	}
}

func build(v *viper.Viper, role Role) *Config {
	line := func(kind, key, name string) gpio.Line {
		prefix := "gpio." + kind + "." + key
		if !v.IsSet(prefix + ".line") {
			return gpio.Unwired(name)
		}
		return gpio.Line{
			Name:      name,
			Offset:    v.GetInt(prefix + ".line"),
			ActiveLow: v.GetBool(prefix + ".active_low"),
		}
	}

	return &Config{
		Role:     role,
		LogLevel: strings.ToLower(v.GetString("log.level")),
		Timing: logic.Timing{
			CyclePeriod:  v.GetDuration("timing.cycle_period"),
			RuntimeLimit: v.GetDuration("timing.runtime_limit"),
			Cooldown:     v.GetDuration("timing.cooldown"),
			LinkTimeout:  v.GetDuration("timing.link_timeout"),
		},
		GPIO: GPIO{
			Chip: v.GetString("gpio.chip"),
			Inputs: gpio.InputLines{
				Air:        line("inputs", "air", gpio.PinAirSwitch),
				Drain:      line("inputs", "drain", gpio.PinDrainSwitch),
				Vent:       line("inputs", "vent", gpio.PinVentSwitch),
				Compressor: line("inputs", "compressor", gpio.PinCompressor),
			},
			Outputs: gpio.OutputLines{
				Enable: line("outputs", "enable", gpio.PinEnableRelay),
				Dryer:  line("outputs", "dryer", gpio.PinDryerRelay),
				Drain:  line("outputs", "drain", gpio.PinDrainRelay),
				Vent:   line("outputs", "vent", gpio.PinVentRelay),
				OK:     line("outputs", "ok", gpio.PinOKLED),
				Error:  line("outputs", "error", gpio.PinErrorLED),
			},
		},
		Link: Link{
			Broker:         v.GetString("link.broker"),
			TopicPrefix:    v.GetString("link.topic_prefix"),
			ClientID:       v.GetString("link.client_id"),
			ConnectTimeout: v.GetDuration("link.connect_timeout"),
		},
		HTTPAddr: v.GetString("http.addr"),
		settings: v.AllSettings(),
	}
}
