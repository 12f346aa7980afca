package status

import (
	"time"

	"github.com/goccy/go-json"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Role              string       `json:"role"`
	State             string       `json:"state"`
	UptimeSeconds     int64        `json:"uptime_seconds"`
	StartTime         string       `json:"start_time"`
	Timestamp         string       `json:"timestamp"`
	LastCycle         string       `json:"last_cycle,omitempty"`
	Cycles            uint64       `json:"cycles"`
	Inputs            InputsJSON   `json:"inputs"`
	Outputs           OutputsJSON  `json:"outputs"`
	RuntimeSeconds    uint32       `json:"runtime_seconds"`
	CooldownRemaining uint32       `json:"cooldown_remaining"`
	TripCount         int          `json:"trip_count"`
	LastTrip          *TripJSON    `json:"last_trip,omitempty"`
	Link              *LinkJSON    `json:"link,omitempty"`
	History           []EventJSON  `json:"history"`
	Network           *NetworkJSON `json:"network,omitempty"`
	Config            ConfigJSON   `json:"config"`
}

// InputsJSON reports the logical inputs of the last cycle.
type InputsJSON struct {
	Air               bool `json:"air"`
	Drain             bool `json:"drain"`
	Vent              bool `json:"vent"`
	CompressorRunning bool `json:"compressor_running"`
	LinkStale         bool `json:"link_stale"`
}

// OutputsJSON reports the relay outputs of the last cycle.
type OutputsJSON struct {
	Enable bool `json:"enable"`
	Dryer  bool `json:"dryer"`
	Drain  bool `json:"drain"`
	Vent   bool `json:"vent"`
}

// TripJSON is the JSON representation of a trip.
type TripJSON struct {
	Reason         string `json:"reason"`
	Time           string `json:"time"`
	RuntimeSeconds uint32 `json:"runtime_seconds"`
}

// LinkJSON reports link state.
type LinkJSON struct {
	Up         bool    `json:"up"`
	Broker     string  `json:"broker"`
	Received   bool    `json:"received"`
	AgeSeconds float64 `json:"age_seconds"`
	Messages   int     `json:"messages"`
	Rejected   int     `json:"rejected"`
}

// EventJSON is one history entry.
type EventJSON struct {
	Time   string `json:"time"`
	Event  string `json:"event"`
	Detail string `json:"detail,omitempty"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Role          string `json:"role"`
	CyclePeriodMs int64  `json:"cycle_period_ms"`
	RuntimeLimitS int64  `json:"runtime_limit_s"`
	CooldownS     int64  `json:"cooldown_s"`
	LinkTimeoutS  int64  `json:"link_timeout_s,omitempty"`
	Broker        string `json:"broker,omitempty"`
	TopicPrefix   string `json:"topic_prefix,omitempty"`
	HTTPAddr      string `json:"http_addr"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		Role:          snap.Config.Role,
		State:         state,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     formatTime(snap.StartTime),
		Timestamp:     formatTime(snap.Now),
		Cycles:        snap.Cycles,
		Inputs: InputsJSON{
			Air:               snap.Input.AirOn,
			Drain:             snap.Input.DrainOn,
			Vent:              snap.Input.VentOn,
			CompressorRunning: snap.Input.CompressorRunning,
			LinkStale:         snap.Input.LinkStale,
		},
		Outputs: OutputsJSON{
			Enable: snap.Outputs.Enable,
			Dryer:  snap.Outputs.Dryer,
			Drain:  snap.Outputs.Drain,
			Vent:   snap.Outputs.Vent,
		},
		RuntimeSeconds:    snap.RuntimeSeconds,
		CooldownRemaining: snap.CooldownRemaining,
		TripCount:         snap.TripCount,
		History:           make([]EventJSON, 0, len(snap.History)),
		Config: ConfigJSON{
			Role:          snap.Config.Role,
			CyclePeriodMs: snap.Config.CyclePeriodMs,
			RuntimeLimitS: snap.Config.RuntimeLimitS,
			CooldownS:     snap.Config.CooldownS,
			LinkTimeoutS:  snap.Config.LinkTimeoutS,
			Broker:        snap.Config.Broker,
			TopicPrefix:   snap.Config.TopicPrefix,
			HTTPAddr:      snap.Config.HTTPAddr,
		},
	}

	if !snap.LastCycle.IsZero() {
		inner.LastCycle = formatTime(snap.LastCycle)
	}
	if trip := snap.LastTrip; trip != nil {
		inner.LastTrip = &TripJSON{
			Reason:         string(trip.Reason),
			Time:           formatTime(trip.Time),
			RuntimeSeconds: trip.RuntimeSeconds,
		}
	}
	if l := snap.Link; l != nil {
		inner.Link = &LinkJSON{
			Up:         l.Up,
			Broker:     snap.Config.Broker,
			Received:   l.Received,
			AgeSeconds: l.Age.Seconds(),
			Messages:   l.Messages,
			Rejected:   l.Rejected,
		}
	}
	for _, e := range snap.History {
		inner.History = append(inner.History, EventJSON{
			Time:   formatTime(e.Time),
			Event:  string(e.Kind),
			Detail: e.Detail,
		})
	}
	if n := snap.Network; n != nil {
		inner.Network = &NetworkJSON{
			Type:       n.Type,
			IP:         n.IP,
			Status:     n.Status,
			Gateway:    n.Gateway,
			WifiStatus: n.WifiStatus,
			SSID:       n.SSID,
		}
	}
	return inner
}

// FormatJSON returns the indented JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}
